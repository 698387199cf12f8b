package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Encoding selects the on-disk representation of a History.
type Encoding string

const (
	EncodingJSON Encoding = "json"
	EncodingYAML Encoding = "yaml"
)

// EncodingFor picks the encoding from a file extension. Anything other than
// .yaml or .yml is treated as JSON.
func EncodingFor(path string) Encoding {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return EncodingYAML
	default:
		return EncodingJSON
	}
}

// MarshalHistory serializes a history in the given encoding.
func MarshalHistory(h History, enc Encoding) ([]byte, error) {
	if enc == EncodingYAML {
		var buf bytes.Buffer
		e := yaml.NewEncoder(&buf)
		e.SetIndent(2)
		if err := e.Encode(h); err != nil {
			return nil, err
		}
		if err := e.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return json.MarshalIndent(h, "", "  ")
}

// ReadHistory decodes a history from r.
func ReadHistory(r io.Reader, enc Encoding) (History, error) {
	var h History
	var err error
	if enc == EncodingYAML {
		err = yaml.NewDecoder(r).Decode(&h)
	} else {
		err = json.NewDecoder(r).Decode(&h)
	}
	if err != nil {
		return History{}, fmt.Errorf("decode history: %w", err)
	}
	return h, nil
}

// ReadHistoryFile reads a history file, choosing the encoding by extension.
func ReadHistoryFile(path string) (History, error) {
	f, err := os.Open(path)
	if err != nil {
		return History{}, err
	}
	defer f.Close()
	return ReadHistory(f, EncodingFor(path))
}

// WriteHistoryFile writes a history file, choosing the encoding by extension.
func WriteHistoryFile(h History, path string) error {
	data, err := MarshalHistory(h, EncodingFor(path))
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
