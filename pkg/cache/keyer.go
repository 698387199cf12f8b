package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
)

// Keyer derives cache keys. A custom Keyer can namespace or shard keys
// without changing the pipeline.
type Keyer interface {
	// GraphKey identifies a laid out commit grid.
	GraphKey(repo string, tips RefTips, opts GraphKeyOpts) string
	// ArtifactKey identifies one rendered output of a grid.
	ArtifactKey(graphKey string, opts ArtifactKeyOpts) string
	// GenerationKey names the invalidation token of a repository.
	GenerationKey(repo string) string
}

// RefTips maps every reference name (and "HEAD") to the commit it points at.
type RefTips map[string]string

// GraphKeyOpts holds the traversal options that change the grid.
type GraphKeyOpts struct {
	Generation             string `json:"gen,omitempty"`
	OnlyLocal              bool   `json:"only_local,omitempty"`
	AlwaysShowPrimaryFirst bool   `json:"primary_first,omitempty"`
	PrimaryBranch          string `json:"primary,omitempty"`
	MaxCommits             int    `json:"max_commits,omitempty"`
	RowOffset              int    `json:"row_offset,omitempty"`
}

// ArtifactKeyOpts holds the rendering options that change an output.
type ArtifactKeyOpts struct {
	Format             string  `json:"format"`
	RowStart           int     `json:"row_start,omitempty"`
	RowLimit           int     `json:"row_limit,omitempty"`
	HideComplexHistory bool    `json:"hide_complex,omitempty"`
	HideMessages       bool    `json:"hide_messages,omitempty"`
	Highlight          string  `json:"highlight,omitempty"`
	Style              string  `json:"style,omitempty"`
	Interactive        bool    `json:"interactive,omitempty"`
	Detailed           bool    `json:"detailed,omitempty"`
	Title              string  `json:"title,omitempty"`
	LaneWidth          int     `json:"lane_width,omitempty"`
	LoopSpacing        int     `json:"loop_spacing,omitempty"`
	NodeHeight         int     `json:"node_height,omitempty"`
	NodeMargin         int     `json:"node_margin,omitempty"`
	Scale              float64 `json:"scale,omitempty"`
}

// DefaultKeyer produces "graph:", "artifact:" and "gen:" keys with SHA-256
// digests of their inputs.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// GraphKey hashes the repository, its sorted reference tips and opts.
func (DefaultKeyer) GraphKey(repo string, tips RefTips, opts GraphKeyOpts) string {
	names := make([]string, 0, len(tips))
	for name := range tips {
		names = append(names, name)
	}
	slices.Sort(names)
	pairs := make([][2]string, len(names))
	for i, name := range names {
		pairs[i] = [2]string{name, tips[name]}
	}
	return digestKey("graph", repo, pairs, opts)
}

// ArtifactKey hashes the grid key and opts.
func (DefaultKeyer) ArtifactKey(graphKey string, opts ArtifactKeyOpts) string {
	return digestKey("artifact", graphKey, opts)
}

// GenerationKey is readable so operators can find and drop it by hand.
func (DefaultKeyer) GenerationKey(repo string) string {
	return fmt.Sprintf("gen:%s", repo)
}

var _ Keyer = DefaultKeyer{}

// digestKey renders "prefix:<sha256 of the JSON encoding of parts>". Struct
// fields encode in declaration order, so equal inputs give equal keys.
func digestKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	return prefix + ":" + Hash(data)
}

// Hash returns the hex SHA-256 digest of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
