package sink

import (
	"encoding/json"

	"github.com/matzehuels/gitlanes/pkg/core/render/scene"
)

// RenderJSON serializes a scene document, for clients that draw the tree
// themselves.
func RenderJSON(doc *scene.Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// ReadJSON decodes a document produced by [RenderJSON].
func ReadJSON(data []byte) (*scene.Document, error) {
	var doc scene.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
