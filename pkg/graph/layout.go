package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/matzehuels/gitlanes/pkg/core/dag"
)

// =============================================================================
// Layout - Laid Out Commit Grid
// =============================================================================

// Layout is the serialization format of a finished commit grid.
//
// It carries everything a renderer needs without access to the repository:
// each cell's grid position and display flags plus the reference set. Rows
// are absolute; RowStart is the row of the first cell.
type Layout struct {
	Columns   int    `json:"columns"`
	RowStart  int    `json:"row_start"`
	Rows      int    `json:"rows"`
	Primary   string `json:"primary,omitempty"`
	Head      string `json:"head,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
	Cells     []Cell `json:"cells"`
	Refs      []Ref  `json:"refs,omitempty"`
}

// Cell is one commit placed on the grid.
type Cell struct {
	ID        string    `json:"id"`
	Row       int       `json:"row"`
	Column    int       `json:"column"`
	Color     int       `json:"color"`
	Parents   []string  `json:"parents,omitempty"`
	Children  []string  `json:"children,omitempty"`
	Message   string    `json:"message"` // Markup-escaped
	Author    string    `json:"author,omitempty"`
	Time      time.Time `json:"time"`
	Branches  []string  `json:"branches,omitempty"`
	Source    string    `json:"source,omitempty"`
	Merge     bool      `json:"merge,omitempty"`
	LocalOnly bool      `json:"local_only,omitempty"`
	Prunable  bool      `json:"prunable,omitempty"`
}

// Ref is a reference in the layout.
type Ref struct {
	Name   string `json:"name"`
	Target string `json:"target"`
	Kind   string `json:"kind"`
	Tide   string `json:"tide,omitempty"`
}

// FromGraph exports a laid out graph.
func FromGraph(g *dag.Graph, primary, head string) Layout {
	cells := g.Cells()
	out := Layout{
		Columns:  g.Columns(),
		RowStart: g.FirstRow(),
		Rows:     len(cells),
		Primary:  primary,
		Head:     head,
		Cells:    make([]Cell, len(cells)),
	}
	for i, c := range cells {
		out.Cells[i] = Cell{
			ID:        c.ID(),
			Row:       c.Row,
			Column:    c.Column,
			Color:     c.Commit.Color,
			Parents:   c.Commit.Parents,
			Children:  c.Children,
			Message:   c.Commit.Message,
			Author:    c.Commit.Author,
			Time:      c.Commit.Time,
			Branches:  c.BranchNames,
			Source:    c.Source,
			Merge:     c.IsMerge(),
			LocalOnly: c.LocalOnly,
			Prunable:  c.Prunable,
		}
	}
	for _, r := range g.Refs() {
		out.Refs = append(out.Refs, Ref{Name: r.Name, Target: r.Target, Kind: r.Kind.String(), Tide: r.Tide})
	}
	return out
}

// =============================================================================
// Serialization
// =============================================================================

// MarshalLayout serializes a layout to indented JSON.
func MarshalLayout(l Layout) ([]byte, error) {
	return json.MarshalIndent(l, "", "  ")
}

// UnmarshalLayout deserializes a layout from JSON.
func UnmarshalLayout(data []byte) (Layout, error) {
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return Layout{}, err
	}
	return l, nil
}

// WriteLayoutFile writes a layout to a JSON file.
func WriteLayoutFile(l Layout, path string) error {
	data, err := MarshalLayout(l)
	if err != nil {
		return fmt.Errorf("marshal layout: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// ReadLayoutFile reads a layout from a JSON file.
func ReadLayoutFile(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, err
	}
	return UnmarshalLayout(data)
}
