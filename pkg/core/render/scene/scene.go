// Package scene is a small vector document model.
//
// Renderers build a tree of [Element] values; sinks serialize the tree to SVG
// markup, JSON or anything else. Elements are a tagged variant: Kind decides
// which geometry fields are meaningful.
//
// Text content is stored markup-escaped so that sinks can emit it verbatim.
package scene

import "fmt"

// Kind tags an element.
type Kind int

const (
	KindGroup Kind = iota
	KindPath
	KindRect
	KindCircle
	KindText
	KindClipPath
)

var kindNames = map[Kind]string{
	KindGroup:    "group",
	KindPath:     "path",
	KindRect:     "rect",
	KindCircle:   "circle",
	KindText:     "text",
	KindClipPath: "clipPath",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	for kind, name := range kindNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown element kind %q", b)
}

// Element is one node of the document tree.
type Element struct {
	Kind  Kind   `json:"kind"`
	ID    string `json:"id,omitempty"`
	Class string `json:"class,omitempty"`

	// Rect and text use X, Y; circles use X, Y as the centre.
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
	Radius float64 `json:"r,omitempty"`

	// D is the path data of a path element.
	D string `json:"d,omitempty"`
	// Text is the escaped content of a text element.
	Text string `json:"text,omitempty"`
	// Anchor is the text-anchor of a text element.
	Anchor string `json:"anchor,omitempty"`

	Fill        string  `json:"fill,omitempty"`
	Stroke      string  `json:"stroke,omitempty"`
	StrokeWidth float64 `json:"stroke_width,omitempty"`
	Opacity     float64 `json:"opacity,omitempty"`
	Dash        string  `json:"dash,omitempty"`

	// ClipPath references a clipPath element by ID.
	ClipPath string `json:"clip_path,omitempty"`
	// Data holds data-* attributes such as the commit ID.
	Data map[string]string `json:"data,omitempty"`

	Children []*Element `json:"children,omitempty"`
}

// Add appends children and returns e.
func (e *Element) Add(children ...*Element) *Element {
	e.Children = append(e.Children, children...)
	return e
}

// Walk calls fn for e and every descendant, depth first. Returning false
// skips the element's children.
func (e *Element) Walk(fn func(*Element) bool) {
	if !fn(e) {
		return
	}
	for _, c := range e.Children {
		c.Walk(fn)
	}
}

// Find returns all descendants (including e) matching pred.
func (e *Element) Find(pred func(*Element) bool) []*Element {
	var out []*Element
	e.Walk(func(x *Element) bool {
		if pred(x) {
			out = append(out, x)
		}
		return true
	})
	return out
}

// Document is the root of a rendered scene.
type Document struct {
	Width  float64  `json:"width"`
	Height float64  `json:"height"`
	Root   *Element `json:"root"`
	Meta   DocMeta  `json:"meta"`
}

// DocMeta summarizes what a document shows.
type DocMeta struct {
	RowStart   int `json:"row_start"`
	RowEnd     int `json:"row_end"` // Exclusive
	TotalRows  int `json:"total_rows"`
	RowsBefore int `json:"rows_before,omitempty"`
	RowsAfter  int `json:"rows_after,omitempty"`
}

// Group returns a group element.
func Group(id, class string, children ...*Element) *Element {
	return &Element{Kind: KindGroup, ID: id, Class: class, Children: children}
}
