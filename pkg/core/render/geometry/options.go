package geometry

// Default dimensions in pixels.
const (
	DefaultLaneWidth   = 16
	DefaultLoopSpacing = 8
	DefaultNodeHeight  = 12
	DefaultNodeMargin  = 10
	DefaultMargin      = 12
)

// DefaultPalette colors lanes; lane colors wrap around when a graph uses
// more lanes than the palette has entries.
var DefaultPalette = []string{
	"#4e79a7", "#f28e2b", "#e15759", "#76b7b2",
	"#59a14f", "#edc948", "#b07aa1", "#ff9da7",
	"#9c755f", "#bab0ac",
}

// MonoPalette draws every lane in the same ink.
var MonoPalette = []string{"#333333"}

// Options controls geometry and windowing of a render.
type Options struct {
	LaneWidth   int // Horizontal distance between adjacent lanes
	LoopSpacing int // Horizontal distance between nested loops
	NodeHeight  int // Diameter of a commit marker
	NodeMargin  int // Vertical gap between markers of adjacent rows
	Margin      int // Padding around the canvas

	// RowStart and RowLimit select the window [RowStart, RowStart+RowLimit)
	// of absolute row numbers. A RowLimit of zero renders every row from
	// RowStart on.
	RowStart int
	RowLimit int

	// HideComplexHistory draws same-lane edges straight through intervening
	// commits instead of routing loops around them.
	HideComplexHistory bool

	// Highlight is the full ID of a commit to emphasize.
	Highlight string

	// HideMessages omits commit subjects to the right of the graph.
	HideMessages bool

	Palette []string
}

func (o Options) withDefaults() Options {
	if o.LaneWidth <= 0 {
		o.LaneWidth = DefaultLaneWidth
	}
	if o.LoopSpacing <= 0 {
		o.LoopSpacing = DefaultLoopSpacing
	}
	if o.NodeHeight <= 0 {
		o.NodeHeight = DefaultNodeHeight
	}
	if o.NodeMargin < 0 {
		o.NodeMargin = 0
	} else if o.NodeMargin == 0 {
		o.NodeMargin = DefaultNodeMargin
	}
	if o.Margin <= 0 {
		o.Margin = DefaultMargin
	}
	if o.RowStart < 0 {
		o.RowStart = 0
	}
	if o.RowLimit < 0 {
		o.RowLimit = 0
	}
	if len(o.Palette) == 0 {
		o.Palette = DefaultPalette
	}
	return o
}

func (o Options) pitch() float64 {
	return float64(o.NodeHeight + o.NodeMargin)
}

func (o Options) color(lane int) string {
	if lane < 0 {
		lane = -lane
	}
	return o.Palette[lane%len(o.Palette)]
}
