package geometry

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/matzehuels/gitlanes/pkg/core/dag"
	"github.com/matzehuels/gitlanes/pkg/core/loops"
	"github.com/matzehuels/gitlanes/pkg/core/render/scene"
)

const (
	labelGap     = 8 // Between a label and the graph
	labelPadding = 4 // Inside a branch label pill
	ringGap      = 3 // Between a highlighted marker and its ring
	tideSize     = 4
)

// Element IDs and classes used by the renderer.
const (
	ClassCommit    = "commit"
	ClassMerge     = "merge"
	ClassLocal     = "local"
	ClassPrunable  = "prunable"
	ClassHighlight = "highlight"
	ClassEdge      = "edge"
	ClassLabel     = "branch-label"
	ClassMessage   = "message"
	ClassTide      = "tide"
	ClassPager     = "pager"

	windowClipID = "window"
)

// Render lays out a finished graph as a vector document.
//
// The graph must have been through [dag.Graph.DoLayout]. Only rows inside
// the requested window produce nodes; edges crossing the window edge are
// clipped, and a pager marker reports how many rows lie beyond each edge.
// Render does not modify g.
func Render(g *dag.Graph, opts Options) *scene.Document {
	opts = opts.withDefaults()
	r := &renderer{g: g, opts: opts, placer: loops.New()}
	r.window()
	r.route()
	r.measure()
	return r.document()
}

type renderer struct {
	g      *dag.Graph
	opts   Options
	placer *loops.Placer

	start, end    int // Window of absolute rows, end exclusive
	before, after int // Rows outside the window
	lead          int // Pager rows above the first visible row
	visible       []*dag.Cell
	routes        []edgeRoute
	labelMargin   float64
	graphRight    float64
}

func (r *renderer) window() {
	r.start = r.opts.RowStart
	if r.g.Len() > 0 {
		r.start = max(r.start, r.g.FirstRow())
	}
	r.end = -1
	if r.opts.RowLimit > 0 {
		r.end = r.start + r.opts.RowLimit
	}
	for _, c := range r.g.Cells() {
		switch {
		case c.Row < r.start:
			r.before++
		case r.end >= 0 && c.Row >= r.end:
			r.after++
		default:
			r.visible = append(r.visible, c)
		}
	}
	if r.end < 0 {
		r.end = r.start
		if n := len(r.visible); n > 0 {
			r.end = r.visible[n-1].Row + 1
		}
	}
	if r.before > 0 {
		r.lead = 1
	}
}

// route classifies every edge that touches the window. It runs before any
// coordinate is computed because loops widen the lanes they bulge out of.
func (r *renderer) route() {
	occ := r.g.CellOccupancy()
	for _, e := range r.g.Edges() {
		upper, _ := r.g.Cell(e.Child)
		if upper.Row >= r.end {
			continue
		}
		var lower *dag.Cell
		if !e.Dangling {
			lower, _ = r.g.Cell(e.Parent)
			if lower.Row < r.start {
				continue
			}
		} else if upper.Row < r.start {
			continue
		}
		er := classify(occ, r.placer, upper, lower, r.opts.HideComplexHistory)
		er.edge = e
		r.routes = append(r.routes, er)
	}
}

// measure sizes the label gutter and the graph area.
func (r *renderer) measure() {
	widest := 0
	for _, c := range r.visible {
		if len(c.BranchNames) > 0 {
			widest = max(widest, LabelWidth(branchLabel(c))+2*labelPadding)
		}
	}
	r.labelMargin = float64(r.opts.Margin + r.opts.NodeHeight/2)
	if widest > 0 {
		r.labelMargin += float64(widest + labelGap)
	}
	r.graphRight = r.x(r.g.Columns())
}

// x returns the centre of a lane.
func (r *renderer) x(column int) float64 {
	return float64(r.placer.CumulativeWidth(column, r.opts.LaneWidth, r.opts.LoopSpacing)) + r.labelMargin
}

// y returns the centre of a row. Rows outside the window map outside the
// visible band, which the window clip cuts off.
func (r *renderer) y(row int) float64 {
	return float64(r.opts.Margin) + float64(row-r.start+r.lead)*r.opts.pitch() + float64(r.opts.NodeHeight)/2
}

func (r *renderer) at(c *dag.Cell) point {
	return point{r.x(c.Column), r.y(c.Row)}
}

func (r *renderer) document() *scene.Document {
	pitch := r.opts.pitch()
	top := r.y(r.start) - pitch/2
	bottom := r.y(r.end) - pitch/2

	right := r.graphRight
	edges := scene.Group("edges", ClassEdge+"s")
	edges.ClipPath = windowClipID
	for _, er := range r.routes {
		edges.Add(r.edge(er))
	}

	nodes := scene.Group("nodes", "")
	labels := scene.Group("labels", "")
	messages := scene.Group("messages", "")
	for _, c := range r.visible {
		nodes.Add(r.node(c))
		if len(c.BranchNames) > 0 {
			labels.Add(r.branchLabel(c))
		}
		if !r.opts.HideMessages {
			m := r.message(c)
			messages.Add(m)
			right = max(right, m.X+float64(LabelWidth(html.UnescapeString(m.Text))))
		}
	}
	tides := r.tides()

	pager := scene.Group("pager", ClassPager)
	if r.before > 0 {
		m := r.pagerMarker("earlier", r.start-1, fmt.Sprintf("%d earlier %s", r.before, commits(r.before)))
		pager.Add(m)
		right = max(right, r.captionRight(m))
	}
	last := r.start - 1
	if n := len(r.visible); n > 0 {
		last = r.visible[n-1].Row
	}
	if r.after > 0 {
		last++
		m := r.pagerMarker("later", last, fmt.Sprintf("%d more %s", r.after, commits(r.after)))
		pager.Add(m)
		right = max(right, r.captionRight(m))
	}

	clip := &scene.Element{Kind: scene.KindClipPath, ID: windowClipID}
	clip.Add(&scene.Element{Kind: scene.KindRect, X: 0, Y: top, Width: right + float64(r.opts.Margin), Height: max(bottom-top, 0)})

	root := scene.Group("graph", "gitlanes", clip, edges, nodes, tides, labels, messages, pager)
	height := float64(r.opts.Margin) * 2
	if shown := last - r.start + r.lead + 1; shown > 0 {
		height += float64(shown)*pitch - float64(r.opts.NodeMargin)
	}
	return &scene.Document{
		Width:  right + float64(r.opts.Margin),
		Height: height,
		Root:   root,
		Meta: scene.DocMeta{
			RowStart:   r.start,
			RowEnd:     r.end,
			TotalRows:  r.g.Len(),
			RowsBefore: r.before,
			RowsAfter:  r.after,
		},
	}
}

func (r *renderer) loopOffset(er edgeRoute) float64 {
	off := float64((er.depth + 1) * r.opts.LoopSpacing)
	if er.side == loops.Left {
		return -off
	}
	return off
}

func (r *renderer) edge(er edgeRoute) *scene.Element {
	a := r.at(er.upper)
	var b point
	if er.lower != nil {
		b = r.at(er.lower)
	} else {
		b = point{a.x, a.y + r.opts.pitch()/2}
	}
	var offset float64
	if er.route == RouteLoop {
		offset = r.loopOffset(er)
	}
	// Merged-in history keeps the color of the lane it comes from.
	color := er.upper.Commit.Color
	if er.lower != nil && er.edge.Index > 0 {
		color = er.lower.Commit.Color
	}
	el := &scene.Element{
		Kind:        scene.KindPath,
		ID:          "edge-" + er.edge.Child + "-" + strconv.Itoa(er.edge.Index),
		Class:       ClassEdge + " " + er.route.String(),
		D:           path(er.route, a, b, r.opts.pitch(), offset),
		Stroke:      r.opts.color(color),
		StrokeWidth: 2,
		Data: map[string]string{
			"child":  er.edge.Child,
			"parent": er.edge.Parent,
			"route":  er.route.String(),
		},
	}
	if er.route == RouteLoop {
		el.Data["side"] = er.side.String()
		el.Data["depth"] = strconv.Itoa(er.depth)
	}
	if er.route == RouteStub {
		el.Dash = "2 2"
	}
	return el
}

func (r *renderer) node(c *dag.Cell) *scene.Element {
	p := r.at(c)
	h := float64(r.opts.NodeHeight)
	color := r.opts.color(c.Commit.Color)

	classes := []string{ClassCommit}
	var shape *scene.Element
	switch c.Kind() {
	case dag.NodeKindMerge:
		classes = append(classes, ClassMerge)
		shape = &scene.Element{Kind: scene.KindCircle, X: p.x, Y: p.y, Radius: h / 2}
	default:
		shape = &scene.Element{Kind: scene.KindRect, X: p.x - h/2, Y: p.y - h/2, Width: h, Height: h, Radius: h / 4}
	}
	shape.Stroke = color
	shape.StrokeWidth = 2
	if c.LocalOnly {
		classes = append(classes, ClassLocal)
		shape.Fill = "#ffffff"
	} else {
		shape.Fill = color
	}

	g := &scene.Element{
		Kind: scene.KindGroup,
		ID:   "commit-" + c.ID(),
		Data: map[string]string{
			"id":     c.ID(),
			"row":    strconv.Itoa(c.Row),
			"column": strconv.Itoa(c.Column),
			"author": c.Commit.Author,
		},
	}
	if c.Prunable {
		classes = append(classes, ClassPrunable)
		g.Opacity = 0.4
	}
	g.Add(shape)
	if r.opts.Highlight != "" && c.ID() == r.opts.Highlight {
		classes = append(classes, ClassHighlight)
		g.Add(&scene.Element{
			Kind:        scene.KindCircle,
			Class:       ClassHighlight,
			X:           p.x,
			Y:           p.y,
			Radius:      h/2 + ringGap,
			Fill:        "none",
			Stroke:      color,
			StrokeWidth: 1,
		})
	}
	g.Class = strings.Join(classes, " ")
	return g
}

func branchLabel(c *dag.Cell) string {
	return strings.Join(c.BranchNames, ", ")
}

func (r *renderer) branchLabel(c *dag.Cell) *scene.Element {
	y := r.y(c.Row)
	text := branchLabel(c)
	w := float64(LabelWidth(text) + 2*labelPadding)
	h := float64(r.opts.NodeHeight) + 2
	right := r.labelMargin - float64(r.opts.NodeHeight)/2 - labelGap
	color := r.opts.color(c.Commit.Color)
	return &scene.Element{
		Kind:  scene.KindGroup,
		Class: ClassLabel,
		Data:  map[string]string{"id": c.ID()},
		Children: []*scene.Element{
			{Kind: scene.KindRect, X: right - w, Y: y - h/2, Width: w, Height: h, Radius: h / 2, Fill: color},
			{Kind: scene.KindText, X: right - labelPadding, Y: y, Anchor: "end", Fill: "#ffffff", Text: html.EscapeString(text)},
		},
	}
}

func (r *renderer) message(c *dag.Cell) *scene.Element {
	return &scene.Element{
		Kind:  scene.KindText,
		Class: ClassMessage,
		X:     r.graphRight,
		Y:     r.y(c.Row),
		Text:  c.Commit.Subject(),
		Data:  map[string]string{"id": c.ID()},
	}
}

// tides marks commits that a tracked reference's remote side points at.
func (r *renderer) tides() *scene.Element {
	g := scene.Group("tides", "")
	for _, ref := range r.g.Refs() {
		if ref.Tide == "" {
			continue
		}
		c, ok := r.g.Cell(ref.Tide)
		if !ok || c.Row < r.start || c.Row >= r.end {
			continue
		}
		p := r.at(c)
		tip := p.x - float64(r.opts.NodeHeight)/2 - 1
		var pb pathBuilder
		pb.move(point{tip, p.y})
		pb.line(point{tip - tideSize, p.y - tideSize})
		pb.line(point{tip - tideSize, p.y + tideSize})
		pb.WriteString(" Z")
		g.Add(&scene.Element{
			Kind:  scene.KindPath,
			Class: ClassTide,
			D:     pb.String(),
			Fill:  r.opts.color(c.Commit.Color),
			Data:  map[string]string{"ref": ref.Short(), "id": c.ID()},
		})
	}
	return g
}

// pagerMarker draws a paging node in lane 0 at row, which lies just outside
// the window, with a caption naming the skipped rows.
func (r *renderer) pagerMarker(id string, row int, caption string) *scene.Element {
	x := r.x(0)
	y := r.y(row)
	rad := float64(r.opts.NodeHeight) / 4
	g := &scene.Element{
		Kind:  scene.KindGroup,
		ID:    "pager-" + id,
		Class: ClassPager + " " + id,
		Data:  map[string]string{"direction": id},
	}
	for _, dx := range []float64{-2 * rad, 0, 2 * rad} {
		g.Add(&scene.Element{Kind: scene.KindCircle, X: x + dx*1.5, Y: y, Radius: rad / 2, Fill: "#999999"})
	}
	g.Add(&scene.Element{Kind: scene.KindText, X: r.graphRight, Y: y, Fill: "#999999", Text: html.EscapeString(caption)})
	return g
}

func (r *renderer) captionRight(marker *scene.Element) float64 {
	t := marker.Children[len(marker.Children)-1]
	return t.X + float64(LabelWidth(html.UnescapeString(t.Text)))
}

func commits(n int) string {
	if n == 1 {
		return "commit"
	}
	return "commits"
}
