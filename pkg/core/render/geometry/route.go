package geometry

import (
	"strconv"
	"strings"

	"github.com/matzehuels/gitlanes/pkg/core/dag"
	"github.com/matzehuels/gitlanes/pkg/core/lanes"
	"github.com/matzehuels/gitlanes/pkg/core/loops"
)

// Route is the shape chosen for an edge.
type Route int

const (
	// RouteStraight is a single vertical segment within one lane.
	RouteStraight Route = iota
	// RouteBend leaves the upper commit diagonally and drops into the lower
	// commit's lane. Used when lanes are further apart than rows.
	RouteBend
	// RouteBottomCrook runs down the upper commit's lane and turns just
	// above the lower commit.
	RouteBottomCrook
	// RouteTopCrook turns just below the upper commit and runs down the
	// lower commit's lane.
	RouteTopCrook
	// RouteLoop bulges sideways around commits sitting between the two ends.
	RouteLoop
	// RouteStub is a short dangling segment towards a parent that was never
	// added.
	RouteStub
)

var routeNames = [...]string{"straight", "bend", "bottom-crook", "top-crook", "loop", "stub"}

func (r Route) String() string {
	if int(r) < len(routeNames) {
		return routeNames[r]
	}
	return "Route(" + strconv.Itoa(int(r)) + ")"
}

// edgeRoute is an edge between an upper cell (the child commit) and a lower
// cell (its parent commit), with the shape chosen for it.
type edgeRoute struct {
	edge  dag.Edge
	upper *dag.Cell
	lower *dag.Cell // nil for stubs
	route Route
	side  loops.Side
	depth int
}

// classify picks the route for an edge and reserves loop depth when needed.
func classify(occ *lanes.Occupancy, p *loops.Placer, upper, lower *dag.Cell, hideComplex bool) edgeRoute {
	r := edgeRoute{upper: upper, lower: lower, depth: loops.None}
	if lower == nil {
		r.route = RouteStub
		return r
	}
	if upper.Column == lower.Column {
		if hideComplex || !occ.Between(upper.Column, upper.Row, lower.Row) {
			r.route = RouteStraight
			return r
		}
		r.side, r.depth = p.FindLeastDepth(upper.Column, upper.Row, lower.Row)
		p.SetDepth(upper.Column, upper.Row, lower.Row, r.side, r.depth)
		r.route = RouteLoop
		return r
	}

	dx := abs(upper.Column - lower.Column)
	dy := abs(lower.Row - upper.Row)
	// A crook's vertical run lies in the column it is checked against: the
	// bottom crook drops down the upper end's column, the top crook rises
	// up the lower end's.
	switch {
	case dx >= dy:
		r.route = RouteBend
	case !occ.Between(upper.Column, upper.Row, lower.Row):
		r.route = RouteBottomCrook
	case !occ.Between(lower.Column, upper.Row, lower.Row):
		r.route = RouteTopCrook
	default:
		r.route = RouteBend
	}
	return r
}

type point struct{ x, y float64 }

// path renders the route between a and b, where a is the upper end.
// For loops, offset is the signed horizontal bulge.
func path(route Route, a, b point, pitch, offset float64) string {
	var pb pathBuilder
	pb.move(a)
	switch route {
	case RouteStraight, RouteStub:
		pb.line(b)
	case RouteBend:
		turn := point{b.x, a.y + min(pitch, b.y-a.y)}
		pb.quad(point{b.x, a.y}, turn)
		pb.line(b)
	case RouteBottomCrook:
		pb.line(point{a.x, b.y - pitch})
		pb.line(b)
	case RouteTopCrook:
		pb.line(point{b.x, a.y + pitch})
		pb.line(b)
	case RouteLoop:
		h := min(pitch/2, (b.y-a.y)/2)
		x := a.x + offset
		pb.quad(point{x, a.y}, point{x, a.y + h})
		pb.line(point{x, b.y - h})
		pb.quad(point{x, b.y}, b)
	}
	return pb.String()
}

type pathBuilder struct{ strings.Builder }

func (pb *pathBuilder) cmd(c byte, pts ...point) {
	if pb.Len() > 0 {
		pb.WriteByte(' ')
	}
	pb.WriteByte(c)
	for _, p := range pts {
		pb.WriteByte(' ')
		pb.WriteString(num(p.x))
		pb.WriteByte(' ')
		pb.WriteString(num(p.y))
	}
}

func (pb *pathBuilder) move(p point)       { pb.cmd('M', p) }
func (pb *pathBuilder) line(p point)       { pb.cmd('L', p) }
func (pb *pathBuilder) quad(ctrl, p point) { pb.cmd('Q', ctrl, p) }

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
