package dag

import (
	"slices"

	"github.com/matzehuels/gitlanes/pkg/core/lanes"
)

// DoLayout finalizes the grid once every commit of the view has been added.
//
// Rows are re-sequenced so every child sits above its parents, keeping
// discovery order wherever ancestry allows, and numbered from rowOffset.
// Columns are then recomputed with the lane of primaryRef held in column 0; an empty or unknown primaryRef applies no pinning. Finally
// columns are compacted, lane occupancy is rebuilt and LocalOnly is derived
// from the remote-tracking references.
//
// DoLayout returns ErrHistoryCycle if parent links loop back on themselves.
func (g *Graph) DoLayout(primaryRef string, rowOffset int) error {
	order, err := g.topoOrder()
	if err != nil {
		return err
	}
	rowOffset = max(rowOffset, 0)
	g.cells = order
	for i, c := range g.cells {
		c.Row = rowOffset + i
		g.index[c.ID()] = i
	}

	chain := g.primaryChain(primaryRef)
	f := newLaneFold()
	if len(chain) > 0 {
		f.pin(g.refs[primaryRef].Target, 0)
	}
	for _, c := range g.cells {
		p, onChain := chain[c.ID()]
		if !onChain {
			p = g.laneParent(c.Commit, g.Seen, f)
		}
		_, parentOnChain := chain[p]
		continues := p != "" && g.Seen(p) && (onChain || !parentOnChain)
		l := f.place(c.ID(), p, continues)
		c.Column = l.col
		c.Commit.Color = l.color
	}
	g.fold = f

	g.compact()
	g.occ = lanes.New()
	for _, c := range g.cells {
		g.occ.Set(c.Column, c.Row)
	}
	g.markLocalOnly()
	return nil
}

// topoOrder orders cells children-first. Among cells whose children have all
// been emitted, the one discovered earliest goes next.
func (g *Graph) topoOrder() ([]*Cell, error) {
	n := len(g.cells)
	indeg := make([]int, n)
	var ready []int
	for i, c := range g.cells {
		indeg[i] = len(c.Children)
		if indeg[i] == 0 {
			ready = append(ready, i)
		}
	}

	out := make([]*Cell, 0, n)
	for len(ready) > 0 {
		i := ready[0]
		ready = ready[1:]
		c := g.cells[i]
		out = append(out, c)
		for _, p := range uniqueParents(c.Commit) {
			j, ok := g.index[p]
			if !ok {
				continue
			}
			indeg[j]--
			if indeg[j] == 0 {
				pos, _ := slices.BinarySearch(ready, j)
				ready = slices.Insert(ready, pos, j)
			}
		}
	}
	if len(out) != n {
		return nil, ErrHistoryCycle
	}
	return out, nil
}

// primaryChain follows the lane of the named reference through added
// commits. It maps each commit on the lane to the parent the lane continues
// into, or "" where it ends.
func (g *Graph) primaryChain(name string) map[string]string {
	r, ok := g.refs[name]
	if !ok || name == "" {
		return nil
	}
	chain := make(map[string]string)
	for id := r.Target; id != ""; {
		if _, dup := chain[id]; dup {
			break
		}
		c, ok := g.Cell(id)
		if !ok {
			break
		}
		next := g.laneParent(c.Commit, g.Seen, nil)
		if !g.Seen(next) {
			next = ""
		}
		chain[id] = next
		id = next
	}
	return chain
}

// compact renumbers used columns to 0..n-1, preserving their order.
func (g *Graph) compact() {
	used := make(map[int]bool)
	for _, c := range g.cells {
		used[c.Column] = true
	}
	cols := make([]int, 0, len(used))
	for c := range used {
		cols = append(cols, c)
	}
	slices.Sort(cols)
	remap := make(map[int]int, len(cols))
	for i, c := range cols {
		remap[c] = i
	}
	for _, c := range g.cells {
		c.Column = remap[c.Column]
	}
}

// markLocalOnly flags cells that no remote-tracking reference or remote tide
// can reach.
func (g *Graph) markLocalOnly() {
	var stack []string
	for _, name := range g.refOrder {
		r := g.refs[name]
		if r.Kind == RefRemote {
			stack = append(stack, r.Target)
		}
		if r.Tide != "" {
			stack = append(stack, r.Tide)
		}
	}
	reached := make(map[string]bool)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reached[id] {
			continue
		}
		c, ok := g.Cell(id)
		if !ok {
			continue
		}
		reached[id] = true
		stack = append(stack, c.Commit.Parents...)
	}
	for _, c := range g.cells {
		c.LocalOnly = !reached[c.ID()]
	}
}

func uniqueParents(c Commit) []string {
	if len(c.Parents) < 2 {
		return c.Parents
	}
	out := make([]string, 0, len(c.Parents))
	for _, p := range c.Parents {
		if !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}
