package dag

import (
	"errors"
	"fmt"
	"slices"

	"github.com/matzehuels/gitlanes/pkg/core/lanes"
)

var (
	// ErrInvalidCommitID is returned by [Graph.AddCommit] and
	// [Graph.AddReference] when the commit ID is empty.
	ErrInvalidCommitID = errors.New("commit ID must not be empty")

	// ErrOrphanCommit is returned by [Graph.AddCommit] when the commit is
	// neither the target of a reference nor a parent of an added commit.
	// The graph never invents missing ancestry.
	ErrOrphanCommit = errors.New("orphan commit")

	// ErrHistoryCycle is returned by [Graph.DoLayout] when parent links
	// form a cycle. Real repositories cannot produce this; fixtures can.
	ErrHistoryCycle = errors.New("commit history contains a cycle")

	// ErrUnknownReference is returned by [Graph.Target] for names that were
	// never registered.
	ErrUnknownReference = errors.New("unknown reference")
)

// NodeKind selects how a cell is drawn.
type NodeKind int

const (
	// NodeKindCommit is an ordinary commit with at most one parent.
	NodeKindCommit NodeKind = iota
	// NodeKindMerge is a commit with two or more parents.
	NodeKindMerge
)

// Cell is a commit placed on the layout grid.
//
// Children holds the IDs of commits that list this commit as a parent; the
// IDs resolve through [Graph.Cell]. Cells never own pointers to each other.
type Cell struct {
	Commit      Commit
	Row         int      // Unique, increasing in discovery order until DoLayout
	Column      int      // Lane index, shared by all cells of one lane
	Children    []string // IDs of linked child commits
	BranchNames []string // Short names of references pointing here
	Source      string   // Reference whose traversal reached this commit first
	LocalOnly   bool     // No remote-tracking ref reaches this commit (set by DoLayout)
	Prunable    bool     // Only reachable through refs slated for removal
}

// ID returns the commit ID.
func (c *Cell) ID() string { return c.Commit.ID }

// IsMerge reports whether the commit has more than one parent.
func (c *Cell) IsMerge() bool { return c.Commit.IsMerge() }

// Kind returns how the cell should be drawn.
func (c *Cell) Kind() NodeKind {
	if c.IsMerge() {
		return NodeKindMerge
	}
	return NodeKindCommit
}

// Graph accumulates commits and references into a grid of cells.
//
// Commits are added newest first by a traversal driver. Each AddCommit
// assigns the next row and a provisional column; DoLayout then re-sequences
// rows and settles columns once the whole view is known.
//
// The zero value is not usable; call [New]. A Graph is built and rendered by
// a single goroutine and then discarded.
type Graph struct {
	cells    []*Cell
	index    map[string]int      // commit ID -> position in cells
	waiting  map[string][]string // parent ID -> children added before it
	expected map[string]bool     // IDs a later AddCommit may register
	refs     map[string]*Ref
	refOrder []string
	tips     map[string]int  // commit ID -> local branches pointing at it
	slated   map[string]bool // references slated for removal
	occ      *lanes.Occupancy
	fold     *laneFold
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		index:    make(map[string]int),
		waiting:  make(map[string][]string),
		expected: make(map[string]bool),
		refs:     make(map[string]*Ref),
		tips:     make(map[string]int),
		occ:      lanes.New(),
		fold:     newLaneFold(),
	}
}

// AddReference records that name points at commitID. It does not add the
// commit, but makes it a valid traversal root. Registering the same name
// again moves the reference.
func (g *Graph) AddReference(name, commitID string) error {
	if commitID == "" {
		return fmt.Errorf("reference %s: %w", name, ErrInvalidCommitID)
	}
	if r, ok := g.refs[name]; ok {
		if r.Target == commitID {
			return nil
		}
		if c, ok := g.Cell(r.Target); ok {
			c.BranchNames = slices.DeleteFunc(c.BranchNames, func(s string) bool { return s == r.Short() })
		}
		g.untip(r)
		r.Target = commitID
		g.tip(r)
	} else {
		r := &Ref{Name: name, Target: commitID, Kind: KindOf(name)}
		g.refs[name] = r
		g.refOrder = append(g.refOrder, name)
		g.tip(r)
	}
	g.expected[commitID] = true
	if c, ok := g.Cell(commitID); ok {
		addBranchName(c, ShortName(name))
	}
	return nil
}

// AddCommit registers commit as reached while tracing sourceRef. remoteTide,
// when non-empty, records the last known remote-side commit of sourceRef.
//
// It returns true when the commit was already registered; the caller should
// stop walking that path since its ancestry is already represented. It fails
// with ErrOrphanCommit when no reference or previously added commit expects
// the commit.
func (g *Graph) AddCommit(commit Commit, sourceRef, remoteTide string) (bool, error) {
	if commit.ID == "" {
		return false, ErrInvalidCommitID
	}
	if _, ok := g.index[commit.ID]; ok {
		return true, nil
	}
	if !g.expected[commit.ID] {
		return false, fmt.Errorf("%w: %s", ErrOrphanCommit, commit.ID)
	}

	unplaced := func(id string) bool { return !g.Seen(id) }
	p := g.laneParent(commit, unplaced, g.fold)
	ln := g.fold.place(commit.ID, p, p != "" && unplaced(p))

	commit.Color = ln.color
	cell := &Cell{
		Commit: commit,
		Row:    len(g.cells),
		Column: ln.col,
		Source: sourceRef,
	}
	g.index[commit.ID] = len(g.cells)
	g.cells = append(g.cells, cell)
	g.occ.Set(cell.Column, cell.Row)

	if kids, ok := g.waiting[commit.ID]; ok {
		cell.Children = kids
		delete(g.waiting, commit.ID)
	}
	for _, p := range commit.Parents {
		g.expected[p] = true
		if pc, ok := g.Cell(p); ok {
			linkChild(pc, commit.ID)
		} else if !slices.Contains(g.waiting[p], commit.ID) {
			g.waiting[p] = append(g.waiting[p], commit.ID)
		}
	}

	for _, name := range g.refOrder {
		if r := g.refs[name]; r.Target == commit.ID {
			addBranchName(cell, r.Short())
		}
	}
	if sourceRef != "" && remoteTide != "" {
		if r, ok := g.refs[sourceRef]; ok {
			r.Tide = remoteTide
		}
	}
	return false, nil
}

// tip counts r as a lane root when it is a local branch or a detached HEAD.
func (g *Graph) tip(r *Ref) {
	if r.Kind == RefLocal || r.Kind == RefHead {
		g.tips[r.Target]++
	}
}

func (g *Graph) untip(r *Ref) {
	if r.Kind != RefLocal && r.Kind != RefHead {
		return
	}
	if g.tips[r.Target]--; g.tips[r.Target] <= 0 {
		delete(g.tips, r.Target)
	}
}

// Seen reports whether the commit has been added.
func (g *Graph) Seen(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Expected reports whether id may be added without being an orphan.
func (g *Graph) Expected(id string) bool { return g.expected[id] }

// Cell returns the cell for a commit ID.
func (g *Graph) Cell(id string) (*Cell, bool) {
	i, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return g.cells[i], true
}

// Cells returns all cells in ascending row order.
func (g *Graph) Cells() []*Cell {
	return slices.Clone(g.cells)
}

// Len returns the number of cells.
func (g *Graph) Len() int { return len(g.cells) }

// CellOccupancy returns the lane occupancy of the current grid.
func (g *Graph) CellOccupancy() *lanes.Occupancy { return g.occ }

// Refs returns the registered references in registration order.
func (g *Graph) Refs() []Ref {
	out := make([]Ref, 0, len(g.refOrder))
	for _, name := range g.refOrder {
		out = append(out, *g.refs[name])
	}
	return out
}

// Ref returns the named reference.
func (g *Graph) Ref(name string) (Ref, bool) {
	r, ok := g.refs[name]
	if !ok {
		return Ref{}, false
	}
	return *r, true
}

// Target returns the commit a reference points at. Short names are accepted
// when they identify exactly one reference.
func (g *Graph) Target(name string) (string, error) {
	if r, ok := g.refs[name]; ok {
		return r.Target, nil
	}
	target := ""
	for _, n := range g.refOrder {
		if ShortName(n) == name {
			if target != "" {
				return "", fmt.Errorf("%w: %s is ambiguous", ErrUnknownReference, name)
			}
			target = g.refs[n].Target
		}
	}
	if target == "" {
		return "", fmt.Errorf("%w: %s", ErrUnknownReference, name)
	}
	return target, nil
}

// Edge connects a commit to one of its parents.
type Edge struct {
	Child  string
	Parent string
	// Index is the position of Parent in the child's parent list; 0 is the
	// first parent.
	Index int
	// Dangling is set when the parent was never added, for example because
	// traversal stopped early.
	Dangling bool
}

// Edges returns every parent link, ordered by child row and parent index.
func (g *Graph) Edges() []Edge {
	var out []Edge
	for _, c := range g.cells {
		for i, p := range c.Commit.Parents {
			out = append(out, Edge{Child: c.Commit.ID, Parent: p, Index: i, Dangling: !g.Seen(p)})
		}
	}
	return out
}

// Columns returns the number of lanes in use.
func (g *Graph) Columns() int { return g.occ.Width() }

// FirstRow returns the row of the first cell, or 0 for an empty graph.
func (g *Graph) FirstRow() int {
	if len(g.cells) == 0 {
		return 0
	}
	return g.cells[0].Row
}

// Resolve returns the ID of the single cell whose ID starts with prefix.
func (g *Graph) Resolve(prefix string) (string, bool) {
	if prefix == "" {
		return "", false
	}
	if _, ok := g.index[prefix]; ok {
		return prefix, true
	}
	match := ""
	for _, c := range g.cells {
		if len(c.Commit.ID) >= len(prefix) && c.Commit.ID[:len(prefix)] == prefix {
			if match != "" {
				return "", false
			}
			match = c.Commit.ID
		}
	}
	return match, match != ""
}

func linkChild(parent *Cell, child string) {
	if !slices.Contains(parent.Children, child) {
		parent.Children = append(parent.Children, child)
	}
}

func addBranchName(c *Cell, name string) {
	if !slices.Contains(c.BranchNames, name) {
		c.BranchNames = append(c.BranchNames, name)
	}
}
