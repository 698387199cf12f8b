// Package lanes records which grid cells of a commit graph are occupied.
//
// An [Occupancy] keeps one bit vector per column, indexed by row. It answers
// the single question edge routing cares about: is anything drawn in column C
// strictly between rows A and B? Columns that were never touched report no
// occupancy, so callers never have to special-case missing data.
package lanes

import (
	"slices"

	"github.com/bits-and-blooms/bitset"
)

// Occupancy maps a column index to the set of rows occupied in that column.
//
// The zero value is ready to use. Occupancy is not safe for concurrent
// mutation; each render builds its own.
type Occupancy struct {
	cols map[int]*bitset.BitSet
	rows int
}

// New returns an empty occupancy store.
func New() *Occupancy {
	return &Occupancy{cols: make(map[int]*bitset.BitSet)}
}

// Set marks (col, row) as occupied. Negative coordinates are ignored.
func (o *Occupancy) Set(col, row int) {
	if col < 0 || row < 0 {
		return
	}
	if o.cols == nil {
		o.cols = make(map[int]*bitset.BitSet)
	}
	b, ok := o.cols[col]
	if !ok {
		b = bitset.New(uint(row + 1))
		o.cols[col] = b
	}
	b.Set(uint(row))
	if row+1 > o.rows {
		o.rows = row + 1
	}
}

// Test reports whether (col, row) is occupied.
func (o *Occupancy) Test(col, row int) bool {
	if col < 0 || row < 0 {
		return false
	}
	b, ok := o.cols[col]
	if !ok {
		return false
	}
	return b.Test(uint(row))
}

// Between reports whether any row strictly between rowA and rowB is occupied
// in col. The order of rowA and rowB does not matter.
func (o *Occupancy) Between(col, rowA, rowB int) bool {
	b, ok := o.cols[col]
	if !ok {
		return false
	}
	lo, hi := min(rowA, rowB), max(rowA, rowB)
	if lo < -1 {
		lo = -1
	}
	next, found := b.NextSet(uint(lo + 1))
	return found && int(next) < hi
}

// Count returns the number of occupied rows in col.
func (o *Occupancy) Count(col int) int {
	b, ok := o.cols[col]
	if !ok {
		return 0
	}
	return int(b.Count())
}

// Columns returns the occupied column indices in ascending order.
func (o *Occupancy) Columns() []int {
	cols := make([]int, 0, len(o.cols))
	for c, b := range o.cols {
		if b.Any() {
			cols = append(cols, c)
		}
	}
	slices.Sort(cols)
	return cols
}

// Rows returns one past the highest row ever marked.
func (o *Occupancy) Rows() int { return o.rows }

// Width returns one past the highest occupied column, or 0 when empty.
func (o *Occupancy) Width() int {
	cols := o.Columns()
	if len(cols) == 0 {
		return 0
	}
	return cols[len(cols)-1] + 1
}
