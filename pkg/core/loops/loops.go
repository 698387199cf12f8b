// Package loops places side-bulging edges that route around occupied rows.
//
// When a parent and child share a column but other commits sit between them,
// a straight line would run through those commits. The edge is drawn as a
// loop that swings out to the left or right of the column instead. A [Placer]
// hands out nesting depths so that loops covering overlapping row spans on the
// same side of the same column never coincide.
//
// Depth reservations are stored as one bit set per (column, side, row): bit
// d is set when a loop at depth d passes that row. Finding a free depth is a
// bit scan over the union of the sets in the requested span, see
// [MaxOccupied]. Depth is unbounded.
package loops

import (
	"math/bits"

	"github.com/bits-and-blooms/bitset"
)

// Side selects which side of a column a loop bulges towards.
type Side int

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	if s == Right {
		return "right"
	}
	return "left"
}

// None is returned by [MaxOccupied] for an empty mask.
const None = -1

// MaxOccupied returns the zero-based index of the highest set bit in mask,
// or [None] when no bit is set.
func MaxOccupied(mask uint64) int {
	return bits.Len64(mask) - 1
}

type slot struct {
	col  int
	side Side
}

// Placer tracks loop depth reservations for a single render.
// The zero value is not usable; call [New].
type Placer struct {
	masks  map[slot]map[int]*bitset.BitSet
	widest map[slot]int
}

// New returns an empty placer.
func New() *Placer {
	return &Placer{
		masks:  make(map[slot]map[int]*bitset.BitSet),
		widest: make(map[slot]int),
	}
}

// FindLeastDepth returns the shallowest depth at which a loop spanning rows
// [min(rowA,rowB), max(rowA,rowB)] fits on either side of column. Left wins
// when both sides offer the same depth.
func (p *Placer) FindLeastDepth(column, rowA, rowB int) (Side, int) {
	left := p.freeDepth(slot{column, Left}, rowA, rowB)
	right := p.freeDepth(slot{column, Right}, rowA, rowB)
	if right < left {
		return Right, right
	}
	return Left, left
}

func (p *Placer) freeDepth(s slot, rowA, rowB int) int {
	lo, hi := min(rowA, rowB), max(rowA, rowB)
	rows := p.masks[s]
	span := bitset.New(0)
	for r := lo; r <= hi; r++ {
		if b, ok := rows[r]; ok {
			span.InPlaceUnion(b)
		}
	}
	return highest(span) + 1
}

// highest returns the index of the highest set bit in b, or [None].
func highest(b *bitset.BitSet) int {
	words := b.Bytes()
	for i := len(words) - 1; i >= 0; i-- {
		if words[i] != 0 {
			return i*64 + MaxOccupied(words[i])
		}
	}
	return None
}

// SetDepth reserves depth on side of column for every row in the span.
func (p *Placer) SetDepth(column, rowA, rowB int, side Side, depth int) {
	if depth < 0 {
		return
	}
	s := slot{column, side}
	rows, ok := p.masks[s]
	if !ok {
		rows = make(map[int]*bitset.BitSet)
		p.masks[s] = rows
	}
	lo, hi := min(rowA, rowB), max(rowA, rowB)
	for r := lo; r <= hi; r++ {
		b, ok := rows[r]
		if !ok {
			b = bitset.New(uint(depth + 1))
			rows[r] = b
		}
		b.Set(uint(depth))
	}
	if w, ok := p.widest[s]; !ok || depth > w {
		p.widest[s] = depth
	}
}

// Occupied reports whether depth on side of column is reserved at row.
func (p *Placer) Occupied(column, row int, side Side, depth int) bool {
	if depth < 0 {
		return false
	}
	b, ok := p.masks[slot{column, side}][row]
	return ok && b.Test(uint(depth))
}

// Extent returns the horizontal room loops need on one side of column.
func (p *Placer) Extent(column int, side Side, loopSpacing int) int {
	w, ok := p.widest[slot{column, side}]
	if !ok {
		return 0
	}
	return (w + 1) * loopSpacing
}

// CumulativeWidth returns the x offset of column's baseline. Every column to
// the left contributes its lane width plus the loops bulging out of it on
// both sides, and column itself is pushed right by its own left-side loops.
// Without loops this is column*laneWidth.
func (p *Placer) CumulativeWidth(column, laneWidth, loopSpacing int) int {
	x := 0
	for k := 0; k < column; k++ {
		x += laneWidth + p.Extent(k, Left, loopSpacing) + p.Extent(k, Right, loopSpacing)
	}
	return x + p.Extent(column, Left, loopSpacing)
}
