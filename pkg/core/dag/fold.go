package dag

// lane is a column together with the color of the lineage drawn in it.
type lane struct {
	col   int
	color int
}

// laneFold assigns columns in a single pass over commits in row order.
//
// reserved maps the commit a lane is waiting for to that lane. A column is
// active exactly while some commit is reserved on it, so owner is the inverse
// of reserved.
type laneFold struct {
	reserved  map[string]lane
	owner     map[int]string
	nextColor int
}

func newLaneFold() *laneFold {
	return &laneFold{
		reserved: make(map[string]lane),
		owner:    make(map[int]string),
	}
}

// pin reserves col for id before the fold reaches it.
func (f *laneFold) pin(id string, col int) {
	f.reserved[id] = lane{col: col, color: f.nextColor}
	f.owner[col] = id
	f.nextColor++
}

// place assigns id its lane. A reserved commit takes the column waiting for
// it; anything else starts a new lane in the lowest inactive column. When
// continues is set the lane is handed to parent, unless another lane already
// waits for parent, in which case the two lanes converge on the earlier one
// and this column is retired.
func (f *laneFold) place(id, parent string, continues bool) lane {
	l, ok := f.reserved[id]
	if ok {
		delete(f.reserved, id)
		delete(f.owner, l.col)
	} else {
		l = lane{col: f.free(), color: f.nextColor}
		f.nextColor++
	}
	if continues {
		if _, taken := f.reserved[parent]; !taken {
			f.reserved[parent] = l
			f.owner[l.col] = parent
		}
	}
	return l
}

// awaits reports whether some lane is waiting for id.
func (f *laneFold) awaits(id string) bool {
	_, ok := f.reserved[id]
	return ok
}

// laneParent picks the parent that inherits c's lane. That is the first
// parent, unless the first parent is a local branch tip and a later parent,
// which is neither a tip nor awaited by another lane, can take the lane
// instead. The skipped tip then starts its own lane. placeable reports
// whether the fold may still reach a parent; f may be nil.
func (g *Graph) laneParent(c Commit, placeable func(string) bool, f *laneFold) string {
	first := c.FirstParent()
	if g.tips[first] == 0 {
		return first
	}
	for _, p := range c.Parents[1:] {
		if p == first || g.tips[p] > 0 || !placeable(p) {
			continue
		}
		if f != nil && f.awaits(p) {
			continue
		}
		return p
	}
	return first
}

func (f *laneFold) free() int {
	for c := 0; ; c++ {
		if _, busy := f.owner[c]; !busy {
			return c
		}
	}
}
