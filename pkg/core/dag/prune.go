package dag

// PruneReference slates the named reference for removal and flags what only
// it reaches as prunable. Unknown names are ignored.
func (g *Graph) PruneReference(name string) {
	r, ok := g.refs[name]
	if !ok {
		return
	}
	if g.slated == nil {
		g.slated = make(map[string]bool)
	}
	g.slated[name] = true
	g.MarkPrunable(r.Target)
}

// MarkPrunable flags the commit as prunable, together with its ancestry,
// stopping at commits that a reference not slated for removal still
// reaches. A commit such a reference reaches is never flagged. Unknown IDs
// are ignored.
func (g *Graph) MarkPrunable(id string) {
	if _, ok := g.Cell(id); !ok {
		return
	}
	live := g.liveSet()
	if live[id] {
		return
	}

	stack := []string{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		c, _ := g.Cell(cur)
		c.Prunable = true
		for _, p := range c.Commit.Parents {
			pc, ok := g.Cell(p)
			if !ok || pc.Prunable || live[p] {
				continue
			}
			stack = append(stack, p)
		}
	}
}

// liveSet returns the commits reachable from references that are not
// slated for removal.
func (g *Graph) liveSet() map[string]bool {
	live := make(map[string]bool)
	var stack []string
	for name, r := range g.refs {
		if g.slated[name] {
			continue
		}
		stack = append(stack, r.Target)
	}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if live[cur] {
			continue
		}
		c, ok := g.Cell(cur)
		if !ok {
			continue
		}
		live[cur] = true
		stack = append(stack, c.Commit.Parents...)
	}
	return live
}
