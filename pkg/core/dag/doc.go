// Package dag lays out a git commit history as a swim-lane grid.
//
// # Overview
//
// Graphical history viewers draw each commit in a row of its own and each
// line of ancestry in a vertical lane (column). This package accumulates
// commits and references into such a grid. It owns column assignment, merge
// detection, prunable marking and the final row ordering; drawing the grid is
// left to the render packages.
//
// # Building
//
// Register references with [Graph.AddReference], then feed commits newest
// first with [Graph.AddCommit]. A commit may only be added once something
// expects it: either a reference points at it or an already added commit
// names it as a parent. Anything else fails with [ErrOrphanCommit]. Adding a
// commit twice is not an error; AddCommit reports it as already seen so the
// caller can stop walking that path.
//
//	g := dag.New()
//	_ = g.AddReference("refs/heads/main", "c2")
//	_, _ = g.AddCommit(dag.NewCommit("c2", []string{"c1"}, "second", "ann", t2), "refs/heads/main", "")
//	_, _ = g.AddCommit(dag.NewCommit("c1", nil, "first", "ann", t1), "refs/heads/main", "")
//	_ = g.DoLayout("refs/heads/main", 0)
//
// # Lanes
//
// Columns come from a single fold over the commits in row order that keeps a
// map from the commit a lane is waiting for to the lane's column:
//
//   - A commit nobody waits for starts a lane in the lowest inactive column.
//   - A lane continues into the commit's first parent unless another lane
//     already waits for that parent. In that case the lanes converge, the
//     earlier lane keeps its column and this one is retired.
//   - Further parents of a merge are only marked as expected. They reserve no
//     column and are either met by an active lane or start a new one.
//
// [Graph.DoLayout] re-runs the fold after fixing the row order. The
// first-parent chain of the primary reference is pinned to column 0.
//
// # Rows
//
// Rows are a discovery counter while building. DoLayout re-sequences them so
// children always precede parents, keeping discovery order as the tie-break,
// and numbers them from a caller supplied offset.
package dag
