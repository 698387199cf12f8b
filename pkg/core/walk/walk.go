// Package walk feeds a repository's history into a commit graph.
//
// BuildGraph decides which references to trace and in which order, then
// traces them one at a time, surfacing each reference's commits newest first
// and handing each one to [dag.Graph.AddCommit]. Whenever the graph reports a
// commit as already seen, the walk stops following that path.
//
// Reference priority, highest first:
//
//  1. the primary branch, when Options.AlwaysShowPrimaryFirst is set
//  2. the checkout position
//  3. other local branches, most recent tip first
//  4. remote-tracking branches, most recent tip first (skipped by OnlyLocal)
//
// Tags only contribute labels; they are never traced. A reference is walked
// to completion before the next one starts, so the checkout appears at the
// top even when other branches hold newer commits.
package walk

import (
	"cmp"
	"container/heap"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/matzehuels/gitlanes/pkg/core/dag"
)

var (
	// ErrRepository wraps every failure reported by a [Repository].
	ErrRepository = errors.New("repository error")

	// ErrCommitNotFound is reported by repositories for unknown commit IDs.
	// A missing parent, as in shallow clones and truncated snapshots, ends
	// that path of the walk; a missing reference target fails the build.
	ErrCommitNotFound = errors.New("commit not found")
)

// DefaultPrimaryBranches are tried in order when no primary branch is configured.
var DefaultPrimaryBranches = []string{"refs/heads/main", "refs/heads/master"}

// Options controls which references are traced.
type Options struct {
	// OnlyLocal skips remote-tracking branches entirely.
	OnlyLocal bool
	// AlwaysShowPrimaryFirst traces the primary branch before the checkout.
	AlwaysShowPrimaryFirst bool
	// PrimaryBranch names the primary branch. Bare names are taken as local
	// branches. Empty means the first of DefaultPrimaryBranches that exists.
	PrimaryBranch string
	// MaxCommits stops the walk after this many commits. Zero means no limit.
	MaxCommits int
}

// CommitGraph is a built graph together with the references that shaped it.
type CommitGraph struct {
	*dag.Graph

	// Primary is the full name of the primary branch, or "" if none exists.
	Primary string
	// Head is the full name of the checkout position.
	Head string
	// Truncated is set when MaxCommits stopped the walk early.
	Truncated bool
}

// Layout finalizes the graph with the primary branch pinned to column 0.
func (cg *CommitGraph) Layout(rowOffset int) error {
	return cg.DoLayout(cg.Primary, rowOffset)
}

// traced is a reference selected for traversal.
type traced struct {
	name   string
	target string
	tide   string
}

// BuildGraph reads refs from repo and builds a commit graph. Repository
// failures are wrapped with ErrRepository and reported before any commit is
// added. An orphan commit aborts the build with dag.ErrOrphanCommit.
func BuildGraph(ctx context.Context, repo Repository, opts Options) (*CommitGraph, error) {
	head, err := repo.Head(ctx)
	if err != nil {
		return nil, repoErr("read head", err)
	}
	branches, err := repo.Branches(ctx)
	if err != nil {
		return nil, repoErr("list branches", err)
	}
	tags, err := repo.Tags(ctx)
	if err != nil {
		return nil, repoErr("list tags", err)
	}

	w := &walker{
		ctx:     ctx,
		repo:    repo,
		g:       dag.New(),
		records: make(map[string]Record),
		max:     opts.MaxCommits,
	}

	primary := PrimaryRef(branches, opts.PrimaryBranch)
	refs, err := w.order(head, branches, primary, opts)
	if err != nil {
		return nil, err
	}

	for _, r := range refs {
		if err := w.g.AddReference(r.name, r.target); err != nil {
			return nil, err
		}
	}
	for _, t := range tags {
		if t.Target == "" {
			continue
		}
		if err := w.g.AddReference(t.Name, t.Target); err != nil {
			return nil, err
		}
	}

	for _, r := range refs {
		if err := w.run(r); err != nil {
			return nil, err
		}
	}

	for _, b := range branches {
		if b.Prunable {
			w.g.PruneReference(b.Name)
		}
	}

	return &CommitGraph{
		Graph:     w.g,
		Primary:   primary,
		Head:      head.Name,
		Truncated: w.truncated,
	}, nil
}

// PrimaryRef resolves the primary branch among branches. name may be a full
// reference name or a bare local branch name.
func PrimaryRef(branches []Branch, name string) string {
	has := func(full string) bool {
		return slices.ContainsFunc(branches, func(b Branch) bool { return b.Name == full })
	}
	if name != "" {
		full := name
		if !strings.HasPrefix(full, "refs/") {
			full = "refs/heads/" + full
		}
		if has(full) {
			return full
		}
		return ""
	}
	for _, candidate := range DefaultPrimaryBranches {
		if has(candidate) {
			return candidate
		}
	}
	return ""
}

type walker struct {
	ctx       context.Context
	repo      Repository
	g         *dag.Graph
	records   map[string]Record
	max       int
	seq       int
	truncated bool
}

func (w *walker) record(id string) (Record, error) {
	if r, ok := w.records[id]; ok {
		return r, nil
	}
	r, err := w.repo.Commit(w.ctx, id)
	if err != nil {
		return Record{}, repoErr("read commit "+id, err)
	}
	w.records[id] = r
	return r, nil
}

// order returns the references to trace, highest priority first.
func (w *walker) order(head Head, branches []Branch, primary string, opts Options) ([]traced, error) {
	byName := make(map[string]Branch, len(branches))
	for _, b := range branches {
		byName[b.Name] = b
	}
	tide := func(b Branch) string {
		if up, ok := byName[b.Upstream]; ok {
			return up.Target
		}
		return ""
	}

	var out []traced
	added := make(map[string]bool)
	push := func(name, target, tide string) {
		if added[name] || target == "" {
			return
		}
		added[name] = true
		out = append(out, traced{name: name, target: target, tide: tide})
	}

	if opts.AlwaysShowPrimaryFirst && primary != "" {
		b := byName[primary]
		push(b.Name, b.Target, tide(b))
	}
	if b, ok := byName[head.Name]; ok {
		push(b.Name, b.Target, tide(b))
	} else if head.Target != "" {
		push("HEAD", head.Target, "")
	}

	var locals, remotes []Branch
	for _, b := range branches {
		switch dag.KindOf(b.Name) {
		case dag.RefRemote:
			if !opts.OnlyLocal {
				remotes = append(remotes, b)
			}
		case dag.RefLocal:
			locals = append(locals, b)
		}
	}
	for _, group := range [][]Branch{locals, remotes} {
		if err := w.sortByTipTime(group); err != nil {
			return nil, err
		}
		for _, b := range group {
			push(b.Name, b.Target, tide(b))
		}
	}
	return out, nil
}

func (w *walker) sortByTipTime(bs []Branch) error {
	for _, b := range bs {
		if _, err := w.record(b.Target); err != nil {
			return err
		}
	}
	slices.SortStableFunc(bs, func(a, b Branch) int {
		ta, tb := w.records[a.Target].Time, w.records[b.Target].Time
		if c := tb.Compare(ta); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return nil
}

// run walks ref newest commit first until every path meets an already seen
// commit or the commit limit is reached.
func (w *walker) run(ref traced) error {
	q := &queue{}
	if err := w.enqueue(q, ref.target, ref); err != nil {
		return err
	}
	for q.Len() > 0 {
		if w.max > 0 && w.g.Len() >= w.max {
			w.truncated = true
			return nil
		}
		if err := w.ctx.Err(); err != nil {
			return err
		}
		it := heap.Pop(q).(item)
		rec := w.records[it.id]
		commit := dag.NewCommit(rec.ID, rec.Parents, rec.Message, rec.Author, rec.Time)
		seen, err := w.g.AddCommit(commit, it.ref.name, it.ref.tide)
		if err != nil {
			return err
		}
		if seen {
			continue
		}
		for _, p := range rec.Parents {
			if w.g.Seen(p) {
				continue
			}
			if err := w.enqueue(q, p, it.ref); err != nil {
				if errors.Is(err, ErrCommitNotFound) {
					continue
				}
				return err
			}
		}
	}
	return nil
}

func (w *walker) enqueue(q *queue, id string, ref traced) error {
	rec, err := w.record(id)
	if err != nil {
		return err
	}
	w.seq++
	heap.Push(q, item{id: id, ref: ref, unix: rec.Time.UnixNano(), seq: w.seq})
	return nil
}

func repoErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrRepository, op, err)
}

type item struct {
	id   string
	ref  traced
	unix int64
	seq  int
}

// queue orders items newest first, then FIFO.
type queue []item

func (q queue) Len() int { return len(q) }
func (q queue) Less(i, j int) bool {
	a, b := q[i], q[j]
	if a.unix != b.unix {
		return a.unix > b.unix
	}
	return a.seq < b.seq
}
func (q queue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *queue) Push(x any)   { *q = append(*q, x.(item)) }
func (q *queue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]
	return it
}
