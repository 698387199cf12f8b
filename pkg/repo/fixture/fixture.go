// Package fixture serves a repository snapshot from memory.
//
// Snapshots use the graph.History format and are typically read from a JSON
// or YAML file with [Load]. [Capture] goes the other way and records any
// walk.Repository as a snapshot, which is how test fixtures are produced
// from real repositories.
package fixture

import (
	"context"
	"fmt"
	"slices"

	"github.com/matzehuels/gitlanes/pkg/core/walk"
	"github.com/matzehuels/gitlanes/pkg/graph"
)

// Repository is an immutable in-memory repository. It is safe for
// concurrent use.
type Repository struct {
	h       graph.History
	commits map[string]graph.Commit
}

// New indexes a history. Commit IDs must be unique.
func New(h graph.History) (*Repository, error) {
	commits := make(map[string]graph.Commit, len(h.Commits))
	for _, c := range h.Commits {
		if c.ID == "" {
			return nil, fmt.Errorf("fixture: commit without id")
		}
		if _, dup := commits[c.ID]; dup {
			return nil, fmt.Errorf("fixture: duplicate commit %s", c.ID)
		}
		commits[c.ID] = c
	}
	return &Repository{h: h, commits: commits}, nil
}

// Load reads a history file (JSON, or YAML by extension).
func Load(path string) (*Repository, error) {
	h, err := graph.ReadHistoryFile(path)
	if err != nil {
		return nil, err
	}
	return New(h)
}

// History returns the snapshot the repository serves.
func (r *Repository) History() graph.History { return r.h }

// Head implements walk.Repository. A head naming a branch takes its target
// from that branch.
func (r *Repository) Head(context.Context) (walk.Head, error) {
	h := walk.Head{Name: r.h.Head.Name, Target: r.h.Head.Target}
	if h.Target == "" {
		for _, b := range r.h.Branches {
			if b.Name == h.Name {
				h.Target = b.Target
				break
			}
		}
	}
	return h, nil
}

// Branches implements walk.Repository.
func (r *Repository) Branches(context.Context) ([]walk.Branch, error) {
	out := make([]walk.Branch, 0, len(r.h.Branches))
	for _, b := range r.h.Branches {
		out = append(out, walk.Branch{Name: b.Name, Target: b.Target, Upstream: b.Upstream, Prunable: b.Prunable})
	}
	return out, nil
}

// Tags implements walk.Repository.
func (r *Repository) Tags(context.Context) ([]walk.Tag, error) {
	out := make([]walk.Tag, 0, len(r.h.Tags))
	for _, t := range r.h.Tags {
		out = append(out, walk.Tag{Name: t.Name, Target: t.Target})
	}
	return out, nil
}

// Commit implements walk.Repository.
func (r *Repository) Commit(_ context.Context, id string) (walk.Record, error) {
	c, ok := r.commits[id]
	if !ok {
		return walk.Record{}, fmt.Errorf("%w: %s", walk.ErrCommitNotFound, id)
	}
	return walk.Record{
		ID:      c.ID,
		Parents: slices.Clone(c.Parents),
		Message: c.Message,
		Author:  c.Author,
		Time:    c.Time,
	}, nil
}

// Capture records the references of src and every commit reachable from
// them, up to limit commits (zero means no limit). Parents beyond the limit
// stay listed but are not included.
func Capture(ctx context.Context, src walk.Repository, limit int) (graph.History, error) {
	head, err := src.Head(ctx)
	if err != nil {
		return graph.History{}, err
	}
	branches, err := src.Branches(ctx)
	if err != nil {
		return graph.History{}, err
	}
	tags, err := src.Tags(ctx)
	if err != nil {
		return graph.History{}, err
	}

	h := graph.History{Head: graph.Head{Name: head.Name}}
	if head.Name == "HEAD" {
		h.Head.Target = head.Target
	}
	roots := []string{head.Target}
	for _, b := range branches {
		h.Branches = append(h.Branches, graph.Branch{Name: b.Name, Target: b.Target, Upstream: b.Upstream, Prunable: b.Prunable})
		roots = append(roots, b.Target)
	}
	for _, t := range tags {
		h.Tags = append(h.Tags, graph.Tag{Name: t.Name, Target: t.Target})
		roots = append(roots, t.Target)
	}

	seen := make(map[string]bool)
	queue := slices.DeleteFunc(roots, func(id string) bool { return id == "" })
	for len(queue) > 0 && (limit <= 0 || len(h.Commits) < limit) {
		if err := ctx.Err(); err != nil {
			return graph.History{}, err
		}
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		rec, err := src.Commit(ctx, id)
		if err != nil {
			return graph.History{}, err
		}
		h.Commits = append(h.Commits, graph.Commit{
			ID:      rec.ID,
			Parents: rec.Parents,
			Message: rec.Message,
			Author:  rec.Author,
			Time:    rec.Time.UTC(),
		})
		queue = append(queue, rec.Parents...)
	}
	slices.SortStableFunc(h.Commits, func(a, b graph.Commit) int { return b.Time.Compare(a.Time) })
	return h, nil
}
