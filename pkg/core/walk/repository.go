package walk

import (
	"context"
	"time"
)

// Record is a commit as read from a repository, before escaping.
type Record struct {
	ID      string
	Parents []string
	Message string
	Author  string
	Time    time.Time
}

// Branch is a local or remote-tracking branch.
type Branch struct {
	Name     string // Full reference name (refs/heads/... or refs/remotes/...)
	Target   string // Tip commit ID
	Upstream string // Full name of the tracked remote branch, if any
	Prunable bool   // Slated for removal, e.g. its upstream is gone
}

// Tag is a tag pointing at a commit. Annotated tags are peeled by the
// repository implementation.
type Tag struct {
	Name   string
	Target string
}

// Head describes the checkout position.
type Head struct {
	Name   string // Full branch name, or "HEAD" when detached
	Target string
}

// Repository is the read-only view of a repository the traversal needs.
// Implementations live in the repo packages.
type Repository interface {
	// Head returns the current checkout position.
	Head(ctx context.Context) (Head, error)
	// Branches returns local and remote-tracking branches.
	Branches(ctx context.Context) ([]Branch, error)
	// Tags returns all tags.
	Tags(ctx context.Context) ([]Tag, error)
	// Commit looks up a single commit by ID.
	Commit(ctx context.Context, id string) (Record, error)
}
