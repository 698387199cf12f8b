// Package repo groups the repository collaborators a commit graph is built
// from. Each subpackage implements walk.Repository:
//
//   - fixture: an in-memory snapshot, loaded from JSON or YAML
//   - gogit: a repository on disk, read with go-git
//   - gitcli: a repository on disk, read through the git executable
//
// The on-disk implementations also provide Fetch and Checkout, the only
// operations that change repository state. They are never called while a
// graph is being built.
package repo

import (
	"context"
	"errors"

	"github.com/matzehuels/gitlanes/pkg/core/walk"
)

// ErrUnknownRef is returned by Checkout for names that resolve to nothing
// and by Fetch for remotes that are not configured.
var ErrUnknownRef = errors.New("unknown reference")

// Mutable is a repository that can refresh remote-tracking branches and move
// the checkout.
type Mutable interface {
	walk.Repository
	// Fetch updates remote-tracking branches from remote, or from every
	// configured remote when remote is empty. Network failures are returned
	// as *TransientError, unknown remotes as ErrUnknownRef.
	Fetch(ctx context.Context, remote string) error
	// Checkout moves the checkout to the named branch, tag or commit.
	Checkout(ctx context.Context, ref string) error
}
