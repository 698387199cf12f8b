// Package gogit reads a repository on disk with go-git.
//
// It needs no git executable. Annotated tags are peeled to the commit they
// tag, and a local branch whose configured upstream no longer exists is
// reported as prunable.
package gogit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/matzehuels/gitlanes/pkg/core/walk"
	"github.com/matzehuels/gitlanes/pkg/repo"
)

// ErrNoGit is returned when a directory is not a git repository.
var ErrNoGit = errors.New("not a git repository")

// Repository implements repo.Mutable on top of go-git. Calls are
// serialized; it is safe for concurrent use.
type Repository struct {
	mu   sync.Mutex
	repo *gogit.Repository
	path string
}

var _ repo.Mutable = (*Repository)(nil)

// Open opens the repository at path, searching parent directories for the
// .git directory like git itself does.
func Open(path string) (*Repository, error) {
	r, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoGit, path, err)
	}
	return &Repository{repo: r, path: path}, nil
}

// Path returns the directory the repository was opened from.
func (r *Repository) Path() string { return r.path }

// Head implements walk.Repository.
func (r *Repository) Head(context.Context) (walk.Head, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ref, err := r.repo.Head()
	if err != nil {
		return walk.Head{}, fmt.Errorf("getting HEAD: %w", err)
	}
	if ref.Name().IsBranch() {
		return walk.Head{Name: ref.Name().String(), Target: ref.Hash().String()}, nil
	}
	return walk.Head{Name: "HEAD", Target: ref.Hash().String()}, nil
}

// Branches implements walk.Repository. Symbolic references such as
// refs/remotes/origin/HEAD are skipped.
func (r *Repository) Branches(context.Context) ([]walk.Branch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, err := r.repo.Config()
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	iter, err := r.repo.References()
	if err != nil {
		return nil, fmt.Errorf("listing references: %w", err)
	}

	var out []walk.Branch
	exists := make(map[string]bool)
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}
		name := ref.Name()
		if !name.IsBranch() && !name.IsRemote() {
			return nil
		}
		exists[name.String()] = true
		b := walk.Branch{Name: name.String(), Target: ref.Hash().String()}
		if name.IsBranch() {
			if bc, ok := cfg.Branches[name.Short()]; ok && bc.Remote != "" && bc.Remote != "." && bc.Merge != "" {
				b.Upstream = "refs/remotes/" + bc.Remote + "/" + bc.Merge.Short()
			}
		}
		out = append(out, b)
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Upstream != "" && !exists[out[i].Upstream] {
			out[i].Prunable = true
		}
	}
	return out, nil
}

// Tags implements walk.Repository. Tags that do not lead to a commit are
// skipped.
func (r *Repository) Tags(context.Context) ([]walk.Tag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	iter, err := r.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	var out []walk.Tag
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		target := ref.Hash()
		tag, err := r.repo.TagObject(target)
		switch {
		case err == nil:
			c, err := tag.Commit()
			if err != nil {
				return nil
			}
			target = c.Hash
		case !errors.Is(err, plumbing.ErrObjectNotFound):
			return err
		}
		out = append(out, walk.Tag{Name: ref.Name().String(), Target: target.String()})
		return nil
	})
	return out, err
}

// Commit implements walk.Repository.
func (r *Repository) Commit(_ context.Context, id string) (walk.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := plumbing.NewHash(id)
	if h.IsZero() {
		return walk.Record{}, fmt.Errorf("%w: %s", walk.ErrCommitNotFound, id)
	}
	c, err := r.repo.CommitObject(h)
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		return walk.Record{}, fmt.Errorf("%w: %s", walk.ErrCommitNotFound, id)
	}
	if err != nil {
		return walk.Record{}, fmt.Errorf("getting commit %s: %w", id, err)
	}
	return record(c), nil
}

func record(c *object.Commit) walk.Record {
	parents := make([]string, 0, len(c.ParentHashes))
	for _, p := range c.ParentHashes {
		parents = append(parents, p.String())
	}
	return walk.Record{
		ID:      c.Hash.String(),
		Parents: parents,
		Message: strings.TrimRight(c.Message, "\n"),
		Author:  c.Author.Name,
		Time:    c.Author.When,
	}
}

// Fetch implements repo.Mutable. An empty remote fetches every configured
// remote. Being up to date is not an error.
func (r *Repository) Fetch(ctx context.Context, remote string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := []string{remote}
	if remote == "" {
		remotes, err := r.repo.Remotes()
		if err != nil {
			return fmt.Errorf("listing remotes: %w", err)
		}
		names = names[:0]
		for _, rm := range remotes {
			names = append(names, rm.Config().Name)
		}
	}
	for _, name := range names {
		err := r.repo.FetchContext(ctx, &gogit.FetchOptions{RemoteName: name})
		switch {
		case err == nil, errors.Is(err, gogit.NoErrAlreadyUpToDate):
		case errors.Is(err, gogit.ErrRemoteNotFound):
			return fmt.Errorf("%w: remote %s", repo.ErrUnknownRef, name)
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			return &repo.TransientError{Err: fmt.Errorf("fetching %s: %w", name, err)}
		}
	}
	return nil
}

// Checkout implements repo.Mutable. Branch names, full or short, check out
// the branch; anything else git can resolve detaches HEAD at that commit.
func (r *Repository) Checkout(_ context.Context, ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("getting worktree: %w", err)
	}
	branch := plumbing.ReferenceName(ref)
	if !branch.IsBranch() {
		branch = plumbing.NewBranchReferenceName(ref)
	}
	if _, err := r.repo.Reference(branch, true); err == nil {
		return wt.Checkout(&gogit.CheckoutOptions{Branch: branch})
	}
	h, err := r.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return fmt.Errorf("%w: %s", repo.ErrUnknownRef, ref)
	}
	return wt.Checkout(&gogit.CheckoutOptions{Hash: *h})
}
