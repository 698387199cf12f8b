// Package gitcli reads a repository by running the git executable.
//
// It sees exactly what git sees, including worktrees, alternates and
// partial clones that go-git does not support. Commit lookups fetch a batch
// of ancestors per git invocation, so walking a history costs one process
// per batch rather than one per commit.
package gitcli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/matzehuels/gitlanes/pkg/core/walk"
	"github.com/matzehuels/gitlanes/pkg/repo"
)

// DefaultBatch is the number of commits read per git log call.
const DefaultBatch = 256

// ErrNoGit is returned when git is missing or the directory is not a
// repository.
var ErrNoGit = errors.New("not a git repository")

var hashRe = regexp.MustCompile(`^[0-9a-f]{4,64}$`)

// Repository implements repo.Mutable by running git in a directory.
type Repository struct {
	dir   string
	batch int

	mu    sync.Mutex
	cache map[string]walk.Record
}

var _ repo.Mutable = (*Repository)(nil)

// Open checks that dir is inside a git work tree or bare repository.
func Open(ctx context.Context, dir string) (*Repository, error) {
	r := &Repository{dir: dir, batch: DefaultBatch, cache: make(map[string]walk.Record)}
	if _, err := r.git(ctx, "rev-parse", "--git-dir"); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoGit, dir, err)
	}
	return r, nil
}

// SetBatch changes how many commits one lookup prefetches.
func (r *Repository) SetBatch(n int) {
	if n > 0 {
		r.batch = n
	}
}

// gitError carries git's stderr.
type gitError struct {
	args   []string
	err    error
	stderr string
}

func (e *gitError) Error() string {
	return fmt.Sprintf("git %s: %v: %s", strings.Join(e.args, " "), e.err, strings.TrimSpace(e.stderr))
}

func (e *gitError) Unwrap() error { return e.err }

func (r *Repository) git(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0", "LC_ALL=C")
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf
	if err := cmd.Run(); err != nil {
		return nil, &gitError{args: args, err: err, stderr: errBuf.String()}
	}
	return out.Bytes(), nil
}

// Head implements walk.Repository.
func (r *Repository) Head(ctx context.Context) (walk.Head, error) {
	out, err := r.git(ctx, "rev-parse", "HEAD")
	if err != nil {
		return walk.Head{}, err
	}
	h := walk.Head{Name: "HEAD", Target: strings.TrimSpace(string(out))}
	// symbolic-ref exits 1 when HEAD is detached.
	if out, err := r.git(ctx, "symbolic-ref", "-q", "HEAD"); err == nil {
		h.Name = strings.TrimSpace(string(out))
	}
	return h, nil
}

// Branches implements walk.Repository. A branch whose upstream git reports
// as gone is prunable.
func (r *Repository) Branches(ctx context.Context) ([]walk.Branch, error) {
	out, err := r.git(ctx, "for-each-ref",
		"--format=%(refname)%00%(objectname)%00%(symref)%00%(upstream)%00%(upstream:track)",
		"refs/heads", "refs/remotes")
	if err != nil {
		return nil, err
	}
	var bs []walk.Branch
	for _, line := range lines(out) {
		f := strings.Split(line, "\x00")
		if len(f) != 5 || f[2] != "" {
			continue
		}
		bs = append(bs, walk.Branch{
			Name:     f[0],
			Target:   f[1],
			Upstream: f[3],
			Prunable: f[4] == "[gone]",
		})
	}
	return bs, nil
}

// Tags implements walk.Repository. Annotated tags are peeled; tags of
// anything but a commit are skipped.
func (r *Repository) Tags(ctx context.Context) ([]walk.Tag, error) {
	out, err := r.git(ctx, "for-each-ref",
		"--format=%(refname)%00%(objecttype)%00%(objectname)%00%(*objecttype)%00%(*objectname)",
		"refs/tags")
	if err != nil {
		return nil, err
	}
	var ts []walk.Tag
	for _, line := range lines(out) {
		f := strings.Split(line, "\x00")
		if len(f) != 5 {
			continue
		}
		switch {
		case f[1] == "commit":
			ts = append(ts, walk.Tag{Name: f[0], Target: f[2]})
		case f[1] == "tag" && f[3] == "commit":
			ts = append(ts, walk.Tag{Name: f[0], Target: f[4]})
		}
	}
	return ts, nil
}

// With -z every field and record ends in NUL, which git never stores in a
// commit, so the output splits into logFields fields per record.
const (
	fieldSep  = "\x00"
	logFields = 5
	logFormat = "--format=%H%x00%P%x00%an%x00%at%x00%B"
)

// Commit implements walk.Repository. A miss reads the commit together with
// up to the batch size of its ancestors.
func (r *Repository) Commit(ctx context.Context, id string) (walk.Record, error) {
	r.mu.Lock()
	rec, ok := r.cache[id]
	r.mu.Unlock()
	if ok {
		return rec, nil
	}
	if !hashRe.MatchString(id) {
		return walk.Record{}, fmt.Errorf("%w: %s", walk.ErrCommitNotFound, id)
	}

	out, err := r.git(ctx, "log", "-z", "--no-color", "--max-count="+strconv.Itoa(r.batch), logFormat, id, "--")
	if err != nil {
		var ge *gitError
		if errors.As(err, &ge) && (strings.Contains(ge.stderr, "bad object") ||
			strings.Contains(ge.stderr, "unknown revision") || strings.Contains(ge.stderr, "bad revision")) {
			return walk.Record{}, fmt.Errorf("%w: %s", walk.ErrCommitNotFound, id)
		}
		return walk.Record{}, err
	}
	recs, err := parseLog(out)
	if err != nil {
		return walk.Record{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rc := range recs {
		r.cache[rc.ID] = rc
	}
	if len(recs) > 0 && strings.HasPrefix(recs[0].ID, id) {
		r.cache[id] = recs[0]
		return recs[0], nil
	}
	return walk.Record{}, fmt.Errorf("%w: %s", walk.ErrCommitNotFound, id)
}

func parseLog(out []byte) ([]walk.Record, error) {
	s := strings.TrimSuffix(string(out), fieldSep)
	if s == "" {
		return nil, nil
	}
	fields := strings.Split(s, fieldSep)
	if len(fields)%logFields != 0 {
		return nil, fmt.Errorf("git log: malformed output, %d fields", len(fields))
	}
	recs := make([]walk.Record, 0, len(fields)/logFields)
	for ; len(fields) > 0; fields = fields[logFields:] {
		f := fields[:logFields]
		f[0] = strings.TrimLeft(f[0], "\n")
		if !hashRe.MatchString(f[0]) {
			return nil, fmt.Errorf("git log: malformed record %q", strings.Join(f, fieldSep))
		}
		secs, err := strconv.ParseInt(f[3], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("git log: bad timestamp %q: %w", f[3], err)
		}
		recs = append(recs, walk.Record{
			ID:      f[0],
			Parents: strings.Fields(f[1]),
			Author:  f[2],
			Time:    time.Unix(secs, 0).UTC(),
			Message: strings.TrimRight(f[4], "\n"),
		})
	}
	return recs, nil
}

// Fetch implements repo.Mutable. It prunes deleted remote branches, so
// local branches tracking them turn prunable. A remote git does not know
// fails with repo.ErrUnknownRef.
func (r *Repository) Fetch(ctx context.Context, remote string) error {
	args := []string{"fetch", "--prune", "--quiet"}
	if remote == "" {
		args = append(args, "--all")
	} else {
		args = append(args, "--", remote)
	}
	if _, err := r.git(ctx, args...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var ge *gitError
		if errors.As(err, &ge) && unknownRemote(ge.stderr) {
			return fmt.Errorf("%w: remote %s", repo.ErrUnknownRef, remote)
		}
		return &repo.TransientError{Err: err}
	}
	r.mu.Lock()
	clear(r.cache)
	r.mu.Unlock()
	return nil
}

func unknownRemote(stderr string) bool {
	return strings.Contains(stderr, "does not appear to be a git repository") ||
		strings.Contains(stderr, "No such remote")
}

// Checkout implements repo.Mutable.
func (r *Repository) Checkout(ctx context.Context, ref string) error {
	if strings.HasPrefix(ref, "-") {
		return fmt.Errorf("%w: %s", repo.ErrUnknownRef, ref)
	}
	if _, err := r.git(ctx, "rev-parse", "--verify", "--quiet", ref+"^{commit}"); err != nil {
		return fmt.Errorf("%w: %s", repo.ErrUnknownRef, ref)
	}
	name := strings.TrimPrefix(ref, "refs/heads/")
	_, err := r.git(ctx, "checkout", "--quiet", name, "--")
	return err
}

func lines(out []byte) []string {
	s := strings.TrimRight(string(out), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
