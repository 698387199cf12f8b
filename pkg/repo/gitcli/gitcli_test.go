package gitcli

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/gitlanes/pkg/core/walk"
	"github.com/matzehuels/gitlanes/pkg/repo"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not on PATH")
	}
}

// runGit executes a git command in dir with a fixed identity and date.
// Fails the test on error.
func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Test User", "GIT_AUTHOR_EMAIL=test@test.com",
		"GIT_COMMITTER_NAME=Test User", "GIT_COMMITTER_EMAIL=test@test.com",
		"GIT_AUTHOR_DATE=2024-01-01T00:00:00Z", "GIT_COMMITTER_DATE=2024-01-01T00:00:00Z",
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
	return strings.TrimSpace(string(out))
}

func commit(t *testing.T, dir, msg string) string {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "file.txt"), []byte(msg), 0o644); err != nil {
		t.Fatal(err)
	}
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-q", "-m", msg)
	return runGit(t, dir, "rev-parse", "HEAD")
}

// gitTestRepo creates a repository on main with two commits, a topic branch
// at the first one and an annotated tag.
func gitTestRepo(t *testing.T) (dir, c1, c2 string) {
	t.Helper()
	requireGit(t)
	dir = t.TempDir()
	runGit(t, dir, "init", "-q", "-b", "main")
	c1 = commit(t, dir, "first <one>")
	c2 = commit(t, dir, "second\n\nwith body")
	runGit(t, dir, "branch", "topic", c1)
	runGit(t, dir, "tag", "-a", "v1", "-m", "release", c1)
	runGit(t, dir, "update-ref", "refs/remotes/origin/main", c1)
	runGit(t, dir, "symbolic-ref", "refs/remotes/origin/HEAD", "refs/remotes/origin/main")
	return dir, c1, c2
}

func TestOpen_NotARepo(t *testing.T) {
	requireGit(t)
	if _, err := Open(context.Background(), t.TempDir()); !errors.Is(err, ErrNoGit) {
		t.Errorf("Open error = %v, want ErrNoGit", err)
	}
}

func TestReadRepository(t *testing.T) {
	ctx := context.Background()
	dir, c1, c2 := gitTestRepo(t)
	r, err := Open(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}

	head, err := r.Head(ctx)
	if err != nil || head.Name != "refs/heads/main" || head.Target != c2 {
		t.Errorf("Head() = %+v, %v", head, err)
	}

	branches, err := r.Branches(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, b := range branches {
		names = append(names, b.Name)
	}
	if got := strings.Join(names, ","); got != "refs/heads/main,refs/heads/topic,refs/remotes/origin/main" {
		t.Errorf("branches = %s, want symbolic origin/HEAD skipped", got)
	}

	tags, err := r.Tags(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 1 || tags[0].Name != "refs/tags/v1" || tags[0].Target != c1 {
		t.Errorf("Tags() = %+v, want v1 peeled to %s", tags, c1)
	}

	rec, err := r.Commit(ctx, c2)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Message != "second\n\nwith body" || rec.Author != "Test User" || len(rec.Parents) != 1 || rec.Parents[0] != c1 {
		t.Errorf("Commit() = %+v", rec)
	}
	if rec.Time.Year() != 2024 {
		t.Errorf("Commit().Time = %v", rec.Time)
	}
}

func TestCommitBatchCache(t *testing.T) {
	ctx := context.Background()
	dir, c1, c2 := gitTestRepo(t)
	r, _ := Open(ctx, dir)
	if _, err := r.Commit(ctx, c2); err != nil {
		t.Fatal(err)
	}
	r.mu.Lock()
	_, cached := r.cache[c1]
	r.mu.Unlock()
	if !cached {
		t.Error("ancestor not prefetched")
	}
}

func TestCommitNotFound(t *testing.T) {
	ctx := context.Background()
	dir, _, _ := gitTestRepo(t)
	r, _ := Open(ctx, dir)
	for _, id := range []string{"0123456789abcdef0123456789abcdef01234567", "--all", "HEAD"} {
		if _, err := r.Commit(ctx, id); !errors.Is(err, walk.ErrCommitNotFound) {
			t.Errorf("Commit(%q) error = %v, want ErrCommitNotFound", id, err)
		}
	}
}

func TestBuildGraph(t *testing.T) {
	ctx := context.Background()
	dir, c1, _ := gitTestRepo(t)
	r, _ := Open(ctx, dir)
	g, err := walk.BuildGraph(ctx, r, walk.Options{})
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	if g.Len() != 2 {
		t.Errorf("Len() = %d, want 2", g.Len())
	}
	c, _ := g.Cell(c1)
	if c.Commit.Message != "first &lt;one&gt;" {
		t.Errorf("message = %q, want escaped", c.Commit.Message)
	}
}

func TestCheckout(t *testing.T) {
	ctx := context.Background()
	dir, c1, _ := gitTestRepo(t)
	r, _ := Open(ctx, dir)

	if err := r.Checkout(ctx, "topic"); err != nil {
		t.Fatalf("Checkout(topic): %v", err)
	}
	if head, _ := r.Head(ctx); head.Name != "refs/heads/topic" {
		t.Errorf("Head().Name = %q, want refs/heads/topic", head.Name)
	}
	if err := r.Checkout(ctx, "v1"); err != nil {
		t.Fatalf("Checkout(v1): %v", err)
	}
	if head, _ := r.Head(ctx); head.Name != "HEAD" || head.Target != c1 {
		t.Errorf("Head() = %+v, want detached at %s", head, c1)
	}
	for _, ref := range []string{"nope", "-b"} {
		if err := r.Checkout(ctx, ref); !errors.Is(err, repo.ErrUnknownRef) {
			t.Errorf("Checkout(%q) error = %v, want ErrUnknownRef", ref, err)
		}
	}
}

func TestParseLog(t *testing.T) {
	out := []byte("aaaa\x00bbbb cccc\x00Ann\x001700000000\x00merge\n\x00bbbb\x00\x00Bob\x001690000000\x00root\n\x1e body\n\x00")
	recs, err := parseLog(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || len(recs[0].Parents) != 2 || len(recs[1].Parents) != 0 || recs[0].Message != "merge" {
		t.Errorf("parseLog = %+v", recs)
	}
	if len(recs) == 2 && recs[1].Message != "root\n\x1e body" {
		t.Errorf("Message = %q, want record separator kept in body", recs[1].Message)
	}
	for _, bad := range []string{"broken\x00", "zzzz\x00\x00a\x001\x00m\x00"} {
		if _, err := parseLog([]byte(bad)); err == nil {
			t.Errorf("parseLog(%q): expected error", bad)
		}
	}
	if recs, err := parseLog(nil); err != nil || len(recs) != 0 {
		t.Errorf("parseLog(nil) = %v, %v", recs, err)
	}
}

func TestCommitBodyWithControlBytes(t *testing.T) {
	ctx := context.Background()
	dir, _, _ := gitTestRepo(t)
	msg := "subject\n\nline \x1e one\nline two"
	id := commit(t, dir, msg)

	r, err := Open(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	rec, err := r.Commit(ctx, id)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if rec.Message != msg {
		t.Errorf("Message = %q, want %q", rec.Message, msg)
	}
	if len(rec.Parents) != 1 {
		t.Errorf("Parents = %v, want one", rec.Parents)
	}
}

func TestFetchUnknownRemote(t *testing.T) {
	ctx := context.Background()
	dir, _, _ := gitTestRepo(t)
	r, _ := Open(ctx, dir)

	err := r.Fetch(ctx, "nowhere")
	if !errors.Is(err, repo.ErrUnknownRef) {
		t.Errorf("Fetch error = %v, want ErrUnknownRef", err)
	}
	if repo.IsTransient(err) {
		t.Error("unknown remote reported as transient")
	}
}
