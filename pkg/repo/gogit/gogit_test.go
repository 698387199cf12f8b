package gogit

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/matzehuels/gitlanes/pkg/core/walk"
	"github.com/matzehuels/gitlanes/pkg/repo"
)

var epoch = time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)

type testRepo struct {
	t    *testing.T
	dir  string
	repo *gogit.Repository
	n    int
}

// initTestRepo creates an empty repository whose default branch is main.
func initTestRepo(t *testing.T) *testRepo {
	t.Helper()
	dir := t.TempDir()
	r, err := gogit.PlainInitWithOptions(dir, &gogit.PlainInitOptions{
		InitOptions: gogit.InitOptions{DefaultBranch: plumbing.Main},
	})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	return &testRepo{t: t, dir: dir, repo: r}
}

// commit writes a file and commits it on the checked out branch.
func (tr *testRepo) commit(msg string) plumbing.Hash {
	tr.t.Helper()
	tr.n++
	name := filepath.Join(tr.dir, "file.txt")
	if err := os.WriteFile(name, []byte(msg+"\n"), 0o644); err != nil {
		tr.t.Fatal(err)
	}
	wt, err := tr.repo.Worktree()
	if err != nil {
		tr.t.Fatal(err)
	}
	if _, err := wt.Add("file.txt"); err != nil {
		tr.t.Fatal(err)
	}
	h, err := wt.Commit(msg, &gogit.CommitOptions{
		Author: &object.Signature{Name: "Ann", Email: "ann@example.com", When: epoch.Add(time.Duration(tr.n) * time.Hour)},
	})
	if err != nil {
		tr.t.Fatalf("commit %q: %v", msg, err)
	}
	return h
}

func (tr *testRepo) setRef(name string, h plumbing.Hash) {
	tr.t.Helper()
	if err := tr.repo.Storer.SetReference(plumbing.NewHashReference(plumbing.ReferenceName(name), h)); err != nil {
		tr.t.Fatal(err)
	}
}

func (tr *testRepo) open() *Repository {
	tr.t.Helper()
	r, err := Open(tr.dir)
	if err != nil {
		tr.t.Fatalf("Open: %v", err)
	}
	return r
}

func TestOpen_NotARepo(t *testing.T) {
	if _, err := Open(t.TempDir()); !errors.Is(err, ErrNoGit) {
		t.Errorf("Open error = %v, want ErrNoGit", err)
	}
}

func TestReadRepository(t *testing.T) {
	ctx := context.Background()
	tr := initTestRepo(t)
	c1 := tr.commit("first <commit>")
	c2 := tr.commit("second")
	tr.setRef("refs/remotes/origin/main", c1)
	tr.setRef("refs/heads/topic", c1)
	if err := tr.repo.CreateBranch(&config.Branch{Name: "main", Remote: "origin", Merge: "refs/heads/main"}); err != nil {
		t.Fatal(err)
	}
	if err := tr.repo.CreateBranch(&config.Branch{Name: "topic", Remote: "origin", Merge: "refs/heads/topic"}); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.repo.CreateTag("v1", c1, &gogit.CreateTagOptions{
		Tagger:  &object.Signature{Name: "Ann", Email: "ann@example.com", When: epoch},
		Message: "release",
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.repo.CreateTag("light", c2, nil); err != nil {
		t.Fatal(err)
	}

	r := tr.open()
	head, err := r.Head(ctx)
	if err != nil || head.Name != "refs/heads/main" || head.Target != c2.String() {
		t.Errorf("Head() = %+v, %v", head, err)
	}

	branches, err := r.Branches(ctx)
	if err != nil {
		t.Fatal(err)
	}
	byName := make(map[string]walk.Branch)
	for _, b := range branches {
		byName[b.Name] = b
	}
	if len(byName) != 3 {
		t.Errorf("Branches() = %+v, want main, topic, origin/main", branches)
	}
	if b := byName["refs/heads/main"]; b.Upstream != "refs/remotes/origin/main" || b.Prunable {
		t.Errorf("main = %+v, want tracked, not prunable", b)
	}
	if b := byName["refs/heads/topic"]; !b.Prunable {
		t.Errorf("topic = %+v, want prunable (upstream gone)", b)
	}

	tags, err := r.Tags(ctx)
	if err != nil {
		t.Fatal(err)
	}
	targets := make(map[string]string)
	for _, tg := range tags {
		targets[tg.Name] = tg.Target
	}
	if targets["refs/tags/v1"] != c1.String() {
		t.Errorf("annotated tag target = %s, want peeled %s", targets["refs/tags/v1"], c1)
	}
	if targets["refs/tags/light"] != c2.String() {
		t.Errorf("lightweight tag target = %s, want %s", targets["refs/tags/light"], c2)
	}

	rec, err := r.Commit(ctx, c2.String())
	if err != nil {
		t.Fatal(err)
	}
	if rec.Message != "second" || rec.Author != "Ann" || len(rec.Parents) != 1 || rec.Parents[0] != c1.String() {
		t.Errorf("Commit() = %+v", rec)
	}
	if _, err := r.Commit(ctx, "0123456789012345678901234567890123456789"); !errors.Is(err, walk.ErrCommitNotFound) {
		t.Errorf("Commit(unknown) error = %v, want ErrCommitNotFound", err)
	}
}

func TestBuildGraph(t *testing.T) {
	tr := initTestRepo(t)
	base := tr.commit("base")
	tr.commit("main work")
	tr.setRef("refs/heads/feature", base)

	g, err := walk.BuildGraph(context.Background(), tr.open(), walk.Options{})
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	if g.Len() != 2 || g.Primary != "refs/heads/main" {
		t.Errorf("Len() = %d, Primary = %q", g.Len(), g.Primary)
	}
	c, _ := g.Cell(base.String())
	if len(c.BranchNames) != 1 || c.BranchNames[0] != "feature" {
		t.Errorf("base labels = %v, want [feature]", c.BranchNames)
	}
}

func TestCheckout(t *testing.T) {
	ctx := context.Background()
	tr := initTestRepo(t)
	c1 := tr.commit("one")
	tr.commit("two")
	tr.setRef("refs/heads/old", c1)
	r := tr.open()

	if err := r.Checkout(ctx, "old"); err != nil {
		t.Fatalf("Checkout(old): %v", err)
	}
	head, _ := r.Head(ctx)
	if head.Name != "refs/heads/old" {
		t.Errorf("Head().Name = %q, want refs/heads/old", head.Name)
	}

	if err := r.Checkout(ctx, c1.String()); err != nil {
		t.Fatalf("Checkout(hash): %v", err)
	}
	if head, _ := r.Head(ctx); head.Name != "HEAD" || head.Target != c1.String() {
		t.Errorf("Head() = %+v, want detached at %s", head, c1)
	}

	if err := r.Checkout(ctx, "no-such-ref"); !errors.Is(err, repo.ErrUnknownRef) {
		t.Errorf("Checkout(unknown) error = %v, want ErrUnknownRef", err)
	}
}

func TestFetchWithoutRemotes(t *testing.T) {
	tr := initTestRepo(t)
	tr.commit("only")
	if err := tr.open().Fetch(context.Background(), ""); err != nil {
		t.Errorf("Fetch with no remotes: %v", err)
	}
}

func TestFetchUnknownRemote(t *testing.T) {
	tr := initTestRepo(t)
	tr.commit("only")
	err := tr.open().Fetch(context.Background(), "upstream")
	if !errors.Is(err, repo.ErrUnknownRef) {
		t.Errorf("Fetch(unknown remote) error = %v, want ErrUnknownRef", err)
	}
	if repo.IsTransient(err) {
		t.Error("an unknown remote should not be retried")
	}
}
