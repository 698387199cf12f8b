package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gitlanes/pkg/cache"
	"github.com/matzehuels/gitlanes/pkg/core/walk"
	"github.com/matzehuels/gitlanes/pkg/observability"
	"github.com/matzehuels/gitlanes/pkg/pipeline"
	"github.com/matzehuels/gitlanes/pkg/repo"
	"github.com/matzehuels/gitlanes/pkg/repo/fixture"
)

// mutableFixture adds Fetch and Checkout to a fixture repository.
type mutableFixture struct {
	*fixture.Repository

	mu  sync.Mutex
	ops []string
}

func (m *mutableFixture) Fetch(_ context.Context, remote string) error {
	m.record("fetch " + remote)
	return nil
}

func (m *mutableFixture) Checkout(_ context.Context, ref string) error {
	if ref == "refs/heads/nope" {
		return fmt.Errorf("%w: %s", repo.ErrUnknownRef, ref)
	}
	m.record("checkout " + ref)
	return nil
}

func (m *mutableFixture) record(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, op)
}

func (m *mutableFixture) recorded() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return strings.Join(m.ops, "|")
}

func testServer(t *testing.T) (*httptest.Server, *mutableFixture) {
	t.Helper()
	fr, err := fixture.New(testHistory())
	if err != nil {
		t.Fatalf("fixture.New: %v", err)
	}
	mut := &mutableFixture{Repository: fr}
	ro, err := fixture.New(testHistory())
	if err != nil {
		t.Fatalf("fixture.New: %v", err)
	}

	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	logger := log.New(io.Discard)
	runner := pipeline.NewRunner(fc, nil, logger)
	t.Cleanup(func() { runner.Close() })

	repos := map[string]walk.Repository{"work": mut, "snapshot": ro}
	defaults := pipeline.Options{RowLimit: pipeline.DefaultRowLimit}
	s := newServer(runner, repos, defaults, time.Second, logger)

	ts := httptest.NewServer(s.routes())
	t.Cleanup(ts.Close)
	return ts, mut
}

func do(t *testing.T, method, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, body
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var e errorResponse
	if err := json.Unmarshal(body, &e); err != nil {
		t.Fatalf("error body %q: %v", body, err)
	}
	return e.Error
}

func TestServerHealthAndList(t *testing.T) {
	ts, _ := testServer(t)

	resp, _ := do(t, http.MethodGet, ts.URL+"/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", resp.StatusCode)
	}
	if resp.Header.Get(requestIDHeader) == "" {
		t.Error("response has no request id")
	}

	resp, body := do(t, http.MethodGet, ts.URL+"/repos")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("repos status = %d", resp.StatusCode)
	}
	var list struct{ Repos []string }
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatal(err)
	}
	if strings.Join(list.Repos, ",") != "snapshot,work" {
		t.Errorf("repos = %v, want [snapshot work]", list.Repos)
	}
}

func TestServerRequestIDEchoed(t *testing.T) {
	ts, _ := testServer(t)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get(requestIDHeader); got != "abc-123" {
		t.Errorf("request id = %q, want abc-123", got)
	}
}

// routeRecorder captures the routes the server reports.
type routeRecorder struct {
	observability.NoopServerHooks

	mu        sync.Mutex
	requests  []string
	responses []string
}

func (r *routeRecorder) OnRequest(_ context.Context, method, route string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, method+" "+route)
}

func (r *routeRecorder) OnResponse(_ context.Context, method, route string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, fmt.Sprintf("%s %s %d", method, route, status))
}

func TestServerReportsRoutePatterns(t *testing.T) {
	rec := &routeRecorder{}
	observability.SetServerHooks(rec)
	t.Cleanup(observability.Reset)
	ts, _ := testServer(t)

	do(t, http.MethodGet, ts.URL+"/healthz")
	do(t, http.MethodPost, ts.URL+"/repos/work/fetch")
	do(t, http.MethodPost, ts.URL+"/repos/work/checkout/refs/heads/nope")
	do(t, http.MethodGet, ts.URL+"/no/such/path")

	rec.mu.Lock()
	defer rec.mu.Unlock()
	wantReq := []string{
		"GET /healthz",
		"POST /repos/{name}/fetch",
		"POST /repos/{name}/checkout/*",
		"GET " + unmatchedRoute,
	}
	if got := strings.Join(rec.requests, "|"); got != strings.Join(wantReq, "|") {
		t.Errorf("OnRequest routes = %v, want %v", rec.requests, wantReq)
	}
	wantResp := []string{
		"GET /healthz 200",
		"POST /repos/{name}/fetch 200",
		"POST /repos/{name}/checkout/* 404",
		"GET " + unmatchedRoute + " 404",
	}
	if got := strings.Join(rec.responses, "|"); got != strings.Join(wantResp, "|") {
		t.Errorf("OnResponse routes = %v, want %v", rec.responses, wantResp)
	}
}

func TestServerGraph(t *testing.T) {
	ts, _ := testServer(t)

	resp, body := do(t, http.MethodGet, ts.URL+"/repos/snapshot/graph.svg")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("content type = %q", ct)
	}
	if resp.Header.Get("X-Cache") != "miss" {
		t.Errorf("first request X-Cache = %q, want miss", resp.Header.Get("X-Cache"))
	}
	if !strings.Contains(string(body), "<svg") {
		t.Error("body is not an SVG document")
	}

	resp, _ = do(t, http.MethodGet, ts.URL+"/repos/snapshot/graph.svg")
	if resp.Header.Get("X-Cache") != "hit" {
		t.Errorf("second request X-Cache = %q, want hit", resp.Header.Get("X-Cache"))
	}

	resp, body = do(t, http.MethodGet, ts.URL+"/repos/snapshot/graph.layout?row_limit=2")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("layout status = %d, body %s", resp.StatusCode, body)
	}
	var l struct {
		Cells []json.RawMessage `json:"cells"`
	}
	if err := json.Unmarshal(body, &l); err != nil {
		t.Fatal(err)
	}
	if len(l.Cells) != 4 {
		t.Errorf("layout cells = %d, want all 4 commits", len(l.Cells))
	}
}

func TestServerGraphErrors(t *testing.T) {
	ts, _ := testServer(t)

	tests := []struct {
		name     string
		path     string
		status   int
		wantCode string
	}{
		{"unknown repository", "/repos/missing/graph.svg", http.StatusNotFound, "NOT_FOUND"},
		{"bad format", "/repos/snapshot/graph.txt", http.StatusBadRequest, "INVALID_FORMAT"},
		{"bad integer", "/repos/snapshot/graph.svg?row_limit=ten", http.StatusBadRequest, "INVALID_INPUT"},
		{"bad boolean", "/repos/snapshot/graph.svg?only_local=maybe", http.StatusBadRequest, "INVALID_INPUT"},
		{"negative row", "/repos/snapshot/graph.svg?row_start=-1", http.StatusBadRequest, "INVALID_INPUT"},
		{"unknown highlight", "/repos/snapshot/graph.svg?highlight=refs/heads/nope", http.StatusNotFound, "NOT_FOUND"},
		{"bad style", "/repos/snapshot/graph.svg?style=neon", http.StatusBadRequest, "INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, http.MethodGet, ts.URL+tt.path)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d (body %s)", resp.StatusCode, tt.status, body)
			}
			if got := errorCode(t, body); got != tt.wantCode {
				t.Errorf("code = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

func TestServerReadOnlyRepository(t *testing.T) {
	ts, _ := testServer(t)

	resp, body := do(t, http.MethodPost, ts.URL+"/repos/snapshot/fetch")
	if resp.StatusCode != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", resp.StatusCode)
	}
	if got := errorCode(t, body); got != "UNSUPPORTED" {
		t.Errorf("code = %q, want UNSUPPORTED", got)
	}
}

func TestServerFetchAndCheckout(t *testing.T) {
	ts, mut := testServer(t)

	resp, _ := do(t, http.MethodGet, ts.URL+"/repos/work/graph.svg")
	if resp.Header.Get("X-Cache") != "miss" {
		t.Fatalf("X-Cache = %q, want miss", resp.Header.Get("X-Cache"))
	}

	resp, body := do(t, http.MethodPost, ts.URL+"/repos/work/fetch?remote=origin")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("fetch status = %d, body %s", resp.StatusCode, body)
	}
	resp, body = do(t, http.MethodPost, ts.URL+"/repos/work/checkout/refs/heads/feature")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("checkout status = %d, body %s", resp.StatusCode, body)
	}
	if got, want := mut.recorded(), "fetch origin|checkout refs/heads/feature"; got != want {
		t.Errorf("ops = %q, want %q", got, want)
	}

	// Mutations drop the repository's cached results.
	resp, _ = do(t, http.MethodGet, ts.URL+"/repos/work/graph.svg")
	if resp.Header.Get("X-Cache") != "miss" {
		t.Errorf("X-Cache after checkout = %q, want miss", resp.Header.Get("X-Cache"))
	}

	resp, body = do(t, http.MethodPost, ts.URL+"/repos/work/checkout/refs/heads/nope")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown ref status = %d, want 404", resp.StatusCode)
	}
	if got := errorCode(t, body); got != "NOT_FOUND" {
		t.Errorf("code = %q, want NOT_FOUND", got)
	}
}

func TestRepositoryError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{context.DeadlineExceeded, "TIMEOUT"},
		{fmt.Errorf("%w: x", repo.ErrUnknownRef), "NOT_FOUND"},
		{io.ErrUnexpectedEOF, "REPOSITORY_ERROR"},
	}
	for _, tt := range tests {
		var e errorResponse
		rec := httptest.NewRecorder()
		writeError(rec, repositoryError(tt.err, "fetch"))
		if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
			t.Fatal(err)
		}
		if e.Error != tt.want {
			t.Errorf("repositoryError(%v) code = %q, want %q", tt.err, e.Error, tt.want)
		}
	}
}
