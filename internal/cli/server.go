package cli

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"slices"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/gitlanes/pkg/buildinfo"
	"github.com/matzehuels/gitlanes/pkg/core/walk"
	"github.com/matzehuels/gitlanes/pkg/errors"
	"github.com/matzehuels/gitlanes/pkg/observability"
	"github.com/matzehuels/gitlanes/pkg/pipeline"
	"github.com/matzehuels/gitlanes/pkg/repo"
)

// requestIDHeader carries the request id in both directions.
const requestIDHeader = "X-Request-ID"

// Fetch attempts per request and the delay before the first retry.
const (
	fetchAttempts   = 3
	fetchRetryDelay = 500 * time.Millisecond
)

// servedFormats are the formats the graph endpoint answers with.
var servedFormats = map[string]string{
	pipeline.FormatSVG:    "image/svg+xml",
	pipeline.FormatJSON:   "application/json",
	pipeline.FormatLayout: "application/json",
	pipeline.FormatDOT:    "text/vnd.graphviz",
}

// servedRepo is a repository with a lock that keeps fetch and checkout from
// running while a graph is being built.
type servedRepo struct {
	mu   sync.RWMutex
	repo walk.Repository
}

// server answers graph requests for a fixed set of named repositories.
type server struct {
	runner       *pipeline.Runner
	repos        map[string]*servedRepo
	defaults     pipeline.Options
	fetchTimeout time.Duration
	logger       *log.Logger
}

func newServer(runner *pipeline.Runner, repos map[string]walk.Repository, defaults pipeline.Options, fetchTimeout time.Duration, logger *log.Logger) *server {
	s := &server{
		runner:       runner,
		repos:        make(map[string]*servedRepo, len(repos)),
		defaults:     defaults,
		fetchTimeout: fetchTimeout,
		logger:       logger,
	}
	for name, r := range repos {
		s.repos[name] = &servedRepo{repo: r}
	}
	return s
}

// routes builds the HTTP handler.
func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.observe(r))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/repos", s.handleList)
	r.Route("/repos/{name}", func(r chi.Router) {
		r.Get("/graph.{format}", s.handleGraph)
		r.Post("/fetch", s.handleFetch)
		// Reference names contain slashes.
		r.Post("/checkout/*", s.handleCheckout)
	})
	return r
}

// unmatchedRoute labels requests no route pattern matches.
const unmatchedRoute = "unmatched"

// observe assigns a request id, reports the request to the server hooks
// under its route pattern and logs one line per request.
func (s *server) observe(mux chi.Routes) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			id := r.Header.Get(requestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)

			route := mux.Find(chi.NewRouteContext(), r.Method, r.URL.Path)
			if route == "" {
				route = unmatchedRoute
			}
			hooks := observability.Server()
			hooks.OnRequest(r.Context(), r.Method, route)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			d := time.Since(start)
			hooks.OnResponse(r.Context(), r.Method, route, status, d)
			s.logger.Info("request",
				"id", id,
				"method", r.Method,
				"path", r.URL.Path,
				"route", route,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", d)
		})
	}
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": buildinfo.Short()})
}

func (s *server) handleList(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.repos))
	for name := range s.repos {
		names = append(names, name)
	}
	sort.Strings(names)
	writeJSON(w, http.StatusOK, map[string][]string{"repos": names})
}

func (s *server) handleGraph(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	sr, err := s.lookup(name)
	if err != nil {
		writeError(w, err)
		return
	}
	format := chi.URLParam(r, "format")
	contentType, ok := servedFormats[format]
	if !ok {
		writeError(w, errors.New(errors.ErrCodeInvalidFormat, "unsupported format: %s", format))
		return
	}
	opts, err := s.graphOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}
	opts.Formats = []string{format}

	sr.mu.RLock()
	result, err := s.runner.Execute(r.Context(), name, sr.repo, opts)
	sr.mu.RUnlock()
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Graph-Key", result.GraphKey)
	if result.CacheInfo.RenderHit {
		w.Header().Set("X-Cache", "hit")
	} else {
		w.Header().Set("X-Cache", "miss")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Artifacts[format])
}

// graphOptions reads render options from the query string on top of the
// server defaults.
func (s *server) graphOptions(r *http.Request) (pipeline.Options, error) {
	opts := s.defaults
	q := r.URL.Query()

	ints := []struct {
		key string
		dst *int
	}{
		{"row_start", &opts.RowStart},
		{"row_limit", &opts.RowLimit},
	}
	for _, p := range ints {
		if v := q.Get(p.key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return opts, errors.New(errors.ErrCodeInvalidInput, "%s must be an integer", p.key)
			}
			*p.dst = n
		}
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"only_local", &opts.OnlyLocal},
		{"primary_first", &opts.AlwaysShowPrimaryFirst},
		{"hide_complex", &opts.HideComplexHistory},
		{"hide_messages", &opts.HideMessages},
		{"interactive", &opts.Interactive},
	}
	for _, p := range bools {
		if v := q.Get(p.key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return opts, errors.New(errors.ErrCodeInvalidInput, "%s must be a boolean", p.key)
			}
			*p.dst = b
		}
	}

	if v := q.Get("highlight"); v != "" {
		opts.Highlight = v
	}
	if v := q.Get("style"); v != "" {
		opts.Style = v
	}
	if v := q.Get("primary"); v != "" {
		opts.PrimaryBranch = v
	}
	return opts, nil
}

func (s *server) handleFetch(w http.ResponseWriter, r *http.Request) {
	remote := r.URL.Query().Get("remote")
	if remote != "" {
		if err := errors.ValidateRefName(remote); err != nil {
			writeError(w, err)
			return
		}
	}
	s.mutate(w, r, "fetch", func(ctx context.Context, m repo.Mutable) error {
		return repo.Retry(ctx, fetchAttempts, fetchRetryDelay, func() error {
			return m.Fetch(ctx, remote)
		})
	})
}

func (s *server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "*")
	if err := errors.ValidateRefName(ref); err != nil {
		writeError(w, err)
		return
	}
	s.mutate(w, r, "checkout", func(ctx context.Context, m repo.Mutable) error {
		return m.Checkout(ctx, ref)
	})
}

// mutate runs a repository operation under its own timeout and drops the
// repository's cache entries afterwards.
func (s *server) mutate(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, repo.Mutable) error) {
	name := chi.URLParam(r, "name")
	sr, err := s.lookup(name)
	if err != nil {
		writeError(w, err)
		return
	}
	m, ok := sr.repo.(repo.Mutable)
	if !ok {
		writeError(w, errors.New(errors.ErrCodeUnsupported, "repository %s is read-only", name))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.fetchTimeout)
	defer cancel()

	start := time.Now()
	sr.mu.Lock()
	err = fn(ctx, m)
	sr.mu.Unlock()
	observability.Server().OnRepositoryOp(ctx, op, time.Since(start), err)
	if err != nil {
		writeError(w, repositoryError(err, op))
		return
	}

	if err := s.runner.Invalidate(r.Context(), name); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "op": op})
}

func (s *server) lookup(name string) (*servedRepo, error) {
	if err := errors.ValidateRepoName(name); err != nil {
		return nil, err
	}
	sr, ok := s.repos[name]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "unknown repository: %s", name)
	}
	return sr, nil
}

func repositoryError(err error, op string) error {
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.Wrap(errors.ErrCodeTimeout, err, "%s timed out", op)
	case stderrors.Is(err, repo.ErrUnknownRef):
		return errors.Wrap(errors.ErrCodeNotFound, err, "%s", op)
	default:
		return errors.Wrap(errors.ErrCodeRepository, err, "%s failed", op)
	}
}

// =============================================================================
// Responses
// =============================================================================

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	writeJSON(w, errors.HTTPStatus(err), errorResponse{Error: string(code), Message: errors.UserMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// sortedFormats lists servedFormats for help text.
func sortedFormats() []string {
	out := make([]string, 0, len(servedFormats))
	for f := range servedFormats {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}
