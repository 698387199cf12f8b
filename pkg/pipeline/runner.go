package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/gitlanes/pkg/cache"
	"github.com/matzehuels/gitlanes/pkg/core/walk"
	"github.com/matzehuels/gitlanes/pkg/errors"
	"github.com/matzehuels/gitlanes/pkg/graph"
	"github.com/matzehuels/gitlanes/pkg/observability"
)

// Cache key types reported to the cache hooks.
const (
	keyTypeGraph      = "graph"
	keyTypeArtifact   = "artifact"
	keyTypeGeneration = "generation"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and server use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger. Every call builds
// its own graph, so multiple goroutines can safely share one Runner.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete build → layout → render pipeline with caching.
//
// name identifies the repository in cache keys and must be stable across
// calls. The repository's references are always read; when nothing moved
// and every requested artifact is cached, no commit is read at all.
func (r *Runner) Execute(ctx context.Context, name string, repo walk.Repository, opts Options) (*Result, error) {
	if err := errors.ValidateRepoName(name); err != nil {
		return nil, err
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	r.applyLogger(&opts)

	graphKey, err := r.GraphKey(ctx, name, repo, opts)
	if err != nil {
		return nil, err
	}
	result := &Result{GraphKey: graphKey}

	if !opts.Refresh {
		if artifacts, ok := r.cachedArtifacts(ctx, graphKey, opts); ok {
			result.Artifacts = artifacts
			result.CacheInfo.RenderHit = true
			opts.Logger.Info("served from cache", "repo", name, "formats", opts.Formats)
			return result, nil
		}
	}

	cg, err := r.Build(ctx, name, repo, opts, &result.Stats)
	if err != nil {
		return nil, err
	}
	result.Graph = cg
	r.storeLayout(ctx, graphKey, cg)

	renderStart := time.Now()
	observability.Pipeline().OnRenderStart(ctx, opts.Formats)
	artifacts, err := Render(ctx, cg, opts)
	result.Stats.RenderTime = time.Since(renderStart)
	observability.Pipeline().OnRenderComplete(ctx, opts.Formats, result.Stats.RenderTime, err)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts

	opts.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	for format, data := range artifacts {
		r.set(ctx, keyTypeArtifact, r.Keyer.ArtifactKey(graphKey, opts.ArtifactKeyOpts(format)), data, cache.TTLArtifact)
	}
	return result, nil
}

// Build walks and lays out repo, reporting both stages to the pipeline hooks.
// stats may be nil.
func (r *Runner) Build(ctx context.Context, name string, repo walk.Repository, opts Options, stats *Stats) (*walk.CommitGraph, error) {
	r.applyLogger(&opts)
	if stats == nil {
		stats = &Stats{}
	}
	hooks := observability.Pipeline()

	buildStart := time.Now()
	hooks.OnBuildStart(ctx, name)
	cg, err := walk.BuildGraph(ctx, repo, opts.WalkOptions())
	stats.BuildTime = time.Since(buildStart)
	if err != nil {
		hooks.OnBuildComplete(ctx, name, 0, stats.BuildTime, err)
		return nil, classify(err, "build graph")
	}
	hooks.OnBuildComplete(ctx, name, cg.Len(), stats.BuildTime, nil)
	stats.Commits = cg.Len()
	stats.Truncated = cg.Truncated

	opts.Logger.Info("built graph",
		"repo", name,
		"commits", cg.Len(),
		"truncated", cg.Truncated,
		"duration", stats.BuildTime)

	layoutStart := time.Now()
	err = cg.Layout(opts.RowOffset)
	stats.LayoutTime = time.Since(layoutStart)
	hooks.OnLayoutComplete(ctx, cg.Columns(), cg.Len(), stats.LayoutTime, err)
	if err != nil {
		return nil, classify(err, "layout")
	}
	stats.Columns = cg.Columns()

	opts.Logger.Info("computed layout",
		"cells", cg.Len(),
		"columns", cg.Columns(),
		"duration", stats.LayoutTime)

	return cg, nil
}

// GraphKey derives the cache key of repo's current state under opts.
func (r *Runner) GraphKey(ctx context.Context, name string, repo walk.Repository, opts Options) (string, error) {
	tips, err := Tips(ctx, repo)
	if err != nil {
		return "", err
	}
	return r.Keyer.GraphKey(name, tips, opts.GraphKeyOpts(r.generation(ctx, name))), nil
}

// Invalidate drops every cached entry of a repository by rotating its
// generation token. Old entries expire on their own.
func (r *Runner) Invalidate(ctx context.Context, name string) error {
	token := uuid.NewString()
	if err := r.Cache.Set(ctx, r.Keyer.GenerationKey(name), []byte(token), cache.TTLGeneration); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "invalidate %s", name)
	}
	r.Logger.Debug("invalidated cache", "repo", name, "generation", token)
	return nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) generation(ctx context.Context, name string) string {
	data, hit := r.get(ctx, keyTypeGeneration, r.Keyer.GenerationKey(name))
	if !hit {
		return ""
	}
	return string(data)
}

// cachedArtifacts returns every requested format from the cache, or false if
// any one is missing.
func (r *Runner) cachedArtifacts(ctx context.Context, graphKey string, opts Options) (map[string][]byte, bool) {
	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		data, hit := r.get(ctx, keyTypeArtifact, r.Keyer.ArtifactKey(graphKey, opts.ArtifactKeyOpts(format)))
		if !hit {
			return nil, false
		}
		artifacts[format] = data
	}
	return artifacts, true
}

func (r *Runner) storeLayout(ctx context.Context, graphKey string, cg *walk.CommitGraph) graph.Layout {
	l := layoutOf(cg)
	if data, err := graph.MarshalLayout(l); err == nil {
		r.set(ctx, keyTypeGraph, graphKey, data, cache.TTLGraph)
	}
	return l
}

func layoutOf(cg *walk.CommitGraph) graph.Layout {
	l := graph.FromGraph(cg.Graph, cg.Primary, cg.Head)
	l.Truncated = cg.Truncated
	return l
}

// get reads a cache entry. Backend failures count as misses.
func (r *Runner) get(ctx context.Context, keyType, key string) ([]byte, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "key", key, "error", err)
	}
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, keyType)
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, keyType)
	return data, true
}

func (r *Runner) set(ctx context.Context, keyType, key string, data []byte, ttl time.Duration) {
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Warn("cache write failed", "key", key, "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
