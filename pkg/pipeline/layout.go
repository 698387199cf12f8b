package pipeline

import (
	"context"

	"github.com/matzehuels/gitlanes/pkg/core/walk"
	"github.com/matzehuels/gitlanes/pkg/errors"
	"github.com/matzehuels/gitlanes/pkg/graph"
)

// =============================================================================
// Layout Stage
// =============================================================================

// LayoutWithCacheInfo returns the cell grid of repo's current state and
// whether it came from the cache. Render options in opts are ignored.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, name string, repo walk.Repository, opts Options) (graph.Layout, bool, error) {
	if err := errors.ValidateRepoName(name); err != nil {
		return graph.Layout{}, false, err
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return graph.Layout{}, false, err
	}
	r.applyLogger(&opts)

	graphKey, err := r.GraphKey(ctx, name, repo, opts)
	if err != nil {
		return graph.Layout{}, false, err
	}

	if !opts.Refresh {
		if data, hit := r.get(ctx, keyTypeGraph, graphKey); hit {
			cached, err := graph.UnmarshalLayout(data)
			if err == nil {
				return cached, true, nil
			}
			// If deserialization fails, fall through to rebuild
			r.Logger.Warn("discarding unreadable cached layout", "key", graphKey, "error", err)
		}
	}

	cg, err := r.Build(ctx, name, repo, opts, nil)
	if err != nil {
		return graph.Layout{}, false, err
	}
	return r.storeLayout(ctx, graphKey, cg), false, nil
}

// Layout is a convenience wrapper that calls LayoutWithCacheInfo and discards the cache hit info.
func (r *Runner) Layout(ctx context.Context, name string, repo walk.Repository, opts Options) (graph.Layout, error) {
	l, _, err := r.LayoutWithCacheInfo(ctx, name, repo, opts)
	return l, err
}
