// Package pkg provides the core libraries for gitlanes commit graph drawing.
//
// # Overview
//
// gitlanes walks the history of a git repository, assigns every commit a row
// and a column ("lane") and draws the result. The pkg directory is organized
// into four main areas:
//
//  1. [core] - Domain logic (history walk, lane assignment, rendering)
//  2. [repo] - Repository collaborators (go-git, git executable, snapshots)
//  3. [pipeline] - Orchestration (walk → layout → render) with caching
//  4. [graph] - Serialization types for layouts and history snapshots
//
// # Architecture
//
// The typical data flow through gitlanes:
//
//	Repository (working tree or snapshot)
//	         ↓
//	    [core/walk] package (order references, walk commits)
//	         ↓
//	    [core/dag] package (commit cells, columns, folding, pruning)
//	         ↓
//	    [core/render] package (geometry → scene → SVG/JSON/DOT/PNG/PDF)
//
// # Quick Start
//
// Render the repository in the current directory:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/gitlanes/pkg/cache"
//	    "github.com/matzehuels/gitlanes/pkg/pipeline"
//	    "github.com/matzehuels/gitlanes/pkg/repo/gogit"
//	)
//
//	repo, _ := gogit.Open(".")
//	runner := pipeline.NewRunner(cache.NewNullCache(), nil, nil)
//	result, _ := runner.Execute(context.Background(), "myrepo", repo, pipeline.Options{
//	    Formats:  []string{pipeline.FormatSVG},
//	    RowLimit: 50,
//	})
//	svg := result.Artifacts[pipeline.FormatSVG]
//
// # Main Packages
//
// ## Core Domain Logic
//
// [core/walk] - Reads references and commits through the [walk.Repository]
// interface and builds the commit graph, primary branch first when asked.
//
// [core/dag] - Commit cells on a row/column grid. Tracks which branches pass
// through each commit, folds merged history and prunes hidden rows.
//
// [core/lanes] - Per-column row occupancy backed by bit sets; answers "is
// anything drawn in this column between these rows?" for edge routing.
//
// [core/loops] - Places the loops that route edges around occupied lanes.
//
// [core/render] - Visualization:
//
//   - [render/geometry]: Positions markers, edges, loops and labels
//   - [render/scene]: Format-neutral element tree
//   - [render/sink]: Output formats (SVG, JSON, PNG, PDF)
//   - [render/nodelink]: Graphviz DOT and Graphviz-rendered SVG
//
// ## Infrastructure
//
// [cache] - Byte caches keyed by repository, reference tips and options:
// file (CLI), Redis and MongoDB (shared servers) and a null cache.
//
// [observability] - Hooks for pipeline, cache and server events, with a
// Prometheus implementation in [observability/prom].
//
// [errors] - Coded errors shared by the pipeline, CLI and HTTP server.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/core/dag/...           # Specific package
//	go test -run Example                 # Examples only
//
// [core]: https://pkg.go.dev/github.com/matzehuels/gitlanes/pkg/core
// [core/walk]: https://pkg.go.dev/github.com/matzehuels/gitlanes/pkg/core/walk
// [core/dag]: https://pkg.go.dev/github.com/matzehuels/gitlanes/pkg/core/dag
// [core/lanes]: https://pkg.go.dev/github.com/matzehuels/gitlanes/pkg/core/lanes
// [core/loops]: https://pkg.go.dev/github.com/matzehuels/gitlanes/pkg/core/loops
// [core/render]: https://pkg.go.dev/github.com/matzehuels/gitlanes/pkg/core/render
// [render/geometry]: https://pkg.go.dev/github.com/matzehuels/gitlanes/pkg/core/render/geometry
// [render/scene]: https://pkg.go.dev/github.com/matzehuels/gitlanes/pkg/core/render/scene
// [render/sink]: https://pkg.go.dev/github.com/matzehuels/gitlanes/pkg/core/render/sink
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/gitlanes/pkg/core/render/nodelink
// [repo]: https://pkg.go.dev/github.com/matzehuels/gitlanes/pkg/repo
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/gitlanes/pkg/pipeline
// [graph]: https://pkg.go.dev/github.com/matzehuels/gitlanes/pkg/graph
// [cache]: https://pkg.go.dev/github.com/matzehuels/gitlanes/pkg/cache
// [observability]: https://pkg.go.dev/github.com/matzehuels/gitlanes/pkg/observability
// [observability/prom]: https://pkg.go.dev/github.com/matzehuels/gitlanes/pkg/observability/prom
// [errors]: https://pkg.go.dev/github.com/matzehuels/gitlanes/pkg/errors
// [walk.Repository]: https://pkg.go.dev/github.com/matzehuels/gitlanes/pkg/core/walk#Repository
package pkg
