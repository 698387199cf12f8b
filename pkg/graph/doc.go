// Package graph provides serialization types for commit histories and layouts.
//
// This package defines the canonical wire format for gitlanes data, used for
// fixture files, API responses, caching and exports.
//
// # Core Types
//
//   - [History]: a repository snapshot (head, branches, tags, raw commits),
//     readable as JSON or YAML
//   - [Layout]: a finished commit grid with rows, columns and display flags
//
// Use [FromGraph] to export a laid out pkg/core/dag.Graph.
//
// # Constants
//
// This package is the single source of truth for visualization constants:
//
//	graph.VizTypeLanes     // "lanes"
//	graph.VizTypeNodelink  // "nodelink"
//	graph.StyleDefault     // "default"
//	graph.StyleMono        // "mono"
package graph
