package graph

import (
	"time"
)

// =============================================================================
// Constants - Single Source of Truth
// =============================================================================

// Visualization types.
const (
	VizTypeLanes    = "lanes"
	VizTypeNodelink = "nodelink"
)

// Visual styles for rendering.
const (
	StyleDefault = "default"
	StyleMono    = "mono"
)

// =============================================================================
// History - Repository Snapshot
// =============================================================================

// History is a self-contained snapshot of a repository's references and
// commits. It is the fixture format read by pkg/repo/fixture and written by
// the export command, in JSON or YAML.
type History struct {
	Head     Head     `json:"head" yaml:"head"`
	Branches []Branch `json:"branches" yaml:"branches"`
	Tags     []Tag    `json:"tags,omitempty" yaml:"tags,omitempty"`
	Commits  []Commit `json:"commits" yaml:"commits"`
}

// Head is the checkout position.
type Head struct {
	// Name is the full branch name, or "HEAD" when detached.
	Name string `json:"name" yaml:"name"`
	// Target is the checked out commit. Required when detached.
	Target string `json:"target,omitempty" yaml:"target,omitempty"`
}

// Branch is a local or remote-tracking branch.
type Branch struct {
	Name     string `json:"name" yaml:"name"`
	Target   string `json:"target" yaml:"target"`
	Upstream string `json:"upstream,omitempty" yaml:"upstream,omitempty"`
	Prunable bool   `json:"prunable,omitempty" yaml:"prunable,omitempty"`
}

// Tag is a tag pointing at a commit.
type Tag struct {
	Name   string `json:"name" yaml:"name"`
	Target string `json:"target" yaml:"target"`
}

// Commit is an unescaped commit record.
type Commit struct {
	ID      string    `json:"id" yaml:"id"`
	Parents []string  `json:"parents,omitempty" yaml:"parents,omitempty"`
	Message string    `json:"message" yaml:"message"`
	Author  string    `json:"author,omitempty" yaml:"author,omitempty"`
	Time    time.Time `json:"time" yaml:"time"`
}
