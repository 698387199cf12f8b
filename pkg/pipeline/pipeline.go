// Package pipeline provides the build → layout → render pipeline for gitlanes.
//
// The CLI, the HTTP server and the interactive browser all go through this
// package, so a graph drawn by one looks exactly like the same graph drawn by
// another.
//
// # Stages
//
//  1. Build: walk the repository's references into a commit graph
//  2. Layout: assign columns and compact rows
//  3. Render: produce SVG, scene JSON, grid JSON, DOT, PNG or PDF
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, "gitlanes", repo, pipeline.Options{
//	    Formats:  []string{pipeline.FormatSVG},
//	    RowLimit: 50,
//	})
//	if err != nil {
//	    return err
//	}
//	svg := result.Artifacts[pipeline.FormatSVG]
//
// Cached artifacts are keyed by the tips of every reference plus the
// options, so a runner never serves a drawing of a history that has moved.
package pipeline

import (
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gitlanes/pkg/cache"
	"github.com/matzehuels/gitlanes/pkg/core/render/geometry"
	"github.com/matzehuels/gitlanes/pkg/core/walk"
	"github.com/matzehuels/gitlanes/pkg/errors"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Server
// =============================================================================

const (
	// DefaultRowLimit is the page size used by the server and the browser.
	// The CLI renders every row unless told otherwise.
	DefaultRowLimit = 100

	// DefaultMaxCommits bounds traversal for served repositories.
	DefaultMaxCommits = 5000

	// DefaultScale is the PNG resolution multiplier.
	DefaultScale = 2.0

	// DefaultStyle is the default palette.
	DefaultStyle = StyleColor
)

// Format constants for output formats.
const (
	FormatSVG      = "svg"      // lane graph as SVG
	FormatJSON     = "json"     // lane graph as scene document JSON
	FormatLayout   = "layout"   // cell grid JSON
	FormatDOT      = "dot"      // Graphviz source
	FormatNodelink = "nodelink" // Graphviz-rendered SVG
	FormatPNG      = "png"
	FormatPDF      = "pdf"
)

// Formats lists every supported output format.
var Formats = []string{FormatSVG, FormatJSON, FormatLayout, FormatDOT, FormatNodelink, FormatPNG, FormatPDF}

// Style constants pick the lane palette.
const (
	StyleColor = "color"
	StyleMono  = "mono"
)

// Styles lists every supported style.
var Styles = []string{StyleColor, StyleMono}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one pipeline run.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Build options
	OnlyLocal              bool   `json:"only_local,omitempty"`
	AlwaysShowPrimaryFirst bool   `json:"primary_first,omitempty"`
	PrimaryBranch          string `json:"primary_branch,omitempty"`
	MaxCommits             int    `json:"max_commits,omitempty"`
	RowOffset              int    `json:"row_offset,omitempty"` // absolute row of the newest commit
	Refresh                bool   `json:"refresh,omitempty"`

	// Render options
	Formats            []string `json:"formats,omitempty"`
	RowStart           int      `json:"row_start,omitempty"`
	RowLimit           int      `json:"row_limit,omitempty"`
	HideComplexHistory bool     `json:"hide_complex,omitempty"`
	HideMessages       bool     `json:"hide_messages,omitempty"`
	Highlight          string   `json:"highlight,omitempty"` // commit ID, unique prefix or reference name
	Style              string   `json:"style,omitempty"`
	Interactive        bool     `json:"interactive,omitempty"`
	Detailed           bool     `json:"detailed,omitempty"` // nodelink labels with subject and author
	Title              string   `json:"title,omitempty"`
	LaneWidth          int      `json:"lane_width,omitempty"`
	LoopSpacing        int      `json:"loop_spacing,omitempty"`
	NodeHeight         int      `json:"node_height,omitempty"`
	NodeMargin         int      `json:"node_margin,omitempty"`
	Scale              float64  `json:"scale,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Graph is the built commit graph. It is nil when every artifact came
	// from the cache.
	Graph *walk.CommitGraph

	// GraphKey identifies the references and build options the artifacts
	// were drawn from.
	GraphKey string

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Commits    int
	Columns    int
	Truncated  bool
	BuildTime  time.Duration
	LayoutTime time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	LayoutHit bool // Whether the grid came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormats checks that all formats are supported.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := errors.ValidateFormat(f, Formats); err != nil {
			return err
		}
	}
	return nil
}

// ValidateStyle checks that a style is supported.
func ValidateStyle(style string) error {
	if !slices.Contains(Styles, style) {
		return errors.New(errors.ErrCodeInvalidInput, "invalid style: %q (must be one of: color, mono)", style)
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks fields and applies defaults. It is
// idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.Style == "" {
		o.Style = DefaultStyle
	}
	if o.Scale == 0 {
		o.Scale = DefaultScale
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if err := ValidateStyle(o.Style); err != nil {
		return err
	}
	switch {
	case o.RowStart < 0:
		return errors.New(errors.ErrCodeInvalidInput, "row_start must not be negative")
	case o.RowLimit < 0:
		return errors.New(errors.ErrCodeInvalidInput, "row_limit must not be negative")
	case o.MaxCommits < 0:
		return errors.New(errors.ErrCodeInvalidInput, "max_commits must not be negative")
	case o.RowOffset < 0:
		return errors.New(errors.ErrCodeInvalidInput, "row_offset must not be negative")
	case o.Scale < 0 || o.Scale > 10:
		return errors.New(errors.ErrCodeInvalidInput, "scale must be between 0 and 10")
	}
	if o.Highlight != "" {
		if err := errors.ValidateRefName(o.Highlight); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid highlight")
		}
	}
	if o.PrimaryBranch != "" {
		if err := errors.ValidateRefName(o.PrimaryBranch); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid primary branch")
		}
	}
	return nil
}

// WalkOptions returns the traversal options.
func (o *Options) WalkOptions() walk.Options {
	return walk.Options{
		OnlyLocal:              o.OnlyLocal,
		AlwaysShowPrimaryFirst: o.AlwaysShowPrimaryFirst,
		PrimaryBranch:          o.PrimaryBranch,
		MaxCommits:             o.MaxCommits,
	}
}

// GeometryOptions returns the lane renderer options. highlight is the
// resolved commit ID.
func (o *Options) GeometryOptions(highlight string) geometry.Options {
	g := geometry.Options{
		LaneWidth:          o.LaneWidth,
		LoopSpacing:        o.LoopSpacing,
		NodeHeight:         o.NodeHeight,
		NodeMargin:         o.NodeMargin,
		RowStart:           o.RowStart,
		RowLimit:           o.RowLimit,
		HideComplexHistory: o.HideComplexHistory,
		HideMessages:       o.HideMessages,
		Highlight:          highlight,
	}
	if o.Style == StyleMono {
		g.Palette = geometry.MonoPalette
	}
	return g
}

// GraphKeyOpts returns cache key options for the grid.
func (o *Options) GraphKeyOpts(generation string) cache.GraphKeyOpts {
	return cache.GraphKeyOpts{
		Generation:             generation,
		OnlyLocal:              o.OnlyLocal,
		AlwaysShowPrimaryFirst: o.AlwaysShowPrimaryFirst,
		PrimaryBranch:          o.PrimaryBranch,
		MaxCommits:             o.MaxCommits,
		RowOffset:              o.RowOffset,
	}
}

// ArtifactKeyOpts returns cache key options for one rendered format.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:             format,
		RowStart:           o.RowStart,
		RowLimit:           o.RowLimit,
		HideComplexHistory: o.HideComplexHistory,
		HideMessages:       o.HideMessages,
		Highlight:          o.Highlight,
		Style:              o.Style,
		Interactive:        o.Interactive,
		Detailed:           o.Detailed,
		Title:              o.Title,
		LaneWidth:          o.LaneWidth,
		LoopSpacing:        o.LoopSpacing,
		NodeHeight:         o.NodeHeight,
		NodeMargin:         o.NodeMargin,
		Scale:              o.Scale,
	}
}
