package pipeline

import (
	"context"
	stderrors "errors"

	"github.com/matzehuels/gitlanes/pkg/core/dag"
	"github.com/matzehuels/gitlanes/pkg/core/render/geometry"
	"github.com/matzehuels/gitlanes/pkg/core/render/nodelink"
	"github.com/matzehuels/gitlanes/pkg/core/render/scene"
	"github.com/matzehuels/gitlanes/pkg/core/render/sink"
	"github.com/matzehuels/gitlanes/pkg/core/walk"
	"github.com/matzehuels/gitlanes/pkg/errors"
	"github.com/matzehuels/gitlanes/pkg/graph"
)

// monoBackground keeps black ink readable in dark viewers.
const monoBackground = "#ffffff"

// Render generates output artifacts in the requested formats from a laid
// out graph.
func Render(ctx context.Context, cg *walk.CommitGraph, opts Options) (map[string][]byte, error) {
	highlight, err := ResolveHighlight(cg.Graph, opts.Highlight)
	if err != nil {
		return nil, err
	}

	r := &renderer{cg: cg, opts: opts, highlight: highlight}
	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		if _, done := artifacts[format]; done {
			continue
		}
		data, err := r.render(ctx, format)
		if err != nil {
			return nil, err
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

// ResolveHighlight turns a commit ID, unique ID prefix or reference name into
// a full commit ID. An empty value resolves to "".
func ResolveHighlight(g *dag.Graph, value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if id, ok := g.Resolve(value); ok {
		return id, nil
	}
	target, err := g.Target(value)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeNotFound, err, "highlight %q matches no commit", value)
	}
	return target, nil
}

// renderer shares intermediate results between formats of one run.
type renderer struct {
	cg        *walk.CommitGraph
	opts      Options
	highlight string

	doc *scene.Document
	svg []byte
	dot string
}

func (r *renderer) render(ctx context.Context, format string) ([]byte, error) {
	switch format {
	case FormatSVG:
		return r.laneSVG(), nil
	case FormatJSON:
		data, err := sink.RenderJSON(r.scene())
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode scene")
		}
		return data, nil
	case FormatLayout:
		data, err := graph.MarshalLayout(layoutOf(r.cg))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode layout")
		}
		return data, nil
	case FormatDOT:
		return []byte(r.dotSource()), nil
	case FormatNodelink:
		data, err := nodelink.RenderSVG(ctx, r.dotSource())
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "render nodelink")
		}
		return data, nil
	case FormatPNG:
		data, err := sink.ToPNG(ctx, r.laneSVG(), r.opts.Scale)
		return data, convertErr(err, format)
	case FormatPDF:
		data, err := sink.ToPDF(ctx, r.laneSVG())
		return data, convertErr(err, format)
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported format: %s", format)
	}
}

func (r *renderer) scene() *scene.Document {
	if r.doc == nil {
		r.doc = geometry.Render(r.cg.Graph, r.opts.GeometryOptions(r.highlight))
	}
	return r.doc
}

func (r *renderer) laneSVG() []byte {
	if r.svg == nil {
		r.svg = sink.RenderSVG(r.scene(), r.svgOptions()...)
	}
	return r.svg
}

func (r *renderer) svgOptions() []sink.SVGOption {
	var opts []sink.SVGOption
	if r.opts.Title != "" {
		opts = append(opts, sink.WithTitle(r.opts.Title))
	}
	if r.opts.Interactive {
		opts = append(opts, sink.WithInteraction())
	}
	if r.opts.Style == StyleMono {
		opts = append(opts, sink.WithBackground(monoBackground))
	}
	return opts
}

func (r *renderer) dotSource() string {
	if r.dot == "" {
		var palette []string
		if r.opts.Style != StyleMono {
			palette = geometry.DefaultPalette
		}
		r.dot = nodelink.ToDOT(r.cg.Graph, nodelink.Options{Detailed: r.opts.Detailed, Palette: palette})
	}
	return r.dot
}

func convertErr(err error, format string) error {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, sink.ErrConverterMissing):
		return errors.Wrap(errors.ErrCodeUnsupported, err, "%s output needs rsvg-convert", format)
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.Wrap(errors.ErrCodeTimeout, err, "convert to %s", format)
	default:
		return errors.Wrap(errors.ErrCodeInternal, err, "convert to %s", format)
	}
}
