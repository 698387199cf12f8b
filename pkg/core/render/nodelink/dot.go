package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/gitlanes/pkg/core/dag"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds the subject line, author and lane to node labels.
	// When false, only the short commit ID and branch names are shown.
	Detailed bool

	// Palette colors nodes by lane. Empty means black outlines only.
	Palette []string
}

// ToDOT converts a laid out commit graph to Graphviz DOT format.
// The resulting DOT string can be rendered using [RenderSVG].
//
// Commits keep their row order as ranks. Merges are drawn as circles, local
// only commits with dashed outlines, prunable commits in grey, and parents
// that were never added as small point nodes.
func ToDOT(g *dag.Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontname=monospace, fontsize=12];\n")
	buf.WriteString("  edge [arrowhead=none];\n")
	buf.WriteString("  ranksep=0.3;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, c := range g.Cells() {
		attrs := fmtAttrs(c, fmtLabel(c, opts.Detailed), opts.Palette)
		fmt.Fprintf(&buf, "  %q [%s];\n", c.ID(), strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	dangling := make(map[string]bool)
	for _, e := range g.Edges() {
		if e.Dangling && !dangling[e.Parent] {
			dangling[e.Parent] = true
			fmt.Fprintf(&buf, "  %q [shape=point, label=\"\"];\n", e.Parent)
		}
		style := ""
		if e.Index > 0 {
			style = " [style=dashed]"
		}
		fmt.Fprintf(&buf, "  %q -> %q%s;\n", e.Child, e.Parent, style)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// fmtLabel builds a node label from raw text. Commit messages are stored
// escaped, so they are unescaped before DOT quoting.
func fmtLabel(c *dag.Cell, detailed bool) string {
	lines := []string{c.Commit.ShortID()}
	if len(c.BranchNames) > 0 {
		lines[0] += " (" + strings.Join(c.BranchNames, ", ") + ")"
	}
	if detailed {
		lines = append(lines,
			html.UnescapeString(c.Commit.Subject()),
			fmt.Sprintf("author: %s", c.Commit.Author),
			fmt.Sprintf("lane: %d", c.Column),
		)
	}
	return strings.Join(lines, "\n")
}

func fmtAttrs(c *dag.Cell, label string, palette []string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if c.IsMerge() {
		attrs = append(attrs, "shape=circle", "fixedsize=false")
	}
	style := "rounded,filled"
	if c.LocalOnly {
		style += ",dashed"
	}
	attrs = append(attrs, fmt.Sprintf("style=%q", style))
	if len(palette) > 0 {
		attrs = append(attrs, fmt.Sprintf("color=%q", palette[c.Commit.Color%len(palette)]))
	}
	if c.Prunable {
		attrs = append(attrs, "fillcolor=lightgrey", "fontcolor=grey40")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-based svg header with a plain
// viewBox so the output scales like the lane renderer's.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	header := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(header))
}
