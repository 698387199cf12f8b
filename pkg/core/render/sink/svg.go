package sink

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/matzehuels/gitlanes/pkg/core/render/scene"
)

const defaultCSS = `
    .gitlanes { font-family: ui-monospace, SFMono-Regular, Menlo, monospace; font-size: 11px; }
    .edge { fill: none; stroke-linecap: round; }
    .commit { cursor: pointer; }
    .commit:hover > rect, .commit:hover > circle:first-child { stroke-width: 3; }
    .message { fill: #24292f; dominant-baseline: middle; }
    .branch-label text, .pager text { dominant-baseline: middle; }`

const highlightJS = `
    document.querySelectorAll('.commit').forEach(el => {
      el.addEventListener('click', () => {
        const id = el.dataset.id;
        document.querySelectorAll('.commit').forEach(c => c.classList.toggle('highlight', c.dataset.id === id));
        el.dispatchEvent(new CustomEvent('gitlanes:select', { bubbles: true, detail: { id } }));
      });
    });`

// SVGOption configures [RenderSVG].
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	css         string
	interactive bool
	background  string
	title       string
}

// WithCSS appends style rules after the default ones.
func WithCSS(css string) SVGOption { return func(r *svgRenderer) { r.css += "\n" + css } }

// WithInteraction embeds a script that toggles the highlight on click.
func WithInteraction() SVGOption { return func(r *svgRenderer) { r.interactive = true } }

// WithBackground fills the canvas before drawing.
func WithBackground(color string) SVGOption { return func(r *svgRenderer) { r.background = color } }

// WithTitle sets the document title.
func WithTitle(title string) SVGOption { return func(r *svgRenderer) { r.title = title } }

// RenderSVG serializes a scene document as standalone SVG markup.
func RenderSVG(doc *scene.Document, opts ...SVGOption) []byte {
	r := svgRenderer{css: defaultCSS}
	for _, opt := range opts {
		opt(&r)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %s %s" width="%.0f" height="%.0f">`+"\n",
		num(doc.Width), num(doc.Height), doc.Width, doc.Height)
	if r.title != "" {
		fmt.Fprintf(&buf, "  <title>%s</title>\n", EscapeXML(r.title))
	}
	fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", r.css)
	if r.background != "" {
		fmt.Fprintf(&buf, `  <rect width="100%%" height="100%%" fill="%s"/>`+"\n", EscapeXML(r.background))
	}

	if doc.Root != nil {
		var defs []*scene.Element
		for _, c := range doc.Root.Children {
			if c.Kind == scene.KindClipPath {
				defs = append(defs, c)
			}
		}
		if len(defs) > 0 {
			buf.WriteString("  <defs>\n")
			for _, d := range defs {
				writeElement(&buf, d, 2)
			}
			buf.WriteString("  </defs>\n")
		}
		writeElement(&buf, doc.Root, 1)
	}

	if r.interactive {
		fmt.Fprintf(&buf, "  <script>%s\n  </script>\n", highlightJS)
	}
	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

// writeElement emits e and its children. Clip paths are emitted once, inside
// defs, so they are skipped when met again in the tree.
func writeElement(buf *bytes.Buffer, e *scene.Element, depth int) {
	indent := bytes.Repeat([]byte("  "), depth)
	buf.Write(indent)

	switch e.Kind {
	case scene.KindGroup:
		buf.WriteString("<g")
		writeCommon(buf, e)
		buf.WriteString(">\n")
		for _, c := range e.Children {
			if c.Kind == scene.KindClipPath {
				continue
			}
			writeElement(buf, c, depth+1)
		}
		buf.Write(indent)
		buf.WriteString("</g>\n")
		return

	case scene.KindClipPath:
		fmt.Fprintf(buf, `<clipPath id="%s">`+"\n", EscapeXML(e.ID))
		for _, c := range e.Children {
			writeElement(buf, c, depth+1)
		}
		buf.Write(indent)
		buf.WriteString("</clipPath>\n")
		return

	case scene.KindPath:
		fmt.Fprintf(buf, `<path d="%s"`, e.D)
	case scene.KindRect:
		fmt.Fprintf(buf, `<rect x="%s" y="%s" width="%s" height="%s"`, num(e.X), num(e.Y), num(e.Width), num(e.Height))
		if e.Radius > 0 {
			fmt.Fprintf(buf, ` rx="%s"`, num(e.Radius))
		}
	case scene.KindCircle:
		fmt.Fprintf(buf, `<circle cx="%s" cy="%s" r="%s"`, num(e.X), num(e.Y), num(e.Radius))
	case scene.KindText:
		fmt.Fprintf(buf, `<text x="%s" y="%s"`, num(e.X), num(e.Y))
		if e.Anchor != "" {
			fmt.Fprintf(buf, ` text-anchor="%s"`, e.Anchor)
		}
		writeCommon(buf, e)
		// Text content is stored escaped.
		fmt.Fprintf(buf, ">%s</text>\n", e.Text)
		return
	}
	writeCommon(buf, e)
	buf.WriteString("/>\n")
}

func writeCommon(buf *bytes.Buffer, e *scene.Element) {
	if e.ID != "" && e.Kind != scene.KindClipPath {
		fmt.Fprintf(buf, ` id="%s"`, EscapeXML(e.ID))
	}
	if e.Class != "" {
		fmt.Fprintf(buf, ` class="%s"`, EscapeXML(e.Class))
	}
	if e.Fill != "" {
		fmt.Fprintf(buf, ` fill="%s"`, EscapeXML(e.Fill))
	}
	if e.Stroke != "" {
		fmt.Fprintf(buf, ` stroke="%s"`, EscapeXML(e.Stroke))
	}
	if e.StrokeWidth > 0 {
		fmt.Fprintf(buf, ` stroke-width="%s"`, num(e.StrokeWidth))
	}
	if e.Dash != "" {
		fmt.Fprintf(buf, ` stroke-dasharray="%s"`, EscapeXML(e.Dash))
	}
	if e.Opacity > 0 {
		fmt.Fprintf(buf, ` opacity="%s"`, num(e.Opacity))
	}
	if e.ClipPath != "" {
		fmt.Fprintf(buf, ` clip-path="url(#%s)"`, EscapeXML(e.ClipPath))
	}
	for _, k := range slices.Sorted(maps.Keys(e.Data)) {
		fmt.Fprintf(buf, ` data-%s="%s"`, k, EscapeXML(e.Data[k]))
	}
}

// EscapeXML escapes s for use in attribute values and text nodes.
func EscapeXML(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
