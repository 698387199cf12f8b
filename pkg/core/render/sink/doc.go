// Package sink serializes rendered scene documents.
//
// [RenderSVG] writes standalone SVG markup, with optional interaction script
// and extra CSS passed as [SVGOption] values. [RenderJSON] emits the element
// tree for clients that draw it themselves. [ToPNG] and [ToPDF] rasterize SVG
// through the rsvg-convert executable.
//
// Text elements of a scene hold markup-escaped content and are written
// verbatim; every attribute value is escaped on output.
package sink
