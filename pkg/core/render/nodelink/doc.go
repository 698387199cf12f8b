// Package nodelink draws a commit graph as a plain node-and-edge diagram
// using Graphviz.
//
// The lane renderer in render/geometry computes every coordinate itself.
// nodelink instead hands Graphviz a DOT description and lets its dot engine
// place the nodes, which is useful for inspecting odd histories where lane
// assignment gets in the way:
//
//	Lanes:    Graph → geometry.Render() → scene → sink.RenderSVG() → SVG
//	Nodelink: Graph → ToDOT() → DOT → RenderSVG() → SVG
//
// Edges point from a commit to its parents. Second and later parents of a
// merge are dashed.
//
// # Usage
//
//	dot := nodelink.ToDOT(g, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
package nodelink
