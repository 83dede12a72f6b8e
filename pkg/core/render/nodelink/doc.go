// Package nodelink exports a [render.Scene] as a node-and-edge diagram using
// Graphviz.
//
// The scene already carries final positions, so Graphviz is used only to
// draw: every node is pinned with pos="x,y!" and the neato engine keeps
// pinned nodes where they are. The DOT text is the intermediate form:
//
//	Scene → ToDOT() → DOT → RenderSVG() / RenderPNG() / RenderPDF()
//
// Scene y grows downward while Graphviz y grows upward, so y is negated on
// export. Both use points at 72 per inch; node sizes are converted to inches.
//
// # Usage
//
//	sc := render.Project(snap, view, lay)
//	dot := nodelink.ToDOT(sc, nodelink.Options{Detailed: true})
//	svg, _ := nodelink.RenderSVG(dot)
//
// Collapsed nodes that have children get a "+" marker, expanded ones a "−".
// Loading nodes are drawn dashed; nodes whose last expansion failed are
// outlined in red.
package nodelink
