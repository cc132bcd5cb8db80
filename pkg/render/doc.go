// Package render turns Graphviz DOT graphs into SVG.
//
// It serves two purposes: producing reference renderings from a DOT
// description of the sample input, and evaluating candidates in memory by
// injecting layout parameters into the DOT graph before rendering.
//
//	svg, err := render.RenderSVG(ctx, dot)
//
//	tuned, err := render.WithLayout(dot, set)
//	svg, err = render.RenderSVG(ctx, tuned)
//
// Graphviz runs in-process through goccy/go-graphviz; no dot binary is
// required.
package render
