// Package authoring maps episode graphs to and from the canvas used by the
// visual editor.
//
// The canvas is a pure projection of a domain.Graph. Geometry lives in a
// Layout side table keyed by node id and never leaks into the graph, so
// FromVisual(ToVisual(g)) is structurally equivalent to g.
package authoring
