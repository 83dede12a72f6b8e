// Package layout assigns 2-D positions to the visible nodes of a tree.
//
// The algorithm is a two-pass tidy layout over a [tree.View]:
//
//  1. Subtree width, bottom-up. A leaf is [Geometry.NodeWidth] wide; an inner
//     node is the sum of its children's widths plus HorizontalSpacing between
//     each pair, never less than NodeWidth.
//  2. Placement, top-down. The root sits at (0, 0). A node's children share a
//     row of total width equal to the node's subtree width, starting at
//     x - width/2; each child is centered in its own slot, one level down at
//     y + NodeHeight + VerticalSpacing.
//
// Positions are node centers. Because each child's slot lies inside its
// parent's slot, boxes on the same row never overlap and every parent sits
// centered over the span of its children.
//
// Layout is recomputed from scratch on every change; it holds no state
// between calls.
package layout
