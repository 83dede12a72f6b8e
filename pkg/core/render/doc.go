// Package render projects the laid-out visible tree into a drawable scene.
//
// [Project] joins three inputs that are computed independently:
//
//	tree.Snapshot  - node content and expansion/loading/error flags
//	tree.View      - which nodes and edges are visible
//	layout.Layout  - where each visible node sits
//
// into a [Scene]: one [NodeRecord] per visible node and one [EdgeRecord] per
// visible edge. A scene holds no references back into the store, so it can
// be serialized (see [WriteScene]), handed to another goroutine, or rendered
// by the nodelink sub-package.
package render
