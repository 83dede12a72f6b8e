package docservice

import (
	"github.com/matzehuels/docmap/pkg/mindmap"
)

// sampleTree is r -> a, b; b -> c; c -> d.
func sampleTree() mindmap.Tree {
	return mindmap.Tree{
		DocumentID: "report",
		RootID:     "r",
		Nodes: []mindmap.Node{
			{ID: "r", Title: "Report", FullContent: "everything", Kind: mindmap.KindRoot, ChildIDs: []string{"a", "b"}, HasChildren: true},
			{ID: "a", ParentID: "r", Title: "Intro", FullContent: "intro text", Kind: mindmap.KindSection, Depth: 1},
			{ID: "b", ParentID: "r", Title: "Method", FullContent: "method text", Kind: mindmap.KindSection, Depth: 1, ChildIDs: []string{"c"}, HasChildren: true},
			{ID: "c", ParentID: "b", Title: "Data", FullContent: "data text", Kind: mindmap.KindSubsection, Depth: 2, ChildIDs: []string{"d"}, HasChildren: true},
			{ID: "d", ParentID: "c", Title: "Tables", Kind: mindmap.KindTopic, Depth: 3},
		},
	}
}
