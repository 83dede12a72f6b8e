package nodelink_test

import (
	"fmt"
	"strings"

	"github.com/matzehuels/docmap/pkg/core/render"
	"github.com/matzehuels/docmap/pkg/core/render/nodelink"
)

func ExampleToDOT() {
	sc := render.Scene{
		RootID: "root",
		Nodes: []render.NodeRecord{
			{ID: "root", Width: 250, Height: 80, Title: "Report"},
		},
	}

	dot := nodelink.ToDOT(sc, nodelink.Options{})
	for _, line := range strings.Split(dot, "\n") {
		if strings.HasPrefix(line, `  "root"`) {
			fmt.Println(strings.TrimSpace(line))
		}
	}
	// Output:
	// "root" [label="Report", pos="0,0!", width=3.472, height=1.111];
}
