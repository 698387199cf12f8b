package nodelink_test

import (
	"fmt"
	"strings"
	"time"

	"github.com/matzehuels/gitlanes/pkg/core/dag"
	"github.com/matzehuels/gitlanes/pkg/core/render/nodelink"
)

func ExampleToDOT() {
	g := dag.New()
	_ = g.AddReference("refs/heads/main", "c2")
	when := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, _ = g.AddCommit(dag.NewCommit("c2", []string{"c1"}, "second", "ann", when.Add(time.Hour)), "refs/heads/main", "")
	_, _ = g.AddCommit(dag.NewCommit("c1", nil, "first", "ann", when), "refs/heads/main", "")
	_ = g.DoLayout("refs/heads/main", 0)

	dot := nodelink.ToDOT(g, nodelink.Options{})
	for _, line := range strings.Split(dot, "\n") {
		if strings.Contains(line, "->") {
			fmt.Println(strings.TrimSpace(line))
		}
	}
	// Output:
	// "c2" -> "c1";
}
