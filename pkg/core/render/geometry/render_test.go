package geometry

import (
	"fmt"
	"html"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/gitlanes/pkg/core/dag"
	"github.com/matzehuels/gitlanes/pkg/core/render/scene"
)

type node struct {
	id      string
	parents []string
}

// build adds commits in the given order and lays them out with primary
// pinned to column 0.
func build(t *testing.T, primary string, refs [][2]string, commits []node) *dag.Graph {
	t.Helper()
	g := dag.New()
	for _, r := range refs {
		if err := g.AddReference(r[0], r[1]); err != nil {
			t.Fatalf("AddReference(%s): %v", r[0], err)
		}
	}
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range commits {
		when := base.Add(time.Duration(len(commits)-i) * time.Minute)
		if _, err := g.AddCommit(dag.NewCommit(c.id, c.parents, "subject "+c.id, "dev", when), "", ""); err != nil {
			t.Fatalf("AddCommit(%s): %v", c.id, err)
		}
	}
	if err := g.DoLayout(primary, 0); err != nil {
		t.Fatalf("DoLayout: %v", err)
	}
	return g
}

func chain(n int) []node {
	out := make([]node, n)
	for i := range out {
		out[i].id = fmt.Sprintf("c%d", i)
		if i < n-1 {
			out[i].parents = []string{fmt.Sprintf("c%d", i+1)}
		}
	}
	return out
}

func edges(doc *scene.Document) map[string]*scene.Element {
	out := make(map[string]*scene.Element)
	for _, e := range doc.Root.Find(func(e *scene.Element) bool { return e.Kind == scene.KindPath && e.Data["parent"] != "" }) {
		out[e.Data["child"]+">"+e.Data["parent"]] = e
	}
	return out
}

func commitNodes(doc *scene.Document) map[string]*scene.Element {
	out := make(map[string]*scene.Element)
	for _, e := range doc.Root.Find(func(e *scene.Element) bool { return strings.HasPrefix(e.ID, "commit-") }) {
		out[e.Data["id"]] = e
	}
	return out
}

// octopus is a merge whose parents all end up in column 0, so every parent
// beyond the first needs a loop around the ones above it.
func octopus(t *testing.T) *dag.Graph {
	return build(t, "refs/heads/main",
		[][2]string{{"refs/heads/main", "m"}},
		[]node{{"m", []string{"a", "b", "c", "d"}}, {"a", nil}, {"b", nil}, {"c", nil}, {"d", nil}})
}

func TestStraightChain(t *testing.T) {
	g := build(t, "refs/heads/main", [][2]string{{"refs/heads/main", "c0"}}, chain(4))
	doc := Render(g, Options{})
	es := edges(doc)
	if len(es) != 3 {
		t.Fatalf("got %d edges, want 3", len(es))
	}
	for k, e := range es {
		if e.Data["route"] != "straight" {
			t.Errorf("edge %s route = %s, want straight", k, e.Data["route"])
		}
	}
}

func TestLoopsAroundIntervening(t *testing.T) {
	doc := Render(octopus(t), Options{})
	es := edges(doc)
	if r := es["m>a"].Data["route"]; r != "straight" {
		t.Errorf("m>a route = %s, want straight", r)
	}
	type slot struct{ side, depth string }
	seen := make(map[slot]string)
	deepest := 0
	for _, p := range []string{"b", "c", "d"} {
		e := es["m>"+p]
		if e.Data["route"] != "loop" {
			t.Fatalf("m>%s route = %s, want loop", p, e.Data["route"])
		}
		s := slot{e.Data["side"], e.Data["depth"]}
		if other, dup := seen[s]; dup {
			t.Errorf("loops m>%s and m>%s share side %s depth %s", other, p, s.side, s.depth)
		}
		seen[s] = p
		if s.depth != "0" {
			deepest++
		}
	}
	if deepest == 0 {
		t.Error("three overlapping loops fit without any nesting")
	}
}

func TestLoopsWidenColumns(t *testing.T) {
	plain := Render(build(t, "refs/heads/main", [][2]string{{"refs/heads/main", "c0"}}, chain(2)), Options{HideMessages: true})
	looped := Render(octopus(t), Options{HideMessages: true})
	if looped.Width <= plain.Width {
		t.Errorf("width with loops = %v, want more than %v", looped.Width, plain.Width)
	}
}

func TestHideComplexHistory(t *testing.T) {
	doc := Render(octopus(t), Options{HideComplexHistory: true})
	for k, e := range edges(doc) {
		if e.Data["route"] != "straight" {
			t.Errorf("edge %s route = %s, want straight", k, e.Data["route"])
		}
	}
}

func TestCrooks(t *testing.T) {
	t.Run("bottom", func(t *testing.T) {
		// t starts its own lane and joins main two rows further down.
		g := build(t, "refs/heads/main",
			[][2]string{{"refs/heads/main", "a"}, {"refs/heads/topic", "t"}},
			[]node{{"a", []string{"b"}}, {"t", []string{"c"}}, {"b", []string{"c"}}, {"c", nil}})
		if r := edges(Render(g, Options{}))["t>c"].Data["route"]; r != "bottom-crook" {
			t.Errorf("t>c route = %s, want bottom-crook", r)
		}
	})
	t.Run("top", func(t *testing.T) {
		// y reuses x's lane, so x has to drop into main's lane right away.
		g := build(t, "refs/heads/main",
			[][2]string{{"refs/heads/main", "a"}, {"refs/heads/x", "x"}, {"refs/heads/y", "y"}},
			[]node{{"a", []string{"c"}}, {"x", []string{"c"}}, {"y", nil}, {"c", nil}})
		if c, _ := g.Cell("y"); c.Column != 1 {
			t.Fatalf("column(y) = %d, want 1", c.Column)
		}
		es := edges(Render(g, Options{}))
		if r := es["x>c"].Data["route"]; r != "top-crook" {
			t.Errorf("x>c route = %s, want top-crook", r)
		}
		if r := es["a>c"].Data["route"]; r != "straight" {
			t.Errorf("a>c route = %s, want straight", r)
		}
	})
	t.Run("bend", func(t *testing.T) {
		g := build(t, "refs/heads/main",
			[][2]string{{"refs/heads/main", "m"}},
			[]node{{"m", []string{"a", "f"}}, {"f", []string{"a"}}, {"a", nil}})
		if r := edges(Render(g, Options{}))["m>f"].Data["route"]; r != "bend" {
			t.Errorf("m>f route = %s, want bend", r)
		}
	})
}

func TestDanglingParentStub(t *testing.T) {
	g := dag.New()
	_ = g.AddReference("refs/heads/main", "a")
	_, _ = g.AddCommit(dag.NewCommit("a", []string{"gone"}, "tip", "dev", time.Now()), "refs/heads/main", "")
	if err := g.DoLayout("refs/heads/main", 0); err != nil {
		t.Fatal(err)
	}
	e := edges(Render(g, Options{}))["a>gone"]
	if e == nil || e.Data["route"] != "stub" || e.Dash == "" {
		t.Fatalf("stub edge = %+v", e)
	}
}

func TestPagination(t *testing.T) {
	g := build(t, "refs/heads/main", [][2]string{{"refs/heads/main", "c0"}}, chain(10))
	doc := Render(g, Options{RowStart: 3, RowLimit: 4})

	nodes := commitNodes(doc)
	if len(nodes) != 4 {
		t.Fatalf("rendered %d commits, want 4", len(nodes))
	}
	for _, id := range []string{"c3", "c4", "c5", "c6"} {
		if nodes[id] == nil {
			t.Errorf("commit %s missing from window", id)
		}
	}
	es := edges(doc)
	for _, k := range []string{"c2>c3", "c6>c7"} {
		if es[k] == nil {
			t.Errorf("edge %s crossing the window edge missing", k)
		}
	}
	if es["c0>c1"] != nil || es["c8>c9"] != nil {
		t.Error("edges outside the window rendered")
	}

	var captions []string
	for _, e := range doc.Root.Find(func(e *scene.Element) bool { return e.Kind == scene.KindText }) {
		captions = append(captions, e.Text)
	}
	joined := strings.Join(captions, "|")
	for _, want := range []string{"3 earlier commits", "3 more commits"} {
		if !strings.Contains(joined, want) {
			t.Errorf("captions %q missing %q", joined, want)
		}
	}
	if doc.Meta.RowsBefore != 3 || doc.Meta.RowsAfter != 3 || doc.Meta.RowStart != 3 || doc.Meta.RowEnd != 7 {
		t.Errorf("meta = %+v", doc.Meta)
	}
}

func TestPaginationFullWindowHasNoMarkers(t *testing.T) {
	g := build(t, "refs/heads/main", [][2]string{{"refs/heads/main", "c0"}}, chain(3))
	doc := Render(g, Options{RowLimit: 3})
	if len(commitNodes(doc)) != 3 {
		t.Errorf("rendered %d commits, want 3", len(commitNodes(doc)))
	}
	pagers := doc.Root.Find(func(e *scene.Element) bool { return strings.HasPrefix(e.ID, "pager-") })
	if len(pagers) != 0 {
		t.Errorf("got %d pager markers, want none", len(pagers))
	}
}

func TestSingleRowWindowCaption(t *testing.T) {
	g := build(t, "refs/heads/main", [][2]string{{"refs/heads/main", "c0"}}, chain(3))
	doc := Render(g, Options{RowStart: 1, RowLimit: 1})
	var texts []string
	for _, e := range doc.Root.Find(func(e *scene.Element) bool { return e.Kind == scene.KindText }) {
		texts = append(texts, e.Text)
	}
	want := "subject c1|1 earlier commit|1 more commit"
	if got := strings.Join(texts, "|"); got != want {
		t.Errorf("texts = %q, want %q", got, want)
	}
}

func TestNodeShapes(t *testing.T) {
	g := dag.New()
	_ = g.AddReference("refs/heads/main", "m")
	_ = g.AddReference("refs/remotes/origin/main", "a")
	when := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, _ = g.AddCommit(dag.NewCommit("m", []string{"a", "b"}, "merge", "dev", when.Add(3*time.Hour)), "refs/heads/main", "")
	_, _ = g.AddCommit(dag.NewCommit("b", []string{"a"}, "side", "dev", when.Add(2*time.Hour)), "refs/heads/main", "")
	_, _ = g.AddCommit(dag.NewCommit("a", nil, "root", "dev", when), "refs/heads/main", "")
	if err := g.DoLayout("refs/heads/main", 0); err != nil {
		t.Fatal(err)
	}
	nodes := commitNodes(Render(g, Options{Highlight: "b"}))

	if s := nodes["m"].Children[0]; s.Kind != scene.KindCircle {
		t.Errorf("merge shape = %v, want circle", s.Kind)
	}
	if s := nodes["a"].Children[0]; s.Kind != scene.KindRect || s.Radius == 0 {
		t.Errorf("commit shape = %v radius %v, want rounded rect", s.Kind, s.Radius)
	}
	if !strings.Contains(nodes["m"].Class, ClassLocal) || nodes["m"].Children[0].Fill != "#ffffff" {
		t.Errorf("local-only merge class %q fill %q, want outline", nodes["m"].Class, nodes["m"].Children[0].Fill)
	}
	if strings.Contains(nodes["a"].Class, ClassLocal) || nodes["a"].Children[0].Fill == "#ffffff" {
		t.Errorf("tracked commit class %q fill %q, want filled", nodes["a"].Class, nodes["a"].Children[0].Fill)
	}
	if !strings.Contains(nodes["b"].Class, ClassHighlight) || len(nodes["b"].Children) != 2 {
		t.Errorf("highlighted node class %q with %d children", nodes["b"].Class, len(nodes["b"].Children))
	}
	if strings.Contains(nodes["a"].Class, ClassHighlight) {
		t.Error("non-highlighted node carries highlight class")
	}
}

func TestCoordinates(t *testing.T) {
	g := build(t, "refs/heads/main",
		[][2]string{{"refs/heads/main", "a"}, {"refs/heads/topic", "t"}},
		[]node{{"a", []string{"b"}}, {"t", []string{"c"}}, {"b", []string{"c"}}, {"c", nil}})
	opts := Options{LaneWidth: 20, NodeHeight: 10, NodeMargin: 6}
	nodes := commitNodes(Render(g, opts))

	centre := func(id string) (float64, float64) {
		s := nodes[id].Children[0]
		return s.X + s.Width/2, s.Y + s.Height/2
	}
	ax, ay := centre("a")
	tx, ty := centre("t")
	bx, by := centre("b")
	if tx-ax != 20 {
		t.Errorf("lane distance = %v, want 20", tx-ax)
	}
	if ty-ay != 16 || by-ty != 16 {
		t.Errorf("row distances = %v, %v, want 16", ty-ay, by-ty)
	}
	if bx != ax {
		t.Errorf("b x = %v, want %v", bx, ax)
	}
}

func TestCanvasBounds(t *testing.T) {
	g := build(t, "refs/heads/main", [][2]string{{"refs/heads/main", "c0"}}, chain(5))
	doc := Render(g, Options{})
	for _, e := range doc.Root.Find(func(e *scene.Element) bool { return e.Kind == scene.KindText }) {
		right := e.X + float64(LabelWidth(html.UnescapeString(e.Text)))
		if e.Anchor == "end" {
			right = e.X
		}
		if right > doc.Width {
			t.Errorf("text %q ends at %v beyond width %v", e.Text, right, doc.Width)
		}
	}
	for _, n := range commitNodes(doc) {
		s := n.Children[0]
		if s.Y+s.Height > doc.Height {
			t.Errorf("node %s bottom %v beyond height %v", n.ID, s.Y+s.Height, doc.Height)
		}
	}
}

func TestBranchLabelsAndMessages(t *testing.T) {
	g := dag.New()
	_ = g.AddReference("refs/heads/main", "a")
	_ = g.AddReference("refs/tags/v1.0", "a")
	_, _ = g.AddCommit(dag.NewCommit("a", nil, "Changed <br/> to <p>", "dev", time.Now()), "refs/heads/main", "")
	_ = g.DoLayout("refs/heads/main", 0)
	doc := Render(g, Options{})

	labels := doc.Root.Find(func(e *scene.Element) bool { return e.Class == ClassLabel })
	if len(labels) != 1 || labels[0].Children[1].Text != "main, v1.0" {
		t.Fatalf("labels = %+v", labels)
	}
	msgs := doc.Root.Find(func(e *scene.Element) bool { return e.Class == ClassMessage })
	if len(msgs) != 1 || msgs[0].Text != "Changed &lt;br/&gt; to &lt;p&gt;" {
		t.Fatalf("message = %+v", msgs)
	}
	if doc := Render(g, Options{HideMessages: true}); len(doc.Root.Find(func(e *scene.Element) bool { return e.Class == ClassMessage })) != 0 {
		t.Error("messages rendered with HideMessages")
	}
}

func TestTideMarker(t *testing.T) {
	g := dag.New()
	_ = g.AddReference("refs/heads/main", "b")
	when := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, _ = g.AddCommit(dag.NewCommit("b", []string{"a"}, "local", "dev", when.Add(time.Hour)), "refs/heads/main", "a")
	_, _ = g.AddCommit(dag.NewCommit("a", nil, "pushed", "dev", when), "refs/heads/main", "")
	_ = g.DoLayout("refs/heads/main", 0)

	tides := Render(g, Options{}).Root.Find(func(e *scene.Element) bool { return e.Class == ClassTide })
	if len(tides) != 1 || tides[0].Data["id"] != "a" || tides[0].Data["ref"] != "main" {
		t.Fatalf("tides = %+v", tides)
	}
}

func TestEmptyGraph(t *testing.T) {
	doc := Render(dag.New(), Options{})
	if doc.Width <= 0 || doc.Height <= 0 {
		t.Errorf("empty canvas %vx%v", doc.Width, doc.Height)
	}
	if len(commitNodes(doc)) != 0 {
		t.Error("empty graph rendered commits")
	}
}

func TestRenderIsIndependent(t *testing.T) {
	g := octopus(t)
	first := Render(g, Options{})
	second := Render(g, Options{})
	if first.Width != second.Width {
		t.Errorf("second render width %v, first %v", second.Width, first.Width)
	}
	if edges(first)["m>d"].D != edges(second)["m>d"].D {
		t.Error("loop placement leaked between renders")
	}
}
