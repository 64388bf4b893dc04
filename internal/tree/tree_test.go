package tree

import (
	"reflect"
	"testing"

	"github.com/lyallcooper/hashmaker/internal/types"
)

func records(pairs ...string) []types.FileHash {
	out := make([]types.FileHash, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, types.FileHash{Path: pairs[i], Hash: pairs[i+1]})
	}
	return out
}

func TestBuildSummaryThenSibling(t *testing.T) {
	tr := Build(records(
		`docs\`, "h1",
		`docs\`, "H1",
		`docs\a.txt`, "h2",
	))

	if len(tr.Roots) != 3 {
		t.Fatalf("len(Roots) = %d, want 3", len(tr.Roots))
	}

	want := []struct {
		path      string
		isSummary bool
		kind      Kind
	}{
		{`docs\`, false, FolderTitle},
		{`docs\`, true, FolderSummary},
		{`docs\a.txt`, false, File},
	}
	for i, w := range want {
		n := tr.Nodes[tr.Roots[i]]
		if n.Path != w.path || n.IsSummary != w.isSummary {
			t.Errorf("root %d = {%q, summary=%v}, want {%q, summary=%v}", i, n.Path, n.IsSummary, w.path, w.isSummary)
		}
		if len(n.Children) != 0 {
			t.Errorf("root %d has %d children, want 0", i, len(n.Children))
		}
		if got := tr.Kind(tr.Roots[i]); got != w.kind {
			t.Errorf("root %d kind = %v, want %v", i, got, w.kind)
		}
	}
}

func TestBuildNested(t *testing.T) {
	tr := Build(records(
		`root\`, "",
		`root\a.txt`, "A",
		`root\sub\`, "",
		`root\sub\b.txt`, "B",
		`root\sub\`, "SUB",
		`root\c.txt`, "C",
		`root\`, "ROOT",
	))

	if len(tr.Roots) != 2 {
		t.Fatalf("len(Roots) = %d, want 2 (title and summary)", len(tr.Roots))
	}

	root := tr.Nodes[tr.Roots[0]]
	var children []string
	for _, id := range root.Children {
		children = append(children, tr.Nodes[id].Path)
	}
	wantChildren := []string{`root\a.txt`, `root\sub\`, `root\sub\`, `root\c.txt`}
	if !reflect.DeepEqual(children, wantChildren) {
		t.Errorf("root children = %v, want %v", children, wantChildren)
	}

	sub := tr.Nodes[root.Children[1]]
	if len(sub.Children) != 1 || tr.Nodes[sub.Children[0]].Path != `root\sub\b.txt` {
		t.Errorf("sub children = %v", sub.Children)
	}
	if tr.Nodes[sub.Children[0]].Parent != root.Children[1] {
		t.Errorf("b.txt parent = %d, want %d", tr.Nodes[sub.Children[0]].Parent, root.Children[1])
	}

	summary := tr.Nodes[tr.Roots[1]]
	if !summary.IsSummary || summary.Hash != "ROOT" || summary.Parent != NoParent {
		t.Errorf("root summary = %+v", summary)
	}
}

func TestBuildUnclosedFolder(t *testing.T) {
	tr := Build(records(
		`a\`, "",
		`a\x.txt`, "X",
		`b.txt`, "B",
	))

	if len(tr.Roots) != 1 {
		t.Fatalf("len(Roots) = %d, want 1", len(tr.Roots))
	}
	if got := len(tr.Nodes[tr.Roots[0]].Children); got != 2 {
		t.Errorf("unclosed folder has %d children, want 2", got)
	}
}

func TestBuildRepeatedFileIsNotSummary(t *testing.T) {
	tr := Build(records(
		`a\`, "",
		`a\f`, "1",
		`a\f`, "2",
	))
	folder := tr.Nodes[tr.Roots[0]]
	if len(folder.Children) != 2 {
		t.Fatalf("children = %d, want 2", len(folder.Children))
	}
	for _, id := range folder.Children {
		if tr.Nodes[id].IsSummary {
			t.Errorf("file record %d marked as summary", id)
		}
	}
}

func TestBuildWithSeparator(t *testing.T) {
	tr := BuildWithSeparator(records(
		"src/", "",
		"src/main.go", "M",
		"src/", "S",
	), "/")

	if len(tr.Roots) != 2 {
		t.Fatalf("len(Roots) = %d, want 2", len(tr.Roots))
	}
	if !tr.Nodes[tr.Roots[1]].IsSummary {
		t.Error("second root should be the summary")
	}
	if got := tr.Kind(tr.Nodes[tr.Roots[0]].Children[0]); got != File {
		t.Errorf("main.go kind = %v, want file", got)
	}
}

func TestBuildEmpty(t *testing.T) {
	tr := Build(nil)
	if len(tr.Nodes) != 0 || len(tr.Roots) != 0 {
		t.Errorf("Build(nil) = %+v", tr)
	}
}

// Flattening a well-formed tree reproduces the input order, with each
// immediately repeated folder marker appearing once as its summary node.
func TestFlattenPreservesOrder(t *testing.T) {
	tests := []struct {
		name  string
		input []types.FileHash
	}{
		{"single file", records(`f.txt`, "1")},
		{"empty folder", records(`e\`, "", `e\`, "")},
		{"nested", records(
			`r\`, "", `r\a`, "1", `r\s\`, "", `r\s\b`, "2", `r\s\`, "S", `r\`, "R",
		)},
		{"siblings", records(
			`a\`, "", `a\x`, "1", `a\`, "A", `b\`, "", `b\`, "", `c`, "3",
		)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := Build(tt.input)
			want := make([]string, len(tt.input))
			for i, r := range tt.input {
				want[i] = r.Path
			}
			if got := tr.Flatten(); !reflect.DeepEqual(got, want) {
				t.Errorf("Flatten() = %v, want %v", got, want)
			}
			if len(tr.Nodes) != len(tt.input) {
				t.Errorf("len(Nodes) = %d, want %d", len(tr.Nodes), len(tt.input))
			}
		})
	}
}

func TestWalkSkipChildren(t *testing.T) {
	tr := Build(records(`a\`, "", `a\x`, "1", `a\`, "A"))

	var visited []string
	tr.Walk(func(id, depth int) bool {
		visited = append(visited, tr.Nodes[id].Path)
		return false
	})

	want := []string{`a\`, `a\`}
	if !reflect.DeepEqual(visited, want) {
		t.Errorf("visited = %v, want %v", visited, want)
	}
}
