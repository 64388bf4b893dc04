// Package tree rebuilds the folder hierarchy from the engine's flat,
// depth-first list of hash records.
//
// Nodes live in a single slice and refer to each other by index. A folder is
// opened by a record whose path ends in the separator and closed by a second
// consecutive record with the same path, which becomes that folder's summary
// line carrying the aggregate hash.
package tree

import (
	"strings"

	"github.com/lyallcooper/hashmaker/internal/types"
)

// Separator is the folder marker suffix the engine emits.
const Separator = `\`

// NoParent is the Parent value of root nodes.
const NoParent = -1

// Kind classifies a node for rendering.
type Kind int

const (
	File Kind = iota
	FolderTitle
	FolderSummary
)

func (k Kind) String() string {
	switch k {
	case FolderTitle:
		return "folder"
	case FolderSummary:
		return "summary"
	default:
		return "file"
	}
}

// Node is one record placed in the hierarchy.
type Node struct {
	Path      string
	Hash      string
	IsSummary bool
	Parent    int
	Children  []int
}

// Tree is an immutable arena of nodes. Roots and Children keep input order.
type Tree struct {
	Nodes []Node
	Roots []int
	sep   string
}

// Build reconstructs records using the default separator.
func Build(records []types.FileHash) *Tree {
	return BuildWithSeparator(records, Separator)
}

// BuildWithSeparator reconstructs records treating paths ending in sep as
// folder markers. A folder that is never closed stays open and keeps
// collecting every following record.
func BuildWithSeparator(records []types.FileHash, sep string) *Tree {
	t := &Tree{
		Nodes: make([]Node, 0, len(records)),
		sep:   sep,
	}
	open := make([]int, 0, 16)

	for _, rec := range records {
		isFolder := sep != "" && strings.HasSuffix(rec.Path, sep)
		isRepeat := len(open) > 0 && t.Nodes[open[len(open)-1]].Path == rec.Path

		if isFolder && isRepeat {
			open = open[:len(open)-1]
			t.attach(open, Node{Path: rec.Path, Hash: rec.Hash, IsSummary: true})
			continue
		}

		id := t.attach(open, Node{Path: rec.Path, Hash: rec.Hash})
		if isFolder {
			open = append(open, id)
		}
	}

	return t
}

// attach appends n under the innermost open folder, or as a root.
func (t *Tree) attach(open []int, n Node) int {
	id := len(t.Nodes)
	n.Parent = NoParent
	if len(open) > 0 {
		n.Parent = open[len(open)-1]
	}
	t.Nodes = append(t.Nodes, n)

	if n.Parent == NoParent {
		t.Roots = append(t.Roots, id)
	} else {
		p := &t.Nodes[n.Parent]
		p.Children = append(p.Children, id)
	}
	return id
}

// Kind reports how node id should be rendered.
func (t *Tree) Kind(id int) Kind {
	n := t.Nodes[id]
	switch {
	case n.IsSummary:
		return FolderSummary
	case t.sep != "" && strings.HasSuffix(n.Path, t.sep):
		return FolderTitle
	default:
		return File
	}
}

// Walk visits every node depth-first in child order. Returning false from fn
// skips that node's children.
func (t *Tree) Walk(fn func(id, depth int) bool) {
	var visit func(ids []int, depth int)
	visit = func(ids []int, depth int) {
		for _, id := range ids {
			if fn(id, depth) {
				visit(t.Nodes[id].Children, depth+1)
			}
		}
	}
	visit(t.Roots, 0)
}

// Flatten returns node paths in depth-first order.
func (t *Tree) Flatten() []string {
	paths := make([]string, 0, len(t.Nodes))
	t.Walk(func(id, _ int) bool {
		paths = append(paths, t.Nodes[id].Path)
		return true
	})
	return paths
}
