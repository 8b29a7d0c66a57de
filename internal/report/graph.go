package report

import (
	"github.com/nao1215/philosophy/internal/model"
)

// Edge is one followed link between two pages.
type Edge struct {
	From model.PageID
	To   model.PageID
}

// Graph is the union of all walked paths of a batch. Pages reached by
// several walks appear once, as in a drawing where chains merge.
type Graph struct {
	// Nodes lists every page in order of first appearance.
	Nodes []model.PageID

	// Edges lists every distinct followed link in order of first appearance.
	Edges []Edge
}

// BuildGraph merges the paths of batch into one graph.
func BuildGraph(batch *model.BatchReport) *Graph {
	g := &Graph{}
	seenNodes := make(map[model.PageID]bool)
	seenEdges := make(map[Edge]bool)

	addNode := func(id model.PageID) {
		if !seenNodes[id] {
			seenNodes[id] = true
			g.Nodes = append(g.Nodes, id)
		}
	}

	for _, path := range batch.Paths() {
		for i, id := range path.Pages {
			addNode(id)
			if i == 0 {
				continue
			}
			e := Edge{From: path.Pages[i-1], To: id}
			if !seenEdges[e] {
				seenEdges[e] = true
				g.Edges = append(g.Edges, e)
			}
		}
	}

	return g
}
