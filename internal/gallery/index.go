package gallery

import (
	"github.com/coder/hnsw"

	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/constants"
)

// hnswIndex is an in-memory HNSW graph over gallery entries, keyed by entry position.
type hnswIndex struct {
	graph *hnsw.Graph[int]
}

func newHNSWIndex(entries []Entry) *hnswIndex {
	g := hnsw.NewGraph[int]()
	g.M = constants.HNSWMaxNeighbors
	g.Ml = 1.0 / float64(constants.HNSWMaxNeighbors) // Standard HNSW formula
	g.EfSearch = constants.HNSWEfSearch
	g.Distance = hnsw.EuclideanDistance

	for i := range entries {
		g.Add(hnsw.MakeNode(i, []float32(entries[i].Encoding)))
	}
	return &hnswIndex{graph: g}
}

// candidates returns entry positions of the k approximate nearest neighbours.
func (h *hnswIndex) candidates(query []float32, k int) []int {
	neighbors := h.graph.Search(query, k)
	ids := make([]int, len(neighbors))
	for i, n := range neighbors {
		ids[i] = n.Key
	}
	return ids
}
