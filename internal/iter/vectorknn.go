package iter

import (
	"sort"

	"github.com/ftengine/ftengine/internal/vecindex"
)

// vectorSearcher is the subset of vecindex.Index the Vector-KNN node
// needs, defined locally so tests can supply a fake without depending on
// a real HNSW graph.
type vectorSearcher interface {
	Search(query []float32, k int) ([]vecindex.Match, error)
}

var _ vectorSearcher = (*vecindex.Index)(nil)

// NewVectorKNN runs a k-NN search against idx and wraps the result as a
// doc-id-ordered iterator, per spec.md §4.6's Vector-KNN query node.
// Results arrive from the vector index ranked by similarity, not by
// doc-id, so this re-sorts ascending by doc-id to satisfy the iterator
// tree's uniform ordering contract (spec.md §4.4) before wrapping it in
// an IDList; each result's similarity score survives as Result.Numeric
// for the planner/coordinator's final ranking pass.
func NewVectorKNN(idx vectorSearcher, query []float32, k int) (*IDList, error) {
	matches, err := idx.Search(query, k)
	if err != nil {
		return nil, err
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].DocID < matches[j].DocID })

	ids := make([]uint64, len(matches))
	scores := make(map[uint64]float32, len(matches))
	for i, m := range matches {
		ids[i] = m.DocID
		scores[m.DocID] = m.Score
	}

	l := NewIDList(ids)
	l.scores = scores
	return l, nil
}
