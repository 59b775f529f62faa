// Package vecindex wraps github.com/coder/hnsw as the opaque
// vector-similarity collaborator spec.md §1 carves out of the core
// engine ("the vector-similarity engine, treated as an opaque index
// accepting inserts and answering k-NN queries"). SPEC_FULL.md §3 gives
// it a concrete home so the planner can wire a Vector-KNN query node
// (spec.md §4.6) against a real implementation instead of a stub.
//
// Grounded on the teacher's internal/store.HNSWStore, keyed directly by
// the engine's uint64 doc-id (C4's internal key) instead of a
// string<->uint64 id-mapping layer, since ftengine already allocates
// doc-ids in the doc table and has no external string-id surface to
// bridge here.
package vecindex

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"
)

// Metric selects the distance function backing a vector index.
type Metric string

const (
	MetricCosine    Metric = "cos"
	MetricEuclidean Metric = "l2"
)

// Config configures a new Index.
type Config struct {
	Dimensions int
	Metric     Metric
	M          int
	EfSearch   int
}

// ErrDimensionMismatch is returned when a vector's length doesn't match
// the index's configured dimensionality.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("vecindex: expected %d dimensions, got %d", e.Expected, e.Got)
}

// Match is one scored result from a k-NN search, ordered by increasing
// distance (decreasing similarity).
type Match struct {
	DocID    uint64
	Distance float32
	Score    float32
}

// Index is a single opaque vector collection, backed by an in-memory
// HNSW graph keyed by doc-id.
type Index struct {
	mu     sync.RWMutex
	graph  *hnsw.Graph[uint64]
	cfg    Config
	live   map[uint64]struct{} // doc-ids not yet lazily deleted
	closed bool
}

type persistedMeta struct {
	Live   map[uint64]struct{}
	Config Config
}

// New creates an empty vector index.
func New(cfg Config) *Index {
	if cfg.Metric == "" {
		cfg.Metric = MetricCosine
	}
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 20
	}

	graph := hnsw.NewGraph[uint64]()
	switch cfg.Metric {
	case MetricEuclidean:
		graph.Distance = hnsw.EuclideanDistance
	default:
		graph.Distance = hnsw.CosineDistance
	}
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25

	return &Index{
		graph: graph,
		cfg:   cfg,
		live:  make(map[uint64]struct{}),
	}
}

// Insert adds or replaces the vector for docID. Replacing an existing
// doc-id uses lazy deletion (the stale graph node is orphaned, not
// removed) to avoid coder/hnsw's last-node-deletion instability, the
// same tradeoff the teacher's HNSWStore documents.
func (idx *Index) Insert(docID uint64, vec []float32) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return fmt.Errorf("vecindex: index is closed")
	}
	if idx.cfg.Dimensions != 0 && len(vec) != idx.cfg.Dimensions {
		return ErrDimensionMismatch{Expected: idx.cfg.Dimensions, Got: len(vec)}
	}
	if idx.cfg.Dimensions == 0 {
		idx.cfg.Dimensions = len(vec)
	}

	norm := make([]float32, len(vec))
	copy(norm, vec)
	if idx.cfg.Metric == MetricCosine || idx.cfg.Metric == "" {
		normalize(norm)
	}

	idx.graph.Add(hnsw.MakeNode(docID, norm))
	idx.live[docID] = struct{}{}
	return nil
}

// Delete lazily removes docID: future searches no longer surface it,
// but its graph node stays in place until a future compaction rebuilds
// the graph.
func (idx *Index) Delete(docID uint64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.live, docID)
}

// Search returns up to k nearest neighbors of query, ordered by
// increasing distance, with lazily-deleted doc-ids filtered out.
func (idx *Index) Search(query []float32, k int) ([]Match, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.closed {
		return nil, fmt.Errorf("vecindex: index is closed")
	}
	if idx.cfg.Dimensions != 0 && len(query) != idx.cfg.Dimensions {
		return nil, ErrDimensionMismatch{Expected: idx.cfg.Dimensions, Got: len(query)}
	}
	if idx.graph.Len() == 0 {
		return nil, nil
	}

	norm := make([]float32, len(query))
	copy(norm, query)
	if idx.cfg.Metric == MetricCosine || idx.cfg.Metric == "" {
		normalize(norm)
	}

	// Over-fetch to compensate for orphaned (lazily-deleted) nodes still
	// occupying graph slots.
	fetch := k
	if orphans := idx.graph.Len() - len(idx.live); orphans > 0 {
		fetch += orphans
	}
	nodes := idx.graph.Search(norm, fetch)

	matches := make([]Match, 0, k)
	for _, n := range nodes {
		if _, ok := idx.live[n.Key]; !ok {
			continue
		}
		dist := idx.graph.Distance(norm, n.Value)
		matches = append(matches, Match{
			DocID:    n.Key,
			Distance: dist,
			Score:    distanceToScore(dist, idx.cfg.Metric),
		})
		if len(matches) == k {
			break
		}
	}
	return matches, nil
}

// Len returns the number of live (non-deleted) vectors.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.live)
}

// Stats reports graph occupancy for compaction decisions: Orphans is
// the count of lazily-deleted nodes still taking up graph space.
type Stats struct {
	Live    int
	Graph   int
	Orphans int
}

func (idx *Index) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	g := idx.graph.Len()
	return Stats{Live: len(idx.live), Graph: g, Orphans: g - len(idx.live)}
}

// Close releases the underlying graph.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return nil
	}
	idx.closed = true
	idx.graph = nil
	return nil
}

// Save persists the graph and its live-set to path (graph) and
// path+".meta" (live-set + config), each written via temp-file-then-rename
// for atomicity, mirroring the teacher's HNSWStore.Save.
func (idx *Index) Save(path string) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.closed {
		return fmt.Errorf("vecindex: index is closed")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("vecindex: create directory: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("vecindex: create index file: %w", err)
	}
	if err := idx.graph.Export(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("vecindex: export graph: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("vecindex: close index file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("vecindex: rename index file: %w", err)
	}

	return idx.saveMeta(path + ".meta")
}

func (idx *Index) saveMeta(path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("vecindex: create meta file: %w", err)
	}
	meta := persistedMeta{Live: idx.live, Config: idx.cfg}
	if err := gob.NewEncoder(f).Encode(meta); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("vecindex: encode meta: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("vecindex: close meta file: %w", err)
	}
	return os.Rename(tmp, path)
}

// Load replaces idx's contents with the graph and live-set persisted at
// path by a prior Save.
func (idx *Index) Load(path string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return fmt.Errorf("vecindex: index is closed")
	}

	metaFile, err := os.Open(path + ".meta")
	if err != nil {
		return fmt.Errorf("vecindex: open meta file: %w", err)
	}
	defer metaFile.Close()
	var meta persistedMeta
	if err := gob.NewDecoder(metaFile).Decode(&meta); err != nil {
		return fmt.Errorf("vecindex: decode meta: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("vecindex: open index file: %w", err)
	}
	defer f.Close()

	graph := hnsw.NewGraph[uint64]()
	switch meta.Config.Metric {
	case MetricEuclidean:
		graph.Distance = hnsw.EuclideanDistance
	default:
		graph.Distance = hnsw.CosineDistance
	}
	graph.M = meta.Config.M
	graph.EfSearch = meta.Config.EfSearch
	graph.Ml = 0.25

	if err := graph.Import(bufio.NewReader(f)); err != nil {
		return fmt.Errorf("vecindex: import graph: %w", err)
	}

	idx.graph = graph
	idx.cfg = meta.Config
	idx.live = meta.Live
	if idx.live == nil {
		idx.live = make(map[uint64]struct{})
	}
	return nil
}

func normalize(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

func distanceToScore(distance float32, metric Metric) float32 {
	switch metric {
	case MetricEuclidean:
		return 1.0 / (1.0 + distance)
	default:
		return 1.0 - distance/2.0
	}
}
