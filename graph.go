package hnsw

import (
	"fmt"
	"math"
	"slices"

	"github.com/TFMV/hnsw/heap"
)

// Vector is a dense embedding. All vectors in a single Graph share the
// same length.
type Vector = []float32

// Node is a vector paired with the internal index it lives at. Key
// never appears outside the graph; it is the arena slot assigned at
// first insert and is stable until Clear.
type Node struct {
	Key   int
	Value Vector
}

// SearchResult is one hit from Search, ordered so that smaller Score
// means closer under the graph's configured metric.
type SearchResult struct {
	Key   int
	Score float32
}

func (s SearchResult) Less(o SearchResult) bool {
	if s.Score != o.Score {
		return s.Score < o.Score
	}
	return s.Key < o.Key
}

// node is a graph-internal arena slot. neighbors[k] holds the internal
// indices of this node's layer-k neighbors, for k in 0..=level.
type node struct {
	vector    Vector
	level     int
	deleted   bool
	neighbors [][]int
}

// Graph is an arena-indexed Hierarchical Navigable Small World graph.
// Every public parameter must be set (via NewGraph) before nodes are
// added. Multi-threaded access must be synchronized externally — the
// graph holds no internal locks, matching the single-writer
// cooperative scheduling model the facade assumes.
type Graph struct {
	// Distance is the distance function used to order neighbors. It
	// must return a smaller score for closer vectors.
	Distance DistanceFunc

	// Metric names the distance function for snapshot round-tripping.
	// One of "euclidean", "cosine", "dotproduct".
	Metric string

	// Dims is the fixed length every vector in the graph must have.
	Dims int

	// M is the maximum number of neighbors kept per node at layers
	// above 0; layer 0 keeps up to 2*M.
	M int

	// EfConstruction is the candidate pool size used while linking a
	// newly inserted node.
	EfConstruction int

	// EfSearch is the default candidate pool size used at the base
	// layer during Search, absent an explicit override.
	EfSearch int

	// mL is the level generation constant 1/ln(M).
	mL float64

	// seed is the construction-time RNG seed, restored on Clear so a
	// cleared graph reseeds identically to a freshly constructed one.
	seed uint64
	rng  *rng

	arena      []*node
	entryPoint int // -1 when the graph is empty
	maxLayer   int
	liveCount  int
}

// Config holds the build parameters for NewGraph.
type Config struct {
	Dims           int
	M              int
	EfConstruction int
	EfSearch       int
	Metric         string // "euclidean" (default), "cosine", "dotproduct"
	Seed           uint64 // 0 picks a fixed, deterministic default seed
}

const (
	defaultM              = 16
	defaultEfConstruction = 200
	defaultEfSearch       = 50
)

// NewGraph returns an empty graph configured per cfg, defaulting M to
// 16, EfConstruction to 200, and the metric to euclidean when unset.
func NewGraph(cfg Config) (*Graph, error) {
	if cfg.Dims <= 0 {
		return nil, fmt.Errorf("hnsw: dimensions must be greater than 0, got %d", cfg.Dims)
	}
	if cfg.M <= 0 {
		cfg.M = defaultM
	}
	if cfg.EfConstruction <= 0 {
		cfg.EfConstruction = defaultEfConstruction
	}
	if cfg.EfSearch <= 0 {
		cfg.EfSearch = defaultEfSearch
	}
	if cfg.Metric == "" {
		cfg.Metric = "euclidean"
	}
	dist, ok := metricFuncs[cfg.Metric]
	if !ok {
		return nil, fmt.Errorf("hnsw: unknown metric %q", cfg.Metric)
	}

	g := &Graph{
		Distance:       dist,
		Metric:         cfg.Metric,
		Dims:           cfg.Dims,
		M:              cfg.M,
		EfConstruction: cfg.EfConstruction,
		EfSearch:       cfg.EfSearch,
		mL:             1 / math.Log(float64(cfg.M)),
		seed:           cfg.Seed,
		rng:            newRNG(cfg.Seed),
		entryPoint:     -1,
		maxLayer:       -1,
	}
	return g, nil
}

// mLayer returns the maximum out-degree for layer k: 2*M at the base
// layer, M everywhere above it.
func (g *Graph) mLayer(k int) int {
	if k == 0 {
		return 2 * g.M
	}
	return g.M
}

// randomLevel samples l = floor(-ln(u) * mL) for u uniform on (0, 1].
func (g *Graph) randomLevel() int {
	u := g.rng.float64()
	return int(math.Floor(-math.Log(u) * g.mL))
}

// Len returns the number of live (non-tombstoned) nodes.
func (g *Graph) Len() int {
	return g.liveCount
}

// Cap returns the total number of arena slots, including tombstoned
// ones, i.e. the internal index that would be assigned to the next
// newly inserted vector.
func (g *Graph) Cap() int {
	return len(g.arena)
}

// Add validates vec against the graph's dimensionality, inserts it at
// a freshly sampled level, and returns its internal index.
func (g *Graph) Add(vec Vector) (int, error) {
	if len(vec) != g.Dims {
		return -1, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(vec), g.Dims)
	}

	slot := len(g.arena)
	level := g.randomLevel()
	g.arena = append(g.arena, &node{
		vector:    vec,
		level:     level,
		neighbors: make([][]int, level+1),
	})
	g.linkNode(slot)
	g.liveCount++
	return slot, nil
}

// Reinsert replaces the vector stored at an existing internal index,
// unlinking its old edges and relinking it at a freshly sampled level.
// It is used by the facade both to upsert a live record (same vector
// identity, new embedding) and to revive a tombstoned one. slot must
// have been returned by a previous Add/Reinsert on this graph.
func (g *Graph) Reinsert(slot int, vec Vector) error {
	if slot < 0 || slot >= len(g.arena) {
		return fmt.Errorf("hnsw: invalid internal index %d", slot)
	}
	if len(vec) != g.Dims {
		return fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(vec), g.Dims)
	}

	wasLive := !g.arena[slot].deleted
	g.removeFromGraph(slot)

	level := g.randomLevel()
	g.arena[slot] = &node{
		vector:    vec,
		level:     level,
		neighbors: make([][]int, level+1),
	}
	g.linkNode(slot)
	if !wasLive {
		g.liveCount++
	}
	return nil
}

// Delete tombstones the node at slot. Adjacency edges are left as-is:
// deletion is O(1) and purely logical, at the cost of possible graph
// quality drift after many deletions (repaired only by a full snapshot
// rebuild or Clear).
func (g *Graph) Delete(slot int) bool {
	if slot < 0 || slot >= len(g.arena) {
		return false
	}
	n := g.arena[slot]
	if n.deleted {
		return false
	}
	n.deleted = true
	g.liveCount--
	return true
}

// BatchDelete deletes each slot in keys, reporting per-slot success.
func (g *Graph) BatchDelete(keys []int) []bool {
	out := make([]bool, len(keys))
	for i, k := range keys {
		out[i] = g.Delete(k)
	}
	return out
}

// Lookup returns the raw vector stored at slot, regardless of
// tombstone status, or false if slot is out of range.
func (g *Graph) Lookup(slot int) (Vector, bool) {
	if slot < 0 || slot >= len(g.arena) {
		return nil, false
	}
	return g.arena[slot].vector, true
}

// Deleted reports whether slot is tombstoned. It returns true for an
// out-of-range slot so callers don't need a separate bounds check.
func (g *Graph) Deleted(slot int) bool {
	if slot < 0 || slot >= len(g.arena) {
		return true
	}
	return g.arena[slot].deleted
}

// Clear empties the graph and reseeds the level generator to its
// original construction seed, so a cleared graph behaves identically
// to a freshly constructed one.
func (g *Graph) Clear() {
	g.arena = nil
	g.entryPoint = -1
	g.maxLayer = -1
	g.liveCount = 0
	g.rng = newRNG(g.seed)
}

// Search returns the k nearest live nodes to near, using ef as the
// base-layer candidate pool size (EfSearch when ef <= 0, raised to k if
// smaller). An empty graph returns an empty, non-error result.
func (g *Graph) Search(near Vector, k int, ef int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if len(near) != g.Dims {
		return nil, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(near), g.Dims)
	}
	if ef <= 0 {
		ef = g.EfSearch
	}
	if ef < k {
		ef = k
	}
	if g.entryPoint < 0 {
		return nil, nil
	}

	ep := g.entryPoint
	for layer := g.maxLayer; layer > 0; layer-- {
		res := g.searchLayer([]int{ep}, near, 1, layer)
		if len(res) > 0 {
			ep = res[0].idx
		}
	}

	candidates := g.searchLayer([]int{ep}, near, ef, 0)

	live := make([]SearchResult, 0, len(candidates))
	for _, c := range candidates {
		if g.arena[c.idx].deleted {
			continue
		}
		live = append(live, SearchResult{Key: c.idx, Score: c.score})
	}
	if len(live) > k {
		live = live[:k]
	}
	return live, nil
}

// searchCandidate is the (score, index) pair used by the ef-bounded
// search's two priority queues.
type searchCandidate struct {
	idx   int
	score float32
}

func (s searchCandidate) Less(o searchCandidate) bool {
	if s.score != o.score {
		return s.score < o.score
	}
	return s.idx < o.idx
}

// searchLayer runs the ef-bounded best-first search described by the
// spec: a min-ordered candidates queue drives expansion, a
// size-bounded max-ordered results queue tracks the current best ef
// nodes found, and a visited set prevents re-expansion.
func (g *Graph) searchLayer(entry []int, query Vector, ef int, layer int) []searchCandidate {
	var candidates, results heap.Heap[searchCandidate]
	visited := make(map[int]bool, ef*2)

	for _, e := range entry {
		if visited[e] {
			continue
		}
		visited[e] = true
		sc := searchCandidate{idx: e, score: g.Distance(g.arena[e].vector, query)}
		candidates.Push(sc)
		results.Push(sc)
	}

	for candidates.Len() > 0 {
		cur := candidates.Pop()
		if results.Len() >= ef && cur.score > results.Max().score {
			break
		}

		n := g.arena[cur.idx]
		if layer >= len(n.neighbors) {
			continue
		}
		neighbors := slices.Clone(n.neighbors[layer])
		slices.Sort(neighbors)
		for _, nb := range neighbors {
			if visited[nb] {
				continue
			}
			visited[nb] = true

			score := g.Distance(g.arena[nb].vector, query)
			if results.Len() < ef || score < results.Max().score {
				sc := searchCandidate{idx: nb, score: score}
				candidates.Push(sc)
				results.Push(sc)
				if results.Len() > ef {
					results.PopLast()
				}
			}
		}
	}

	return results.Slice()
}

// selectNeighbors applies the "simple" neighbor-selection heuristic:
// the m closest live candidates, ties broken by lower internal index.
func (g *Graph) selectNeighbors(candidates []searchCandidate, m int) []searchCandidate {
	live := make([]searchCandidate, 0, len(candidates))
	for _, c := range candidates {
		if !g.arena[c.idx].deleted {
			live = append(live, c)
		}
	}
	slices.SortFunc(live, func(a, b searchCandidate) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		default:
			return 0
		}
	})
	if len(live) > m {
		live = live[:m]
	}
	return live
}

// linkNode wires slot into the graph, assuming its vector/level are
// already populated and its neighbor lists are empty. It implements
// the insertion algorithm of spec.md §4.2: greedy descent through the
// upper layers to find an entry point, then ef-bounded linking from
// min(maxLayer, level) down to 0.
func (g *Graph) linkNode(slot int) {
	n := g.arena[slot]

	if g.entryPoint < 0 {
		g.entryPoint = slot
		g.maxLayer = n.level
		return
	}

	ep := g.entryPoint
	for layer := g.maxLayer; layer > n.level; layer-- {
		res := g.searchLayer([]int{ep}, n.vector, 1, layer)
		if len(res) > 0 {
			ep = res[0].idx
		}
	}

	top := g.maxLayer
	if n.level < top {
		top = n.level
	}

	for layer := top; layer >= 0; layer-- {
		candidates := g.searchLayer([]int{ep}, n.vector, g.EfConstruction, layer)
		if len(candidates) > 0 {
			ep = candidates[0].idx
		}

		m := g.mLayer(layer)
		selected := g.selectNeighbors(candidates, m)

		n.neighbors[layer] = make([]int, 0, len(selected))
		for _, c := range selected {
			n.neighbors[layer] = append(n.neighbors[layer], c.idx)

			nb := g.arena[c.idx]
			nb.neighbors[layer] = append(nb.neighbors[layer], slot)
			if len(nb.neighbors[layer]) > m {
				g.pruneNeighbors(c.idx, layer, m)
			}
		}
	}

	if n.level > g.maxLayer {
		g.entryPoint = slot
		g.maxLayer = n.level
	}
}

// pruneNeighbors reselects owner's layer-k adjacency down to m entries
// using the same simple heuristic, and removes the backlinks of any
// neighbor dropped in the process.
func (g *Graph) pruneNeighbors(owner, layer, m int) {
	n := g.arena[owner]
	cands := make([]searchCandidate, 0, len(n.neighbors[layer]))
	for _, j := range n.neighbors[layer] {
		cands = append(cands, searchCandidate{idx: j, score: g.Distance(g.arena[j].vector, n.vector)})
	}
	selected := g.selectNeighbors(cands, m)

	kept := make(map[int]bool, len(selected))
	newList := make([]int, 0, len(selected))
	for _, c := range selected {
		kept[c.idx] = true
		newList = append(newList, c.idx)
	}
	for _, j := range n.neighbors[layer] {
		if !kept[j] {
			removeNeighborRef(g.arena[j], layer, owner)
		}
	}
	n.neighbors[layer] = newList
}

// removeFromGraph strips slot's edges from every neighbor's adjacency
// (in both directions) and, if slot was the entry point, elects a
// replacement from whatever other slots exist.
func (g *Graph) removeFromGraph(slot int) {
	n := g.arena[slot]
	for layer := 0; layer <= n.level && layer < len(n.neighbors); layer++ {
		for _, nb := range n.neighbors[layer] {
			removeNeighborRef(g.arena[nb], layer, slot)
		}
	}

	if g.entryPoint == slot {
		g.entryPoint = -1
		g.maxLayer = -1
		for i := range g.arena {
			if i != slot {
				g.entryPoint = i
				g.maxLayer = g.arena[i].level
				break
			}
		}
	}
}

// removeNeighborRef deletes target from owner's layer-k adjacency, if
// present. Order within the adjacency list carries no meaning.
func removeNeighborRef(owner *node, layer, target int) {
	if layer >= len(owner.neighbors) {
		return
	}
	list := owner.neighbors[layer]
	for i, v := range list {
		if v == target {
			last := len(list) - 1
			list[i] = list[last]
			owner.neighbors[layer] = list[:last]
			return
		}
	}
}
