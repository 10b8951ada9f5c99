package hnsw

import (
	"fmt"
	"math"
)

// SnapshotVersion is the current snapshot encoding version. Graph.Import
// rejects any other value with ErrIncompatibleVersion.
const SnapshotVersion = 1

// ErrIncompatibleVersion is returned by Graph.Import when the
// snapshot's version does not match SnapshotVersion.
var ErrIncompatibleVersion = fmt.Errorf("hnsw: incompatible snapshot version")

// Snapshot is the graph's full serializable state: build parameters,
// metric identity, RNG state, entry point/max layer, and every node's
// vector, level, tombstone flag, and per-layer adjacency. It is the
// JSON-compatible payload spec.md §6 describes; the facade embeds it
// alongside the external-ID bimap and metadata side tables.
type Snapshot struct {
	Version        int             `json:"version"`
	Dims           int             `json:"dimensions"`
	M              int             `json:"m"`
	EfConstruction int             `json:"ef_construction"`
	EfSearch       int             `json:"ef_search"`
	Metric         string          `json:"metric"`
	RNGSeed        uint64          `json:"rng_seed"`
	RNGState       uint64          `json:"rng_state"`
	EntryPoint     int             `json:"entry_point"`
	MaxLayer       int             `json:"max_layer"`
	Nodes          []SnapshotNode  `json:"nodes"`
}

// SnapshotNode is one arena slot's serialized form. Layers[k] lists
// the internal indices of this node's layer-k neighbors.
type SnapshotNode struct {
	InternalIndex int     `json:"internal_index"`
	Vector        Vector  `json:"vector"`
	Level         int     `json:"level"`
	Deleted       bool    `json:"deleted"`
	Layers        [][]int `json:"layers"`
}

// Export produces a Snapshot capturing the graph's complete state.
func (g *Graph) Export() Snapshot {
	nodes := make([]SnapshotNode, len(g.arena))
	for i, n := range g.arena {
		layers := make([][]int, len(n.neighbors))
		for k, adj := range n.neighbors {
			cp := make([]int, len(adj))
			copy(cp, adj)
			layers[k] = cp
		}
		nodes[i] = SnapshotNode{
			InternalIndex: i,
			Vector:        append(Vector(nil), n.vector...),
			Level:         n.level,
			Deleted:       n.deleted,
			Layers:        layers,
		}
	}

	return Snapshot{
		Version:        SnapshotVersion,
		Dims:           g.Dims,
		M:              g.M,
		EfConstruction: g.EfConstruction,
		EfSearch:       g.EfSearch,
		Metric:         g.Metric,
		RNGSeed:        g.seed,
		RNGState:       g.rng.state,
		EntryPoint:     g.entryPoint,
		MaxLayer:       g.maxLayer,
		Nodes:          nodes,
	}
}

// Import replaces the graph's entire state with s. It rejects an
// unknown version or a dimension mismatch and leaves the graph
// untouched on any such error.
func (g *Graph) Import(s Snapshot) error {
	if s.Version != SnapshotVersion {
		return fmt.Errorf("%w: got %d, want %d", ErrIncompatibleVersion, s.Version, SnapshotVersion)
	}
	if s.Dims <= 0 {
		return fmt.Errorf("hnsw: snapshot has invalid dimensions %d", s.Dims)
	}
	dist, ok := metricFuncs[s.Metric]
	if !ok {
		return fmt.Errorf("hnsw: snapshot has unknown metric %q", s.Metric)
	}

	arena := make([]*node, len(s.Nodes))
	for _, sn := range s.Nodes {
		if len(sn.Vector) != s.Dims {
			return fmt.Errorf("%w: node %d has length %d, want %d", ErrDimensionMismatch, sn.InternalIndex, len(sn.Vector), s.Dims)
		}
		if sn.InternalIndex < 0 || sn.InternalIndex >= len(arena) {
			return fmt.Errorf("hnsw: snapshot node has out-of-range internal index %d", sn.InternalIndex)
		}
		layers := make([][]int, len(sn.Layers))
		for k, adj := range sn.Layers {
			cp := make([]int, len(adj))
			copy(cp, adj)
			layers[k] = cp
		}
		arena[sn.InternalIndex] = &node{
			vector:    append(Vector(nil), sn.Vector...),
			level:     sn.Level,
			deleted:   sn.Deleted,
			neighbors: layers,
		}
	}
	for i, n := range arena {
		if n == nil {
			return fmt.Errorf("hnsw: snapshot is missing internal index %d", i)
		}
	}

	m := s.M
	if m <= 0 {
		m = defaultM
	}
	efConstruction := s.EfConstruction
	if efConstruction <= 0 {
		efConstruction = defaultEfConstruction
	}
	efSearch := s.EfSearch
	if efSearch <= 0 {
		efSearch = defaultEfSearch
	}

	g.Distance = dist
	g.Metric = s.Metric
	g.Dims = s.Dims
	g.M = m
	g.EfConstruction = efConstruction
	g.EfSearch = efSearch
	g.mL = 1 / math.Log(float64(m))
	g.seed = s.RNGSeed
	g.rng = &rng{state: s.RNGState}
	g.arena = arena
	g.entryPoint = s.EntryPoint
	g.maxLayer = s.MaxLayer

	g.liveCount = 0
	for _, n := range arena {
		if !n.deleted {
			g.liveCount++
		}
	}

	return nil
}
