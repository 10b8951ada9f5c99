// Package db is the embeddable vector database facade: it maps
// external string IDs onto the internal arena indices of an
// hnsw.Graph, carries per-record metadata, validates every input at
// the boundary, and bridges the graph's snapshot codec to a
// host-provided store.Store.
package db

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/TFMV/hnsw"
	"github.com/TFMV/hnsw/store"
)

// Config holds the construction-time configuration recognized by New.
type Config struct {
	// Name identifies this database's persisted snapshot within the
	// host Store. Required.
	Name string
	// Dims is D, the fixed vector length. Required.
	Dims int
	// M is the graph's max out-degree per layer (doubled at layer 0).
	// Zero picks the graph's default.
	M int
	// EfConstruction is the build-time candidate pool size. Zero picks
	// the graph's default.
	EfConstruction int
	// EfSearch is the default search-time candidate pool size. Zero
	// picks the graph's default.
	EfSearch int
	// Metric is one of "euclidean" (default), "cosine", "dotproduct".
	Metric string
	// Seed seeds the level-sampling RNG. Zero picks a fixed default.
	Seed uint64
}

// Record is a stored vector together with its metadata, as returned
// by Get.
type Record struct {
	Vector   hnsw.Vector
	Metadata map[string]string
}

// InsertRecord is one entry of an InsertBatch call.
type InsertRecord struct {
	ID       string
	Vector   hnsw.Vector
	Metadata map[string]string
}

// Result is one hit from Search, ordered so that smaller Distance
// means closer.
type Result struct {
	ID       string
	Distance float32
	Metadata map[string]string
}

// DB is the facade. It is not safe for concurrent use — per the
// single-writer cooperative model, the caller must not issue
// overlapping mutating calls.
type DB struct {
	name  string
	cfg   Config
	graph *hnsw.Graph
	store store.Store

	ids    map[string]int    // external ID -> internal index
	extIDs map[int]string    // internal index -> external ID
	meta   map[int]map[string]string

	initialized bool
}

// New constructs a facade bound to st, not yet initialized. Call Init
// before any other operation.
func New(cfg Config, st store.Store) (*DB, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("db: name is required")
	}
	if cfg.Dims <= 0 {
		return nil, fmt.Errorf("db: dimensions must be greater than 0, got %d", cfg.Dims)
	}
	return &DB{name: cfg.Name, cfg: cfg, store: st}, nil
}

// Init prepares the facade for use: if a snapshot already exists
// under Name in the host store, it is loaded and applied; otherwise a
// fresh empty graph is built from Config.
func (d *DB) Init(ctx context.Context) error {
	blob, found, err := d.store.Load(ctx, d.name)
	if err != nil {
		return newError(PersistenceError, err)
	}
	if !found {
		g, err := hnsw.NewGraph(hnsw.Config{
			Dims:           d.cfg.Dims,
			M:              d.cfg.M,
			EfConstruction: d.cfg.EfConstruction,
			EfSearch:       d.cfg.EfSearch,
			Metric:         d.cfg.Metric,
			Seed:           d.cfg.Seed,
		})
		if err != nil {
			return newError(DeserializationError, err)
		}
		d.graph = g
		d.ids = make(map[string]int)
		d.extIDs = make(map[int]string)
		d.meta = make(map[int]map[string]string)
		d.initialized = true
		return nil
	}

	if err := d.applySnapshot(blob); err != nil {
		return newError(DeserializationError, err)
	}
	d.initialized = true
	return nil
}

func (d *DB) requireInit() error {
	if !d.initialized {
		return newError(NotInitialized, nil)
	}
	return nil
}

func validateVector(vec hnsw.Vector, dims int) error {
	if len(vec) != dims {
		return newError(DimensionMismatch, fmt.Errorf("got %d, want %d", len(vec), dims))
	}
	for _, v := range vec {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return newError(NonFiniteValue, nil)
		}
	}
	return nil
}

// Insert upserts id with vec and meta. If id already exists and is
// live, its vector is replaced in place (same internal index) and its
// metadata is overwritten (not merged); if it exists but was deleted,
// it is revived at a fresh graph node under the same internal index.
func (d *DB) Insert(ctx context.Context, id string, vec hnsw.Vector, meta map[string]string) error {
	if err := d.requireInit(); err != nil {
		return err
	}
	if id == "" {
		return newError(InvalidId, nil)
	}
	if err := validateVector(vec, d.graph.Dims); err != nil {
		return err
	}

	if slot, exists := d.ids[id]; exists {
		if err := d.graph.Reinsert(slot, vec); err != nil {
			return newError(DimensionMismatch, err)
		}
		d.meta[slot] = meta
	} else {
		slot, err := d.graph.Add(vec)
		if err != nil {
			return newError(DimensionMismatch, err)
		}
		d.ids[id] = slot
		d.extIDs[slot] = id
		d.meta[slot] = meta
	}

	return d.persist(ctx)
}

// InsertBatch inserts each record independently: a failure on one
// record does not prevent the others from succeeding. The returned
// slice has one entry per record, nil where it succeeded.
func (d *DB) InsertBatch(ctx context.Context, records []InsertRecord) []error {
	errs := make([]error, len(records))
	any := false
	for i, r := range records {
		if err := d.requireInit(); err != nil {
			errs[i] = err
			continue
		}
		if r.ID == "" {
			errs[i] = newError(InvalidId, nil)
			continue
		}
		if err := validateVector(r.Vector, d.graph.Dims); err != nil {
			errs[i] = err
			continue
		}

		if slot, exists := d.ids[r.ID]; exists {
			if err := d.graph.Reinsert(slot, r.Vector); err != nil {
				errs[i] = newError(DimensionMismatch, err)
				continue
			}
			d.meta[slot] = r.Metadata
		} else {
			slot, err := d.graph.Add(r.Vector)
			if err != nil {
				errs[i] = newError(DimensionMismatch, err)
				continue
			}
			d.ids[r.ID] = slot
			d.extIDs[slot] = r.ID
			d.meta[slot] = r.Metadata
		}
		any = true
	}

	if any {
		if err := d.persist(ctx); err != nil {
			for i := range errs {
				if errs[i] == nil {
					errs[i] = err
				}
			}
		}
	}
	return errs
}

// Search returns the k nearest live records to q, ordered by
// ascending distance. ef is raised to k if smaller.
func (d *DB) Search(q hnsw.Vector, k, ef int) ([]Result, error) {
	if err := d.requireInit(); err != nil {
		return nil, err
	}
	if err := validateVector(q, d.graph.Dims); err != nil {
		return nil, err
	}

	hits, err := d.graph.Search(q, k, ef)
	if err != nil {
		return nil, newError(DimensionMismatch, err)
	}

	out := make([]Result, 0, len(hits))
	for _, h := range hits {
		id, ok := d.extIDs[h.Key]
		if !ok {
			continue
		}
		out = append(out, Result{ID: id, Distance: h.Score, Metadata: d.meta[h.Key]})
	}
	return out, nil
}

// Get returns the stored vector and metadata for id, or false if id
// is absent or tombstoned.
func (d *DB) Get(id string) (Record, bool) {
	slot, ok := d.ids[id]
	if !ok || d.graph.Deleted(slot) {
		return Record{}, false
	}
	vec, _ := d.graph.Lookup(slot)
	return Record{Vector: vec, Metadata: d.meta[slot]}, true
}

// Has reports whether id is present and live.
func (d *DB) Has(id string) bool {
	_, ok := d.Get(id)
	return ok
}

// ListIDs returns every live external ID, in unspecified order.
func (d *DB) ListIDs() []string {
	out := make([]string, 0, len(d.ids))
	for id, slot := range d.ids {
		if !d.graph.Deleted(slot) {
			out = append(out, id)
		}
	}
	return out
}

// Delete tombstones id, returning true iff it was live.
func (d *DB) Delete(ctx context.Context, id string) (bool, error) {
	if err := d.requireInit(); err != nil {
		return false, err
	}
	slot, ok := d.ids[id]
	if !ok {
		return false, nil
	}
	if !d.graph.Delete(slot) {
		return false, nil
	}
	if err := d.persist(ctx); err != nil {
		return true, err
	}
	return true, nil
}

// DeleteBatch deletes each id independently, returning the count
// actually removed.
func (d *DB) DeleteBatch(ctx context.Context, ids []string) (int, error) {
	if err := d.requireInit(); err != nil {
		return 0, err
	}
	count := 0
	for _, id := range ids {
		slot, ok := d.ids[id]
		if !ok {
			continue
		}
		if d.graph.Delete(slot) {
			count++
		}
	}
	if count > 0 {
		if err := d.persist(ctx); err != nil {
			return count, err
		}
	}
	return count, nil
}

// Size returns the count of live records.
func (d *DB) Size() int {
	return d.graph.Len()
}

// Clear empties the graph, resets internal indices, and reseeds the
// RNG, as if the facade had just been freshly constructed.
func (d *DB) Clear(ctx context.Context) error {
	if err := d.requireInit(); err != nil {
		return err
	}
	d.graph.Clear()
	d.ids = make(map[string]int)
	d.extIDs = make(map[int]string)
	d.meta = make(map[int]map[string]string)
	return d.persist(ctx)
}

// Flush persists the current in-memory state and returns once the
// host store has accepted it.
func (d *DB) Flush(ctx context.Context) error {
	if err := d.requireInit(); err != nil {
		return err
	}
	return d.persist(ctx)
}

// Export produces the snapshot text for the current state.
func (d *DB) Export() (string, error) {
	if err := d.requireInit(); err != nil {
		return "", err
	}
	blob, err := d.marshalSnapshot()
	if err != nil {
		return "", newError(DeserializationError, err)
	}
	return string(blob), nil
}

// Import replaces the current state with the snapshot encoded in
// text. On any structural error the facade is left untouched.
func (d *DB) Import(ctx context.Context, text string) error {
	if err := d.applySnapshot([]byte(text)); err != nil {
		return newError(DeserializationError, err)
	}
	d.initialized = true
	return d.persist(ctx)
}

// Destroy instructs the host store to erase this database's persisted
// snapshot and releases in-memory state.
func (d *DB) Destroy(ctx context.Context) error {
	if err := d.store.Erase(ctx, d.name); err != nil {
		return newError(PersistenceError, err)
	}
	return d.Close()
}

// Close releases in-memory state without touching the host store.
func (d *DB) Close() error {
	d.graph = nil
	d.ids = nil
	d.extIDs = nil
	d.meta = nil
	d.initialized = false
	return nil
}

// snapshotBlob is the on-the-wire form: the graph's own Snapshot
// fields promoted inline, plus the facade's ID bimap and metadata
// side tables.
type snapshotBlob struct {
	hnsw.Snapshot
	IDs      map[string]int            `json:"ids"`
	Metadata map[int]map[string]string `json:"metadata"`
}

func (d *DB) marshalSnapshot() ([]byte, error) {
	blob := snapshotBlob{
		Snapshot: d.graph.Export(),
		IDs:      d.ids,
		Metadata: d.meta,
	}
	return json.Marshal(blob)
}

func (d *DB) applySnapshot(raw []byte) error {
	var blob snapshotBlob
	if err := json.Unmarshal(raw, &blob); err != nil {
		return err
	}

	g, err := hnsw.NewGraph(hnsw.Config{Dims: blob.Dims, Metric: blob.Metric})
	if err != nil {
		return err
	}
	if err := g.Import(blob.Snapshot); err != nil {
		return err
	}

	extIDs := make(map[int]string, len(blob.IDs))
	for id, slot := range blob.IDs {
		extIDs[slot] = id
	}

	d.graph = g
	d.ids = blob.IDs
	if d.ids == nil {
		d.ids = make(map[string]int)
	}
	d.extIDs = extIDs
	d.meta = blob.Metadata
	if d.meta == nil {
		d.meta = make(map[int]map[string]string)
	}
	return nil
}

func (d *DB) persist(ctx context.Context) error {
	blob, err := d.marshalSnapshot()
	if err != nil {
		return newError(DeserializationError, err)
	}
	if err := d.store.Store(ctx, d.name, blob); err != nil {
		return newError(PersistenceError, err)
	}
	return nil
}
