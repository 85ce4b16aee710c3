package vectorindex

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"
	"os"
)

// snapshotRecord is the gob-serialisable form of a persisted HNSW index. No
// third-party binary format for an HNSW graph appears anywhere in the
// example corpus, so persistence falls back to encoding/gob (see
// DESIGN.md for the stdlib justification).
type snapshotRecord struct {
	Params    Params
	Nodes     []snapshotNode
	IDToIndex map[string]int
	Entry     int
}

type snapshotNode struct {
	ID        string
	Vector    []float32
	Metadata  map[string]string
	Level     int
	Neighbors [][]int
}

// Snapshot writes the index to path using an atomic write-temp-then-rename,
// so a crash mid-write never leaves a partially written file in place.
func (h *HNSW) Snapshot(path string) error {
	h.mu.RLock()
	rec := snapshotRecord{
		Params:    h.params,
		IDToIndex: h.idToIndex,
		Entry:     h.entry,
		Nodes:     make([]snapshotNode, len(h.nodes)),
	}
	for i, n := range h.nodes {
		rec.Nodes[i] = snapshotNode{
			ID:        n.id,
			Vector:    n.vector,
			Metadata:  n.metadata,
			Level:     n.level,
			Neighbors: n.neighbors,
		}
	}
	h.mu.RUnlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return fmt.Errorf("vectorindex: encode snapshot: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("vectorindex: write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("vectorindex: rename snapshot: %w", err)
	}
	return nil
}

// Restore replaces the index's contents with the snapshot at path. It is
// only safe to call before the index is shared with readers.
func (h *HNSW) Restore(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("vectorindex: read snapshot: %w", err)
	}
	var rec snapshotRecord
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&rec); err != nil {
		return fmt.Errorf("vectorindex: decode snapshot: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.params = rec.Params
	if rec.Params.M > 1 {
		h.mL = 1.0 / math.Log(float64(rec.Params.M))
	}
	h.idToIndex = rec.IDToIndex
	h.entry = rec.Entry
	h.nodes = make([]hnswNode, len(rec.Nodes))
	for i, n := range rec.Nodes {
		h.nodes[i] = hnswNode{
			id:        n.ID,
			vector:    n.Vector,
			metadata:  n.Metadata,
			level:     n.Level,
			neighbors: n.Neighbors,
		}
	}
	return nil
}
