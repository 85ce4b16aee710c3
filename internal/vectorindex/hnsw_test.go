package vectorindex

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unit(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := float32(1.0 / math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x * inv
	}
	return out
}

func TestHNSW_IndexRoundTrip(t *testing.T) {
	idx := New(DefaultParams())
	vecs := map[string][]float32{
		"c1": unit([]float32{1, 0, 0, 0}),
		"c2": unit([]float32{0, 1, 0, 0}),
		"c3": unit([]float32{0, 0, 1, 0}),
	}
	for id, v := range vecs {
		require.NoError(t, idx.Index(id, v, map[string]string{"paper": "P1"}))
	}

	for id, v := range vecs {
		hits, err := idx.SearchByVector(v, 1, 0)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, id, hits[0].ClaimID)
		assert.GreaterOrEqual(t, hits[0].Similarity, 0.99)
	}
}

func TestHNSW_DuplicateID(t *testing.T) {
	idx := New(DefaultParams())
	v := unit([]float32{1, 0})
	require.NoError(t, idx.Index("c1", v, nil))
	err := idx.Index("c1", v, nil)
	assert.Error(t, err)
	var dup *ErrDuplicateID
	assert.ErrorAs(t, err, &dup)
}

func TestHNSW_MinSimilarityFilters(t *testing.T) {
	idx := New(DefaultParams())
	require.NoError(t, idx.Index("near", unit([]float32{1, 0}), nil))
	require.NoError(t, idx.Index("far", unit([]float32{0, 1}), nil))

	hits, err := idx.SearchByVector(unit([]float32{1, 0}), 5, 0.9)
	require.NoError(t, err)
	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.ClaimID)
	}
	assert.Contains(t, ids, "near")
	assert.NotContains(t, ids, "far")
}

func TestHNSW_SnapshotRestore(t *testing.T) {
	idx := New(DefaultParams())
	require.NoError(t, idx.Index("c1", unit([]float32{1, 0, 0}), map[string]string{"k": "v"}))
	require.NoError(t, idx.Index("c2", unit([]float32{0, 1, 0}), nil))

	path := filepath.Join(t.TempDir(), "index.bin")
	require.NoError(t, idx.Snapshot(path))
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should be renamed away")

	restored := New(DefaultParams())
	require.NoError(t, restored.Restore(path))
	assert.Equal(t, idx.Len(), restored.Len())

	vec, ok := restored.Reconstruct("c1")
	require.True(t, ok)
	assert.InDeltaSlice(t, []float64{1, 0, 0}, toFloat64(vec), 1e-6)
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
