package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministic_SameTextSameVector(t *testing.T) {
	p := NewDeterministic(32, 7)
	out, err := p.Embed(context.Background(), []string{"hello world", "hello world"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, out[0], out[1])
}

func TestDeterministic_IsUnitNorm(t *testing.T) {
	p := NewDeterministic(32, 1)
	out, err := p.Embed(context.Background(), []string{"Self-attention improves translation quality."})
	require.NoError(t, err)
	var sum float64
	for _, x := range out[0] {
		sum += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-6)
}

func TestDeterministic_DistinctTextsDiffer(t *testing.T) {
	p := NewDeterministic(32, 1)
	out, err := p.Embed(context.Background(), []string{"alpha claim text", "beta unrelated claim"})
	require.NoError(t, err)
	assert.NotEqual(t, out[0], out[1])
}
