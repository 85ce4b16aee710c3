package calibration

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimgraph/internal/claim"
)

func TestCalibrate_UntrainedDampens(t *testing.T) {
	c := New("")
	calibrated, band := c.Calibrate(1.0)
	assert.InDelta(t, 0.9, calibrated, 1e-9)
	assert.Equal(t, claim.BandHigh, band)
}

func TestCalibrate_UntrainedZero(t *testing.T) {
	c := New("")
	calibrated, band := c.Calibrate(0.0)
	assert.InDelta(t, 0.0, calibrated, 1e-9)
	assert.Equal(t, claim.BandUncertain, band)
}

func TestCalibrate_BandCutpoints(t *testing.T) {
	c := New("")
	require.NoError(t, c.Fit([]float64{0, 1}, []float64{0, 1}))

	cases := []struct {
		raw  float64
		band claim.ConfidenceBand
	}{
		{0.1, claim.BandUncertain},
		{0.5, claim.BandWeak},
		{0.7, claim.BandModerate},
		{0.95, claim.BandHigh},
	}
	for _, tc := range cases {
		_, band := c.Calibrate(tc.raw)
		assert.Equal(t, tc.band, band, "raw=%v", tc.raw)
	}
}

func TestCalibrate_Monotonic(t *testing.T) {
	c := New("")
	require.NoError(t, c.Fit(
		[]float64{0.1, 0.2, 0.3, 0.5, 0.6, 0.9},
		[]float64{0, 1, 0, 1, 1, 1},
	))

	prev := -1.0
	for raw := 0.0; raw <= 1.0; raw += 0.05 {
		got, _ := c.Calibrate(raw)
		assert.GreaterOrEqual(t, got, prev, "calibration must be monotone non-decreasing at raw=%v", raw)
		prev = got
	}
}

func TestCalibrate_EndpointsClip(t *testing.T) {
	c := New("")
	require.NoError(t, c.Fit([]float64{0.2, 0.4, 0.6}, []float64{0, 0, 1}))

	lo, _ := c.Calibrate(0.0)
	hi, _ := c.Calibrate(1.0)
	inLo, _ := c.Calibrate(0.2)
	inHi, _ := c.Calibrate(0.6)
	assert.InDelta(t, inLo, lo, 1e-9)
	assert.InDelta(t, inHi, hi, 1e-9)
}

func TestCalibrate_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	c := New(path)
	require.NoError(t, c.Fit([]float64{0.1, 0.4, 0.8}, []float64{0, 1, 1}))
	require.NoError(t, c.Save())

	restored := New(path)
	require.NoError(t, restored.Load())
	require.True(t, restored.IsTrained())

	want, _ := c.Calibrate(0.4)
	got, _ := restored.Calibrate(0.4)
	assert.InDelta(t, want, got, 1e-9)
}

func TestCalibrate_LoadMissingFileIsNotError(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, c.Load())
	assert.False(t, c.IsTrained())
}
