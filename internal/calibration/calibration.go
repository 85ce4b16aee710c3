// Package calibration turns a raw adjudicator confidence score into a
// calibrated probability and a human-readable band, using isotonic
// regression fit on validation pairs when a trained model is available.
package calibration

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"claimgraph/internal/claim"
)

// untrainedDampening is the conservative factor applied to raw confidence
// when no isotonic model has been trained yet.
const untrainedDampening = 0.9

// Calibrator maps a raw confidence in [0,1] to a calibrated probability and
// a descriptive band. Safe for concurrent use.
type Calibrator struct {
	mu    sync.RWMutex
	model *isotonicModel
	path  string
}

// New constructs an untrained Calibrator. Call Load to restore a
// previously trained model, if one exists on disk.
func New(modelPath string) *Calibrator {
	return &Calibrator{path: modelPath}
}

// Load reads a persisted isotonic model from disk. A missing file is not
// an error: the system must run correctly with no trained model.
func (c *Calibrator) Load() error {
	if c.path == "" {
		return nil
	}
	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("calibration: read model: %w", err)
	}
	var m isotonicModel
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("calibration: parse model: %w", err)
	}
	c.mu.Lock()
	c.model = &m
	c.mu.Unlock()
	return nil
}

// Save persists the currently trained model to disk, atomically.
func (c *Calibrator) Save() error {
	c.mu.RLock()
	m := c.model
	c.mu.RUnlock()
	if m == nil {
		return fmt.Errorf("calibration: no trained model to save")
	}
	if c.path == "" {
		return fmt.Errorf("calibration: no model path configured")
	}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("calibration: write model: %w", err)
	}
	return os.Rename(tmp, c.path)
}

// IsTrained reports whether a fitted model is currently loaded.
func (c *Calibrator) IsTrained() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model != nil
}

// Fit trains the isotonic model from (raw_confidence, outcome) validation
// pairs, where outcome is 0 or 1. The fitted model is kept in memory; call
// Save to persist it.
func (c *Calibrator) Fit(rawConfidences []float64, outcomes []float64) error {
	if len(rawConfidences) != len(outcomes) {
		return fmt.Errorf("calibration: mismatched input lengths")
	}
	if len(rawConfidences) == 0 {
		return fmt.Errorf("calibration: no training data")
	}
	m := fitIsotonic(rawConfidences, outcomes)
	c.mu.Lock()
	c.model = m
	c.mu.Unlock()
	return nil
}

// Calibrate maps a raw confidence to a calibrated probability and band. If
// no model is trained, it applies the conservative dampening factor.
func (c *Calibrator) Calibrate(raw float64) (float64, claim.ConfidenceBand) {
	raw = clip(raw, 0, 1)
	c.mu.RLock()
	m := c.model
	c.mu.RUnlock()

	var calibrated float64
	if m == nil {
		calibrated = raw * untrainedDampening
	} else {
		calibrated = m.predict(raw)
	}
	return calibrated, bandFor(calibrated)
}

// bandFor maps a calibrated probability to its descriptive band using the
// cut-points {0.3, 0.6, 0.85}.
func bandFor(calibrated float64) claim.ConfidenceBand {
	switch {
	case calibrated < 0.3:
		return claim.BandUncertain
	case calibrated < 0.6:
		return claim.BandWeak
	case calibrated < 0.85:
		return claim.BandModerate
	default:
		return claim.BandHigh
	}
}

func clip(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// isotonicModel is a monotone piecewise-linear function through the pooled
// points of a pool-adjacent-violators fit, interpolating linearly between
// them, with out-of-range inputs clipped to the nearest endpoint (sklearn's
// out_of_bounds="clip" behaviour).
type isotonicModel struct {
	X []float64 `json:"x"`
	Y []float64 `json:"y"`
}

func (m *isotonicModel) predict(x float64) float64 {
	if len(m.X) == 0 {
		return x * untrainedDampening
	}
	if x <= m.X[0] {
		return m.Y[0]
	}
	if x >= m.X[len(m.X)-1] {
		return m.Y[len(m.Y)-1]
	}
	i := sort.SearchFloat64s(m.X, x)
	if i < len(m.X) && m.X[i] == x {
		return m.Y[i]
	}
	// Linear interpolation between the two bracketing pooled points.
	lo, hi := i-1, i
	x0, x1 := m.X[lo], m.X[hi]
	y0, y1 := m.Y[lo], m.Y[hi]
	if x1 == x0 {
		return y0
	}
	frac := (x - x0) / (x1 - x0)
	return y0 + frac*(y1-y0)
}

// fitIsotonic fits a monotone non-decreasing sequence of pooled points to
// (x, y) pairs using the pool-adjacent-violators algorithm (PAVA).
func fitIsotonic(x, y []float64) *isotonicModel {
	n := len(x)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool { return x[idx[i]] < x[idx[j]] })

	sx := make([]float64, n)
	sy := make([]float64, n)
	for i, j := range idx {
		sx[i] = x[j]
		sy[i] = y[j]
	}

	blocks := make([]*pavaBlock, 0, n)
	for i := 0; i < n; i++ {
		b := &pavaBlock{xs: []float64{sx[i]}, sum: sy[i], weight: 1}
		blocks = append(blocks, b)
		for len(blocks) > 1 && blocks[len(blocks)-2].mean() > blocks[len(blocks)-1].mean() {
			prev := blocks[len(blocks)-2]
			cur := blocks[len(blocks)-1]
			merged := &pavaBlock{
				xs:     append(prev.xs, cur.xs...),
				sum:    prev.sum + cur.sum,
				weight: prev.weight + cur.weight,
			}
			blocks = append(blocks[:len(blocks)-2], merged)
		}
	}

	m := &isotonicModel{}
	for _, b := range blocks {
		mean := b.mean()
		for _, xv := range b.xs {
			m.X = append(m.X, xv)
			m.Y = append(m.Y, mean)
		}
	}
	return m
}

// pavaBlock is a pooled run of points sharing a single fitted value.
type pavaBlock struct {
	xs     []float64
	sum    float64
	weight float64
}

func (b *pavaBlock) mean() float64 { return b.sum / b.weight }
