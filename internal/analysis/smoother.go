// SPDX-License-Identifier: MIT
package analysis

import "fmt"

// Smoother applies meter-style ballistics to raw bar magnitudes: a rising
// value is tracked instantly (attack), a falling one fades by a fixed
// multiplicative factor per tick (decay). The asymmetry matches how
// transient loudness onsets are perceived; a symmetric filter looks
// sluggish on attacks.
type Smoother struct {
	state     []float32
	gain      float32
	maxHeight float32
	decay     float32
}

// NewSmoother creates a Smoother for numBars bars, all starting at zero.
// gain scales raw magnitudes, maxHeight clamps the scaled value, and decay
// is the per-tick fall factor. decay outside (0,1) makes the output diverge
// or freeze, so it is rejected at construction.
func NewSmoother(numBars int, gain, maxHeight, decay float64) (*Smoother, error) {
	if numBars <= 0 {
		return nil, fmt.Errorf("bar count must be positive, got %d", numBars)
	}
	if gain <= 0 {
		return nil, fmt.Errorf("gain must be positive, got %g", gain)
	}
	if maxHeight <= 0 {
		return nil, fmt.Errorf("max height must be positive, got %g", maxHeight)
	}
	if decay <= 0 || decay >= 1 {
		return nil, fmt.Errorf("decay must lie in (0,1), got %g", decay)
	}
	return &Smoother{
		state:     make([]float32, numBars),
		gain:      float32(gain),
		maxHeight: float32(maxHeight),
		decay:     float32(decay),
	}, nil
}

// Update folds one tick of raw magnitudes into the persistent state and
// returns it. The returned slice is the Smoother's internal state, valid
// until the next call. A raw slice shorter than the bar count is treated as
// silence for the missing bars, so passing nil decays everything.
func (s *Smoother) Update(raw []float32) []float32 {
	for i := range s.state {
		var mag float32
		if i < len(raw) {
			mag = raw[i]
		}
		scaled := mag * s.gain
		if scaled > s.maxHeight {
			scaled = s.maxHeight
		}
		if scaled > s.state[i] {
			s.state[i] = scaled // attack: jump up instantly
		} else {
			s.state[i] *= s.decay // release: fade down
		}
	}
	return s.state
}

// Bars returns the current smoothed state without updating it.
func (s *Smoother) Bars() []float32 {
	return s.state
}
