// SPDX-License-Identifier: MIT
/*
Package render provides the display surfaces fed by the pipeline driver.

A Renderer receives the smoothed bar vector once per tick. Implementations
must never block the tick: slow consumers drop frames rather than stall the
pipeline. The bars slice passed to Render is only valid for the duration of
the call; renderers that hand data to another goroutine must copy it first.
*/
package render

import (
	applog "spectra/internal/log"
	"spectra/pkg/dsputil"
)

// Renderer is the write side of the display boundary. Implementations are
// responsible for mapping bar magnitudes to their medium; they have no
// access to pipeline state.
type Renderer interface {
	Render(bars []float32) error
	Close() error
}

// LogRenderer logs the peak bar at debug level. Useful for headless runs
// and for verifying the pipeline is alive without any display attached.
type LogRenderer struct {
	every int // log every Nth tick to keep the output readable
	tick  int
}

// NewLogRenderer creates a LogRenderer that reports once per `every` ticks.
func NewLogRenderer(every int) *LogRenderer {
	if every < 1 {
		every = 1
	}
	return &LogRenderer{every: every}
}

func (lr *LogRenderer) Render(bars []float32) error {
	lr.tick++
	if lr.tick%lr.every != 0 {
		return nil
	}
	peak := dsputil.FindPeak(bars, 0, len(bars)-1)
	var height float32
	if len(bars) > 0 {
		height = bars[peak]
	}
	applog.Debugf("render: peak bar %d/%d height %.3f", peak, len(bars), height)
	return nil
}

func (lr *LogRenderer) Close() error {
	return nil
}

var _ Renderer = (*LogRenderer)(nil)
