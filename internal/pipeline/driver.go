// SPDX-License-Identifier: MIT
/*
Package pipeline ties the shared sample buffer, the spectral analyzer, and
the temporal smoother into the per-tick render path.

The driver is the consumer side of the producer/consumer boundary: on each
tick it copies the most recent analysis window out of the buffer (a bounded,
allocation-free operation under the buffer's lock), then runs analysis and
smoothing on data it exclusively owns, with no lock held.
*/
package pipeline

import (
	"fmt"
	"sync"
	"time"

	"spectra/internal/analysis"
	"spectra/internal/buffer"
	applog "spectra/internal/log"
	"spectra/internal/render"
)

// Driver orchestrates one render tick: snapshot, analyze, smooth, render.
// It holds no pipeline state of its own beyond the reusable snapshot window;
// the smoothed vector lives in the Smoother and the audio history in the Ring.
type Driver struct {
	ring      *buffer.Ring
	analyzer  *analysis.Analyzer
	smoother  *analysis.Smoother
	renderers []render.Renderer

	window []float32 // reused snapshot destination, analyzer-window sized

	interval time.Duration
	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // protects ticker and doneChan during Start/Stop
}

// NewDriver wires the pipeline stages together. interval is the tick period;
// an invalid interval falls back to ~60Hz. The smoother's bar count must
// match the analyzer's.
func NewDriver(ring *buffer.Ring, analyzer *analysis.Analyzer, smoother *analysis.Smoother,
	interval time.Duration, renderers ...render.Renderer) (*Driver, error) {
	if ring == nil {
		return nil, fmt.Errorf("driver: sample buffer cannot be nil")
	}
	if analyzer == nil {
		return nil, fmt.Errorf("driver: analyzer cannot be nil")
	}
	if smoother == nil {
		return nil, fmt.Errorf("driver: smoother cannot be nil")
	}
	if len(smoother.Bars()) != analyzer.Bars() {
		return nil, fmt.Errorf("driver: smoother has %d bars, analyzer produces %d",
			len(smoother.Bars()), analyzer.Bars())
	}
	if ring.Cap() < analyzer.FFTSize() {
		return nil, fmt.Errorf("driver: buffer capacity %d cannot hold one analysis window (%d)",
			ring.Cap(), analyzer.FFTSize())
	}
	if interval <= 0 {
		interval = 16 * time.Millisecond
		applog.Warnf("driver: invalid tick interval, defaulting to %s", interval)
	}

	return &Driver{
		ring:      ring,
		analyzer:  analyzer,
		smoother:  smoother,
		renderers: renderers,
		window:    make([]float32, analyzer.FFTSize()),
		interval:  interval,
	}, nil
}

// Tick runs one render pass. On underrun (fewer buffered samples than one
// analysis window) the smoother receives silence so the bars decay toward
// zero instead of freezing, the expected behavior during startup.
func (d *Driver) Tick() {
	var raw []float32
	if d.ring.CopyLatestInto(d.window) {
		raw = d.analyzer.Process(d.window)
	}

	bars := d.smoother.Update(raw)

	for _, r := range d.renderers {
		if err := r.Render(bars); err != nil {
			applog.Debugf("driver: renderer error: %v", err)
		}
	}
}

// Bars returns the current smoothed vector. Read-only for callers.
func (d *Driver) Bars() []float32 {
	return d.smoother.Bars()
}

// Start launches the tick goroutine at the configured interval. Safe to call
// more than once; subsequent calls while running are no-ops.
func (d *Driver) Start() {
	d.mu.Lock()
	if d.ticker != nil {
		d.mu.Unlock()
		applog.Warnf("driver: Start called but already running")
		return
	}

	d.ticker = time.NewTicker(d.interval)
	d.doneChan = make(chan struct{})
	d.stopOnce = sync.Once{}

	// Capture locals so the goroutine never races Start/Stop on the fields.
	ticker := d.ticker
	doneChan := d.doneChan
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		applog.Infof("driver: render loop started (interval %s)", d.interval)
		for {
			select {
			case <-ticker.C:
				d.Tick()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop terminates the tick goroutine and waits for it to exit. Safe to call
// more than once and before Start.
func (d *Driver) Stop() {
	d.mu.Lock()
	if d.ticker == nil {
		d.mu.Unlock()
		return
	}
	ticker := d.ticker
	d.ticker = nil
	d.mu.Unlock()

	d.stopOnce.Do(func() {
		ticker.Stop()
		close(d.doneChan)
	})
	d.wg.Wait()
	applog.Infof("driver: render loop stopped")
}

// Close stops the loop and closes every renderer.
func (d *Driver) Close() error {
	d.Stop()
	var firstErr error
	for _, r := range d.renderers {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
