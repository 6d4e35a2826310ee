// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"
)

func newTestSmoother(t *testing.T, bars int, gain, maxHeight, decay float64) *Smoother {
	t.Helper()
	s, err := NewSmoother(bars, gain, maxHeight, decay)
	if err != nil {
		t.Fatalf("NewSmoother: %v", err)
	}
	return s
}

func TestNewSmoother_Validation(t *testing.T) {
	tests := []struct {
		name      string
		bars      int
		gain      float64
		maxHeight float64
		decay     float64
	}{
		{"zero bars", 0, 6, 2, 0.88},
		{"zero gain", 88, 0, 2, 0.88},
		{"negative gain", 88, -1, 2, 0.88},
		{"zero max height", 88, 6, 0, 0.88},
		{"decay zero freezes", 88, 6, 2, 0},
		{"decay one freezes", 88, 6, 2, 1},
		{"decay above one diverges", 88, 6, 2, 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSmoother(tt.bars, tt.gain, tt.maxHeight, tt.decay); err == nil {
				t.Error("expected construction error, got nil")
			}
		})
	}
}

func TestUpdate_AttackIsInstant(t *testing.T) {
	s := newTestSmoother(t, 3, 2.0, 10.0, 0.5)

	out := s.Update([]float32{0.5, 1.0, 0})
	want := []float32{1.0, 2.0, 0}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("bar %d = %f after attack, want %f", i, out[i], want[i])
		}
	}
}

func TestUpdate_ClampCeilsAttack(t *testing.T) {
	s := newTestSmoother(t, 1, 6.0, 2.0, 0.88)

	out := s.Update([]float32{100})
	if out[0] != 2.0 {
		t.Errorf("bar = %f, want clamp ceiling 2.0", out[0])
	}
}

func TestUpdate_RiseThenGeometricFall(t *testing.T) {
	const decay = 0.88
	s := newTestSmoother(t, 1, 1.0, 10.0, decay)

	// Rise in one step to the scaled value.
	s.Update([]float32{4.0})
	if got := s.Bars()[0]; got != 4.0 {
		t.Fatalf("after attack = %f, want 4.0", got)
	}

	// Then fall geometrically by the decay factor each tick.
	expected := 4.0
	for tick := 0; tick < 20; tick++ {
		out := s.Update([]float32{0})
		expected *= decay
		if math.Abs(float64(out[0])-expected) > 1e-5 {
			t.Fatalf("tick %d: bar = %f, want %f", tick, out[0], expected)
		}
	}
}

func TestUpdate_DecayStopsAtNewRawLevel(t *testing.T) {
	s := newTestSmoother(t, 1, 1.0, 10.0, 0.5)

	s.Update([]float32{8.0})
	// Decays 8 → 4 → 2, then the raw level 3 becomes an attack.
	s.Update([]float32{3.0}) // decays to 4.0, still above raw
	s.Update([]float32{3.0}) // decays to 2.0, now below raw
	s.Update([]float32{3.0}) // attack back up to 3.0
	if got := s.Bars()[0]; got != 3.0 {
		t.Errorf("bar = %f, want re-attack to 3.0", got)
	}
}

func TestUpdate_ZeroInputDecaysTowardZero(t *testing.T) {
	s := newTestSmoother(t, 4, 6.0, 2.0, 0.88)
	s.Update([]float32{1, 1, 1, 1})

	prev := append([]float32(nil), s.Bars()...)
	for tick := 0; tick < 500; tick++ {
		out := s.Update(nil)
		for i, v := range out {
			if v < 0 {
				t.Fatalf("tick %d: bar %d went negative: %f", tick, i, v)
			}
			if v > prev[i] {
				t.Fatalf("tick %d: bar %d rose on silence: %f > %f", tick, i, v, prev[i])
			}
		}
		copy(prev, out)
	}

	for i, v := range s.Bars() {
		if v > 1e-6 {
			t.Errorf("bar %d = %f after 500 silent ticks, want ~0", i, v)
		}
	}
}

func TestUpdate_ShortRawTreatedAsSilence(t *testing.T) {
	s := newTestSmoother(t, 3, 1.0, 10.0, 0.5)
	s.Update([]float32{2, 2, 2})

	out := s.Update([]float32{2}) // bars 1 and 2 see silence
	if out[0] != 2.0 {
		t.Errorf("bar 0 = %f, want held at 2.0", out[0])
	}
	for i := 1; i < 3; i++ {
		if out[i] != 1.0 {
			t.Errorf("bar %d = %f, want decayed 1.0", i, out[i])
		}
	}
}

func TestUpdate_ZeroAllocs(t *testing.T) {
	s := newTestSmoother(t, 88, 6.0, 2.0, 0.88)
	raw := make([]float32, 88)
	for i := range raw {
		raw[i] = float32(i) / 88
	}

	allocs := testing.AllocsPerRun(100, func() {
		s.Update(raw)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in Update, got %.1f", allocs)
	}
}

func BenchmarkUpdate(b *testing.B) {
	s, err := NewSmoother(88, 6.0, 2.0, 0.88)
	if err != nil {
		b.Fatal(err)
	}
	raw := make([]float32, 88)
	for i := range raw {
		raw[i] = float32(i) / 88
	}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		s.Update(raw)
	}
}
