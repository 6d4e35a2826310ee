// SPDX-License-Identifier: MIT
package audio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"spectra/internal/buffer"
	"spectra/internal/config"
)

// newTestPlayer builds a player around raw interleaved samples, skipping the
// decoder and the output device.
func newTestPlayer(t *testing.T, samples []float32, channels int) (*Player, *buffer.Ring) {
	t.Helper()
	cfg := config.NewConfig()
	ring, err := buffer.New(cfg.Analysis.BufferCapacity)
	if err != nil {
		t.Fatal(err)
	}
	return &Player{
		cfg:         cfg,
		ring:        ring,
		samples:     samples,
		srcChannels: channels,
		srcRate:     44100,
	}, ring
}

func TestFillMonoToStereo(t *testing.T) {
	src := []float32{0.1, 0.2, 0.3, 0.4}
	player, ring := newTestPlayer(t, src, 1)

	dst := make([]float32, 8) // 4 frames, 2 channels
	player.fill(dst, 4)

	// A mono source is copied to both output channels.
	want := []float32{0.1, 0.1, 0.2, 0.2, 0.3, 0.3, 0.4, 0.4}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("dst[%d] = %g, want %g", i, dst[i], want[i])
		}
	}

	// The same frames land in the shared buffer unchanged.
	got, ok := ring.SnapshotLatest(4)
	if !ok {
		t.Fatal("snapshot failed")
	}
	for i := range src {
		if got[i] != src[i] {
			t.Errorf("buffer[%d] = %g, want %g", i, got[i], src[i])
		}
	}
}

func TestFillStereoPassThrough(t *testing.T) {
	src := []float32{0.1, 0.3, 0.2, 0.4} // 2 frames L/R
	player, ring := newTestPlayer(t, src, 2)

	dst := make([]float32, 4)
	player.fill(dst, 2)

	for i := range src {
		if dst[i] != src[i] {
			t.Errorf("dst[%d] = %g, want %g", i, dst[i], src[i])
		}
	}

	// The buffer receives the mono mean of each frame.
	got, ok := ring.SnapshotLatest(2)
	if !ok {
		t.Fatal("snapshot failed")
	}
	wantMono := []float32{(0.1 + 0.3) / 2, (0.2 + 0.4) / 2}
	for i := range wantMono {
		if absFloat32(got[i]-wantMono[i]) > 1e-6 {
			t.Errorf("buffer[%d] = %g, want %g", i, got[i], wantMono[i])
		}
	}
}

func TestFillStereoToMono(t *testing.T) {
	src := []float32{0.1, 0.3, 0.2, 0.4}
	player, _ := newTestPlayer(t, src, 2)

	dst := make([]float32, 2) // 2 frames, 1 channel
	player.fill(dst, 2)

	// Only the left channel survives when the device is mono.
	want := []float32{0.1, 0.2}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("dst[%d] = %g, want %g", i, dst[i], want[i])
		}
	}
}

func TestFillLoopsSource(t *testing.T) {
	src := []float32{0.1, 0.2, 0.3}
	player, _ := newTestPlayer(t, src, 1)

	dst := make([]float32, 8)
	player.fill(dst, 8)

	want := []float32{0.1, 0.2, 0.3, 0.1, 0.2, 0.3, 0.1, 0.2}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("dst[%d] = %g, want %g", i, dst[i], want[i])
		}
	}
	if player.pos != 2 {
		t.Errorf("pos = %d, want 2 after wrapping", player.pos)
	}
}

func TestFillResumesAcrossCalls(t *testing.T) {
	src := []float32{0.1, 0.2, 0.3, 0.4}
	player, _ := newTestPlayer(t, src, 1)

	dst := make([]float32, 2)
	player.fill(dst, 2)
	player.fill(dst, 2)

	want := []float32{0.3, 0.4}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("dst[%d] = %g, want %g", i, dst[i], want[i])
		}
	}
}

func TestLoadWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	writeTestWAV(t, path, 2, 48000, 16, []int{100, -100, 200, -200, 300, -300})

	samples, channels, rate, err := LoadWAV(path)
	if err != nil {
		t.Fatalf("LoadWAV: %v", err)
	}
	if channels != 2 {
		t.Errorf("channels = %d, want 2", channels)
	}
	if rate != 48000 {
		t.Errorf("rate = %d, want 48000", rate)
	}
	if len(samples) != 6 {
		t.Fatalf("got %d samples, want 6", len(samples))
	}

	scale := float32(1 << 15)
	wantFirst := 100 / scale
	if absFloat32(samples[0]-wantFirst) > 1e-6 {
		t.Errorf("samples[0] = %g, want %g", samples[0], wantFirst)
	}
	for i, s := range samples {
		if s < -1 || s > 1 {
			t.Errorf("sample %d = %g outside [-1,1]", i, s)
		}
	}
}

func TestLoadWAVRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-audio.wav")
	if err := os.WriteFile(path, []byte("definitely not RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, _, err := LoadWAV(path); err == nil {
		t.Fatal("expected error for invalid WAV data")
	}
}

func TestLoadWAVMissingFile(t *testing.T) {
	if _, _, _, err := LoadWAV(filepath.Join(t.TempDir(), "nope.wav")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

// writeTestWAV encodes interleaved integer samples to a WAV file.
func writeTestWAV(t *testing.T, path string, channels, rate, bitDepth int, data []int) {
	t.Helper()

	file, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	enc := wav.NewEncoder(file, rate, bitDepth, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		SourceBitDepth: bitDepth,
		Data:           data,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
}

func absFloat32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
