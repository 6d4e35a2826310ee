// SPDX-License-Identifier: MIT
package render

import (
	"bytes"
	"encoding/binary"
	"math"
	"net"
	"testing"
)

func TestEncodeBarsPacket(t *testing.T) {
	buf := new(bytes.Buffer)
	bars := []float32{0, 0.5, 2.0}

	encodeBarsPacket(buf, 7, bars)

	data := buf.Bytes()
	wantLen := 4 + 4 + 2 + 4*len(bars)
	if len(data) != wantLen {
		t.Fatalf("packet length = %d, want %d", len(data), wantLen)
	}
	if !bytes.Equal(data[:4], packetMagic[:]) {
		t.Errorf("magic = %q, want %q", data[:4], packetMagic[:])
	}
	if seq := binary.LittleEndian.Uint32(data[4:8]); seq != 7 {
		t.Errorf("sequence = %d, want 7", seq)
	}
	if count := binary.LittleEndian.Uint16(data[8:10]); count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
	for i, want := range bars {
		off := 10 + 4*i
		got := math.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4]))
		if got != want {
			t.Errorf("value %d = %f, want %f", i, got, want)
		}
	}
}

func TestEncodeBarsPacket_Reuse(t *testing.T) {
	buf := new(bytes.Buffer)

	encodeBarsPacket(buf, 1, make([]float32, 88))
	first := buf.Len()
	encodeBarsPacket(buf, 2, make([]float32, 88))

	// Reset between ticks keeps the packet a single frame.
	if buf.Len() != first {
		t.Errorf("buffer grew across calls: %d then %d", first, buf.Len())
	}
}

func TestUDPRenderer_RoundTrip(t *testing.T) {
	recv, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer recv.Close()

	ur, err := NewUDPRenderer(recv.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewUDPRenderer: %v", err)
	}
	defer ur.Close()

	bars := []float32{1.5, 0.25}
	if err := ur.Render(bars); err != nil {
		t.Fatalf("Render: %v", err)
	}

	packet := make([]byte, 1500)
	n, _, err := recv.ReadFromUDP(packet)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n != 4+4+2+8 {
		t.Fatalf("datagram size = %d, want %d", n, 4+4+2+8)
	}
	if seq := binary.LittleEndian.Uint32(packet[4:8]); seq != 1 {
		t.Errorf("first sequence = %d, want 1", seq)
	}
}

func TestUDPRenderer_ClosedRejectsRender(t *testing.T) {
	recv, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer recv.Close()

	ur, err := NewUDPRenderer(recv.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewUDPRenderer: %v", err)
	}

	if err := ur.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := ur.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
	if err := ur.Render([]float32{1}); err == nil {
		t.Error("Render after Close should fail")
	}
}
