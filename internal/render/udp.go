// SPDX-License-Identifier: MIT
package render

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"net"
	"sync"

	applog "spectra/internal/log"
)

// packetMagic identifies a bar-vector datagram.
var packetMagic = [4]byte{'S', 'P', 'B', 'R'}

// UDPRenderer sends each tick's bar vector as a single binary datagram:
//
//	magic    [4]byte  "SPBR"
//	sequence uint32   monotonically increasing, little-endian
//	count    uint16   number of bars
//	values   []float32 little-endian, count entries
//
// The packet buffer is reused across ticks so Render does not allocate.
type UDPRenderer struct {
	conn   *net.UDPConn
	mu     sync.Mutex // protects conn and packet during Close/Render
	closed bool

	sequence uint32
	packet   *bytes.Buffer
}

// NewUDPRenderer creates a renderer sending to targetAddress ("host:port").
func NewUDPRenderer(targetAddress string) (*UDPRenderer, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP target address %q: %w", targetAddress, err)
	}

	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial UDP target %q: %w", targetAddress, err)
	}

	applog.Infof("render: UDP stream to %s", conn.RemoteAddr())

	return &UDPRenderer{
		conn:   conn,
		packet: new(bytes.Buffer),
	}, nil
}

// Render packs one datagram and sends it. UDP writes are fast but can block
// under unusual OS conditions; the datagram is fire-and-forget so a send
// error is logged and returned without stopping the pipeline.
func (ur *UDPRenderer) Render(bars []float32) error {
	ur.mu.Lock()
	defer ur.mu.Unlock()

	if ur.closed {
		return fmt.Errorf("UDP renderer is closed")
	}

	ur.sequence++
	encodeBarsPacket(ur.packet, ur.sequence, bars)

	if _, err := ur.conn.Write(ur.packet.Bytes()); err != nil {
		applog.Warnf("render: UDP send failed: %v", err)
		return fmt.Errorf("failed to send UDP packet: %w", err)
	}
	return nil
}

// Close closes the underlying connection. Safe to call more than once.
func (ur *UDPRenderer) Close() error {
	ur.mu.Lock()
	defer ur.mu.Unlock()

	if ur.closed {
		return nil
	}
	ur.closed = true

	if ur.conn != nil {
		applog.Infof("render: closing UDP stream to %s", ur.conn.RemoteAddr())
		err := ur.conn.Close()
		ur.conn = nil
		if err != nil {
			return fmt.Errorf("failed to close UDP connection: %w", err)
		}
	}
	return nil
}

// encodeBarsPacket resets buf and writes the datagram for one tick.
func encodeBarsPacket(buf *bytes.Buffer, sequence uint32, bars []float32) {
	buf.Reset()
	buf.Write(packetMagic[:])

	var scratch [4]byte
	binary.LittleEndian.PutUint32(scratch[:], sequence)
	buf.Write(scratch[:])

	binary.LittleEndian.PutUint16(scratch[:2], uint16(len(bars)))
	buf.Write(scratch[:2])

	for _, v := range bars {
		binary.LittleEndian.PutUint32(scratch[:], math.Float32bits(v))
		buf.Write(scratch[:])
	}
}

var _ Renderer = (*UDPRenderer)(nil)
