// SPDX-License-Identifier: MIT
package render

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	applog "spectra/internal/log"
)

// barsMessage is the JSON frame broadcast to connected clients each tick.
type barsMessage struct {
	Type   string    `json:"type"`
	Values []float32 `json:"values"`
}

// WebSocketRenderer broadcasts the smoothed bar vector to every connected
// WebSocket client. Frames are queued on a buffered channel and dropped
// under backpressure so a slow client can never stall the render tick.
type WebSocketRenderer struct {
	addr      string
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan barsMessage
	server    *http.Server
}

// NewWebSocketRenderer creates the renderer and starts its HTTP server on
// addr (e.g. ":8080"). Clients connect to /bars.
func NewWebSocketRenderer(addr string) *WebSocketRenderer {
	wr := &WebSocketRenderer{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // local visualization surface, accept any origin
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan barsMessage, 256),
	}

	wr.start()
	return wr
}

func (wr *WebSocketRenderer) start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/bars", wr.handleWebSocket)

	wr.server = &http.Server{
		Addr:    wr.addr,
		Handler: mux,
	}

	go func() {
		applog.Infof("render: WebSocket server listening on %s", wr.addr)
		if err := wr.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			applog.Errorf("render: WebSocket server error: %v", err)
		}
	}()

	go wr.handleBroadcasts()
}

func (wr *WebSocketRenderer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wr.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Errorf("render: WebSocket upgrade error: %v", err)
		return
	}

	wr.clientsMu.Lock()
	wr.clients[conn] = true
	total := len(wr.clients)
	wr.clientsMu.Unlock()
	applog.Infof("render: client connected, total: %d", total)

	// Reads are only used to detect disconnects.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				wr.clientsMu.Lock()
				delete(wr.clients, conn)
				total := len(wr.clients)
				wr.clientsMu.Unlock()
				conn.Close()
				applog.Infof("render: client disconnected, total: %d", total)
				return
			}
		}
	}()
}

func (wr *WebSocketRenderer) handleBroadcasts() {
	for msg := range wr.broadcast {
		wr.clientsMu.Lock()
		for client := range wr.clients {
			if err := client.WriteJSON(msg); err != nil {
				applog.Warnf("render: dropping client: %v", err)
				client.Close()
				delete(wr.clients, client)
			}
		}
		wr.clientsMu.Unlock()
	}
}

// Render queues the bar vector for broadcast. The slice is copied because
// the broadcast goroutine outlives the tick that produced it. When the
// queue is full the frame is dropped; the next tick supersedes it anyway.
func (wr *WebSocketRenderer) Render(bars []float32) error {
	msg := barsMessage{Type: "bars", Values: append([]float32(nil), bars...)}
	select {
	case wr.broadcast <- msg:
	default:
		// Queue full: drop the frame rather than block the pipeline.
	}
	return nil
}

// Close shuts down the server and all client connections.
func (wr *WebSocketRenderer) Close() error {
	applog.Infof("render: closing WebSocket server")

	wr.clientsMu.Lock()
	for client := range wr.clients {
		client.Close()
	}
	wr.clients = make(map[*websocket.Conn]bool)
	wr.clientsMu.Unlock()

	if wr.server != nil {
		return wr.server.Close()
	}
	return nil
}

var _ Renderer = (*WebSocketRenderer)(nil)
