// SPDX-License-Identifier: MIT
package transport

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	applog "spectro/internal/log"
	"spectro/internal/worker"
)

// defaultMinSendInterval caps record broadcasts at roughly 30 frames per
// second so a dense file grid cannot flood slow clients.
const defaultMinSendInterval = 33 * time.Millisecond

// WebSocketSink broadcasts worker events as JSON frames to every client
// connected on /events. Record frames are rate limited; settings,
// progress, and termination frames always go out.
type WebSocketSink struct {
	clients      map[*websocket.Conn]bool
	clientsMutex sync.Mutex
	upgrader     websocket.Upgrader
	server       *http.Server

	rateMutex       sync.Mutex
	lastSend        time.Time
	minSendInterval time.Duration
}

// Frame shapes sent to clients. The type field discriminates.
type recordFrame struct {
	Type      string    `json:"type"`
	WorkerID  int       `json:"worker_id"`
	Iteration int       `json:"iteration"`
	Total     int       `json:"total"`
	Time      float64   `json:"time"`
	PSD       []float64 `json:"psd"`
}

type settingsFrame struct {
	Type        string    `json:"type"`
	WorkerID    int       `json:"worker_id"`
	SampleRate  float64   `json:"sample_rate"`
	DF          float64   `json:"df"`
	N           int       `json:"n"`
	Frequencies []float64 `json:"frequencies"`
}

type progressFrame struct {
	Type     string  `json:"type"`
	WorkerID int     `json:"worker_id"`
	Percent  float64 `json:"percent"`
}

type terminatedFrame struct {
	Type     string `json:"type"`
	WorkerID int    `json:"worker_id"`
	Reason   string `json:"reason"`
}

// NewWebSocketSink creates the sink and starts its HTTP server on the
// given port (e.g. "8080"). A non-positive minSendInterval falls back to
// the default record rate limit.
func NewWebSocketSink(port string, minSendInterval time.Duration) *WebSocketSink {
	if minSendInterval <= 0 {
		minSendInterval = defaultMinSendInterval
	}

	s := &WebSocketSink{
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // viewers connect from arbitrary origins
			},
		},
		minSendInterval: minSendInterval,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/events", s.handleWebSocket)
	s.server = &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}

	go func() {
		applog.Infof("WebSocket: event server listening on port %s", port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			applog.Errorf("WebSocket: server error: %v", err)
		}
	}()

	return s
}

// handleWebSocket upgrades the connection and registers the client. A
// reader goroutine watches for the close handshake and unregisters it.
func (s *WebSocketSink) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("WebSocket: upgrade error: %v", err)
		return
	}

	s.clientsMutex.Lock()
	s.clients[conn] = true
	total := len(s.clients)
	s.clientsMutex.Unlock()
	applog.Infof("WebSocket: client connected, total: %d", total)

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.clientsMutex.Lock()
				delete(s.clients, conn)
				total := len(s.clients)
				s.clientsMutex.Unlock()
				conn.Close()
				applog.Infof("WebSocket: client disconnected, total: %d", total)
				return
			}
		}
	}()
}

// broadcast writes frame to every client, dropping clients whose writes
// fail.
func (s *WebSocketSink) broadcast(frame any) {
	s.clientsMutex.Lock()
	defer s.clientsMutex.Unlock()
	for client := range s.clients {
		if err := client.WriteJSON(frame); err != nil {
			applog.Warnf("WebSocket: send error, dropping client: %v", err)
			client.Close()
			delete(s.clients, client)
		}
	}
}

func (s *WebSocketSink) OnRecord(rec worker.Record) {
	s.rateMutex.Lock()
	now := time.Now()
	if now.Sub(s.lastSend) < s.minSendInterval {
		s.rateMutex.Unlock()
		return // drop this frame
	}
	s.lastSend = now
	s.rateMutex.Unlock()

	s.broadcast(recordFrame{
		Type:      "record",
		WorkerID:  rec.WorkerID,
		Iteration: rec.Iteration,
		Total:     rec.Total,
		Time:      rec.Time,
		PSD:       rec.PSD,
	})
}

func (s *WebSocketSink) OnSettings(u worker.SettingsUpdate) {
	s.broadcast(settingsFrame{
		Type:        "settings",
		WorkerID:    u.WorkerID,
		SampleRate:  u.SampleRate,
		DF:          u.DF,
		N:           u.N,
		Frequencies: u.Frequencies,
	})
}

func (s *WebSocketSink) OnProgress(workerID int, percent float64) {
	s.broadcast(progressFrame{Type: "progress", WorkerID: workerID, Percent: percent})
}

func (s *WebSocketSink) OnTerminated(workerID int, reason worker.Reason) {
	s.broadcast(terminatedFrame{Type: "terminated", WorkerID: workerID, Reason: reason.String()})
}

// Close disconnects every client and shuts the server down.
func (s *WebSocketSink) Close() error {
	applog.Infof("WebSocket: closing event server")

	s.clientsMutex.Lock()
	for client := range s.clients {
		client.Close()
	}
	s.clients = make(map[*websocket.Conn]bool)
	s.clientsMutex.Unlock()

	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

var _ Sink = (*WebSocketSink)(nil)
