package devserver

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"git.home.luguber.info/inful/assetflow/internal/logfields"
	"git.home.luguber.info/inful/assetflow/internal/metrics"
)

// Event kinds sent to browsers.
const (
	KindCSS    = "css"    // swap stylesheets in place
	KindReload = "reload" // reload the page
	KindError  = "error"  // log a task failure in the browser console
)

// Event is one live-reload message, sent as the data of an SSE event.
type Event struct {
	ID      string   `json:"id"`
	Kind    string   `json:"kind"`
	Paths   []string `json:"paths,omitempty"`
	Task    string   `json:"task,omitempty"`
	Message string   `json:"message,omitempty"`
}

// Hub manages the SSE clients of the live-reload endpoint.
type Hub struct {
	mu       sync.RWMutex
	nextID   int
	clients  map[int]*hubClient
	recorder metrics.Recorder
	logger   *slog.Logger
	closed   bool
	lastID   string
	seq      int64
}

type hubClient struct {
	id   int
	ch   chan []byte
	done chan struct{}
}

// NewHub returns a hub. A nil recorder disables metrics.
func NewHub(recorder metrics.Recorder, logger *slog.Logger) *Hub {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{clients: map[int]*hubClient{}, recorder: recorder, logger: logger}
}

// ServeHTTP implements the SSE endpoint.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, "livereload shutting down", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	client := &hubClient{ch: make(chan []byte, 8), done: make(chan struct{})}
	h.mu.Lock()
	client.id = h.nextID
	h.nextID++
	h.clients[client.id] = client
	n := len(h.clients)
	h.mu.Unlock()
	h.recorder.SetLiveClients(n)

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(": connected\n\n"); err != nil {
		h.removeClient(client.id)
		return
	}
	if err := bw.Flush(); err == nil {
		flusher.Flush()
	}

	hb := time.NewTicker(30 * time.Second)
	defer hb.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.removeClient(client.id)
			return
		case <-client.done:
			return
		case <-hb.C:
			if _, err := bw.WriteString(": ping\n\n"); err == nil {
				_ = bw.Flush()
				flusher.Flush()
			}
		case data := <-client.ch:
			if _, err := bw.WriteString("data: " + string(data) + "\n\n"); err != nil {
				h.logger.Debug("livereload write", logfields.Error(err))
				h.removeClient(client.id)
				return
			}
			_ = bw.Flush()
			flusher.Flush()
		}
	}
}

func (h *Hub) removeClient(id int) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
		close(c.done)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		h.recorder.SetLiveClients(n)
	}
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Reload tells browsers that paths changed. When every path is a stylesheet the event
// kind is css, otherwise reload.
func (h *Hub) Reload(paths []string) {
	h.Broadcast(Event{ID: h.nextEventID(), Kind: ReloadKind(paths), Paths: paths})
}

// Error reports a failed task to browsers.
func (h *Hub) Error(task string, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	h.Broadcast(Event{ID: h.nextEventID(), Kind: KindError, Task: task, Message: msg})
}

// Broadcast sends ev to every client. Events without an ID or repeating the previous ID
// are ignored; clients whose buffer is full are dropped.
func (h *Hub) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("livereload encode", logfields.Error(err))
		return
	}

	h.mu.Lock()
	if h.closed || ev.ID == "" || ev.ID == h.lastID {
		h.mu.Unlock()
		return
	}
	h.lastID = ev.ID
	snapshot := make([]*hubClient, 0, len(h.clients))
	for _, c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.Unlock()

	dropped := 0
	for _, c := range snapshot {
		select {
		case c.ch <- data:
		default:
			dropped++
			h.removeClient(c.id)
		}
	}
	if ev.Kind != KindError {
		h.recorder.IncReload(ev.Kind)
	}
	h.logger.Debug("livereload broadcast",
		slog.String("kind", ev.Kind),
		logfields.Clients(len(snapshot)),
		slog.Int("dropped", dropped))
}

// Shutdown closes all clients and prevents future broadcasts.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := h.clients
	h.clients = map[int]*hubClient{}
	h.mu.Unlock()
	for _, c := range clients {
		close(c.done)
	}
	h.recorder.SetLiveClients(0)
}

func (h *Hub) nextEventID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	return strconv.FormatInt(time.Now().UnixNano(), 36) + "-" + strconv.FormatInt(h.seq, 10)
}

// ReloadKind returns KindCSS when every path is a stylesheet and KindReload otherwise.
func ReloadKind(paths []string) string {
	if len(paths) == 0 {
		return KindReload
	}
	for _, p := range paths {
		if !strings.EqualFold(path.Ext(p), ".css") {
			return KindReload
		}
	}
	return KindCSS
}
