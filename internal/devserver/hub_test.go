package devserver

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// connect opens an SSE stream and returns a function reading the next data event.
func connect(t *testing.T, url string) func() Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(t.Context(), 3*time.Second)
	t.Cleanup(cancel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	return func() Event {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if data, ok := strings.CutPrefix(strings.TrimSpace(line), "data: "); ok {
				var ev Event
				require.NoError(t, json.Unmarshal([]byte(data), &ev))
				return ev
			}
		}
	}
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Clients() == n }, 2*time.Second, 5*time.Millisecond)
}

func TestHubReloadKinds(t *testing.T) {
	hub := NewHub(nil, nil)
	defer hub.Shutdown()
	server := httptest.NewServer(hub)
	defer server.Close()

	next := connect(t, server.URL)
	waitForClients(t, hub, 1)

	hub.Reload([]string{"app/styles/a.css", "app/styles/b.CSS"})
	ev := next()
	assert.Equal(t, KindCSS, ev.Kind)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, []string{"app/styles/a.css", "app/styles/b.CSS"}, ev.Paths)

	hub.Reload([]string{"app/styles/a.css", "app/index.html"})
	assert.Equal(t, KindReload, next().Kind)

	hub.Error("styles", errors.New("undefined variable $x"))
	ev = next()
	assert.Equal(t, KindError, ev.Kind)
	assert.Equal(t, "styles", ev.Task)
	assert.Contains(t, ev.Message, "undefined variable")
}

func TestHubIgnoresDuplicateIDs(t *testing.T) {
	hub := NewHub(nil, nil)
	defer hub.Shutdown()
	server := httptest.NewServer(hub)
	defer server.Close()

	next := connect(t, server.URL)
	waitForClients(t, hub, 1)

	hub.Broadcast(Event{ID: "one", Kind: KindReload})
	hub.Broadcast(Event{ID: "one", Kind: KindCSS})
	hub.Broadcast(Event{Kind: KindCSS})
	hub.Broadcast(Event{ID: "two", Kind: KindCSS})

	assert.Equal(t, "one", next().ID)
	assert.Equal(t, "two", next().ID)
}

func TestHubDropsFullClients(t *testing.T) {
	hub := NewHub(nil, nil)
	defer hub.Shutdown()

	c := &hubClient{id: 7, ch: make(chan []byte, 1), done: make(chan struct{})}
	hub.mu.Lock()
	hub.clients[c.id] = c
	hub.mu.Unlock()

	hub.Broadcast(Event{ID: "a", Kind: KindReload})
	assert.Equal(t, 1, hub.Clients())
	hub.Broadcast(Event{ID: "b", Kind: KindReload})
	assert.Zero(t, hub.Clients())
	select {
	case <-c.done:
	default:
		t.Fatal("dropped client was not closed")
	}
}

func TestHubShutdownRejectsNewClients(t *testing.T) {
	hub := NewHub(nil, nil)
	hub.Shutdown()
	rec := httptest.NewRecorder()
	hub.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, LiveReloadPath, nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	hub.Shutdown()
}

func TestReloadKind(t *testing.T) {
	assert.Equal(t, KindReload, ReloadKind(nil))
	assert.Equal(t, KindCSS, ReloadKind([]string{"a.css"}))
	assert.Equal(t, KindReload, ReloadKind([]string{"a.css", "b.png"}))
}
