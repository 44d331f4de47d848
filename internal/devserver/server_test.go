package devserver

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLayers() LayeredFS {
	temp := fstest.MapFS{
		"styles/a.css": {Data: []byte("body{color:red}")},
	}
	source := fstest.MapFS{
		"index.html":   {Data: []byte("<html><body><p>hi</p></body></html>")},
		"bare.html":    {Data: []byte("<p>no body tag")},
		"styles/a.css": {Data: []byte("body { color: $c; }")},
		"scripts/a.js": {Data: []byte("console.log(1)")},
	}
	return LayeredFS{temp, source}
}

func get(t *testing.T, h http.Handler, path string) (*http.Response, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	resp := rec.Result()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestServerServesLayersAndInjectsScript(t *testing.T) {
	srv := NewServer(ServerOptions{Root: testLayers(), Hub: NewHub(nil, nil)})
	h := srv.Handler()

	resp, body := get(t, h, "/styles/a.css")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "body{color:red}", body)

	_, body = get(t, h, "/")
	assert.Contains(t, body, `<script async src="/__livereload.js"></script></body>`)

	_, body = get(t, h, "/bare.html")
	assert.True(t, strings.HasSuffix(body, scriptTag))

	_, body = get(t, h, "/scripts/a.js")
	assert.Equal(t, "console.log(1)", body)

	resp, body = get(t, h, LiveReloadScriptPath)
	assert.Contains(t, resp.Header.Get("Content-Type"), "javascript")
	assert.Contains(t, body, "EventSource('/__livereload')")

	resp, _ = get(t, h, "/missing.css")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServerWithoutHubDoesNotInject(t *testing.T) {
	h := NewServer(ServerOptions{Root: testLayers()}).Handler()
	_, body := get(t, h, "/")
	assert.NotContains(t, body, "__livereload")
	resp, _ := get(t, h, MetricsPath)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServerMetricsRoute(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("assetflow_task_runs_total 1\n"))
	})
	h := NewServer(ServerOptions{Root: testLayers(), Metrics: metrics}).Handler()
	_, body := get(t, h, MetricsPath)
	assert.Contains(t, body, "assetflow_task_runs_total")
}

func TestServerStartAndShutdown(t *testing.T) {
	srv := NewServer(ServerOptions{Host: "127.0.0.1", Port: 0, Root: testLayers(), Hub: NewHub(nil, nil)})
	require.NoError(t, srv.Start())
	require.True(t, strings.HasPrefix(srv.URL(), "http://127.0.0.1:"))

	resp, err := http.Get(srv.URL() + "styles/a.css")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "body{color:red}", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
}
