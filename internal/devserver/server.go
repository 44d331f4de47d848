package devserver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	foundationerrors "git.home.luguber.info/inful/assetflow/internal/foundation/errors"
	"git.home.luguber.info/inful/assetflow/internal/logfields"
)

// ServerOptions configures a Server.
type ServerOptions struct {
	Host string
	Port int // 0 picks a free port
	// Root is served for every path not claimed by an endpoint.
	Root fs.FS
	// Hub enables the live-reload endpoints and script injection when non-nil.
	Hub *Hub
	// Metrics is mounted at /__metrics when non-nil.
	Metrics http.Handler
	Logger  *slog.Logger
}

// Server is the development HTTP server.
type Server struct {
	opts ServerOptions
	srv  *http.Server
	ln   net.Listener
}

// NewServer returns a server; call Start to listen.
func NewServer(opts ServerOptions) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Server{opts: opts}
	// No write timeout: live-reload streams are long-lived.
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       300 * time.Second,
	}
	return s
}

// Handler returns the routing handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	files := http.FileServer(http.FS(s.opts.Root))
	if s.opts.Hub != nil {
		mux.Handle(LiveReloadPath, s.opts.Hub)
		mux.HandleFunc(LiveReloadScriptPath, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
			w.Header().Set("Cache-Control", "no-cache")
			if _, err := w.Write([]byte(ClientScript)); err != nil {
				s.opts.Logger.Debug("failed to write livereload script", logfields.Error(err))
			}
		})
		files = injectScript(files)
	}
	if s.opts.Metrics != nil {
		mux.Handle(MetricsPath, s.opts.Metrics)
	}
	mux.Handle("/", noCache(files))
	return mux
}

// noCache keeps browsers from caching rebuilt assets between reloads.
func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		next.ServeHTTP(w, r)
	})
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryServer, "failed to listen").
			WithContext("addr", addr).
			Fatal().
			Build()
	}
	s.ln = ln
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.opts.Logger.Error("Dev server stopped", logfields.Error(err))
		}
	}()
	s.opts.Logger.Info("Dev server listening", logfields.Addr(ln.Addr().String()), logfields.URL(s.URL()))
	return nil
}

// URL returns the local URL of a started server.
func (s *Server) URL() string {
	if s.ln == nil {
		return ""
	}
	host := s.opts.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	port := s.ln.Addr().(*net.TCPAddr).Port
	return fmt.Sprintf("http://%s/", net.JoinHostPort(host, strconv.Itoa(port)))
}

// Shutdown stops the server, closing live-reload streams first.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.opts.Hub != nil {
		s.opts.Hub.Shutdown()
	}
	return s.srv.Shutdown(ctx)
}
