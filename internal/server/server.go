// Package server hosts the preview server: it serves the engine's rendered
// output over HTTP and pushes reload notifications to connected browsers
// over a websocket when templates or data change.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-spry/spry/internal/config"
	"github.com/go-spry/spry/internal/engine"
	"github.com/go-spry/spry/internal/logging"
)

// PreviewServer serves one engine's output. The engine itself is
// single-goroutine; handlers never touch it and serve a snapshot instead,
// refreshed by whichever goroutine drives the engine.
type PreviewServer struct {
	cfg    *config.Config
	eng    *engine.Engine
	logger logging.Logger

	httpServer *http.Server

	contentMu sync.RWMutex
	content   string

	clientsMu sync.Mutex
	clients   map[*client]struct{}
}

// New creates a preview server for an engine, snapshotting its current
// output.
func New(cfg *config.Config, eng *engine.Engine, logger logging.Logger) *PreviewServer {
	return &PreviewServer{
		cfg:     cfg,
		eng:     eng,
		logger:  logger.WithComponent("server"),
		content: eng.HTML(),
		clients: make(map[*client]struct{}),
	}
}

// Refresh re-snapshots the engine's rendered output. Call it from the
// goroutine that drives the engine, after a re-render.
func (s *PreviewServer) Refresh() {
	out := s.eng.HTML()
	s.contentMu.Lock()
	s.content = out
	s.contentMu.Unlock()
}

// Content returns the last snapshot of the rendered output.
func (s *PreviewServer) Content() string {
	s.contentMu.RLock()
	defer s.contentMu.RUnlock()
	return s.content
}

// Start runs the HTTP server until ctx is canceled.
func (s *PreviewServer) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/ws", s.handleWebSocket)

	addr := net.JoinHostPort(s.cfg.Server.Host, fmt.Sprintf("%d", s.cfg.Server.Port))
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.httpServer.ListenAndServe() }()
	s.logger.Info(ctx, "preview server listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.closeClients()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *PreviewServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, indexPage, s.Content())
}

// indexPage wraps the rendered fragment with the live-reload script.
const indexPage = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>spry preview</title></head>
<body>
%s
<script>
(function() {
	const ws = new WebSocket('ws://' + location.host + '/ws');
	ws.onmessage = function(ev) {
		if (ev.data === 'reload') location.reload();
	};
})();
</script>
</body>
</html>`
