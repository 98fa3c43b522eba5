package server

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-spry/spry/internal/config"
	"github.com/go-spry/spry/internal/engine"
	"github.com/go-spry/spry/internal/logging"
)

func newTestServer(t *testing.T) *PreviewServer {
	t.Helper()
	eng := engine.New(engine.WithLogger(logging.NewNop()))
	require.NoError(t, eng.SetTemplate(`<h1>{{ title }}</h1>`))
	require.NoError(t, eng.ApplyData(map[string]any{"title": "hello"}))

	cfg := &config.Config{}
	cfg.Server.Host = "localhost"
	cfg.Server.Port = 0
	return New(cfg, eng, logging.NewNop())
}

func TestHandleIndex(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	s.handleIndex(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "<h1>hello</h1>")
	assert.Contains(t, body, "/ws")
}

func TestHandleIndex_NotFound(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("GET", "/missing", nil)
	rec := httptest.NewRecorder()
	s.handleIndex(rec, req)

	assert.Equal(t, 404, rec.Code)
}

func TestNotifyReload_NoClients(t *testing.T) {
	s := newTestServer(t)
	assert.NotPanics(t, func() { s.NotifyReload() })
}

func TestRefresh_PublishesNewSnapshot(t *testing.T) {
	eng := engine.New(engine.WithLogger(logging.NewNop()))
	require.NoError(t, eng.SetTemplate(`<h1>{{ title }}</h1>`))
	require.NoError(t, eng.ApplyData(map[string]any{"title": "one"}))

	cfg := &config.Config{}
	cfg.Server.Host = "localhost"
	s := New(cfg, eng, logging.NewNop())
	assert.Equal(t, "<h1>one</h1>", s.Content())

	// A re-render is invisible to handlers until Refresh publishes it.
	require.NoError(t, eng.ApplyData(map[string]any{"title": "two"}))
	assert.Equal(t, "<h1>one</h1>", s.Content())

	s.Refresh()
	assert.Equal(t, "<h1>two</h1>", s.Content())

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	s.handleIndex(rec, req)
	assert.Contains(t, rec.Body.String(), "<h1>two</h1>")
}

func TestHandleIndex_ConcurrentWithReload(t *testing.T) {
	eng := engine.New(engine.WithLogger(logging.NewNop()))
	require.NoError(t, eng.SetTemplate(`<h1>{{ title }}</h1>`))
	require.NoError(t, eng.ApplyData(map[string]any{"title": "x"}))

	cfg := &config.Config{}
	cfg.Server.Host = "localhost"
	s := New(cfg, eng, logging.NewNop())

	// Handlers read the snapshot while the engine goroutine re-renders and
	// republishes; the engine tree itself is never shared.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			_ = eng.ApplyData(map[string]any{"title": "x"})
			s.Refresh()
		}
	}()

	for i := 0; i < 100; i++ {
		req := httptest.NewRequest("GET", "/", nil)
		rec := httptest.NewRecorder()
		s.handleIndex(rec, req)
		assert.Contains(t, rec.Body.String(), "<h1>x</h1>")
	}
	<-done
}
