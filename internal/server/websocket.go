package server

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
)

const writeWait = 10 * time.Second

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func (s *PreviewServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// The preview server binds locally; reload messages carry no data.
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.Warn(r.Context(), err, "websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 16)}
	s.clientsMu.Lock()
	s.clients[c] = struct{}{}
	s.clientsMu.Unlock()

	go c.writePump()
	go s.readPump(c)
}

// Broadcast queues a message for every connected client, dropping clients
// whose buffers are full.
func (s *PreviewServer) Broadcast(message string) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- []byte(message):
		default:
			delete(s.clients, c)
			close(c.send)
		}
	}
}

// NotifyReload tells connected browsers to reload.
func (s *PreviewServer) NotifyReload() { s.Broadcast("reload") }

func (s *PreviewServer) readPump(c *client) {
	defer s.dropClient(c)
	for {
		if _, _, err := c.conn.Read(context.Background()); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	for message := range c.send {
		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		err := c.conn.Write(ctx, websocket.MessageText, message)
		cancel()
		if err != nil {
			return
		}
	}
	c.conn.Close(websocket.StatusNormalClosure, "")
}

func (s *PreviewServer) dropClient(c *client) {
	s.clientsMu.Lock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
	s.clientsMu.Unlock()
	c.conn.Close(websocket.StatusNormalClosure, "")
}

func (s *PreviewServer) closeClients() {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
}
