package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// StreamTransport pushes payloads to a websocket consumer, one JSON frame
// each. The connection is dialed lazily and re-dialed after a failed
// write.
type StreamTransport struct {
	URL string

	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *StreamTransport) Name() string { return "stream" }

func (s *StreamTransport) Send(ctx context.Context, p Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.URL, nil)
		if err != nil {
			return fmt.Errorf("dial %s: %w", s.URL, err)
		}
		s.conn = conn
	}
	if deadline, ok := ctx.Deadline(); ok {
		s.conn.SetWriteDeadline(deadline)
	}
	if err := s.conn.WriteJSON(p); err != nil {
		s.conn.Close()
		s.conn = nil
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Close shuts down the connection if one is open.
func (s *StreamTransport) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
