package client

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/coder/websocket"

	"github.com/echowire/echowire/internal/protocol"
)

// Session manages the client side of the websocket connection. Inbound
// frames are pumped into a channel the UI drains one at a time.
type Session struct {
	url      string
	conn     *websocket.Conn
	frames   chan protocol.Frame
	cancelFn context.CancelFunc
	writeMu  sync.Mutex
}

// Connect dials the relay and starts the read pump. The returned
// session is ready to send immediately.
func Connect(ctx context.Context, url string) (*Session, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	pumpCtx, cancel := context.WithCancel(context.Background())
	s := &Session{
		url:      url,
		conn:     conn,
		frames:   make(chan protocol.Frame, 32),
		cancelFn: cancel,
	}
	go s.readLoop(pumpCtx)
	return s, nil
}

// URL reports the address the session was dialed against.
func (s *Session) URL() string {
	return s.url
}

// Frames exposes inbound frames. The channel closes when the
// connection drops.
func (s *Session) Frames() <-chan protocol.Frame {
	return s.frames
}

// Send dispatches one frame to the relay.
func (s *Session) Send(ctx context.Context, frame protocol.Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.Write(ctx, websocket.MessageText, data)
}

// Close terminates the session.
func (s *Session) Close() error {
	s.cancelFn()
	return s.conn.Close(websocket.StatusNormalClosure, "")
}

func (s *Session) readLoop(ctx context.Context) {
	defer close(s.frames)
	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			return
		}
		var frame protocol.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		select {
		case s.frames <- frame:
		case <-ctx.Done():
			return
		}
	}
}
