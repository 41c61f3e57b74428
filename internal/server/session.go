package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/echowire/echowire/internal/protocol"
)

const sendBufferSize = 64

var (
	errSessionClosed  = errors.New("session closed")
	errSendBufferFull = errors.New("send buffer full")
)

// session tracks one live connection. The transport handle is owned
// exclusively by the session; outbound frames go through a buffered
// channel drained by writeLoop.
type session struct {
	id        string
	conn      *websocket.Conn
	sendCh    chan protocol.Frame
	done      chan struct{}
	closeOnce sync.Once
}

func newSession(conn *websocket.Conn) *session {
	return &session{
		id:     uuid.NewString(),
		conn:   conn,
		sendCh: make(chan protocol.Frame, sendBufferSize),
		done:   make(chan struct{}),
	}
}

// send queues a frame for delivery. Delivery is best-effort: a closed
// session or a full buffer yields an error, never a block or a panic.
func (s *session) send(frame protocol.Frame) error {
	select {
	case <-s.done:
		return errSessionClosed
	default:
	}
	select {
	case s.sendCh <- frame:
		return nil
	case <-s.done:
		return errSessionClosed
	default:
		return errSendBufferFull
	}
}

func (s *session) writeLoop(ctx context.Context, writeTimeout time.Duration) {
	// A failed write poisons the transport; closing here unblocks the
	// read loop so the session tears down promptly.
	defer s.close()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case frame := <-s.sendCh:
			if err := s.write(ctx, frame, writeTimeout); err != nil {
				return
			}
		}
	}
}

func (s *session) write(ctx context.Context, frame protocol.Frame, timeout time.Duration) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return s.conn.Write(ctx, websocket.MessageText, data)
}

// close tears the session down. Safe to call more than once.
func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close(websocket.StatusNormalClosure, "")
	})
}
