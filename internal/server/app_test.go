package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/echowire/echowire/internal/archive"
	"github.com/echowire/echowire/internal/config"
	"github.com/echowire/echowire/internal/protocol"
)

type memArchive struct {
	mu        sync.Mutex
	messages  []archive.Message
	appendErr error
	recentErr error
}

func (m *memArchive) Close() error                  { return nil }
func (m *memArchive) Migrate(context.Context) error { return nil }

func (m *memArchive) Append(_ context.Context, msg *archive.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.messages = append(m.messages, *msg)
	return nil
}

func (m *memArchive) Recent(_ context.Context, limit int) ([]archive.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recentErr != nil {
		return nil, m.recentErr
	}
	if len(m.messages) > limit {
		return append([]archive.Message(nil), m.messages[len(m.messages)-limit:]...), nil
	}
	return append([]archive.Message(nil), m.messages...), nil
}

func (m *memArchive) appended() []archive.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]archive.Message(nil), m.messages...)
}

type memBlobStore struct {
	mu       sync.Mutex
	files    map[string][]byte
	writeErr error
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{files: make(map[string][]byte)}
}

func (m *memBlobStore) Write(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.files[name] = append([]byte(nil), data...)
	return nil
}

func (m *memBlobStore) names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.files))
	for name := range m.files {
		names = append(names, name)
	}
	return names
}

func (m *memBlobStore) get(name string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.files[name]
}

type testEnv struct {
	t      *testing.T
	app    *App
	store  *memArchive
	blobs  *memBlobStore
	server *httptest.Server
	ctx    context.Context
	cancel context.CancelFunc
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := &memArchive{}
	blobs := newMemBlobStore()
	cfg := config.ServerConfig{
		UploadDir:    t.TempDir(),
		HistoryLimit: 100,
		WriteTimeout: 5 * time.Second,
	}
	app := NewApp(cfg, store, blobs)
	server := httptest.NewServer(app.Handler())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)

	t.Cleanup(func() {
		cancel()
		server.Close()
	})

	return &testEnv{
		t:      t,
		app:    app,
		store:  store,
		blobs:  blobs,
		server: server,
		ctx:    ctx,
		cancel: cancel,
	}
}

type testClient struct {
	env  *testEnv
	conn *websocket.Conn
}

// connect dials the websocket endpoint and consumes the initial
// messages frame every fresh connection receives.
func (e *testEnv) connect() *testClient {
	e.t.Helper()
	c := e.connectRaw()
	frame := c.read()
	if frame.Event != protocol.EventInitialMessages {
		e.t.Fatalf("expected %q as first frame, got %q", protocol.EventInitialMessages, frame.Event)
	}
	return c
}

func (e *testEnv) connectRaw() *testClient {
	e.t.Helper()
	wsURL := "ws" + strings.TrimPrefix(e.server.URL, "http") + RouteSocket
	conn, _, err := websocket.Dial(e.ctx, wsURL, nil)
	if err != nil {
		e.t.Fatalf("failed to connect: %v", err)
	}
	e.t.Cleanup(func() {
		_ = conn.Close(websocket.StatusNormalClosure, "")
	})
	return &testClient{env: e, conn: conn}
}

func (c *testClient) send(frame protocol.Frame) {
	c.env.t.Helper()
	data, err := json.Marshal(frame)
	if err != nil {
		c.env.t.Fatalf("failed to marshal frame: %v", err)
	}
	if err := c.conn.Write(c.env.ctx, websocket.MessageText, data); err != nil {
		c.env.t.Fatalf("failed to send: %v", err)
	}
}

func (c *testClient) sendEvent(event string, data interface{}) {
	c.env.t.Helper()
	frame, err := protocol.NewFrame(event, data)
	if err != nil {
		c.env.t.Fatalf("failed to build frame: %v", err)
	}
	c.send(frame)
}

func (c *testClient) read() protocol.Frame {
	c.env.t.Helper()
	_, data, err := c.conn.Read(c.env.ctx)
	if err != nil {
		c.env.t.Fatalf("failed to read: %v", err)
	}
	var frame protocol.Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		c.env.t.Fatalf("failed to unmarshal frame: %v", err)
	}
	return frame
}

func (c *testClient) readChatMessage() protocol.ChatMessage {
	c.env.t.Helper()
	frame := c.read()
	if frame.Event != protocol.EventChatMessage {
		c.env.t.Fatalf("expected %q frame, got %q", protocol.EventChatMessage, frame.Event)
	}
	var msg protocol.ChatMessage
	if err := json.Unmarshal(frame.Data, &msg); err != nil {
		c.env.t.Fatalf("failed to decode chat message: %v", err)
	}
	return msg
}

func (c *testClient) close() {
	_ = c.conn.Close(websocket.StatusNormalClosure, "")
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func TestChatMessageEchoesToAllSessions(t *testing.T) {
	env := newTestEnv(t)
	a := env.connect()
	b := env.connect()

	sent := protocol.ChatMessage{
		ID:        1,
		Sender:    protocol.SenderUser,
		Text:      "hi",
		Timestamp: time.Now().UTC().Truncate(time.Second),
		Reactions: []protocol.Reaction{},
	}
	a.sendEvent(protocol.EventChatMessage, sent)

	for name, client := range map[string]*testClient{"sender": a, "peer": b} {
		got := client.readChatMessage()
		if got.ID != sent.ID || got.Sender != sent.Sender || got.Text != sent.Text {
			t.Errorf("%s received %+v, want %+v", name, got, sent)
		}
	}

	waitFor(t, 2*time.Second, func() bool {
		return len(env.store.appended()) == 1
	})
	record := env.store.appended()[0]
	if record.MessageID != 1 || record.Sender != protocol.SenderUser || record.Text != "hi" {
		t.Errorf("archived record = %+v, want id=1 sender=user text=hi", record)
	}
}

func TestDisconnectDoesNotBreakBroadcast(t *testing.T) {
	env := newTestEnv(t)
	a := env.connect()
	b := env.connect()
	c := env.connect()

	relay := env.app.ensureRelay()
	waitFor(t, 2*time.Second, func() bool { return relay.registry.len() == 3 })

	b.close()
	waitFor(t, 2*time.Second, func() bool { return relay.registry.len() == 2 })

	a.sendEvent(protocol.EventChatMessage, protocol.ChatMessage{ID: 2, Sender: protocol.SenderUser, Text: "still here"})

	if got := a.readChatMessage(); got.Text != "still here" {
		t.Errorf("sender received %q, want %q", got.Text, "still here")
	}
	if got := c.readChatMessage(); got.Text != "still here" {
		t.Errorf("remaining peer received %q, want %q", got.Text, "still here")
	}
}

func TestActivationIsIdempotent(t *testing.T) {
	env := newTestEnv(t)

	var bodies []string
	for i := 0; i < 3; i++ {
		resp, err := http.Get(env.server.URL + RouteActivate)
		if err != nil {
			t.Fatalf("activation request %d: %v", i, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("activation request %d: status %d", i, resp.StatusCode)
		}
		bodies = append(bodies, strings.TrimSpace(string(body)))
	}

	for i, body := range bodies {
		if body != `{"message":"Socket server initialized"}` {
			t.Errorf("activation response %d = %s", i, body)
		}
	}

	first := env.app.ensureRelay()
	second := env.app.ensureRelay()
	if first != second {
		t.Error("ensureRelay returned different relay instances")
	}
}

func TestActivationRejectsOtherMethods(t *testing.T) {
	env := newTestEnv(t)

	req, _ := http.NewRequest(http.MethodDelete, env.server.URL+RouteActivate, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusMethodNotAllowed)
	}
}

func TestArchiveFailureDoesNotAffectDelivery(t *testing.T) {
	env := newTestEnv(t)
	env.store.appendErr = io.ErrClosedPipe

	a := env.connect()
	b := env.connect()

	a.sendEvent(protocol.EventChatMessage, protocol.ChatMessage{ID: 3, Sender: protocol.SenderUser, Text: "unarchived"})

	if got := a.readChatMessage(); got.Text != "unarchived" {
		t.Errorf("sender received %q, want %q", got.Text, "unarchived")
	}
	if got := b.readChatMessage(); got.Text != "unarchived" {
		t.Errorf("peer received %q, want %q", got.Text, "unarchived")
	}
}

func TestInitialMessagesSnapshot(t *testing.T) {
	env := newTestEnv(t)
	env.store.messages = []archive.Message{
		{MessageID: 1, Sender: protocol.SenderUser, Text: "first"},
		{MessageID: 2, Sender: protocol.SenderBot, Text: "second"},
	}

	c := env.connectRaw()
	frame := c.read()
	if frame.Event != protocol.EventInitialMessages {
		t.Fatalf("first frame = %q, want %q", frame.Event, protocol.EventInitialMessages)
	}

	var history []protocol.ChatMessage
	if err := json.Unmarshal(frame.Data, &history); err != nil {
		t.Fatalf("failed to decode history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].Text != "first" || history[1].Text != "second" {
		t.Errorf("history order = [%q, %q], want [first, second]", history[0].Text, history[1].Text)
	}
}

func TestInitialMessagesSurvivesArchiveError(t *testing.T) {
	env := newTestEnv(t)
	env.store.recentErr = io.ErrUnexpectedEOF

	c := env.connectRaw()
	frame := c.read()
	if frame.Event != protocol.EventInitialMessages {
		t.Fatalf("first frame = %q, want %q", frame.Event, protocol.EventInitialMessages)
	}

	var history []protocol.ChatMessage
	if err := json.Unmarshal(frame.Data, &history); err != nil {
		t.Fatalf("failed to decode history: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("history length = %d, want 0", len(history))
	}
}
