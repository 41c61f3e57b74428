package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/echowire/echowire/internal/archive"
	"github.com/echowire/echowire/internal/blob"
	"github.com/echowire/echowire/internal/config"
)

// Routes served by the relay.
const (
	RouteActivate = "/api/socket"
	RouteSocket   = "/socket"
)

// App is the application context: it owns the relay handle and the
// collaborators every request handler needs. The relay itself is
// created lazily on first activation and reused for the process
// lifetime.
type App struct {
	cfg   config.ServerConfig
	store archive.Archive
	blobs blob.Store

	relayMu sync.Mutex
	relay   *Relay
}

// NewApp constructs a server instance using the provided dependencies.
func NewApp(cfg config.ServerConfig, store archive.Archive, blobs blob.Store) *App {
	return &App{
		cfg:   cfg,
		store: store,
		blobs: blobs,
	}
}

// ensureRelay returns the process-wide relay, constructing it on the
// first call. The check and the construction are atomic: two concurrent
// callers never end up with two relays.
func (a *App) ensureRelay() *Relay {
	a.relayMu.Lock()
	defer a.relayMu.Unlock()
	if a.relay == nil {
		a.relay = newRelay(a.store, a.blobs, a.cfg.HistoryLimit, a.cfg.WriteTimeout)
		slog.Info("relay initialized")
	}
	return a.relay
}

// Handler builds the HTTP surface: the activation endpoint, the
// websocket endpoint, and the public attachment mount.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(RouteActivate, a.handleActivate)
	mux.HandleFunc(RouteSocket, a.handleSocket)
	mux.Handle(blob.PublicMount, http.StripPrefix(blob.PublicMount, http.FileServer(http.Dir(a.cfg.UploadDir))))
	return mux
}

// Run starts serving until the context is canceled. A failure to bind
// the listener is fatal and propagates to the caller.
func (a *App) Run(ctx context.Context) error {
	if err := a.store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	listener, err := net.Listen("tcp", a.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	srv := &http.Server{Handler: a.Handler()}

	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	slog.Info("server listening", "addr", listener.Addr().String())
	if err := srv.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleActivate is the out-of-band bootstrap trigger. Repeat calls
// return the same confirmation and construct nothing.
func (a *App) handleActivate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	a.ensureRelay()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "Socket server initialized"})
}

func (a *App) handleSocket(w http.ResponseWriter, r *http.Request) {
	relay := a.ensureRelay()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	if a.cfg.MaxFrameBytes > 0 {
		conn.SetReadLimit(a.cfg.MaxFrameBytes)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	relay.attach(r.Context(), conn)
}
