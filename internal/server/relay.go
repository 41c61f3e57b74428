package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/coder/websocket"

	"github.com/echowire/echowire/internal/archive"
	"github.com/echowire/echowire/internal/blob"
	"github.com/echowire/echowire/internal/protocol"
)

// Relay fans inbound events out to every connected session. One relay
// instance exists per process; it lives until the process exits.
type Relay struct {
	registry     *Registry
	store        archive.Archive
	blobs        blob.Store
	historyLimit int
	writeTimeout time.Duration
}

func newRelay(store archive.Archive, blobs blob.Store, historyLimit int, writeTimeout time.Duration) *Relay {
	return &Relay{
		registry:     NewRegistry(),
		store:        store,
		blobs:        blobs,
		historyLimit: historyLimit,
		writeTimeout: writeTimeout,
	}
}

// attach runs one connection: registers a session, sends the history
// snapshot, and processes inbound frames until the transport drops.
func (r *Relay) attach(ctx context.Context, conn *websocket.Conn) {
	sess := newSession(conn)
	r.registry.add(sess)
	slog.Info("session connected", "session", sess.id, "sessions", r.registry.len())

	defer func() {
		r.registry.remove(sess.id)
		sess.close()
		slog.Info("session disconnected", "session", sess.id, "sessions", r.registry.len())
	}()

	go sess.writeLoop(ctx, r.writeTimeout)

	r.sendInitialMessages(ctx, sess)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			slog.Debug("session read ended", "session", sess.id, "error", err)
			return
		}

		var frame protocol.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			slog.Warn("malformed frame", "session", sess.id, "error", err)
			return
		}

		if err := r.route(ctx, sess, frame); err != nil {
			slog.Warn("frame handling failed", "session", sess.id, "event", frame.Event, "error", err)
			return
		}
	}
}

func (r *Relay) route(ctx context.Context, sess *session, frame protocol.Frame) error {
	switch frame.Event {
	case protocol.EventChatMessage:
		return r.handleChatMessage(ctx, sess, frame)
	case protocol.EventUploadFile:
		return r.handleUpload(ctx, sess, frame)
	default:
		slog.Debug("unhandled event", "session", sess.id, "event", frame.Event)
		return nil
	}
}

// handleChatMessage broadcasts the message to every session, the sender
// included: the originating client renders its message only once the
// server echoes it back. Archival runs in its own goroutine and never
// holds up delivery.
func (r *Relay) handleChatMessage(ctx context.Context, sess *session, frame protocol.Frame) error {
	var msg protocol.ChatMessage
	if err := json.Unmarshal(frame.Data, &msg); err != nil {
		return fmt.Errorf("decode chat message: %w", err)
	}

	r.registry.broadcast(frame, "")

	record := toArchiveMessage(msg)
	appendCtx := context.WithoutCancel(ctx)
	go func() {
		if err := r.store.Append(appendCtx, &record); err != nil {
			slog.Error("archive append failed", "messageId", msg.ID, "error", err)
		}
	}()
	return nil
}

// handleUpload persists the payload and notifies all sessions. Only the
// requesting session receives the completion ack; if it disconnected
// mid-write the ack is dropped silently.
func (r *Relay) handleUpload(ctx context.Context, sess *session, frame protocol.Frame) error {
	var req protocol.UploadRequest
	if err := json.Unmarshal(frame.Data, &req); err != nil {
		return fmt.Errorf("decode upload request: %w", err)
	}

	name := blob.StorageName(req.OriginalName)
	if err := r.blobs.Write(name, req.Buffer); err != nil {
		slog.Error("attachment write failed", "session", sess.id, "name", name, "error", err)
		r.sendAck(sess, frame.Ack, protocol.UploadAck{Success: false, Error: "Failed to save file"})
		return nil
	}

	fileURL := blob.PublicPath(name)
	slog.Info("attachment stored", "session", sess.id, "name", name, "size", len(req.Buffer))

	uploaded, err := protocol.NewFrame(protocol.EventFileUploaded, protocol.FileUploaded{
		FileURL:  fileURL,
		Mimetype: req.Mimetype,
	})
	if err != nil {
		return err
	}
	r.registry.broadcast(uploaded, "")

	r.sendAck(sess, frame.Ack, protocol.UploadAck{Success: true, FileURL: fileURL})
	return nil
}

func (r *Relay) sendAck(sess *session, ackID uint64, ack protocol.UploadAck) {
	frame, err := protocol.NewFrame(protocol.EventAck, ack)
	if err != nil {
		slog.Error("encode ack failed", "session", sess.id, "error", err)
		return
	}
	frame.Ack = ackID
	if err := sess.send(frame); err != nil {
		slog.Debug("ack dropped", "session", sess.id, "error", err)
	}
}

// sendInitialMessages pushes the recent history snapshot to a freshly
// connected session. A failing archive degrades to an empty snapshot.
func (r *Relay) sendInitialMessages(ctx context.Context, sess *session) {
	records, err := r.store.Recent(ctx, r.historyLimit)
	if err != nil {
		slog.Error("history load failed", "session", sess.id, "error", err)
	}

	history := make([]protocol.ChatMessage, 0, len(records))
	for _, record := range records {
		history = append(history, toChatMessage(record))
	}

	frame, err := protocol.NewFrame(protocol.EventInitialMessages, history)
	if err != nil {
		slog.Error("encode history failed", "session", sess.id, "error", err)
		return
	}
	if err := sess.send(frame); err != nil {
		slog.Debug("history dropped", "session", sess.id, "error", err)
	}
}

func toArchiveMessage(msg protocol.ChatMessage) archive.Message {
	reactions := make([]archive.Reaction, 0, len(msg.Reactions))
	for _, reaction := range msg.Reactions {
		reactions = append(reactions, archive.Reaction{Emoji: reaction.Emoji, Count: reaction.Count})
	}
	return archive.Message{
		MessageID: msg.ID,
		Sender:    msg.Sender,
		Text:      msg.Text,
		Timestamp: msg.Timestamp,
		Reactions: reactions,
		FileURL:   msg.FileURL,
		FileType:  msg.FileType,
	}
}

func toChatMessage(record archive.Message) protocol.ChatMessage {
	reactions := make([]protocol.Reaction, 0, len(record.Reactions))
	for _, reaction := range record.Reactions {
		reactions = append(reactions, protocol.Reaction{Emoji: reaction.Emoji, Count: reaction.Count})
	}
	return protocol.ChatMessage{
		ID:        record.MessageID,
		Sender:    record.Sender,
		Text:      record.Text,
		Timestamp: record.Timestamp,
		Reactions: reactions,
		FileURL:   record.FileURL,
		FileType:  record.FileType,
	}
}
