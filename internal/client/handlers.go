package client

import (
	"encoding/json"
	"fmt"

	"github.com/echowire/echowire/internal/protocol"
)

func (a *App) handleFrame(frame protocol.Frame) {
	switch frame.Event {
	case protocol.EventChatMessage:
		a.handleChatFrame(frame)
	case protocol.EventInitialMessages:
		a.handleInitialMessages(frame)
	case protocol.EventFileUploaded:
		a.handleFileUploaded(frame)
	case protocol.EventAck:
		a.handleAck(frame)
	default:
		a.logErrorf("Received unknown event %q", frame.Event)
	}
}

func (a *App) handleChatFrame(frame protocol.Frame) {
	var msg protocol.ChatMessage
	if err := json.Unmarshal(frame.Data, &msg); err != nil {
		a.logErrorf("Failed to decode chat message: %v", err)
		return
	}
	a.chatHistory = append(a.chatHistory, formatChatMessage(msg))
	a.updateViewportContent()
}

func (a *App) handleInitialMessages(frame protocol.Frame) {
	var history []protocol.ChatMessage
	if err := json.Unmarshal(frame.Data, &history); err != nil {
		a.logErrorf("Failed to decode history: %v", err)
		return
	}
	lines := make([]string, 0, len(history))
	for _, msg := range history {
		lines = append(lines, formatChatMessage(msg))
	}
	a.chatHistory = lines
	a.logf("Loaded %d archived messages", len(history))
	a.updateViewportContent()
}

func (a *App) handleFileUploaded(frame protocol.Frame) {
	var uploaded protocol.FileUploaded
	if err := json.Unmarshal(frame.Data, &uploaded); err != nil {
		a.logErrorf("Failed to decode file notification: %v", err)
		return
	}
	a.chatHistory = append(a.chatHistory, fmt.Sprintf("[file] %s (%s)", uploaded.FileURL, uploaded.Mimetype))
	a.updateViewportContent()
}

func (a *App) handleAck(frame protocol.Frame) {
	var ack protocol.UploadAck
	if err := json.Unmarshal(frame.Data, &ack); err != nil {
		a.logErrorf("Failed to decode ack: %v", err)
		return
	}

	name, ok := a.pendingFiles[frame.Ack]
	if !ok {
		name = "file"
	}
	delete(a.pendingFiles, frame.Ack)

	if ack.Success {
		a.logf("Uploaded %s to %s", name, ack.FileURL)
		return
	}
	reason := ack.Error
	if reason == "" {
		reason = "unknown error"
	}
	a.logErrorf("Upload of %s failed: %s", name, reason)
}

func formatChatMessage(msg protocol.ChatMessage) string {
	ts := msg.Timestamp.Local().Format("15:04")
	line := fmt.Sprintf("[%s] %s: %s", ts, msg.Sender, msg.Text)
	if msg.FileURL != "" {
		line += fmt.Sprintf(" (%s: %s)", msg.FileType, msg.FileURL)
	}
	for _, reaction := range msg.Reactions {
		if reaction.Count > 0 {
			line += fmt.Sprintf(" %s×%d", reaction.Emoji, reaction.Count)
		}
	}
	return line
}
