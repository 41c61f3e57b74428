package client

import (
	"context"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/echowire/echowire/internal/protocol"
)

func (a *App) handleSubmit(value string) tea.Cmd {
	if strings.HasPrefix(value, a.cfg.CommandPrefix) {
		return a.executeCommand(value)
	}
	return a.sendChatMessage(value)
}

func (a *App) executeCommand(raw string) tea.Cmd {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return nil
	}

	name := strings.TrimPrefix(fields[0], a.cfg.CommandPrefix)
	switch name {
	case "chat":
		a.view = viewChat
		a.logf("Switched to CHAT view")
	case "help":
		a.view = viewHelp
		a.logf("Switched to HELP view")
	case "debug":
		a.view = viewDebug
		a.logf("Switched to DEBUG view")
	case "connect":
		target := a.serverURL
		if len(fields) > 1 {
			target = fields[1]
		}
		if target == "" {
			a.logErrorf("Provide a server URL to connect")
			break
		}
		a.logf("Connecting to %s ...", target)
		return connectCommand(target)
	case "upload":
		if len(fields) < 2 {
			a.logErrorf("Usage: %supload <path>", a.cfg.CommandPrefix)
			break
		}
		if !a.isConnected() {
			a.logErrorf("Not connected. Use %sconnect first.", a.cfg.CommandPrefix)
			break
		}
		path := strings.Join(fields[1:], " ")
		return a.startFileUpload(path)
	case "quit", "exit":
		return a.quit()
	default:
		a.logErrorf("Unknown command: %s", fields[0])
	}

	a.updateViewportContent()
	return nil
}

// sendChatMessage ships the message to the relay. The message is
// rendered only once the server echoes it back.
func (a *App) sendChatMessage(text string) tea.Cmd {
	if !a.isConnected() {
		a.logErrorf("Not connected. Use %sconnect first.", a.cfg.CommandPrefix)
		return nil
	}

	msg := protocol.ChatMessage{
		ID:        time.Now().UnixMilli(),
		Sender:    protocol.SenderUser,
		Text:      text,
		Timestamp: time.Now(),
		Reactions: []protocol.Reaction{},
	}
	frame, err := protocol.NewFrame(protocol.EventChatMessage, msg)
	if err != nil {
		a.logErrorf("Failed to encode message: %v", err)
		return nil
	}
	return a.sendFrame(frame)
}

func (a *App) startFileUpload(path string) tea.Cmd {
	data, err := os.ReadFile(path)
	if err != nil {
		a.logErrorf("Failed to read %s: %v", path, err)
		return nil
	}

	mimetype := mime.TypeByExtension(filepath.Ext(path))
	if mimetype == "" {
		mimetype = "application/octet-stream"
	}

	a.nextAck++
	ackID := a.nextAck
	name := filepath.Base(path)
	a.pendingFiles[ackID] = name

	frame, err := protocol.NewFrame(protocol.EventUploadFile, protocol.UploadRequest{
		Buffer:       data,
		Mimetype:     mimetype,
		OriginalName: name,
	})
	if err != nil {
		delete(a.pendingFiles, ackID)
		a.logErrorf("Failed to encode upload: %v", err)
		return nil
	}
	frame.Ack = ackID

	a.logf("Uploading %s (%d bytes) ...", name, len(data))
	return a.sendFrame(frame)
}

func (a *App) sendFrame(frame protocol.Frame) tea.Cmd {
	session := a.session
	if session == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		return sendResultMsg{err: session.Send(ctx, frame)}
	}
}

func connectCommand(url string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()

		session, err := Connect(ctx, url)
		if err != nil {
			return connectResultMsg{url: url, err: err}
		}
		return connectResultMsg{url: url, session: session}
	}
}
