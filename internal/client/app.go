package client

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/echowire/echowire/internal/config"
	"github.com/echowire/echowire/internal/protocol"
)

// App implements the bubbletea tea.Model interface for the terminal
// client.
type App struct {
	cfg config.ClientConfig

	input    textinput.Model
	viewport viewport.Model
	helper   help.Model
	styles   styleSet

	width  int
	height int

	view       primaryView
	showHelp   bool
	helpView   string
	helpHeight int

	session      *Session
	serverURL    string
	chatHistory  []string
	logLine      logEntry
	nextAck      uint64
	pendingFiles map[uint64]string

	commands []command
}

type primaryView int

const (
	viewChat primaryView = iota
	viewHelp
	viewDebug
)

func (v primaryView) String() string {
	switch v {
	case viewHelp:
		return "help"
	case viewDebug:
		return "debug"
	default:
		return "chat"
	}
}

type logLevel int

const (
	logLevelInfo logLevel = iota
	logLevelError
)

type logEntry struct {
	level logLevel
	label string
	body  string
}

type command struct {
	trigger     string
	usage       string
	description string
}

// NewApp returns a Bubble Tea model pre-populated with defaults.
func NewApp(cfg config.ClientConfig) tea.Model {
	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "Type a message, or / for commands"
	input.Focus()

	app := &App{
		cfg:          cfg,
		input:        input,
		viewport:     viewport.New(0, 0),
		helper:       help.New(),
		styles:       buildStyles(),
		serverURL:    cfg.ServerURL,
		pendingFiles: make(map[uint64]string),
		commands:     buildCommandCatalog(cfg.CommandPrefix),
	}
	app.updateViewportContent()
	return app
}

// Init is part of the tea.Model interface.
func (a *App) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles user input and session events.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = m.Width
		a.height = m.Height
		a.updateViewportSize()
		a.updateInputWidth()
		a.updateViewportContent()
		return a, nil
	case tea.KeyMsg:
		return a.handleKey(m)
	case connectResultMsg:
		return a.handleConnectResult(m)
	case frameMsg:
		return a.handleFrameMsg(m)
	case sessionClosedMsg:
		return a.handleSessionClosed(m)
	case sendResultMsg:
		if m.err != nil {
			a.logErrorf("Send failed: %v", m.err)
		}
		return a, nil
	}

	var cmd tea.Cmd
	a.viewport, cmd = a.viewport.Update(msg)
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return a, a.quit()
	case tea.KeyTab:
		a.handleTabCompletion()
		return a, nil
	case tea.KeyPgUp:
		a.viewport.LineUp(a.viewport.Height)
		return a, nil
	case tea.KeyPgDown:
		a.viewport.LineDown(a.viewport.Height)
		return a, nil
	case tea.KeyEnter:
		value := a.input.Value()
		a.input.Reset()
		a.updateHelp()
		if value == "" {
			return a, nil
		}
		return a, a.handleSubmit(value)
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	a.updateHelp()
	return a, cmd
}

func (a *App) handleConnectResult(msg connectResultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		a.logErrorf("Connection failed: %v", msg.err)
		return a, nil
	}

	if a.session != nil {
		_ = a.session.Close()
	}
	a.session = msg.session
	a.serverURL = msg.url
	a.logf("Connected to %s", msg.url)
	a.updateViewportContent()
	return a, listenForFrames(a.session)
}

func (a *App) handleFrameMsg(msg frameMsg) (tea.Model, tea.Cmd) {
	if msg.session != a.session || a.session == nil {
		return a, nil
	}
	a.handleFrame(msg.frame)
	return a, listenForFrames(a.session)
}

func (a *App) handleSessionClosed(msg sessionClosedMsg) (tea.Model, tea.Cmd) {
	if msg.session != a.session || a.session == nil {
		return a, nil
	}
	a.session = nil
	a.logErrorf("Connection closed")
	a.updateViewportContent()
	return a, nil
}

func (a *App) isConnected() bool {
	return a.session != nil
}

func (a *App) quit() tea.Cmd {
	if a.session != nil {
		_ = a.session.Close()
		a.session = nil
	}
	return tea.Quit
}

func (a *App) logf(format string, args ...interface{}) {
	a.setLog(logLevelInfo, "INFO", format, args...)
}

func (a *App) logErrorf(format string, args ...interface{}) {
	a.setLog(logLevelError, "ERROR", format, args...)
}

type connectResultMsg struct {
	url     string
	session *Session
	err     error
}

type frameMsg struct {
	session *Session
	frame   protocol.Frame
}

type sessionClosedMsg struct {
	session *Session
}

type sendResultMsg struct {
	err error
}

const (
	connectTimeout = 5 * time.Second
	sendTimeout    = 10 * time.Second
)

func listenForFrames(session *Session) tea.Cmd {
	if session == nil {
		return nil
	}
	ch := session.Frames()
	return func() tea.Msg {
		frame, ok := <-ch
		if !ok {
			return sessionClosedMsg{session: session}
		}
		return frameMsg{session: session, frame: frame}
	}
}

func buildCommandCatalog(prefix string) []command {
	return []command{
		{trigger: prefix + "connect", usage: prefix + "connect [url]", description: "Connect to a relay server"},
		{trigger: prefix + "upload", usage: prefix + "upload <path>", description: "Upload an image or audio file"},
		{trigger: prefix + "chat", usage: prefix + "chat", description: "Switch to the chat view"},
		{trigger: prefix + "help", usage: prefix + "help", description: "Browse all commands"},
		{trigger: prefix + "debug", usage: prefix + "debug", description: "Show client internals"},
		{trigger: prefix + "quit", usage: prefix + "quit", description: "Exit the client"},
	}
}
