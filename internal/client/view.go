package client

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	figure "github.com/common-nighthawk/go-figure"
	"github.com/mattn/go-runewidth"
)

var homeContent = buildHomeContent()

type styleSet struct {
	title         lipgloss.Style
	view          lipgloss.Style
	statusOnline  lipgloss.Style
	statusOffline lipgloss.Style
	label         lipgloss.Style
	value         lipgloss.Style
	logLabel      lipgloss.Style
	logBody       lipgloss.Style
	logLabelError lipgloss.Style
	logBodyError  lipgloss.Style
	help          lipgloss.Style
}

func buildStyles() styleSet {
	base := lipgloss.NewStyle()
	return styleSet{
		title:         base.Foreground(lipgloss.Color("13")).Bold(true),
		view:          base.Foreground(lipgloss.Color("14")).Bold(true),
		statusOnline:  base.Foreground(lipgloss.Color("10")).Bold(true),
		statusOffline: base.Foreground(lipgloss.Color("9")).Bold(true),
		label:         base.Foreground(lipgloss.Color("8")),
		value:         base.Foreground(lipgloss.Color("15")),
		logLabel:      base.Foreground(lipgloss.Color("11")).Bold(true),
		logBody:       base.Foreground(lipgloss.Color("7")),
		logLabelError: base.Foreground(lipgloss.Color("9")).Bold(true),
		logBodyError:  base.Foreground(lipgloss.Color("9")),
		help:          base.Foreground(lipgloss.Color("12")),
	}
}

// View renders the terminal UI.
func (a *App) View() string {
	var b strings.Builder

	b.WriteString(a.viewport.View())
	b.WriteString("\n")

	if a.showHelp && a.helpView != "" {
		b.WriteString(a.styles.help.Render(a.helpView))
		b.WriteString("\n")
	}

	b.WriteString(a.input.View())
	b.WriteString("\n")
	b.WriteString(a.logLineView())
	b.WriteString("\n")
	b.WriteString(a.statusLine())

	return b.String()
}

func (a *App) updateViewportContent() {
	switch a.view {
	case viewHelp:
		a.viewport.SetContent(a.renderHelpView())
	case viewDebug:
		a.viewport.SetContent(a.renderDebugView())
	default:
		if !a.isConnected() && len(a.chatHistory) == 0 {
			a.viewport.SetContent(homeContent)
			return
		}
		width := a.viewport.Width
		if width <= 0 {
			width = a.width
		}
		if len(a.chatHistory) == 0 {
			a.viewport.SetContent("No chat messages yet. Type and press Enter to send.")
		} else {
			a.viewport.SetContent(strings.Join(wrapLines(a.chatHistory, width), "\n"))
		}
		a.viewport.GotoBottom()
	}
}

func (a *App) updateViewportSize() {
	if a.height == 0 {
		return
	}
	const fixed = 3
	height := a.height - fixed - a.helpHeight
	if height < 3 {
		height = 3
	}
	a.viewport.Height = height
	a.viewport.Width = a.width
}

func (a *App) updateInputWidth() {
	width := a.width
	if width <= 0 {
		width = 60
	}
	promptWidth := lipgloss.Width(a.input.Prompt)
	usable := width - promptWidth - 1
	if usable < 10 {
		usable = 10
	}
	a.input.Width = usable
}

func (a *App) updateHelp() {
	value := a.input.Value()
	if value == "" || !strings.HasPrefix(value, a.cfg.CommandPrefix) {
		a.showHelp = false
		a.helpView = ""
		a.helpHeight = 0
		a.updateViewportSize()
		return
	}

	token := value
	if idx := strings.IndexAny(value, " \t"); idx >= 0 {
		token = value[:idx]
	}

	bindings := a.matchingBindings(token)
	if len(bindings) == 0 {
		a.showHelp = false
		a.helpView = ""
		a.helpHeight = 0
		a.updateViewportSize()
		return
	}

	a.showHelp = true
	a.helper.Width = a.width
	view := strings.TrimRight(a.helper.View(dynamicKeyMap{keys: bindings}), "\n")
	a.helpView = view
	a.helpHeight = countLines(view)
	a.updateViewportSize()
}

func (a *App) matchingBindings(prefix string) []key.Binding {
	prefix = strings.ToLower(prefix)
	var bindings []key.Binding
	for _, c := range a.commands {
		if strings.HasPrefix(strings.ToLower(c.trigger), prefix) {
			bindings = append(bindings, key.NewBinding(
				key.WithKeys(c.usage),
				key.WithHelp(c.usage, c.description),
			))
		}
	}
	return bindings
}

func (a *App) statusLine() string {
	status := "OFFLINE"
	if a.isConnected() {
		status = "ONLINE"
	}

	server := a.serverURL
	if server == "" {
		server = "-"
	}

	parts := []string{
		a.styles.title.Render("Echowire"),
		a.styles.view.Render(strings.ToUpper(a.view.String())),
		a.statusValueStyle(status).Render(status),
		a.styles.label.Render("Server") + ": " + a.styles.value.Render(server),
		a.styles.label.Render("Messages") + ": " + a.styles.value.Render(fmt.Sprintf("%d", len(a.chatHistory))),
	}

	return strings.Join(parts, " | ")
}

func (a *App) statusValueStyle(status string) lipgloss.Style {
	if strings.EqualFold(status, "ONLINE") {
		return a.styles.statusOnline
	}
	return a.styles.statusOffline
}

func (a *App) logLineView() string {
	labelStyle := a.styles.logLabel
	bodyStyle := a.styles.logBody
	if a.logLine.level == logLevelError {
		labelStyle = a.styles.logLabelError
		bodyStyle = a.styles.logBodyError
	}
	if a.logLine.label == "" {
		return " "
	}
	return labelStyle.Render(a.logLine.label) + " " + bodyStyle.Render(a.logLine.body)
}

func (a *App) setLog(level logLevel, label, format string, args ...interface{}) {
	a.logLine = logEntry{
		level: level,
		label: label,
		body:  fmt.Sprintf(format, args...),
	}
}

func (a *App) renderHelpView() string {
	var b strings.Builder
	b.WriteString("Echowire Commands\n\n")
	for _, c := range a.commands {
		b.WriteString(fmt.Sprintf("%-18s %s\n", c.usage, c.description))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a *App) renderDebugView() string {
	lines := []string{
		"Echowire :: Debug",
		fmt.Sprintf("View: %s", a.view),
		fmt.Sprintf("Connected: %t", a.isConnected()),
		fmt.Sprintf("Server: %s", a.serverURL),
		fmt.Sprintf("Messages: %d", len(a.chatHistory)),
		fmt.Sprintf("Pending uploads: %d", len(a.pendingFiles)),
	}
	return strings.Join(lines, "\n")
}

func buildHomeContent() string {
	fig := figure.NewColorFigure("ECHOWIRE", "3-d", "green", true)
	art := strings.TrimRight(fig.String(), "\n")
	info := []string{
		"Use /connect to reach the relay.",
		"Type a message and press Enter to broadcast it.",
		"Use /upload <path> to share an image or audio file.",
		"Use /help to browse all commands.",
	}

	var b strings.Builder
	b.WriteString(art)
	b.WriteString("\n\n")
	b.WriteString(strings.Join(info, "\n"))
	return b.String()
}

func wrapLines(lines []string, width int) []string {
	if width <= 0 {
		return lines
	}
	const minWidth = 10
	if width < minWidth {
		width = minWidth
	}

	wrapped := make([]string, 0, len(lines))
	for _, line := range lines {
		segment := line
		if segment == "" {
			wrapped = append(wrapped, "")
			continue
		}
		for len(segment) > 0 {
			if runewidth.StringWidth(segment) <= width {
				wrapped = append(wrapped, segment)
				break
			}
			cut := wrapCutIndex(segment, width)
			part := strings.TrimRight(segment[:cut], " ")
			if part == "" && cut > 0 {
				part = segment[:cut]
			}
			wrapped = append(wrapped, part)
			segment = strings.TrimLeft(segment[cut:], " ")
		}
	}
	return wrapped
}

func wrapCutIndex(s string, limit int) int {
	var width int
	lastSpace := -1
	for i, r := range s {
		rw := runewidth.RuneWidth(r)
		if width+rw > limit {
			if lastSpace >= 0 {
				return lastSpace + 1
			}
			if width == 0 {
				return i + 1
			}
			return i
		}
		width += rw
		if unicode.IsSpace(r) {
			lastSpace = i
		}
	}
	return len(s)
}

type dynamicKeyMap struct {
	keys []key.Binding
}

func (d dynamicKeyMap) ShortHelp() []key.Binding {
	return d.keys
}

func (d dynamicKeyMap) FullHelp() [][]key.Binding {
	if len(d.keys) == 0 {
		return [][]key.Binding{}
	}
	return [][]key.Binding{d.keys}
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}
