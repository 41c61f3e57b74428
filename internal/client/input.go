package client

import "strings"

func (a *App) handleTabCompletion() {
	value := a.input.Value()
	if value == "" {
		return
	}

	cursor := a.input.Position()
	runes := []rune(value)
	if cursor != len(runes) {
		return
	}

	segment := string(runes)
	if !strings.HasPrefix(segment, a.cfg.CommandPrefix) {
		return
	}
	if strings.ContainsAny(segment, " \t") {
		return
	}

	matches := make([]string, 0)
	for _, cmd := range a.commands {
		if strings.HasPrefix(cmd.trigger, segment) {
			matches = append(matches, cmd.trigger)
		}
	}
	if len(matches) == 0 {
		return
	}

	prefix := longestCommonPrefix(matches)
	if len(prefix) <= len(segment) {
		return
	}

	a.input.SetValue(prefix)
	a.input.CursorEnd()
	a.updateHelp()
}

func longestCommonPrefix(values []string) string {
	if len(values) == 0 {
		return ""
	}
	prefix := values[0]
	for _, s := range values[1:] {
		for !strings.HasPrefix(s, prefix) {
			if prefix == "" {
				return ""
			}
			prefix = prefix[:len(prefix)-1]
		}
	}
	return prefix
}
