package client

import (
	"strings"
	"testing"
	"time"

	"github.com/echowire/echowire/internal/protocol"
)

func TestFormatChatMessage(t *testing.T) {
	loc := time.FixedZone("UTC", 0)
	msg := protocol.ChatMessage{
		ID:        1,
		Sender:    protocol.SenderUser,
		Text:      "hello",
		Timestamp: time.Date(2026, 8, 30, 9, 5, 0, 0, loc),
	}

	line := formatChatMessage(msg)
	if !strings.Contains(line, "user: hello") {
		t.Errorf("formatted = %q, want sender and text", line)
	}
}

func TestFormatChatMessageWithAttachment(t *testing.T) {
	msg := protocol.ChatMessage{
		ID:        2,
		Sender:    protocol.SenderBot,
		Text:      "",
		Timestamp: time.Now(),
		FileURL:   "/uploads/1-a.wav",
		FileType:  protocol.FileTypeAudio,
		Reactions: []protocol.Reaction{{Emoji: "👍", Count: 1}},
	}

	line := formatChatMessage(msg)
	if !strings.Contains(line, "audio: /uploads/1-a.wav") {
		t.Errorf("formatted = %q, want attachment reference", line)
	}
	if !strings.Contains(line, "👍×1") {
		t.Errorf("formatted = %q, want reaction counter", line)
	}
}

func TestLongestCommonPrefix(t *testing.T) {
	cases := []struct {
		in   []string
		want string
	}{
		{[]string{"/connect", "/chat"}, "/c"},
		{[]string{"/upload"}, "/upload"},
		{[]string{"/help", "/debug"}, "/"},
		{nil, ""},
	}
	for _, tc := range cases {
		if got := longestCommonPrefix(tc.in); got != tc.want {
			t.Errorf("longestCommonPrefix(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestWrapLinesRespectsWidth(t *testing.T) {
	lines := wrapLines([]string{"aaaa bbbb cccc dddd"}, 10)
	if len(lines) < 2 {
		t.Fatalf("got %d lines, want wrapping", len(lines))
	}
	for _, line := range lines {
		if len(line) > 10 {
			t.Errorf("line %q exceeds width 10", line)
		}
	}
}
