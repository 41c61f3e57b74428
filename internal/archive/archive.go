package archive

import (
	"context"
	"time"
)

// Reaction counts one emoji on an archived message.
type Reaction struct {
	Emoji string `json:"emoji"`
	Count int    `json:"count"`
}

// Message is a persisted chat message record. MessageID is the
// client-assigned identifier and is stored verbatim.
type Message struct {
	MessageID int64
	Sender    string
	Text      string
	Timestamp time.Time
	Reactions []Reaction
	FileURL   string
	FileType  string
}

// Archive defines the durable message collection used by the relay.
// Append failures are advisory to callers: the relay logs them and
// keeps delivering.
type Archive interface {
	Close() error
	Migrate(ctx context.Context) error

	// Append adds one message record to the collection.
	Append(ctx context.Context, msg *Message) error
	// Recent returns up to limit of the newest messages in
	// chronological order.
	Recent(ctx context.Context, limit int) ([]Message, error)
}
