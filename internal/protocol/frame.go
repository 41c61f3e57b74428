package protocol

import (
	"encoding/json"
	"time"
)

// Event names carried on the wire. Client and server exchange the same
// frame shape in both directions.
const (
	EventChatMessage     = "chat message"
	EventUploadFile      = "upload file"
	EventFileUploaded    = "file uploaded"
	EventInitialMessages = "initial messages"
	EventAck             = "ack"
)

// Sender roles for chat messages.
const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// File kinds attached to chat messages.
const (
	FileTypeImage = "image"
	FileTypeAudio = "audio"
)

// Frame wraps every payload sent over the websocket. Ack carries a
// client-chosen correlation id for requests that expect a direct reply.
type Frame struct {
	Event string          `json:"event"`
	Ack   uint64          `json:"ack,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewFrame marshals data into a frame for the given event.
func NewFrame(event string, data interface{}) (Frame, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Event: event, Data: raw}, nil
}

// Reaction counts one emoji on a message.
type Reaction struct {
	Emoji string `json:"emoji"`
	Count int    `json:"count"`
}

// ChatMessage is a unit of conversation content. The id is assigned by
// the sending client and treated as opaque by the server. A message is
// immutable once broadcast.
type ChatMessage struct {
	ID        int64      `json:"id"`
	Sender    string     `json:"sender"`
	Text      string     `json:"text"`
	Timestamp time.Time  `json:"timestamp"`
	Reactions []Reaction `json:"reactions"`
	FileURL   string     `json:"fileUrl,omitempty"`
	FileType  string     `json:"fileType,omitempty"`
}

// UploadRequest is a transient binary submission. The original name is
// untrusted input and only used to derive a display name.
type UploadRequest struct {
	Buffer       []byte `json:"buffer"`
	Mimetype     string `json:"mimetype"`
	OriginalName string `json:"originalname"`
}

// UploadAck reports the outcome of an upload to the requesting session.
type UploadAck struct {
	Success bool   `json:"success"`
	FileURL string `json:"fileUrl,omitempty"`
	Error   string `json:"error,omitempty"`
}

// FileUploaded announces a stored attachment to every session.
type FileUploaded struct {
	FileURL  string `json:"fileUrl"`
	Mimetype string `json:"mimetype"`
}
