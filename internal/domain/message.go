package domain

import "time"

// Role identifies the author side of a stored conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single conversation turn as stored and replayed to the model.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Attachment is a file attached to an inbound message.
type Attachment struct {
	Filename string
	URL      string
	Size     int
}

// InboundMessage is a platform message event delivered to the dispatch engine.
type InboundMessage struct {
	Channel       string // platform name, e.g. "discord"
	ChatID        string
	SenderID      string
	SenderMention string
	Content       string
	DM            bool
	BotMentioned  bool
	Attachments   []Attachment
	Timestamp     time.Time
}

// FileUpload is a binary payload to deliver alongside an outbound message.
type FileUpload struct {
	Name string
	Data []byte
}

// OutboundMessage is emitted by the engine or a capability toward a chat channel.
type OutboundMessage struct {
	Channel string
	ChatID  string
	Content string
	File    *FileUpload
	Typing  bool // typing indicator only, no content
}
