package types

// Message is a single transcript entry. An assistant message is mutable
// while its generation streams (text grows by append only) and becomes
// immutable once the stream ends or is cancelled.
type Message struct {
	ID         string      `json:"id"`
	Text       string      `json:"text"`
	IsUser     bool        `json:"isUser"`
	Attachment *Attachment `json:"attachment,omitempty"`
	IsError    bool        `json:"isError,omitempty"`
	Timestamp  int64       `json:"timestamp,omitempty"`
}

// Attachment carries inline binary content for a message. Data is the
// base64 payload sent upstream; Preview is a data URL used for display
// only and never transmitted.
type Attachment struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data,omitempty"`
	Preview  string `json:"preview,omitempty"`
}
