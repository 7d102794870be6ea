// Package types contains the shared data model for sessions, messages
// and the wire format spoken between the client and the proxy server.
package types

// WelcomeMessageID marks the bootstrap assistant greeting that seeds a
// fresh session. Sessions containing nothing else are considered empty.
const WelcomeMessageID = "welcome"

// DefaultTitle is the title a session carries until one is derived from
// the first user message.
const DefaultTitle = "New Chat"

// Session is a durable conversation: an ordered transcript plus metadata.
// Message order is chronological and is the only meaningful order.
type Session struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Messages  []*Message `json:"messages"`
	CreatedAt int64      `json:"createdAt"`
	UpdatedAt int64      `json:"updatedAt"`
}

// FindMessage returns the message with the given id, or nil.
func (s *Session) FindMessage(id string) *Message {
	for _, m := range s.Messages {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// LastUserIndex returns the index of the most recent user-authored
// message, or -1 if the transcript contains none.
func (s *Session) LastUserIndex() int {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].IsUser {
			return i
		}
	}
	return -1
}
