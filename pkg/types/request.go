package types

// Role values used in provider conversations.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Content is one turn of the provider conversation.
type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// Part is a fragment of a turn: plain text or inline binary data.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

// InlineData is base64-encoded binary content with its mime type.
type InlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// GenerateRequest is the body of POST /generate/stream. History includes
// the new user turn as its trailing entry; the server extracts it and
// treats the rest as conversational context.
type GenerateRequest struct {
	History           []Content `json:"history"`
	ModelName         string    `json:"modelName"`
	SystemInstruction string    `json:"systemInstruction,omitempty"`
	UseGrounding      bool      `json:"useGrounding"`
	UseCodeExecution  bool      `json:"useCodeExecution"`
}

// ImageRequest is the body of POST /generate/image.
type ImageRequest struct {
	Prompt string `json:"prompt"`
}

// GeneratedImage is the success body of POST /generate/image.
type GeneratedImage struct {
	Image    string `json:"image"`
	MimeType string `json:"mimeType"`
}

// Model describes an upstream model as reported by GET /models.
type Model struct {
	Name                       string   `json:"name"`
	DisplayName                string   `json:"displayName,omitempty"`
	Description                string   `json:"description,omitempty"`
	InputTokenLimit            int      `json:"inputTokenLimit,omitempty"`
	OutputTokenLimit           int      `json:"outputTokenLimit,omitempty"`
	SupportedGenerationMethods []string `json:"supportedGenerationMethods,omitempty"`
}

// MessageContent converts a transcript message into a provider turn.
// A message with neither text nor attachment yields a single-space text
// part, which the provider accepts where an empty parts list is rejected.
func MessageContent(m *Message) Content {
	role := RoleModel
	if m.IsUser {
		role = RoleUser
	}

	var parts []Part
	if m.Text != "" {
		parts = append(parts, Part{Text: m.Text})
	}
	if m.Attachment != nil && m.Attachment.Data != "" {
		parts = append(parts, Part{InlineData: &InlineData{
			MimeType: m.Attachment.MimeType,
			Data:     m.Attachment.Data,
		}})
	}
	if len(parts) == 0 {
		parts = append(parts, Part{Text: " "})
	}

	return Content{Role: role, Parts: parts}
}

// TrimLeadingNonUser drops leading turns until the history begins with a
// user turn, a provider requirement for conversational context.
func TrimLeadingNonUser(history []Content) []Content {
	for len(history) > 0 && history[0].Role != RoleUser {
		history = history[1:]
	}
	return history
}
