package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageContent_Roles(t *testing.T) {
	user := MessageContent(&Message{Text: "hello", IsUser: true})
	assert.Equal(t, RoleUser, user.Role)

	model := MessageContent(&Message{Text: "hi"})
	assert.Equal(t, RoleModel, model.Role)
}

func TestMessageContent_AttachmentParts(t *testing.T) {
	c := MessageContent(&Message{
		IsUser: true,
		Text:   "what is this?",
		Attachment: &Attachment{
			MimeType: "image/png",
			Data:     "aGVsbG8=",
		},
	})

	require.Len(t, c.Parts, 2)
	assert.Equal(t, "what is this?", c.Parts[0].Text)
	require.NotNil(t, c.Parts[1].InlineData)
	assert.Equal(t, "image/png", c.Parts[1].InlineData.MimeType)
}

func TestMessageContent_EmptyMessageGetsPlaceholderPart(t *testing.T) {
	c := MessageContent(&Message{IsUser: true})
	require.Len(t, c.Parts, 1)
	assert.Equal(t, " ", c.Parts[0].Text)
}

func TestTrimLeadingNonUser(t *testing.T) {
	history := []Content{
		{Role: RoleModel, Parts: []Part{{Text: "welcome"}}},
		{Role: RoleModel, Parts: []Part{{Text: "still me"}}},
		{Role: RoleUser, Parts: []Part{{Text: "hi"}}},
		{Role: RoleModel, Parts: []Part{{Text: "hello"}}},
	}

	trimmed := TrimLeadingNonUser(history)
	require.Len(t, trimmed, 2)
	assert.Equal(t, RoleUser, trimmed[0].Role)
}

func TestTrimLeadingNonUser_AllModelTurns(t *testing.T) {
	history := []Content{
		{Role: RoleModel, Parts: []Part{{Text: "a"}}},
	}
	assert.Empty(t, TrimLeadingNonUser(history))
}

func TestSession_LastUserIndex(t *testing.T) {
	s := &Session{Messages: []*Message{
		{ID: "1", IsUser: true},
		{ID: "2"},
		{ID: "3", IsUser: true},
		{ID: "4"},
	}}
	assert.Equal(t, 2, s.LastUserIndex())

	empty := &Session{Messages: []*Message{{ID: "1"}}}
	assert.Equal(t, -1, empty.LastUserIndex())
}

func TestErrorOutcome_JSONShape(t *testing.T) {
	wait := 13
	body, err := json.Marshal(ErrorResponse{Error: &ErrorOutcome{
		Kind:        OutcomeRateLimit,
		Message:     "slow down",
		WaitSeconds: &wait,
	}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":{"kind":"RATE_LIMIT","message":"slow down","waitSeconds":13}}`, string(body))

	body, err = json.Marshal(ErrorResponse{Error: &ErrorOutcome{
		Kind:    OutcomeGeneral,
		Message: "boom",
	}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":{"kind":"GENERAL","message":"boom"}}`, string(body))
}

func TestErrorOutcome_Render(t *testing.T) {
	wait := 5
	o := &ErrorOutcome{Kind: OutcomeRateLimit, Message: "rate limited.", WaitSeconds: &wait}
	assert.Equal(t, "Error: rate limited. Retry in 5s.", o.Render())

	g := &ErrorOutcome{Kind: OutcomeGeneral, Message: "network timeout"}
	assert.Equal(t, "Error: network timeout", g.Render())
}
