// Package testutil provides fluent builders for messages, parts, and event
// frames used across the test suites.
package testutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"occhat/internal/opencode"
)

// MessageBuilder accumulates a message for tests.
type MessageBuilder struct {
	msg opencode.Message
}

// NewMessage creates a builder for an assistant message with the given id.
func NewMessage(id string) *MessageBuilder {
	return &MessageBuilder{msg: opencode.Message{
		Info: opencode.MessageInfo{
			ID:   id,
			Role: "assistant",
			Time: opencode.MessageTime{Created: 1},
		},
	}}
}

// Role overrides the message role.
func (b *MessageBuilder) Role(role string) *MessageBuilder {
	b.msg.Info.Role = role
	return b
}

// Session sets the owning session id.
func (b *MessageBuilder) Session(id string) *MessageBuilder {
	b.msg.Info.SessionID = id
	return b
}

// Cwd sets the server working directory on the message metadata.
func (b *MessageBuilder) Cwd(cwd string) *MessageBuilder {
	if b.msg.Info.Path == nil {
		b.msg.Info.Path = &opencode.PathInfo{}
	}
	b.msg.Info.Path.Cwd = cwd
	return b
}

// Completed sets the completion timestamp.
func (b *MessageBuilder) Completed(ts int64) *MessageBuilder {
	b.msg.Info.Time.Completed = ts
	return b
}

// Text appends a text part.
func (b *MessageBuilder) Text(text string) *MessageBuilder {
	b.msg.Parts = append(b.msg.Parts, opencode.Part{
		Type:      opencode.PartText,
		MessageID: b.msg.Info.ID,
		Text:      text,
	})
	return b
}

// Tool appends a tool part with the given lifecycle state and arguments.
func (b *MessageBuilder) Tool(t *testing.T, callID, tool string, st opencode.ToolStatus, args map[string]any) *MessageBuilder {
	t.Helper()
	var input json.RawMessage
	if args != nil {
		data, err := json.Marshal(args)
		require.NoError(t, err)
		input = data
	}
	b.msg.Parts = append(b.msg.Parts, opencode.Part{
		Type:      opencode.PartTool,
		MessageID: b.msg.Info.ID,
		CallID:    callID,
		Tool:      tool,
		State:     &opencode.ToolState{Status: st, Input: input},
	})
	return b
}

// StepStart appends a step-start marker.
func (b *MessageBuilder) StepStart() *MessageBuilder {
	b.msg.Parts = append(b.msg.Parts, opencode.Part{
		Type:      opencode.PartStepStart,
		MessageID: b.msg.Info.ID,
	})
	return b
}

// StepFinish appends a step-finish marker.
func (b *MessageBuilder) StepFinish() *MessageBuilder {
	b.msg.Parts = append(b.msg.Parts, opencode.Part{
		Type:      opencode.PartStepFinish,
		MessageID: b.msg.Info.ID,
	})
	return b
}

// Build returns the accumulated message.
func (b *MessageBuilder) Build() opencode.Message {
	return b.msg
}

// Props marshals a value into the raw properties payload handlers receive.
func Props(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

// Frame renders one SSE frame carrying a {type, properties} event.
func Frame(t *testing.T, eventType string, props any) string {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"type":       eventType,
		"properties": props,
	})
	require.NoError(t, err)
	return "data: " + string(payload) + "\n\n"
}
