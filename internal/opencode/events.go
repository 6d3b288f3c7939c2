package opencode

import "encoding/json"

// Event type strings emitted on the GET /event stream. The reconciliation
// layer acts on the first four; remaining types are status-only and pass
// through the subscription registry untouched.
const (
	EventMessageUpdated     = "message.updated"
	EventMessagePartUpdated = "message.part.updated"
	EventSessionError       = "session.error"
	EventSessionIdle        = "session.idle"
	EventSessionUpdated     = "session.updated"
	EventFileEdited         = "file.edited"
)

// EventFrame is the envelope of every SSE frame: a type string selecting the
// payload shape carried in Properties.
type EventFrame struct {
	Type       string          `json:"type"`
	Properties json.RawMessage `json:"properties"`
}

// MessageUpdatedProps is the payload of message.updated. Parts may be absent;
// metadata lives in Info.
type MessageUpdatedProps struct {
	Info  MessageInfo `json:"info"`
	Parts []Part      `json:"parts,omitempty"`
}

// MessagePartUpdatedProps is the payload of message.part.updated. It carries
// only the part; metadata for the owning message must be looked up from a
// previously seen message.updated event.
type MessagePartUpdatedProps struct {
	Part Part `json:"part"`
}

// SessionErrorProps is the payload of session.error.
type SessionErrorProps struct {
	SessionID string    `json:"sessionID,omitempty"` //nolint:tagliatelle // matches opencode API
	Error     *APIError `json:"error,omitempty"`
}

// SessionIdleProps is the payload of session.idle, signaling the server
// finished processing the current turn.
type SessionIdleProps struct {
	SessionID string `json:"sessionID"` //nolint:tagliatelle // matches opencode API
}
