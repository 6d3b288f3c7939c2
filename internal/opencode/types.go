// Package opencode provides wire types and an HTTP client for the opencode
// server API. Field names follow the server's camelCase JSON exactly.
package opencode

import "encoding/json"

// Session represents a conversation session on the server.
type Session struct {
	ID      string      `json:"id"`
	Title   string      `json:"title"`
	Version string      `json:"version,omitempty"`
	Time    SessionTime `json:"time"`
}

// SessionTime contains timestamps for a session.
type SessionTime struct {
	Created int64 `json:"created"`
	Updated int64 `json:"updated"`
}

// Message is the full message envelope returned by the server:
// metadata in Info, ordered content fragments in Parts.
type Message struct {
	Info  MessageInfo `json:"info"`
	Parts []Part      `json:"parts"`
}

// MessageInfo holds per-message metadata. Individual part events do not
// carry this; it arrives on message.updated events and message responses.
type MessageInfo struct {
	ID         string                  `json:"id"`
	Role       string                  `json:"role"`
	SessionID  string                  `json:"sessionID"` //nolint:tagliatelle // matches opencode API
	Time       MessageTime             `json:"time"`
	ModelID    string                  `json:"modelID,omitempty"`    //nolint:tagliatelle // matches opencode API
	ProviderID string                  `json:"providerID,omitempty"` //nolint:tagliatelle // matches opencode API
	Mode       string                  `json:"mode,omitempty"`
	Path       *PathInfo               `json:"path,omitempty"`
	Cost       float64                 `json:"cost,omitempty"`
	Tokens     *TokenUsage             `json:"tokens,omitempty"`
	Tool       map[string]ToolMetadata `json:"tool,omitempty"`
	Error      *APIError               `json:"error,omitempty"`
}

// Completed reports whether the message carries a completion timestamp.
func (i MessageInfo) Completed() bool {
	return i.Time.Completed > 0
}

// Cwd returns the server working directory for this message, or "" when the
// server did not report one.
func (i MessageInfo) Cwd() string {
	if i.Path == nil {
		return ""
	}
	return i.Path.Cwd
}

// MessageTime contains message timestamps. Completed is zero while the
// assistant is still producing output.
type MessageTime struct {
	Created   int64 `json:"created"`
	Completed int64 `json:"completed,omitempty"`
}

// PathInfo reports the server-side working directory context. Cwd is the
// authoritative base for relative path display; the client has no local
// filesystem context of its own.
type PathInfo struct {
	Cwd  string `json:"cwd"`
	Root string `json:"root,omitempty"`
}

// TokenUsage reports token counts for an assistant message.
type TokenUsage struct {
	Input     int         `json:"input,omitempty"`
	Output    int         `json:"output,omitempty"`
	Reasoning int         `json:"reasoning,omitempty"`
	Cache     *CacheUsage `json:"cache,omitempty"`
}

// CacheUsage reports prompt-cache token counts.
type CacheUsage struct {
	Read  int `json:"read,omitempty"`
	Write int `json:"write,omitempty"`
}

// Part type discriminator values.
const (
	PartText       = "text"
	PartTool       = "tool"
	PartStepStart  = "step-start"
	PartStepFinish = "step-finish"
	PartFile       = "file"
)

// Part is one typed fragment of a message. Type selects which of the
// variant fields are meaningful.
type Part struct {
	ID        string `json:"id,omitempty"`
	MessageID string `json:"messageID,omitempty"` //nolint:tagliatelle // matches opencode API
	SessionID string `json:"sessionID,omitempty"` //nolint:tagliatelle // matches opencode API
	Type      string `json:"type"`

	// text parts
	Text string `json:"text,omitempty"`

	// tool parts
	CallID string     `json:"callID,omitempty"` //nolint:tagliatelle // matches opencode API
	Tool   string     `json:"tool,omitempty"`
	State  *ToolState `json:"state,omitempty"`

	// file parts
	MediaType string `json:"mediaType,omitempty"` //nolint:tagliatelle // matches opencode API
	Filename  string `json:"filename,omitempty"`
	URL       string `json:"url,omitempty"`

	Time *TimeRange `json:"time,omitempty"`
}

// IsTool reports whether this is a tool invocation part.
func (p Part) IsTool() bool { return p.Type == PartTool }

// IsText reports whether this is a text part.
func (p Part) IsText() bool { return p.Type == PartText }

// ToolStatus is the lifecycle state of a tool invocation.
type ToolStatus string

const (
	ToolPending   ToolStatus = "pending"
	ToolRunning   ToolStatus = "running"
	ToolCompleted ToolStatus = "completed"
	ToolError     ToolStatus = "error"
)

// Terminal reports whether the status is a terminal lifecycle state.
func (s ToolStatus) Terminal() bool {
	return s == ToolCompleted || s == ToolError
}

// Rank orders statuses along the lifecycle so regressions can be detected.
// Unknown statuses rank lowest.
func (s ToolStatus) Rank() int {
	switch s {
	case ToolPending:
		return 1
	case ToolRunning:
		return 2
	case ToolCompleted, ToolError:
		return 3
	default:
		return 0
	}
}

// ToolState carries the lifecycle state of a tool invocation.
// Input is the raw tool arguments; Args decodes them.
type ToolState struct {
	Status   ToolStatus      `json:"status"`
	Input    json.RawMessage `json:"input,omitempty"`
	Output   string          `json:"output,omitempty"`
	Error    string          `json:"error,omitempty"`
	Title    string          `json:"title,omitempty"`
	Time     *TimeRange      `json:"time,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// Args decodes the tool input arguments into a generic map.
// Returns nil on absent or malformed input; callers fall back to defaults.
func (s *ToolState) Args() map[string]any {
	if s == nil || len(s.Input) == 0 {
		return nil
	}
	var args map[string]any
	if err := json.Unmarshal(s.Input, &args); err != nil {
		return nil
	}
	return args
}

// ToolMetadata is supplementary per-invocation data keyed by call id on the
// owning message, separate from the part's own state.
type ToolMetadata struct {
	Preview     string          `json:"preview,omitempty"`
	Diff        string          `json:"diff,omitempty"`
	Diagnostics json.RawMessage `json:"diagnostics,omitempty"`
	Title       string          `json:"title,omitempty"`
	Time        *TimeRange      `json:"time,omitempty"`
}

// TimeRange is a start/end timestamp pair in epoch milliseconds.
type TimeRange struct {
	Start int64 `json:"start,omitempty"`
	End   int64 `json:"end,omitempty"`
}

// APIError is a server-reported error with an optional nested payload, e.g.
// {"name":"ProviderAuthError","data":{"message":"..."}}.
type APIError struct {
	Name    string        `json:"name,omitempty"`
	Message string        `json:"message,omitempty"`
	Data    *APIErrorData `json:"data,omitempty"`
}

// APIErrorData is the nested error payload.
type APIErrorData struct {
	Message string `json:"message,omitempty"`
}

// DisplayMessage returns the most specific human-readable error text.
func (e *APIError) DisplayMessage() string {
	if e == nil {
		return "unknown error"
	}
	if e.Data != nil && e.Data.Message != "" {
		return e.Data.Message
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Name != "" {
		return e.Name
	}
	return "unknown error"
}
