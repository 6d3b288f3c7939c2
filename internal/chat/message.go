// Package chat holds the canonical client-side conversation state and the
// reconciliation controller that folds server events into it.
package chat

import "time"

// Role tags a transcript entry for display treatment.
type Role string

const (
	// RoleUser is a message typed by the user.
	RoleUser Role = "user"
	// RoleAssistant is assistant output, updated in place while streaming.
	RoleAssistant Role = "assistant"
	// RoleStatus is an ephemeral event line (tool progress, turn status).
	RoleStatus Role = "status"
	// RoleError is a surfaced failure.
	RoleError Role = "error"
)

// Entry is one transcript line. Assistant entries are identified by the
// server-assigned message id so streaming updates merge instead of
// duplicating.
type Entry struct {
	ID      string
	Role    Role
	Content string
	Time    time.Time
}
