// Package classify derives presentation state from a message without
// mutating it: whether it is still streaming, whether a typing indicator
// should show, and what overall status text applies.
package classify

import (
	"fmt"

	"occhat/internal/opencode"
)

// State summarizes where a message is in its streaming lifecycle.
type State struct {
	Complete       bool
	ExecutingTools bool
	// Steps counts step-start markers seen so far.
	Steps int
}

// Classify computes the streaming state for a message.
func Classify(msg opencode.Message, sessionIdle bool) State {
	state := State{Complete: !IsStreaming(msg, sessionIdle)}
	for _, part := range msg.Parts {
		switch {
		case part.Type == opencode.PartStepStart:
			state.Steps++
		case part.IsTool() && part.State != nil && !part.State.Status.Terminal():
			state.ExecutingTools = true
		}
	}
	return state
}

// IsStreaming reports whether more content is expected for the message.
// A completion timestamp or an idle session always means no; otherwise any
// unfinished tool part or a trailing step-start marker means yes.
func IsStreaming(msg opencode.Message, sessionIdle bool) bool {
	if msg.Info.Completed() || sessionIdle {
		return false
	}
	for _, part := range msg.Parts {
		if part.IsTool() && part.State != nil && !part.State.Status.Terminal() {
			return true
		}
	}
	if n := len(msg.Parts); n > 0 && msg.Parts[n-1].Type == opencode.PartStepStart {
		return true
	}
	return false
}

// StatusText renders a state as overall status text.
func StatusText(state State) string {
	switch {
	case state.Complete:
		return "Complete"
	case state.ExecutingTools:
		return fmt.Sprintf("Executing tools... (Step %d)", state.Steps)
	default:
		return "Thinking..."
	}
}

// ShouldShowTypingIndicator reports whether a typing indicator applies:
// only while streaming, and only when there is nothing displayable yet or
// the last part is a bare step marker.
func ShouldShowTypingIndicator(msg opencode.Message, sessionIdle bool) bool {
	if !IsStreaming(msg, sessionIdle) {
		return false
	}
	if !HasDisplayableContent(msg) {
		return true
	}
	if n := len(msg.Parts); n > 0 {
		last := msg.Parts[n-1].Type
		return last == opencode.PartStepStart || last == opencode.PartStepFinish
	}
	return false
}

// HasDisplayableContent reports whether any part renders as content
// (text or tool invocation; step markers and files do not count).
func HasDisplayableContent(msg opencode.Message) bool {
	for _, part := range msg.Parts {
		if part.IsText() || part.IsTool() {
			return true
		}
	}
	return false
}
