package chat

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"occhat/internal/log"
	"occhat/internal/pubsub"
)

// MessageStore holds the ordered transcript and the last-emitted status
// marker. It is an injected instance, not a package global, so tests get
// isolated state. Every mutation is a self-contained read-modify-write under
// one mutex hold and publishes a transcript event for the UI.
type MessageStore struct {
	mu         sync.Mutex
	entries    []Entry
	lastStatus string

	broker *pubsub.Broker[Entry]
	now    func() time.Time
}

// NewMessageStore creates an empty message store.
func NewMessageStore() *MessageStore {
	return &MessageStore{
		broker: pubsub.NewBroker[Entry](),
		now:    time.Now,
	}
}

// Broker exposes the transcript change feed for UI subscriptions.
func (s *MessageStore) Broker() *pubsub.Broker[Entry] { return s.broker }

// Entries returns a copy of the transcript.
func (s *MessageStore) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// AddUserMessage appends a user message with a freshly generated id.
func (s *MessageStore) AddUserMessage(content string) Entry {
	s.mu.Lock()
	entry := Entry{
		ID:      uuid.NewString(),
		Role:    RoleUser,
		Content: content,
		Time:    s.now(),
	}
	s.entries = append(s.entries, entry)
	s.mu.Unlock()

	s.broker.Publish(pubsub.TranscriptEvent, entry)
	return entry
}

// AddStatusMessage appends an ephemeral status entry unless text equals the
// last emitted status. The de-dup invariant applies to displayed status
// text, not to internal state.
func (s *MessageStore) AddStatusMessage(text string) {
	s.mu.Lock()
	if text == s.lastStatus {
		s.mu.Unlock()
		return
	}
	s.lastStatus = text
	entry := Entry{
		ID:      uuid.NewString(),
		Role:    RoleStatus,
		Content: text,
		Time:    s.now(),
	}
	s.entries = append(s.entries, entry)
	s.mu.Unlock()

	log.Debug(log.CatStore, "status", "text", text)
	s.broker.Publish(pubsub.StatusEvent, entry)
}

// AddTextMessage reconciles streamed assistant text: when the last entry is
// the assistant message with the same id, its content and timestamp are
// overwritten in place; otherwise a new assistant entry is appended. This is
// what keeps progressive text reveal from producing duplicate bubbles.
func (s *MessageStore) AddTextMessage(text, messageID string) {
	s.mu.Lock()
	if n := len(s.entries); n > 0 {
		last := &s.entries[n-1]
		if last.Role == RoleAssistant && last.ID == messageID {
			last.Content = text
			last.Time = s.now()
			entry := *last
			s.mu.Unlock()
			s.broker.Publish(pubsub.TranscriptEvent, entry)
			return
		}
	}
	entry := Entry{
		ID:      messageID,
		Role:    RoleAssistant,
		Content: text,
		Time:    s.now(),
	}
	s.entries = append(s.entries, entry)
	s.mu.Unlock()

	s.broker.Publish(pubsub.TranscriptEvent, entry)
}

// AddErrorMessage appends an entry tagged for error styling.
func (s *MessageStore) AddErrorMessage(text string) {
	s.mu.Lock()
	entry := Entry{
		ID:      uuid.NewString(),
		Role:    RoleError,
		Content: text,
		Time:    s.now(),
	}
	s.entries = append(s.entries, entry)
	s.mu.Unlock()

	s.broker.Publish(pubsub.TranscriptEvent, entry)
}

// RemoveLastEventMessage pops a trailing status entry that matches the
// processing indicator, cleaning up a stale "Processing..." line once the
// turn ends. Anything else is left alone.
func (s *MessageStore) RemoveLastEventMessage() {
	s.mu.Lock()
	n := len(s.entries)
	if n == 0 {
		s.mu.Unlock()
		return
	}
	last := s.entries[n-1]
	if last.Role != RoleStatus || !strings.Contains(strings.ToLower(last.Content), "processing") {
		s.mu.Unlock()
		return
	}
	s.entries = s.entries[:n-1]
	s.mu.Unlock()

	s.broker.Publish(pubsub.TranscriptEvent, Entry{})
}

// ClearMessages empties the transcript and resets the de-dup marker.
func (s *MessageStore) ClearMessages() {
	s.mu.Lock()
	s.entries = nil
	s.lastStatus = ""
	s.mu.Unlock()

	s.broker.Publish(pubsub.TranscriptEvent, Entry{})
}

// ResetStatusMarker clears the de-dup marker so the next status always
// emits, even when it repeats the previous turn's final status.
func (s *MessageStore) ResetStatusMarker() {
	s.mu.Lock()
	s.lastStatus = ""
	s.mu.Unlock()
}

// SetClock overrides the time source for tests.
func (s *MessageStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}
