package chat

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"

	"occhat/internal/log"
	"occhat/internal/opencode"
)

// SessionCreator is the remote collaborator that creates sessions.
// Satisfied by *opencode.Client.
type SessionCreator interface {
	CreateSession(ctx context.Context) (opencode.Session, error)
}

// SessionStore holds the single active session. Exactly one session exists
// per run; there is no persistence, so "destroy" is just process exit.
type SessionStore struct {
	mu           sync.Mutex
	session      opencode.Session
	initErr      string
	initializing bool
	idle         bool
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{}
}

// Initialize creates the remote session once. Calls while a session exists
// or while creation is in flight are no-ops; the in-flight guard prevents
// duplicate remote calls. A failure is recorded as store state and surfaced
// by the caller; there is no automatic retry.
func (s *SessionStore) Initialize(ctx context.Context, api SessionCreator) error {
	s.mu.Lock()
	if s.session.ID != "" || s.initializing {
		s.mu.Unlock()
		return nil
	}
	s.initializing = true
	s.mu.Unlock()

	ctx, span := otel.Tracer("occhat/chat").Start(ctx, "session.initialize")
	defer span.End()

	session, err := api.CreateSession(ctx)
	if err != nil {
		span.RecordError(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.initializing = false
	if err != nil {
		s.initErr = err.Error()
		log.ErrorErr(log.CatStore, "session init failed", err)
		return err
	}
	s.session = session
	s.initErr = ""
	return nil
}

// ID returns the active session id, or "" before initialization.
func (s *SessionStore) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.ID
}

// Title returns the session title.
func (s *SessionStore) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Title
}

// Ready reports whether a session exists.
func (s *SessionStore) Ready() bool {
	return s.ID() != ""
}

// InitError returns the recorded initialization failure, if any.
func (s *SessionStore) InitError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initErr
}

// SetIdle marks whether the server signaled it finished the current turn.
func (s *SessionStore) SetIdle(idle bool) {
	s.mu.Lock()
	s.idle = idle
	s.mu.Unlock()
}

// Idle reports the server-signaled idle flag.
func (s *SessionStore) Idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idle
}
