package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"occhat/internal/opencode"
)

func TestMessageStore_AddUserMessage(t *testing.T) {
	store := NewMessageStore()
	entry := store.AddUserMessage("hello")

	require.Equal(t, RoleUser, entry.Role)
	require.Equal(t, "hello", entry.Content)
	require.NotEmpty(t, entry.ID)

	entries := store.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, entry.ID, entries[0].ID)
}

func TestMessageStore_AddUserMessageGeneratesUniqueIDs(t *testing.T) {
	store := NewMessageStore()
	a := store.AddUserMessage("one")
	b := store.AddUserMessage("two")
	require.NotEqual(t, a.ID, b.ID)
}

func TestMessageStore_StatusDeDup(t *testing.T) {
	store := NewMessageStore()
	store.AddStatusMessage("Reading file...")
	store.AddStatusMessage("Reading file...")

	require.Len(t, store.Entries(), 1, "identical consecutive status must not repeat")
}

func TestMessageStore_StatusDeDupOnlyConsecutive(t *testing.T) {
	store := NewMessageStore()
	store.AddStatusMessage("Reading file...")
	store.AddStatusMessage("Editing file...")
	store.AddStatusMessage("Reading file...")

	require.Len(t, store.Entries(), 3)
}

func TestMessageStore_ResetStatusMarker(t *testing.T) {
	store := NewMessageStore()
	store.AddStatusMessage("Thinking...")
	store.ResetStatusMarker()
	store.AddStatusMessage("Thinking...")

	require.Len(t, store.Entries(), 2)
}

func TestMessageStore_AddTextMessageMergesByID(t *testing.T) {
	store := NewMessageStore()
	store.AddTextMessage("Hi", "msg_01")
	store.AddTextMessage("Hi there", "msg_01")

	entries := store.Entries()
	require.Len(t, entries, 1, "same-id updates must merge, not append")
	require.Equal(t, RoleAssistant, entries[0].Role)
	require.Equal(t, "Hi there", entries[0].Content)
}

func TestMessageStore_AddTextMessageNewID(t *testing.T) {
	store := NewMessageStore()
	store.AddTextMessage("first", "msg_01")
	store.AddTextMessage("second", "msg_02")

	entries := store.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, "second", entries[1].Content)
}

func TestMessageStore_AddTextMessageDoesNotMergePastOtherEntries(t *testing.T) {
	store := NewMessageStore()
	store.AddTextMessage("first", "msg_01")
	store.AddStatusMessage("Reading file...")
	store.AddTextMessage("second", "msg_01")

	// The status entry broke the streaming run; a new bubble is correct.
	require.Len(t, store.Entries(), 3)
}

func TestMessageStore_AddErrorMessage(t *testing.T) {
	store := NewMessageStore()
	store.AddErrorMessage("boom")

	entries := store.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, RoleError, entries[0].Role)
}

func TestMessageStore_RemoveLastEventMessage(t *testing.T) {
	store := NewMessageStore()
	store.AddUserMessage("hello")
	store.AddStatusMessage("Processing tools...")
	store.RemoveLastEventMessage()

	entries := store.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, RoleUser, entries[0].Role)
}

func TestMessageStore_RemoveLastEventMessageLeavesNonProcessing(t *testing.T) {
	store := NewMessageStore()
	store.AddStatusMessage("Read src/App.tsx")
	store.RemoveLastEventMessage()
	require.Len(t, store.Entries(), 1)
}

func TestMessageStore_RemoveLastEventMessageLeavesNonStatus(t *testing.T) {
	store := NewMessageStore()
	store.AddTextMessage("processing is a word", "msg_01")
	store.RemoveLastEventMessage()
	require.Len(t, store.Entries(), 1)
}

func TestMessageStore_RemoveLastEventMessageEmpty(t *testing.T) {
	store := NewMessageStore()
	store.RemoveLastEventMessage()
	require.Empty(t, store.Entries())
}

func TestMessageStore_ClearMessages(t *testing.T) {
	store := NewMessageStore()
	store.AddUserMessage("hello")
	store.AddStatusMessage("Thinking...")
	store.ClearMessages()

	require.Empty(t, store.Entries())

	// De-dup marker resets with the transcript.
	store.AddStatusMessage("Thinking...")
	require.Len(t, store.Entries(), 1)
}

type fakeSessionAPI struct {
	mu      sync.Mutex
	calls   int
	session opencode.Session
	err     error
	block   chan struct{}
}

func (f *fakeSessionAPI) CreateSession(ctx context.Context) (opencode.Session, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	return f.session, f.err
}

func (f *fakeSessionAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestSessionStore_Initialize(t *testing.T) {
	api := &fakeSessionAPI{session: opencode.Session{ID: "ses_01", Title: "chat"}}
	store := NewSessionStore()

	require.NoError(t, store.Initialize(context.Background(), api))
	require.Equal(t, "ses_01", store.ID())
	require.True(t, store.Ready())
	require.Empty(t, store.InitError())
}

func TestSessionStore_InitializeIsIdempotent(t *testing.T) {
	api := &fakeSessionAPI{session: opencode.Session{ID: "ses_01"}}
	store := NewSessionStore()

	require.NoError(t, store.Initialize(context.Background(), api))
	require.NoError(t, store.Initialize(context.Background(), api))
	require.Equal(t, 1, api.callCount())
}

func TestSessionStore_InFlightGuardPreventsDuplicateCalls(t *testing.T) {
	api := &fakeSessionAPI{session: opencode.Session{ID: "ses_01"}, block: make(chan struct{})}
	store := NewSessionStore()

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Initialize(context.Background(), api)
		}()
	}

	// Let one call enter, then release it; the rest must have been no-ops.
	require.Eventually(t, func() bool { return api.callCount() == 1 }, time.Second, time.Millisecond)
	close(api.block)
	wg.Wait()

	require.Equal(t, 1, api.callCount())
	require.Equal(t, "ses_01", store.ID())
}

func TestSessionStore_InitializeRecordsFailure(t *testing.T) {
	api := &fakeSessionAPI{err: errors.New("connection refused")}
	store := NewSessionStore()

	require.Error(t, store.Initialize(context.Background(), api))
	require.False(t, store.Ready())
	require.Contains(t, store.InitError(), "connection refused")

	// The in-flight flag cleared, so a retry may call again.
	api.err = nil
	api.session = opencode.Session{ID: "ses_02"}
	require.NoError(t, store.Initialize(context.Background(), api))
	require.Equal(t, "ses_02", store.ID())
}

func TestSessionStore_Idle(t *testing.T) {
	store := NewSessionStore()
	require.False(t, store.Idle())
	store.SetIdle(true)
	require.True(t, store.Idle())
	store.SetIdle(false)
	require.False(t, store.Idle())
}
