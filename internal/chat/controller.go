package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"occhat/internal/chat/classify"
	"occhat/internal/log"
	"occhat/internal/opencode"
	"occhat/internal/opencode/status"
	"occhat/internal/stream"
)

// ErrBusy is returned when a submit arrives while a turn is in flight.
// New submits are rejected, not queued.
var ErrBusy = errors.New("a message is already being processed")

// ErrSessionNotReady is returned when no session exists yet.
var ErrSessionNotReady = errors.New("session not ready")

// TurnState tracks one user-submit-to-idle cycle.
type TurnState int

const (
	TurnIdle TurnState = iota
	TurnSending
	TurnAwaitingFirstEvent
	TurnStreaming
)

func (t TurnState) String() string {
	switch t {
	case TurnIdle:
		return "idle"
	case TurnSending:
		return "sending"
	case TurnAwaitingFirstEvent:
		return "awaiting-first-event"
	case TurnStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// Busy reports whether a turn is in flight.
func (t TurnState) Busy() bool { return t != TurnIdle }

// MessageSender is the remote collaborator that posts user messages.
// Satisfied by *opencode.Client.
type MessageSender interface {
	SendMessage(ctx context.Context, sessionID string, req opencode.SendMessageRequest) (opencode.Message, error)
}

// Subscriber is the event stream registry the controller binds to.
// Satisfied by *stream.Client.
type Subscriber interface {
	Subscribe(eventType string, fn stream.Handler) func()
}

// Selection is the provider/model/mode used for sends.
type Selection struct {
	ProviderID string
	ModelID    string
	Mode       string
}

// Usage is the token/cost tally from the most recent assistant message.
type Usage struct {
	Cost         float64
	InputTokens  int
	OutputTokens int
}

const metadataTTL = 30 * time.Minute

// Controller is the only component that knows both the stream's event
// taxonomy and the stores' mutation API. It translates inbound events into
// store mutations using the classifier and the status formatters.
type Controller struct {
	api      MessageSender
	session  *SessionStore
	messages *MessageStore

	// meta caches message.updated metadata by message id: part events do
	// not carry metadata, so contextual formatting looks it up here. A part
	// arriving before its metadata degrades gracefully to no metadata.
	meta *cache.Cache

	mu sync.Mutex
	// turn is the in-flight turn state machine.
	turn TurnState
	// lastToolStatus records the last seen lifecycle state per call id so
	// backward transitions can be logged. Policy is last-write-wins.
	lastToolStatus map[string]opencode.ToolStatus
	selection      Selection
	usage          Usage
	hasUsage       bool
	unsubs         []func()

	tracer trace.Tracer
}

// NewController creates a controller over the given stores and API.
func NewController(api MessageSender, session *SessionStore, messages *MessageStore, sel Selection) *Controller {
	return &Controller{
		api:            api,
		session:        session,
		messages:       messages,
		meta:           cache.New(metadataTTL, metadataTTL),
		lastToolStatus: make(map[string]opencode.ToolStatus),
		selection:      sel,
		tracer:         otel.Tracer("occhat/chat"),
	}
}

// SetSelection switches the provider/model/mode for subsequent sends.
func (c *Controller) SetSelection(sel Selection) {
	c.mu.Lock()
	c.selection = sel
	c.mu.Unlock()
}

// Selection returns the current provider/model/mode.
func (c *Controller) Selection() Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection
}

// Usage returns the token/cost tally of the latest assistant message and
// whether one has been seen this run.
func (c *Controller) Usage() (Usage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage, c.hasUsage
}

// Turn returns the current turn state.
func (c *Controller) Turn() TurnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.turn
}

// Bind subscribes the controller to the event stream. Call Unbind to remove
// the registrations.
func (c *Controller) Bind(sub Subscriber) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unsubs = append(c.unsubs,
		sub.Subscribe(opencode.EventMessageUpdated, c.handleMessageUpdated),
		sub.Subscribe(opencode.EventMessagePartUpdated, c.handlePartUpdated),
		sub.Subscribe(opencode.EventSessionError, c.handleSessionError),
		sub.Subscribe(opencode.EventSessionIdle, c.handleSessionIdle),
	)
}

// Unbind removes all stream registrations.
func (c *Controller) Unbind() {
	c.mu.Lock()
	unsubs := c.unsubs
	c.unsubs = nil
	c.mu.Unlock()
	for _, unsub := range unsubs {
		unsub()
	}
}

// Submit starts a turn: appends the user message and posts it to the
// server. Re-entrant submits and submits before the session exists are
// rejected. Network failures are surfaced as error entries and the turn
// returns to idle so the user may retry.
func (c *Controller) Submit(ctx context.Context, text string) error {
	c.mu.Lock()
	if c.turn.Busy() {
		c.mu.Unlock()
		return ErrBusy
	}
	if !c.session.Ready() {
		c.mu.Unlock()
		return ErrSessionNotReady
	}
	c.turn = TurnSending
	sel := c.selection
	c.mu.Unlock()

	c.session.SetIdle(false)
	c.messages.AddUserMessage(text)

	ctx, span := c.tracer.Start(ctx, "chat.submit", trace.WithAttributes(
		attribute.String("provider", sel.ProviderID),
		attribute.String("model", sel.ModelID),
	))
	defer span.End()

	msg, err := c.api.SendMessage(ctx, c.session.ID(),
		opencode.NewTextMessage(sel.ProviderID, sel.ModelID, sel.Mode, text))
	if err != nil {
		c.messages.AddErrorMessage(fmt.Sprintf("Failed to send message: %v", err))
		c.setTurn(TurnIdle)
		return err
	}

	c.mu.Lock()
	// Stream events may have arrived while the POST was outstanding; only
	// advance if nothing moved the turn past sending.
	pristine := c.turn == TurnSending
	if pristine {
		c.turn = TurnAwaitingFirstEvent
	}
	c.mu.Unlock()

	// Coarse one-shot fallback for the pre-streaming window: the response
	// already names tool parts but no stream event has described them yet.
	if pristine && hasToolParts(msg) {
		c.messages.AddStatusMessage("Processing tools...")
	}
	return nil
}

func hasToolParts(msg opencode.Message) bool {
	for _, part := range msg.Parts {
		if part.IsTool() {
			return true
		}
	}
	return false
}

func (c *Controller) setTurn(turn TurnState) {
	c.mu.Lock()
	if c.turn != turn {
		log.Debug(log.CatChat, "turn transition", "from", c.turn, "to", turn)
		c.turn = turn
	}
	c.mu.Unlock()
}

// markStreaming advances awaiting-first-event or sending to streaming once
// any stream event for the turn arrives.
func (c *Controller) markStreaming() {
	c.mu.Lock()
	if c.turn == TurnAwaitingFirstEvent || c.turn == TurnSending {
		c.turn = TurnStreaming
	}
	c.mu.Unlock()
}

// handleMessageUpdated caches message metadata for later part lookups and
// derives the overall turn status from the message's parts.
func (c *Controller) handleMessageUpdated(props json.RawMessage) {
	var update opencode.MessageUpdatedProps
	if err := json.Unmarshal(props, &update); err != nil {
		log.Warn(log.CatChat, "dropping message.updated", "error", err)
		return
	}
	if !c.forActiveSession(update.Info.SessionID) {
		return
	}

	c.meta.Set(update.Info.ID, update.Info, cache.DefaultExpiration)

	if update.Info.Role != "assistant" {
		return
	}
	c.recordUsage(update.Info)

	if update.Info.Completed() {
		c.setTurn(TurnIdle)
		return
	}
	c.markStreaming()

	msg := opencode.Message{Info: update.Info, Parts: update.Parts}
	state := classify.Classify(msg, c.session.Idle())
	if state.ExecutingTools {
		c.messages.AddStatusMessage(classify.StatusText(state))
		return
	}
	if n := completedToolCount(update.Parts); n > 0 {
		c.messages.AddStatusMessage(fmt.Sprintf("✓ Completed %d tool(s)", n))
	}
}

// recordUsage keeps the latest non-empty token/cost tally for the status bar.
func (c *Controller) recordUsage(info opencode.MessageInfo) {
	if info.Cost == 0 && info.Tokens == nil {
		return
	}
	usage := Usage{Cost: info.Cost}
	if info.Tokens != nil {
		usage.InputTokens = info.Tokens.Input
		usage.OutputTokens = info.Tokens.Output
	}
	c.mu.Lock()
	c.usage = usage
	c.hasUsage = true
	c.mu.Unlock()
}

func completedToolCount(parts []opencode.Part) int {
	n := 0
	for _, part := range parts {
		if part.IsTool() && part.State != nil && part.State.Status == opencode.ToolCompleted {
			n++
		}
	}
	return n
}

// handlePartUpdated reconciles a single part update: tool parts become
// contextual status lines, text parts stream into the transcript.
func (c *Controller) handlePartUpdated(props json.RawMessage) {
	var update opencode.MessagePartUpdatedProps
	if err := json.Unmarshal(props, &update); err != nil {
		log.Warn(log.CatChat, "dropping message.part.updated", "error", err)
		return
	}
	part := update.Part
	if !c.forActiveSession(part.SessionID) {
		return
	}
	c.markStreaming()

	switch {
	case part.IsTool() && part.State != nil:
		c.reconcileToolPart(part)
	case part.IsText() && part.Text != "":
		c.messages.AddTextMessage(part.Text, part.MessageID)
	}
}

func (c *Controller) reconcileToolPart(part opencode.Part) {
	c.mu.Lock()
	if prev, ok := c.lastToolStatus[part.CallID]; ok && part.State.Status.Rank() < prev.Rank() {
		// Out-of-order regression (e.g. completed -> running). Last write
		// wins; record it so the server behavior is visible in logs.
		log.Warn(log.CatChat, "tool state regression",
			"callID", part.CallID, "from", prev, "to", part.State.Status)
	}
	c.lastToolStatus[part.CallID] = part.State.Status
	c.mu.Unlock()

	// Metadata may not be cached yet when part events outrun their
	// message.updated. Degrade to an empty cwd rather than buffer.
	cwd := ""
	if v, ok := c.meta.Get(part.MessageID); ok {
		if info, ok := v.(opencode.MessageInfo); ok {
			cwd = info.Cwd()
		}
	}

	switch part.State.Status {
	case opencode.ToolPending:
		c.messages.AddStatusMessage(status.ActionMessage(part.Tool))
	case opencode.ToolRunning:
		c.messages.AddStatusMessage(status.ContextualTitle(part.Tool, part.State.Args(), cwd))
	case opencode.ToolError:
		if part.State.Error != "" {
			c.messages.AddErrorMessage(fmt.Sprintf("%s failed: %s",
				status.DisplayName(part.Tool), part.State.Error))
		}
	case opencode.ToolCompleted:
		// Terminal success is summarized by message.updated.
	}
}

// handleSessionError surfaces server-reported errors verbatim and ends the
// turn. No automatic retry.
func (c *Controller) handleSessionError(props json.RawMessage) {
	var serr opencode.SessionErrorProps
	if err := json.Unmarshal(props, &serr); err != nil {
		log.Warn(log.CatChat, "dropping session.error", "error", err)
		return
	}
	if serr.SessionID != "" && !c.forActiveSession(serr.SessionID) {
		return
	}
	c.setTurn(TurnIdle)
	c.messages.AddErrorMessage(serr.Error.DisplayMessage())
}

// handleSessionIdle ends the turn for the active session: clears a lingering
// processing indicator and resets the status de-dup marker.
func (c *Controller) handleSessionIdle(props json.RawMessage) {
	var idle opencode.SessionIdleProps
	if err := json.Unmarshal(props, &idle); err != nil {
		log.Warn(log.CatChat, "dropping session.idle", "error", err)
		return
	}
	if !c.forActiveSession(idle.SessionID) {
		return
	}
	c.session.SetIdle(true)
	c.setTurn(TurnIdle)
	c.messages.RemoveLastEventMessage()
	c.messages.ResetStatusMarker()
}

// forActiveSession filters events to the single active session. Events
// without a session id pass through (some servers omit it on early frames).
func (c *Controller) forActiveSession(sessionID string) bool {
	if sessionID == "" {
		return true
	}
	active := c.session.ID()
	return active == "" || sessionID == active
}
