// Package stream maintains a live SSE connection to the opencode server's
// /event endpoint and dispatches frames to subscribers keyed by event type.
//
// Frames look like:
//
//	data: {"type":"message.part.updated","properties":{...}}
//
// Transport errors trigger reconnection with exponential backoff; after a
// fixed number of consecutive failures the client enters a terminal failed
// state that requires an explicit reconnect (in practice: a restart).
package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"occhat/internal/log"
	"occhat/internal/opencode"
)

// State is the connection state of the stream client.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateReconnecting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Handler receives the raw properties payload of a dispatched frame.
type Handler func(properties json.RawMessage)

// StateFunc is notified on every connection state change.
type StateFunc func(State)

const (
	defaultBaseDelay   = time.Second
	defaultMaxAttempts = 5
)

type subscription struct {
	id int
	fn Handler
}

// Client wraps the persistent SSE connection and the per-type subscriber
// registry. Callbacks run on the connection's reader goroutine.
type Client struct {
	url   string
	httpc *http.Client

	mu       sync.Mutex
	subs     map[string][]subscription
	nextID   int
	state    State
	attempts int
	cancel   context.CancelFunc
	done     chan struct{}

	onState StateFunc

	baseDelay   time.Duration
	maxAttempts int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client. The stream client strips any
// timeout, since the /event response never ends.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

// WithBaseDelay sets the initial reconnect delay.
func WithBaseDelay(d time.Duration) Option {
	return func(c *Client) { c.baseDelay = d }
}

// WithMaxAttempts sets the consecutive-failure count that triggers the
// terminal failed state.
func WithMaxAttempts(n int) Option {
	return func(c *Client) { c.maxAttempts = n }
}

// WithStateFunc registers a connection state change callback.
func WithStateFunc(fn StateFunc) Option {
	return func(c *Client) { c.onState = fn }
}

// New creates a stream client for the given /event URL.
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:         url,
		httpc:       &http.Client{},
		subs:        make(map[string][]subscription),
		state:       StateDisconnected,
		baseDelay:   defaultBaseDelay,
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers a callback for a named event type and returns a
// closure that removes exactly that registration. Multiple subscribers per
// type are invoked in registration order.
func (c *Client) Subscribe(eventType string, fn Handler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	c.subs[eventType] = append(c.subs[eventType], subscription{id: id, fn: fn})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		subs := c.subs[eventType]
		for i, sub := range subs {
			if sub.id == id {
				c.subs[eventType] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Connect opens the SSE connection, tearing down any prior connection first.
// The reader goroutine owns reconnection until ctx is cancelled, Disconnect
// is called, or the failure budget is exhausted.
func (c *Client) Connect(ctx context.Context) {
	c.teardown()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	c.mu.Lock()
	c.cancel = cancel
	c.done = done
	c.attempts = 0
	c.mu.Unlock()

	go c.run(ctx, done)
}

// Disconnect closes the connection and clears all registrations.
func (c *Client) Disconnect() {
	c.teardown()
	c.mu.Lock()
	c.subs = make(map[string][]subscription)
	c.mu.Unlock()
	c.setState(StateDisconnected)
}

// teardown cancels the current reader goroutine and waits for it to exit.
func (c *Client) teardown() {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attempts returns the consecutive connection-failure count.
func (c *Client) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

func (c *Client) setState(state State) {
	c.mu.Lock()
	changed := c.state != state
	c.state = state
	onState := c.onState
	c.mu.Unlock()

	if changed {
		log.Info(log.CatStream, "connection state", "state", state)
		if onState != nil {
			onState(state)
		}
	}
}

// run is the connect/consume/reconnect loop.
func (c *Client) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.baseDelay
	bo.RandomizationFactor = 0
	bo.Multiplier = 2
	bo.MaxInterval = 5 * time.Minute

	for {
		err := c.consume(ctx, bo)
		if ctx.Err() != nil {
			return
		}

		c.mu.Lock()
		c.attempts++
		attempts := c.attempts
		budget := c.maxAttempts
		c.mu.Unlock()

		log.ErrorErr(log.CatStream, "stream connection lost", err, "attempt", attempts)

		if attempts >= budget {
			// Terminal: surfaced via the state callback, never retried
			// silently. External intervention (restart) is required.
			c.setState(StateFailed)
			return
		}

		c.setState(StateReconnecting)

		select {
		case <-ctx.Done():
			return
		case <-time.After(bo.NextBackOff()):
		}
	}
}

// consume opens one connection and reads frames until the transport fails.
func (c *Client) consume(ctx context.Context, bo *backoff.ExponentialBackOff) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &statusError{code: resp.StatusCode}
	}

	// Connected: the failure budget and backoff reset.
	c.mu.Lock()
	c.attempts = 0
	c.mu.Unlock()
	bo.Reset()
	c.setState(StateConnected)

	// SSE framing: collect "data:" lines, dispatch on blank line.
	br := bufio.NewReader(resp.Body)
	var dataBuf strings.Builder

	for {
		line, err := br.ReadString('\n')
		if line != "" {
			trim := strings.TrimRight(line, "\r\n")
			switch {
			case trim == "":
				c.dispatch(dataBuf.String())
				dataBuf.Reset()
			case strings.HasPrefix(trim, "data:"):
				data := strings.TrimSpace(strings.TrimPrefix(trim, "data:"))
				if dataBuf.Len() > 0 {
					dataBuf.WriteString("\n")
				}
				dataBuf.WriteString(data)
			}
			// Comment and field lines (":", "event:", "id:") are ignored;
			// opencode carries the type inside the JSON payload.
		}

		if err != nil {
			c.dispatch(dataBuf.String())
			return err
		}
	}
}

// dispatch parses one frame payload and invokes subscribers for its type.
// Malformed JSON is logged and dropped without touching the connection.
func (c *Client) dispatch(payload string) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return
	}

	var frame opencode.EventFrame
	if err := json.Unmarshal([]byte(payload), &frame); err != nil {
		log.Warn(log.CatStream, "dropping malformed frame", "error", err)
		return
	}

	c.mu.Lock()
	subs := make([]subscription, len(c.subs[frame.Type]))
	copy(subs, c.subs[frame.Type])
	c.mu.Unlock()

	if len(subs) == 0 {
		log.Debug(log.CatStream, "unhandled event", "type", frame.Type)
		return
	}

	for _, sub := range subs {
		invoke(sub.fn, frame.Properties, frame.Type)
	}
}

// invoke isolates one callback: a panic is logged and must not prevent the
// remaining subscribers from running or crash the stream.
func invoke(fn Handler, props json.RawMessage, eventType string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error(log.CatStream, "subscriber panic", "type", eventType, "panic", r)
		}
	}()
	fn(props)
}

// statusError reports a non-2xx response on the stream endpoint.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("event stream returned status %d", e.code)
}
