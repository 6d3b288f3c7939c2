// Package ui is the Bubble Tea presentation layer: a transcript viewport,
// a text input, and a status bar. It renders store state and forwards user
// submits to the controller; all reconciliation logic lives in internal/chat.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/reflow/wordwrap"

	"occhat/internal/chat"
	"occhat/internal/config"
	"occhat/internal/log"
	"occhat/internal/opencode"
	"occhat/internal/pubsub"
	"occhat/internal/stream"
)

const (
	inputHeight = 3
	maxLogLines = 200
)

// sessionInitMsg reports the result of the initial session creation.
type sessionInitMsg struct{ err error }

// submitDoneMsg reports the result of a message send.
type submitDoneMsg struct{ err error }

// Model is the root Bubble Tea model.
type Model struct {
	ctx context.Context
	cfg config.Config

	api        *opencode.Client
	controller *chat.Controller
	session    *chat.SessionStore
	messages   *chat.MessageStore

	input    textarea.Model
	viewport viewport.Model
	spin     spinner.Model
	styles   Styles
	markdown *glamour.TermRenderer

	transcript  *pubsub.ContinuousListener[chat.Entry]
	streamState *pubsub.ContinuousListener[stream.State]
	logs        *log.Listener
	connState   stream.State

	logLines []string
	showLogs bool

	width, height int
	ready         bool
	contentDirty  bool
}

// New creates the root model. The transcript and stream-state listeners are
// subscribed immediately so no events are lost during startup.
func New(
	ctx context.Context,
	cfg config.Config,
	api *opencode.Client,
	controller *chat.Controller,
	session *chat.SessionStore,
	messages *chat.MessageStore,
	states *pubsub.Broker[stream.State],
) Model {
	input := textarea.New()
	input.Placeholder = "Type a message..."
	input.ShowLineNumbers = false
	input.SetHeight(1)
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.MiniDot

	return Model{
		ctx:         ctx,
		cfg:         cfg,
		api:         api,
		controller:  controller,
		session:     session,
		messages:    messages,
		input:       input,
		spin:        spin,
		styles:      NewStyles(cfg.Theme),
		transcript:  pubsub.NewContinuousListener(ctx, messages.Broker()),
		streamState: pubsub.NewContinuousListener(ctx, states),
		logs:        log.NewListener(ctx), // nil unless debug logging is on
	}
}

// Init starts session creation and arms the event listeners.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		textarea.Blink,
		m.spin.Tick,
		m.initSessionCmd(),
		m.transcript.Listen(),
		m.streamState.Listen(),
	}
	if m.logs != nil {
		cmds = append(cmds, m.logs.Listen())
	}
	return tea.Batch(cmds...)
}

func (m Model) initSessionCmd() tea.Cmd {
	return func() tea.Msg {
		return sessionInitMsg{err: m.session.Initialize(m.ctx, m.api)}
	}
}

func (m Model) submitCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return submitDoneMsg{err: m.controller.Submit(m.ctx, text)}
	}
}

// Update handles input, store events, and window management.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.contentDirty = true

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyCtrlL:
			if m.logs != nil {
				m.showLogs = !m.showLogs
			}
		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				break
			}
			if m.controller.Turn().Busy() || !m.session.Ready() {
				break
			}
			m.input.Reset()
			cmds = append(cmds, m.submitCmd(text))
		}

	case sessionInitMsg:
		if msg.err != nil {
			m.messages.AddErrorMessage(fmt.Sprintf("Failed to create session: %v", msg.err))
		}
		m.contentDirty = true

	case submitDoneMsg:
		// Rejected and failed submits already produced transcript entries;
		// nothing to do beyond logging unexpected controller errors.
		if msg.err != nil && !errors.Is(msg.err, chat.ErrBusy) {
			log.ErrorErr(log.CatUI, "submit failed", msg.err)
		}

	case pubsub.Event[chat.Entry]:
		m.contentDirty = true
		cmds = append(cmds, m.transcript.Listen())

	case pubsub.Event[stream.State]:
		m.connState = msg.Payload
		cmds = append(cmds, m.streamState.Listen())

	case log.Entry:
		m.logLines = append(m.logLines, strings.TrimRight(msg.Payload, "\n"))
		if len(m.logLines) > maxLogLines {
			m.logLines = m.logLines[len(m.logLines)-maxLogLines:]
		}
		cmds = append(cmds, m.logs.Listen())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		cmds = append(cmds, cmd)
	}

	if m.contentDirty && m.ready {
		atBottom := m.viewport.AtBottom()
		m.viewport.SetContent(m.renderTranscript())
		if atBottom {
			m.viewport.GotoBottom()
		}
		m.contentDirty = false
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	viewportHeight := height - inputHeight - 1 // status bar
	if viewportHeight < 1 {
		viewportHeight = 1
	}
	if !m.ready {
		m.viewport = viewport.New(width, viewportHeight)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = viewportHeight
	}
	m.input.SetWidth(width - 4)

	style := m.cfg.UI.MarkdownStyle
	if style == "" {
		style = "dark"
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(max(width-2, 20)),
	)
	if err != nil {
		log.ErrorErr(log.CatUI, "markdown renderer", err)
	} else {
		m.markdown = renderer
	}
}

// renderTranscript renders store entries by role.
func (m Model) renderTranscript() string {
	var b strings.Builder
	wrap := max(m.width-2, 20)

	for _, entry := range m.messages.Entries() {
		switch entry.Role {
		case chat.RoleUser:
			b.WriteString(m.styles.UserLabel.Render("You"))
			b.WriteString("\n")
			b.WriteString(m.styles.UserText.Render(wordwrap.String(entry.Content, wrap)))
			b.WriteString("\n\n")
		case chat.RoleAssistant:
			b.WriteString(m.renderMarkdown(entry.Content, wrap))
			b.WriteString("\n")
		case chat.RoleStatus:
			b.WriteString(m.styles.Status.Render("• " + wordwrap.String(entry.Content, wrap)))
			b.WriteString("\n")
		case chat.RoleError:
			b.WriteString(m.styles.Error.Render("✗ " + wordwrap.String(entry.Content, wrap)))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) renderMarkdown(text string, wrap int) string {
	if m.markdown == nil {
		return wordwrap.String(text, wrap)
	}
	out, err := m.markdown.Render(text)
	if err != nil {
		return wordwrap.String(text, wrap)
	}
	return out
}

// View renders the viewport, input box, and status bar.
func (m Model) View() string {
	if !m.ready {
		return "Connecting..."
	}

	var b strings.Builder
	if m.showLogs {
		b.WriteString(m.renderLogOverlay())
	} else {
		b.WriteString(m.viewport.View())
	}
	b.WriteString("\n")
	b.WriteString(m.styles.InputBox.Width(m.width - 2).Render(m.input.View()))
	if m.cfg.UI.ShowStatusBar {
		b.WriteString("\n")
		b.WriteString(m.statusBar())
	}
	return b.String()
}

// renderLogOverlay shows the tail of the debug log in place of the
// transcript. Toggled with ctrl+l when logging is enabled.
func (m Model) renderLogOverlay() string {
	height := m.viewport.Height
	lines := m.logLines
	if len(lines) > height {
		lines = lines[len(lines)-height:]
	}
	out := strings.Join(lines, "\n")
	for i := len(lines); i < height; i++ {
		out += "\n"
	}
	return out
}

func (m Model) statusBar() string {
	sel := m.controller.Selection()
	parts := []string{sel.ProviderID + "/" + sel.ModelID}
	if usage, ok := m.controller.Usage(); ok {
		parts = append(parts, fmt.Sprintf("%d/%d tok · $%.4f",
			usage.InputTokens, usage.OutputTokens, usage.Cost))
	}

	switch {
	case m.connState == stream.StateFailed:
		parts = append(parts, m.styles.Error.Render("disconnected — restart to reconnect"))
	case m.connState == stream.StateReconnecting:
		parts = append(parts, m.styles.Status.Render("reconnecting..."))
	case !m.session.Ready():
		if m.session.InitError() != "" {
			parts = append(parts, m.styles.Error.Render("session failed"))
		} else {
			parts = append(parts, m.spin.View()+" starting session")
		}
	case m.controller.Turn().Busy():
		parts = append(parts, m.spin.View()+" "+m.controller.Turn().String())
	default:
		parts = append(parts, "ready")
	}

	return m.styles.StatusBar.Render(strings.Join(parts, "  ·  "))
}
