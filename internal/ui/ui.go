// Package ui is the bubbletea front end: a chat viewport, an input line,
// and the approval/question modals. It talks to the agent loop only through
// the two event channels; the conversation history itself lives in the loop.
package ui

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/soloclaw/soloclaw/internal/agent"
)

// MarkdownRenderer renders assistant markdown for the terminal.
type MarkdownRenderer interface {
	Render(markdown string) (string, error)
}

// GlamourRenderer backs MarkdownRenderer with glamour.
type GlamourRenderer struct {
	renderer *glamour.TermRenderer
}

// NewGlamourRenderer creates a renderer wrapped to the given width.
func NewGlamourRenderer(width int) (*GlamourRenderer, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	return &GlamourRenderer{renderer: r}, nil
}

func (g *GlamourRenderer) Render(markdown string) (string, error) {
	return g.renderer.Render(markdown)
}

// Model is the bubbletea model for the whole terminal session.
type Model struct {
	entries  []ChatEntry
	input    textinput.Model
	viewport viewport.Model
	spin     spinner.Model

	streaming bool
	// queued holds a follow-up typed while streaming; sent on Done.
	queued string

	pendingApproval *PendingApproval
	pendingQuestion *PendingQuestion

	inputTokens  int
	outputTokens int

	width  int
	height int
	ready  bool

	model    string
	renderer MarkdownRenderer

	agentCh <-chan agent.Event
	userCh  chan<- agent.UserEvent
}

// New builds the UI model wired to the agent loop's channels.
func New(model string, renderer MarkdownRenderer, userCh chan<- agent.UserEvent, agentCh <-chan agent.Event) Model {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		entries:  []ChatEntry{},
		input:    ti,
		viewport: viewport.New(80, 20),
		spin:     sp,
		model:    model,
		renderer: renderer,
		agentCh:  agentCh,
		userCh:   userCh,
	}
}

// agentEventMsg wraps an agent event for the bubbletea update loop.
type agentEventMsg struct {
	event agent.Event
}

// listenForAgentEvents delivers the next agent event, then re-subscribes.
func listenForAgentEvents(ch <-chan agent.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return nil
		}
		return agentEventMsg{event: event}
	}
}

// Init starts the input blink, the spinner, and the agent event listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spin.Tick,
		listenForAgentEvents(m.agentCh),
	)
}

// quit tells the agent loop to exit and stops the event loop.
func (m Model) quit() (tea.Model, tea.Cmd) {
	select {
	case m.userCh <- agent.UserQuit{}:
	default:
	}
	return m, tea.Quit
}
