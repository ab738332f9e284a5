package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/soloclaw/soloclaw/internal/agent"
)

// Update handles terminal and agent events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		// The viewport handles wheel scrolling itself.
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-6, 3)
		m.input.Width = max(msg.Width-4, 10)
		m.ready = true
		m.refreshViewport(true)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case agentEventMsg:
		m = m.handleAgentEvent(msg.event)
		return m, listenForAgentEvents(m.agentCh)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleAgentEvent applies one agent event to the chat state.
func (m Model) handleAgentEvent(event agent.Event) Model {
	switch e := event.(type) {
	case agent.TextDelta:
		m.appendAssistantText(e.Text)

	case agent.TextDone:
		if entry := m.lastStreamingAssistant(); entry != nil {
			entry.Streaming = false
		}

	case agent.ToolCallStarted:
		m.pushEntry(ChatEntry{
			Kind:          EntryToolCall,
			ToolName:      e.ToolName,
			ParamsSummary: e.ParamsSummary,
			Status:        StatusPending,
		})

	case agent.ToolCallApproved:
		m.updateToolStatus(e.ToolName, StatusAllowed)

	case agent.ToolCallDenied:
		status := StatusDenied
		if strings.Contains(e.Reason, "timed out") {
			status = StatusTimedOut
		}
		m.updateToolStatus(e.ToolName, status)
		m.pendingApproval = nil

	case agent.ToolCallNeedsApproval:
		m.pendingApproval = &PendingApproval{
			Description: e.Description,
			Pattern:     e.Pattern,
			ToolName:    e.ToolName,
			Selected:    optionAllowOnce,
			Responder:   e.Responder,
		}

	case agent.AskUser:
		m.pendingQuestion = &PendingQuestion{
			Question:   e.Question,
			ToolCallID: e.ToolCallID,
			Options:    e.Options,
			Responder:  e.Responder,
		}

	case agent.ToolResult:
		m.pushEntry(ChatEntry{
			Kind:    EntryToolResult,
			Content: e.Content,
			IsError: e.IsError,
		})

	case agent.Usage:
		m.inputTokens += e.InputTokens
		m.outputTokens += e.OutputTokens

	case agent.Error:
		m.streaming = false
		m.pushEntry(ChatEntry{Kind: EntrySystem, Content: e.Message})

	case agent.CompactionStarted:
		m.pushEntry(ChatEntry{Kind: EntrySystem, Content: "Compacting conversation history..."})

	case agent.CompactionDone:
		m.pushEntry(ChatEntry{
			Kind:    EntrySystem,
			Content: fmt.Sprintf("Compacted history: %d messages -> %d", e.OldCount, e.NewCount),
		})

	case agent.Done:
		m.streaming = false
		if m.queued != "" {
			text := m.queued
			m.queued = ""
			m.sendMessage(text)
		}
	}

	m.refreshViewport(true)
	return m
}

// handleKey routes key presses by modal state.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Ctrl+C quits from any state.
	if msg.Type == tea.KeyCtrlC {
		return m.quit()
	}

	if m.pendingApproval != nil {
		return m.handleApprovalKey(msg)
	}
	if m.pendingQuestion != nil {
		return m.handleQuestionKey(msg)
	}

	switch msg.Type {
	case tea.KeyEsc:
		if !m.streaming {
			return m.quit()
		}
		return m, nil

	case tea.KeyPgUp, tea.KeyPgDown:
		// Scrolling never mutates chat content.
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.KeyEnter:
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		if m.streaming {
			// Queue the follow-up, overwriting any prior one; it is sent
			// when the current turn's Done arrives.
			m.queued = text
			m.input.SetValue("")
			return m, nil
		}
		m.sendMessage(text)
		m.input.SetValue("")
		m.refreshViewport(true)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleApprovalKey processes the approval modal: navigation, digit
// shortcuts, and Enter. Everything else is swallowed.
func (m Model) handleApprovalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.pendingApproval

	switch msg.Type {
	case tea.KeyLeft:
		if p.Selected > 0 {
			p.Selected--
		}
	case tea.KeyRight:
		if p.Selected < optionDeny {
			p.Selected++
		}
	case tea.KeyEnter:
		m.resolveApproval(p.Selected)
	case tea.KeyRunes:
		switch msg.String() {
		case "1":
			m.resolveApproval(optionAllowOnce)
		case "2":
			m.resolveApproval(optionAllowAlways)
		case "3":
			m.resolveApproval(optionDeny)
		}
	}
	return m, nil
}

// resolveApproval sends the decision and closes the modal.
func (m *Model) resolveApproval(selected int) {
	if m.pendingApproval == nil {
		return
	}
	m.pendingApproval.decide(selected)
	m.pendingApproval = nil
}

// handleQuestionKey processes an ask_user prompt: option navigation for
// multiple choice, the input line for free text.
func (m Model) handleQuestionKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	q := m.pendingQuestion

	if len(q.Options) == 0 {
		// Free text: type into the input line, Enter answers.
		if msg.Type == tea.KeyEnter {
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			q.answer(text)
			m.pendingQuestion = nil
			m.input.SetValue("")
			m.pushEntry(ChatEntry{Kind: EntryUser, Content: text})
			m.refreshViewport(true)
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch msg.Type {
	case tea.KeyLeft:
		if q.Selected > 0 {
			q.Selected--
		}
	case tea.KeyRight:
		if q.Selected < len(q.Options)-1 {
			q.Selected++
		}
	case tea.KeyEnter:
		m.resolveQuestion(q.Options[q.Selected])
	case tea.KeyRunes:
		s := msg.String()
		if len(s) == 1 && s[0] >= '1' && s[0] <= '9' {
			idx := int(s[0] - '1')
			if idx < len(q.Options) {
				m.resolveQuestion(q.Options[idx])
			}
		}
	}
	return m, nil
}

func (m *Model) resolveQuestion(answer string) {
	if m.pendingQuestion == nil {
		return
	}
	m.pendingQuestion.answer(answer)
	m.pendingQuestion = nil
	m.pushEntry(ChatEntry{Kind: EntryUser, Content: answer})
	m.refreshViewport(true)
}

// sendMessage appends the user entry and hands the text to the agent loop.
func (m *Model) sendMessage(text string) {
	m.pushEntry(ChatEntry{Kind: EntryUser, Content: text})
	m.streaming = true
	m.userCh <- agent.UserMessage{Text: text}
}

// appendAssistantText streams text into the current assistant entry,
// starting a new one when the last entry isn't a streaming assistant.
func (m *Model) appendAssistantText(text string) {
	if entry := m.lastStreamingAssistant(); entry != nil {
		entry.Content += text
		return
	}
	m.pushEntry(ChatEntry{Kind: EntryAssistant, Content: text, Streaming: true})
}

// lastStreamingAssistant returns the trailing assistant entry while it is
// still streaming; once any other entry lands, deltas open a fresh entry.
func (m *Model) lastStreamingAssistant() *ChatEntry {
	if len(m.entries) == 0 {
		return nil
	}
	last := &m.entries[len(m.entries)-1]
	if last.Kind == EntryAssistant && last.Streaming {
		return last
	}
	return nil
}

func (m *Model) pushEntry(entry ChatEntry) {
	m.entries = append(m.entries, entry)
}

// updateToolStatus flips the most recent pending tool call with the given
// name.
func (m *Model) updateToolStatus(toolName string, status ToolCallStatus) {
	for i := len(m.entries) - 1; i >= 0; i-- {
		entry := &m.entries[i]
		if entry.Kind == EntryToolCall && entry.ToolName == toolName && entry.Status == StatusPending {
			entry.Status = status
			return
		}
	}
}

// refreshViewport re-renders chat content; appending scrolls to bottom.
func (m *Model) refreshViewport(toBottom bool) {
	m.viewport.SetContent(m.renderChat())
	if toBottom {
		m.viewport.GotoBottom()
	}
}
