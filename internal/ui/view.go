package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View renders the whole frame: chat viewport, any modal, the input line,
// and the status bar.
func (m Model) View() string {
	if !m.ready {
		return "Starting soloclaw..."
	}

	var sections []string
	sections = append(sections, m.viewport.View())

	switch {
	case m.pendingApproval != nil:
		sections = append(sections, m.renderApprovalModal())
	case m.pendingQuestion != nil:
		sections = append(sections, m.renderQuestionModal())
	default:
		sections = append(sections, m.input.View())
	}

	sections = append(sections, m.renderStatusBar())
	return strings.Join(sections, "\n")
}

// renderChat formats the chat entries for the viewport.
func (m Model) renderChat() string {
	if len(m.entries) == 0 {
		return systemStyle.Render("No messages yet. Type a message to start.")
	}

	width := max(m.width-4, 20)
	var lines []string
	for _, entry := range m.entries {
		switch entry.Kind {
		case EntryUser:
			lines = append(lines, userStyle.Render("You: ")+entry.Content)

		case EntryAssistant:
			lines = append(lines, m.renderAssistant(entry, width))

		case EntryToolCall:
			label := toolNameStyle.Render(entry.ToolName)
			if entry.ParamsSummary != "" {
				label += " " + hintStyle.Render(entry.ParamsSummary)
			}
			lines = append(lines, fmt.Sprintf("%s %s %s", toolStatusIcon(entry.Status), label, toolStatusText(entry.Status)))

		case EntryToolResult:
			content := entry.Content
			if len(content) > 500 {
				content = content[:500] + "..."
			}
			style := toolResultStyle
			if entry.IsError {
				style = style.Foreground(colorError)
			}
			lines = append(lines, style.Render(content))

		case EntrySystem:
			lines = append(lines, systemStyle.Render(entry.Content))
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// renderAssistant renders completed assistant text as markdown; streaming
// text stays plain so partial markup doesn't flicker.
func (m Model) renderAssistant(entry ChatEntry, width int) string {
	if entry.Streaming || m.renderer == nil {
		return assistantStyle.Render(entry.Content)
	}
	rendered, err := m.renderer.Render(entry.Content)
	if err != nil {
		return assistantStyle.Render(entry.Content)
	}
	return strings.TrimRight(rendered, "\n")
}

func toolStatusIcon(status ToolCallStatus) string {
	switch status {
	case StatusAllowed:
		return statusAllowedStyle.Render("●")
	case StatusDenied, StatusTimedOut:
		return statusDeniedStyle.Render("●")
	default:
		return statusPendingStyle.Render("○")
	}
}

func toolStatusText(status ToolCallStatus) string {
	switch status {
	case StatusAllowed:
		return statusAllowedStyle.Render("allowed")
	case StatusDenied:
		return statusDeniedStyle.Render("denied")
	case StatusTimedOut:
		return statusDeniedStyle.Render("timed out")
	default:
		return statusPendingStyle.Render("pending")
	}
}

// renderApprovalModal shows the pending tool call and the three options.
func (m Model) renderApprovalModal() string {
	p := m.pendingApproval

	var sb strings.Builder
	sb.WriteString(modalTitleStyle.Render("Tool approval required"))
	sb.WriteString("\n\n")
	sb.WriteString(p.Description)
	if p.Pattern != "" {
		sb.WriteString("\n")
		sb.WriteString(hintStyle.Render("allow-always pattern: " + p.Pattern))
	}
	sb.WriteString("\n\n")

	options := []string{"1 Allow once", "2 Allow always", "3 Deny"}
	rendered := make([]string, len(options))
	for i, opt := range options {
		if i == p.Selected {
			rendered[i] = optionSelectedStyle.Render(opt)
		} else {
			rendered[i] = optionStyle.Render(opt)
		}
	}
	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
	sb.WriteString("\n\n")
	sb.WriteString(hintStyle.Render("←/→ select · Enter confirm · 1/2/3 choose directly"))

	return modalStyle.Render(sb.String())
}

// renderQuestionModal shows an ask_user prompt.
func (m Model) renderQuestionModal() string {
	q := m.pendingQuestion

	var sb strings.Builder
	sb.WriteString(modalTitleStyle.Render("The assistant asks:"))
	sb.WriteString("\n\n")
	sb.WriteString(q.Question)
	sb.WriteString("\n\n")

	if len(q.Options) == 0 {
		sb.WriteString(m.input.View())
		sb.WriteString("\n")
		sb.WriteString(hintStyle.Render("Enter to answer"))
	} else {
		rendered := make([]string, len(q.Options))
		for i, opt := range q.Options {
			label := fmt.Sprintf("%d %s", i+1, opt)
			if i == q.Selected {
				rendered[i] = optionSelectedStyle.Render(label)
			} else {
				rendered[i] = optionStyle.Render(label)
			}
		}
		sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
		sb.WriteString("\n\n")
		sb.WriteString(hintStyle.Render("←/→ select · Enter confirm · digits choose directly"))
	}

	return modalStyle.Render(sb.String())
}

// renderStatusBar shows streaming state, queued follow-up, and token usage.
func (m Model) renderStatusBar() string {
	var parts []string
	if m.streaming {
		parts = append(parts, m.spin.View()+" thinking")
	} else {
		parts = append(parts, "ready")
	}
	if m.queued != "" {
		parts = append(parts, "message queued")
	}
	parts = append(parts, fmt.Sprintf("model %s", m.model))
	parts = append(parts, fmt.Sprintf("tokens in:%d out:%d", m.inputTokens, m.outputTokens))

	return statusBarStyle.Render(strings.Join(parts, " · "))
}
