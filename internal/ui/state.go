package ui

import "github.com/soloclaw/soloclaw/internal/approval"

// EntryKind discriminates chat log entries.
type EntryKind int

const (
	EntryUser EntryKind = iota
	EntryAssistant
	EntryToolCall
	EntryToolResult
	EntrySystem
)

// ToolCallStatus tracks a tool call through approval.
type ToolCallStatus int

const (
	StatusPending ToolCallStatus = iota
	StatusAllowed
	StatusDenied
	StatusTimedOut
)

// ChatEntry is one rendered line group in the chat log.
type ChatEntry struct {
	Kind    EntryKind
	Content string

	// ToolName, ParamsSummary and Status, for EntryToolCall.
	ToolName      string
	ParamsSummary string
	Status        ToolCallStatus

	// IsError, for EntryToolResult.
	IsError bool

	// Streaming marks the assistant entry currently receiving deltas.
	Streaming bool
}

// Approval option indices, in display order.
const (
	optionAllowOnce = iota
	optionAllowAlways
	optionDeny
)

// PendingApproval is the modal state while a tool call waits on the user.
// While set, all input except approval navigation and quit is ignored.
type PendingApproval struct {
	Description string
	Pattern     string
	ToolName    string
	// Selected is the highlighted option (0=once, 1=always, 2=deny).
	Selected int
	// Responder is single-use; nil after the decision is sent.
	Responder chan approval.Decision
}

// decide sends the decision mapped from the selected index and consumes the
// responder.
func (p *PendingApproval) decide(selected int) {
	if p.Responder == nil {
		return
	}
	decision := approval.Deny
	switch selected {
	case optionAllowOnce:
		decision = approval.AllowOnce
	case optionAllowAlways:
		decision = approval.AllowAlways
	}
	p.Responder <- decision
	p.Responder = nil
}

// PendingQuestion is the modal state for an ask_user tool call. Empty
// Options means free text entered through the input line.
type PendingQuestion struct {
	Question   string
	ToolCallID string
	Options    []string
	Selected   int
	Responder  chan string
}

// answer sends the reply and consumes the responder.
func (q *PendingQuestion) answer(text string) {
	if q.Responder == nil {
		return
	}
	q.Responder <- text
	q.Responder = nil
}
