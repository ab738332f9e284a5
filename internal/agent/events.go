package agent

import "github.com/soloclaw/soloclaw/internal/approval"

// Channel capacities. The agent channel is generous so token deltas don't
// block the stream loop; when it does fill, senders wait rather than drop —
// the UI depends on seeing every event in order.
const (
	UserEventBuffer  = 16
	AgentEventBuffer = 256
)

// Event is an event sent from the agent loop to the UI. The UI handles
// events via type switch and ignores variants it doesn't know.
type Event interface {
	isEvent()
}

// TextDelta is streamed assistant text.
type TextDelta struct {
	Text string
}

// TextDone marks the current streamed text as complete.
type TextDone struct{}

// ToolCallStarted announces a tool-use block. ParamsSummary is whatever is
// known at emission time; for streamed tool JSON it is empty.
type ToolCallStarted struct {
	ToolName      string
	ParamsSummary string
}

// ToolCallApproved reports that a tool call cleared the approval engine
// (automatically or by user decision).
type ToolCallApproved struct {
	ToolName string
}

// ToolCallDenied reports a denial, with the reason shown to the user.
type ToolCallDenied struct {
	ToolName string
	Reason   string
}

// ToolCallNeedsApproval asks the UI to prompt the user. The responder is
// single-use: the UI sends exactly one decision, or closes the channel to
// decline answering (treated as deny).
type ToolCallNeedsApproval struct {
	Description string
	Pattern     string
	ToolName    string
	Responder   chan approval.Decision
}

// AskUser routes a model question to the user. Empty Options means free
// text. The responder carries the answer; closing it without sending yields
// a no-response marker.
type AskUser struct {
	Question   string
	ToolCallID string
	Options    []string
	Responder  chan string
}

// ToolResult reports a completed tool execution.
type ToolResult struct {
	ToolName string
	Content  string
	IsError  bool
}

// Usage carries token accounting from a model response.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Error reports a failure to show the user. A stream or compaction failure
// ends the turn; an allowlist persistence failure is reported while the
// turn carries on and runs the approved tool.
type Error struct {
	Message string
}

// Done marks the end of a turn; the UI may send a queued follow-up now.
type Done struct{}

// CompactionStarted announces that history summarization is running.
type CompactionStarted struct{}

// CompactionDone reports the history size before and after compaction.
type CompactionDone struct {
	OldCount int
	NewCount int
}

func (TextDelta) isEvent()             {}
func (TextDone) isEvent()              {}
func (ToolCallStarted) isEvent()       {}
func (ToolCallApproved) isEvent()      {}
func (ToolCallDenied) isEvent()        {}
func (ToolCallNeedsApproval) isEvent() {}
func (AskUser) isEvent()               {}
func (ToolResult) isEvent()            {}
func (Usage) isEvent()                 {}
func (Error) isEvent()                 {}
func (Done) isEvent()                  {}
func (CompactionStarted) isEvent()     {}
func (CompactionDone) isEvent()        {}

// UserEvent is an event sent from the UI to the agent loop.
type UserEvent interface {
	isUserEvent()
}

// UserMessage is a submitted chat message.
type UserMessage struct {
	Text string
}

// UserQuit asks the loop to exit after any in-flight work.
type UserQuit struct{}

func (UserMessage) isUserEvent() {}
func (UserQuit) isUserEvent()    {}
