package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/soloclaw/soloclaw/internal/approval"
	"github.com/soloclaw/soloclaw/internal/provider"
	"github.com/soloclaw/soloclaw/internal/tool"
)

// DefaultApprovalTimeout bounds how long a tool call waits on the user.
const DefaultApprovalTimeout = 120 * time.Second

const paramsSummaryLimit = 80

// MessageLogger appends conversation messages to a durable log.
type MessageLogger interface {
	LogMessage(msg provider.Message) error
}

// Params bundles everything the agent loop needs.
type Params struct {
	Client          provider.Client
	Registry        *tool.Registry
	Engine          *approval.Engine
	Model           string
	MaxTokens       int
	ApprovalTimeout time.Duration
	SystemPrompt    string
	InitialMessages []provider.Message
	Compaction      CompactionConfig

	// BypassApprovals skips the engine and runs every tool call directly.
	BypassApprovals bool

	// Logger receives every message appended to history; nil disables
	// logging. Errors are reported but never abort the turn.
	Logger MessageLogger

	// OnTurnComplete is called with the full history after each completed
	// turn, for session persistence. May be nil.
	OnTurnComplete func(messages []provider.Message)

	// Log is the structured logger for non-fatal runtime errors.
	Log *slog.Logger
}

// Loop owns the conversation history and drives model turns. The UI never
// sees the history directly, only the events.
type Loop struct {
	params   Params
	messages []provider.Message
	log      *slog.Logger
}

// NewLoop builds a loop seeded with any restored messages.
func NewLoop(params Params) *Loop {
	if params.ApprovalTimeout <= 0 {
		params.ApprovalTimeout = DefaultApprovalTimeout
	}
	log := params.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Loop{
		params:   params,
		messages: params.InitialMessages,
		log:      log,
	}
}

// Run processes user events until the channel closes or a quit arrives.
// It is the only writer of the conversation history.
func (l *Loop) Run(ctx context.Context, userCh <-chan UserEvent, agentCh chan<- Event) {
	for {
		var event UserEvent
		var ok bool
		select {
		case <-ctx.Done():
			return
		case event, ok = <-userCh:
			if !ok {
				return
			}
		}

		switch e := event.(type) {
		case UserQuit:
			return
		case UserMessage:
			l.appendMessage(provider.UserMessage(e.Text))

			if err := l.conversationTurn(ctx, agentCh); err != nil {
				l.send(ctx, agentCh, Error{Message: err.Error()})
			}

			l.maybeCompact(ctx, agentCh)
			l.send(ctx, agentCh, Done{})

			if l.params.OnTurnComplete != nil {
				l.params.OnTurnComplete(l.messages)
			}
		}
	}
}

// appendMessage adds to history and mirrors the message to the session log.
func (l *Loop) appendMessage(msg provider.Message) {
	l.messages = append(l.messages, msg)
	if l.params.Logger != nil {
		if err := l.params.Logger.LogMessage(msg); err != nil {
			l.log.Warn("session log write failed", "error", err)
		}
	}
}

// send delivers an event, waiting on back-pressure. Events are never
// dropped; ordering is the UI's correctness contract.
func (l *Loop) send(ctx context.Context, agentCh chan<- Event, event Event) {
	select {
	case <-ctx.Done():
	case agentCh <- event:
	}
}

// conversationTurn runs model calls until a response carries no tool uses.
// Tool results for each assistant message are grouped into a single message
// appended before the next call.
func (l *Loop) conversationTurn(ctx context.Context, agentCh chan<- Event) error {
	for {
		req := &provider.Request{
			Model:     l.params.Model,
			System:    l.params.SystemPrompt,
			MaxTokens: l.params.MaxTokens,
			Messages:  l.messages,
			Tools:     l.params.Registry.Definitions(),
		}

		blocks, err := l.streamResponse(ctx, req, agentCh)
		if len(blocks) > 0 {
			l.appendMessage(provider.Message{Role: provider.RoleAssistant, Content: blocks})
		}
		if err != nil {
			// Stream failed: the turn ends without tool dispatch. History
			// keeps whatever blocks completed before the failure.
			return err
		}

		toolUses := provider.Message{Content: blocks}.ToolUses()
		if len(toolUses) == 0 {
			return nil
		}

		results := l.executeToolCalls(ctx, toolUses, agentCh)
		if len(results) > 0 {
			l.appendMessage(provider.ToolResultsMessage(results))
		}
	}
}

// streamingBlock tracks one in-progress content block by stream index.
type streamingBlock struct {
	block    provider.ContentBlock
	jsonBuf  []byte
	complete bool
}

// streamResponse consumes one streamed model response, emitting UI events
// and assembling content blocks. On a stream error only completed blocks
// are returned; the in-progress block is discarded.
func (l *Loop) streamResponse(ctx context.Context, req *provider.Request, agentCh chan<- Event) ([]provider.ContentBlock, error) {
	stream, err := l.params.Client.CreateMessageStream(ctx, req)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	var order []int
	open := map[int]*streamingBlock{}
	sawText := false

	completed := func(includeOpen bool) []provider.ContentBlock {
		var blocks []provider.ContentBlock
		for _, idx := range order {
			b := open[idx]
			if b.complete || includeOpen {
				blocks = append(blocks, b.block)
			}
		}
		return blocks
	}

	for {
		event, err := stream.Next(ctx)
		if err != nil {
			l.send(ctx, agentCh, Error{Message: "Stream error: " + err.Error()})
			return completed(false), err
		}
		if event == nil {
			break
		}

		switch e := event.(type) {
		case provider.ContentBlockStart:
			open[e.Index] = &streamingBlock{block: e.Block}
			order = append(order, e.Index)
			switch e.Block.Type {
			case provider.BlockToolUse:
				l.send(ctx, agentCh, ToolCallStarted{
					ToolName:      e.Block.Name,
					ParamsSummary: summarizeParams(e.Block.Input),
				})
			case provider.BlockText:
				sawText = true
				if e.Block.Text != "" {
					l.send(ctx, agentCh, TextDelta{Text: e.Block.Text})
				}
			}

		case provider.ContentBlockDelta:
			if b, ok := open[e.Index]; ok && b.block.Type == provider.BlockText {
				b.block.Text += e.Text
			}
			l.send(ctx, agentCh, TextDelta{Text: e.Text})

		case provider.InputJSONDelta:
			if b, ok := open[e.Index]; ok && b.block.Type == provider.BlockToolUse {
				b.jsonBuf = append(b.jsonBuf, e.PartialJSON...)
			}

		case provider.ContentBlockStop:
			if b, ok := open[e.Index]; ok {
				if b.block.Type == provider.BlockToolUse && len(b.jsonBuf) > 0 {
					// Install the accumulated JSON; on parse failure keep
					// whatever input the block started with.
					if json.Valid(b.jsonBuf) {
						b.block.Input = json.RawMessage(b.jsonBuf)
					}
				}
				b.complete = true
			}

		case provider.MessageDelta:
			if e.Usage.InputTokens > 0 || e.Usage.OutputTokens > 0 {
				l.send(ctx, agentCh, Usage{
					InputTokens:  e.Usage.InputTokens,
					OutputTokens: e.Usage.OutputTokens,
				})
			}

		case provider.MessageStop:
			// Handled by stream exhaustion.
		}
	}

	if sawText {
		l.send(ctx, agentCh, TextDone{})
	}
	return completed(true), nil
}

// executeToolCalls routes each tool-use block through the approval engine
// and collects tool-result blocks, one per id, in order.
func (l *Loop) executeToolCalls(ctx context.Context, toolUses []provider.ContentBlock, agentCh chan<- Event) []provider.ContentBlock {
	var results []provider.ContentBlock

	for _, use := range toolUses {
		if use.Name == tool.AskUserToolName {
			results = append(results, l.askUser(ctx, use, agentCh))
			continue
		}

		if l.params.BypassApprovals {
			results = append(results, l.runApproved(ctx, use, agentCh))
			continue
		}

		check := l.params.Engine.Check(use.Name, use.Input)
		switch check.Outcome {
		case approval.OutcomeAllow:
			results = append(results, l.runApproved(ctx, use, agentCh))

		case approval.OutcomeDenied:
			l.send(ctx, agentCh, ToolCallDenied{ToolName: use.Name, Reason: check.Reason})
			results = append(results, provider.ToolResultBlock(use.ID, "Denied: "+check.Reason, true))

		case approval.OutcomeAsk:
			results = append(results, l.awaitApproval(ctx, use, check, agentCh))
		}
	}

	return results
}

// runApproved emits approval, executes the tool, and reports the result.
func (l *Loop) runApproved(ctx context.Context, use provider.ContentBlock, agentCh chan<- Event) provider.ContentBlock {
	l.send(ctx, agentCh, ToolCallApproved{ToolName: use.Name})

	result := l.params.Registry.Execute(ctx, use.Name, use.Input)
	l.send(ctx, agentCh, ToolResult{
		ToolName: use.Name,
		Content:  result.Content,
		IsError:  result.IsError,
	})
	return provider.ToolResultBlock(use.ID, result.Content, result.IsError)
}

// awaitApproval suspends on the user's decision with a deadline. A closed
// responder or a timeout is a deny; the allowlist is only touched on an
// explicit allow-always.
func (l *Loop) awaitApproval(ctx context.Context, use provider.ContentBlock, check approval.CheckResult, agentCh chan<- Event) provider.ContentBlock {
	responder := make(chan approval.Decision, 1)
	l.send(ctx, agentCh, ToolCallNeedsApproval{
		Description: check.Description,
		Pattern:     check.Pattern,
		ToolName:    use.Name,
		Responder:   responder,
	})

	timer := time.NewTimer(l.params.ApprovalTimeout)
	defer timer.Stop()

	decision := approval.Deny
	reason := "Denied by user"
	select {
	case <-ctx.Done():
	case d, ok := <-responder:
		if ok {
			decision = d
		}
	case <-timer.C:
		reason = "Approval timed out"
	}

	switch decision {
	case approval.AllowOnce, approval.AllowAlways:
		if err := l.params.Engine.Resolve(use.Name, check.Pattern, decision); err != nil {
			// The decision holds in memory; surface the persistence
			// failure without aborting the turn.
			l.log.Warn("allowlist persistence failed", "tool", use.Name, "error", err)
			l.send(ctx, agentCh, Error{Message: "Failed to save allowlist: " + err.Error()})
		}
		return l.runApproved(ctx, use, agentCh)

	default:
		l.send(ctx, agentCh, ToolCallDenied{ToolName: use.Name, Reason: reason})
		return provider.ToolResultBlock(use.ID, reason, true)
	}
}

// askUser bypasses the approval engine entirely: the question goes straight
// to the UI and the loop waits without a deadline.
func (l *Loop) askUser(ctx context.Context, use provider.ContentBlock, agentCh chan<- Event) provider.ContentBlock {
	var params struct {
		Question string   `json:"question"`
		Options  []string `json:"options"`
	}
	_ = json.Unmarshal(use.Input, &params)
	if params.Question == "" {
		params.Question = "(no question provided)"
	}

	responder := make(chan string, 1)
	l.send(ctx, agentCh, AskUser{
		Question:   params.Question,
		ToolCallID: use.ID,
		Options:    params.Options,
		Responder:  responder,
	})

	answer := "[No response received]"
	select {
	case <-ctx.Done():
	case a, ok := <-responder:
		if ok {
			answer = a
		}
	}
	return provider.ToolResultBlock(use.ID, answer, false)
}

// summarizeParams renders tool params for display, truncated for the chat
// log. Empty input yields an empty summary.
func summarizeParams(input json.RawMessage) string {
	if len(input) == 0 {
		return ""
	}
	s := string(input)
	if len(s) > paramsSummaryLimit {
		return s[:paramsSummaryLimit] + "..."
	}
	return s
}
