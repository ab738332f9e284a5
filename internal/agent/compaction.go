package agent

import (
	"context"
	"strings"

	"github.com/soloclaw/soloclaw/internal/provider"
)

// SummaryPrefix marks a compaction summary message so later compactions
// don't fold summaries into themselves.
const SummaryPrefix = "Another language model started to solve this problem and produced a summary of its thinking process:"

// DefaultUserMessageBudgetTokens bounds the user messages retained verbatim
// after compaction.
const DefaultUserMessageBudgetTokens = 20_000

const compactionThresholdRatio = 0.9

const summarizationPrompt = "You are performing a CONTEXT CHECKPOINT COMPACTION. Create a handoff summary for another LLM that will resume the task.\n\nInclude:\n- Current progress and key decisions made\n- Important context, constraints, or user preferences\n- What remains to be done (clear next steps)\n- Any critical data, examples, or references needed to continue\n\nBe concise, structured, and focused on helping the next LLM seamlessly continue the work."

// CompactionConfig controls automatic conversation summarization.
type CompactionConfig struct {
	Enabled bool `json:"enabled"`
	// ThresholdTokenLimit caps the auto limit (90% of context window) when
	// positive.
	ThresholdTokenLimit int `json:"threshold_token_limit"`
	// UserMessageBudgetTokens bounds retained user messages.
	UserMessageBudgetTokens int `json:"user_message_budget_tokens"`
}

// DefaultCompactionConfig enables compaction with the standard budget.
func DefaultCompactionConfig() CompactionConfig {
	return CompactionConfig{
		Enabled:                 true,
		UserMessageBudgetTokens: DefaultUserMessageBudgetTokens,
	}
}

// approxTokenCount estimates tokens as bytes/4.
func approxTokenCount(text string) int {
	return len(text) / 4
}

// approxMessagesTokens sums the estimate over every content block.
func approxMessagesTokens(messages []provider.Message) int {
	total := 0
	for _, msg := range messages {
		for _, block := range msg.Content {
			switch block.Type {
			case provider.BlockText:
				total += approxTokenCount(block.Text)
			case provider.BlockToolUse:
				total += approxTokenCount(string(block.Input))
			case provider.BlockToolResult:
				total += approxTokenCount(block.Content)
			}
		}
	}
	return total
}

// contextWindowForModel returns the known context window for a model id.
func contextWindowForModel(model string) int {
	switch {
	case strings.Contains(model, "claude"):
		return 200_000
	case strings.Contains(model, "gpt-4o"), strings.Contains(model, "gpt-5"):
		return 128_000
	case strings.Contains(model, "gemini"):
		return 1_000_000
	default:
		return 128_000
	}
}

// autoCompactLimit is 90% of the context window, capped by an override.
func autoCompactLimit(contextWindow int, overrideLimit int) int {
	limit := int(float64(contextWindow) * compactionThresholdRatio)
	if overrideLimit > 0 && overrideLimit < limit {
		return overrideLimit
	}
	return limit
}

// needsCompaction reports whether history exceeds the compaction threshold.
func needsCompaction(messages []provider.Message, model string, config CompactionConfig) bool {
	if !config.Enabled {
		return false
	}
	limit := autoCompactLimit(contextWindowForModel(model), config.ThresholdTokenLimit)
	return approxMessagesTokens(messages) > limit
}

// collectUserMessages extracts the text of user messages, skipping prior
// compaction summaries and tool-result groups.
func collectUserMessages(messages []provider.Message) []string {
	var texts []string
	for _, msg := range messages {
		if msg.Role != provider.RoleUser {
			continue
		}
		var parts []string
		for _, block := range msg.Content {
			if block.Type == provider.BlockText {
				parts = append(parts, block.Text)
			}
		}
		if len(parts) == 0 {
			continue
		}
		combined := strings.Join(parts, "\n")
		if strings.HasPrefix(combined, SummaryPrefix) {
			continue
		}
		texts = append(texts, combined)
	}
	return texts
}

// buildCompactedHistory rebuilds history as recent user messages (selected
// backward within the token budget) followed by the summary message.
func buildCompactedHistory(userMessages []string, summaryText string, maxUserTokens int) []provider.Message {
	var selected []provider.Message
	remaining := maxUserTokens

	for i := len(userMessages) - 1; i >= 0; i-- {
		text := userMessages[i]
		tokens := approxTokenCount(text)
		if tokens <= remaining {
			selected = append(selected, provider.UserMessage(text))
			remaining -= tokens
			continue
		}
		if remaining > 0 {
			// Truncate the oldest selected message to fit what's left.
			keep := remaining * 4
			if keep < len(text) {
				text = text[len(text)-keep:]
			}
			selected = append(selected, provider.UserMessage("[truncated] "+text))
		}
		break
	}

	// Selected backward; restore chronological order.
	history := make([]provider.Message, 0, len(selected)+1)
	for i := len(selected) - 1; i >= 0; i-- {
		history = append(history, selected[i])
	}
	history = append(history, provider.UserMessage(SummaryPrefix+"\n\n"+summaryText))
	return history
}

// runCompaction asks the model for a handoff summary of the conversation.
func (l *Loop) runCompaction(ctx context.Context) (string, error) {
	messages := append(append([]provider.Message{}, l.messages...), provider.UserMessage(summarizationPrompt))

	req := &provider.Request{
		Model:     l.params.Model,
		MaxTokens: l.params.MaxTokens,
		Messages:  messages,
	}

	stream, err := l.params.Client.CreateMessageStream(ctx, req)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var summary strings.Builder
	for {
		event, err := stream.Next(ctx)
		if err != nil {
			return "", err
		}
		if event == nil {
			break
		}
		switch e := event.(type) {
		case provider.ContentBlockStart:
			summary.WriteString(e.Block.Text)
		case provider.ContentBlockDelta:
			summary.WriteString(e.Text)
		}
	}
	return summary.String(), nil
}

// maybeCompact rewrites history when it has outgrown the threshold. Runs
// before Done so the UI stays in streaming mode throughout.
func (l *Loop) maybeCompact(ctx context.Context, agentCh chan<- Event) {
	if !needsCompaction(l.messages, l.params.Model, l.params.Compaction) {
		return
	}

	l.send(ctx, agentCh, CompactionStarted{})
	oldCount := len(l.messages)

	summary, err := l.runCompaction(ctx)
	if err != nil {
		l.send(ctx, agentCh, Error{Message: "Compaction failed: " + err.Error()})
		return
	}

	budget := l.params.Compaction.UserMessageBudgetTokens
	if budget <= 0 {
		budget = DefaultUserMessageBudgetTokens
	}
	l.messages = buildCompactedHistory(collectUserMessages(l.messages), summary, budget)
	l.send(ctx, agentCh, CompactionDone{OldCount: oldCount, NewCount: len(l.messages)})
}
