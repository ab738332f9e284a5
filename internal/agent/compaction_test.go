package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soloclaw/soloclaw/internal/provider"
)

func TestApproxTokenCount(t *testing.T) {
	assert.Equal(t, 0, approxTokenCount(""))
	assert.Equal(t, 1, approxTokenCount("abcd"))
	assert.Equal(t, 25, approxTokenCount(strings.Repeat("x", 100)))
}

func TestApproxMessagesTokens_CountsAllBlockKinds(t *testing.T) {
	messages := []provider.Message{
		provider.UserMessage(strings.Repeat("a", 40)),
		{
			Role: provider.RoleAssistant,
			Content: []provider.ContentBlock{
				provider.TextBlock(strings.Repeat("b", 40)),
				provider.ToolUseBlock("t1", "bash", []byte(strings.Repeat("c", 40))),
			},
		},
		provider.ToolResultsMessage([]provider.ContentBlock{
			provider.ToolResultBlock("t1", strings.Repeat("d", 40), false),
		}),
	}
	assert.Equal(t, 40, approxMessagesTokens(messages))
}

func TestContextWindowForModel(t *testing.T) {
	assert.Equal(t, 200_000, contextWindowForModel("claude-sonnet-4-5"))
	assert.Equal(t, 1_000_000, contextWindowForModel("gemini-2.5-pro"))
	assert.Equal(t, 128_000, contextWindowForModel("gpt-5.2"))
	assert.Equal(t, 128_000, contextWindowForModel("llama3.2"))
}

func TestAutoCompactLimit(t *testing.T) {
	assert.Equal(t, 90_000, autoCompactLimit(100_000, 0))
	assert.Equal(t, 50_000, autoCompactLimit(100_000, 50_000))
	// Override above the default limit doesn't raise it.
	assert.Equal(t, 90_000, autoCompactLimit(100_000, 200_000))
}

func TestNeedsCompaction(t *testing.T) {
	big := provider.UserMessage(strings.Repeat("x", 600_000)) // ~150k tokens

	assert.False(t, needsCompaction([]provider.Message{big}, "gemini-2.5-pro", DefaultCompactionConfig()))
	assert.True(t, needsCompaction([]provider.Message{big}, "llama3.2", DefaultCompactionConfig()))

	disabled := DefaultCompactionConfig()
	disabled.Enabled = false
	assert.False(t, needsCompaction([]provider.Message{big}, "llama3.2", disabled))
}

func TestCollectUserMessages_SkipsSummariesAndToolResults(t *testing.T) {
	messages := []provider.Message{
		provider.UserMessage("first"),
		{Role: provider.RoleAssistant, Content: []provider.ContentBlock{provider.TextBlock("reply")}},
		provider.ToolResultsMessage([]provider.ContentBlock{
			provider.ToolResultBlock("t1", "result", false),
		}),
		provider.UserMessage(SummaryPrefix + "\n\nold summary"),
		provider.UserMessage("second"),
	}

	texts := collectUserMessages(messages)
	assert.Equal(t, []string{"first", "second"}, texts)
}

func TestBuildCompactedHistory_BudgetAndOrder(t *testing.T) {
	userMessages := []string{
		strings.Repeat("a", 400), // 100 tokens
		strings.Repeat("b", 400),
		strings.Repeat("c", 400),
	}

	history := buildCompactedHistory(userMessages, "the summary", 250)

	// Budget of 250 tokens keeps the two most recent messages whole, a
	// truncated tail of the oldest, then the summary last.
	require.Len(t, history, 4)
	assert.True(t, strings.HasPrefix(history[0].Content[0].Text, "[truncated] "))
	assert.True(t, strings.HasPrefix(history[1].Content[0].Text, "b"))
	assert.True(t, strings.HasPrefix(history[2].Content[0].Text, "c"))
	assert.True(t, strings.HasPrefix(history[3].Content[0].Text, SummaryPrefix))
	assert.Contains(t, history[3].Content[0].Text, "the summary")
}

func TestBuildCompactedHistory_EmptyUserMessages(t *testing.T) {
	history := buildCompactedHistory(nil, "just the summary", 1000)
	require.Len(t, history, 1)
	assert.Contains(t, history[0].Content[0].Text, "just the summary")
}
