package ui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soloclaw/soloclaw/internal/agent"
	"github.com/soloclaw/soloclaw/internal/approval"
)

// identityRenderer skips glamour in tests.
type identityRenderer struct{}

func (identityRenderer) Render(markdown string) (string, error) { return markdown, nil }

func newTestModel(userCh chan agent.UserEvent) Model {
	m := New("test-model", identityRenderer{}, userCh, make(chan agent.Event))
	m.ready = true
	m.width = 80
	m.height = 24
	return m
}

func apply(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestEnter_SendsMessage(t *testing.T) {
	userCh := make(chan agent.UserEvent, 1)
	m := newTestModel(userCh)
	m.input.SetValue("hello")

	m = apply(m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.True(t, m.streaming)
	assert.Empty(t, m.input.Value())
	require.Len(t, m.entries, 1)
	assert.Equal(t, EntryUser, m.entries[0].Kind)
	assert.Equal(t, "hello", m.entries[0].Content)

	select {
	case event := <-userCh:
		assert.Equal(t, agent.UserMessage{Text: "hello"}, event)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("no user event sent")
	}
}

func TestEnter_EmptyInputIgnored(t *testing.T) {
	userCh := make(chan agent.UserEvent, 1)
	m := newTestModel(userCh)

	m = apply(m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.False(t, m.streaming)
	assert.Empty(t, m.entries)
	assert.Empty(t, userCh)
}

func TestEnter_WhileStreamingQueues(t *testing.T) {
	userCh := make(chan agent.UserEvent, 1)
	m := newTestModel(userCh)
	m.streaming = true
	m.input.SetValue("follow up")

	m = apply(m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, "follow up", m.queued)
	assert.Empty(t, m.input.Value())
	assert.Empty(t, userCh) // not sent yet

	// A second queued message overwrites the first.
	m.input.SetValue("newer")
	m = apply(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "newer", m.queued)
}

func TestDone_SendsQueuedFollowUp(t *testing.T) {
	userCh := make(chan agent.UserEvent, 1)
	m := newTestModel(userCh)
	m.streaming = true
	m.queued = "B"

	m = apply(m, agentEventMsg{event: agent.Done{}})

	assert.True(t, m.streaming) // re-set for the queued send
	assert.Empty(t, m.queued)
	require.Len(t, m.entries, 1)
	assert.Equal(t, "B", m.entries[0].Content)

	select {
	case event := <-userCh:
		assert.Equal(t, agent.UserMessage{Text: "B"}, event)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("queued message not sent")
	}
}

func TestDone_WithoutQueueStopsStreaming(t *testing.T) {
	m := newTestModel(make(chan agent.UserEvent, 1))
	m.streaming = true

	m = apply(m, agentEventMsg{event: agent.Done{}})
	assert.False(t, m.streaming)
}

func TestTextDelta_AppendsToStreamingAssistant(t *testing.T) {
	m := newTestModel(make(chan agent.UserEvent, 1))

	m = apply(m, agentEventMsg{event: agent.TextDelta{Text: "hel"}})
	m = apply(m, agentEventMsg{event: agent.TextDelta{Text: "lo"}})

	require.Len(t, m.entries, 1)
	assert.Equal(t, "hello", m.entries[0].Content)
	assert.True(t, m.entries[0].Streaming)
}

func TestTextDelta_NewEntryAfterNonAssistant(t *testing.T) {
	m := newTestModel(make(chan agent.UserEvent, 1))

	m = apply(m, agentEventMsg{event: agent.TextDelta{Text: "first"}})
	m = apply(m, agentEventMsg{event: agent.ToolCallStarted{ToolName: "bash"}})
	m = apply(m, agentEventMsg{event: agent.TextDelta{Text: "second"}})

	require.Len(t, m.entries, 3)
	assert.Equal(t, "first", m.entries[0].Content)
	assert.Equal(t, EntryToolCall, m.entries[1].Kind)
	assert.Equal(t, "second", m.entries[2].Content)
}

func TestToolCallStatusTransitions(t *testing.T) {
	m := newTestModel(make(chan agent.UserEvent, 1))

	m = apply(m, agentEventMsg{event: agent.ToolCallStarted{ToolName: "bash"}})
	require.Len(t, m.entries, 1)
	assert.Equal(t, StatusPending, m.entries[0].Status)

	m = apply(m, agentEventMsg{event: agent.ToolCallApproved{ToolName: "bash"}})
	assert.Equal(t, StatusAllowed, m.entries[0].Status)
}

func TestToolCallDenied_TimeoutStatus(t *testing.T) {
	m := newTestModel(make(chan agent.UserEvent, 1))

	m = apply(m, agentEventMsg{event: agent.ToolCallStarted{ToolName: "bash"}})
	m = apply(m, agentEventMsg{event: agent.ToolCallDenied{ToolName: "bash", Reason: "Approval timed out"}})

	assert.Equal(t, StatusTimedOut, m.entries[0].Status)
}

func TestNeedsApproval_SetsPendingAndBlocksInput(t *testing.T) {
	m := newTestModel(make(chan agent.UserEvent, 1))
	responder := make(chan approval.Decision, 1)

	m = apply(m, agentEventMsg{event: agent.ToolCallNeedsApproval{
		Description: `bash("rm -rf /tmp/x")`,
		Pattern:     "/bin/rm",
		ToolName:    "bash",
		Responder:   responder,
	}})
	require.NotNil(t, m.pendingApproval)
	assert.Equal(t, optionAllowOnce, m.pendingApproval.Selected)

	// Typing is swallowed while the modal is up.
	m = apply(m, keyRunes("x"))
	assert.Empty(t, m.input.Value())
	require.NotNil(t, m.pendingApproval)
}

func TestApproval_NavigateAndConfirm(t *testing.T) {
	m := newTestModel(make(chan agent.UserEvent, 1))
	responder := make(chan approval.Decision, 1)

	m = apply(m, agentEventMsg{event: agent.ToolCallNeedsApproval{
		Description: "bash(...)", ToolName: "bash", Responder: responder,
	}})

	m = apply(m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, optionAllowAlways, m.pendingApproval.Selected)

	m = apply(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, m.pendingApproval)

	select {
	case decision := <-responder:
		assert.Equal(t, approval.AllowAlways, decision)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("no decision sent")
	}
}

func TestApproval_DigitShortcut(t *testing.T) {
	m := newTestModel(make(chan agent.UserEvent, 1))
	responder := make(chan approval.Decision, 1)

	m = apply(m, agentEventMsg{event: agent.ToolCallNeedsApproval{
		Description: "bash(...)", ToolName: "bash", Responder: responder,
	}})
	m = apply(m, keyRunes("3"))

	assert.Nil(t, m.pendingApproval)
	assert.Equal(t, approval.Deny, <-responder)
}

func TestApproval_LeftClampsAtFirstOption(t *testing.T) {
	m := newTestModel(make(chan agent.UserEvent, 1))
	responder := make(chan approval.Decision, 1)

	m = apply(m, agentEventMsg{event: agent.ToolCallNeedsApproval{
		Description: "bash(...)", ToolName: "bash", Responder: responder,
	}})
	m = apply(m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, optionAllowOnce, m.pendingApproval.Selected)
}

func TestAskUser_MultipleChoice(t *testing.T) {
	m := newTestModel(make(chan agent.UserEvent, 1))
	responder := make(chan string, 1)

	m = apply(m, agentEventMsg{event: agent.AskUser{
		Question:  "Which color?",
		Options:   []string{"red", "blue"},
		Responder: responder,
	}})
	require.NotNil(t, m.pendingQuestion)

	m = apply(m, keyRunes("2"))
	assert.Nil(t, m.pendingQuestion)
	assert.Equal(t, "blue", <-responder)
}

func TestAskUser_FreeText(t *testing.T) {
	m := newTestModel(make(chan agent.UserEvent, 1))
	responder := make(chan string, 1)

	m = apply(m, agentEventMsg{event: agent.AskUser{
		Question:  "Name?",
		Responder: responder,
	}})
	m.input.SetValue("soloclaw")
	m = apply(m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, m.pendingQuestion)
	assert.Equal(t, "soloclaw", <-responder)
}

func TestError_AppendsSystemEntryAndStopsStreaming(t *testing.T) {
	m := newTestModel(make(chan agent.UserEvent, 1))
	m.streaming = true

	m = apply(m, agentEventMsg{event: agent.Error{Message: "Stream error: boom"}})

	assert.False(t, m.streaming)
	require.Len(t, m.entries, 1)
	assert.Equal(t, EntrySystem, m.entries[0].Kind)
	assert.Contains(t, m.entries[0].Content, "boom")
}

func TestUsage_Accumulates(t *testing.T) {
	m := newTestModel(make(chan agent.UserEvent, 1))

	m = apply(m, agentEventMsg{event: agent.Usage{InputTokens: 10, OutputTokens: 5}})
	m = apply(m, agentEventMsg{event: agent.Usage{InputTokens: 7, OutputTokens: 2}})

	assert.Equal(t, 17, m.inputTokens)
	assert.Equal(t, 7, m.outputTokens)
}

func TestEsc_QuitsOnlyWhenIdle(t *testing.T) {
	userCh := make(chan agent.UserEvent, 1)
	m := newTestModel(userCh)
	m.streaming = true

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, cmd)

	m.streaming = false
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestCtrlC_AlwaysQuits(t *testing.T) {
	userCh := make(chan agent.UserEvent, 1)
	m := newTestModel(userCh)
	m.streaming = true

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())

	select {
	case event := <-userCh:
		assert.IsType(t, agent.UserQuit{}, event)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("quit not sent to agent loop")
	}
}

func TestCompactionEvents_SystemEntries(t *testing.T) {
	m := newTestModel(make(chan agent.UserEvent, 1))

	m = apply(m, agentEventMsg{event: agent.CompactionStarted{}})
	m = apply(m, agentEventMsg{event: agent.CompactionDone{OldCount: 40, NewCount: 6}})

	require.Len(t, m.entries, 2)
	assert.Contains(t, m.entries[0].Content, "Compacting")
	assert.Contains(t, m.entries[1].Content, "40")
	assert.Contains(t, m.entries[1].Content, "6")
}

func TestView_RendersWithoutPanic(t *testing.T) {
	m := newTestModel(make(chan agent.UserEvent, 1))
	m = apply(m, agentEventMsg{event: agent.TextDelta{Text: "hello **world**"}})
	m = apply(m, agentEventMsg{event: agent.TextDone{}})
	m = apply(m, agentEventMsg{event: agent.ToolCallStarted{ToolName: "bash", ParamsSummary: `{"command":"ls"}`}})

	out := m.View()
	assert.Contains(t, out, "bash")
	assert.NotEmpty(t, out)
}
