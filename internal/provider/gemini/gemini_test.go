package gemini

import (
	"context"
	"encoding/json"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/soloclaw/soloclaw/internal/provider"
)

// fakeGeminiClient replays a scripted chunk sequence.
type fakeGeminiClient struct {
	chunks []*genai.GenerateContentResponse
	err    error
}

func (f *fakeGeminiClient) GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, chunk := range f.chunks {
			if !yield(chunk, nil) {
				return
			}
		}
		if f.err != nil {
			yield(nil, f.err)
		}
	}
}

func textChunk(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role:  "model",
				Parts: []*genai.Part{{Text: text}},
			},
		}},
	}
}

func functionCallChunk(id, name string, args map[string]any) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role: "model",
				Parts: []*genai.Part{{
					FunctionCall: &genai.FunctionCall{ID: id, Name: name, Args: args},
				}},
			},
		}},
	}
}

func drain(t *testing.T, s provider.Stream) []provider.StreamEvent {
	t.Helper()
	var events []provider.StreamEvent
	for {
		event, err := s.Next(context.Background())
		require.NoError(t, err)
		if event == nil {
			return events
		}
		events = append(events, event)
	}
}

func TestStream_TextOnly(t *testing.T) {
	client := &fakeGeminiClient{chunks: []*genai.GenerateContentResponse{
		textChunk("hello"),
		textChunk(" world"),
	}}
	p := New(client)

	s, err := p.CreateMessageStream(context.Background(), &provider.Request{Model: "gemini-2.5-pro"})
	require.NoError(t, err)
	events := drain(t, s)

	require.Len(t, events, 6)
	assert.IsType(t, provider.ContentBlockStart{}, events[0])
	assert.Equal(t, provider.ContentBlockDelta{Index: 0, Text: "hello"}, events[1])
	assert.Equal(t, provider.ContentBlockDelta{Index: 0, Text: " world"}, events[2])
	assert.Equal(t, provider.ContentBlockStop{Index: 0}, events[3])

	delta := events[4].(provider.MessageDelta)
	assert.Equal(t, provider.StopEndTurn, delta.StopReason)
	assert.IsType(t, provider.MessageStop{}, events[5])
}

func TestStream_TextThenToolCall(t *testing.T) {
	client := &fakeGeminiClient{chunks: []*genai.GenerateContentResponse{
		textChunk("let me check"),
		functionCallChunk("call-1", "read_file", map[string]any{"path": "a"}),
	}}
	p := New(client)

	s, err := p.CreateMessageStream(context.Background(), &provider.Request{Model: "gemini-2.5-pro"})
	require.NoError(t, err)
	events := drain(t, s)

	// text start, delta, stop; tool start, stop; MessageDelta, MessageStop
	require.Len(t, events, 7)
	assert.Equal(t, provider.ContentBlockStop{Index: 0}, events[2])

	start := events[3].(provider.ContentBlockStart)
	assert.Equal(t, 1, start.Index)
	assert.Equal(t, provider.BlockToolUse, start.Block.Type)
	assert.Equal(t, "call-1", start.Block.ID)
	assert.Equal(t, "read_file", start.Block.Name)
	assert.JSONEq(t, `{"path":"a"}`, string(start.Block.Input))

	assert.Equal(t, provider.ContentBlockStop{Index: 1}, events[4])

	delta := events[5].(provider.MessageDelta)
	assert.Equal(t, provider.StopToolUse, delta.StopReason)
}

func TestStream_SynthesizesToolUseID(t *testing.T) {
	client := &fakeGeminiClient{chunks: []*genai.GenerateContentResponse{
		functionCallChunk("", "bash", map[string]any{"command": "ls"}),
	}}
	p := New(client)

	s, err := p.CreateMessageStream(context.Background(), &provider.Request{Model: "gemini-2.5-pro"})
	require.NoError(t, err)
	events := drain(t, s)

	start := events[0].(provider.ContentBlockStart)
	assert.NotEmpty(t, start.Block.ID)
	assert.Contains(t, start.Block.ID, "toolu_")
}

func TestStream_UsageReported(t *testing.T) {
	chunk := textChunk("hi")
	chunk.UsageMetadata = &genai.GenerateContentResponseUsageMetadata{
		PromptTokenCount:     12,
		CandidatesTokenCount: 3,
	}
	client := &fakeGeminiClient{chunks: []*genai.GenerateContentResponse{chunk}}
	p := New(client)

	s, err := p.CreateMessageStream(context.Background(), &provider.Request{Model: "gemini-2.5-pro"})
	require.NoError(t, err)
	events := drain(t, s)

	var delta provider.MessageDelta
	for _, event := range events {
		if d, ok := event.(provider.MessageDelta); ok {
			delta = d
		}
	}
	assert.Equal(t, 12, delta.Usage.InputTokens)
	assert.Equal(t, 3, delta.Usage.OutputTokens)
}

func TestStream_ErrorSurfacesFromNext(t *testing.T) {
	client := &fakeGeminiClient{
		chunks: []*genai.GenerateContentResponse{textChunk("partial")},
		err:    assert.AnError,
	}
	p := New(client)

	s, err := p.CreateMessageStream(context.Background(), &provider.Request{Model: "gemini-2.5-pro"})
	require.NoError(t, err)

	var sawErr error
	for {
		event, err := s.Next(context.Background())
		if err != nil {
			sawErr = err
			break
		}
		if event == nil {
			break
		}
	}
	assert.ErrorIs(t, sawErr, assert.AnError)
}

func TestToGeminiContents_RolesAndToolResults(t *testing.T) {
	input := json.RawMessage(`{"path":"a"}`)
	messages := []provider.Message{
		provider.UserMessage("hi"),
		{
			Role: provider.RoleAssistant,
			Content: []provider.ContentBlock{
				provider.TextBlock("checking"),
				provider.ToolUseBlock("t1", "read_file", input),
			},
		},
		provider.ToolResultsMessage([]provider.ContentBlock{
			provider.ToolResultBlock("t1", "file contents", false),
		}),
	}

	contents := toGeminiContents(messages)
	require.Len(t, contents, 3)

	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)
	require.Len(t, contents[1].Parts, 2)
	assert.Equal(t, "read_file", contents[1].Parts[1].FunctionCall.Name)

	response := contents[2].Parts[0].FunctionResponse
	require.NotNil(t, response)
	// Gemini keys function responses by name, recovered from the tool-use id.
	assert.Equal(t, "read_file", response.Name)
	assert.Equal(t, "file contents", response.Response["content"])
}

func TestToGeminiContents_ErrorResultPrefixed(t *testing.T) {
	messages := []provider.Message{
		{
			Role: provider.RoleAssistant,
			Content: []provider.ContentBlock{
				provider.ToolUseBlock("t1", "bash", json.RawMessage(`{}`)),
			},
		},
		provider.ToolResultsMessage([]provider.ContentBlock{
			provider.ToolResultBlock("t1", "exit 1", true),
		}),
	}

	contents := toGeminiContents(messages)
	require.Len(t, contents, 2)
	response := contents[1].Parts[0].FunctionResponse
	assert.Equal(t, "Error: exit 1", response.Response["content"])
}

func TestToGeminiConfig(t *testing.T) {
	req := &provider.Request{
		System:    "be helpful",
		MaxTokens: 4096,
		Tools: []provider.ToolDefinition{{
			Name:        "bash",
			Description: "run a command",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"command":{"type":"string"}}}`),
		}},
	}

	config := toGeminiConfig(req)
	require.NotNil(t, config.SystemInstruction)
	assert.Equal(t, "be helpful", config.SystemInstruction.Parts[0].Text)
	assert.EqualValues(t, 4096, config.MaxOutputTokens)
	require.Len(t, config.Tools, 1)
	require.Len(t, config.Tools[0].FunctionDeclarations, 1)
	assert.Equal(t, "bash", config.Tools[0].FunctionDeclarations[0].Name)
}
