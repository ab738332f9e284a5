// Package gemini adapts the Google genai SDK to the provider stream
// protocol. Gemini streams whole parts rather than block-level deltas, so
// the adapter synthesizes block start/stop events around each part: text
// parts become an open text block fed by deltas, and function calls become
// complete tool-use blocks.
package gemini

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/soloclaw/soloclaw/internal/provider"
)

// Provider implements provider.Client on top of a GeminiClient.
type Provider struct {
	client GeminiClient
}

// New creates a Provider around the given client.
func New(client GeminiClient) *Provider {
	return &Provider{client: client}
}

// NewFromAPIKey builds a Provider backed by the real SDK using the Gemini
// Developer API.
func NewFromAPIKey(ctx context.Context, apiKey string) (*Provider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return New(NewRealGeminiClient(client)), nil
}

// CreateMessageStream starts a streamed generation and adapts SDK chunks to
// stream events. The SDK iterator is pumped on its own goroutine; events are
// delivered through a buffered channel the returned Stream reads from.
func (p *Provider) CreateMessageStream(ctx context.Context, req *provider.Request) (provider.Stream, error) {
	contents := toGeminiContents(req.Messages)
	config := toGeminiConfig(req)

	s := &stream{
		events: make(chan eventOrErr, 64),
		done:   make(chan struct{}),
	}

	go s.pump(ctx, p.client.GenerateContentStream(ctx, req.Model, contents, config))

	return s, nil
}

type eventOrErr struct {
	event provider.StreamEvent
	err   error
}

type stream struct {
	events chan eventOrErr
	done   chan struct{}
}

func (s *stream) Next(ctx context.Context) (provider.StreamEvent, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case item, ok := <-s.events:
		if !ok {
			return nil, nil
		}
		return item.event, item.err
	}
}

func (s *stream) Close() error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return nil
}

// pump walks the SDK iterator and emits protocol events. Block indices
// count up across the whole message; a text block stays open across chunks
// until a function call or the end of the stream closes it.
func (s *stream) pump(ctx context.Context, responses func(func(*genai.GenerateContentResponse, error) bool)) {
	defer close(s.events)

	index := -1
	textOpen := false
	sawToolCall := false
	var usage provider.Usage
	finish := provider.StopEndTurn

	send := func(item eventOrErr) bool {
		select {
		case <-ctx.Done():
			return false
		case <-s.done:
			return false
		case s.events <- item:
			return true
		}
	}
	emit := func(event provider.StreamEvent) bool {
		return send(eventOrErr{event: event})
	}

	closeText := func() bool {
		if !textOpen {
			return true
		}
		textOpen = false
		return emit(provider.ContentBlockStop{Index: index})
	}

	for resp, err := range responses {
		if err != nil {
			send(eventOrErr{err: err})
			return
		}

		if resp.UsageMetadata != nil {
			usage.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
			usage.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		}

		if len(resp.Candidates) == 0 {
			continue
		}
		candidate := resp.Candidates[0]
		if candidate.FinishReason == genai.FinishReasonMaxTokens {
			finish = provider.StopMaxTokens
		}
		if candidate.Content == nil {
			continue
		}

		for _, part := range candidate.Content.Parts {
			switch {
			case part.FunctionCall != nil:
				if !closeText() {
					return
				}
				sawToolCall = true
				index++

				call := part.FunctionCall
				id := call.ID
				if id == "" {
					id = "toolu_" + uuid.NewString()
				}
				input, err := json.Marshal(call.Args)
				if err != nil {
					input = []byte("{}")
				}
				if !emit(provider.ContentBlockStart{
					Index: index,
					Block: provider.ToolUseBlock(id, call.Name, input),
				}) {
					return
				}
				if !emit(provider.ContentBlockStop{Index: index}) {
					return
				}

			case part.Text != "":
				if !textOpen {
					index++
					textOpen = true
					if !emit(provider.ContentBlockStart{
						Index: index,
						Block: provider.TextBlock(""),
					}) {
						return
					}
				}
				if !emit(provider.ContentBlockDelta{Index: index, Text: part.Text}) {
					return
				}
			}
		}
	}

	if !closeText() {
		return
	}
	if sawToolCall && finish == provider.StopEndTurn {
		finish = provider.StopToolUse
	}
	if !emit(provider.MessageDelta{StopReason: finish, Usage: usage}) {
		return
	}
	emit(provider.MessageStop{})
}
