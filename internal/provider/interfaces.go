package provider

import "context"

// Stream yields events from one in-flight model response. Next blocks until
// an event is available and returns (nil, nil) when the stream is exhausted.
// A non-nil error ends the stream; Close releases resources early.
type Stream interface {
	Next(ctx context.Context) (StreamEvent, error)
	Close() error
}

// Client turns a request into a stream of typed events. Implementations
// adapt a concrete model API to this protocol.
type Client interface {
	CreateMessageStream(ctx context.Context, req *Request) (Stream, error)
}
