// Package tool implements the built-in tool registry: executors the model
// can call, each described by a JSON schema. The registry only runs tools;
// approval decisions happen upstream in the agent loop.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/mitchellh/mapstructure"

	"github.com/soloclaw/soloclaw/internal/provider"
)

// Result is the outcome of one tool execution.
type Result struct {
	Content string
	IsError bool
}

// Errorf builds an error result.
func Errorf(format string, args ...any) Result {
	return Result{Content: fmt.Sprintf(format, args...), IsError: true}
}

// Tool is a single executable tool.
type Tool interface {
	Name() string
	Description() string
	InputSchema() json.RawMessage
	Execute(ctx context.Context, input json.RawMessage) Result
}

// Registry holds tools by name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates a registry with the given tools registered.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds or replaces a tool.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Definitions returns tool schemas sorted by name for the model request.
func (r *Registry) Definitions() []provider.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]provider.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, provider.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.InputSchema(),
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Execute runs the named tool. A missing tool is reported as an error
// result, not an error: the text goes back to the model.
func (r *Registry) Execute(ctx context.Context, name string, input json.RawMessage) Result {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return Errorf("Tool not found: %s", name)
	}
	return t.Execute(ctx, input)
}

// decodeArgs unmarshals tool-call JSON and decodes it into a typed request
// struct, reporting values that cannot be converted to the field type.
// Unknown fields are ignored.
func decodeArgs(input json.RawMessage, out any) error {
	raw := map[string]any{}
	if len(input) > 0 {
		if err := json.Unmarshal(input, &raw); err != nil {
			return fmt.Errorf("invalid arguments: %w", err)
		}
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(raw); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}
