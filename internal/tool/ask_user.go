package tool

import (
	"context"
	"encoding/json"
)

// AskUserToolName is used both for registration and for interception in the
// agent loop, which routes the question to the UI instead of executing here.
const AskUserToolName = "ask_user"

// AskUserTool lets the model ask the user a question. It is registered so
// the model sees the schema; execution is intercepted by the agent loop.
type AskUserTool struct{}

func (AskUserTool) Name() string { return AskUserToolName }

func (AskUserTool) Description() string {
	return "Ask the user a question and get their response. Provide options for multiple choice, or omit them for free text."
}

func (AskUserTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"question": {"type": "string", "description": "The question to ask the user"},
			"options": {
				"type": "array",
				"items": {"type": "string"},
				"description": "Optional multiple-choice answers"
			}
		},
		"required": ["question"]
	}`)
}

func (AskUserTool) Execute(ctx context.Context, input json.RawMessage) Result {
	return Result{Content: "[ask_user is answered through the terminal prompt]"}
}
