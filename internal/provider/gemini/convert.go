package gemini

import (
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"github.com/soloclaw/soloclaw/internal/provider"
)

// toGeminiContents converts conversation messages to Gemini Content values.
// Tool-result blocks need the originating function name, which Gemini keys
// responses by, so tool-use ids are mapped back to names in a first pass.
func toGeminiContents(messages []provider.Message) []*genai.Content {
	names := toolNamesByID(messages)

	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		if content := messageToGeminiContent(msg, names); content != nil {
			contents = append(contents, content)
		}
	}
	return contents
}

// toolNamesByID maps tool-use ids to tool names across the conversation.
func toolNamesByID(messages []provider.Message) map[string]string {
	names := make(map[string]string)
	for _, msg := range messages {
		for _, block := range msg.Content {
			if block.Type == provider.BlockToolUse {
				names[block.ID] = block.Name
			}
		}
	}
	return names
}

// messageToGeminiContent converts a single message. Returns nil for
// messages that produce no parts.
func messageToGeminiContent(msg provider.Message, names map[string]string) *genai.Content {
	role := "user"
	if msg.Role == provider.RoleAssistant {
		role = "model"
	}

	parts := make([]*genai.Part, 0, len(msg.Content))
	for _, block := range msg.Content {
		switch block.Type {
		case provider.BlockText:
			if block.Text != "" {
				parts = append(parts, genai.NewPartFromText(block.Text))
			}

		case provider.BlockToolUse:
			var args map[string]any
			if err := json.Unmarshal(block.Input, &args); err != nil {
				args = map[string]any{}
			}
			parts = append(parts, &genai.Part{
				FunctionCall: &genai.FunctionCall{
					ID:   block.ID,
					Name: block.Name,
					Args: args,
				},
			})

		case provider.BlockToolResult:
			content := block.Content
			if block.IsError {
				content = fmt.Sprintf("Error: %s", block.Content)
			}
			parts = append(parts, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					ID:   block.ToolUseID,
					Name: names[block.ToolUseID],
					Response: map[string]any{
						"content": content,
					},
				},
			})
		}
	}

	if len(parts) == 0 {
		return nil
	}
	return &genai.Content{Role: role, Parts: parts}
}

// toGeminiConfig builds the generation config: system instruction, output
// cap, and tool declarations.
func toGeminiConfig(req *provider.Request) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}

	if req.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(req.System)},
		}
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if len(req.Tools) > 0 {
		config.Tools = toGeminiTools(req.Tools)
	}

	return config
}

// toGeminiTools converts tool definitions. Input schemas are already JSON
// Schema, which the SDK accepts verbatim.
func toGeminiTools(tools []provider.ToolDefinition) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		var schema map[string]any
		if err := json.Unmarshal(tool.InputSchema, &schema); err != nil {
			schema = map[string]any{"type": "object"}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:                 tool.Name,
			Description:          tool.Description,
			ParametersJsonSchema: schema,
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}
