// Package config loads soloclaw's configuration: a JSON file unmarshalled
// over defaults, so present keys override and missing keys keep their
// default values.
package config

import (
	"github.com/soloclaw/soloclaw/internal/agent"
)

// Config holds all application configuration.
type Config struct {
	LLM         LLMConfig              `json:"llm"`
	Approval    ApprovalConfig         `json:"approval"`
	Permissions PermissionsConfig      `json:"permissions"`
	Skills      SkillsConfig           `json:"skills"`
	Compaction  agent.CompactionConfig `json:"compaction"`
}

// LLMConfig selects the model provider and generation limits.
type LLMConfig struct {
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
}

// ApprovalConfig sets the default tool security and the approval prompt
// timeout.
type ApprovalConfig struct {
	Security       string `json:"security"`
	Ask            string `json:"ask"`
	AskFallback    string `json:"ask_fallback"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// PermissionsConfig holds runtime permission toggles.
type PermissionsConfig struct {
	// BypassApprovals executes tool calls without consulting the engine.
	BypassApprovals bool `json:"bypass_approvals"`
}

// SkillsConfig controls SKILL.md discovery for the system prompt.
type SkillsConfig struct {
	Enabled          bool `json:"enabled"`
	IncludeConfigDir bool `json:"include_config_dir"`
	IncludeWorkspace bool `json:"include_workspace"`
	IncludeAgentsDir bool `json:"include_agents_dir"`
	MaxFiles         int  `json:"max_files"`
	MaxFileBytes     int  `json:"max_file_bytes"`
	MaxTotalChars    int  `json:"max_total_chars"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:  "gemini",
			Model:     "gemini-2.5-pro",
			MaxTokens: 4096,
		},
		Approval: ApprovalConfig{
			Security:       "allowlist",
			Ask:            "on-miss",
			AskFallback:    "deny",
			TimeoutSeconds: 120,
		},
		Skills: SkillsConfig{
			Enabled:          true,
			IncludeConfigDir: true,
			IncludeWorkspace: true,
			IncludeAgentsDir: true,
			MaxFiles:         24,
			MaxFileBytes:     128 * 1024,
			MaxTotalChars:    32_000,
		},
		Compaction: agent.DefaultCompactionConfig(),
	}
}
