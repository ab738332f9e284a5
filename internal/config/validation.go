package config

import (
	"fmt"
	"slices"
)

var (
	validProviders    = []string{"gemini"}
	validSecurity     = []string{"deny", "allowlist", "full"}
	validAsk          = []string{"off", "on-miss", "always"}
	validAskFallbacks = []string{"deny", "allowlist", "full"}
)

// Validate checks the merged configuration for values the runtime can't
// work with.
func (c *Config) Validate() error {
	if !slices.Contains(validProviders, c.LLM.Provider) {
		return fmt.Errorf("llm.provider %q is not supported (expected one of %v)", c.LLM.Provider, validProviders)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model must not be empty")
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be positive, got %d", c.LLM.MaxTokens)
	}

	if !slices.Contains(validSecurity, c.Approval.Security) {
		return fmt.Errorf("approval.security %q is invalid (expected one of %v)", c.Approval.Security, validSecurity)
	}
	if !slices.Contains(validAsk, c.Approval.Ask) {
		return fmt.Errorf("approval.ask %q is invalid (expected one of %v)", c.Approval.Ask, validAsk)
	}
	if !slices.Contains(validAskFallbacks, c.Approval.AskFallback) {
		return fmt.Errorf("approval.ask_fallback %q is invalid (expected one of %v)", c.Approval.AskFallback, validAskFallbacks)
	}
	if c.Approval.TimeoutSeconds <= 0 {
		return fmt.Errorf("approval.timeout_seconds must be positive, got %d", c.Approval.TimeoutSeconds)
	}

	if c.Skills.MaxFiles < 0 || c.Skills.MaxFileBytes < 0 || c.Skills.MaxTotalChars < 0 {
		return fmt.Errorf("skills limits must not be negative")
	}
	return nil
}
