package approval

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"
)

// ConfigError wraps failures to read or parse the approvals file.
type ConfigError struct {
	Path  string
	Cause error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("approvals config %s: %v", e.Path, e.Cause)
}

func (e *ConfigError) Unwrap() error { return e.Cause }

// AllowlistEntry records one permitted pattern plus usage metadata.
type AllowlistEntry struct {
	// Pattern is a shell glob tested against a tool name or resolved
	// executable path.
	Pattern         string     `json:"pattern"`
	AddedAt         time.Time  `json:"added_at"`
	LastUsedAt      *time.Time `json:"last_used_at,omitempty"`
	LastUsedCommand string     `json:"last_used_command,omitempty"`
}

// ToolApprovalConfig pairs a tool's security settings with its allowlist.
type ToolApprovalConfig struct {
	ToolSecurity
	Allowlist []AllowlistEntry `json:"allowlist"`
}

// MarshalJSON flattens the embedded security fields next to the allowlist,
// matching the on-disk layout.
func (c ToolApprovalConfig) MarshalJSON() ([]byte, error) {
	type wire struct {
		Security    SecurityLevel    `json:"security"`
		Ask         AskMode          `json:"ask"`
		AskFallback AskFallback      `json:"ask_fallback"`
		Allowlist   []AllowlistEntry `json:"allowlist"`
	}
	return json.Marshal(wire{
		Security:    c.Security,
		Ask:         c.Ask,
		AskFallback: c.AskFallback,
		Allowlist:   c.Allowlist,
	})
}

// UnmarshalJSON reads the flattened layout, defaulting unset security fields.
func (c *ToolApprovalConfig) UnmarshalJSON(data []byte) error {
	var sec ToolSecurity
	if err := json.Unmarshal(data, &sec); err != nil {
		return err
	}
	var rest struct {
		Allowlist []AllowlistEntry `json:"allowlist"`
	}
	if err := json.Unmarshal(data, &rest); err != nil {
		return err
	}
	c.ToolSecurity = sec
	c.Allowlist = rest.Allowlist
	return nil
}

// WildcardTool is the reserved tool name whose security settings apply to
// any tool without its own entry. Its allowlist is never consulted.
const WildcardTool = "*"

// ApprovalsFile is the persistent approval state: schema version, default
// security, and per-tool configs keyed by tool name.
type ApprovalsFile struct {
	Version  int                            `json:"version"`
	Defaults ToolSecurity                   `json:"defaults"`
	Tools    map[string]*ToolApprovalConfig `json:"tools"`
}

// NewApprovalsFile returns an empty approvals file at schema version 1.
func NewApprovalsFile() *ApprovalsFile {
	return &ApprovalsFile{
		Version:  1,
		Defaults: DefaultToolSecurity(),
		Tools:    map[string]*ToolApprovalConfig{},
	}
}

// LoadApprovals reads an approvals file from disk. A missing file yields
// defaults; malformed JSON yields a ConfigError.
func LoadApprovals(filePath string) (*ApprovalsFile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return NewApprovalsFile(), nil
		}
		return nil, &ConfigError{Path: filePath, Cause: err}
	}

	file := NewApprovalsFile()
	if err := json.Unmarshal(data, file); err != nil {
		return nil, &ConfigError{Path: filePath, Cause: err}
	}
	if file.Version != 1 {
		return nil, &ConfigError{Path: filePath, Cause: fmt.Errorf("unsupported version %d", file.Version)}
	}
	if file.Tools == nil {
		file.Tools = map[string]*ToolApprovalConfig{}
	}
	return file, nil
}

// Save writes the approvals file as pretty JSON, creating parent directories
// and replacing the target atomically (temp + rename). Callers serialize
// concurrent writers.
func (f *ApprovalsFile) Save(filePath string) error {
	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create approvals dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode approvals: %w", err)
	}
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write approvals: %w", err)
	}
	if err := os.Rename(tmp, filePath); err != nil {
		return fmt.Errorf("replace approvals: %w", err)
	}
	return nil
}

// ToolSecurity returns the security settings for a tool: exact entry first,
// then the "*" wildcard, then the file defaults.
func (f *ApprovalsFile) ToolSecurity(toolName string) ToolSecurity {
	if cfg, ok := f.Tools[toolName]; ok {
		return cfg.ToolSecurity
	}
	if cfg, ok := f.Tools[WildcardTool]; ok {
		return cfg.ToolSecurity
	}
	return f.Defaults
}

// IsAllowed reports whether any allowlist entry for the tool matches the
// given value. Entries are shell globs; an entry that fails to compile is
// compared literally. The wildcard tool's allowlist is not consulted.
func (f *ApprovalsFile) IsAllowed(toolName, value string) bool {
	cfg, ok := f.Tools[toolName]
	if !ok {
		return false
	}
	for _, entry := range cfg.Allowlist {
		matched, err := path.Match(entry.Pattern, value)
		if err != nil {
			if entry.Pattern == value {
				return true
			}
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// Add appends a pattern to a tool's allowlist, creating the tool config
// (inheriting defaults) when absent. Duplicate patterns are ignored.
func (f *ApprovalsFile) Add(toolName, pattern string) {
	cfg, ok := f.Tools[toolName]
	if !ok {
		cfg = &ToolApprovalConfig{ToolSecurity: f.Defaults}
		f.Tools[toolName] = cfg
	}
	for _, entry := range cfg.Allowlist {
		if entry.Pattern == pattern {
			return
		}
	}
	cfg.Allowlist = append(cfg.Allowlist, AllowlistEntry{
		Pattern: pattern,
		AddedAt: time.Now().UTC(),
	})
}
