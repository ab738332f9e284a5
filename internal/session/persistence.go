package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/soloclaw/soloclaw/internal/provider"
)

// State is the full conversation state persisted between sessions.
type State struct {
	ID           string             `json:"id"`
	WorkspaceDir string             `json:"workspace_dir"`
	Model        string             `json:"model"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
	Messages     []provider.Message `json:"messages"`
	TotalTokens  int                `json:"total_tokens"`
}

// NewState creates a fresh session state for a workspace and model.
func NewState(workspaceDir, model string) *State {
	now := time.Now().UTC()
	return &State{
		ID:           uuid.NewString(),
		WorkspaceDir: workspaceDir,
		Model:        model,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// StatePath is the session.json location for a workspace.
func StatePath(sessionsDir, workspaceDir string) string {
	return filepath.Join(sessionsDir, WorkspaceHash(workspaceDir), "session.json")
}

// Load reads a session state, returning nil (no error) when none exists.
func Load(sessionsDir, workspaceDir string) (*State, error) {
	return LoadFrom(StatePath(sessionsDir, workspaceDir))
}

// LoadFrom reads a session state from an explicit path.
func LoadFrom(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session: %w", err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	return &state, nil
}

// Save writes a session state atomically (temp + rename).
func Save(sessionsDir, workspaceDir string, state *State) error {
	return SaveTo(StatePath(sessionsDir, workspaceDir), state)
}

// SaveTo writes a session state to an explicit path.
func SaveTo(path string, state *State) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace session: %w", err)
	}
	return nil
}
