// Package session persists conversations: a per-workspace JSONL log of
// every message, and a session.json snapshot enabling auto-resume.
package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"time"

	"github.com/soloclaw/soloclaw/internal/provider"
)

// LogEntry is one JSONL line: a timestamp plus the conversation message.
type LogEntry struct {
	Timestamp time.Time        `json:"timestamp"`
	Message   provider.Message `json:"message"`
}

// WorkspaceHash computes a deterministic hex hash of a workspace path,
// used as the per-workspace session directory name.
func WorkspaceHash(workspaceDir string) string {
	h := fnv.New64a()
	h.Write([]byte(workspaceDir))
	return fmt.Sprintf("%016x", h.Sum64())
}

// Logger appends conversation messages as JSONL lines.
type Logger struct {
	file   *os.File
	writer *bufio.Writer
	// Dir is the session directory the log lives in.
	Dir string
}

// NewLogger opens a timestamped JSONL log under sessionsDir for the given
// workspace, creating directories as needed.
func NewLogger(sessionsDir, workspaceDir string) (*Logger, error) {
	dir := filepath.Join(sessionsDir, WorkspaceHash(workspaceDir))
	return NewLoggerInDir(dir)
}

// NewLoggerInDir opens a log directly in the given directory.
func NewLoggerInDir(dir string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	name := time.Now().UTC().Format("2006-01-02T15-04-05") + ".jsonl"
	file, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("create session log: %w", err)
	}
	return &Logger{
		file:   file,
		writer: bufio.NewWriter(file),
		Dir:    dir,
	}, nil
}

// LogMessage appends one message and flushes so a crash loses nothing.
func (l *Logger) LogMessage(msg provider.Message) error {
	entry := LogEntry{Timestamp: time.Now().UTC(), Message: msg}
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode log entry: %w", err)
	}
	if _, err := l.writer.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write log entry: %w", err)
	}
	return l.writer.Flush()
}

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	if err := l.writer.Flush(); err != nil {
		l.file.Close()
		return err
	}
	return l.file.Close()
}
