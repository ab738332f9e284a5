package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const maxReadBytes = 20 * 1024 * 1024

// ReadFileTool reads a file and returns numbered lines.
type ReadFileTool struct{}

type readFileRequest struct {
	Path   string `json:"path"`
	Offset int    `json:"offset"`
	Limit  int    `json:"limit"`
}

func (ReadFileTool) Name() string { return "read_file" }

func (ReadFileTool) Description() string {
	return "Read a file and return its contents with line numbers. Supports an optional 1-based line offset and line limit."
}

func (ReadFileTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {"type": "string", "description": "Path of the file to read"},
			"offset": {"type": "integer", "description": "1-based line to start from"},
			"limit": {"type": "integer", "description": "Maximum number of lines"}
		},
		"required": ["path"]
	}`)
}

func (ReadFileTool) Execute(ctx context.Context, input json.RawMessage) Result {
	var req readFileRequest
	if err := decodeArgs(input, &req); err != nil {
		return Errorf("read_file: %v", err)
	}

	info, err := os.Stat(req.Path)
	if err != nil {
		return Errorf("read_file: %v", err)
	}
	if info.IsDir() {
		return Errorf("read_file: %s is a directory", req.Path)
	}
	if info.Size() > maxReadBytes {
		return Errorf("read_file: %s is too large (%d bytes)", req.Path, info.Size())
	}

	data, err := os.ReadFile(req.Path)
	if err != nil {
		return Errorf("read_file: %v", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	start := 0
	if req.Offset > 1 {
		start = req.Offset - 1
	}
	if start >= len(lines) {
		return Result{Content: ""}
	}
	end := len(lines)
	if req.Limit > 0 && start+req.Limit < end {
		end = start + req.Limit
	}

	var sb strings.Builder
	for i := start; i < end; i++ {
		fmt.Fprintf(&sb, "%6d\t%s\n", i+1, lines[i])
	}
	return Result{Content: sb.String()}
}

// WriteFileTool writes content to a file, creating parent directories.
type WriteFileTool struct{}

type writeFileRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (WriteFileTool) Name() string { return "write_file" }

func (WriteFileTool) Description() string {
	return "Write content to a file, creating it (and parent directories) if needed."
}

func (WriteFileTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {"type": "string", "description": "Path of the file to write"},
			"content": {"type": "string", "description": "Full file content"}
		},
		"required": ["path", "content"]
	}`)
}

func (WriteFileTool) Execute(ctx context.Context, input json.RawMessage) Result {
	var req writeFileRequest
	if err := decodeArgs(input, &req); err != nil {
		return Errorf("write_file: %v", err)
	}
	if req.Path == "" {
		return Errorf("write_file: path is required")
	}
	if dir := filepath.Dir(req.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Errorf("write_file: %v", err)
		}
	}
	if err := os.WriteFile(req.Path, []byte(req.Content), 0o644); err != nil {
		return Errorf("write_file: %v", err)
	}
	return Result{Content: fmt.Sprintf("Wrote %d bytes to %s", len(req.Content), req.Path)}
}

// EditFileTool replaces a unique occurrence of a string in a file.
type EditFileTool struct{}

type editFileRequest struct {
	Path string `json:"path"`
	Old  string `json:"old"`
	New  string `json:"new"`
	All  bool   `json:"all"`
}

func (EditFileTool) Name() string { return "edit_file" }

func (EditFileTool) Description() string {
	return "Replace old with new in a file. old must match exactly once unless all is true."
}

func (EditFileTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {"type": "string", "description": "Path of the file to edit"},
			"old": {"type": "string", "description": "Exact text to replace"},
			"new": {"type": "string", "description": "Replacement text"},
			"all": {"type": "boolean", "description": "Replace every occurrence"}
		},
		"required": ["path", "old", "new"]
	}`)
}

func (EditFileTool) Execute(ctx context.Context, input json.RawMessage) Result {
	var req editFileRequest
	if err := decodeArgs(input, &req); err != nil {
		return Errorf("edit_file: %v", err)
	}
	if req.Old == "" {
		return Errorf("edit_file: old is required")
	}

	data, err := os.ReadFile(req.Path)
	if err != nil {
		return Errorf("edit_file: %v", err)
	}
	content := string(data)

	count := strings.Count(content, req.Old)
	switch {
	case count == 0:
		return Errorf("edit_file: old text not found in %s", req.Path)
	case count > 1 && !req.All:
		return Errorf("edit_file: old text matches %d times in %s; pass all=true to replace every occurrence", count, req.Path)
	}

	replaced := strings.Replace(content, req.Old, req.New, -1)
	if !req.All {
		replaced = strings.Replace(content, req.Old, req.New, 1)
	}
	if err := os.WriteFile(req.Path, []byte(replaced), 0o644); err != nil {
		return Errorf("edit_file: %v", err)
	}

	n := count
	if !req.All {
		n = 1
	}
	return Result{Content: fmt.Sprintf("Replaced %d occurrence(s) in %s", n, req.Path)}
}

// ListDirectoryTool lists entries of a directory.
type ListDirectoryTool struct{}

type listDirectoryRequest struct {
	Path string `json:"path"`
}

func (ListDirectoryTool) Name() string { return "list_directory" }

func (ListDirectoryTool) Description() string {
	return "List files and directories in a path (defaults to the current directory)."
}

func (ListDirectoryTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {"type": "string", "description": "Directory to list"}
		}
	}`)
}

func (ListDirectoryTool) Execute(ctx context.Context, input json.RawMessage) Result {
	var req listDirectoryRequest
	if err := decodeArgs(input, &req); err != nil {
		return Errorf("list_directory: %v", err)
	}
	if req.Path == "" {
		req.Path = "."
	}

	entries, err := os.ReadDir(req.Path)
	if err != nil {
		return Errorf("list_directory: %v", err)
	}

	var sb strings.Builder
	for _, entry := range entries {
		if entry.IsDir() {
			fmt.Fprintf(&sb, "%s/\n", entry.Name())
		} else {
			fmt.Fprintf(&sb, "%s\n", entry.Name())
		}
	}
	return Result{Content: sb.String()}
}
