package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

const maxFindResults = 1000

// FindFileTool searches a directory tree for files whose basename matches a
// glob, honoring .gitignore patterns found at the search root.
type FindFileTool struct {
	// Root bounds the search; empty means the current directory.
	Root string
}

type findFileRequest struct {
	Pattern string `json:"pattern"`
	Path    string `json:"path"`
}

func (FindFileTool) Name() string { return "find_file" }

func (FindFileTool) Description() string {
	return "Find files by basename glob pattern, recursively. Paths ignored by .gitignore are skipped."
}

func (FindFileTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"pattern": {"type": "string", "description": "Glob matched against file basenames, e.g. *.go"},
			"path": {"type": "string", "description": "Directory to search (defaults to the workspace root)"}
		},
		"required": ["pattern"]
	}`)
}

func (t FindFileTool) Execute(ctx context.Context, input json.RawMessage) Result {
	var req findFileRequest
	if err := decodeArgs(input, &req); err != nil {
		return Errorf("find_file: %v", err)
	}
	if req.Pattern == "" {
		return Errorf("find_file: pattern is required")
	}

	root := req.Path
	if root == "" {
		root = t.Root
	}
	if root == "" {
		root = "."
	}

	matcher := loadIgnoreMatcher(root)

	var matches []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil || rel == "." {
			return nil
		}
		parts := strings.Split(rel, string(filepath.Separator))

		if d.IsDir() {
			if d.Name() == ".git" || (matcher != nil && matcher.Match(parts, true)) {
				return filepath.SkipDir
			}
			return nil
		}
		if matcher != nil && matcher.Match(parts, false) {
			return nil
		}

		if ok, _ := path.Match(req.Pattern, d.Name()); ok {
			matches = append(matches, rel)
			if len(matches) >= maxFindResults {
				return filepath.SkipAll
			}
		}
		return nil
	})
	if err != nil {
		return Errorf("find_file: %v", err)
	}

	if len(matches) == 0 {
		return Result{Content: fmt.Sprintf("No files matching %s", req.Pattern)}
	}
	return Result{Content: strings.Join(matches, "\n")}
}

// loadIgnoreMatcher parses the .gitignore at root, if any. A missing or
// unreadable file just means nothing is ignored.
func loadIgnoreMatcher(root string) gitignore.Matcher {
	data, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	var patterns []gitignore.Pattern
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	if len(patterns) == 0 {
		return nil
	}
	return gitignore.NewMatcher(patterns)
}
