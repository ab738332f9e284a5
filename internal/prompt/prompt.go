// Package prompt assembles the system prompt from runtime capabilities:
// available tools, workspace context files, and discovered skills.
package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ContextFile is a workspace file injected into the system prompt.
type ContextFile struct {
	Path    string
	Content string
}

// contextFileNames are probed in the workspace root, in this order.
var contextFileNames = []string{".soloclaw.md", "SOUL.md", "AGENTS.md", "TOOLS.md"}

const maxContextFileBytes = 64 * 1024

// Params carries everything the builder needs.
type Params struct {
	ToolNames     []string
	ToolSummaries map[string]string
	WorkspaceDir  string
	OS            string
	Arch          string
	Shell         string
	Model         string
	ContextFiles  []ContextFile
	Skills        []SkillFile
}

// Build assembles the system prompt. The environment section is always
// written; the tools, context and skills sections appear only when their
// inputs are present.
func Build(params Params) string {
	var sb strings.Builder

	sb.WriteString("You are soloclaw, a terminal-resident coding assistant. ")
	sb.WriteString("You help the user by answering questions and calling tools. ")
	sb.WriteString("Prefer small, verifiable steps; ask before destructive actions.\n")

	if len(params.ToolNames) > 0 {
		sb.WriteString("\n## Tools\n\n")
		names := append([]string(nil), params.ToolNames...)
		sort.Strings(names)
		for _, name := range names {
			if summary := params.ToolSummaries[name]; summary != "" {
				fmt.Fprintf(&sb, "- %s: %s\n", name, summary)
			} else {
				fmt.Fprintf(&sb, "- %s\n", name)
			}
		}
	}

	sb.WriteString("\n## Environment\n\n")
	fmt.Fprintf(&sb, "- Working directory: %s\n", params.WorkspaceDir)
	fmt.Fprintf(&sb, "- OS: %s (%s)\n", params.OS, params.Arch)
	if params.Shell != "" {
		fmt.Fprintf(&sb, "- Shell: %s\n", params.Shell)
	}
	fmt.Fprintf(&sb, "- Model: %s\n", params.Model)

	for _, file := range params.ContextFiles {
		fmt.Fprintf(&sb, "\n## Context: %s\n\n%s\n", file.Path, strings.TrimRight(file.Content, "\n"))
	}

	if len(params.Skills) > 0 {
		sb.WriteString("\n## Skills\n")
		for _, skill := range params.Skills {
			title := skill.Name
			if title == "" {
				title = skill.Path
			}
			fmt.Fprintf(&sb, "\n### %s\n\n", title)
			if skill.Description != "" {
				fmt.Fprintf(&sb, "%s\n\n", skill.Description)
			}
			sb.WriteString(strings.TrimRight(skill.Content, "\n"))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// LoadContextFiles reads the known context files from the workspace root.
// Missing files are skipped; oversized files are truncated.
func LoadContextFiles(workspaceDir string) []ContextFile {
	var files []ContextFile
	for _, name := range contextFileNames {
		path := filepath.Join(workspaceDir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		content := string(data)
		if len(content) > maxContextFileBytes {
			content = content[:maxContextFileBytes]
		}
		files = append(files, ContextFile{Path: name, Content: content})
	}
	return files
}
