package approval

import (
	"encoding/json"
	"fmt"
	"sync"
)

// CheckResult is the engine's verdict on a single tool call.
type CheckResult struct {
	Outcome Outcome
	// Reason explains a denial.
	Reason string
	// Description is a human-readable rendering of the call, set when the
	// outcome is OutcomeAsk.
	Description string
	// Pattern is what an allow-always decision would add to the allowlist.
	// Empty when there is nothing sensible to record.
	Pattern string
}

// Engine composes the command analyzer, the allowlist store, and the policy
// evaluator. It holds the approvals file in memory under a mutex and persists
// allow-always decisions back to disk. The engine never executes tools.
type Engine struct {
	mu        sync.Mutex
	approvals *ApprovalsFile
	path      string
}

// NewEngine loads the approvals file at path and wraps it in an engine.
func NewEngine(path string) (*Engine, error) {
	approvals, err := LoadApprovals(path)
	if err != nil {
		return nil, err
	}
	return &Engine{approvals: approvals, path: path}, nil
}

// NewEngineWithApprovals builds an engine around an existing in-memory file.
func NewEngineWithApprovals(approvals *ApprovalsFile, path string) *Engine {
	return &Engine{approvals: approvals, path: path}
}

// Check evaluates a tool call against the layered policy. Bash commands get
// command analysis (safe bins auto-satisfy the allowlist, otherwise the
// resolved executable is matched); every other tool is matched by name.
func (e *Engine) Check(toolName string, input json.RawMessage) CheckResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	sec := e.approvals.ToolSecurity(toolName)

	satisfied := false
	pattern := toolName
	if toolName == "bash" {
		satisfied, pattern = e.checkBash(input)
	} else {
		satisfied = e.approvals.IsAllowed(toolName, toolName)
	}

	switch Evaluate(sec.Security, sec.Ask, satisfied) {
	case OutcomeAllow:
		return CheckResult{Outcome: OutcomeAllow}
	case OutcomeDenied:
		return CheckResult{
			Outcome: OutcomeDenied,
			Reason:  fmt.Sprintf("Tool %s denied by security policy (%s)", toolName, sec.Security),
		}
	default:
		return CheckResult{
			Outcome:     OutcomeAsk,
			Description: describeToolCall(toolName, input),
			Pattern:     pattern,
		}
	}
}

// Resolve records a user decision. AllowAlways with a non-empty pattern adds
// it to the tool's allowlist and persists; the returned error reports a
// persistence failure (the in-memory addition still holds). Other decisions
// are no-ops.
func (e *Engine) Resolve(toolName, pattern string, decision Decision) error {
	if decision != AllowAlways || pattern == "" {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.approvals.Add(toolName, pattern)
	if err := e.approvals.Save(e.path); err != nil {
		return fmt.Errorf("persist allowlist: %w", err)
	}
	return nil
}

// checkBash analyzes the command string in the params. Safe pipelines count
// as allowlist-satisfied with no pattern; unsafe ones are matched against
// bash's allowlist under the derived pattern.
func (e *Engine) checkBash(input json.RawMessage) (satisfied bool, pattern string) {
	var params struct {
		Command string `json:"command"`
	}
	_ = json.Unmarshal(input, &params)

	analysis := AnalyzeCommand(params.Command)
	if analysis.Safe {
		return true, ""
	}

	pattern = AllowlistPattern(analysis)
	if pattern != "" {
		satisfied = e.approvals.IsAllowed("bash", pattern)
	}
	return satisfied, pattern
}

// describeToolCall renders a call for the approval prompt: bash("<command>")
// for bash, otherwise name(params) with params truncated at 60 characters.
func describeToolCall(toolName string, input json.RawMessage) string {
	if toolName == "bash" {
		var params struct {
			Command string `json:"command"`
		}
		_ = json.Unmarshal(input, &params)
		return fmt.Sprintf("bash(%q)", params.Command)
	}

	params := string(input)
	if params == "" {
		params = "{}"
	}
	if len(params) > 60 {
		params = params[:60] + "..."
	}
	return fmt.Sprintf("%s(%s)", toolName, params)
}
