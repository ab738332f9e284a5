package approval

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testApprovals builds a file with bash on allowlist+on-miss and read_file
// on full+off.
func testApprovals() *ApprovalsFile {
	file := NewApprovalsFile()
	file.Tools["bash"] = &ToolApprovalConfig{
		ToolSecurity: ToolSecurity{Security: SecurityAllowlist, Ask: AskOnMiss, AskFallback: FallbackDeny},
	}
	file.Tools["read_file"] = &ToolApprovalConfig{
		ToolSecurity: ToolSecurity{Security: SecurityFull, Ask: AskOff, AskFallback: FallbackDeny},
	}
	return file
}

func testEngine(t *testing.T) *Engine {
	t.Helper()
	path := filepath.Join(t.TempDir(), "approvals.json")
	return NewEngineWithApprovals(testApprovals(), path)
}

func rawParams(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestCheck_BashSafeCommandAutoApproves(t *testing.T) {
	engine := testEngine(t)
	result := engine.Check("bash", rawParams(t, map[string]string{
		"command": "cat file.txt | grep error | wc -l",
	}))
	assert.Equal(t, OutcomeAllow, result.Outcome)
}

func TestCheck_BashUnsafeCommandAsks(t *testing.T) {
	engine := testEngine(t)
	result := engine.Check("bash", rawParams(t, map[string]string{
		"command": "rm -rf /tmp/data",
	}))
	assert.Equal(t, OutcomeAsk, result.Outcome)
	assert.Contains(t, result.Description, "bash(")
	assert.Contains(t, result.Description, "rm -rf /tmp/data")
	// Pattern is the resolved path of rm, or the bare name off PATH.
	assert.True(t, result.Pattern == "rm" || strings.HasSuffix(result.Pattern, "/rm"))
}

func TestCheck_BashAllowlistedExecutableAllows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "approvals.json")
	approvals := testApprovals()
	engine := NewEngineWithApprovals(approvals, path)

	first := engine.Check("bash", rawParams(t, map[string]string{"command": "cargo build"}))
	require.Equal(t, OutcomeAsk, first.Outcome)
	require.NotEmpty(t, first.Pattern)

	require.NoError(t, engine.Resolve("bash", first.Pattern, AllowAlways))

	second := engine.Check("bash", rawParams(t, map[string]string{"command": "cargo build"}))
	assert.Equal(t, OutcomeAllow, second.Outcome)
}

func TestCheck_ReadFileAutoApproves(t *testing.T) {
	engine := testEngine(t)
	result := engine.Check("read_file", rawParams(t, map[string]string{"path": "/etc/hosts"}))
	assert.Equal(t, OutcomeAllow, result.Outcome)
}

func TestCheck_UnknownToolUsesDefaults(t *testing.T) {
	engine := testEngine(t)
	result := engine.Check("some_unknown_tool", rawParams(t, map[string]any{}))
	assert.Equal(t, OutcomeAsk, result.Outcome)
	assert.Equal(t, "some_unknown_tool", result.Pattern)
}

func TestCheck_WildcardDenyBlocksEverything(t *testing.T) {
	path := filepath.Join(t.TempDir(), "approvals.json")
	approvals := NewApprovalsFile()
	approvals.Tools[WildcardTool] = &ToolApprovalConfig{
		ToolSecurity: ToolSecurity{Security: SecurityDeny, Ask: AskOff, AskFallback: FallbackDeny},
	}
	engine := NewEngineWithApprovals(approvals, path)

	result := engine.Check("read_file", rawParams(t, map[string]string{"path": "/etc/passwd"}))
	assert.Equal(t, OutcomeDenied, result.Outcome)
	assert.Contains(t, result.Reason, "deny")
}

func TestCheck_DescriptionTruncatesLongParams(t *testing.T) {
	engine := testEngine(t)
	long := strings.Repeat("x", 200)
	result := engine.Check("write_file", rawParams(t, map[string]string{"content": long}))
	require.Equal(t, OutcomeAsk, result.Outcome)
	assert.True(t, strings.HasSuffix(result.Description, "...)"), "got %q", result.Description)
	assert.LessOrEqual(t, len(result.Description), len("write_file(")+60+len("...)"))
}

func TestResolve_AllowAlwaysPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "approvals.json")
	approvals := testApprovals()
	require.NoError(t, approvals.Save(path))
	engine := NewEngineWithApprovals(approvals, path)

	require.NoError(t, engine.Resolve("bash", "/usr/bin/rm", AllowAlways))

	reloaded, err := LoadApprovals(path)
	require.NoError(t, err)
	assert.True(t, reloaded.IsAllowed("bash", "/usr/bin/rm"))
}

func TestResolve_AllowOnceDoesNotPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "approvals.json")
	approvals := testApprovals()
	require.NoError(t, approvals.Save(path))
	engine := NewEngineWithApprovals(approvals, path)

	require.NoError(t, engine.Resolve("bash", "/usr/bin/rm", AllowOnce))
	require.NoError(t, engine.Resolve("bash", "/usr/bin/rm", Deny))

	reloaded, err := LoadApprovals(path)
	require.NoError(t, err)
	assert.False(t, reloaded.IsAllowed("bash", "/usr/bin/rm"))
}

func TestResolve_EmptyPatternIsNoOp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "approvals.json")
	approvals := testApprovals()
	require.NoError(t, approvals.Save(path))
	engine := NewEngineWithApprovals(approvals, path)

	require.NoError(t, engine.Resolve("bash", "", AllowAlways))

	reloaded, err := LoadApprovals(path)
	require.NoError(t, err)
	assert.Empty(t, reloaded.Tools["bash"].Allowlist)
}

func TestResolve_PersistenceErrorKeepsInMemoryDecision(t *testing.T) {
	// Point the engine at an unwritable path: a directory.
	dir := t.TempDir()
	engine := NewEngineWithApprovals(testApprovals(), dir)

	err := engine.Resolve("bash", "/usr/bin/rm", AllowAlways)
	require.Error(t, err)

	// The in-memory allowlist still honors the decision this session.
	result := engine.Check("bash", rawParams(t, map[string]string{"command": "/usr/bin/rm -rf x"}))
	assert.Equal(t, OutcomeAllow, result.Outcome)
}

func TestDescribeToolCall(t *testing.T) {
	desc := describeToolCall("bash", json.RawMessage(`{"command":"ls -la"}`))
	assert.Equal(t, fmt.Sprintf("bash(%q)", "ls -la"), desc)

	desc = describeToolCall("read_file", json.RawMessage(`{"path":"a"}`))
	assert.Equal(t, `read_file({"path":"a"})`, desc)
}
