// Command soloclaw is a terminal-resident conversational agent. It streams
// model output into a bubbletea UI and gates every tool call through a
// layered approval engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/soloclaw/soloclaw/internal/agent"
	"github.com/soloclaw/soloclaw/internal/approval"
	"github.com/soloclaw/soloclaw/internal/config"
	"github.com/soloclaw/soloclaw/internal/prompt"
	"github.com/soloclaw/soloclaw/internal/provider"
	"github.com/soloclaw/soloclaw/internal/provider/gemini"
	"github.com/soloclaw/soloclaw/internal/session"
	"github.com/soloclaw/soloclaw/internal/tool"
	"github.com/soloclaw/soloclaw/internal/ui"
)

func main() {
	fresh := flag.Bool("fresh", false, "start a new session instead of resuming")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		fmt.Fprintln(os.Stderr, "Using default configuration.")
		cfg = config.DefaultConfig()
	}

	log := setupLogging()
	loadSecretsEnv(config.SecretsEnvPath())

	if err := run(cfg, log, *fresh); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setupLogging writes slog output to a file under the data directory; the
// terminal belongs to the UI.
func setupLogging() *slog.Logger {
	if err := os.MkdirAll(config.DataDir(), 0o755); err == nil {
		if file, err := os.OpenFile(config.LogPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			log := slog.New(slog.NewTextHandler(file, nil))
			slog.SetDefault(log)
			return log
		}
	}
	return slog.New(slog.DiscardHandler)
}

// loadSecretsEnv reads KEY=VALUE lines and exports any keys not already set
// in the environment.
func loadSecretsEnv(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if os.Getenv(key) == "" {
			os.Setenv(key, strings.TrimSpace(value))
		}
	}
}

func run(cfg *config.Config, log *slog.Logger, fresh bool) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	workspaceDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	client, err := buildProvider(ctx, cfg)
	if err != nil {
		return err
	}

	registry := tool.NewRegistry(
		tool.BashTool{Dir: workspaceDir},
		tool.ReadFileTool{},
		tool.WriteFileTool{},
		tool.EditFileTool{},
		tool.ListDirectoryTool{},
		tool.FindFileTool{Root: workspaceDir},
		tool.AskUserTool{},
	)

	systemPrompt := buildSystemPrompt(cfg, registry, workspaceDir)

	// Restore the previous session for this workspace unless --fresh.
	var initialMessages []provider.Message
	if !fresh {
		if state, err := session.Load(config.SessionsDir(), workspaceDir); err != nil {
			log.Warn("session restore failed", "error", err)
		} else if state != nil {
			initialMessages = state.Messages
		}
	}

	logger, err := session.NewLogger(config.SessionsDir(), workspaceDir)
	if err != nil {
		log.Warn("session logging disabled", "error", err)
		logger = nil
	} else {
		defer logger.Close()
	}

	state := session.NewState(workspaceDir, cfg.LLM.Model)

	params := agent.Params{
		Client:          client,
		Registry:        registry,
		Engine:          engine,
		Model:           cfg.LLM.Model,
		MaxTokens:       cfg.LLM.MaxTokens,
		ApprovalTimeout: time.Duration(cfg.Approval.TimeoutSeconds) * time.Second,
		SystemPrompt:    systemPrompt,
		InitialMessages: initialMessages,
		Compaction:      cfg.Compaction,
		BypassApprovals: cfg.Permissions.BypassApprovals,
		Log:             log,
		OnTurnComplete: func(messages []provider.Message) {
			state.Messages = messages
			state.UpdatedAt = time.Now().UTC()
			if err := session.Save(config.SessionsDir(), workspaceDir, state); err != nil {
				log.Warn("session save failed", "error", err)
			}
		},
	}
	if logger != nil {
		params.Logger = logger
	}

	userCh := make(chan agent.UserEvent, agent.UserEventBuffer)
	agentCh := make(chan agent.Event, agent.AgentEventBuffer)

	loop := agent.NewLoop(params)
	go func() {
		loop.Run(ctx, userCh, agentCh)
		close(agentCh)
	}()

	renderer, err := ui.NewGlamourRenderer(100)
	if err != nil {
		return fmt.Errorf("markdown renderer: %w", err)
	}

	program := tea.NewProgram(
		ui.New(cfg.LLM.Model, renderer, userCh, agentCh),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run UI: %w", err)
	}

	cancel()
	return nil
}

// buildEngine loads the approvals file, overlaying the config's default
// security so a missing file still honors config.json.
func buildEngine(cfg *config.Config) (*approval.Engine, error) {
	path := config.ApprovalsPath()
	approvals, err := approval.LoadApprovals(path)
	if err != nil {
		return nil, err
	}
	approvals.Defaults = approval.ToolSecurity{
		Security:    approval.SecurityLevel(cfg.Approval.Security),
		Ask:         approval.AskMode(cfg.Approval.Ask),
		AskFallback: approval.AskFallback(cfg.Approval.AskFallback),
	}
	return approval.NewEngineWithApprovals(approvals, path), nil
}

func buildProvider(ctx context.Context, cfg *config.Config) (provider.Client, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}
	client, err := gemini.NewFromAPIKey(ctx, apiKey)
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	return client, nil
}

func buildSystemPrompt(cfg *config.Config, registry *tool.Registry, workspaceDir string) string {
	defs := registry.Definitions()
	names := make([]string, 0, len(defs))
	summaries := make(map[string]string, len(defs))
	for _, def := range defs {
		names = append(names, def.Name)
		summaries[def.Name] = def.Description
	}

	var skills []prompt.SkillFile
	if cfg.Skills.Enabled {
		var dirs []string
		if cfg.Skills.IncludeConfigDir {
			dirs = append(dirs, config.SkillsDir())
		}
		if cfg.Skills.IncludeWorkspace {
			dirs = append(dirs, "skills")
		}
		if cfg.Skills.IncludeAgentsDir {
			if home, err := os.UserHomeDir(); err == nil {
				dirs = append(dirs, home+"/.agents/skills")
			}
		}
		skills = prompt.LoadSkillFiles(dirs, prompt.SkillBudget{
			MaxFiles:      cfg.Skills.MaxFiles,
			MaxFileBytes:  cfg.Skills.MaxFileBytes,
			MaxTotalChars: cfg.Skills.MaxTotalChars,
		})
	}

	return prompt.Build(prompt.Params{
		ToolNames:     names,
		ToolSummaries: summaries,
		WorkspaceDir:  workspaceDir,
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
		Shell:         os.Getenv("SHELL"),
		Model:         cfg.LLM.Model,
		ContextFiles:  prompt.LoadContextFiles(workspaceDir),
		Skills:        skills,
	})
}
