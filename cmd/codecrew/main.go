// =============================================================================
// CodeCrew 主入口
// =============================================================================
// 多智能体软件开发流水线的命令行入口
//
// 使用方法:
//
//	codecrew run --input requirements.txt        # 跑完整默认流水线
//	codecrew develop --config codecrew.yaml      # 并发开发会话消费任务队列
//	codecrew review --pr 42,43                   # 轮询评审指定 PR
//	codecrew version                             # 显示版本信息
//
// =============================================================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/codecrew-ai/codecrew/agent"
	"github.com/codecrew-ai/codecrew/config"
	"github.com/codecrew-ai/codecrew/hosting"
	"github.com/codecrew-ai/codecrew/internal/logging"
	"github.com/codecrew-ai/codecrew/internal/metrics"
	"github.com/codecrew-ai/codecrew/internal/server"
	"github.com/codecrew-ai/codecrew/llm"
	"github.com/codecrew-ai/codecrew/orchestrator"
	"github.com/codecrew-ai/codecrew/reviewer"
	"github.com/codecrew-ai/codecrew/session"
	"github.com/codecrew-ai/codecrew/store"
	"github.com/codecrew-ai/codecrew/taskqueue"
	"github.com/codecrew-ai/codecrew/types"
	"github.com/codecrew-ai/codecrew/workflow"
	"github.com/codecrew-ai/codecrew/workspace"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runPipeline(os.Args[2:])
	case "develop":
		runDevelop(os.Args[2:])
	case "review":
		runReview(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// =============================================================================
// 🖥️ run 命令
// =============================================================================

func runPipeline(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	inputPath := fs.String("input", "", "Path to the raw requirements file")
	targetUsers := fs.String("target-users", "end users", "Audience for user stories")
	_ = fs.Parse(args)

	cfg, logger := loadConfigAndLogger(*configPath)
	defer func() { _ = logger.Sync() }()

	rawRequirements, err := readInput(*inputPath)
	if err != nil {
		logger.Fatal("failed to read input", zap.Error(err))
	}

	st, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatal("failed to open artifact store", zap.Error(err))
	}

	collector := metrics.NewCollector("codecrew", logger)
	orch := orchestrator.New(st, collector, logger)
	registerDefaultTeam(orch, cfg, collector, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Ops.Addr != "" {
		ops := server.New(cfg.Ops, Version, logger)
		if err := ops.Start(); err != nil {
			logger.Fatal("failed to start ops server", zap.Error(err))
		}
		defer func() { _ = ops.Shutdown(context.Background()) }()
	}

	logger.Info("starting default pipeline",
		zap.String("project", cfg.Project.Name),
		zap.String("version", Version))

	results := orch.RunDefaultWorkflow(ctx, map[string]any{
		"raw_requirements": rawRequirements,
		"target_users":     *targetUsers,
	}, cfg.Project.Name)

	printResults(results)
	for _, r := range results {
		if r.Status == workflow.StatusFailed {
			os.Exit(1)
		}
	}
}

// =============================================================================
// 🖥️ develop 命令
// =============================================================================

// runDevelop 启动并发开发会话：从最新状态跟踪制品认领任务，在独立
// worktree 中实现并推送
func runDevelop(args []string) {
	fs := flag.NewFlagSet("develop", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	_ = fs.Parse(args)

	cfg, logger := loadConfigAndLogger(*configPath)
	defer func() { _ = logger.Sync() }()

	st, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatal("failed to open artifact store", zap.Error(err))
	}

	collector := metrics.NewCollector("codecrew", logger)
	client := llm.NewMeteredClient(llm.NewStaticClient(cfg.Model), collector)
	dev := agent.New("developer", types.RoleDeveloper, nil, st, client, logger)

	queue := taskqueue.NewQueue(st,
		time.Duration(cfg.Session.StaleThresholdMinutes)*time.Minute, logger)
	updater := taskqueue.NewStatusUpdater(st, logger)
	workspaces := workspace.NewManager(cfg.Project.RepoPath, nil, logger)

	develop := func(ctx context.Context, s *session.DeveloperSession, task taskqueue.DevTask) error {
		ws, err := workspaces.Create(ctx, "task/"+task.ElementID, cfg.Project.BaseBranch)
		if err != nil {
			return err
		}
		s.BranchName = ws.BranchName
		s.WorktreePath = ws.WorktreePath
		defer func() {
			if err := workspaces.Cleanup(context.Background(), ws); err != nil {
				logger.Warn("workspace cleanup failed",
					zap.String("branch", ws.BranchName), zap.Error(err))
			}
		}()

		artifact, err := dev.ExecuteSkill(ctx, "code_generation", cfg.Project.Name, map[string]any{
			"element_id":       task.ElementID,
			"task_description": task.Description,
		})
		if err != nil {
			return err
		}

		body, _ := artifact.Content["body"].(string)
		outPath := filepath.Join(ws.WorktreePath, "generated", task.ElementID+".md")
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return fmt.Errorf("failed to write generated output: %w", err)
		}
		if err := os.WriteFile(outPath, []byte(body), 0o644); err != nil {
			return fmt.Errorf("failed to write generated output: %w", err)
		}
		return ws.CommitAndPush(ctx, "Implement "+task.ElementID)
	}

	mgr := session.NewManager(queue, updater, develop, session.Options{
		Workers:           cfg.Session.MaxConcurrentSessions,
		IdlePollInterval:  time.Duration(cfg.Session.IdlePollIntervalSeconds) * time.Second,
		HeartbeatInterval: time.Duration(cfg.Session.HeartbeatIntervalSeconds) * time.Second,
	}, collector, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := mgr.Run(ctx); err != nil {
		logger.Error("session manager exited", zap.Error(err))
		os.Exit(1)
	}
	done, failed := mgr.Counts()
	fmt.Printf("Sessions finished: %d completed, %d failed\n", done, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

// =============================================================================
// 🖥️ review 命令
// =============================================================================

// runReview 轮询评审指定 PR，直到全部会话终结或收到退出信号
func runReview(args []string) {
	fs := flag.NewFlagSet("review", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	prList := fs.String("pr", "", "Comma-separated PR numbers to review")
	_ = fs.Parse(args)

	cfg, logger := loadConfigAndLogger(*configPath)
	defer func() { _ = logger.Sync() }()

	prNumbers, err := parsePRList(*prList)
	if err != nil {
		logger.Fatal("invalid --pr flag", zap.Error(err))
	}

	client, err := hosting.NewGitHubClient(cfg.GitHub, logger)
	if err != nil {
		logger.Fatal("github client unavailable", zap.Error(err))
	}

	st, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatal("failed to open artifact store", zap.Error(err))
	}

	collector := metrics.NewCollector("codecrew", logger)
	orch := orchestrator.New(st, collector, logger)
	llmClient := llm.NewMeteredClient(llm.NewStaticClient(cfg.Model), collector)
	orch.RegisterAgent(agent.New("reviewer", types.RoleReviewer, orch.Bus, orch.Store, llmClient, logger))

	execute := func(ctx context.Context, agentName, skillName string, input map[string]any, project string) (string, error) {
		return orch.ExecuteTask(ctx, agentName, skillName, input, project)
	}

	mgr := reviewer.NewManager(client, execute,
		time.Duration(cfg.Reviewer.PollIntervalSeconds)*time.Second,
		cfg.Project.Name, collector, logger)
	for _, n := range prNumbers {
		mgr.AddPR(n)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mgr.Start(ctx)

	for _, s := range mgr.Sessions() {
		fmt.Printf("PR #%-5d %s (rounds: %d)\n", s.PRNumber, s.Status, s.ReviewRounds)
	}
}

func parsePRList(list string) ([]int, error) {
	if strings.TrimSpace(list) == "" {
		return nil, fmt.Errorf("--pr is required, e.g. --pr 42,43")
	}
	var numbers []int
	for _, part := range strings.Split(list, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid PR number %q", part)
		}
		numbers = append(numbers, n)
	}
	return numbers, nil
}

// =============================================================================
// 🔧 公共装配
// =============================================================================

func loadConfigAndLogger(configPath string) (*config.Config, *zap.Logger) {
	loader := config.NewLoader()
	if configPath != "" {
		loader = loader.WithConfigPath(configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg, logging.New(cfg.Log.Level, cfg.Log.Format)
}

func readInput(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("--input is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func openStore(cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	if cfg.Store.Driver == "sqlite" {
		return store.NewSQLStore(cfg.Store.Path, logger)
	}
	return store.NewMemoryStore(), nil
}

// registerDefaultTeam 注册默认团队：每个角色一个 agent
func registerDefaultTeam(orch *orchestrator.Orchestrator, cfg *config.Config, collector *metrics.Collector, logger *zap.Logger) {
	client := llm.NewMeteredClient(llm.NewStaticClient(cfg.Model), collector)
	roles := []types.AgentRole{
		types.RoleProductManager,
		types.RoleArchitect,
		types.RoleDeveloper,
		types.RoleQAEngineer,
		types.RoleTeamLead,
		types.RoleReviewer,
	}
	for _, role := range roles {
		orch.RegisterAgent(agent.New(string(role), role, orch.Bus, orch.Store, client, logger))
	}
}

func printResults(results []workflow.PhaseResult) {
	fmt.Println()
	fmt.Println("Pipeline results:")
	for _, r := range results {
		fmt.Printf("  %-16s %s\n", r.Phase, r.Status)
		for key, task := range r.Tasks {
			if task.Status == workflow.StatusFailed {
				fmt.Printf("    %-30s FAILED: %s\n", key, task.Error)
				continue
			}
			fmt.Printf("    %-30s %s\n", key, task.ArtifactID)
		}
	}
}

func printVersion() {
	fmt.Printf("codecrew %s (built %s, commit %s)\n", Version, BuildTime, GitCommit)
}

func printUsage() {
	fmt.Println(`codecrew - multi-agent software development pipeline

Usage:
  codecrew run --input <file> [--config <file>] [--target-users <text>]
  codecrew develop [--config <file>]
  codecrew review --pr <numbers> [--config <file>]
  codecrew version
  codecrew help`)
}
