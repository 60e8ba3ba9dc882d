// =============================================================================
// 📦 CodeCrew 配置
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("codecrew.yaml").
//	    WithEnvPrefix("CODECREW").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"

	"github.com/codecrew-ai/codecrew/hosting"
	"github.com/codecrew-ai/codecrew/internal/server"
	"github.com/codecrew-ai/codecrew/llm"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 CodeCrew 的完整配置结构
type Config struct {
	// Project 项目配置
	Project ProjectConfig `yaml:"project" env:"PROJECT"`

	// Session 并发开发会话配置
	Session SessionConfig `yaml:"session" env:"SESSION"`

	// Reviewer PR 评审配置
	Reviewer ReviewerConfig `yaml:"reviewer" env:"REVIEWER"`

	// GitHub 代码托管配置
	GitHub hosting.GitHubConfig `yaml:"github" env:"GITHUB"`

	// Model 模型路由配置
	Model llm.ModelConfig `yaml:"model" env:"MODEL"`

	// Store 制品存储配置
	Store StoreConfig `yaml:"store" env:"STORE"`

	// Ops 运维端点配置（健康检查与指标）
	Ops server.Config `yaml:"ops" env:"OPS"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`
}

// ProjectConfig 项目配置
type ProjectConfig struct {
	// 项目名称
	Name string `yaml:"name" env:"NAME"`
	// 仓库根目录（worktree 的宿主）
	RepoPath string `yaml:"repo_path" env:"REPO_PATH"`
	// 基础分支
	BaseBranch string `yaml:"base_branch" env:"BASE_BRANCH"`
}

// SessionConfig 并发开发会话配置
type SessionConfig struct {
	// 最大并发会话数
	MaxConcurrentSessions int `yaml:"max_concurrent_sessions" env:"MAX_CONCURRENT_SESSIONS"`
	// 进行中任务多久没有心跳算过期（分钟）
	StaleThresholdMinutes int `yaml:"stale_threshold_minutes" env:"STALE_THRESHOLD_MINUTES"`
	// 心跳间隔（秒）
	HeartbeatIntervalSeconds int `yaml:"heartbeat_interval_seconds" env:"HEARTBEAT_INTERVAL_SECONDS"`
	// 空闲轮询间隔（秒）
	IdlePollIntervalSeconds int `yaml:"idle_poll_interval_seconds" env:"IDLE_POLL_INTERVAL_SECONDS"`
}

// ReviewerConfig PR 评审配置
type ReviewerConfig struct {
	// 轮询间隔（秒）
	PollIntervalSeconds int `yaml:"poll_interval_seconds" env:"POLL_INTERVAL_SECONDS"`
}

// StoreConfig 制品存储配置
type StoreConfig struct {
	// 驱动: memory 或 sqlite
	Driver string `yaml:"driver" env:"DRIVER"`
	// SQLite 数据库文件路径
	Path string `yaml:"path" env:"PATH"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json 或 console
	Format string `yaml:"format" env:"FORMAT"`
}

// =============================================================================
// 📦 默认配置
// =============================================================================

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Project: ProjectConfig{
			Name:       "codecrew",
			RepoPath:   ".",
			BaseBranch: "main",
		},
		Session: SessionConfig{
			MaxConcurrentSessions:    5,
			StaleThresholdMinutes:    10,
			HeartbeatIntervalSeconds: 60,
			IdlePollIntervalSeconds:  30,
		},
		Reviewer: ReviewerConfig{
			PollIntervalSeconds: 60,
		},
		Model: llm.ModelConfig{
			Provider:    "offline",
			Model:       "static-1",
			Temperature: 0.2,
			MaxTokens:   4096,
		},
		Store: StoreConfig{
			Driver: "memory",
		},
		Ops: server.DefaultConfig(),
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Project.Name == "" {
		return fmt.Errorf("project.name is required")
	}
	if c.Session.MaxConcurrentSessions < 1 {
		return fmt.Errorf("session.max_concurrent_sessions must be at least 1, got %d",
			c.Session.MaxConcurrentSessions)
	}
	if c.Session.StaleThresholdMinutes < 1 {
		return fmt.Errorf("session.stale_threshold_minutes must be at least 1, got %d",
			c.Session.StaleThresholdMinutes)
	}
	if c.Reviewer.PollIntervalSeconds < 1 {
		return fmt.Errorf("reviewer.poll_interval_seconds must be at least 1, got %d",
			c.Reviewer.PollIntervalSeconds)
	}
	switch c.Store.Driver {
	case "memory":
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("store.driver must be memory or sqlite, got %q", c.Store.Driver)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn, or error, got %q", c.Log.Level)
	}
	return nil
}
