// Package workspace isolates concurrent development sessions in git
// worktrees: each session gets its own branch and working directory under
// <repo>/.worktrees/, so sessions never step on each other's checkouts.
package workspace

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/codecrew-ai/codecrew/types"
)

// DefaultCommandTimeout bounds arbitrary commands run inside a worktree.
const DefaultCommandTimeout = 300 * time.Second

// Runner executes one command in a directory and returns combined output.
// It exists so tests can count and fake git invocations.
type Runner func(ctx context.Context, dir string, argv ...string) ([]byte, error)

// ExecRunner is the production runner backed by os/exec.
func ExecRunner(ctx context.Context, dir string, argv ...string) ([]byte, error) {
	if len(argv) == 0 {
		return nil, types.NewError(types.ErrWorkspace, "no command given")
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// Result is the raw outcome of a command run in the worktree. Callers
// interpret it; the workspace does not.
type Result struct {
	Output   []byte
	ExitErr  error
	Duration time.Duration
}

// Workspace is one isolated git worktree.
type Workspace struct {
	BranchName   string
	WorktreePath string
	BaseBranch   string

	run    Runner
	logger *zap.Logger
}

// Manager creates and tears down workspaces for a repository.
type Manager struct {
	repoPath string
	run      Runner
	logger   *zap.Logger
}

// NewManager creates a workspace manager for the repository at repoPath.
// A nil runner gets ExecRunner.
func NewManager(repoPath string, run Runner, logger *zap.Logger) *Manager {
	if run == nil {
		run = ExecRunner
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		repoPath: repoPath,
		run:      run,
		logger:   logger.With(zap.String("component", "workspace")),
	}
}

// Create makes a new worktree with its own branch off base at
// <repo>/.worktrees/<branch>.
func (m *Manager) Create(ctx context.Context, branch, base string) (*Workspace, error) {
	worktreeDir := filepath.Join(m.repoPath, ".worktrees")
	if err := os.MkdirAll(worktreeDir, 0o755); err != nil {
		return nil, types.NewError(types.ErrWorkspace,
			"failed to create worktree: "+err.Error()).WithCause(err)
	}
	worktreePath := filepath.Join(worktreeDir, branch)

	out, err := m.run(ctx, m.repoPath, "git", "worktree", "add", "-b", branch, worktreePath, base)
	if err != nil {
		return nil, types.NewError(types.ErrWorkspace,
			"failed to create worktree: "+string(out)).WithCause(err)
	}

	m.logger.Info("worktree created",
		zap.String("branch", branch),
		zap.String("path", worktreePath),
		zap.String("base", base))
	return &Workspace{
		BranchName:   branch,
		WorktreePath: worktreePath,
		BaseBranch:   base,
		run:          m.run,
		logger:       m.logger,
	}, nil
}

// Cleanup removes the worktree and then deletes its branch. Branch deletion
// is best-effort; an unmerged branch staying behind is not an error.
func (m *Manager) Cleanup(ctx context.Context, w *Workspace) error {
	out, err := m.run(ctx, m.repoPath, "git", "worktree", "remove", w.WorktreePath)
	if err != nil {
		return types.NewError(types.ErrWorkspace,
			"failed to remove worktree: "+string(out)).WithCause(err)
	}
	if out, err := m.run(ctx, m.repoPath, "git", "branch", "-d", w.BranchName); err != nil {
		m.logger.Warn("branch delete failed",
			zap.String("branch", w.BranchName),
			zap.ByteString("output", out))
	}
	m.logger.Info("worktree removed", zap.String("branch", w.BranchName))
	return nil
}

// CommitAndPush stages everything in the worktree, commits, and pushes the
// branch to origin.
func (w *Workspace) CommitAndPush(ctx context.Context, message string) error {
	steps := [][]string{
		{"git", "add", "."},
		{"git", "commit", "-m", message},
		{"git", "push", "-u", "origin", w.BranchName},
	}
	for _, argv := range steps {
		out, err := w.run(ctx, w.WorktreePath, argv...)
		if err != nil {
			return types.NewError(types.ErrWorkspace,
				"failed to commit and push: "+string(out)).WithCause(err)
		}
	}
	w.logger.Info("branch pushed", zap.String("branch", w.BranchName))
	return nil
}

// Run executes an arbitrary command in the worktree, bounded by
// DefaultCommandTimeout. The raw result is returned uninterpreted so callers
// can inspect test or lint output themselves.
func (w *Workspace) Run(ctx context.Context, argv ...string) Result {
	ctx, cancel := context.WithTimeout(ctx, DefaultCommandTimeout)
	defer cancel()

	start := time.Now()
	out, err := w.run(ctx, w.WorktreePath, argv...)
	return Result{Output: out, ExitErr: err, Duration: time.Since(start)}
}
