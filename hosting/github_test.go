package hosting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codecrew-ai/codecrew/types"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *GitHubClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewGitHubClient(GitHubConfig{
		Token:     "tok",
		RepoOwner: "codecrew-ai",
		RepoName:  "demo",
		APIBase:   srv.URL,
	}, nil)
	require.NoError(t, err)
	return c
}

func TestNewGitHubClient_RequiresCompleteConfig(t *testing.T) {
	_, err := NewGitHubClient(GitHubConfig{Token: "tok"}, nil)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrValidation))
}

func TestGetPullRequest(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/codecrew-ai/demo/pulls/7", r.URL.Path)
		assert.Equal(t, "token tok", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"number": 7,
			"state":  "open",
			"merged": false,
			"title":  "implement FN-001",
			"head":   map[string]any{"sha": "abc123"},
		})
	})

	pr, err := c.GetPullRequest(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, PullRequest{Number: 7, State: "open", HeadSHA: "abc123", Title: "implement FN-001"}, pr)
}

func TestGetCheckRuns(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/codecrew-ai/demo/commits/abc123/check-runs", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"check_runs": []map[string]any{
				{"name": "build", "conclusion": "success"},
				{"name": "lint", "conclusion": "failure"},
			},
		})
	})

	runs, err := c.GetCheckRuns(context.Background(), "abc123")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, CheckRun{Name: "lint", Conclusion: "failure"}, runs[1])
}

func TestCreateReview_PostsPayload(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/repos/codecrew-ai/demo/pulls/7/reviews", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.CreateReview(context.Background(), 7, "looks fine", ReviewComment))
	assert.Equal(t, "looks fine", got["body"])
	assert.Equal(t, "COMMENT", got["event"])
}

func TestMergePullRequest_DefaultsMethod(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.MergePullRequest(context.Background(), 7, ""))
	assert.Equal(t, "merge", got["merge_method"])
}

func TestRequest_APIErrorIsTransport(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	})

	_, err := c.GetPullRequest(context.Background(), 404)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrTransport))
	assert.Contains(t, err.Error(), "404")
}
