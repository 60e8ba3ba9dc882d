// Package hosting abstracts the source-hosting collaborator (pull requests,
// CI check runs, reviews). The core depends only on the Client interface;
// GitHubClient is the production implementation.
package hosting

import "context"

// PullRequest is the subset of pull-request state the review loop acts on.
type PullRequest struct {
	Number  int
	State   string // "open" or "closed"
	Merged  bool
	HeadSHA string
	Title   string
}

// CheckRun is one CI check result on a commit.
type CheckRun struct {
	Name       string
	Conclusion string // "success", "failure", "" while running
}

// ChangedFile is one file touched by a pull request.
type ChangedFile struct {
	Filename string
}

// Comment is a review comment on a pull request.
type Comment struct {
	ID       int64
	Body     string
	Resolved bool
}

// ReviewEvent classifies a submitted review.
type ReviewEvent string

const (
	ReviewComment        ReviewEvent = "COMMENT"
	ReviewApprove        ReviewEvent = "APPROVE"
	ReviewRequestChanges ReviewEvent = "REQUEST_CHANGES"
)

// Client is the hosting-service operations the review loop needs. All
// failures surface as types.ErrTransport.
type Client interface {
	GetPullRequest(ctx context.Context, number int) (PullRequest, error)
	GetCheckRuns(ctx context.Context, ref string) ([]CheckRun, error)
	ListChangedFiles(ctx context.Context, number int) ([]ChangedFile, error)
	ListComments(ctx context.Context, number int) ([]Comment, error)
	CreateReview(ctx context.Context, number int, body string, event ReviewEvent) error
	MergePullRequest(ctx context.Context, number int, method string) error
}
