// Package github looks up branch head commits so summaries can show which
// commit each environment runs.
package github

import (
	"context"
	"fmt"
	"net/http"

	gh "github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// ShortSHALength is the number of hex digits kept from a commit SHA.
const ShortSHALength = 7

// NewClient creates a GitHub client, authenticated when token is set.
func NewClient(ctx context.Context, token string) *gh.Client {
	if token == "" {
		return gh.NewClient(nil)
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	return gh.NewClient(oauth2.NewClient(ctx, ts))
}

// BranchResolver resolves branches of a single repository.
type BranchResolver struct {
	client *gh.Client
	owner  string
	repo   string
}

// NewBranchResolver creates a resolver for owner/repo.
func NewBranchResolver(client *gh.Client, owner, repo string) *BranchResolver {
	return &BranchResolver{client: client, owner: owner, repo: repo}
}

// HeadCommit returns the short SHA of the branch head. A branch that does
// not exist yields an empty SHA and no error.
func (r *BranchResolver) HeadCommit(ctx context.Context, branch string) (string, error) {
	b, resp, err := r.client.Repositories.GetBranch(ctx, r.owner, r.repo, branch, 1)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return "", nil
		}
		return "", fmt.Errorf("getting branch %s of %s/%s: %w", branch, r.owner, r.repo, err)
	}

	sha := b.GetCommit().GetSHA()
	if len(sha) > ShortSHALength {
		sha = sha[:ShortSHALength]
	}
	return sha, nil
}
