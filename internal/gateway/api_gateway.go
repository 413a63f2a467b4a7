package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	gh "github.com/google/go-github/v66/github"

	"github.com/temirov/branchprune/internal/branches"
)

const (
	apiPageSizeConstant                    = 100
	apiClientMissingMessageConstant        = "github api client not configured"
	invalidRepositoryTemplateConstant      = "invalid repository %q (expected owner/name)"
	pullRequestStateClosedConstant         = "closed"
	pullRequestSortUpdatedConstant         = "updated"
	pullRequestDirectionDescendingConstant = "desc"
	branchReferencePrefixConstant          = "heads/"
	repositorySeparatorConstant            = "/"
	apiOperationErrorTemplateConstant      = "%s: %w"
	apiGetRepositoryOperationConstant      = "get repository"
	apiListBranchesOperationConstant       = "list branches"
	apiListPullRequestsOperationConstant   = "list pull requests"
	apiCompareOperationConstant            = "compare commits"
	apiDeleteReferenceOperationConstant    = "delete reference"
	apiAuthenticatedUserOperationConstant  = "get authenticated user"
)

// ErrAPIClientNotConfigured indicates the API gateway was constructed without a client.
var ErrAPIClientNotConfigured = errors.New(apiClientMissingMessageConstant)

// APIGateway implements branches.RepositoryGateway against the GitHub REST API.
type APIGateway struct {
	client     *gh.Client
	owner      string
	repository string
}

// NewAPIGateway constructs an APIGateway for a repository in owner/name form.
func NewAPIGateway(client *gh.Client, nameWithOwner string) (*APIGateway, error) {
	if client == nil {
		return nil, ErrAPIClientNotConfigured
	}

	owner, repository, found := strings.Cut(strings.TrimSpace(nameWithOwner), repositorySeparatorConstant)
	if !found || len(owner) == 0 || len(repository) == 0 || strings.Contains(repository, repositorySeparatorConstant) {
		return nil, fmt.Errorf(invalidRepositoryTemplateConstant, nameWithOwner)
	}

	return &APIGateway{client: client, owner: owner, repository: repository}, nil
}

// CheckAuthentication verifies that the token identifies a user.
func (gateway *APIGateway) CheckAuthentication(executionContext context.Context) error {
	if _, _, userError := gateway.client.Users.Get(executionContext, ""); userError != nil {
		return fmt.Errorf(apiOperationErrorTemplateConstant, apiAuthenticatedUserOperationConstant, userError)
	}
	return nil
}

// ResolveIdentity reads the repository's canonical name and default branch.
func (gateway *APIGateway) ResolveIdentity(executionContext context.Context) (branches.RepositoryIdentity, error) {
	repository, _, getError := gateway.client.Repositories.Get(executionContext, gateway.owner, gateway.repository)
	if getError != nil {
		return branches.RepositoryIdentity{}, fmt.Errorf(apiOperationErrorTemplateConstant, apiGetRepositoryOperationConstant, getError)
	}
	return branches.RepositoryIdentity{NameWithOwner: repository.GetFullName(), DefaultBranch: repository.GetDefaultBranch()}, nil
}

// ListBranchNames pages through every branch of the repository.
func (gateway *APIGateway) ListBranchNames(executionContext context.Context) ([]string, error) {
	branchNames := []string{}
	listOptions := &gh.BranchListOptions{ListOptions: gh.ListOptions{PerPage: apiPageSizeConstant}}

	for {
		pageBranches, response, listError := gateway.client.Repositories.ListBranches(executionContext, gateway.owner, gateway.repository, listOptions)
		if listError != nil {
			return nil, fmt.Errorf(apiOperationErrorTemplateConstant, apiListBranchesOperationConstant, listError)
		}
		for _, branch := range pageBranches {
			branchNames = append(branchNames, branch.GetName())
		}
		if response.NextPage == 0 {
			break
		}
		listOptions.Page = response.NextPage
	}

	return branchNames, nil
}

// ListMergedBranchNames returns head branches of merged pull requests among the limit most recently updated closed ones.
func (gateway *APIGateway) ListMergedBranchNames(executionContext context.Context, limit int) (branches.BranchNameSet, error) {
	return gateway.closedPullRequestHeads(executionContext, limit, func(pullRequest *gh.PullRequest) bool {
		return pullRequest.MergedAt != nil
	})
}

// ListClosedUnmergedBranchNames returns head branches of never-merged pull requests among the limit most recently updated closed ones.
func (gateway *APIGateway) ListClosedUnmergedBranchNames(executionContext context.Context, limit int) (branches.BranchNameSet, error) {
	return gateway.closedPullRequestHeads(executionContext, limit, func(pullRequest *gh.PullRequest) bool {
		return pullRequest.MergedAt == nil
	})
}

// CompareBranch compares headBranch against baseBranch.
func (gateway *APIGateway) CompareBranch(executionContext context.Context, baseBranch string, headBranch string) (branches.Comparison, error) {
	comparison, _, compareError := gateway.client.Repositories.CompareCommits(executionContext, gateway.owner, gateway.repository, baseBranch, headBranch, nil)
	if compareError != nil {
		return branches.Comparison{}, fmt.Errorf(apiOperationErrorTemplateConstant, apiCompareOperationConstant, compareError)
	}
	return branches.Comparison{
		Status:   comparison.GetStatus(),
		AheadBy:  comparison.GetAheadBy(),
		BehindBy: comparison.GetBehindBy(),
	}, nil
}

// DeleteBranch removes refs/heads/<branchName>. GitHub answers 404 or 422 for a missing reference.
func (gateway *APIGateway) DeleteBranch(executionContext context.Context, branchName string) error {
	_, deleteError := gateway.client.Git.DeleteRef(executionContext, gateway.owner, gateway.repository, branchReferencePrefixConstant+branchName)
	if deleteError == nil {
		return nil
	}

	wrappedError := fmt.Errorf(apiOperationErrorTemplateConstant, apiDeleteReferenceOperationConstant, deleteError)
	var errorResponse *gh.ErrorResponse
	if errors.As(deleteError, &errorResponse) && errorResponse.Response != nil {
		switch errorResponse.Response.StatusCode {
		case http.StatusNotFound, http.StatusUnprocessableEntity:
			return fmt.Errorf(branchNotFoundTemplateConstant, branches.ErrBranchNotFound, wrappedError)
		}
	}
	return wrappedError
}

func (gateway *APIGateway) closedPullRequestHeads(
	executionContext context.Context,
	limit int,
	include func(*gh.PullRequest) bool,
) (branches.BranchNameSet, error) {
	headNames := branches.BranchNameSet{}
	if limit <= 0 {
		return headNames, nil
	}

	listOptions := &gh.PullRequestListOptions{
		State:       pullRequestStateClosedConstant,
		Sort:        pullRequestSortUpdatedConstant,
		Direction:   pullRequestDirectionDescendingConstant,
		ListOptions: gh.ListOptions{PerPage: min(limit, apiPageSizeConstant)},
	}

	// limit caps scanned pull requests, not matches
	scannedCount := 0
	for {
		pullRequests, response, listError := gateway.client.PullRequests.List(executionContext, gateway.owner, gateway.repository, listOptions)
		if listError != nil {
			return nil, fmt.Errorf(apiOperationErrorTemplateConstant, apiListPullRequestsOperationConstant, listError)
		}
		for _, pullRequest := range pullRequests {
			if include(pullRequest) {
				headNames[pullRequest.GetHead().GetRef()] = struct{}{}
			}
			scannedCount++
			if scannedCount >= limit {
				return headNames, nil
			}
		}
		if response.NextPage == 0 {
			return headNames, nil
		}
		listOptions.Page = response.NextPage
	}
}
