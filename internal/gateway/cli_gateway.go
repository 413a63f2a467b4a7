package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/temirov/branchprune/internal/branches"
	"github.com/temirov/branchprune/internal/githubcli"
)

const (
	githubOperationsMissingMessageConstant = "github cli client not configured"
	branchNotFoundTemplateConstant         = "%w: %w"
)

// ErrGitHubOperationsNotConfigured indicates the CLI gateway was constructed without a client.
var ErrGitHubOperationsNotConfigured = errors.New(githubOperationsMissingMessageConstant)

// GitHubOperations is the subset of githubcli.Client used by CLIGateway.
type GitHubOperations interface {
	AuthStatus(executionContext context.Context) error
	ResolveRepoMetadata(executionContext context.Context, repository string) (githubcli.RepositoryMetadata, error)
	ListBranchNames(executionContext context.Context, repository string) ([]string, error)
	ListPullRequests(executionContext context.Context, repository string, options githubcli.PullRequestListOptions) ([]githubcli.PullRequest, error)
	CompareBranches(executionContext context.Context, repository string, baseBranch string, headBranch string) (githubcli.BranchComparison, error)
	DeleteBranchReference(executionContext context.Context, repository string, branch string) error
}

// CLIGateway implements branches.RepositoryGateway with gh commands.
// An empty repository means the repository of the current working directory, resolved by gh.
type CLIGateway struct {
	operations         GitHubOperations
	configuredName     string
	resolutionMutex    sync.Mutex
	resolvedRepository string
}

// NewCLIGateway constructs a CLIGateway.
func NewCLIGateway(operations GitHubOperations, repository string) (*CLIGateway, error) {
	if operations == nil {
		return nil, ErrGitHubOperationsNotConfigured
	}
	return &CLIGateway{operations: operations, configuredName: strings.TrimSpace(repository)}, nil
}

// CheckAuthentication reports whether gh holds usable credentials.
func (gateway *CLIGateway) CheckAuthentication(executionContext context.Context) error {
	return gateway.operations.AuthStatus(executionContext)
}

// ResolveIdentity asks gh for the canonical repository name and its default branch.
func (gateway *CLIGateway) ResolveIdentity(executionContext context.Context) (branches.RepositoryIdentity, error) {
	metadata, metadataError := gateway.operations.ResolveRepoMetadata(executionContext, gateway.configuredName)
	if metadataError != nil {
		return branches.RepositoryIdentity{}, metadataError
	}

	gateway.resolutionMutex.Lock()
	gateway.resolvedRepository = metadata.NameWithOwner
	gateway.resolutionMutex.Unlock()

	return branches.RepositoryIdentity{NameWithOwner: metadata.NameWithOwner, DefaultBranch: metadata.DefaultBranch}, nil
}

// ListBranchNames lists every remote branch.
func (gateway *CLIGateway) ListBranchNames(executionContext context.Context) ([]string, error) {
	repository, repositoryError := gateway.repository(executionContext)
	if repositoryError != nil {
		return nil, repositoryError
	}
	return gateway.operations.ListBranchNames(executionContext, repository)
}

// ListMergedBranchNames returns head branches of up to limit merged pull requests.
func (gateway *CLIGateway) ListMergedBranchNames(executionContext context.Context, limit int) (branches.BranchNameSet, error) {
	return gateway.pullRequestHeads(executionContext, githubcli.PullRequestStateMerged, limit, githubcli.PullRequest.Merged)
}

// ListClosedUnmergedBranchNames returns head branches of closed pull requests that were never merged.
func (gateway *CLIGateway) ListClosedUnmergedBranchNames(executionContext context.Context, limit int) (branches.BranchNameSet, error) {
	return gateway.pullRequestHeads(executionContext, githubcli.PullRequestStateClosed, limit, func(pullRequest githubcli.PullRequest) bool {
		return !pullRequest.Merged()
	})
}

// CompareBranch compares headBranch against baseBranch.
func (gateway *CLIGateway) CompareBranch(executionContext context.Context, baseBranch string, headBranch string) (branches.Comparison, error) {
	repository, repositoryError := gateway.repository(executionContext)
	if repositoryError != nil {
		return branches.Comparison{}, repositoryError
	}

	comparison, compareError := gateway.operations.CompareBranches(executionContext, repository, baseBranch, headBranch)
	if compareError != nil {
		return branches.Comparison{}, compareError
	}
	return branches.Comparison{Status: comparison.Status, AheadBy: comparison.AheadBy, BehindBy: comparison.BehindBy}, nil
}

// DeleteBranch removes the remote branch reference.
func (gateway *CLIGateway) DeleteBranch(executionContext context.Context, branchName string) error {
	repository, repositoryError := gateway.repository(executionContext)
	if repositoryError != nil {
		return repositoryError
	}

	deleteError := gateway.operations.DeleteBranchReference(executionContext, repository, branchName)
	if errors.Is(deleteError, githubcli.ErrReferenceNotFound) {
		return fmt.Errorf(branchNotFoundTemplateConstant, branches.ErrBranchNotFound, deleteError)
	}
	return deleteError
}

func (gateway *CLIGateway) pullRequestHeads(
	executionContext context.Context,
	state githubcli.PullRequestState,
	limit int,
	include func(githubcli.PullRequest) bool,
) (branches.BranchNameSet, error) {
	repository, repositoryError := gateway.repository(executionContext)
	if repositoryError != nil {
		return nil, repositoryError
	}

	pullRequests, listError := gateway.operations.ListPullRequests(executionContext, repository, githubcli.PullRequestListOptions{State: state, ResultLimit: limit})
	if listError != nil {
		return nil, listError
	}

	headNames := branches.BranchNameSet{}
	for _, pullRequest := range pullRequests {
		if include(pullRequest) {
			headNames[pullRequest.HeadRefName] = struct{}{}
		}
	}
	return headNames, nil
}

func (gateway *CLIGateway) repository(executionContext context.Context) (string, error) {
	gateway.resolutionMutex.Lock()
	resolvedRepository := gateway.resolvedRepository
	gateway.resolutionMutex.Unlock()
	if len(resolvedRepository) > 0 {
		return resolvedRepository, nil
	}

	identity, identityError := gateway.ResolveIdentity(executionContext)
	if identityError != nil {
		return "", identityError
	}
	return identity.NameWithOwner, nil
}
