package githubcli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/temirov/branchprune/internal/execshell"
)

const (
	authSubcommandConstant                   = "auth"
	statusSubcommandConstant                 = "status"
	repoSubcommandConstant                   = "repo"
	viewSubcommandConstant                   = "view"
	pullRequestSubcommandConstant            = "pr"
	listSubcommandConstant                   = "list"
	apiSubcommandConstant                    = "api"
	jsonFlagConstant                         = "--json"
	jqFlagConstant                           = "--jq"
	paginateFlagConstant                     = "--paginate"
	repoFlagConstant                         = "--repo"
	stateFlagConstant                        = "--state"
	limitFlagConstant                        = "--limit"
	methodFlagConstant                       = "-X"
	httpMethodDeleteConstant                 = "DELETE"
	branchNameJQExpressionConstant           = ".[].name"
	repositoryFieldNameConstant              = "repository"
	branchFieldNameConstant                  = "branch"
	baseBranchFieldNameConstant              = "base_branch"
	stateFieldNameConstant                   = "state"
	requiredValueMessageConstant             = "value required"
	executorNotConfiguredMessageConstant     = "github cli executor not configured"
	referenceNotFoundMessageConstant         = "branch reference not found"
	pullRequestLimitDefaultValueConstant     = 200
	pullRequestJSONFieldsConstant            = "headRefName,mergedAt"
	repoViewJSONFieldsConstant               = "nameWithOwner,defaultBranchRef"
	branchesEndpointTemplateConstant         = "repos/%s/branches?per_page=100"
	compareEndpointTemplateConstant          = "repos/%s/compare/%s...%s"
	referenceEndpointTemplateConstant        = "repos/%s/git/refs/heads/%s"
	operationErrorMessageTemplateConstant    = "%s operation failed"
	operationErrorWithCauseTemplateConstant  = "%s operation failed: %s"
	responseDecodingErrorTemplateConstant    = "%s response decoding failed: %s"
	invalidInputErrorTemplateConstant        = "%s: %s"
	referenceNotFoundErrorTemplateConstant   = "%w: %w"
	referenceMissingStandardErrorConstant    = "reference does not exist"
	notFoundStatusStandardErrorConstant      = "http 404"
	unprocessableStatusStandardErrorConstant = "http 422"
	authStatusOperationNameConstant          = OperationName("AuthStatus")
	repositoryMetadataOperationNameConstant  = OperationName("ResolveRepoMetadata")
	listBranchNamesOperationNameConstant     = OperationName("ListBranchNames")
	listPullRequestsOperationNameConstant    = OperationName("ListPullRequests")
	compareBranchesOperationNameConstant     = OperationName("CompareBranches")
	deleteBranchOperationNameConstant        = OperationName("DeleteBranchReference")
)

// OperationName describes a named GitHub CLI workflow supported by the client.
type OperationName string

// PullRequestState describes acceptable GitHub pull request states.
type PullRequestState string

// Pull request state enumerations.
const (
	PullRequestStateOpen   PullRequestState = PullRequestState("open")
	PullRequestStateClosed PullRequestState = PullRequestState("closed")
	PullRequestStateMerged PullRequestState = PullRequestState("merged")
)

// RepositoryMetadata contains key details resolved from GitHub.
type RepositoryMetadata struct {
	NameWithOwner string
	DefaultBranch string
}

// PullRequest represents minimal PR details returned by GitHub CLI.
type PullRequest struct {
	HeadRefName string
	MergedAt    *time.Time
}

// Merged reports whether GitHub recorded a merge for the pull request.
func (pullRequest PullRequest) Merged() bool {
	return pullRequest.MergedAt != nil
}

// PullRequestListOptions configures ListPullRequests queries.
type PullRequestListOptions struct {
	State       PullRequestState
	ResultLimit int
}

// BranchComparison carries the compare endpoint verdict for a head branch against a base branch.
type BranchComparison struct {
	Status   string
	AheadBy  int
	BehindBy int
}

// GitHubCommandExecutor is the minimal interface required from execshell.ShellExecutor.
type GitHubCommandExecutor interface {
	ExecuteGitHubCLI(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Client coordinates GitHub CLI invocations through execshell.
type Client struct {
	executor GitHubCommandExecutor
}

var (
	// ErrExecutorNotConfigured indicates the client was constructed without an executor.
	ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)
	// ErrReferenceNotFound indicates GitHub reported the branch reference as missing.
	ErrReferenceNotFound = errors.New(referenceNotFoundMessageConstant)
)

// InvalidInputError surfaces validation issues for operation inputs.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// OperationError wraps execution issues for GitHub CLI operations.
type OperationError struct {
	Operation OperationName
	Cause     error
}

// Error describes the operation failure.
func (operationError OperationError) Error() string {
	if operationError.Cause == nil {
		return fmt.Sprintf(operationErrorMessageTemplateConstant, operationError.Operation)
	}
	return fmt.Sprintf(operationErrorWithCauseTemplateConstant, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the underlying cause.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

// ResponseDecodingError indicates JSON decoding failures.
type ResponseDecodingError struct {
	Operation OperationName
	Cause     error
}

// Error describes the decoding failure.
func (decodingError ResponseDecodingError) Error() string {
	return fmt.Sprintf(responseDecodingErrorTemplateConstant, decodingError.Operation, decodingError.Cause)
}

// Unwrap exposes the underlying JSON error.
func (decodingError ResponseDecodingError) Unwrap() error {
	return decodingError.Cause
}

// NewClient constructs a GitHub CLI client.
func NewClient(executor GitHubCommandExecutor) (*Client, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &Client{executor: executor}, nil
}

// AuthStatus verifies that gh holds usable credentials.
func (client *Client) AuthStatus(executionContext context.Context) error {
	commandDetails := execshell.CommandDetails{Arguments: []string{authSubcommandConstant, statusSubcommandConstant}}
	if _, executionError := client.executor.ExecuteGitHubCLI(executionContext, commandDetails); executionError != nil {
		return OperationError{Operation: authStatusOperationNameConstant, Cause: executionError}
	}
	return nil
}

// ResolveRepoMetadata retrieves canonical metadata using gh repo view.
// An empty repository resolves the repository of the current working directory.
func (client *Client) ResolveRepoMetadata(executionContext context.Context, repository string) (RepositoryMetadata, error) {
	arguments := []string{repoSubcommandConstant, viewSubcommandConstant}
	if repositoryIdentifier := strings.TrimSpace(repository); len(repositoryIdentifier) > 0 {
		arguments = append(arguments, repositoryIdentifier)
	}
	arguments = append(arguments, jsonFlagConstant, repoViewJSONFieldsConstant)

	executionResult, executionError := client.executor.ExecuteGitHubCLI(executionContext, execshell.CommandDetails{Arguments: arguments})
	if executionError != nil {
		return RepositoryMetadata{}, OperationError{Operation: repositoryMetadataOperationNameConstant, Cause: executionError}
	}

	var response struct {
		NameWithOwner    string `json:"nameWithOwner"`
		DefaultBranchRef struct {
			Name string `json:"name"`
		} `json:"defaultBranchRef"`
	}

	decodingError := json.Unmarshal([]byte(executionResult.StandardOutput), &response)
	if decodingError != nil {
		return RepositoryMetadata{}, ResponseDecodingError{Operation: repositoryMetadataOperationNameConstant, Cause: decodingError}
	}

	return RepositoryMetadata{
		NameWithOwner: response.NameWithOwner,
		DefaultBranch: response.DefaultBranchRef.Name,
	}, nil
}

// ListBranchNames enumerates every branch of the repository using paginated gh api calls.
func (client *Client) ListBranchNames(executionContext context.Context, repository string) ([]string, error) {
	repositoryIdentifier := strings.TrimSpace(repository)
	if len(repositoryIdentifier) == 0 {
		return nil, InvalidInputError{FieldName: repositoryFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandDetails := execshell.CommandDetails{
		Arguments: []string{
			apiSubcommandConstant,
			fmt.Sprintf(branchesEndpointTemplateConstant, repositoryIdentifier),
			paginateFlagConstant,
			jqFlagConstant,
			branchNameJQExpressionConstant,
		},
	}

	executionResult, executionError := client.executor.ExecuteGitHubCLI(executionContext, commandDetails)
	if executionError != nil {
		return nil, OperationError{Operation: listBranchNamesOperationNameConstant, Cause: executionError}
	}

	branchNames := []string{}
	scanner := bufio.NewScanner(strings.NewReader(executionResult.StandardOutput))
	for scanner.Scan() {
		branchName := strings.TrimSpace(scanner.Text())
		if len(branchName) > 0 {
			branchNames = append(branchNames, branchName)
		}
	}
	if scanError := scanner.Err(); scanError != nil {
		return nil, ResponseDecodingError{Operation: listBranchNamesOperationNameConstant, Cause: scanError}
	}

	return branchNames, nil
}

// ListPullRequests enumerates pull requests using gh pr list.
func (client *Client) ListPullRequests(executionContext context.Context, repository string, options PullRequestListOptions) ([]PullRequest, error) {
	repositoryIdentifier := strings.TrimSpace(repository)
	if len(repositoryIdentifier) == 0 {
		return nil, InvalidInputError{FieldName: repositoryFieldNameConstant, Message: requiredValueMessageConstant}
	}

	if len(options.State) == 0 {
		return nil, InvalidInputError{FieldName: stateFieldNameConstant, Message: requiredValueMessageConstant}
	}

	resultLimit := options.ResultLimit
	if resultLimit <= 0 {
		resultLimit = pullRequestLimitDefaultValueConstant
	}

	commandDetails := execshell.CommandDetails{
		Arguments: []string{
			pullRequestSubcommandConstant,
			listSubcommandConstant,
			repoFlagConstant,
			repositoryIdentifier,
			stateFlagConstant,
			string(options.State),
			limitFlagConstant,
			strconv.Itoa(resultLimit),
			jsonFlagConstant,
			pullRequestJSONFieldsConstant,
		},
	}

	executionResult, executionError := client.executor.ExecuteGitHubCLI(executionContext, commandDetails)
	if executionError != nil {
		return nil, OperationError{Operation: listPullRequestsOperationNameConstant, Cause: executionError}
	}

	var response []struct {
		HeadRefName string     `json:"headRefName"`
		MergedAt    *time.Time `json:"mergedAt"`
	}

	decodingError := json.Unmarshal([]byte(executionResult.StandardOutput), &response)
	if decodingError != nil {
		return nil, ResponseDecodingError{Operation: listPullRequestsOperationNameConstant, Cause: decodingError}
	}

	pullRequests := make([]PullRequest, 0, len(response))
	for _, pullRequestEntry := range response {
		pullRequests = append(pullRequests, PullRequest{
			HeadRefName: pullRequestEntry.HeadRefName,
			MergedAt:    pullRequestEntry.MergedAt,
		})
	}

	return pullRequests, nil
}

// CompareBranches asks GitHub how the head branch relates to the base branch.
func (client *Client) CompareBranches(executionContext context.Context, repository string, baseBranch string, headBranch string) (BranchComparison, error) {
	repositoryIdentifier := strings.TrimSpace(repository)
	if len(repositoryIdentifier) == 0 {
		return BranchComparison{}, InvalidInputError{FieldName: repositoryFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(baseBranch)) == 0 {
		return BranchComparison{}, InvalidInputError{FieldName: baseBranchFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(headBranch)) == 0 {
		return BranchComparison{}, InvalidInputError{FieldName: branchFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandDetails := execshell.CommandDetails{
		Arguments: []string{
			apiSubcommandConstant,
			fmt.Sprintf(compareEndpointTemplateConstant, repositoryIdentifier, url.PathEscape(baseBranch), url.PathEscape(headBranch)),
		},
	}

	executionResult, executionError := client.executor.ExecuteGitHubCLI(executionContext, commandDetails)
	if executionError != nil {
		return BranchComparison{}, OperationError{Operation: compareBranchesOperationNameConstant, Cause: executionError}
	}

	var response struct {
		Status   string `json:"status"`
		AheadBy  int    `json:"ahead_by"`
		BehindBy int    `json:"behind_by"`
	}

	decodingError := json.Unmarshal([]byte(executionResult.StandardOutput), &response)
	if decodingError != nil {
		return BranchComparison{}, ResponseDecodingError{Operation: compareBranchesOperationNameConstant, Cause: decodingError}
	}

	return BranchComparison{Status: response.Status, AheadBy: response.AheadBy, BehindBy: response.BehindBy}, nil
}

// DeleteBranchReference removes refs/heads/<branch> from the repository.
// A missing reference yields an error matching ErrReferenceNotFound.
func (client *Client) DeleteBranchReference(executionContext context.Context, repository string, branch string) error {
	repositoryIdentifier := strings.TrimSpace(repository)
	if len(repositoryIdentifier) == 0 {
		return InvalidInputError{FieldName: repositoryFieldNameConstant, Message: requiredValueMessageConstant}
	}
	branchName := strings.TrimSpace(branch)
	if len(branchName) == 0 {
		return InvalidInputError{FieldName: branchFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandDetails := execshell.CommandDetails{
		Arguments: []string{
			apiSubcommandConstant,
			methodFlagConstant,
			httpMethodDeleteConstant,
			fmt.Sprintf(referenceEndpointTemplateConstant, repositoryIdentifier, branchName),
		},
	}

	_, executionError := client.executor.ExecuteGitHubCLI(executionContext, commandDetails)
	if executionError == nil {
		return nil
	}

	var failedError execshell.CommandFailedError
	if errors.As(executionError, &failedError) && isReferenceMissing(failedError.Result.StandardError) {
		return OperationError{Operation: deleteBranchOperationNameConstant, Cause: fmt.Errorf(referenceNotFoundErrorTemplateConstant, ErrReferenceNotFound, executionError)}
	}

	return OperationError{Operation: deleteBranchOperationNameConstant, Cause: executionError}
}

func isReferenceMissing(standardError string) bool {
	normalizedStandardError := strings.ToLower(standardError)
	return strings.Contains(normalizedStandardError, referenceMissingStandardErrorConstant) ||
		strings.Contains(normalizedStandardError, notFoundStatusStandardErrorConstant) ||
		strings.Contains(normalizedStandardError, unprocessableStatusStandardErrorConstant)
}
