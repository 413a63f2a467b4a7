package branches

import (
	"errors"
	"fmt"
)

const (
	branchNotFoundMessageConstant              = "branch not found"
	branchNotSelectableMessageConstant         = "protected and default branches cannot be selected"
	fetchInProgressMessageConstant             = "a fetch is already in progress"
	deletionInProgressMessageConstant          = "a deletion batch is already in progress"
	gatewayNotConfiguredMessageConstant        = "repository gateway not configured"
	selectionEmptyMessageConstant              = "no branches selected"
	repositoryUnavailableTemplateConstant      = "repository unavailable during %s: %s"
	repositoryUnavailableNoCauseTemplateString = "repository unavailable during %s"
)

var (
	// ErrBranchNotFound indicates the named branch does not exist, locally or on the remote.
	ErrBranchNotFound = errors.New(branchNotFoundMessageConstant)
	// ErrBranchNotSelectable indicates an attempt to select a protected or default branch.
	ErrBranchNotSelectable = errors.New(branchNotSelectableMessageConstant)
	// ErrFetchInProgress indicates a refresh was requested while another fetch run was active.
	ErrFetchInProgress = errors.New(fetchInProgressMessageConstant)
	// ErrDeletionInProgress indicates a deletion was requested while another deletion batch was active.
	ErrDeletionInProgress = errors.New(deletionInProgressMessageConstant)
	// ErrGatewayNotConfigured indicates a component was constructed without a repository gateway.
	ErrGatewayNotConfigured = errors.New(gatewayNotConfiguredMessageConstant)
	// ErrSelectionEmpty indicates a deletion was requested with nothing selected.
	ErrSelectionEmpty = errors.New(selectionEmptyMessageConstant)
)

// PipelineStage names a step of the fetch pipeline.
type PipelineStage string

// Pipeline stage enumerations.
const (
	PipelineStageIdentity           PipelineStage = PipelineStage("identity")
	PipelineStageListing            PipelineStage = PipelineStage("listing")
	PipelineStageMergedPullRequests PipelineStage = PipelineStage("merged_pull_requests")
	PipelineStageClosedPullRequests PipelineStage = PipelineStage("closed_pull_requests")
	PipelineStageComparison         PipelineStage = PipelineStage("comparison")
)

// RepositoryUnavailableError reports a fatal failure to resolve the repository or list its branches.
type RepositoryUnavailableError struct {
	Stage PipelineStage
	Cause error
}

// Error describes the failed stage.
func (unavailableError RepositoryUnavailableError) Error() string {
	if unavailableError.Cause == nil {
		return fmt.Sprintf(repositoryUnavailableNoCauseTemplateString, unavailableError.Stage)
	}
	return fmt.Sprintf(repositoryUnavailableTemplateConstant, unavailableError.Stage, unavailableError.Cause)
}

// Unwrap exposes the underlying cause.
func (unavailableError RepositoryUnavailableError) Unwrap() error {
	return unavailableError.Cause
}
