package branches

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

const (
	statusLoadedTemplateConstant            = "Loaded %d branches"
	statusFetchErrorTemplateConstant        = "Error: %s"
	statusSelectedTemplateConstant          = "Selected %d branch(es)"
	statusNotSelectableTemplateConstant     = "Cannot select protected/default branch: %s"
	statusAutoSelectedTemplateConstant      = "Auto-selected %d merged branch(es)"
	statusClearedSelectionConstant          = "Cleared selection"
	statusSortTemplateConstant              = "Sort by: %s"
	statusNoSelectionConstant               = "No branches selected"
	statusOperationBusyConstant             = "Please wait for current operation to complete"
	statusDialogDismissedConstant           = "Dialog dismissed without response"
	statusDeletionCancelledConstant         = "Deletion cancelled"
	statusDeletionStartedTemplateConstant   = "Deleting %d branch(es)..."
	statusDeletionProgressTemplateConstant  = "Deleting (%d/%d): %s..."
	statusDeletionSucceededTemplateConstant = "Successfully deleted %d branch(es)"
	statusDeletionPartialTemplateConstant   = "Deleted %d, failed %d"
	filterSummaryTemplateConstant           = "Filtered: %d/%d branches | Sort: %s"
	logMessageRefreshRejectedConstant       = "Refresh rejected"
	logMessageDeletionRejectedConstant      = "Deletion rejected"
	logMessageRefreshAfterDeletionConstant  = "Refresh after deletion skipped"
	logFieldReasonConstant                  = "reason"
)

// BranchFetcher runs one fetch of the repository's branches.
type BranchFetcher interface {
	Run(executionContext context.Context, progressSink ProgressSink, branchSink BranchSink) (FetchResult, error)
}

// BranchDeleter deletes a batch of branches.
type BranchDeleter interface {
	DeleteAll(executionContext context.Context, branchNames []string, progressSink DeletionProgressSink) []DeletionResult
}

// StatusMessage is the single line shown to the operator after every state change.
type StatusMessage struct {
	Text    string
	IsError bool
}

// WorkspaceOptions tunes owner behavior.
type WorkspaceOptions struct {
	RefreshAfterDeletion bool
}

// Workspace is the single owner of the registry, view model, and busy latches. Background fetch
// and deletion work report through the update channel, and only the owner goroutine calls Apply.
type Workspace struct {
	fetcher       BranchFetcher
	deleter       BranchDeleter
	updates       *UpdateChannel
	logger        *zap.Logger
	options       WorkspaceOptions
	registry      *Registry
	viewModel     *ViewModel
	fetchLatch    Latch
	deletionLatch Latch
	identity      RepositoryIdentity
	status        StatusMessage
	lastFetchErr  error
	lastDeletion  []DeletionResult
}

// NewWorkspace constructs a Workspace with an empty registry.
func NewWorkspace(fetcher BranchFetcher, deleter BranchDeleter, updates *UpdateChannel, logger *zap.Logger, options WorkspaceOptions) (*Workspace, error) {
	if fetcher == nil || deleter == nil {
		return nil, ErrGatewayNotConfigured
	}
	if updates == nil {
		updates = NewUpdateChannel(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workspace{
		fetcher:   fetcher,
		deleter:   deleter,
		updates:   updates,
		logger:    logger,
		options:   options,
		registry:  NewRegistry(),
		viewModel: NewViewModel(),
	}, nil
}

// Updates exposes the channel the owner drains.
func (workspace *Workspace) Updates() <-chan Update {
	return workspace.updates.Updates()
}

// Registry exposes the records for read access by the owner.
func (workspace *Workspace) Registry() *Registry {
	return workspace.registry
}

// ViewModel exposes filter, sort, and selection state.
func (workspace *Workspace) ViewModel() *ViewModel {
	return workspace.viewModel
}

// Rows derives the current display rows.
func (workspace *Workspace) Rows() []Row {
	return workspace.viewModel.Rows(workspace.registry)
}

// Identity returns the repository identity of the latest fetch run, if resolved.
func (workspace *Workspace) Identity() RepositoryIdentity {
	return workspace.identity
}

// Status returns the latest status message.
func (workspace *Workspace) Status() StatusMessage {
	return workspace.status
}

// LastFetchError returns the failure of the latest completed fetch run.
func (workspace *Workspace) LastFetchError() error {
	return workspace.lastFetchErr
}

// LastDeletionResults returns the results of the latest completed deletion batch.
func (workspace *Workspace) LastDeletionResults() []DeletionResult {
	return workspace.lastDeletion
}

// FetchInProgress reports whether a fetch run is active.
func (workspace *Workspace) FetchInProgress() bool {
	return workspace.fetchLatch.Busy()
}

// DeletionInProgress reports whether a deletion batch is active.
func (workspace *Workspace) DeletionInProgress() bool {
	return workspace.deletionLatch.Busy()
}

// Busy reports whether any background work is active.
func (workspace *Workspace) Busy() bool {
	return workspace.FetchInProgress() || workspace.DeletionInProgress()
}

// StartRefresh clears the registry and launches a fetch run. A second request while one is active
// is rejected with ErrFetchInProgress and issues no remote calls.
func (workspace *Workspace) StartRefresh(executionContext context.Context) error {
	if workspace.deletionLatch.Busy() {
		workspace.rejectRefresh(ErrDeletionInProgress)
		return ErrDeletionInProgress
	}
	if !workspace.fetchLatch.TryAcquire() {
		workspace.rejectRefresh(ErrFetchInProgress)
		return ErrFetchInProgress
	}

	workspace.registry.Clear()
	workspace.viewModel.retainSelection()
	workspace.identity = RepositoryIdentity{}
	workspace.lastFetchErr = nil

	sink := channelSink{channel: workspace.updates}
	go func() {
		fetchResult, fetchError := workspace.fetcher.Run(executionContext, sink, sink)
		workspace.updates.Send(FetchCompletedUpdate{Result: fetchResult, Err: fetchError})
	}()
	return nil
}

func (workspace *Workspace) rejectRefresh(reason error) {
	workspace.logger.Debug(logMessageRefreshRejectedConstant, zap.String(logFieldReasonConstant, reason.Error()))
	workspace.setStatus(statusOperationBusyConstant, true)
}

// Apply folds one background update into the owner state.
func (workspace *Workspace) Apply(executionContext context.Context, update Update) {
	switch typedUpdate := update.(type) {
	case ProgressUpdate:
		workspace.setStatus(typedUpdate.Message, false)
	case IdentityUpdate:
		workspace.identity = typedUpdate.Identity
	case BranchUpdate:
		workspace.registry.Upsert(typedUpdate.Record)
		workspace.viewModel.reconcile(typedUpdate.Record)
	case FetchCompletedUpdate:
		workspace.completeFetch(typedUpdate)
	case DeletionProgressUpdate:
		workspace.setStatus(fmt.Sprintf(statusDeletionProgressTemplateConstant, typedUpdate.Index, typedUpdate.Total, typedUpdate.BranchName), false)
	case DeletionCompletedUpdate:
		workspace.completeDeletion(executionContext, typedUpdate)
	}
}

func (workspace *Workspace) completeFetch(update FetchCompletedUpdate) {
	workspace.viewModel.releaseRetainedSelection()
	workspace.fetchLatch.Release()
	if update.Err != nil {
		workspace.lastFetchErr = update.Err
		workspace.setStatus(fmt.Sprintf(statusFetchErrorTemplateConstant, update.Err), true)
		return
	}
	workspace.identity = update.Result.Identity
	workspace.setStatus(fmt.Sprintf(statusLoadedTemplateConstant, len(update.Result.Records)), false)
}

func (workspace *Workspace) completeDeletion(executionContext context.Context, update DeletionCompletedUpdate) {
	workspace.deletionLatch.Release()
	workspace.lastDeletion = update.Results

	summary := Summarize(update.Results)
	workspace.viewModel.Deselect(summary.DeletedNames...)
	for _, deletedName := range summary.DeletedNames {
		workspace.registry.Remove(deletedName)
	}

	if summary.FailureCount == 0 {
		workspace.setStatus(fmt.Sprintf(statusDeletionSucceededTemplateConstant, summary.SuccessCount), false)
	} else {
		workspace.setStatus(fmt.Sprintf(statusDeletionPartialTemplateConstant, summary.SuccessCount, summary.FailureCount), true)
	}

	if !workspace.options.RefreshAfterDeletion {
		return
	}
	if refreshError := workspace.StartRefresh(executionContext); refreshError != nil {
		workspace.logger.Debug(logMessageRefreshAfterDeletionConstant, zap.Error(refreshError))
	}
}

// ToggleSelection flips the named branch and reports the outcome on the status line.
func (workspace *Workspace) ToggleSelection(branchName string) (bool, error) {
	selected, toggleError := workspace.viewModel.ToggleSelection(workspace.registry, branchName)
	switch {
	case errors.Is(toggleError, ErrBranchNotSelectable):
		workspace.setStatus(fmt.Sprintf(statusNotSelectableTemplateConstant, branchName), true)
	case toggleError != nil:
		workspace.setStatus(toggleError.Error(), true)
	default:
		workspace.setStatus(fmt.Sprintf(statusSelectedTemplateConstant, workspace.viewModel.SelectionCount()), false)
	}
	return selected, toggleError
}

// AutoSelectMerged selects every safe-to-delete merged branch.
func (workspace *Workspace) AutoSelectMerged() int {
	matchedCount := workspace.viewModel.AutoSelectMerged(workspace.registry)
	workspace.setStatus(fmt.Sprintf(statusAutoSelectedTemplateConstant, matchedCount), false)
	return matchedCount
}

// ClearSelection empties the selection.
func (workspace *Workspace) ClearSelection() {
	workspace.viewModel.ClearSelection()
	workspace.setStatus(statusClearedSelectionConstant, false)
}

// CycleSortMode advances the sort mode.
func (workspace *Workspace) CycleSortMode() SortMode {
	nextMode := workspace.viewModel.CycleSortMode()
	workspace.setStatus(fmt.Sprintf(statusSortTemplateConstant, nextMode), false)
	return nextMode
}

// SetFilterText replaces the filter text.
func (workspace *Workspace) SetFilterText(filterText string) {
	workspace.viewModel.SetFilterText(filterText)
}

// ClearFilter empties the filter text.
func (workspace *Workspace) ClearFilter() {
	workspace.viewModel.ClearFilter()
}

// FilterSummary describes how many records pass the filter.
func (workspace *Workspace) FilterSummary() string {
	filter := workspace.viewModel.Filter()
	return fmt.Sprintf(filterSummaryTemplateConstant, len(workspace.Rows()), workspace.registry.Len(), filter.SortMode)
}

// RequestDeletion validates a delete intent and returns the confirmation to present. It is
// rejected when nothing is selected or when a fetch or deletion is active.
func (workspace *Workspace) RequestDeletion() (ConfirmationRequest, error) {
	if workspace.viewModel.SelectionCount() == 0 {
		workspace.setStatus(statusNoSelectionConstant, true)
		return ConfirmationRequest{}, ErrSelectionEmpty
	}
	if guardError := workspace.deletionGuard(); guardError != nil {
		return ConfirmationRequest{}, guardError
	}
	return ConfirmationRequest{BranchNames: workspace.viewModel.SelectedNames()}, nil
}

func (workspace *Workspace) deletionGuard() error {
	var guardError error
	switch {
	case workspace.fetchLatch.Busy():
		guardError = ErrFetchInProgress
	case workspace.deletionLatch.Busy():
		guardError = ErrDeletionInProgress
	default:
		return nil
	}
	workspace.logger.Debug(logMessageDeletionRejectedConstant, zap.String(logFieldReasonConstant, guardError.Error()))
	workspace.setStatus(statusOperationBusyConstant, true)
	return guardError
}

// StartDeletion acts on the operator's answer to a confirmation request. Anything other than
// ConfirmationAccepted leaves every piece of state untouched apart from the status line.
func (workspace *Workspace) StartDeletion(executionContext context.Context, request ConfirmationRequest, confirmation Confirmation) error {
	switch confirmation {
	case ConfirmationDismissed:
		workspace.setStatus(statusDialogDismissedConstant, true)
		return nil
	case ConfirmationDeclined:
		workspace.setStatus(statusDeletionCancelledConstant, false)
		return nil
	}

	if len(request.BranchNames) == 0 {
		workspace.setStatus(statusNoSelectionConstant, true)
		return ErrSelectionEmpty
	}
	if guardError := workspace.deletionGuard(); guardError != nil {
		return guardError
	}
	if !workspace.deletionLatch.TryAcquire() {
		workspace.setStatus(statusOperationBusyConstant, true)
		return ErrDeletionInProgress
	}

	branchNames := append([]string(nil), request.BranchNames...)
	workspace.setStatus(fmt.Sprintf(statusDeletionStartedTemplateConstant, len(branchNames)), false)

	sink := channelSink{channel: workspace.updates}
	go func() {
		results := workspace.deleter.DeleteAll(executionContext, branchNames, sink)
		workspace.updates.Send(DeletionCompletedUpdate{Results: results})
	}()
	return nil
}

// AwaitIdle applies updates on the calling goroutine until no background work remains.
func (workspace *Workspace) AwaitIdle(executionContext context.Context) error {
	for workspace.Busy() {
		select {
		case <-executionContext.Done():
			return executionContext.Err()
		case update := <-workspace.updates.Updates():
			workspace.Apply(executionContext, update)
		}
	}
	return nil
}

func (workspace *Workspace) setStatus(text string, isError bool) {
	workspace.status = StatusMessage{Text: text, IsError: isError}
}
