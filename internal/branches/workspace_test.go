package branches_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	branches "github.com/temirov/branchprune/internal/branches"
)

const (
	workspaceTestTimeout         = 5 * time.Second
	workspaceIdentityFailure     = "boom"
	workspaceDeleteFailure       = "HTTP 403"
	workspaceBusyStatusMessage   = "Please wait for current operation to complete"
	workspaceLoadedStatusMessage = "Loaded 5 branches"
)

func newTestWorkspace(testInstance *testing.T, gateway *stubRepositoryGateway, options branches.WorkspaceOptions) *branches.Workspace {
	testInstance.Helper()
	workspace, creationError := branches.AssembleWorkspace(gateway, branches.DefaultCommandConfiguration(), zap.NewNop(), options)
	require.NoError(testInstance, creationError)
	return workspace
}

func awaitIdle(testInstance *testing.T, workspace *branches.Workspace) {
	testInstance.Helper()
	waitContext, cancel := context.WithTimeout(context.Background(), workspaceTestTimeout)
	defer cancel()
	require.NoError(testInstance, workspace.AwaitIdle(waitContext))
}

func refreshAndWait(testInstance *testing.T, workspace *branches.Workspace) {
	testInstance.Helper()
	require.NoError(testInstance, workspace.StartRefresh(context.Background()))
	awaitIdle(testInstance, workspace)
}

func TestNewWorkspaceRequiresCollaborators(testInstance *testing.T) {
	workspace, creationError := branches.NewWorkspace(nil, newBlockingDeleter(), nil, nil, branches.WorkspaceOptions{})
	require.Nil(testInstance, workspace)
	require.ErrorIs(testInstance, creationError, branches.ErrGatewayNotConfigured)
}

func TestWorkspaceRefreshLoadsRegistry(testInstance *testing.T) {
	gateway := newStandardGateway()
	workspace := newTestWorkspace(testInstance, gateway, branches.WorkspaceOptions{})

	refreshAndWait(testInstance, workspace)

	require.False(testInstance, workspace.Busy())
	require.Equal(testInstance, len(gateway.branchNames), workspace.Registry().Len())
	require.Equal(testInstance, gateway.identity, workspace.Identity())
	require.Equal(testInstance, branches.StatusMessage{Text: workspaceLoadedStatusMessage}, workspace.Status())
	require.NoError(testInstance, workspace.LastFetchError())
	require.Equal(testInstance, "Filtered: 5/5 branches | Sort: name", workspace.FilterSummary())

	for _, record := range workspace.Registry().Snapshot() {
		require.NotEqual(testInstance, branches.BranchStatusFetching, record.Status)
	}
}

func TestWorkspaceRefreshReportsFatalFailure(testInstance *testing.T) {
	gateway := newStandardGateway()
	gateway.identityError = errors.New(workspaceIdentityFailure)
	workspace := newTestWorkspace(testInstance, gateway, branches.WorkspaceOptions{})

	refreshAndWait(testInstance, workspace)

	var unavailableError branches.RepositoryUnavailableError
	require.ErrorAs(testInstance, workspace.LastFetchError(), &unavailableError)
	require.Equal(testInstance, branches.PipelineStageIdentity, unavailableError.Stage)
	require.Equal(testInstance, branches.StatusMessage{Text: "Error: repository unavailable during identity: boom", IsError: true}, workspace.Status())
	require.Zero(testInstance, workspace.Registry().Len())
	require.False(testInstance, workspace.FetchInProgress())
}

func TestWorkspaceRejectsConcurrentRefresh(testInstance *testing.T) {
	fetcher := newBlockingFetcher()
	workspace, creationError := branches.NewWorkspace(fetcher, newBlockingDeleter(), nil, zap.NewNop(), branches.WorkspaceOptions{})
	require.NoError(testInstance, creationError)

	require.NoError(testInstance, workspace.StartRefresh(context.Background()))
	require.True(testInstance, workspace.FetchInProgress())

	require.ErrorIs(testInstance, workspace.StartRefresh(context.Background()), branches.ErrFetchInProgress)
	require.Equal(testInstance, branches.StatusMessage{Text: workspaceBusyStatusMessage, IsError: true}, workspace.Status())

	close(fetcher.release)
	awaitIdle(testInstance, workspace)
	require.Equal(testInstance, int32(1), fetcher.runCalls.Load())
	require.False(testInstance, workspace.FetchInProgress())
}

func TestWorkspaceRequestDeletionGuards(testInstance *testing.T) {
	testCases := []struct {
		name          string
		prepare       func(*testing.T, *branches.Workspace, *blockingFetcher, *blockingDeleter)
		expectedError error
	}{
		{
			name:          "empty_selection",
			prepare:       func(*testing.T, *branches.Workspace, *blockingFetcher, *blockingDeleter) {},
			expectedError: branches.ErrSelectionEmpty,
		},
		{
			name: "fetch_in_progress",
			prepare: func(subTest *testing.T, workspace *branches.Workspace, fetcher *blockingFetcher, _ *blockingDeleter) {
				_, toggleError := workspace.ToggleSelection(testMergedBranchConstant)
				require.NoError(subTest, toggleError)
				require.NoError(subTest, workspace.StartRefresh(context.Background()))
				workspace.Apply(context.Background(), <-workspace.Updates())
				require.Equal(subTest, 1, workspace.ViewModel().SelectionCount())
			},
			expectedError: branches.ErrFetchInProgress,
		},
		{
			name: "deletion_in_progress",
			prepare: func(subTest *testing.T, workspace *branches.Workspace, _ *blockingFetcher, _ *blockingDeleter) {
				_, toggleError := workspace.ToggleSelection(testMergedBranchConstant)
				require.NoError(subTest, toggleError)
				request, requestError := workspace.RequestDeletion()
				require.NoError(subTest, requestError)
				require.NoError(subTest, workspace.StartDeletion(context.Background(), request, branches.ConfirmationAccepted))
			},
			expectedError: branches.ErrDeletionInProgress,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subTest *testing.T) {
			fetcher := newBlockingFetcher()
			fetcher.result = branches.FetchResult{Records: []branches.BranchRecord{
				{Name: testMergedBranchConstant, Status: branches.BranchStatusIdentical, MergeStatus: branches.MergeStatusMerged},
			}}
			deleter := newBlockingDeleter()
			workspace, creationError := branches.NewWorkspace(fetcher, deleter, nil, zap.NewNop(), branches.WorkspaceOptions{})
			require.NoError(subTest, creationError)

			require.NoError(subTest, workspace.StartRefresh(context.Background()))
			close(fetcher.release)
			awaitIdle(subTest, workspace)

			fetcher.release = make(chan struct{})
			testCase.prepare(subTest, workspace, fetcher, deleter)

			_, requestError := workspace.RequestDeletion()
			require.ErrorIs(subTest, requestError, testCase.expectedError)
			require.True(subTest, workspace.Status().IsError)

			close(fetcher.release)
			close(deleter.release)
			awaitIdle(subTest, workspace)
			require.LessOrEqual(subTest, deleter.deleteCalls.Load(), int32(1))
		})
	}
}

func TestWorkspaceRejectsRefreshDuringDeletion(testInstance *testing.T) {
	fetcher := newBlockingFetcher()
	fetcher.result = branches.FetchResult{Records: []branches.BranchRecord{{Name: testMergedBranchConstant, Status: branches.BranchStatusIdentical}}}
	deleter := newBlockingDeleter()
	workspace, creationError := branches.NewWorkspace(fetcher, deleter, nil, zap.NewNop(), branches.WorkspaceOptions{})
	require.NoError(testInstance, creationError)

	require.NoError(testInstance, workspace.StartRefresh(context.Background()))
	close(fetcher.release)
	awaitIdle(testInstance, workspace)

	_, toggleError := workspace.ToggleSelection(testMergedBranchConstant)
	require.NoError(testInstance, toggleError)
	request, requestError := workspace.RequestDeletion()
	require.NoError(testInstance, requestError)
	require.NoError(testInstance, workspace.StartDeletion(context.Background(), request, branches.ConfirmationAccepted))
	require.ErrorIs(testInstance, workspace.StartDeletion(context.Background(), request, branches.ConfirmationAccepted), branches.ErrDeletionInProgress)
	require.ErrorIs(testInstance, workspace.StartRefresh(context.Background()), branches.ErrDeletionInProgress)

	close(deleter.release)
	awaitIdle(testInstance, workspace)
	require.Equal(testInstance, int32(1), deleter.deleteCalls.Load())
	require.Equal(testInstance, int32(1), fetcher.runCalls.Load())
}

func TestWorkspaceConfirmationOutcomesWithoutAcceptance(testInstance *testing.T) {
	testCases := []struct {
		name           string
		confirmation   branches.Confirmation
		expectedStatus branches.StatusMessage
	}{
		{
			name:           "declined",
			confirmation:   branches.ConfirmationDeclined,
			expectedStatus: branches.StatusMessage{Text: "Deletion cancelled"},
		},
		{
			name:           "dismissed",
			confirmation:   branches.ConfirmationDismissed,
			expectedStatus: branches.StatusMessage{Text: "Dialog dismissed without response", IsError: true},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subTest *testing.T) {
			gateway := newStandardGateway()
			workspace := newTestWorkspace(subTest, gateway, branches.WorkspaceOptions{RefreshAfterDeletion: true})
			refreshAndWait(subTest, workspace)

			_, toggleError := workspace.ToggleSelection(testMergedBranchConstant)
			require.NoError(subTest, toggleError)
			request, requestError := workspace.RequestDeletion()
			require.NoError(subTest, requestError)

			require.NoError(subTest, workspace.StartDeletion(context.Background(), request, testCase.confirmation))
			require.Equal(subTest, testCase.expectedStatus, workspace.Status())
			require.False(subTest, workspace.Busy())
			require.Empty(subTest, gateway.recordedDeleteCalls())
			require.Equal(subTest, []string{testMergedBranchConstant}, workspace.ViewModel().SelectedNames())
			require.Equal(subTest, len(gateway.branchNames), workspace.Registry().Len())
			require.Equal(subTest, 1, gateway.recordedIdentityCalls())
		})
	}
}

func TestWorkspaceDeletionRemovesOnlySuccessfulBranches(testInstance *testing.T) {
	gateway := newStandardGateway()
	gateway.deleteErrors = map[string]error{testDivergedBranchConstant: errors.New(workspaceDeleteFailure)}
	workspace := newTestWorkspace(testInstance, gateway, branches.WorkspaceOptions{})
	refreshAndWait(testInstance, workspace)

	for _, branchName := range []string{testMergedBranchConstant, testDivergedBranchConstant} {
		_, toggleError := workspace.ToggleSelection(branchName)
		require.NoError(testInstance, toggleError)
	}
	require.Equal(testInstance, "Selected 2 branch(es)", workspace.Status().Text)

	request, requestError := workspace.RequestDeletion()
	require.NoError(testInstance, requestError)
	require.Equal(testInstance, []string{testDivergedBranchConstant, testMergedBranchConstant}, request.BranchNames)

	require.NoError(testInstance, workspace.StartDeletion(context.Background(), request, branches.ConfirmationAccepted))
	require.True(testInstance, workspace.DeletionInProgress())
	awaitIdle(testInstance, workspace)

	require.Equal(testInstance, []string{testDivergedBranchConstant, testMergedBranchConstant}, gateway.recordedDeleteCalls())
	require.Equal(testInstance, []string{testDivergedBranchConstant}, workspace.ViewModel().SelectedNames())
	require.False(testInstance, workspace.Registry().Contains(testMergedBranchConstant))
	require.True(testInstance, workspace.Registry().Contains(testDivergedBranchConstant))
	require.Equal(testInstance, branches.StatusMessage{Text: "Deleted 1, failed 1", IsError: true}, workspace.Status())
	require.Len(testInstance, workspace.LastDeletionResults(), 2)
	require.Equal(testInstance, 1, gateway.recordedIdentityCalls())
}

func TestWorkspaceRefreshesAfterDeletion(testInstance *testing.T) {
	gateway := newStandardGateway()
	workspace := newTestWorkspace(testInstance, gateway, branches.WorkspaceOptions{RefreshAfterDeletion: true})
	refreshAndWait(testInstance, workspace)

	require.Equal(testInstance, 1, workspace.AutoSelectMerged())
	require.Equal(testInstance, "Auto-selected 1 merged branch(es)", workspace.Status().Text)

	request, requestError := workspace.RequestDeletion()
	require.NoError(testInstance, requestError)
	require.NoError(testInstance, workspace.StartDeletion(context.Background(), request, branches.ConfirmationAccepted))
	awaitIdle(testInstance, workspace)

	require.Equal(testInstance, 2, gateway.recordedIdentityCalls())
	require.Equal(testInstance, len(gateway.branchNames), workspace.Registry().Len())
	require.False(testInstance, workspace.Registry().Contains(testMergedBranchConstant))
	require.Zero(testInstance, workspace.ViewModel().SelectionCount())
	require.Equal(testInstance, "Loaded 4 branches", workspace.Status().Text)
}

func TestWorkspaceSelectionSurvivesRefresh(testInstance *testing.T) {
	gateway := newStandardGateway()
	workspace := newTestWorkspace(testInstance, gateway, branches.WorkspaceOptions{})
	refreshAndWait(testInstance, workspace)

	for _, branchName := range []string{testMergedBranchConstant, testClosedBranchConstant} {
		_, toggleError := workspace.ToggleSelection(branchName)
		require.NoError(testInstance, toggleError)
	}

	gateway.mutex.Lock()
	gateway.branchNames = []string{testDefaultBranchConstant, testMergedBranchConstant, testDivergedBranchConstant}
	gateway.mutex.Unlock()

	require.NoError(testInstance, workspace.StartRefresh(context.Background()))
	require.Zero(testInstance, workspace.Registry().Len())
	require.Zero(testInstance, workspace.ViewModel().SelectionCount())
	awaitIdle(testInstance, workspace)

	require.Equal(testInstance, []string{testMergedBranchConstant}, workspace.ViewModel().SelectedNames())
}

func TestWorkspaceIntentStatusMessages(testInstance *testing.T) {
	gateway := newStandardGateway()
	workspace := newTestWorkspace(testInstance, gateway, branches.WorkspaceOptions{})
	refreshAndWait(testInstance, workspace)

	_, toggleError := workspace.ToggleSelection(testDefaultBranchConstant)
	require.ErrorIs(testInstance, toggleError, branches.ErrBranchNotSelectable)
	require.Equal(testInstance, branches.StatusMessage{Text: "Cannot select protected/default branch: main", IsError: true}, workspace.Status())

	require.Equal(testInstance, branches.SortModeStatus, workspace.CycleSortMode())
	require.Equal(testInstance, "Sort by: status", workspace.Status().Text)

	workspace.SetFilterText("FEATURE")
	require.Equal(testInstance, "Filtered: 3/5 branches | Sort: status", workspace.FilterSummary())
	workspace.ClearFilter()
	require.Len(testInstance, workspace.Rows(), 5)

	_, toggleError = workspace.ToggleSelection(testClosedBranchConstant)
	require.NoError(testInstance, toggleError)
	workspace.ClearSelection()
	require.Equal(testInstance, "Cleared selection", workspace.Status().Text)
	require.Zero(testInstance, workspace.ViewModel().SelectionCount())

	_, requestError := workspace.RequestDeletion()
	require.ErrorIs(testInstance, requestError, branches.ErrSelectionEmpty)
	require.Equal(testInstance, branches.StatusMessage{Text: "No branches selected", IsError: true}, workspace.Status())
}
