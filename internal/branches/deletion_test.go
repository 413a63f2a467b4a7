package branches_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	branches "github.com/temirov/branchprune/internal/branches"
)

const (
	deletionLockedBranchConstant  = "feature/locked"
	deletionPermissionFailure     = "HTTP 403: Resource not accessible"
	deletionMissingReferenceCause = "reference does not exist"
	deletionFailedLogMessage      = "Branch deletion failed"
)

type deletionProgressEvent struct {
	index      int
	total      int
	branchName string
}

func TestNewDeletionCoordinatorRequiresGateway(testInstance *testing.T) {
	coordinator, creationError := branches.NewDeletionCoordinator(nil, zap.NewNop(), time.Second)
	require.Nil(testInstance, coordinator)
	require.ErrorIs(testInstance, creationError, branches.ErrGatewayNotConfigured)
}

func TestDeletionCoordinatorClassifiesEveryAttempt(testInstance *testing.T) {
	gateway := newStandardGateway()
	gateway.branchNames = append(gateway.branchNames, deletionLockedBranchConstant)
	gateway.deleteErrors = map[string]error{
		deletionLockedBranchConstant: errors.New(deletionPermissionFailure),
		testClosedBranchConstant:     fmt.Errorf("%s: %w", deletionMissingReferenceCause, branches.ErrBranchNotFound),
	}
	observerCore, observedLogs := observer.New(zapcore.InfoLevel)
	coordinator, creationError := branches.NewDeletionCoordinator(gateway, zap.New(observerCore), 0)
	require.NoError(testInstance, creationError)

	requestedNames := []string{testMergedBranchConstant, testClosedBranchConstant, deletionLockedBranchConstant, testDivergedBranchConstant}
	progressEvents := make([]deletionProgressEvent, 0, len(requestedNames))
	progressSink := branches.DeletionProgressSinkFunc(func(index int, total int, branchName string) {
		progressEvents = append(progressEvents, deletionProgressEvent{index: index, total: total, branchName: branchName})
	})

	results := coordinator.DeleteAll(context.Background(), requestedNames, progressSink)

	require.Equal(testInstance, requestedNames, gateway.recordedDeleteCalls())
	require.Equal(testInstance, []deletionProgressEvent{
		{index: 1, total: 4, branchName: testMergedBranchConstant},
		{index: 2, total: 4, branchName: testClosedBranchConstant},
		{index: 3, total: 4, branchName: deletionLockedBranchConstant},
		{index: 4, total: 4, branchName: testDivergedBranchConstant},
	}, progressEvents)

	testCases := []struct {
		expectedName    string
		expectedSuccess bool
		expectedOutcome branches.DeletionOutcome
		expectedMessage string
	}{
		{
			expectedName:    testMergedBranchConstant,
			expectedSuccess: true,
			expectedOutcome: branches.DeletionOutcomeDeleted,
			expectedMessage: "Successfully deleted feature/merged",
		},
		{
			expectedName:    testClosedBranchConstant,
			expectedOutcome: branches.DeletionOutcomeNotFound,
			expectedMessage: "Branch feature/closed does not exist",
		},
		{
			expectedName:    deletionLockedBranchConstant,
			expectedOutcome: branches.DeletionOutcomeFailed,
			expectedMessage: "Failed to delete feature/locked: HTTP 403: Resource not accessible",
		},
		{
			expectedName:    testDivergedBranchConstant,
			expectedSuccess: true,
			expectedOutcome: branches.DeletionOutcomeDeleted,
			expectedMessage: "Successfully deleted feature/diverged",
		},
	}

	require.Len(testInstance, results, len(testCases))
	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.expectedOutcome), func(subTest *testing.T) {
			result := results[testCaseIndex]
			require.Equal(subTest, testCase.expectedName, result.Name)
			require.Equal(subTest, testCase.expectedSuccess, result.Success)
			require.Equal(subTest, testCase.expectedOutcome, result.Outcome)
			require.Equal(subTest, testCase.expectedMessage, result.Message)
		})
	}

	summary := branches.Summarize(results)
	require.Equal(testInstance, 2, summary.SuccessCount)
	require.Equal(testInstance, 2, summary.FailureCount)
	require.Equal(testInstance, []string{testMergedBranchConstant, testDivergedBranchConstant}, summary.DeletedNames)
	require.Equal(testInstance, 1, observedLogs.FilterMessage(deletionFailedLogMessage).Len())
}

func TestDeletionCoordinatorHandlesEmptyBatch(testInstance *testing.T) {
	gateway := newStandardGateway()
	coordinator, creationError := branches.NewDeletionCoordinator(gateway, nil, time.Second)
	require.NoError(testInstance, creationError)

	results := coordinator.DeleteAll(context.Background(), nil, nil)
	require.Empty(testInstance, results)
	require.Empty(testInstance, gateway.recordedDeleteCalls())

	summary := branches.Summarize(results)
	require.Zero(testInstance, summary.SuccessCount)
	require.Zero(testInstance, summary.FailureCount)
	require.Empty(testInstance, summary.DeletedNames)
}
