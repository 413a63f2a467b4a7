package branches

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	deletionSucceededTemplateConstant   = "Successfully deleted %s"
	deletionNotFoundTemplateConstant    = "Branch %s does not exist"
	deletionFailedTemplateConstant      = "Failed to delete %s: %s"
	logMessageDeletionStartedConstant   = "Branch deletion batch started"
	logMessageBranchDeletedConstant     = "Branch deleted"
	logMessageBranchMissingConstant     = "Branch already absent"
	logMessageDeleteFailedConstant      = "Branch deletion failed"
	logMessageDeletionCompletedConstant = "Branch deletion batch completed"
	logFieldTotalConstant               = "total"
	logFieldSuccessCountConstant        = "success_count"
	logFieldFailureCountConstant        = "failure_count"
)

// DeletionProgressSink receives a notification before each deletion attempt.
type DeletionProgressSink interface {
	ReportDeletionProgress(index int, total int, branchName string)
}

// DeletionProgressSinkFunc adapts a function to DeletionProgressSink.
type DeletionProgressSinkFunc func(index int, total int, branchName string)

// ReportDeletionProgress calls the function.
func (sinkFunc DeletionProgressSinkFunc) ReportDeletionProgress(index int, total int, branchName string) {
	sinkFunc(index, total, branchName)
}

// DeletionSummary counts the outcomes of a deletion batch.
type DeletionSummary struct {
	SuccessCount int
	FailureCount int
	DeletedNames []string
}

// Summarize tallies deletion results.
func Summarize(results []DeletionResult) DeletionSummary {
	summary := DeletionSummary{DeletedNames: []string{}}
	for _, result := range results {
		if result.Success {
			summary.SuccessCount++
			summary.DeletedNames = append(summary.DeletedNames, result.Name)
			continue
		}
		summary.FailureCount++
	}
	return summary
}

// DeletionCoordinator deletes branches one at a time and reports a result for every name.
type DeletionCoordinator struct {
	gateway RepositoryGateway
	logger  *zap.Logger
	timeout time.Duration
}

// NewDeletionCoordinator constructs a DeletionCoordinator; a non-positive timeout uses the default of ten seconds.
func NewDeletionCoordinator(gateway RepositoryGateway, logger *zap.Logger, timeout time.Duration) (*DeletionCoordinator, error) {
	if gateway == nil {
		return nil, ErrGatewayNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeouts().Delete
	}
	return &DeletionCoordinator{gateway: gateway, logger: logger, timeout: timeout}, nil
}

// DeleteAll attempts every name in order. A failure never stops the batch.
func (coordinator *DeletionCoordinator) DeleteAll(executionContext context.Context, branchNames []string, progressSink DeletionProgressSink) []DeletionResult {
	totalCount := len(branchNames)
	coordinator.logger.Info(logMessageDeletionStartedConstant, zap.Int(logFieldTotalConstant, totalCount))

	results := make([]DeletionResult, 0, totalCount)
	for branchIndex, branchName := range branchNames {
		if progressSink != nil {
			progressSink.ReportDeletionProgress(branchIndex+1, totalCount, branchName)
		}
		results = append(results, coordinator.deleteOne(executionContext, branchName))
	}

	summary := Summarize(results)
	coordinator.logger.Info(
		logMessageDeletionCompletedConstant,
		zap.Int(logFieldSuccessCountConstant, summary.SuccessCount),
		zap.Int(logFieldFailureCountConstant, summary.FailureCount),
	)
	return results
}

func (coordinator *DeletionCoordinator) deleteOne(executionContext context.Context, branchName string) DeletionResult {
	deleteContext, cancel := context.WithTimeout(executionContext, coordinator.timeout)
	defer cancel()

	deletionError := coordinator.gateway.DeleteBranch(deleteContext, branchName)
	switch {
	case deletionError == nil:
		coordinator.logger.Info(logMessageBranchDeletedConstant, zap.String(logFieldBranchConstant, branchName))
		return DeletionResult{Name: branchName, Success: true, Outcome: DeletionOutcomeDeleted, Message: fmt.Sprintf(deletionSucceededTemplateConstant, branchName)}
	case errors.Is(deletionError, ErrBranchNotFound):
		coordinator.logger.Warn(logMessageBranchMissingConstant, zap.String(logFieldBranchConstant, branchName))
		return DeletionResult{Name: branchName, Outcome: DeletionOutcomeNotFound, Message: fmt.Sprintf(deletionNotFoundTemplateConstant, branchName)}
	default:
		coordinator.logger.Warn(logMessageDeleteFailedConstant, zap.String(logFieldBranchConstant, branchName), zap.Error(deletionError))
		return DeletionResult{Name: branchName, Outcome: DeletionOutcomeFailed, Message: fmt.Sprintf(deletionFailedTemplateConstant, branchName, deletionError)}
	}
}
