package branches

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	progressResolvingRepositoryMessageConstant = "Fetching repository information..."
	progressListingBranchesMessageConstant     = "Fetching all remote branches..."
	progressMergedBranchesMessageConstant      = "Fetching merged PR branches..."
	progressClosedBranchesMessageConstant      = "Fetching closed PR branches..."
	progressComparisonStartTemplateConstant    = "Fetching status for %d branches..."
	progressComparisonTemplateConstant         = "Fetching status... (%d/%d)"
	logMessagePipelineStartedConstant          = "Branch fetch started"
	logMessageIdentityResolvedConstant         = "Repository identity resolved"
	logMessageBranchesListedConstant           = "Remote branches listed"
	logMessageStageDegradedConstant            = "Pull request lookup failed; continuing without it"
	logMessageComparisonFailedConstant         = "Branch comparison failed"
	logMessagePipelineCompletedConstant        = "Branch fetch completed"
	logMessagePipelineFailedConstant           = "Branch fetch failed"
	logFieldRunIdentifierConstant              = "run_id"
	logFieldRepositoryConstant                 = "repository"
	logFieldDefaultBranchConstant              = "default_branch"
	logFieldBranchConstant                     = "branch"
	logFieldStageConstant                      = "stage"
	logFieldBranchCountConstant                = "branch_count"
	logFieldDurationConstant                   = "duration"
	defaultWorkerCountConstant                 = 5
	defaultPullRequestLimitConstant            = 200
	defaultProgressIntervalConstant            = 5
	defaultProtectedPatternConstant            = "^(main|master|staging|dev|develop)$"
)

// ProgressSink receives human-readable progress messages.
type ProgressSink interface {
	ReportProgress(message string)
}

// ProgressSinkFunc adapts a function to ProgressSink.
type ProgressSinkFunc func(message string)

// ReportProgress calls the function.
func (sinkFunc ProgressSinkFunc) ReportProgress(message string) {
	sinkFunc(message)
}

// BranchSink receives branch records as the pipeline produces them.
type BranchSink interface {
	ReceiveBranch(record BranchRecord)
}

// BranchSinkFunc adapts a function to BranchSink.
type BranchSinkFunc func(record BranchRecord)

// ReceiveBranch calls the function.
func (sinkFunc BranchSinkFunc) ReceiveBranch(record BranchRecord) {
	sinkFunc(record)
}

// IdentitySink is an optional extension of ProgressSink that receives the resolved repository identity.
type IdentitySink interface {
	ReceiveIdentity(identity RepositoryIdentity)
}

// Timeouts bounds each kind of remote call.
type Timeouts struct {
	Identity     time.Duration
	Listing      time.Duration
	PullRequests time.Duration
	Compare      time.Duration
	Delete       time.Duration
}

// DefaultTimeouts returns the stock per-call limits.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Identity:     10 * time.Second,
		Listing:      30 * time.Second,
		PullRequests: 30 * time.Second,
		Compare:      10 * time.Second,
		Delete:       10 * time.Second,
	}
}

// PipelineOptions tunes a FetchPipeline. Zero values fall back to defaults.
type PipelineOptions struct {
	ProtectedPattern *regexp.Regexp
	WorkerCount      int
	PullRequestLimit int
	ProgressInterval int
	Timeouts         Timeouts
}

func (options PipelineOptions) withDefaults() PipelineOptions {
	resolved := options
	if resolved.ProtectedPattern == nil {
		resolved.ProtectedPattern = regexp.MustCompile(defaultProtectedPatternConstant)
	}
	if resolved.WorkerCount <= 0 {
		resolved.WorkerCount = defaultWorkerCountConstant
	}
	if resolved.PullRequestLimit <= 0 {
		resolved.PullRequestLimit = defaultPullRequestLimitConstant
	}
	if resolved.ProgressInterval <= 0 {
		resolved.ProgressInterval = defaultProgressIntervalConstant
	}
	defaultTimeouts := DefaultTimeouts()
	if resolved.Timeouts.Identity <= 0 {
		resolved.Timeouts.Identity = defaultTimeouts.Identity
	}
	if resolved.Timeouts.Listing <= 0 {
		resolved.Timeouts.Listing = defaultTimeouts.Listing
	}
	if resolved.Timeouts.PullRequests <= 0 {
		resolved.Timeouts.PullRequests = defaultTimeouts.PullRequests
	}
	if resolved.Timeouts.Compare <= 0 {
		resolved.Timeouts.Compare = defaultTimeouts.Compare
	}
	if resolved.Timeouts.Delete <= 0 {
		resolved.Timeouts.Delete = defaultTimeouts.Delete
	}
	return resolved
}

// FetchResult is the outcome of a completed fetch run.
type FetchResult struct {
	RunIdentifier string
	Identity      RepositoryIdentity
	// Records holds the final record of every branch in completion order.
	Records []BranchRecord
}

// FetchPipeline discovers every remote branch and enriches it in stages.
type FetchPipeline struct {
	gateway RepositoryGateway
	logger  *zap.Logger
	options PipelineOptions
}

// NewFetchPipeline constructs a FetchPipeline.
func NewFetchPipeline(gateway RepositoryGateway, logger *zap.Logger, options PipelineOptions) (*FetchPipeline, error) {
	if gateway == nil {
		return nil, ErrGatewayNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FetchPipeline{gateway: gateway, logger: logger, options: options.withDefaults()}, nil
}

// Run executes one fetch. Every branch is delivered to branchSink as a placeholder first and then
// once more after each enrichment stage; the final record of each branch arrives as soon as its
// comparison completes. A RepositoryUnavailableError aborts the run before any comparison starts.
func (pipeline *FetchPipeline) Run(executionContext context.Context, progressSink ProgressSink, branchSink BranchSink) (FetchResult, error) {
	if progressSink == nil {
		progressSink = ProgressSinkFunc(func(string) {})
	}
	if branchSink == nil {
		branchSink = BranchSinkFunc(func(BranchRecord) {})
	}

	runIdentifier := uuid.NewString()
	runLogger := pipeline.logger.With(zap.String(logFieldRunIdentifierConstant, runIdentifier))
	startTime := time.Now()
	runLogger.Info(logMessagePipelineStartedConstant)

	progressSink.ReportProgress(progressResolvingRepositoryMessageConstant)
	identity, identityError := callWithTimeout(executionContext, pipeline.options.Timeouts.Identity, pipeline.gateway.ResolveIdentity)
	if identityError != nil {
		return pipeline.fail(runLogger, RepositoryUnavailableError{Stage: PipelineStageIdentity, Cause: identityError})
	}
	runLogger = runLogger.With(zap.String(logFieldRepositoryConstant, identity.NameWithOwner))
	runLogger.Info(logMessageIdentityResolvedConstant, zap.String(logFieldDefaultBranchConstant, identity.DefaultBranch))
	if identitySink, acceptsIdentity := progressSink.(IdentitySink); acceptsIdentity {
		identitySink.ReceiveIdentity(identity)
	}

	progressSink.ReportProgress(progressListingBranchesMessageConstant)
	branchNames, listingError := callWithTimeout(executionContext, pipeline.options.Timeouts.Listing, pipeline.gateway.ListBranchNames)
	if listingError != nil {
		return pipeline.fail(runLogger, RepositoryUnavailableError{Stage: PipelineStageListing, Cause: listingError})
	}
	runLogger.Info(logMessageBranchesListedConstant, zap.Int(logFieldBranchCountConstant, len(branchNames)))

	records := make([]BranchRecord, len(branchNames))
	for branchIndex, branchName := range branchNames {
		records[branchIndex] = placeholderRecord(branchName, pipeline.isProtected(branchName), branchName == identity.DefaultBranch)
		branchSink.ReceiveBranch(records[branchIndex])
	}

	progressSink.ReportProgress(progressMergedBranchesMessageConstant)
	mergedBranchNames := pipeline.lookupPullRequestHeads(executionContext, runLogger, PipelineStageMergedPullRequests, pipeline.gateway.ListMergedBranchNames)
	for branchIndex := range records {
		records[branchIndex].MergeStatus = MergeStatusNotMerged
		if mergedBranchNames.Contains(records[branchIndex].Name) {
			records[branchIndex].MergeStatus = MergeStatusMerged
		}
		branchSink.ReceiveBranch(records[branchIndex])
	}

	progressSink.ReportProgress(progressClosedBranchesMessageConstant)
	closedBranchNames := pipeline.lookupPullRequestHeads(executionContext, runLogger, PipelineStageClosedPullRequests, pipeline.gateway.ListClosedUnmergedBranchNames)
	for branchIndex := range records {
		records[branchIndex].PullRequestStatus = PullRequestStatusNotClosed
		if closedBranchNames.Contains(records[branchIndex].Name) {
			records[branchIndex].PullRequestStatus = PullRequestStatusClosed
		}
		branchSink.ReceiveBranch(records[branchIndex])
	}

	progressSink.ReportProgress(fmt.Sprintf(progressComparisonStartTemplateConstant, len(records)))
	finalRecords := pipeline.compareAll(executionContext, runLogger, identity, records, progressSink, branchSink)

	runLogger.Info(
		logMessagePipelineCompletedConstant,
		zap.Int(logFieldBranchCountConstant, len(finalRecords)),
		zap.Duration(logFieldDurationConstant, time.Since(startTime)),
	)
	return FetchResult{RunIdentifier: runIdentifier, Identity: identity, Records: finalRecords}, nil
}

func (pipeline *FetchPipeline) fail(runLogger *zap.Logger, failure RepositoryUnavailableError) (FetchResult, error) {
	runLogger.Error(logMessagePipelineFailedConstant, zap.String(logFieldStageConstant, string(failure.Stage)), zap.Error(failure.Cause))
	return FetchResult{}, failure
}

func (pipeline *FetchPipeline) isProtected(branchName string) bool {
	return pipeline.options.ProtectedPattern.MatchString(branchName)
}

func (pipeline *FetchPipeline) lookupPullRequestHeads(
	executionContext context.Context,
	runLogger *zap.Logger,
	stage PipelineStage,
	lookup func(context.Context, int) (BranchNameSet, error),
) BranchNameSet {
	stageContext, cancel := context.WithTimeout(executionContext, pipeline.options.Timeouts.PullRequests)
	defer cancel()

	headNames, lookupError := lookup(stageContext, pipeline.options.PullRequestLimit)
	if lookupError != nil {
		runLogger.Warn(logMessageStageDegradedConstant, zap.String(logFieldStageConstant, string(stage)), zap.Error(lookupError))
		return BranchNameSet{}
	}
	if headNames == nil {
		return BranchNameSet{}
	}
	return headNames
}

func (pipeline *FetchPipeline) compareAll(
	executionContext context.Context,
	runLogger *zap.Logger,
	identity RepositoryIdentity,
	records []BranchRecord,
	progressSink ProgressSink,
	branchSink BranchSink,
) []BranchRecord {
	completedRecords := make(chan BranchRecord, len(records))

	go func() {
		var workerGroup errgroup.Group
		workerGroup.SetLimit(pipeline.options.WorkerCount)
		for _, record := range records {
			pendingRecord := record
			workerGroup.Go(func() error {
				completedRecords <- pipeline.compareRecord(executionContext, runLogger, identity, pendingRecord)
				return nil
			})
		}
		_ = workerGroup.Wait()
		close(completedRecords)
	}()

	totalCount := len(records)
	finalRecords := make([]BranchRecord, 0, totalCount)
	for completedRecord := range completedRecords {
		finalRecords = append(finalRecords, completedRecord)
		completedCount := len(finalRecords)
		if completedCount == 1 || completedCount%pipeline.options.ProgressInterval == 0 || completedCount == totalCount {
			progressSink.ReportProgress(fmt.Sprintf(progressComparisonTemplateConstant, completedCount, totalCount))
		}
		branchSink.ReceiveBranch(completedRecord)
	}
	return finalRecords
}

func (pipeline *FetchPipeline) compareRecord(executionContext context.Context, runLogger *zap.Logger, identity RepositoryIdentity, record BranchRecord) BranchRecord {
	finalRecord := record
	if !record.Selectable() {
		finalRecord.Status = BranchStatusProtected
		return finalRecord
	}

	compareContext, cancel := context.WithTimeout(executionContext, pipeline.options.Timeouts.Compare)
	defer cancel()

	comparison, compareError := pipeline.gateway.CompareBranch(compareContext, identity.DefaultBranch, record.Name)
	if compareError != nil {
		runLogger.Warn(logMessageComparisonFailedConstant, zap.String(logFieldBranchConstant, record.Name), zap.Error(compareError))
		finalRecord.Status = BranchStatusUnknown
		return finalRecord
	}

	finalRecord.Status = branchStatusFromComparison(comparison)
	if finalRecord.Status.carriesDivergenceCounts() {
		finalRecord.AheadBy = intPointer(comparison.AheadBy)
		finalRecord.BehindBy = intPointer(comparison.BehindBy)
	}
	return finalRecord
}

func callWithTimeout[Result any](executionContext context.Context, timeout time.Duration, call func(context.Context) (Result, error)) (Result, error) {
	callContext, cancel := context.WithTimeout(executionContext, timeout)
	defer cancel()
	return call(callContext)
}
