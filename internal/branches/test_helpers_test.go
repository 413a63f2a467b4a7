package branches_test

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	branches "github.com/temirov/branchprune/internal/branches"
)

const (
	testRepositoryNameConstant    = "octo/widgets"
	testDefaultBranchConstant     = "main"
	testDevelopBranchConstant     = "develop"
	testMergedBranchConstant      = "feature/merged"
	testClosedBranchConstant      = "feature/closed"
	testDivergedBranchConstant    = "feature/diverged"
	testAheadBranchConstant       = "feature/ahead"
	testMissingBranchConstant     = "feature/missing"
	testComparisonStatusIdentical = "identical"
	testComparisonStatusDiverged  = "diverged"
	testComparisonStatusAhead     = "ahead"
	testComparisonStatusBehind    = "behind"
)

type stubRepositoryGateway struct {
	mutex            sync.Mutex
	identity         branches.RepositoryIdentity
	identityError    error
	branchNames      []string
	listingError     error
	mergedNames      []string
	mergedError      error
	closedNames      []string
	closedError      error
	comparisons      map[string]branches.Comparison
	compareErrors    map[string]error
	deleteErrors     map[string]error
	compareDelay     time.Duration
	identityCalls    int
	listingCalls     int
	mergedLimits     []int
	closedLimits     []int
	compareCalls     []string
	compareBases     []string
	deleteCalls      []string
	inFlightCompares atomic.Int32
	maxInFlightSeen  atomic.Int32
}

func newStandardGateway() *stubRepositoryGateway {
	return &stubRepositoryGateway{
		identity: branches.RepositoryIdentity{NameWithOwner: testRepositoryNameConstant, DefaultBranch: testDefaultBranchConstant},
		branchNames: []string{
			testDefaultBranchConstant,
			testMergedBranchConstant,
			testClosedBranchConstant,
			testDivergedBranchConstant,
			testDevelopBranchConstant,
		},
		mergedNames: []string{testMergedBranchConstant},
		closedNames: []string{testClosedBranchConstant},
		comparisons: map[string]branches.Comparison{
			testMergedBranchConstant:   {Status: testComparisonStatusIdentical},
			testClosedBranchConstant:   {Status: testComparisonStatusAhead, AheadBy: 2},
			testDivergedBranchConstant: {Status: testComparisonStatusDiverged, AheadBy: 3, BehindBy: 7},
		},
	}
}

func (gateway *stubRepositoryGateway) ResolveIdentity(context.Context) (branches.RepositoryIdentity, error) {
	gateway.mutex.Lock()
	defer gateway.mutex.Unlock()
	gateway.identityCalls++
	if gateway.identityError != nil {
		return branches.RepositoryIdentity{}, gateway.identityError
	}
	return gateway.identity, nil
}

func (gateway *stubRepositoryGateway) ListBranchNames(context.Context) ([]string, error) {
	gateway.mutex.Lock()
	defer gateway.mutex.Unlock()
	gateway.listingCalls++
	if gateway.listingError != nil {
		return nil, gateway.listingError
	}
	return slices.Clone(gateway.branchNames), nil
}

func (gateway *stubRepositoryGateway) ListMergedBranchNames(_ context.Context, limit int) (branches.BranchNameSet, error) {
	gateway.mutex.Lock()
	defer gateway.mutex.Unlock()
	gateway.mergedLimits = append(gateway.mergedLimits, limit)
	if gateway.mergedError != nil {
		return nil, gateway.mergedError
	}
	return branches.NewBranchNameSet(gateway.mergedNames...), nil
}

func (gateway *stubRepositoryGateway) ListClosedUnmergedBranchNames(_ context.Context, limit int) (branches.BranchNameSet, error) {
	gateway.mutex.Lock()
	defer gateway.mutex.Unlock()
	gateway.closedLimits = append(gateway.closedLimits, limit)
	if gateway.closedError != nil {
		return nil, gateway.closedError
	}
	return branches.NewBranchNameSet(gateway.closedNames...), nil
}

func (gateway *stubRepositoryGateway) CompareBranch(_ context.Context, base string, head string) (branches.Comparison, error) {
	inFlight := gateway.inFlightCompares.Add(1)
	defer gateway.inFlightCompares.Add(-1)
	for {
		observed := gateway.maxInFlightSeen.Load()
		if inFlight <= observed || gateway.maxInFlightSeen.CompareAndSwap(observed, inFlight) {
			break
		}
	}
	if gateway.compareDelay > 0 {
		time.Sleep(gateway.compareDelay)
	}

	gateway.mutex.Lock()
	defer gateway.mutex.Unlock()
	gateway.compareCalls = append(gateway.compareCalls, head)
	gateway.compareBases = append(gateway.compareBases, base)
	if compareError, failing := gateway.compareErrors[head]; failing {
		return branches.Comparison{}, compareError
	}
	if comparison, known := gateway.comparisons[head]; known {
		return comparison, nil
	}
	return branches.Comparison{Status: testComparisonStatusBehind, BehindBy: 1}, nil
}

func (gateway *stubRepositoryGateway) DeleteBranch(_ context.Context, name string) error {
	gateway.mutex.Lock()
	defer gateway.mutex.Unlock()
	gateway.deleteCalls = append(gateway.deleteCalls, name)
	if deleteError, failing := gateway.deleteErrors[name]; failing {
		return deleteError
	}
	if !slices.Contains(gateway.branchNames, name) {
		return branches.ErrBranchNotFound
	}
	gateway.branchNames = slices.DeleteFunc(gateway.branchNames, func(candidate string) bool { return candidate == name })
	return nil
}

func (gateway *stubRepositoryGateway) recordedCompareCalls() []string {
	gateway.mutex.Lock()
	defer gateway.mutex.Unlock()
	return slices.Clone(gateway.compareCalls)
}

func (gateway *stubRepositoryGateway) recordedDeleteCalls() []string {
	gateway.mutex.Lock()
	defer gateway.mutex.Unlock()
	return slices.Clone(gateway.deleteCalls)
}

func (gateway *stubRepositoryGateway) recordedIdentityCalls() int {
	gateway.mutex.Lock()
	defer gateway.mutex.Unlock()
	return gateway.identityCalls
}

type blockingFetcher struct {
	release  chan struct{}
	runCalls atomic.Int32
	result   branches.FetchResult
}

func newBlockingFetcher() *blockingFetcher {
	return &blockingFetcher{release: make(chan struct{})}
}

func (fetcher *blockingFetcher) Run(executionContext context.Context, progressSink branches.ProgressSink, branchSink branches.BranchSink) (branches.FetchResult, error) {
	fetcher.runCalls.Add(1)
	for _, record := range fetcher.result.Records {
		branchSink.ReceiveBranch(record)
	}
	select {
	case <-fetcher.release:
	case <-executionContext.Done():
		return branches.FetchResult{}, executionContext.Err()
	}
	return fetcher.result, nil
}

type blockingDeleter struct {
	release     chan struct{}
	deleteCalls atomic.Int32
}

func newBlockingDeleter() *blockingDeleter {
	return &blockingDeleter{release: make(chan struct{})}
}

func (deleter *blockingDeleter) DeleteAll(executionContext context.Context, branchNames []string, progressSink branches.DeletionProgressSink) []branches.DeletionResult {
	deleter.deleteCalls.Add(1)
	select {
	case <-deleter.release:
	case <-executionContext.Done():
	}
	results := make([]branches.DeletionResult, 0, len(branchNames))
	for _, branchName := range branchNames {
		results = append(results, branches.DeletionResult{Name: branchName, Success: true, Outcome: branches.DeletionOutcomeDeleted})
	}
	return results
}

type recordingSinks struct {
	progressMessages []string
	records          []branches.BranchRecord
	identities       []branches.RepositoryIdentity
}

func (sinks *recordingSinks) ReportProgress(message string) {
	sinks.progressMessages = append(sinks.progressMessages, message)
}

func (sinks *recordingSinks) ReceiveBranch(record branches.BranchRecord) {
	sinks.records = append(sinks.records, record)
}

func (sinks *recordingSinks) ReceiveIdentity(identity branches.RepositoryIdentity) {
	sinks.identities = append(sinks.identities, identity)
}

func finalRecordsByName(records []branches.BranchRecord) map[string]branches.BranchRecord {
	byName := make(map[string]branches.BranchRecord, len(records))
	for _, record := range records {
		byName[record.Name] = record
	}
	return byName
}
