package branches

// BranchStatus describes how a branch relates to the trunk branch.
type BranchStatus string

// Branch status enumerations.
const (
	BranchStatusIdentical BranchStatus = BranchStatus("identical")
	BranchStatusAhead     BranchStatus = BranchStatus("ahead")
	BranchStatusBehind    BranchStatus = BranchStatus("behind")
	BranchStatusDiverged  BranchStatus = BranchStatus("diverged")
	BranchStatusProtected BranchStatus = BranchStatus("protected")
	BranchStatusFetching  BranchStatus = BranchStatus("fetching")
	BranchStatusUnknown   BranchStatus = BranchStatus("unknown")
)

// MergeStatus records whether a merged pull request used the branch as its head.
type MergeStatus string

// Merge status enumerations.
const (
	MergeStatusUnknown   MergeStatus = MergeStatus("unknown")
	MergeStatusMerged    MergeStatus = MergeStatus("merged")
	MergeStatusNotMerged MergeStatus = MergeStatus("not_merged")
	MergeStatusFetching  MergeStatus = MergeStatus("fetching")
)

// PullRequestStatus records whether a closed-but-unmerged pull request used the branch as its head.
type PullRequestStatus string

// Pull request status enumerations.
const (
	PullRequestStatusUnknown   PullRequestStatus = PullRequestStatus("unknown")
	PullRequestStatusClosed    PullRequestStatus = PullRequestStatus("closed")
	PullRequestStatusNotClosed PullRequestStatus = PullRequestStatus("not_closed")
	PullRequestStatusFetching  PullRequestStatus = PullRequestStatus("fetching")
)

// BranchRecord is the immutable snapshot of everything known about one remote branch.
// Updates replace a record wholesale; AheadBy and BehindBy are set only for ahead, behind, or diverged branches.
type BranchRecord struct {
	Name              string            `json:"name" yaml:"name"`
	Status            BranchStatus      `json:"status" yaml:"status"`
	MergeStatus       MergeStatus       `json:"merge_status" yaml:"merge_status"`
	PullRequestStatus PullRequestStatus `json:"pull_request_status" yaml:"pull_request_status"`
	IsProtected       bool              `json:"protected" yaml:"protected"`
	IsDefault         bool              `json:"default" yaml:"default"`
	AheadBy           *int              `json:"ahead_by,omitempty" yaml:"ahead_by,omitempty"`
	BehindBy          *int              `json:"behind_by,omitempty" yaml:"behind_by,omitempty"`
}

// IsMerged reports whether the branch was the head of a merged pull request.
func (record BranchRecord) IsMerged() bool {
	return record.MergeStatus == MergeStatusMerged
}

// IsPullRequestClosed reports whether the branch was the head of a closed, unmerged pull request.
func (record BranchRecord) IsPullRequestClosed() bool {
	return record.PullRequestStatus == PullRequestStatusClosed
}

// Selectable reports whether the branch may ever join a deletion selection.
func (record BranchRecord) Selectable() bool {
	return !record.IsProtected && !record.IsDefault
}

// RepositoryIdentity names the repository under audit and its trunk branch.
type RepositoryIdentity struct {
	NameWithOwner string
	DefaultBranch string
}

// Comparison is the compare verdict for a head branch against the trunk branch.
// Status carries the raw remote verdict: identical, ahead, behind, or diverged.
type Comparison struct {
	Status   string
	AheadBy  int
	BehindBy int
}

// DeletionOutcome classifies a single deletion attempt.
type DeletionOutcome string

// Deletion outcome enumerations.
const (
	DeletionOutcomeDeleted  DeletionOutcome = DeletionOutcome("deleted")
	DeletionOutcomeNotFound DeletionOutcome = DeletionOutcome("not_found")
	DeletionOutcomeFailed   DeletionOutcome = DeletionOutcome("failed")
)

// DeletionResult is the outcome of one deletion attempt.
type DeletionResult struct {
	Name    string          `json:"name" yaml:"name"`
	Success bool            `json:"success" yaml:"success"`
	Outcome DeletionOutcome `json:"outcome" yaml:"outcome"`
	Message string          `json:"message" yaml:"message"`
}

func placeholderRecord(name string, isProtected bool, isDefault bool) BranchRecord {
	return BranchRecord{
		Name:              name,
		Status:            BranchStatusFetching,
		MergeStatus:       MergeStatusFetching,
		PullRequestStatus: PullRequestStatusFetching,
		IsProtected:       isProtected,
		IsDefault:         isDefault,
	}
}

func branchStatusFromComparison(comparison Comparison) BranchStatus {
	switch BranchStatus(comparison.Status) {
	case BranchStatusIdentical, BranchStatusAhead, BranchStatusBehind, BranchStatusDiverged:
		return BranchStatus(comparison.Status)
	default:
		return BranchStatusUnknown
	}
}

// counts are only meaningful when the branch differs from the default branch
func (status BranchStatus) carriesDivergenceCounts() bool {
	switch status {
	case BranchStatusAhead, BranchStatusBehind, BranchStatusDiverged:
		return true
	default:
		return false
	}
}

func intPointer(value int) *int {
	return &value
}
