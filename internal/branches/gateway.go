package branches

import "context"

// BranchNameSet is a set of branch names.
type BranchNameSet map[string]struct{}

// NewBranchNameSet builds a set from the provided names.
func NewBranchNameSet(names ...string) BranchNameSet {
	nameSet := make(BranchNameSet, len(names))
	for _, name := range names {
		nameSet[name] = struct{}{}
	}
	return nameSet
}

// Contains reports membership.
func (nameSet BranchNameSet) Contains(name string) bool {
	_, exists := nameSet[name]
	return exists
}

// RepositoryGateway is the boundary to the remote hosting service.
// Implementations must be safe for concurrent CompareBranch calls.
type RepositoryGateway interface {
	ResolveIdentity(executionContext context.Context) (RepositoryIdentity, error)
	ListBranchNames(executionContext context.Context) ([]string, error)
	ListMergedBranchNames(executionContext context.Context, limit int) (BranchNameSet, error)
	ListClosedUnmergedBranchNames(executionContext context.Context, limit int) (BranchNameSet, error)
	CompareBranch(executionContext context.Context, baseBranch string, headBranch string) (Comparison, error)
	// DeleteBranch returns an error matching ErrBranchNotFound when the branch reference is missing.
	DeleteBranch(executionContext context.Context, branchName string) error
}
