package branches

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

const (
	statusAheadMarkerTemplateConstant  = "↑%d"
	statusBehindMarkerTemplateConstant = "↓%d"
	infoMergedLabelConstant            = "merged"
	infoMergeFetchingLabelConstant     = "merge:fetching"
	infoPullRequestClosedLabelConstant = "PR closed"
	infoPullRequestFetchingConstant    = "PR:fetching"
	infoProtectedLabelConstant         = "protected"
	infoDefaultLabelConstant           = "default"
	infoSeparatorConstant              = ", "
	statusLabelSeparatorConstant       = " "
	unsupportedSortModeTemplate        = "unsupported sort mode %q"
	unrankedStatusPriorityConstant     = 7
)

// SortMode selects the ordering of display rows.
type SortMode string

// Sort mode enumerations in cycle order.
const (
	SortModeName   SortMode = SortMode("name")
	SortModeStatus SortMode = SortMode("status")
	SortModeMerged SortMode = SortMode("merged")
)

var sortModeCycle = []SortMode{SortModeName, SortModeStatus, SortModeMerged}

// Next returns the mode that follows in the name, status, merged cycle.
func (mode SortMode) Next() SortMode {
	currentIndex := slices.Index(sortModeCycle, mode)
	return sortModeCycle[(currentIndex+1)%len(sortModeCycle)]
}

// ParseSortMode converts user input into a SortMode.
func ParseSortMode(value string) (SortMode, error) {
	candidate := SortMode(strings.ToLower(strings.TrimSpace(value)))
	if len(candidate) == 0 {
		return SortModeName, nil
	}
	if !slices.Contains(sortModeCycle, candidate) {
		return "", fmt.Errorf(unsupportedSortModeTemplate, value)
	}
	return candidate, nil
}

var statusPriority = map[BranchStatus]int{
	BranchStatusProtected: 0,
	BranchStatusDiverged:  1,
	BranchStatusAhead:     2,
	BranchStatusBehind:    3,
	BranchStatusIdentical: 4,
	BranchStatusFetching:  5,
	BranchStatusUnknown:   6,
}

func priorityOf(status BranchStatus) int {
	if priority, ranked := statusPriority[status]; ranked {
		return priority
	}
	return unrankedStatusPriorityConstant
}

// FilterState holds the operator's filter text and sort mode.
type FilterState struct {
	FilterText string
	SortMode   SortMode
}

// Row is one display line.
type Row struct {
	Selected    bool         `json:"selected" yaml:"selected"`
	Name        string       `json:"name" yaml:"name"`
	StatusLabel string       `json:"status" yaml:"status"`
	InfoSummary string       `json:"info" yaml:"info"`
	Record      BranchRecord `json:"-" yaml:"-"`
}

// DeriveRows filters records by case-insensitive substring match on the name, orders them by the sort mode,
// and marks selected names. It does not modify its inputs.
func DeriveRows(records []BranchRecord, filter FilterState, selection BranchNameSet) []Row {
	normalizedFilter := strings.ToLower(filter.FilterText)
	visibleRecords := make([]BranchRecord, 0, len(records))
	for _, record := range records {
		if strings.Contains(strings.ToLower(record.Name), normalizedFilter) {
			visibleRecords = append(visibleRecords, record)
		}
	}

	slices.SortFunc(visibleRecords, recordComparator(filter.SortMode))

	rows := make([]Row, 0, len(visibleRecords))
	for _, record := range visibleRecords {
		rows = append(rows, Row{
			Selected:    selection.Contains(record.Name),
			Name:        record.Name,
			StatusLabel: StatusLabel(record),
			InfoSummary: InfoSummary(record),
			Record:      record,
		})
	}
	return rows
}

func recordComparator(mode SortMode) func(BranchRecord, BranchRecord) int {
	switch mode {
	case SortModeStatus:
		return func(left BranchRecord, right BranchRecord) int {
			return cmp.Or(cmp.Compare(priorityOf(left.Status), priorityOf(right.Status)), strings.Compare(left.Name, right.Name))
		}
	case SortModeMerged:
		return func(left BranchRecord, right BranchRecord) int {
			return cmp.Or(cmp.Compare(mergedRank(left), mergedRank(right)), strings.Compare(left.Name, right.Name))
		}
	default:
		return func(left BranchRecord, right BranchRecord) int {
			return strings.Compare(left.Name, right.Name)
		}
	}
}

func mergedRank(record BranchRecord) int {
	if record.IsMerged() {
		return 0
	}
	return 1
}

// StatusLabel renders the status with ahead/behind markers, omitting zero or unknown counts.
func StatusLabel(record BranchRecord) string {
	labelParts := []string{string(record.Status)}
	switch record.Status {
	case BranchStatusAhead, BranchStatusBehind, BranchStatusDiverged:
		if record.AheadBy != nil && *record.AheadBy > 0 {
			labelParts = append(labelParts, fmt.Sprintf(statusAheadMarkerTemplateConstant, *record.AheadBy))
		}
		if record.BehindBy != nil && *record.BehindBy > 0 {
			labelParts = append(labelParts, fmt.Sprintf(statusBehindMarkerTemplateConstant, *record.BehindBy))
		}
	}
	return strings.Join(labelParts, statusLabelSeparatorConstant)
}

// InfoSummary renders the merge, pull request, protected, and default markers of a record.
func InfoSummary(record BranchRecord) string {
	infoParts := make([]string, 0, 4)
	switch record.MergeStatus {
	case MergeStatusMerged:
		infoParts = append(infoParts, infoMergedLabelConstant)
	case MergeStatusFetching:
		infoParts = append(infoParts, infoMergeFetchingLabelConstant)
	}
	switch record.PullRequestStatus {
	case PullRequestStatusClosed:
		infoParts = append(infoParts, infoPullRequestClosedLabelConstant)
	case PullRequestStatusFetching:
		infoParts = append(infoParts, infoPullRequestFetchingConstant)
	}
	if record.IsProtected {
		infoParts = append(infoParts, infoProtectedLabelConstant)
	}
	if record.IsDefault {
		infoParts = append(infoParts, infoDefaultLabelConstant)
	}
	return strings.Join(infoParts, infoSeparatorConstant)
}

// ViewModel holds filter, sort, and selection state and derives rows from a registry.
// The selection only ever contains names of selectable records present in the registry.
// It is owned by the same goroutine as the registry.
type ViewModel struct {
	filter            FilterState
	selection         BranchNameSet
	retainedSelection BranchNameSet
}

// NewViewModel constructs a ViewModel sorted by name with no filter or selection.
func NewViewModel() *ViewModel {
	return &ViewModel{
		filter:            FilterState{SortMode: SortModeName},
		selection:         BranchNameSet{},
		retainedSelection: BranchNameSet{},
	}
}

// Filter returns the current filter state.
func (viewModel *ViewModel) Filter() FilterState {
	return viewModel.filter
}

// SetFilterText replaces the filter text.
func (viewModel *ViewModel) SetFilterText(filterText string) {
	viewModel.filter.FilterText = filterText
}

// ClearFilter empties the filter text.
func (viewModel *ViewModel) ClearFilter() {
	viewModel.filter.FilterText = ""
}

// SetSortMode replaces the sort mode.
func (viewModel *ViewModel) SetSortMode(mode SortMode) {
	viewModel.filter.SortMode = mode
}

// CycleSortMode advances the sort mode and returns the new one.
func (viewModel *ViewModel) CycleSortMode() SortMode {
	viewModel.filter.SortMode = viewModel.filter.SortMode.Next()
	return viewModel.filter.SortMode
}

// Rows derives the display rows for the registry contents.
func (viewModel *ViewModel) Rows(registry *Registry) []Row {
	return DeriveRows(registry.Snapshot(), viewModel.filter, viewModel.selection)
}

// ToggleSelection flips membership of the named branch and reports whether it is now selected.
// Protected and default branches yield ErrBranchNotSelectable; unknown names yield ErrBranchNotFound.
func (viewModel *ViewModel) ToggleSelection(registry *Registry, branchName string) (bool, error) {
	record, exists := registry.Lookup(branchName)
	if !exists {
		return false, ErrBranchNotFound
	}
	if !record.Selectable() {
		return false, ErrBranchNotSelectable
	}
	if viewModel.selection.Contains(branchName) {
		delete(viewModel.selection, branchName)
		return false, nil
	}
	viewModel.selection[branchName] = struct{}{}
	return true, nil
}

// AutoSelectMerged adds every merged, selectable branch whose status is identical or behind
// and returns the number of branches matched.
func (viewModel *ViewModel) AutoSelectMerged(registry *Registry) int {
	matchedCount := 0
	for _, record := range registry.Snapshot() {
		if !record.Selectable() || !record.IsMerged() {
			continue
		}
		if record.Status != BranchStatusIdentical && record.Status != BranchStatusBehind {
			continue
		}
		viewModel.selection[record.Name] = struct{}{}
		matchedCount++
	}
	return matchedCount
}

// ClearSelection empties the selection.
func (viewModel *ViewModel) ClearSelection() {
	viewModel.selection = BranchNameSet{}
	viewModel.retainedSelection = BranchNameSet{}
}

// Deselect removes the provided names from the selection.
func (viewModel *ViewModel) Deselect(branchNames ...string) {
	for _, branchName := range branchNames {
		delete(viewModel.selection, branchName)
		delete(viewModel.retainedSelection, branchName)
	}
}

// IsSelected reports membership.
func (viewModel *ViewModel) IsSelected(branchName string) bool {
	return viewModel.selection.Contains(branchName)
}

// SelectionCount returns the number of selected branches.
func (viewModel *ViewModel) SelectionCount() int {
	return len(viewModel.selection)
}

// SelectedNames returns the selection sorted by name.
func (viewModel *ViewModel) SelectedNames() []string {
	selectedNames := make([]string, 0, len(viewModel.selection))
	for branchName := range viewModel.selection {
		selectedNames = append(selectedNames, branchName)
	}
	slices.Sort(selectedNames)
	return selectedNames
}

// retainSelection parks the selection while the registry is cleared for a new fetch run.
func (viewModel *ViewModel) retainSelection() {
	for branchName := range viewModel.selection {
		viewModel.retainedSelection[branchName] = struct{}{}
	}
	viewModel.selection = BranchNameSet{}
}

// reconcile restores a parked selection when its branch reappears and drops selections that became unselectable.
func (viewModel *ViewModel) reconcile(record BranchRecord) {
	if !record.Selectable() {
		delete(viewModel.selection, record.Name)
		delete(viewModel.retainedSelection, record.Name)
		return
	}
	if viewModel.retainedSelection.Contains(record.Name) {
		delete(viewModel.retainedSelection, record.Name)
		viewModel.selection[record.Name] = struct{}{}
	}
}

// releaseRetainedSelection forgets parked selections whose branches did not reappear.
func (viewModel *ViewModel) releaseRetainedSelection() {
	viewModel.retainedSelection = BranchNameSet{}
}
