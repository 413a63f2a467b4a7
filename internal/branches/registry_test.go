package branches_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	branches "github.com/temirov/branchprune/internal/branches"
)

func TestRegistryOperations(testInstance *testing.T) {
	testCases := []struct {
		name          string
		operate       func(*branches.Registry)
		expectedNames []string
	}{
		{
			name: "upsert_appends_in_listing_order",
			operate: func(registry *branches.Registry) {
				registry.Upsert(branches.BranchRecord{Name: "b"})
				registry.Upsert(branches.BranchRecord{Name: "a"})
				registry.Upsert(branches.BranchRecord{Name: "c"})
			},
			expectedNames: []string{"b", "a", "c"},
		},
		{
			name: "upsert_replaces_existing_in_place",
			operate: func(registry *branches.Registry) {
				registry.Upsert(branches.BranchRecord{Name: "a", Status: branches.BranchStatusFetching})
				registry.Upsert(branches.BranchRecord{Name: "b"})
				registry.Upsert(branches.BranchRecord{Name: "a", Status: branches.BranchStatusBehind})
			},
			expectedNames: []string{"a", "b"},
		},
		{
			name: "remove_reindexes_followers",
			operate: func(registry *branches.Registry) {
				registry.Upsert(branches.BranchRecord{Name: "a"})
				registry.Upsert(branches.BranchRecord{Name: "b"})
				registry.Upsert(branches.BranchRecord{Name: "c"})
				registry.Remove("a")
				registry.Upsert(branches.BranchRecord{Name: "c", Status: branches.BranchStatusAhead})
			},
			expectedNames: []string{"b", "c"},
		},
		{
			name: "clear_drops_everything",
			operate: func(registry *branches.Registry) {
				registry.Upsert(branches.BranchRecord{Name: "a"})
				registry.Clear()
				registry.Upsert(branches.BranchRecord{Name: "z"})
			},
			expectedNames: []string{"z"},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subTest *testing.T) {
			registry := branches.NewRegistry()
			testCase.operate(registry)

			observedNames := make([]string, 0, registry.Len())
			for _, record := range registry.Snapshot() {
				observedNames = append(observedNames, record.Name)
				require.True(subTest, registry.Contains(record.Name))
				lookedUp, exists := registry.Lookup(record.Name)
				require.True(subTest, exists)
				require.Equal(subTest, record, lookedUp)
			}
			require.Equal(subTest, testCase.expectedNames, observedNames)
			require.Equal(subTest, len(testCase.expectedNames), registry.Len())
		})
	}
}

func TestRegistryUpsertKeepsLatestRecord(testInstance *testing.T) {
	registry := branches.NewRegistry()
	registry.Upsert(branches.BranchRecord{Name: testMergedBranchConstant, Status: branches.BranchStatusFetching})
	registry.Upsert(branches.BranchRecord{Name: testMergedBranchConstant, Status: branches.BranchStatusIdentical, MergeStatus: branches.MergeStatusMerged})

	record, exists := registry.Lookup(testMergedBranchConstant)
	require.True(testInstance, exists)
	require.Equal(testInstance, branches.BranchStatusIdentical, record.Status)
	require.Equal(testInstance, branches.MergeStatusMerged, record.MergeStatus)
	require.Equal(testInstance, 1, registry.Len())
}

func TestRegistryRemoveMissingName(testInstance *testing.T) {
	registry := branches.NewRegistry()
	registry.Upsert(branches.BranchRecord{Name: "a"})

	require.False(testInstance, registry.Remove(testMissingBranchConstant))
	require.True(testInstance, registry.Remove("a"))
	require.False(testInstance, registry.Contains("a"))
	_, exists := registry.Lookup("a")
	require.False(testInstance, exists)
}

func TestRegistrySnapshotIsDetached(testInstance *testing.T) {
	registry := branches.NewRegistry()
	registry.Upsert(branches.BranchRecord{Name: "a", Status: branches.BranchStatusAhead})

	snapshot := registry.Snapshot()
	snapshot[0].Status = branches.BranchStatusDiverged

	record, _ := registry.Lookup("a")
	require.Equal(testInstance, branches.BranchStatusAhead, record.Status)
}

func TestRegistryUpsertOrderDoesNotChangeContents(testInstance *testing.T) {
	rapid.Check(testInstance, func(propertyTest *rapid.T) {
		names := rapid.SliceOfNDistinct(rapid.StringMatching(`[a-z]{1,8}`), 1, 20, rapid.ID[string]).Draw(propertyTest, "names")
		statuses := []branches.BranchStatus{
			branches.BranchStatusIdentical,
			branches.BranchStatusAhead,
			branches.BranchStatusBehind,
			branches.BranchStatusDiverged,
		}

		records := make([]branches.BranchRecord, 0, len(names))
		for _, name := range names {
			status := rapid.SampledFrom(statuses).Draw(propertyTest, "status")
			records = append(records, branches.BranchRecord{Name: name, Status: status})
		}
		permutation := rapid.Permutation(records).Draw(propertyTest, "permutation")

		forward := branches.NewRegistry()
		for _, record := range records {
			forward.Upsert(record)
		}
		shuffled := branches.NewRegistry()
		for _, record := range permutation {
			shuffled.Upsert(record)
		}

		require.Equal(propertyTest, forward.Len(), shuffled.Len())
		require.ElementsMatch(propertyTest, forward.Snapshot(), shuffled.Snapshot())
		for _, record := range records {
			lookedUp, exists := shuffled.Lookup(record.Name)
			require.True(propertyTest, exists)
			require.Equal(propertyTest, record, lookedUp)
		}
	})
}
