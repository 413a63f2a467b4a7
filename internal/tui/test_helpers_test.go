package tui_test

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	branches "github.com/temirov/branchprune/internal/branches"
	"github.com/temirov/branchprune/internal/tui"
)

const (
	testRepositoryNameConstant = "octo/widgets"
	testDefaultBranchConstant  = "main"
	testDevelopBranchConstant  = "develop"
	testMergedBranchConstant   = "feature/merged"
	testClosedBranchConstant   = "feature/closed"
	testDivergedBranchConstant = "feature/diverged"
	testDrainTimeout           = 5 * time.Second
)

type memoryGateway struct {
	mutex         sync.Mutex
	branchNames   []string
	mergedNames   []string
	closedNames   []string
	comparisons   map[string]branches.Comparison
	authError     error
	identityCalls int
	deleteCalls   []string
}

func newMemoryGateway() *memoryGateway {
	return &memoryGateway{
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
			testMergedBranchConstant:   {Status: "identical"},
			testClosedBranchConstant:   {Status: "ahead", AheadBy: 2},
			testDivergedBranchConstant: {Status: "diverged", AheadBy: 3, BehindBy: 7},
		},
	}
}

func (gateway *memoryGateway) CheckAuthentication(context.Context) error {
	return gateway.authError
}

func (gateway *memoryGateway) ResolveIdentity(context.Context) (branches.RepositoryIdentity, error) {
	gateway.mutex.Lock()
	defer gateway.mutex.Unlock()
	gateway.identityCalls++
	return branches.RepositoryIdentity{NameWithOwner: testRepositoryNameConstant, DefaultBranch: testDefaultBranchConstant}, nil
}

func (gateway *memoryGateway) ListBranchNames(context.Context) ([]string, error) {
	gateway.mutex.Lock()
	defer gateway.mutex.Unlock()
	return slices.Clone(gateway.branchNames), nil
}

func (gateway *memoryGateway) ListMergedBranchNames(context.Context, int) (branches.BranchNameSet, error) {
	return branches.NewBranchNameSet(gateway.mergedNames...), nil
}

func (gateway *memoryGateway) ListClosedUnmergedBranchNames(context.Context, int) (branches.BranchNameSet, error) {
	return branches.NewBranchNameSet(gateway.closedNames...), nil
}

func (gateway *memoryGateway) CompareBranch(_ context.Context, _ string, headBranch string) (branches.Comparison, error) {
	if comparison, known := gateway.comparisons[headBranch]; known {
		return comparison, nil
	}
	return branches.Comparison{Status: "behind", BehindBy: 1}, nil
}

func (gateway *memoryGateway) DeleteBranch(_ context.Context, branchName string) error {
	gateway.mutex.Lock()
	defer gateway.mutex.Unlock()
	gateway.deleteCalls = append(gateway.deleteCalls, branchName)
	if !slices.Contains(gateway.branchNames, branchName) {
		return branches.ErrBranchNotFound
	}
	gateway.branchNames = slices.DeleteFunc(gateway.branchNames, func(candidate string) bool { return candidate == branchName })
	return nil
}

func (gateway *memoryGateway) recordedDeleteCalls() []string {
	gateway.mutex.Lock()
	defer gateway.mutex.Unlock()
	return slices.Clone(gateway.deleteCalls)
}

func (gateway *memoryGateway) recordedIdentityCalls() int {
	gateway.mutex.Lock()
	defer gateway.mutex.Unlock()
	return gateway.identityCalls
}

func newTestWorkspace(testInstance *testing.T, gateway *memoryGateway) *branches.Workspace {
	testInstance.Helper()
	workspace, assemblyError := branches.AssembleWorkspace(gateway, branches.DefaultCommandConfiguration(), zap.NewNop(), branches.WorkspaceOptions{RefreshAfterDeletion: true})
	require.NoError(testInstance, assemblyError)
	return workspace
}

func newTestModel(testInstance *testing.T, gateway *memoryGateway) (tui.Model, *branches.Workspace) {
	testInstance.Helper()
	workspace := newTestWorkspace(testInstance, gateway)
	model, modelError := tui.NewModel(context.Background(), workspace, tui.ModelOptions{})
	require.NoError(testInstance, modelError)
	return model, workspace
}

func sendMessage(testInstance *testing.T, model tui.Model, msg tea.Msg) tui.Model {
	testInstance.Helper()
	updatedModel, _ := model.Update(msg)
	typedModel, isModel := updatedModel.(tui.Model)
	require.True(testInstance, isModel)
	return typedModel
}

func pressKeys(testInstance *testing.T, model tui.Model, keys ...tea.KeyMsg) tui.Model {
	testInstance.Helper()
	for _, keyMsg := range keys {
		model = sendMessage(testInstance, model, keyMsg)
	}
	return model
}

func runeKey(text string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)}
}

func typedKeys(text string) []tea.KeyMsg {
	keys := make([]tea.KeyMsg, 0, len(text))
	for _, character := range text {
		keys = append(keys, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{character}})
	}
	return keys
}

var (
	spaceKey  = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	escapeKey = tea.KeyMsg{Type: tea.KeyEsc}
	enterKey  = tea.KeyMsg{Type: tea.KeyEnter}
	downKey   = tea.KeyMsg{Type: tea.KeyDown}
	upKey     = tea.KeyMsg{Type: tea.KeyUp}
	ctrlCKey  = tea.KeyMsg{Type: tea.KeyCtrlC}
)

// drainUpdates feeds workspace updates through the model until no background work remains.
func drainUpdates(testInstance *testing.T, model tui.Model, workspace *branches.Workspace) tui.Model {
	testInstance.Helper()
	deadline := time.After(testDrainTimeout)
	for workspace.Busy() {
		select {
		case update := <-workspace.Updates():
			model = sendMessage(testInstance, model, tui.WorkspaceUpdateMsg{Update: update})
		case <-deadline:
			testInstance.Fatal("workspace did not become idle")
		}
	}
	return model
}

func loadedModel(testInstance *testing.T, gateway *memoryGateway) (tui.Model, *branches.Workspace) {
	testInstance.Helper()
	model, workspace := newTestModel(testInstance, gateway)
	model = pressKeys(testInstance, model, runeKey("r"))
	return drainUpdates(testInstance, model, workspace), workspace
}
