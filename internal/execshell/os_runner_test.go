package execshell_test

import (
	"context"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/branchprune/internal/execshell"
)

// git stands in for gh, which test machines often lack.
const gitExecutableName = execshell.CommandName("git")

func requireGit(testInstance *testing.T) {
	testInstance.Helper()
	if _, lookupError := exec.LookPath(string(gitExecutableName)); lookupError != nil {
		testInstance.Skip("git executable not available")
	}
}

func TestProcessRunnerCapturesOutputAndExitCode(testInstance *testing.T) {
	requireGit(testInstance)
	runner := execshell.NewProcessRunner()

	versionResult, versionError := runner.Run(context.Background(), execshell.ShellCommand{
		Name:    gitExecutableName,
		Details: execshell.CommandDetails{Arguments: []string{"--version"}},
	})
	require.NoError(testInstance, versionError)
	require.Zero(testInstance, versionResult.ExitCode)
	require.True(testInstance, strings.HasPrefix(versionResult.StandardOutput, "git version"))

	failureResult, failureError := runner.Run(context.Background(), execshell.ShellCommand{
		Name:    gitExecutableName,
		Details: execshell.CommandDetails{Arguments: []string{"rev-parse", "--verify", "refs/heads/branchprune-missing"}, WorkingDirectory: testInstance.TempDir()},
	})
	require.NoError(testInstance, failureError)
	require.NotZero(testInstance, failureResult.ExitCode)
	require.NotEmpty(testInstance, failureResult.StandardError)
}

func TestProcessRunnerPassesEnvironmentOverrides(testInstance *testing.T) {
	requireGit(testInstance)
	runner := execshell.NewProcessRunner()

	result, runError := runner.Run(context.Background(), execshell.ShellCommand{
		Name: gitExecutableName,
		Details: execshell.CommandDetails{
			Arguments:            []string{"var", "GIT_AUTHOR_IDENT"},
			EnvironmentVariables: map[string]string{"GIT_AUTHOR_NAME": "Branch Pruner", "GIT_AUTHOR_EMAIL": "pruner@example.com"},
		},
	})
	require.NoError(testInstance, runError)
	require.Zero(testInstance, result.ExitCode)
	require.Contains(testInstance, result.StandardOutput, "Branch Pruner <pruner@example.com>")
}

func TestProcessRunnerReportsLaunchFailure(testInstance *testing.T) {
	runner := execshell.NewProcessRunner()

	_, runError := runner.Run(context.Background(), execshell.ShellCommand{Name: execshell.CommandName("branchprune-missing-executable")})
	require.Error(testInstance, runError)
}
