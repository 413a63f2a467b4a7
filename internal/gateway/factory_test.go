package gateway_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/branchprune/internal/branches"
	"github.com/temirov/branchprune/internal/execshell"
	"github.com/temirov/branchprune/internal/gateway"
	"github.com/temirov/branchprune/internal/githubauth"
)

type recordingCommandRunner struct {
	commands []execshell.ShellCommand
}

func (runner *recordingCommandRunner) Run(_ context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	runner.commands = append(runner.commands, command)
	return execshell.ExecutionResult{StandardOutput: repoViewResponseConstant}, nil
}

func clearTokenEnvironment(testInstance *testing.T) {
	testInstance.Helper()
	for _, key := range []string{githubauth.EnvGitHubCLIToken, githubauth.EnvGitHubToken, githubauth.EnvGitHubAPIToken} {
		testInstance.Setenv(key, "")
	}
}

func TestFactoryOpensCLIGateway(testInstance *testing.T) {
	runner := &recordingCommandRunner{}
	factory := gateway.Factory{CommandRunner: runner}
	configuration := branches.DefaultCommandConfiguration()
	configuration.Repository = testRepositoryConstant

	repositoryGateway, openError := factory.Open(context.Background(), configuration, zap.NewNop())
	require.NoError(testInstance, openError)
	require.IsType(testInstance, &gateway.CLIGateway{}, repositoryGateway)

	identity, identityError := repositoryGateway.ResolveIdentity(context.Background())
	require.NoError(testInstance, identityError)
	require.Equal(testInstance, testDefaultBranchConstant, identity.DefaultBranch)
	require.Len(testInstance, runner.commands, 1)
	require.Equal(testInstance, execshell.CommandGitHub, runner.commands[0].Name)
	require.Equal(testInstance, []string{"repo", "view", testRepositoryConstant, "--json", "nameWithOwner,defaultBranchRef"}, runner.commands[0].Details.Arguments)
}

func TestFactoryOpensAPIGatewayWithConfiguredRepository(testInstance *testing.T) {
	fakeAPI := newFakeGitHubAPI(testInstance)
	factory := gateway.Factory{
		Environment: map[string]string{githubauth.EnvGitHubToken: apiTestTokenConstant},
		APIBaseURL:  fakeAPI.server.URL,
	}
	configuration := branches.DefaultCommandConfiguration()
	configuration.Gateway = "API"
	configuration.Repository = testRepositoryConstant

	repositoryGateway, openError := factory.Open(context.Background(), configuration, nil)
	require.NoError(testInstance, openError)
	require.IsType(testInstance, &gateway.APIGateway{}, repositoryGateway)

	identity, identityError := repositoryGateway.ResolveIdentity(context.Background())
	require.NoError(testInstance, identityError)
	require.Equal(testInstance, testRepositoryConstant, identity.NameWithOwner)
	require.Equal(testInstance, []string{"Bearer " + apiTestTokenConstant}, fakeAPI.authorizations)
}

func TestFactoryDetectsRepositoryFromRemote(testInstance *testing.T) {
	repositoryPath := testInstance.TempDir()
	repository, initError := git.PlainInit(repositoryPath, false)
	require.NoError(testInstance, initError)
	_, remoteError := repository.CreateRemote(&config.RemoteConfig{Name: "upstream", URLs: []string{"https://github.com/octo/widgets.git"}})
	require.NoError(testInstance, remoteError)

	fakeAPI := newFakeGitHubAPI(testInstance)
	factory := gateway.Factory{
		Environment:      map[string]string{githubauth.EnvGitHubCLIToken: apiTestTokenConstant},
		WorkingDirectory: repositoryPath,
		APIBaseURL:       fakeAPI.server.URL + "/",
	}
	configuration := branches.DefaultCommandConfiguration()
	configuration.Gateway = branches.GatewayKindAPI
	configuration.RemoteName = "upstream"

	repositoryGateway, openError := factory.Open(context.Background(), configuration, zap.NewNop())
	require.NoError(testInstance, openError)

	branchNames, listError := repositoryGateway.ListBranchNames(context.Background())
	require.NoError(testInstance, listError)
	require.Len(testInstance, branchNames, 3)
}

func TestFactoryOpenFailures(testInstance *testing.T) {
	testCases := []struct {
		name          string
		factory       gateway.Factory
		configure     func(*branches.CommandConfiguration)
		expectedError error
		expectedText  string
	}{
		{
			name:    "missing_token",
			factory: gateway.Factory{},
			configure: func(configuration *branches.CommandConfiguration) {
				configuration.Gateway = branches.GatewayKindAPI
				configuration.Repository = testRepositoryConstant
			},
			expectedError: githubauth.ErrTokenNotFound,
		},
		{
			name:    "no_repository_remote",
			factory: gateway.Factory{Environment: map[string]string{githubauth.EnvGitHubToken: apiTestTokenConstant}},
			configure: func(configuration *branches.CommandConfiguration) {
				configuration.Gateway = branches.GatewayKindAPI
			},
			expectedError: git.ErrRepositoryNotExists,
		},
		{
			name:    "unsupported_kind",
			factory: gateway.Factory{},
			configure: func(configuration *branches.CommandConfiguration) {
				configuration.Gateway = "graphql"
			},
			expectedText: "unsupported gateway",
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subTest *testing.T) {
			clearTokenEnvironment(subTest)
			factory := testCase.factory
			factory.WorkingDirectory = subTest.TempDir()
			configuration := branches.DefaultCommandConfiguration()
			testCase.configure(&configuration)

			repositoryGateway, openError := factory.Open(context.Background(), configuration, zap.NewNop())
			require.Nil(subTest, repositoryGateway)
			if testCase.expectedError != nil {
				require.ErrorIs(subTest, openError, testCase.expectedError)
				return
			}
			require.ErrorContains(subTest, openError, testCase.expectedText)
		})
	}
}
