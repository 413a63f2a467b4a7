package gateway

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v66/github"
	"go.uber.org/zap"

	"github.com/temirov/branchprune/internal/branches"
	"github.com/temirov/branchprune/internal/execshell"
	"github.com/temirov/branchprune/internal/githubauth"
	"github.com/temirov/branchprune/internal/githubcli"
	"github.com/temirov/branchprune/internal/gitrepo"
)

const (
	currentDirectoryConstant        = "."
	baseURLTrailingSlashConstant    = "/"
	apiBaseURLParseTemplateConstant = "invalid api base url %q: %w"
	repositoryDetectionTemplate     = "unable to determine repository from remote %s: %w"
	unsupportedGatewayKindTemplate  = "unsupported gateway %q"
	logMessageGatewayOpenedConstant = "Repository gateway opened"
	logFieldGatewayKindConstant     = "gateway"
	logFieldRepositoryConstant      = "repository"
)

// Factory opens repository gateways from the branches configuration.
type Factory struct {
	CommandRunner    execshell.CommandRunner
	Observers        []execshell.CommandEventObserver
	Environment      map[string]string
	WorkingDirectory string
	APIBaseURL       string
}

// Open returns a CLIGateway or an APIGateway depending on configuration.Gateway.
// Its signature matches branches.GatewayFactory.
func (factory Factory) Open(executionContext context.Context, configuration branches.CommandConfiguration, logger *zap.Logger) (branches.RepositoryGateway, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch configuration.Sanitize().Gateway {
	case branches.GatewayKindCLI:
		return factory.openCLIGateway(configuration, logger)
	case branches.GatewayKindAPI:
		return factory.openAPIGateway(configuration, logger)
	default:
		return nil, fmt.Errorf(unsupportedGatewayKindTemplate, configuration.Gateway)
	}
}

func (factory Factory) openCLIGateway(configuration branches.CommandConfiguration, logger *zap.Logger) (branches.RepositoryGateway, error) {
	commandRunner := factory.CommandRunner
	if commandRunner == nil {
		commandRunner = execshell.NewProcessRunner()
	}

	executor, executorError := execshell.NewShellExecutor(logger, commandRunner, factory.Observers...)
	if executorError != nil {
		return nil, executorError
	}

	client, clientError := githubcli.NewClient(executor)
	if clientError != nil {
		return nil, clientError
	}

	logger.Debug(logMessageGatewayOpenedConstant, zap.String(logFieldGatewayKindConstant, branches.GatewayKindCLI), zap.String(logFieldRepositoryConstant, configuration.Repository))
	cliGateway, gatewayError := NewCLIGateway(client, configuration.Repository)
	if gatewayError != nil {
		return nil, gatewayError
	}
	return cliGateway, nil
}

func (factory Factory) openAPIGateway(configuration branches.CommandConfiguration, logger *zap.Logger) (branches.RepositoryGateway, error) {
	token, tokenError := githubauth.RequireToken(factory.Environment)
	if tokenError != nil {
		return nil, tokenError
	}

	repository := strings.TrimSpace(configuration.Repository)
	if len(repository) == 0 {
		workingDirectory := factory.WorkingDirectory
		if len(workingDirectory) == 0 {
			workingDirectory = currentDirectoryConstant
		}
		remoteURL, remoteError := gitrepo.ResolveRemoteURL(workingDirectory, configuration.RemoteName)
		if remoteError != nil {
			return nil, fmt.Errorf(repositoryDetectionTemplate, configuration.RemoteName, remoteError)
		}
		repository = remoteURL.NameWithOwner()
	}

	client := gh.NewClient(nil).WithAuthToken(token)
	if len(factory.APIBaseURL) > 0 {
		baseURL, parseError := url.Parse(strings.TrimSuffix(factory.APIBaseURL, baseURLTrailingSlashConstant) + baseURLTrailingSlashConstant)
		if parseError != nil {
			return nil, fmt.Errorf(apiBaseURLParseTemplateConstant, factory.APIBaseURL, parseError)
		}
		client.BaseURL = baseURL
	}

	logger.Debug(logMessageGatewayOpenedConstant, zap.String(logFieldGatewayKindConstant, branches.GatewayKindAPI), zap.String(logFieldRepositoryConstant, repository))
	apiGateway, gatewayError := NewAPIGateway(client, repository)
	if gatewayError != nil {
		return nil, gatewayError
	}
	return apiGateway, nil
}
