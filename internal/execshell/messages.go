package execshell

import (
	"fmt"
	"net/url"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	commandLabelTemplateConstant            = "%s%s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	commandArgumentsJoinSeparatorConstant   = " "
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
	fallbackUnknownValueLabelConstant       = "unknown"
)

const (
	githubRepoSubcommandNameConstant            = "repo"
	githubRepoViewSubcommandNameConstant        = "view"
	githubAuthSubcommandNameConstant            = "auth"
	githubAuthStatusSubcommandNameConstant      = "status"
	githubPullRequestSubcommandNameConstant     = "pr"
	githubPullRequestListSubcommandNameConstant = "list"
	githubAPICommandNameConstant                = "api"
	githubRepoFlagConstant                      = "--repo"
	githubStateFlagConstant                     = "--state"
	githubLimitFlagConstant                     = "--limit"
	githubMethodFlagConstant                    = "-X"
	githubDeleteMethodConstant                  = "DELETE"
	githubBranchesEndpointSuffixConstant        = "/branches"
	githubCompareEndpointMarkerConstant         = "/compare/"
	githubReferenceEndpointMarkerConstant       = "/git/refs/heads/"
	githubRepositoryEndpointPrefixConstant      = "repos/"
	githubCompareSeparatorConstant              = "..."
	githubQuerySeparatorConstant                = "?"
	githubCurrentRepositoryLabelConstant        = "current repository"
	githubRepoViewIdentificationArgumentCount   = 2
)

const (
	githubAuthStatusStartTemplateConstant            = "Checking GitHub CLI authentication"
	githubAuthStatusSuccessTemplateConstant          = "GitHub CLI is authenticated"
	githubAuthStatusFailureTemplateConstant          = "GitHub CLI is not authenticated (exit code %d%s)"
	githubAuthStatusExecutionFailureTemplateConstant = "Unable to check GitHub CLI authentication: %s"
	githubRepoViewStartTemplateConstant              = "Retrieving repository details for %s"
	githubRepoViewSuccessTemplateConstant            = "Retrieved repository details for %s"
	githubRepoViewFailureTemplateConstant            = "Failed to retrieve repository details for %s (exit code %d%s)"
	githubRepoViewExecutionFailureTemplateConstant   = "Unable to retrieve repository details for %s: %s"
	githubPullRequestListStartTemplateConstant       = "Listing %s pull requests for %s"
	githubPullRequestListSuccessTemplateConstant     = "Listed %s pull requests for %s"
	githubPullRequestListFailureTemplateConstant     = "Failed to list %s pull requests for %s (exit code %d%s)"
	githubPullRequestListExecutionFailureTemplate    = "Unable to list %s pull requests for %s: %s"
	githubBranchListStartTemplateConstant            = "Listing branches for %s"
	githubBranchListSuccessTemplateConstant          = "Listed branches for %s"
	githubBranchListFailureTemplateConstant          = "Failed to list branches for %s (exit code %d%s)"
	githubBranchListExecutionFailureTemplateConstant = "Unable to list branches for %s: %s"
	githubCompareStartTemplateConstant               = "Comparing %s against %s in %s"
	githubCompareSuccessTemplateConstant             = "Compared %s against %s in %s"
	githubCompareFailureTemplateConstant             = "Failed to compare %s against %s in %s (exit code %d%s)"
	githubCompareExecutionFailureTemplateConstant    = "Unable to compare %s against %s in %s: %s"
	githubBranchDeletionStartTemplateConstant        = "Deleting branch %s from %s"
	githubBranchDeletionSuccessTemplateConstant      = "Deleted branch %s from %s"
	githubBranchDeletionFailureTemplateConstant      = "Failed to delete branch %s from %s (exit code %d%s)"
	githubBranchDeletionExecutionFailureTemplate     = "Unable to delete branch %s from %s: %s"
)

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

// repo view runs on every refresh; its start message stays generic
func (formatter CommandMessageFormatter) shouldLogStartMessage(command ShellCommand) bool {
	if command.Name != CommandGitHub {
		return true
	}
	if formatter.isGitHubRepoViewCommand(command.Details.Arguments) {
		return false
	}
	return true
}

func (formatter CommandMessageFormatter) isGitHubRepoViewCommand(arguments []string) bool {
	if len(arguments) < githubRepoViewIdentificationArgumentCount {
		return false
	}
	primaryArgument := strings.TrimSpace(arguments[0])
	secondaryArgument := strings.TrimSpace(arguments[1])
	return primaryArgument == githubRepoSubcommandNameConstant && secondaryArgument == githubRepoViewSubcommandNameConstant
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	if command.Name == CommandGitHub {
		if message := formatter.describeGitHubMessage(command, result, failure, stage); len(message) > 0 {
			return message
		}
	}
	return formatter.buildGenericMessage(command, result, failure, stage)
}

func (formatter CommandMessageFormatter) describeGitHubMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	if len(arguments) == 0 {
		return emptyStringConstant
	}

	switch strings.TrimSpace(arguments[0]) {
	case githubAuthSubcommandNameConstant:
		return formatter.describeGitHubAuthCommand(arguments, result, failure, stage)
	case githubRepoSubcommandNameConstant:
		return formatter.describeGitHubRepoCommand(arguments, result, failure, stage)
	case githubPullRequestSubcommandNameConstant:
		return formatter.describeGitHubPullRequestList(arguments, result, failure, stage)
	case githubAPICommandNameConstant:
		return formatter.describeGitHubAPICommand(arguments, result, failure, stage)
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) describeGitHubAuthCommand(arguments []string, result ExecutionResult, failure error, stage messageStage) string {
	if len(arguments) < 2 || arguments[1] != githubAuthStatusSubcommandNameConstant {
		return emptyStringConstant
	}
	switch stage {
	case messageStageStart:
		return githubAuthStatusStartTemplateConstant
	case messageStageSuccess:
		return githubAuthStatusSuccessTemplateConstant
	case messageStageFailure:
		return fmt.Sprintf(githubAuthStatusFailureTemplateConstant, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(githubAuthStatusExecutionFailureTemplateConstant, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) describeGitHubRepoCommand(arguments []string, result ExecutionResult, failure error, stage messageStage) string {
	if !formatter.isGitHubRepoViewCommand(arguments) {
		return emptyStringConstant
	}

	repositoryLabel := githubCurrentRepositoryLabelConstant
	if candidate := formatter.argumentAtIndex(arguments, 2); len(candidate) > 0 && !strings.HasPrefix(candidate, "-") {
		repositoryLabel = candidate
	}

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(githubRepoViewStartTemplateConstant, repositoryLabel)
	case messageStageSuccess:
		return fmt.Sprintf(githubRepoViewSuccessTemplateConstant, repositoryLabel)
	case messageStageFailure:
		return fmt.Sprintf(githubRepoViewFailureTemplateConstant, repositoryLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(githubRepoViewExecutionFailureTemplateConstant, repositoryLabel, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) describeGitHubPullRequestList(arguments []string, result ExecutionResult, failure error, stage messageStage) string {
	if len(arguments) < 2 || arguments[1] != githubPullRequestListSubcommandNameConstant {
		return emptyStringConstant
	}

	stateLabel := formatter.ensureValue(findFlagValue(arguments, githubStateFlagConstant))
	repositoryLabel := findFlagValue(arguments, githubRepoFlagConstant)
	if len(repositoryLabel) == 0 {
		repositoryLabel = githubCurrentRepositoryLabelConstant
	}

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(githubPullRequestListStartTemplateConstant, stateLabel, repositoryLabel)
	case messageStageSuccess:
		return fmt.Sprintf(githubPullRequestListSuccessTemplateConstant, stateLabel, repositoryLabel)
	case messageStageFailure:
		return fmt.Sprintf(githubPullRequestListFailureTemplateConstant, stateLabel, repositoryLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(githubPullRequestListExecutionFailureTemplate, stateLabel, repositoryLabel, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) describeGitHubAPICommand(arguments []string, result ExecutionResult, failure error, stage messageStage) string {
	endpoint := formatter.extractEndpoint(arguments)
	if len(endpoint) == 0 {
		return emptyStringConstant
	}
	standardErrorSuffix := formatter.formatStandardErrorSuffix(result.StandardError)

	if strings.EqualFold(findFlagValue(arguments, githubMethodFlagConstant), githubDeleteMethodConstant) && strings.Contains(endpoint, githubReferenceEndpointMarkerConstant) {
		repository, branchName := formatter.splitEndpoint(endpoint, githubReferenceEndpointMarkerConstant)
		switch stage {
		case messageStageStart:
			return fmt.Sprintf(githubBranchDeletionStartTemplateConstant, branchName, repository)
		case messageStageSuccess:
			return fmt.Sprintf(githubBranchDeletionSuccessTemplateConstant, branchName, repository)
		case messageStageFailure:
			return fmt.Sprintf(githubBranchDeletionFailureTemplateConstant, branchName, repository, result.ExitCode, standardErrorSuffix)
		default:
			return fmt.Sprintf(githubBranchDeletionExecutionFailureTemplate, branchName, repository, formatter.describeFailure(failure))
		}
	}

	if strings.Contains(endpoint, githubCompareEndpointMarkerConstant) {
		repository, comparison := formatter.splitEndpoint(endpoint, githubCompareEndpointMarkerConstant)
		baseBranch, headBranch := formatter.splitComparison(comparison)
		switch stage {
		case messageStageStart:
			return fmt.Sprintf(githubCompareStartTemplateConstant, headBranch, baseBranch, repository)
		case messageStageSuccess:
			return fmt.Sprintf(githubCompareSuccessTemplateConstant, headBranch, baseBranch, repository)
		case messageStageFailure:
			return fmt.Sprintf(githubCompareFailureTemplateConstant, headBranch, baseBranch, repository, result.ExitCode, standardErrorSuffix)
		default:
			return fmt.Sprintf(githubCompareExecutionFailureTemplateConstant, headBranch, baseBranch, repository, formatter.describeFailure(failure))
		}
	}

	endpointPath := strings.SplitN(endpoint, githubQuerySeparatorConstant, 2)[0]
	if strings.HasSuffix(endpointPath, githubBranchesEndpointSuffixConstant) {
		repository := strings.TrimSuffix(strings.TrimPrefix(endpointPath, githubRepositoryEndpointPrefixConstant), githubBranchesEndpointSuffixConstant)
		switch stage {
		case messageStageStart:
			return fmt.Sprintf(githubBranchListStartTemplateConstant, repository)
		case messageStageSuccess:
			return fmt.Sprintf(githubBranchListSuccessTemplateConstant, repository)
		case messageStageFailure:
			return fmt.Sprintf(githubBranchListFailureTemplateConstant, repository, result.ExitCode, standardErrorSuffix)
		default:
			return fmt.Sprintf(githubBranchListExecutionFailureTemplateConstant, repository, formatter.describeFailure(failure))
		}
	}

	return emptyStringConstant
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := formatter.formatCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	commandParts := []string{string(command.Name)}
	if len(command.Details.Arguments) > 0 {
		commandParts = append(commandParts, strings.Join(command.Details.Arguments, commandArgumentsJoinSeparatorConstant))
	}
	commandLabel := strings.Join(commandParts, commandArgumentsJoinSeparatorConstant)
	return fmt.Sprintf(commandLabelTemplateConstant, commandLabel, formatter.formatWorkingDirectorySuffix(command))
}

func (formatter CommandMessageFormatter) formatWorkingDirectorySuffix(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func (formatter CommandMessageFormatter) argumentAtIndex(arguments []string, index int) string {
	if index < 0 || index >= len(arguments) {
		return emptyStringConstant
	}
	return strings.TrimSpace(arguments[index])
}

func (formatter CommandMessageFormatter) ensureValue(value string) string {
	trimmedValue := strings.TrimSpace(value)
	if len(trimmedValue) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	return trimmedValue
}

func (formatter CommandMessageFormatter) extractEndpoint(arguments []string) string {
	for argumentIndex := 1; argumentIndex < len(arguments); argumentIndex++ {
		candidate := strings.TrimSpace(arguments[argumentIndex])
		if strings.HasPrefix(candidate, githubRepositoryEndpointPrefixConstant) {
			return candidate
		}
	}
	return emptyStringConstant
}

func (formatter CommandMessageFormatter) splitEndpoint(endpoint string, marker string) (string, string) {
	markerIndex := strings.Index(endpoint, marker)
	if markerIndex == -1 {
		return formatter.ensureValue(emptyStringConstant), formatter.ensureValue(emptyStringConstant)
	}
	repository := strings.TrimPrefix(endpoint[:markerIndex], githubRepositoryEndpointPrefixConstant)
	remainder := endpoint[markerIndex+len(marker):]
	if unescaped, unescapeError := url.PathUnescape(remainder); unescapeError == nil {
		remainder = unescaped
	}
	return formatter.ensureValue(repository), formatter.ensureValue(remainder)
}

func (formatter CommandMessageFormatter) splitComparison(comparison string) (string, string) {
	parts := strings.SplitN(comparison, githubCompareSeparatorConstant, 2)
	if len(parts) != 2 {
		return formatter.ensureValue(emptyStringConstant), formatter.ensureValue(comparison)
	}
	return formatter.ensureValue(parts[0]), formatter.ensureValue(parts[1])
}

func findFlagValue(arguments []string, flag string) string {
	for argumentIndex := 0; argumentIndex < len(arguments)-1; argumentIndex++ {
		if arguments[argumentIndex] == flag {
			return strings.TrimSpace(arguments[argumentIndex+1])
		}
	}
	return emptyStringConstant
}
