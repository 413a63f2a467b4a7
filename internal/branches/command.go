package branches

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	listCommandUseConstant              = "list"
	listCommandShortDescriptionConstant = "Report every remote branch with its merge, pull request, and comparison status"
	listCommandLongDescriptionConstant  = "list fetches all remote branches of the repository, enriches them with pull request and comparison data, and prints a report."
	pruneCommandUseConstant             = "prune [branch...]"
	pruneCommandShortDescription        = "Delete merged or named remote branches after confirmation"
	pruneCommandLongDescription         = "prune deletes the named remote branches, or every merged branch that is identical to or behind the default branch when no names are given. Protected and default branches are never deleted."
	flagOutputNameConstant              = "output"
	flagOutputDescriptionConstant       = "Report format: table, yaml, or json"
	flagFilterNameConstant              = "filter"
	flagFilterDescriptionConstant       = "Only include branches whose name contains this text (case-insensitive)"
	flagSortNameConstant                = "sort"
	flagSortDescriptionConstant         = "Sort order: name, status, or merged"
	flagRepositoryNameConstant          = "repository"
	flagRepositoryDescriptionConstant   = "Repository in owner/name form (defaults to the current repository)"
	flagGatewayNameConstant             = "gateway"
	flagGatewayDescriptionConstant      = "Remote access method: cli (GitHub CLI) or api (REST with a token)"
	flagYesNameConstant                 = "yes"
	flagYesDescriptionConstant          = "Delete without asking for confirmation"
	flagDryRunNameConstant              = "dry-run"
	flagDryRunDescriptionConstant       = "Show which branches would be deleted without deleting them"
	fetchFailedTemplateConstant         = "branch fetch failed: %w"
	gatewayCreationTemplateConstant     = "unable to open repository gateway: %w"
	pruneSelectionTemplateConstant      = "cannot prune %s: %w"
	deletionIncompleteTemplateConstant  = "%w: %d of %d failed"
	dryRunNoticeConstant                = "Dry run: no branches deleted"
	deletionIncompleteMessageConstant   = "one or more branch deletions failed"
	gatewayFactoryMissingMessage        = "repository gateway factory not configured"
	outputLineTemplateConstant          = "%s\n"
)

var (
	// ErrDeletionIncomplete indicates at least one branch of a prune batch was not deleted.
	ErrDeletionIncomplete = errors.New(deletionIncompleteMessageConstant)

	errGatewayFactoryMissing = errors.New(gatewayFactoryMissingMessage)
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider supplies the branches configuration section.
type ConfigurationProvider func() CommandConfiguration

// GatewayFactory opens a repository gateway for the configuration.
type GatewayFactory func(executionContext context.Context, configuration CommandConfiguration, logger *zap.Logger) (RepositoryGateway, error)

// PrompterFactory constructs confirmation prompters scoped to a command.
type PrompterFactory func(command *cobra.Command) ConfirmationPrompter

// CommandBuilder assembles the list and prune Cobra commands.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	GatewayFactory        GatewayFactory
	PrompterFactory       PrompterFactory
}

// BuildList constructs the list command.
func (builder *CommandBuilder) BuildList() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   listCommandUseConstant,
		Short: listCommandShortDescriptionConstant,
		Long:  listCommandLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.runList,
	}

	command.Flags().String(flagOutputNameConstant, string(ReportFormatTable), flagOutputDescriptionConstant)
	command.Flags().String(flagFilterNameConstant, "", flagFilterDescriptionConstant)
	command.Flags().String(flagSortNameConstant, string(SortModeName), flagSortDescriptionConstant)
	AddRepositoryFlags(command)

	return command, nil
}

// BuildPrune constructs the prune command.
func (builder *CommandBuilder) BuildPrune() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   pruneCommandUseConstant,
		Short: pruneCommandShortDescription,
		Long:  pruneCommandLongDescription,
		RunE:  builder.runPrune,
	}

	command.Flags().Bool(flagYesNameConstant, false, flagYesDescriptionConstant)
	command.Flags().Bool(flagDryRunNameConstant, false, flagDryRunDescriptionConstant)
	AddRepositoryFlags(command)

	return command, nil
}

// AddRepositoryFlags registers the --repository and --gateway overrides on a command.
func AddRepositoryFlags(command *cobra.Command) {
	command.Flags().String(flagRepositoryNameConstant, "", flagRepositoryDescriptionConstant)
	command.Flags().String(flagGatewayNameConstant, "", flagGatewayDescriptionConstant)
}

// ResolveCommandConfiguration merges repository flag overrides into the configured section.
func ResolveCommandConfiguration(command *cobra.Command, provider ConfigurationProvider) (CommandConfiguration, error) {
	configuration := DefaultCommandConfiguration()
	if provider != nil {
		configuration = provider()
	}

	if command != nil {
		if command.Flags().Changed(flagRepositoryNameConstant) {
			configuration.Repository, _ = command.Flags().GetString(flagRepositoryNameConstant)
		}
		if command.Flags().Changed(flagGatewayNameConstant) {
			configuration.Gateway, _ = command.Flags().GetString(flagGatewayNameConstant)
		}
	}

	sanitized := configuration.Sanitize()
	if validationError := sanitized.ValidateGateway(); validationError != nil {
		return CommandConfiguration{}, validationError
	}
	return sanitized, nil
}

// AssembleWorkspace wires a pipeline, a deletion coordinator, and an update channel around the gateway.
func AssembleWorkspace(gateway RepositoryGateway, configuration CommandConfiguration, logger *zap.Logger, options WorkspaceOptions) (*Workspace, error) {
	pipelineOptions, optionsError := configuration.PipelineOptions()
	if optionsError != nil {
		return nil, optionsError
	}

	pipeline, pipelineError := NewFetchPipeline(gateway, logger, pipelineOptions)
	if pipelineError != nil {
		return nil, pipelineError
	}

	coordinator, coordinatorError := NewDeletionCoordinator(gateway, logger, pipelineOptions.Timeouts.Delete)
	if coordinatorError != nil {
		return nil, coordinatorError
	}

	return NewWorkspace(pipeline, coordinator, NewUpdateChannel(configuration.UpdateBuffer), logger, options)
}

func (builder *CommandBuilder) runList(command *cobra.Command, arguments []string) error {
	outputValue, _ := command.Flags().GetString(flagOutputNameConstant)
	reportFormat, formatError := ParseReportFormat(outputValue)
	if formatError != nil {
		return formatError
	}

	sortValue, _ := command.Flags().GetString(flagSortNameConstant)
	sortMode, sortError := ParseSortMode(sortValue)
	if sortError != nil {
		return sortError
	}

	filterValue, _ := command.Flags().GetString(flagFilterNameConstant)

	workspace, workspaceError := builder.openWorkspace(command)
	if workspaceError != nil {
		return workspaceError
	}
	workspace.SetFilterText(filterValue)
	workspace.ViewModel().SetSortMode(sortMode)

	if fetchError := fetchAll(command.Context(), workspace); fetchError != nil {
		return fetchError
	}

	identity := workspace.Identity()
	report := BranchReport{
		Repository:    identity.NameWithOwner,
		DefaultBranch: identity.DefaultBranch,
		Branches:      workspace.Rows(),
	}
	return RenderReport(command.OutOrStdout(), report, reportFormat)
}

func (builder *CommandBuilder) runPrune(command *cobra.Command, arguments []string) error {
	assumeYes, _ := command.Flags().GetBool(flagYesNameConstant)
	dryRun, _ := command.Flags().GetBool(flagDryRunNameConstant)

	workspace, workspaceError := builder.openWorkspace(command)
	if workspaceError != nil {
		return workspaceError
	}

	executionContext := command.Context()
	if fetchError := fetchAll(executionContext, workspace); fetchError != nil {
		return fetchError
	}

	if selectionError := selectPruneTargets(workspace, arguments); selectionError != nil {
		return selectionError
	}

	output := command.OutOrStdout()
	request, requestError := workspace.RequestDeletion()
	if errors.Is(requestError, ErrSelectionEmpty) {
		writeLine(output, workspace.Status().Text)
		return nil
	}
	if requestError != nil {
		return requestError
	}

	if dryRun {
		writeLine(output, strings.TrimSuffix(request.Text(), "\n"))
		writeLine(output, dryRunNoticeConstant)
		return nil
	}

	confirmation := ConfirmationAccepted
	if !assumeYes {
		var confirmationError error
		confirmation, confirmationError = builder.resolvePrompter(command).Confirm(request)
		if confirmationError != nil {
			return confirmationError
		}
	}

	if deletionError := workspace.StartDeletion(executionContext, request, confirmation); deletionError != nil {
		return deletionError
	}
	if confirmation != ConfirmationAccepted {
		writeLine(output, workspace.Status().Text)
		return nil
	}

	if waitError := workspace.AwaitIdle(executionContext); waitError != nil {
		return waitError
	}

	results := workspace.LastDeletionResults()
	for _, result := range results {
		writeLine(output, result.Message)
	}
	writeLine(output, workspace.Status().Text)

	if summary := Summarize(results); summary.FailureCount > 0 {
		return fmt.Errorf(deletionIncompleteTemplateConstant, ErrDeletionIncomplete, summary.FailureCount, len(results))
	}
	return nil
}

func selectPruneTargets(workspace *Workspace, branchNames []string) error {
	if len(branchNames) == 0 {
		workspace.AutoSelectMerged()
		return nil
	}

	uniqueNames := slices.Compact(slices.Sorted(slices.Values(branchNames)))
	for _, branchName := range uniqueNames {
		if _, toggleError := workspace.ToggleSelection(branchName); toggleError != nil {
			return fmt.Errorf(pruneSelectionTemplateConstant, branchName, toggleError)
		}
	}
	return nil
}

func fetchAll(executionContext context.Context, workspace *Workspace) error {
	if refreshError := workspace.StartRefresh(executionContext); refreshError != nil {
		return refreshError
	}
	if waitError := workspace.AwaitIdle(executionContext); waitError != nil {
		return waitError
	}
	if fetchError := workspace.LastFetchError(); fetchError != nil {
		return fmt.Errorf(fetchFailedTemplateConstant, fetchError)
	}
	return nil
}

func (builder *CommandBuilder) openWorkspace(command *cobra.Command) (*Workspace, error) {
	configuration, configurationError := ResolveCommandConfiguration(command, builder.ConfigurationProvider)
	if configurationError != nil {
		return nil, configurationError
	}

	if builder.GatewayFactory == nil {
		return nil, errGatewayFactoryMissing
	}

	logger := builder.resolveLogger()
	gateway, gatewayError := builder.GatewayFactory(command.Context(), configuration, logger)
	if gatewayError != nil {
		return nil, fmt.Errorf(gatewayCreationTemplateConstant, gatewayError)
	}

	return AssembleWorkspace(gateway, configuration, logger, WorkspaceOptions{RefreshAfterDeletion: false})
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}

	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}

	return logger
}

func (builder *CommandBuilder) resolvePrompter(command *cobra.Command) ConfirmationPrompter {
	if builder.PrompterFactory != nil {
		if prompter := builder.PrompterFactory(command); prompter != nil {
			return prompter
		}
	}
	return NewIOConfirmationPrompter(command.InOrStdin(), command.OutOrStdout())
}

func writeLine(writer io.Writer, line string) {
	fmt.Fprintf(writer, outputLineTemplateConstant, line)
}
