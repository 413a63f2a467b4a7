package tui

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	branches "github.com/temirov/branchprune/internal/branches"
)

const (
	tuiCommandUseConstant              = "tui"
	tuiCommandShortDescriptionConstant = "Browse, select, and delete remote branches interactively"
	tuiCommandLongDescriptionConstant  = "tui opens an interactive branch browser that streams branch status as it is fetched and deletes the selected branches after confirmation."
	gatewayCreationTemplateConstant    = "unable to open repository gateway: %w"
	programFailedTemplateConstant      = "interactive session failed: %w"
	gatewayFactoryMissingMessage       = "repository gateway factory not configured"
)

var errGatewayFactoryMissing = errors.New(gatewayFactoryMissingMessage)

// ProgramOptionsProvider supplies Bubble Tea program options for a command invocation.
type ProgramOptionsProvider func(command *cobra.Command) []tea.ProgramOption

// CommandBuilder assembles the interactive tui command.
type CommandBuilder struct {
	LoggerProvider         branches.LoggerProvider
	ConfigurationProvider  branches.ConfigurationProvider
	GatewayFactory         branches.GatewayFactory
	ProgramOptionsProvider ProgramOptionsProvider
}

// Build constructs the tui command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   tuiCommandUseConstant,
		Short: tuiCommandShortDescriptionConstant,
		Long:  tuiCommandLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}

	branches.AddRepositoryFlags(command)

	return command, nil
}

// Run executes the interactive session for an already parsed command. The root command delegates here
// so that invoking the binary without a subcommand opens the browser.
func (builder *CommandBuilder) Run(command *cobra.Command, arguments []string) error {
	return builder.run(command, arguments)
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration, configurationError := branches.ResolveCommandConfiguration(command, builder.ConfigurationProvider)
	if configurationError != nil {
		return configurationError
	}
	if builder.GatewayFactory == nil {
		return errGatewayFactoryMissing
	}

	executionContext := command.Context()
	logger := builder.resolveLogger()
	gateway, gatewayError := builder.GatewayFactory(executionContext, configuration, logger)
	if gatewayError != nil {
		return fmt.Errorf(gatewayCreationTemplateConstant, gatewayError)
	}

	workspace, workspaceError := branches.AssembleWorkspace(gateway, configuration, logger, branches.WorkspaceOptions{RefreshAfterDeletion: configuration.RefreshAfterDeletion})
	if workspaceError != nil {
		return workspaceError
	}

	modelOptions := ModelOptions{Logger: logger}
	if checker, supportsCheck := gateway.(AuthenticationChecker); supportsCheck {
		modelOptions.AuthenticationChecker = checker
	}
	model, modelError := NewModel(executionContext, workspace, modelOptions)
	if modelError != nil {
		return modelError
	}

	program := tea.NewProgram(model, builder.programOptions(command)...)
	if _, runError := program.Run(); runError != nil {
		return fmt.Errorf(programFailedTemplateConstant, runError)
	}
	return nil
}

func (builder *CommandBuilder) programOptions(command *cobra.Command) []tea.ProgramOption {
	if builder.ProgramOptionsProvider != nil {
		return builder.ProgramOptionsProvider(command)
	}
	return []tea.ProgramOption{
		tea.WithAltScreen(),
		tea.WithContext(command.Context()),
		tea.WithInput(command.InOrStdin()),
		tea.WithOutput(command.OutOrStdout()),
	}
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
