package cli

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/branchprune/internal/branches"
	"github.com/temirov/branchprune/internal/execshell"
	"github.com/temirov/branchprune/internal/gateway"
	"github.com/temirov/branchprune/internal/tui"
	"github.com/temirov/branchprune/internal/ui"
	"github.com/temirov/branchprune/internal/utils"
)

const (
	applicationNameConstant                 = "branchprune"
	applicationShortDescriptionConstant     = "Audit and prune the remote branches of a GitHub repository"
	applicationLongDescriptionConstant      = "branchprune lists every remote branch of a GitHub repository with its merge, pull request, and comparison status, and deletes the branches you select. Running it without a subcommand opens the interactive browser."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Override the configured log level."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Override the configured log format (structured or console)."
	logFileFlagNameConstant                 = "log-file"
	logFileFlagUsageConstant                = "Write logs to this file instead of standard error."
	commonConfigurationKeyConstant          = "common"
	commonLogLevelConfigKeyConstant         = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant        = commonConfigurationKeyConstant + ".log_format"
	commonLogFileConfigKeyConstant          = commonConfigurationKeyConstant + ".log_file"
	branchesConfigurationKeyConstant        = "branches"
	environmentPrefixConstant               = "BRANCHPRUNE"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	configurationGatewayFieldConstant       = "gateway"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	commandBuildErrorTemplateConstant       = "unable to build %s command: %w"
	defaultConfigurationSearchPathConstant  = "."
	interactiveAnnotationKeyConstant        = "branchprune.interactive"
	interactiveAnnotationValueConstant      = "true"
	listCommandNameConstant                 = "list"
	pruneCommandNameConstant                = "prune"
	tuiCommandNameConstant                  = "tui"
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common   ApplicationCommonConfiguration `mapstructure:"common"`
	Branches branches.CommandConfiguration  `mapstructure:"branches"`
}

// ApplicationCommonConfiguration stores logging configuration shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	LogFile   string `mapstructure:"log_file"`
}

// ApplicationOption customizes an Application during construction.
type ApplicationOption func(*Application)

// WithGatewayFactory replaces the repository gateway factory used by every command.
func WithGatewayFactory(factory branches.GatewayFactory) ApplicationOption {
	return func(application *Application) {
		if factory != nil {
			application.gatewayFactory = factory
		}
	}
}

// WithProgramOptionsProvider replaces the Bubble Tea program options of the interactive browser.
func WithProgramOptionsProvider(provider tui.ProgramOptionsProvider) ApplicationOption {
	return func(application *Application) {
		application.programOptionsProvider = provider
	}
}

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand            *cobra.Command
	configurationLoader    *utils.ConfigurationLoader
	loggerFactory          *utils.LoggerFactory
	logger                 *zap.Logger
	configuration          ApplicationConfiguration
	configurationMetadata  utils.LoadedConfiguration
	configurationFilePath  string
	logLevelFlagValue      string
	logFormatFlagValue     string
	logFileFlagValue       string
	gatewayFactory         branches.GatewayFactory
	programOptionsProvider tui.ProgramOptionsProvider
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication(options ...ApplicationOption) (*Application, error) {
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		configurationSearchPaths(),
	)
	embeddedConfiguration, embeddedConfigurationType := EmbeddedDefaultConfiguration()
	configurationLoader.SetEmbeddedConfiguration(embeddedConfiguration, embeddedConfigurationType)

	application := &Application{
		configurationLoader: configurationLoader,
		loggerFactory:       utils.NewLoggerFactory(),
		logger:              zap.NewNop(),
	}
	application.gatewayFactory = application.openGateway
	for _, option := range options {
		option(application)
	}

	interactiveBuilder := &tui.CommandBuilder{
		LoggerProvider:         application.loggerProvider,
		ConfigurationProvider:  application.branchesConfiguration,
		GatewayFactory:         application.gatewayFactory,
		ProgramOptionsProvider: application.programOptionsProvider,
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		Annotations:   map[string]string{interactiveAnnotationKeyConstant: interactiveAnnotationValueConstant},
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: interactiveBuilder.Run,
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", logFormatFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logFileFlagValue, logFileFlagNameConstant, "", logFileFlagUsageConstant)
	branches.AddRepositoryFlags(cobraCommand)

	branchesBuilder := &branches.CommandBuilder{
		LoggerProvider:        application.loggerProvider,
		ConfigurationProvider: application.branchesConfiguration,
		GatewayFactory:        application.gatewayFactory,
	}

	listCommand, listBuildError := branchesBuilder.BuildList()
	if listBuildError != nil {
		return nil, fmt.Errorf(commandBuildErrorTemplateConstant, listCommandNameConstant, listBuildError)
	}
	pruneCommand, pruneBuildError := branchesBuilder.BuildPrune()
	if pruneBuildError != nil {
		return nil, fmt.Errorf(commandBuildErrorTemplateConstant, pruneCommandNameConstant, pruneBuildError)
	}
	interactiveCommand, interactiveBuildError := interactiveBuilder.Build()
	if interactiveBuildError != nil {
		return nil, fmt.Errorf(commandBuildErrorTemplateConstant, tuiCommandNameConstant, interactiveBuildError)
	}
	interactiveCommand.Annotations = map[string]string{interactiveAnnotationKeyConstant: interactiveAnnotationValueConstant}

	cobraCommand.AddCommand(listCommand, pruneCommand, interactiveCommand)
	application.rootCommand = cobraCommand

	return application, nil
}

// RootCommand exposes the Cobra root so callers can adjust arguments and streams before execution.
func (application *Application) RootCommand() *cobra.Command {
	return application.rootCommand
}

// Configuration returns the configuration resolved by the latest command execution.
func (application *Application) Configuration() ApplicationConfiguration {
	return application.configuration
}

// Execute runs the configured Cobra command hierarchy and ensures logger flushing.
func (application *Application) Execute() error {
	executionError := application.rootCommand.Execute()
	if syncError := application.flushLogger(); syncError != nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	application, applicationError := NewApplication()
	if applicationError != nil {
		return applicationError
	}
	return application.Execute()
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant: string(utils.LogFormatStructured),
		commonLogFileConfigKeyConstant:   "",
	}
	for configurationKey, configurationValue := range branches.DefaultConfigurationValues(branchesConfigurationKeyConstant) {
		defaultValues[configurationKey] = configurationValue
	}

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(utils.ExpandHomePath(application.configurationFilePath, nil), defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}
	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}
	if application.persistentFlagChanged(command, logFileFlagNameConstant) {
		application.configuration.Common.LogFile = application.logFileFlagValue
	}

	logger, loggerCreationError := application.createLogger(command)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}
	application.logger = logger

	application.logger.Info(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
		zap.String(configurationGatewayFieldConstant, application.configuration.Branches.Gateway),
	)

	return nil
}

// createLogger builds the diagnostic logger. The interactive browser owns the terminal, so without
// a log file it runs with a no-op logger instead of writing over the screen.
func (application *Application) createLogger(command *cobra.Command) (*zap.Logger, error) {
	logFile := utils.ExpandHomePath(application.configuration.Common.LogFile, nil)
	if len(logFile) == 0 && isInteractiveCommand(command) {
		if _, validationError := application.loggerFactory.CreateLoggerWithOutput(
			utils.LogLevel(application.configuration.Common.LogLevel),
			utils.LogFormat(application.configuration.Common.LogFormat),
			"",
		); validationError != nil {
			return nil, validationError
		}
		return zap.NewNop(), nil
	}

	return application.loggerFactory.CreateLoggerWithOutput(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
		logFile,
	)
}

func isInteractiveCommand(command *cobra.Command) bool {
	if command == nil {
		return false
	}
	return command.Annotations[interactiveAnnotationKeyConstant] == interactiveAnnotationValueConstant
}

func (application *Application) loggerProvider() *zap.Logger {
	return application.logger
}

func (application *Application) branchesConfiguration() branches.CommandConfiguration {
	return application.configuration.Branches
}

// openGateway opens the configured gateway and traces every GitHub CLI invocation at debug level.
func (application *Application) openGateway(executionContext context.Context, configuration branches.CommandConfiguration, logger *zap.Logger) (branches.RepositoryGateway, error) {
	factory := gateway.Factory{
		Observers: []execshell.CommandEventObserver{ui.NewCommandTraceLogger(logger, nil)},
	}
	return factory.Open(executionContext, configuration, logger)
}

func (application *Application) flushLogger() error {
	return application.syncLoggerInstance(application.logger)
}

func (application *Application) syncLoggerInstance(logger *zap.Logger) error {
	if logger == nil {
		return nil
	}

	syncError := logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	case errors.Is(syncError, syscall.ENOTTY):
		return nil
	default:
		return syncError
	}
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}

	rootCommand := command.Root()
	if rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet == nil {
			continue
		}

		if flagSet.Changed(flagName) {
			return true
		}
	}

	return false
}
