package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/autopush/internal/execshell"
	"github.com/tyemirov/autopush/internal/gitsync"
	"github.com/tyemirov/autopush/internal/pipeline"
	"github.com/tyemirov/autopush/internal/pipeline/steps"
	"github.com/tyemirov/autopush/internal/process"
	"github.com/tyemirov/autopush/internal/utils"
	flagutils "github.com/tyemirov/autopush/internal/utils/flags"
	"github.com/tyemirov/autopush/internal/version"
)

const (
	applicationNameConstant                         = "autopush"
	applicationShortDescriptionConstant             = "Run a CLI application, then commit and push the working tree"
	applicationLongDescriptionConstant              = "autopush runs the configured child program with the terminal attached and, when it exits successfully, stages, commits, and pushes every change. Git failures are reported but do not fail the run."
	configFileFlagNameConstant                      = "config"
	configFileFlagUsageConstant                     = "Optional path to a configuration file (YAML)."
	logLevelFlagNameConstant                        = "log-level"
	logLevelFlagUsageConstant                       = "Override the configured log level (debug, info, warn, error)."
	logFormatFlagNameConstant                       = "log-format"
	logFormatFlagUsageConstant                      = "Override the configured log format (structured or console)."
	environmentPrefixConstant                       = "AUTOPUSH"
	configurationNameConstant                       = "config"
	configurationTypeConstant                       = "yaml"
	configurationLoadErrorTemplateConstant          = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant             = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant                 = "unable to flush logger: %w"
	configurationInitializedMessageConstant         = "configuration initialized"
	configurationInitializedConsoleTemplateConstant = "%s | log level=%s | log format=%s | config file=%s"
	configurationLogLevelFieldConstant              = "log_level"
	configurationLogFormatFieldConstant             = "log_format"
	configurationFileFieldConstant                  = "config_file"
)

type loggerOutputsCreator interface {
	CreateLoggerOutputs(level utils.LogLevel, format utils.LogFormat) (utils.LoggerOutputs, error)
}

// Application owns the command tree and the collaborators the pipelines run against.
type Application struct {
	rootCommand           *cobra.Command
	configurationLoader   *utils.ConfigurationLoader
	loggerFactory         loggerOutputsCreator
	logger                *zap.Logger
	consoleLogger         *zap.Logger
	configuration         ApplicationConfiguration
	configurationMetadata utils.LoadedConfiguration
	spawner               process.Spawner
	commandRunner         execshell.CommandRunner
	fileSystem            afero.Fs
	sleep                 steps.SleepFunction
	clock                 gitsync.Clock
	outputWriter          io.Writer
	versionResolver       func() string
}

// ApplicationOption customizes an Application before its commands are built.
type ApplicationOption func(*Application)

// WithProcessSpawner replaces the spawner used to start the child program.
func WithProcessSpawner(spawner process.Spawner) ApplicationOption {
	return func(application *Application) {
		application.spawner = spawner
	}
}

// WithCommandRunner replaces the runner used for git shell commands.
func WithCommandRunner(commandRunner execshell.CommandRunner) ApplicationOption {
	return func(application *Application) {
		application.commandRunner = commandRunner
	}
}

// WithFileSystem replaces the file system used by process-file.
func WithFileSystem(fileSystem afero.Fs) ApplicationOption {
	return func(application *Application) {
		application.fileSystem = fileSystem
	}
}

// WithSleepFunction replaces the pause used by process-file.
func WithSleepFunction(sleep steps.SleepFunction) ApplicationOption {
	return func(application *Application) {
		application.sleep = sleep
	}
}

// WithClock replaces the clock used for commit messages.
func WithClock(clock gitsync.Clock) ApplicationOption {
	return func(application *Application) {
		application.clock = clock
	}
}

// WithLogWriter sends every log line to writer instead of standard error.
func WithLogWriter(writer io.Writer) ApplicationOption {
	return func(application *Application) {
		application.loggerFactory = utils.NewLoggerFactoryWithWriter(writer)
	}
}

// WithOutputWriter sends command output, such as the rendered configuration, to writer.
func WithOutputWriter(writer io.Writer) ApplicationOption {
	return func(application *Application) {
		application.outputWriter = writer
	}
}

// NewApplication builds the command tree with production collaborators unless options replace them.
func NewApplication(options ...ApplicationOption) *Application {
	application := &Application{
		loggerFactory:   utils.NewLoggerFactory(),
		logger:          zap.NewNop(),
		consoleLogger:   zap.NewNop(),
		spawner:         process.NewInheritedStdioSpawner(),
		commandRunner:   execshell.NewOSCommandRunner(),
		fileSystem:      afero.NewOsFs(),
		versionResolver: version.Detect,
	}
	for _, option := range options {
		if option != nil {
			option(application)
		}
	}

	application.configurationLoader = newConfigurationLoader(configurationSearchPaths(os.Getenv))
	application.rootCommand = application.newRootCommand()
	return application
}

func newConfigurationLoader(searchPaths []string) *utils.ConfigurationLoader {
	loader := utils.NewConfigurationLoader(configurationNameConstant, configurationTypeConstant, environmentPrefixConstant, searchPaths)
	loader.SetEmbeddedConfiguration(EmbeddedDefaultConfiguration())
	return loader
}

func (application *Application) newRootCommand() *cobra.Command {
	rootCommand := &cobra.Command{
		Use:               applicationNameConstant,
		Short:             applicationShortDescriptionConstant,
		Long:              applicationLongDescriptionConstant,
		Args:              cobra.NoArgs,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: application.initializeConfiguration,
		RunE:              application.runAutoPush,
	}

	persistentFlags := rootCommand.PersistentFlags()
	persistentFlags.String(configFileFlagNameConstant, "", configFileFlagUsageConstant)
	persistentFlags.String(logLevelFlagNameConstant, string(utils.LogLevelInfo), logLevelFlagUsageConstant)
	persistentFlags.String(logFormatFlagNameConstant, string(utils.LogFormatConsole), logFormatFlagUsageConstant)
	bindAutoPushFlags(rootCommand)

	if application.outputWriter != nil {
		rootCommand.SetOut(application.outputWriter)
	}
	application.registerCommands(rootCommand)
	return rootCommand
}

// Execute runs the command tree against the process arguments.
func (application *Application) Execute() error {
	return application.ExecuteWithArguments(os.Args[1:])
}

// ExecuteWithArguments runs the command tree against arguments and then flushes both loggers.
// A flush failure is reported only when the command itself succeeded.
func (application *Application) ExecuteWithArguments(arguments []string) error {
	if arguments == nil {
		arguments = []string{}
	}
	application.rootCommand.SetArgs(arguments)

	executionError := application.rootCommand.ExecuteContext(context.Background())
	if executionError != nil {
		_ = application.flushLogger()
		return executionError
	}
	if syncError := application.flushLogger(); syncError != nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return nil
}

// Execute runs a production application against the process arguments.
func Execute() error {
	return NewApplication().Execute()
}

// ConfigFileUsed reports the configuration file merged during the last run, if any.
func (application *Application) ConfigFileUsed() string {
	return application.configurationMetadata.ConfigFileUsed
}

// Configuration returns the effective configuration after initialization.
func (application *Application) Configuration() ApplicationConfiguration {
	return application.configuration
}

func (application *Application) initializeConfiguration(command *cobra.Command, _ []string) error {
	configurationFilePath, _, _ := flagutils.StringFlag(command, configFileFlagNameConstant)

	var loadedValues ApplicationConfiguration
	loadedMetadata, loadError := application.configurationLoader.LoadConfiguration(configurationFilePath, defaultConfigurationValues(), &loadedValues)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	if logLevel, changed, _ := flagutils.StringFlag(command, logLevelFlagNameConstant); changed {
		loadedValues.Common.LogLevel = logLevel
	}
	if logFormat, changed, _ := flagutils.StringFlag(command, logFormatFlagNameConstant); changed {
		loadedValues.Common.LogFormat = logFormat
	}
	application.configuration = loadedValues
	application.configurationMetadata = loadedMetadata

	loggerOutputs, loggerCreationError := application.loggerFactory.CreateLoggerOutputs(
		utils.LogLevel(loadedValues.Common.LogLevel),
		utils.LogFormat(loadedValues.Common.LogFormat),
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}
	application.logger = nopWhenNil(loggerOutputs.DiagnosticLogger)
	application.consoleLogger = nopWhenNil(loggerOutputs.ConsoleLogger)

	application.announceConfiguration()
	command.SetContext(utils.WithLoadedConfiguration(command.Context(), loadedMetadata))
	return nil
}

func nopWhenNil(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func (application *Application) humanReadableLoggingEnabled() bool {
	return strings.EqualFold(strings.TrimSpace(application.configuration.Common.LogFormat), string(utils.LogFormatConsole))
}

// pipelineLogger is the console logger in human-readable mode and the diagnostic logger otherwise.
func (application *Application) pipelineLogger() *zap.Logger {
	if application.humanReadableLoggingEnabled() {
		return application.consoleLogger
	}
	return application.logger
}

func (application *Application) announceConfiguration() {
	commonConfiguration := application.configuration.Common
	configFileUsed := application.configurationMetadata.ConfigFileUsed

	announcer := pipeline.NewAnnouncer(application.pipelineLogger(), application.humanReadableLoggingEnabled())
	announcer.Debug(
		configurationInitializedMessageConstant,
		fmt.Sprintf(configurationInitializedConsoleTemplateConstant, configurationInitializedMessageConstant, commonConfiguration.LogLevel, commonConfiguration.LogFormat, configFileUsed),
		zap.String(configurationLogLevelFieldConstant, commonConfiguration.LogLevel),
		zap.String(configurationLogFormatFieldConstant, commonConfiguration.LogFormat),
		zap.String(configurationFileFieldConstant, configFileUsed),
	)
}

func (application *Application) flushLogger() error {
	return errors.Join(syncLoggerInstance(application.logger), syncLoggerInstance(application.consoleLogger))
}

// ignorableSyncErrors are returned when syncing loggers bound to terminals or pipes.
var ignorableSyncErrors = []error{syscall.ENOTSUP, syscall.EINVAL, syscall.EBADF, syscall.ENOTTY}

func syncLoggerInstance(logger *zap.Logger) error {
	if logger == nil {
		return nil
	}
	syncError := logger.Sync()
	for _, ignorableError := range ignorableSyncErrors {
		if errors.Is(syncError, ignorableError) {
			return nil
		}
	}
	return syncError
}
