package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tyemirov/autopush/internal/autopush"
	"github.com/tyemirov/autopush/internal/fileprocess"
	"github.com/tyemirov/autopush/internal/gitsync"
	"github.com/tyemirov/autopush/internal/utils"
	flagutils "github.com/tyemirov/autopush/internal/utils/flags"
)

const (
	runCommandUseConstant                  = "run [-- program [arguments...]]"
	runCommandShortDescriptionConstant     = "Run the CLI application, then commit and push"
	runCommandLongDescriptionConstant      = "run starts the child program with inherited terminal I/O. When it exits with status 0 the working tree is staged, committed with a timestamped message, and pushed; git failures are logged and ignored. Arguments after -- replace the configured program and arguments."
	processFileCommandUseConstant          = "process-file"
	processFileShortDescriptionConstant    = "Read a file, wait, and append its content to a log"
	processFileLongDescriptionConstant     = "process-file reads the input file, pauses for the configured delay, and appends \"File content processed: <content>\" to the log file."
	configCommandUseConstant               = "config"
	configCommandShortDescriptionConstant  = "Print the effective configuration as YAML"
	versionCommandUseConstant              = "version"
	versionCommandShortDescriptionConstant = "Print the autopush version"
	versionOutputTemplateConstant          = "autopush version: %s\n"
	programFlagNameConstant                = "program"
	programFlagUsageConstant               = "Child program to run (default node)."
	argumentFlagNameConstant               = "arg"
	argumentFlagUsageConstant              = "Argument passed to the child program (repeatable)."
	remoteFlagNameConstant                 = "remote"
	remoteFlagUsageConstant                = "Git remote to push to."
	branchFlagNameConstant                 = "branch"
	branchFlagUsageConstant                = "Git branch to push."
	workingDirectoryFlagNameConstant       = "working-directory"
	workingDirectoryFlagUsageConstant      = "Directory the child program and git commands run in."
	inputFlagNameConstant                  = "input"
	inputFlagUsageConstant                 = "File to read."
	logFlagNameConstant                    = "log"
	logFlagUsageConstant                   = "File to append the processed line to."
	delayFlagNameConstant                  = "delay"
	delayFlagUsageConstant                 = "Pause between reading and writing."
)

func (application *Application) registerCommands(cobraCommand *cobra.Command) {
	runCommand := &cobra.Command{
		Use:   runCommandUseConstant,
		Short: runCommandShortDescriptionConstant,
		Long:  runCommandLongDescriptionConstant,
		Args:  cobra.ArbitraryArgs,
		RunE:  application.runAutoPush,
	}
	bindAutoPushFlags(runCommand)

	processFileCommand := &cobra.Command{
		Use:   processFileCommandUseConstant,
		Short: processFileShortDescriptionConstant,
		Long:  processFileLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  application.runProcessFile,
	}
	processFileCommand.Flags().String(inputFlagNameConstant, "", inputFlagUsageConstant)
	processFileCommand.Flags().String(logFlagNameConstant, "", logFlagUsageConstant)
	processFileCommand.Flags().Duration(delayFlagNameConstant, 0, delayFlagUsageConstant)

	configCommand := &cobra.Command{
		Use:   configCommandUseConstant,
		Short: configCommandShortDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  application.runConfig,
	}

	versionCommand := &cobra.Command{
		Use:   versionCommandUseConstant,
		Short: versionCommandShortDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  application.runVersion,
	}

	cobraCommand.AddCommand(runCommand, processFileCommand, configCommand, versionCommand)
}

func bindAutoPushFlags(command *cobra.Command) {
	command.Flags().String(programFlagNameConstant, "", programFlagUsageConstant)
	command.Flags().StringArray(argumentFlagNameConstant, nil, argumentFlagUsageConstant)
	command.Flags().String(remoteFlagNameConstant, "", remoteFlagUsageConstant)
	command.Flags().String(branchFlagNameConstant, "", branchFlagUsageConstant)
	command.Flags().String(workingDirectoryFlagNameConstant, "", workingDirectoryFlagUsageConstant)
}

func (application *Application) runAutoPush(command *cobra.Command, arguments []string) error {
	configuration, resolveError := application.resolveAutoPushConfiguration(command, arguments)
	if resolveError != nil {
		return resolveError
	}

	service, serviceError := autopush.NewService(autopush.Dependencies{
		Logger:               application.pipelineLogger(),
		HumanReadableLogging: application.humanReadableLoggingEnabled(),
		Spawner:              application.spawner,
		CommandRunner:        application.commandRunner,
		Clock:                application.clock,
	}, configuration)
	if serviceError != nil {
		return serviceError
	}

	_, runError := service.Run(command.Context())
	return runError
}

// resolveAutoPushConfiguration layers command-line values over the loaded configuration.
// Positional arguments replace the program and its arguments; a program flag without
// argument flags runs the program with no arguments.
func (application *Application) resolveAutoPushConfiguration(command *cobra.Command, arguments []string) (autopush.Configuration, error) {
	loaded := application.configuration.AutoPush
	configuration := autopush.Configuration{
		Program:          loaded.Program,
		Arguments:        append([]string(nil), loaded.Arguments...),
		Remote:           loaded.Remote,
		Branch:           loaded.Branch,
		WorkingDirectory: loaded.WorkingDirectory,
	}

	program, programChanged, programError := flagutils.StringFlag(command, programFlagNameConstant)
	if programError != nil {
		return autopush.Configuration{}, programError
	}
	programArguments, argumentsChanged, argumentsError := flagutils.StringArrayFlag(command, argumentFlagNameConstant)
	if argumentsError != nil {
		return autopush.Configuration{}, argumentsError
	}
	if programChanged {
		configuration.Program = program
		configuration.Arguments = nil
	}
	if argumentsChanged {
		configuration.Arguments = programArguments
	}
	if len(arguments) > 0 {
		configuration.Program = arguments[0]
		configuration.Arguments = append([]string(nil), arguments[1:]...)
	}

	stringOverrides := []struct {
		flagName string
		target   *string
	}{
		{flagName: remoteFlagNameConstant, target: &configuration.Remote},
		{flagName: branchFlagNameConstant, target: &configuration.Branch},
		{flagName: workingDirectoryFlagNameConstant, target: &configuration.WorkingDirectory},
	}
	for _, override := range stringOverrides {
		value, changed, flagError := flagutils.StringFlag(command, override.flagName)
		if flagError != nil {
			return autopush.Configuration{}, flagError
		}
		if changed {
			*override.target = value
		}
	}

	if len(configuration.Remote) == 0 {
		configuration.Remote = gitsync.DefaultRemote
	}
	if len(configuration.Branch) == 0 {
		configuration.Branch = gitsync.DefaultBranch
	}

	return configuration, nil
}

func (application *Application) runProcessFile(command *cobra.Command, _ []string) error {
	configuration, resolveError := application.resolveProcessConfiguration(command)
	if resolveError != nil {
		return resolveError
	}

	service, serviceError := fileprocess.NewService(fileprocess.Dependencies{
		Logger:               application.pipelineLogger(),
		HumanReadableLogging: application.humanReadableLoggingEnabled(),
		FileSystem:           application.fileSystem,
		Sleep:                application.sleep,
	}, configuration)
	if serviceError != nil {
		return serviceError
	}

	_, runError := service.Run(command.Context())
	return runError
}

func (application *Application) resolveProcessConfiguration(command *cobra.Command) (fileprocess.Configuration, error) {
	loaded := application.configuration.Process
	configuration := fileprocess.Configuration{
		InputPath: loaded.InputPath,
		LogPath:   loaded.LogPath,
		Delay:     loaded.Delay,
	}

	inputPath, inputChanged, inputError := flagutils.StringFlag(command, inputFlagNameConstant)
	if inputError != nil {
		return fileprocess.Configuration{}, inputError
	}
	if inputChanged {
		configuration.InputPath = inputPath
	}

	logPath, logChanged, logError := flagutils.StringFlag(command, logFlagNameConstant)
	if logError != nil {
		return fileprocess.Configuration{}, logError
	}
	if logChanged {
		configuration.LogPath = logPath
	}

	delay, delayChanged, delayError := flagutils.DurationFlag(command, delayFlagNameConstant)
	if delayError != nil {
		return fileprocess.Configuration{}, delayError
	}
	if delayChanged {
		configuration.Delay = delay
	}

	return configuration, nil
}

func (application *Application) runConfig(command *cobra.Command, _ []string) error {
	metadata, _ := utils.LoadedConfigurationFrom(command.Context())
	return renderConfiguration(command.OutOrStdout(), application.configuration, metadata.ConfigFileUsed)
}

func (application *Application) runVersion(command *cobra.Command, _ []string) error {
	_, writeError := fmt.Fprintf(command.OutOrStdout(), versionOutputTemplateConstant, application.versionResolver())
	return writeError
}
