package execshell

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tyemirov/autopush/internal/pipeline"
)

const (
	loggerNotConfiguredMessageConstant         = "shell executor logger not configured"
	commandRunnerNotConfiguredMessageConstant  = "shell executor command runner not configured"
	commandLineMissingMessageConstant          = "shell command line not provided"
	commandStartMessageConstant                = "command execution starting"
	commandSuccessMessageConstant              = "command execution completed"
	commandFailureMessageConstant              = "command returned non-zero status"
	commandRunnerErrorMessageConstant          = "command execution error"
	commandStandardErrorMessageConstant        = "command wrote to stderr"
	commandStartHumanTemplateConstant          = "Running: %s"
	commandStandardOutputHumanTemplateConstant = "Command stdout: %s"
	commandStandardErrorHumanTemplateConstant  = "Command stderr: %s"
	commandErrorHumanTemplateConstant          = "Error executing command: %v"
	commandLineFieldNameConstant               = "command"
	workingDirectoryFieldNameConstant          = "working_directory"
	exitCodeFieldNameConstant                  = "exit_code"
	standardOutputFieldNameConstant            = "stdout"
	standardErrorFieldNameConstant             = "stderr"
	failureDetailLineLimitConstant             = 3
	failureDetailSeparatorConstant             = " | "
)

// ShellCommand represents a command line evaluated by the shell interpreter.
type ShellCommand struct {
	CommandLine          string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
}

// ExecutionResult holds the captured output and exit status of a finished command.
type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
}

// CommandRunner executes shell commands. A non-zero exit status is reported through
// ExecutionResult.ExitCode; the error return is reserved for commands that could not run.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}

// ShellExecutor runs shell commands through a CommandRunner and announces each one.
type ShellExecutor struct {
	commandRunner CommandRunner
	announcer     pipeline.Announcer
}

var (
	// ErrLoggerNotConfigured indicates the logger dependency was missing.
	ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)
	// ErrCommandRunnerNotConfigured indicates the command runner dependency was missing.
	ErrCommandRunnerNotConfigured = errors.New(commandRunnerNotConfiguredMessageConstant)
	// ErrCommandLineMissing indicates the command line was empty.
	ErrCommandLineMissing = errors.New(commandLineMissingMessageConstant)
)

// CommandFailedError reports a command that ran but exited with a non-zero status.
type CommandFailedError struct {
	Command ShellCommand
	Result  ExecutionResult
}

const commandFailureErrorMessageTemplateConstant = "command %q exited with code %d"

// Error names the command and exit code followed by the non-blank lines among the first
// three lines of stderr, or of stdout when stderr is empty.
func (commandError CommandFailedError) Error() string {
	baseMessage := fmt.Sprintf(commandFailureErrorMessageTemplateConstant, commandError.Command.CommandLine, commandError.Result.ExitCode)

	detailLines := leadingLines(commandError.Result.StandardError, failureDetailLineLimitConstant)
	if len(detailLines) == 0 {
		detailLines = leadingLines(commandError.Result.StandardOutput, failureDetailLineLimitConstant)
	}
	if len(detailLines) == 0 {
		return baseMessage
	}
	return baseMessage + ": " + strings.Join(detailLines, failureDetailSeparatorConstant)
}

func leadingLines(output string, limit int) []string {
	rawLines := strings.SplitN(strings.TrimSpace(output), "\n", limit+1)
	if len(rawLines) > limit {
		rawLines = rawLines[:limit]
	}
	collected := make([]string, 0, len(rawLines))
	for _, rawLine := range rawLines {
		if line := strings.TrimSpace(rawLine); len(line) > 0 {
			collected = append(collected, line)
		}
	}
	return collected
}

// CommandExecutionError reports a command the runner could not run at all.
type CommandExecutionError struct {
	Command ShellCommand
	Cause   error
}

const commandExecutionErrorMessageTemplateConstant = "command %q execution failed: %v"

func (executionError CommandExecutionError) Error() string {
	return fmt.Sprintf(commandExecutionErrorMessageTemplateConstant, executionError.Command.CommandLine, executionError.Cause)
}

func (executionError CommandExecutionError) Unwrap() error {
	return executionError.Cause
}

// NewShellExecutor validates its collaborators and builds an executor.
func NewShellExecutor(logger *zap.Logger, commandRunner CommandRunner, humanReadableLogging bool) (*ShellExecutor, error) {
	switch {
	case logger == nil:
		return nil, ErrLoggerNotConfigured
	case commandRunner == nil:
		return nil, ErrCommandRunnerNotConfigured
	}
	return &ShellExecutor{
		commandRunner: commandRunner,
		announcer:     pipeline.NewAnnouncer(logger, humanReadableLogging),
	}, nil
}

// Execute runs the provided shell command and logs lifecycle events. A zero exit status
// succeeds even when the command wrote to stderr; that output is logged at warn level.
func (executor *ShellExecutor) Execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	if len(strings.TrimSpace(command.CommandLine)) == 0 {
		return ExecutionResult{}, ErrCommandLineMissing
	}
	commandField := zap.String(commandLineFieldNameConstant, command.CommandLine)

	executor.announcer.Debug(commandStartMessageConstant,
		fmt.Sprintf(commandStartHumanTemplateConstant, command.CommandLine),
		commandField,
		zap.String(workingDirectoryFieldNameConstant, command.WorkingDirectory),
	)

	result, runnerError := executor.commandRunner.Run(executionContext, command)
	if runnerError != nil {
		executionError := CommandExecutionError{Command: command, Cause: runnerError}
		executor.announcer.Error(commandRunnerErrorMessageConstant,
			fmt.Sprintf(commandErrorHumanTemplateConstant, executionError),
			commandField,
			zap.Error(runnerError),
		)
		return ExecutionResult{}, executionError
	}

	exitCodeField := zap.Int(exitCodeFieldNameConstant, result.ExitCode)
	if result.ExitCode != 0 {
		failedError := CommandFailedError{Command: command, Result: result}
		executor.announcer.Error(commandFailureMessageConstant,
			fmt.Sprintf(commandErrorHumanTemplateConstant, failedError),
			commandField,
			exitCodeField,
			zap.String(standardErrorFieldNameConstant, result.StandardError),
		)
		return ExecutionResult{}, failedError
	}

	if len(strings.TrimSpace(result.StandardError)) > 0 {
		executor.announcer.Warn(commandStandardErrorMessageConstant,
			fmt.Sprintf(commandStandardErrorHumanTemplateConstant, strings.TrimRight(result.StandardError, "\n")),
			commandField,
			zap.String(standardErrorFieldNameConstant, result.StandardError),
		)
	}

	executor.announcer.Info(commandSuccessMessageConstant,
		fmt.Sprintf(commandStandardOutputHumanTemplateConstant, strings.TrimRight(result.StandardOutput, "\n")),
		commandField,
		exitCodeField,
		zap.String(standardOutputFieldNameConstant, result.StandardOutput),
	)
	return result, nil
}

// Step adapts a command line into a pipeline step whose value is the command's stdout.
// The step ignores its input.
func (executor *ShellExecutor) Step(label string, command ShellCommand) pipeline.Step {
	return pipeline.Typed(label, func(executionContext context.Context, _ any) (string, error) {
		executionResult, executionError := executor.Execute(executionContext, command)
		if executionError != nil {
			return "", executionError
		}
		return executionResult.StandardOutput, nil
	})
}
