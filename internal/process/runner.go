package process

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tyemirov/autopush/internal/pipeline"
)

const (
	loggerNotConfiguredMessageConstant  = "process runner logger not configured"
	spawnerNotConfiguredMessageConstant = "process runner spawner not configured"
	programMissingMessageConstant       = "process program not provided"
	exitErrorTemplateConstant           = "%s process exited with code %d"
	launchErrorTemplateConstant         = "failed to start %s: %v"
	startBannerConstant                 = "=== Running CLI Application ==="
	successBannerConstant               = "=== CLI Application completed successfully ==="
	exitFailureBannerTemplateConstant   = "=== CLI Application failed with code %d ==="
	launchFailureBannerTemplateConstant = "=== Failed to start CLI Application: %v ==="
	startEventConstant                  = "child process starting"
	successEventConstant                = "child process completed"
	exitFailureEventConstant            = "child process exited with non-zero status"
	launchFailureEventConstant          = "child process failed to start"
	programFieldConstant                = "program"
	argumentsFieldConstant              = "arguments"
	exitCodeFieldConstant               = "exit_code"
)

var (
	// ErrLoggerNotConfigured indicates the logger dependency was missing.
	ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)
	// ErrSpawnerNotConfigured indicates the spawner dependency was missing.
	ErrSpawnerNotConfigured = errors.New(spawnerNotConfiguredMessageConstant)
	// ErrProgramMissing indicates the command named no program.
	ErrProgramMissing = errors.New(programMissingMessageConstant)
)

// ExitError reports a child that ran and terminated with a non-zero exit code.
type ExitError struct {
	Program string
	Code    int
}

func (exitError ExitError) Error() string {
	return fmt.Sprintf(exitErrorTemplateConstant, exitError.Program, exitError.Code)
}

// LaunchError reports a child that could not be started.
type LaunchError struct {
	Program string
	Cause   error
}

func (launchError LaunchError) Error() string {
	return fmt.Sprintf(launchErrorTemplateConstant, launchError.Program, launchError.Cause)
}

// Unwrap exposes the underlying start failure.
func (launchError LaunchError) Unwrap() error {
	return launchError.Cause
}

// Outcome describes a child that exited successfully.
type Outcome struct {
	ExitCode int
}

// Runner spawns child programs and announces their lifecycle.
type Runner struct {
	spawner   Spawner
	announcer pipeline.Announcer
}

// NewRunner validates dependencies and constructs a Runner.
func NewRunner(logger *zap.Logger, spawner Spawner, humanReadableLogging bool) (*Runner, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if spawner == nil {
		return nil, ErrSpawnerNotConfigured
	}
	return &Runner{spawner: spawner, announcer: pipeline.NewAnnouncer(logger, humanReadableLogging)}, nil
}

// Run launches the command and waits for it. Exit code 0 succeeds; any other code yields
// an ExitError and a start failure yields a LaunchError.
func (runner *Runner) Run(executionContext context.Context, command Command) (Outcome, error) {
	if len(strings.TrimSpace(command.Program)) == 0 {
		return Outcome{}, ErrProgramMissing
	}

	runner.announcer.Info(startEventConstant, startBannerConstant,
		zap.String(programFieldConstant, command.Program),
		zap.Strings(argumentsFieldConstant, command.Arguments),
	)

	exitCode, spawnError := runner.spawner.Spawn(executionContext, command)
	if spawnError != nil {
		runner.announcer.Error(launchFailureEventConstant,
			fmt.Sprintf(launchFailureBannerTemplateConstant, spawnError),
			zap.String(programFieldConstant, command.Program),
			zap.Error(spawnError),
		)
		return Outcome{}, LaunchError{Program: command.Program, Cause: spawnError}
	}

	if exitCode != 0 {
		runner.announcer.Error(exitFailureEventConstant,
			fmt.Sprintf(exitFailureBannerTemplateConstant, exitCode),
			zap.String(programFieldConstant, command.Program),
			zap.Int(exitCodeFieldConstant, exitCode),
		)
		return Outcome{ExitCode: exitCode}, ExitError{Program: command.Program, Code: exitCode}
	}

	runner.announcer.Info(successEventConstant, successBannerConstant,
		zap.String(programFieldConstant, command.Program),
		zap.Int(exitCodeFieldConstant, exitCode),
	)
	return Outcome{ExitCode: exitCode}, nil
}

// Step adapts the command into a pipeline step yielding the exit code. The step ignores its input.
func (runner *Runner) Step(label string, command Command) pipeline.Step {
	return pipeline.Typed(label, func(executionContext context.Context, _ any) (int, error) {
		outcome, runError := runner.Run(executionContext, command)
		return outcome.ExitCode, runError
	})
}
