// Package autopush runs a child CLI and then publishes the resulting working tree changes.
package autopush

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tyemirov/autopush/internal/execshell"
	"github.com/tyemirov/autopush/internal/gitsync"
	"github.com/tyemirov/autopush/internal/pipeline"
	"github.com/tyemirov/autopush/internal/process"
)

const (
	// DefaultProgram is launched when no program is configured.
	DefaultProgram = "node"
	// DefaultArgument is passed to DefaultProgram.
	DefaultArgument = "cli.js"
	// PipelineName labels the auto-push pipeline in log output.
	PipelineName = "auto-push"
)

const (
	loggerNotConfiguredMessageConstant  = "auto-push logger not configured"
	spawnerNotConfiguredMessageConstant = "auto-push process spawner not configured"
	runnerNotConfiguredMessageConstant  = "auto-push command runner not configured"
	cliStepLabelConstant                = "run cli application"
	gitFailureBannerTemplateConstant    = "=== Error in Git operations: %s ==="
	mainFailureBannerTemplateConstant   = "=== Error in main process: %s ==="
	completedBannerConstant             = "=== All operations completed successfully ==="
	gitFailureEventConstant             = "git operations failed; continuing"
	mainFailureEventConstant            = "auto-push failed"
	completedEventConstant              = "auto-push completed"
	stepFieldConstant                   = "step"
	durationFieldConstant               = "duration"
)

var (
	// ErrLoggerNotConfigured indicates the logger dependency was missing.
	ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)
	// ErrSpawnerNotConfigured indicates the process spawner dependency was missing.
	ErrSpawnerNotConfigured = errors.New(spawnerNotConfiguredMessageConstant)
	// ErrCommandRunnerNotConfigured indicates the shell command runner dependency was missing.
	ErrCommandRunnerNotConfigured = errors.New(runnerNotConfiguredMessageConstant)
)

// Configuration describes the child program and the push destination.
type Configuration struct {
	Program          string
	Arguments        []string
	Remote           string
	Branch           string
	WorkingDirectory string
}

// Dependencies supplies collaborators for the service.
type Dependencies struct {
	Logger               *zap.Logger
	HumanReadableLogging bool
	Spawner              process.Spawner
	CommandRunner        execshell.CommandRunner
	Clock                gitsync.Clock
}

// Service runs the child CLI and, when it succeeds, the git sequence. Git failures are
// reported and absorbed; child failures end the run.
type Service struct {
	announcer pipeline.Announcer
	pipeline  *pipeline.Pipeline
}

// NewService wires the two-stage pipeline. An empty program selects DefaultProgram with
// DefaultArgument.
func NewService(dependencies Dependencies, configuration Configuration) (*Service, error) {
	if dependencies.Logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if dependencies.Spawner == nil {
		return nil, ErrSpawnerNotConfigured
	}
	if dependencies.CommandRunner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}

	if len(strings.TrimSpace(configuration.Program)) == 0 {
		configuration.Program = DefaultProgram
		if len(configuration.Arguments) == 0 {
			configuration.Arguments = []string{DefaultArgument}
		}
	}

	logger := dependencies.Logger
	humanReadable := dependencies.HumanReadableLogging
	announcer := pipeline.NewAnnouncer(logger, humanReadable)

	processRunner, runnerError := process.NewRunner(logger, dependencies.Spawner, humanReadable)
	if runnerError != nil {
		return nil, runnerError
	}

	shellExecutor, executorError := execshell.NewShellExecutor(logger, dependencies.CommandRunner, humanReadable)
	if executorError != nil {
		return nil, executorError
	}

	sequence, sequenceError := gitsync.NewSequence(logger, humanReadable, shellExecutor, gitsync.Configuration{
		Remote:           configuration.Remote,
		Branch:           configuration.Branch,
		WorkingDirectory: configuration.WorkingDirectory,
	}, dependencies.Clock)
	if sequenceError != nil {
		return nil, sequenceError
	}

	gitPipeline, gitPipelineError := sequence.Pipeline()
	if gitPipelineError != nil {
		return nil, gitPipelineError
	}

	reportGitFailure := func(label string, failure error) {
		announcer.Error(gitFailureEventConstant,
			fmt.Sprintf(gitFailureBannerTemplateConstant, rootCauseMessage(failure)),
			zap.String(stepFieldConstant, label),
			zap.Error(failure),
		)
	}

	autoPushPipeline, pipelineError := pipeline.NewPipeline(PipelineName, logger, humanReadable,
		processRunner.Step(cliStepLabelConstant, process.Command{
			Program:          configuration.Program,
			Arguments:        configuration.Arguments,
			WorkingDirectory: configuration.WorkingDirectory,
		}),
		pipeline.BestEffort(gitPipeline.AsStep(gitsync.PipelineName), reportGitFailure),
	)
	if pipelineError != nil {
		return nil, pipelineError
	}

	return &Service{announcer: announcer, pipeline: autoPushPipeline}, nil
}

// Run executes the pipeline once. The returned error is a *pipeline.StepError naming the
// child CLI step; git failures never surface here.
func (service *Service) Run(executionContext context.Context) (pipeline.Outcome, error) {
	outcome, runError := service.pipeline.Run(executionContext, nil)
	if runError != nil {
		service.announcer.Error(mainFailureEventConstant,
			fmt.Sprintf(mainFailureBannerTemplateConstant, rootCauseMessage(runError)),
			zap.Error(runError),
		)
		return outcome, runError
	}

	service.announcer.Info(completedEventConstant, completedBannerConstant, zap.Duration(durationFieldConstant, outcome.Duration))
	return outcome, nil
}

// rootCauseMessage strips nested step wrappers so banners show the failing command's own message.
func rootCauseMessage(failure error) string {
	var stepError *pipeline.StepError
	for errors.As(failure, &stepError) && stepError.Cause != nil {
		failure = stepError.Cause
	}
	return failure.Error()
}
