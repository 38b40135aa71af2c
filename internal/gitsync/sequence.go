// Package gitsync stages, commits, and pushes working tree changes as a sequence of shell steps.
package gitsync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tyemirov/autopush/internal/execshell"
	"github.com/tyemirov/autopush/internal/pipeline"
)

const (
	loggerNotConfiguredMessageConstant   = "git sequence logger not configured"
	executorNotConfiguredMessageConstant = "git sequence executor not configured"
	commitMessagePrefixConstant          = "Auto update: "
	commitTimestampLayoutConstant        = "2006-01-02 15:04:05"
	statusCommandLineConstant            = "git status"
	addCommandLineConstant               = "git add ."
	commitCommandLineTemplateConstant    = `git commit -m "%s"`
	pushCommandLineTemplateConstant      = "git push %s %s"
	statusStepLabelConstant              = "git status"
	addStepLabelConstant                 = "git add"
	commitStepLabelConstant              = "git commit"
	pushStepLabelConstant                = "git push"
	startBannerConstant                  = "=== Starting Git operations ==="
	addBannerConstant                    = "=== Adding all changes ==="
	commitBannerTemplateConstant         = `=== Committing changes: "%s" ===`
	pushBannerConstant                   = "=== Pushing to GitHub ==="
	pushedBannerConstant                 = "=== Successfully pushed to GitHub ==="
	startEventConstant                   = "git operations starting"
	addEventConstant                     = "staging all changes"
	commitEventConstant                  = "committing changes"
	pushEventConstant                    = "pushing changes"
	pushedEventConstant                  = "changes pushed"
	commitMessageFieldConstant           = "commit_message"
	remoteFieldConstant                  = "remote"
	branchFieldConstant                  = "branch"
	workingDirectoryFieldConstant        = "working_directory"
)

const (
	// DefaultRemote is pushed to when no remote is configured.
	DefaultRemote = "origin"
	// DefaultBranch is pushed when no branch is configured.
	DefaultBranch = "main"
	// PipelineName labels the nested git pipeline in log output.
	PipelineName = "git operations"
)

var (
	// ErrLoggerNotConfigured indicates the logger dependency was missing.
	ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)
	// ErrExecutorNotConfigured indicates the shell executor dependency was missing.
	ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)
)

// CommandExecutor runs shell command lines.
type CommandExecutor interface {
	Execute(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error)
}

// Clock supplies the commit timestamp.
type Clock func() time.Time

// Configuration selects where the sequence runs and what it pushes.
type Configuration struct {
	Remote           string
	Branch           string
	WorkingDirectory string
}

// Sequence runs git status, git add, git commit, and git push in that order.
type Sequence struct {
	logger               *zap.Logger
	humanReadableLogging bool
	announcer            pipeline.Announcer
	executor             CommandExecutor
	configuration        Configuration
	clock                Clock
}

// NewSequence validates dependencies and constructs a Sequence. Empty remote and branch fall
// back to DefaultRemote and DefaultBranch; a nil clock falls back to time.Now.
func NewSequence(logger *zap.Logger, humanReadableLogging bool, executor CommandExecutor, configuration Configuration, clock Clock) (*Sequence, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	if len(strings.TrimSpace(configuration.Remote)) == 0 {
		configuration.Remote = DefaultRemote
	}
	if len(strings.TrimSpace(configuration.Branch)) == 0 {
		configuration.Branch = DefaultBranch
	}
	if clock == nil {
		clock = time.Now
	}
	return &Sequence{
		logger:               logger,
		humanReadableLogging: humanReadableLogging,
		announcer:            pipeline.NewAnnouncer(logger, humanReadableLogging),
		executor:             executor,
		configuration:        configuration,
		clock:                clock,
	}, nil
}

// CommitMessage formats the automatic commit message for the provided instant in UTC.
func CommitMessage(instant time.Time) string {
	return commitMessagePrefixConstant + instant.UTC().Format(commitTimestampLayoutConstant)
}

// CommitCommandLine builds the shell command line committing with the provided message.
func CommitCommandLine(message string) string {
	return fmt.Sprintf(commitCommandLineTemplateConstant, message)
}

// PushCommandLine builds the shell command line pushing branch to remote.
func PushCommandLine(remote string, branch string) string {
	return fmt.Sprintf(pushCommandLineTemplateConstant, remote, branch)
}

// Steps returns the four git steps in execution order.
func (sequence *Sequence) Steps() []pipeline.Step {
	return []pipeline.Step{
		pipeline.Typed(statusStepLabelConstant, sequence.status),
		pipeline.Typed(addStepLabelConstant, sequence.add),
		pipeline.Typed(commitStepLabelConstant, sequence.commit),
		pipeline.Typed(pushStepLabelConstant, sequence.push),
	}
}

// Pipeline assembles the steps into a nested pipeline named PipelineName.
func (sequence *Sequence) Pipeline() (*pipeline.Pipeline, error) {
	return pipeline.NewPipeline(PipelineName, sequence.logger, sequence.humanReadableLogging, sequence.Steps()...)
}

func (sequence *Sequence) status(executionContext context.Context, _ any) (string, error) {
	sequence.announcer.Info(startEventConstant, startBannerConstant,
		zap.String(workingDirectoryFieldConstant, sequence.configuration.WorkingDirectory),
	)
	return sequence.run(executionContext, statusCommandLineConstant)
}

func (sequence *Sequence) add(executionContext context.Context, _ any) (string, error) {
	sequence.announcer.Info(addEventConstant, addBannerConstant)
	return sequence.run(executionContext, addCommandLineConstant)
}

func (sequence *Sequence) commit(executionContext context.Context, _ any) (string, error) {
	message := CommitMessage(sequence.clock())
	sequence.announcer.Info(commitEventConstant,
		fmt.Sprintf(commitBannerTemplateConstant, message),
		zap.String(commitMessageFieldConstant, message),
	)
	return sequence.run(executionContext, CommitCommandLine(message))
}

func (sequence *Sequence) push(executionContext context.Context, _ any) (string, error) {
	remoteField := zap.String(remoteFieldConstant, sequence.configuration.Remote)
	branchField := zap.String(branchFieldConstant, sequence.configuration.Branch)

	sequence.announcer.Info(pushEventConstant, pushBannerConstant, remoteField, branchField)
	output, pushError := sequence.run(executionContext, PushCommandLine(sequence.configuration.Remote, sequence.configuration.Branch))
	if pushError != nil {
		return "", pushError
	}
	sequence.announcer.Info(pushedEventConstant, pushedBannerConstant, remoteField, branchField)
	return output, nil
}

func (sequence *Sequence) run(executionContext context.Context, commandLine string) (string, error) {
	result, executionError := sequence.executor.Execute(executionContext, execshell.ShellCommand{
		CommandLine:      commandLine,
		WorkingDirectory: sequence.configuration.WorkingDirectory,
	})
	if executionError != nil {
		return "", executionError
	}
	return result.StandardOutput, nil
}
