package autopush_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tyemirov/autopush/internal/autopush"
	"github.com/tyemirov/autopush/internal/execshell"
	"github.com/tyemirov/autopush/internal/pipeline"
	"github.com/tyemirov/autopush/internal/process"
)

const (
	testPushCommandLineConstant = "git push origin main"
	testRejectedOutputConstant  = "! [rejected] main -> main (fetch first)"
	testCompletedBannerConstant = "=== All operations completed successfully ==="
)

type scriptedSpawner struct {
	exitCode   int
	spawnError error
	commands   []process.Command
}

func (spawner *scriptedSpawner) Spawn(_ context.Context, command process.Command) (int, error) {
	spawner.commands = append(spawner.commands, command)
	return spawner.exitCode, spawner.spawnError
}

type scriptedCommandRunner struct {
	failingCommandLine string
	commandLines       []string
}

func (runner *scriptedCommandRunner) Run(_ context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	runner.commandLines = append(runner.commandLines, command.CommandLine)
	if command.CommandLine == runner.failingCommandLine {
		return execshell.ExecutionResult{ExitCode: 1, StandardError: testRejectedOutputConstant}, nil
	}
	return execshell.ExecutionResult{StandardOutput: "ok"}, nil
}

func fixedClock() time.Time {
	return time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
}

func newObservedService(testInstance *testing.T, spawner process.Spawner, runner execshell.CommandRunner, configuration autopush.Configuration) (*autopush.Service, *observer.ObservedLogs) {
	testInstance.Helper()
	observerCore, observerLogs := observer.New(zapcore.InfoLevel)
	service, creationError := autopush.NewService(autopush.Dependencies{
		Logger:               zap.New(observerCore),
		HumanReadableLogging: true,
		Spawner:              spawner,
		CommandRunner:        runner,
		Clock:                fixedClock,
	}, configuration)
	require.NoError(testInstance, creationError)
	return service, observerLogs
}

func messages(observerLogs *observer.ObservedLogs) []string {
	captured := make([]string, 0, observerLogs.Len())
	for _, entry := range observerLogs.All() {
		captured = append(captured, entry.Message)
	}
	return captured
}

func TestNewServiceValidation(testInstance *testing.T) {
	testCases := []struct {
		name          string
		dependencies  autopush.Dependencies
		expectedError error
	}{
		{
			name:          "missing_logger",
			dependencies:  autopush.Dependencies{Spawner: &scriptedSpawner{}, CommandRunner: &scriptedCommandRunner{}},
			expectedError: autopush.ErrLoggerNotConfigured,
		},
		{
			name:          "missing_spawner",
			dependencies:  autopush.Dependencies{Logger: zap.NewNop(), CommandRunner: &scriptedCommandRunner{}},
			expectedError: autopush.ErrSpawnerNotConfigured,
		},
		{
			name:          "missing_runner",
			dependencies:  autopush.Dependencies{Logger: zap.NewNop(), Spawner: &scriptedSpawner{}},
			expectedError: autopush.ErrCommandRunnerNotConfigured,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			service, creationError := autopush.NewService(testCase.dependencies, autopush.Configuration{})
			require.ErrorIs(testInstance, creationError, testCase.expectedError)
			require.Nil(testInstance, service)
		})
	}
}

func TestServiceRunsCliThenGitSequence(testInstance *testing.T) {
	spawner := &scriptedSpawner{}
	runner := &scriptedCommandRunner{}
	service, observerLogs := newObservedService(testInstance, spawner, runner, autopush.Configuration{})

	outcome, runError := service.Run(context.Background())
	require.NoError(testInstance, runError)
	require.Equal(testInstance, 2, outcome.CompletedSteps)

	require.Equal(testInstance, []process.Command{{Program: autopush.DefaultProgram, Arguments: []string{autopush.DefaultArgument}}}, spawner.commands)
	require.Equal(testInstance, []string{
		"git status",
		"git add .",
		`git commit -m "Auto update: 2025-06-01 12:00:00"`,
		testPushCommandLineConstant,
	}, runner.commandLines)

	capturedMessages := messages(observerLogs)
	require.Equal(testInstance, "=== Running CLI Application ===", capturedMessages[0])
	require.Equal(testInstance, "=== CLI Application completed successfully ===", capturedMessages[1])
	require.Contains(testInstance, capturedMessages, "=== Successfully pushed to GitHub ===")
	require.Equal(testInstance, testCompletedBannerConstant, capturedMessages[len(capturedMessages)-1])
}

func TestServiceChildFailureSkipsGit(testInstance *testing.T) {
	testCases := []struct {
		name            string
		spawner         *scriptedSpawner
		expectedMessage string
		expectedBanner  string
	}{
		{
			name:            "exit_code_one",
			spawner:         &scriptedSpawner{exitCode: 1},
			expectedMessage: "code 1",
			expectedBanner:  "=== Error in main process: node process exited with code 1 ===",
		},
		{
			name:            "exit_code_two",
			spawner:         &scriptedSpawner{exitCode: 2},
			expectedMessage: "code 2",
			expectedBanner:  "=== Error in main process: node process exited with code 2 ===",
		},
		{
			name:            "launch_failure",
			spawner:         &scriptedSpawner{spawnError: errors.New("exec: \"node\": executable file not found in $PATH")},
			expectedMessage: "executable file not found",
			expectedBanner:  "=== Error in main process: failed to start node: exec: \"node\": executable file not found in $PATH ===",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			runner := &scriptedCommandRunner{}
			service, observerLogs := newObservedService(testInstance, testCase.spawner, runner, autopush.Configuration{})

			outcome, runError := service.Run(context.Background())
			require.Error(testInstance, runError)
			require.Contains(testInstance, runError.Error(), testCase.expectedMessage)
			require.Zero(testInstance, outcome.CompletedSteps)

			var stepError *pipeline.StepError
			require.ErrorAs(testInstance, runError, &stepError)
			require.Zero(testInstance, stepError.Index)

			require.Empty(testInstance, runner.commandLines)

			capturedMessages := messages(observerLogs)
			require.Equal(testInstance, testCase.expectedBanner, capturedMessages[len(capturedMessages)-1])
			require.NotContains(testInstance, capturedMessages, testCompletedBannerConstant)
			require.NotContains(testInstance, capturedMessages, "=== Starting Git operations ===")
		})
	}
}

func TestServiceAbsorbsGitFailure(testInstance *testing.T) {
	runner := &scriptedCommandRunner{failingCommandLine: testPushCommandLineConstant}
	service, observerLogs := newObservedService(testInstance, &scriptedSpawner{}, runner, autopush.Configuration{})

	outcome, runError := service.Run(context.Background())
	require.NoError(testInstance, runError)
	require.Equal(testInstance, 2, outcome.CompletedSteps)
	require.Len(testInstance, runner.commandLines, 4)

	capturedMessages := messages(observerLogs)
	require.Contains(testInstance, capturedMessages,
		`=== Error in Git operations: command "git push origin main" exited with code 1: `+testRejectedOutputConstant+` ===`)
	require.NotContains(testInstance, capturedMessages, "=== Successfully pushed to GitHub ===")
	require.Equal(testInstance, testCompletedBannerConstant, capturedMessages[len(capturedMessages)-1])

	errorEntries := observerLogs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.NotEmpty(testInstance, errorEntries)
	for _, entry := range errorEntries {
		require.False(testInstance, strings.HasPrefix(entry.Message, "=== Error in main process"))
	}
}

func TestServiceUsesConfiguredProgramAndDestination(testInstance *testing.T) {
	spawner := &scriptedSpawner{}
	runner := &scriptedCommandRunner{}
	service, _ := newObservedService(testInstance, spawner, runner, autopush.Configuration{
		Program:          "python3",
		Arguments:        []string{"generate.py", "--fast"},
		Remote:           "upstream",
		Branch:           "trunk",
		WorkingDirectory: "/srv/site",
	})

	_, runError := service.Run(context.Background())
	require.NoError(testInstance, runError)

	require.Equal(testInstance, []process.Command{{
		Program:          "python3",
		Arguments:        []string{"generate.py", "--fast"},
		WorkingDirectory: "/srv/site",
	}}, spawner.commands)
	require.Equal(testInstance, "git push upstream trunk", runner.commandLines[3])
}

func TestServiceStructuredLogging(testInstance *testing.T) {
	observerCore, observerLogs := observer.New(zapcore.InfoLevel)
	service, creationError := autopush.NewService(autopush.Dependencies{
		Logger:        zap.New(observerCore),
		Spawner:       &scriptedSpawner{},
		CommandRunner: &scriptedCommandRunner{failingCommandLine: "git status"},
		Clock:         fixedClock,
	}, autopush.Configuration{})
	require.NoError(testInstance, creationError)

	_, runError := service.Run(context.Background())
	require.NoError(testInstance, runError)

	gitFailures := observerLogs.FilterMessage("git operations failed; continuing").All()
	require.Len(testInstance, gitFailures, 1)
	require.Equal(testInstance, "git operations", gitFailures[0].ContextMap()["step"])
	require.Equal(testInstance, 1, observerLogs.FilterMessage("auto-push completed").Len())
}
