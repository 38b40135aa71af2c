package execshell_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tyemirov/autopush/internal/execshell"
	"github.com/tyemirov/autopush/internal/pipeline"
)

const (
	testCommandLineConstant          = "git status"
	testWorkingDirectoryConstant     = "."
	testStandardOutputConstant       = "On branch main"
	testStandardErrorOutputConstant  = "fatal: not a git repository"
	testWarningOutputConstant        = "warning: LF will be replaced by CRLF"
	testRunnerFailureMessageConstant = "runner failure"
)

type recordingCommandRunner struct {
	executionResult  execshell.ExecutionResult
	executionError   error
	recordedCommands []execshell.ShellCommand
}

func (runner *recordingCommandRunner) Run(_ context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	runner.recordedCommands = append(runner.recordedCommands, command)
	return runner.executionResult, runner.executionError
}

type observedEntry struct {
	level   zapcore.Level
	message string
}

func observedEntries(logs *observer.ObservedLogs) []observedEntry {
	entries := make([]observedEntry, 0, logs.Len())
	for _, loggedEntry := range logs.All() {
		entries = append(entries, observedEntry{level: loggedEntry.Level, message: loggedEntry.Message})
	}
	return entries
}

func TestNewShellExecutorRequiresCollaborators(testInstance *testing.T) {
	_, missingLoggerError := execshell.NewShellExecutor(nil, &recordingCommandRunner{}, false)
	require.ErrorIs(testInstance, missingLoggerError, execshell.ErrLoggerNotConfigured)

	_, missingRunnerError := execshell.NewShellExecutor(zap.NewNop(), nil, false)
	require.ErrorIs(testInstance, missingRunnerError, execshell.ErrCommandRunnerNotConfigured)

	shellExecutor, creationError := execshell.NewShellExecutor(zap.NewNop(), &recordingCommandRunner{}, true)
	require.NoError(testInstance, creationError)
	require.NotNil(testInstance, shellExecutor)
}

func TestShellExecutorExecute(testInstance *testing.T) {
	testCases := []struct {
		name             string
		runnerResult     execshell.ExecutionResult
		runnerError      error
		verifyError      func(require.TestingT, error)
		structuredEvents []observedEntry
		humanBanners     []observedEntry
	}{
		{
			name:         "clean_success",
			runnerResult: execshell.ExecutionResult{StandardOutput: testStandardOutputConstant + "\n"},
			structuredEvents: []observedEntry{
				{level: zapcore.DebugLevel, message: "command execution starting"},
				{level: zapcore.InfoLevel, message: "command execution completed"},
			},
			humanBanners: []observedEntry{
				{level: zapcore.InfoLevel, message: "Command stdout: On branch main"},
			},
		},
		{
			name: "success_with_stderr",
			runnerResult: execshell.ExecutionResult{
				StandardOutput: testStandardOutputConstant,
				StandardError:  testWarningOutputConstant + "\n",
			},
			structuredEvents: []observedEntry{
				{level: zapcore.DebugLevel, message: "command execution starting"},
				{level: zapcore.WarnLevel, message: "command wrote to stderr"},
				{level: zapcore.InfoLevel, message: "command execution completed"},
			},
			humanBanners: []observedEntry{
				{level: zapcore.WarnLevel, message: "Command stderr: " + testWarningOutputConstant},
				{level: zapcore.InfoLevel, message: "Command stdout: On branch main"},
			},
		},
		{
			name:         "non_zero_exit",
			runnerResult: execshell.ExecutionResult{StandardError: testStandardErrorOutputConstant, ExitCode: 128},
			verifyError: func(t require.TestingT, executionError error) {
				var failedError execshell.CommandFailedError
				require.ErrorAs(t, executionError, &failedError)
				require.Equal(t, 128, failedError.Result.ExitCode)
			},
			structuredEvents: []observedEntry{
				{level: zapcore.DebugLevel, message: "command execution starting"},
				{level: zapcore.ErrorLevel, message: "command returned non-zero status"},
			},
			humanBanners: []observedEntry{
				{level: zapcore.ErrorLevel, message: `Error executing command: command "git status" exited with code 128: fatal: not a git repository`},
			},
		},
		{
			name:        "runner_error",
			runnerError: errors.New(testRunnerFailureMessageConstant),
			verifyError: func(t require.TestingT, executionError error) {
				var executionFailure execshell.CommandExecutionError
				require.ErrorAs(t, executionError, &executionFailure)
				require.EqualError(t, executionFailure.Cause, testRunnerFailureMessageConstant)
			},
			structuredEvents: []observedEntry{
				{level: zapcore.DebugLevel, message: "command execution starting"},
				{level: zapcore.ErrorLevel, message: "command execution error"},
			},
			humanBanners: []observedEntry{
				{level: zapcore.ErrorLevel, message: `Error executing command: command "git status" execution failed: runner failure`},
			},
		},
	}

	for _, testCase := range testCases {
		for _, humanReadable := range []bool{false, true} {
			subtestName := testCase.name + "_structured"
			minimumLevel := zapcore.DebugLevel
			expectedEntries := testCase.structuredEvents
			if humanReadable {
				subtestName = testCase.name + "_human"
				minimumLevel = zapcore.InfoLevel
				expectedEntries = testCase.humanBanners
			}
			testInstance.Run(subtestName, func(testInstance *testing.T) {
				observerCore, observedLogs := observer.New(minimumLevel)
				recordingRunner := &recordingCommandRunner{
					executionResult: testCase.runnerResult,
					executionError:  testCase.runnerError,
				}

				shellExecutor, creationError := execshell.NewShellExecutor(zap.New(observerCore), recordingRunner, humanReadable)
				require.NoError(testInstance, creationError)

				command := execshell.ShellCommand{CommandLine: testCommandLineConstant, WorkingDirectory: testWorkingDirectoryConstant}
				executionResult, executionError := shellExecutor.Execute(context.Background(), command)

				require.Equal(testInstance, []execshell.ShellCommand{command}, recordingRunner.recordedCommands)
				if testCase.verifyError != nil {
					testCase.verifyError(testInstance, executionError)
					require.Zero(testInstance, executionResult)
				} else {
					require.NoError(testInstance, executionError)
					require.Equal(testInstance, testCase.runnerResult, executionResult)
				}
				require.Equal(testInstance, expectedEntries, observedEntries(observedLogs))
			})
		}
	}
}

func TestShellExecutorStructuredFields(testInstance *testing.T) {
	observerCore, observedLogs := observer.New(zapcore.DebugLevel)
	recordingRunner := &recordingCommandRunner{executionResult: execshell.ExecutionResult{StandardOutput: testStandardOutputConstant}}
	shellExecutor, creationError := execshell.NewShellExecutor(zap.New(observerCore), recordingRunner, false)
	require.NoError(testInstance, creationError)

	_, executionError := shellExecutor.Execute(context.Background(), execshell.ShellCommand{CommandLine: testCommandLineConstant, WorkingDirectory: testWorkingDirectoryConstant})
	require.NoError(testInstance, executionError)

	startContext := observedLogs.FilterMessage("command execution starting").All()[0].ContextMap()
	require.Equal(testInstance, testCommandLineConstant, startContext["command"])
	require.Equal(testInstance, testWorkingDirectoryConstant, startContext["working_directory"])

	completionContext := observedLogs.FilterMessage("command execution completed").All()[0].ContextMap()
	require.Equal(testInstance, int64(0), completionContext["exit_code"])
	require.Equal(testInstance, testStandardOutputConstant, completionContext["stdout"])
}

func TestShellExecutorRejectsEmptyCommandLine(testInstance *testing.T) {
	recordingRunner := &recordingCommandRunner{}
	shellExecutor, creationError := execshell.NewShellExecutor(zap.NewNop(), recordingRunner, false)
	require.NoError(testInstance, creationError)

	_, executionError := shellExecutor.Execute(context.Background(), execshell.ShellCommand{CommandLine: "   "})
	require.ErrorIs(testInstance, executionError, execshell.ErrCommandLineMissing)
	require.Empty(testInstance, recordingRunner.recordedCommands)
}

func TestCommandFailedErrorMessage(testInstance *testing.T) {
	testCases := []struct {
		name            string
		result          execshell.ExecutionResult
		expectedMessage string
	}{
		{
			name:            "no_output",
			result:          execshell.ExecutionResult{ExitCode: 1},
			expectedMessage: `command "git push origin main" exited with code 1`,
		},
		{
			name:            "stdout_fallback",
			result:          execshell.ExecutionResult{ExitCode: 1, StandardOutput: "nothing to commit, working tree clean\n"},
			expectedMessage: `command "git push origin main" exited with code 1: nothing to commit, working tree clean`,
		},
		{
			name:            "stderr_truncated",
			result:          execshell.ExecutionResult{ExitCode: 1, StandardError: "one\n\ntwo\nthree\nfour"},
			expectedMessage: `command "git push origin main" exited with code 1: one | two`,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			failure := execshell.CommandFailedError{
				Command: execshell.ShellCommand{CommandLine: "git push origin main"},
				Result:  testCase.result,
			}
			require.Equal(testInstance, testCase.expectedMessage, failure.Error())
		})
	}
}

func TestShellExecutorStepYieldsStandardOutput(testInstance *testing.T) {
	recordingRunner := &recordingCommandRunner{executionResult: execshell.ExecutionResult{StandardOutput: testStandardOutputConstant}}
	shellExecutor, creationError := execshell.NewShellExecutor(zap.NewNop(), recordingRunner, false)
	require.NoError(testInstance, creationError)

	statusStep := shellExecutor.Step("git status", execshell.ShellCommand{CommandLine: testCommandLineConstant})
	require.Equal(testInstance, "git status", statusStep.Label)

	output, stepError := statusStep.Operation(context.Background(), nil)
	require.NoError(testInstance, stepError)
	require.Equal(testInstance, testStandardOutputConstant, output)
}

func TestShellExecutorStepFailureStopsPipeline(testInstance *testing.T) {
	recordingRunner := &recordingCommandRunner{executionResult: execshell.ExecutionResult{ExitCode: 1, StandardError: testStandardErrorOutputConstant}}
	shellExecutor, creationError := execshell.NewShellExecutor(zap.NewNop(), recordingRunner, false)
	require.NoError(testInstance, creationError)

	laterCalls := 0
	builtPipeline, pipelineError := pipeline.NewPipeline("shell", zap.NewNop(), false,
		shellExecutor.Step("git status", execshell.ShellCommand{CommandLine: testCommandLineConstant}),
		pipeline.NewStep("later", func(context.Context, any) (any, error) {
			laterCalls++
			return nil, nil
		}),
	)
	require.NoError(testInstance, pipelineError)

	_, runError := builtPipeline.Run(context.Background(), nil)
	require.Error(testInstance, runError)

	var failedError execshell.CommandFailedError
	require.ErrorAs(testInstance, runError, &failedError)
	require.Equal(testInstance, 1, failedError.Result.ExitCode)
	require.Contains(testInstance, runError.Error(), testStandardErrorOutputConstant)
	require.Zero(testInstance, laterCalls)
}
