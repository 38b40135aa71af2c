package execshell

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
)

const (
	defaultShellInterpreterConstant = "sh"
	shellCommandFlagConstant        = "-c"
	environmentAssignmentConstant   = "="
)

// OSCommandRunner evaluates command lines with the system shell and captures their output.
type OSCommandRunner struct {
	interpreter string
}

// NewOSCommandRunner constructs a runner backed by sh.
func NewOSCommandRunner() *OSCommandRunner {
	return &OSCommandRunner{interpreter: defaultShellInterpreterConstant}
}

// Run executes the command line through "sh -c". The child inherits the parent environment,
// extended by the command's environment variables.
func (runner *OSCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	interpreter := runner.interpreter
	if len(interpreter) == 0 {
		interpreter = defaultShellInterpreterConstant
	}

	executable := exec.CommandContext(executionContext, interpreter, shellCommandFlagConstant, command.CommandLine)
	executable.Dir = command.WorkingDirectory
	if len(command.EnvironmentVariables) > 0 {
		environment := os.Environ()
		for key, value := range command.EnvironmentVariables {
			environment = append(environment, key+environmentAssignmentConstant+value)
		}
		executable.Env = environment
	}

	var standardOutput bytes.Buffer
	var standardError bytes.Buffer
	executable.Stdout = &standardOutput
	executable.Stderr = &standardError

	runError := executable.Run()
	result := ExecutionResult{
		StandardOutput: standardOutput.String(),
		StandardError:  standardError.String(),
	}
	if runError == nil {
		return result, nil
	}

	var exitError *exec.ExitError
	if errors.As(runError, &exitError) {
		result.ExitCode = exitError.ExitCode()
		return result, nil
	}
	return ExecutionResult{}, runError
}
