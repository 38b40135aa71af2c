// Package process runs a child program attached to the parent's terminal and maps its exit status.
package process

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
)

// Command describes a child program invocation.
type Command struct {
	Program          string
	Arguments        []string
	WorkingDirectory string
}

// Spawner launches a child program and waits for it to terminate. The returned error is
// reserved for programs that could not be started; a terminated child always reports its
// exit code.
type Spawner interface {
	Spawn(executionContext context.Context, command Command) (int, error)
}

// InheritedStdioSpawner streams the child's standard streams live through the configured
// reader and writers, which default to the parent's own.
type InheritedStdioSpawner struct {
	Input       io.Reader
	Output      io.Writer
	ErrorOutput io.Writer
}

// NewInheritedStdioSpawner constructs a spawner attached to os.Stdin, os.Stdout, and os.Stderr.
func NewInheritedStdioSpawner() *InheritedStdioSpawner {
	return &InheritedStdioSpawner{Input: os.Stdin, Output: os.Stdout, ErrorOutput: os.Stderr}
}

// Spawn starts the program and blocks until it exits.
func (spawner *InheritedStdioSpawner) Spawn(executionContext context.Context, command Command) (int, error) {
	executable := exec.CommandContext(executionContext, command.Program, command.Arguments...)
	executable.Dir = command.WorkingDirectory
	executable.Stdin = spawner.Input
	executable.Stdout = spawner.Output
	executable.Stderr = spawner.ErrorOutput

	if startError := executable.Start(); startError != nil {
		return 0, startError
	}

	waitError := executable.Wait()
	if waitError == nil {
		return 0, nil
	}

	var exitError *exec.ExitError
	if errors.As(waitError, &exitError) {
		return exitError.ExitCode(), nil
	}
	return 0, waitError
}
