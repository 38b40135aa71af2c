// Package fileprocess reads an input file, waits, and records what it read in a log file.
package fileprocess

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/tyemirov/autopush/internal/pipeline"
	"github.com/tyemirov/autopush/internal/pipeline/steps"
)

const (
	// DefaultInputPath is read when no input path is configured.
	DefaultInputPath = "file.txt"
	// DefaultLogPath is appended to when no log path is configured.
	DefaultLogPath = "log.txt"
	// DefaultDelay separates the read from the append when no delay is configured.
	DefaultDelay = 2 * time.Second
	// LogLinePrefix precedes the file content in the appended log line.
	LogLinePrefix = "File content processed: "
	// PipelineName labels the pipeline in log output.
	PipelineName = "process-file"
)

const (
	loggerNotConfiguredMessageConstant = "file processor logger not configured"
	completedBannerConstant            = "All tasks completed!"
	abortedBannerConstant              = "Aborting due to error."
	completedEventConstant             = "file processing completed"
	abortedEventConstant               = "file processing aborted"
	inputPathFieldConstant             = "input_path"
	logPathFieldConstant               = "log_path"
)

// ErrLoggerNotConfigured indicates the logger dependency was missing.
var ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)

// Configuration names the files and the pause between reading and logging.
type Configuration struct {
	InputPath string
	LogPath   string
	Delay     time.Duration
}

// Dependencies supplies collaborators for the service.
type Dependencies struct {
	Logger               *zap.Logger
	HumanReadableLogging bool
	FileSystem           afero.Fs
	Sleep                steps.SleepFunction
}

// Service runs read, wait, and append as one pipeline.
type Service struct {
	announcer     pipeline.Announcer
	pipeline      *pipeline.Pipeline
	configuration Configuration
}

// NewService wires the pipeline. Empty paths and a zero delay take their defaults; a nil
// file system selects the operating system's.
func NewService(dependencies Dependencies, configuration Configuration) (*Service, error) {
	if dependencies.Logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if len(configuration.InputPath) == 0 {
		configuration.InputPath = DefaultInputPath
	}
	if len(configuration.LogPath) == 0 {
		configuration.LogPath = DefaultLogPath
	}
	if configuration.Delay <= 0 {
		configuration.Delay = DefaultDelay
	}

	fileSystem := dependencies.FileSystem
	if fileSystem == nil {
		fileSystem = afero.NewOsFs()
	}

	factory, factoryError := steps.NewFactory(dependencies.Logger, dependencies.HumanReadableLogging, fileSystem, dependencies.Sleep)
	if factoryError != nil {
		return nil, factoryError
	}

	processPipeline, pipelineError := pipeline.NewPipeline(PipelineName, dependencies.Logger, dependencies.HumanReadableLogging,
		factory.ReadFile(configuration.InputPath),
		pipeline.Tap(factory.Wait(configuration.Delay)),
		factory.AppendLine(configuration.LogPath, FormatLogLine),
	)
	if pipelineError != nil {
		return nil, pipelineError
	}

	return &Service{
		announcer:     pipeline.NewAnnouncer(dependencies.Logger, dependencies.HumanReadableLogging),
		pipeline:      processPipeline,
		configuration: configuration,
	}, nil
}

// FormatLogLine renders the log line recorded for the provided file content.
func FormatLogLine(content string) string {
	return LogLinePrefix + content
}

// Run executes the pipeline once and returns the first failure.
func (service *Service) Run(executionContext context.Context) (pipeline.Outcome, error) {
	pathFields := []zap.Field{
		zap.String(inputPathFieldConstant, service.configuration.InputPath),
		zap.String(logPathFieldConstant, service.configuration.LogPath),
	}

	outcome, runError := service.pipeline.Run(executionContext, nil)
	if runError != nil {
		service.announcer.Error(abortedEventConstant, abortedBannerConstant, append(pathFields, zap.Error(runError))...)
		return outcome, runError
	}

	service.announcer.Info(completedEventConstant, completedBannerConstant, pathFields...)
	return outcome, nil
}
