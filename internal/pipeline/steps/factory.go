// Package steps provides pipeline step adapters for timers and one-shot file reads and appends.
package steps

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/tyemirov/autopush/internal/pipeline"
)

const (
	loggerNotConfiguredMessageConstant     = "step factory logger not configured"
	fileSystemNotConfiguredMessageConstant = "step factory file system not configured"
	waitStepLabelTemplateConstant          = "wait %s"
	readStepLabelTemplateConstant          = "read %s"
	appendStepLabelTemplateConstant        = "append %s"
	waitStartBannerTemplateConstant        = "Waiting for %s seconds..."
	waitDoneBannerConstant                 = "Done waiting!"
	readStartBannerConstant                = "Reading the file..."
	readContentBannerTemplateConstant      = "File content: %s"
	readFailureBannerTemplateConstant      = "Error reading file: %v"
	appendStartBannerConstant              = "Writing log..."
	appendDoneBannerConstant               = "Log written successfully!"
	appendFailureBannerTemplateConstant    = "Error writing log: %v"
	waitStartEventConstant                 = "timer started"
	waitDoneEventConstant                  = "timer elapsed"
	readStartEventConstant                 = "file read starting"
	readDoneEventConstant                  = "file read completed"
	readFailureEventConstant               = "file read failed"
	appendStartEventConstant               = "log append starting"
	appendDoneEventConstant                = "log append completed"
	appendFailureEventConstant             = "log append failed"
	pathFieldConstant                      = "path"
	durationFieldConstant                  = "duration"
	bytesFieldConstant                     = "bytes"
	lineTerminatorConstant                 = "\n"
	appendFileFlagsConstant                = os.O_APPEND | os.O_CREATE | os.O_WRONLY
	appendFilePermissionConstant           = 0o644
)

var (
	// ErrLoggerNotConfigured indicates the logger dependency was missing.
	ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)
	// ErrFileSystemNotConfigured indicates the file system dependency was missing.
	ErrFileSystemNotConfigured = errors.New(fileSystemNotConfiguredMessageConstant)
)

// SleepFunction blocks for the provided duration.
type SleepFunction func(duration time.Duration)

// Factory builds timer and file steps sharing one logger and file system.
type Factory struct {
	announcer  pipeline.Announcer
	fileSystem afero.Fs
	sleep      SleepFunction
}

// NewFactory validates dependencies and constructs a Factory. A nil sleep function falls back to time.Sleep.
func NewFactory(logger *zap.Logger, humanReadableLogging bool, fileSystem afero.Fs, sleep SleepFunction) (*Factory, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if fileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Factory{
		announcer:  pipeline.NewAnnouncer(logger, humanReadableLogging),
		fileSystem: fileSystem,
		sleep:      sleep,
	}, nil
}

// Wait resolves after the duration elapses. It produces no value and cannot fail.
func (factory *Factory) Wait(duration time.Duration) pipeline.Step {
	return pipeline.Typed(fmt.Sprintf(waitStepLabelTemplateConstant, duration), func(_ context.Context, _ any) (any, error) {
		factory.announcer.Info(waitStartEventConstant,
			fmt.Sprintf(waitStartBannerTemplateConstant, strconv.FormatFloat(duration.Seconds(), 'f', -1, 64)),
			zap.Duration(durationFieldConstant, duration),
		)
		factory.sleep(duration)
		factory.announcer.Info(waitDoneEventConstant, waitDoneBannerConstant, zap.Duration(durationFieldConstant, duration))
		return nil, nil
	})
}

// ReadFile returns the full text content of the file at path. The step ignores its input.
func (factory *Factory) ReadFile(path string) pipeline.Step {
	return pipeline.Typed(fmt.Sprintf(readStepLabelTemplateConstant, path), func(_ context.Context, _ any) (string, error) {
		factory.announcer.Info(readStartEventConstant, readStartBannerConstant, zap.String(pathFieldConstant, path))

		content, readError := afero.ReadFile(factory.fileSystem, path)
		if readError != nil {
			factory.announcer.Error(readFailureEventConstant,
				fmt.Sprintf(readFailureBannerTemplateConstant, readError),
				zap.String(pathFieldConstant, path),
				zap.Error(readError),
			)
			return "", readError
		}

		text := string(content)
		factory.announcer.Info(readDoneEventConstant,
			fmt.Sprintf(readContentBannerTemplateConstant, text),
			zap.String(pathFieldConstant, path),
			zap.Int(bytesFieldConstant, len(content)),
		)
		return text, nil
	})
}

// AppendLine appends compose(input) plus a line terminator to the file at path, creating the
// file when it does not exist. The step yields true on success.
func (factory *Factory) AppendLine(path string, compose func(input string) string) pipeline.Step {
	return pipeline.Typed(fmt.Sprintf(appendStepLabelTemplateConstant, path), func(_ context.Context, input string) (bool, error) {
		line := input
		if compose != nil {
			line = compose(input)
		}

		factory.announcer.Info(appendStartEventConstant, appendStartBannerConstant, zap.String(pathFieldConstant, path))

		if appendError := factory.appendText(path, line+lineTerminatorConstant); appendError != nil {
			factory.announcer.Error(appendFailureEventConstant,
				fmt.Sprintf(appendFailureBannerTemplateConstant, appendError),
				zap.String(pathFieldConstant, path),
				zap.Error(appendError),
			)
			return false, appendError
		}

		factory.announcer.Info(appendDoneEventConstant, appendDoneBannerConstant, zap.String(pathFieldConstant, path))
		return true, nil
	})
}

func (factory *Factory) appendText(path string, text string) error {
	file, openError := factory.fileSystem.OpenFile(path, appendFileFlagsConstant, appendFilePermissionConstant)
	if openError != nil {
		return openError
	}

	_, writeError := file.WriteString(text)
	closeError := file.Close()
	if writeError != nil {
		return writeError
	}
	return closeError
}
