package utils

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel enumerates supported logging levels.
type LogLevel string

// LogFormat enumerates supported log encodings.
type LogFormat string

// Supported log levels.
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Supported log formats.
const (
	LogFormatStructured LogFormat = "structured"
	LogFormatConsole    LogFormat = "console"
)

const (
	unsupportedLogLevelTemplateConstant  = "unsupported log level %q"
	unsupportedLogFormatTemplateConstant = "unsupported log format %q"
	timestampKeyConstant                 = "ts"
	levelKeyConstant                     = "level"
	messageKeyConstant                   = "msg"
	callerKeyConstant                    = "caller"
)

// LoggerOutputs bundles the loggers produced for a single CLI run. The diagnostic logger
// carries leveled, timestamped records; the console logger prints bare messages for people
// and discards everything in structured mode.
type LoggerOutputs struct {
	DiagnosticLogger *zap.Logger
	ConsoleLogger    *zap.Logger
}

// LoggerFactory builds zap loggers writing to a shared destination.
type LoggerFactory struct {
	destination io.Writer
}

// NewLoggerFactory creates a factory writing to the process's standard error.
func NewLoggerFactory() LoggerFactory {
	return LoggerFactory{}
}

// NewLoggerFactoryWithWriter creates a factory writing to the provided destination.
func NewLoggerFactoryWithWriter(destination io.Writer) LoggerFactory {
	return LoggerFactory{destination: destination}
}

// CreateLoggerOutputs builds the diagnostic and console loggers for the level and format.
func (factory LoggerFactory) CreateLoggerOutputs(level LogLevel, format LogFormat) (LoggerOutputs, error) {
	zapLevel, levelError := ParseLogLevel(level)
	if levelError != nil {
		return LoggerOutputs{}, levelError
	}

	normalizedFormat := LogFormat(strings.ToLower(strings.TrimSpace(string(format))))
	if normalizedFormat != LogFormatStructured && normalizedFormat != LogFormatConsole {
		return LoggerOutputs{}, fmt.Errorf(unsupportedLogFormatTemplateConstant, format)
	}

	destination := factory.destination
	if destination == nil {
		destination = os.Stderr
	}
	writeSyncer := zapcore.Lock(zapcore.AddSync(NewFlushingWriter(destination)))
	levelEnabler := zap.NewAtomicLevelAt(zapLevel)

	if normalizedFormat == LogFormatStructured {
		encoderConfiguration := zap.NewProductionEncoderConfig()
		encoderConfiguration.TimeKey = timestampKeyConstant
		encoderConfiguration.EncodeTime = zapcore.ISO8601TimeEncoder
		diagnosticCore := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfiguration), writeSyncer, levelEnabler)
		return LoggerOutputs{
			DiagnosticLogger: zap.New(diagnosticCore, zap.AddCaller()),
			ConsoleLogger:    zap.NewNop(),
		}, nil
	}

	diagnosticEncoderConfiguration := zap.NewDevelopmentEncoderConfig()
	diagnosticEncoderConfiguration.TimeKey = timestampKeyConstant
	diagnosticEncoderConfiguration.LevelKey = levelKeyConstant
	diagnosticEncoderConfiguration.MessageKey = messageKeyConstant
	diagnosticEncoderConfiguration.CallerKey = callerKeyConstant
	diagnosticCore := zapcore.NewCore(zapcore.NewConsoleEncoder(diagnosticEncoderConfiguration), writeSyncer, levelEnabler)

	consoleEncoderConfiguration := zapcore.EncoderConfig{
		MessageKey:     messageKeyConstant,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	consoleCore := zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoderConfiguration), writeSyncer, levelEnabler)

	return LoggerOutputs{
		DiagnosticLogger: zap.New(diagnosticCore),
		ConsoleLogger:    zap.New(consoleCore),
	}, nil
}

// ParseLogLevel converts a configured level name into a zap level.
func ParseLogLevel(level LogLevel) (zapcore.Level, error) {
	switch LogLevel(strings.ToLower(strings.TrimSpace(string(level)))) {
	case LogLevelDebug:
		return zapcore.DebugLevel, nil
	case LogLevelInfo:
		return zapcore.InfoLevel, nil
	case LogLevelWarn:
		return zapcore.WarnLevel, nil
	case LogLevelError:
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf(unsupportedLogLevelTemplateConstant, level)
	}
}
