package pipeline

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Announcer writes stage banners either as plain console text or as structured events.
type Announcer struct {
	logger               *zap.Logger
	humanReadableLogging bool
}

// NewAnnouncer builds an Announcer. A nil logger discards every banner.
func NewAnnouncer(logger *zap.Logger, humanReadableLogging bool) Announcer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return Announcer{logger: logger, humanReadableLogging: humanReadableLogging}
}

// Debug emits a diagnostic banner or event.
func (announcer Announcer) Debug(event string, banner string, fields ...zap.Field) {
	announcer.announce(zapcore.DebugLevel, event, banner, fields)
}

// Info emits the banner in human-readable mode and the event with fields otherwise.
func (announcer Announcer) Info(event string, banner string, fields ...zap.Field) {
	announcer.announce(zapcore.InfoLevel, event, banner, fields)
}

// Warn emits a warning banner or event.
func (announcer Announcer) Warn(event string, banner string, fields ...zap.Field) {
	announcer.announce(zapcore.WarnLevel, event, banner, fields)
}

// Error emits an error banner or event.
func (announcer Announcer) Error(event string, banner string, fields ...zap.Field) {
	announcer.announce(zapcore.ErrorLevel, event, banner, fields)
}

// HumanReadable reports whether banners replace structured events.
func (announcer Announcer) HumanReadable() bool {
	return announcer.humanReadableLogging
}

// Logger exposes the underlying logger.
func (announcer Announcer) Logger() *zap.Logger {
	return announcer.logger
}

func (announcer Announcer) announce(level zapcore.Level, event string, banner string, fields []zap.Field) {
	if announcer.humanReadableLogging {
		announcer.logger.Log(level, banner)
		return
	}
	announcer.logger.Log(level, event, fields...)
}
