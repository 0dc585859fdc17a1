package eventlog

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewConsole builds the zap logger entries are mirrored to. The development
// and local environments get zap's development profile; everything else the
// production one. Both encode JSON with upper-case levels.
func NewConsole(environment string, level Level) (*zap.Logger, error) {
	var cfg zap.Config
	if environment == "development" || environment == "local" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Encoding = "json"
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.Level = zap.NewAtomicLevelAt(level.zapLevel())
	cfg.DisableStacktrace = true
	cfg.DisableCaller = true

	built, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build console logger: %w", err)
	}
	return built, nil
}

// mirror writes entry to the console on the channel matching its level.
func (l *Logger) mirror(entry LogEntry) {
	fields := []zap.Field{
		zap.String("event_type", string(entry.EventType)),
		zap.String("session_id", entry.SessionID),
	}
	if entry.UserID != "" {
		fields = append(fields, zap.String("user_id", entry.UserID))
	}
	if len(entry.Data) > 0 {
		fields = append(fields, zap.Any("data", entry.Data))
	}

	switch entry.Level {
	case LevelDebug:
		l.console.Debug(entry.Message, fields...)
	case LevelWarn:
		l.console.Warn(entry.Message, fields...)
	case LevelError:
		l.console.Error(entry.Message, fields...)
	default:
		l.console.Info(entry.Message, fields...)
	}
}
