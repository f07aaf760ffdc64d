package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/example/court-booker/internal/domain/booking"
)

// New builds the process logger. Development mode gets colored levels and
// debug output.
func New(production bool) (*zap.Logger, error) {
	var cfg zap.Config
	if production {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return cfg.Build()
}

// Reporter renders progress events through a zap logger, for runs without
// the TUI.
type Reporter struct {
	Log *zap.Logger
}

func (r Reporter) Report(e booking.ProgressEvent) {
	fields := []zap.Field{zap.String("stage", string(e.Stage))}
	switch e.Severity {
	case booking.SeverityWarning:
		r.Log.Warn(e.Message, fields...)
	case booking.SeverityError:
		r.Log.Error(e.Message, fields...)
	default:
		r.Log.Info(e.Message, fields...)
	}
}
