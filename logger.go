package bridge

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger adapts a zap logger to the Logger interface.
func NewZapLogger(l *zap.Logger) Logger {
	if l == nil {
		return NopLogger()
	}
	return zapLogger{sugar: l.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (z zapLogger) Debug(format string, args ...any) { z.sugar.Debugf(format, args...) }
func (z zapLogger) Info(format string, args ...any)  { z.sugar.Infof(format, args...) }
func (z zapLogger) Error(format string, args ...any) { z.sugar.Errorf(format, args...) }

// BuildZapLogger creates a zap logger from the log config.
func BuildZapLogger(cfg LogConfig) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}

	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, ConfigError("invalid log level %q", cfg.Level)
		}
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	return zcfg.Build()
}
