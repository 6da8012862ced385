package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kailas-cloud/qtext/internal/version"
)

// presets maps an environment to its base zap config.
var presets = map[string]func() zap.Config{
	"prod":   productionConfig,
	"local":  zap.NewDevelopmentConfig,
	"dev":    zap.NewDevelopmentConfig,
	"docker": zap.NewDevelopmentConfig,
}

// productionConfig is zap's production JSON config without sampling: every
// request emits exactly one http_request line and none may be dropped.
func productionConfig() zap.Config {
	cfg := zap.NewProductionConfig()
	cfg.Sampling = nil
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.InitialFields = map[string]any{
		"service": "qtext",
		"version": version.Version,
	}
	return cfg
}

// NewLogger creates a zap logger for env. prod writes JSON, the others
// write console output. levelOverride, when non-empty, replaces the
// preset level (debug, info, warn, error).
func NewLogger(env string, levelOverride ...string) (*zap.Logger, error) {
	preset, ok := presets[env]
	if !ok {
		return nil, fmt.Errorf("unknown environment %q for logger", env)
	}
	cfg := preset()

	if len(levelOverride) > 0 && levelOverride[0] != "" {
		level, err := zapcore.ParseLevel(levelOverride[0])
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", levelOverride[0], err)
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
	}

	l, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}
