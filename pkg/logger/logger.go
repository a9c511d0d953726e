package logger

import (
	"log"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Log struct {
	LogLevel zapcore.Level `envconfig:"LOG_LEVEL"`
	Sink     string        `envconfig:"LOG_SINK"`
}

// NewLogger builds a named zap logger from Log config.
// An empty Sink keeps the default stderr output.
func NewLogger(cfg Log, name string) *zap.Logger {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.Sink != "" {
		zapCfg.OutputPaths = append(zapCfg.OutputPaths, cfg.Sink)
	}
	l, err := zapCfg.Build()
	if err != nil {
		log.Fatal("logger build ", err)
	}
	return l.Named(name)
}
