// Package logging builds the zap loggers shared by the CLI, the coordinator
// and the server. The worker pool does not log.
package logging

import "go.uber.org/zap"

// New builds a sugared zap logger. verbose raises the level to debug, quiet
// lowers it to warn; neither set leaves it at info, mirroring the
// -v/-q/(none) trio on the CLI.
func New(verbose, quiet bool) (*zap.SugaredLogger, error) {
	level := zap.InfoLevel
	switch {
	case verbose:
		level = zap.DebugLevel
	case quiet:
		level = zap.WarnLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Encoding = "console"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zap.NewProductionEncoderConfig().EncodeTime

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// Noop returns a logger that discards everything, for use in tests and in
// library call sites that don't want to configure one.
func Noop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
