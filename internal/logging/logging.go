// Package logging sets up the structured logger each cmd/plutoc subcommand
// builds and internal/pipeline logs stage progress through, via
// go.uber.org/zap — the ambient stack's logging concern (SPEC_FULL §2) carries the teacher's own
// structured-logging choice regardless of which feature Non-goals exclude.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap.Logger configured for CLI use: human-readable console
// output at info level by default, switched to JSON when machine-readable
// output is requested (e.g. `plutoc compile --json-logs`).
func New(verbose, jsonOutput bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if !jsonOutput {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}

// NewNop returns a logger that discards everything, for tests that exercise
// pipeline stages without caring about their log output.
func NewNop() *zap.Logger { return zap.NewNop() }
