package config

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process-wide logger. It discards everything until InitLogger
// runs, so packages may log unconditionally.
var Log = zap.NewNop()

// InitLogger installs the process logger. An empty dataDir logs JSON to
// stderr (server mode); otherwise output goes to hackmate.log inside dataDir
// so it does not interfere with the terminal UI.
func InitLogger(dataDir string, debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if dataDir != "" {
		logPath := filepath.Join(dataDir, "hackmate.log")
		cfg.OutputPaths = []string{logPath}
		cfg.ErrorOutputPaths = []string{logPath}
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	Log = logger
	return logger, nil
}
