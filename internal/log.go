package internal

import (
	"fmt"
	"path/filepath"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/arkive/util"
	"go.uber.org/zap"
)

// NewLogger creates the logger of the command line.
//
// Debug switches to the development configuration, which logs to stderr in a human-friendly format.
func NewLogger(debug bool, logLevel string) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %s: %w", logLevel, err)
	}

	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = nil
		cfg.EncoderConfig.TimeKey = ""
		cfg.EncoderConfig.CallerKey = ""
		cfg.DisableStacktrace = true
		cfg.Level = level
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger error: %w", err)
	}

	return logger.Named("arkive"), nil
}

// Prefix creates a consistent prefix for all file-based commands to use.
//
// i and n are the zero-based ordinal and expected count.
func Prefix(i, n int, name flags.Filename) string {
	return fmt.Sprintf(`[%d/%d] "%s"`, i+1, n, util.TruncateRightWithSuffix(filepath.Base(string(name)), 30, "..."))
}

// WithPrefix returns a child logger that has the Prefix of the given file.
func WithPrefix(logger *zap.Logger, i, n int, name flags.Filename) *zap.Logger {
	return logger.With(zap.String("file", Prefix(i, n, name)))
}
