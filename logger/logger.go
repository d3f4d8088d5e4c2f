// Package logger provides the global structured logger for typeforge.
//
// All pipeline stages log through a shared *zap.SugaredLogger, named per
// stage (e.g. logger.Named("graph.builder")). The logger defaults to a
// no-op instance so library code never panics when used before
// Initialize() is called by the CLI.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger is the global logger instance
	Logger *zap.SugaredLogger
	// JSONOutput tracks whether structured JSON output is enabled
	JSONOutput bool
)

func init() {
	// Safe no-op logger at package load time; Initialize replaces it.
	Logger = zap.NewNop().Sugar()
}

// Initialize sets up the global logger. With jsonOutput the logger emits
// machine-readable JSON; otherwise a human-readable console format is used.
// Verbose lowers the level floor to Debug.
func Initialize(jsonOutput, verbose bool) error {
	JSONOutput = jsonOutput

	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}

	var zapLogger *zap.Logger
	if jsonOutput {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(level)
		config.OutputPaths = []string{"stderr"}
		built, err := config.Build()
		if err != nil {
			return err
		}
		zapLogger = built
	} else {
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapLogger = zap.New(
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(encoderConfig),
				zapcore.AddSync(os.Stderr),
				level,
			),
		)
	}

	Logger = zapLogger.Sugar()
	return nil
}

// Named returns a child of the global logger with the given name appended.
func Named(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// Cleanup flushes any buffered log entries
func Cleanup() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}

// Infow logs an info message with structured fields
func Infow(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Infow(msg, keysAndValues...)
	}
}

// Warnw logs a warning message with structured fields
func Warnw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Warnw(msg, keysAndValues...)
	}
}

// Errorw logs an error message with structured fields
func Errorw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Errorw(msg, keysAndValues...)
	}
}

// Debugw logs a debug message with structured fields
func Debugw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Debugw(msg, keysAndValues...)
	}
}
