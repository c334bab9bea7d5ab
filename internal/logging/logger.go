// Package logging wires a logr.Logger backed by zap's console encoder, a
// trimmed version of microsoft-dcp's pkg/logger package: this adapter is
// a single-process CLI tool, not a fleet of controller processes, so the
// diagnostics-log-socket and session-ID log file naming machinery in DCP
// has no analog here and is not carried over.
package logging

import (
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	verbosityFlagName      = "verbosity"
	verbosityFlagShortName = "v"
)

// Logger wraps a logr.Logger with a runtime-adjustable verbosity level.
type Logger struct {
	logr.Logger
	level zap.AtomicLevel
}

// New builds a console logger writing to stderr. name becomes the root
// logr name (e.g. "gdbdap").
func New(name string) *Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewConsoleEncoder(encoderConfig)

	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level)

	zapLogger := zap.New(core)
	return &Logger{
		Logger: zapr.NewLogger(zapLogger).WithName(name),
		level:  level,
	}
}

// SetLevel adjusts the minimum level written to stderr.
func (l *Logger) SetLevel(level zapcore.Level) {
	l.level.SetLevel(level)
}

// AddVerbosityFlag registers a -v/--verbosity count flag on fs. Call the
// returned function after fs.Parse to apply it: each occurrence of the
// flag lowers the effective zap level by one, so more -v means more
// output (zap levels run negative for debug, positive for warn/error).
func (l *Logger) AddVerbosityFlag(fs *pflag.FlagSet) func() {
	count := fs.CountP(verbosityFlagName, verbosityFlagShortName, "increase log verbosity (repeatable)")
	return func() {
		l.SetLevel(zapcore.Level(int8(zapcore.InfoLevel) - int8(*count)))
	}
}
