// Package logger builds the zap logger used across the compiler.
package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a console logger writing to stderr. Verbose enables debug
// output.
func New(verbose bool) *zap.SugaredLogger {
	return NewWithWriter(os.Stderr, verbose)
}

// NewWithWriter creates a console logger writing to w
func NewWithWriter(w io.Writer, verbose bool) *zap.SugaredLogger {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(w),
		level,
	)

	return zap.New(core, zap.AddStacktrace(zapcore.ErrorLevel)).Sugar()
}
