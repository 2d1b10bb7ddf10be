// Package logging builds the zap logger shared by crux commands.
package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level maps a -v count to a log level: warnings by default, info at -v,
// debug at -vv and above.
func Level(verbosity int) zapcore.Level {
	switch {
	case verbosity <= 0:
		return zapcore.WarnLevel
	case verbosity == 1:
		return zapcore.InfoLevel
	}
	return zapcore.DebugLevel
}

// New returns a console logger writing to w, or stderr when w is nil.
// Log lines are prefixed so they cannot be mistaken for command output.
func New(verbosity int, w io.Writer) *zap.Logger {
	if w == nil {
		w = os.Stderr
	}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = ""
	enc.CallerKey = ""
	enc.NameKey = "logger"
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(enc),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(Level(verbosity)),
	)
	return zap.New(core).Named("crux")
}
