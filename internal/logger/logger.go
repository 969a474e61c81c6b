// Package logger builds the structured log written by every hostsolo run.
//
// Events go to a JSON file under <project>/.hostsolo/logs, rotated by
// lumberjack. With --verbose the same events are teed to stderr at debug
// level. User-facing output does not go through the logger.
package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FileName is the active log file inside the log directory.
const FileName = "hostsolo.log"

// Options configures New.
type Options struct {
	// Dir is the log directory. Empty disables the file sink.
	Dir string
	// Verbose tees debug output to Console.
	Verbose bool
	// Console defaults to os.Stderr.
	Console io.Writer
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:      "ts",
		LevelKey:     "level",
		MessageKey:   "msg",
		CallerKey:    "caller",
		EncodeTime:   zapcore.ISO8601TimeEncoder,
		EncodeLevel:  zapcore.LowercaseLevelEncoder,
		EncodeCaller: zapcore.ShortCallerEncoder,
	}
}

// New returns a sugared logger tagged with a fresh run_id. When neither
// sink is enabled it returns a no-op logger.
func New(opts Options) (*zap.SugaredLogger, error) {
	var cores []zapcore.Core
	var errOut zapcore.WriteSyncer = zapcore.AddSync(io.Discard)

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, err
		}
		fileSink := zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(opts.Dir, FileName),
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), fileSink, zap.DebugLevel))
		errOut = fileSink
	}

	if opts.Verbose {
		console := opts.Console
		if console == nil {
			console = os.Stderr
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig()),
			zapcore.AddSync(console),
			zap.DebugLevel,
		))
	}

	if len(cores) == 0 {
		return zap.NewNop().Sugar(), nil
	}

	z := zap.New(
		zapcore.NewTee(cores...),
		zap.ErrorOutput(errOut),
	).Sugar().With("run_id", uuid.NewString())

	return z, nil
}

// Nop returns a logger that discards everything.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
