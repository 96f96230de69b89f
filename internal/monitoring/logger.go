package monitoring

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logf is the package-level diagnostic logger. It defaults to an info-level
// zap console logger but may be replaced by SetLogger or UseZap. Tests or
// production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = defaultLogger().Infof

// debugf receives verbose diagnostics. It is nil (muted) until a debug sink
// is installed.
var debugf func(format string, v ...interface{})

// NewLoggerConfig returns the console config used for the default logger:
// ISO8601 timestamps, short callers and no stacktraces.
func NewLoggerConfig(debug bool) zap.Config {
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}
	return zap.Config{
		Level:    zap.NewAtomicLevelAt(level),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
	}
}

// NewLogger builds a named sugared logger from NewLoggerConfig.
func NewLogger(name string, debug bool) (*zap.SugaredLogger, error) {
	logger, err := NewLoggerConfig(debug).Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar().Named(name), nil
}

func defaultLogger() *zap.SugaredLogger {
	logger, err := NewLogger("lidarscan", false)
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return logger
}

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetDebugLogger installs the sink for Debugf. Pass nil to disable debug
// logging.
func SetDebugLogger(f func(format string, v ...interface{})) {
	debugf = f
}

// UseZap routes Logf to the info level and Debugf to the debug level of the
// given logger. A nil logger mutes both.
func UseZap(logger *zap.SugaredLogger) {
	if logger == nil {
		SetLogger(nil)
		SetDebugLogger(nil)
		return
	}
	Logf = logger.Infof
	debugf = logger.Debugf
}

// Debugf logs formatted debug messages when a debug sink is configured.
func Debugf(format string, args ...interface{}) {
	if debugf != nil {
		debugf(format, args...)
	}
}
