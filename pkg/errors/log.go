package errors

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogHandler is an ErrorHandler that writes through a zap logger.
type LogHandler struct {
	// Verbose enables detailed output including stack traces.
	Verbose bool
	// Logger receives the records. When nil, a console logger on stderr is used.
	Logger *zap.Logger
}

var stderrLogger = sync.OnceValue(func() *zap.Logger {
	logger, err := NewLogger("warn", "console")
	if err != nil {
		return zap.NewNop()
	}
	return logger
})

func (h *LogHandler) logger() *zap.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return stderrLogger()
}

// HandleError logs a ReconcileError.
func (h *LogHandler) HandleError(err *ReconcileError) {
	if err == nil {
		return
	}
	fields := []zap.Field{
		zap.String("op", err.Op),
		zap.Stringer("kind", err.Kind),
		zap.Error(err.Err),
	}
	if err.Component != "" {
		fields = append(fields, zap.String("component", err.Component))
	}
	if h.Verbose && err.StackTrace != "" {
		fields = append(fields, zap.String("stack", err.StackTrace))
	}
	h.logger().Error("reconcile error", fields...)
}

// HandlePanic logs a PanicError.
func (h *LogHandler) HandlePanic(err *PanicError) {
	if err == nil {
		return
	}
	fields := []zap.Field{zap.String("value", fmt.Sprint(err.Value))}
	if err.Op != "" {
		fields = append(fields, zap.String("op", err.Op))
	}
	if h.Verbose && err.StackTrace != "" {
		fields = append(fields, zap.String("stack", err.StackTrace))
	}
	h.logger().Error("recovered panic", fields...)
}

// HandleWarning logs a Warning.
func (h *LogHandler) HandleWarning(w *Warning) {
	if w == nil {
		return
	}
	fields := []zap.Field{zap.String("code", string(w.Code))}
	if w.Component != "" {
		fields = append(fields, zap.String("component", w.Component))
	}
	if h.Verbose && w.StackTrace != "" {
		fields = append(fields, zap.String("stack", w.StackTrace))
	}
	h.logger().Warn(w.String(), fields...)
}

// NewLogger builds a zap logger writing to stderr at the given level.
// Encoding is "console" or "json"; an empty value means "console".
func NewLogger(level, encoding string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if encoding == "" {
		encoding = "console"
	}
	if encoding != "console" && encoding != "json" {
		return nil, fmt.Errorf("invalid log encoding %q", encoding)
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.Encoding = encoding
	config.Sampling = nil
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	if encoding == "console" {
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	return config.Build()
}
