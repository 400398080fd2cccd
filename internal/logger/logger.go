package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"signapi/internal/config"
)

// New builds the JSON logger described by c. Output "file" writes to a
// lumberjack-rotated file at c.Path; anything else writes to stdout.
func New(c config.LogConfig) (*zap.Logger, error) {
	var w io.Writer = os.Stdout
	if c.Output == "file" {
		if c.Path == "" {
			return nil, fmt.Errorf("log path is required when output is 'file'")
		}
		w = &lumberjack.Logger{
			Filename:   c.Path,
			MaxSize:    positive(c.MaxSizeMB, 100),
			MaxBackups: positive(c.MaxBackups, 3),
			MaxAge:     positive(c.MaxAgeDays, 28),
			Compress:   true,
		}
	}
	return NewWithWriter(w, c.Level), nil
}

// NewWithWriter builds a JSON logger writing to w at the given level.
func NewWithWriter(w io.Writer, level string) *zap.Logger {
	core := zapcore.NewCore(newEncoder(), zapcore.AddSync(w), ParseLevel(level))
	return zap.New(core, zap.AddCaller()).With(zap.String("service", "signapi"))
}

func newEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.MessageKey = "msg"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	cfg.EncodeDuration = zapcore.MillisDurationEncoder
	cfg.EncodeCaller = zapcore.ShortCallerEncoder
	return zapcore.NewJSONEncoder(cfg)
}

// ParseLevel maps LOG_LEVEL values to zap levels, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// WithTrace adds the trace and span ids of the span in ctx, if any.
func WithTrace(ctx context.Context, log *zap.Logger) *zap.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return log
	}
	return log.With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}

func positive(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
