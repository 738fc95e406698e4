package logger

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options tunes the zap core behind a Logger.
type Options struct {
	Level    string // debug | info | warn | error
	Encoding string // json | console
}

// Logger writes one structured line per event. Every line carries the
// service, hostname and action, plus request/connection/room ids taken
// from the context.
type Logger struct {
	zl *zap.Logger
}

var levels = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
}

// New creates a structured logger for the given service.
func New(service string, opts ...Options) *Logger {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}

	hn, err := os.Hostname()
	if err != nil || strings.TrimSpace(hn) == "" {
		hn = "unknown-hostname"
	}
	if strings.TrimSpace(service) == "" {
		service = "unknown-service"
	}

	level, ok := levels[strings.ToLower(strings.TrimSpace(o.Level))]
	if !ok {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.MessageKey = "message"
	encCfg.LevelKey = "level"
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if o.Encoding == "console" {
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(os.Stdout), zap.NewAtomicLevelAt(level))
	zl := zap.New(core).With(
		zap.String("service", service),
		zap.String("hostname", hn),
	)
	return &Logger{zl: zl}
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	return &Logger{zl: zap.NewNop()}
}

// FromZap wraps an existing zap logger (tests use zaptest/observer).
func FromZap(zl *zap.Logger) *Logger {
	return &Logger{zl: zl}
}

// Sync flushes buffered entries.
func (l *Logger) Sync() {
	_ = l.zl.Sync()
}

// Debug writes a DEBUG line with optional details.
func (l *Logger) Debug(ctx context.Context, action, msg string, details any) {
	l.zl.Debug(strings.TrimSpace(msg), l.fields(ctx, action, details)...)
}

// Info writes an INFO line with optional details.
func (l *Logger) Info(ctx context.Context, action, msg string, details any) {
	l.zl.Info(strings.TrimSpace(msg), l.fields(ctx, action, details)...)
}

// Warn writes a WARN line with optional details.
func (l *Logger) Warn(ctx context.Context, action, msg string, details any) {
	l.zl.Warn(strings.TrimSpace(msg), l.fields(ctx, action, details)...)
}

// Error writes an ERROR line and attaches the error with a stack trace.
func (l *Logger) Error(ctx context.Context, action, msg string, err error, details any) {
	if err == nil {
		err = fmt.Errorf("unknown error")
	}
	fields := l.fields(ctx, action, details)
	fields = append(fields, zap.Error(err), zap.StackSkip("stack", 1))
	l.zl.Error(strings.TrimSpace(msg), fields...)
}

func (l *Logger) fields(ctx context.Context, action string, details any) []zap.Field {
	fields := make([]zap.Field, 0, 6)
	fields = append(fields, zap.String("action", safeAction(action)))
	if v := fromCtx(ctx, ctxKeyRequestID); v != "" {
		fields = append(fields, zap.String("request_id", v))
	}
	if v := fromCtx(ctx, ctxKeyConnID); v != "" {
		fields = append(fields, zap.String("connection_id", v))
	}
	if v := fromCtx(ctx, ctxKeyRoomID); v != "" {
		fields = append(fields, zap.String("room_id", v))
	}
	if details != nil {
		fields = append(fields, zap.Any("details", details))
	}
	return fields
}

// ------------ Context helpers -------------

type ctxKey string

const (
	ctxKeyRequestID ctxKey = "trainchat_request_id"
	ctxKeyConnID    ctxKey = "trainchat_connection_id"
	ctxKeyRoomID    ctxKey = "trainchat_room_id"
)

// WithRequestID returns a new context carrying request_id.
func (l *Logger) WithRequestID(ctx context.Context, reqID string) context.Context {
	return withValue(ctx, ctxKeyRequestID, reqID)
}

// WithConnID returns a new context carrying connection_id.
func (l *Logger) WithConnID(ctx context.Context, connID string) context.Context {
	return withValue(ctx, ctxKeyConnID, connID)
}

// WithRoomID returns a new context carrying room_id.
func (l *Logger) WithRoomID(ctx context.Context, roomID string) context.Context {
	return withValue(ctx, ctxKeyRoomID, roomID)
}

func withValue(ctx context.Context, key ctxKey, v string) context.Context {
	if strings.TrimSpace(v) == "" {
		return ctx
	}
	return context.WithValue(ctx, key, v)
}

func fromCtx(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	if s, ok := ctx.Value(key).(string); ok {
		return s
	}
	return ""
}

func safeAction(a string) string {
	a = strings.TrimSpace(a)
	if a == "" {
		return "unspecified"
	}
	return a
}
