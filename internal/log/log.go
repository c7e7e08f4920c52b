// Package log builds the zap logger used across recetario and carries
// per-request loggers through context.
package log

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/recetario/recetario/internal/config"
)

// New returns a JSON production logger, or a console development logger
// when cfg.Format is "console".
func New(cfg config.Log) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing log level %q", cfg.Level)
	}

	var zc zap.Config
	switch cfg.Format {
	case "json", "":
		zc = zap.NewProductionConfig()
	case "console":
		zc = zap.NewDevelopmentConfig()
	default:
		return nil, errors.Errorf("unknown log format %q", cfg.Format)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying l.
func NewContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored in ctx, or fallback if there is none.
func FromContext(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	return fallback
}

// PanicLogger reports panics recovered by the GraphQL engine during query
// execution. It satisfies graphql-go's log.Logger.
type PanicLogger struct {
	Logger *zap.Logger
}

// LogPanic logs the recovered value with the stack of the panicking
// resolver, using the request logger when ctx carries one.
func (l *PanicLogger) LogPanic(ctx context.Context, value interface{}) {
	FromContext(ctx, l.Logger).Error("graphql: panic occurred",
		zap.Any("panic", value),
		zap.Stack("stack"),
	)
}
