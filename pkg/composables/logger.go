package composables

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/heartware/timetable-sync/pkg/logging"
)

const loggerKey ctxKey = "logger"

func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// UseLogger returns the logger bound to ctx, or a discarding one.
func UseLogger(ctx context.Context) *logrus.Entry {
	if ctx == nil {
		return logging.Nop()
	}
	switch typed := ctx.Value(loggerKey).(type) {
	case *logrus.Entry:
		return typed
	case *logrus.Logger:
		return logrus.NewEntry(typed)
	default:
		return logging.Nop()
	}
}
