package http

import (
	"context"

	"github.com/sirupsen/logrus"
)

type contextKey string

const callerContextKey contextKey = "wikihub/caller"

// caller identifies who issued a request.
type caller struct {
	RequestID string
	User      string
	ClientIP  string
}

func (c caller) fields() logrus.Fields {
	fields := logrus.Fields{}
	if c.RequestID != "" {
		fields["request_id"] = c.RequestID
	}
	if c.User != "" {
		fields["user"] = c.User
	}
	if c.ClientIP != "" {
		fields["ip"] = c.ClientIP
	}
	return fields
}

func withCaller(ctx context.Context, c caller) context.Context {
	return context.WithValue(ctx, callerContextKey, c)
}

func callerFromContext(ctx context.Context) caller {
	if ctx == nil {
		return caller{}
	}
	c, _ := ctx.Value(callerContextKey).(caller)
	return c
}

// RequestIDFromContext extracts the request identifier from the context when available.
func RequestIDFromContext(ctx context.Context) string {
	return callerFromContext(ctx).RequestID
}
