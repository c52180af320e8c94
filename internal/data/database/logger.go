package database

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// LogrusLogger forwards gorm's query log to logrus.
type LogrusLogger struct {
	logger    *logrus.Logger
	level     logger.LogLevel
	slowQuery time.Duration
}

var _ logger.Interface = (*LogrusLogger)(nil)

// NewLogrusLogger builds a gorm logger writing warnings and errors to the given logrus logger.
func NewLogrusLogger(log *logrus.Logger, slowQuery time.Duration) *LogrusLogger {
	return &LogrusLogger{logger: log, level: logger.Warn, slowQuery: slowQuery}
}

// LogMode implements logger.Interface.
func (l *LogrusLogger) LogMode(level logger.LogLevel) logger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

// Info implements logger.Interface.
func (l *LogrusLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Info {
		l.logger.WithContext(ctx).Infof(msg, args...)
	}
}

// Warn implements logger.Interface.
func (l *LogrusLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Warn {
		l.logger.WithContext(ctx).Warnf(msg, args...)
	}
}

// Error implements logger.Interface.
func (l *LogrusLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Error {
		l.logger.WithContext(ctx).Errorf(msg, args...)
	}
}

// Trace implements logger.Interface. Record-not-found errors are expected
// lookups and are not reported.
func (l *LogrusLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= logger.Error:
		sql, rows := fc()
		l.entry(ctx, sql, rows, elapsed).WithField("error", err.Error()).Error("database query failed")
	case l.slowQuery > 0 && elapsed > l.slowQuery && l.level >= logger.Warn:
		sql, rows := fc()
		l.entry(ctx, sql, rows, elapsed).Warn("slow database query")
	case l.level >= logger.Info:
		sql, rows := fc()
		l.entry(ctx, sql, rows, elapsed).Debug("database query")
	}
}

func (l *LogrusLogger) entry(ctx context.Context, sql string, rows int64, elapsed time.Duration) *logrus.Entry {
	return l.logger.WithContext(ctx).WithFields(logrus.Fields{
		"component":   "database",
		"sql":         sql,
		"rows":        rows,
		"duration_ms": float64(elapsed.Microseconds()) / 1000,
	})
}
