package db

import (
	"context"
	"errors"
	"time"

	appLogger "github.com/vintagebeauty/storefront-backend/pkg/logger"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger routes gorm's query log through the request-scoped application
// logger. Only failures and slow queries are reported; record-not-found is
// a normal outcome for lookups and is ignored.
type GormLogger struct {
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

func NewGormLogger(slowThreshold time.Duration) *GormLogger {
	return &GormLogger{level: gormlogger.Warn, slowThreshold: slowThreshold}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Info {
		appLogger.FromContext(ctx).Info(msg, appLogger.Fields{"args": args})
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Warn {
		appLogger.FromContext(ctx).Warn(msg, appLogger.Fields{"args": args})
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Error {
		appLogger.FromContext(ctx).Error(msg, nil, appLogger.Fields{"args": args})
	}
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormlogger.Error:
		sql, rows := fc()
		appLogger.FromContext(ctx).Error("Query failed", err, appLogger.Fields{
			"sql":        sql,
			"rows":       rows,
			"elapsed_ms": elapsed.Milliseconds(),
		})
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		appLogger.FromContext(ctx).Warn("Slow query", appLogger.Fields{
			"sql":          sql,
			"rows":         rows,
			"elapsed_ms":   elapsed.Milliseconds(),
			"threshold_ms": l.slowThreshold.Milliseconds(),
		})
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		appLogger.FromContext(ctx).Debug("Query", appLogger.Fields{
			"sql":        sql,
			"rows":       rows,
			"elapsed_ms": elapsed.Milliseconds(),
		})
	}
}
