package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trattoria/livesync/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
)

// gormLogger routes gorm statements and messages to the zap logger.
// Lookups that find nothing are expected and never logged as errors.
type gormLogger struct {
	logger        logger.Logger
	level         glogger.LogLevel
	slowThreshold time.Duration
}

func (g *gormLogger) LogMode(level glogger.LogLevel) glogger.Interface {
	clone := *g
	clone.level = level
	return &clone
}

func (g *gormLogger) Info(_ context.Context, msg string, data ...any) {
	if g.level >= glogger.Info {
		g.logger.Info(fmt.Sprintf(msg, data...), zap.String("component", "gorm"))
	}
}

func (g *gormLogger) Warn(_ context.Context, msg string, data ...any) {
	if g.level >= glogger.Warn {
		g.logger.Warn(fmt.Sprintf(msg, data...), zap.String("component", "gorm"))
	}
}

func (g *gormLogger) Error(_ context.Context, msg string, data ...any) {
	if g.level >= glogger.Error {
		g.logger.Error(fmt.Sprintf(msg, data...), zap.String("component", "gorm"))
	}
}

// Trace logs one executed statement: failures at error, slow ones at warn, the rest at info
func (g *gormLogger) Trace(
	_ context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error,
) {
	if g.level <= glogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	slow := g.slowThreshold != 0 && elapsed > g.slowThreshold

	switch {
	case failed && g.level >= glogger.Error:
		g.logger.Error("sql error", append(g.fields(elapsed, fc), zap.Error(err))...)
	case slow && g.level >= glogger.Warn:
		g.logger.Warn("slow sql", append(g.fields(elapsed, fc), zap.Duration("threshold", g.slowThreshold))...)
	case g.level >= glogger.Info:
		g.logger.Info("sql trace", g.fields(elapsed, fc)...)
	}
}

func (g *gormLogger) fields(elapsed time.Duration, fc func() (string, int64)) []zap.Field {
	sql, rows := fc()
	return []zap.Field{
		zap.String("component", "gorm"),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}
}
