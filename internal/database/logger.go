package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/stratuslab/pdisk-portal/internal/util/slogx"
	"github.com/stratuslab/pdisk-portal/internal/util/style"
	"gorm.io/gorm/logger"
)

// gormLogger forwards gorm messages into slog. Only failed and slow queries are traced.
type gormLogger struct {
	log   *slog.Logger
	level logger.LogLevel
	slow  time.Duration
}

// Logger returns the logger for gorm. With Debug set, every query is dumped to stderr by gorm's
// own writer instead.
func Logger(srcLog *slog.Logger, o Options) logger.Interface {
	if o.Debug {
		return logger.New(
			log.New(colorable.NewColorableStderr(), "db ", log.LstdFlags),
			logger.Config{
				SlowThreshold: o.SlowThreshold,
				LogLevel:      logger.Info,
				Colorful:      style.StderrSupportsColor(),
			},
		)
	}
	return &gormLogger{
		log:   srcLog.With(slog.String("component", "db")),
		level: logger.Warn,
		slow:  o.SlowThreshold,
	}
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	c := *l
	c.level = level
	return &c
}

func (l *gormLogger) emit(ctx context.Context, level logger.LogLevel, sl slog.Level, msg string, data []any) {
	if l.level < level {
		return
	}
	l.log.Log(ctx, sl, "gorm message", slog.String("msg", fmt.Sprintf(msg, data...)))
}

func (l *gormLogger) Info(ctx context.Context, msg string, data ...any) {
	l.emit(ctx, logger.Info, slog.LevelInfo, msg, data)
}

func (l *gormLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.emit(ctx, logger.Warn, slog.LevelWarn, msg, data)
}

func (l *gormLogger) Error(ctx context.Context, msg string, data ...any) {
	l.emit(ctx, logger.Error, slog.LevelError, msg, data)
}

func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, logger.ErrRecordNotFound):
		sql, rows := fc()
		l.log.ErrorContext(ctx, "query failed",
			slog.Duration("elapsed", elapsed),
			slog.String("sql", sql),
			slog.Int64("rows", rows),
			slogx.Err(err),
		)
	case l.slow > 0 && elapsed > l.slow && l.level >= logger.Warn:
		sql, rows := fc()
		l.log.WarnContext(ctx, "slow query",
			slog.Duration("elapsed", elapsed),
			slog.String("sql", sql),
			slog.Int64("rows", rows),
		)
	}
}
