package logger

import (
	"github.com/teranos/cronstore/sym"
	"go.uber.org/zap"
)

// Symbol-aware logging helpers.
// The symbol travels as a structured field, not in the message.
//
//	logger.AddCronSymbol(s.log).Infow("Job saved", "job_id", id)

// CronInfow logs an info message with the Cron symbol (꩜)
func CronInfow(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		fields := append([]interface{}{FieldSymbol, sym.Cron}, keysAndValues...)
		Logger.Infow(msg, fields...)
	}
}

// DBInfow logs an info message with the DB symbol (⊔)
func DBInfow(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		fields := append([]interface{}{FieldSymbol, sym.DB}, keysAndValues...)
		Logger.Infow(msg, fields...)
	}
}

// AddCronSymbol wraps a logger with the Cron symbol (꩜)
func AddCronSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return OrNop(l).With(FieldSymbol, sym.Cron)
}

// AddDBSymbol wraps a logger with the DB symbol (⊔)
func AddDBSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return OrNop(l).With(FieldSymbol, sym.DB)
}

// AddCacheSymbol wraps a logger with the Cache symbol (⟳)
func AddCacheSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return OrNop(l).With(FieldSymbol, sym.Cache)
}

// AddSchedulesSymbol wraps a logger with the Schedules symbol (✦)
func AddSchedulesSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return OrNop(l).With(FieldSymbol, sym.Schedules)
}

// AddLegacySymbol wraps a logger with the Legacy symbol (⌗)
func AddLegacySymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return OrNop(l).With(FieldSymbol, sym.Legacy)
}
