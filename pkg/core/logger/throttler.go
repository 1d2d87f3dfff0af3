package logger

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
)

// LogThrottler lets one entry per key and interval through at its real level
// and demotes the rest to debug. Polling loops use it so that an unavailable
// database does not flood the log.
type LogThrottler struct {
	log      *zap.Logger
	limiters sync.Map // map[string]*rate.Limiter
	interval time.Duration
}

// NewLogThrottler returns a throttler; a zero interval means 5 minutes.
func NewLogThrottler(log *zap.Logger, interval time.Duration) *LogThrottler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &LogThrottler{
		log:      log,
		interval: interval,
	}
}

// Warn logs at warn level once per interval per key.
func (t *LogThrottler) Warn(key, msg string, fields ...zap.Field) {
	t.write(zapcore.WarnLevel, key, msg, fields)
}

// Error logs at error level once per interval per key.
func (t *LogThrottler) Error(key, msg string, fields ...zap.Field) {
	t.write(zapcore.ErrorLevel, key, msg, fields)
}

func (t *LogThrottler) write(level zapcore.Level, key, msg string, fields []zap.Field) {
	if !t.limiter(key).Allow() {
		level = zapcore.DebugLevel
	}
	if ce := t.log.Check(level, msg); ce != nil {
		ce.Write(fields...)
	}
}

func (t *LogThrottler) limiter(key string) *rate.Limiter {
	if l, ok := t.limiters.Load(key); ok {
		return l.(*rate.Limiter)
	}
	l, _ := t.limiters.LoadOrStore(key, rate.NewLimiter(rate.Every(t.interval), 1))
	return l.(*rate.Limiter)
}
