package gormlog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/metrics"
	"strconv"
	"time"

	"github.com/zulandar/querybar/internal/querylog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultSlowThreshold marks queries logged at warning severity.
const DefaultSlowThreshold = 200 * time.Millisecond

const heapMetric = "/memory/classes/heap/objects:bytes"

// Logger implements GORM's logger.Interface. Traced statements become
// delimited messages sent to a querylog.Logger; GORM's own diagnostics go
// to the standard logger.
type Logger struct {
	sink          querylog.Logger
	format        querylog.Format
	details       querylog.Details
	slowThreshold time.Duration
	level         logger.LogLevel
	heapMB        func() float64
}

// NewLogger returns a Logger writing to sink in the default format with all
// details enabled.
func NewLogger(sink querylog.Logger) *Logger {
	return &Logger{
		sink:   sink,
		format: querylog.DefaultFormat(),
		details: querylog.Details{
			Time:          true,
			TimePrecision: querylog.DefaultTimePrecision,
			Mem:           true,
			Method:        true,
		},
		slowThreshold: DefaultSlowThreshold,
		level:         logger.Info,
		heapMB:        heapInUseMB,
	}
}

// LogMode implements logger.Interface.
func (l *Logger) LogMode(level logger.LogLevel) logger.Interface {
	nl := *l
	nl.level = level
	return &nl
}

// Info implements logger.Interface.
func (l *Logger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Info {
		log.Printf("gorm: "+msg, data...)
	}
}

// Warn implements logger.Interface.
func (l *Logger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Warn {
		log.Printf("gorm: warning: "+msg, data...)
	}
}

// Error implements logger.Interface.
func (l *Logger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Error {
		log.Printf("gorm: error: "+msg, data...)
	}
}

// Trace implements logger.Interface.
func (l *Logger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= logger.Silent || l.sink == nil {
		return
	}
	elapsed := time.Since(begin)
	sql, _ := fc()

	msg, cerr := l.Message(elapsed, MethodFromContext(ctx), sql)
	if cerr != nil {
		log.Printf("gormlog: compose message: %v", cerr)
		return
	}

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		l.sink.Error(msg)
	case l.slowThreshold > 0 && elapsed > l.slowThreshold:
		l.sink.Warning(msg)
	default:
		l.sink.Debug(msg)
	}
}

// Message builds the delimited log message for one statement. Fields whose
// detail flag is off are emitted empty so the segment count never changes.
func (l *Logger) Message(elapsed time.Duration, method, sql string) (string, error) {
	values := map[querylog.Field]string{querylog.FieldSQL: sql}
	if l.details.Time {
		values[querylog.FieldTime] = strconv.FormatFloat(elapsed.Seconds(), 'f', l.details.TimePrecision, 64)
	}
	if l.details.Mem && l.heapMB != nil {
		values[querylog.FieldMem] = strconv.FormatFloat(l.heapMB(), 'f', 2, 64)
	}
	if l.details.Method {
		values[querylog.FieldMethod] = method
	}
	msg, err := l.format.ComposeValues(values)
	if err != nil {
		return "", fmt.Errorf("gormlog: %w", err)
	}
	return msg, nil
}

// heapInUseMB reads live heap object bytes without stopping the world.
func heapInUseMB() float64 {
	sample := []metrics.Sample{{Name: heapMetric}}
	metrics.Read(sample)
	if sample[0].Value.Kind() != metrics.KindUint64 {
		return 0
	}
	return float64(sample[0].Value.Uint64()) / (1 << 20)
}
