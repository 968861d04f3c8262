package gormlog

import (
	"context"
	"fmt"
	"time"

	"github.com/zulandar/querybar/internal/querylog"
	"gorm.io/gorm"
)

// Conn is a request-scoped view of a GORM database that implements
// querylog.Connection.
type Conn struct {
	base    *gorm.DB
	ctx     context.Context
	counter *Counter
	logger  *Logger
}

// NewConn wraps db for one request. Plugin must be installed on db for
// QueryCount and the method field to be populated.
func NewConn(ctx context.Context, db *gorm.DB) *Conn {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Conn{
		base:    db,
		ctx:     ctx,
		counter: &Counter{},
		logger:  NewLogger(nil),
	}
}

// SetSlowThreshold sets the duration above which queries are logged at
// warning severity. Zero disables slow-query marking.
func (c *Conn) SetSlowThreshold(d time.Duration) {
	c.logger.slowThreshold = d
}

// Configure implements querylog.Connection.
func (c *Conn) Configure(format querylog.Format, details querylog.Details) error {
	if err := format.Validate(); err != nil {
		return fmt.Errorf("gormlog: configure: %w", err)
	}
	if details.TimePrecision < 0 || details.TimePrecision > 9 {
		return fmt.Errorf("gormlog: configure: time precision %d out of range 0-9", details.TimePrecision)
	}
	c.logger.format = format
	c.logger.details = details
	return nil
}

// SetLogger implements querylog.Connection.
func (c *Conn) SetLogger(l querylog.Logger) {
	c.logger.sink = l
}

// QueryCount implements querylog.Connection.
func (c *Conn) QueryCount() int {
	return c.counter.Count()
}

// Logger returns the GORM logger that traces this connection's statements.
func (c *Conn) Logger() *Logger {
	return c.logger
}

// DB returns a session on the wrapped database whose statements are traced
// into the configured query logger and counted for this request.
func (c *Conn) DB() *gorm.DB {
	return c.base.Session(&gorm.Session{
		NewDB:   true,
		Logger:  c.logger,
		Context: WithCounter(c.ctx, c.counter),
	})
}
