package querylog

import (
	"fmt"

	"github.com/zulandar/querybar/internal/callsite"
	"github.com/zulandar/querybar/internal/debugbar"
)

// PanelID is the id the collector registers under on a debug bar.
const PanelID = "querylog"

// DefaultTimePrecision is the number of decimals the producer writes for
// the time field, in seconds.
const DefaultTimePrecision = 4

// DefaultSkipPackages reject ORM and logging plumbing during call-site
// resolution.
var DefaultSkipPackages = []string{
	"gorm.io/",
	"database/sql.",
	"github.com/zulandar/querybar/internal/callsite.",
	"github.com/zulandar/querybar/internal/querylog.",
	"github.com/zulandar/querybar/internal/gormlog.",
}

// Details selects which fields the producer fills in.
type Details struct {
	Time          bool
	TimePrecision int
	Mem           bool
	Method        bool
}

// Connection is a database connection whose query log can be routed to a
// Collector.
type Connection interface {
	// Configure sets the producer's message format and detail flags.
	Configure(format Format, details Details) error
	// SetLogger routes query log messages to l.
	SetLogger(l Logger)
	// QueryCount reports how many queries the connection has executed.
	QueryCount() int
}

// Host is a debug bar that displays panels.
type Host interface {
	AddPanel(id string, panel debugbar.Panel)
}

// Options configures Register.
type Options struct {
	// Format defaults to DefaultFormat.
	Format Format
	// Resolver is used as-is when set; otherwise one is built from
	// LibraryPaths and SkipPackages.
	Resolver      *callsite.Resolver
	LibraryPaths  []string
	SkipPackages  []string
	EditorURL     string
	// TimePrecision is the number of decimals written for times; nil
	// selects DefaultTimePrecision.
	TimePrecision *int
}

// NewResolver builds the call-site resolver described by opts.
func (o Options) NewResolver() *callsite.Resolver {
	if o.Resolver != nil {
		return o.Resolver
	}
	skip := o.SkipPackages
	if skip == nil {
		skip = DefaultSkipPackages
	}
	return callsite.NewResolver(o.LibraryPaths, callsite.WithSkip(callsite.SkipPackages(skip...)))
}

// Register creates a Collector, adds it to bar when bar is non-nil, and
// attaches it as conn's query logger with time, memory and method details
// enabled.
func Register(conn Connection, bar Host, opts Options) (*Collector, error) {
	if conn == nil {
		return nil, fmt.Errorf("querylog: register: connection is required")
	}
	format := opts.Format
	if len(format.Fields) == 0 && format.Outer == "" && format.Inner == "" {
		format = DefaultFormat()
	}
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("querylog: register: %w", err)
	}

	c := NewCollector(format, opts.NewResolver())
	if opts.EditorURL != "" {
		c.editorURL = opts.EditorURL
	}
	if bar != nil {
		bar.AddPanel(PanelID, c)
	}

	precision := DefaultTimePrecision
	if opts.TimePrecision != nil {
		precision = *opts.TimePrecision
	}
	details := Details{Time: true, TimePrecision: precision, Mem: true, Method: true}
	if err := conn.Configure(format, details); err != nil {
		return nil, fmt.Errorf("querylog: configure connection: %w", err)
	}
	conn.SetLogger(c)
	c.conn = conn
	return c, nil
}
