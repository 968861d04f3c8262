// Package querylog captures delimited SQL log messages for one request and
// renders them as a debug bar panel.
//
// A producer (see package gormlog) emits messages such as
//
//	time:::0.0021|||mem:::1.25|||method:::query|||sql:::SELECT 1
//
// through the Logger interface. The Collector stores them with the
// application call site that issued the query, and extracts the fields back
// out when the panel is rendered.
package querylog

import (
	"fmt"

	"github.com/zulandar/querybar/internal/callsite"
)

// Logger is the inbound interface a query log producer writes to. Every
// level routes to Log.
type Logger interface {
	Emergency(msg string)
	Alert(msg string)
	Critical(msg string)
	Error(msg string)
	Warning(msg string)
	Notice(msg string)
	Info(msg string)
	Debug(msg string)
	Log(msg string, severity Severity)
}

// Collector accumulates entries for a single request. It is not safe for
// concurrent use; create one per request.
type Collector struct {
	format    Format
	resolver  *callsite.Resolver
	conn      Connection
	editorURL string
	entries   []Entry
}

// NewCollector returns an empty Collector. A nil resolver disables call-site
// resolution.
func NewCollector(format Format, resolver *callsite.Resolver) *Collector {
	return &Collector{format: format, resolver: resolver, editorURL: DefaultEditorURL}
}

// Format returns the message format the collector parses.
func (c *Collector) Format() Format { return c.format }

func (c *Collector) Emergency(msg string) { c.log(msg, SeverityEmergency) }
func (c *Collector) Alert(msg string)     { c.log(msg, SeverityAlert) }
func (c *Collector) Critical(msg string)  { c.log(msg, SeverityCritical) }
func (c *Collector) Error(msg string)     { c.log(msg, SeverityError) }
func (c *Collector) Warning(msg string)   { c.log(msg, SeverityWarning) }
func (c *Collector) Notice(msg string)    { c.log(msg, SeverityNotice) }
func (c *Collector) Info(msg string)      { c.log(msg, SeverityInfo) }
func (c *Collector) Debug(msg string)     { c.log(msg, SeverityDebug) }

// Log records msg along with the first application frame on the stack.
func (c *Collector) Log(msg string, severity Severity) {
	c.log(msg, severity)
}

// log keeps a fixed stack depth for every public entry point; frames inside
// this package are then rejected by the resolver's skip predicate or library
// paths like any other plumbing.
func (c *Collector) log(msg string, severity Severity) {
	var src *Source
	if c.resolver != nil {
		if f := c.resolver.Caller(2); f != nil {
			src = &Source{File: f.File, Line: f.Line}
		}
	}
	c.entries = append(c.entries, Entry{Severity: severity, Message: msg, Source: src})
}

// Entries returns a copy of the captured entries in arrival order.
func (c *Collector) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of captured entries.
func (c *Collector) Len() int { return len(c.entries) }

// Extract returns the key or value of field in e.
func (c *Collector) Extract(e Entry, field Field, mode Mode) (string, error) {
	return c.format.Extract(e.Message, field, mode)
}

// ExtractTime returns the query duration in seconds.
func (c *Collector) ExtractTime(e Entry) (float64, error) {
	return c.number(e, FieldTime)
}

// ExtractMem returns the memory reading in megabytes.
func (c *Collector) ExtractMem(e Entry) (float64, error) {
	return c.number(e, FieldMem)
}

// ExtractMethod returns the operation that issued the query.
func (c *Collector) ExtractMethod(e Entry) (string, error) {
	return c.format.Extract(e.Message, FieldMethod, ModeValue)
}

// ExtractSQL returns the SQL text.
func (c *Collector) ExtractSQL(e Entry) (string, error) {
	return c.format.Extract(e.Message, FieldSQL, ModeValue)
}

func (c *Collector) number(e Entry, field Field) (float64, error) {
	raw, err := c.format.Extract(e.Message, field, ModeValue)
	if err != nil {
		return 0, err
	}
	return parseNumber(raw), nil
}

// TotalTime returns the summed query time in milliseconds.
func (c *Collector) TotalTime() (float64, error) {
	return TotalTime(c.format, c.entries)
}

// QueryCount returns the query count reported by the connection. It is not
// derived from the captured entries and may differ from Len.
func (c *Collector) QueryCount() int {
	if c.conn == nil {
		return 0
	}
	return c.conn.QueryCount()
}

// TotalTime returns 1000 times the sum of every entry's time field.
func TotalTime(format Format, entries []Entry) (float64, error) {
	var sum float64
	for i, e := range entries {
		raw, err := format.Extract(e.Message, FieldTime, ModeValue)
		if err != nil {
			return 0, fmt.Errorf("entry %d: %w", i, err)
		}
		sum += parseNumber(raw)
	}
	return 1000 * sum, nil
}
