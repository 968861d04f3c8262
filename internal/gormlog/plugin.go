// Package gormlog feeds GORM's query trace into a querylog.Collector.
//
// Plugin stamps each statement with the GORM operation that ran it and
// counts executed statements per request. Logger turns GORM's Trace calls
// into delimited query log messages. Conn ties both to one request.
package gormlog

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"gorm.io/gorm"
)

type ctxKey int

const (
	methodKey ctxKey = iota
	counterKey
)

// Counter counts executed statements for one request.
type Counter struct {
	n atomic.Int64
}

// Add records one executed statement.
func (c *Counter) Add() { c.n.Add(1) }

// Count returns the number of statements recorded.
func (c *Counter) Count() int { return int(c.n.Load()) }

// WithCounter attaches c to ctx; statements run with that context are
// counted by Plugin.
func WithCounter(ctx context.Context, c *Counter) context.Context {
	return context.WithValue(ctx, counterKey, c)
}

func counterFrom(ctx context.Context) *Counter {
	if ctx == nil {
		return nil
	}
	c, _ := ctx.Value(counterKey).(*Counter)
	return c
}

// MethodFromContext returns the GORM operation recorded by Plugin.
func MethodFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	m, _ := ctx.Value(methodKey).(string)
	return m
}

// PluginName is the name Plugin registers under.
const PluginName = "querybar:gormlog"

// Plugin installs the method-stamping and counting callbacks.
type Plugin struct{}

// Name implements gorm.Plugin.
func (Plugin) Name() string { return PluginName }

// Initialize implements gorm.Plugin.
func (Plugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		method        string
		before, after func(string, func(*gorm.DB)) error
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	for _, h := range hooks {
		if err := h.before("querybar:before_"+h.method, stampMethod(h.method)); err != nil {
			return fmt.Errorf("gormlog: register before %s: %w", h.method, err)
		}
		if err := h.after("querybar:after_"+h.method, countStatement); err != nil {
			return fmt.Errorf("gormlog: register after %s: %w", h.method, err)
		}
	}
	return nil
}

func stampMethod(method string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		if db.Statement == nil {
			return
		}
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		db.Statement.Context = context.WithValue(ctx, methodKey, method)
	}
}

func countStatement(db *gorm.DB) {
	if db.Statement == nil || db.DryRun || db.Statement.SQL.Len() == 0 {
		return
	}
	if c := counterFrom(db.Statement.Context); c != nil {
		c.Add()
	}
}

// Install registers Plugin on db. Installing twice is not an error.
func Install(db *gorm.DB) error {
	if err := db.Use(Plugin{}); err != nil && !errors.Is(err, gorm.ErrRegistered) {
		return fmt.Errorf("gormlog: install plugin: %w", err)
	}
	return nil
}
