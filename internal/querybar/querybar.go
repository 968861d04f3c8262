// Package querybar wires the SQL query panel into a gin application: each
// request gets its own debug bar, GORM session and query collector.
package querybar

import (
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/querybar/internal/callsite"
	"github.com/zulandar/querybar/internal/config"
	"github.com/zulandar/querybar/internal/debugbar"
	"github.com/zulandar/querybar/internal/gormlog"
	"github.com/zulandar/querybar/internal/querylog"
	"gorm.io/gorm"
)

const (
	dbKey        = "querybar.db"
	collectorKey = "querybar.collector"
)

// Options configures Middleware.
type Options struct {
	Format        querylog.Format
	LibraryPaths  []string
	SkipPackages  []string
	EditorURL     string
	// TimePrecision is nil for querylog.DefaultTimePrecision.
	TimePrecision *int
	// SlowThreshold marks slower queries as warnings; 0 disables marking.
	SlowThreshold time.Duration
}

// OptionsFromConfig maps the loaded configuration onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	precision := cfg.Log.TimePrecision
	return Options{
		Format:        cfg.Format(),
		LibraryPaths:  cfg.LibraryPaths,
		SkipPackages:  cfg.SkipPackages,
		EditorURL:     cfg.EditorURL,
		TimePrecision: &precision,
		SlowThreshold: cfg.Log.SlowThreshold,
	}
}

// Middleware returns a handler that registers a query panel for every
// request. Install debugbar.Inject earlier in the chain to display it;
// without it queries are still collected and available via Collector.
func Middleware(db *gorm.DB, opts Options) (gin.HandlerFunc, error) {
	if db == nil {
		return nil, fmt.Errorf("querybar: db is required")
	}
	if err := gormlog.Install(db); err != nil {
		return nil, fmt.Errorf("querybar: %w", err)
	}

	qopts := querylog.Options{
		Format:        opts.Format,
		LibraryPaths:  opts.LibraryPaths,
		SkipPackages:  opts.SkipPackages,
		EditorURL:     opts.EditorURL,
		TimePrecision: opts.TimePrecision,
	}
	// The resolver is read-only after construction and shared by all
	// requests; entries are not.
	qopts.Resolver = qopts.NewResolver()
	if err := validateFormat(qopts.Format); err != nil {
		return nil, err
	}

	return func(c *gin.Context) {
		conn := gormlog.NewConn(c.Request.Context(), db)
		conn.SetSlowThreshold(opts.SlowThreshold)

		var host querylog.Host
		if bar := debugbar.FromContext(c); bar != nil {
			host = bar
		}
		collector, err := querylog.Register(conn, host, qopts)
		if err != nil {
			log.Printf("querybar: register: %v", err)
			c.Set(dbKey, db.WithContext(c.Request.Context()))
			c.Next()
			return
		}
		c.Set(dbKey, conn.DB())
		c.Set(collectorKey, collector)
		c.Next()
	}, nil
}

func validateFormat(f querylog.Format) error {
	if len(f.Fields) == 0 && f.Outer == "" && f.Inner == "" {
		return nil
	}
	if err := f.Validate(); err != nil {
		return fmt.Errorf("querybar: %w", err)
	}
	return nil
}

// DB returns the request's GORM session. Queries issued through it appear
// in the query panel.
func DB(c *gin.Context) *gorm.DB {
	v, ok := c.Get(dbKey)
	if !ok {
		return nil
	}
	db, _ := v.(*gorm.DB)
	return db
}

// Collector returns the request's query collector, or nil.
func Collector(c *gin.Context) *querylog.Collector {
	v, ok := c.Get(collectorKey)
	if !ok {
		return nil
	}
	col, _ := v.(*querylog.Collector)
	return col
}

// LibraryPathsFor returns normalized library paths, useful for reporting the
// effective configuration.
func LibraryPathsFor(opts Options) []string {
	return callsite.NewResolver(opts.LibraryPaths).LibraryPaths()
}
