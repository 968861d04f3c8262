// Package demo serves a small notes application with the SQL query panel
// attached, so the panel can be tried against real GORM traffic.
package demo

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/querybar/internal/debugbar"
	"github.com/zulandar/querybar/internal/querybar"
	"gorm.io/gorm"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed assets
var assetsFS embed.FS

// StartOpts holds configuration for the demo server.
type StartOpts struct {
	DB       *gorm.DB
	Port     int
	Out      io.Writer
	QueryBar querybar.Options
}

// Start launches the demo HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.DB == nil {
		return fmt.Errorf("demo: db is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	gin.SetMode(gin.ReleaseMode)
	router, err := newRouter(opts.DB, opts.QueryBar)
	if err != nil {
		return fmt.Errorf("demo: %w", err)
	}

	addr := fmt.Sprintf(":%d", opts.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Demo running at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("demo: %w", err)
	}
	return nil
}

// newRouter builds the gin engine with the debug bar and query panel
// installed ahead of the application routes.
func newRouter(db *gorm.DB, qb querybar.Options) (*gin.Engine, error) {
	router := gin.New()
	router.Use(gin.Recovery())

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	router.SetHTMLTemplate(tmpl)

	panel, err := querybar.Middleware(db, qb)
	if err != nil {
		return nil, err
	}
	router.Use(debugbar.Inject(), panel)

	registerRoutes(router)
	return router, nil
}

// parseTemplates loads the embedded HTML templates.
func parseTemplates() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"timeAgo": TimeAgo,
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}
