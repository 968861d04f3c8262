package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/querybar/internal/demo"
	"github.com/zulandar/querybar/internal/querybar"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the demo app with the query panel",
		Long:  "Serves a small notes app whose pages carry the debug bar and SQL query panel.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, port)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (default from config)")
	return cmd
}

func runServe(cmd *cobra.Command, port int) error {
	cfg, gormDB, err := connectFromConfig(cmd)
	if err != nil {
		return err
	}
	if port == 0 {
		port = cfg.Server.Port
	}
	opts := querybar.OptionsFromConfig(cfg)

	out := cmd.OutOrStdout()
	if paths := querybar.LibraryPathsFor(opts); len(paths) > 0 {
		fmt.Fprintf(out, "Call sites skip: %s\n", strings.Join(paths, ", "))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	return demo.Start(ctx, demo.StartOpts{
		DB:       gormDB,
		Port:     port,
		Out:      out,
		QueryBar: opts,
	})
}
