package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"github.com/zulandar/querybar/internal/config"
)

const defaultConfigPath = "querybar.yaml"

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qb",
		Short: "querybar: SQL query panel for a debug bar",
		Long:  "querybar captures the SQL a GORM connection runs per request and renders it in a debug bar panel.",
	}

	cmd.PersistentFlags().StringP("config", "c", defaultConfigPath, "path to querybar config file")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newDBCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newRenderCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "qb %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

// loadConfig reads the file named by --config. If the flag was left at its
// default and that file does not exist, the built-in defaults apply.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		fmt.Fprintf(cmd.ErrOrStderr(), "No %s found, using defaults\n", path)
		return config.Default(), nil
	}
	return nil, fmt.Errorf("load config: %w", err)
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
