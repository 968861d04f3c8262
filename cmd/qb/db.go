package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/querybar/internal/config"
	"github.com/zulandar/querybar/internal/db"
	"gorm.io/gorm"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the demo database",
		Long:  "Creates the database (mysql only), migrates the demo tables and seeds sample notes.",
		RunE:  runDBInit,
	}
}

func runDBInit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Using %s database\n", cfg.Database.Driver)

	if cfg.Database.Driver == config.DriverMySQL {
		if err := createMySQLDatabase(cfg.Database.DSN); err != nil {
			return err
		}
	}

	gormDB, err := db.ConnectConfig(cfg)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer closeDB(gormDB)

	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))

	if err := db.SeedNotes(gormDB, nil); err != nil {
		return err
	}
	fmt.Fprintf(out, "Seeded %d notes\n", len(db.DefaultSeed))
	return nil
}

func createMySQLDatabase(dsn string) error {
	adminDSN, name, err := db.SplitMySQLDSN(dsn)
	if err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("mysql dsn does not name a database")
	}
	adminDB, err := db.Connect(config.DriverMySQL, adminDSN)
	if err != nil {
		return fmt.Errorf("connect to mysql server: %w", err)
	}
	defer closeDB(adminDB)
	return db.CreateDatabase(adminDB, name)
}

func closeDB(gormDB *gorm.DB) {
	if sqlDB, err := gormDB.DB(); err == nil {
		sqlDB.Close()
	}
}

// connectFromConfig loads the --config file and opens its database.
func connectFromConfig(cmd *cobra.Command) (*config.Config, *gorm.DB, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	gormDB, err := db.ConnectConfig(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect: %w", err)
	}
	return cfg, gormDB, nil
}
