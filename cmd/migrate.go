package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/hackhero/internal/config"
)

var migrationsDir string

// resolveMigrationsDir locates the migrations tree. A backend subdirectory
// (sqlite or postgres) is appended by the caller.
func resolveMigrationsDir(cfg *config.Config) string {
	if migrationsDir != "" {
		return migrationsDir
	}
	// Allow env override (used by Docker entrypoint).
	if v := os.Getenv("HACKHERO_MIGRATIONS_DIR"); v != "" {
		return v
	}
	if cfg != nil && cfg.Database.MigrationsDir != "" {
		return config.ExpandHome(cfg.Database.MigrationsDir)
	}
	// Default: ./migrations next to the executable.
	exe, err := os.Executable()
	if err != nil {
		return "migrations"
	}
	return filepath.Join(filepath.Dir(exe), "migrations")
}

// databaseURL builds the migrate connection URL for the configured backend.
func databaseURL(cfg *config.Config) (url, backend string) {
	if cfg.UsePostgres() {
		return cfg.Database.PostgresDSN, "postgres"
	}
	return "sqlite://" + cfg.DatabasePath(), "sqlite"
}

func newMigrator(cfg *config.Config) (*migrate.Migrate, error) {
	url, backend := databaseURL(cfg)
	dir := filepath.Join(resolveMigrationsDir(cfg), backend)
	m, err := migrate.New("file://"+dir, url)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

// applyMigrations brings the schema up to date. Called on serve startup and
// by the migrate up subcommand.
func applyMigrations(cfg *config.Config) error {
	m, err := newMigrator(cfg)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migrate up: %w", err)
	}
	v, dirty, _ := m.Version()
	slog.Info("schema current", "version", v, "dirty", dirty)
	return nil
}

func loadConfigOrExit() *config.Config {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(exitConfig)
	}
	return cfg
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration management",
	}

	cmd.PersistentFlags().StringVar(&migrationsDir, "migrations-dir", "", "path to migrations directory (default: ./migrations)")

	cmd.AddCommand(migrateUpCmd())
	cmd.AddCommand(migrateDownCmd())
	cmd.AddCommand(migrateVersionCmd())
	cmd.AddCommand(migrateForceCmd())

	return cmd
}

func migrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Run: func(cmd *cobra.Command, args []string) {
			if err := applyMigrations(loadConfigOrExit()); err != nil {
				slog.Error("migration failed", "error", err)
				os.Exit(exitMigration)
			}
		},
	}
}

func migrateDownCmd() *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations (default: 1 step)",
		Run: func(cmd *cobra.Command, args []string) {
			m, err := newMigrator(loadConfigOrExit())
			if err != nil {
				slog.Error("migration failed", "error", err)
				os.Exit(exitMigration)
			}
			defer m.Close()

			if steps <= 0 {
				steps = 1
			}
			if err := m.Steps(-steps); err != nil && err != migrate.ErrNoChange {
				slog.Error("migration rollback failed", "error", err)
				os.Exit(exitMigration)
			}
			v, dirty, _ := m.Version()
			slog.Info("rollback complete", "version", v, "dirty", dirty)
		},
	}
	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "number of steps to roll back")
	return cmd
}

func migrateVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show current migration version",
		Run: func(cmd *cobra.Command, args []string) {
			m, err := newMigrator(loadConfigOrExit())
			if err != nil {
				slog.Error("migration failed", "error", err)
				os.Exit(exitMigration)
			}
			defer m.Close()

			v, dirty, err := m.Version()
			if err != nil {
				slog.Error("version lookup failed", "error", err)
				os.Exit(exitMigration)
			}
			fmt.Printf("version: %d, dirty: %v\n", v, dirty)
		},
	}
}

func migrateForceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "force <version>",
		Short: "Force set migration version (no migration applied)",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				slog.Error("invalid version", "arg", args[0])
				os.Exit(exitConfig)
			}
			m, merr := newMigrator(loadConfigOrExit())
			if merr != nil {
				slog.Error("migration failed", "error", merr)
				os.Exit(exitMigration)
			}
			defer m.Close()

			if err := m.Force(version); err != nil {
				slog.Error("force version failed", "error", err)
				os.Exit(exitMigration)
			}
			slog.Info("forced version", "version", version)
		},
	}
}
