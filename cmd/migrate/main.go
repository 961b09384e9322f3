package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dvillamizar/restopos-backend/pkg/config"
	"github.com/dvillamizar/restopos-backend/pkg/db"
	"github.com/dvillamizar/restopos-backend/pkg/logger"
	"github.com/dvillamizar/restopos-backend/pkg/migrate"
)

const usage = `Usage: migrate [flags] <command> [args]

Commands:
  up                 apply all pending migrations
  up-by-one          apply the next pending migration
  down               roll back the latest migration
  redo               roll back and re-apply the latest migration
  status             print migration status
  version            print the current schema version
  up-to <version>    migrate to the given version (up or down)
  create <name>      create a new SQL migration file
  validate           check migration files without a database
`

func main() {
	dir := flag.String("dir", migrate.DefaultDir, "directory holding SQL migrations")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	command := args[0]

	logg := logger.New(logger.Options{ServiceName: "restopos-migrate"})
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logg, *dir, command, args[1:]); err != nil {
		logg.Error(ctx, "migration command failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logg *logger.Logger, dir, command string, args []string) error {
	// create and validate work on files alone, no database needed.
	switch command {
	case "create":
		name, err := requireArg(args, "migration name")
		if err != nil {
			return err
		}
		path, err := migrate.CreateSQLMigration(dir, name)
		if err != nil {
			return err
		}
		logg.Info(logg.WithField(ctx, "path", path), "migration created")
		return nil
	case "validate":
		if err := migrate.ValidateDir(dir); err != nil {
			return err
		}
		logg.Info(ctx, "migrations are valid")
		return nil
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer client.Close()

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	switch command {
	case "up", "up-by-one", "down", "redo", "status", "version":
		return migrate.Run(ctx, sqlDB, dir, command)
	case "up-to":
		target, err := requireArg(args, "target version")
		if err != nil {
			return err
		}
		return migrate.MigrateToVersion(ctx, sqlDB, dir, target)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func requireArg(args []string, what string) (string, error) {
	if len(args) == 0 || args[0] == "" {
		return "", fmt.Errorf("%s is required", what)
	}
	return args[0], nil
}
