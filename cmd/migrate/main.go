// Package main applies the embedded database migrations.
//
// Usage:
//
//	migrate [up|down|status|version]
//
// The command defaults to "up". Only DATABASE_URL (and the DB_* pool
// settings) are read from the environment.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"taskpulse/internal/config"
	"taskpulse/internal/db"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	command, err := parseCommand(args)
	if err != nil {
		return err
	}

	dbCfg, err := config.LoadDatabaseConfig(config.NewEnvVarProvider())
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, db.PoolConfig{URL: dbCfg.URL.Unmask(), MaxConns: 1})
	if err != nil {
		return err
	}
	defer pool.Close()

	logger.Info("running migrations", "command", command, "table", db.MigrationTableName)
	return db.Migrate(ctx, pool, command, logger)
}

// parseCommand validates the optional single argument.
func parseCommand(args []string) (string, error) {
	switch len(args) {
	case 0:
		return "up", nil
	case 1:
		switch args[0] {
		case "up", "down", "status", "version":
			return args[0], nil
		}
		return "", fmt.Errorf("unknown command %q (want up, down, status or version)", args[0])
	default:
		return "", fmt.Errorf("expected at most one argument, got %d", len(args))
	}
}
