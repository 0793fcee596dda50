// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"fmt"

	"codeberg.org/godrive/accounts/internal/config"
	"codeberg.org/godrive/accounts/internal/database"
	"github.com/urfave/cli/v3"
	"github.com/vinovest/sqlx"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending database migrations",
		Action: withDB(func(ctx context.Context, db *sqlx.DB) error {
			return printVersion(ctx, db)
		}),
		Commands: []*cli.Command{
			{
				Name:  "status",
				Usage: "Print the current schema version",
				Action: withDB(func(ctx context.Context, db *sqlx.DB) error {
					return printVersion(ctx, db)
				}),
			},
			{
				Name:  "down",
				Usage: "Revert the most recent migration",
				Action: withDB(func(ctx context.Context, db *sqlx.DB) error {
					if err := database.Rollback(ctx, db.DB); err != nil {
						return fmt.Errorf("failed to roll back: %w", err)
					}
					return printVersion(ctx, db)
				}),
			},
		},
	}
}

// withDB opens (and thereby migrates) the configured database for fn.
func withDB(fn func(ctx context.Context, db *sqlx.DB) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg := config.NewFromCLI(cmd)
		db, err := database.Open(ctx, cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer func() { _ = db.Close() }()
		return fn(ctx, db)
	}
}

func printVersion(ctx context.Context, db *sqlx.DB) error {
	version, err := database.Version(ctx, db.DB)
	if err != nil {
		return err
	}
	fmt.Printf("schema version %d\n", version)
	return nil
}
