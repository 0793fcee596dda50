// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"fmt"

	"codeberg.org/godrive/accounts/internal/clock"
	"codeberg.org/godrive/accounts/internal/config"
	"codeberg.org/godrive/accounts/internal/tokenstore"
	"github.com/urfave/cli/v3"
	"github.com/vinovest/sqlx"
)

// purgeTokensCommand removes expired rows of the database token store.
// Expired tokens already read as absent; this only reclaims space.
func purgeTokensCommand() *cli.Command {
	return &cli.Command{
		Name:  "purge-tokens",
		Usage: "Delete expired verification tokens from the database",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if store := config.NewFromCLI(cmd).Tokens.Store; store != config.TokenStoreDatabase {
				fmt.Printf("token store %q expires tokens itself\n", store)
				return nil
			}
			return withDB(func(ctx context.Context, db *sqlx.DB) error {
				n, err := tokenstore.NewDatabase(db, clock.System{}).DeleteExpired(ctx)
				if err != nil {
					return fmt.Errorf("failed to purge tokens: %w", err)
				}
				fmt.Printf("deleted %d expired tokens\n", n)
				return nil
			})(ctx, cmd)
		},
	}
}
