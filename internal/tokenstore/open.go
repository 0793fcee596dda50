// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package tokenstore

import (
	"context"
	"fmt"

	"codeberg.org/godrive/accounts/internal/clock"
	"codeberg.org/godrive/accounts/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/vinovest/sqlx"
)

// Open builds the backend selected in cfg. The returned close function
// releases backend connections and is never nil.
func Open(ctx context.Context, cfg config.TokenConfig, db *sqlx.DB, c clock.Clock) (Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store {
	case config.TokenStoreMemory:
		return NewMemory(c), noop, nil
	case config.TokenStoreDatabase, "":
		return NewDatabase(db, c), noop, nil
	case config.TokenStoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		return NewRedis(client), client.Close, nil
	}
	return nil, noop, fmt.Errorf("unknown token store %q", cfg.Store)
}
