// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package tokenstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores tokens as keys with a native TTL.
type Redis struct {
	client *redis.Client
	prefix string
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, prefix: KeyPrefix}
}

func (r *Redis) key(email string) string {
	return r.prefix + email
}

func (r *Redis) Put(ctx context.Context, email, token string, ttl time.Duration) error {
	return r.client.Set(ctx, r.key(email), token, ttl).Err()
}

func (r *Redis) Get(ctx context.Context, email string) (string, error) {
	token, err := r.client.Get(ctx, r.key(email)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return token, err
}

func (r *Redis) Delete(ctx context.Context, email string) error {
	return r.client.Del(ctx, r.key(email)).Err()
}
