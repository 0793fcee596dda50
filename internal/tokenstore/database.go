// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package tokenstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"codeberg.org/godrive/accounts/internal/clock"
	"github.com/vinovest/sqlx"
)

// Database stores tokens in the verification_tokens table.
type Database struct {
	db    *sqlx.DB
	clock clock.Clock
}

func NewDatabase(db *sqlx.DB, c clock.Clock) *Database {
	return &Database{db: db, clock: c}
}

func (d *Database) Put(ctx context.Context, email, token string, ttl time.Duration) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO verification_tokens (email, token, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET token = excluded.token, expires_at = excluded.expires_at`,
		email, token, d.clock.Now().Add(ttl))
	return err
}

func (d *Database) Get(ctx context.Context, email string) (string, error) {
	var row struct {
		Token     string    `db:"token"`
		ExpiresAt time.Time `db:"expires_at"`
	}
	err := d.db.GetContext(ctx, &row, `SELECT token, expires_at FROM verification_tokens WHERE email = ?`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if !d.clock.Now().Before(row.ExpiresAt) {
		return "", ErrNotFound
	}
	return row.Token, nil
}

func (d *Database) Delete(ctx context.Context, email string) error {
	_, err := d.db.ExecContext(ctx, `DELETE FROM verification_tokens WHERE email = ?`, email)
	return err
}

// DeleteExpired removes expired rows and reports how many were removed.
func (d *Database) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := d.db.ExecContext(ctx, `DELETE FROM verification_tokens WHERE expires_at <= ?`, d.clock.Now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
