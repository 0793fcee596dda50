// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"fmt"

	"codeberg.org/godrive/accounts/internal/models"
)

const userColumns = `id, email, firstname, lastname, gender, birthdate, age, phone_number,
	address, id_type, id_photo, photo, password_hash, user_type, status, otp,
	otp_expires_at, email_verified_at, appearance, created_at, updated_at`

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by e-mail address.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// EmailExists checks if a user with the given e-mail exists.
func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)`, email)
	return exists, err
}

// CreateUser inserts the user and fills in its ID and timestamps.
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	if user.Appearance == "" {
		user.Appearance = models.AppearanceSystem
	}

	rows, err := r.db.NamedQueryContext(ctx, `
		INSERT INTO users (email, firstname, lastname, gender, birthdate, age, phone_number,
			address, id_type, id_photo, photo, password_hash, user_type, status, otp,
			otp_expires_at, email_verified_at, appearance)
		VALUES (:email, :firstname, :lastname, :gender, :birthdate, :age, :phone_number,
			:address, :id_type, :id_photo, :photo, :password_hash, :user_type, :status, :otp,
			:otp_expires_at, :email_verified_at, :appearance)
		RETURNING id, created_at, updated_at`, user)
	if err != nil {
		return wrapError(err)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return wrapError(err)
		}
		return fmt.Errorf("insert user %s: no row returned", user.Email)
	}
	return rows.Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

// UpdateUser writes every mutable column of the user in a single statement.
func (r *Repository) UpdateUser(ctx context.Context, user *models.User) error {
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE users SET
			email = :email, firstname = :firstname, lastname = :lastname, gender = :gender,
			birthdate = :birthdate, age = :age, phone_number = :phone_number,
			address = :address, id_type = :id_type, id_photo = :id_photo, photo = :photo,
			password_hash = :password_hash, user_type = :user_type, status = :status,
			otp = :otp, otp_expires_at = :otp_expires_at,
			email_verified_at = :email_verified_at, appearance = :appearance,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = :id`, user)
	if err != nil {
		return wrapError(err)
	}
	return requireAffected(res)
}

// UpdateUserOTP sets or, with a nil otp, clears the verification code.
func (r *Repository) UpdateUserOTP(ctx context.Context, id int64, otp *models.OTP) error {
	var (
		code      any
		expiresAt any
	)
	if otp != nil {
		code, expiresAt = otp.Code, otp.ExpiresAt
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET otp = ?, otp_expires_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		code, expiresAt, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// UpdateUserStatus changes the lifecycle status of a user.
func (r *Repository) UpdateUserStatus(ctx context.Context, id int64, status models.Status) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// UpdateUserPassword updates a user's password hash.
func (r *Repository) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, passwordHash, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// DeleteUser deletes a user by ID.
func (r *Repository) DeleteUser(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// ListUsers returns users of the given type and status, newest first. Empty
// filters match everything.
func (r *Repository) ListUsers(ctx context.Context, userType models.UserType, status models.Status) ([]models.User, error) {
	users := []models.User{}
	err := r.db.SelectContext(ctx, &users, `
		SELECT `+userColumns+` FROM users
		WHERE (? = '' OR user_type = ?) AND (? = '' OR status = ?)
		ORDER BY created_at DESC, id DESC`,
		userType, userType, status, status)
	return users, err
}

// CountAdmins returns the number of admin users.
func (r *Repository) CountAdmins(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, `SELECT count(*) FROM users WHERE user_type = ?`, models.UserTypeAdmin)
	return count, err
}

func requireAffected(res interface{ RowsAffected() (int64, error) }) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
