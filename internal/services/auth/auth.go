// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth covers self-registration, password login and admin-side
// account management.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/mail"
	"strings"

	"codeberg.org/godrive/accounts/internal/clock"
	"codeberg.org/godrive/accounts/internal/metrics"
	"codeberg.org/godrive/accounts/internal/models"
	"codeberg.org/godrive/accounts/internal/repository"
	"codeberg.org/godrive/accounts/internal/services/verification"
	"codeberg.org/godrive/accounts/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrInvalidUserType    = errors.New("user type not allowed")
)

// dummyHash is used for constant-time login to prevent timing attacks
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcrypt.DefaultCost)

type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id int64) error
	CountAdmins(ctx context.Context) (int64, error)
}

// Verifier issues the verification link after registration.
type Verifier interface {
	IssueVerification(ctx context.Context, user *models.User) error
}

type Service struct {
	users    UserStore
	verifier Verifier
	files    storage.Storage
	clock    clock.Clock
	cost     int
}

func NewService(users UserStore, verifier Verifier, files storage.Storage, clk clock.Clock, passwordCost int) *Service {
	if passwordCost == 0 {
		passwordCost = bcrypt.DefaultCost
	}
	return &Service{users: users, verifier: verifier, files: files, clock: clk, cost: passwordCost}
}

// RegisterParams holds the parameters for self-registration.
type RegisterParams struct {
	Email     string
	Password  string
	Firstname string
	Lastname  string
	UserType  models.UserType
}

// Register creates an inactive customer or owner account and sends the
// verification link.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*models.User, error) {
	email, err := normalizeEmail(params.Email)
	if err != nil {
		return nil, err
	}

	switch params.UserType {
	case models.UserTypeCustomer, models.UserTypeOwner:
	case "":
		params.UserType = models.UserTypeCustomer
	default:
		return nil, ErrInvalidUserType
	}

	if err := ValidatePassword(params.Password, email, params.Firstname, params.Lastname); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		Firstname:    strings.TrimSpace(params.Firstname),
		Lastname:     strings.TrimSpace(params.Lastname),
		PasswordHash: string(hash),
		UserType:     params.UserType,
		Status:       models.StatusInactive,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.InfoContext(ctx, "register_success", "user_id", user.ID, "email", email, "user_type", user.UserType)

	if err := s.verifier.IssueVerification(ctx, user); err != nil {
		return user, fmt.Errorf("issue verification: %w", err)
	}
	return user, nil
}

// Login checks the credentials. Status checks are left to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Constant-time: always perform bcrypt comparison to prevent timing attacks
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			slog.WarnContext(ctx, "login_failed", "email", email, "reason", "user_not_found")
			metrics.LoginsTotal.WithLabelValues("invalid").Inc()
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		slog.WarnContext(ctx, "login_failed", "email", email, "reason", "invalid_password")
		metrics.LoginsTotal.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidCredentials
	}

	slog.InfoContext(ctx, "login_success", "user_id", user.ID, "email", email)
	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return user, nil
}

// CreateUserParams holds an account created by an admin.
type CreateUserParams struct { //nolint:govet // fieldalignment: readability over optimization
	Email    string
	Password string
	UserType models.UserType
	// Status defaults to active.
	Status  models.Status
	Profile verification.Profile
	IDPhoto *multipart.FileHeader
	Photo   *multipart.FileHeader
}

// CreateUser creates a pre-verified account. Uploaded files are stored
// before the record is written and removed again if the write fails.
func (s *Service) CreateUser(ctx context.Context, params CreateUserParams) (*models.User, error) {
	email, err := normalizeEmail(params.Email)
	if err != nil {
		return nil, err
	}
	if params.Status == "" {
		params.Status = models.StatusActive
	}
	if err := ValidatePassword(params.Password, email); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.clock.Now()
	user := &models.User{
		Email:           email,
		Firstname:       params.Profile.Firstname,
		Lastname:        params.Profile.Lastname,
		Gender:          params.Profile.Gender,
		PhoneNumber:     params.Profile.PhoneNumber,
		Address:         params.Profile.Address,
		IDType:          params.Profile.IDType,
		PasswordHash:    string(hash),
		UserType:        params.UserType,
		Status:          params.Status,
		EmailVerifiedAt: &now,
	}
	if !params.Profile.Birthdate.IsZero() {
		birthdate := params.Profile.Birthdate
		user.Birthdate = &birthdate
	}
	if params.Profile.Age > 0 {
		age := params.Profile.Age
		user.Age = &age
	}

	stored, _, err := s.storeUploads(ctx, user, params.IDPhoto, params.Photo)
	if err != nil {
		return nil, err
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		s.removeFiles(ctx, stored)
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.InfoContext(ctx, "user_created", "user_id", user.ID, "email", email, "user_type", user.UserType)
	return user, nil
}

// UpdateUserParams holds an admin edit. Empty values keep what is stored.
type UpdateUserParams struct { //nolint:govet // fieldalignment: readability over optimization
	Email string
	// Password replaces the current password when set.
	Password string
	UserType models.UserType
	Status   models.Status
	Profile  verification.Profile
	IDPhoto  *multipart.FileHeader
	Photo    *multipart.FileHeader
}

// UpdateUser applies an admin edit. It is the only operation that changes
// the type of an existing account. New uploads are stored before the single
// UPDATE; the files they replace are deleted only after it succeeded.
func (s *Service) UpdateUser(ctx context.Context, id int64, params UpdateUserParams) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if params.Email != "" {
		email, err := normalizeEmail(params.Email)
		if err != nil {
			return nil, err
		}
		user.Email = email
	}
	if params.Password != "" {
		if err := ValidatePassword(params.Password, user.Email, user.Firstname, user.Lastname); err != nil {
			return nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), s.cost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}
	if params.UserType != "" {
		user.UserType = params.UserType
	}
	if params.Status != "" {
		user.Status = params.Status
	}
	// Active accounts are verified accounts.
	if user.IsActive() && !user.EmailVerified() {
		now := s.clock.Now()
		user.EmailVerifiedAt = &now
		user.ClearOTP()
	}
	mergeProfile(user, params.Profile)

	stored, replaced, err := s.storeUploads(ctx, user, params.IDPhoto, params.Photo)
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateUser(ctx, user); err != nil {
		s.removeFiles(ctx, stored)
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	s.removeFiles(ctx, replaced)

	slog.InfoContext(ctx, "user_updated", "user_id", user.ID, "email", user.Email,
		"user_type", user.UserType, "status", user.Status)
	return s.users.GetUserByID(ctx, id)
}

// DeleteUser removes the account and its stored files.
func (s *Service) DeleteUser(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := s.users.DeleteUser(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to delete user: %w", err)
	}
	s.removeFiles(ctx, user.Files())

	slog.InfoContext(ctx, "user_deleted", "user_id", id, "email", user.Email)
	return user, nil
}

// EnsureAdmin creates an admin account when none exists yet.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	count, err := s.users.CountAdmins(ctx)
	if err != nil {
		return fmt.Errorf("failed to count admins: %w", err)
	}
	if count > 0 {
		return nil
	}

	user, err := s.CreateUser(ctx, CreateUserParams{
		Email:    email,
		Password: password,
		UserType: models.UserTypeAdmin,
		Profile:  verification.Profile{Firstname: "Admin"},
	})
	if errors.Is(err, ErrUserExists) {
		return fmt.Errorf("admin e-mail %s belongs to a non-admin account", email)
	}
	if err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	slog.InfoContext(ctx, "admin_created", "user_id", user.ID, "email", user.Email)
	return nil
}

// storeUploads saves the given files and points user at them. It returns
// the new references and the ones they replace. On failure every file
// stored so far is removed again.
func (s *Service) storeUploads(ctx context.Context, user *models.User, idPhoto, photo *multipart.FileHeader) (stored, replaced []string, err error) {
	for _, up := range []struct {
		file *multipart.FileHeader
		dst  **string
	}{
		{idPhoto, &user.IDPhoto},
		{photo, &user.Photo},
	} {
		if up.file == nil {
			continue
		}
		ref, err := s.files.Store(ctx, up.file)
		if err != nil {
			s.removeFiles(ctx, stored)
			return nil, nil, fmt.Errorf("store %s: %w", up.file.Filename, err)
		}
		stored = append(stored, ref)
		if old := *up.dst; old != nil && *old != "" {
			replaced = append(replaced, *old)
		}
		*up.dst = &ref
	}
	return stored, replaced, nil
}

func mergeProfile(user *models.User, p verification.Profile) {
	for _, f := range []struct {
		dst *string
		val string
	}{
		{&user.Firstname, p.Firstname},
		{&user.Lastname, p.Lastname},
		{&user.Gender, p.Gender},
		{&user.PhoneNumber, p.PhoneNumber},
		{&user.Address, p.Address},
		{&user.IDType, p.IDType},
	} {
		if f.val != "" {
			*f.dst = f.val
		}
	}
	if !p.Birthdate.IsZero() {
		birthdate := p.Birthdate
		user.Birthdate = &birthdate
	}
	if p.Age > 0 {
		age := p.Age
		user.Age = &age
	}
}

func (s *Service) removeFiles(ctx context.Context, refs []string) {
	for _, ref := range refs {
		if _, err := s.files.Delete(ctx, ref); err != nil {
			slog.WarnContext(ctx, "file_delete_failed", "file", ref, "error", err)
		}
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

