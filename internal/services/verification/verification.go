// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package verification implements the account verification flow: e-mailed
// verification tokens, one-time codes and the final profile submission that
// activates an account or leaves an owner account pending approval.
package verification

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/url"
	"time"

	"codeberg.org/godrive/accounts/internal/clock"
	"codeberg.org/godrive/accounts/internal/metrics"
	"codeberg.org/godrive/accounts/internal/models"
	"codeberg.org/godrive/accounts/internal/repository"
	"codeberg.org/godrive/accounts/internal/services/notify"
	"codeberg.org/godrive/accounts/internal/services/otp"
	"codeberg.org/godrive/accounts/internal/storage"
	"codeberg.org/godrive/accounts/internal/tokenstore"
	"golang.org/x/crypto/bcrypt"
)

// AccountPath is the route of the verification page linked from e-mails.
const AccountPath = "/verification/account"

// UserStore is the subset of the repository the flow needs.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, user *models.User) error
	UpdateUserOTP(ctx context.Context, id int64, otp *models.OTP) error
}

type Options struct {
	// BaseURL prefixes verification links, without trailing slash.
	BaseURL string
	// PasswordCost is the bcrypt cost; zero means bcrypt.DefaultCost.
	PasswordCost int
}

type Service struct {
	users    UserStore
	tokens   tokenstore.Store
	files    storage.Storage
	notifier notify.Dispatcher
	clock    clock.Clock
	opts     Options
}

func NewService(users UserStore, tokens tokenstore.Store, files storage.Storage, notifier notify.Dispatcher, clk clock.Clock, opts Options) *Service {
	if opts.PasswordCost == 0 {
		opts.PasswordCost = bcrypt.DefaultCost
	}
	return &Service{
		users:    users,
		tokens:   tokens,
		files:    files,
		notifier: notifier,
		clock:    clk,
		opts:     opts,
	}
}

// Profile holds the personal details submitted with the verification form.
type Profile struct { //nolint:govet // fieldalignment: readability over optimization
	Firstname   string
	Lastname    string
	Gender      string
	Birthdate   time.Time
	Age         int
	PhoneNumber string
	Address     string
	IDType      string
}

// VerifyAccountInput is the validated verification form.
type VerifyAccountInput struct { //nolint:govet // fieldalignment: readability over optimization
	Email string
	// Token is the e-mailed verification token. It is empty on the owner
	// application path.
	Token string
	OTP   string
	// UserType is the requested account type, nil when not submitted.
	UserType *models.UserType
	Profile  Profile
	// Password is only applied on the owner application path.
	Password string
	IDPhoto  *multipart.FileHeader
	Photo    *multipart.FileHeader
}

// ValidateVerificationToken reports whether token is the live token for
// email. An empty token is accepted; it marks the owner application path.
func (s *Service) ValidateVerificationToken(ctx context.Context, email, token string) bool {
	if token == "" {
		return true
	}

	stored, err := s.tokens.Get(ctx, email)
	if err != nil {
		if !errors.Is(err, tokenstore.ErrNotFound) {
			slog.ErrorContext(ctx, "token_lookup_failed", "email", email, "error", err)
		}
		return false
	}
	return stored == token
}

// ValidateOTP checks candidate against the code stored for email without
// consuming it. It returns nil when the code is valid.
func (s *Service) ValidateOTP(ctx context.Context, email, candidate string) error {
	user, err := s.lookup(ctx, email)
	if err != nil {
		return err
	}
	return otpError(otp.Validate(user, candidate, s.clock.Now()))
}

// SendOTP issues a one-time code for email. The standard flow requires a
// live verification token. The owner application flow creates an inactive
// owner placeholder when no account exists yet.
func (s *Service) SendOTP(ctx context.Context, email string, isOwnerRegistration bool) error {
	flow := "standard"
	if isOwnerRegistration {
		flow = "owner"
	} else {
		if _, err := s.tokens.Get(ctx, email); err != nil {
			if errors.Is(err, tokenstore.ErrNotFound) {
				return errInvalidSession()
			}
			return fmt.Errorf("look up verification token: %w", err)
		}
	}

	user, err := s.lookup(ctx, email)
	if err != nil && !(isOwnerRegistration && isNotFound(err)) {
		return err
	}

	if user == nil {
		password, err := randomPassword()
		if err != nil {
			return err
		}
		user, err = s.createOwner(ctx, email, password)
		if err != nil {
			return err
		}
		slog.InfoContext(ctx, "owner_placeholder_created", "user_id", user.ID, "email", email)
	}

	code, err := otp.Generate()
	if err != nil {
		return err
	}

	expiresAt := s.clock.Now().Add(otp.TTL)
	if err := s.users.UpdateUserOTP(ctx, user.ID, &models.OTP{Code: code, ExpiresAt: expiresAt}); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	user.SetOTP(code, expiresAt)

	metrics.OTPsSentTotal.WithLabelValues(flow).Inc()
	slog.InfoContext(ctx, "otp_sent", "user_id", user.ID, "email", email, "flow", flow)

	if err := s.notifier.SendOtpCode(ctx, user, code); err != nil {
		logDispatchFailure(ctx, notify.KindOtpCode, user, err)
	}
	return nil
}

// VerifyAccount completes verification. Owner requests end inactive and
// wait for approval; everything else ends active. The returned user is the
// stored record after the update.
func (s *Service) VerifyAccount(ctx context.Context, in VerifyAccountInput) (*models.User, error) {
	user, err := s.verifyAccount(ctx, in)
	if err != nil {
		result := "error"
		if verr, ok := AsError(err); ok {
			result = verr.Field
			slog.WarnContext(ctx, "verify_account_failed", "email", in.Email, "field", verr.Field, "code", verr.Code)
		}
		metrics.VerificationsTotal.WithLabelValues("failed_" + result).Inc()
		return nil, err
	}

	state := StateOf(user, s.clock.Now())
	metrics.VerificationsTotal.WithLabelValues(string(state)).Inc()
	slog.InfoContext(ctx, "account_verified", "user_id", user.ID, "email", user.Email,
		"user_type", user.UserType, "status", user.Status, "state", state)

	return user, nil
}

func (s *Service) verifyAccount(ctx context.Context, in VerifyAccountInput) (*models.User, error) {
	if in.Token != "" && !s.ValidateVerificationToken(ctx, in.Email, in.Token) {
		return nil, errInvalidToken()
	}

	requestsOwner := in.UserType != nil && *in.UserType == models.UserTypeOwner
	isNewOwner := requestsOwner && in.Token == ""
	if in.Token == "" && !isNewOwner {
		return nil, errTokenRequired()
	}

	user, err := s.lookup(ctx, in.Email)
	switch {
	case err == nil:
	case isNotFound(err) && isNewOwner:
		// The placeholder is created by SendOTP, so without a record no
		// code can have been issued.
		return nil, errInvalidCode()
	case isNotFound(err):
		return nil, errUserNotFound(FieldEmail)
	default:
		return nil, err
	}

	if err := otpError(otp.Validate(user, in.OTP, s.clock.Now())); err != nil {
		return nil, err
	}

	applyProfile(user, in.Profile)

	if isNewOwner && in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.opts.PasswordCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}

	// The account type is never changed here; an owner request only keeps
	// the account inactive until an admin approves it.
	switch {
	case requestsOwner:
		user.Status = models.StatusInactive
	case user.UserType == models.UserTypeOwner:
		user.Status = models.StatusInactive
	case user.UserType == models.UserTypeAdmin, user.UserType == models.UserTypeCustomer:
		user.Status = models.StatusActive
	}

	now := s.clock.Now()
	user.EmailVerifiedAt = &now
	user.ClearOTP()

	stored, replaced, err := s.storeUploads(ctx, user, in.IDPhoto, in.Photo)
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateUser(ctx, user); err != nil {
		s.discard(ctx, stored)
		return nil, fmt.Errorf("update user: %w", err)
	}
	s.discard(ctx, replaced)

	if in.Token != "" {
		if err := s.tokens.Delete(ctx, in.Email); err != nil {
			slog.WarnContext(ctx, "token_delete_failed", "email", in.Email, "error", err)
		}
	}

	fresh, err := s.users.GetUserByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("reload user: %w", err)
	}
	return fresh, nil
}

// ResendVerification issues a new verification token for email, clears any
// outstanding code and sends the verification link.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	user, err := s.lookup(ctx, email)
	if err != nil {
		return err
	}

	link, err := s.issueToken(ctx, email)
	if err != nil {
		return err
	}

	if err := s.users.UpdateUserOTP(ctx, user.ID, nil); err != nil {
		return fmt.Errorf("clear otp: %w", err)
	}
	user.ClearOTP()

	s.sendLink(ctx, user, link)
	return nil
}

// IssueVerification stores a fresh verification token for user and sends
// the verification link.
func (s *Service) IssueVerification(ctx context.Context, user *models.User) error {
	link, err := s.issueToken(ctx, user.Email)
	if err != nil {
		return err
	}

	s.sendLink(ctx, user, link)
	return nil
}

// VerificationURL builds the link to the verification page.
func (s *Service) VerificationURL(email, token string) string {
	q := url.Values{}
	q.Set("email", email)
	q.Set("token", token)
	return s.opts.BaseURL + AccountPath + "?" + q.Encode()
}

func (s *Service) issueToken(ctx context.Context, email string) (string, error) {
	token, err := tokenstore.GenerateToken()
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	if err := s.tokens.Put(ctx, email, token, tokenstore.TokenTTL); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	return s.VerificationURL(email, token), nil
}

func (s *Service) sendLink(ctx context.Context, user *models.User, link string) {
	slog.InfoContext(ctx, "verification_link_issued", "user_id", user.ID, "email", user.Email)

	if err := s.notifier.SendVerificationLink(ctx, user, link); err != nil {
		logDispatchFailure(ctx, notify.KindVerificationLink, user, err)
	}
}

func (s *Service) lookup(ctx context.Context, email string) (*models.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if isNotFound(err) {
		return nil, errUserNotFound(FieldEmail)
	}
	if err != nil {
		return nil, fmt.Errorf("look up user: %w", err)
	}
	return user, nil
}

func (s *Service) createOwner(ctx context.Context, email, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.PasswordCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		UserType:     models.UserTypeOwner,
		Status:       models.StatusInactive,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create owner: %w", err)
	}
	return user, nil
}

// storeUploads saves the submitted files and points user at them. It
// returns the new references and the ones they replace. On failure every
// file stored so far is removed again.
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
			s.discard(ctx, stored)
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

func (s *Service) discard(ctx context.Context, refs []string) {
	for _, ref := range refs {
		if _, err := s.files.Delete(ctx, ref); err != nil {
			slog.WarnContext(ctx, "upload_cleanup_failed", "file", ref, "error", err)
		}
	}
}

func applyProfile(user *models.User, p Profile) {
	user.Firstname = p.Firstname
	user.Lastname = p.Lastname
	user.Gender = p.Gender
	user.PhoneNumber = p.PhoneNumber
	user.Address = p.Address
	user.IDType = p.IDType

	if !p.Birthdate.IsZero() {
		birthdate := p.Birthdate
		user.Birthdate = &birthdate
	}
	if p.Age > 0 {
		age := p.Age
		user.Age = &age
	}
}

func otpError(r otp.Result) error {
	switch r {
	case otp.Valid:
		return nil
	case otp.UserNotFound:
		return errUserNotFound(FieldEmail)
	case otp.Expired:
		return errExpired()
	}
	return errInvalidCode()
}

func isNotFound(err error) bool {
	if errors.Is(err, repository.ErrNotFound) {
		return true
	}
	verr, ok := AsError(err)
	return ok && verr.Code == CodeUserNotFound
}

func logDispatchFailure(ctx context.Context, kind string, user *models.User, err error) {
	slog.WarnContext(ctx, "notification_failed", "kind", kind, "user_id", user.ID, "email", user.Email, "error", err)
	metrics.NotificationsTotal.WithLabelValues(kind, "failed").Inc()
}

// randomPassword returns 32 random hex characters.
func randomPassword() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	return hex.EncodeToString(b), nil
}
