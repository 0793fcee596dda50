// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package models defines the persisted user record and its closed enums.
package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// UserType classifies an account.
type UserType string

const (
	UserTypeAdmin    UserType = "admin"
	UserTypeOwner    UserType = "owner"
	UserTypeCustomer UserType = "customer"
)

// ParseUserType converts boundary input into a UserType.
func ParseUserType(s string) (UserType, error) {
	switch t := UserType(strings.ToLower(strings.TrimSpace(s))); t {
	case UserTypeAdmin, UserTypeOwner, UserTypeCustomer:
		return t, nil
	}
	return "", fmt.Errorf("invalid user type %q", s)
}

// Status is the lifecycle status of an account.
type Status string

const (
	StatusInactive Status = "inactive"
	StatusActive   Status = "active"
	StatusBlocked  Status = "blocked"
)

// ParseStatus converts boundary input into a Status. "block" is accepted
// as an alias of blocked.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusInactive, StatusActive, StatusBlocked:
		return st, nil
	case "block":
		return StatusBlocked, nil
	}
	return "", fmt.Errorf("invalid status %q", s)
}

type Appearance string

func (t UserType) Value() (driver.Value, error)   { return string(t), nil }
func (s Status) Value() (driver.Value, error)     { return string(s), nil }
func (a Appearance) Value() (driver.Value, error) { return string(a), nil }

const (
	AppearanceLight  Appearance = "light"
	AppearanceDark   Appearance = "dark"
	AppearanceSystem Appearance = "system"
)

// OTP is a one-time verification code with its expiry.
type OTP struct {
	Code      string
	ExpiresAt time.Time
}

// Expired reports whether the code is past its expiry at now.
func (o OTP) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

type User struct { //nolint:govet // fieldalignment not critical for models
	ID              int64      `db:"id" json:"id"`
	Email           string     `db:"email" json:"email"`
	Firstname       string     `db:"firstname" json:"firstname"`
	Lastname        string     `db:"lastname" json:"lastname"`
	Gender          string     `db:"gender" json:"gender"`
	Birthdate       *time.Time `db:"birthdate" json:"birthdate,omitempty"`
	Age             *int       `db:"age" json:"age,omitempty"`
	PhoneNumber     string     `db:"phone_number" json:"phone_number"`
	Address         string     `db:"address" json:"address"`
	IDType          string     `db:"id_type" json:"id_type"`
	IDPhoto         *string    `db:"id_photo" json:"id_photo,omitempty"`
	Photo           *string    `db:"photo" json:"photo,omitempty"`
	PasswordHash    string     `db:"password_hash" json:"-"`
	UserType        UserType   `db:"user_type" json:"user_type"`
	Status          Status     `db:"status" json:"status"`
	OTPCode         *string    `db:"otp" json:"-"`
	OTPExpiresAt    *time.Time `db:"otp_expires_at" json:"-"`
	EmailVerifiedAt *time.Time `db:"email_verified_at" json:"email_verified_at,omitempty"`
	Appearance      Appearance `db:"appearance" json:"appearance"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// Name is the display name, falling back to the e-mail address.
func (u *User) Name() string {
	if name := strings.TrimSpace(u.Firstname + " " + u.Lastname); name != "" {
		return name
	}
	return u.Email
}

func (u *User) IsActive() bool { return u.Status == StatusActive }
func (u *User) IsOwner() bool  { return u.UserType == UserTypeOwner }
func (u *User) IsAdmin() bool  { return u.UserType == UserTypeAdmin }

func (u *User) EmailVerified() bool { return u.EmailVerifiedAt != nil }

// PendingOTP returns the outstanding code, or nil when none is set.
func (u *User) PendingOTP() *OTP {
	if u.OTPCode == nil || u.OTPExpiresAt == nil {
		return nil
	}
	return &OTP{Code: *u.OTPCode, ExpiresAt: *u.OTPExpiresAt}
}

// SetOTP sets the code and its expiry together.
func (u *User) SetOTP(code string, expiresAt time.Time) {
	u.OTPCode = &code
	u.OTPExpiresAt = &expiresAt
}

// ClearOTP removes the code and its expiry together.
func (u *User) ClearOTP() {
	u.OTPCode = nil
	u.OTPExpiresAt = nil
}

// Files returns the stored file references of the user.
func (u *User) Files() []string {
	var files []string
	for _, f := range []*string{u.Photo, u.IDPhoto} {
		if f != nil && *f != "" {
			files = append(files, *f)
		}
	}
	return files
}
