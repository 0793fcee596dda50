// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package notify delivers verification links and one-time codes to users.
package notify

import (
	"context"
	"log/slog"

	"codeberg.org/godrive/accounts/internal/metrics"
	"codeberg.org/godrive/accounts/internal/models"
)

// Notification kinds used in logs and metrics.
const (
	KindVerificationLink = "verification_link"
	KindOtpCode          = "otp_code"
)

type Dispatcher interface {
	SendVerificationLink(ctx context.Context, user *models.User, url string) error
	SendOtpCode(ctx context.Context, user *models.User, code string) error
}

// Log writes notifications to the structured log instead of delivering
// them. It is used when no SMTP server is configured.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) SendVerificationLink(ctx context.Context, user *models.User, url string) error {
	l.logger.InfoContext(ctx, "verification_link_sent", "user_id", user.ID, "email", user.Email, "url", url)
	metrics.NotificationsTotal.WithLabelValues(KindVerificationLink, "logged").Inc()
	return nil
}

func (l *Log) SendOtpCode(ctx context.Context, user *models.User, code string) error {
	l.logger.InfoContext(ctx, "otp_code_sent", "user_id", user.ID, "email", user.Email, "otp", code)
	metrics.NotificationsTotal.WithLabelValues(KindOtpCode, "logged").Inc()
	return nil
}
