// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package email delivers verification links and one-time codes over SMTP.
package email

import (
	"context"
	"fmt"
	"log/slog"

	"codeberg.org/godrive/accounts/internal/config"
	"codeberg.org/godrive/accounts/internal/i18n"
	"codeberg.org/godrive/accounts/internal/metrics"
	"codeberg.org/godrive/accounts/internal/models"
	"codeberg.org/godrive/accounts/internal/services/notify"
	"codeberg.org/godrive/accounts/internal/services/otp"
	"github.com/wneessen/go-mail"
)

// Sender hands a finished message to the mail server.
type Sender func(ctx context.Context, msg *mail.Msg) error

// Service sends notification e-mails.
type Service struct {
	cfg     *config.SMTPConfig
	appName string
	send    Sender
}

// NewService creates a new email service. A nil sender delivers through the
// configured SMTP server.
func NewService(cfg *config.SMTPConfig, appName string, sender Sender) (*Service, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}

	s := &Service{cfg: cfg, appName: appName, send: sender}
	if s.send == nil {
		s.send = s.dialAndSend
	}
	return s, nil
}

var _ notify.Dispatcher = (*Service)(nil)

// SendVerificationLink mails the account verification link.
func (s *Service) SendVerificationLink(ctx context.Context, user *models.User, url string) error {
	subject := i18n.T(ctx, "email_verification_subject")
	body := i18n.TData(ctx, "email_verification_body", map[string]any{
		"Name":    user.Name(),
		"AppName": s.appName,
		"URL":     url,
	})
	return s.deliver(ctx, notify.KindVerificationLink, user, subject, body)
}

// SendOtpCode mails a one-time verification code.
func (s *Service) SendOtpCode(ctx context.Context, user *models.User, code string) error {
	subject := i18n.T(ctx, "email_otp_subject")
	body := i18n.TData(ctx, "email_otp_body", map[string]any{
		"Name":    user.Name(),
		"Code":    code,
		"Minutes": int(otp.TTL.Minutes()),
	})
	return s.deliver(ctx, notify.KindOtpCode, user, subject, body)
}

func (s *Service) deliver(ctx context.Context, kind string, user *models.User, subject, body string) error {
	msg, err := s.message(user.Email, subject, body)
	if err == nil {
		err = s.send(ctx, msg)
	}
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues(kind, "failed").Inc()
		return fmt.Errorf("sending %s to %s: %w", kind, user.Email, err)
	}

	metrics.NotificationsTotal.WithLabelValues(kind, "sent").Inc()
	slog.DebugContext(ctx, "email_sent", "kind", kind, "user_id", user.ID, "email", user.Email)
	return nil
}

func (s *Service) message(to, subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return nil, fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From); err != nil {
			return nil, fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}

// dialAndSend sends a message via SMTP using go-mail.
func (s *Service) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	client, err := mail.NewClient(s.cfg.Host, s.clientOptions()...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	return nil
}

func (s *Service) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
	}

	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// Implicit TLS on 465, STARTTLS elsewhere
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	return opts
}
