// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"codeberg.org/godrive/accounts/internal/metrics"
	"codeberg.org/godrive/accounts/internal/models"
)

// SendTimeout bounds a single background delivery.
const SendTimeout = 30 * time.Second

// Async hands deliveries to background goroutines and returns immediately.
// Failures are logged as notification_failed. Wait blocks until all
// pending deliveries are done.
type Async struct {
	next   Dispatcher
	logger *slog.Logger
	wg     sync.WaitGroup
}

func NewAsync(next Dispatcher, logger *slog.Logger) *Async {
	if logger == nil {
		logger = slog.Default()
	}
	return &Async{next: next, logger: logger}
}

func (a *Async) SendVerificationLink(ctx context.Context, user *models.User, url string) error {
	u := *user
	a.dispatch(ctx, KindVerificationLink, &u, func(ctx context.Context) error {
		return a.next.SendVerificationLink(ctx, &u, url)
	})
	return nil
}

func (a *Async) SendOtpCode(ctx context.Context, user *models.User, code string) error {
	u := *user
	a.dispatch(ctx, KindOtpCode, &u, func(ctx context.Context) error {
		return a.next.SendOtpCode(ctx, &u, code)
	})
	return nil
}

func (a *Async) dispatch(ctx context.Context, kind string, user *models.User, send func(context.Context) error) {
	// The request context is cancelled once the response is written.
	ctx = context.WithoutCancel(ctx)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		ctx, cancel := context.WithTimeout(ctx, SendTimeout)
		defer cancel()

		if err := send(ctx); err != nil {
			a.logger.WarnContext(ctx, "notification_failed",
				"kind", kind, "user_id", user.ID, "email", user.Email, "error", err)
			metrics.NotificationsTotal.WithLabelValues(kind, "failed").Inc()
			return
		}
		metrics.NotificationsTotal.WithLabelValues(kind, "sent").Inc()
	}()
}

// Wait blocks until every dispatched notification has finished.
func (a *Async) Wait() {
	a.wg.Wait()
}
