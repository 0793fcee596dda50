// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package session

import (
	"fmt"
	"net/http"
)

// Flash kinds.
const (
	FlashStatus  = "status"
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashError   = "error"
)

// Flash is a message shown once on the next page.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	// Errors holds messages keyed by form field.
	Errors map[string]string `json:"errors,omitempty"`
}

// SetFlash returns a cookie carrying f to the next request.
func (m *Manager) SetFlash(f Flash) (*http.Cookie, error) {
	value, err := m.codec.Encode(flashCookieName, f)
	if err != nil {
		return nil, fmt.Errorf("encode flash: %w", err)
	}
	return m.cookie(flashCookieName, value, flashMaxAge), nil
}

// PopFlash reads the flash of the request. When one was present the
// returned cookie deletes it and must be set on the response.
func (m *Manager) PopFlash(r *http.Request) (*Flash, *http.Cookie) {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil {
		return nil, nil
	}

	expired := m.cookie(flashCookieName, "", -1)

	var f Flash
	if err := m.codec.Decode(flashCookieName, cookie.Value, &f); err != nil {
		return nil, expired
	}
	return &f, expired
}
