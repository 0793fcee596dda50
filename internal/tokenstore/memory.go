// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package tokenstore

import (
	"context"
	"sync"
	"time"

	"codeberg.org/godrive/accounts/internal/clock"
)

type memoryEntry struct {
	token     string
	expiresAt time.Time
}

// Memory is a process-local Store. Expired entries are dropped on read.
type Memory struct {
	clock   clock.Clock
	mu      sync.Mutex
	entries map[string]memoryEntry
}

func NewMemory(c clock.Clock) *Memory {
	return &Memory{clock: c, entries: make(map[string]memoryEntry)}
}

func (m *Memory) Put(_ context.Context, email, token string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[email] = memoryEntry{token: token, expiresAt: m.clock.Now().Add(ttl)}
	return nil
}

func (m *Memory) Get(_ context.Context, email string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[email]
	if !ok {
		return "", ErrNotFound
	}
	if !m.clock.Now().Before(entry.expiresAt) {
		delete(m.entries, email)
		return "", ErrNotFound
	}
	return entry.token, nil
}

func (m *Memory) Delete(_ context.Context, email string) error {
	m.mu.Lock()
	delete(m.entries, email)
	m.mu.Unlock()
	return nil
}
