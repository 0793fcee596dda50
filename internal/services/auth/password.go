// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"bufio"
	"embed"
	"fmt"
	"strings"
	"unicode"
)

//go:embed common_passwords.txt
var commonPasswordsFS embed.FS

var commonPasswords = loadCommonPasswords()

func loadCommonPasswords() map[string]struct{} {
	set := make(map[string]struct{})
	f, err := commonPasswordsFS.Open("common_passwords.txt")
	if err != nil {
		return set
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if p := strings.ToLower(strings.TrimSpace(scanner.Text())); p != "" {
			set[p] = struct{}{}
		}
	}
	return set
}

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// PasswordError lists every rule a password breaks.
type PasswordError struct {
	Messages []string
}

func (e *PasswordError) Error() string {
	if len(e.Messages) == 0 {
		return "password does not meet requirements"
	}
	return e.Messages[0]
}

// ValidatePassword checks length, numeric-only and common passwords, and
// rejects passwords that resemble one of the given user attributes.
func ValidatePassword(password string, userAttributes ...string) error {
	var msgs []string

	if len([]rune(password)) < MinPasswordLength {
		msgs = append(msgs, fmt.Sprintf("Password must be at least %d characters long.", MinPasswordLength))
	}
	if password != "" && strings.IndexFunc(password, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
		msgs = append(msgs, "Password cannot be entirely numeric.")
	}
	if _, common := commonPasswords[strings.ToLower(password)]; common {
		msgs = append(msgs, "This password is too common. Please choose a more secure password.")
	}
	if resemblesAny(password, userAttributes) {
		msgs = append(msgs, "Password is too similar to your personal information.")
	}

	if len(msgs) > 0 {
		return &PasswordError{Messages: msgs}
	}
	return nil
}

func resemblesAny(password string, attributes []string) bool {
	p := strings.ToLower(password)
	for _, attr := range attributes {
		// The local part of an address is what users reuse.
		a, _, _ := strings.Cut(strings.ToLower(attr), "@")
		if len(a) < 3 || p == "" {
			continue
		}
		if strings.Contains(p, a) || strings.Contains(a, p) || similarity(p, a) > 0.7 {
			return true
		}
	}
	return false
}

// similarity is the longest common subsequence relative to the longer input.
func similarity(a, b string) float64 {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
			} else {
				cur[j] = max(prev[j], cur[j-1])
			}
		}
		prev, cur = cur, prev
	}
	return float64(prev[len(b)]) / float64(max(len(a), len(b)))
}
