// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package storage persists uploaded profile and ID photos.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"codeberg.org/godrive/accounts/internal/clock"
	"github.com/google/uuid"
)

// URLPrefix is the path prefix of stored file references and the route they
// are served under.
const URLPrefix = "uploads"

// ErrInvalidPath is returned for references outside the upload directory.
var ErrInvalidPath = errors.New("invalid file reference")

type Storage interface {
	// Store saves the upload and returns its reference.
	Store(ctx context.Context, file *multipart.FileHeader) (string, error)
	// Delete removes a stored file. It reports false when nothing existed.
	Delete(ctx context.Context, ref string) (bool, error)
}

// Local keeps files in a directory on disk.
type Local struct {
	dir   string
	clock clock.Clock
}

func NewLocal(dir string, c clock.Clock) (*Local, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &Local{dir: dir, clock: c}, nil
}

// Dir is the directory files are stored in.
func (l *Local) Dir() string {
	return l.dir
}

func (l *Local) Store(ctx context.Context, file *multipart.FileHeader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer func() { _ = src.Close() }()

	name := fmt.Sprintf("%d_%s%s", l.clock.Now().Unix(), uuid.NewString(), strings.ToLower(filepath.Ext(file.Filename)))

	dst, err := os.OpenFile(filepath.Join(l.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("write file: %w", err)
	}

	return path.Join(URLPrefix, name), nil
}

// Path resolves a stored reference to its file on disk.
func (l *Local) Path(ref string) (string, error) {
	name, ok := strings.CutPrefix(ref, URLPrefix+"/")
	if !ok || name == "" || strings.ContainsAny(name, `/\`) || name == ".." || name == "." {
		return "", ErrInvalidPath
	}
	return filepath.Join(l.dir, name), nil
}

func (l *Local) Delete(_ context.Context, ref string) (bool, error) {
	p, err := l.Path(ref)
	if err != nil {
		return false, err
	}

	err = os.Remove(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
