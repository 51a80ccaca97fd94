package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps model artifacts under a directory on local disk. It is
// used when no R2 bucket is configured.
type LocalStore struct {
	root string
	// BaseURL is the public prefix the upload dir is served under.
	BaseURL string
}

// NewLocalStore creates root if it doesn't exist.
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to ensure upload dir: %w", err)
	}
	return &LocalStore{root: root, BaseURL: "/uploads"}, nil
}

// path resolves key inside root, refusing keys that escape it.
func (s *LocalStore) path(key string) (string, error) {
	p := filepath.Join(s.root, filepath.FromSlash(key))
	if !strings.HasPrefix(p, filepath.Clean(s.root)+string(os.PathSeparator)) {
		return "", fmt.Errorf("illegal artifact key: %s", key)
	}
	return p, nil
}

func (s *LocalStore) Put(_ context.Context, key string, body io.Reader, _ string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), os.ModePerm); err != nil {
		return err
	}

	dst, err := os.Create(p)
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, body); err != nil {
		return err
	}
	return dst.Close()
}

// Delete removes key; a missing file is not an error.
func (s *LocalStore) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStore) Open(key string) (*os.File, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

func (s *LocalStore) URL(key string) string {
	return s.BaseURL + "/" + key
}
