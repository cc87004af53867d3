package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps one JSON document per (user, key) under
// <base>/users/<user>/<key>.json. It is the local-development counterpart of
// the Upstash store and matches the layout the data importer expects.
type FileStore struct {
	base string
}

type FileStoreConfig struct {
	Path string `envconfig:"PATH" split_words:"true" default:"data/v2"`
}

func NewFileStore(cfg FileStoreConfig) (*FileStore, error) {
	base := strings.TrimSpace(cfg.Path)
	if base == "" {
		return nil, errors.New("file store path is required")
	}
	if err := os.MkdirAll(filepath.Join(base, "users"), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{base: base}, nil
}

func (s *FileStore) Get(_ context.Context, userID, key string) ([]byte, error) {
	path, err := s.path(userID, key)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return raw, nil
}

func (s *FileStore) Put(_ context.Context, userID, key string, value []byte) error {
	path, err := s.path(userID, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create user dir: %w", err)
	}

	// Write-then-rename so a concurrent reader never observes a torn file.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, userID, key string) error {
	path, err := s.path(userID, key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

func (s *FileStore) path(userID, key string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", ErrInvalidUser
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrInvalidKey
	}
	if !safeComponent(userID) || !safeComponent(key) {
		return "", fmt.Errorf("invalid store path component: user=%q key=%q", userID, key)
	}
	return filepath.Join(s.base, "users", userID, key+".json"), nil
}

func safeComponent(c string) bool {
	if c == "." || c == ".." {
		return false
	}
	return !strings.ContainsAny(c, `/\`)
}
