// Package credstore persists the acquired platform credential. The store
// is single-writer (the authenticator) and single-reader (the publisher).
package credstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"social_publisher/internal/domain"
)

type FileStore struct {
	path   string
	logger *slog.Logger
}

func NewFileStore(path string, logger *slog.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

// Load returns the persisted credential, or (nil, nil) when none has been
// saved yet. An unreadable or corrupt file wraps
// domain.ErrCredentialUnavailable so callers re-authenticate instead of
// proceeding unauthenticated.
func (s *FileStore) Load(ctx context.Context) (*domain.Credential, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrCredentialUnavailable, s.path, err)
	}

	var cred domain.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", domain.ErrCredentialUnavailable, s.path, err)
	}
	if cred.AccessToken == "" {
		return nil, fmt.Errorf("%w: %s holds no access token", domain.ErrCredentialUnavailable, s.path)
	}

	return &cred, nil
}

// Save durably overwrites the stored credential. The write goes through a
// temp file and rename so a crash never leaves a partial credential.
func (s *FileStore) Save(ctx context.Context, cred *domain.Credential) error {
	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal credential: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".credential-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write credential: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace credential file: %w", err)
	}

	s.logger.Debug("saved credential", "path", s.path, "expires_at", cred.ExpiresAt)

	return nil
}
