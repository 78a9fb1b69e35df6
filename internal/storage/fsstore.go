package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fluxaudio/fluxaudio/internal/apperr"
	"github.com/fluxaudio/fluxaudio/internal/common"
)

// FSStore persists blobs under a single root directory. Every path is
// canonicalized and prefix-checked against the root before any
// filesystem access; a traversal attempt is InvalidArgument, never a
// silently clamped path.
type FSStore struct {
	root string
}

func NewFSStore(root string) (*FSStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{root: abs}, nil
}

// resolve joins name onto the root and rejects anything that escapes it.
func (s *FSStore) resolve(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty file path", apperr.ErrInvalidArgument)
	}
	full := filepath.Join(s.root, name)
	abs, err := filepath.Abs(full)
	if err != nil {
		return "", fmt.Errorf("%w: invalid file path", apperr.ErrInvalidArgument)
	}
	if abs != s.root && !strings.HasPrefix(abs, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: invalid file path", apperr.ErrInvalidArgument)
	}
	return abs, nil
}

// Store writes data under the root and returns the logical path used to
// fetch it later. An empty name gets an owner-prefixed generated one.
func (s *FSStore) Store(owner string, data []byte, name string) (string, error) {
	if name == "" {
		name = fmt.Sprintf("audio_%s_%s.wav", owner, common.NewUUID())
	}
	full, err := s.resolve(name)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}
	rel, err := filepath.Rel(s.root, full)
	if err != nil {
		return "", err
	}
	return rel, nil
}

// Fetch reads a blob back by its logical path.
func (s *FSStore) Fetch(path string) ([]byte, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: file %s", apperr.ErrNotFound, path)
		}
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return data, nil
}

// Delete removes a blob by its logical path.
func (s *FSStore) Delete(path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: file %s", apperr.ErrNotFound, path)
		}
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}
