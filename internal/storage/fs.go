package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/spf13/afero"
)

const defaultFSRoot = "./data/uploads"

// FSStore keeps objects on a local (or in-memory) filesystem and serves them over HTTP.
type FSStore struct {
	fs      afero.Fs
	root    string
	baseURL string
}

// NewFSStore creates a filesystem store rooted at root. A nil fs uses the operating system.
func NewFSStore(fs afero.Fs, root, publicBaseURL string) (*FSStore, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	root = strings.TrimSpace(root)
	if root == "" {
		root = defaultFSRoot
	}
	if err := fs.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}

	baseURL := strings.TrimRight(strings.TrimSpace(publicBaseURL), "/")
	if baseURL == "" {
		baseURL = "/files"
	}

	return &FSStore{fs: fs, root: root, baseURL: baseURL}, nil
}

// Upload writes the object to disk and returns its public URL.
func (s *FSStore) Upload(ctx context.Context, key, contentType string, r io.Reader, size int64) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	full := path.Join(s.root, key)
	if err := s.fs.MkdirAll(path.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("storage: create directory: %w", err)
	}

	if err := afero.WriteReader(s.fs, full, limitReader(r, size)); err != nil {
		_ = s.fs.Remove(full)
		if errors.Is(err, ErrTooLarge) {
			return "", err
		}
		return "", fmt.Errorf("storage: write object: %w", err)
	}

	return s.baseURL + "/" + key, nil
}

// Delete removes the object. Missing objects are not an error.
func (s *FSStore) Delete(ctx context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(path.Join(s.root, key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: delete object: %w", err)
	}
	return nil
}

// Ping verifies the root directory is still reachable.
func (s *FSStore) Ping(ctx context.Context) error {
	info, err := s.fs.Stat(s.root)
	if err != nil {
		return fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("storage: root %q is not a directory", s.root)
	}
	return nil
}

// HTTPFileSystem exposes the stored objects for static serving.
func (s *FSStore) HTTPFileSystem() http.FileSystem {
	return afero.NewHttpFs(s.fs).Dir(s.root)
}

// Exists reports whether key is present.
func (s *FSStore) Exists(key string) bool {
	key, err := cleanKey(key)
	if err != nil {
		return false
	}
	ok, _ := afero.Exists(s.fs, path.Join(s.root, key))
	return ok
}
