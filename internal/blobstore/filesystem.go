package blobstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/cardguard/remediator/internal/config"
)

// FilesystemStore implements Store on a local directory tree. Containers
// map to first-level directories under the root. Intended for local
// deployments and paired with the directory-watch trigger.
type FilesystemStore struct {
	root   string
	logger *zap.Logger
}

// NewFilesystemStore creates a filesystem-backed object store
func NewFilesystemStore(cfg config.FilesystemConfig, logger *zap.Logger) (*FilesystemStore, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}

	logger.Info("Filesystem object store initialized", zap.String("root", root))

	return &FilesystemStore{root: root, logger: logger}, nil
}

func (s *FilesystemStore) path(container, name string) (string, error) {
	if strings.Contains(container, "..") || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid object path %s/%s", container, name)
	}
	return filepath.Join(s.root, container, name), nil
}

// Get reads the full content of an object
func (s *FilesystemStore) Get(ctx context.Context, container, name string) ([]byte, error) {
	path, err := s.path(container, name)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s/%s", ErrObjectNotFound, container, name)
		}
		return nil, fmt.Errorf("failed to read object %s/%s: %w", container, name, err)
	}
	return content, nil
}

// Put creates or overwrites an object
func (s *FilesystemStore) Put(ctx context.Context, container, name string, content []byte) error {
	path, err := s.path(container, name)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("failed to write object %s/%s: %w", container, name, err)
	}

	s.logger.Debug("Object written",
		zap.String("container", container),
		zap.String("name", name),
		zap.Int("bytes", len(content)))

	return nil
}

// Delete removes an object
func (s *FilesystemStore) Delete(ctx context.Context, container, name string) error {
	path, err := s.path(container, name)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s/%s", ErrObjectNotFound, container, name)
		}
		return fmt.Errorf("failed to delete object %s/%s: %w", container, name, err)
	}
	return nil
}

// EnsureContainer creates the container directory if absent
func (s *FilesystemStore) EnsureContainer(ctx context.Context, container string) error {
	path, err := s.path(container, "")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("failed to create container %s: %w", container, err)
	}
	return nil
}

// ContainerPath returns the absolute directory backing a container, for
// the directory-watch trigger.
func (s *FilesystemStore) ContainerPath(container string) string {
	return filepath.Join(s.root, container)
}
