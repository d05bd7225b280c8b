package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/claimdesk/internal/application/port"
	"github.com/garyjia/claimdesk/internal/domain/apperr"
)

// LocalObjectStorage implements port.ObjectStorage as a bucket directory on disk.
// Objects are served back by the HTTP server under publicBaseURL.
type LocalObjectStorage struct {
	baseDir       string
	bucket        string
	publicBaseURL string
	logger        *zap.Logger
}

// NewLocalObjectStorage creates the bucket directory under baseDir if needed
func NewLocalObjectStorage(baseDir, bucket, publicBaseURL string, logger *zap.Logger) (*LocalObjectStorage, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if err := os.MkdirAll(filepath.Join(baseDir, bucket), 0755); err != nil {
		return nil, fmt.Errorf("failed to create bucket directory: %w", err)
	}
	return &LocalObjectStorage{
		baseDir:       baseDir,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger,
	}, nil
}

// Upload writes a new object. An existing object at path is never replaced.
func (s *LocalObjectStorage) Upload(ctx context.Context, path string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fullPath, err := s.resolve(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		s.logger.Error("Failed to create object directory", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("failed to create directories: %w", err)
	}

	f, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, os.ErrExist) {
		return fmt.Errorf("object %s already exists: %w", path, apperr.ErrConflict)
	}
	if err != nil {
		s.logger.Error("Failed to create object", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("failed to create object: %w", err)
	}

	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		_ = os.Remove(fullPath)
		return fmt.Errorf("failed to write object: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(fullPath)
		return fmt.Errorf("failed to close object: %w", err)
	}

	s.logger.Debug("Object uploaded",
		zap.String("bucket", s.bucket),
		zap.String("path", path),
		zap.Int("size", len(content)))
	return nil
}

// PublicURL returns the URL under which the object is served
func (s *LocalObjectStorage) PublicURL(path string) string {
	segments := strings.Split(strings.TrimLeft(path, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.publicBaseURL + "/" + s.bucket + "/" + strings.Join(segments, "/")
}

// Delete removes an object; a missing object is not an error
func (s *LocalObjectStorage) Delete(ctx context.Context, path string) error {
	fullPath, err := s.resolve(path)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Error("Failed to delete object", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// BucketDir is the directory holding the bucket's objects
func (s *LocalObjectStorage) BucketDir() string {
	return filepath.Join(s.baseDir, s.bucket)
}

// Bucket returns the bucket name
func (s *LocalObjectStorage) Bucket() string {
	return s.bucket
}

// resolve maps an object path into the bucket directory, rejecting escapes
func (s *LocalObjectStorage) resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("object path is required")
	}
	base := s.BucketDir()
	fullPath := filepath.Join(base, filepath.FromSlash(path))
	if err := validateWithin(base, fullPath); err != nil {
		return "", err
	}
	return fullPath, nil
}

// validateWithin checks that fullPath stays inside baseDir
func validateWithin(baseDir, fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return fmt.Errorf("path escapes base directory: %s", fullPath)
	}
	return nil
}

var _ port.ObjectStorage = (*LocalObjectStorage)(nil)
