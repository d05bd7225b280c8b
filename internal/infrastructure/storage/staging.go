package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/claimdesk/internal/application/port"
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

// LocalStagingArea implements port.StagingArea with one folder per claim.
// File order is kept through a numeric prefix.
type LocalStagingArea struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalStagingArea creates the staging root if needed
func NewLocalStagingArea(baseDir string, logger *zap.Logger) (*LocalStagingArea, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	return &LocalStagingArea{baseDir: baseDir, logger: logger}, nil
}

// Stage replaces whatever was staged for the claim with files
func (s *LocalStagingArea) Stage(ctx context.Context, claimID string, files []port.StagedFile) error {
	dir, err := s.folder(claimID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to reset staging folder: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		s.logger.Error("Failed to create staging folder", zap.String("claim_id", claimID), zap.Error(err))
		return fmt.Errorf("failed to create staging folder: %w", err)
	}

	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := fmt.Sprintf("%03d_%s", i, SanitizeName(f.Name))
		if err := os.WriteFile(filepath.Join(dir, name), f.Content, 0644); err != nil {
			return fmt.Errorf("failed to stage %s: %w", f.Name, err)
		}
	}

	s.logger.Debug("Files staged", zap.String("claim_id", claimID), zap.Int("count", len(files)))
	return nil
}

// Load returns the staged files in their original order. A claim with
// nothing staged yields an empty slice.
func (s *LocalStagingArea) Load(ctx context.Context, claimID string) ([]port.StagedFile, error) {
	dir, err := s.folder(claimID)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return []port.StagedFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read staging folder: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	files := make([]port.StagedFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read staged file: %w", err)
		}
		name := e.Name()
		if idx := strings.IndexByte(name, '_'); idx >= 0 {
			name = name[idx+1:]
		}
		files = append(files, port.StagedFile{Name: name, Content: content})
	}
	return files, nil
}

// Clear removes the claim's staging folder; clearing twice is fine
func (s *LocalStagingArea) Clear(ctx context.Context, claimID string) error {
	dir, err := s.folder(claimID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		s.logger.Error("Failed to clear staging folder", zap.String("claim_id", claimID), zap.Error(err))
		return fmt.Errorf("failed to clear staging folder: %w", err)
	}
	return nil
}

func (s *LocalStagingArea) folder(claimID string) (string, error) {
	safe := SanitizeName(claimID)
	if safe == "" || strings.Trim(safe, ".") == "" {
		return "", fmt.Errorf("invalid claim id for staging: %q", claimID)
	}
	dir := filepath.Join(s.baseDir, safe)
	if err := validateWithin(s.baseDir, dir); err != nil {
		return "", err
	}
	return dir, nil
}

// SanitizeName replaces characters that are unsafe in file names
func SanitizeName(name string) string {
	return unsafeNameChars.ReplaceAllString(filepath.Base(name), "_")
}

var _ port.StagingArea = (*LocalStagingArea)(nil)
