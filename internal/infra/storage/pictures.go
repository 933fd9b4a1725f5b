package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/FairHead/checktodo-server/internal/infra/config"
)

// ErrUnsupportedType is returned for uploads that are not JPEG or PNG.
var ErrUnsupportedType = errors.New("storage: unsupported content type")

// ErrTooLarge is returned when an upload exceeds the configured size limit.
var ErrTooLarge = errors.New("storage: upload too large")

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

// PictureStore keeps profile pictures on local disk, one file per user.
// Saving replaces any previous picture regardless of format.
type PictureStore struct {
	dir           string
	publicBaseURL string
	maxBytes      int64
}

// NewPictureStore ensures the target directory exists and returns the store.
func NewPictureStore(cfg config.StorageSettings) (*PictureStore, error) {
	if err := os.MkdirAll(cfg.PictureDir, 0o755); err != nil {
		return nil, fmt.Errorf("create picture dir: %w", err)
	}

	return &PictureStore{
		dir:           cfg.PictureDir,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		maxBytes:      cfg.MaxUploadBytes,
	}, nil
}

// Save writes the picture to disk and returns its public URL.
func (s *PictureStore) Save(_ context.Context, userID string, contentType string, data []byte) (string, error) {
	ext, ok := extensions[contentType]
	if !ok {
		return "", ErrUnsupportedType
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return "", ErrTooLarge
	}

	if err := s.removeFiles(userID); err != nil {
		return "", err
	}

	name := userID + ext
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write picture: %w", err)
	}

	return fmt.Sprintf("%s/%s", s.publicBaseURL, name), nil
}

// Remove deletes the user's stored picture if one exists.
func (s *PictureStore) Remove(_ context.Context, userID string) error {
	return s.removeFiles(userID)
}

func (s *PictureStore) removeFiles(userID string) error {
	for _, ext := range extensions {
		path := filepath.Join(s.dir, userID+ext)
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove picture: %w", err)
		}
	}
	return nil
}
