package localfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kirillkom/contract-intelligence/internal/core/domain"
)

const uriScheme = "file://"

// Storage keeps documents under a base directory. It stands in for object storage in development.
type Storage struct {
	basePath string
}

func New(basePath string) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/storage"
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve storage dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Storage{basePath: abs}, nil
}

func (s *Storage) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	path, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return uriScheme + filepath.ToSlash(path), nil
}

func (s *Storage) Get(_ context.Context, uri string) ([]byte, error) {
	path, err := s.pathFromURI(uri)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.WrapError(domain.ErrNotFound, "localfs get", err)
	}
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

// Presign has nothing to sign locally; the durable URI is already viewable.
func (s *Storage) Presign(_ context.Context, uri string, _ time.Duration) (string, error) {
	if _, err := s.pathFromURI(uri); err != nil {
		return "", err
	}
	return uri, nil
}

func (s *Storage) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimLeft(key, "/")))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", domain.InvalidInput("localfs put", fmt.Sprintf("invalid object key %q", key))
	}
	return filepath.Join(s.basePath, clean), nil
}

func (s *Storage) pathFromURI(uri string) (string, error) {
	if !strings.HasPrefix(uri, uriScheme) {
		return "", domain.InvalidInput("localfs", fmt.Sprintf("unsupported storage uri %q", uri))
	}
	path := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(uri, uriScheme)))
	rel, err := filepath.Rel(s.basePath, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", domain.InvalidInput("localfs", fmt.Sprintf("storage uri %q is outside the storage root", uri))
	}
	return path, nil
}
