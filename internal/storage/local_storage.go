package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStorage persists files to the local filesystem.
type LocalStorage struct {
	baseDir       string
	publicBaseURL string
	now           func() time.Time
}

// NewLocalStorage creates a LocalStorage instance. The directory is created if
// it does not exist.
func NewLocalStorage(baseDir, publicBaseURL string) (*LocalStorage, error) {
	baseDir = strings.TrimSpace(baseDir)
	if baseDir == "" {
		baseDir = "datas/logos"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	if strings.TrimSpace(publicBaseURL) == "" {
		publicBaseURL = "/files"
	}
	return &LocalStorage{baseDir: baseDir, publicBaseURL: publicBaseURL, now: time.Now}, nil
}

// LocalBaseDir returns the root directory used for storing files.
func (s *LocalStorage) LocalBaseDir() string {
	return s.baseDir
}

// Save writes the provided bytes under baseDir and returns the object with a
// URL rooted at the public base.
func (s *LocalStorage) Save(ctx context.Context, data []byte, opts SaveOptions) (*Object, error) {
	if len(data) == 0 {
		return nil, errors.New("empty payload")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	key := buildObjectPath(s.now(), opts.Category, opts.BaseName, opts.Extension)
	obj := &Object{
		Key:         key,
		URL:         publicURL(s.publicBaseURL, key),
		Size:        len(data),
		ContentType: resolveContentType(opts),
	}

	absPath := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if opts.SkipIfExists {
		if _, err := os.Stat(absPath); err == nil {
			return obj, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("create dir: %w", err)
	}

	// 先写临时文件再重命名，避免并发读取到半截文件
	tmp := absPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return nil, fmt.Errorf("write file: %w", err)
	}
	if err := os.Rename(tmp, absPath); err != nil {
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("rename file: %w", err)
	}

	return obj, nil
}

var _ Storage = (*LocalStorage)(nil)
var _ LocalBaseDirProvider = (*LocalStorage)(nil)
