package storage

import (
	"compress/gzip"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/crypto/blake2b"
)

// RawStore writes fetched pages as gzip files named
// <blake2b-256(url)>_<unix seconds>.html.gz.
type RawStore struct {
	dir string
}

// NewRawStore creates dir if needed.
func NewRawStore(dir string) (*RawStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create page directory: %w", err)
	}
	return &RawStore{dir: dir}, nil
}

// Dir returns the directory pages are written to.
func (s *RawStore) Dir() string { return s.dir }

// FileName returns the archive name for url captured at now.
func FileName(url string, now time.Time) string {
	sum := blake2b.Sum256([]byte(url))
	return hex.EncodeToString(sum[:]) + "_" + strconv.FormatInt(now.Unix(), 10) + ".html.gz"
}

// Save compresses content into the store and returns the file path.
// The file is written under a temporary name and renamed into place.
func (s *RawStore) Save(url string, content []byte, now time.Time) (string, error) {
	path := filepath.Join(s.dir, FileName(url, now))
	tmp, err := os.CreateTemp(s.dir, ".page-*")
	if err != nil {
		return "", fmt.Errorf("create page file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	zw := gzip.NewWriter(tmp)
	zw.ModTime = now
	if _, err := zw.Write(content); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("compress page: %w", err)
	}
	if err := zw.Close(); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("compress page: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("write page file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("store page file: %w", err)
	}
	return path, nil
}
