// Package artifact stages transient operation payloads (screenshots, UI
// dumps, pulled files) on local disk just long enough to embed them in a
// response. Staged files are always removed before the response goes out,
// on success and failure alike.
package artifact

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// DefaultMaxBytes caps inline payloads at 8 MiB.
const DefaultMaxBytes = 8 << 20

// TooLargeError indicates an artifact exceeded the inline payload cap.
type TooLargeError struct {
	Path string
	Size int64
	Max  int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("artifact %s is %d bytes, exceeds inline limit of %d", e.Path, e.Size, e.Max)
}

// Store manages the local staging directory and the payload size policy.
type Store struct {
	dir      string
	maxBytes int64
}

// NewStore creates a Store. An empty dir uses the system temp directory;
// maxBytes <= 0 uses DefaultMaxBytes.
func NewStore(dir string, maxBytes int64) *Store {
	if dir == "" {
		dir = os.TempDir()
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Store{dir: dir, maxBytes: maxBytes}
}

// MaxBytes returns the inline payload cap.
func (s *Store) MaxBytes() int64 { return s.maxBytes }

// StagePath returns a unique path in the staging directory for an
// external tool to write to. Nothing is created; the caller owns cleanup
// via Collect or Discard.
func (s *Store) StagePath(ext string) string {
	return filepath.Join(s.dir, "droidctl-"+uuid.NewString()+ext)
}

// Collect reads a staged file, enforcing the size cap, and removes it
// regardless of outcome.
func (s *Store) Collect(path string) ([]byte, error) {
	defer os.Remove(path)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("staged artifact missing: %w", err)
	}
	if info.Size() > s.maxBytes {
		return nil, &TooLargeError{Path: path, Size: info.Size(), Max: s.maxBytes}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading staged artifact: %w", err)
	}
	return data, nil
}

// Discard removes a staged file, ignoring absence.
func (s *Store) Discard(path string) {
	_ = os.Remove(path)
}

// Write stages caller-provided bytes (e.g. a decoded upload) as a file
// for an external tool to read. The returned cleanup removes it.
func (s *Store) Write(data []byte, ext string) (string, func(), error) {
	path := s.StagePath(ext)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", nil, fmt.Errorf("staging artifact: %w", err)
	}
	return path, func() { _ = os.Remove(path) }, nil
}

// Encode renders binary payload bytes for inline embedding.
func Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Decode reverses Encode.
func Decode(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
