// Package artifacts stores uploads and split outputs on the service's
// local filesystem.
package artifacts

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Store manages two directories: incoming uploads and split outputs.
type Store struct {
	uploadDir string
	outputDir string
}

// NewStore creates the directories if needed and returns a Store.
func NewStore(uploadDir, outputDir string) (*Store, error) {
	for _, dir := range []string{uploadDir, outputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("artifacts: create dir %s: %w", dir, err)
		}
	}
	return &Store{uploadDir: uploadDir, outputDir: outputDir}, nil
}

// SaveUpload writes an uploaded document under the upload directory and
// returns its path. The name is sanitized to its base name first.
func (s *Store) SaveUpload(name string, r io.Reader) (string, error) {
	path := filepath.Join(s.uploadDir, sanitize(name))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("artifacts: create upload: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("artifacts: write upload: %w", err)
	}
	return path, nil
}

// CreateOutput opens a new output artifact for writing. The caller must
// close it.
func (s *Store) CreateOutput(name string) (*os.File, error) {
	f, err := os.Create(filepath.Join(s.outputDir, sanitize(name)))
	if err != nil {
		return nil, fmt.Errorf("artifacts: create output: %w", err)
	}
	return f, nil
}

// OutputPath resolves the on-disk path of an output artifact and
// reports whether it exists. Names are confined to the output
// directory.
func (s *Store) OutputPath(name string) (string, bool) {
	path := s.OutputPathFor(name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	return path, true
}

// OutputPathFor returns the path an output artifact of this name is
// written to, whether or not it exists yet.
func (s *Store) OutputPathFor(name string) string {
	return filepath.Join(s.outputDir, sanitize(name))
}

// RemoveUpload deletes an uploaded document after processing.
func (s *Store) RemoveUpload(path string) error {
	if filepath.Dir(path) != filepath.Clean(s.uploadDir) {
		return fmt.Errorf("artifacts: %s is outside the upload dir", path)
	}
	return os.Remove(path)
}

// sanitize strips any path components so stored names cannot escape
// the store's directories.
func sanitize(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == string(filepath.Separator) {
		return "_"
	}
	return name
}
