// Package artifacts manages the durable output directory that holds finished
// audio files. Names are validated before any filesystem access so callers can
// pass user input straight through.
package artifacts

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/book-expert/tts-gateway/internal/tts/ttsutils"
)

const filePermissions = 0o600

// Error messages.
const (
	errFmtCreateDir = "failed to prepare artifact directory: %w"
	errFmtReadDir   = "failed to read artifact directory %s: %w"
	errFmtWrite     = "failed to write artifact %s: %w"
	errFmtDelete    = "failed to delete artifact %s: %w"
	errFmtNotFound  = "%w: %s"
)

// Static errors.
var (
	ErrInvalidName = ttsutils.ErrInvalidName
	ErrNotFound    = errors.New("artifact not found")
	ErrEmptyDir    = errors.New("artifact directory cannot be empty")
)

// FileInfo describes one stored artifact.
type FileInfo struct {
	Name    string
	Size    int64
	Created time.Time
}

// Stats summarizes the directory contents.
type Stats struct {
	Directory string
	FileCount int
	TotalSize int64
}

// Store is an output directory of audio artifacts.
type Store struct {
	dir string
}

// NewStore creates the directory if needed and returns a Store rooted at it.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, ErrEmptyDir
	}

	dirErr := ttsutils.EnsureDir(dir)
	if dirErr != nil {
		return nil, fmt.Errorf(errFmtCreateDir, dirErr)
	}

	return &Store{dir: dir}, nil
}

// Dir returns the root directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the full path for name after validating it.
func (s *Store) Path(name string) (string, error) {
	validateErr := ttsutils.ValidateArtifactName(name)
	if validateErr != nil {
		return "", validateErr
	}

	return filepath.Join(s.dir, name), nil
}

// Write stores data under name and returns the number of bytes written.
func (s *Store) Write(name string, data []byte) (int64, error) {
	path, err := s.Path(name)
	if err != nil {
		return 0, err
	}

	writeErr := os.WriteFile(path, data, filePermissions)
	if writeErr != nil {
		return 0, fmt.Errorf(errFmtWrite, name, writeErr)
	}

	return int64(len(data)), nil
}

// List returns the audio artifacts, newest first.
func (s *Store) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf(errFmtReadDir, s.dir, err)
	}

	files := make([]FileInfo, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !ttsutils.IsValidAudioFile(entry.Name()) {
			continue
		}

		info, infoErr := entry.Info()
		if infoErr != nil {
			// Removed between ReadDir and Info.
			continue
		}

		files = append(files, FileInfo{
			Name:    entry.Name(),
			Size:    info.Size(),
			Created: info.ModTime(),
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].Created.After(files[j].Created)
	})

	return files, nil
}

// Stats returns the file count and total size of the audio artifacts.
func (s *Store) Stats() (Stats, error) {
	files, err := s.List()
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Directory: s.dir, FileCount: len(files)}

	for _, file := range files {
		stats.TotalSize += file.Size
	}

	return stats, nil
}

// Delete removes the artifact called name. Invalid names are rejected with
// ErrInvalidName before the filesystem is touched.
func (s *Store) Delete(name string) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}

	removeErr := os.Remove(path)
	if errors.Is(removeErr, fs.ErrNotExist) {
		return fmt.Errorf(errFmtNotFound, ErrNotFound, name)
	}

	if removeErr != nil {
		return fmt.Errorf(errFmtDelete, name, removeErr)
	}

	return nil
}
