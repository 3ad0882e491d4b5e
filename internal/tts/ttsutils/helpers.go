// Package ttsutils provides the file and naming helpers shared by the pipeline,
// the artifact store and the HTTP layer.
package ttsutils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// Artifact name prefixes.
const (
	PrefixDirect  = "audio"
	PrefixChunked = "long_audio"
	PrefixTest    = "test"
	PrefixChunk   = "chunk"
)

const (
	defaultDirPermissions = 0o750
	textContentPrefix     = "text/"
	bytesPerAudioSecond   = 16000
)

// File extension constants.
const (
	extAAC  = ".aac"
	extFLAC = ".flac"
	extM4A  = ".m4a"
	extMP3  = ".mp3"
	extOGG  = ".ogg"
	extTXT  = ".txt"
	extWAV  = ".wav"
)

// Error message and format string constants.
const (
	errFmtFailedToCreateDir = "failed to create directory %s: %w"
	errFmtInvalidName       = "%w: %q"
)

// ErrInvalidName is returned for artifact names that are empty or could escape
// the artifact directory.
var ErrInvalidName = errors.New("invalid artifact name")

// NewArtifactName returns a unique file name of the form <prefix>_<uuid><ext>.
func NewArtifactName(prefix, ext string) string {
	return prefix + "_" + uuid.NewString() + ext
}

// NewChunkName returns a unique temporary file name for chunk index.
func NewChunkName(index int, ext string) string {
	return fmt.Sprintf("%s_%d_%s%s", PrefixChunk, index, uuid.NewString(), ext)
}

// ValidateArtifactName rejects names containing "..", path separators or
// nothing at all. It never touches the filesystem.
func ValidateArtifactName(name string) error {
	if name == "" || name == "." ||
		strings.Contains(name, "..") ||
		strings.ContainsAny(name, `/\`) ||
		strings.ContainsRune(name, 0) {
		return fmt.Errorf(errFmtInvalidName, ErrInvalidName, name)
	}

	return nil
}

// EnsureDir ensures a directory exists at the given path, creating it if it doesn't.
func EnsureDir(path string) error {
	_, statErr := os.Stat(path)
	if os.IsNotExist(statErr) {
		mkdirErr := os.MkdirAll(path, defaultDirPermissions)
		if mkdirErr != nil {
			return fmt.Errorf(
				errFmtFailedToCreateDir,
				path,
				mkdirErr,
			)
		}
	}

	return nil
}

// FormatFileSize formats a file size in a human-readable string (e.g. "1.2 MB").
func FormatFileSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}

	return humanize.Bytes(uint64(bytes))
}

// EstimateDurationSeconds approximates playback length from the file size,
// assuming 128 kbit/s audio.
func EstimateDurationSeconds(size int64) int64 {
	return (size + bytesPerAudioSecond/2) / bytesPerAudioSecond
}

// FormatEstimatedDuration renders EstimateDurationSeconds as "N seconds".
func FormatEstimatedDuration(size int64) string {
	return fmt.Sprintf("%d seconds", EstimateDurationSeconds(size))
}

// IsValidAudioFile checks if a filename has a common audio file extension.
func IsValidAudioFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case extWAV, extMP3, extFLAC, extOGG, extM4A, extAAC:
		return true
	default:
		return false
	}
}

// IsTextUpload reports whether an uploaded file is plain text, judged by its
// declared content type or a .txt extension.
func IsTextUpload(filename, contentType string) bool {
	if strings.HasPrefix(strings.ToLower(contentType), textContentPrefix) {
		return true
	}

	return strings.EqualFold(filepath.Ext(filename), extTXT)
}
