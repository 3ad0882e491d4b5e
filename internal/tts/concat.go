package tts

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/book-expert/tts-gateway/internal/tts/provider"
)

const filePermissions = 0o600

// Static errors.
var (
	ErrNoArtifacts      = errors.New("no artifacts to concatenate")
	ErrNoValidArtifacts = errors.New("no artifact meets the minimum audio size")
)

const (
	errFmtCopyArtifact  = "failed to copy artifact %s: %w"
	errFmtReadArtifact  = "failed to read artifact %s: %w"
	errFmtWriteOutput   = "failed to write output %s: %w"
	errFmtMergeFallback = "merge failed (%w) and no fallback artifact is usable: %w"
)

// Concatenate merges the artifacts at paths, in order, into outputPath and returns
// the size of the output.
//
// A single artifact is copied as is. With several artifacts, those of
// minValidBytes or fewer are skipped and the rest are joined byte for byte. If
// merging fails, the first existing artifact larger than minValidBytes becomes the
// whole output.
func Concatenate(paths []string, outputPath string, minValidBytes int) (int64, error) {
	if len(paths) == 0 {
		return 0, ErrNoArtifacts
	}

	if len(paths) == 1 {
		return copyFile(paths[0], outputPath)
	}

	size, mergeErr := merge(paths, outputPath, minValidBytes)
	if mergeErr == nil {
		return size, nil
	}

	for _, path := range paths {
		info, statErr := os.Stat(path)
		if statErr != nil || !provider.IsValidAudioSize(int(info.Size()), minValidBytes) {
			continue
		}

		copied, copyErr := copyFile(path, outputPath)
		if copyErr == nil {
			return copied, nil
		}
	}

	return 0, fmt.Errorf(errFmtMergeFallback, mergeErr, ErrNoValidArtifacts)
}

func merge(paths []string, outputPath string, minValidBytes int) (int64, error) {
	var merged bytes.Buffer

	valid := 0

	for _, path := range paths {
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return 0, fmt.Errorf(errFmtReadArtifact, path, readErr)
		}

		if !provider.IsValidAudioSize(len(data), minValidBytes) {
			continue
		}

		merged.Write(data)

		valid++
	}

	if valid == 0 {
		return 0, ErrNoValidArtifacts
	}

	writeErr := os.WriteFile(outputPath, merged.Bytes(), filePermissions)
	if writeErr != nil {
		return 0, fmt.Errorf(errFmtWriteOutput, outputPath, writeErr)
	}

	return int64(merged.Len()), nil
}

func copyFile(sourcePath, outputPath string) (int64, error) {
	source, err := os.Open(sourcePath)
	if err != nil {
		return 0, fmt.Errorf(errFmtCopyArtifact, sourcePath, err)
	}
	defer source.Close()

	output, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermissions)
	if err != nil {
		return 0, fmt.Errorf(errFmtCopyArtifact, sourcePath, err)
	}

	written, copyErr := io.Copy(output, source)
	closeErr := output.Close()

	if copyErr != nil {
		return 0, fmt.Errorf(errFmtCopyArtifact, sourcePath, copyErr)
	}

	if closeErr != nil {
		return 0, fmt.Errorf(errFmtCopyArtifact, sourcePath, closeErr)
	}

	return written, nil
}
