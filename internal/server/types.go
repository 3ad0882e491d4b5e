package server

import (
	"github.com/book-expert/tts-gateway/internal/core"
)

// ProcessRequest is the JSON body accepted by POST /api/process and /api/test.
type ProcessRequest struct {
	Text     string `json:"text"`
	Voice    string `json:"voice,omitempty"`
	Language string `json:"language,omitempty"`
}

// ProcessResponse reports a finished narration.
type ProcessResponse struct {
	Success           bool           `json:"success"`
	Message           string         `json:"message"`
	DownloadURL       string         `json:"downloadUrl"`
	FileName          string         `json:"fileName"`
	VoiceInfo         core.VoiceInfo `json:"voiceInfo"`
	TextLength        int            `json:"textLength"`
	FileSize          int64          `json:"fileSize"`
	FileSizeHuman     string         `json:"fileSizeHuman"`
	ChunksProcessed   int            `json:"chunksProcessed"`
	TotalChunks       int            `json:"totalChunks"`
	SuccessRate       int            `json:"successRate"`
	EstimatedDuration string         `json:"estimatedDuration"`
	Timestamp         string         `json:"timestamp"`
}

// TestResponse reports a sample synthesized by POST /api/test.
type TestResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	DownloadURL string `json:"downloadUrl"`
	FileName    string `json:"fileName"`
	FileSize    int64  `json:"fileSize"`
	TestText    string `json:"testText"`
	VoiceUsed   string `json:"voiceUsed"`
	Service     string `json:"service"`
	Provider    string `json:"provider"`
	Language    string `json:"language"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Success    bool   `json:"success"`
	Error      string `json:"error"`
	Message    string `json:"message,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// OutputsInfo summarizes the output directory.
type OutputsInfo struct {
	Directory      string `json:"directory"`
	FileCount      int    `json:"fileCount"`
	TotalSize      int64  `json:"totalSize"`
	TotalSizeHuman string `json:"totalSizeHuman"`
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status    string      `json:"status"`
	Service   string      `json:"service"`
	Outputs   OutputsInfo `json:"outputs"`
	Features  []string    `json:"features"`
	Timestamp string      `json:"timestamp"`
}

// VoiceGroups splits the catalog by language.
type VoiceGroups struct {
	English []core.VoiceDescriptor `json:"english"`
	Hindi   []core.VoiceDescriptor `json:"hindi"`
	Special []core.VoiceDescriptor `json:"special"`
}

// VoicesResponse is returned by GET /api/voices.
type VoicesResponse struct {
	Success     bool        `json:"success"`
	Voices      VoiceGroups `json:"voices"`
	TotalVoices int         `json:"totalVoices"`
}

// FileEntry describes one output artifact.
type FileEntry struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Size        int64  `json:"size"`
	Created     string `json:"created"`
	DownloadURL string `json:"downloadUrl"`
}

// FilesResponse is returned by GET /api/files.
type FilesResponse struct {
	Success    bool        `json:"success"`
	Files      []FileEntry `json:"files"`
	TotalFiles int         `json:"totalFiles"`
}

// MessageResponse is a generic success acknowledgement.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
