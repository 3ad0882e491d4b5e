package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/book-expert/tts-gateway/internal/artifacts"
	"github.com/book-expert/tts-gateway/internal/core"
	"github.com/book-expert/tts-gateway/internal/tts"
	"github.com/book-expert/tts-gateway/internal/tts/audio"
	"github.com/book-expert/tts-gateway/internal/tts/ttsutils"
	"github.com/book-expert/tts-gateway/internal/tts/voice"
)

// Input errors. All of them are reported with status 400.
var (
	ErrNoText            = errors.New("no text content provided")
	ErrUnsupportedUpload = errors.New("unsupported file type, upload a text file (.txt)")
	ErrInvalidLanguage   = errors.New("language must be one of auto, en, hi")
	ErrInvalidBody       = errors.New("request body could not be parsed")
	ErrUploadTooLarge    = errors.New("uploaded content exceeds the size limit")
)

const (
	defaultTestText = "This is a test to verify voice tones work properly."

	contentTypeJSON      = "application/json"
	contentTypeMultipart = "multipart/form-data"
	formFieldFile        = "file"

	msgGenerated        = "Audio generated successfully with %s!"
	msgTestCreated      = "Test audio created successfully!"
	msgFileDeleted      = "File deleted successfully"
	errAudioGeneration  = "Audio generation failed"
	errTestGeneration   = "Test audio generation failed"
	errInvalidFilename  = "Invalid filename"
	errFileNotFound     = "File not found"
	errNoText           = "Please provide text content"
	msgFmtNarrationFail = "Narration failed after %d of %d chunks"
	msgNarrationFailed  = "Narration failed"
	msgStorageFailed    = "Could not store the generated audio"
	suggestionRetry     = "Please try again with different text or voice"
	suggestionNoText    = "Enter text or upload a text file"
	statusOK            = "OK"
	logFmtProcessFailed = "Narration of %d chars failed: %v"
	logFmtTestFailed    = "Test synthesis failed via %s"
	logFmtStorageFailed = "Output directory operation failed: %v"
	logFmtDeleted       = "Deleted artifact %s"
)

var serviceFeatures = []string{
	"Short and long text support",
	"Multiple voice support",
	"Hindi and English processing",
	"Provider fallback with placeholder audio",
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	stats, err := s.deps.Store.Stats()
	if err != nil {
		s.logger.Error(logFmtStorageFailed, err)
		s.writeError(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})

		return
	}

	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  statusOK,
		Service: s.config.ServiceName,
		Outputs: OutputsInfo{
			Directory:      stats.Directory,
			FileCount:      stats.FileCount,
			TotalSize:      stats.TotalSize,
			TotalSizeHuman: ttsutils.FormatFileSize(stats.TotalSize),
		},
		Features:  serviceFeatures,
		Timestamp: timestamp(time.Now()),
	})
}

func (s *Server) handleVoices(w http.ResponseWriter, _ *http.Request) {
	catalog := s.deps.Catalog

	s.writeJSON(w, http.StatusOK, VoicesResponse{
		Success: true,
		Voices: VoiceGroups{
			English: nonNil(catalog.ByLanguage(core.LanguageEnglish)),
			Hindi:   nonNil(catalog.ByLanguage(core.LanguageHindi)),
			Special: []core.VoiceDescriptor{voice.AutoVoice},
		},
		TotalVoices: catalog.Len() + 1,
	})
}

func (s *Server) handleListFiles(w http.ResponseWriter, _ *http.Request) {
	files, err := s.deps.Store.List()
	if err != nil {
		s.logger.Error(logFmtStorageFailed, err)
		s.writeError(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})

		return
	}

	entries := make([]FileEntry, 0, len(files))

	for _, file := range files {
		entries = append(entries, FileEntry{
			Name:        file.Name,
			Path:        downloadURL(file.Name),
			Size:        file.Size,
			Created:     timestamp(file.Created),
			DownloadURL: downloadURL(file.Name),
		})
	}

	s.writeJSON(w, http.StatusOK, FilesResponse{Success: true, Files: entries, TotalFiles: len(entries)})
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("filename")

	err := s.deps.Store.Delete(name)

	switch {
	case err == nil:
		s.logger.Info(logFmtDeleted, name)
		s.writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: msgFileDeleted})
	case errors.Is(err, artifacts.ErrInvalidName):
		s.writeError(w, http.StatusBadRequest, ErrorResponse{Error: errInvalidFilename})
	case errors.Is(err, artifacts.ErrNotFound):
		s.writeError(w, http.StatusNotFound, ErrorResponse{Error: errFileNotFound})
	default:
		s.logger.Error(logFmtStorageFailed, err)
		s.writeError(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	request, err := s.readRequest(w, r)
	if err != nil {
		s.writeInputError(w, err)

		return
	}

	if strings.TrimSpace(request.Text) == "" {
		s.writeInputError(w, ErrNoText)

		return
	}

	result, err := s.deps.Narrator.Run(r.Context(), request.Text, request.options())
	if errors.Is(err, tts.ErrTextEmpty) {
		s.writeInputError(w, ErrNoText)

		return
	}

	if err != nil {
		s.logger.Error(logFmtProcessFailed, len(request.Text), err)
		s.writeError(w, http.StatusInternalServerError, ErrorResponse{
			Error:      errAudioGeneration,
			Message:    narrationFailureMessage(err),
			Suggestion: suggestionRetry,
		})

		return
	}

	s.writeJSON(w, http.StatusOK, ProcessResponse{
		Success:           true,
		Message:           fmt.Sprintf(msgGenerated, result.VoiceInfo.Voice),
		DownloadURL:       downloadURL(result.FileName),
		FileName:          result.FileName,
		VoiceInfo:         result.VoiceInfo,
		TextLength:        result.TextLength,
		FileSize:          result.FileSize,
		FileSizeHuman:     ttsutils.FormatFileSize(result.FileSize),
		ChunksProcessed:   result.ChunksProcessed,
		TotalChunks:       result.TotalChunks,
		SuccessRate:       result.SuccessRate(),
		EstimatedDuration: ttsutils.FormatEstimatedDuration(result.FileSize),
		Timestamp:         timestamp(time.Now()),
	})
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	request, err := s.readRequest(w, r)
	if err != nil {
		s.writeInputError(w, err)

		return
	}

	if strings.TrimSpace(request.Text) == "" {
		request.Text = defaultTestText
	}

	synthesis := s.deps.Generator.GenerateAudio(r.Context(), request.Text, request.options())
	if !synthesis.Success {
		s.logger.Error(logFmtTestFailed, synthesis.Provider)
		s.writeError(w, http.StatusInternalServerError, ErrorResponse{
			Error:   errTestGeneration,
			Message: "no provider produced audio",
		})

		return
	}

	name := ttsutils.NewArtifactName(ttsutils.PrefixTest, audio.SniffFormat(synthesis.Audio).Extension())

	size, err := s.deps.Store.Write(name, synthesis.Audio)
	if err != nil {
		s.logger.Error(logFmtStorageFailed, err)
		s.writeError(w, http.StatusInternalServerError, ErrorResponse{Error: errTestGeneration, Message: msgStorageFailed})

		return
	}

	s.writeJSON(w, http.StatusOK, TestResponse{
		Success:     true,
		Message:     msgTestCreated,
		DownloadURL: downloadURL(name),
		FileName:    name,
		FileSize:    size,
		TestText:    request.Text,
		VoiceUsed:   synthesis.Voice,
		Service:     synthesis.Service,
		Provider:    synthesis.Provider,
		Language:    synthesis.Language,
	})
}

func (s *Server) writeInputError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, ErrUploadTooLarge) {
		status = http.StatusRequestEntityTooLarge
	}

	response := ErrorResponse{Error: err.Error()}
	if errors.Is(err, ErrNoText) {
		response.Error = errNoText
		response.Suggestion = suggestionNoText
	}

	s.writeError(w, status, response)
}

// readRequest extracts text and options from a JSON, multipart or urlencoded
// body. A multipart "file" part replaces the text field and must be plain text.
func (s *Server) readRequest(w http.ResponseWriter, r *http.Request) (ProcessRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)

	var request ProcessRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case contentTypeJSON:
		decodeErr := json.NewDecoder(r.Body).Decode(&request)
		if decodeErr != nil && !errors.Is(decodeErr, io.EOF) {
			return request, classifyBodyError(decodeErr)
		}
	case contentTypeMultipart:
		parseErr := r.ParseMultipartForm(s.config.MaxUploadBytes)
		if parseErr != nil {
			return request, classifyBodyError(parseErr)
		}

		request = formRequest(r)

		uploaded, found, uploadErr := readUpload(r)
		if uploadErr != nil {
			return request, uploadErr
		}

		if found {
			request.Text = uploaded
		}
	default:
		parseErr := r.ParseForm()
		if parseErr != nil {
			return request, classifyBodyError(parseErr)
		}

		request = formRequest(r)
	}

	return request, validateLanguage(request.Language)
}

func formRequest(r *http.Request) ProcessRequest {
	return ProcessRequest{
		Text:     r.FormValue("text"),
		Voice:    r.FormValue("voice"),
		Language: r.FormValue("language"),
	}
}

func readUpload(r *http.Request) (string, bool, error) {
	file, header, err := r.FormFile(formFieldFile)
	if errors.Is(err, http.ErrMissingFile) {
		return "", false, nil
	}

	if err != nil {
		return "", false, classifyBodyError(err)
	}
	defer file.Close()

	if !ttsutils.IsTextUpload(header.Filename, header.Header.Get("Content-Type")) {
		return "", false, ErrUnsupportedUpload
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return "", false, classifyBodyError(err)
	}

	return string(data), true, nil
}

func classifyBodyError(err error) error {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return fmt.Errorf("%w: %d bytes", ErrUploadTooLarge, maxBytesErr.Limit)
	}

	return fmt.Errorf("%w: %w", ErrInvalidBody, err)
}

func validateLanguage(language string) error {
	switch language {
	case "", core.LanguageAuto, core.LanguageEnglish, core.LanguageHindi:
		return nil
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidLanguage, language)
	}
}

func (r ProcessRequest) options() core.SynthesisOptions {
	return core.SynthesisOptions{Voice: r.Voice, Language: r.Language}.WithDefaults()
}

func nonNil(voices []core.VoiceDescriptor) []core.VoiceDescriptor {
	if voices == nil {
		return []core.VoiceDescriptor{}
	}

	return voices
}

// narrationFailureMessage reports chunk progress only; the full error stays in the log.
func narrationFailureMessage(err error) string {
	var pipelineErr *tts.PipelineError
	if errors.As(err, &pipelineErr) {
		return fmt.Sprintf(msgFmtNarrationFail, pipelineErr.ChunksProcessed, pipelineErr.TotalChunks)
	}

	return msgNarrationFailed
}
