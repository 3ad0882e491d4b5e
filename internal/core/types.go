package core

// Language tags understood by the gateway.
const (
	LanguageAuto    = "auto"
	LanguageEnglish = "en"
	LanguageHindi   = "hi"
)

// VoiceAuto is the sentinel voice id that is resolved at request time.
const VoiceAuto = "auto"

// Voice genders.
const (
	GenderFemale  = "female"
	GenderMale    = "male"
	GenderNeutral = "neutral"
)

// Provider tags.
const (
	ProviderGoogle   = "google"
	ProviderVoiceRSS = "voicerss"
	ProviderFallback = "fallback"
	ProviderEcho     = "ultimate"
	ProviderAuto     = "auto"
)

// TextChunk is one ordered slice of the input text.
type TextChunk struct {
	Index   int
	Content string
}

// VoiceDescriptor describes one entry of the voice catalog.
type VoiceDescriptor struct {
	ID       string `json:"id"       yaml:"id"`
	Name     string `json:"name"     yaml:"name"`
	Language string `json:"language" yaml:"language"`
	Gender   string `json:"gender"   yaml:"gender"`
	Provider string `json:"provider" yaml:"provider"`
}

// SynthesisOptions carries the caller's voice and language selection.
type SynthesisOptions struct {
	Voice    string `json:"voice"`
	Language string `json:"language"`
}

// WithDefaults returns a copy with empty selections replaced by "auto".
func (o SynthesisOptions) WithDefaults() SynthesisOptions {
	if o.Voice == "" {
		o.Voice = VoiceAuto
	}

	if o.Language == "" {
		o.Language = LanguageAuto
	}

	return o
}

// SynthesisResult is the outcome of a single synthesis attempt.
type SynthesisResult struct {
	Audio    []byte
	Voice    string
	Language string
	Service  string
	Provider string
	Success  bool
}

// VoiceInfo returns the labels reported to callers for this result.
func (r SynthesisResult) VoiceInfo() VoiceInfo {
	return VoiceInfo{
		Voice:    r.Voice,
		Language: r.Language,
		Service:  r.Service,
		Provider: r.Provider,
	}
}

// VoiceInfo holds the resolved voice, language and service labels.
type VoiceInfo struct {
	Voice    string `json:"voice"`
	Language string `json:"language"`
	Service  string `json:"service"`
	Provider string `json:"provider"`
}

// PipelineResult describes a completed narration.
type PipelineResult struct {
	FilePath        string
	FileName        string
	FileSize        int64
	ChunksProcessed int
	TotalChunks     int
	TextLength      int
	VoiceInfo       VoiceInfo
}

// SuccessRate returns the percentage of chunks synthesized, rounded to the
// nearest integer.
func (r PipelineResult) SuccessRate() int {
	if r.TotalChunks == 0 {
		return 0
	}

	return (r.ChunksProcessed*200 + r.TotalChunks) / (r.TotalChunks * 2)
}
