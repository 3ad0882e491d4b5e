// Package core defines the core business types and interfaces for the TTS gateway.
package core

import "context"

// ObjectStore defines the interface for interacting with a key-value blob store.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
}

// Synthesizer is one link of the provider fallback chain: a remote adapter or
// the local placeholder generator. A non-nil error means the attempt failed and
// the result must be ignored.
type Synthesizer interface {
	Name() string
	Synthesize(ctx context.Context, text, language string, voice VoiceDescriptor) (*SynthesisResult, error)
}

// AudioGenerator turns one piece of text into audio. Implementations always
// return a result; Success reports whether it carries playable audio.
type AudioGenerator interface {
	GenerateAudio(ctx context.Context, text string, opts SynthesisOptions) SynthesisResult
}

// Narrator converts arbitrary-length text into a single output artifact.
type Narrator interface {
	Run(ctx context.Context, text string, opts SynthesisOptions) (*PipelineResult, error)
}
