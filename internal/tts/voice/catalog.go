// Package voice holds the immutable voice catalog and the resolution of a
// caller's voice/language selection to a concrete voice.
package voice

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/book-expert/tts-gateway/internal/core"
	"gopkg.in/yaml.v3"
)

//go:embed voices.yaml
var defaultCatalogYAML []byte

// Static errors.
var (
	ErrEmptyCatalog   = errors.New("voice catalog has no voices")
	ErrDuplicateVoice = errors.New("duplicate voice id")
	ErrInvalidVoice   = errors.New("invalid voice entry")
)

// AutoVoice is the descriptor advertised for the "auto" selection. It is never
// part of the catalog and never returned by Resolve.
var AutoVoice = core.VoiceDescriptor{
	ID:       core.VoiceAuto,
	Name:     "Auto Select (Recommended)",
	Language: core.LanguageAuto,
	Gender:   "auto",
	Provider: core.ProviderAuto,
}

type catalogFile struct {
	Defaults map[string]string      `yaml:"defaults"`
	Voices   []core.VoiceDescriptor `yaml:"voices"`
}

// Catalog is the read-only set of voices known to the gateway. It is built once
// at startup and shared by reference.
type Catalog struct {
	voices   []core.VoiceDescriptor
	byID     map[string]int
	defaults map[string]string
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	catalog, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded voice catalog is invalid: %v", err))
	}

	return catalog
}

// LoadCatalog reads a YAML catalog from path. An empty path yields the built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read voice catalog '%s': %w", path, err)
	}

	catalog, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse voice catalog '%s': %w", path, err)
	}

	return catalog, nil
}

// ParseCatalog builds a catalog from YAML data.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile

	err := yaml.Unmarshal(data, &file)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal catalog YAML: %w", err)
	}

	return NewCatalog(file.Voices, file.Defaults)
}

// NewCatalog validates and copies the given voices. defaults maps a language tag
// to its canonical voice id.
func NewCatalog(voices []core.VoiceDescriptor, defaults map[string]string) (*Catalog, error) {
	if len(voices) == 0 {
		return nil, ErrEmptyCatalog
	}

	catalog := &Catalog{
		voices:   make([]core.VoiceDescriptor, len(voices)),
		byID:     make(map[string]int, len(voices)),
		defaults: make(map[string]string, len(defaults)),
	}

	copy(catalog.voices, voices)

	for index, descriptor := range catalog.voices {
		if descriptor.ID == "" || descriptor.ID == core.VoiceAuto || descriptor.Language == "" {
			return nil, fmt.Errorf("%w at position %d: %+v", ErrInvalidVoice, index, descriptor)
		}

		if _, exists := catalog.byID[descriptor.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateVoice, descriptor.ID)
		}

		catalog.byID[descriptor.ID] = index
	}

	for language, id := range defaults {
		catalog.defaults[language] = id
	}

	return catalog, nil
}

// Voices returns a copy of all catalog entries in catalog order.
func (c *Catalog) Voices() []core.VoiceDescriptor {
	voices := make([]core.VoiceDescriptor, len(c.voices))
	copy(voices, c.voices)

	return voices
}

// Lookup returns the voice with the given id.
func (c *Catalog) Lookup(id string) (core.VoiceDescriptor, bool) {
	index, ok := c.byID[id]
	if !ok {
		return core.VoiceDescriptor{}, false
	}

	return c.voices[index], true
}

// ByLanguage returns the voices tagged with language, in catalog order.
func (c *Catalog) ByLanguage(language string) []core.VoiceDescriptor {
	var voices []core.VoiceDescriptor

	for _, descriptor := range c.voices {
		if descriptor.Language == language {
			voices = append(voices, descriptor)
		}
	}

	return voices
}

// Len returns the number of voices.
func (c *Catalog) Len() int {
	return len(c.voices)
}

func (c *Catalog) canonical(language string) (core.VoiceDescriptor, bool) {
	id, ok := c.defaults[language]
	if !ok {
		return core.VoiceDescriptor{}, false
	}

	return c.Lookup(id)
}
