package text

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/book-expert/tts-gateway/internal/core"
)

// DefaultChunkSize is the provider-sized chunk limit, in characters.
const DefaultChunkSize = 200

// Chunk splits text into ordered pieces of at most maxSize characters.
//
// Text that already fits is returned unchanged as a single chunk. Longer text is
// packed greedily sentence by sentence; sentences longer than maxSize are packed
// word by word. Words are never split, so a single word longer than maxSize
// becomes its own oversized chunk. A running chunk that reaches maxSize is closed
// immediately.
func Chunk(text string, maxSize int) []core.TextChunk {
	if maxSize <= 0 {
		maxSize = DefaultChunkSize
	}

	if text == "" || length(text) <= maxSize {
		return []core.TextChunk{{Index: 0, Content: text}}
	}

	packer := chunkPacker{maxSize: maxSize}

	for _, sentence := range SplitSentences(text) {
		packer.addSentence(strings.TrimSpace(sentence))
	}

	return packer.finish()
}

// SplitSentences splits text after '.', '!' or '?' when followed by whitespace.
// The whitespace run between sentences is dropped.
func SplitSentences(text string) []string {
	var sentences []string

	start := 0
	previous := rune(0)

	for index, char := range text {
		if unicode.IsSpace(char) && isSentenceTerminal(previous) {
			sentences = append(sentences, text[start:index])
			start = skipSpaces(text, index)
		}

		previous = char
	}

	if start < len(text) {
		sentences = append(sentences, text[start:])
	}

	return sentences
}

type chunkPacker struct {
	chunks  []string
	current string
	maxSize int
}

func (p *chunkPacker) addSentence(sentence string) {
	if sentence == "" {
		return
	}

	if p.current != "" && length(p.current)+length(sentence)+1 > p.maxSize {
		p.flush()
	}

	if length(sentence) > p.maxSize {
		p.addLongSentence(sentence)
	} else {
		p.current = join(p.current, sentence)
	}

	if length(p.current) >= p.maxSize {
		p.flush()
	}
}

// addLongSentence packs an oversized sentence word by word. Full word groups are
// emitted directly and the remainder joins the running chunk when it fits.
func (p *chunkPacker) addLongSentence(sentence string) {
	wordChunk := ""

	for _, word := range strings.Fields(sentence) {
		if wordChunk != "" && length(wordChunk)+1+length(word) > p.maxSize {
			p.chunks = append(p.chunks, wordChunk)
			wordChunk = word

			continue
		}

		wordChunk = join(wordChunk, word)
	}

	if wordChunk == "" {
		return
	}

	if p.current != "" && length(p.current)+length(wordChunk)+1 > p.maxSize {
		p.chunks = append(p.chunks, p.current)
		p.current = wordChunk

		return
	}

	p.current = join(p.current, wordChunk)
}

func (p *chunkPacker) flush() {
	if p.current != "" {
		p.chunks = append(p.chunks, p.current)
	}

	p.current = ""
}

func (p *chunkPacker) finish() []core.TextChunk {
	if last := strings.TrimSpace(p.current); last != "" {
		p.chunks = append(p.chunks, last)
	}

	result := make([]core.TextChunk, 0, len(p.chunks))
	for index, content := range p.chunks {
		result = append(result, core.TextChunk{Index: index, Content: content})
	}

	return result
}

func join(current, next string) string {
	if current == "" {
		return next
	}

	return current + " " + next
}

// length counts characters, not bytes, so Devanagari text is sized correctly.
func length(s string) int {
	return utf8.RuneCountInString(s)
}

func isSentenceTerminal(char rune) bool {
	return char == '.' || char == '!' || char == '?'
}

func skipSpaces(text string, from int) int {
	for from < len(text) {
		char, size := utf8.DecodeRuneInString(text[from:])
		if !unicode.IsSpace(char) {
			break
		}

		from += size
	}

	return from
}
