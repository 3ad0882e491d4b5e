// Package audio provides the audio primitives used by the gateway: WAV encoding,
// placeholder tone rendering and payload format detection.
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Constants for placeholder audio settings.
const (
	DEFAULT_SAMPLE_RATE = 22050 // Placeholder tones are rendered mono at this rate.
	DEFAULT_BIT_DEPTH   = 16
	DEFAULT_CHANNELS    = 1
	DEFAULT_AMPLITUDE   = 0.15
)

// Constants for quality validation limits.
const (
	MAX_SAMPLE_RATE    = 192000
	MAX_DURATION       = 60.0
	MAX_FREQUENCY      = 20000.0
	WAV_HEADER_SIZE    = 44
	bytesPerSample     = DEFAULT_BIT_DEPTH / 8
	fullScale          = 32767.0
	envelopeRampFactor = 2.0
	vibratoRate        = 2.0
)

// Constants for error messages and formats.
const (
	ERR_FMT_SAMPLE_RATE_RANGE = "%w: sample rate must be between 1 and %d Hz"
	ERR_FMT_DURATION_RANGE    = "%w: duration must be between 0 and %.0f seconds"
	ERR_FMT_FREQUENCY_RANGE   = "%w: base frequency must be between 0 and %.0f Hz"
	ERR_FMT_AMPLITUDE_RANGE   = "%w: amplitude must be between 0.0 and 1.0"
	ERR_FMT_WAVEFORM          = "%w: unknown waveform %q"
)

// Common errors for the audio package.
var (
	ErrInvalidTone = errors.New("invalid tone settings")
)

// Format represents supported audio container formats.
type Format string

const (
	FORMAT_WAV Format = "wav"
	FORMAT_MP3 Format = "mp3"
)

// Extension returns the file extension for the format, including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// SniffFormat detects the container of an audio payload. Anything that is not a
// RIFF/WAVE file is treated as MP3, the format every remote provider returns.
func SniffFormat(data []byte) Format {
	if len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")) {
		return FORMAT_WAV
	}

	return FORMAT_MP3
}

// Waveform is the oscillator shape of a placeholder tone.
type Waveform string

const (
	WAVEFORM_SINE     Waveform = "sine"
	WAVEFORM_SAWTOOTH Waveform = "sawtooth"
	WAVEFORM_TRIANGLE Waveform = "triangle"
)

// Tone describes a frequency-modulated placeholder signal.
type Tone struct {
	Waveform      Waveform
	SampleRate    int
	Duration      float64 // seconds
	BaseFrequency float64 // Hz
	Modulation    float64 // Hz of slow vibrato around the base frequency
	Amplitude     float64 // fraction of full scale
}

// Validate checks if the tone settings are within reasonable bounds.
func (t *Tone) Validate() error {
	if t.SampleRate <= 0 || t.SampleRate > MAX_SAMPLE_RATE {
		return fmt.Errorf(ERR_FMT_SAMPLE_RATE_RANGE, ErrInvalidTone, MAX_SAMPLE_RATE)
	}

	if t.Duration <= 0 || t.Duration > MAX_DURATION {
		return fmt.Errorf(ERR_FMT_DURATION_RANGE, ErrInvalidTone, MAX_DURATION)
	}

	if t.BaseFrequency <= 0 || t.BaseFrequency > MAX_FREQUENCY {
		return fmt.Errorf(ERR_FMT_FREQUENCY_RANGE, ErrInvalidTone, MAX_FREQUENCY)
	}

	if t.Amplitude < 0 || t.Amplitude > 1 {
		return fmt.Errorf(ERR_FMT_AMPLITUDE_RANGE, ErrInvalidTone)
	}

	switch t.Waveform {
	case WAVEFORM_SINE, WAVEFORM_SAWTOOTH, WAVEFORM_TRIANGLE:
		return nil
	default:
		return fmt.Errorf(ERR_FMT_WAVEFORM, ErrInvalidTone, t.Waveform)
	}
}

// Render produces the tone as a mono 16-bit PCM WAV file. The output depends only
// on the tone settings.
func (t *Tone) Render() ([]byte, error) {
	validateErr := t.Validate()
	if validateErr != nil {
		return nil, validateErr
	}

	numSamples := int(float64(t.SampleRate) * t.Duration)
	samples := make([]int16, numSamples)

	for i := range samples {
		samples[i] = t.sampleAt(float64(i) / float64(t.SampleRate))
	}

	return EncodeWAV(samples, t.SampleRate), nil
}

func (t *Tone) sampleAt(seconds float64) int16 {
	frequency := t.BaseFrequency + math.Sin(seconds*vibratoRate)*t.Modulation
	envelope := math.Min(1, seconds*envelopeRampFactor) *
		math.Min(1, (t.Duration-seconds)*envelopeRampFactor)
	cycle := math.Mod(seconds*frequency, 1)

	var value float64

	switch t.Waveform {
	case WAVEFORM_SAWTOOTH:
		value = 2*cycle - 1
	case WAVEFORM_TRIANGLE:
		value = 2*math.Abs(2*cycle-1) - 1
	default:
		value = math.Sin(2 * math.Pi * frequency * seconds)
	}

	return int16(value * fullScale * t.Amplitude * envelope)
}

// EncodeWAV wraps mono 16-bit samples in a canonical 44-byte RIFF header.
func EncodeWAV(samples []int16, sampleRate int) []byte {
	dataSize := len(samples) * bytesPerSample

	buffer := bytes.NewBuffer(make([]byte, 0, WAV_HEADER_SIZE+dataSize))

	buffer.WriteString("RIFF")
	writeLE(buffer, uint32(36+dataSize))
	buffer.WriteString("WAVE")
	buffer.WriteString("fmt ")
	writeLE(buffer, uint32(16))
	writeLE(buffer, uint16(1))
	writeLE(buffer, uint16(DEFAULT_CHANNELS))
	writeLE(buffer, uint32(sampleRate))
	writeLE(buffer, uint32(sampleRate*DEFAULT_CHANNELS*bytesPerSample))
	writeLE(buffer, uint16(DEFAULT_CHANNELS*bytesPerSample))
	writeLE(buffer, uint16(DEFAULT_BIT_DEPTH))
	buffer.WriteString("data")
	writeLE(buffer, uint32(dataSize))
	writeLE(buffer, samples)

	return buffer.Bytes()
}

func writeLE(buffer *bytes.Buffer, value any) {
	// bytes.Buffer writes never fail.
	_ = binary.Write(buffer, binary.LittleEndian, value)
}
