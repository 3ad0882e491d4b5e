package audio_test

import (
	"encoding/binary"
	"testing"

	"github.com/book-expert/tts-gateway/internal/tts/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTone() audio.Tone {
	return audio.Tone{
		Waveform:      audio.WAVEFORM_SINE,
		SampleRate:    audio.DEFAULT_SAMPLE_RATE,
		Duration:      2,
		BaseFrequency: 440,
		Modulation:    120,
		Amplitude:     audio.DEFAULT_AMPLITUDE,
	}
}

func TestTone_RenderProducesWAV(t *testing.T) {
	t.Parallel()

	tone := newTestTone()

	data, err := tone.Render()
	require.NoError(t, err)

	expectedData := audio.DEFAULT_SAMPLE_RATE * 2 * 2
	require.Len(t, data, audio.WAV_HEADER_SIZE+expectedData)

	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))
	assert.Equal(t, uint32(36+expectedData), binary.LittleEndian.Uint32(data[4:8]))
	assert.Equal(t, uint32(audio.DEFAULT_SAMPLE_RATE), binary.LittleEndian.Uint32(data[24:28]))
	assert.Equal(t, uint32(expectedData), binary.LittleEndian.Uint32(data[40:44]))
	assert.Equal(t, audio.FORMAT_WAV, audio.SniffFormat(data))
}

func TestTone_RenderIsDeterministic(t *testing.T) {
	t.Parallel()

	for _, waveform := range []audio.Waveform{audio.WAVEFORM_SINE, audio.WAVEFORM_SAWTOOTH, audio.WAVEFORM_TRIANGLE} {
		tone := newTestTone()
		tone.Waveform = waveform

		first, err := tone.Render()
		require.NoError(t, err)

		second, err := tone.Render()
		require.NoError(t, err)

		assert.Equal(t, first, second, "waveform %s must render identically", waveform)
	}
}

func TestTone_EnvelopeStartsSilent(t *testing.T) {
	t.Parallel()

	tone := newTestTone()

	data, err := tone.Render()
	require.NoError(t, err)

	firstSample := int16(binary.LittleEndian.Uint16(data[audio.WAV_HEADER_SIZE:]))
	assert.Equal(t, int16(0), firstSample)
}

func TestTone_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(tone *audio.Tone)
	}{
		{name: "zero sample rate", mutate: func(tone *audio.Tone) { tone.SampleRate = 0 }},
		{name: "huge sample rate", mutate: func(tone *audio.Tone) { tone.SampleRate = audio.MAX_SAMPLE_RATE + 1 }},
		{name: "zero duration", mutate: func(tone *audio.Tone) { tone.Duration = 0 }},
		{name: "negative frequency", mutate: func(tone *audio.Tone) { tone.BaseFrequency = -1 }},
		{name: "amplitude above one", mutate: func(tone *audio.Tone) { tone.Amplitude = 1.5 }},
		{name: "unknown waveform", mutate: func(tone *audio.Tone) { tone.Waveform = "square" }},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			tone := newTestTone()
			testCase.mutate(&tone)

			_, err := tone.Render()
			require.ErrorIs(t, err, audio.ErrInvalidTone)
		})
	}
}

func TestSniffFormat(t *testing.T) {
	t.Parallel()

	assert.Equal(t, audio.FORMAT_MP3, audio.SniffFormat([]byte("ID3\x03\x00")))
	assert.Equal(t, audio.FORMAT_MP3, audio.SniffFormat(nil))
	assert.Equal(t, audio.FORMAT_WAV, audio.SniffFormat(audio.EncodeWAV([]int16{1, 2}, 8000)))
	assert.Equal(t, ".wav", audio.FORMAT_WAV.Extension())
	assert.Equal(t, ".mp3", audio.FORMAT_MP3.Extension())
}
