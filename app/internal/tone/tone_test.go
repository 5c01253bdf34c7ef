package tone_test

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketconnect/catfart-gpt/app/domain/entities"
	"github.com/marketconnect/catfart-gpt/app/internal/tone"
)

func TestParamsFor(t *testing.T) {
	tests := []struct {
		tier entities.Tier
		freq float64
		dur  time.Duration
	}{
		{entities.TierLow, 80, 300 * time.Millisecond},
		{entities.TierMedium, 60, 600 * time.Millisecond},
		{entities.TierHigh, 40, 1200 * time.Millisecond},
	}
	for _, tt := range tests {
		p, ok := tone.ParamsFor(tt.tier)
		require.True(t, ok, tt.tier)
		assert.Equal(t, tt.freq, p.Frequency)
		assert.Equal(t, tt.dur, p.Duration)
	}

	_, ok := tone.ParamsFor(entities.TierNone)
	assert.False(t, ok, "none tier is silent")
}

func TestSamples_EnvelopeDecays(t *testing.T) {
	p, _ := tone.ParamsFor(entities.TierMedium)
	samples := tone.Samples(p)
	require.Len(t, samples, int(0.6*tone.SampleRate))

	peak := func(from, to int) float64 {
		m := 0.0
		for _, s := range samples[from:to] {
			m = math.Max(m, math.Abs(s))
		}
		return m
	}
	n := len(samples)
	head, tail := peak(0, n/10), peak(n-n/10, n)
	assert.LessOrEqual(t, head, 0.3+1e-9)
	assert.Less(t, tail, head/5, "amplitude should decay towards zero")
	assert.Less(t, tail, 0.02)
}

func TestRender_ValidWAV(t *testing.T) {
	b, err := tone.Render(entities.TierLow)
	require.NoError(t, err)
	require.Greater(t, len(b), 44)
	assert.Equal(t, "RIFF", string(b[0:4]))
	assert.Equal(t, "WAVE", string(b[8:12]))

	dec := wav.NewDecoder(bytes.NewReader(b))
	require.True(t, dec.IsValidFile())
	assert.EqualValues(t, tone.SampleRate, dec.SampleRate)
	assert.EqualValues(t, 1, dec.NumChans)
	assert.EqualValues(t, tone.BitDepth, dec.BitDepth)

	pcm, err := dec.FullPCMBuffer()
	require.NoError(t, err)
	assert.Len(t, pcm.Data, int(0.3*tone.SampleRate))
}

func TestRender_ChunkSizesPatched(t *testing.T) {
	b := mustRender(t, entities.TierMedium)

	assert.EqualValues(t, len(b)-8, binary.LittleEndian.Uint32(b[4:8]), "RIFF size")
	idx := bytes.Index(b, []byte("data"))
	require.Positive(t, idx)
	dataLen := binary.LittleEndian.Uint32(b[idx+4 : idx+8])
	assert.EqualValues(t, len(b)-idx-8, dataLen, "data chunk size")
}

func TestRender_Cached(t *testing.T) {
	a, err := tone.Render(entities.TierHigh)
	require.NoError(t, err)
	b, err := tone.Render(entities.TierHigh)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Greater(t, len(a), len(mustRender(t, entities.TierLow)), "high tone is longer")
}

func TestRender_None(t *testing.T) {
	_, err := tone.Render(entities.TierNone)
	assert.ErrorIs(t, err, entities.ErrInvalidTier)
}

func mustRender(t *testing.T, tier entities.Tier) []byte {
	t.Helper()
	b, err := tone.Render(tier)
	require.NoError(t, err)
	return b
}
