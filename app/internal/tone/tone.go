// Package tone synthesizes the fallback sound of each tier: a short
// sawtooth whose pitch and volume both fall away exponentially.
package tone

import (
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/orcaman/writerseeker"

	"github.com/marketconnect/catfart-gpt/app/domain/entities"
)

const (
	SampleRate = 22050
	BitDepth   = 16

	startGain = 0.3
	endGain   = 0.01
	pcmFormat = 1
)

// Params are the base pitch and length of a tier's tone.
type Params struct {
	Frequency float64
	Duration  time.Duration
}

var params = map[entities.Tier]Params{
	entities.TierLow:    {Frequency: 80, Duration: 300 * time.Millisecond},
	entities.TierMedium: {Frequency: 60, Duration: 600 * time.Millisecond},
	entities.TierHigh:   {Frequency: 40, Duration: 1200 * time.Millisecond},
}

// ParamsFor returns the tone of tier. The none tier is silent.
func ParamsFor(tier entities.Tier) (Params, bool) {
	p, ok := params[tier]
	return p, ok
}

// Samples renders p as normalized samples in [-1, 1].
func Samples(p Params) []float64 {
	n := int(int64(p.Duration) * SampleRate / int64(time.Second))
	out := make([]float64, n)
	dur := p.Duration.Seconds()
	phase := 0.0
	for i := range out {
		t := float64(i) / SampleRate
		progress := t / dur
		freq := p.Frequency * math.Pow(0.5, progress)
		gain := startGain * math.Pow(endGain/startGain, progress)

		out[i] = (2*phase - 1) * gain
		phase += freq / SampleRate
		phase -= math.Floor(phase)
	}
	return out
}

var (
	cacheMu sync.Mutex
	cache   = map[entities.Tier][]byte{}
)

// Render returns the tier's tone as a mono 16-bit PCM WAV file.
func Render(tier entities.Tier) ([]byte, error) {
	p, ok := ParamsFor(tier)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no tone", entities.ErrInvalidTier, tier)
	}

	cacheMu.Lock()
	defer cacheMu.Unlock()
	if b, ok := cache[tier]; ok {
		return b, nil
	}

	b, err := Encode(Samples(p))
	if err != nil {
		return nil, err
	}
	cache[tier] = b
	return b, nil
}

// Encode writes normalized samples as a WAV file.
func Encode(samples []float64) ([]byte, error) {
	maxAmp := float64(int(1)<<(BitDepth-1) - 1)
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(math.Round(math.Max(-1, math.Min(1, s)) * maxAmp))
	}

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: SampleRate},
		Data:           data,
		SourceBitDepth: BitDepth,
	}

	// The encoder seeks back to patch chunk sizes once the data length is known.
	out := &writerseeker.WriterSeeker{}
	enc := wav.NewEncoder(out, SampleRate, BitDepth, 1, pcmFormat)
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalize wav: %w", err)
	}
	wavBytes, err := io.ReadAll(out.BytesReader())
	if err != nil {
		return nil, fmt.Errorf("read wav: %w", err)
	}
	return wavBytes, nil
}
