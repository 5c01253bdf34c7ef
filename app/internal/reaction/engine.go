// Package reaction drives the animated cat. One engine owns at most one
// repeating timer; every tier change cancels the running timer before the
// next one starts.
package reaction

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/marketconnect/catfart-gpt/app/domain/entities"
	"github.com/marketconnect/catfart-gpt/app/internal/tone"
)

const (
	DefaultInterval = 800 * time.Millisecond
	CustomVolume    = 0.7
)

// Presenter receives the cues. Implementations must not block.
type Presenter interface {
	ShowFrame(entities.FrameEvent)
	PlaySound(entities.SoundEvent)
}

// Assets resolves the user's overrides.
type Assets interface {
	CustomFrames(tier entities.Tier) ([3]string, bool)
	CustomSound(tier entities.Tier) (string, bool)
}

// Ticker is the subset of time.Ticker the engine uses.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

func newTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// FrameURL is where the generated frame index of tier is served.
func FrameURL(tier entities.Tier, index int) string {
	return fmt.Sprintf("/api/frames/%s/%d.svg", tier, index)
}

// ToneURL is where the generated sound of tier is served.
func ToneURL(tier entities.Tier) string {
	return fmt.Sprintf("/api/tones/%s.wav", tier)
}

// Engine is the animation state machine.
type Engine struct {
	presenter Presenter
	assets    Assets
	interval  time.Duration
	newTicker func(time.Duration) Ticker

	mu         sync.Mutex
	tier       entities.Tier
	index      int
	frames     [3]string
	custom     bool
	generation uint64
	ticker     Ticker
	done       chan struct{}
	wg         sync.WaitGroup
}

// NewEngine creates an idle engine. A non-positive interval uses DefaultInterval.
func NewEngine(presenter Presenter, assets Assets, interval time.Duration) *Engine {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Engine{
		presenter: presenter,
		assets:    assets,
		interval:  interval,
		newTicker: newTimeTicker,
		tier:      entities.TierNone,
	}
}

// SetTier switches the animation to tier.
func (e *Engine) SetTier(tier entities.Tier) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.startLocked(tier)
}

// Restart re-selects the frames and sound of the current tier.
func (e *Engine) Restart() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.startLocked(e.tier)
}

// Current returns the tier and frame index being shown.
func (e *Engine) Current() (entities.Tier, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tier, e.index
}

// ActiveTimers returns the number of running timers, 0 or 1.
func (e *Engine) ActiveTimers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ticker == nil {
		return 0
	}
	return 1
}

// Stop cancels the timer and waits for its goroutine to exit.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.cancelLocked()
	e.mu.Unlock()
	e.wg.Wait()
}

func (e *Engine) startLocked(tier entities.Tier) {
	e.cancelLocked()

	e.tier = tier
	e.index = 0
	e.frames, e.custom = e.framesFor(tier)
	e.showLocked()

	if !tier.Reactive() {
		slog.Debug("animation idle", "tier", tier)
		return
	}
	e.playLocked()

	e.ticker = e.newTicker(e.interval)
	e.done = make(chan struct{})
	e.wg.Add(1)
	go e.run(e.generation, e.ticker, e.done)
	slog.Debug("animation started", "tier", tier, "custom", e.custom)
}

func (e *Engine) cancelLocked() {
	e.generation++
	if e.ticker == nil {
		return
	}
	e.ticker.Stop()
	close(e.done)
	e.ticker = nil
	e.done = nil
}

func (e *Engine) run(gen uint64, ticker Ticker, done <-chan struct{}) {
	defer e.wg.Done()
	for {
		select {
		case <-done:
			return
		case <-ticker.C():
			e.advance(gen)
		}
	}
}

// advance moves to the next frame. Ticks from a cancelled timer are dropped.
func (e *Engine) advance(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.generation {
		return
	}
	e.index = (e.index + 1) % len(e.frames)
	e.showLocked()
	if e.index == 1 {
		e.playLocked()
	}
}

func (e *Engine) framesFor(tier entities.Tier) ([3]string, bool) {
	if tier.Reactive() && e.assets != nil {
		if frames, ok := e.assets.CustomFrames(tier); ok {
			return frames, true
		}
	}
	var frames [3]string
	for i := range frames {
		frames[i] = FrameURL(tier, i)
	}
	return frames, false
}

func (e *Engine) showLocked() {
	alt := fmt.Sprintf("Generated farting cat - %s token usage", e.tier)
	if e.custom {
		alt = fmt.Sprintf("Custom farting animation - %s token usage", e.tier)
	}
	e.presenter.ShowFrame(entities.FrameEvent{
		Tier:   e.tier,
		Index:  e.index,
		Src:    e.frames[e.index],
		Alt:    alt,
		Custom: e.custom,
	})
}

func (e *Engine) playLocked() {
	if ev, ok := SoundFor(e.tier, e.assets); ok {
		e.presenter.PlaySound(ev)
	}
}

// SoundFor picks the custom sound of tier, falling back to the generated
// tone. The none tier is silent.
func SoundFor(tier entities.Tier, assets Assets) (entities.SoundEvent, bool) {
	if !tier.Reactive() {
		return entities.SoundEvent{}, false
	}
	if assets != nil {
		if src, ok := assets.CustomSound(tier); ok {
			return entities.SoundEvent{Tier: tier, Src: src, Volume: CustomVolume}, true
		}
	}
	p, _ := tone.ParamsFor(tier)
	return entities.SoundEvent{
		Tier:       tier,
		Src:        ToneURL(tier),
		Volume:     1,
		Generated:  true,
		Frequency:  p.Frequency,
		DurationMs: int(p.Duration / time.Millisecond),
	}, true
}
