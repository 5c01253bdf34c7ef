package controller_test

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketconnect/catfart-gpt/app/domain/entities"
	"github.com/marketconnect/catfart-gpt/app/internal/controller"
	"github.com/marketconnect/catfart-gpt/app/internal/media"
	"github.com/marketconnect/catfart-gpt/app/internal/repository"
	"github.com/marketconnect/catfart-gpt/app/internal/session"
)

const validKey = "sk-test0123456789abcdef"

type recordingFeed struct {
	mu       sync.Mutex
	frames   []entities.FrameEvent
	sounds   []entities.SoundEvent
	loading  []bool
	statuses []controller.Status
}

func (f *recordingFeed) ShowFrame(ev entities.FrameEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, ev)
}

func (f *recordingFeed) PlaySound(ev entities.SoundEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sounds = append(f.sounds, ev)
}

func (f *recordingFeed) SetLoading(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loading = append(f.loading, on)
}

func (f *recordingFeed) PublishStatus(status any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status.(controller.Status))
}

func (f *recordingFeed) lastFrame() entities.FrameEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frames[len(f.frames)-1]
}

func (f *recordingFeed) soundCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sounds)
}

func (f *recordingFeed) lastStatus() controller.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses[len(f.statuses)-1]
}

type scriptedCompleter struct {
	tokens []int
	err    error
	calls  int
}

func (s *scriptedCompleter) Complete(ctx context.Context, apiKey string, history []entities.Message) (*entities.Completion, error) {
	if s.err != nil {
		return nil, s.err
	}
	n := s.tokens[s.calls]
	s.calls++
	return &entities.Completion{
		Message: entities.Message{Role: entities.RoleAssistant, Content: "reply " + strconv.Itoa(s.calls)},
		Usage:   entities.TokenUsage{TotalTokens: n},
	}, nil
}

// gatedCompleter holds every call until release is closed.
type gatedCompleter struct {
	release chan struct{}
	tokens  int
}

func (g *gatedCompleter) Complete(ctx context.Context, apiKey string, history []entities.Message) (*entities.Completion, error) {
	<-g.release
	return &entities.Completion{
		Message: entities.Message{Role: entities.RoleAssistant, Content: "ok"},
		Usage:   entities.TokenUsage{TotalTokens: g.tokens},
	}, nil
}

type fixture struct {
	ctrl      *controller.Controller
	feed      *recordingFeed
	repo      *repository.MemoryRepository
	completer *scriptedCompleter
}

func newFixture(t *testing.T, storedTokens int, key string) *fixture {
	t.Helper()
	repo := repository.NewMemoryRepository()
	if storedTokens > 0 {
		require.NoError(t, repo.Set(repository.KeyTotalTokens, strconv.Itoa(storedTokens)))
	}
	sess := session.NewSessionManager(repo, key)
	require.NoError(t, sess.Load())
	store := media.NewStore(repo, "/media/", 1<<20)
	require.NoError(t, store.Load())

	f := &fixture{feed: &recordingFeed{}, repo: repo, completer: &scriptedCompleter{}}
	// An hour-long interval keeps the timer from firing during a test.
	f.ctrl = controller.New(sess, f.completer, store, f.feed, time.Hour)
	t.Cleanup(f.ctrl.Close)
	return f
}

func png() media.Upload {
	return media.Upload{Name: "frame.png", ContentType: "image/png", Data: []byte{1, 2, 3}}
}

func TestStart_RehydratedTier(t *testing.T) {
	f := newFixture(t, 150, validKey)
	f.ctrl.Start()

	frame := f.feed.lastFrame()
	assert.Equal(t, entities.TierMedium, frame.Tier)
	assert.Equal(t, 0, frame.Index)
	assert.Equal(t, 1, f.feed.soundCount())

	st := f.feed.lastStatus()
	assert.Equal(t, 150, st.TotalTokens)
	assert.Equal(t, "Tokens: 150", st.TokensLabel)
	assert.Equal(t, "Cost: $0.0003", st.CostLabel)
	assert.Equal(t, entities.TierMedium, st.Tier)
	assert.True(t, st.HasAPIKey)
}

func TestStart_NoneIsSilent(t *testing.T) {
	f := newFixture(t, 0, "")
	f.ctrl.Start()

	assert.Equal(t, entities.TierNone, f.feed.lastFrame().Tier)
	assert.Equal(t, 0, f.feed.soundCount())
	assert.False(t, f.ctrl.Status().HasAPIKey)
}

func TestSaveAPIKey(t *testing.T) {
	f := newFixture(t, 0, "")

	err := f.ctrl.SaveAPIKey("not-a-key")
	assert.ErrorIs(t, err, entities.ErrInvalidCredential)
	assert.Empty(t, f.ctrl.Transcript())

	require.NoError(t, f.ctrl.SaveAPIKey(validKey))
	tr := f.ctrl.Transcript()
	require.Len(t, tr, 1)
	assert.Equal(t, entities.RoleSystem, tr[0].Role)
	assert.Equal(t, "API key saved! You can now start chatting.", tr[0].Content)
	assert.True(t, f.feed.lastStatus().HasAPIKey)

	stored, err := f.repo.Get(repository.KeyAPIKey)
	require.NoError(t, err)
	assert.Equal(t, validKey, stored)
}

func TestSend_TierChangeMovesAnimation(t *testing.T) {
	f := newFixture(t, 0, validKey)
	f.ctrl.Start()
	f.completer.tokens = []int{60, 30, 20}

	reply, err := f.ctrl.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.True(t, reply.TierChanged())
	assert.Equal(t, entities.TierLow, f.feed.lastFrame().Tier)
	soundsAfterFirst := f.feed.soundCount()
	assert.Equal(t, 1, soundsAfterFirst)

	reply, err = f.ctrl.Send(context.Background(), "again")
	require.NoError(t, err)
	assert.False(t, reply.TierChanged())
	assert.Equal(t, soundsAfterFirst, f.feed.soundCount(), "same tier does not restart the animation")

	reply, err = f.ctrl.Send(context.Background(), "over")
	require.NoError(t, err)
	assert.Equal(t, 110, reply.Session.TotalTokens)
	assert.Equal(t, entities.TierMedium, f.feed.lastFrame().Tier)

	st := f.feed.lastStatus()
	assert.Equal(t, 110, st.TotalTokens)
	assert.Equal(t, 3, st.RequestCount)
	assert.False(t, st.Loading)

	f.feed.mu.Lock()
	assert.Equal(t, []bool{true, false, true, false, true, false}, f.feed.loading)
	f.feed.mu.Unlock()
}

func TestSend_FailureKeepsTier(t *testing.T) {
	f := newFixture(t, 50, validKey)
	f.ctrl.Start()
	f.completer.err = &entities.APIError{StatusCode: 401, Message: "Incorrect API key provided"}

	_, err := f.ctrl.Send(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, entities.TierLow, f.feed.lastFrame().Tier)
	assert.Equal(t, 50, f.ctrl.Status().TotalTokens)

	tr := f.ctrl.Transcript()
	require.Len(t, tr, 1)
	assert.Equal(t, "Error: Incorrect API key provided", tr[0].Content)
}

func TestUploadSound_TestPlays(t *testing.T) {
	f := newFixture(t, 0, validKey)
	f.ctrl.Start()

	label, err := f.ctrl.UploadSound(entities.TierHigh, media.Upload{Name: "boom.wav", ContentType: "audio/wav", Data: []byte{1}})
	require.NoError(t, err)
	assert.Equal(t, "boom.wav", label)

	f.feed.mu.Lock()
	require.Len(t, f.feed.sounds, 1)
	played := f.feed.sounds[0]
	f.feed.mu.Unlock()
	assert.False(t, played.Generated)
	assert.Equal(t, 0.7, played.Volume)
	assert.Equal(t, "boom.wav", f.ctrl.MediaStatus()[entities.TierHigh].Sound)

	_, err = f.ctrl.UploadSound(entities.TierHigh, png())
	assert.ErrorIs(t, err, entities.ErrUnsupportedMedia)
	assert.Equal(t, 1, f.feed.soundCount())
}

func TestUploadFrame_CompletingCurrentTierRestarts(t *testing.T) {
	f := newFixture(t, 20, validKey)
	f.ctrl.Start()
	assert.False(t, f.feed.lastFrame().Custom)

	_, complete, err := f.ctrl.UploadFrame(entities.TierLow, entities.Frame1, png())
	require.NoError(t, err)
	assert.False(t, complete)
	_, _, err = f.ctrl.UploadFrame(entities.TierLow, entities.Frame2, png())
	require.NoError(t, err)
	assert.False(t, f.feed.lastFrame().Custom, "partial sets keep the generated frames")

	_, complete, err = f.ctrl.UploadFrame(entities.TierLow, entities.Frame3, png())
	require.NoError(t, err)
	assert.True(t, complete)
	frame := f.feed.lastFrame()
	assert.True(t, frame.Custom)
	assert.Regexp(t, `^/media/`, frame.Src)

	require.NoError(t, f.ctrl.ClearAnimations())
	assert.False(t, f.feed.lastFrame().Custom)
	assert.Equal(t, entities.TierLow, f.feed.lastFrame().Tier)
}

func TestUploadFrame_OtherTierDoesNotRestart(t *testing.T) {
	f := newFixture(t, 20, validKey)
	f.ctrl.Start()
	f.feed.mu.Lock()
	before := len(f.feed.frames)
	f.feed.mu.Unlock()

	for _, slot := range entities.FrameSlots {
		_, _, err := f.ctrl.UploadFrame(entities.TierHigh, slot, png())
		require.NoError(t, err)
	}

	f.feed.mu.Lock()
	assert.Equal(t, before, len(f.feed.frames))
	f.feed.mu.Unlock()
}

func TestClearSounds(t *testing.T) {
	f := newFixture(t, 0, validKey)
	_, err := f.ctrl.UploadSound(entities.TierLow, media.Upload{Name: "a.wav", ContentType: "audio/wav", Data: []byte{1}})
	require.NoError(t, err)

	require.NoError(t, f.ctrl.ClearSounds())
	assert.Equal(t, media.NoFileLabel, f.ctrl.MediaStatus()[entities.TierLow].Sound)
	assert.Equal(t, 0, f.repo.BlobCount())
}

func TestSend_ConcurrentRepliesSettleOnCurrentTier(t *testing.T) {
	repo := repository.NewMemoryRepository()
	sess := session.NewSessionManager(repo, validKey)
	require.NoError(t, sess.Load())
	store := media.NewStore(repo, "/media/", 1<<20)
	require.NoError(t, store.Load())
	feed := &recordingFeed{}
	completer := &gatedCompleter{release: make(chan struct{}), tokens: 45}
	ctrl := controller.New(sess, completer, store, feed, time.Hour)
	t.Cleanup(ctrl.Close)
	ctrl.Start()

	const senders = 24
	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := ctrl.Send(context.Background(), "msg "+strconv.Itoa(i))
			assert.NoError(t, err)
		}(i)
	}
	close(completer.release)
	wg.Wait()

	assert.Equal(t, senders*45, sess.TotalTokens())
	assert.Equal(t, entities.TierHigh, feed.lastFrame().Tier)
	assert.Equal(t, entities.TierHigh, ctrl.Status().Tier)
}
