// Package controller holds the application state and sequences the reaction
// side effects of each user action.
package controller

import (
	"context"
	"sync"
	"time"

	"github.com/marketconnect/catfart-gpt/app/domain/entities"
	"github.com/marketconnect/catfart-gpt/app/internal/conversation"
	"github.com/marketconnect/catfart-gpt/app/internal/media"
	"github.com/marketconnect/catfart-gpt/app/internal/reaction"
	"github.com/marketconnect/catfart-gpt/app/internal/session"
	"github.com/marketconnect/catfart-gpt/app/internal/usage"
)

const keySavedNotice = "API key saved! You can now start chatting."

// Feed is where cues and status updates are published.
type Feed interface {
	reaction.Presenter
	SetLoading(on bool)
	PublishStatus(status any)
}

// Status is everything the page's status bar and uploaders show.
type Status struct {
	TotalTokens  int                                `json:"total_tokens"`
	RequestCount int                                `json:"request_count"`
	TokensLabel  string                             `json:"tokens_label"`
	CostLabel    string                             `json:"cost_label"`
	Tier         entities.Tier                      `json:"tier"`
	HasAPIKey    bool                               `json:"has_api_key"`
	Loading      bool                               `json:"loading"`
	Media        map[entities.Tier]media.TierStatus `json:"media"`
}

// Controller owns the session, conversation, media overrides and animation.
type Controller struct {
	session *session.SessionManager
	driver  *conversation.Driver
	media   *media.Store
	engine  *reaction.Engine
	feed    Feed

	// tierMu orders tier changes from overlapping sends.
	tierMu sync.Mutex
}

// New wires a controller. sess and store must already be loaded.
func New(sess *session.SessionManager, completer conversation.Completer, store *media.Store, feed Feed, interval time.Duration) *Controller {
	return &Controller{
		session: sess,
		driver:  conversation.NewDriver(completer, sess, feed.SetLoading),
		media:   store,
		engine:  reaction.NewEngine(feed, store, interval),
		feed:    feed,
	}
}

// Start shows the tier of the rehydrated token count.
func (c *Controller) Start() {
	c.engine.SetTier(usage.Classify(c.session.TotalTokens()))
	c.publishStatus()
}

// SaveAPIKey validates and stores the credential.
func (c *Controller) SaveAPIKey(key string) error {
	if err := c.session.SetAPIKey(key); err != nil {
		return err
	}
	c.driver.AddNotice(keySavedNotice)
	c.publishStatus()
	return nil
}

// Send forwards text to the chat API and moves the animation when the
// reply crosses a tier boundary.
func (c *Controller) Send(ctx context.Context, text string) (*conversation.Reply, error) {
	reply, err := c.driver.Send(ctx, text)
	defer c.publishStatus()
	if err != nil {
		return nil, err
	}
	c.syncTier()
	return reply, nil
}

// syncTier moves the animation to the tier of the current total. Replies
// to concurrent sends can finish in any order, so their own tiers are not
// trusted.
func (c *Controller) syncTier() {
	c.tierMu.Lock()
	defer c.tierMu.Unlock()
	tier := usage.Classify(c.session.TotalTokens())
	if current, _ := c.engine.Current(); current != tier {
		c.engine.SetTier(tier)
	}
}

// Transcript returns the visible conversation.
func (c *Controller) Transcript() []entities.TranscriptEntry {
	return c.driver.Transcript()
}

// UploadSound stores a sound override and plays it once.
func (c *Controller) UploadSound(tier entities.Tier, up media.Upload) (string, error) {
	label, err := c.media.UploadSound(tier, up)
	if err != nil {
		return "", err
	}
	if ev, ok := reaction.SoundFor(tier, c.media); ok {
		c.feed.PlaySound(ev)
	}
	c.publishStatus()
	return label, nil
}

// UploadFrame stores one frame. Completing the set of the tier on screen
// restarts the animation with the new frames.
func (c *Controller) UploadFrame(tier entities.Tier, slot entities.FrameSlot, up media.Upload) (string, bool, error) {
	label, complete, err := c.media.UploadFrame(tier, slot, up)
	if err != nil {
		return "", false, err
	}
	if current, _ := c.engine.Current(); complete && current == tier {
		c.engine.Restart()
	}
	c.publishStatus()
	return label, complete, nil
}

// ClearSounds drops every sound override.
func (c *Controller) ClearSounds() error {
	if err := c.media.ClearAll(entities.KindSounds); err != nil {
		return err
	}
	c.publishStatus()
	return nil
}

// ClearAnimations drops every frame override and falls back to the
// generated frames.
func (c *Controller) ClearAnimations() error {
	if err := c.media.ClearAll(entities.KindAnimations); err != nil {
		return err
	}
	c.engine.Restart()
	c.publishStatus()
	return nil
}

// MediaStatus returns the uploader labels.
func (c *Controller) MediaStatus() map[entities.Tier]media.TierStatus {
	return c.media.Status()
}

// OpenMedia returns an uploaded blob.
func (c *Controller) OpenMedia(id string) (*entities.Blob, error) {
	return c.media.Open(id)
}

// Status returns the current status snapshot.
func (c *Controller) Status() Status {
	data := c.session.Snapshot()
	return Status{
		TotalTokens:  data.TotalTokens,
		RequestCount: data.RequestCount,
		TokensLabel:  usage.TokensLabel(data.TotalTokens),
		CostLabel:    usage.CostLabel(data.TotalTokens),
		Tier:         usage.Classify(data.TotalTokens),
		HasAPIKey:    data.HasAPIKey,
		Loading:      c.driver.Loading(),
		Media:        c.media.Status(),
	}
}

// Close stops the animation.
func (c *Controller) Close() {
	c.engine.Stop()
}

func (c *Controller) publishStatus() {
	c.feed.PublishStatus(c.Status())
}
