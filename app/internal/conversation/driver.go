// Package conversation sends user text to the chat API and keeps the
// rolling history and the visible transcript consistent with the outcome.
package conversation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/marketconnect/catfart-gpt/app/domain/entities"
	"github.com/marketconnect/catfart-gpt/app/internal/usage"
)

const missingKeyNotice = "Please save your API key before chatting."

// Completer performs one chat-completion round trip.
type Completer interface {
	Complete(ctx context.Context, apiKey string, history []entities.Message) (*entities.Completion, error)
}

// Session is the part of the session manager the driver needs.
type Session interface {
	APIKey() string
	TotalTokens() int
	AddUsage(usage entities.TokenUsage) (entities.SessionData, error)
}

// Reply is the outcome of a successful Send.
type Reply struct {
	Message      entities.Message     `json:"message"`
	Usage        entities.TokenUsage  `json:"usage"`
	Session      entities.SessionData `json:"session"`
	PreviousTier entities.Tier        `json:"previous_tier"`
	Tier         entities.Tier        `json:"tier"`
}

// TierChanged reports whether the reply moved the session to another tier.
func (r *Reply) TierChanged() bool {
	return r.PreviousTier != r.Tier
}

// Driver owns the conversation history.
type Driver struct {
	completer Completer
	session   Session
	onLoading func(bool)
	now       func() time.Time

	mu         sync.Mutex
	history    []entities.Message
	transcript []entities.TranscriptEntry
	pending    int
}

// NewDriver creates a Driver. onLoading, if non-nil, is called whenever the
// loading indicator turns on or off.
func NewDriver(completer Completer, session Session, onLoading func(bool)) *Driver {
	return &Driver{
		completer: completer,
		session:   session,
		onLoading: onLoading,
		now:       time.Now,
	}
}

// Send appends text to the history, asks the API for a reply and records the
// token usage. On failure the history is left exactly as it was.
func (d *Driver) Send(ctx context.Context, text string) (*Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, entities.ErrEmptyMessage
	}
	apiKey := d.session.APIKey()
	if apiKey == "" {
		d.AddNotice(missingKeyNotice)
		return nil, entities.ErrMissingCredential
	}

	userMsg := entities.Message{Role: entities.RoleUser, Content: text}

	d.mu.Lock()
	d.history = append(d.history, userMsg)
	d.transcript = append(d.transcript, d.entry(userMsg))
	history := append([]entities.Message(nil), d.history...)
	d.mu.Unlock()

	d.setLoading(true)
	defer d.setLoading(false)

	completion, err := d.completer.Complete(ctx, apiKey, history)
	if err != nil {
		slog.Warn("chat completion failed", "error", err)
		d.rollback(userMsg, err)
		return nil, err
	}

	data, err := d.session.AddUsage(completion.Usage)
	if err != nil {
		// The count is kept in memory and stored again on the next reply.
		slog.Error("failed to persist token usage", "error", err)
	}

	d.mu.Lock()
	d.history = append(d.history, completion.Message)
	d.transcript = append(d.transcript, d.entry(completion.Message))
	d.mu.Unlock()

	return &Reply{
		Message:      completion.Message,
		Usage:        completion.Usage,
		Session:      data,
		PreviousTier: usage.Classify(data.TotalTokens - max(completion.Usage.TotalTokens, 0)),
		Tier:         usage.Classify(data.TotalTokens),
	}, nil
}

// rollback removes the optimistic user message and records the failure.
func (d *Driver) rollback(userMsg entities.Message, cause error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := len(d.history) - 1; i >= 0; i-- {
		if d.history[i] == userMsg {
			d.history = append(d.history[:i], d.history[i+1:]...)
			break
		}
	}
	for i := len(d.transcript) - 1; i >= 0; i-- {
		e := d.transcript[i]
		if e.Role == userMsg.Role && e.Content == userMsg.Content {
			d.transcript = append(d.transcript[:i], d.transcript[i+1:]...)
			break
		}
	}
	d.transcript = append(d.transcript, d.entry(entities.Message{
		Role:    entities.RoleSystem,
		Content: "Error: " + ErrorMessage(cause),
	}))
}

// AddNotice appends a system line to the transcript.
func (d *Driver) AddNotice(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.transcript = append(d.transcript, d.entry(entities.Message{Role: entities.RoleSystem, Content: text}))
}

// History returns a copy of the messages sent to the API.
func (d *Driver) History() []entities.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]entities.Message(nil), d.history...)
}

// Transcript returns a copy of the visible conversation.
func (d *Driver) Transcript() []entities.TranscriptEntry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]entities.TranscriptEntry(nil), d.transcript...)
}

// Loading reports whether a request is outstanding.
func (d *Driver) Loading() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending > 0
}

func (d *Driver) setLoading(on bool) {
	d.mu.Lock()
	was := d.pending > 0
	if on {
		d.pending++
	} else if d.pending > 0 {
		d.pending--
	}
	now := d.pending > 0
	d.mu.Unlock()

	if was != now && d.onLoading != nil {
		d.onLoading(now)
	}
}

func (d *Driver) entry(m entities.Message) entities.TranscriptEntry {
	return entities.TranscriptEntry{Role: m.Role, Content: m.Content, At: d.now()}
}

// ErrorMessage returns the text shown to the user for err.
func ErrorMessage(err error) string {
	var apiErr *entities.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
