package session

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/marketconnect/catfart-gpt/app/domain/entities"
	"github.com/marketconnect/catfart-gpt/app/internal/repository"
)

type Repository interface {
	Close() error
	Get(key string) (string, error)
	Set(key, value string) error
}

var apiKeyPattern = regexp.MustCompile(`^sk-[A-Za-z0-9_-]{16,}$`)

// ValidateAPIKey checks that key looks like a plausible API key.
func ValidateAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return entities.ErrMissingCredential
	}
	if !apiKeyPattern.MatchString(key) {
		return entities.ErrInvalidCredential
	}
	return nil
}

// SessionManager owns the credential and the cumulative token count and
// keeps both in the repository.
type SessionManager struct {
	repository Repository
	seedKey    string

	mu           sync.RWMutex
	apiKey       string
	totalTokens  int
	requestCount int
}

// NewSessionManager creates a new SessionManager with the provided repository.
// seedKey is used when no key has been saved yet.
func NewSessionManager(repo Repository, seedKey string) *SessionManager {
	return &SessionManager{
		repository: repo,
		seedKey:    strings.TrimSpace(seedKey),
	}
}

// Close closes the underlying repository connection if applicable.
func (sm *SessionManager) Close() error {
	if sm.repository != nil {
		return sm.repository.Close()
	}
	return nil
}

// Load rehydrates the session from the repository. A corrupt token count is
// logged and treated as zero.
func (sm *SessionManager) Load() error {
	key, err := sm.repository.Get(repository.KeyAPIKey)
	switch {
	case errors.Is(err, entities.ErrKeyNotFound):
		key = sm.seedKey
	case err != nil:
		return fmt.Errorf("failed to load API key: %w", err)
	}

	total := 0
	raw, err := sm.repository.Get(repository.KeyTotalTokens)
	switch {
	case errors.Is(err, entities.ErrKeyNotFound):
	case err != nil:
		return fmt.Errorf("failed to load token count: %w", err)
	default:
		n, convErr := strconv.Atoi(strings.TrimSpace(raw))
		if convErr != nil || n < 0 {
			slog.Warn("ignoring corrupt token count", "value", raw, "error", convErr)
		} else {
			total = n
		}
	}

	sm.mu.Lock()
	sm.apiKey = key
	sm.totalTokens = total
	sm.mu.Unlock()
	return nil
}

// APIKey returns the current credential, or "" when none is set.
func (sm *SessionManager) APIKey() string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.apiKey
}

// SetAPIKey validates and persists a new credential.
func (sm *SessionManager) SetAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if err := ValidateAPIKey(key); err != nil {
		return err
	}
	if err := sm.repository.Set(repository.KeyAPIKey, key); err != nil {
		return fmt.Errorf("failed to save API key: %w", err)
	}

	sm.mu.Lock()
	sm.apiKey = key
	sm.mu.Unlock()
	return nil
}

// TotalTokens returns the cumulative token count.
func (sm *SessionManager) TotalTokens() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.totalTokens
}

// AddUsage adds token usage to the session and persists the new total.
// The total never decreases. The in-memory total is updated even when the
// write fails; the next successful call stores the full count.
func (sm *SessionManager) AddUsage(usage entities.TokenUsage) (entities.SessionData, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if usage.TotalTokens > 0 {
		sm.totalTokens += usage.TotalTokens
	}
	sm.requestCount++
	if err := sm.repository.Set(repository.KeyTotalTokens, strconv.Itoa(sm.totalTokens)); err != nil {
		return sm.snapshotLocked(), fmt.Errorf("failed to save token count: %w", err)
	}
	return sm.snapshotLocked(), nil
}

// Snapshot returns a copy of the session state.
func (sm *SessionManager) Snapshot() entities.SessionData {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.snapshotLocked()
}

func (sm *SessionManager) snapshotLocked() entities.SessionData {
	return entities.SessionData{
		TotalTokens:  sm.totalTokens,
		RequestCount: sm.requestCount,
		HasAPIKey:    sm.apiKey != "",
	}
}
