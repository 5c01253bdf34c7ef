// Package media keeps the user's sound and animation overrides. Uploaded
// files are owned blobs in the repository; the override maps that point at
// them are persisted as JSON after every change.
package media

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marketconnect/catfart-gpt/app/domain/entities"
	"github.com/marketconnect/catfart-gpt/app/internal/repository"
)

const (
	NoFileLabel = "No file"

	soundHint = "Please upload a valid audio file (.wav)"
	imageHint = "Please upload a valid image file"
)

// Repository is the storage the store persists into.
type Repository interface {
	Get(key string) (string, error)
	Set(key, value string) error
	PutBlob(blob *entities.Blob) error
	GetBlob(id string) (*entities.Blob, error)
	DeleteBlob(id string) error
}

// Upload is one file received from the page.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// ValidationError explains why an upload was rejected.
type ValidationError struct {
	Err  error
	Hint string
}

func (e *ValidationError) Error() string {
	return e.Hint
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// TierStatus holds the labels shown next to one tier's uploaders.
type TierStatus struct {
	Sound  string                        `json:"sound"`
	Frames map[entities.FrameSlot]string `json:"frames"`
}

// Store holds the overrides of every reactive tier.
type Store struct {
	repo      Repository
	urlPrefix string
	maxBytes  int64
	now       func() time.Time

	mu         sync.RWMutex
	sounds     map[entities.Tier]*entities.MediaRef
	animations map[entities.Tier]*entities.FrameSet
}

// NewStore creates a Store. Blob URLs are urlPrefix + id.
func NewStore(repo Repository, urlPrefix string, maxBytes int64) *Store {
	return &Store{
		repo:       repo,
		urlPrefix:  urlPrefix,
		maxBytes:   maxBytes,
		now:        time.Now,
		sounds:     map[entities.Tier]*entities.MediaRef{},
		animations: map[entities.Tier]*entities.FrameSet{},
	}
}

// Load rehydrates the overrides. Corrupt JSON is logged and treated as empty.
func (s *Store) Load() error {
	sounds := map[entities.Tier]*entities.MediaRef{}
	if err := s.loadJSON(repository.KeyCustomSounds, &sounds); err != nil {
		return err
	}
	animations := map[entities.Tier]*entities.FrameSet{}
	if err := s.loadJSON(repository.KeyCustomAnimations, &animations); err != nil {
		return err
	}

	for tier, ref := range sounds {
		if !tier.Reactive() || ref == nil {
			delete(sounds, tier)
		}
	}
	for tier, set := range animations {
		if !tier.Reactive() || set == nil {
			delete(animations, tier)
		}
	}

	s.mu.Lock()
	s.sounds = sounds
	s.animations = animations
	s.mu.Unlock()
	return nil
}

func (s *Store) loadJSON(key string, into any) error {
	raw, err := s.repo.Get(key)
	if errors.Is(err, entities.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), into); err != nil {
		slog.Warn("ignoring corrupt media settings", "key", key, "error", err)
	}
	return nil
}

// UploadSound stores the sound override of tier and returns its label.
func (s *Store) UploadSound(tier entities.Tier, up Upload) (string, error) {
	if !tier.Reactive() {
		return "", fmt.Errorf("%w: %s", entities.ErrInvalidTier, tier)
	}
	if err := s.validate(up, isAudio, soundHint); err != nil {
		return "", err
	}

	ref, err := s.putBlob(up)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	prev := s.sounds[tier]
	s.sounds[tier] = ref
	if err := s.persistSoundsLocked(); err != nil {
		s.restoreSoundLocked(tier, prev)
		s.mu.Unlock()
		s.release(ref)
		return "", err
	}
	s.mu.Unlock()

	s.release(prev)
	return ref.Name, nil
}

func (s *Store) restoreSoundLocked(tier entities.Tier, prev *entities.MediaRef) {
	if prev == nil {
		delete(s.sounds, tier)
		return
	}
	s.sounds[tier] = prev
}

// UploadFrame stores one animation frame of tier. complete reports whether
// the tier now has all three frames.
func (s *Store) UploadFrame(tier entities.Tier, slot entities.FrameSlot, up Upload) (label string, complete bool, err error) {
	if !tier.Reactive() {
		return "", false, fmt.Errorf("%w: %s", entities.ErrInvalidTier, tier)
	}
	if _, err := entities.ParseFrameSlot(string(slot)); err != nil {
		return "", false, err
	}
	if err := s.validate(up, isImage, imageHint); err != nil {
		return "", false, err
	}

	ref, err := s.putBlob(up)
	if err != nil {
		return "", false, err
	}

	s.mu.Lock()
	set := s.animations[tier]
	if set == nil {
		set = &entities.FrameSet{}
		s.animations[tier] = set
	}
	prev := set.Set(slot, ref)
	if err := s.persistAnimationsLocked(); err != nil {
		set.Set(slot, prev)
		if len(set.Refs()) == 0 {
			delete(s.animations, tier)
		}
		s.mu.Unlock()
		s.release(ref)
		return "", false, err
	}
	complete = set.Complete()
	s.mu.Unlock()

	s.release(prev)
	return frameLabel(up.Name), complete, nil
}

// ClearAll releases every override of kind and persists the empty set.
func (s *Store) ClearAll(kind entities.MediaKind) error {
	var refs []*entities.MediaRef

	s.mu.Lock()
	switch kind {
	case entities.KindSounds:
		for _, ref := range s.sounds {
			refs = append(refs, ref)
		}
		s.sounds = map[entities.Tier]*entities.MediaRef{}
		if err := s.persistSoundsLocked(); err != nil {
			s.mu.Unlock()
			return err
		}
	case entities.KindAnimations:
		for _, set := range s.animations {
			refs = append(refs, set.Refs()...)
		}
		s.animations = map[entities.Tier]*entities.FrameSet{}
		if err := s.persistAnimationsLocked(); err != nil {
			s.mu.Unlock()
			return err
		}
	default:
		s.mu.Unlock()
		return fmt.Errorf("unknown media kind %q", kind)
	}
	s.mu.Unlock()

	for _, ref := range refs {
		s.release(ref)
	}
	slog.Info("media overrides cleared", "kind", kind, "released", len(refs))
	return nil
}

// CustomSound returns the URL of tier's sound override.
func (s *Store) CustomSound(tier entities.Tier) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref := s.sounds[tier]
	if ref == nil {
		return "", false
	}
	return s.URL(ref.ID), true
}

// CustomFrames returns the URLs of tier's frames, only when all three are set.
func (s *Store) CustomFrames(tier entities.Tier) ([3]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var urls [3]string
	set := s.animations[tier]
	if set == nil || !set.Complete() {
		return urls, false
	}
	for i, slot := range entities.FrameSlots {
		urls[i] = s.URL(set.Get(slot).ID)
	}
	return urls, true
}

// HasCustomAnimation reports whether tier has a complete frame set.
func (s *Store) HasCustomAnimation(tier entities.Tier) bool {
	_, ok := s.CustomFrames(tier)
	return ok
}

// Open returns the blob behind id.
func (s *Store) Open(id string) (*entities.Blob, error) {
	return s.repo.GetBlob(id)
}

// URL returns the address the page loads blob id from.
func (s *Store) URL(id string) string {
	return s.urlPrefix + id
}

// Status returns the uploader labels of every reactive tier.
func (s *Store) Status() map[entities.Tier]TierStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[entities.Tier]TierStatus, len(entities.ReactiveTiers))
	for _, tier := range entities.ReactiveTiers {
		st := TierStatus{Sound: NoFileLabel, Frames: map[entities.FrameSlot]string{}}
		if ref := s.sounds[tier]; ref != nil {
			st.Sound = ref.Name
		}
		for _, slot := range entities.FrameSlots {
			st.Frames[slot] = NoFileLabel
			if set := s.animations[tier]; set != nil {
				if ref := set.Get(slot); ref != nil {
					st.Frames[slot] = frameLabel(ref.Name)
				}
			}
		}
		out[tier] = st
	}
	return out
}

func (s *Store) validate(up Upload, accept func(Upload) bool, hint string) error {
	if len(up.Data) == 0 {
		return entities.ErrEmptyUpload
	}
	if !accept(up) {
		return &ValidationError{Err: entities.ErrUnsupportedMedia, Hint: hint}
	}
	if s.maxBytes > 0 && int64(len(up.Data)) > s.maxBytes {
		return &ValidationError{Err: entities.ErrMediaTooLarge, Hint: fmt.Sprintf("File is too large (limit %d bytes)", s.maxBytes)}
	}
	return nil
}

func isAudio(up Upload) bool {
	return strings.Contains(strings.ToLower(up.ContentType), "audio/") ||
		strings.HasSuffix(strings.ToLower(up.Name), ".wav")
}

func isImage(up Upload) bool {
	return strings.HasPrefix(strings.ToLower(up.ContentType), "image/")
}

func (s *Store) putBlob(up Upload) (*entities.MediaRef, error) {
	ref := &entities.MediaRef{
		ID:          uuid.NewString(),
		Name:        path.Base(up.Name),
		ContentType: up.ContentType,
	}
	blob := &entities.Blob{
		ID:          ref.ID,
		Name:        ref.Name,
		ContentType: ref.ContentType,
		Data:        up.Data,
		CreatedAt:   s.now(),
	}
	if err := s.repo.PutBlob(blob); err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}
	return ref, nil
}

// release frees a superseded or cleared blob. Failures only leak storage.
func (s *Store) release(ref *entities.MediaRef) {
	if ref == nil {
		return
	}
	if err := s.repo.DeleteBlob(ref.ID); err != nil {
		slog.Warn("failed to release media blob", "id", ref.ID, "error", err)
	}
}

func (s *Store) persistSoundsLocked() error {
	return s.persistLocked(repository.KeyCustomSounds, s.sounds)
}

func (s *Store) persistAnimationsLocked() error {
	return s.persistLocked(repository.KeyCustomAnimations, s.animations)
}

func (s *Store) persistLocked(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := s.repo.Set(key, string(raw)); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func frameLabel(name string) string {
	r := []rune(path.Base(name))
	if len(r) > 8 {
		r = r[:8]
	}
	return string(r) + "..."
}
