package entities

import (
	"fmt"
	"time"
)

// MediaKind selects which override family an operation applies to.
type MediaKind string

const (
	KindSounds     MediaKind = "sounds"
	KindAnimations MediaKind = "animations"
)

// ParseMediaKind parses "sounds" or "animations".
func ParseMediaKind(s string) (MediaKind, error) {
	switch k := MediaKind(s); k {
	case KindSounds, KindAnimations:
		return k, nil
	}
	return "", fmt.Errorf("unknown media kind %q", s)
}

// FrameSlot names one of the three animation frames.
type FrameSlot string

const (
	Frame1 FrameSlot = "frame1"
	Frame2 FrameSlot = "frame2"
	Frame3 FrameSlot = "frame3"
)

// FrameSlots lists the slots in playback order.
var FrameSlots = []FrameSlot{Frame1, Frame2, Frame3}

// ParseFrameSlot parses "frame1".."frame3".
func ParseFrameSlot(s string) (FrameSlot, error) {
	switch f := FrameSlot(s); f {
	case Frame1, Frame2, Frame3:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSlot, s)
}

// MediaRef is a handle to an uploaded blob.
type MediaRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
}

// Blob is the owned content behind a MediaRef.
type Blob struct {
	ID          string
	Name        string
	ContentType string
	Data        []byte
	CreatedAt   time.Time
}

// FrameSet holds the three frame overrides of one tier.
type FrameSet struct {
	Frame1 *MediaRef `json:"frame1"`
	Frame2 *MediaRef `json:"frame2"`
	Frame3 *MediaRef `json:"frame3"`
}

// Complete reports whether all three frames are present.
func (fs FrameSet) Complete() bool {
	return fs.Frame1 != nil && fs.Frame2 != nil && fs.Frame3 != nil
}

// Get returns the ref stored in slot.
func (fs FrameSet) Get(slot FrameSlot) *MediaRef {
	switch slot {
	case Frame1:
		return fs.Frame1
	case Frame2:
		return fs.Frame2
	case Frame3:
		return fs.Frame3
	}
	return nil
}

// Set stores ref in slot and returns the ref it replaced.
func (fs *FrameSet) Set(slot FrameSlot, ref *MediaRef) *MediaRef {
	var prev *MediaRef
	switch slot {
	case Frame1:
		prev, fs.Frame1 = fs.Frame1, ref
	case Frame2:
		prev, fs.Frame2 = fs.Frame2, ref
	case Frame3:
		prev, fs.Frame3 = fs.Frame3, ref
	}
	return prev
}

// Refs returns the non-nil refs in slot order.
func (fs FrameSet) Refs() []*MediaRef {
	var refs []*MediaRef
	for _, slot := range FrameSlots {
		if ref := fs.Get(slot); ref != nil {
			refs = append(refs, ref)
		}
	}
	return refs
}
