package entities

import (
	"errors"
	"fmt"
)

var (
	ErrKeyNotFound  = errors.New("key not found")
	ErrBlobNotFound = errors.New("blob not found")

	ErrMissingCredential = errors.New("missing API key")
	ErrInvalidCredential = errors.New("invalid API key")
	ErrEmptyMessage      = errors.New("empty message")

	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrMediaTooLarge    = errors.New("media file too large")
	ErrEmptyUpload      = errors.New("no file uploaded")
	ErrInvalidTier      = errors.New("invalid tier")
	ErrInvalidSlot      = errors.New("invalid frame slot")

	ErrMalformedResponse = errors.New("malformed API response")
	ErrMissingChoice     = errors.New("API response has no choices")
	ErrMissingUsage      = errors.New("API response has no usage")
)

// APIError is returned when the chat API answers with a non-success status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}
