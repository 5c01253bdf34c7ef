package repository

import (
	"github.com/marketconnect/catfart-gpt/app/domain/entities"
)

// Keys used by the application in the key-value space.
const (
	KeyAPIKey           = "openai-api-key"
	KeyTotalTokens      = "total-tokens"
	KeyCustomSounds     = "custom-sounds"
	KeyCustomAnimations = "custom-animations"
)

// Repository defines the interface for durable storage: a string
// key-value space plus owned media blobs. Implementations exist for
// in-memory use and SQLite.
type Repository interface {
	// Init performs any necessary initialization for the repository (e.g., DB connection, table creation).
	Init() error
	// Close performs cleanup tasks (e.g., closing DB connection).
	Close() error

	// Get returns entities.ErrKeyNotFound for unknown keys.
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error

	PutBlob(blob *entities.Blob) error
	// GetBlob returns entities.ErrBlobNotFound for unknown IDs.
	GetBlob(id string) (*entities.Blob, error)
	// DeleteBlob is a no-op for unknown IDs.
	DeleteBlob(id string) error
}
