package repository

import (
	"sync"
	"time"

	"github.com/marketconnect/catfart-gpt/app/domain/entities"
)

// MemoryRepository is an in-memory implementation of the Repository interface.
type MemoryRepository struct {
	values map[string]string
	blobs  map[string]*entities.Blob
	mu     sync.RWMutex
}

// NewMemoryRepository creates a new MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		values: make(map[string]string),
		blobs:  make(map[string]*entities.Blob),
	}
}

// Init initializes the memory repository (no-op for memory repository).
func (r *MemoryRepository) Init() error {
	return nil
}

// Close closes the memory repository (no-op for memory repository).
func (r *MemoryRepository) Close() error {
	return nil
}

// Get retrieves the value stored under key.
func (r *MemoryRepository) Get(key string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, exists := r.values[key]
	if !exists {
		return "", entities.ErrKeyNotFound
	}
	return v, nil
}

// Set stores value under key, replacing any previous value.
func (r *MemoryRepository) Set(key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.values[key] = value
	return nil
}

// Delete removes key.
func (r *MemoryRepository) Delete(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.values, key)
	return nil
}

// PutBlob stores a copy of blob.
func (r *MemoryRepository) PutBlob(blob *entities.Blob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	blobCopy := copyBlob(blob)
	if blobCopy.CreatedAt.IsZero() {
		blobCopy.CreatedAt = time.Now()
	}
	r.blobs[blob.ID] = blobCopy
	return nil
}

// GetBlob retrieves a copy of the blob with the given ID.
func (r *MemoryRepository) GetBlob(id string) (*entities.Blob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	blob, exists := r.blobs[id]
	if !exists {
		return nil, entities.ErrBlobNotFound
	}
	// Return a copy to prevent modification outside of repository methods
	return copyBlob(blob), nil
}

// DeleteBlob releases the blob with the given ID.
func (r *MemoryRepository) DeleteBlob(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.blobs, id)
	return nil
}

// BlobCount returns the number of stored blobs.
func (r *MemoryRepository) BlobCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.blobs)
}

func copyBlob(b *entities.Blob) *entities.Blob {
	c := *b
	c.Data = append([]byte(nil), b.Data...)
	return &c
}
