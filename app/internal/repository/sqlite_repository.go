package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/marketconnect/catfart-gpt/app/domain/entities"
)

// SQLiteRepository implements the Repository interface using an SQLite database.
type SQLiteRepository struct {
	db  *sql.DB
	dsn string
}

// NewSQLiteRepository creates a new SQLiteRepository.
// The DSN is the data source name for the SQLite database.
func NewSQLiteRepository(dsn string) (*SQLiteRepository, error) {
	// The driver "sqlite3" must be registered by the application importing this package,
	// typically by a blank import like `_ "github.com/mattn/go-sqlite3"`.
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	return &SQLiteRepository{db: db, dsn: dsn}, nil
}

// Init creates the necessary tables if they don't exist.
func (r *SQLiteRepository) Init() error {
	query := `
    CREATE TABLE IF NOT EXISTS kv (
        key TEXT PRIMARY KEY,
        value TEXT NOT NULL
    );
    CREATE TABLE IF NOT EXISTS blobs (
        id TEXT PRIMARY KEY,
        name TEXT NOT NULL,
        content_type TEXT NOT NULL,
        data BLOB NOT NULL,
        created_at INTEGER NOT NULL
    );`

	_, err := r.db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	slog.Debug("sqlite schema initialized", "dsn", r.dsn)
	return nil
}

// Close closes the database connection.
func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Get retrieves the value stored under key.
func (r *SQLiteRepository) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM kv WHERE key = ?;`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", entities.ErrKeyNotFound
		}
		return "", fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (r *SQLiteRepository) Set(key, value string) error {
	query := `
    INSERT INTO kv (key, value) VALUES (?, ?)
    ON CONFLICT(key) DO UPDATE SET value = excluded.value;`
	if _, err := r.db.Exec(query, key, value); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (r *SQLiteRepository) Delete(key string) error {
	if _, err := r.db.Exec(`DELETE FROM kv WHERE key = ?;`, key); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// PutBlob stores blob, replacing any blob with the same ID.
func (r *SQLiteRepository) PutBlob(blob *entities.Blob) error {
	createdAt := blob.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	query := `
    INSERT INTO blobs (id, name, content_type, data, created_at) VALUES (?, ?, ?, ?, ?)
    ON CONFLICT(id) DO UPDATE SET
        name = excluded.name,
        content_type = excluded.content_type,
        data = excluded.data,
        created_at = excluded.created_at;`
	if _, err := r.db.Exec(query, blob.ID, blob.Name, blob.ContentType, blob.Data, createdAt.Unix()); err != nil {
		return fmt.Errorf("failed to put blob: %w", err)
	}
	return nil
}

// GetBlob retrieves the blob with the given ID.
func (r *SQLiteRepository) GetBlob(id string) (*entities.Blob, error) {
	row := r.db.QueryRow(`SELECT id, name, content_type, data, created_at FROM blobs WHERE id = ?;`, id)

	var blob entities.Blob
	var createdAt int64
	if err := row.Scan(&blob.ID, &blob.Name, &blob.ContentType, &blob.Data, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to get blob: %w", err)
	}
	blob.CreatedAt = time.Unix(createdAt, 0)
	return &blob, nil
}

// DeleteBlob releases the blob with the given ID.
func (r *SQLiteRepository) DeleteBlob(id string) error {
	if _, err := r.db.Exec(`DELETE FROM blobs WHERE id = ?;`, id); err != nil {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}
