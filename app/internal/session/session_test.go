package session_test

import (
	"errors"
	"testing"

	"github.com/marketconnect/catfart-gpt/app/domain/entities"
	"github.com/marketconnect/catfart-gpt/app/internal/repository"
	"github.com/marketconnect/catfart-gpt/app/internal/session"
)

const validKey = "sk-test_0123456789abcdef"

type failingRepo struct {
	*repository.MemoryRepository
	setErr error
}

func (f *failingRepo) Set(key, value string) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.MemoryRepository.Set(key, value)
}

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want error
	}{
		{"valid", validKey, nil},
		{"valid with padding", "  " + validKey + "\n", nil},
		{"empty", "   ", entities.ErrMissingCredential},
		{"no prefix", "abc0123456789abcdef0123", entities.ErrInvalidCredential},
		{"too short", "sk-abc", entities.ErrInvalidCredential},
		{"inner space", "sk-0123456789 abcdef0123", entities.ErrInvalidCredential},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := session.ValidateAPIKey(tt.key)
			if !errors.Is(err, tt.want) {
				t.Errorf("ValidateAPIKey(%q) = %v, want %v", tt.key, err, tt.want)
			}
		})
	}
}

func TestSessionManager_LoadEmpty(t *testing.T) {
	sm := session.NewSessionManager(repository.NewMemoryRepository(), "")
	if err := sm.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if sm.APIKey() != "" || sm.TotalTokens() != 0 {
		t.Errorf("fresh session = key %q tokens %d", sm.APIKey(), sm.TotalTokens())
	}
	if sm.Snapshot().HasAPIKey {
		t.Error("Snapshot().HasAPIKey = true for fresh session")
	}
}

func TestSessionManager_LoadSeedKey(t *testing.T) {
	repo := repository.NewMemoryRepository()
	sm := session.NewSessionManager(repo, validKey)
	if err := sm.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if sm.APIKey() != validKey {
		t.Errorf("APIKey() = %q, want seed key", sm.APIKey())
	}
	if _, err := repo.Get(repository.KeyAPIKey); !errors.Is(err, entities.ErrKeyNotFound) {
		t.Error("seed key should not be persisted")
	}

	repo.Set(repository.KeyAPIKey, "sk-stored_0123456789abcdef")
	if err := sm.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if sm.APIKey() != "sk-stored_0123456789abcdef" {
		t.Errorf("stored key should win over seed, got %q", sm.APIKey())
	}
}

func TestSessionManager_LoadCorruptTokens(t *testing.T) {
	repo := repository.NewMemoryRepository()
	repo.Set(repository.KeyTotalTokens, "lots")
	sm := session.NewSessionManager(repo, "")
	if err := sm.Load(); err != nil {
		t.Fatalf("Load() error = %v, corrupt count should not fail", err)
	}
	if sm.TotalTokens() != 0 {
		t.Errorf("TotalTokens() = %d, want 0", sm.TotalTokens())
	}
}

func TestSessionManager_SetAPIKey(t *testing.T) {
	repo := repository.NewMemoryRepository()
	sm := session.NewSessionManager(repo, "")

	if err := sm.SetAPIKey("nope"); !errors.Is(err, entities.ErrInvalidCredential) {
		t.Fatalf("SetAPIKey(nope) = %v, want ErrInvalidCredential", err)
	}
	if sm.APIKey() != "" {
		t.Error("invalid key should not be stored")
	}

	if err := sm.SetAPIKey(" " + validKey + " "); err != nil {
		t.Fatalf("SetAPIKey() error = %v", err)
	}
	stored, _ := repo.Get(repository.KeyAPIKey)
	if stored != validKey || sm.APIKey() != validKey {
		t.Errorf("stored = %q, in memory = %q, want %q", stored, sm.APIKey(), validKey)
	}
}

func TestSessionManager_AddUsage(t *testing.T) {
	repo := repository.NewMemoryRepository()
	sm := session.NewSessionManager(repo, "")

	data, err := sm.AddUsage(entities.TokenUsage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30})
	if err != nil {
		t.Fatalf("AddUsage() error = %v", err)
	}
	if data.TotalTokens != 30 || data.RequestCount != 1 {
		t.Errorf("AddUsage() = %+v", data)
	}

	data, _ = sm.AddUsage(entities.TokenUsage{TotalTokens: -7})
	if data.TotalTokens != 30 {
		t.Errorf("negative usage changed total to %d", data.TotalTokens)
	}

	sm.AddUsage(entities.TokenUsage{TotalTokens: 15})
	stored, _ := repo.Get(repository.KeyTotalTokens)
	if stored != "45" {
		t.Errorf("persisted total = %q, want 45", stored)
	}

	reloaded := session.NewSessionManager(repo, "")
	reloaded.Load()
	if reloaded.TotalTokens() != 45 {
		t.Errorf("reloaded TotalTokens() = %d, want 45", reloaded.TotalTokens())
	}
}

func TestSessionManager_AddUsagePersistFailure(t *testing.T) {
	repo := &failingRepo{MemoryRepository: repository.NewMemoryRepository(), setErr: errors.New("disk full")}
	sm := session.NewSessionManager(repo, "")

	data, err := sm.AddUsage(entities.TokenUsage{TotalTokens: 5})
	if err == nil {
		t.Fatal("AddUsage() should report the failed write")
	}
	if data.TotalTokens != 5 || sm.TotalTokens() != 5 {
		t.Errorf("TotalTokens() = %d (snapshot %d) after failed persist, want 5", sm.TotalTokens(), data.TotalTokens)
	}

	// Once storage recovers the next write carries the whole count.
	repo.setErr = nil
	if _, err := sm.AddUsage(entities.TokenUsage{TotalTokens: 7}); err != nil {
		t.Fatalf("AddUsage() error = %v", err)
	}
	stored, _ := repo.Get(repository.KeyTotalTokens)
	if stored != "12" {
		t.Errorf("persisted total = %q, want 12", stored)
	}
}
