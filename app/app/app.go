package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/marketconnect/catfart-gpt/app/internal/config"
	"github.com/marketconnect/catfart-gpt/app/internal/controller"
	"github.com/marketconnect/catfart-gpt/app/internal/feed"
	"github.com/marketconnect/catfart-gpt/app/internal/handlers"
	"github.com/marketconnect/catfart-gpt/app/internal/media"
	"github.com/marketconnect/catfart-gpt/app/internal/openai"
	"github.com/marketconnect/catfart-gpt/app/internal/repository"
	"github.com/marketconnect/catfart-gpt/app/internal/session"
	"github.com/marketconnect/catfart-gpt/app/web"

	_ "github.com/mattn/go-sqlite3"
)

const (
	mediaURLPrefix  = "/media/"
	shutdownTimeout = 10 * time.Second
)

// App holds all application dependencies
type App struct {
	Config         *config.Config
	Repository     repository.Repository
	SessionManager *session.SessionManager
	Media          *media.Store
	Client         *openai.Client
	Feed           *feed.Hub
	Controller     *controller.Controller

	closeOnce sync.Once
	closeErr  error
}

// NewApp creates and initializes all application dependencies from the
// process configuration.
func NewApp() (*App, error) {
	return New(config.GetConfig())
}

// New creates and initializes all application dependencies from cfg.
func New(cfg *config.Config) (*App, error) {
	var repo repository.Repository
	var err error

	slog.Info("initializing repository", "type", cfg.Repository.Type)

	switch cfg.Repository.Type {
	case "sqlite":
		repo, err = repository.NewSQLiteRepository(cfg.Repository.SQLiteDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
	case "memory":
		fallthrough
	default:
		repo = repository.NewMemoryRepository()
	}

	if err := repo.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize repository: %w", err)
	}

	sessionManager := session.NewSessionManager(repo, cfg.OpenAI.APIKey)
	if err := sessionManager.Load(); err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	store := media.NewStore(repo, mediaURLPrefix, cfg.Media.MaxUploadBytes)
	if err := store.Load(); err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to load media settings: %w", err)
	}

	client := openai.NewClient(openai.Options{
		BaseURL:         cfg.OpenAI.BaseURL,
		Model:           cfg.OpenAI.Model,
		MaxTokens:       cfg.OpenAI.MaxTokens,
		Temperature:     cfg.OpenAI.Temperature,
		RateLimitPerMin: cfg.OpenAI.RateLimitPerMin,
	})

	var originPatterns []string
	if cfg.IsDev {
		originPatterns = []string{"*"}
	}
	hub := feed.NewHub(originPatterns...)

	ctrl := controller.New(sessionManager, client, store, hub, cfg.Reaction.FrameInterval)
	ctrl.Start()

	return &App{
		Config:         cfg,
		Repository:     repo,
		SessionManager: sessionManager,
		Media:          store,
		Client:         client,
		Feed:           hub,
		Controller:     ctrl,
	}, nil
}

// Handler returns the HTTP surface of the app.
func (a *App) Handler() http.Handler {
	return handlers.NewHandler(a.Controller, a.Feed, web.Handler(), a.Config.Media.MaxUploadBytes).Routes()
}

// Close cleans up all dependencies. It is safe to call more than once.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		if a.Controller != nil {
			a.Controller.Close()
		}
		if a.Feed != nil {
			a.Feed.Close()
		}
		if a.SessionManager != nil {
			if err := a.SessionManager.Close(); err != nil {
				a.closeErr = fmt.Errorf("failed to close session manager: %w", err)
			}
		}
	})
	return a.closeErr
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.HTTP.Port),
		Handler:      a.Handler(),
		ReadTimeout:  a.Config.HTTP.ReadTimeout,
		WriteTimeout: 0, // the reaction feed is long-lived
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		slog.Info("Available endpoints",
			"page", "/",
			"api", "/api/{status,transcript,key,chat,media}",
			"feed", "/ws/reaction",
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down gracefully...")
	// Pages hold the feed open; close it so Shutdown does not wait on them.
	a.Feed.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	slog.Info("Server stopped successfully")
	return nil
}
