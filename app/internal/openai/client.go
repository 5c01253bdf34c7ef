package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/marketconnect/catfart-gpt/app/domain/entities"
)

// Options configures a Client.
type Options struct {
	BaseURL         string
	Model           string
	MaxTokens       int
	Temperature     float64
	RateLimitPerMin int
	HTTPClient      *http.Client
}

// Client sends chat-completion requests, paced by a token-bucket limiter.
type Client struct {
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
	limiter     *rate.Limiter
}

// NewClient creates a Client. A non-positive RateLimitPerMin disables pacing.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimitPerMin > 0 {
		interval := time.Minute / time.Duration(opts.RateLimitPerMin)
		limiter = rate.NewLimiter(rate.Every(interval), 1)
	} else {
		slog.Warn("outbound rate limit disabled", "rate_limit_per_min", opts.RateLimitPerMin)
	}

	return &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		model:       opts.Model,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		httpClient:  httpClient,
		limiter:     limiter,
	}
}

type chatRequest struct {
	Model       string             `json:"model"`
	Messages    []entities.Message `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message *entities.Message `json:"message"`
	} `json:"choices"`
	Usage *chatUsage `json:"usage"`
}

// chatUsage keeps total_tokens nullable so a usage block without it is
// rejected instead of counting as zero.
type chatUsage struct {
	PromptTokens     int  `json:"prompt_tokens"`
	CompletionTokens int  `json:"completion_tokens"`
	TotalTokens      *int `json:"total_tokens"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends the full history and returns the top choice with usage.
func (c *Client) Complete(ctx context.Context, apiKey string, history []entities.Message) (*entities.Completion, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    history,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	targetURL := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	slog.Debug("sending chat completion", "url", targetURL, "messages", len(history), "body_bytes", len(body))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	slog.Debug("chat completion response", "status", resp.StatusCode, "body_bytes", len(respBody))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseAPIError(resp.StatusCode, respBody)
	}
	return ParseCompletion(respBody)
}

// ParseCompletion extracts the top choice and the usage block from a
// chat-completion response body.
func ParseCompletion(body []byte) (*entities.Completion, error) {
	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrMalformedResponse, err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message == nil {
		return nil, entities.ErrMissingChoice
	}
	if parsed.Usage == nil {
		return nil, entities.ErrMissingUsage
	}
	if parsed.Usage.TotalTokens == nil {
		return nil, fmt.Errorf("%w: total_tokens absent", entities.ErrMissingUsage)
	}

	msg := *parsed.Choices[0].Message
	if msg.Role == "" {
		msg.Role = entities.RoleAssistant
	}
	return &entities.Completion{Message: msg, Usage: entities.TokenUsage{
		PromptTokens:     parsed.Usage.PromptTokens,
		CompletionTokens: parsed.Usage.CompletionTokens,
		TotalTokens:      *parsed.Usage.TotalTokens,
	}}, nil
}

func parseAPIError(status int, body []byte) error {
	apiErr := &entities.APIError{StatusCode: status, Message: "API request failed"}
	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		apiErr.Message = parsed.Error.Message
	}
	return apiErr
}

// IsAPIError reports whether err came from a non-success API status.
func IsAPIError(err error) bool {
	var apiErr *entities.APIError
	return errors.As(err, &apiErr)
}
