// Package openai provides an OpenAI-compatible provider implementation.
//
// Example usage:
//
//	package main
//
//	import (
//	    "context"
//	    "fmt"
//	    "os"
//
//	    "github.com/entrhq/drover/pkg/llm/openai"
//	)
//
//	func main() {
//	    provider, err := openai.NewProvider(
//	        os.Getenv("OPENAI_API_KEY"),
//	        openai.WithModel("gpt-4o"),
//	        openai.WithTemperature(0),
//	    )
//	    if err != nil {
//	        panic(err)
//	    }
//
//	    code, err := provider.Generate(context.Background(), "Say hello")
//	    if err != nil {
//	        panic(err)
//	    }
//	    fmt.Println(code)
//	}
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/entrhq/drover/pkg/llm"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	// DefaultBaseURL is the default OpenAI API base URL
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o"

	// DefaultMaxRetries is the transient-failure retry budget.
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the initial backoff; it doubles per retry.
	DefaultRetryDelay = 2 * time.Second
)

// Provider implements llm.Provider against OpenAI-compatible chat APIs.
type Provider struct {
	client      openai.Client
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxRetries  int
	retryDelay  time.Duration
}

// ProviderOption is a function that configures a Provider.
type ProviderOption func(*Provider)

// WithModel sets the model to use for completions.
func WithModel(model string) ProviderOption {
	return func(p *Provider) {
		p.model = model
	}
}

// WithBaseURL sets a custom base URL for OpenAI-compatible APIs.
// This enables using Azure OpenAI, local models, or other compatible services.
func WithBaseURL(baseURL string) ProviderOption {
	return func(p *Provider) {
		p.baseURL = baseURL
	}
}

// WithTemperature sets the sampling temperature for completions.
func WithTemperature(temperature float64) ProviderOption {
	return func(p *Provider) {
		p.temperature = temperature
	}
}

// WithMaxRetries sets the retry budget for transient failures.
func WithMaxRetries(n int) ProviderOption {
	return func(p *Provider) {
		p.maxRetries = n
	}
}

// WithRetryDelay sets the initial backoff between retries.
func WithRetryDelay(d time.Duration) ProviderOption {
	return func(p *Provider) {
		p.retryDelay = d
	}
}

// NewProvider creates a new OpenAI provider with the given API key.
//
// If apiKey is empty, it will attempt to read from the OPENAI_API_KEY
// environment variable. If baseURL is not provided via WithBaseURL, the
// OPENAI_BASE_URL environment variable is checked.
//
// Example:
//
//	// Standard OpenAI
//	provider, _ := openai.NewProvider("sk-...", openai.WithModel("gpt-4o"))
//
//	// Local OpenAI-compatible API
//	provider, _ := openai.NewProvider("local",
//	    openai.WithBaseURL("http://localhost:8080/v1"))
func NewProvider(apiKey string, opts ...ProviderOption) (*Provider, error) {
	// Use environment variable if no API key provided
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required (provide via parameter or OPENAI_API_KEY environment variable)")
	}

	p := &Provider{
		model:       DefaultModel,
		apiKey:      apiKey,
		baseURL:     DefaultBaseURL,
		temperature: 0,
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
	}

	for _, opt := range opts {
		opt(p)
	}

	// If baseURL wasn't set by options, check environment variable
	if p.baseURL == DefaultBaseURL {
		if envBaseURL := os.Getenv("OPENAI_BASE_URL"); envBaseURL != "" {
			p.baseURL = envBaseURL
		}
	}

	p.client = openai.NewClient(
		option.WithAPIKey(p.apiKey),
		option.WithBaseURL(p.baseURL),
		// The SDK retries on its own; our retry loop owns that concern.
		option.WithMaxRetries(0),
	)

	return p, nil
}

// Generate sends a prompt to the chat completions API and returns the
// completion text.
func (p *Provider) Generate(ctx context.Context, prompt string) (string, error) {
	completion, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(p.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}

	return completion.Choices[0].Message.Content, nil
}

// GenerateWithRetry retries transient failures with exponential backoff.
// Permanent failures are returned immediately.
func (p *Provider) GenerateWithRetry(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	delay := p.retryDelay

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			delay *= 2
		}

		result, err := p.Generate(ctx, prompt)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isTransient(err) {
			return "", err
		}
	}

	return "", fmt.Errorf("completion failed after %d retries: %w", p.maxRetries, lastErr)
}

// ModelInfo returns information about the model being used.
func (p *Provider) ModelInfo() llm.ModelInfo {
	return llm.ModelInfo{
		Provider: "openai",
		Name:     p.model,
		BaseURL:  p.baseURL,
	}
}

// isTransient reports whether an error is worth retrying: rate limits,
// server-side failures, and network-level interruptions.
func isTransient(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}

	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"timeout",
		"connection refused",
		"connection reset",
		"temporary failure",
		"no such host",
		"eof",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	return false
}
