// Package llm provides abstractions for AI provider integration.
//
// Example usage:
//
//	package main
//
//	import (
//	    "context"
//	    "fmt"
//	    "log"
//	    "os"
//
//	    "github.com/entrhq/drover/pkg/llm/openai"
//	)
//
//	func main() {
//	    provider, err := openai.NewProvider(
//	        os.Getenv("OPENAI_API_KEY"),
//	        openai.WithModel("gpt-4o"),
//	    )
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    code, err := provider.GenerateWithRetry(
//	        context.Background(),
//	        "Write a snippet that navigates to https://example.com",
//	    )
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(code)
//	}
package llm

import "context"

// Provider defines the interface for AI completion backends.
//
// Providers handle API communication with the model service and return raw
// completion text. This design keeps providers focused on transport
// concerns; prompt construction, response cleaning, and caching live in the
// generator layer.
type Provider interface {
	// Generate sends a prompt to the model and returns the completion text.
	//
	// Transient failures (rate limits, 5xx responses, timeouts) are not
	// retried here; use GenerateWithRetry for that.
	Generate(ctx context.Context, prompt string) (string, error)

	// GenerateWithRetry behaves like Generate but retries transient
	// failures with exponential backoff up to the provider's configured
	// retry budget. Permanent failures (authentication, malformed
	// requests) are returned immediately.
	GenerateWithRetry(ctx context.Context, prompt string) (string, error)

	// ModelInfo returns information about the model being used.
	ModelInfo() ModelInfo
}

// ModelInfo describes the model behind a provider.
type ModelInfo struct {
	// Provider is the backend name, e.g. "openai".
	Provider string

	// Name is the model identifier, e.g. "gpt-4o". Token accounting uses
	// this to select a tokenizer encoding.
	Name string

	// BaseURL is the API endpoint the provider talks to.
	BaseURL string
}
