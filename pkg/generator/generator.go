// Package generator turns single actions into executable snippets through an
// AI provider, with response sanitization and per-run caching.
//
// The generator never talks to the browser. It builds a prompt from the
// action and the current page context, asks the provider for a snippet,
// cleans the response, and caches the result so identical requests within a
// run cost nothing.
package generator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/entrhq/drover/pkg/instruction"
	"github.com/entrhq/drover/pkg/llm"
	"github.com/entrhq/drover/pkg/logging"
)

// GenerationError reports a failure to produce a usable snippet: the
// provider gave up after its internal retries, or the cleaned response was
// empty.
type GenerationError struct {
	Message string
	Cause   error
}

func (e *GenerationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *GenerationError) Unwrap() error { return e.Cause }

// Result carries one generated snippet and its cost accounting.
type Result struct {
	// Code is the sanitized snippet.
	Code string

	// Cached is true when the snippet was served from the cache without a
	// provider call.
	Cached bool

	// PromptTokens and CompletionTokens count the prompt and the raw
	// completion. Zero for cache hits, which cost nothing.
	PromptTokens     int
	CompletionTokens int
}

// Option configures a Generator.
type Option func(*Generator)

// WithDeniedModules replaces the default denied-module patterns used during
// response sanitization. Patterns use glob syntax.
func WithDeniedModules(patterns []string) Option {
	return func(g *Generator) {
		g.deniedPatterns = patterns
	}
}

// WithLogger attaches a session logger.
func WithLogger(logger *logging.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

// WithCaching toggles snippet reuse. Disabled, every request goes to the
// provider. Enabled by default.
func WithCaching(enabled bool) Option {
	return func(g *Generator) {
		g.caching = enabled
	}
}

// Generator produces snippets for actions.
type Generator struct {
	provider       llm.Provider
	cache          *Cache
	caching        bool
	filter         *moduleFilter
	deniedPatterns []string
	logger         *logging.Logger

	encoding     *tiktoken.Tiktoken
	encodingInit bool
}

// New creates a Generator backed by provider. Snippets are stored in cache;
// passing nil creates a private one.
func New(provider llm.Provider, cache *Cache, opts ...Option) (*Generator, error) {
	g := &Generator{
		provider:       provider,
		cache:          cache,
		caching:        true,
		deniedPatterns: defaultDeniedModules,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.cache == nil {
		g.cache = NewCache()
	}

	filter, err := newModuleFilter(g.deniedPatterns)
	if err != nil {
		return nil, err
	}
	g.filter = filter

	return g, nil
}

// Generate returns a snippet for the action. pageContext is a snapshot of
// the current page used to ground the prompt (may be empty); priorError is
// the previous attempt's error text, empty on the first attempt.
//
// The cache is consulted before any provider call: a hit returns the stored
// snippet with no external call. A fresh snippet is stored before it is
// returned.
func (g *Generator) Generate(ctx context.Context, action instruction.Action, pageContext, priorError string) (*Result, error) {
	key := cacheKey(action.Description, pageContext, priorError)
	if g.caching {
		if code, ok := g.cache.Get(key); ok {
			if g.logger != nil {
				g.logger.Debugf("cache hit for %q", action.Description)
			}
			return &Result{Code: code, Cached: true}, nil
		}
	}

	prompt := buildPrompt(action, pageContext, priorError)

	raw, err := g.provider.GenerateWithRetry(ctx, prompt)
	if err != nil {
		return nil, &GenerationError{
			Message: fmt.Sprintf("provider failed for %q", action.Description),
			Cause:   err,
		}
	}

	code, err := sanitizeResponse(g.filter, raw)
	if err != nil {
		return nil, err
	}

	if g.caching {
		g.cache.Put(key, code)
	}

	if g.logger != nil {
		g.logger.Debugf("generated %d-byte snippet for %q", len(code), action.Description)
	}

	return &Result{
		Code:             code,
		PromptTokens:     g.tokenCount(prompt),
		CompletionTokens: g.tokenCount(raw),
	}, nil
}

// CacheStats reports the effectiveness of the snippet cache.
func (g *Generator) CacheStats() CacheStats {
	return g.cache.Stats()
}

// cacheKey builds the lookup key. The page context can be large, so it is
// digested; the description and error stay verbatim. NUL separators keep
// the fields from bleeding into each other.
func cacheKey(description, pageContext, priorError string) string {
	digest := sha256.Sum256([]byte(pageContext))
	return description + "\x00" + hex.EncodeToString(digest[:]) + "\x00" + priorError
}

// tokenCount measures text against the provider's tokenizer. Counts are
// observability only, so a tokenizer that cannot be resolved disables
// counting rather than failing generation.
func (g *Generator) tokenCount(text string) int {
	enc := g.tokenizer()
	if enc == nil {
		return 0
	}
	return len(enc.Encode(text, nil, nil))
}

func (g *Generator) tokenizer() *tiktoken.Tiktoken {
	if g.encodingInit {
		return g.encoding
	}
	g.encodingInit = true

	enc, err := tiktoken.EncodingForModel(g.provider.ModelInfo().Name)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			if g.logger != nil {
				g.logger.Warnf("token counting disabled: %v", err)
			}
			return nil
		}
	}
	g.encoding = enc
	return enc
}
