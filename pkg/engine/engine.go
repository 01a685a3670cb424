// Package engine executes actions: it asks the generator for a snippet,
// runs it through the restricted scope, and retries with error feedback
// until the action succeeds or its attempt budget is spent. Each action
// moves through an explicit state machine whose trace is kept on the Result.
package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/entrhq/drover/pkg/generator"
	"github.com/entrhq/drover/pkg/instruction"
	"github.com/entrhq/drover/pkg/logging"
)

const (
	// DefaultMaxAttempts is the per-action attempt budget.
	DefaultMaxAttempts = 3

	// DefaultRetryDelay is the fixed wait between attempts.
	DefaultRetryDelay = time.Second

	// DefaultScreenshotDir is where terminal-failure screenshots land.
	DefaultScreenshotDir = "error_screenshots"
)

// SnippetGenerator produces code for an action. *generator.Generator
// implements it.
type SnippetGenerator interface {
	Generate(ctx context.Context, action instruction.Action, pageContext, priorError string) (*generator.Result, error)
}

// Result is the outcome of executing one action.
type Result struct {
	// Action is the action that was executed.
	Action instruction.Action

	// Success is true when a snippet ran to completion.
	Success bool

	// Output collects the text produced by the snippet's read operations.
	Output string

	// Err is the terminal error of a failed action, nil on success.
	Err error

	// Attempts is how many generation+execution attempts were made.
	Attempts int

	// States is the full lifecycle trace, starting at StatePending.
	States []State

	// Snippet is the last generated code, kept for display and artifacts.
	Snippet string

	// Cached is true when the last snippet came from the cache.
	Cached bool

	// PromptTokens and CompletionTokens accumulate across attempts.
	PromptTokens     int
	CompletionTokens int

	// ScreenshotPath is set when a terminal-failure screenshot was captured.
	ScreenshotPath string

	// Elapsed is the wall-clock time the action took.
	Elapsed time.Duration
}

func (r *Result) push(s State) {
	r.States = append(r.States, s)
}

// Engine runs actions against a browser through the restricted scope.
type Engine struct {
	generator         SnippetGenerator
	browser           Browser
	scope             *Scope
	logger            *logging.Logger
	maxAttempts       int
	retryDelay        time.Duration
	screenshotOnError bool
	screenshotDir     string

	// failures numbers error screenshots across the run.
	failures int
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxAttempts sets the per-action attempt budget.
func WithMaxAttempts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

// WithRetryDelay sets the fixed wait between attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.retryDelay = d
	}
}

// WithScreenshotOnError enables or disables terminal-failure screenshots.
func WithScreenshotOnError(enabled bool) Option {
	return func(e *Engine) {
		e.screenshotOnError = enabled
	}
}

// WithScreenshotDir sets where terminal-failure screenshots are written.
func WithScreenshotDir(dir string) Option {
	return func(e *Engine) {
		if dir != "" {
			e.screenshotDir = dir
		}
	}
}

// WithLogger attaches a session logger.
func WithLogger(logger *logging.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an engine bound to a generator and a browser session.
func New(gen SnippetGenerator, b Browser, opts ...Option) *Engine {
	e := &Engine{
		generator:         gen,
		browser:           b,
		scope:             NewScope(b),
		maxAttempts:       DefaultMaxAttempts,
		retryDelay:        DefaultRetryDelay,
		screenshotOnError: true,
		screenshotDir:     DefaultScreenshotDir,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger, _ = logging.NewLogger("engine")
	}
	return e
}

// Execute runs one action to success or terminal failure. A failed
// generation or a recoverable execution failure consumes an attempt and
// feeds its error text into the next attempt's prompt; fatal failures end
// the action immediately with the remaining budget unspent. After the last
// failed attempt a screenshot is captured best-effort.
func (e *Engine) Execute(ctx context.Context, action instruction.Action) *Result {
	start := time.Now()
	res := &Result{Action: action}
	res.push(StatePending)

	e.logger.Infof("executing action: %s", action.Description)

	var priorError string
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		res.Attempts = attempt

		if attempt > 1 {
			e.logger.Infof("retrying %q (attempt %d/%d)", action.Description, attempt, e.maxAttempts)
			if err := e.waitBeforeRetry(ctx); err != nil {
				res.Err = &ExecutionError{Class: Fatal, Message: "retry wait interrupted", Cause: err}
				res.push(StateFailed)
				res.Elapsed = time.Since(start)
				return res
			}
		}

		res.push(StateGenerating)
		gen, err := e.generator.Generate(ctx, action, e.pageContext(), priorError)
		if err != nil {
			e.logger.Errorf("generation failed on attempt %d/%d: %v", attempt, e.maxAttempts, err)
			res.Err = err
			if IsFatal(err) {
				res.push(StateFailed)
				res.Elapsed = time.Since(start)
				return res
			}
			priorError = err.Error()
			if attempt < e.maxAttempts {
				res.push(StateRetrying)
				continue
			}
			break
		}

		res.Snippet = gen.Code
		res.Cached = gen.Cached
		res.PromptTokens += gen.PromptTokens
		res.CompletionTokens += gen.CompletionTokens

		res.push(StateRunning)
		output, execErr := e.scope.Run(gen.Code)
		if execErr == nil {
			res.Success = true
			res.Output = output
			res.Err = nil
			res.push(StateSuccess)
			res.Elapsed = time.Since(start)
			e.logger.Infof("action succeeded on attempt %d/%d", attempt, e.maxAttempts)
			return res
		}

		e.logger.Errorf("execution failed on attempt %d/%d: %v", attempt, e.maxAttempts, execErr)
		res.Err = execErr
		if IsFatal(execErr) {
			res.push(StateFailed)
			res.Elapsed = time.Since(start)
			return res
		}
		priorError = execErr.Error()
		if attempt < e.maxAttempts {
			res.push(StateRetrying)
		}
	}

	res.push(StateFailed)
	if e.screenshotOnError {
		e.captureFailureScreenshot(res)
	}
	res.Elapsed = time.Since(start)
	return res
}

// waitBeforeRetry blocks for the configured delay, bailing out when the
// context is canceled.
func (e *Engine) waitBeforeRetry(ctx context.Context) error {
	if e.retryDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(e.retryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// pageContext describes the current page for the generator's prompt.
// Best-effort: a page that cannot be read yields an empty context.
func (e *Engine) pageContext() string {
	url, title, err := e.browser.Metadata()
	if err != nil {
		e.logger.Debugf("page context unavailable: %v", err)
		return ""
	}
	return fmt.Sprintf("URL: %s\nTitle: %s", url, title)
}

// captureFailureScreenshot saves the page as error_{N}.png, numbering
// failures across the run. Capture errors are logged, never escalated.
func (e *Engine) captureFailureScreenshot(res *Result) {
	e.failures++
	path := filepath.Join(e.screenshotDir, fmt.Sprintf("error_%d.png", e.failures))
	if err := e.browser.Screenshot(path); err != nil {
		e.logger.Warnf("%v", &ScreenshotError{Path: path, Cause: err})
		return
	}
	e.logger.Infof("error screenshot saved to %s", path)
	res.ScreenshotPath = path
}
