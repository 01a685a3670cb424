package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/drover/pkg/browser"
	"github.com/entrhq/drover/pkg/generator"
	"github.com/entrhq/drover/pkg/instruction"
)

// fakeGenerator replays scripted snippets or errors and records what the
// engine asked for.
type fakeGenerator struct {
	snippets    []string
	errs        []error
	calls       int
	priorErrors []string
	contexts    []string
}

func (f *fakeGenerator) Generate(_ context.Context, _ instruction.Action, pageContext, priorError string) (*generator.Result, error) {
	idx := f.calls
	f.calls++
	f.priorErrors = append(f.priorErrors, priorError)
	f.contexts = append(f.contexts, pageContext)

	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	snippet := f.snippets[len(f.snippets)-1]
	if idx < len(f.snippets) {
		snippet = f.snippets[idx]
	}
	return &generator.Result{Code: snippet, PromptTokens: 10, CompletionTokens: 5}, nil
}

func clickAction() instruction.Action {
	return instruction.Action{
		Type:        instruction.TypeClick,
		Description: "Click the submit button",
		Line:        1,
	}
}

func TestExecuteSucceedsOnFirstAttempt(t *testing.T) {
	fake := newFakeBrowser()
	gen := &fakeGenerator{snippets: []string{`env.click("#submit")`}}
	eng := New(gen, fake, WithRetryDelay(0))

	res := eng.Execute(context.Background(), clickAction())

	assert.True(t, res.Success)
	assert.NoError(t, res.Err)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 1, gen.calls)
	assert.Empty(t, res.ScreenshotPath)
	assert.Equal(t, []State{StatePending, StateGenerating, StateRunning, StateSuccess}, res.States)
	assert.Equal(t, `env.click("#submit")`, res.Snippet)
	assert.Equal(t, 10, res.PromptTokens)
	assert.Equal(t, 5, res.CompletionTokens)
}

func TestExecuteExhaustsAttemptsThenScreenshots(t *testing.T) {
	fake := newFakeBrowser()
	fake.failOn["click"] = errors.New("timeout waiting for selector")
	gen := &fakeGenerator{snippets: []string{`env.click("#gone")`}}
	eng := New(gen, fake, WithMaxAttempts(3), WithRetryDelay(0))

	res := eng.Execute(context.Background(), clickAction())

	assert.False(t, res.Success)
	require.Error(t, res.Err)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 3, gen.calls, "each attempt generates once")
	assert.Equal(t, []State{
		StatePending,
		StateGenerating, StateRunning, StateRetrying,
		StateGenerating, StateRunning, StateRetrying,
		StateGenerating, StateRunning,
		StateFailed,
	}, res.States)

	// First attempt has no prior error; later attempts carry the last one.
	require.Len(t, gen.priorErrors, 3)
	assert.Empty(t, gen.priorErrors[0])
	assert.Contains(t, gen.priorErrors[1], "env.click failed")
	assert.Contains(t, gen.priorErrors[2], "timeout waiting for selector")

	// The terminal failure captured a screenshot.
	wantPath := filepath.Join("error_screenshots", "error_1.png")
	assert.Equal(t, wantPath, res.ScreenshotPath)
	assert.Contains(t, fake.ops, "screenshot("+wantPath+")")
}

func TestExecuteFailsTwiceThenSucceeds(t *testing.T) {
	fake := newFakeBrowser()
	fake.failOn["click"] = errors.New("element not interactable")
	fake.failLimit = 2
	gen := &fakeGenerator{snippets: []string{`env.click("#flaky")`}}
	eng := New(gen, fake, WithMaxAttempts(3), WithRetryDelay(0))

	res := eng.Execute(context.Background(), clickAction())

	assert.True(t, res.Success)
	assert.NoError(t, res.Err)
	assert.Equal(t, 3, res.Attempts)
	assert.Empty(t, res.ScreenshotPath)
	assert.NotContains(t, res.States, StateFailed)
	assert.Equal(t, StateSuccess, res.States[len(res.States)-1])

	for _, op := range fake.ops {
		assert.NotContains(t, op, "screenshot", "success must not attempt a screenshot")
	}
}

func TestExecuteFatalFailureBypassesRetry(t *testing.T) {
	fake := newFakeBrowser()
	fake.failOn["click"] = browser.ErrSessionClosed
	gen := &fakeGenerator{snippets: []string{`env.click("#a")`}}
	eng := New(gen, fake, WithMaxAttempts(3), WithRetryDelay(0))

	res := eng.Execute(context.Background(), clickAction())

	assert.False(t, res.Success)
	assert.True(t, IsFatal(res.Err))
	assert.Equal(t, 1, res.Attempts, "fatal failures must not consume the budget")
	assert.Equal(t, 1, gen.calls)
	assert.Empty(t, res.ScreenshotPath, "fatal failures skip the screenshot")
	assert.Equal(t, []State{StatePending, StateGenerating, StateRunning, StateFailed}, res.States)
}

func TestExecuteGenerationFailureConsumesAttempt(t *testing.T) {
	fake := newFakeBrowser()
	genErr := &generator.GenerationError{Message: "model returned no usable code"}
	gen := &fakeGenerator{
		errs:     []error{genErr, nil},
		snippets: []string{"", `env.click("#submit")`},
	}
	eng := New(gen, fake, WithMaxAttempts(3), WithRetryDelay(0))

	res := eng.Execute(context.Background(), clickAction())

	assert.True(t, res.Success)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, 2, gen.calls)
	assert.Contains(t, gen.priorErrors[1], "no usable code")
	assert.Equal(t, []State{
		StatePending,
		StateGenerating, StateRetrying,
		StateGenerating, StateRunning,
		StateSuccess,
	}, res.States)
	assert.Equal(t, []string{"click(#submit)"}, fake.ops, "failed generations never touch the browser")
}

func TestExecuteRejectedSnippetRetriesWithFeedback(t *testing.T) {
	fake := newFakeBrowser()
	gen := &fakeGenerator{snippets: []string{
		`env.launch_missiles()`,
		`env.click("#submit")`,
	}}
	eng := New(gen, fake, WithMaxAttempts(3), WithRetryDelay(0))

	res := eng.Execute(context.Background(), clickAction())

	assert.True(t, res.Success)
	assert.Equal(t, 2, res.Attempts)
	assert.Contains(t, gen.priorErrors[1], "unknown operation env.launch_missiles")
	assert.Equal(t, []string{"click(#submit)"}, fake.ops, "rejected snippets never touch the browser")
}

func TestExecuteScreenshotNumberingAcrossRun(t *testing.T) {
	fake := newFakeBrowser()
	fake.failOn["click"] = errors.New("nope")
	gen := &fakeGenerator{snippets: []string{`env.click("#a")`}}
	eng := New(gen, fake, WithMaxAttempts(1), WithRetryDelay(0))

	first := eng.Execute(context.Background(), clickAction())
	second := eng.Execute(context.Background(), clickAction())

	assert.Equal(t, filepath.Join("error_screenshots", "error_1.png"), first.ScreenshotPath)
	assert.Equal(t, filepath.Join("error_screenshots", "error_2.png"), second.ScreenshotPath)
}

func TestExecuteScreenshotFailureDoesNotMaskError(t *testing.T) {
	fake := newFakeBrowser()
	fake.failOn["click"] = errors.New("timeout")
	fake.failOn["screenshot"] = errors.New("disk full")
	gen := &fakeGenerator{snippets: []string{`env.click("#a")`}}
	eng := New(gen, fake, WithMaxAttempts(1), WithRetryDelay(0))

	res := eng.Execute(context.Background(), clickAction())

	assert.False(t, res.Success)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "timeout", "the action error survives the capture failure")
	assert.Empty(t, res.ScreenshotPath, "a failed capture reports no path")
}

func TestExecuteScreenshotsCanBeDisabled(t *testing.T) {
	fake := newFakeBrowser()
	fake.failOn["click"] = errors.New("nope")
	gen := &fakeGenerator{snippets: []string{`env.click("#a")`}}
	eng := New(gen, fake, WithMaxAttempts(1), WithRetryDelay(0), WithScreenshotOnError(false))

	res := eng.Execute(context.Background(), clickAction())

	assert.Empty(t, res.ScreenshotPath)
	for _, op := range fake.ops {
		assert.NotContains(t, op, "screenshot")
	}
}

func TestExecuteCanceledContextStopsRetries(t *testing.T) {
	fake := newFakeBrowser()
	fake.failOn["click"] = errors.New("timeout")
	gen := &fakeGenerator{snippets: []string{`env.click("#a")`}}
	eng := New(gen, fake, WithMaxAttempts(3), WithRetryDelay(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := eng.Execute(ctx, clickAction())

	assert.False(t, res.Success)
	assert.True(t, IsFatal(res.Err))
	assert.Equal(t, 1, gen.calls, "no further generation after cancellation")
	assert.Equal(t, StateFailed, res.States[len(res.States)-1])
	assert.Empty(t, res.ScreenshotPath)
}

func TestExecuteFeedsPageContextToGenerator(t *testing.T) {
	fake := newFakeBrowser()
	fake.url = "https://shop.example.com/cart"
	fake.title = "Your cart"
	gen := &fakeGenerator{snippets: []string{`env.click("#checkout")`}}
	eng := New(gen, fake, WithRetryDelay(0))

	eng.Execute(context.Background(), clickAction())

	require.Len(t, gen.contexts, 1)
	assert.Equal(t, "URL: https://shop.example.com/cart\nTitle: Your cart", gen.contexts[0])
}

func TestExecuteSuccessCarriesSnippetOutput(t *testing.T) {
	fake := newFakeBrowser()
	fake.pageText = "Welcome back, Ada"
	gen := &fakeGenerator{snippets: []string{`env.get_page_text()`}}
	eng := New(gen, fake, WithRetryDelay(0))

	res := eng.Execute(context.Background(), clickAction())

	assert.True(t, res.Success)
	assert.Equal(t, "Welcome back, Ada", res.Output)
}
