// Package automator wires the pipeline end to end: instructions parse into
// actions, a browser session is launched, and each action runs through the
// engine in source order. Parsing happens before any browser resource is
// touched, and the session is released on every exit path.
package automator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/entrhq/drover/pkg/browser"
	"github.com/entrhq/drover/pkg/config"
	"github.com/entrhq/drover/pkg/engine"
	"github.com/entrhq/drover/pkg/generator"
	"github.com/entrhq/drover/pkg/instruction"
	"github.com/entrhq/drover/pkg/llm"
	"github.com/entrhq/drover/pkg/logging"
)

// BrowserSession is the browser surface the automator drives: the engine's
// operation set plus release. *browser.Session implements it.
type BrowserSession interface {
	engine.Browser
	Close() error
}

// SessionLauncher owns browser infrastructure. *browser.Launcher implements
// it through the playwright adapter below; tests substitute fakes.
type SessionLauncher interface {
	Initialize() error
	Launch(opts browser.Options) (BrowserSession, error)
	Shutdown() error
}

// playwrightLauncher adapts *browser.Launcher to SessionLauncher.
type playwrightLauncher struct {
	*browser.Launcher
}

func (p playwrightLauncher) Launch(opts browser.Options) (BrowserSession, error) {
	return p.Launcher.Launch(opts)
}

// Automator runs instruction scripts against a browser.
type Automator struct {
	cfg      *config.Config
	provider llm.Provider
	launcher SessionLauncher
	progress ProgressFunc
	logger   *logging.Logger
	group    bool
}

// Option configures an Automator.
type Option func(*Automator)

// WithLauncher substitutes the browser infrastructure, used by tests.
func WithLauncher(l SessionLauncher) Option {
	return func(a *Automator) {
		a.launcher = l
	}
}

// WithProgress registers a synchronous progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(a *Automator) {
		a.progress = fn
	}
}

// WithGroupRelated merges continuation instructions ("then ...", "and ...")
// into their predecessor before execution.
func WithGroupRelated(enabled bool) Option {
	return func(a *Automator) {
		a.group = enabled
	}
}

// WithLogger attaches a session logger.
func WithLogger(logger *logging.Logger) Option {
	return func(a *Automator) {
		a.logger = logger
	}
}

// New creates an Automator for the given configuration and provider.
func New(cfg *config.Config, provider llm.Provider, opts ...Option) (*Automator, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if provider == nil {
		return nil, errors.New("a model provider is required")
	}

	a := &Automator{
		cfg:      cfg,
		provider: provider,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.launcher == nil {
		a.launcher = playwrightLauncher{browser.NewLauncher()}
	}
	if a.logger == nil {
		a.logger, _ = logging.NewLogger("automator")
	}
	return a, nil
}

// Run parses text as an instruction script and executes it.
func (a *Automator) Run(ctx context.Context, text string) (*Report, error) {
	actions, err := instruction.Parse(text)
	if err != nil {
		return nil, err
	}
	return a.run(ctx, "inline", actions)
}

// RunFile loads instructions from path (plain text or YAML) and executes
// them.
func (a *Automator) RunFile(ctx context.Context, path string) (*Report, error) {
	actions, err := instruction.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return a.run(ctx, path, actions)
}

func (a *Automator) run(ctx context.Context, source string, actions []instruction.Action) (*Report, error) {
	if a.group {
		actions = instruction.GroupRelated(actions)
	}
	if len(actions) == 0 {
		return nil, errors.New("instructions contain no actions")
	}

	cache := generator.NewCache()
	gen, err := generator.New(a.provider, cache,
		generator.WithCaching(a.cfg.Automation.CacheEnabled),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}

	report := &Report{
		RunID:     uuid.NewString(),
		Source:    source,
		StartTime: time.Now(),
	}

	a.logger.Infof("run %s: %d action(s) from %s", report.RunID, len(actions), source)
	a.emit(Event{Kind: EventRunStarted, Total: len(actions)})

	if err := a.launcher.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize browser infrastructure: %w", err)
	}
	session, err := a.launcher.Launch(a.browserOptions())
	if err != nil {
		if serr := a.launcher.Shutdown(); serr != nil {
			a.logger.Warnf("shutdown after failed launch: %v", serr)
		}
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			a.logger.Warnf("browser close failed: %v", cerr)
		}
		if serr := a.launcher.Shutdown(); serr != nil {
			a.logger.Warnf("browser shutdown failed: %v", serr)
		}
	}()

	eng := engine.New(gen, session,
		engine.WithMaxAttempts(a.cfg.Automation.MaxAttempts),
		engine.WithRetryDelay(a.cfg.Automation.RetryDelayDuration()),
		engine.WithScreenshotOnError(a.cfg.Automation.ScreenshotOnError),
		engine.WithScreenshotDir(a.cfg.Automation.ScreenshotDir),
	)

	total := len(actions)
	for i, action := range actions {
		if i > 0 {
			if err := a.waitBetweenActions(ctx); err != nil {
				a.logger.Warnf("run interrupted between actions: %v", err)
				report.Halted = true
				skipRemaining(report, actions[i:], i+1)
				break
			}
		}

		a.emit(Event{Kind: EventActionStarted, Index: i + 1, Total: total, Action: action})
		res := eng.Execute(ctx, action)

		report.Actions = append(report.Actions, actionRecord(i+1, action, res))
		rec := &report.Actions[len(report.Actions)-1]
		a.emit(Event{Kind: EventActionFinished, Index: i + 1, Total: total, Action: action, Record: rec})

		if res.Success {
			continue
		}

		fatal := engine.IsFatal(res.Err)
		if fatal {
			a.logger.Errorf("action %d failed fatally, halting: %v", i+1, res.Err)
		}
		if fatal || !a.cfg.Automation.ContinueOnFailure {
			report.Halted = i+1 < total
			skipRemaining(report, actions[i+1:], i+2)
			break
		}
		a.logger.Warnf("action %d failed, continuing: %v", i+1, res.Err)
	}

	report.EndTime = time.Now()
	report.Duration = report.EndTime.Sub(report.StartTime)
	report.tally()
	stats := gen.CacheStats()
	report.Totals.CacheHits = stats.Hits
	report.Totals.CacheMisses = stats.Misses

	a.logger.Infof("run %s finished: %d succeeded, %d failed, %d skipped",
		report.RunID, report.Totals.Succeeded, report.Totals.Failed, report.Totals.Skipped)

	if a.cfg.Automation.ArtifactsEnabled {
		if err := NewArtifactWriter(a.cfg.Automation.ArtifactsDir).WriteAll(report); err != nil {
			a.logger.Warnf("artifact write failed: %v", err)
		}
	}

	return report, nil
}

// skipRemaining records the actions a halted run never reached. firstIndex
// is the 1-based position of the first unreached action.
func skipRemaining(report *Report, remaining []instruction.Action, firstIndex int) {
	for j, action := range remaining {
		report.Actions = append(report.Actions, ActionRecord{
			Index:       firstIndex + j,
			Description: action.Description,
			Type:        string(action.Type),
			Status:      StatusSkipped,
		})
	}
}

// waitBetweenActions pauses for the configured inter-action delay, bailing
// out when the context is canceled.
func (a *Automator) waitBetweenActions(ctx context.Context) error {
	delay := a.cfg.Automation.ActionDelayDuration()
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (a *Automator) emit(ev Event) {
	if a.progress != nil {
		a.progress(ev)
	}
}

func (a *Automator) browserOptions() browser.Options {
	return browser.Options{
		Headless: a.cfg.Browser.Headless,
		Viewport: browser.Viewport{
			Width:  a.cfg.Browser.ViewportWidth,
			Height: a.cfg.Browser.ViewportHeight,
		},
		UserAgent: a.cfg.Browser.UserAgent,
		SlowMo:    a.cfg.Browser.SlowMo,
		Timeout:   a.cfg.Browser.Timeout,
	}
}

func actionRecord(index int, action instruction.Action, res *engine.Result) ActionRecord {
	rec := ActionRecord{
		Index:            index,
		Description:      action.Description,
		Type:             string(action.Type),
		Status:           StatusFailed,
		Attempts:         res.Attempts,
		Snippet:          res.Snippet,
		Cached:           res.Cached,
		Output:           res.Output,
		ScreenshotPath:   res.ScreenshotPath,
		PromptTokens:     res.PromptTokens,
		CompletionTokens: res.CompletionTokens,
		Elapsed:          res.Elapsed,
	}
	if res.Success {
		rec.Status = StatusSucceeded
	} else if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	return rec
}
