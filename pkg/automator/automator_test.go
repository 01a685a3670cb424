package automator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/drover/pkg/browser"
	"github.com/entrhq/drover/pkg/config"
	"github.com/entrhq/drover/pkg/instruction"
	"github.com/entrhq/drover/pkg/llm"
)

// fakeSession records operations and can be scripted to fail.
type fakeSession struct {
	ops    []string
	failOn map[string]error
	closed bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{failOn: map[string]error{}}
}

func (f *fakeSession) call(name string, args ...string) error {
	f.ops = append(f.ops, fmt.Sprintf("%s(%s)", name, strings.Join(args, ", ")))
	if err, ok := f.failOn[name]; ok {
		return err
	}
	return nil
}

func (f *fakeSession) Navigate(url string) error    { return f.call("navigate", url) }
func (f *fakeSession) Refresh() error               { return f.call("refresh") }
func (f *fakeSession) FindElement(sel string) error { return f.call("find_element", sel) }
func (f *fakeSession) Click(sel string) error       { return f.call("click", sel) }
func (f *fakeSession) TypeText(sel, text string) error {
	return f.call("type_text", sel, text)
}
func (f *fakeSession) ClearAndType(sel, text string) error {
	return f.call("clear_and_type", sel, text)
}
func (f *fakeSession) SelectOption(sel, value string) error {
	return f.call("select_option", sel, value)
}
func (f *fakeSession) CheckCheckbox(sel string, checked bool) error {
	return f.call("check_checkbox", sel, fmt.Sprintf("%v", checked))
}
func (f *fakeSession) Scroll(direction browser.ScrollDirection) error {
	return f.call("scroll", string(direction))
}
func (f *fakeSession) Wait(seconds float64) error {
	return f.call("wait", fmt.Sprintf("%v", seconds))
}
func (f *fakeSession) Screenshot(path string) error { return f.call("screenshot", path) }
func (f *fakeSession) SavePDF(path string) (int, error) {
	return 1, f.call("save_pdf", path)
}
func (f *fakeSession) PageText() (string, error) {
	return "page text", f.call("get_page_text")
}
func (f *fakeSession) GetText(sel string) (string, error) {
	return "text", f.call("get_text", sel)
}
func (f *fakeSession) GetAttribute(sel, name string) (string, error) {
	return "attr", f.call("get_attribute", sel, name)
}
func (f *fakeSession) IsVisible(sel string) (bool, error) {
	return true, f.call("is_visible", sel)
}
func (f *fakeSession) IsEnabled(sel string) (bool, error) {
	return true, f.call("is_enabled", sel)
}
func (f *fakeSession) ExecuteScript(script string) (string, error) {
	return "", f.call("execute_script", script)
}
func (f *fakeSession) Metadata() (string, string, error) {
	return "https://example.com", "Example", nil
}
func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

// fakeLauncher hands out a fake session and counts lifecycle calls.
type fakeLauncher struct {
	session   *fakeSession
	launchErr error

	initCalls int
	launches  int
	shutdowns int
	lastOpts  browser.Options
}

func (f *fakeLauncher) Initialize() error {
	f.initCalls++
	return nil
}

func (f *fakeLauncher) Launch(opts browser.Options) (BrowserSession, error) {
	f.launches++
	f.lastOpts = opts
	if f.launchErr != nil {
		return nil, f.launchErr
	}
	return f.session, nil
}

func (f *fakeLauncher) Shutdown() error {
	f.shutdowns++
	return nil
}

// fakeProvider answers prompts by substring match against the embedded
// instruction text.
type fakeProvider struct {
	byNeedle map[string]string
	fallback string
	calls    int
}

func (f *fakeProvider) Generate(ctx context.Context, prompt string) (string, error) {
	return f.GenerateWithRetry(ctx, prompt)
}

func (f *fakeProvider) GenerateWithRetry(_ context.Context, prompt string) (string, error) {
	f.calls++
	for needle, response := range f.byNeedle {
		if strings.Contains(prompt, needle) {
			return response, nil
		}
	}
	return f.fallback, nil
}

func (f *fakeProvider) ModelInfo() llm.ModelInfo {
	return llm.ModelInfo{Provider: "fake", Name: "gpt-4o"}
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Automation.MaxAttempts = 2
	cfg.Automation.RetryDelay = 0
	cfg.Automation.ActionDelay = 0
	cfg.Automation.ScreenshotOnError = false
	return cfg
}

func newTestAutomator(t *testing.T, cfg *config.Config, provider *fakeProvider, opts ...Option) (*Automator, *fakeLauncher) {
	t.Helper()
	launcher := &fakeLauncher{session: newFakeSession()}
	auto, err := New(cfg, provider, append(opts, WithLauncher(launcher))...)
	require.NoError(t, err)
	return auto, launcher
}

func TestNewRejectsMissingProvider(t *testing.T) {
	_, err := New(testConfig(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider")
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Automation.MaxAttempts = 0
	_, err := New(cfg, &fakeProvider{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestRunExecutesActionsInOrder(t *testing.T) {
	provider := &fakeProvider{fallback: `env.click("#next")`}
	auto, launcher := newTestAutomator(t, testConfig(), provider)

	report, err := auto.Run(context.Background(), strings.Join([]string{
		"Go to the login page",
		"Click the login button",
		"Click the confirm button",
	}, "\n"))

	require.NoError(t, err)
	assert.True(t, report.Succeeded())
	assert.Equal(t, 3, report.Totals.Actions)
	assert.Equal(t, 3, report.Totals.Succeeded)
	assert.NotEmpty(t, report.RunID)

	require.Len(t, report.Actions, 3)
	for i, rec := range report.Actions {
		assert.Equal(t, i+1, rec.Index)
		assert.Equal(t, StatusSucceeded, rec.Status)
		assert.Equal(t, 1, rec.Attempts)
	}

	assert.Equal(t, []string{
		"click(#next)", "click(#next)", "click(#next)",
	}, launcher.session.ops)

	assert.Equal(t, 1, launcher.initCalls)
	assert.Equal(t, 1, launcher.launches)
	assert.Equal(t, 1, launcher.shutdowns)
	assert.True(t, launcher.session.closed)
}

func TestRunParseErrorAbortsBeforeLaunch(t *testing.T) {
	provider := &fakeProvider{fallback: `env.click("#x")`}
	auto, launcher := newTestAutomator(t, testConfig(), provider)

	report, err := auto.Run(context.Background(), "CALL missing_function")

	require.Error(t, err)
	var parseErr *instruction.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Nil(t, report)
	assert.Zero(t, launcher.initCalls, "parse errors must not touch the browser")
	assert.Zero(t, launcher.launches)
	assert.Zero(t, provider.calls)
}

func TestRunHaltsOnFirstFailure(t *testing.T) {
	provider := &fakeProvider{
		byNeedle: map[string]string{"broken": `env.explode("#x")`},
		fallback: `env.click("#ok")`,
	}
	auto, launcher := newTestAutomator(t, testConfig(), provider)

	report, err := auto.Run(context.Background(), strings.Join([]string{
		"Click the broken widget",
		"Click the next button",
	}, "\n"))

	require.NoError(t, err, "a failed action is reported, not returned as an error")
	assert.True(t, report.Halted)
	assert.False(t, report.Succeeded())

	require.Len(t, report.Actions, 2)
	assert.Equal(t, StatusFailed, report.Actions[0].Status)
	assert.Equal(t, 2, report.Actions[0].Attempts)
	assert.Contains(t, report.Actions[0].Error, "unknown operation env.explode")
	assert.Equal(t, StatusSkipped, report.Actions[1].Status)
	assert.Equal(t, 2, report.Actions[1].Index)

	assert.Equal(t, 1, report.Totals.Failed)
	assert.Equal(t, 1, report.Totals.Skipped)
	assert.Empty(t, launcher.session.ops, "rejected snippets never reach the browser")

	// Session release happens on the failure path too.
	assert.True(t, launcher.session.closed)
	assert.Equal(t, 1, launcher.shutdowns)
}

func TestRunContinuesPastFailureWhenConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.Automation.ContinueOnFailure = true
	provider := &fakeProvider{
		byNeedle: map[string]string{"broken": `env.explode("#x")`},
		fallback: `env.click("#ok")`,
	}
	auto, _ := newTestAutomator(t, cfg, provider)

	report, err := auto.Run(context.Background(), strings.Join([]string{
		"Click the broken widget",
		"Click the next button",
	}, "\n"))

	require.NoError(t, err)
	assert.False(t, report.Halted)
	require.Len(t, report.Actions, 2)
	assert.Equal(t, StatusFailed, report.Actions[0].Status)
	assert.Equal(t, StatusSucceeded, report.Actions[1].Status)
	assert.Equal(t, 1, report.Totals.Failed)
	assert.Equal(t, 1, report.Totals.Succeeded)
	assert.Zero(t, report.Totals.Skipped)
}

func TestRunFatalFailureHaltsDespiteContinue(t *testing.T) {
	cfg := testConfig()
	cfg.Automation.ContinueOnFailure = true
	provider := &fakeProvider{fallback: `env.click("#ok")`}
	auto, launcher := newTestAutomator(t, cfg, provider)
	launcher.session.failOn["click"] = browser.ErrSessionClosed

	report, err := auto.Run(context.Background(), strings.Join([]string{
		"Click the first button",
		"Click the second button",
	}, "\n"))

	require.NoError(t, err)
	assert.True(t, report.Halted)
	require.Len(t, report.Actions, 2)
	assert.Equal(t, StatusFailed, report.Actions[0].Status)
	assert.Equal(t, 1, report.Actions[0].Attempts, "fatal failures spend one attempt")
	assert.Equal(t, StatusSkipped, report.Actions[1].Status)
}

func TestRunLaunchFailureShutsDown(t *testing.T) {
	provider := &fakeProvider{fallback: `env.click("#x")`}
	auto, launcher := newTestAutomator(t, testConfig(), provider)
	launcher.launchErr = errors.New("no chromium")

	report, err := auto.Run(context.Background(), "Click the button")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to launch browser")
	assert.Nil(t, report)
	assert.Equal(t, 1, launcher.shutdowns, "a failed launch still releases the driver")
}

func TestRunCanceledContextSkipsRemainingActions(t *testing.T) {
	provider := &fakeProvider{fallback: `env.click("#ok")`}
	auto, _ := newTestAutomator(t, testConfig(), provider)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := auto.Run(ctx, strings.Join([]string{
		"Click the first button",
		"Click the second button",
	}, "\n"))

	require.NoError(t, err)
	assert.True(t, report.Halted)
	require.Len(t, report.Actions, 2)
	assert.Equal(t, StatusSkipped, report.Actions[1].Status)
}

func TestRunEmitsProgressEvents(t *testing.T) {
	provider := &fakeProvider{fallback: `env.click("#ok")`}
	var seen []string
	progress := func(ev Event) {
		seen = append(seen, fmt.Sprintf("%s %d/%d", ev.Kind, ev.Index, ev.Total))
		if ev.Kind == EventActionFinished {
			require.NotNil(t, ev.Record)
			assert.Equal(t, StatusSucceeded, ev.Record.Status)
		}
	}
	auto, _ := newTestAutomator(t, testConfig(), provider, WithProgress(progress))

	_, err := auto.Run(context.Background(), "Click the one button\nClick the other button")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"run_started 0/2",
		"action_started 1/2",
		"action_finished 1/2",
		"action_started 2/2",
		"action_finished 2/2",
	}, seen)
}

func TestRunGroupsRelatedInstructions(t *testing.T) {
	provider := &fakeProvider{fallback: `env.click("#ok")`}
	auto, _ := newTestAutomator(t, testConfig(), provider, WithGroupRelated(true))

	report, err := auto.Run(context.Background(), strings.Join([]string{
		"Click the login button",
		"then type admin into the username field",
		"Navigate to the dashboard",
	}, "\n"))

	require.NoError(t, err)
	assert.Equal(t, 2, report.Totals.Actions)
	assert.Contains(t, report.Actions[0].Description, "then type admin")
}

func TestRunRejectsEmptyInstructions(t *testing.T) {
	provider := &fakeProvider{fallback: `env.click("#x")`}
	auto, launcher := newTestAutomator(t, testConfig(), provider)

	_, err := auto.Run(context.Background(), "# just a comment\n\n")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no actions")
	assert.Zero(t, launcher.launches)
}

func TestRunCacheServesRepeatedActions(t *testing.T) {
	provider := &fakeProvider{fallback: `env.click("#refresh")`}
	auto, _ := newTestAutomator(t, testConfig(), provider)

	report, err := auto.Run(context.Background(), strings.Join([]string{
		"Click the refresh button",
		"Click the refresh button",
		"Click the refresh button",
	}, "\n"))

	require.NoError(t, err)
	assert.Equal(t, 1, provider.calls, "identical actions reuse the cached snippet")
	assert.Equal(t, 2, report.Totals.CacheHits)
	assert.False(t, report.Actions[0].Cached)
	assert.True(t, report.Actions[1].Cached)
	assert.True(t, report.Actions[2].Cached)
}

func TestRunCacheCanBeDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Automation.CacheEnabled = false
	provider := &fakeProvider{fallback: `env.click("#refresh")`}
	auto, _ := newTestAutomator(t, cfg, provider)

	_, err := auto.Run(context.Background(), "Click the refresh button\nClick the refresh button")

	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls)
}

func TestRunWritesArtifacts(t *testing.T) {
	cfg := testConfig()
	cfg.Automation.ArtifactsEnabled = true
	cfg.Automation.ArtifactsDir = t.TempDir()
	provider := &fakeProvider{fallback: `env.click("#ok")`}
	auto, _ := newTestAutomator(t, cfg, provider)

	report, err := auto.Run(context.Background(), "Click the button")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(cfg.Automation.ArtifactsDir, "execution.json"))
	require.NoError(t, err)
	var written Report
	require.NoError(t, json.Unmarshal(data, &written))
	assert.Equal(t, report.RunID, written.RunID)
	require.Len(t, written.Actions, 1)
	assert.Equal(t, StatusSucceeded, written.Actions[0].Status)

	md, err := os.ReadFile(filepath.Join(cfg.Automation.ArtifactsDir, "summary.md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), "# Drover Run Summary")
	assert.Contains(t, string(md), report.RunID)
}

func TestRunFileLoadsYAMLInstructions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "steps.yaml")
	yaml := "instructions:\n  - Click the login button\n  - Click the confirm button\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0600))

	provider := &fakeProvider{fallback: `env.click("#ok")`}
	auto, _ := newTestAutomator(t, testConfig(), provider)

	report, err := auto.RunFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Totals.Actions)
	assert.Equal(t, path, report.Source)
}
