package browser

import (
	"fmt"
	"io"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/drover/pkg/logging"
)

// Launcher owns the Playwright driver process. Initialize it once, launch
// sessions from it, and shut it down when the run is over.
type Launcher struct {
	pw     *playwright.Playwright
	logger *logging.Logger
}

// NewLauncher creates a launcher. Call Initialize before Launch.
func NewLauncher() *Launcher {
	// NewLogger falls back to stderr on error, so the logger is always usable.
	logger, _ := logging.NewLogger("browser")
	return &Launcher{logger: logger}
}

// Initialize installs the Playwright driver and Chromium if missing, then
// starts the driver. Install is a no-op when everything is already present.
func (l *Launcher) Initialize() error {
	if l.pw != nil {
		return nil
	}

	l.logger.Debugf("ensuring playwright driver and chromium are installed")
	installOpts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if err := playwright.Install(installOpts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(installOpts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	l.pw = pw
	return nil
}

// Launch starts a Chromium browser with a fresh context and page, configured
// per opts. The caller owns the returned session and must Close it.
func (l *Launcher) Launch(opts Options) (*Session, error) {
	if l.pw == nil {
		return nil, fmt.Errorf("launcher is not initialized")
	}

	opts.applyDefaults()

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	}
	if opts.SlowMo > 0 {
		launchOpts.SlowMo = playwright.Float(opts.SlowMo)
	}

	browser, err := l.pw.Chromium.Launch(launchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	contextOpts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.Viewport.Width,
			Height: opts.Viewport.Height,
		},
	}
	if opts.UserAgent != "" {
		contextOpts.UserAgent = playwright.String(opts.UserAgent)
	}

	context, err := browser.NewContext(contextOpts)
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	page, err := context.NewPage()
	if err != nil {
		_ = context.Close()
		_ = browser.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	page.SetDefaultTimeout(opts.Timeout)

	l.logger.Infof("browser session started (headless=%v, viewport=%dx%d)",
		opts.Headless, opts.Viewport.Width, opts.Viewport.Height)

	return &Session{
		browser: browser,
		context: context,
		page:    page,
		maxText: opts.MaxTextLength,
		logger:  l.logger,
	}, nil
}

// Shutdown stops the Playwright driver. Sessions must be closed first.
func (l *Launcher) Shutdown() error {
	if l.pw == nil {
		return nil
	}
	err := l.pw.Stop()
	l.pw = nil
	if err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}
