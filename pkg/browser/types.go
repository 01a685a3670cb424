// Package browser wraps a Playwright-driven Chromium session behind the
// operation surface Drover's generated snippets are allowed to touch. A
// Launcher owns the Playwright driver lifecycle; a Session owns one browser,
// one context, and one page, and exposes the individual page operations
// (navigate, click, type, read) that the execution scope dispatches to.
package browser

import "errors"

const (
	// DefaultViewportWidth is the viewport width used when none is configured.
	DefaultViewportWidth = 1280

	// DefaultViewportHeight is the viewport height used when none is configured.
	DefaultViewportHeight = 720

	// DefaultTimeout is the default timeout for page operations in milliseconds.
	DefaultTimeout = 30000.0

	// DefaultMaxTextLength caps the visible text extracted from a page.
	DefaultMaxTextLength = 10000
)

// ErrSessionClosed is returned by every Session operation after Close.
var ErrSessionClosed = errors.New("browser session is closed")

// ScrollDirection identifies a scroll target for Session.Scroll.
type ScrollDirection string

const (
	ScrollUp     ScrollDirection = "up"
	ScrollDown   ScrollDirection = "down"
	ScrollTop    ScrollDirection = "top"
	ScrollBottom ScrollDirection = "bottom"
)

// Viewport is the browser window size in CSS pixels.
type Viewport struct {
	Width  int
	Height int
}

// Options configures a browser session at launch time.
type Options struct {
	// Headless runs the browser without a visible window.
	Headless bool

	// Viewport sets the page size. Zero values fall back to the defaults.
	Viewport Viewport

	// UserAgent overrides the browser user agent when non-empty.
	UserAgent string

	// SlowMo delays each browser operation by the given milliseconds.
	SlowMo float64

	// Timeout is the default timeout for page operations in milliseconds.
	Timeout float64

	// MaxTextLength caps PageText output. Zero falls back to the default.
	MaxTextLength int
}

// applyDefaults fills zero-valued fields with the package defaults.
func (o *Options) applyDefaults() {
	if o.Viewport.Width <= 0 {
		o.Viewport.Width = DefaultViewportWidth
	}
	if o.Viewport.Height <= 0 {
		o.Viewport.Height = DefaultViewportHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MaxTextLength <= 0 {
		o.MaxTextLength = DefaultMaxTextLength
	}
}
