package browser

import "testing"

func TestOptionsApplyDefaults(t *testing.T) {
	opts := Options{}
	opts.applyDefaults()

	if opts.Viewport.Width != DefaultViewportWidth {
		t.Errorf("Viewport.Width = %d, want %d", opts.Viewport.Width, DefaultViewportWidth)
	}
	if opts.Viewport.Height != DefaultViewportHeight {
		t.Errorf("Viewport.Height = %d, want %d", opts.Viewport.Height, DefaultViewportHeight)
	}
	if opts.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", opts.Timeout, DefaultTimeout)
	}
	if opts.MaxTextLength != DefaultMaxTextLength {
		t.Errorf("MaxTextLength = %d, want %d", opts.MaxTextLength, DefaultMaxTextLength)
	}
	if opts.Headless {
		t.Error("applyDefaults() should not force headless mode")
	}
}

func TestOptionsApplyDefaultsKeepsConfiguredValues(t *testing.T) {
	opts := Options{
		Headless:      true,
		Viewport:      Viewport{Width: 1920, Height: 1080},
		UserAgent:     "drover-test",
		SlowMo:        250,
		Timeout:       5000,
		MaxTextLength: 500,
	}
	opts.applyDefaults()

	if opts.Viewport.Width != 1920 || opts.Viewport.Height != 1080 {
		t.Errorf("Viewport = %dx%d, want 1920x1080", opts.Viewport.Width, opts.Viewport.Height)
	}
	if opts.Timeout != 5000 {
		t.Errorf("Timeout = %v, want 5000", opts.Timeout)
	}
	if opts.MaxTextLength != 500 {
		t.Errorf("MaxTextLength = %d, want 500", opts.MaxTextLength)
	}
	if opts.UserAgent != "drover-test" {
		t.Errorf("UserAgent = %q, want %q", opts.UserAgent, "drover-test")
	}
	if opts.SlowMo != 250 {
		t.Errorf("SlowMo = %v, want 250", opts.SlowMo)
	}
}
