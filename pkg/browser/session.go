package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/drover/pkg/logging"
)

// Session is one live browser page. All operations act on that page and
// return ErrSessionClosed once the session has been released.
type Session struct {
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	maxText int
	logger  *logging.Logger
	closed  bool
}

func (s *Session) guard() error {
	if s.closed {
		return ErrSessionClosed
	}
	return nil
}

// Navigate opens the given URL and waits for the page load event.
func (s *Session) Navigate(url string) error {
	if err := s.guard(); err != nil {
		return err
	}
	if _, err := s.page.Goto(url); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

// Refresh reloads the current page.
func (s *Session) Refresh() error {
	if err := s.guard(); err != nil {
		return err
	}
	if _, err := s.page.Reload(); err != nil {
		return fmt.Errorf("reload failed: %w", err)
	}
	return nil
}

// FindElement waits until an element matching the selector is attached.
func (s *Session) FindElement(selector string) error {
	if err := s.guard(); err != nil {
		return err
	}
	if _, err := s.page.WaitForSelector(selector); err != nil {
		return fmt.Errorf("element lookup failed: %w", err)
	}
	return nil
}

// Click clicks the element matching the selector. When the actionability
// checks fail (e.g. the element is covered), it falls back to dispatching a
// click event directly.
func (s *Session) Click(selector string) error {
	if err := s.guard(); err != nil {
		return err
	}
	if err := s.page.Click(selector); err != nil {
		s.logger.Warnf("click on %s failed, dispatching click event: %v", selector, err)
		if dispatchErr := s.page.DispatchEvent(selector, "click", nil); dispatchErr != nil {
			return fmt.Errorf("click failed: %w", err)
		}
	}
	return nil
}

// TypeText types into the element matching the selector, appending to any
// existing value.
func (s *Session) TypeText(selector, text string) error {
	if err := s.guard(); err != nil {
		return err
	}
	if err := s.page.Type(selector, text); err != nil {
		return fmt.Errorf("type failed: %w", err)
	}
	return nil
}

// ClearAndType clears the element's value, then sets it to text.
func (s *Session) ClearAndType(selector, text string) error {
	if err := s.guard(); err != nil {
		return err
	}
	if err := s.page.Fill(selector, text); err != nil {
		return fmt.Errorf("fill failed: %w", err)
	}
	return nil
}

// SelectOption picks a dropdown option by its value attribute, falling back
// to its visible label. Generated snippets pass whichever the page shows.
func (s *Session) SelectOption(selector, value string) error {
	if err := s.guard(); err != nil {
		return err
	}
	_, err := s.page.SelectOption(selector, playwright.SelectOptionValues{
		Values: &[]string{value},
	})
	if err == nil {
		return nil
	}
	_, labelErr := s.page.SelectOption(selector, playwright.SelectOptionValues{
		Labels: &[]string{value},
	})
	if labelErr != nil {
		return fmt.Errorf("select failed: %w", err)
	}
	return nil
}

// CheckCheckbox checks or unchecks the checkbox matching the selector.
func (s *Session) CheckCheckbox(selector string, checked bool) error {
	if err := s.guard(); err != nil {
		return err
	}
	var err error
	if checked {
		err = s.page.Check(selector)
	} else {
		err = s.page.Uncheck(selector)
	}
	if err != nil {
		return fmt.Errorf("checkbox update failed: %w", err)
	}
	return nil
}

var scrollScripts = map[ScrollDirection]string{
	ScrollUp:     "window.scrollBy(0, -window.innerHeight)",
	ScrollDown:   "window.scrollBy(0, window.innerHeight)",
	ScrollTop:    "window.scrollTo(0, 0)",
	ScrollBottom: "window.scrollTo(0, document.body.scrollHeight)",
}

// Scroll scrolls the page one viewport up or down, jumps to the top or
// bottom of the document, or scrolls by a pixel amount given as a number.
func (s *Session) Scroll(direction ScrollDirection) error {
	if err := s.guard(); err != nil {
		return err
	}
	script, err := scrollScript(direction)
	if err != nil {
		return err
	}
	if _, err := s.page.Evaluate(script); err != nil {
		return fmt.Errorf("scroll failed: %w", err)
	}
	return nil
}

func scrollScript(direction ScrollDirection) (string, error) {
	if script, ok := scrollScripts[direction]; ok {
		return script, nil
	}
	if pixels, err := strconv.Atoi(string(direction)); err == nil {
		return fmt.Sprintf("window.scrollBy(0, %d)", pixels), nil
	}
	return "", fmt.Errorf("unknown scroll direction %q (use up, down, top, bottom, or a pixel amount)", direction)
}

// Wait pauses for the given number of seconds.
func (s *Session) Wait(seconds float64) error {
	if err := s.guard(); err != nil {
		return err
	}
	if seconds < 0 {
		return fmt.Errorf("wait duration cannot be negative")
	}
	s.page.WaitForTimeout(seconds * 1000)
	return nil
}

// Screenshot saves a full-page screenshot to path, creating parent
// directories as needed.
func (s *Session) Screenshot(path string) error {
	if err := s.guard(); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create screenshot directory: %w", err)
		}
	}
	_, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("screenshot failed: %w", err)
	}
	s.logger.Debugf("screenshot saved to %s", path)
	return nil
}

// PageText returns the page's visible text, truncated to the session's
// text budget.
func (s *Session) PageText() (string, error) {
	if err := s.guard(); err != nil {
		return "", err
	}
	content, err := s.page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}
	text, err := visibleText(content, s.maxText)
	if err != nil {
		return "", fmt.Errorf("failed to extract page text: %w", err)
	}
	return text, nil
}

// GetText returns the text content of the element matching the selector.
func (s *Session) GetText(selector string) (string, error) {
	if err := s.guard(); err != nil {
		return "", err
	}
	text, err := s.page.TextContent(selector)
	if err != nil {
		return "", fmt.Errorf("text read failed: %w", err)
	}
	return text, nil
}

// GetAttribute returns the named attribute of the element matching the
// selector. A missing attribute yields an empty string.
func (s *Session) GetAttribute(selector, name string) (string, error) {
	if err := s.guard(); err != nil {
		return "", err
	}
	value, err := s.page.GetAttribute(selector, name)
	if err != nil {
		return "", fmt.Errorf("attribute read failed: %w", err)
	}
	return value, nil
}

// IsVisible reports whether the element matching the selector is visible.
// A missing element is not visible, not an error.
func (s *Session) IsVisible(selector string) (bool, error) {
	if err := s.guard(); err != nil {
		return false, err
	}
	visible, err := s.page.IsVisible(selector)
	if err != nil {
		return false, fmt.Errorf("visibility check failed: %w", err)
	}
	return visible, nil
}

// IsEnabled reports whether the element matching the selector is enabled.
func (s *Session) IsEnabled(selector string) (bool, error) {
	if err := s.guard(); err != nil {
		return false, err
	}
	enabled, err := s.page.IsEnabled(selector)
	if err != nil {
		return false, fmt.Errorf("enabled check failed: %w", err)
	}
	return enabled, nil
}

// ExecuteScript evaluates JavaScript on the page and returns the result
// formatted as a string. A nil result yields an empty string.
func (s *Session) ExecuteScript(script string) (string, error) {
	if err := s.guard(); err != nil {
		return "", err
	}
	value, err := s.page.Evaluate(script)
	if err != nil {
		return "", fmt.Errorf("script evaluation failed: %w", err)
	}
	if value == nil {
		return "", nil
	}
	return fmt.Sprintf("%v", value), nil
}

// Metadata returns the page's current URL and title, in that order.
func (s *Session) Metadata() (string, string, error) {
	if err := s.guard(); err != nil {
		return "", "", err
	}
	title, err := s.page.Title()
	if err != nil {
		return "", "", fmt.Errorf("title read failed: %w", err)
	}
	return s.page.URL(), title, nil
}

// Close releases the page, context, and browser. Safe to call more than
// once; later operations on the session return ErrSessionClosed.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var firstErr error
	if err := s.page.Close(); err != nil {
		firstErr = fmt.Errorf("failed to close page: %w", err)
	}
	if err := s.context.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to close context: %w", err)
	}
	if err := s.browser.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to close browser: %w", err)
	}

	if firstErr == nil {
		s.logger.Infof("browser session closed")
	}
	return firstErr
}
