package browser

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/playwright-community/playwright-go"
)

// SavePDF exports the current page as a PDF, validates the result, and
// returns its page count. Chromium only exports PDFs in headless mode.
func (s *Session) SavePDF(path string) (int, error) {
	if err := s.guard(); err != nil {
		return 0, err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return 0, fmt.Errorf("failed to create PDF directory: %w", err)
		}
	}

	_, err := s.page.PDF(playwright.PagePdfOptions{
		Path: playwright.String(path),
	})
	if err != nil {
		return 0, fmt.Errorf("pdf export failed: %w", err)
	}

	pages, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("pdf validation failed: %w", err)
	}

	s.logger.Debugf("pdf saved to %s (%d pages)", path, pages)
	return pages, nil
}
