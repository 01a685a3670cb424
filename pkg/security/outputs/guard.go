// Package outputs confines file paths produced by generated code. Snippets
// name their own screenshot and PDF targets, so every path is validated
// against a single output root before it reaches the filesystem, preventing
// path traversal out of the run's directory.
//
// Validation is lexical. The snippet language has no operation that creates
// links, so symlink resolution is not required.
package outputs

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Guard validates output paths against a root directory.
type Guard struct {
	root string
}

// NewGuard creates a guard rooted at dir. An empty dir guards the working
// directory.
func NewGuard(dir string) *Guard {
	if dir == "" {
		dir = "."
	}
	return &Guard{root: filepath.Clean(dir)}
}

// Root returns the directory the guard confines writes to.
func (g *Guard) Root() string {
	return g.root
}

// Resolve validates name and returns the path to write, joined under the
// root. Absolute paths and paths that escape the root are rejected.
func (g *Guard) Resolve(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("output path is empty")
	}
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("output path %q is absolute; paths must be relative to the output directory", name)
	}

	joined := filepath.Join(g.root, name)
	rel, err := filepath.Rel(g.root, joined)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("output path %q escapes the output directory", name)
	}
	if rel == "." {
		return "", fmt.Errorf("output path %q names the output directory, not a file", name)
	}
	return joined, nil
}
