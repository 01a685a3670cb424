package generator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
)

// defaultDeniedModules are module patterns whose import statements are
// scrubbed from generated snippets. Snippets reach the browser through the
// env scope only; process, filesystem, and network modules have no place in
// them no matter what the model emits.
var defaultDeniedModules = []string{
	"os*",
	"sys",
	"subprocess*",
	"shutil",
	"socket",
	"requests",
	"urllib*",
	"http*",
	"fs",
	"child_process",
	"net*",
}

var (
	thinkingRe  = regexp.MustCompile(`(?s)<thinking>.*?</thinking>`)
	pyFromRe    = regexp.MustCompile(`^\s*from\s+([A-Za-z0-9_.]+)\s+import\b`)
	jsImportRe  = regexp.MustCompile(`^\s*import\b.*?\bfrom\s+['"]([^'"]+)['"]`)
	pyImportRe  = regexp.MustCompile(`^\s*import\s+([A-Za-z0-9_.]+)`)
	jsRequireRe = regexp.MustCompile(`require\(\s*['"]([^'"]+)['"]\s*\)`)
)

// moduleFilter matches imported module names against compiled deny patterns.
type moduleFilter struct {
	denied []glob.Glob
}

func newModuleFilter(patterns []string) (*moduleFilter, error) {
	f := &moduleFilter{denied: make([]glob.Glob, 0, len(patterns))}
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid denied module pattern %q: %w", pattern, err)
		}
		f.denied = append(f.denied, g)
	}
	return f, nil
}

func (f *moduleFilter) denies(module string) bool {
	for _, g := range f.denied {
		if g.Match(module) {
			return true
		}
	}
	return false
}

// filterImports drops lines that import a denied module. Import lines for
// modules outside the deny set are kept; the execution scope rejects them
// later as unknown statements.
func (f *moduleFilter) filterImports(code string) string {
	lines := strings.Split(code, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if module, ok := importedModule(line); ok && f.denies(module) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// importedModule extracts the module named by an import-like line. Check
// order matters: "import x from 'y'" must resolve to y, not x.
func importedModule(line string) (string, bool) {
	if m := pyFromRe.FindStringSubmatch(line); m != nil {
		return m[1], true
	}
	if m := jsImportRe.FindStringSubmatch(line); m != nil {
		return m[1], true
	}
	if m := pyImportRe.FindStringSubmatch(line); m != nil {
		return m[1], true
	}
	if m := jsRequireRe.FindStringSubmatch(line); m != nil {
		return m[1], true
	}
	return "", false
}

// stripFences extracts the fenced content when the response carries a
// markdown code block, dropping surrounding prose. A fence opened but never
// closed still yields its content. Without any fenced content, fence lines
// themselves are dropped and the rest kept.
func stripFences(s string) string {
	var inside, outside []string
	open := false
	seen := false

	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			open = !open
			if open {
				seen = true
			}
			continue
		}
		if open {
			inside = append(inside, line)
		} else {
			outside = append(outside, line)
		}
	}

	if seen && len(inside) > 0 {
		return strings.Join(inside, "\n")
	}
	return strings.Join(outside, "\n")
}

// sanitizeResponse cleans a raw model response into an executable snippet:
// thinking blocks, markdown fences, and denied imports are removed, then the
// result is trimmed. An empty remainder is a GenerationError.
func sanitizeResponse(f *moduleFilter, raw string) (string, error) {
	code := thinkingRe.ReplaceAllString(raw, "")
	code = stripFences(code)
	code = f.filterImports(code)
	code = strings.TrimSpace(code)
	if code == "" {
		return "", &GenerationError{Message: "model returned no usable code"}
	}
	return code, nil
}
