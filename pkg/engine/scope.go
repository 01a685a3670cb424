package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/entrhq/drover/pkg/browser"
	"github.com/entrhq/drover/pkg/security/outputs"
)

// Browser is the operation surface generated snippets are allowed to reach.
// browser.Session implements it; tests substitute recorders.
type Browser interface {
	Navigate(url string) error
	Refresh() error
	FindElement(selector string) error
	Click(selector string) error
	TypeText(selector, text string) error
	ClearAndType(selector, text string) error
	SelectOption(selector, value string) error
	CheckCheckbox(selector string, checked bool) error
	Scroll(direction browser.ScrollDirection) error
	Wait(seconds float64) error
	Screenshot(path string) error
	SavePDF(path string) (int, error)
	PageText() (string, error)
	GetText(selector string) (string, error)
	GetAttribute(selector, name string) (string, error)
	IsVisible(selector string) (bool, error)
	IsEnabled(selector string) (bool, error)
	ExecuteScript(script string) (string, error)
	Metadata() (url, title string, err error)
}

// Scope executes generated snippets against an allow-list of env operations.
// A snippet is one env.<op>(…) call per line with literal arguments; blank
// lines and # comments are ignored. The whole snippet is compiled before any
// call runs, so an invalid line rejects the snippet without side effects.
// File-writing operations have their target paths confined under the working
// directory before execution starts.
type Scope struct {
	browser Browser
	paths   *outputs.Guard
}

// NewScope binds the operation registry to a browser session.
func NewScope(b Browser) *Scope {
	return &Scope{browser: b, paths: outputs.NewGuard("")}
}

// Run compiles and executes a snippet. The returned string collects the
// output lines of read operations (page text, attribute values, script
// results) in call order.
func (s *Scope) Run(snippet string) (string, error) {
	calls, cerr := compile(snippet)
	if cerr != nil {
		return "", cerr
	}
	if cerr := s.resolvePaths(calls); cerr != nil {
		return "", cerr
	}

	var collected []string
	for _, c := range calls {
		out, err := operations[c.op].run(s.browser, c.args)
		if err != nil {
			return "", &ExecutionError{
				Class:   Classify(err),
				Op:      c.op,
				Message: fmt.Sprintf("line %d: %s", c.line, c.raw),
				Cause:   err,
			}
		}
		if out != "" {
			collected = append(collected, out)
		}
	}
	return strings.Join(collected, "\n"), nil
}

// resolvePaths confines output paths before anything executes. Arguments are
// literals, so a traversal attempt rejects the snippet like any other
// compile failure.
func (s *Scope) resolvePaths(calls []call) *ExecutionError {
	for i, c := range calls {
		if !operations[c.op].writesFile {
			continue
		}
		resolved, err := s.paths.Resolve(c.args[0].str)
		if err != nil {
			return rejectf(c.line, "env.%s: %v", c.op, err)
		}
		calls[i].args[0].str = resolved
	}
	return nil
}

type kind int

const (
	kindString kind = iota
	kindNumber
	kindBool
)

func kindName(k kind) string {
	switch k {
	case kindString:
		return "string"
	case kindNumber:
		return "number"
	default:
		return "boolean"
	}
}

type value struct {
	kind    kind
	str     string
	num     float64
	boolean bool
}

type call struct {
	op   string
	args []value
	line int
	raw  string
}

type opSpec struct {
	params     []kind
	optional   int  // trailing params that may be omitted
	writesFile bool // first argument is an output path to confine
	run        func(b Browser, args []value) (string, error)
}

var operations = map[string]opSpec{
	"navigate": {
		params: []kind{kindString},
		run: func(b Browser, args []value) (string, error) {
			return "", b.Navigate(args[0].str)
		},
	},
	"refresh": {
		run: func(b Browser, args []value) (string, error) {
			return "", b.Refresh()
		},
	},
	"find_element": {
		params: []kind{kindString},
		run: func(b Browser, args []value) (string, error) {
			return "", b.FindElement(args[0].str)
		},
	},
	"click": {
		params: []kind{kindString},
		run: func(b Browser, args []value) (string, error) {
			return "", b.Click(args[0].str)
		},
	},
	"type_text": {
		params: []kind{kindString, kindString},
		run: func(b Browser, args []value) (string, error) {
			return "", b.TypeText(args[0].str, args[1].str)
		},
	},
	"clear_and_type": {
		params: []kind{kindString, kindString},
		run: func(b Browser, args []value) (string, error) {
			return "", b.ClearAndType(args[0].str, args[1].str)
		},
	},
	"select_option": {
		params: []kind{kindString, kindString},
		run: func(b Browser, args []value) (string, error) {
			return "", b.SelectOption(args[0].str, args[1].str)
		},
	},
	"check_checkbox": {
		params:   []kind{kindString, kindBool},
		optional: 1,
		run: func(b Browser, args []value) (string, error) {
			checked := true
			if len(args) == 2 {
				checked = args[1].boolean
			}
			return "", b.CheckCheckbox(args[0].str, checked)
		},
	},
	"scroll": {
		params: []kind{kindString},
		run: func(b Browser, args []value) (string, error) {
			return "", b.Scroll(browser.ScrollDirection(args[0].str))
		},
	},
	"wait": {
		params: []kind{kindNumber},
		run: func(b Browser, args []value) (string, error) {
			return "", b.Wait(args[0].num)
		},
	},
	"screenshot": {
		params:     []kind{kindString},
		writesFile: true,
		run: func(b Browser, args []value) (string, error) {
			return "", b.Screenshot(args[0].str)
		},
	},
	"save_pdf": {
		params:     []kind{kindString},
		writesFile: true,
		run: func(b Browser, args []value) (string, error) {
			pages, err := b.SavePDF(args[0].str)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("saved PDF to %s (%d pages)", args[0].str, pages), nil
		},
	},
	"get_page_text": {
		run: func(b Browser, args []value) (string, error) {
			return b.PageText()
		},
	},
	"get_text": {
		params: []kind{kindString},
		run: func(b Browser, args []value) (string, error) {
			return b.GetText(args[0].str)
		},
	},
	"get_attribute": {
		params: []kind{kindString, kindString},
		run: func(b Browser, args []value) (string, error) {
			return b.GetAttribute(args[0].str, args[1].str)
		},
	},
	"is_visible": {
		params: []kind{kindString},
		run: func(b Browser, args []value) (string, error) {
			visible, err := b.IsVisible(args[0].str)
			if err != nil {
				return "", err
			}
			return strconv.FormatBool(visible), nil
		},
	},
	"is_enabled": {
		params: []kind{kindString},
		run: func(b Browser, args []value) (string, error) {
			enabled, err := b.IsEnabled(args[0].str)
			if err != nil {
				return "", err
			}
			return strconv.FormatBool(enabled), nil
		},
	},
	"execute_script": {
		params: []kind{kindString},
		run: func(b Browser, args []value) (string, error) {
			return b.ExecuteScript(args[0].str)
		},
	},
}

// compile turns a snippet into validated calls. Any malformed line, unknown
// operation, or argument mismatch rejects the whole snippet.
func compile(snippet string) ([]call, *ExecutionError) {
	var calls []call
	for i, line := range strings.Split(snippet, "\n") {
		line = strings.TrimSpace(stripSnippetComment(line))
		if line == "" {
			continue
		}
		c, err := parseCall(line, i+1)
		if err != nil {
			return nil, err
		}
		spec, ok := operations[c.op]
		if !ok {
			return nil, rejectf(c.line, "unknown operation env.%s", c.op)
		}
		if err := checkCall(c, spec); err != nil {
			return nil, err
		}
		calls = append(calls, c)
	}
	if len(calls) == 0 {
		return nil, &ExecutionError{Class: Recoverable, Message: "snippet contains no operations"}
	}
	return calls, nil
}

func checkCall(c call, spec opSpec) *ExecutionError {
	required := len(spec.params) - spec.optional
	if len(c.args) < required || len(c.args) > len(spec.params) {
		if spec.optional == 0 {
			return rejectf(c.line, "env.%s expects %d argument(s), got %d",
				c.op, len(spec.params), len(c.args))
		}
		return rejectf(c.line, "env.%s expects %d to %d arguments, got %d",
			c.op, required, len(spec.params), len(c.args))
	}
	for i, arg := range c.args {
		if arg.kind != spec.params[i] {
			return rejectf(c.line, "env.%s argument %d must be a %s, got %s",
				c.op, i+1, kindName(spec.params[i]), kindName(arg.kind))
		}
	}
	return nil
}

func rejectf(line int, format string, args ...interface{}) *ExecutionError {
	return &ExecutionError{
		Class:   Recoverable,
		Message: fmt.Sprintf("line %d: %s", line, fmt.Sprintf(format, args...)),
	}
}

// stripSnippetComment removes a trailing # comment, leaving # inside quoted
// literals (CSS selectors) alone.
func stripSnippetComment(line string) string {
	var quote byte
	escaped := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case quote != 0 && c == '\\':
			escaped = true
		case quote != 0 && c == quote:
			quote = 0
		case quote == 0 && (c == '"' || c == '\''):
			quote = c
		case quote == 0 && c == '#':
			return line[:i]
		}
	}
	return line
}
