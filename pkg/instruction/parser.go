// Package instruction converts natural-language, line-oriented instruction
// text into an ordered queue of actions.
//
// Beyond plain instruction lines, the format supports comments and a small
// macro layer:
//
//	# log in, then check the dashboard
//	DEFINE_FUNCTION login
//	Navigate to https://example.com/login
//	Type "admin" into the username field
//	Click the login button
//	END_FUNCTION
//
//	CALL login
//	Navigate to https://example.com/dashboard
//	Take a screenshot and save as "dashboard.png"
//
// Markers are matched case-insensitively at line start. Function calls are
// expanded inline at the call site, transitively; cyclic definitions are
// rejected rather than expanded forever.
package instruction

import (
	"fmt"
	"strings"
	"unicode"
)

// Control markers reserved by the instruction format. Ordinary instruction
// text must not begin with these tokens.
const (
	markerDefine = "DEFINE_FUNCTION"
	markerEnd    = "END_FUNCTION"
	markerCall   = "CALL"
)

// ParseError reports a problem in the instruction text.
type ParseError struct {
	// Line is the 1-based source line the problem was found on, or 0 when
	// no single line applies.
	Line int

	// Message describes the problem.
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

func parseErrorf(line int, format string, args ...interface{}) *ParseError {
	return &ParseError{Line: line, Message: fmt.Sprintf(format, args...)}
}

// entry is one surviving source line: either a plain instruction or a
// function call awaiting expansion.
type entry struct {
	text string // instruction text, or callee name when call is true
	call bool
	line int
}

// function is a named body of entries. Function names are case-sensitive;
// redefining a name overwrites the previous body (last write wins).
type function struct {
	name    string
	body    []entry
	defLine int
}

// Parse converts instruction text into an ordered action queue. Function
// definitions are collected across the whole input before any call is
// resolved, so a CALL may precede the DEFINE_FUNCTION block it refers to.
func Parse(text string) ([]Action, error) {
	return ParseLines(strings.Split(text, "\n"))
}

// ParseLines is Parse for input that is already split into lines.
func ParseLines(lines []string) ([]Action, error) {
	top, funcs, err := scan(lines)
	if err != nil {
		return nil, err
	}

	ex := &expander{
		funcs:    funcs,
		colors:   make(map[string]expandColor, len(funcs)),
		expanded: make(map[string][]Action, len(funcs)),
	}
	return ex.resolve(top)
}

// scan walks the source once, collecting top-level entries and function
// definitions. No expansion happens here.
func scan(lines []string) ([]entry, map[string]*function, error) {
	var top []entry
	funcs := make(map[string]*function)
	var current *function

	for i, raw := range lines {
		lineNo := i + 1
		line := strings.TrimSpace(stripComment(raw))
		if line == "" {
			continue
		}

		if rest, ok := matchMarker(line, markerDefine); ok {
			if current != nil {
				return nil, nil, parseErrorf(lineNo,
					"nested DEFINE_FUNCTION (function %q is still open)", current.name)
			}
			name, err := markerName(markerDefine, rest, lineNo)
			if err != nil {
				return nil, nil, err
			}
			current = &function{name: name, defLine: lineNo}
			continue
		}

		if rest, ok := matchMarker(line, markerEnd); ok {
			if rest != "" {
				return nil, nil, parseErrorf(lineNo, "unexpected text after END_FUNCTION: %q", rest)
			}
			if current == nil {
				return nil, nil, parseErrorf(lineNo, "END_FUNCTION without a matching DEFINE_FUNCTION")
			}
			funcs[current.name] = current
			current = nil
			continue
		}

		if rest, ok := matchMarker(line, markerCall); ok {
			name, err := markerName(markerCall, rest, lineNo)
			if err != nil {
				return nil, nil, err
			}
			e := entry{text: name, call: true, line: lineNo}
			if current != nil {
				current.body = append(current.body, e)
			} else {
				top = append(top, e)
			}
			continue
		}

		e := entry{text: line, line: lineNo}
		if current != nil {
			current.body = append(current.body, e)
		} else {
			top = append(top, e)
		}
	}

	if current != nil {
		return nil, nil, parseErrorf(current.defLine,
			"unterminated function %q (missing END_FUNCTION)", current.name)
	}

	return top, funcs, nil
}

// stripComment removes a trailing # comment. A # inside a single- or
// double-quoted literal does not start a comment; backslash escapes are
// honored inside quotes.
func stripComment(line string) string {
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
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '#':
			return line[:i]
		}
	}
	return line
}

// matchMarker reports whether line begins with marker (case-insensitive),
// followed by end of line or whitespace. It returns the trimmed remainder.
func matchMarker(line, marker string) (rest string, ok bool) {
	if len(line) < len(marker) {
		return "", false
	}
	if !strings.EqualFold(line[:len(marker)], marker) {
		return "", false
	}
	rest = line[len(marker):]
	if rest != "" && !unicode.IsSpace(rune(rest[0])) {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

// markerName validates the single-token name following DEFINE_FUNCTION or
// CALL. Marker lines are reserved, so a malformed name is an error rather
// than a fallback to plain-instruction handling.
func markerName(marker, rest string, line int) (string, error) {
	if rest == "" {
		return "", parseErrorf(line, "%s requires a function name", marker)
	}
	if strings.IndexFunc(rest, unicode.IsSpace) >= 0 {
		return "", parseErrorf(line, "%s expects a single function name, got %q", marker, rest)
	}
	return rest, nil
}

// expandColor tracks the DFS state of a function during call expansion.
type expandColor int

const (
	colorWhite expandColor = iota // not yet visited
	colorGray                     // expansion in progress; revisiting means a cycle
	colorBlack                    // fully expanded and memoized
)

type expander struct {
	funcs    map[string]*function
	colors   map[string]expandColor
	expanded map[string][]Action
}

// resolve flattens a sequence of entries into actions, expanding calls
// inline. Callee actions are copied into the output, never shared.
func (ex *expander) resolve(entries []entry) ([]Action, error) {
	var actions []Action
	for _, e := range entries {
		if !e.call {
			actions = append(actions, newAction(e.text, e.line))
			continue
		}
		body, err := ex.expand(e.text, e.line)
		if err != nil {
			return nil, err
		}
		actions = append(actions, body...)
	}
	return actions, nil
}

// expand returns the fully flattened body of the named function, detecting
// cycles with color marking: a gray function reached again is calling
// itself, directly or through other functions.
func (ex *expander) expand(name string, callLine int) ([]Action, error) {
	fn, ok := ex.funcs[name]
	if !ok {
		return nil, parseErrorf(callLine, "call to undefined function %q", name)
	}

	switch ex.colors[name] {
	case colorGray:
		return nil, parseErrorf(callLine, "cyclic function call involving %q", name)
	case colorBlack:
		return ex.expanded[name], nil
	}

	ex.colors[name] = colorGray
	actions, err := ex.resolve(fn.body)
	if err != nil {
		return nil, err
	}
	ex.colors[name] = colorBlack
	ex.expanded[name] = actions

	return actions, nil
}
