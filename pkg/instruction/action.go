package instruction

import "strings"

// ActionType is a best-effort semantic classification of an action. It is
// used as a hint during prompt construction, never as a correctness input.
type ActionType string

const (
	TypeNavigate   ActionType = "navigate"
	TypeClick      ActionType = "click"
	TypeType       ActionType = "type"
	TypeWait       ActionType = "wait"
	TypeScreenshot ActionType = "screenshot"
	TypeCustom     ActionType = "custom"
)

// Action is one unit of instruction-derived work: a single browser step
// described in natural language. Actions are immutable once enqueued.
type Action struct {
	// Type is the heuristic classification of the step.
	Type ActionType

	// Description is the trimmed instruction text.
	Description string

	// Line is the 1-based source line the instruction came from. Actions
	// expanded from a function call keep the line of their body entry.
	Line int
}

func newAction(text string, line int) Action {
	return Action{
		Type:        classify(text),
		Description: text,
		Line:        line,
	}
}

// classify assigns an ActionType by keyword match, checked in order. The
// first matching rule wins.
func classify(text string) ActionType {
	s := strings.ToLower(text)
	switch {
	case strings.Contains(s, "navigate") || strings.Contains(s, "go to"):
		return TypeNavigate
	case strings.Contains(s, "wait"):
		return TypeWait
	case strings.Contains(s, "screenshot") || strings.Contains(s, "capture"):
		return TypeScreenshot
	case strings.Contains(s, "click"):
		return TypeClick
	case strings.Contains(s, "type "), strings.Contains(s, "fill"), strings.Contains(s, "enter "):
		return TypeType
	default:
		return TypeCustom
	}
}
