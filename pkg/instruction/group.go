package instruction

import "strings"

// continuationPrefixes mark an instruction as a continuation of the
// previous step.
var continuationPrefixes = []string{"then ", "and ", "after that", "next "}

// GroupRelated merges continuation actions ("Then click…", "And type…")
// into the preceding action, producing one multi-line description per
// logical block so a single snippet can cover the whole block. A grouped
// action keeps the type and line of its first member. The input is not
// modified.
func GroupRelated(actions []Action) []Action {
	var grouped []Action
	for _, action := range actions {
		if len(grouped) > 0 && isContinuation(action.Description) {
			last := &grouped[len(grouped)-1]
			last.Description += "\n" + action.Description
			continue
		}
		grouped = append(grouped, action)
	}
	return grouped
}

func isContinuation(description string) bool {
	s := strings.ToLower(description)
	for _, prefix := range continuationPrefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
