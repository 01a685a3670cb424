package generator

import (
	"fmt"
	"strings"

	"github.com/entrhq/drover/pkg/instruction"
)

// systemPreamble describes the snippet environment to the model. The
// execution scope enforces the same contract at run time, so anything
// outside it is rejected before it can touch the browser.
const systemPreamble = `You are an expert browser automation assistant.

You control a browser through an environment object named env. Respond with a
short script: one env call per line, executed top to bottom.

Navigation:
- env.navigate("url") - Open a URL
- env.refresh() - Reload the current page
- env.wait(seconds) - Pause for the given number of seconds

Elements (selectors are CSS or XPath):
- env.find_element("selector") - Wait until an element exists
- env.click("selector") - Click an element
- env.type_text("selector", "text") - Type into an element
- env.clear_and_type("selector", "text") - Clear a field, then type
- env.select_option("selector", "value") - Pick a dropdown option by value or label
- env.check_checkbox("selector", true) - Check or uncheck a box

Page:
- env.scroll("direction") - Scroll "up", "down", "top", "bottom", or a pixel count like "400"
- env.screenshot("path.png") - Save a screenshot (relative path)
- env.save_pdf("path.pdf") - Save the page as a PDF (relative path)
- env.get_page_text() - Read the visible page text
- env.execute_script("js") - Run JavaScript on the page

Inspection:
- env.get_text("selector") - Read an element's text
- env.get_attribute("selector", "name") - Read an element's attribute
- env.is_visible("selector") - Whether an element is visible
- env.is_enabled("selector") - Whether an element is enabled

Rules:
1. One env call per line, nothing else - no variables, loops, or functions.
2. Arguments are literals only: double-quoted strings, numbers, true/false.
3. No imports. Only the env operations above are available.
4. Prefer robust selectors: xpath with contains(), e.g. //button[contains(normalize-space(), 'Submit')].
5. Output the script only - no explanations, no markdown fences.`

// buildPrompt combines the preamble with the action, the current page
// context when available, and the prior attempt's error on retries.
func buildPrompt(action instruction.Action, pageContext, priorError string) string {
	var b strings.Builder
	b.WriteString(systemPreamble)
	b.WriteString("\n\n")

	if pageContext != "" {
		b.WriteString("Current page:\n")
		b.WriteString(pageContext)
		b.WriteString("\n\n")
	}

	b.WriteString("INSTRUCTION")
	if action.Type != instruction.TypeCustom {
		fmt.Fprintf(&b, " (%s)", action.Type)
	}
	b.WriteString(":\n")
	b.WriteString(action.Description)
	b.WriteString("\n")

	if priorError != "" {
		b.WriteString("\nThe previous attempt failed with error:\n")
		b.WriteString(priorError)
		b.WriteString("\nFix the error and try again.\n")
	}

	b.WriteString("\nOUTPUT (env calls only):\n")
	return b.String()
}
