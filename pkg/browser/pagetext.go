package browser

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// visibleText extracts the human-visible text from raw HTML. Scripts,
// styles, and other non-rendered elements are pruned, block elements become
// line breaks, runs of whitespace collapse to one space, and the result is
// truncated to maxLength bytes.
func visibleText(rawHTML string, maxLength int) (string, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	var builder strings.Builder
	collectText(doc, &builder)

	text := collapseWhitespace(builder.String())
	if maxLength > 0 && len(text) > maxLength {
		text = text[:maxLength] + "..."
	}
	return text, nil
}

// collectText walks the node tree appending text content, with newlines at
// block element boundaries.
func collectText(n *html.Node, builder *strings.Builder) {
	if n.Type == html.CommentNode {
		return
	}
	if n.Type == html.ElementNode && isHiddenElement(strings.ToLower(n.Data)) {
		return
	}

	if n.Type == html.TextNode {
		// Whitespace inside a text node renders as a single space.
		if text := strings.Join(strings.Fields(n.Data), " "); text != "" {
			builder.WriteString(text)
			builder.WriteString(" ")
		}
		return
	}

	isBlock := n.Type == html.ElementNode && isBlockElement(strings.ToLower(n.Data))
	if isBlock {
		builder.WriteString("\n")
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, builder)
	}

	if isBlock {
		builder.WriteString("\n")
	}
}

// collapseWhitespace normalizes extracted text: inner runs of spaces collapse
// to one, blank lines drop, and lines are rejoined with single newlines.
func collapseWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}

// isHiddenElement returns true for elements whose content never renders.
func isHiddenElement(tagName string) bool {
	hidden := map[string]bool{
		"script":   true,
		"style":    true,
		"noscript": true,
		"head":     true,
		"iframe":   true,
		"embed":    true,
		"object":   true,
		"svg":      true,
		"template": true,
	}
	return hidden[tagName]
}

// isBlockElement returns true for elements that start on their own line.
func isBlockElement(tagName string) bool {
	blocks := map[string]bool{
		"div":        true,
		"p":          true,
		"section":    true,
		"article":    true,
		"header":     true,
		"footer":     true,
		"nav":        true,
		"main":       true,
		"aside":      true,
		"h1":         true,
		"h2":         true,
		"h3":         true,
		"h4":         true,
		"h5":         true,
		"h6":         true,
		"ul":         true,
		"ol":         true,
		"li":         true,
		"table":      true,
		"tr":         true,
		"td":         true,
		"th":         true,
		"form":       true,
		"fieldset":   true,
		"blockquote": true,
		"pre":        true,
		"br":         true,
		"hr":         true,
	}
	return blocks[tagName]
}
