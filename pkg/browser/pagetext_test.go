package browser

import (
	"strings"
	"testing"
)

func TestVisibleText(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		maxLength int
		want      string   // exact output when non-empty
		wantHas   []string // substrings that should be present
		wantNot   []string // substrings that should NOT be present
	}{
		{
			name: "strips scripts styles and head",
			input: `<html>
				<head>
					<title>Checkout</title>
					<script>alert('x');</script>
					<style>body { color: red; }</style>
				</head>
				<body>
					<h1>Order summary</h1>
					<p>Total: $42</p>
				</body>
			</html>`,
			maxLength: 10000,
			wantHas:   []string{"Order summary", "Total: $42"},
			wantNot:   []string{"Checkout", "alert", "color: red"},
		},
		{
			name:      "block elements become lines",
			input:     `<html><body><h1>Title</h1><p>First.</p><p>Second.</p></body></html>`,
			maxLength: 10000,
			want:      "Title\nFirst.\nSecond.",
		},
		{
			name:      "list items on separate lines",
			input:     `<html><body><ul><li>One</li><li>Two</li><li>Three</li></ul></body></html>`,
			maxLength: 10000,
			want:      "One\nTwo\nThree",
		},
		{
			name:      "table cells on separate lines",
			input:     `<html><body><table><tr><td>Name</td><td>Ada</td></tr></table></body></html>`,
			maxLength: 10000,
			want:      "Name\nAda",
		},
		{
			name:      "br breaks a line",
			input:     `<html><body><p>Line one<br>Line two</p></body></html>`,
			maxLength: 10000,
			want:      "Line one\nLine two",
		},
		{
			name: "whitespace collapses",
			input: `<html><body><p>Spaced

				out      text</p></body></html>`,
			maxLength: 10000,
			want:      "Spaced out text",
		},
		{
			name:      "attributes are dropped",
			input:     `<html><body><a href="https://example.com" class="nav">Home</a></body></html>`,
			maxLength: 10000,
			want:      "Home",
			wantNot:   []string{"href", "example.com", "nav"},
		},
		{
			name:      "noscript and svg pruned",
			input:     `<html><body><div>Kept</div><noscript>No JS</noscript><svg><text>Chart</text></svg></body></html>`,
			maxLength: 10000,
			want:      "Kept",
			wantNot:   []string{"No JS", "Chart"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := visibleText(tt.input, tt.maxLength)
			if err != nil {
				t.Fatalf("visibleText() error = %v", err)
			}

			if tt.want != "" && got != tt.want {
				t.Errorf("visibleText() = %q, want %q", got, tt.want)
			}

			for _, want := range tt.wantHas {
				if !strings.Contains(got, want) {
					t.Errorf("output missing expected substring %q\nGot: %s", want, got)
				}
			}

			for _, notWant := range tt.wantNot {
				if strings.Contains(got, notWant) {
					t.Errorf("output contains unwanted substring %q\nGot: %s", notWant, got)
				}
			}
		})
	}
}

func TestVisibleTextTruncates(t *testing.T) {
	long := strings.Repeat("a", 50)
	got, err := visibleText("<html><body><p>"+long+"</p></body></html>", 10)
	if err != nil {
		t.Fatalf("visibleText() error = %v", err)
	}
	if got != strings.Repeat("a", 10)+"..." {
		t.Errorf("visibleText() = %q, want 10 bytes plus ellipsis", got)
	}
}

func TestVisibleTextEmptyPage(t *testing.T) {
	got, err := visibleText("<html><body></body></html>", 10000)
	if err != nil {
		t.Fatalf("visibleText() error = %v", err)
	}
	if got != "" {
		t.Errorf("visibleText() = %q, want empty string", got)
	}
}

func TestCollapseWhitespace(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"inner runs collapse", "a    b\tc", "a b c"},
		{"blank lines drop", "a\n\n\nb", "a\nb"},
		{"leading and trailing trim", "  a  \n  b  ", "a\nb"},
		{"empty input", "", ""},
		{"only whitespace", " \n \t \n ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := collapseWhitespace(tt.input); got != tt.want {
				t.Errorf("collapseWhitespace(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsHiddenElement(t *testing.T) {
	tests := []struct {
		tag  string
		want bool
	}{
		{"script", true},
		{"style", true},
		{"head", true},
		{"noscript", true},
		{"iframe", true},
		{"template", true},
		{"div", false},
		{"p", false},
		{"span", false},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			if got := isHiddenElement(tt.tag); got != tt.want {
				t.Errorf("isHiddenElement(%q) = %v, want %v", tt.tag, got, tt.want)
			}
		})
	}
}

func TestIsBlockElement(t *testing.T) {
	tests := []struct {
		tag  string
		want bool
	}{
		{"div", true},
		{"p", true},
		{"li", true},
		{"br", true},
		{"td", true},
		{"span", false},
		{"a", false},
		{"strong", false},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			if got := isBlockElement(tt.tag); got != tt.want {
				t.Errorf("isBlockElement(%q) = %v, want %v", tt.tag, got, tt.want)
			}
		})
	}
}
