package extract

import (
	"regexp"
	"strings"
)

var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:CEO|Founder|Co-Founder|President|Owner|Managing Director)\s*[:,\-]\s*([A-Z][a-z]+ [A-Z][a-z]+)`),
	regexp.MustCompile(`\bBy\s+([A-Z][a-z]+ [A-Z][a-z]+)`),
}

// findNames returns person names introduced by a title or byline.
func findNames(text string) []string {
	var out []string
	for _, re := range namePatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			out = append(out, m[1])
		}
	}
	return out
}

// validName requires at least two tokens of two or more letters.
func validName(name string) bool {
	parts := strings.Fields(name)
	if len(parts) < 2 {
		return false
	}
	for _, p := range parts {
		if len([]rune(p)) < 2 {
			return false
		}
	}
	return true
}
