package extract

import (
	"regexp"
	"strings"
)

// obfuscatedRe matches "name [at] acme [dot] com" and "name at acme dot com"
// with bracketed, parenthesized or braced markers.
var obfuscatedRe = regexp.MustCompile(
	`(?i)([a-z0-9][a-z0-9._%+-]*)\s*(?:\[\s*at\s*\]|\(\s*at\s*\)|\{\s*at\s*\}|\s+at\s+)\s*` +
		`([a-z0-9-]+(?:\s*(?:\[\s*dot\s*\]|\(\s*dot\s*\)|\{\s*dot\s*\}|\s+dot\s+)\s*[a-z0-9-]+)+)`)

var dotRe = regexp.MustCompile(`(?i)\s*(?:\[\s*dot\s*\]|\(\s*dot\s*\)|\{\s*dot\s*\}|\s+dot\s+)\s*`)

// findObfuscated returns addresses written with spelled-out separators.
func findObfuscated(text string) []string {
	var out []string
	for _, m := range obfuscatedRe.FindAllStringSubmatch(text, -1) {
		domain := dotRe.ReplaceAllString(m[2], ".")
		out = append(out, strings.ToLower(m[1]+"@"+domain))
	}
	return out
}
