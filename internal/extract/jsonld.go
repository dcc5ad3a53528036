package extract

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"
)

// maxJSONLDDepth bounds the recursive walk of structured data.
const maxJSONLDDepth = 5

// parseJSONLD returns the email and name values found in a JSON-LD block.
// Malformed JSON yields nothing.
func parseJSONLD(raw string) (emails, names []string) {
	var data any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &data); err != nil {
		zap.L().Debug("extract: skipping malformed json-ld", zap.Error(err))
		return nil, nil
	}
	walkJSONLD(data, 0, &emails, &names)
	return emails, names
}

func walkJSONLD(v any, depth int, emails, names *[]string) {
	if depth > maxJSONLDDepth {
		return
	}
	switch t := v.(type) {
	case map[string]any:
		if e, ok := t["email"]; ok {
			for _, s := range stringValues(e) {
				*emails = append(*emails, strings.TrimPrefix(strings.TrimPrefix(s, "mailto:"), "MAILTO:"))
			}
		}
		if n, ok := t["name"].(string); ok && isPersonType(t["@type"]) {
			*names = append(*names, n)
		}
		for key, child := range t {
			if key == "email" {
				continue
			}
			walkJSONLD(child, depth+1, emails, names)
		}
	case []any:
		for _, item := range t {
			walkJSONLD(item, depth+1, emails, names)
		}
	}
}

func stringValues(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		var out []string
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// isPersonType reports whether a JSON-LD @type names a person. Organization
// names are not person signals.
func isPersonType(v any) bool {
	for _, s := range stringValues(v) {
		if strings.EqualFold(s, "Person") {
			return true
		}
	}
	return false
}
