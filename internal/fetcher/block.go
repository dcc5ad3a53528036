package fetcher

import (
	"net/http"
	"strings"
)

// BlockType describes the kind of anti-bot page detected.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
)

// captchaPageLimit is the body size under which a captcha marker means the
// whole page is a challenge rather than a form widget on a real page.
const captchaPageLimit = 15000

// DetectBlock checks a response for signs of anti-bot protection.
func DetectBlock(status int, header http.Header, body []byte) BlockType {
	if status == http.StatusForbidden || status == http.StatusServiceUnavailable {
		if header.Get("cf-ray") != "" || header.Get("cf-mitigated") != "" ||
			strings.EqualFold(header.Get("server"), "cloudflare") {
			return BlockCloudflare
		}
	}

	lower := strings.ToLower(string(body))

	if strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "cf-browser-verification") ||
		strings.Contains(lower, "cf-challenge") {
		return BlockCloudflare
	}

	if len(body) < captchaPageLimit || status != http.StatusOK {
		if strings.Contains(lower, "g-recaptcha") ||
			strings.Contains(lower, "h-captcha") ||
			strings.Contains(lower, "verify you are human") {
			return BlockCaptcha
		}
	}

	if len(body) < 2000 {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "enable javascript") {
			return BlockJSShell
		}
	}

	return BlockNone
}
