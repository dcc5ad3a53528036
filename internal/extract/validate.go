package extract

import (
	"regexp"
	"strings"

	"github.com/sells-group/email-finder/internal/model"
)

var localPartRe = regexp.MustCompile(`^[a-z0-9][a-z0-9._%+-]{0,63}$`)

var assetExtensions = []string{
	".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".avif", ".ico", ".bmp",
	".js", ".mjs", ".css", ".scss", ".map", ".json", ".xml",
	".woff", ".woff2", ".ttf", ".eot", ".otf",
	".pdf", ".mp4", ".webm", ".mp3", ".zip",
}

var placeholderDomains = map[string]bool{
	"example.com":         true,
	"example.org":         true,
	"example.net":         true,
	"domain.com":          true,
	"yourdomain.com":      true,
	"yourcompany.com":     true,
	"company.com":         true,
	"email.com":           true,
	"test.com":            true,
	"mysite.com":          true,
	"sentry.io":           true,
	"wixpress.com":        true,
	"sentry.wixpress.com": true,
}

var placeholderLocals = map[string]bool{
	"you":                true,
	"your":               true,
	"yourname":           true,
	"your.name":          true,
	"name":               true,
	"email":              true,
	"user":               true,
	"username":           true,
	"firstname.lastname": true,
	"first.last":         true,
}

var noReplyLocals = map[string]bool{
	"noreply":      true,
	"no-reply":     true,
	"no_reply":     true,
	"donotreply":   true,
	"do-not-reply": true,
	"do_not_reply": true,
}

// tldKeywords are "TLDs" produced by matching across code such as
// user@handler.then or a@b.prototype.
var tldKeywords = map[string]bool{
	"js": true, "css": true, "png": true, "jpg": true, "gif": true, "svg": true,
	"json": true, "php": true, "html": true, "htm": true, "xml": true, "map": true,
	"ts": true, "jsx": true, "tsx": true, "min": true, "prototype": true,
	"then": true, "catch": true, "push": true, "length": true, "value": true,
	"call": true, "apply": true, "bind": true, "this": true, "data": true,
	"test": true, "invalid": true, "local": true, "localhost": true,
}

// NormalizeDomain lowercases a domain and strips a leading www. A pasted
// URL is reduced to its host.
func NormalizeDomain(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	if _, rest, ok := strings.Cut(d, "://"); ok {
		d = rest
	}
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	if host, _, ok := strings.Cut(d, ":"); ok {
		d = host
	}
	d = strings.TrimSuffix(d, ".")
	return strings.TrimPrefix(d, "www.")
}

// Validate normalizes addr and reports whether it is an acceptable email for
// the target domain: on the domain or a subdomain of it, or on a known
// personal provider.
func Validate(addr, domain string) (string, bool) {
	addr = strings.ToLower(strings.TrimSpace(addr))
	addr = strings.Trim(addr, ".,;:'\"<>()[]")
	if strings.Count(addr, "@") != 1 {
		return "", false
	}
	local, host, ok := model.SplitAddress(addr)
	if !ok {
		return "", false
	}
	if !localPartRe.MatchString(local) || strings.Contains(local, "..") {
		return "", false
	}
	if noReplyLocals[local] || placeholderLocals[local] {
		return "", false
	}

	for _, ext := range assetExtensions {
		if strings.HasSuffix(host, ext) {
			return "", false
		}
	}
	target := NormalizeDomain(domain)
	if placeholderDomains[host] && host != target {
		return "", false
	}
	if !validTLD(host) {
		return "", false
	}

	onDomain := host == target || strings.HasSuffix(host, "."+target)
	if !onDomain && !model.IsPersonalDomain(host) {
		return "", false
	}
	return addr, true
}

func validTLD(host string) bool {
	if strings.Contains(host, "..") || strings.HasPrefix(host, ".") || strings.HasPrefix(host, "-") {
		return false
	}
	i := strings.LastIndexByte(host, '.')
	if i <= 0 {
		return false
	}
	tld := host[i+1:]
	if len(tld) < 2 || len(tld) > 24 {
		return false
	}
	for _, r := range tld {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return !tldKeywords[tld]
}
