// Package extract pulls email addresses and person-name signals out of
// fetched HTML.
package extract

import (
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/sells-group/email-finder/internal/model"
)

var emailRe = regexp.MustCompile(`(?i)\b[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,24}\b`)

// Match is one accepted address from a page.
type Match struct {
	Address   string          `json:"address"`
	Source    model.Source    `json:"source"`
	Type      model.EmailType `json:"email_type"`
	RoleBased bool            `json:"role_based"`
}

// Result holds everything extracted from one page. Emails are unique by
// address, each tagged with the most trusted source it was seen in.
type Result struct {
	Emails []Match  `json:"emails"`
	Names  []string `json:"names,omitempty"`
}

// Extractor parses pages for a single target domain. It is stateless and
// safe for concurrent use.
type Extractor struct{}

// New creates an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// page is the parsed view of an HTML document.
type page struct {
	mailto  []string
	cfemail []string
	jsonLD  []string
	footer  strings.Builder
	text    strings.Builder
}

// Extract runs every extraction step over body. pageType decides whether
// plain text matches count as contact-page sightings.
func (e *Extractor) Extract(body, domain string, pageType model.PageType) Result {
	c := newCollector(domain)

	p := parsePage(body)

	// mailto links carry the highest trust.
	for _, href := range p.mailto {
		for _, addr := range mailtoAddresses(href) {
			c.add(addr, model.SourceMailto)
		}
	}

	for _, enc := range p.cfemail {
		if addr, ok := decodeCFEmail(enc); ok {
			c.add(addr, model.SourceObfuscated)
		}
	}

	text := p.text.String()
	for _, addr := range findObfuscated(text) {
		c.add(addr, model.SourceObfuscated)
	}

	for _, addr := range emailRe.FindAllString(p.footer.String(), -1) {
		c.add(addr, model.SourceFooter)
	}

	textSource := model.SourcePageText
	if pageType.IsProminent() {
		textSource = model.SourceContactPage
	}
	for _, addr := range emailRe.FindAllString(text, -1) {
		c.add(addr, textSource)
	}

	for _, raw := range p.jsonLD {
		emails, names := parseJSONLD(raw)
		for _, addr := range emails {
			c.add(addr, model.SourceSchemaOrg)
		}
		for _, n := range names {
			c.addName(n)
		}
	}

	// Last resort: attributes, comments and inline scripts.
	for _, addr := range emailRe.FindAllString(html.UnescapeString(body), -1) {
		c.add(addr, model.SourceRawHTML)
	}

	for _, n := range findNames(text) {
		c.addName(n)
	}

	return c.result()
}

// parsePage walks the document once, collecting mailto hrefs, Cloudflare
// protected addresses, JSON-LD blocks, footer text and visible text.
// Malformed markup is tolerated; whatever parses is used.
func parsePage(body string) *page {
	p := &page{}
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		zap.L().Debug("extract: html parse failed", zap.Error(err))
		p.text.WriteString(body)
		return p
	}

	var walk func(n *html.Node, inFooter bool)
	walk = func(n *html.Node, inFooter bool) {
		switch n.Type {
		case html.TextNode:
			t := strings.TrimSpace(n.Data)
			if t == "" {
				return
			}
			p.text.WriteString(t)
			p.text.WriteByte(' ')
			if inFooter {
				p.footer.WriteString(t)
				p.footer.WriteByte(' ')
			}
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script:
				if strings.EqualFold(attr(n, "type"), "application/ld+json") && n.FirstChild != nil {
					p.jsonLD = append(p.jsonLD, n.FirstChild.Data)
				}
				return
			case atom.Style, atom.Noscript, atom.Template, atom.Svg:
				return
			case atom.A:
				if href := strings.TrimSpace(attr(n, "href")); len(href) > 7 && strings.EqualFold(href[:7], "mailto:") {
					p.mailto = append(p.mailto, href)
				}
			case atom.Footer:
				inFooter = true
			}
			if enc := attr(n, "data-cfemail"); enc != "" {
				p.cfemail = append(p.cfemail, enc)
			}
			if !inFooter && isFooterContainer(n) {
				inFooter = true
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child, inFooter)
		}
	}
	walk(doc, false)
	return p
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func isFooterContainer(n *html.Node) bool {
	id := strings.ToLower(attr(n, "id"))
	class := strings.ToLower(attr(n, "class"))
	return strings.Contains(id, "footer") || strings.Contains(class, "footer") ||
		strings.EqualFold(attr(n, "role"), "contentinfo")
}

// mailtoAddresses returns the recipients of a mailto: href.
func mailtoAddresses(href string) []string {
	v := href[len("mailto:"):]
	if i := strings.IndexByte(v, '?'); i >= 0 {
		v = v[:i]
	}
	if unescaped, err := url.PathUnescape(v); err == nil {
		v = unescaped
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// decodeCFEmail reverses Cloudflare's email protection: the first hex byte
// is an XOR key for the remaining bytes.
func decodeCFEmail(enc string) (string, bool) {
	b, err := hex.DecodeString(enc)
	if err != nil || len(b) < 2 {
		return "", false
	}
	key := b[0]
	out := make([]byte, len(b)-1)
	for i, c := range b[1:] {
		out[i] = c ^ key
	}
	return string(out), true
}

// collector dedups accepted addresses, keeping the most trusted source.
type collector struct {
	domain    string
	order     []string
	emails    map[string]*Match
	names     map[string]bool
	nameOrder []string
}

func newCollector(domain string) *collector {
	return &collector{
		domain: NormalizeDomain(domain),
		emails: make(map[string]*Match),
		names:  make(map[string]bool),
	}
}

func (c *collector) add(raw string, source model.Source) {
	addr, ok := Validate(raw, c.domain)
	if !ok {
		return
	}
	if m, seen := c.emails[addr]; seen {
		if source.Outranks(m.Source) {
			m.Source = source
		}
		return
	}
	local, host, _ := model.SplitAddress(addr)
	typ := model.EmailTypeWork
	if model.IsPersonalDomain(host) {
		typ = model.EmailTypePersonal
	}
	c.emails[addr] = &Match{
		Address:   addr,
		Source:    source,
		Type:      typ,
		RoleBased: model.IsRoleLocalPart(local),
	}
	c.order = append(c.order, addr)
}

func (c *collector) addName(name string) {
	name = strings.Join(strings.Fields(name), " ")
	if !validName(name) || c.names[name] {
		return
	}
	c.names[name] = true
	c.nameOrder = append(c.nameOrder, name)
}

func (c *collector) result() Result {
	res := Result{Emails: make([]Match, 0, len(c.order)), Names: c.nameOrder}
	for _, addr := range c.order {
		res.Emails = append(res.Emails, *c.emails[addr])
	}
	return res
}
