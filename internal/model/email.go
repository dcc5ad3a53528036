// Package model defines the records that flow through the email discovery,
// inference and verification pipeline.
package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

var (
	// ErrEmptyDomain is returned when a search is requested without a domain.
	ErrEmptyDomain = eris.New("domain is required")
	// ErrEmptyName is returned when a person search is missing a name half.
	ErrEmptyName = eris.New("first and last name are required")
)

// Source tags where a discovered address was seen.
type Source string

const (
	SourceMailto      Source = "mailto_link"
	SourceFooter      Source = "footer_text"
	SourceContactPage Source = "contact_page"
	SourceSchemaOrg   Source = "schema_org"
	SourceObfuscated  Source = "obfuscated"
	SourcePageText    Source = "page_text"
	SourceRawHTML     Source = "raw_html"
	SourceGenerated   Source = "generated"
)

// sourceBoosts holds the scoring boost per source, highest trust first.
var sourceBoosts = map[Source]float64{
	SourceMailto:      0.20,
	SourceFooter:      0.15,
	SourceContactPage: 0.12,
	SourceSchemaOrg:   0.10,
	SourceObfuscated:  0.08,
	SourcePageText:    0.05,
	SourceRawHTML:     0.02,
	SourceGenerated:   0,
}

// Boost returns the source-weighted boost used when scoring an address.
func (s Source) Boost() float64 {
	return sourceBoosts[s]
}

// Outranks reports whether s is a more trustworthy source than other.
func (s Source) Outranks(other Source) bool {
	return s.Boost() > other.Boost()
}

// Strong reports whether a single sighting from this source is enough to
// keep an address through the noise filter.
func (s Source) Strong() bool {
	return s == SourceFooter || s == SourceSchemaOrg
}

// EmailType classifies an address as belonging to the company or to a
// consumer mail provider.
type EmailType string

const (
	EmailTypeWork     EmailType = "work"
	EmailTypePersonal EmailType = "personal"
)

// personalDomains lists consumer mail providers never used for pattern learning.
var personalDomains = map[string]bool{
	"gmail.com":      true,
	"googlemail.com": true,
	"yahoo.com":      true,
	"ymail.com":      true,
	"hotmail.com":    true,
	"outlook.com":    true,
	"live.com":       true,
	"msn.com":        true,
	"aol.com":        true,
	"icloud.com":     true,
	"me.com":         true,
	"mac.com":        true,
	"protonmail.com": true,
	"proton.me":      true,
	"mail.com":       true,
	"gmx.com":        true,
	"zoho.com":       true,
	"yandex.com":     true,
}

// IsPersonalDomain reports whether domain is a known consumer mail provider.
func IsPersonalDomain(domain string) bool {
	return personalDomains[strings.ToLower(domain)]
}

// roleLocalParts are shared mailbox names that never identify a person.
var roleLocalParts = map[string]bool{
	"info":       true,
	"contact":    true,
	"hello":      true,
	"support":    true,
	"sales":      true,
	"team":       true,
	"admin":      true,
	"office":     true,
	"help":       true,
	"enquiries":  true,
	"inquiries":  true,
	"press":      true,
	"media":      true,
	"marketing":  true,
	"careers":    true,
	"jobs":       true,
	"hr":         true,
	"billing":    true,
	"accounts":   true,
	"privacy":    true,
	"legal":      true,
	"security":   true,
	"webmaster":  true,
	"postmaster": true,
	"abuse":      true,
	"service":    true,
	"partners":   true,
	"feedback":   true,
}

// IsRoleLocalPart reports whether a local part names a shared mailbox.
func IsRoleLocalPart(local string) bool {
	local = strings.ToLower(local)
	if roleLocalParts[local] {
		return true
	}
	// info-us, support.eu and similar regional variants.
	for _, sep := range []string{".", "-", "_", "+"} {
		if head, _, ok := strings.Cut(local, sep); ok && roleLocalParts[head] {
			return true
		}
	}
	return false
}

// SplitAddress returns the local part and domain of an address.
func SplitAddress(addr string) (local, domain string, ok bool) {
	i := strings.LastIndexByte(addr, '@')
	if i <= 0 || i == len(addr)-1 {
		return "", "", false
	}
	return addr[:i], addr[i+1:], true
}

// DiscoveredEmail is an address found in public content on the company's
// site. It is a fact, not a guess, unless Source is SourceGenerated.
type DiscoveredEmail struct {
	Address     string    `json:"address" yaml:"address"`
	Domain      string    `json:"domain" yaml:"domain"`
	Source      Source    `json:"source" yaml:"source"`
	SourceURL   string    `json:"source_url,omitempty" yaml:"source_url,omitempty"`
	Occurrences int       `json:"occurrences" yaml:"occurrences"`
	Type        EmailType `json:"email_type" yaml:"email_type"`
	RoleBased   bool      `json:"role_based" yaml:"role_based"`
	Boost       float64   `json:"boost" yaml:"boost"`
	PageType    PageType  `json:"page_type,omitempty" yaml:"page_type,omitempty"`
}

// IsGenerated reports whether the entry is a synthesized role fallback.
func (d DiscoveredEmail) IsGenerated() bool {
	return d.Source == SourceGenerated
}

// LocalPart returns the portion of the address before the @.
func (d DiscoveredEmail) LocalPart() string {
	local, _, _ := SplitAddress(d.Address)
	return local
}

// EligibleForLearning reports whether the address may feed pattern learning.
func (d DiscoveredEmail) EligibleForLearning() bool {
	return !d.IsGenerated() && !d.RoleBased && d.Type == EmailTypeWork
}

// PersonName is the optional person half of a search.
type PersonName struct {
	First string `json:"first_name" yaml:"first_name"`
	Last  string `json:"last_name" yaml:"last_name"`
}

// IsZero reports whether no name was supplied.
func (p PersonName) IsZero() bool {
	return strings.TrimSpace(p.First) == "" && strings.TrimSpace(p.Last) == ""
}

// Complete reports whether both halves of the name are present.
func (p PersonName) Complete() bool {
	return strings.TrimSpace(p.First) != "" && strings.TrimSpace(p.Last) != ""
}
