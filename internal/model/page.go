package model

import "strings"

// PageType represents the category of a crawled company page.
type PageType string

const (
	PageTypeHomepage PageType = "homepage"
	PageTypeAbout    PageType = "about"
	PageTypeContact  PageType = "contact"
	PageTypeTeam     PageType = "team"
	PageTypeCareers  PageType = "careers"
	PageTypePress    PageType = "press"
	PageTypeSupport  PageType = "support"
	PageTypeLegal    PageType = "legal"
	PageTypeOther    PageType = "other"
)

// AllPageTypes returns all defined page types.
func AllPageTypes() []PageType {
	return []PageType{
		PageTypeHomepage,
		PageTypeAbout,
		PageTypeContact,
		PageTypeTeam,
		PageTypeCareers,
		PageTypePress,
		PageTypeSupport,
		PageTypeLegal,
		PageTypeOther,
	}
}

// pageKeywords maps URL path fragments to page types, checked in order.
var pageKeywords = []struct {
	fragment string
	pageType PageType
}{
	{"contact", PageTypeContact},
	{"career", PageTypeCareers},
	{"jobs", PageTypeCareers},
	{"about", PageTypeAbout},
	{"company", PageTypeAbout},
	{"team", PageTypeTeam},
	{"people", PageTypeTeam},
	{"leadership", PageTypeTeam},
	{"staff", PageTypeTeam},
	{"press", PageTypePress},
	{"news", PageTypePress},
	{"media", PageTypePress},
	{"support", PageTypeSupport},
	{"help", PageTypeSupport},
	{"privacy", PageTypeLegal},
	{"legal", PageTypeLegal},
	{"terms", PageTypeLegal},
	{"imprint", PageTypeLegal},
	{"impressum", PageTypeLegal},
}

// PageTypeForPath classifies a URL path by keyword.
func PageTypeForPath(path string) PageType {
	p := strings.ToLower(strings.Trim(path, "/"))
	if p == "" || p == "index.html" {
		return PageTypeHomepage
	}
	for _, kw := range pageKeywords {
		if strings.Contains(p, kw.fragment) {
			return kw.pageType
		}
	}
	return PageTypeOther
}

// IsProminent reports whether emails on this page type are published
// deliberately for outside contact.
func (pt PageType) IsProminent() bool {
	switch pt {
	case PageTypeContact, PageTypeAbout, PageTypeCareers, PageTypeTeam:
		return true
	}
	return false
}

// CrawledPage represents a page fetched during discovery.
type CrawledPage struct {
	URL        string   `json:"url"`
	Path       string   `json:"path"`
	PageType   PageType `json:"page_type"`
	HTML       string   `json:"html,omitempty"`
	StatusCode int      `json:"status_code"`
}
