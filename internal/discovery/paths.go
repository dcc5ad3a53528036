package discovery

// DefaultPaths is the catalog of relative paths crawled for every domain.
var DefaultPaths = []string{
	"/",
	"/contact",
	"/contact-us",
	"/contactus",
	"/about",
	"/about-us",
	"/company",
	"/team",
	"/our-team",
	"/people",
	"/leadership",
	"/management",
	"/staff",
	"/careers",
	"/jobs",
	"/press",
	"/media",
	"/news",
	"/newsroom",
	"/support",
	"/help",
	"/legal",
	"/privacy",
	"/privacy-policy",
	"/imprint",
	"/impressum",
}

// FallbackLocalParts are the role mailboxes synthesized when a crawl finds
// no work email. They are not discovered facts.
var FallbackLocalParts = []string{"info", "contact", "hello", "support", "sales", "team"}
