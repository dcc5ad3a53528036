package discovery

import (
	"sort"

	"github.com/sells-group/email-finder/internal/model"
)

// sighting is the merge state for one address across pages.
type sighting struct {
	email     model.DiscoveredEmail
	prominent bool
}

// keep applies the noise filter to a merged address.
func keep(s *sighting) bool {
	e := s.email
	switch {
	case e.Source == model.SourceMailto:
		return true
	case e.Occurrences >= 2:
		return true
	case e.Source.Strong():
		return true
	case e.Type == model.EmailTypePersonal && (s.prominent || e.Source == model.SourceContactPage):
		return true
	}
	return false
}

// filterNoise returns the surviving addresses ordered by boost, then
// occurrences, then address.
func filterNoise(merged map[string]*sighting) (kept []model.DiscoveredEmail, dropped int) {
	for _, s := range merged {
		if keep(s) {
			kept = append(kept, s.email)
		} else {
			dropped++
		}
	}
	sortEmails(kept)
	return kept, dropped
}

func sortEmails(emails []model.DiscoveredEmail) {
	sort.SliceStable(emails, func(i, j int) bool {
		a, b := emails[i], emails[j]
		if a.Boost != b.Boost {
			return a.Boost > b.Boost
		}
		if a.Occurrences != b.Occurrences {
			return a.Occurrences > b.Occurrences
		}
		return a.Address < b.Address
	})
}

// roleFallbacks synthesizes generic role addresses for domain.
func roleFallbacks(domain string) []model.DiscoveredEmail {
	out := make([]model.DiscoveredEmail, 0, len(FallbackLocalParts))
	for _, local := range FallbackLocalParts {
		out = append(out, model.DiscoveredEmail{
			Address:   local + "@" + domain,
			Domain:    domain,
			Source:    model.SourceGenerated,
			Type:      model.EmailTypeWork,
			RoleBased: true,
		})
	}
	return out
}
