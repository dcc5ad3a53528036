package inference

import (
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/email-finder/internal/model"
)

// AlternativeFactor scales pattern confidence for alternative templates.
const AlternativeFactor = 0.7

// alternatives maps a confirmed template to likely sibling conventions.
var alternatives = map[model.Template][]model.Template{
	model.TemplateFirstDotLast:   {model.TemplateFDotLast, model.TemplateFLast, model.TemplateFirstUnderLast},
	model.TemplateFirstUnderLast: {model.TemplateFirstDotLast, model.TemplateFDotLast, model.TemplateFirstLast},
	model.TemplateFDotLast:       {model.TemplateFirstDotLast, model.TemplateFLast},
	model.TemplateFLast:          {model.TemplateFDotLast, model.TemplateFirstDotLast},
	model.TemplateFirstLast:      {model.TemplateFirstDotLast, model.TemplateFirstUnderLast},
	model.TemplateFirstDashLast:  {model.TemplateFirstDotLast, model.TemplateFirstUnderLast},
}

// Render builds the local part for template from already normalized name
// halves. It reports false when the template is unknown or a half is empty.
func Render(t model.Template, first, last string) (string, bool) {
	if first == "" {
		return "", false
	}
	if last == "" && t != model.TemplateFirst {
		return "", false
	}
	f := first[:1]

	var local string
	switch t {
	case model.TemplateFirstDotLast:
		local = first + "." + last
	case model.TemplateFirstUnderLast:
		local = first + "_" + last
	case model.TemplateFirstDashLast:
		local = first + "-" + last
	case model.TemplateFirstLast:
		local = first + last
	case model.TemplateFDotLast:
		local = f + "." + last
	case model.TemplateFLast:
		local = f + last
	case model.TemplateFUnderLast:
		local = f + "_" + last
	case model.TemplateLastDotFirst:
		local = last + "." + first
	case model.TemplateLastFirst:
		local = last + first
	case model.TemplateFirst:
		local = first
	default:
		return "", false
	}
	return collapseSeparators(strings.ToLower(local)), true
}

// collapseSeparators squeezes runs of the same separator ("mary--jane").
func collapseSeparators(local string) string {
	for _, sep := range []string{"--", "__", ".."} {
		for strings.Contains(local, sep) {
			local = strings.ReplaceAll(local, sep, sep[:1])
		}
	}
	return local
}

// Generator renders candidate addresses from a confirmed pattern.
type Generator struct{}

// NewGenerator creates a Generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate returns the primary candidate for pattern followed by its
// alternatives. It returns nothing unless the pattern is confirmed, applies
// to a company domain, and both name halves are present.
func (g *Generator) Generate(name model.PersonName, domain string, p *model.Pattern) []model.Candidate {
	if p == nil || p.Confidence < MinConfidence {
		return nil
	}
	domain = strings.ToLower(strings.TrimSpace(domain))
	if model.IsPersonalDomain(domain) || model.IsPersonalDomain(p.Domain) {
		zap.L().Debug("inference: refusing pattern from personal domain",
			zap.String("domain", domain),
		)
		return nil
	}
	first := NormalizeName(name.First)
	last := NormalizeName(name.Last)
	if first == "" || last == "" {
		return nil
	}

	seen := make(map[string]bool)
	var out []model.Candidate
	add := func(t model.Template, conf float64, primary bool) {
		local, ok := Render(t, first, last)
		if !ok {
			return
		}
		addr := local + "@" + domain
		if seen[addr] {
			return
		}
		seen[addr] = true
		out = append(out, model.Candidate{
			Address:           addr,
			PatternUsed:       t,
			PatternConfidence: conf,
			Status:            model.StatusUnverified,
			Primary:           primary,
		})
	}

	add(p.Template, p.Confidence, true)
	if len(out) == 0 {
		return nil
	}
	for _, alt := range alternatives[p.Template] {
		add(alt, p.Confidence*AlternativeFactor, false)
	}
	return out
}
