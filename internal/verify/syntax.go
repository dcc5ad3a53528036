// Package verify is the technical sensor for email addresses: syntax, MX
// and SMTP signals. It reports what servers said and never assigns
// confidence.
package verify

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sells-group/email-finder/internal/model"
)

// SyntaxChecker validates address shape.
type SyntaxChecker interface {
	Valid(addr string) bool
}

// RFCSyntax checks addresses with go-playground/validator's email rule plus
// a dotted domain requirement.
type RFCSyntax struct {
	v *validator.Validate
}

// NewRFCSyntax creates an RFCSyntax checker.
func NewRFCSyntax() *RFCSyntax {
	return &RFCSyntax{v: validator.New()}
}

// Valid reports whether addr is a syntactically valid mailbox address.
func (s *RFCSyntax) Valid(addr string) bool {
	if addr == "" || len(addr) > 254 || strings.Count(addr, "@") != 1 {
		return false
	}
	local, domain, ok := model.SplitAddress(addr)
	if !ok || len(local) > 64 || !strings.Contains(domain, ".") {
		return false
	}
	return s.v.Var(addr, "required,email") == nil
}
