package verify

import (
	"fmt"
	"strings"

	"github.com/sells-group/email-finder/internal/model"
)

// Interpret maps raw signals to a verification status.
func Interpret(sig model.SMTPSignal) model.VerificationStatus {
	switch {
	case !sig.SyntaxValid:
		return model.StatusInvalid
	case !sig.MXValid && sig.Error == "":
		return model.StatusInvalid
	case !sig.MXValid:
		return model.StatusUnverified
	case sig.CatchAll:
		return model.StatusCatchAll
	case sig.SMTPAccepts:
		return model.StatusValid
	case sig.Greylisted:
		return model.StatusGreylisted
	case sig.Rejected():
		return model.StatusInvalid
	default:
		return model.StatusUnverified
	}
}

// Explain describes a signal in one line for logs and CLI output.
func Explain(sig model.SMTPSignal) string {
	switch {
	case !sig.SyntaxValid:
		return "invalid address syntax"
	case !sig.MXValid && sig.Error != "":
		return "mx lookup failed: " + sig.Error
	case !sig.MXValid:
		return "domain has no mail exchanger"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "mx %s", sig.MXHost)
	switch {
	case sig.Error != "":
		fmt.Fprintf(&b, ", smtp not conclusive (%s)", sig.Error)
	case sig.CatchAll:
		b.WriteString(", server accepts any recipient (catch-all)")
	case sig.SMTPAccepts:
		fmt.Fprintf(&b, ", recipient accepted (%d)", sig.SMTPCode)
	case sig.Greylisted:
		fmt.Fprintf(&b, ", temporarily deferred (%d)", sig.SMTPCode)
	case sig.Rejected():
		fmt.Fprintf(&b, ", recipient rejected (%d)", sig.SMTPCode)
	default:
		b.WriteString(", smtp not checked")
	}
	return b.String()
}
