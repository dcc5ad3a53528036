package verify

import "strings"

// Heuristic adjusts a probe result for a known mail server quirk. Apply
// reports whether it changed anything.
type Heuristic interface {
	Name() string
	Apply(r *ProbeResult) bool
}

// DefaultHeuristics returns the built-in server quirk handlers in the order
// they are applied.
func DefaultHeuristics() []Heuristic {
	return []Heuristic{
		policyBlock{},
		authChallenge{},
		greylist{},
	}
}

func containsAny(msg string, needles ...string) bool {
	msg = strings.ToLower(msg)
	for _, n := range needles {
		if strings.Contains(msg, n) {
			return true
		}
	}
	return false
}

// greylist marks temporary deferrals. A 4xx reply, or a 5xx that says to
// come back later, is not a rejection.
type greylist struct{}

func (greylist) Name() string { return "greylist" }

func (greylist) Apply(r *ProbeResult) bool {
	if r.Accepted || r.Code == 0 {
		return false
	}
	temporary := r.Code >= 400 && r.Code < 500
	if !temporary && !containsAny(r.Message, "greylist", "graylist", "try again later", "temporarily deferred") {
		return false
	}
	r.Greylisted = true
	return true
}

// authChallenge treats servers that demand authentication before RCPT as
// unprovable, which downstream reads the same way as a catch-all.
type authChallenge struct{}

func (authChallenge) Name() string { return "auth_challenge" }

func (authChallenge) Apply(r *ProbeResult) bool {
	if r.Accepted || r.Code == 0 {
		return false
	}
	if r.Code != 530 && !containsAny(r.Message, "authentication required", "auth required", "must authenticate") {
		return false
	}
	r.CatchAll = true
	return true
}

// policyBlock recognises refusals aimed at the prober's IP rather than the
// mailbox. Those say nothing about the recipient.
type policyBlock struct{}

func (policyBlock) Name() string { return "policy_block" }

func (policyBlock) Apply(r *ProbeResult) bool {
	if r.Accepted || r.Code < 500 {
		return false
	}
	if !containsAny(r.Message, "spamhaus", "blocklist", "blacklist", "block list", "listed at", "client host rejected", "reverse dns") {
		return false
	}
	r.Inconclusive = true
	return true
}
