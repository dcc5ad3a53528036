package model

import "time"

// VerificationStatus is the interpreted outcome of verifying an address.
type VerificationStatus string

const (
	StatusValid      VerificationStatus = "valid"
	StatusInvalid    VerificationStatus = "invalid"
	StatusCatchAll   VerificationStatus = "catch_all"
	StatusGreylisted VerificationStatus = "greylisted"
	StatusUnverified VerificationStatus = "unverified"
)

// SMTPSignal carries the raw technical observations of one verification
// attempt. It holds no confidence and no verdict.
type SMTPSignal struct {
	Address     string    `json:"address" yaml:"address"`
	SyntaxValid bool      `json:"syntax_valid" yaml:"syntax_valid"`
	MXValid     bool      `json:"mx_valid" yaml:"mx_valid"`
	MXHost      string    `json:"mx_host,omitempty" yaml:"mx_host,omitempty"`
	SMTPAccepts bool      `json:"smtp_accepts" yaml:"smtp_accepts"`
	CatchAll    bool      `json:"catch_all" yaml:"catch_all"`
	Greylisted  bool      `json:"greylisted" yaml:"greylisted"`
	SMTPCode    int       `json:"smtp_code,omitempty" yaml:"smtp_code,omitempty"`
	Error       string    `json:"error,omitempty" yaml:"error,omitempty"`
	CheckedAt   time.Time `json:"checked_at" yaml:"checked_at"`
}

// Rejected reports whether the server explicitly refused the recipient.
func (s SMTPSignal) Rejected() bool {
	return s.SyntaxValid && s.MXValid && !s.SMTPAccepts && !s.Greylisted && !s.CatchAll && s.SMTPCode >= 500
}
