package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		addr string
		want string
		ok   bool
	}{
		{"work", "John.Doe@Acme.com", "john.doe@acme.com", true},
		{"trailing punctuation", "jane@acme.com.", "jane@acme.com", true},
		{"subdomain", "ops@eu.acme.com", "ops@eu.acme.com", true},
		{"personal provider", "acme.owner@gmail.com", "acme.owner@gmail.com", true},
		{"other company", "bob@rival.com", "", false},
		{"lookalike domain", "bob@notacme.com", "", false},
		{"two at signs", "a@b@acme.com", "", false},
		{"no local", "@acme.com", "", false},
		{"asset filename", "logo@2x.png", "", false},
		{"asset on domain", "icon@acme.com.js", "", false},
		{"placeholder domain", "you@example.com", "", false},
		{"placeholder local", "yourname@acme.com", "", false},
		{"noreply", "noreply@acme.com", "", false},
		{"no-reply", "No-Reply@acme.com", "", false},
		{"donotreply", "donotreply@acme.com", "", false},
		{"keyword tld", "handler@acme.then", "", false},
		{"numeric tld", "a@acme.c0m", "", false},
		{"long tld", "a@acme.abcdefghijklmnopqrstuvwxyz", "", false},
		{"double dot local", "john..doe@acme.com", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Validate(tt.addr, "acme.com")
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeDomain(t *testing.T) {
	assert.Equal(t, "acme.com", NormalizeDomain(" WWW.Acme.com. "))
	assert.Equal(t, "acme.com", NormalizeDomain("acme.com"))
	assert.Equal(t, "acme.com", NormalizeDomain("https://www.acme.com:443/contact?x=1"))
	assert.Empty(t, NormalizeDomain("  "))
}
