package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/email-finder/internal/model"
)

func byAddress(res Result) map[string]Match {
	out := make(map[string]Match, len(res.Emails))
	for _, m := range res.Emails {
		out[m.Address] = m
	}
	return out
}

const samplePage = `<!doctype html>
<html>
<head>
  <script type="application/ld+json">
  {"@context":"https://schema.org","@type":"Organization","name":"Acme Inc",
   "email":"press@acme.com",
   "contactPoint":[{"@type":"ContactPoint","email":"mailto:billing@acme.com"}],
   "founder":{"@type":"Person","name":"Jane Smith"}}
  </script>
  <style>.x{background:url(logo@2x.png)}</style>
</head>
<body>
  <p>Write to <a href="mailto:John.Doe@Acme.com?subject=Hi">John</a>.</p>
  <p>Or reach sales [at] acme [dot] com for pricing.</p>
  <p>Our CEO: Robert Brown leads the team.</p>
  <p>Questions? jane.roe@acme.com or someone@othercorp.com</p>
  <div class="site-footer">Copyright Acme. info@acme.com</div>
  <!-- legacy: old.admin@acme.com -->
  <img src="sprite@2x.png">
</body>
</html>`

func TestExtract_Sources(t *testing.T) {
	res := New().Extract(samplePage, "acme.com", model.PageTypeHomepage)
	got := byAddress(res)

	require.Contains(t, got, "john.doe@acme.com")
	assert.Equal(t, model.SourceMailto, got["john.doe@acme.com"].Source)

	require.Contains(t, got, "sales@acme.com")
	assert.Equal(t, model.SourceObfuscated, got["sales@acme.com"].Source)
	assert.True(t, got["sales@acme.com"].RoleBased)

	require.Contains(t, got, "info@acme.com")
	assert.Equal(t, model.SourceFooter, got["info@acme.com"].Source)

	require.Contains(t, got, "jane.roe@acme.com")
	assert.Equal(t, model.SourcePageText, got["jane.roe@acme.com"].Source)

	require.Contains(t, got, "press@acme.com")
	assert.Equal(t, model.SourceSchemaOrg, got["press@acme.com"].Source)
	require.Contains(t, got, "billing@acme.com")
	assert.Equal(t, model.SourceSchemaOrg, got["billing@acme.com"].Source)

	require.Contains(t, got, "old.admin@acme.com")
	assert.Equal(t, model.SourceRawHTML, got["old.admin@acme.com"].Source)

	assert.NotContains(t, got, "someone@othercorp.com")
	for addr := range got {
		assert.NotContains(t, addr, ".png")
	}
}

func TestExtract_ContactPageSource(t *testing.T) {
	page := `<html><body><p>Email jane.roe@acme.com</p></body></html>`
	res := New().Extract(page, "acme.com", model.PageTypeContact)
	require.Len(t, res.Emails, 1)
	assert.Equal(t, model.SourceContactPage, res.Emails[0].Source)
}

func TestExtract_DedupsWithinPageKeepingBestSource(t *testing.T) {
	page := `<html><body>
	<a href="mailto:jane.roe@acme.com">jane.roe@acme.com</a>
	<footer>jane.roe@acme.com</footer>
	</body></html>`
	res := New().Extract(page, "acme.com", model.PageTypeHomepage)
	require.Len(t, res.Emails, 1)
	assert.Equal(t, model.SourceMailto, res.Emails[0].Source)
}

func TestExtract_Names(t *testing.T) {
	res := New().Extract(samplePage, "acme.com", model.PageTypeAbout)
	assert.Contains(t, res.Names, "Jane Smith")
	assert.Contains(t, res.Names, "Robert Brown")
	assert.NotContains(t, res.Names, "Acme Inc")
}

func TestExtract_PersonalEmail(t *testing.T) {
	page := `<html><body><a href="mailto:owner.acme@gmail.com">Email</a></body></html>`
	res := New().Extract(page, "acme.com", model.PageTypeContact)
	require.Len(t, res.Emails, 1)
	assert.Equal(t, model.EmailTypePersonal, res.Emails[0].Type)
}

func TestExtract_SubdomainAccepted(t *testing.T) {
	page := `<html><body>ops@mail.acme.com</body></html>`
	res := New().Extract(page, "www.acme.com", model.PageTypeHomepage)
	require.Len(t, res.Emails, 1)
	assert.Equal(t, "ops@mail.acme.com", res.Emails[0].Address)
}

func TestExtract_CloudflareProtected(t *testing.T) {
	// "hi@acme.com" XOR 0x42.
	enc := "42"
	for _, b := range []byte("hi@acme.com") {
		enc += hexByte(b ^ 0x42)
	}
	page := `<html><body><a href="/cdn-cgi/l/email-protection" class="__cf_email__" data-cfemail="` + enc + `">[email protected]</a></body></html>`
	res := New().Extract(page, "acme.com", model.PageTypeHomepage)
	require.Len(t, res.Emails, 1)
	assert.Equal(t, "hi@acme.com", res.Emails[0].Address)
	assert.Equal(t, model.SourceObfuscated, res.Emails[0].Source)
}

func TestExtract_MalformedInputIsTolerated(t *testing.T) {
	page := `<html><body><div><p>Reach jane.roe@acme.com<script type="application/ld+json">{not json</script>`
	res := New().Extract(page, "acme.com", model.PageTypeHomepage)
	require.Len(t, res.Emails, 1)
	assert.Equal(t, "jane.roe@acme.com", res.Emails[0].Address)
}

func TestExtract_MultipleMailtoRecipients(t *testing.T) {
	page := `<html><body><a href="mailto:a.one@acme.com,b.two@acme.com">mail</a></body></html>`
	res := New().Extract(page, "acme.com", model.PageTypeHomepage)
	assert.Len(t, res.Emails, 2)
}

func TestFindObfuscated(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"john [at] acme [dot] com", []string{"john@acme.com"}},
		{"john(at)acme(dot)co(dot)uk", []string{"john@acme.co.uk"}},
		{"write to info at acme dot com today", []string{"info@acme.com"}},
		{"meet us at the office", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, findObfuscated(tt.text), tt.text)
	}
}

func TestParseJSONLD_DepthBounded(t *testing.T) {
	raw := `{"a":{"b":{"c":{"d":{"e":{"f":{"email":"deep@acme.com"}}}}}},"email":"top@acme.com"}`
	emails, _ := parseJSONLD(raw)
	assert.Equal(t, []string{"top@acme.com"}, emails)
}

func TestParseJSONLD_Malformed(t *testing.T) {
	emails, names := parseJSONLD(`{"email": `)
	assert.Empty(t, emails)
	assert.Empty(t, names)
}

func TestValidName(t *testing.T) {
	assert.True(t, validName("Jane Smith"))
	assert.False(t, validName("Jane"))
	assert.False(t, validName("J Smith"))
}

func hexByte(b byte) string {
	const digits = "0123456789abcdef"
	return string([]byte{digits[b>>4], digits[b&0x0f]})
}
