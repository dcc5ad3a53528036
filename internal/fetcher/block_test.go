package fetcher

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectBlock(t *testing.T) {
	cf := http.Header{}
	cf.Set("cf-ray", "123")
	server := http.Header{}
	server.Set("Server", "cloudflare")

	bigPage := "<html><body>" + strings.Repeat("<p>Company news and more.</p>", 1000) +
		`<div class="g-recaptcha"></div></body></html>`

	tests := []struct {
		name   string
		status int
		header http.Header
		body   string
		want   BlockType
	}{
		{"normal page", 200, http.Header{}, "<html><body>Contact us</body></html>", BlockNone},
		{"cloudflare header", 403, cf, "", BlockCloudflare},
		{"cloudflare server", 503, server, "", BlockCloudflare},
		{"cf header on 200 ignored", 200, cf, "<html>fine</html>", BlockNone},
		{"challenge body", 200, http.Header{}, "<title>Just a moment</title>Checking your browser before accessing", BlockCloudflare},
		{"captcha page", 200, http.Header{}, `<div class="g-recaptcha"></div>`, BlockCaptcha},
		{"captcha widget on large page", 200, http.Header{}, bigPage, BlockNone},
		{"js shell", 200, http.Header{}, "<html><noscript>Please enable JavaScript</noscript></html>", BlockJSShell},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectBlock(tt.status, tt.header, []byte(tt.body)))
		})
	}
}

func TestIsMarkup(t *testing.T) {
	assert.True(t, isMarkup(""))
	assert.True(t, isMarkup("text/html; charset=utf-8"))
	assert.True(t, isMarkup("application/xhtml+xml"))
	assert.True(t, isMarkup("text/plain"))
	assert.False(t, isMarkup("image/png"))
	assert.False(t, isMarkup("application/pdf"))
}
