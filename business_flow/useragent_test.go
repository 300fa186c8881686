package businessflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyDevice(t *testing.T) {
	cases := []struct {
		name      string
		userAgent string
		expected  string
	}{
		{"empty", "", DeviceDesktop},
		{"iphone", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)", DeviceMobile},
		{"android phone", "Mozilla/5.0 (Linux; Android 14; Pixel 8) Mobile", DeviceMobile},
		{"ipad", "Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X)", DeviceTablet},
		{"windows desktop", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)", DeviceDesktop},
		{"crawler", "Googlebot/2.1 (+http://www.google.com/bot.html)", DeviceBot},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ClassifyDevice(tc.userAgent))
		})
	}
}

func TestClassifyOS(t *testing.T) {
	cases := []struct {
		name      string
		userAgent string
		expected  string
	}{
		{"iphone", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)", "ios"},
		{"android", "Mozilla/5.0 (Linux; Android 14; Pixel 8) Mobile", "android"},
		{"windows", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)", "windows"},
		{"macos", "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_0)", "macos"},
		{"linux", "Mozilla/5.0 (X11; Linux x86_64)", "linux"},
		{"unknown", "curl/8.4.0", "other"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ClassifyOS(tc.userAgent))
		})
	}
}

func TestNormalizeReferer(t *testing.T) {
	cases := []struct {
		name     string
		referer  string
		expected string
	}{
		{"empty", "", ""},
		{"full url", "https://www.instagram.com/some/path?q=1", "instagram.com"},
		{"no scheme", "t.co/abc", "t.co"},
		{"uppercase host", "HTTPS://News.Ycombinator.com/item", "news.ycombinator.com"},
		{"bare host", "example.com", "example.com"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, NormalizeReferer(tc.referer))
		})
	}
}

func TestBuildVisitorKey(t *testing.T) {
	assert.Equal(t, "203.0.113.1:sess-a", BuildVisitorKey("203.0.113.1", "sess-a"))
	// without a session the key degrades to the bare IP
	assert.Equal(t, "203.0.113.1", BuildVisitorKey("203.0.113.1", ""))
}
