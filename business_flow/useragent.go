package businessflow

import "strings"

// Device classes derived from the user agent at intake time
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
	DeviceBot     = "bot"
)

// ClassifyDevice buckets a user agent into a coarse device class
func ClassifyDevice(userAgent string) string {
	ua := strings.ToLower(userAgent)
	switch {
	case ua == "":
		return DeviceDesktop
	case strings.Contains(ua, "bot") || strings.Contains(ua, "spider") || strings.Contains(ua, "crawler"):
		return DeviceBot
	case strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet"):
		return DeviceTablet
	case strings.Contains(ua, "mobi") || strings.Contains(ua, "iphone") || strings.Contains(ua, "android"):
		return DeviceMobile
	default:
		return DeviceDesktop
	}
}

// ClassifyOS extracts a coarse operating system name from a user agent
func ClassifyOS(userAgent string) string {
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad") || strings.Contains(ua, "ios"):
		return "ios"
	case strings.Contains(ua, "android"):
		return "android"
	case strings.Contains(ua, "windows"):
		return "windows"
	case strings.Contains(ua, "mac os") || strings.Contains(ua, "macintosh"):
		return "macos"
	case strings.Contains(ua, "linux"):
		return "linux"
	default:
		return "other"
	}
}

// NormalizeReferer reduces a referer URL to its host part for grouping
func NormalizeReferer(referer string) string {
	if referer == "" {
		return ""
	}
	r := referer
	if idx := strings.Index(r, "://"); idx >= 0 {
		r = r[idx+3:]
	}
	if idx := strings.IndexAny(r, "/?#"); idx >= 0 {
		r = r[:idx]
	}
	return strings.ToLower(strings.TrimPrefix(r, "www."))
}
