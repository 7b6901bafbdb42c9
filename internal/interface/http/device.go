package httpapi

import (
	"strings"

	sessionDomain "elearn-sessions/internal/domain/session"
)

// parseDevice 從 User-Agent 粗略判斷裝置描述，僅供顯示與安全訊號。
func parseDevice(ua string) sessionDomain.Device {
	dev := sessionDomain.Device{Type: sessionDomain.DeviceUnknown, Name: "Unknown"}
	if ua == "" {
		return dev
	}
	lower := strings.ToLower(ua)

	switch {
	case strings.Contains(lower, "ipad") || strings.Contains(lower, "tablet"):
		dev.Type = sessionDomain.DeviceTablet
	case strings.Contains(lower, "mobile") || strings.Contains(lower, "iphone") || strings.Contains(lower, "android"):
		dev.Type = sessionDomain.DeviceMobile
	case strings.Contains(lower, "mozilla"):
		dev.Type = sessionDomain.DeviceDesktop
	}

	switch {
	case strings.Contains(lower, "edg/"):
		dev.Browser = "Edge"
	case strings.Contains(lower, "chrome"):
		dev.Browser = "Chrome"
	case strings.Contains(lower, "safari"):
		dev.Browser = "Safari"
	case strings.Contains(lower, "firefox"):
		dev.Browser = "Firefox"
	}

	switch {
	case strings.Contains(lower, "windows"):
		dev.OS = "Windows"
	case strings.Contains(lower, "mac os"):
		dev.OS = "macOS"
	case strings.Contains(lower, "android"):
		dev.OS = "Android"
	case strings.Contains(lower, "iphone"), strings.Contains(lower, "ipad"):
		dev.OS = "iOS"
	case strings.Contains(lower, "linux"):
		dev.OS = "Linux"
	}

	if dev.Browser != "" && dev.OS != "" {
		dev.Name = dev.Browser + " on " + dev.OS
	} else if dev.Browser != "" {
		dev.Name = dev.Browser
	}
	return dev
}
