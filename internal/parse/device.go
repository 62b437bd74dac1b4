package parse

import (
	"strings"

	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/internal/model"
)

// mobileMarkers are User-Agent fragments that identify handheld platforms.
var mobileMarkers = []string{"android", "iphone", "ipad", "ipod", "mobile", "opera mini"}

// browserMarkers identify desktop browsers capable of Web Push.
var browserMarkers = []string{"mozilla", "chrome", "firefox", "safari", "edg", "opera"}

// ClassifyDevice maps a client's explicit platform hint, or failing that its
// User-Agent string, onto a device class. Clients that state their platform
// are trusted; the User-Agent sniff only runs when the hint is absent.
func ClassifyDevice(userAgent, platformHint string) model.DeviceClass {
	switch strings.ToLower(strings.TrimSpace(platformHint)) {
	case "android", "ios", "mobile":
		return model.DeviceMobile
	case "web", "desktop", "desktop-web", "browser":
		return model.DeviceDesktopWeb
	case "":
		// No hint; fall through to the User-Agent.
	default:
		return model.DeviceOther
	}

	ua := strings.ToLower(userAgent)
	if ua == "" {
		return model.DeviceOther
	}
	for _, marker := range mobileMarkers {
		if strings.Contains(ua, marker) {
			return model.DeviceMobile
		}
	}
	for _, marker := range browserMarkers {
		if strings.Contains(ua, marker) {
			return model.DeviceDesktopWeb
		}
	}
	return model.DeviceOther
}
