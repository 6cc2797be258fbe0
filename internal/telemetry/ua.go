// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package telemetry

import (
	"strings"

	"studiosite/internal/models"
)

// pattern maps a set of user-agent substrings to a label. The first
// pattern with any matching substring wins, so order matters: Edge and
// Opera identify as Chrome too, and Chrome identifies as Safari.
type pattern struct {
	label  string
	tokens []string
}

func (p pattern) matches(ua string) bool {
	for _, tok := range p.tokens {
		if strings.Contains(ua, tok) {
			return true
		}
	}
	return false
}

var browserPatterns = []pattern{
	{"Edge", []string{"edg/", "edga/", "edgios/", "edge/"}},
	{"Opera", []string{"opr/", "opera"}},
	{"Samsung Internet", []string{"samsungbrowser/"}},
	{"Firefox", []string{"firefox/", "fxios/"}},
	{"Chrome", []string{"chrome/", "crios/", "chromium/"}},
	{"Safari", []string{"safari/"}},
	{"Internet Explorer", []string{"msie ", "trident/"}},
}

// iOS is checked before macOS because iPad and iPhone agents contain
// "like Mac OS X", and Android before Linux for the same reason.
var osPatterns = []pattern{
	{"Windows", []string{"windows nt", "windows phone", "win64", "win32"}},
	{"iOS", []string{"iphone", "ipad", "ipod"}},
	{"macOS", []string{"mac os x", "macintosh"}},
	{"Android", []string{"android"}},
	{"Chrome OS", []string{"cros "}},
	{"Linux", []string{"linux", "x11"}},
}

var (
	tabletTokens = []string{"ipad", "tablet", "kindle", "silk/", "playbook"}
	mobileTokens = []string{"mobi", "iphone", "ipod", "android", "blackberry", "iemobile", "opera mini", "windows phone"}
)

// ClassifyDevice infers the device class from a user agent. Tablets are
// checked first so an Android tablet is not reported as a phone; an agent
// matching neither is a desktop.
func ClassifyDevice(userAgent string) models.DeviceType {
	ua := strings.ToLower(userAgent)

	for _, tok := range tabletTokens {
		if strings.Contains(ua, tok) {
			return models.DeviceTablet
		}
	}
	// Android phones advertise "Mobile"; Android tablets don't.
	if strings.Contains(ua, "android") && !strings.Contains(ua, "mobile") {
		return models.DeviceTablet
	}
	for _, tok := range mobileTokens {
		if strings.Contains(ua, tok) {
			return models.DeviceMobile
		}
	}
	return models.DeviceDesktop
}

// DetectBrowser returns the browser family, or models.Unknown.
func DetectBrowser(userAgent string) string {
	return firstMatch(browserPatterns, userAgent)
}

// DetectOS returns the operating system family, or models.Unknown.
func DetectOS(userAgent string) string {
	return firstMatch(osPatterns, userAgent)
}

func firstMatch(patterns []pattern, userAgent string) string {
	ua := strings.ToLower(userAgent)
	for _, p := range patterns {
		if p.matches(ua) {
			return p.label
		}
	}
	return models.Unknown
}
