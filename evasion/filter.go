package evasion

import (
	"net/url"
	"strings"
)

// Resource types as reported by the browser's network domain.
const (
	ResourceImage      = "Image"
	ResourceStylesheet = "Stylesheet"
	ResourceFont       = "Font"
)

// Block reasons, also used as metric labels.
const (
	ReasonCaptchaImage = "captcha_image"
	ReasonStyle        = "style"
	ReasonTracker      = "tracker"
)

// Decision is the verdict for one outbound request.
type Decision struct {
	Block  bool
	Reason string
}

// Allow is the zero Decision.
var Allow = Decision{}

// trackingMarkers block a request when they appear anywhere in its URL.
var trackingMarkers = []string{
	"analytics",
	"tracking",
	"facebook",
	"google-analytics",
	"doubleclick",
	"googletagmanager",
	"hotjar",
}

// trackerDomains are matched against the request host and its parents.
var trackerDomains = map[string]struct{}{
	"doubleclick.net":       {},
	"googlesyndication.com": {},
	"googleadservices.com":  {},
	"googletagservices.com": {},
	"fbcdn.net":             {},
	"adnxs.com":             {},
	"adsrvr.org":            {},
	"amazon-adsystem.com":   {},
	"criteo.com":            {},
	"criteo.net":            {},
	"outbrain.com":          {},
	"taboola.com":           {},
	"moatads.com":           {},
	"pubmatic.com":          {},
	"rubiconproject.com":    {},
	"scorecardresearch.com": {},
	"quantserve.com":        {},
	"mixpanel.com":          {},
	"segment.io":            {},
	"segment.com":           {},
	"ads-twitter.com":       {},
	"chartbeat.com":         {},
	"chartbeat.net":         {},
	"optimizely.com":        {},
	"bidswitch.net":         {},
	"openx.net":             {},
	"casalemedia.com":       {},
	"demdex.net":            {},
	"krxd.net":              {},
	"bluekai.com":           {},
	"rlcdn.com":             {},
	"clarity.ms":            {},
}

// Decide applies the request policy. Rules are checked in order:
// CAPTCHA images, then stylesheets and fonts, then trackers.
func Decide(resourceType, rawURL string) Decision {
	lower := strings.ToLower(rawURL)

	if resourceType == ResourceImage && strings.Contains(lower, "captcha") {
		return Decision{Block: true, Reason: ReasonCaptchaImage}
	}
	if resourceType == ResourceStylesheet || resourceType == ResourceFont {
		return Decision{Block: true, Reason: ReasonStyle}
	}
	if IsTracker(rawURL) {
		return Decision{Block: true, Reason: ReasonTracker}
	}
	return Allow
}

// IsTracker reports whether rawURL contains a tracking marker or points at
// a known ad or analytics domain.
func IsTracker(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, m := range trackingMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	if u, err := url.Parse(rawURL); err == nil {
		return isTrackerDomain(u.Hostname())
	}
	return false
}

// isTrackerDomain checks host and each parent domain
// ("pagead2.googlesyndication.com" -> "googlesyndication.com").
func isTrackerDomain(host string) bool {
	host = strings.ToLower(host)
	for host != "" {
		if _, ok := trackerDomains[host]; ok {
			return true
		}
		idx := strings.IndexByte(host, '.')
		if idx < 0 {
			break
		}
		host = host[idx+1:]
	}
	return false
}
