package scraper

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// resourceTypes maps config names to Rod protocol resource types.
// Stylesheet is not blockable: the dashboard lays out its rows with CSS and
// the absolute locators depend on that layout.
var resourceTypes = map[string]proto.NetworkResourceType{
	"Image": proto.NetworkResourceTypeImage,
	"Font":  proto.NetworkResourceTypeFont,
	"Media": proto.NetworkResourceTypeMedia,
}

// trackerHosts are analytics and chat-widget hosts seen on Crowdin pages.
// They only delay rendering.
var trackerHosts = []string{
	"google-analytics.com",
	"googletagmanager.com",
	"doubleclick.net",
	"hotjar.com",
	"intercom.io",
	"intercomcdn.com",
	"segment.io",
	"sentry.io",
}

// isTracker reports whether host is, or is a subdomain of, a tracker host.
func isTracker(host string) bool {
	host = strings.ToLower(host)
	for _, t := range trackerHosts {
		if host == t || strings.HasSuffix(host, "."+t) {
			return true
		}
	}
	return false
}

// blockedResourceTypes resolves configured names. Names that cannot be
// blocked, including Stylesheet, are logged and ignored.
func blockedResourceTypes(names []string) map[proto.NetworkResourceType]bool {
	blocked := make(map[proto.NetworkResourceType]bool, len(names))
	for _, name := range names {
		rt, ok := resourceTypes[name]
		if !ok {
			slog.Warn("ignoring resource type that cannot be blocked", "type", name)
			continue
		}
		blocked[rt] = true
	}
	return blocked
}

// setupHijack blocks the configured resource types and tracker hosts.
// Returns the running router so the caller can stop it, or nil when no
// resource type is configured.
func setupHijack(page *rod.Page, blockedTypes []string) *rod.HijackRouter {
	blocked := blockedResourceTypes(blockedTypes)
	if len(blocked) == 0 {
		return nil
	}

	router := page.HijackRequests()
	_ = router.Add("*", "", func(h *rod.Hijack) {
		if blocked[h.Request.Type()] {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		if u, err := url.Parse(h.Request.URL().String()); err == nil && isTracker(u.Hostname()) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// router.Run blocks until router.Stop is called.
	go router.Run()

	return router
}
