// Package stealth builds the per-session browser profile used to keep the
// crawl looking like a person at a keyboard.
package stealth

import (
	"math/rand"
)

// userAgents is the rotation pool. One entry is chosen per session, never
// per page; a browser that changes identity between clicks is more
// suspicious than one that does not.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.1.1 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:89.0) Gecko/20100101 Firefox/89.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/92.0.4515.107 Safari/537.36",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 14_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.0 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (iPad; CPU OS 14_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.0 Mobile/15E148 Safari/604.1",
}

// Profile is the immutable stealth configuration for one crawl session.
type Profile struct {
	UserAgent    string
	Locale       string
	TimezoneID   string
	Headers      map[string]string
	LaunchFlags  map[string]string
	DeleteFlags  []string
	InitScript   string
	ViewportW    int
	ViewportH    int
}

// NewProfile assembles a session profile using the given random source for
// user-agent selection. The result is never mutated by the crawl loop.
func NewProfile(rng *rand.Rand) *Profile {
	return &Profile{
		UserAgent:  userAgents[rng.Intn(len(userAgents))],
		Locale:     "fr-FR",
		TimezoneID: "Europe/Paris",
		Headers: map[string]string{
			"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"Accept-Language":           "fr,fr-FR;q=0.9,en-US;q=0.8,en;q=0.7",
			"Cache-Control":             "no-cache",
			"Pragma":                    "no-cache",
			"Sec-Fetch-Dest":            "document",
			"Sec-Fetch-Mode":            "navigate",
			"Sec-Fetch-Site":            "same-origin",
			"Sec-Fetch-User":            "?1",
			"Upgrade-Insecure-Requests": "1",
		},
		LaunchFlags: map[string]string{
			"disable-blink-features": "AutomationControlled",
			"disable-features":       "IsolateOrigins,site-per-process",
			"disable-notifications":  "",
			"disable-popup-blocking": "",
			"disable-dev-shm-usage":  "",
			"no-sandbox":             "",
			"window-size":            "1920,1080",
		},
		DeleteFlags: []string{"enable-automation"},
		InitScript:  initScript,
		ViewportW:   1920,
		ViewportH:   1080,
	}
}

// UserAgentPool returns the configured rotation pool; tests assert selection
// stays inside it.
func UserAgentPool() []string {
	pool := make([]string, len(userAgents))
	copy(pool, userAgents)
	return pool
}

// initScript runs before any page script and papers over the fingerprint
// surface automation frameworks leak: the webdriver flag, an empty plugin
// list, and WebGL vendor strings unique to headless Chrome.
const initScript = `
(() => {
	Object.defineProperty(navigator, 'webdriver', { get: () => false });
	Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
	Object.defineProperty(navigator, 'languages', { get: () => ['fr-FR', 'fr', 'en-US', 'en'] });

	const getParameter = WebGLRenderingContext.prototype.getParameter;
	WebGLRenderingContext.prototype.getParameter = function(parameter) {
		if (parameter === 37445) {
			return 'Intel Inc.';
		} else if (parameter === 37446) {
			return 'Intel Iris Pro Graphics';
		}
		return getParameter.apply(this, arguments);
	};

	delete window.playwright;
	delete window.callPhantom;
	delete window._phantom;
})();
`
