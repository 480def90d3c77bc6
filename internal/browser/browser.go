// Package browser provides the headless Chrome visit executor via Rod.
package browser

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"github.com/urlharvest/urlharvest/internal/cerrors"
	"github.com/urlharvest/urlharvest/internal/extract"
	"github.com/urlharvest/urlharvest/internal/logger"
	"github.com/urlharvest/urlharvest/internal/stealth"
)

// Config defines browser configuration.
type Config struct {
	Headless bool          `json:"headless" yaml:"headless"`
	Timeout  time.Duration `json:"timeout" yaml:"timeout"`
	// IdleWait is how long the network must stay quiet before a page
	// counts as settled.
	IdleWait time.Duration `json:"idle_wait" yaml:"idle_wait"`
}

// DefaultConfig returns default browser configuration.
func DefaultConfig() Config {
	return Config{
		Headless: true,
		Timeout:  30 * time.Second,
		IdleWait: 500 * time.Millisecond,
	}
}

// Session wraps one browsing context for the lifetime of a crawl.
// Every visit gets a fresh page inside it.
type Session struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	ctx      *rod.Browser
	profile  *stealth.Profile
	config   Config
	log      *logger.Logger
	rng      *rand.Rand
}

// New launches a browser with the stealth profile applied and opens an
// isolated browsing context for the session.
func New(cfg Config, profile *stealth.Profile, log *logger.Logger, rng *rand.Rand) (*Session, error) {
	l := launcher.New().Headless(cfg.Headless)
	for name, val := range profile.LaunchFlags {
		if val == "" {
			l = l.Set(flags.Flag(name))
		} else {
			l = l.Set(flags.Flag(name), val)
		}
	}
	for _, name := range profile.DeleteFlags {
		l = l.Delete(flags.Flag(name))
	}

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(url)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	ctx, err := b.Incognito()
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to create browsing context: %w", err)
	}

	return &Session{
		launcher: l,
		browser:  b,
		ctx:      ctx,
		profile:  profile,
		config:   cfg,
		log:      log.WithComponent("browser"),
		rng:      rng,
	}, nil
}

// Visit navigates to a URL in a fresh page and returns the raw links
// harvested from it. The page is closed before returning.
func (s *Session) Visit(ctx context.Context, url string) ([]string, error) {
	page, err := s.ctx.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, cerrors.New(cerrors.Navigation, url, "create_page", "failed to open page", err)
	}
	defer page.Close()

	page = page.Context(ctx)

	if err := s.preparePage(page); err != nil {
		return nil, err
	}

	if err := page.Timeout(s.config.Timeout).Navigate(url); err != nil {
		return nil, cerrors.NewNavigationError(url, err)
	}

	// Brief pause before touching anything, as a human would.
	s.pause(ctx, 1000, 2000)
	s.moveMouse(page)

	if err := page.Timeout(s.config.Timeout).WaitLoad(); err != nil {
		return nil, cerrors.NewTimeoutError(url, "wait_load", err)
	}
	s.waitNetworkIdle(ctx, page, url)

	s.humanScroll(page, url)
	s.dismissPopups(page, url)

	// Late-loading content settles during this window.
	s.pause(ctx, 1000, 1000)

	links, err := s.harvestLinks(ctx, page, url)
	if err != nil {
		return nil, err
	}
	return links, nil
}

// preparePage applies the session stealth profile to a fresh page.
func (s *Session) preparePage(page *rod.Page) error {
	if _, err := page.EvalOnNewDocument(s.profile.InitScript); err != nil {
		return cerrors.New(cerrors.Interaction, "", "init_script", "failed to install init script", err)
	}

	_ = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  s.profile.ViewportW,
		Height: s.profile.ViewportH,
	})

	_ = proto.NetworkSetUserAgentOverride{
		UserAgent: s.profile.UserAgent,
	}.Call(page)

	_ = proto.EmulationSetLocaleOverride{Locale: s.profile.Locale}.Call(page)
	_ = proto.EmulationSetTimezoneOverride{TimezoneID: s.profile.TimezoneID}.Call(page)

	if len(s.profile.Headers) > 0 {
		networkHeaders := make(proto.NetworkHeaders)
		for k, v := range s.profile.Headers {
			networkHeaders[k] = gson.New(v)
		}
		_ = proto.NetworkSetExtraHTTPHeaders{Headers: networkHeaders}.Call(page)
	}

	return nil
}

// waitNetworkIdle blocks until the page's network goes quiet or the
// session timeout passes. Timing out here is not a visit failure.
func (s *Session) waitNetworkIdle(ctx context.Context, page *rod.Page, url string) {
	wait := page.WaitRequestIdle(s.config.IdleWait, nil, nil, nil)

	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()

	idleCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	select {
	case <-done:
	case <-idleCtx.Done():
		s.log.WithURL(url).Debug("network idle wait timed out, continuing")
	}
}

// humanScroll walks the page down in uneven steps and back up.
// Best effort, failures are swallowed.
func (s *Session) humanScroll(page *rod.Page, url string) {
	_, err := page.Timeout(s.config.Timeout).Eval(scrollScript)
	if err != nil {
		s.log.WithURL(url).WithError(err).Debug("scroll emulation failed")
	}
}

const scrollScript = `async () => {
	const sleep = (ms) => new Promise(resolve => setTimeout(resolve, ms));

	const height = document.body.scrollHeight;
	const steps = 10;
	const stepSize = height / steps;

	for (let i = 1; i <= steps; i++) {
		window.scrollTo(0, stepSize * i);
		await sleep(Math.random() * 500 + 200);
	}

	window.scrollTo(0, height * 0.7);
	await sleep(300);
	window.scrollTo(0, 0);
}`

// popupSelector pairs a CSS selector with an optional visible-text
// pattern for consent buttons that have no stable class or id.
type popupSelector struct {
	css  string
	text string
}

// Common cookie banner and modal dismissers, tried in order.
var popupSelectors = []popupSelector{
	{css: `button[aria-label="Close"]`},
	{css: `.cookie-banner button`},
	{css: `#cookieConsent button`},
	{css: `.consent-banner button`},
	{css: `.popup-close`},
	{css: `.modal-close`},
	{css: `.close-button`},
	{css: `.cookie-accept`},
	{css: `.cookies-accept`},
	{css: `.accept-cookies`},
	{css: `button`, text: `Accepter les cookies`},
	{css: `button`, text: `J'accepte`},
	{css: `button`, text: `Accepter`},
	{css: `a`, text: `Accepter`},
	{css: `[data-testid="cookie-policy-dialog-accept-button"]`},
	{css: `[class*="cookie"] [class*="accept"]`},
	{css: `[class*="cookie"] [class*="close"]`},
	{css: `[id*="cookie"] [id*="accept"]`},
	{css: `[id*="cookie"] [id*="close"]`},
}

// dismissPopups tries each candidate selector with a short timeout and
// clicks the first one that resolves. No match is not an error.
func (s *Session) dismissPopups(page *rod.Page, url string) {
	for _, sel := range popupSelectors {
		p := page.Timeout(500 * time.Millisecond)

		var el *rod.Element
		var err error
		if sel.text != "" {
			el, err = p.ElementR(sel.css, sel.text)
		} else {
			el, err = p.Element(sel.css)
		}
		if err != nil || el == nil {
			continue
		}

		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			s.log.WithURL(url).WithError(err).Debugf("popup click failed for %q", sel.css)
			continue
		}

		s.log.WithURL(url).Debugf("dismissed popup via %q", sel.css)
		time.Sleep(500 * time.Millisecond)
		return
	}
}

// harvestLinks unions anchor extraction over the rendered HTML with the
// in-page harvest script. Script failure degrades to anchors only.
func (s *Session) harvestLinks(ctx context.Context, page *rod.Page, url string) ([]string, error) {
	html, err := page.HTML()
	if err != nil {
		return nil, cerrors.NewExtractionError(url, err)
	}

	anchors, err := extract.Anchors(html)
	if err != nil {
		return nil, cerrors.NewExtractionError(url, err)
	}

	hidden, err := extract.HiddenLinks(ctx, &pageEvaluator{page: page})
	if err != nil {
		s.log.WithURL(url).WithError(err).Debug("in-page harvest failed, using anchors only")
		hidden = nil
	}

	return extract.Union(anchors, hidden), nil
}

func (s *Session) moveMouse(page *rod.Page) {
	x := float64(100 + s.rng.Intn(400))
	y := float64(100 + s.rng.Intn(400))
	_ = page.Mouse.MoveTo(proto.Point{X: x, Y: y})
}

// pause sleeps a random duration in [minMs, maxMs] milliseconds, or
// returns early on context cancellation.
func (s *Session) pause(ctx context.Context, minMs, maxMs int) {
	d := time.Duration(minMs) * time.Millisecond
	if maxMs > minMs {
		d += time.Duration(s.rng.Intn(maxMs-minMs)) * time.Millisecond
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// Close shuts the browsing context and the underlying browser down.
func (s *Session) Close() error {
	err := s.browser.Close()
	s.launcher.Cleanup()
	return err
}

// pageEvaluator adapts a Rod page to the extract evaluator capability.
type pageEvaluator struct {
	page *rod.Page
}

func (e *pageEvaluator) EvalStrings(ctx context.Context, script string) ([]string, error) {
	res, err := e.page.Context(ctx).Eval(script)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0)
	if arr, ok := res.Value.Val().([]interface{}); ok {
		for _, v := range arr {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out, nil
}
