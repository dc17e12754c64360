package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"
	"unicode"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/shelfscout/config"
	"github.com/use-agent/shelfscout/evasion"
	"github.com/use-agent/shelfscout/models"
	"github.com/ysmood/gson"
)

// RodLauncher starts one Chromium process per session.
type RodLauncher struct {
	cfg config.BrowserConfig
}

// NewRodLauncher returns a launcher using cfg for every session.
func NewRodLauncher(cfg config.BrowserConfig) *RodLauncher {
	return &RodLauncher{cfg: cfg}
}

// Launch starts a browser, opens a page, applies profile and installs the
// request filter. A partially started browser is torn down on failure.
func (l *RodLauncher) Launch(ctx context.Context, profile evasion.Profile) (Session, error) {
	ln := launcher.New().
		Context(ctx).
		Headless(l.cfg.Headless).
		NoSandbox(l.cfg.NoSandbox)

	if l.cfg.BrowserBin != "" {
		ln = ln.Bin(l.cfg.BrowserBin)
	}
	if l.cfg.Proxy != "" {
		ln = ln.Proxy(l.cfg.Proxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	ln.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	ln.Delete(flags.Flag("enable-automation"))
	ln.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	ln.Set(flags.Flag("disable-ipc-flooding-protection"))
	ln.Set(flags.Flag("disable-popup-blocking"))
	ln.Set(flags.Flag("disable-renderer-backgrounding"))
	ln.Set(flags.Flag("disable-background-timer-throttling"))
	ln.Set(flags.Flag("disable-dev-shm-usage"))
	ln.Set(flags.Flag("disable-extensions"))
	ln.Set(flags.Flag("no-first-run"))
	ln.Set(flags.Flag("lang"), "es-ES")
	ln.Set(flags.Flag("window-size"), fmt.Sprintf("%d,%d", profile.Viewport.Width, profile.Viewport.Height))

	controlURL, err := ln.Launch()
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to launch browser", err)
	}

	s := &rodSession{launcher: ln}

	b := rod.New().Context(ctx).ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		_ = s.Close()
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to connect to browser", err)
	}
	s.browser = b

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = s.Close()
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to open page", err)
	}

	if err := applyProfile(page, profile); err != nil {
		_ = s.Close()
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to apply session profile", err)
	}

	s.router = installFilter(page)
	s.page = &rodPage{page: page}

	slog.Debug("browser session started",
		"userAgent", profile.UserAgent,
		"width", profile.Viewport.Width,
		"mobile", profile.Viewport.Mobile,
	)
	return s, nil
}

// applyProfile must run before the first navigation: scripts registered
// with EvalOnNewDocument only affect documents created afterwards.
func applyProfile(page *rod.Page, profile evasion.Profile) error {
	if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
		return fmt.Errorf("inject stealth script: %w", err)
	}
	for _, js := range profile.Overrides {
		if _, err := page.EvalOnNewDocument(js); err != nil {
			return fmt.Errorf("inject navigator overrides: %w", err)
		}
	}

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      profile.UserAgent,
		AcceptLanguage: profile.Headers["Accept-Language"],
	}); err != nil {
		return fmt.Errorf("set user agent: %w", err)
	}

	v := profile.Viewport
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             v.Width,
		Height:            v.Height,
		DeviceScaleFactor: v.ScaleFactor,
		Mobile:            v.Mobile,
	}); err != nil {
		return fmt.Errorf("set viewport: %w", err)
	}
	if v.Mobile {
		_ = proto.EmulationSetTouchEmulationEnabled{Enabled: true}.Call(page)
	}

	if len(profile.Headers) > 0 {
		if err := (proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(profile.Headers),
		}).Call(page); err != nil {
			return fmt.Errorf("set extra headers: %w", err)
		}
	}
	return nil
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

type rodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	router   *rod.HijackRouter
	page     *rodPage

	once sync.Once
	err  error
}

func (s *rodSession) Page() Page { return s.page }

// Close stops the request filter, closes the browser and removes its
// profile directory. Safe to call more than once.
func (s *rodSession) Close() error {
	s.once.Do(func() {
		var errs []error
		if s.router != nil {
			errs = append(errs, s.router.Stop())
		}
		if s.browser != nil {
			errs = append(errs, s.browser.Close())
		}
		s.launcher.Kill()
		s.launcher.Cleanup()
		s.err = errors.Join(errs...)
	})
	return s.err
}

type rodPage struct {
	page *rod.Page
}

func (p *rodPage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pg := p.page.Context(tctx)
	wait := pg.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := pg.Navigate(url); err != nil {
		return err
	}
	wait()
	return tctx.Err()
}

func (p *rodPage) Reload(ctx context.Context, timeout time.Duration) error {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pg := p.page.Context(tctx)
	wait := pg.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := pg.Reload(); err != nil {
		return err
	}
	wait()
	return tctx.Err()
}

func (p *rodPage) Find(ctx context.Context, probe Probe) (Element, bool, error) {
	pg := p.page.Context(ctx)

	var (
		has bool
		el  *rod.Element
		err error
	)
	if probe.Text == "" {
		has, el, err = pg.Has(probe.Selector)
	} else {
		sel := probe.Selector
		if sel == "" {
			sel = "body"
		}
		has, el, err = pg.HasR(sel, regexp.QuoteMeta(probe.Text))
	}
	if err != nil || !has {
		return nil, false, err
	}
	return &rodElement{el: el}, true, nil
}

func (p *rodPage) OuterHTMLAll(ctx context.Context, selector string) ([]string, error) {
	els, err := p.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(els))
	for _, el := range els {
		h, err := el.HTML()
		if err != nil {
			return nil, fmt.Errorf("read card markup: %w", err)
		}
		out = append(out, h)
	}
	return out, nil
}

func (p *rodPage) ScrollTo(ctx context.Context, y int) error {
	_, err := p.page.Context(ctx).Eval(`(y) => window.scrollTo(0, y)`, y)
	return err
}

func (p *rodPage) Screenshot(ctx context.Context) ([]byte, error) {
	return p.page.Context(ctx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

func (p *rodPage) HTML(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Click(ctx context.Context) error {
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

// TypeRune sends printable ASCII as a real key event. Other characters have
// no key definition and are inserted as text.
func (e *rodElement) TypeRune(ctx context.Context, r rune) error {
	el := e.el.Context(ctx)
	if r < unicode.MaxASCII && unicode.IsPrint(r) {
		return el.Type(input.Key(r))
	}
	return el.Input(string(r))
}

func (e *rodElement) PressEnter(ctx context.Context) error {
	return e.el.Context(ctx).Type(input.Enter)
}
