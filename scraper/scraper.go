package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/transwatch/config"
	"github.com/use-agent/transwatch/models"
	"github.com/use-agent/transwatch/selector"
)

// Session owns everything needed to read the dashboard once: in browser
// mode a Chromium process with a single tab, in http mode a TLS-fingerprinted
// HTTP fetcher. A Session is used by one run and must be closed.
type Session struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	fetcher  *httpFetcher

	browserCfg config.BrowserConfig
	scraperCfg config.ScraperConfig
	selectors  selector.Set

	layout    uint64
	hasLayout bool

	closeOnce sync.Once
}

// Open starts a session. In browser mode it launches a headless Chromium
// with a fixed viewport; this is the only step that fails when the engine
// cannot start.
func Open(ctx context.Context, browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig, selectors selector.Set) (*Session, error) {
	s := &Session{
		browserCfg: browserCfg,
		scraperCfg: scraperCfg,
		selectors:  selectors,
	}

	if scraperCfg.FetchMode == config.FetchModeHTTP {
		s.fetcher = newHTTPFetcher(browserCfg.Proxy)
		slog.Info("scraper session opened", "mode", config.FetchModeHTTP)
		return s, nil
	}

	l := launcher.New().
		Context(ctx).
		Headless(browserCfg.Headless).
		NoSandbox(browserCfg.NoSandbox)

	if browserCfg.BrowserBin != "" {
		l = l.Bin(browserCfg.BrowserBin)
	}
	if browserCfg.Proxy != "" {
		l = l.Proxy(browserCfg.Proxy)
	}

	// ── Engine flags ─────────────────────────────────────────────────
	l.Set(flags.Flag("disable-gpu"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))
	l.Set(flags.Flag("window-size"), fmt.Sprintf("%d,%d", browserCfg.ViewportWidth, browserCfg.ViewportHeight))
	if browserCfg.Stealth {
		l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
		l.Delete(flags.Flag("enable-automation"))
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewCheckError(models.ErrCodeBrowserCrash, "failed to launch browser", err)
	}
	s.launcher = l
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		s.Close()
		return nil, models.NewCheckError(models.ErrCodeBrowserCrash, "failed to connect to browser", err)
	}
	s.browser = browser

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		s.Close()
		return nil, models.NewCheckError(models.ErrCodeBrowserCrash, "failed to open page", err)
	}
	s.page = page

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             browserCfg.ViewportWidth,
		Height:            browserCfg.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		slog.Warn("failed to set viewport, continuing with browser default", "error", err)
	}

	slog.Info("scraper session opened",
		"mode", config.FetchModeBrowser,
		"headless", browserCfg.Headless,
		"viewport", fmt.Sprintf("%dx%d", browserCfg.ViewportWidth, browserCfg.ViewportHeight),
	)
	return s, nil
}

// Layout returns the structural fingerprint of the last page read.
func (s *Session) Layout() (uint64, bool) {
	return s.layout, s.hasLayout
}

// Close releases the tab, the browser connection and the browser process.
// It is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if s.page != nil {
			if err := s.page.Close(); err != nil {
				slog.Debug("failed to close page", "error", err)
			}
		}
		if s.browser != nil {
			if err := s.browser.Close(); err != nil {
				slog.Warn("failed to close browser", "error", err)
			}
		}
		if s.launcher != nil {
			s.launcher.Kill()
			s.launcher.Cleanup()
		}
		slog.Info("scraper session closed")
	})
}
