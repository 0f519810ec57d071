package scraper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/transwatch/layout"
	"github.com/use-agent/transwatch/models"
	"github.com/ysmood/gson"
)

// ExtractStats reads the dashboard fields.
//
// A nil map with an error means the page could not be reached or rendered.
// Otherwise every field is present in the map, possibly as missing.
func (s *Session) ExtractStats(ctx context.Context) (models.FieldMap, error) {
	if s.fetcher != nil {
		return s.extractStatic(ctx)
	}
	if s.page == nil {
		return nil, models.NewCheckError(models.ErrCodeBrowserCrash, "session has no page", nil)
	}
	return s.extractRendered(ctx)
}

// extractRendered is the browser path.
//
//  1. Stealth injection   – before navigation, so it applies to the target
//  2. Extra headers       – Accept-Language
//  3. Hijack mount        – block heavy resources and trackers
//  4. Navigate            – the only fatal step
//  5. Settle delay        – optional fixed pause
//  6. Readiness poll      – first locator has non-empty text, bounded
//  7. Layout fingerprint  – best-effort
//  8. Fields              – bounded wait or single attempt per locator
func (s *Session) extractRendered(ctx context.Context) (models.FieldMap, error) {
	page := s.page
	targetURL := s.scraperCfg.TargetURL

	// ── 1. Stealth injection ──────────────────────────────────────────
	if s.browserCfg.Stealth {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
		}
	}

	// ── 2. Extra headers ──────────────────────────────────────────────
	if lang := s.scraperCfg.AcceptLanguage; lang != "" {
		if err := (proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(map[string]string{"Accept-Language": lang}),
		}).Call(page); err != nil {
			slog.Debug("failed to set extra headers", "error", err)
		}
	}

	// ── 3. Hijack router ──────────────────────────────────────────────
	if router := setupHijack(page, s.scraperCfg.BlockedResourceTypes); router != nil {
		defer func() { _ = router.Stop() }()
	}

	// ── 4. Navigate ───────────────────────────────────────────────────
	slog.Info("navigating", "url", targetURL)
	navCtx, cancel := context.WithTimeout(ctx, s.scraperCfg.NavigationTimeout)
	defer cancel()

	nav := page.Context(navCtx)
	if err := nav.Navigate(targetURL); err != nil {
		return nil, categorizeError(err, "navigation to target URL failed")
	}
	if err := nav.WaitLoad(); err != nil {
		slog.Debug("load event did not fire, proceeding with current DOM", "error", err)
	}

	// ── 5. Settle delay ───────────────────────────────────────────────
	sleepCtx(ctx, s.scraperCfg.SettleDelay)

	// ── 6. Readiness ──────────────────────────────────────────────────
	doc := &rodDocument{page: page}
	waitReady(ctx, doc, s.selectors, s.scraperCfg.ReadyTimeout)

	// ── 7. Layout fingerprint ─────────────────────────────────────────
	if rendered, err := page.Context(ctx).HTML(); err == nil {
		s.setLayout(rendered)
	} else {
		slog.Debug("failed to read rendered HTML for layout fingerprint", "error", err)
	}

	// ── 8. Fields ─────────────────────────────────────────────────────
	return s.readFields(ctx, doc)
}

// extractStatic is the http path: fetch once, evaluate locators on the
// returned HTML.
func (s *Session) extractStatic(ctx context.Context) (models.FieldMap, error) {
	targetURL := s.scraperCfg.TargetURL
	slog.Info("fetching", "url", targetURL, "mode", "http")

	fetchCtx, cancel := context.WithTimeout(ctx, s.scraperCfg.NavigationTimeout)
	defer cancel()

	body, err := s.fetcher.fetch(fetchCtx, targetURL)
	if err != nil {
		return nil, categorizeError(err, "fetching target URL failed")
	}
	if looksClientRendered(body) {
		slog.Warn("static HTML looks like a client-rendered shell, fields will likely be missing",
			"url", targetURL)
	}

	doc, err := NewStaticDocument(string(body))
	if err != nil {
		return nil, models.NewCheckError(models.ErrCodeNavigation, "failed to parse fetched HTML", err)
	}
	s.setLayout(string(body))

	waitReady(ctx, doc, s.selectors, s.scraperCfg.ReadyTimeout)
	return s.readFields(ctx, doc)
}

// readFields runs the locators and turns a cancelled run into a run error
// instead of a page full of missing fields.
func (s *Session) readFields(ctx context.Context, doc Document) (models.FieldMap, error) {
	fields, err := ExtractFields(ctx, doc, s.selectors, s.scraperCfg.WaitTimeout)
	if err != nil {
		return nil, categorizeError(err, "run canceled while reading fields")
	}
	return fields, nil
}

func (s *Session) setLayout(rawHTML string) {
	s.layout = layout.Fingerprint(rawHTML)
	s.hasLayout = true
	slog.Debug("layout fingerprint", "fingerprint", layout.Format(s.layout))
}

// sleepCtx pauses for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
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

// categorizeError wraps raw errors into typed CheckErrors.
func categorizeError(err error, msg string) *models.CheckError {
	var navErr *rod.NavigationError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewCheckError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewCheckError(models.ErrCodeTimeout, "run canceled", err)
	case errors.As(err, &navErr):
		return models.NewCheckError(models.ErrCodeNavigation, msg+": "+navErr.Reason, err)
	default:
		return models.NewCheckError(models.ErrCodeNavigation, msg, err)
	}
}
