package monitor

import (
	"context"

	"github.com/use-agent/transwatch/config"
	"github.com/use-agent/transwatch/scraper"
	"github.com/use-agent/transwatch/selector"
	"github.com/use-agent/transwatch/webhook"
)

// ScraperOpener opens a scraper.Session per run.
func ScraperOpener(cfg *config.Config, selectors selector.Set) Opener {
	return func(ctx context.Context) (Session, error) {
		s, err := scraper.Open(ctx, cfg.Browser, cfg.Scraper, selectors)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// NewFromConfig wires a Runner to the browser scraper and the webhook
// notifier described by cfg.
func NewFromConfig(cfg *config.Config) (*Runner, error) {
	selectors, err := selector.LoadOrDefault(cfg.Scraper.SelectorsFile)
	if err != nil {
		return nil, err
	}
	return NewRunner(
		ScraperOpener(cfg, selectors),
		webhook.NewNotifier(cfg.Webhook),
		Options{
			NotifyOnComplete:  cfg.Monitor.NotifyOnComplete,
			LayoutFingerprint: cfg.Monitor.LayoutFingerprint,
			LayoutMaxDistance: cfg.Monitor.LayoutMaxDistance,
		},
	), nil
}
