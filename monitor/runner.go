// Package monitor runs one check of the translation dashboard: read the
// fields, decide whether work remains, and alert when it does.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/use-agent/transwatch/layout"
	"github.com/use-agent/transwatch/models"
)

// Session is one scoped read of the dashboard. Close is called exactly once
// per opened session, on every exit path of a run.
type Session interface {
	ExtractStats(ctx context.Context) (models.FieldMap, error)
	Layout() (uint64, bool)
	Close()
}

// Opener acquires a fresh Session for one run.
type Opener func(ctx context.Context) (Session, error)

// Notifier delivers an alert and reports whether it was accepted.
type Notifier interface {
	Notify(ctx context.Context, result models.CheckResult) bool
}

// Options tunes run-level behaviour.
type Options struct {
	// NotifyOnComplete also alerts when no work remains.
	NotifyOnComplete bool

	// LayoutFingerprint is the pinned page fingerprint in hex, or empty.
	LayoutFingerprint string

	// LayoutMaxDistance is the drift threshold for LayoutFingerprint.
	LayoutMaxDistance int
}

// Runner performs monitoring runs. Runs are serialised: concurrent callers
// wait for the current run instead of sharing a browser.
type Runner struct {
	open     Opener
	notifier Notifier
	opts     Options

	pinned    uint64
	hasPinned bool

	mu      sync.Mutex
	running atomic.Bool
	total   atomic.Int64
	failed  atomic.Int64
}

// NewRunner creates a Runner. An unparsable pinned fingerprint is logged
// and ignored.
func NewRunner(open Opener, notifier Notifier, opts Options) *Runner {
	r := &Runner{open: open, notifier: notifier, opts: opts}
	if opts.LayoutFingerprint != "" {
		fp, err := layout.Parse(opts.LayoutFingerprint)
		if err != nil {
			slog.Warn("ignoring pinned layout fingerprint", "error", err)
		} else {
			r.pinned, r.hasPinned = fp, true
		}
	}
	return r
}

// Run performs one check. The returned report is never nil. A non-nil error
// means the dashboard could not be read at all; field-level and notification
// failures are reflected in the report only.
func (r *Runner) Run(ctx context.Context) (*models.Report, error) {
	return r.run(ctx, true)
}

// RunQuiet performs one check like Run but never notifies.
func (r *Runner) RunQuiet(ctx context.Context) (*models.Report, error) {
	return r.run(ctx, false)
}

func (r *Runner) run(ctx context.Context, notify bool) (*models.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running.Store(true)
	defer r.running.Store(false)
	r.total.Add(1)

	report := &models.Report{
		RunID:          uuid.NewString(),
		StartedAt:      time.Now(),
		LayoutDistance: -1,
	}
	defer func() { report.Duration = time.Since(report.StartedAt) }()

	log := slog.With("run_id", report.RunID)
	log.Info("check started")

	session, err := r.open(ctx)
	if err != nil {
		r.failed.Add(1)
		log.Error("failed to open scraper session", "error", err)
		return report, err
	}
	defer session.Close()

	fields, err := session.ExtractStats(ctx)
	if err == nil && ctx.Err() != nil {
		// Fields read while the run was being torn down are not evidence of work.
		err = models.NewCheckError(models.ErrCodeTimeout, "run canceled", ctx.Err())
	}
	if err != nil {
		r.failed.Add(1)
		log.Error("failed to scrape translation statistics", "error", err)
		return report, err
	}

	r.checkLayout(log, session, report)

	result := Evaluate(fields)
	report.Result = &result
	report.MissingFields = fields.MissingFields()

	log.Info("translation statistics",
		"translated_percent", result.TranslatedPercent,
		"approved_percent", result.ApprovedPercent,
		"words_to_translate", result.WordsToTranslate,
		"is_there_a_job", result.IsThereAJob,
		"missing_fields", report.MissingFields,
	)

	switch {
	case !notify:
		log.Info("notification suppressed for this run", "is_there_a_job", result.IsThereAJob)
		return report, nil
	case result.IsThereAJob:
		log.Info("translation job found")
	case r.opts.NotifyOnComplete:
		log.Info("no translation job found, sending completion notice")
	default:
		log.Info("no translation job found")
		return report, nil
	}

	report.NotifyAttempted = true
	report.Notified = r.notifier.Notify(ctx, result)
	log.Info("check finished", "notified", report.Notified)
	return report, nil
}

// Stats reports run counters since the Runner was created.
func (r *Runner) Stats() models.RunStats {
	return models.RunStats{
		Total:   r.total.Load(),
		Failed:  r.failed.Load(),
		Running: r.running.Load(),
	}
}

func (r *Runner) checkLayout(log *slog.Logger, session Session, report *models.Report) {
	fp, ok := session.Layout()
	if !ok {
		return
	}
	report.LayoutFingerprint = layout.Format(fp)
	if !r.hasPinned {
		log.Info("layout fingerprint", "fingerprint", report.LayoutFingerprint)
		return
	}

	report.LayoutDistance = layout.Distance(fp, r.pinned)
	if report.LayoutDistance > r.opts.LayoutMaxDistance {
		log.Warn("page layout drifted from pinned fingerprint, locators may be stale",
			"fingerprint", report.LayoutFingerprint,
			"pinned", layout.Format(r.pinned),
			"distance", report.LayoutDistance,
			"max_distance", r.opts.LayoutMaxDistance,
		)
	}
}
