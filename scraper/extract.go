package scraper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/use-agent/transwatch/models"
	"github.com/use-agent/transwatch/selector"
)

// ErrElementNotFound is returned by a Document when a locator matches nothing.
var ErrElementNotFound = errors.New("element not found")

// Document is a rendered page that locators can be evaluated against.
type Document interface {
	// Lookup makes a single attempt to read the text of the element.
	Lookup(ctx context.Context, loc selector.Locator) (string, error)

	// WaitFor polls for the element until it appears or budget elapses.
	WaitFor(ctx context.Context, loc selector.Locator, budget time.Duration) (string, error)

	// Ready polls until the element exists with non-empty text, or budget
	// elapses.
	Ready(ctx context.Context, loc selector.Locator, budget time.Duration) error
}

// ExtractFields reads every locator of set from doc, in order.
//
// A locator that fails (not found, or wait budget exceeded) yields a missing
// value and the remaining locators are still read. The returned map always
// has an entry for every known field.
//
// Cancellation of ctx is not a missing field: it aborts extraction and
// ctx.Err() is returned.
func ExtractFields(ctx context.Context, doc Document, set selector.Set, waitBudget time.Duration) (models.FieldMap, error) {
	fields := make(models.FieldMap, len(models.Fields))

	for _, loc := range set.Locators {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var (
			text string
			err  error
		)
		if loc.Wait {
			text, err = doc.WaitFor(ctx, loc, waitBudget)
		} else {
			text, err = doc.Lookup(ctx, loc)
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			slog.Warn("field not found",
				"field", loc.Field,
				"strategy", loc.Strategy,
				"waited", loc.Wait,
				"error", err,
			)
			fields[loc.Field] = models.Missing()
			continue
		}

		fields[loc.Field] = models.Found(text)
		slog.Info("field found", "field", loc.Field, "value", fields[loc.Field].Text)
	}

	for _, f := range models.Fields {
		if _, ok := fields[f]; !ok {
			fields[f] = models.Missing()
		}
	}
	return fields, nil
}

// waitReady gates extraction on the first locator of set. Failure is only
// logged: the bounded field waits still run and degrade to missing values.
func waitReady(ctx context.Context, doc Document, set selector.Set, budget time.Duration) {
	first, ok := set.First()
	if !ok || budget <= 0 {
		return
	}

	start := time.Now()
	if err := doc.Ready(ctx, first, budget); err != nil {
		slog.Warn("page did not become ready",
			"field", first.Field,
			"budget", budget,
			"error", err,
		)
		return
	}
	slog.Debug("page ready", "field", first.Field, "elapsed", time.Since(start))
}
