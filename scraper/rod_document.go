package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/use-agent/transwatch/selector"
)

// readyJS resolves a locator in the page and reports whether the element
// exists and has non-empty text. Polled by rod until it returns true.
const readyJS = `(strategy, expr) => {
	let el = null;
	try {
		if (strategy === 'css') {
			el = document.querySelector(expr);
		} else {
			el = document.evaluate(expr, document, null,
				XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
		}
	} catch (e) {
		return false;
	}
	return !!el && (el.textContent || '').trim() !== '';
}`

// rodDocument evaluates locators against a live rod page.
type rodDocument struct {
	page *rod.Page
}

func (d *rodDocument) Lookup(ctx context.Context, loc selector.Locator) (string, error) {
	// NotFoundSleeper turns the element query into a single attempt.
	p := d.page.Context(ctx).Sleeper(rod.NotFoundSleeper)
	return elementText(p, loc)
}

func (d *rodDocument) WaitFor(ctx context.Context, loc selector.Locator, budget time.Duration) (string, error) {
	p := d.page.Context(ctx).Timeout(budget)
	defer p.CancelTimeout()
	return elementText(p, loc)
}

func (d *rodDocument) Ready(ctx context.Context, loc selector.Locator, budget time.Duration) error {
	p := d.page.Context(ctx).Timeout(budget)
	defer p.CancelTimeout()
	return p.Wait(rod.Eval(readyJS, string(loc.Strategy), loc.Expr))
}

func elementText(p *rod.Page, loc selector.Locator) (string, error) {
	var (
		el  *rod.Element
		err error
	)
	switch loc.Strategy {
	case selector.StrategyXPath:
		el, err = p.ElementX(loc.Expr)
	case selector.StrategyCSS:
		el, err = p.Element(loc.Expr)
	default:
		return "", fmt.Errorf("unknown strategy %q", loc.Strategy)
	}
	if err != nil {
		return "", fmt.Errorf("%s %q: %w", loc.Strategy, loc.Expr, err)
	}

	text, err := el.Text()
	if err != nil {
		return "", fmt.Errorf("%s %q: read text: %w", loc.Strategy, loc.Expr, err)
	}
	return strings.TrimSpace(text), nil
}
