package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/xpath"
	"github.com/use-agent/transwatch/selector"
	"golang.org/x/net/html"
)

// StaticDocument evaluates locators against already-rendered HTML. It backs
// the http fetch mode and lets the extraction rules run without a browser.
type StaticDocument struct {
	root *html.Node
}

// NewStaticDocument parses rawHTML.
func NewStaticDocument(rawHTML string) (*StaticDocument, error) {
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("static document: parse html: %w", err)
	}
	return &StaticDocument{root: root}, nil
}

// Lookup returns the trimmed text of the first match.
func (d *StaticDocument) Lookup(_ context.Context, loc selector.Locator) (string, error) {
	switch loc.Strategy {
	case selector.StrategyXPath:
		return d.lookupXPath(loc.Expr)
	case selector.StrategyCSS:
		return d.lookupCSS(loc.Expr)
	default:
		return "", fmt.Errorf("unknown strategy %q", loc.Strategy)
	}
}

// WaitFor is a single lookup: static HTML never changes.
func (d *StaticDocument) WaitFor(ctx context.Context, loc selector.Locator, _ time.Duration) (string, error) {
	return d.Lookup(ctx, loc)
}

// Ready reports whether the element exists with non-empty text.
func (d *StaticDocument) Ready(ctx context.Context, loc selector.Locator, _ time.Duration) error {
	text, err := d.Lookup(ctx, loc)
	if err != nil {
		return err
	}
	if text == "" {
		return fmt.Errorf("%s %q: empty text", loc.Strategy, loc.Expr)
	}
	return nil
}

// HTML renders the parsed document back to markup.
func (d *StaticDocument) HTML() string {
	var b strings.Builder
	_ = html.Render(&b, d.root)
	return b.String()
}

func (d *StaticDocument) lookupXPath(expr string) (string, error) {
	compiled, err := xpath.Compile(expr)
	if err != nil {
		return "", fmt.Errorf("compile xpath %q: %w", expr, err)
	}

	iter := compiled.Select(newNodeNavigator(d.root))
	if !iter.MoveNext() {
		return "", fmt.Errorf("xpath %q: %w", expr, ErrElementNotFound)
	}

	nav, ok := iter.Current().(*nodeNavigator)
	if !ok {
		return "", fmt.Errorf("xpath %q: unexpected navigator %T", expr, iter.Current())
	}
	if nav.attr >= 0 {
		return strings.TrimSpace(nav.Value()), nil
	}
	return nodeText(nav.curr), nil
}

func (d *StaticDocument) lookupCSS(expr string) (string, error) {
	sel, err := cascadia.Compile(expr)
	if err != nil {
		return "", fmt.Errorf("compile css %q: %w", expr, err)
	}

	match := goquery.NewDocumentFromNode(d.root).FindMatcher(sel).First()
	if match.Length() == 0 {
		return "", fmt.Errorf("css %q: %w", expr, ErrElementNotFound)
	}
	return strings.TrimSpace(match.Text()), nil
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return strings.TrimSpace(n.Data)
	}
	return strings.TrimSpace(goquery.NewDocumentFromNode(n).Text())
}

// nodeNavigator implements xpath.NodeNavigator over an html.Node tree.
// attr is the index of the current attribute, or -1 when on the node itself.
type nodeNavigator struct {
	root, curr *html.Node
	attr       int
}

func newNodeNavigator(root *html.Node) *nodeNavigator {
	return &nodeNavigator{root: root, curr: root, attr: -1}
}

func (n *nodeNavigator) NodeType() xpath.NodeType {
	switch n.curr.Type {
	case html.DocumentNode:
		return xpath.RootNode
	case html.TextNode:
		return xpath.TextNode
	case html.CommentNode, html.DoctypeNode:
		return xpath.CommentNode
	case html.ElementNode:
		if n.attr >= 0 {
			return xpath.AttributeNode
		}
		return xpath.ElementNode
	}
	return xpath.TextNode
}

func (n *nodeNavigator) LocalName() string {
	if n.attr >= 0 {
		return n.curr.Attr[n.attr].Key
	}
	if n.curr.Type == html.ElementNode {
		return n.curr.Data
	}
	return ""
}

func (n *nodeNavigator) Prefix() string { return "" }

func (n *nodeNavigator) Value() string {
	switch n.curr.Type {
	case html.TextNode, html.CommentNode:
		return n.curr.Data
	case html.ElementNode:
		if n.attr >= 0 {
			return n.curr.Attr[n.attr].Val
		}
	}
	return goquery.NewDocumentFromNode(n.curr).Text()
}

func (n *nodeNavigator) Copy() xpath.NodeNavigator {
	c := *n
	return &c
}

func (n *nodeNavigator) MoveToRoot() {
	n.curr = n.root
	n.attr = -1
}

func (n *nodeNavigator) MoveToParent() bool {
	if n.attr >= 0 {
		n.attr = -1
		return true
	}
	if n.curr.Parent == nil {
		return false
	}
	n.curr = n.curr.Parent
	return true
}

func (n *nodeNavigator) MoveToNextAttribute() bool {
	if n.curr.Type != html.ElementNode || n.attr >= len(n.curr.Attr)-1 {
		return false
	}
	n.attr++
	return true
}

func (n *nodeNavigator) MoveToChild() bool {
	if n.attr >= 0 || n.curr.FirstChild == nil {
		return false
	}
	n.curr = n.curr.FirstChild
	return true
}

func (n *nodeNavigator) MoveToFirst() bool {
	if n.attr >= 0 || n.curr.PrevSibling == nil {
		return false
	}
	for n.curr.PrevSibling != nil {
		n.curr = n.curr.PrevSibling
	}
	return true
}

func (n *nodeNavigator) MoveToNext() bool {
	if n.attr >= 0 || n.curr.NextSibling == nil {
		return false
	}
	n.curr = n.curr.NextSibling
	return true
}

func (n *nodeNavigator) MoveToPrevious() bool {
	if n.attr >= 0 || n.curr.PrevSibling == nil {
		return false
	}
	n.curr = n.curr.PrevSibling
	return true
}

func (n *nodeNavigator) MoveTo(other xpath.NodeNavigator) bool {
	o, ok := other.(*nodeNavigator)
	if !ok || o.root != n.root {
		return false
	}
	n.curr = o.curr
	n.attr = o.attr
	return true
}

func (n *nodeNavigator) String() string { return n.Value() }
