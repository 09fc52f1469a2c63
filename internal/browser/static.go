package browser

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html"
)

// StaticConfig configures the HTTP engine.
type StaticConfig struct {
	// Transport replaces the default round tripper, mainly for tests.
	Transport http.RoundTripper
	UserAgent string
	// Timeout bounds each individual request.
	Timeout time.Duration
}

// StaticLauncher is a JavaScript-free engine. Pages are fetched with resty
// and queried with goquery; form submission and link clicks are emulated.
// It works for server-rendered sites such as the Sunbiz registry.
type StaticLauncher struct {
	cfg StaticConfig
}

// NewStaticLauncher creates an HTTP engine launcher.
func NewStaticLauncher(cfg StaticConfig) *StaticLauncher {
	return &StaticLauncher{cfg: cfg}
}

// Name implements Launcher.
func (l *StaticLauncher) Name() string {
	return "http"
}

// Launch implements Launcher. Every page gets its own cookie jar so sessions
// never bleed between searches.
func (l *StaticLauncher) Launch(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	client := resty.New().
		SetCookieJar(jar).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	if l.cfg.Transport != nil {
		client.SetTransport(l.cfg.Transport)
	}
	if l.cfg.UserAgent != "" {
		client.SetHeader("User-Agent", l.cfg.UserAgent)
	}
	if l.cfg.Timeout > 0 {
		client.SetTimeout(l.cfg.Timeout)
	}

	return &staticPage{client: client}, nil
}

type staticDocument struct {
	url *url.URL
	dom *goquery.Document
}

type staticPage struct {
	client  *resty.Client
	current *staticDocument
	history []*staticDocument
	closed  bool
}

func (p *staticPage) document() (*staticDocument, error) {
	if p.closed {
		return nil, ErrClosed
	}
	if p.current == nil {
		return nil, ErrNoDocument
	}
	return p.current, nil
}

// resolve interprets ref relative to the loaded document.
func (p *staticPage) resolve(ref string) (*url.URL, error) {
	target, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", ref, err)
	}
	if p.current != nil {
		target = p.current.url.ResolveReference(target)
	}
	if !target.IsAbs() {
		return nil, fmt.Errorf("cannot resolve relative url %q without a loaded document", ref)
	}
	return target, nil
}

func (p *staticPage) Navigate(ctx context.Context, rawURL string) error {
	if p.closed {
		return ErrClosed
	}
	target, err := p.resolve(rawURL)
	if err != nil {
		return err
	}
	return p.load(ctx, http.MethodGet, target, nil)
}

// load fetches target and makes it the current document, pushing the
// previous one onto the history stack.
func (p *staticPage) load(ctx context.Context, method string, target *url.URL, form url.Values) error {
	req := p.client.R().SetContext(ctx)

	var (
		resp *resty.Response
		err  error
	)
	if method == http.MethodPost {
		resp, err = req.SetFormDataFromValues(form).Post(target.String())
	} else {
		resp, err = req.Get(target.String())
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%s %s: unexpected status %d", method, target, resp.StatusCode())
	}

	dom, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", target, err)
	}

	final := target
	if raw := resp.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
		final = raw.Request.URL
	}

	if p.current != nil {
		p.history = append(p.history, p.current)
	}
	p.current = &staticDocument{url: final, dom: dom}
	return nil
}

func (p *staticPage) first(selector string) (*goquery.Selection, error) {
	doc, err := p.document()
	if err != nil {
		return nil, err
	}
	sel := doc.dom.Find(selector).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%q: %w", selector, ErrElementNotFound)
	}
	return sel, nil
}

func (p *staticPage) Fill(_ context.Context, selector, text string) error {
	sel, err := p.first(selector)
	if err != nil {
		return err
	}

	node := sel.Nodes[0]
	switch goquery.NodeName(sel) {
	case "input":
		sel.SetAttr("value", text)
	case "textarea":
		for c := node.FirstChild; c != nil; c = node.FirstChild {
			node.RemoveChild(c)
		}
		node.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	default:
		return fmt.Errorf("fill %q: %w", selector, ErrNotInteractive)
	}
	return nil
}

func (p *staticPage) Click(ctx context.Context, selector string) error {
	sel, err := p.first(selector)
	if err != nil {
		return err
	}

	if goquery.NodeName(sel) == "a" {
		href, ok := sel.Attr("href")
		if !ok {
			return fmt.Errorf("click %q: %w", selector, ErrNotInteractive)
		}
		target, err := p.resolve(href)
		if err != nil {
			return err
		}
		return p.load(ctx, http.MethodGet, target, nil)
	}

	if !isSubmitter(sel) {
		return fmt.Errorf("click %q: %w", selector, ErrNotInteractive)
	}
	form := sel.Closest("form")
	if form.Length() == 0 {
		return fmt.Errorf("click %q: submit button outside a form: %w", selector, ErrNotInteractive)
	}
	return p.submit(ctx, form, sel)
}

func isSubmitter(sel *goquery.Selection) bool {
	typ := strings.ToLower(sel.AttrOr("type", ""))
	switch goquery.NodeName(sel) {
	case "input":
		return typ == "submit" || typ == "image"
	case "button":
		return typ == "" || typ == "submit"
	}
	return false
}

// submit serializes form the way a browser does for an
// application/x-www-form-urlencoded submission triggered by submitter.
func (p *staticPage) submit(ctx context.Context, form, submitter *goquery.Selection) error {
	action := form.AttrOr("action", "")
	if action == "" {
		action = p.current.url.String()
	}
	target, err := p.resolve(action)
	if err != nil {
		return err
	}

	values := url.Values{}
	form.Find("input, textarea, select, button").Each(func(_ int, field *goquery.Selection) {
		name, ok := field.Attr("name")
		if !ok || name == "" {
			return
		}
		if _, disabled := field.Attr("disabled"); disabled {
			return
		}

		switch goquery.NodeName(field) {
		case "textarea":
			values.Add(name, field.Text())
		case "select":
			option := field.Find("option[selected]").First()
			if option.Length() == 0 {
				option = field.Find("option").First()
			}
			if option.Length() > 0 {
				values.Add(name, option.AttrOr("value", strings.TrimSpace(option.Text())))
			}
		case "button":
			if field.Nodes[0] == submitter.Nodes[0] {
				values.Add(name, field.AttrOr("value", ""))
			}
		default:
			switch strings.ToLower(field.AttrOr("type", "text")) {
			case "submit", "image":
				if field.Nodes[0] == submitter.Nodes[0] {
					values.Add(name, field.AttrOr("value", ""))
				}
			case "button", "reset", "file":
			case "checkbox", "radio":
				if _, checked := field.Attr("checked"); checked {
					values.Add(name, field.AttrOr("value", "on"))
				}
			default:
				values.Add(name, field.AttrOr("value", ""))
			}
		}
	})

	method := strings.ToUpper(form.AttrOr("method", http.MethodGet))
	if method == http.MethodPost {
		return p.load(ctx, http.MethodPost, target, values)
	}

	withQuery := *target
	withQuery.RawQuery = values.Encode()
	return p.load(ctx, http.MethodGet, &withQuery, nil)
}

// WaitFor reports whether selector is present. Static documents never
// change after load, so there is nothing to poll for.
func (p *staticPage) WaitFor(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.first(selector)
	return err
}

func (p *staticPage) GoBack(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.closed {
		return ErrClosed
	}
	if len(p.history) == 0 {
		return ErrNoHistory
	}
	last := len(p.history) - 1
	p.current = p.history[last]
	p.history = p.history[:last]
	return nil
}

func (p *staticPage) URL() string {
	if p.current == nil {
		return ""
	}
	return p.current.url.String()
}

func (p *staticPage) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.current = nil
	p.history = nil
	p.client.GetClient().CloseIdleConnections()
	return nil
}

func (p *staticPage) TextContent(ctx context.Context, selector string) (string, bool, error) {
	doc, err := p.document()
	if err != nil {
		return "", false, err
	}
	return staticScope{doc.dom.Selection}.TextContent(ctx, selector)
}

func (p *staticPage) Attribute(ctx context.Context, selector, name string) (string, bool, error) {
	doc, err := p.document()
	if err != nil {
		return "", false, err
	}
	return staticScope{doc.dom.Selection}.Attribute(ctx, selector, name)
}

func (p *staticPage) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	doc, err := p.document()
	if err != nil {
		return nil, err
	}
	return staticScope{doc.dom.Selection}.QueryAll(ctx, selector)
}

type staticScope struct {
	sel *goquery.Selection
}

func (s staticScope) TextContent(_ context.Context, selector string) (string, bool, error) {
	match := s.sel.Find(selector)
	if match.Length() == 0 {
		return "", false, nil
	}
	return InnerText(match.Nodes[0]), true, nil
}

func (s staticScope) Attribute(_ context.Context, selector, name string) (string, bool, error) {
	match := s.sel.Find(selector).First()
	if match.Length() == 0 {
		return "", false, nil
	}
	v, ok := match.Attr(name)
	return v, ok, nil
}

func (s staticScope) QueryAll(_ context.Context, selector string) ([]Element, error) {
	match := s.sel.Find(selector)
	out := make([]Element, 0, match.Length())
	match.Each(func(_ int, el *goquery.Selection) {
		out = append(out, staticElement{staticScope{el}})
	})
	return out, nil
}

type staticElement struct {
	staticScope
}

func (e staticElement) Text(_ context.Context) (string, error) {
	return InnerText(e.sel.Nodes[0]), nil
}

func (e staticElement) Attr(_ context.Context, name string) (string, bool, error) {
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}
