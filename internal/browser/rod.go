package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// RodConfig configures the headless Chromium engine.
type RodConfig struct {
	// Bin is the browser executable. Empty lets rod locate or download one.
	Bin       string
	UserAgent string
	// NavigationTimeout bounds a single navigation including page load.
	NavigationTimeout time.Duration
	Headless          bool
}

// RodLauncher starts a dedicated Chromium process per page.
type RodLauncher struct {
	cfg RodConfig
}

// NewRodLauncher creates a Chromium engine launcher.
func NewRodLauncher(cfg RodConfig) *RodLauncher {
	return &RodLauncher{cfg: cfg}
}

// Name implements Launcher.
func (l *RodLauncher) Name() string {
	return "rod"
}

// Launch implements Launcher. The returned page lives in an incognito context
// of a fresh browser; closing it tears the process down.
func (l *RodLauncher) Launch(ctx context.Context) (Page, error) {
	lch := launcher.New().Context(ctx).Headless(l.cfg.Headless)
	if l.cfg.Bin != "" {
		lch = lch.Bin(l.cfg.Bin)
	}

	controlURL, err := lch.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		lch.Kill()
		return nil, fmt.Errorf("connect to chromium: %w", err)
	}

	incognito, err := b.Incognito()
	if err != nil {
		_ = b.Close()
		lch.Kill()
		return nil, fmt.Errorf("incognito context: %w", err)
	}

	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = b.Close()
		lch.Kill()
		return nil, fmt.Errorf("create page: %w", err)
	}

	if l.cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: l.cfg.UserAgent}); err != nil {
			_ = b.Close()
			lch.Kill()
			return nil, fmt.Errorf("set user agent: %w", err)
		}
	}

	return &rodPage{
		launcher:   lch,
		browser:    b,
		page:       page,
		navTimeout: l.cfg.NavigationTimeout,
	}, nil
}

type rodPage struct {
	launcher   *launcher.Launcher
	browser    *rod.Browser
	page       *rod.Page
	navTimeout time.Duration
	closed     bool
}

func (p *rodPage) bind(ctx context.Context) (*rod.Page, error) {
	if p.closed {
		return nil, ErrClosed
	}
	return p.page.Context(ctx), nil
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	pg, err := p.bind(ctx)
	if err != nil {
		return err
	}
	if p.navTimeout > 0 {
		pg = pg.Timeout(p.navTimeout)
		defer pg.CancelTimeout()
	}
	if err := pg.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := pg.WaitLoad(); err != nil {
		return fmt.Errorf("wait for load of %s: %w", url, err)
	}
	return nil
}

func (p *rodPage) Fill(ctx context.Context, selector, text string) error {
	pg, err := p.bind(ctx)
	if err != nil {
		return err
	}
	el, err := pg.Element(selector)
	if err != nil {
		return fmt.Errorf("fill %q: %w", selector, err)
	}
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("fill %q: %w", selector, err)
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("fill %q: %w", selector, err)
	}
	return nil
}

func (p *rodPage) Click(ctx context.Context, selector string) error {
	pg, err := p.bind(ctx)
	if err != nil {
		return err
	}
	el, err := pg.Element(selector)
	if err != nil {
		return fmt.Errorf("click %q: %w", selector, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %q: %w", selector, err)
	}
	return nil
}

// WaitFor relies on rod's element retry, which polls until the selector
// matches or ctx expires.
func (p *rodPage) WaitFor(ctx context.Context, selector string) error {
	pg, err := p.bind(ctx)
	if err != nil {
		return err
	}
	if _, err := pg.Element(selector); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("wait for %q: %w", selector, errors.Join(ErrElementNotFound, ctx.Err()))
		}
		return fmt.Errorf("wait for %q: %w", selector, err)
	}
	return nil
}

func (p *rodPage) GoBack(ctx context.Context) error {
	pg, err := p.bind(ctx)
	if err != nil {
		return err
	}
	if err := pg.NavigateBack(); err != nil {
		return fmt.Errorf("navigate back: %w", err)
	}
	return pg.WaitLoad()
}

func (p *rodPage) URL() string {
	if p.closed {
		return ""
	}
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (p *rodPage) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	if err := p.page.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close page: %w", err))
	}
	if err := p.browser.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close browser: %w", err))
	}
	p.launcher.Kill()
	p.launcher.Cleanup()
	return errors.Join(errs...)
}

func (p *rodPage) TextContent(ctx context.Context, selector string) (string, bool, error) {
	pg, err := p.bind(ctx)
	if err != nil {
		return "", false, err
	}
	return rodText(pg.Has(selector))
}

func (p *rodPage) Attribute(ctx context.Context, selector, name string) (string, bool, error) {
	pg, err := p.bind(ctx)
	if err != nil {
		return "", false, err
	}
	has, el, err := pg.Has(selector)
	if err != nil || !has {
		return "", false, err
	}
	return rodAttr(el, name)
}

func (p *rodPage) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	pg, err := p.bind(ctx)
	if err != nil {
		return nil, err
	}
	return rodElements(pg.Elements(selector))
}

type rodElement struct {
	el *rod.Element
}

func (e rodElement) TextContent(ctx context.Context, selector string) (string, bool, error) {
	return rodText(e.el.Context(ctx).Has(selector))
}

func (e rodElement) Attribute(ctx context.Context, selector, name string) (string, bool, error) {
	has, el, err := e.el.Context(ctx).Has(selector)
	if err != nil || !has {
		return "", false, err
	}
	return rodAttr(el, name)
}

func (e rodElement) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	return rodElements(e.el.Context(ctx).Elements(selector))
}

func (e rodElement) Text(ctx context.Context) (string, error) {
	return e.el.Context(ctx).Text()
}

func (e rodElement) Attr(ctx context.Context, name string) (string, bool, error) {
	return rodAttr(e.el.Context(ctx), name)
}

func rodAttr(el *rod.Element, name string) (string, bool, error) {
	v, err := el.Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func rodText(has bool, el *rod.Element, err error) (string, bool, error) {
	if err != nil || !has {
		return "", false, err
	}
	txt, err := el.Text()
	if err != nil {
		return "", false, err
	}
	return txt, true, nil
}

func rodElements(els rod.Elements, err error) ([]Element, error) {
	if err != nil {
		return nil, err
	}
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, rodElement{el})
	}
	return out, nil
}
