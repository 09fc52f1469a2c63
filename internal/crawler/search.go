// Package crawler drives a browsing engine through the Sunbiz name search and
// turns detail pages into business records.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"dario.cat/mergo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/stwalsh4118/bizsearch/internal/browser"
	"github.com/stwalsh4118/bizsearch/internal/config"
	"github.com/stwalsh4118/bizsearch/internal/logger"
	"github.com/stwalsh4118/bizsearch/internal/models"
)

// ErrBrowserUnavailable is returned when no browsing context can be acquired.
// It is the only error Search ever returns.
var ErrBrowserUnavailable = errors.New("browser unavailable")

const tracerName = "github.com/stwalsh4118/bizsearch/internal/crawler"

// State is a step of a single search run.
type State string

const (
	StateIdle               State = "idle"
	StateSearching          State = "searching"
	StateEnumeratingResults State = "enumerating_results"
	StateVisitingDetail     State = "visiting_detail"
	StateDone               State = "done"
	StateFailed             State = "failed"
)

// Options tunes a Crawler. Zero fields take the values from DefaultOptions.
type Options struct {
	// BaseURL is the registry origin; search and document links resolve against it.
	BaseURL    string
	SearchPath string
	// MaxCandidates caps how many result rows are considered, before filtering.
	// Values above MaxCandidateLimit are clamped.
	MaxCandidates int
	// WaitTimeout bounds each wait for a page structure.
	WaitTimeout time.Duration
	// SearchTimeout bounds a whole Search call.
	SearchTimeout time.Duration
	// IncludeInactive visits rows whatever their status.
	IncludeInactive bool
}

// MaxCandidateLimit is the most result rows a single search ever considers.
const MaxCandidateLimit = config.MaxResultsLimit

// DefaultOptions returns the settings for the public Sunbiz site.
func DefaultOptions() Options {
	return Options{
		BaseURL:       "https://search.sunbiz.org",
		SearchPath:    "/Inquiry/CorporationSearch/ByName",
		MaxCandidates: MaxCandidateLimit,
		WaitTimeout:   15 * time.Second,
		SearchTimeout: 2 * time.Minute,
	}
}

// Crawler runs name searches. It holds no per-search state and is safe for
// concurrent use; every Search acquires its own page.
type Crawler struct {
	launcher  browser.Launcher
	log       *logger.Logger
	tracer    trace.Tracer
	origin    *url.URL
	searchURL string
	opts      Options
}

// New creates a Crawler on top of launcher.
func New(launcher browser.Launcher, opts Options, log *logger.Logger) (*Crawler, error) {
	if launcher == nil {
		return nil, errors.New("crawler: launcher is required")
	}
	if err := mergo.Merge(&opts, DefaultOptions()); err != nil {
		return nil, fmt.Errorf("crawler: failed to apply defaults: %w", err)
	}

	if opts.MaxCandidates > MaxCandidateLimit {
		opts.MaxCandidates = MaxCandidateLimit
	}

	origin, err := url.Parse(opts.BaseURL)
	if err != nil || !origin.IsAbs() {
		return nil, fmt.Errorf("crawler: base url %q must be absolute", opts.BaseURL)
	}
	searchRef, err := url.Parse(opts.SearchPath)
	if err != nil {
		return nil, fmt.Errorf("crawler: invalid search path %q: %w", opts.SearchPath, err)
	}

	if log == nil {
		log = logger.Nop()
	}

	return &Crawler{
		launcher:  launcher,
		log:       log.WithComponent("crawler"),
		tracer:    otel.Tracer(tracerName),
		origin:    origin,
		searchURL: origin.ResolveReference(searchRef).String(),
		opts:      opts,
	}, nil
}

// Options returns the effective options after defaults were applied.
func (c *Crawler) Options() Options {
	return c.opts
}

// Engine names the browsing engine behind the crawler.
func (c *Crawler) Engine() string {
	return c.launcher.Name()
}

// Search looks name up on the registry and returns the extracted records of
// the retained candidates, in result order.
//
// Navigation or extraction failures, panics included, end the run in the
// failed state: they are logged and an empty slice is returned with a nil
// error. Partial results are never returned. Only failing to acquire a page
// is reported, as ErrBrowserUnavailable.
func (c *Crawler) Search(ctx context.Context, name string) (businesses []models.Business, err error) {
	ctx, span := c.tracer.Start(ctx, "crawler.Search",
		trace.WithAttributes(
			attribute.String("crawler.engine", c.launcher.Name()),
			attribute.String("business.name", name),
		))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.opts.SearchTimeout)
	defer cancel()

	r := &run{crawler: c, span: span, log: c.log.With(logger.Fields{"search_name": name}), state: StateIdle}

	// A caller that has already gone away gets an empty result, not an outage.
	if cerr := ctx.Err(); cerr != nil {
		r.fail(cerr)
		return []models.Business{}, nil
	}

	page, err := c.launcher.Launch(ctx)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			r.fail(cerr)
			return []models.Business{}, nil
		}
		r.fail(err)
		return nil, fmt.Errorf("%w: %w", ErrBrowserUnavailable, err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			r.log.Warn("Failed to release browser page", logger.Fields{"error": cerr.Error()})
		}
	}()

	defer func() {
		if rec := recover(); rec != nil {
			r.fail(fmt.Errorf("panic during crawl: %v", rec))
			businesses, err = []models.Business{}, nil
		}
	}()

	found, err := r.execute(ctx, page, name)
	if err != nil {
		r.fail(err)
		return []models.Business{}, nil
	}

	r.transition(StateDone, logger.Fields{"count": len(found)})
	span.SetAttributes(attribute.Int("crawler.results", len(found)))
	return found, nil
}

type candidate struct {
	href   string
	status string
}

// run carries the state of one Search call.
type run struct {
	crawler *Crawler
	span    trace.Span
	log     *logger.Logger
	state   State
}

func (r *run) transition(to State, fields logger.Fields) {
	if fields == nil {
		fields = logger.Fields{}
	}
	fields["from"] = string(r.state)
	fields["to"] = string(to)
	r.state = to
	r.span.AddEvent(string(to))
	r.log.Debug("Crawler state transition", fields)
}

func (r *run) fail(err error) {
	failedIn := r.state
	r.transition(StateFailed, nil)
	r.span.RecordError(err)
	r.span.SetStatus(codes.Error, err.Error())
	r.log.Error("Crawl failed", err, logger.Fields{"state": string(failedIn)})
}

func (r *run) execute(ctx context.Context, page browser.Page, name string) ([]models.Business, error) {
	c := r.crawler

	r.transition(StateSearching, logger.Fields{"url": c.searchURL})
	if err := page.Navigate(ctx, c.searchURL); err != nil {
		return nil, fmt.Errorf("open search form: %w", err)
	}
	if err := page.Fill(ctx, selSearchInput, name); err != nil {
		return nil, fmt.Errorf("enter search term: %w", err)
	}
	if err := page.Click(ctx, selSearchSubmit); err != nil {
		return nil, fmt.Errorf("submit search: %w", err)
	}
	if err := c.waitFor(ctx, page, selSearchResults); err != nil {
		return nil, err
	}

	r.transition(StateEnumeratingResults, nil)
	candidates, err := r.candidates(ctx, page)
	if err != nil {
		return nil, err
	}
	r.log.Info("Search results enumerated", logger.Fields{"candidates": len(candidates)})

	businesses := make([]models.Business, 0, len(candidates))
	for i, cand := range candidates {
		r.transition(StateVisitingDetail, logger.Fields{
			"candidate": i + 1,
			"total":     len(candidates),
			"href":      cand.href,
		})
		b, err := r.visit(ctx, page, cand)
		if err != nil {
			return nil, err
		}
		businesses = append(businesses, *b)
	}
	return businesses, nil
}

// candidates reads at most MaxCandidates result rows and keeps those with a
// detail link and, unless IncludeInactive is set, an active status.
func (r *run) candidates(ctx context.Context, page browser.Page) ([]candidate, error) {
	c := r.crawler

	rows, err := page.QueryAll(ctx, selResultRows)
	if err != nil {
		return nil, fmt.Errorf("query result rows: %w", err)
	}
	if len(rows) > c.opts.MaxCandidates {
		rows = rows[:c.opts.MaxCandidates]
	}

	base := c.origin
	if current, err := url.Parse(page.URL()); err == nil && current.IsAbs() {
		base = current
	}

	out := make([]candidate, 0, len(rows))
	for i, row := range rows {
		href, ok, err := row.Attribute(ctx, selDetailLink, "href")
		if err != nil {
			return nil, fmt.Errorf("read detail link of row %d: %w", i+1, err)
		}
		if !ok || href == "" {
			r.log.Debug("Skipping result row without detail link", logger.Fields{"row": i + 1})
			continue
		}
		status, _, err := row.TextContent(ctx, selRowStatus)
		if err != nil {
			return nil, fmt.Errorf("read status of row %d: %w", i+1, err)
		}
		if !c.opts.IncludeInactive && !models.IsActiveStatus(status) {
			r.log.Debug("Skipping inactive result row", logger.Fields{"row": i + 1, "status": status})
			continue
		}
		out = append(out, candidate{href: ResolveURL(base, href), status: status})
	}
	return out, nil
}

// visit opens one detail page, extracts it and returns to the results.
func (r *run) visit(ctx context.Context, page browser.Page, cand candidate) (*models.Business, error) {
	c := r.crawler

	ctx, span := c.tracer.Start(ctx, "crawler.VisitDetail",
		trace.WithAttributes(attribute.String("crawler.detail_url", cand.href)))
	defer span.End()

	if err := page.Navigate(ctx, cand.href); err != nil {
		return nil, fmt.Errorf("open detail page: %w", err)
	}
	if err := c.waitFor(ctx, page, selDetail); err != nil {
		return nil, err
	}

	b, err := ExtractDetail(ctx, page, c.origin)
	if err != nil {
		return nil, fmt.Errorf("extract detail page %s: %w", cand.href, err)
	}
	r.log.Debug("Extracted business", logger.Fields{
		"filing_number": b.FilingNumber,
		"officers":      len(b.Officers),
		"filings":       len(b.FilingHistory),
	})

	if err := page.GoBack(ctx); err != nil {
		return nil, fmt.Errorf("return to results: %w", err)
	}
	if err := c.waitFor(ctx, page, selSearchResults); err != nil {
		return nil, err
	}
	return b, nil
}

func (c *Crawler) waitFor(ctx context.Context, page browser.Page, selector string) error {
	waitCtx, cancel := context.WithTimeout(ctx, c.opts.WaitTimeout)
	defer cancel()

	if err := page.WaitFor(waitCtx, selector); err != nil {
		return fmt.Errorf("wait for %q: %w", selector, err)
	}
	return nil
}
