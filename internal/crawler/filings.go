package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/stwalsh4118/bizsearch/internal/browser"
	"github.com/stwalsh4118/bizsearch/internal/models"
)

// filingSeparator divides the date from the filing type in a document link,
// e.g. "01/02/2020 -- ANNUAL REPORT".
const filingSeparator = " -- "

// ParseFilingLink turns the text of a "Document Images" link into a filing
// event. It reports false when the text has no separator.
func ParseFilingLink(text, documentURL string) (models.FilingEvent, bool) {
	datePart, filingType, found := strings.Cut(text, filingSeparator)
	if !found {
		return models.FilingEvent{}, false
	}
	return models.FilingEvent{
		FilingType:  strings.TrimSpace(filingType),
		FilingDate:  ParseDate(datePart),
		DocumentURL: documentURL,
	}, true
}

// ResolveURL makes href absolute against base. Empty hrefs stay empty and
// unparseable ones are returned trimmed but otherwise untouched.
func ResolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// parseFilingHistory reads every row of the section's table. Rows without a
// link or whose link text lacks the separator are skipped.
func parseFilingHistory(ctx context.Context, section browser.Scope, origin *url.URL) ([]models.FilingEvent, error) {
	rows, err := section.QueryAll(ctx, selFilingRows)
	if err != nil {
		return nil, fmt.Errorf("query filing rows: %w", err)
	}

	events := make([]models.FilingEvent, 0, len(rows))
	for _, row := range rows {
		text, ok, err := row.TextContent(ctx, selFilingLink)
		if err != nil {
			return nil, fmt.Errorf("read filing link: %w", err)
		}
		if !ok {
			continue
		}
		href, _, err := row.Attribute(ctx, selFilingLink, "href")
		if err != nil {
			return nil, fmt.Errorf("read filing link href: %w", err)
		}

		if event, ok := ParseFilingLink(text, ResolveURL(origin, href)); ok {
			events = append(events, event)
		}
	}
	return events, nil
}
