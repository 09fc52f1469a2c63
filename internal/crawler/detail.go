package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/stwalsh4118/bizsearch/internal/browser"
	"github.com/stwalsh4118/bizsearch/internal/models"
)

// ExtractDetail builds a business from a loaded detail page. Missing
// elements leave fields empty; only failures of the browsing engine itself
// are returned. Document links are resolved against origin.
func ExtractDetail(ctx context.Context, page browser.Scope, origin *url.URL) (*models.Business, error) {
	b := &models.Business{
		Officers:      []models.Officer{},
		FilingHistory: []models.FilingEvent{},
	}

	var filingDate string
	scalars := []struct {
		selector string
		dst      *string
	}{
		{selName, &b.Name},
		{selFilingNumber, &b.FilingNumber},
		{selStatus, &b.Status},
		{selFilingDate, &filingDate},
		{selStateOfFormation, &b.StateOfFormation},
	}
	for _, f := range scalars {
		v, err := textAt(ctx, page, f.selector)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}
	b.FilingDate = ParseDate(filingDate)

	sections, err := page.QueryAll(ctx, selSections)
	if err != nil {
		return nil, fmt.Errorf("query detail sections: %w", err)
	}
	for _, section := range sections {
		if err := extractSection(ctx, section, origin, b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// extractSection fills the fields owned by one detailSection. The first
// section with a given heading wins, matching a first-match selector query.
func extractSection(ctx context.Context, section browser.Element, origin *url.URL, b *models.Business) error {
	heading, ok, err := section.TextContent(ctx, selSectionHeading)
	if err != nil {
		return fmt.Errorf("read section heading: %w", err)
	}
	if !ok {
		return nil
	}

	switch {
	case strings.Contains(heading, headingPrincipal):
		if b.PrincipalAddress == "" {
			b.PrincipalAddress, err = textAt(ctx, section, selAddressBlock)
		}
	case strings.Contains(heading, headingMailing):
		if b.MailingAddress == "" {
			b.MailingAddress, err = textAt(ctx, section, selAddressBlock)
		}
	case strings.Contains(heading, headingAgent):
		if b.RegisteredAgentName == "" {
			b.RegisteredAgentName, err = textAt(ctx, section, selAgentName)
			if err == nil {
				b.RegisteredAgentAddress, err = textAt(ctx, section, selAgentAddress)
			}
		}
	case strings.Contains(heading, headingOfficers):
		var text string
		if text, err = section.Text(ctx); err == nil {
			b.Officers = append(b.Officers, ParseOfficers(text)...)
		}
	case strings.Contains(heading, headingDocuments):
		var events []models.FilingEvent
		if events, err = parseFilingHistory(ctx, section, origin); err == nil {
			b.FilingHistory = append(b.FilingHistory, events...)
		}
	}
	if err != nil {
		return fmt.Errorf("extract %q section: %w", heading, err)
	}
	return nil
}

func textAt(ctx context.Context, scope browser.Scope, selector string) (string, error) {
	text, _, err := scope.TextContent(ctx, selector)
	if err != nil {
		return "", fmt.Errorf("read %q: %w", selector, err)
	}
	return strings.TrimSpace(text), nil
}
