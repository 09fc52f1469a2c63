package crawler

import (
	"context"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stwalsh4118/bizsearch/internal/browser"
	"github.com/stwalsh4118/bizsearch/internal/models"
)

func loadDetail(t *testing.T, site *fixtureSite, id string) browser.Page {
	t.Helper()
	page, err := newTrackingLauncher(site).Launch(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = page.Close() })

	require.NoError(t, page.Navigate(context.Background(),
		testOrigin+"/Inquiry/CorporationSearch/SearchResultDetail?aggregateId="+id))
	return page
}

func TestExtractDetail_FullPage(t *testing.T) {
	// Arrange
	page := loadDetail(t, newFixtureSite(t), "acme")
	origin, err := url.Parse(testOrigin)
	require.NoError(t, err)

	// Act
	got, err := ExtractDetail(context.Background(), page, origin)

	// Assert
	require.NoError(t, err)
	if diff := cmp.Diff(acmeBusiness(), *got); diff != "" {
		t.Errorf("ExtractDetail() mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractDetail_SparsePage(t *testing.T) {
	// Arrange
	page := loadDetail(t, newFixtureSite(t), "x1")
	origin, err := url.Parse(testOrigin)
	require.NoError(t, err)

	// Act
	got, err := ExtractDetail(context.Background(), page, origin)

	// Assert
	require.NoError(t, err)
	want := models.Business{
		Name:          "BUSINESS x1 INC",
		FilingNumber:  "X1",
		Status:        "ACTIVE",
		Officers:      []models.Officer{},
		FilingHistory: []models.FilingEvent{},
	}
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Errorf("ExtractDetail() mismatch (-want +got):\n%s", diff)
	}
	assert.Nil(t, got.FilingDate)
}

func TestExtractDetail_PropagatesEngineFailure(t *testing.T) {
	// Arrange
	page := loadDetail(t, newFixtureSite(t), "acme")
	require.NoError(t, page.Close())

	// Act
	got, err := ExtractDetail(context.Background(), page, nil)

	// Assert
	assert.Nil(t, got)
	assert.ErrorIs(t, err, browser.ErrClosed)
}
