package crawler

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stwalsh4118/bizsearch/internal/browser"
	"github.com/stwalsh4118/bizsearch/internal/models"
)

const testOrigin = "https://search.sunbiz.org"

// resultRow is one line of a rendered search results table.
type resultRow struct {
	id     string
	name   string
	status string
}

// fixtureSite imitates the registry's search form, results table and detail
// pages. It is served in-process through handlerTransport, so no sockets or
// background goroutines are involved.
type fixtureSite struct {
	searchForm []byte
	acmeDetail []byte

	// results maps a search term to the rows it produces.
	results map[string][]resultRow
	// failing lists detail ids that answer with a server error.
	failing map[string]bool
	// noResultsTable renders results pages without the results container.
	noResultsTable bool

	mu         sync.Mutex
	detailHits []string
}

func newFixtureSite(t *testing.T) *fixtureSite {
	t.Helper()
	return &fixtureSite{
		searchForm: readFixture(t, "search_form.html"),
		acmeDetail: readFixture(t, "detail_acme.html"),
		results:    map[string][]resultRow{},
		failing:    map[string]bool{},
	}
}

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

func (s *fixtureSite) hits() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.detailHits...)
}

func (s *fixtureSite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	switch r.URL.Path {
	case "/Inquiry/CorporationSearch/ByName":
		_, _ = w.Write(s.searchForm)
	case "/Inquiry/CorporationSearch/SearchResults":
		_, _ = fmt.Fprint(w, s.resultsPage(s.results[r.URL.Query().Get("SearchTerm")]))
	case "/Inquiry/CorporationSearch/SearchResultDetail":
		id := r.URL.Query().Get("aggregateId")
		s.mu.Lock()
		s.detailHits = append(s.detailHits, id)
		s.mu.Unlock()

		switch {
		case s.failing[id]:
			http.Error(w, "Server Error", http.StatusInternalServerError)
		case id == "acme":
			_, _ = w.Write(s.acmeDetail)
		default:
			_, _ = fmt.Fprint(w, minimalDetailPage(id))
		}
	default:
		http.NotFound(w, r)
	}
}

func (s *fixtureSite) resultsPage(rows []resultRow) string {
	var b strings.Builder
	b.WriteString(`<html><body><div id="maincontent">`)
	if s.noResultsTable {
		b.WriteString(`<p>No records found.</p></div></body></html>`)
		return b.String()
	}
	b.WriteString(`<div id="search-results"><table><thead><tr>` +
		`<th>Corporate Name</th><th>Document Number</th><th>Status</th></tr></thead><tbody>`)
	for _, row := range rows {
		fmt.Fprintf(&b, `<tr><td class="large-width"><a href="/Inquiry/CorporationSearch/SearchResultDetail?inquirytype=EntityName&amp;aggregateId=%s" title="Go to Detail Screen">%s</a></td>`+
			`<td class="medium-width">%s</td><td class="small-width">%s</td></tr>`,
			row.id, html.EscapeString(row.name), strings.ToUpper(row.id), row.status)
	}
	b.WriteString(`</tbody></table></div></div></body></html>`)
	return b.String()
}

func minimalDetailPage(id string) string {
	return fmt.Sprintf(`<html><body><div class="searchResultDetail">
<div class="detailSection corporationName"><p>Florida Profit Corporation</p><p>BUSINESS %[1]s INC</p></div>
<div class="detailSection filingInformation"><span>Filing Information</span><div><div>
<label for="Detail_DocumentId">Document Number</label><span>%[2]s</span>
<label for="Detail_Status">Status</label><span>ACTIVE</span>
</div></div></div>
</div></body></html>`, id, strings.ToUpper(id))
}

type handlerTransport struct {
	handler http.Handler
}

func (t handlerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rec := httptest.NewRecorder()
	t.handler.ServeHTTP(rec, req)
	resp := rec.Result()
	resp.Request = req
	return resp, nil
}

// trackingLauncher wraps the HTTP engine, counting page releases and
// optionally failing to launch or panicking on a chosen selector.
type trackingLauncher struct {
	inner     browser.Launcher
	launchErr error
	panicOn   string

	launched int
	closed   int
}

func newTrackingLauncher(site http.Handler) *trackingLauncher {
	return &trackingLauncher{
		inner: browser.NewStaticLauncher(browser.StaticConfig{
			Transport: handlerTransport{handler: site},
			UserAgent: "bizsearch-test",
		}),
	}
}

func (l *trackingLauncher) Name() string { return "fixture" }

func (l *trackingLauncher) Launch(ctx context.Context) (browser.Page, error) {
	if l.launchErr != nil {
		return nil, l.launchErr
	}
	page, err := l.inner.Launch(ctx)
	if err != nil {
		return nil, err
	}
	l.launched++
	return &trackingPage{Page: page, launcher: l}, nil
}

type trackingPage struct {
	browser.Page
	launcher *trackingLauncher
}

func (p *trackingPage) QueryAll(ctx context.Context, selector string) ([]browser.Element, error) {
	if p.launcher.panicOn == selector {
		panic("engine crashed")
	}
	return p.Page.QueryAll(ctx, selector)
}

func (p *trackingPage) Close() error {
	p.launcher.closed++
	return p.Page.Close()
}

func testOptions() Options {
	return Options{
		BaseURL:       testOrigin,
		WaitTimeout:   time.Second,
		SearchTimeout: 10 * time.Second,
	}
}

func newTestCrawler(t *testing.T, launcher browser.Launcher, opts Options) *Crawler {
	t.Helper()
	c, err := New(launcher, opts, nil)
	require.NoError(t, err)
	return c
}

func date(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

// acmeBusiness is the record detail_acme.html should produce.
func acmeBusiness() models.Business {
	return models.Business{
		Name:                   "ACME HOLDINGS LLC",
		FilingNumber:           "L19000123456",
		Status:                 "ACTIVE",
		FilingDate:             date(2019, time.March, 15),
		StateOfFormation:       "FL",
		PrincipalAddress:       "100 BISCAYNE BLVD\nSUITE 1200\nMIAMI, FL 33132",
		MailingAddress:         "PO BOX 1000\nMIAMI, FL 33101",
		RegisteredAgentName:    "DOE, JANE",
		RegisteredAgentAddress: "200 S ORANGE AVE\nORLANDO, FL 32801",
		Officers: []models.Officer{
			{Title: "MGR", Name: "DOE, JOHN", Address: "100 BISCAYNE BLVD\nMIAMI, FL 33132"},
			{Title: "AMBR", Name: "ROE, RICHARD", Address: "1 OCEAN DR\nMIAMI BEACH, FL 33139"},
		},
		FilingHistory: []models.FilingEvent{
			{
				FilingType:  "ANNUAL REPORT",
				FilingDate:  date(2021, time.January, 5),
				DocumentURL: testOrigin + "/Inquiry/CorporationSearch/ConvertTiffToPDF?storagePath=COR%5C2021%5C0105%5C1.pdf",
			},
			{
				FilingType:  "ANNUAL REPORT",
				FilingDate:  date(2020, time.February, 10),
				DocumentURL: testOrigin + "/ConvertTiffToPDF?storagePath=COR%5C2020%5C0210%5C2.pdf",
			},
			{
				FilingType:  "Florida Limited Liability",
				FilingDate:  date(2019, time.March, 15),
				DocumentURL: "https://docs.example.com/3.pdf",
			},
		},
	}
}
