package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"jobwatch/internal/config"
)

func indeedPage(results string, jobCount int) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html><head><script>
window.mosaic.providerData["mosaic-provider-jobcards"] = {"metaData":{"mosaicProviderJobCardsModel":{"results":[%s],"tierSummaries":[{"jobCount":%d}]}}};
</script></head><body></body></html>`, results, jobCount)
}

func newTestIndeed(srv *httptest.Server, keywords ...string) *Indeed {
	c := NewIndeed(config.IndeedSearch{
		BaseURL:  srv.URL + "/jobs",
		Keywords: keywords,
	}, srv.Client(), discardLogger())
	c.pageGap = 0
	return c
}

func TestIndeedFetch_ParsesEmbeddedJSON(t *testing.T) {
	results := `{
		"jobkey": "abc123def456",
		"title": "Occupational Therapist",
		"company": "Nuffield Health",
		"formattedLocation": "Leeds LS1",
		"salarySnippet": {"text": "£38,000 - £42,000 a year"},
		"formattedRelativeDate": "2 days ago",
		"jobTypes": ["Full-time", "Permanent"],
		"snippet": "<b>Band 6</b> post in our <i>outpatient</i> clinic."
	},{
		"jobkey": "xyz789",
		"displayTitle": "Support Worker",
		"company": "Mencap",
		"jobLocationCity": "York",
		"extractedSalary": {"min": 24960, "max": 27300, "type": "yearly"}
	}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(indeedPage(results, 2)))
	}))
	defer srv.Close()

	listings, err := newTestIndeed(srv).Fetch(context.Background(), 1)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(listings))
	}

	l := listings[0]
	if l.URL != srv.URL+"/viewjob?jk=abc123def456" {
		t.Errorf("URL = %q", l.URL)
	}
	if l.Title != "Occupational Therapist" || l.Employer != "Nuffield Health" {
		t.Errorf("title/employer = %q / %q", l.Title, l.Employer)
	}
	if l.Location != "Leeds LS1" {
		t.Errorf("Location = %q", l.Location)
	}
	if l.Salary != "£38,000 - £42,000 a year" {
		t.Errorf("Salary = %q", l.Salary)
	}
	if l.DatePosted != "2 days ago" {
		t.Errorf("DatePosted = %q", l.DatePosted)
	}
	if l.ContractType != "Full-time, Permanent" {
		t.Errorf("ContractType = %q", l.ContractType)
	}
	if l.Description != "Band 6 post in our outpatient clinic." {
		t.Errorf("Description = %q, want tags stripped", l.Description)
	}
	if l.JobReference != "abc123def456" || l.Source != "indeed" {
		t.Errorf("ref/source = %q / %q", l.JobReference, l.Source)
	}

	// Second card exercises the fallbacks: displayTitle, city, extracted salary.
	m := listings[1]
	if m.Title != "Support Worker" || m.Location != "York" {
		t.Errorf("fallback title/location = %q / %q", m.Title, m.Location)
	}
	if m.Salary != "£24,960 - £27,300 yearly" {
		t.Errorf("extracted salary = %q", m.Salary)
	}
}

func TestIndeedFetch_AutoPaginatesByResultCount(t *testing.T) {
	var starts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		starts = append(starts, r.URL.Query().Get("start"))
		result := fmt.Sprintf(`{"jobkey": "key-%d", "title": "Role"}`, len(starts))
		w.Write([]byte(indeedPage(result, 20)))
	}))
	defer srv.Close()

	listings, err := newTestIndeed(srv).Fetch(context.Background(), 0)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	// 20 results at 15 per page = 2 pages; second request starts at 15.
	if len(starts) != 2 || starts[0] != "" || starts[1] != "15" {
		t.Errorf("start params = %v", starts)
	}
	if len(listings) != 2 {
		t.Errorf("expected 2 listings, got %d", len(listings))
	}
}

func TestIndeedFetch_DedupesSponsoredRepeats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The same sponsored card appears on every page.
		w.Write([]byte(indeedPage(`{"jobkey": "sponsored-1", "title": "Sponsored Role"}`, 20)))
	}))
	defer srv.Close()

	listings, err := newTestIndeed(srv).Fetch(context.Background(), 0)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(listings) != 1 {
		t.Errorf("repeated jobkey should appear once, got %d listings", len(listings))
	}
}

func TestIndeedFetch_NoEmbeddedDataIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>Please verify you are human</body></html>"))
	}))
	defer srv.Close()

	if _, err := newTestIndeed(srv).Fetch(context.Background(), 1); err == nil {
		t.Fatal("expected error when the job card JSON is missing")
	}
}

func TestIndeedSearchURLIncludesFilters(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		w.Write([]byte(indeedPage(`{"jobkey": "k1", "title": "Role"}`, 1)))
	}))
	defer srv.Close()

	c := NewIndeed(config.IndeedSearch{
		BaseURL:    srv.URL + "/jobs",
		Keywords:   []string{"physiotherapist"},
		Location:   "Leeds",
		Radius:     "20",
		JobType:    "fulltime",
		MaxDaysOld: "7",
	}, srv.Client(), discardLogger())
	c.pageGap = 0

	if _, err := c.Fetch(context.Background(), 1); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	r, _ := http.NewRequest(http.MethodGet, "/?"+query, nil)
	q := r.URL.Query()
	want := map[string]string{
		"q": "physiotherapist", "l": "Leeds", "radius": "20",
		"jt": "fulltime", "fromage": "7", "sort": "date", "filter": "0",
	}
	for k, v := range want {
		if q.Get(k) != v {
			t.Errorf("query %s = %q, want %q", k, q.Get(k), v)
		}
	}
}
