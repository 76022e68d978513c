package source

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"jobwatch/internal/config"
	"jobwatch/internal/model"
)

const (
	indeedResultsPerPage = 15
	indeedResultCap      = 1000 // Indeed stops serving results past ~1000
)

// Indeed embeds the job cards as JSON in a script variable on the results page:
//
//	window.mosaic.providerData["mosaic-provider-jobcards"] = {...};
var (
	mosaicRegex  = regexp.MustCompile(`(?s)window\.mosaic\.providerData\[["']mosaic-provider-jobcards["']\]\s*=\s*(\{.+?\})\s*;`)
	htmlTagRegex = regexp.MustCompile(`<[^>]*>`)
)

// Indeed fetches uk.indeed.com search results via the embedded mosaic JSON.
type Indeed struct {
	search  config.IndeedSearch
	client  *http.Client
	logger  *slog.Logger
	pageGap time.Duration
}

// NewIndeed creates the Indeed UK connector.
func NewIndeed(search config.IndeedSearch, client *http.Client, logger *slog.Logger) *Indeed {
	return &Indeed{
		search:  search,
		client:  client,
		logger:  logger,
		pageGap: time.Second,
	}
}

func (c *Indeed) Name() string {
	return "Indeed UK"
}

// Fetch retrieves listings for every configured keyword, de-duplicated by URL.
func (c *Indeed) Fetch(ctx context.Context, maxPages int) ([]model.Listing, error) {
	if maxPages == 0 {
		maxPages = c.search.Pages
	}
	keywords := c.search.Keywords
	if len(keywords) == 0 {
		keywords = []string{""}
	}

	var batches [][]model.Listing
	for _, kw := range keywords {
		listings, err := c.fetchKeyword(ctx, kw, maxPages)
		if err != nil {
			return nil, err
		}
		batches = append(batches, listings)
	}
	return dedupeByURL(batches), nil
}

func (c *Indeed) fetchKeyword(ctx context.Context, keyword string, maxPages int) ([]model.Listing, error) {
	auto := maxPages == 0
	limit := maxPages
	if auto {
		limit = 1
	}

	var all []model.Listing
	seenKeys := make(map[string]struct{})

	for page := 0; page < limit; page++ {
		body, err := fetchPage(ctx, c.client, c.searchURL(page*indeedResultsPerPage, keyword))
		if err != nil {
			if page == 0 {
				return nil, fmt.Errorf("indeed search %q: %w", keyword, err)
			}
			c.logger.Warn("indeed page fetch failed, keeping partial results", "page", page+1, "error", err)
			break
		}

		data, ok := extractMosaicData(body)
		if !ok {
			if page == 0 {
				return nil, fmt.Errorf("indeed search %q: no embedded job card data", keyword)
			}
			break
		}

		if page == 0 && auto {
			limit = indeedPageCount(data)
			c.logger.Debug("indeed pagination detected", "pages", limit, "keyword", keyword)
		}

		listings := parseMosaicResults(data, c.search.BaseURL)
		if len(listings) == 0 {
			break
		}
		// Indeed repeats sponsored cards across pages.
		for _, l := range listings {
			if _, dup := seenKeys[l.JobReference]; dup {
				continue
			}
			seenKeys[l.JobReference] = struct{}{}
			all = append(all, l)
		}

		if page < limit-1 {
			sleepCtx(ctx, c.pageGap)
		}
	}
	return all, nil
}

func (c *Indeed) searchURL(start int, keyword string) string {
	params := url.Values{}
	if keyword != "" {
		params.Set("q", keyword)
	}
	if c.search.Location != "" {
		params.Set("l", c.search.Location)
	}
	if c.search.Radius != "" {
		params.Set("radius", c.search.Radius)
	}
	if c.search.JobType != "" {
		params.Set("jt", c.search.JobType)
	}
	if c.search.MaxDaysOld != "" {
		params.Set("fromage", c.search.MaxDaysOld)
	}
	params.Set("sort", "date")
	params.Set("filter", "0")
	if start > 0 {
		params.Set("start", strconv.Itoa(start))
	}
	return c.search.BaseURL + "?" + params.Encode()
}

// mosaicData is the subset of the embedded provider JSON jobwatch reads.
type mosaicData struct {
	MetaData struct {
		MosaicProviderJobCardsModel struct {
			Results       []mosaicResult `json:"results"`
			TierSummaries []struct {
				JobCount int `json:"jobCount"`
			} `json:"tierSummaries"`
		} `json:"mosaicProviderJobCardsModel"`
	} `json:"metaData"`
}

type mosaicResult struct {
	JobKey                string   `json:"jobkey"`
	Title                 string   `json:"title"`
	DisplayTitle          string   `json:"displayTitle"`
	Company               string   `json:"company"`
	FormattedLocation     string   `json:"formattedLocation"`
	JobLocationCity       string   `json:"jobLocationCity"`
	FormattedRelativeDate string   `json:"formattedRelativeDate"`
	JobTypes              []string `json:"jobTypes"`
	Snippet               string   `json:"snippet"`
	SalarySnippet         struct {
		Text string `json:"text"`
	} `json:"salarySnippet"`
	ExtractedSalary *struct {
		Min  float64 `json:"min"`
		Max  float64 `json:"max"`
		Type string  `json:"type"`
	} `json:"extractedSalary"`
}

func extractMosaicData(body string) (*mosaicData, bool) {
	m := mosaicRegex.FindStringSubmatch(body)
	if m == nil {
		return nil, false
	}
	var data mosaicData
	if err := json.Unmarshal([]byte(m[1]), &data); err != nil {
		return nil, false
	}
	return &data, true
}

// indeedPageCount converts the tier result counts to a page count.
func indeedPageCount(data *mosaicData) int {
	total := 0
	for _, tier := range data.MetaData.MosaicProviderJobCardsModel.TierSummaries {
		total += tier.JobCount
	}
	if total <= 0 {
		return 1
	}
	if total > indeedResultCap {
		total = indeedResultCap
	}
	return (total + indeedResultsPerPage - 1) / indeedResultsPerPage
}

func parseMosaicResults(data *mosaicData, baseURL string) []model.Listing {
	origin := siteOrigin(baseURL)

	var listings []model.Listing
	for _, r := range data.MetaData.MosaicProviderJobCardsModel.Results {
		if r.JobKey == "" {
			continue
		}

		title := r.Title
		if title == "" {
			title = r.DisplayTitle
		}
		location := r.FormattedLocation
		if location == "" {
			location = r.JobLocationCity
		}

		listings = append(listings, model.Listing{
			URL:          origin + "/viewjob?jk=" + r.JobKey,
			Title:        sanitise(title),
			Employer:     sanitise(r.Company),
			Location:     sanitise(location),
			Salary:       mosaicSalary(r),
			DatePosted:   sanitise(r.FormattedRelativeDate),
			ContractType: strings.Join(r.JobTypes, ", "),
			Description:  stripHTML(r.Snippet),
			JobReference: r.JobKey,
			Source:       "indeed",
		})
	}
	return listings
}

// mosaicSalary prefers the display snippet and falls back to the extracted
// numeric range.
func mosaicSalary(r mosaicResult) string {
	if r.SalarySnippet.Text != "" {
		return sanitise(r.SalarySnippet.Text)
	}
	es := r.ExtractedSalary
	if es == nil {
		return ""
	}

	switch {
	case es.Min > 0 && es.Max > 0:
		s := fmt.Sprintf("£%s - £%s", groupThousands(es.Min), groupThousands(es.Max))
		if es.Type != "" {
			s += " " + es.Type
		}
		return s
	case es.Min > 0:
		return "£" + groupThousands(es.Min)
	}
	return ""
}

// groupThousands renders a salary figure with comma separators, e.g. 32500 ->
// "32,500".
func groupThousands(v float64) string {
	s := strconv.FormatFloat(v, 'f', 0, 64)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}

// stripHTML converts a snippet fragment to plain text.
func stripHTML(fragment string) string {
	return sanitise(html.UnescapeString(htmlTagRegex.ReplaceAllString(fragment, " ")))
}
