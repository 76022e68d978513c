package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"jobwatch/internal/config"
	"jobwatch/internal/model"
)

// Trailing UK postcode on the employer line, e.g. "Leeds Teaching Hospitals LS1 3EX".
var postcodeRegex = regexp.MustCompile(`([A-Z]{1,2}\d[A-Z\d]?\s*\d[A-Z]{2})\s*$`)

// NHS scrapes the jobs.nhs.uk candidate search results pages.
type NHS struct {
	search  config.NHSSearch
	client  *http.Client
	logger  *slog.Logger
	pageGap time.Duration
}

// NewNHS creates the NHS Jobs connector.
func NewNHS(search config.NHSSearch, client *http.Client, logger *slog.Logger) *NHS {
	return &NHS{
		search:  search,
		client:  client,
		logger:  logger,
		pageGap: 500 * time.Millisecond,
	}
}

func (c *NHS) Name() string {
	return "NHS Jobs"
}

// Fetch retrieves listings for every configured keyword, de-duplicated by URL.
func (c *NHS) Fetch(ctx context.Context, maxPages int) ([]model.Listing, error) {
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

// fetchKeyword pages through the search results for one keyword. A failure on
// the first page fails the fetch; a failure on a later page keeps what was
// already collected.
func (c *NHS) fetchKeyword(ctx context.Context, keyword string, maxPages int) ([]model.Listing, error) {
	auto := maxPages == 0
	limit := maxPages
	if auto {
		limit = 1
	}

	var all []model.Listing
	for page := 1; page <= limit; page++ {
		body, err := fetchPage(ctx, c.client, c.searchURL(page, keyword))
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("nhs search %q: %w", keyword, err)
			}
			c.logger.Warn("nhs page fetch failed, keeping partial results", "page", page, "error", err)
			break
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("nhs parse page %d: %w", page, err)
		}

		if page == 1 && auto {
			limit = detectTotalPages(doc, "page")
			c.logger.Debug("nhs pagination detected", "pages", limit, "keyword", keyword)
		}

		listings := c.parseResults(doc)
		if len(listings) == 0 {
			break
		}
		all = append(all, listings...)

		if page < limit {
			sleepCtx(ctx, c.pageGap)
		}
	}
	return all, nil
}

func (c *NHS) searchURL(page int, keyword string) string {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	if keyword != "" {
		params.Set("keyword", keyword)
	}
	if c.search.Location != "" {
		params.Set("location", c.search.Location)
	}
	if c.search.Distance != "" {
		params.Set("distance", c.search.Distance)
	}
	for _, ct := range splitCSV(c.search.ContractType) {
		params.Add("contractType", ct)
	}
	for _, wp := range splitCSV(c.search.WorkingPattern) {
		params.Add("workingPattern", wp)
	}
	if c.search.StaffGroup != "" {
		params.Set("staffGroup", c.search.StaffGroup)
	}
	return c.search.BaseURL + "?" + params.Encode()
}

// parseResults extracts the advert cards from one results page. A card is an
// <li> whose <h2> links to /candidate/jobadvert/; metadata lives in labelled
// nested <li> rows.
func (c *NHS) parseResults(doc *goquery.Document) []model.Listing {
	origin := siteOrigin(c.search.BaseURL)

	var listings []model.Listing
	doc.Find("li").Each(func(_ int, card *goquery.Selection) {
		titleLink := card.Find("h2 > a").First()
		href, _ := titleLink.Attr("href")
		if !strings.Contains(href, "/candidate/jobadvert/") {
			return
		}

		l := model.Listing{
			URL:          absoluteURL(origin, href),
			Title:        sanitise(titleLink.Text()),
			JobReference: jobRefFromHref(href),
			Source:       "nhs",
			StaffGroup:   c.search.StaffGroup,
		}

		// Employer line carries a trailing postcode when a site is listed.
		if headline := sanitise(card.Find("h3").First().Text()); headline != "" {
			if m := postcodeRegex.FindStringIndex(headline); m != nil {
				l.Employer = strings.TrimSpace(headline[:m[0]])
				l.Location = strings.TrimSpace(headline[m[0]:])
			} else {
				l.Employer = headline
			}
		}

		card.Find("li").Each(func(_ int, meta *goquery.Selection) {
			text := sanitise(meta.Text())
			switch {
			case strings.HasPrefix(text, "Salary:"):
				l.Salary = strings.TrimSpace(strings.TrimPrefix(text, "Salary:"))
			case strings.HasPrefix(text, "Date posted:"):
				l.DatePosted = strings.TrimSpace(strings.TrimPrefix(text, "Date posted:"))
			case strings.HasPrefix(text, "Closing date:"):
				l.ClosingDate = strings.TrimSpace(strings.TrimPrefix(text, "Closing date:"))
			case strings.HasPrefix(text, "Contract type:"):
				l.ContractType = strings.TrimSpace(strings.TrimPrefix(text, "Contract type:"))
			case strings.HasPrefix(text, "Working pattern:"):
				l.WorkingPattern = strings.TrimSpace(strings.TrimPrefix(text, "Working pattern:"))
			}
		})

		if l.Valid() {
			listings = append(listings, l)
		}
	})
	return listings
}

// jobRefFromHref takes the advert reference from the URL tail, e.g.
// /candidate/jobadvert/C9318-25-0663?keyword=nurse -> C9318-25-0663.
func jobRefFromHref(href string) string {
	path, _, _ := strings.Cut(href, "?")
	return path[strings.LastIndex(path, "/")+1:]
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
