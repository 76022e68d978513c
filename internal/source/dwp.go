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

// Leading posted date on a DWP meta row, e.g. "22 February 2026".
var dwpDateRegex = regexp.MustCompile(`^\d{1,2}\s+\w+\s+\d{4}`)

// DWP scrapes the findajob.dwp.gov.uk search results pages.
//
// DWP result cards are flat markup: an <h3> advert link followed by a sibling
// <ul> of unlabelled meta rows, so the rows are classified by shape (leading
// date, <strong> employer, £ salary, known contract/hours keywords).
type DWP struct {
	search  config.DWPSearch
	client  *http.Client
	logger  *slog.Logger
	pageGap time.Duration
}

// NewDWP creates the Find a Job connector.
func NewDWP(search config.DWPSearch, client *http.Client, logger *slog.Logger) *DWP {
	return &DWP{
		search:  search,
		client:  client,
		logger:  logger,
		pageGap: 500 * time.Millisecond,
	}
}

func (c *DWP) Name() string {
	return "Find a Job"
}

// Fetch retrieves listings for every configured keyword, de-duplicated by URL.
func (c *DWP) Fetch(ctx context.Context, maxPages int) ([]model.Listing, error) {
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

func (c *DWP) fetchKeyword(ctx context.Context, keyword string, maxPages int) ([]model.Listing, error) {
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
				return nil, fmt.Errorf("dwp search %q: %w", keyword, err)
			}
			c.logger.Warn("dwp page fetch failed, keeping partial results", "page", page, "error", err)
			break
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("dwp parse page %d: %w", page, err)
		}

		if page == 1 && auto {
			limit = detectTotalPages(doc, "p")
			c.logger.Debug("dwp pagination detected", "pages", limit, "keyword", keyword)
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

func (c *DWP) searchURL(page int, keyword string) string {
	params := url.Values{}
	if keyword != "" {
		params.Set("q", keyword)
	}
	if c.search.Location != "" {
		params.Set("w", c.search.Location)
	}
	if c.search.Category != "" {
		params.Set("cat", c.search.Category)
	}
	if c.search.LocCode != "" {
		params.Set("loc", c.search.LocCode)
	}
	if c.search.ContractType != "" {
		params.Set("cty", c.search.ContractType)
	}
	if c.search.Hours != "" {
		params.Set("cti", c.search.Hours)
	}
	if c.search.PostingDays != "" {
		params.Set("f", c.search.PostingDays)
	}
	if c.search.Remote != "" {
		params.Set("remote", c.search.Remote)
	}
	if page > 1 {
		params.Set("p", strconv.Itoa(page))
	}
	return c.search.BaseURL + "?" + params.Encode()
}

func (c *DWP) parseResults(doc *goquery.Document) []model.Listing {
	origin := siteOrigin(c.search.BaseURL)

	var listings []model.Listing
	doc.Find("h3").Each(func(_ int, h3 *goquery.Selection) {
		link := h3.Find("a").First()
		href, _ := link.Attr("href")
		if !strings.Contains(href, "/details/") {
			return
		}

		ul := h3.NextAllFiltered("ul").First()
		if ul.Length() == 0 {
			return
		}

		l := model.Listing{
			URL:          absoluteURL(origin, href),
			Title:        sanitise(link.Text()),
			JobReference: href[strings.LastIndex(href, "/")+1:],
			Source:       "dwp",
		}

		ul.Find("li").Each(func(_ int, li *goquery.Selection) {
			text := sanitise(li.Text())
			if dwpDateRegex.MatchString(text) {
				l.DatePosted = text
				return
			}

			if strong := sanitise(li.Find("strong").First().Text()); strong != "" {
				if strings.Contains(strong, "£") || strings.Contains(strong, "Negotiable") || strings.Contains(strong, "Competitive") {
					l.Salary = strong
					return
				}
				remainder := strings.TrimSpace(strings.Replace(text, strong, "", 1))
				if strings.HasPrefix(remainder, "- ") || strings.HasPrefix(remainder, "– ") {
					l.Employer = strong
					l.Location = strings.TrimSpace(strings.TrimLeft(remainder, "-–— "))
					return
				}
				if l.Employer == "" {
					l.Employer = strong
					return
				}
			}

			switch strings.ToLower(text) {
			case "permanent", "contract", "temporary", "apprenticeship":
				l.ContractType = text
				return
			case "full time", "part time":
				l.WorkingPattern = text
				return
			case "on-site only", "hybrid remote", "fully remote":
				// Remote status has no column of its own; fold it into the
				// working pattern when that is still free.
				if l.WorkingPattern == "" {
					l.WorkingPattern = text
				}
				return
			}

			if strings.Contains(text, "£") && l.Salary == "" {
				l.Salary = text
			}
		})

		if p := ul.NextAllFiltered("p").First(); p.Length() > 0 {
			l.Description = sanitise(p.Text())
		}

		if l.Valid() {
			listings = append(listings, l)
		}
	})
	return listings
}
