// Package source holds the job-board connectors. Each connector scrapes one
// board's search results into model.Listing records: NHS Jobs and DWP Find a
// Job are parsed from HTML, Indeed UK from the JSON blob embedded in its
// results page.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"jobwatch/internal/model"
)

const userAgent = "jobwatch/1.0"

var whitespaceRegex = regexp.MustCompile(`\s+`)

// sanitise collapses whitespace runs (including newlines and tabs) in scraped
// text to single spaces.
func sanitise(text string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(text, " "))
}

// fetchPage GETs one search results page and returns the body. Non-200
// responses become a model.HTTPError so the retry decorator can classify them.
func fetchPage(ctx context.Context, client *http.Client, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}

// parseRetryAfter parses a Retry-After header in seconds format. Returns zero
// if absent or unparseable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// siteOrigin returns the scheme://host prefix of a search URL, used to
// resolve relative advert links.
func siteOrigin(searchURL string) string {
	u, err := url.Parse(searchURL)
	if err != nil {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// absoluteURL resolves an advert href against the board origin.
func absoluteURL(origin, href string) string {
	if strings.HasPrefix(href, "/") {
		return origin + href
	}
	return href
}

// sleepCtx pauses between page fetches, returning early when ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// dedupeByURL merges per-keyword result sets, keeping the first occurrence of
// each URL.
func dedupeByURL(batches [][]model.Listing) []model.Listing {
	var out []model.Listing
	seen := make(map[string]struct{})
	for _, batch := range batches {
		for _, l := range batch {
			if _, ok := seen[l.URL]; ok {
				continue
			}
			seen[l.URL] = struct{}{}
			out = append(out, l)
		}
	}
	return out
}
