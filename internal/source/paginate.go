package source

import (
	"regexp"
	"strconv"

	"github.com/PuerkitoBio/goquery"
)

var digitsRegex = regexp.MustCompile(`^\d+$`)

// detectTotalPages finds the highest page number referenced by pagination
// links, where pageParam is the board's page query parameter ("page" for NHS,
// "p" for DWP). Returns at least 1.
func detectTotalPages(doc *goquery.Document, pageParam string) int {
	pageRegex := regexp.MustCompile(`[?&]` + pageParam + `=(\d+)`)

	maxPage := 1
	doc.Find("nav a, .pagination a, a[href*='" + pageParam + "=']").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if m := pageRegex.FindStringSubmatch(href); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > maxPage {
				maxPage = n
			}
		}
		// Numbered pagination links often carry the page in the text alone.
		text := sanitise(a.Text())
		if digitsRegex.MatchString(text) {
			if n, err := strconv.Atoi(text); err == nil && n > maxPage {
				maxPage = n
			}
		}
	})
	return maxPage
}
