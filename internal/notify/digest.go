package notify

import (
	"fmt"
	"time"

	"jobwatch/internal/model"
)

// RenderEntry formats one listing as a numbered digest block.
func RenderEntry(i int, l model.Listing) string {
	salary := ""
	if l.Salary != "" {
		salary = " | " + l.Salary
	}
	entry := fmt.Sprintf("%d. *%s*\n   %s%s\n", i, l.Title, l.Employer, salary)
	if l.URL != "" {
		entry += "   " + l.URL + "\n"
	}
	return entry + "\n"
}

// DigestMessages builds the daily digest. It always produces at least one
// message, even with zero new listings, so the recipient gets a heartbeat
// with the current index size.
func DigestMessages(newListings []model.Listing, totalInIndex int, now time.Time) []string {
	dateStr := now.Format("Monday 02 January 2006")

	if len(newListings) == 0 {
		return []string{fmt.Sprintf(
			"🏥 *Job Watch — Daily Digest*\n📅 %s\n\n"+
				"No new roles matching your search since yesterday.\n\n"+
				"📊 %d jobs in your index.",
			dateStr, totalInIndex)}
	}

	plural := "s"
	if len(newListings) == 1 {
		plural = ""
	}
	header := fmt.Sprintf(
		"🏥 *Job Watch — Daily Digest*\n📅 %s\n\n✨ *%d new role%s* since yesterday:\n\n",
		dateStr, len(newListings), plural)
	footer := fmt.Sprintf("📊 %d total jobs in your index.", totalInIndex)

	entries := make([]string, len(newListings))
	for i, l := range newListings {
		entries[i] = RenderEntry(i+1, l)
	}
	return Batch(header, entries, footer)
}

// AlertMessages builds the intra-day alert. Callers only send it when there
// are new listings since the last successful notification.
func AlertMessages(newListings []model.Listing, now time.Time) []string {
	plural := "s"
	if len(newListings) == 1 {
		plural = ""
	}
	header := fmt.Sprintf(
		"🔔 *New roles just posted*\n📅 %s\n\n%d new role%s since the last update:\n\n",
		now.Format("15:04 02 Jan"), len(newListings), plural)

	entries := make([]string, len(newListings))
	for i, l := range newListings {
		entries[i] = RenderEntry(i+1, l)
	}
	return Batch(header, entries, "")
}

// TestMessage is the body sent by `jobwatch bot test` to verify credentials.
func TestMessage(now time.Time) string {
	return fmt.Sprintf(
		"🧪 *Job Watch — Test Message*\n\nYour notifications are working!\nSent at %s",
		now.Format("15:04 on 02 January 2006"))
}
