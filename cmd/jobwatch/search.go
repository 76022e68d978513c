package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"jobwatch/internal/model"
)

var (
	searchLocation string
	searchSource   string
	searchLimit    int
)

var searchCmd = &cobra.Command{
	Use:   "search [keyword...]",
	Short: "Search the local index",
	Long:  "Substring search over title, description, and employer of indexed listings.",
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchLocation, "location", "l", "", "filter by location substring")
	searchCmd.Flags().StringVarP(&searchSource, "source", "s", "", "filter by source (nhs, dwp, indeed)")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 50, "maximum results")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	store := openStore(cfg, logger)
	defer store.Close()

	keyword := strings.Join(args, " ")
	listings, err := store.Search(keyword, searchLocation, searchSource, searchLimit)
	if err != nil {
		logger.Error("search failed", "error", err)
		os.Exit(1)
	}

	if len(listings) == 0 {
		fmt.Println("No matching listings.")
		return nil
	}

	now := time.Now()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "POSTED\tTITLE\tEMPLOYER\tSALARY\tURL")
	for _, l := range listings {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			model.FormatAge(l.DatePosted, now), l.Title, l.Employer, l.Salary, l.URL)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d listing(s).\n", len(listings))
	return nil
}
