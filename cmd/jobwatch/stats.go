package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index counts per source",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	store := openStore(cfg, logger)
	defer store.Close()

	sources := []struct {
		tag   string
		label string
	}{
		{"nhs", "NHS Jobs"},
		{"dwp", "Find a Job"},
		{"indeed", "Indeed UK"},
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tLISTINGS")
	for _, s := range sources {
		n, err := store.Count(s.tag)
		if err != nil {
			logger.Error("count failed", "source", s.tag, "error", err)
			os.Exit(1)
		}
		fmt.Fprintf(w, "%s\t%d\n", s.label, n)
	}
	total, err := store.Count("")
	if err != nil {
		logger.Error("count failed", "error", err)
		os.Exit(1)
	}
	fmt.Fprintf(w, "TOTAL\t%d\n", total)
	return w.Flush()
}
