package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"jobwatch/internal/notify"
)

var pendingClear bool

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Show queued notifications",
	Long: "Lists the new listings queued for notification since the last time the\n" +
		"queue was consumed. --clear drains the queue after printing.",
	RunE: runPending,
}

func init() {
	pendingCmd.Flags().BoolVar(&pendingClear, "clear", false, "drain the queue after printing")
	rootCmd.AddCommand(pendingCmd)
}

func runPending(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	queue := notify.NewQueue(cfg.QueuePath())

	var entries []notify.Entry
	if pendingClear {
		entries, err = queue.Drain()
		if err != nil {
			logger.Error("failed to drain queue", "error", err)
			os.Exit(1)
		}
	} else {
		entries = queue.Peek()
	}

	if len(entries) == 0 {
		fmt.Println("No pending notifications.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "QUEUED\tTITLE\tEMPLOYER\tSOURCE\tURL")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.Timestamp, e.Title, e.Employer, e.Source, e.URL)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if pendingClear {
		fmt.Printf("\nDrained %d pending notification(s).\n", len(entries))
	}
	return nil
}
