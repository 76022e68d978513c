package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove listings whose closing date has passed",
	RunE:  runPurge,
}

func init() {
	rootCmd.AddCommand(purgeCmd)
}

func runPurge(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	store := openStore(cfg, logger)
	defer store.Close()

	removed, err := store.PurgeExpired(time.Now())
	if err != nil {
		logger.Error("purge failed", "error", err)
		os.Exit(1)
	}

	total, _ := store.Count("")
	fmt.Printf("Removed %d expired listing(s). %d remain in the index.\n", removed, total)
	return nil
}
