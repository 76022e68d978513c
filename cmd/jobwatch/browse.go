package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"jobwatch/internal/browse"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse the index in an interactive terminal UI",
	RunE:  runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	store := openStore(cfg, logger)
	defer store.Close()

	listings, err := store.All("")
	if err != nil {
		logger.Error("failed to read index", "error", err)
		os.Exit(1)
	}
	if len(listings) == 0 {
		fmt.Println("The index is empty. Run `jobwatch reindex` first.")
		return nil
	}

	return browse.Run(listings)
}
