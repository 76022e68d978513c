package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"jobwatch/internal/lock"
	"jobwatch/internal/notify"
	"jobwatch/internal/reindex"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Fetch all sources and update the index",
	Long: "Runs one ingest cycle: purges expired listings, scrapes every enabled\n" +
		"source, upserts the results, and queues newly appeared listings for\n" +
		"notification. Safe to run from cron; concurrent runs are skipped.",
	RunE: runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	l := lock.New(lock.NewFileStorage(cfg.LockPath()), lock.DefaultTTL)
	acquired, err := l.Acquire()
	if err != nil {
		logger.Error("failed to acquire reindex lock", "error", err)
		os.Exit(1)
	}
	if !acquired {
		// Another reindex is in flight. Not an error: cron runs overlap when
		// a cycle is slow.
		fmt.Println("Another reindex is already running. Nothing to do.")
		return nil
	}
	defer func() {
		if err := l.Release(); err != nil {
			logger.Warn("failed to release reindex lock", "error", err)
		}
	}()

	store := openStore(cfg, logger)
	defer store.Close()

	httpClient := newHTTPClient()
	connectors := buildConnectors(cfg, httpClient, logger)
	if len(connectors) == 0 {
		logger.Error("no sources enabled")
		os.Exit(1)
	}

	queue := notify.NewQueue(cfg.QueuePath())
	orch := reindex.New(connectors, store, queue, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := orch.Run(ctx)
	if err != nil {
		logger.Error("reindex failed", "error", err)
		os.Exit(1)
	}

	total, _ := store.Count("")
	fmt.Printf("Reindex complete: %d fetched, %d new, %d expired removed, %d in index.\n",
		res.TotalIndexed, len(res.New), res.Purged, total)
	if len(res.Failed) > 0 {
		fmt.Printf("Failed sources: %s\n", strings.Join(res.Failed, ", "))
	}
	return nil
}
