package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"jobwatch/internal/bot"
	"jobwatch/internal/config"
	"jobwatch/internal/notify"
	"jobwatch/internal/reindex"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the notification daemon",
	Long: "Long-running daemon: reindexes on the configured slot schedule and sends\n" +
		"a daily digest plus intra-day alerts over the configured transport.",
	RunE: runBot,
}

var botTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a test message to verify the transport",
	RunE:  runBotTest,
}

var botDigestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Send the daily digest now",
	RunE:  runBotDigest,
}

func init() {
	rootCmd.AddCommand(botCmd)
	botCmd.AddCommand(botTestCmd)
	botCmd.AddCommand(botDigestCmd)
}

func buildBot(cfg *config.Config, withSources bool) (*bot.Bot, func(), error) {
	logger := setupLogger(debug)

	store := openStore(cfg, logger)
	state := bot.LoadState(cfg.StatePath())
	httpClient := newHTTPClient()
	transport := setupTransport(cfg, httpClient, logger)

	var orch *reindex.Orchestrator
	if withSources {
		connectors := buildConnectors(cfg, httpClient, logger)
		if len(connectors) == 0 {
			store.Close()
			return nil, nil, fmt.Errorf("no sources enabled")
		}
		orch = reindex.New(connectors, store, notify.NewQueue(cfg.QueuePath()), logger)
	}

	b, err := bot.New(store, state, orch, transport, bot.Options{
		IntervalHours: cfg.Bot.IntervalHours,
		FirstSlot:     cfg.Bot.FirstSlot,
		NotifyDelay:   cfg.Bot.NotifyDelay,
		PartGap:       cfg.Notify.PartGap,
	}, logger)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return b, func() { store.Close() }, nil
}

func runBot(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	b, cleanup, err := buildBot(cfg, true)
	if err != nil {
		logger.Error("failed to start bot", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	fmt.Printf("Bot running. Notifications → %s\n", cfg.Notify.To)
	for _, s := range b.Slots() {
		kind := "alert"
		if s.Digest {
			kind = "digest"
		}
		fmt.Printf("  %s reindex, %s %s later\n", s.Clock(), kind, cfg.Bot.NotifyDelay)
	}
	fmt.Println("  Press Ctrl+C to stop.")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return b.Run(ctx)
}

func runBotTest(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	transport := setupTransport(cfg, newHTTPClient(), logger)
	if err := transport.Send(context.Background(), notify.TestMessage(time.Now())); err != nil {
		logger.Error("test message failed", "error", err)
		os.Exit(1)
	}
	fmt.Println("Test message sent.")
	return nil
}

func runBotDigest(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	b, cleanup, err := buildBot(cfg, false)
	if err != nil {
		logger.Error("failed to prepare digest", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	b.Digest(context.Background())
	return nil
}
