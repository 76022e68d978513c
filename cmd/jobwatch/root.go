package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"jobwatch/internal/config"
	"jobwatch/internal/index"
	"jobwatch/internal/model"
	"jobwatch/internal/notify"
	"jobwatch/internal/retry"
	"jobwatch/internal/source"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "jobwatch",
	Short: "UK job board watcher",
	Long: "Jobwatch scrapes NHS Jobs, DWP Find a Job, and Indeed UK into a local index,\n" +
		"detects new listings, and delivers WhatsApp digests via Twilio.",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBWATCH_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > JOBWATCH_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if env := os.Getenv("JOBWATCH_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func openStore(cfg *config.Config, logger *slog.Logger) *index.Store {
	store, err := index.Open(cfg.DBPath())
	if err != nil {
		logger.Error("failed to open index", "path", cfg.DBPath(), "error", err)
		os.Exit(1)
	}
	return store
}

func setupTransport(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Transport {
	switch cfg.Notify.Transport {
	case "twilio":
		logger.Info("using twilio whatsapp transport", "to", cfg.Notify.To)
		return notify.NewTwilioTransport(cfg.Notify.AccountSID, cfg.Notify.AuthToken,
			cfg.Notify.From, cfg.Notify.To, httpClient, logger)
	default:
		return notify.NewLogTransport(logger)
	}
}

// buildConnectors creates the enabled source connectors, each wrapped with
// retry on transient upstream failures.
func buildConnectors(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) []model.Connector {
	var connectors []model.Connector
	add := func(c model.Connector) {
		connectors = append(connectors, retry.New(c, cfg.Retry.MaxRetries, cfg.Retry.BaseDelay, logger))
		logger.Info("registered source", "name", c.Name())
	}

	if cfg.NHS.Enabled {
		add(source.NewNHS(cfg.NHS, httpClient, logger))
	}
	if cfg.DWP.Enabled {
		add(source.NewDWP(cfg.DWP, httpClient, logger))
	}
	if cfg.Indeed.Enabled {
		add(source.NewIndeed(cfg.Indeed, httpClient, logger))
	}
	return connectors
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}
