package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for jobwatch.
type Config struct {
	CacheDir string
	Verbose  bool
	NHS      NHSSearch
	DWP      DWPSearch
	Indeed   IndeedSearch
	Notify   NotifyConfig
	Bot      BotConfig
	Retry    RetryConfig
}

// NHSSearch holds the NHS Jobs query parameters.
type NHSSearch struct {
	Enabled        bool
	BaseURL        string
	Keywords       []string
	Location       string
	Distance       string
	ContractType   string
	WorkingPattern string
	StaffGroup     string
	Pages          int // 0 = auto-detect and fetch all pages
}

// DWPSearch holds the DWP Find a Job query parameters.
type DWPSearch struct {
	Enabled      bool
	BaseURL      string
	Keywords     []string
	Location     string
	Category     string // DWP category id, "12" is Healthcare & Nursing
	LocCode      string // DWP location code, "86383" is UK-wide
	ContractType string
	Hours        string
	PostingDays  string
	Remote       string
	Pages        int
}

// IndeedSearch holds the Indeed UK query parameters.
type IndeedSearch struct {
	Enabled    bool
	BaseURL    string
	Keywords   []string
	Location   string
	Radius     string // miles from location
	JobType    string // fulltime / parttime / contract / temporary
	MaxDaysOld string // 1, 3, 7, 14
	Pages      int
}

// NotifyConfig controls which transport is used and its settings.
type NotifyConfig struct {
	Transport  string        // "log" or "twilio"
	AccountSID string        // expanded from env var by Load
	AuthToken  string        // expanded from env var by Load
	From       string        // e.g. "whatsapp:+14155238886"
	To         string        // e.g. "whatsapp:+447xxxxxxxxx"
	PartGap    time.Duration // pause between parts of a multi-part message
}

// BotConfig controls the notification daemon's slot schedule.
type BotConfig struct {
	IntervalHours int           // hours between slots; must divide 24
	FirstSlot     string        // "HH:MM" time of the daily digest slot
	NotifyDelay   time.Duration // reindex-to-notify delay within a slot
}

// RetryConfig controls the connector retry decorator.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
}

const (
	defaultNHSBaseURL    = "https://www.jobs.nhs.uk/candidate/search/results"
	defaultDWPBaseURL    = "https://findajob.dwp.gov.uk/search"
	defaultIndeedBaseURL = "https://uk.indeed.com/jobs"
)

// rawConfig is used for YAML unmarshaling (snake_case fields and durations as strings).
type rawConfig struct {
	CacheDir string          `yaml:"cache_dir"`
	Verbose  bool            `yaml:"verbose"`
	Sources  rawSources      `yaml:"sources"`
	Notify   rawNotifyConfig `yaml:"notify"`
	Bot      rawBotConfig    `yaml:"bot"`
	Retry    rawRetryConfig  `yaml:"retry"`
}

type rawSources struct {
	NHS    rawNHSSearch    `yaml:"nhs"`
	DWP    rawDWPSearch    `yaml:"dwp"`
	Indeed rawIndeedSearch `yaml:"indeed"`
}

type rawNHSSearch struct {
	Enabled        *bool    `yaml:"enabled"`
	BaseURL        string   `yaml:"base_url"`
	Keywords       []string `yaml:"keywords"`
	Location       string   `yaml:"location"`
	Distance       string   `yaml:"distance"`
	ContractType   string   `yaml:"contract_type"`
	WorkingPattern string   `yaml:"working_pattern"`
	StaffGroup     string   `yaml:"staff_group"`
	Pages          int      `yaml:"pages"`
}

type rawDWPSearch struct {
	Enabled      *bool    `yaml:"enabled"`
	BaseURL      string   `yaml:"base_url"`
	Keywords     []string `yaml:"keywords"`
	Location     string   `yaml:"location"`
	Category     string   `yaml:"category"`
	LocCode      string   `yaml:"loc_code"`
	ContractType string   `yaml:"contract_type"`
	Hours        string   `yaml:"hours"`
	PostingDays  string   `yaml:"posting_days"`
	Remote       string   `yaml:"remote"`
	Pages        int      `yaml:"pages"`
}

type rawIndeedSearch struct {
	Enabled    *bool    `yaml:"enabled"`
	BaseURL    string   `yaml:"base_url"`
	Keywords   []string `yaml:"keywords"`
	Location   string   `yaml:"location"`
	Radius     string   `yaml:"radius"`
	JobType    string   `yaml:"job_type"`
	MaxDaysOld string   `yaml:"max_days_old"`
	Pages      int      `yaml:"pages"`
}

type rawNotifyConfig struct {
	Transport  string `yaml:"transport"`
	AccountSID string `yaml:"twilio_account_sid"`
	AuthToken  string `yaml:"twilio_auth_token"`
	From       string `yaml:"twilio_from"`
	To         string `yaml:"notify_to"`
	PartGap    string `yaml:"part_gap"`
}

type rawBotConfig struct {
	IntervalHours      int    `yaml:"interval_hours"`
	FirstSlot          string `yaml:"first_slot"`
	NotifyDelayMinutes int    `yaml:"notify_delay_minutes"`
}

type rawRetryConfig struct {
	MaxRetries int    `yaml:"max_retries"`
	BaseDelay  string `yaml:"base_delay"`
}

// Load reads and parses the YAML config file at path, validates it, and
// returns Config. A .env file next to the working directory is loaded first
// so ${TWILIO_AUTH_TOKEN}-style references in the YAML resolve.
func Load(path string) (*Config, error) {
	// Missing .env is fine; secrets may come from the real environment.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cacheDir := raw.CacheDir
	if cacheDir == "" {
		cacheDir = "~/.cache/jobwatch"
	}
	cacheDir, err = expandHome(cacheDir)
	if err != nil {
		return nil, fmt.Errorf("resolve cache_dir: %w", err)
	}

	partGap := 1 * time.Second // default
	if raw.Notify.PartGap != "" {
		partGap, err = time.ParseDuration(raw.Notify.PartGap)
		if err != nil {
			return nil, fmt.Errorf("parse notify.part_gap %q: %w", raw.Notify.PartGap, err)
		}
	}

	baseDelay := 2 * time.Second // default
	if raw.Retry.BaseDelay != "" {
		baseDelay, err = time.ParseDuration(raw.Retry.BaseDelay)
		if err != nil {
			return nil, fmt.Errorf("parse retry.base_delay %q: %w", raw.Retry.BaseDelay, err)
		}
	}

	maxRetries := raw.Retry.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}

	transport := raw.Notify.Transport
	if transport == "" {
		transport = "log"
	}

	intervalHours := raw.Bot.IntervalHours
	if intervalHours == 0 {
		intervalHours = 8
	}
	firstSlot := raw.Bot.FirstSlot
	if firstSlot == "" {
		firstSlot = "08:00"
	}
	notifyDelayMinutes := raw.Bot.NotifyDelayMinutes
	if notifyDelayMinutes == 0 {
		notifyDelayMinutes = 5
	}

	cfg := &Config{
		CacheDir: cacheDir,
		Verbose:  raw.Verbose,
		NHS: NHSSearch{
			Enabled:        enabled(raw.Sources.NHS.Enabled),
			BaseURL:        orDefault(raw.Sources.NHS.BaseURL, defaultNHSBaseURL),
			Keywords:       raw.Sources.NHS.Keywords,
			Location:       raw.Sources.NHS.Location,
			Distance:       raw.Sources.NHS.Distance,
			ContractType:   raw.Sources.NHS.ContractType,
			WorkingPattern: raw.Sources.NHS.WorkingPattern,
			StaffGroup:     raw.Sources.NHS.StaffGroup,
			Pages:          raw.Sources.NHS.Pages,
		},
		DWP: DWPSearch{
			Enabled:      enabled(raw.Sources.DWP.Enabled),
			BaseURL:      orDefault(raw.Sources.DWP.BaseURL, defaultDWPBaseURL),
			Keywords:     raw.Sources.DWP.Keywords,
			Location:     raw.Sources.DWP.Location,
			Category:     orDefault(raw.Sources.DWP.Category, "12"),
			LocCode:      orDefault(raw.Sources.DWP.LocCode, "86383"),
			ContractType: raw.Sources.DWP.ContractType,
			Hours:        raw.Sources.DWP.Hours,
			PostingDays:  raw.Sources.DWP.PostingDays,
			Remote:       raw.Sources.DWP.Remote,
			Pages:        raw.Sources.DWP.Pages,
		},
		Indeed: IndeedSearch{
			Enabled:    enabled(raw.Sources.Indeed.Enabled),
			BaseURL:    orDefault(raw.Sources.Indeed.BaseURL, defaultIndeedBaseURL),
			Keywords:   raw.Sources.Indeed.Keywords,
			Location:   raw.Sources.Indeed.Location,
			Radius:     raw.Sources.Indeed.Radius,
			JobType:    raw.Sources.Indeed.JobType,
			MaxDaysOld: raw.Sources.Indeed.MaxDaysOld,
			Pages:      raw.Sources.Indeed.Pages,
		},
		Notify: NotifyConfig{
			Transport:  transport,
			AccountSID: raw.Notify.AccountSID,
			AuthToken:  raw.Notify.AuthToken,
			From:       orDefault(raw.Notify.From, "whatsapp:+14155238886"),
			To:         raw.Notify.To,
			PartGap:    partGap,
		},
		Bot: BotConfig{
			IntervalHours: intervalHours,
			FirstSlot:     firstSlot,
			NotifyDelay:   time.Duration(notifyDelayMinutes) * time.Minute,
		},
		Retry: RetryConfig{
			MaxRetries: maxRetries,
			BaseDelay:  baseDelay,
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DBPath returns the sqlite index file path.
func (c *Config) DBPath() string {
	return filepath.Join(c.CacheDir, "jobs.db")
}

// QueuePath returns the pending-notification queue file path.
func (c *Config) QueuePath() string {
	return filepath.Join(c.CacheDir, "new_jobs.json")
}

// StatePath returns the bot state file path.
func (c *Config) StatePath() string {
	return filepath.Join(c.CacheDir, "bot_state.json")
}

// LockPath returns the reindex advisory lock file path.
func (c *Config) LockPath() string {
	return filepath.Join(c.CacheDir, "reindex.lock")
}

func validate(cfg *Config) error {
	if !cfg.NHS.Enabled && !cfg.DWP.Enabled && !cfg.Indeed.Enabled {
		return fmt.Errorf("at least one source must be enabled")
	}

	if cfg.Bot.IntervalHours <= 0 || 24%cfg.Bot.IntervalHours != 0 {
		return fmt.Errorf("bot.interval_hours must divide 24 evenly, got %d", cfg.Bot.IntervalHours)
	}
	if _, err := time.Parse("15:04", cfg.Bot.FirstSlot); err != nil {
		return fmt.Errorf("bot.first_slot must be HH:MM, got %q", cfg.Bot.FirstSlot)
	}

	switch cfg.Notify.Transport {
	case "log":
	case "twilio":
		if cfg.Notify.AccountSID == "" || cfg.Notify.AuthToken == "" {
			return fmt.Errorf("notify.twilio_account_sid and notify.twilio_auth_token are required when transport is \"twilio\"")
		}
		if cfg.Notify.To == "" {
			return fmt.Errorf("notify.notify_to is required when transport is \"twilio\"")
		}
	default:
		return fmt.Errorf("notify.transport must be \"log\" or \"twilio\", got %q", cfg.Notify.Transport)
	}

	return nil
}

// expandHome resolves a leading ~ against the current user's home directory.
func expandHome(p string) (string, error) {
	if p == "~" || len(p) >= 2 && p[0] == '~' && p[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, p[1:]), nil
	}
	return p, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// enabled treats an absent enabled key as true, so a bare source section
// (or no section at all) still polls.
func enabled(v *bool) bool {
	return v == nil || *v
}
