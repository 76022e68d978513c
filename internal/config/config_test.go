package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
cache_dir: /tmp/jobwatch-test
sources:
  nhs:
    keywords:
      - physiotherapist
      - occupational therapist
    location: Leeds
    distance: "20"
  dwp:
    enabled: false
  indeed:
    keywords:
      - physiotherapist
    job_type: fulltime
notify:
  transport: log
bot:
  interval_hours: 12
  first_slot: "07:30"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.NHS.Enabled || cfg.DWP.Enabled || !cfg.Indeed.Enabled {
		t.Errorf("enabled flags = nhs:%v dwp:%v indeed:%v", cfg.NHS.Enabled, cfg.DWP.Enabled, cfg.Indeed.Enabled)
	}
	if len(cfg.NHS.Keywords) != 2 || cfg.NHS.Keywords[0] != "physiotherapist" {
		t.Errorf("NHS.Keywords = %v", cfg.NHS.Keywords)
	}
	if cfg.NHS.Location != "Leeds" || cfg.NHS.Distance != "20" {
		t.Errorf("NHS search = %+v", cfg.NHS)
	}
	if cfg.Indeed.JobType != "fulltime" {
		t.Errorf("Indeed.JobType = %q", cfg.Indeed.JobType)
	}
	if cfg.Bot.IntervalHours != 12 || cfg.Bot.FirstSlot != "07:30" {
		t.Errorf("Bot = %+v", cfg.Bot)
	}
	if cfg.DBPath() != filepath.Join("/tmp/jobwatch-test", "jobs.db") {
		t.Errorf("DBPath = %q", cfg.DBPath())
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
cache_dir: /tmp/jobwatch-test
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.NHS.BaseURL != defaultNHSBaseURL {
		t.Errorf("NHS.BaseURL = %q", cfg.NHS.BaseURL)
	}
	if cfg.DWP.Category != "12" || cfg.DWP.LocCode != "86383" {
		t.Errorf("DWP defaults = %+v", cfg.DWP)
	}
	if cfg.Notify.Transport != "log" {
		t.Errorf("Notify.Transport = %q, want log", cfg.Notify.Transport)
	}
	if cfg.Bot.IntervalHours != 8 || cfg.Bot.FirstSlot != "08:00" || cfg.Bot.NotifyDelay != 5*time.Minute {
		t.Errorf("Bot defaults = %+v", cfg.Bot)
	}
	if cfg.Retry.MaxRetries != 3 || cfg.Retry.BaseDelay != 2*time.Second {
		t.Errorf("Retry defaults = %+v", cfg.Retry)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("JOBWATCH_TEST_TOKEN", "tok-123")
	path := writeConfig(t, `
cache_dir: /tmp/jobwatch-test
notify:
  transport: twilio
  twilio_account_sid: AC0000
  twilio_auth_token: ${JOBWATCH_TEST_TOKEN}
  notify_to: "whatsapp:+447700900000"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Notify.AuthToken != "tok-123" {
		t.Errorf("AuthToken = %q, want env-expanded value", cfg.Notify.AuthToken)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil {
		t.Fatal("Load: expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "sources: [broken")
	if _, err := Load(path); err == nil {
		t.Fatal("Load: expected error for invalid YAML")
	}
}

func TestLoad_NoEnabledSources(t *testing.T) {
	path := writeConfig(t, `
cache_dir: /tmp/jobwatch-test
sources:
  nhs:
    enabled: false
  dwp:
    enabled: false
  indeed:
    enabled: false
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load: expected validation error when no source is enabled")
	}
}

func TestLoad_UnevenBotInterval(t *testing.T) {
	path := writeConfig(t, `
cache_dir: /tmp/jobwatch-test
bot:
  interval_hours: 7
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load: expected validation error for interval that does not divide 24")
	}
}

func TestLoad_TwilioRequiresCredentials(t *testing.T) {
	path := writeConfig(t, `
cache_dir: /tmp/jobwatch-test
notify:
  transport: twilio
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load: expected validation error for twilio without credentials")
	}
}

func TestLoad_UnknownTransport(t *testing.T) {
	path := writeConfig(t, `
cache_dir: /tmp/jobwatch-test
notify:
  transport: carrier-pigeon
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load: expected validation error for unknown transport")
	}
}
