// Package bot is the push-notification daemon: it reindexes on a daily slot
// schedule and sends digest/alert messages over the configured transport.
//
// The daemon's "new since last notify" baseline is deliberately separate
// from the index engine's per-reindex NEW/SEEN classification: the engine
// feeds the pending queue every cycle, the baseline here governs what has
// actually been announced to the recipient.
package bot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// State is the daemon's persistent notification bookkeeping. Every setter
// writes the file immediately; last writer wins. Only one bot process is
// expected to run at a time.
type State struct {
	path string
	data stateData
}

type stateData struct {
	LastMorningNotify string   `json:"last_morning_notify"`
	LastDigestNotify  string   `json:"last_digest_notify"`
	LastReindex       string   `json:"last_reindex"`
	MorningJobURLs    []string `json:"morning_job_urls"`
	LastNotifyURLs    []string `json:"last_notify_urls"`
}

// LoadState reads the state file at path. A missing or corrupt file yields
// empty defaults rather than an error.
func LoadState(path string) *State {
	s := &State{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	if err := json.Unmarshal(data, &s.data); err != nil {
		s.data = stateData{}
	}
	return s
}

// MorningBaseline returns the URL set recorded at the last digest send.
func (s *State) MorningBaseline() map[string]struct{} {
	return toSet(s.data.MorningJobURLs)
}

// NotifyBaseline returns the URL set recorded at the last successful send of
// any kind.
func (s *State) NotifyBaseline() map[string]struct{} {
	return toSet(s.data.LastNotifyURLs)
}

// LastReindex returns the recorded end time of the last reindex, if any.
func (s *State) LastReindex() (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, s.data.LastReindex)
	return t, err == nil
}

// SetLastReindex records a completed reindex and persists.
func (s *State) SetLastReindex(t time.Time) error {
	s.data.LastReindex = t.Format(time.RFC3339)
	return s.save()
}

// AdvanceNotifyBaseline records a successful alert send: the given URLs
// become the comparison point for the next cycle.
func (s *State) AdvanceNotifyBaseline(urls []string, t time.Time) error {
	s.data.LastNotifyURLs = urls
	s.data.LastDigestNotify = t.Format(time.RFC3339)
	return s.save()
}

// AdvanceMorningBaseline records a successful digest send: both baselines
// move to the given URL set.
func (s *State) AdvanceMorningBaseline(urls []string, t time.Time) error {
	s.data.MorningJobURLs = urls
	s.data.LastNotifyURLs = urls
	s.data.LastMorningNotify = t.Format(time.RFC3339)
	s.data.LastDigestNotify = t.Format(time.RFC3339)
	return s.save()
}

func (s *State) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	return nil
}

func toSet(urls []string) map[string]struct{} {
	set := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		set[u] = struct{}{}
	}
	return set
}
