package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"jobwatch/internal/index"
	"jobwatch/internal/model"
	"jobwatch/internal/notify"
	"jobwatch/internal/reindex"
)

// Options configures the notification daemon.
type Options struct {
	IntervalHours int           // hours between slots; must divide 24
	FirstSlot     string        // "HH:MM" time of the digest slot
	NotifyDelay   time.Duration // reindex-to-notify delay within a slot
	PartGap       time.Duration // pause between parts of a multi-part send
}

// Bot owns the slot schedule and the digest/alert actions. Scheduled actions
// are serialized by a mutex: a slow reindex and its notify never overlap.
type Bot struct {
	store     *index.Store
	state     *State
	orch      *reindex.Orchestrator
	transport model.Transport
	logger    *slog.Logger
	opts      Options
	slots     []Slot

	mu  sync.Mutex
	now func() time.Time
}

// New builds a bot. It validates the slot schedule up front.
func New(store *index.Store, state *State, orch *reindex.Orchestrator, transport model.Transport, opts Options, logger *slog.Logger) (*Bot, error) {
	slots, err := ComputeSlots(opts.IntervalHours, opts.FirstSlot)
	if err != nil {
		return nil, err
	}
	return &Bot{
		store:     store,
		state:     state,
		orch:      orch,
		transport: transport,
		logger:    logger,
		opts:      opts,
		slots:     slots,
		now:       time.Now,
	}, nil
}

// Slots returns the computed daily schedule.
func (b *Bot) Slots() []Slot {
	return b.slots
}

// Run schedules all slots and blocks until ctx is cancelled. Each slot gets
// a reindex entry at its clock time and a notify entry NotifyDelay later.
// If the index is empty on startup, an initial reindex runs immediately.
func (b *Bot) Run(ctx context.Context) error {
	count, err := b.store.Count("")
	if err != nil {
		return err
	}
	if count == 0 {
		b.logger.Info("index is empty, running initial reindex")
		b.Reindex(ctx)
	}

	c := cron.New()
	for _, slot := range b.slots {
		slot := slot
		if _, err := c.AddFunc(fmt.Sprintf("%d %d * * *", slot.Minute, slot.Hour), func() {
			b.Reindex(ctx)
		}); err != nil {
			return fmt.Errorf("scheduling reindex at %s: %w", slot.Clock(), err)
		}

		nh, nm := notifyTime(slot, b.opts.NotifyDelay)
		if _, err := c.AddFunc(fmt.Sprintf("%d %d * * *", nm, nh), func() {
			if slot.Digest {
				b.Digest(ctx)
			} else {
				b.Alert(ctx)
			}
		}); err != nil {
			return fmt.Errorf("scheduling notify at %02d:%02d: %w", nh, nm, err)
		}

		kind := "alert"
		if slot.Digest {
			kind = "digest"
		}
		b.logger.Info("slot scheduled", "reindex", slot.Clock(), "notify", fmt.Sprintf("%02d:%02d", nh, nm), "kind", kind)
	}

	c.Start()
	b.logger.Info("bot running", "slots", len(b.slots))
	<-ctx.Done()
	b.logger.Info("bot shutting down")
	<-c.Stop().Done()
	return nil
}

// Reindex runs one scheduled reindex cycle.
func (b *Bot) Reindex(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	res, err := b.orch.Run(ctx)
	if err != nil {
		b.logger.Error("scheduled reindex failed", "error", err)
		return
	}
	if err := b.state.SetLastReindex(b.now()); err != nil {
		b.logger.Error("recording reindex time failed", "error", err)
	}
	b.logger.Info("scheduled reindex complete", "new", len(res.New), "indexed", res.TotalIndexed)
}

// Digest sends the daily digest. It always sends, even with zero new
// listings. On success both URL baselines advance to the full current index;
// on a failed send nothing advances, so the same new set is retried at the
// next cycle.
func (b *Bot) Digest(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	all, err := b.store.All("")
	if err != nil {
		b.logger.Error("digest: reading index failed", "error", err)
		return
	}

	baseline := b.state.MorningBaseline()
	var newListings []model.Listing
	if len(baseline) > 0 {
		newListings = subtract(all, baseline)
	} else {
		// First run: no baseline yet, treat the last 24h of postings as new.
		newListings = postedSince(all, b.now().Add(-24*time.Hour))
	}

	parts := notify.DigestMessages(newListings, len(all), b.now())
	if err := notify.SendParts(ctx, b.transport, parts, b.opts.PartGap); err != nil {
		b.logger.Error("digest send failed, baseline not advanced", "error", err)
		return
	}

	if err := b.state.AdvanceMorningBaseline(urlsOf(all), b.now()); err != nil {
		b.logger.Error("advancing digest baseline failed", "error", err)
		return
	}
	b.logger.Info("digest sent", "new", len(newListings), "parts", len(parts), "total", len(all))
}

// Alert sends an intra-day alert if any listings appeared since the last
// successful notification. With no baseline recorded yet it skips, and with
// zero new listings it sends nothing.
func (b *Bot) Alert(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	baseline := b.state.NotifyBaseline()
	if len(baseline) == 0 {
		b.logger.Info("no notification baseline yet, skipping alert")
		return
	}

	all, err := b.store.All("")
	if err != nil {
		b.logger.Error("alert: reading index failed", "error", err)
		return
	}

	newListings := subtract(all, baseline)
	if len(newListings) == 0 {
		b.logger.Info("no new listings since last notify, skipping alert")
		return
	}

	parts := notify.AlertMessages(newListings, b.now())
	if err := notify.SendParts(ctx, b.transport, parts, b.opts.PartGap); err != nil {
		b.logger.Error("alert send failed, baseline not advanced", "error", err)
		return
	}

	if err := b.state.AdvanceNotifyBaseline(urlsOf(all), b.now()); err != nil {
		b.logger.Error("advancing notify baseline failed", "error", err)
		return
	}
	b.logger.Info("alert sent", "new", len(newListings), "parts", len(parts))
}

// subtract returns the listings whose URLs are not in the baseline set,
// preserving order.
func subtract(listings []model.Listing, baseline map[string]struct{}) []model.Listing {
	var out []model.Listing
	for _, l := range listings {
		if _, ok := baseline[l.URL]; !ok {
			out = append(out, l)
		}
	}
	return out
}

// postedSince filters listings to those with a parseable posting date at or
// after the cutoff. Unparseable dates are excluded.
func postedSince(listings []model.Listing, cutoff time.Time) []model.Listing {
	var out []model.Listing
	for _, l := range listings {
		if t, ok := model.ParseDate(l.DatePosted); ok && !t.Before(cutoff) {
			out = append(out, l)
		}
	}
	return out
}

func urlsOf(listings []model.Listing) []string {
	urls := make([]string, len(listings))
	for i, l := range listings {
		urls[i] = l.URL
	}
	return urls
}
