// Package reindex runs one full ingest cycle across every configured source:
// purge expired listings, fetch and diff-upsert each source, and queue the
// newly appeared listings for push notification.
package reindex

import (
	"context"
	"log/slog"
	"time"

	"jobwatch/internal/index"
	"jobwatch/internal/model"
	"jobwatch/internal/notify"
)

// Result summarizes one reindex cycle.
type Result struct {
	New          []model.Listing // newly appeared listings, in source order
	TotalIndexed int             // records ingested across all sources
	Purged       int             // expired rows removed before ingest
	Failed       []string        // sources whose fetch failed this cycle
}

// Orchestrator drives the per-source fetch → diff-upsert pipeline.
type Orchestrator struct {
	sources []model.Connector
	store   *index.Store
	queue   *notify.Queue
	logger  *slog.Logger

	// pause between sources, overridable in tests
	sourceGap time.Duration
	now       func() time.Time
}

// New creates an orchestrator over the given sources. queue may be nil when
// the caller does not want new listings recorded for push delivery.
func New(sources []model.Connector, store *index.Store, queue *notify.Queue, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		sources:   sources,
		store:     store,
		queue:     queue,
		logger:    logger,
		sourceGap: time.Second,
		now:       time.Now,
	}
}

// Run executes one cycle. A fetch failure in one source is logged and skipped
// so the remaining sources still contribute; a storage failure aborts the
// cycle and is returned to the caller.
func (o *Orchestrator) Run(ctx context.Context) (Result, error) {
	var res Result

	purged, err := o.store.PurgeExpired(o.now())
	if err != nil {
		return res, err
	}
	res.Purged = purged
	if purged > 0 {
		o.logger.Info("purged expired listings", "removed", purged)
	}

	for i, src := range o.sources {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}

		listings, err := src.Fetch(ctx, 0)
		if err != nil {
			// Per-source isolation: this source contributes nothing this
			// cycle and the rest still run.
			o.logger.Error("source fetch failed", "source", src.Name(), "error", err)
			res.Failed = append(res.Failed, src.Name())
			continue
		}

		newListings, seen, total, err := o.store.IndexWithDiff(listings)
		if err != nil {
			return res, err
		}
		res.New = append(res.New, newListings...)
		res.TotalIndexed += total

		o.logger.Info("source indexed",
			"source", src.Name(),
			"indexed", total,
			"new", len(newListings),
			"seen", len(seen),
		)

		if i < len(o.sources)-1 && o.sourceGap > 0 {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(o.sourceGap):
			}
		}
	}

	if o.queue != nil && len(res.New) > 0 {
		if err := o.queue.Enqueue(res.New); err != nil {
			return res, err
		}
		o.logger.Info("queued notifications", "new", len(res.New))
	}

	return res, nil
}
