// Package throttle deduplicates owner notifications across runs.
//
// The tracker owns a persisted map of instance id -> last-notified timestamp
// (UTC). Each run loads the map once, filters the stop candidates down to the
// subset whose throttle window has elapsed, and rewrites the map wholesale.
package throttle

import (
	"context"
	"time"

	"powerctl/internal/fleet"
	logx "powerctl/pkg/logx"
)

type Tracker struct {
	store Store
	log   logx.Logger
}

func NewTracker(store Store, log logx.Logger) *Tracker {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Tracker{store: store, log: log}
}

// Filter returns the candidates that should trigger a fresh notification this
// run, in input order, and records them at runTime.
//
// A candidate is suppressed when a record younger than wait exists for its id.
// Records whose window has expired are pruned, which makes their ids eligible
// again. wait == 0 disables suppression entirely: every run re-notifies.
//
// Persistence failures never fail the run. An unreadable record set degrades
// to first-run semantics (notify everyone); a failed write means the next run
// will not see this run's updates, which is lossy but recoverable.
func (t *Tracker) Filter(ctx context.Context, candidates []fleet.Instance, runTime time.Time, wait time.Duration) []fleet.Instance {
	runTime = runTime.UTC()

	records, err := t.store.Load(ctx)
	if err != nil {
		t.log.Warn("tracking state unreadable; notifying everyone", logx.Err(err))
		records = map[string]time.Time{}
	}

	// Drop records whose throttle window has elapsed.
	pruned := make(map[string]time.Time, len(records))
	for id, ts := range records {
		if ts.Add(wait).After(runTime) {
			pruned[id] = ts
		}
	}

	notify := make([]fleet.Instance, 0, len(candidates))
	for _, inst := range candidates {
		if _, ok := pruned[inst.ID]; ok {
			t.log.Warn("will be stopped but not notified", logx.String("instance", inst.ID))
			continue
		}
		pruned[inst.ID] = runTime
		notify = append(notify, inst)
	}

	if err := t.store.Save(ctx, pruned); err != nil {
		t.log.Warn("tracking state not persisted; next run may re-notify", logx.Err(err))
	}
	return notify
}
