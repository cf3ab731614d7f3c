// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// sweepResult is the outcome of one container's check within a sweep.
type sweepResult struct {
	stats    Stats
	sampled  bool
	resolved bool
}

// AggregatedStatsForImage sums one stats sample per container of image
// within AggregationTimeout. Every sweep checks all unresolved containers
// concurrently and joins them before pausing SweepInterval: a running
// container with a sample resolves with its stats counted, an exited one
// resolves without contributing. Containers still unresolved at the deadline
// are left out of the result; only discovery failures and cancellation of
// ctx are returned as errors.
func (o *Orchestrator) AggregatedStatsForImage(ctx context.Context, image string) (AggregatedStats, error) {
	ids, err := o.ContainerIDsByImage(ctx, image)
	if err != nil {
		return AggregatedStats{}, err
	}

	handles := make([]*Container, len(ids))
	for i, id := range ids {
		handles[i] = o.Container(id)
	}
	results := make([]sweepResult, len(handles))

	// Checks share the deadline: a hung engine call is killed when it
	// passes, and its container stays unresolved.
	sweepCtx, cancel := context.WithTimeout(ctx, o.eng.settings.AggregationTimeout)
	defer cancel()
	deadline, _ := sweepCtx.Deadline()

	for {
		var g errgroup.Group
		for i, c := range handles {
			if results[i].resolved {
				continue
			}
			g.Go(func() error {
				s, ok, resolved := c.sampleStats(sweepCtx)
				results[i] = sweepResult{stats: s, sampled: ok, resolved: resolved}
				return nil
			})
		}
		_ = g.Wait()

		if err := ctx.Err(); err != nil {
			return AggregatedStats{}, err
		}
		if allResolved(results) {
			break
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		if err := sleepContext(sweepCtx, min(o.eng.settings.SweepInterval, remaining)); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return AggregatedStats{}, ctxErr
			}
			break
		}
	}

	var agg AggregatedStats
	for i, r := range results {
		switch {
		case r.sampled:
			agg = agg.Add(handles[i].id, r.stats)
		case r.resolved:
			agg.ContainerIDs = append(agg.ContainerIDs, handles[i].id)
		}
	}
	o.eng.settings.Logger.Debug("aggregated stats", "image", image,
		"discovered", len(handles), "reconciled", len(agg.ContainerIDs))
	return agg, nil
}

func allResolved(results []sweepResult) bool {
	for _, r := range results {
		if !r.resolved {
			return false
		}
	}
	return true
}
