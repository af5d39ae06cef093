package poll

import (
	"context"
	"sort"

	"github.com/conveyor-cloud/conveyor/internal/piece"
)

// BatchResult summarizes one poll cycle.
type BatchResult struct {
	Fetched  int
	Emitted  int
	// LastKey is the key of the last item confirmed by the emitter,
	// empty when nothing new was emitted.
	LastKey string
}

// RunBatch executes one poll cycle for a registration: fetch, drop
// everything at or below the watermark, sort ascending by key, emit
// in order, and commit the watermark past the confirmed deliveries.
//
// On a mid-batch emit failure the watermark still advances to the
// last confirmed item before the error is returned, so the next tick
// resumes from the failure point rather than replaying the whole
// batch. Across retries this gives at-least-once delivery; the
// watermark never reflects an unconfirmed emission.
func RunBatch(
	ctx context.Context,
	store Store,
	trig piece.PollingTrigger,
	emitter piece.Emitter,
	cfg piece.TriggerConfig,
	watermark string,
) (BatchResult, error) {
	var res BatchResult

	items, err := trig.Poll(ctx, cfg, watermark)
	if err != nil {
		return res, &FetchError{TriggerID: cfg.TriggerID, Err: err}
	}

	res.Fetched = len(items)

	fresh := make([]piece.PolledItem, 0, len(items))
	for _, item := range items {
		if CompareKeys(item.Key, watermark) > 0 {
			fresh = append(fresh, item)
		}
	}

	if len(fresh) == 0 {
		return res, nil
	}

	// Ties keep their fetch order.
	sort.SliceStable(fresh, func(i, j int) bool {
		return CompareKeys(fresh[i].Key, fresh[j].Key) < 0
	})

	for _, item := range fresh {
		if err := emitter.Emit(ctx, cfg.TriggerID, item); err != nil {
			emitErr := &EmitError{TriggerID: cfg.TriggerID, ItemKey: item.Key, Err: err}

			if res.LastKey != "" {
				if cerr := store.CommitWatermark(ctx, cfg.TriggerID, res.LastKey); cerr != nil {
					return res, &WatermarkError{TriggerID: cfg.TriggerID, Err: cerr}
				}
			}

			return res, emitErr
		}

		res.Emitted++
		res.LastKey = item.Key
	}

	if err := store.CommitWatermark(ctx, cfg.TriggerID, res.LastKey); err != nil {
		return res, &WatermarkError{TriggerID: cfg.TriggerID, Err: err}
	}

	return res, nil
}
