package poll

import "fmt"

// FetchError wraps a transient external-source failure. The
// watermark is untouched and the next scheduled tick retries from
// the same position.
type FetchError struct {
	TriggerID string
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed for trigger %s: %v", e.TriggerID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// EmitError reports a failed flow-execution handoff mid-batch. The
// watermark advances only to the last item confirmed before the
// failure; the remainder is re-attempted next tick.
type EmitError struct {
	TriggerID string
	ItemKey   string
	Err       error
}

func (e *EmitError) Error() string {
	return fmt.Sprintf("emit failed for trigger %s at item %s: %v", e.TriggerID, e.ItemKey, e.Err)
}

func (e *EmitError) Unwrap() error { return e.Err }

// WatermarkError is fatal for the poll cycle: without a durable
// watermark commit no further items may be emitted, or a restart
// could silently duplicate or lose deliveries.
type WatermarkError struct {
	TriggerID string
	Err       error
}

func (e *WatermarkError) Error() string {
	return fmt.Sprintf("watermark commit failed for trigger %s: %v", e.TriggerID, e.Err)
}

func (e *WatermarkError) Unwrap() error { return e.Err }
