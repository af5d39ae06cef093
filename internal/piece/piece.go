package piece

import (
	"context"
	"encoding/json"
)

// Descriptor is the registry-owned metadata for one integration
// piece. The resolver and API treat everything but Name as opaque.
type Descriptor struct {
	Name        string `json:"name" yaml:"name"`
	DisplayName string `json:"display_name" yaml:"displayName"`
	Version     string `json:"version" yaml:"version"`
	AuthType    string `json:"auth_type,omitempty" yaml:"authType,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// PolledItem is one candidate event fetched from an external source.
// Key is the ordering/deduplication key: epoch milliseconds rendered
// as a decimal string for time-based triggers, or an opaque ordered
// key for last-item triggers. Payload passes through to flow
// execution unmodified.
type PolledItem struct {
	Key     string
	Payload json.RawMessage
}

// TriggerConfig is what a piece's trigger implementation receives on
// every lifecycle call: the owning registration's identity plus its
// raw settings.
type TriggerConfig struct {
	TriggerID   string
	FlowID      string
	TriggerName string
	Settings    json.RawMessage
}

// PollingTrigger is the per-piece fetch contract the poll
// coordinator wraps with the generic dedup/ordering/commit logic.
type PollingTrigger interface {
	// OnEnable performs one-time setup and returns the initial
	// watermark, so the first poll does not replay history. An empty
	// watermark means "no baseline"; the coordinator substitutes the
	// enable time for time-based triggers and the newest existing
	// item's key, from a one-shot fetch, for last-item triggers.
	OnEnable(ctx context.Context, cfg TriggerConfig) (string, error)

	// OnDisable releases any source-side resources.
	OnDisable(ctx context.Context, cfg TriggerConfig) error

	// Poll fetches candidate items newer than the watermark. Sources
	// without a since-filter may return a bounded recent window; the
	// coordinator discards anything at or below the watermark.
	Poll(ctx context.Context, cfg TriggerConfig, watermark string) ([]PolledItem, error)
}

// Piece is one installed integration, exposing its descriptor and
// its polling triggers by name.
type Piece interface {
	Descriptor() Descriptor
	PollingTrigger(name string) (PollingTrigger, bool)
}

// Emitter hands a deduplicated item to flow execution. The
// coordinator never re-emits an item Emit accepted, but a transient
// failure before the watermark commit can cause redelivery, so
// downstream consumers must tolerate duplicates by item identity.
type Emitter interface {
	Emit(ctx context.Context, triggerID string, item PolledItem) error
}
