package event

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Type represents the type of event.
type Type string

const (
	TypeTriggerEnabled    Type = "trigger_enabled"
	TypeTriggerDisabled   Type = "trigger_disabled"
	TypePollSucceeded     Type = "poll_succeeded"
	TypePollFailed        Type = "poll_failed"
	TypeTriggerDegraded   Type = "trigger_degraded"
	TypeItemEmitted       Type = "item_emitted"
	TypeVisibilityUpdated Type = "visibility_updated"
)

// Event represents a system event.
type Event struct {
	Type       Type            `json:"type"`
	TriggerID  string          `json:"trigger_id,omitempty"`
	PlatformID string          `json:"platform_id,omitempty"`
	PieceName  string          `json:"piece_name,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// Filter defines criteria for receiving events.
type Filter struct {
	TriggerID  string
	PlatformID string
	Types      []Type
}

// Bus defines the event bus interface.
type Bus interface {
	Publish(e Event)
	Subscribe(ctx context.Context, filter Filter) (<-chan Event, error)
}

type bus struct {
	subscribers map[chan Event]Filter
	mu          sync.RWMutex
}

// New creates a new event bus.
func New() Bus {
	return &bus{
		subscribers: make(map[chan Event]Filter),
	}
}

func (b *bus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch, filter := range b.subscribers {
		if b.matches(filter, e) {
			select {
			case ch <- e:
			default:
				// Drop event if channel is full to prevent blocking
			}
		}
	}
}

func (b *bus) Subscribe(ctx context.Context, filter Filter) (<-chan Event, error) {
	ch := make(chan Event, 100)

	b.mu.Lock()
	b.subscribers[ch] = filter
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subscribers, ch)
		close(ch)
		b.mu.Unlock()
	}()

	return ch, nil
}

func (b *bus) matches(filter Filter, e Event) bool {
	if filter.TriggerID != "" && filter.TriggerID != e.TriggerID {
		return false
	}
	if filter.PlatformID != "" && filter.PlatformID != e.PlatformID {
		return false
	}
	if len(filter.Types) > 0 {
		found := false
		for _, t := range filter.Types {
			if t == e.Type {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
