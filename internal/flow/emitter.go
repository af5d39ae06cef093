// Package flow holds the handoff to the flow-execution collaborator.
// Conveyor does not run flows; it delivers deduplicated trigger
// events to whatever does.
package flow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/conveyor-cloud/conveyor/internal/event"
	"github.com/conveyor-cloud/conveyor/internal/piece"
	"github.com/conveyor-cloud/conveyor/pkg/log"
)

// envelope is the wire form of one delivered trigger event.
type envelope struct {
	TriggerID string          `json:"trigger_id"`
	ItemKey   string          `json:"item_key"`
	Payload   json.RawMessage `json:"payload"`
}

// HTTPEmitter POSTs each item to the flow runner's intake endpoint.
// A non-2xx response is a failed handoff; the coordinator's partial
// batch semantics take it from there.
type HTTPEmitter struct {
	url    string
	client *http.Client
	bus    event.Bus
}

// NewHTTPEmitter builds an emitter for the runner at url.
func NewHTTPEmitter(url string, timeout time.Duration, bus event.Bus) *HTTPEmitter {
	return &HTTPEmitter{
		url:    url,
		client: &http.Client{Timeout: timeout},
		bus:    bus,
	}
}

func (e *HTTPEmitter) Emit(ctx context.Context, triggerID string, item piece.PolledItem) error {
	buf, err := json.Marshal(envelope{
		TriggerID: triggerID,
		ItemKey:   item.Key,
		Payload:   item.Payload,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("flow runner returned %v", resp.StatusCode)
	}

	e.delivered(triggerID, item)

	return nil
}

// LogEmitter is the no-runner fallback: it records deliveries on the
// event bus and log only. Useful for local development and tests.
type LogEmitter struct {
	bus event.Bus
}

func NewLogEmitter(bus event.Bus) *LogEmitter {
	return &LogEmitter{bus: bus}
}

func (e *LogEmitter) Emit(ctx context.Context, triggerID string, item piece.PolledItem) error {
	log.Info("trigger item delivered", "trigger_id", triggerID, "item_key", item.Key)

	if e.bus != nil {
		e.bus.Publish(event.Event{
			Type:      event.TypeItemEmitted,
			TriggerID: triggerID,
			Payload:   item.Payload,
		})
	}

	return nil
}

func (e *HTTPEmitter) delivered(triggerID string, item piece.PolledItem) {
	if e.bus == nil {
		return
	}

	e.bus.Publish(event.Event{
		Type:      event.TypeItemEmitted,
		TriggerID: triggerID,
		Payload:   item.Payload,
	})
}
