// Package httppoll is the built-in generic piece: it polls a JSON
// endpoint that returns an array of objects and keys each object by
// a configured field. Purpose-built pieces register alongside it;
// this one covers the long tail of plain REST sources.
package httppoll

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/conveyor-cloud/conveyor/internal/piece"
)

const (
	// Name is the piece's stable registry identifier.
	Name = "http-poll"

	// TriggerNewItems is the piece's only polling trigger.
	TriggerNewItems = "new_items"

	defaultKeyField = "timestamp"
)

type settings struct {
	URL      string            `json:"url"`
	KeyField string            `json:"key_field"`
	Headers  map[string]string `json:"headers"`
}

// New builds the piece with the given request timeout.
func New(timeout time.Duration) piece.Piece {
	t := &trigger{client: &http.Client{Timeout: timeout}}

	return piece.Static(
		piece.Descriptor{
			Name:        Name,
			DisplayName: "HTTP Poll",
			Version:     "0.1.0",
			Description: "Polls a JSON endpoint for new items",
		},
		map[string]piece.PollingTrigger{TriggerNewItems: t},
	)
}

type trigger struct {
	client *http.Client
}

func (t *trigger) OnEnable(ctx context.Context, cfg piece.TriggerConfig) (string, error) {
	if _, err := parseSettings(cfg.Settings); err != nil {
		return "", err
	}

	// No source-side resources to set up; the coordinator baselines
	// the watermark.
	return "", nil
}

func (t *trigger) OnDisable(ctx context.Context, cfg piece.TriggerConfig) error {
	return nil
}

func (t *trigger) Poll(ctx context.Context, cfg piece.TriggerConfig, watermark string) ([]piece.PolledItem, error) {
	s, err := parseSettings(cfg.Settings)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range s.Headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("source returned %v", resp.StatusCode)
	}

	var raw []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("source response is not a JSON array: %w", err)
	}

	items := make([]piece.PolledItem, 0, len(raw))
	for _, obj := range raw {
		key, err := extractKey(obj, s.KeyField)
		if err != nil {
			return nil, err
		}

		payload, err := json.Marshal(obj)
		if err != nil {
			return nil, err
		}

		items = append(items, piece.PolledItem{Key: key, Payload: payload})
	}

	return items, nil
}

func parseSettings(raw json.RawMessage) (*settings, error) {
	s := &settings{}

	if len(raw) > 0 {
		if err := json.Unmarshal(raw, s); err != nil {
			return nil, fmt.Errorf("invalid http-poll settings: %w", err)
		}
	}

	if s.URL == "" {
		return nil, fmt.Errorf("http-poll settings missing url")
	}
	if s.KeyField == "" {
		s.KeyField = defaultKeyField
	}

	return s, nil
}

func extractKey(obj map[string]interface{}, field string) (string, error) {
	raw, ok := obj[field]
	if !ok || raw == nil {
		return "", fmt.Errorf("item missing key field %q", field)
	}

	switch v := raw.(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatInt(int64(v), 10), nil
	default:
		return "", fmt.Errorf("key field %q must be a string or number", field)
	}
}
