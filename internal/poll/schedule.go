package poll

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron"
)

// Schedule decides when a trigger's next poll tick is due. Triggers
// may carry a cron expression in their settings; the rest poll on
// the coordinator's fixed interval.
type Schedule struct {
	schedule cron.Schedule
	interval time.Duration
	location *time.Location
}

// ParseSchedule builds a trigger's schedule from its raw settings.
// Settings without an expression fall back to the supplied interval.
func ParseSchedule(settings json.RawMessage, interval time.Duration) (*Schedule, error) {
	s := &Schedule{interval: interval}

	if len(settings) == 0 {
		return s, nil
	}

	m := map[string]interface{}{}
	if err := json.Unmarshal(settings, &m); err != nil {
		return nil, fmt.Errorf("invalid trigger settings: %w", err)
	}

	expr := extractExpression(m)
	if expr == "" {
		return s, nil
	}

	loc, err := extractLocation(m)
	if err != nil {
		return nil, err
	}

	parser := cron.NewParser(
		cron.Minute |
			cron.Hour |
			cron.Dom |
			cron.Month |
			cron.Dow,
	)

	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule expression %q: %w", expr, err)
	}

	s.schedule = sched
	s.location = loc

	return s, nil
}

// Next returns the instant of the tick after now.
func (s *Schedule) Next(now time.Time) time.Time {
	if s.schedule == nil {
		return now.Add(s.interval)
	}

	if s.location != nil {
		now = now.In(s.location)
	}

	return s.schedule.Next(now)
}

func extractExpression(cfg map[string]interface{}) string {
	for _, key := range []string{"expression", "cron", "schedule"} {
		if raw, ok := cfg[key]; ok && raw != nil {
			if expr, ok := raw.(string); ok && strings.TrimSpace(expr) != "" {
				return expr
			}
		}
	}
	return ""
}

func extractLocation(cfg map[string]interface{}) (*time.Location, error) {
	raw, ok := cfg["timezone"]
	if !ok || raw == nil {
		return nil, nil
	}

	switch tz := raw.(type) {
	case string:
		if strings.TrimSpace(tz) == "" {
			return nil, nil
		}
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", tz, err)
		}
		return loc, nil
	default:
		return nil, fmt.Errorf("timezone must be a string")
	}
}
