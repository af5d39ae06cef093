package models

import (
	"time"

	"gorm.io/datatypes"
)

type PollingStrategy string

const (
	PollingStrategyTimeBased PollingStrategy = "TIMEBASED"
	PollingStrategyLastItem  PollingStrategy = "LAST_ITEM"
)

// Valid reports whether the strategy is one of the supported
// deduplication modes.
func (s PollingStrategy) Valid() bool {
	return s == PollingStrategyTimeBased || s == PollingStrategyLastItem
}

// TriggerRegistration is the durable record for one polling trigger
// of one flow. The watermark is the highest item key already handed
// off to flow execution; it never moves backward and survives
// disable/re-enable so old items are not replayed.
type TriggerRegistration struct {
	ID              string          `gorm:"type:uuid;primaryKey"`
	FlowID          string          `gorm:"index;not null"`
	PlatformID      string          `gorm:"index;not null"`
	PieceName       string          `gorm:"index;not null"`
	TriggerName     string          `gorm:"not null"`
	PollingStrategy PollingStrategy `gorm:"not null"`
	Watermark       string
	Enabled         bool           `gorm:"index;not null"`
	FailureCount    int            `gorm:"not null;default:0"`
	Settings        datatypes.JSON
	CreatedAt       time.Time      `gorm:"not null"`
	UpdatedAt       time.Time      `gorm:"not null"`
}

type TriggerRegistrations []*TriggerRegistration
