package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type FilteredPieceBehavior string

const (
	FilteredPieceBehaviorAllowed FilteredPieceBehavior = "ALLOWED"
	FilteredPieceBehaviorBlocked FilteredPieceBehavior = "BLOCKED"
)

// Valid reports whether the behavior is one of the two supported
// filtering modes.
func (b FilteredPieceBehavior) Valid() bool {
	return b == FilteredPieceBehaviorAllowed || b == FilteredPieceBehaviorBlocked
}

// PlatformPieceConfig is the per-platform piece filtering record.
// Updates are whole-record replacements so readers never observe a
// partially written name set.
type PlatformPieceConfig struct {
	PlatformID            string                `gorm:"primaryKey"`
	FilteredPieceNames    datatypes.JSON        `gorm:"not null"`
	FilteredPieceBehavior FilteredPieceBehavior `gorm:"not null"`
	CreatedAt             time.Time             `gorm:"not null"`
	UpdatedAt             time.Time             `gorm:"not null"`
}

// Names decodes the filtered piece name set. An empty or absent
// column decodes to an empty slice, never nil error.
func (c *PlatformPieceConfig) Names() ([]string, error) {
	if len(c.FilteredPieceNames) == 0 {
		return []string{}, nil
	}

	var names []string
	if err := json.Unmarshal(c.FilteredPieceNames, &names); err != nil {
		return nil, err
	}

	return names, nil
}

// SetNames encodes the filtered piece name set.
func (c *PlatformPieceConfig) SetNames(names []string) error {
	if names == nil {
		names = []string{}
	}

	buf, err := json.Marshal(names)
	if err != nil {
		return err
	}

	c.FilteredPieceNames = datatypes.JSON(buf)
	return nil
}

type PlatformPieceConfigs []*PlatformPieceConfig
