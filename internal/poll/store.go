package poll

import (
	"context"
	"errors"
	"fmt"

	"github.com/conveyor-cloud/conveyor/internal/models"
	"gorm.io/gorm"
)

// ErrTriggerNotFound is returned for operations on unknown
// registrations.
var ErrTriggerNotFound = errors.New("trigger registration not found")

// Store is the coordinator's durable view of trigger registrations.
// The watermark column is owned exclusively by the coordinator; all
// writes go through a read-modify-write transaction so a commit
// never races a concurrent enable/disable into a lost update.
type Store interface {
	Get(ctx context.Context, id string) (*models.TriggerRegistration, error)
	Enabled(ctx context.Context) (models.TriggerRegistrations, error)

	// SetEnabled flips the enabled flag. When enabling with a
	// non-empty initial watermark, the watermark is written only if
	// the registration has none yet: a re-enable preserves the old
	// position so history is not replayed.
	SetEnabled(ctx context.Context, id string, enabled bool, initialWatermark string) error

	// CommitWatermark advances the watermark to key if key is ahead
	// of the stored value, and resets the failure count. Commits for
	// a registration disabled mid-poll still land.
	CommitWatermark(ctx context.Context, id, key string) error

	// RecordFailure increments and returns the consecutive failure
	// count.
	RecordFailure(ctx context.Context, id string) (int, error)

	// ClearFailures zeroes the consecutive failure count after a
	// successful cycle that had nothing to commit.
	ClearFailures(ctx context.Context, id string) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore wraps a gorm connection in the coordinator's Store
// contract.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Get(ctx context.Context, id string) (*models.TriggerRegistration, error) {
	var reg models.TriggerRegistration

	err := s.db.WithContext(ctx).First(&reg, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTriggerNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	return &reg, nil
}

func (s *gormStore) Enabled(ctx context.Context) (models.TriggerRegistrations, error) {
	var regs models.TriggerRegistrations

	if err := s.db.WithContext(ctx).Where("enabled = ?", true).Find(&regs).Error; err != nil {
		return nil, err
	}

	return regs, nil
}

func (s *gormStore) SetEnabled(ctx context.Context, id string, enabled bool, initialWatermark string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reg, err := lockRegistration(tx, id)
		if err != nil {
			return err
		}

		reg.Enabled = enabled
		if enabled && reg.Watermark == "" && initialWatermark != "" {
			reg.Watermark = initialWatermark
		}
		if enabled {
			reg.FailureCount = 0
		}

		return tx.Save(reg).Error
	})
}

func (s *gormStore) CommitWatermark(ctx context.Context, id, key string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reg, err := lockRegistration(tx, id)
		if err != nil {
			return err
		}

		// Monotonic guard: never move backward.
		reg.Watermark = MaxKey(reg.Watermark, key)
		reg.FailureCount = 0

		return tx.Save(reg).Error
	})
}

func (s *gormStore) RecordFailure(ctx context.Context, id string) (int, error) {
	var count int

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reg, err := lockRegistration(tx, id)
		if err != nil {
			return err
		}

		reg.FailureCount++
		count = reg.FailureCount

		return tx.Save(reg).Error
	})

	return count, err
}

func (s *gormStore) ClearFailures(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).
		Model(&models.TriggerRegistration{}).
		Where("id = ?", id).
		Update("failure_count", 0).Error
}

// lockRegistration reads the row inside tx for a read-modify-write.
// The coordinator serializes polls per trigger, so within one
// registration the only competing writer is an enable/disable, which
// also runs through a transaction here.
func lockRegistration(tx *gorm.DB, id string) (*models.TriggerRegistration, error) {
	var reg models.TriggerRegistration

	err := tx.First(&reg, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTriggerNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	return &reg, nil
}
