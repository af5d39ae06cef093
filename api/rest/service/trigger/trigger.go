package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/conveyor-cloud/conveyor/internal/models"
	"github.com/conveyor-cloud/conveyor/internal/piece"
	"github.com/conveyor-cloud/conveyor/internal/poll"
	"github.com/conveyor-cloud/conveyor/pkg/log"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned for unknown trigger registrations.
	ErrNotFound = errors.New("trigger registration not found")

	// ErrInvalidStrategy rejects registrations with an unsupported
	// polling strategy.
	ErrInvalidStrategy = errors.New("polling strategy must be TIMEBASED or LAST_ITEM")
)

// Trigger manages polling-trigger registrations and their lifecycle.
type Trigger interface {
	List(ctx context.Context, req *ListRequest) (models.TriggerRegistrations, error)
	Get(ctx context.Context, id uuid.UUID) (*models.TriggerRegistration, error)
	Create(ctx context.Context, req *CreateRequest) (*models.TriggerRegistration, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Enable(ctx context.Context, id uuid.UUID) error
	Disable(ctx context.Context, id uuid.UUID) error
	Status(ctx context.Context, id uuid.UUID) (*poll.Status, error)
}

type triggerService struct {
	db          *gorm.DB
	registry    *piece.Registry
	coordinator *poll.Coordinator
}

// New wires the trigger service to its database, the piece registry,
// and the poll coordinator.
func New(db *gorm.DB, registry *piece.Registry, coordinator *poll.Coordinator) Trigger {
	return &triggerService{db: db, registry: registry, coordinator: coordinator}
}

// ListRequest filters and paginates trigger listings.
type ListRequest struct {
	FlowID     string
	PlatformID string
	PieceName  string
	Enabled    *bool
	Limit      int
	Offset     int
}

func (t *triggerService) List(ctx context.Context, req *ListRequest) (models.TriggerRegistrations, error) {
	q := t.db.WithContext(ctx).Model(&models.TriggerRegistration{})

	if req.FlowID != "" {
		q = q.Where("flow_id = ?", req.FlowID)
	}
	if req.PlatformID != "" {
		q = q.Where("platform_id = ?", req.PlatformID)
	}
	if req.PieceName != "" {
		q = q.Where("piece_name = ?", req.PieceName)
	}
	if req.Enabled != nil {
		q = q.Where("enabled = ?", *req.Enabled)
	}
	if req.Limit > 0 {
		q = q.Limit(req.Limit)
	}
	if req.Offset > 0 {
		q = q.Offset(req.Offset)
	}

	var regs models.TriggerRegistrations
	if err := q.Order("created_at").Find(&regs).Error; err != nil {
		return nil, err
	}

	return regs, nil
}

func (t *triggerService) Get(ctx context.Context, id uuid.UUID) (*models.TriggerRegistration, error) {
	var reg models.TriggerRegistration

	err := t.db.WithContext(ctx).First(&reg, "id = ?", id.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	return &reg, nil
}

// CreateRequest registers a polling trigger for a flow. The trigger
// starts disabled; Enable schedules it.
type CreateRequest struct {
	FlowID          string                 `json:"flow_id"`
	PlatformID      string                 `json:"platform_id"`
	PieceName       string                 `json:"piece_name"`
	TriggerName     string                 `json:"trigger_name"`
	PollingStrategy string                 `json:"polling_strategy"`
	Settings        map[string]interface{} `json:"settings"`
}

func (t *triggerService) Create(ctx context.Context, req *CreateRequest) (*models.TriggerRegistration, error) {
	strategy := models.PollingStrategy(req.PollingStrategy)
	if !strategy.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStrategy, req.PollingStrategy)
	}

	if _, err := t.registry.Trigger(req.PieceName, req.TriggerName); err != nil {
		return nil, err
	}

	settings, err := json.Marshal(req.Settings)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	reg := &models.TriggerRegistration{
		ID:              uuid.NewString(),
		FlowID:          req.FlowID,
		PlatformID:      req.PlatformID,
		PieceName:       req.PieceName,
		TriggerName:     req.TriggerName,
		PollingStrategy: strategy,
		Settings:        datatypes.JSON(settings),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := t.db.WithContext(ctx).Create(reg).Error; err != nil {
		log.Error("create trigger failure", "error", err)
		return nil, err
	}

	return reg, nil
}

func (t *triggerService) Delete(ctx context.Context, id uuid.UUID) error {
	reg, err := t.Get(ctx, id)
	if err != nil {
		return err
	}

	if reg.Enabled {
		if err := t.coordinator.Disable(ctx, reg.ID); err != nil {
			return err
		}
	}

	return t.db.WithContext(ctx).Delete(&models.TriggerRegistration{}, "id = ?", reg.ID).Error
}

func (t *triggerService) Enable(ctx context.Context, id uuid.UUID) error {
	if _, err := t.Get(ctx, id); err != nil {
		return err
	}

	return t.coordinator.Enable(ctx, id.String())
}

func (t *triggerService) Disable(ctx context.Context, id uuid.UUID) error {
	if _, err := t.Get(ctx, id); err != nil {
		return err
	}

	return t.coordinator.Disable(ctx, id.String())
}

func (t *triggerService) Status(ctx context.Context, id uuid.UUID) (*poll.Status, error) {
	return t.coordinator.Status(ctx, id.String())
}
