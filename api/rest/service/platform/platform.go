package platform

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/conveyor-cloud/conveyor/internal/event"
	"github.com/conveyor-cloud/conveyor/internal/metrics"
	"github.com/conveyor-cloud/conveyor/internal/models"
	"github.com/conveyor-cloud/conveyor/internal/visibility"
	"github.com/conveyor-cloud/conveyor/pkg/log"
	"gorm.io/gorm"
)

// ErrInvalidBehavior rejects configs whose behavior is neither
// ALLOWED nor BLOCKED.
var ErrInvalidBehavior = errors.New("filtered piece behavior must be ALLOWED or BLOCKED")

// Platform manages per-platform piece filtering configuration.
// Updates are whole-record replacements, so resolver reads always
// see a consistent snapshot.
type Platform interface {
	GetConfig(ctx context.Context, platformID string) (*models.PlatformPieceConfig, error)
	ReplaceConfig(ctx context.Context, req *ReplaceRequest) (*models.PlatformPieceConfig, error)
	SetPieceVisibility(ctx context.Context, req *VisibilityRequest) (*models.PlatformPieceConfig, error)
}

type platformService struct {
	db  *gorm.DB
	bus event.Bus
}

// New wires the platform service to its database and event bus.
func New(db *gorm.DB, bus event.Bus) Platform {
	return &platformService{db: db, bus: bus}
}

// GetConfig loads a platform's filter record. A platform that never
// configured filtering gets the default: BLOCKED with an empty name
// set, which restricts nothing.
func (p *platformService) GetConfig(ctx context.Context, platformID string) (*models.PlatformPieceConfig, error) {
	var cfg models.PlatformPieceConfig

	err := p.db.WithContext(ctx).First(&cfg, "platform_id = ?", platformID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cfg = models.PlatformPieceConfig{
			PlatformID:            platformID,
			FilteredPieceBehavior: models.FilteredPieceBehaviorBlocked,
		}
		if err := cfg.SetNames(nil); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ReplaceRequest is a full replacement of a platform's filter.
type ReplaceRequest struct {
	PlatformID            string
	FilteredPieceNames    []string
	FilteredPieceBehavior models.FilteredPieceBehavior
}

func (p *platformService) ReplaceConfig(ctx context.Context, req *ReplaceRequest) (*models.PlatformPieceConfig, error) {
	if !req.FilteredPieceBehavior.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBehavior, req.FilteredPieceBehavior)
	}

	// Load-or-default so a replace of an existing config keeps its
	// original creation timestamp.
	cfg, err := p.GetConfig(ctx, req.PlatformID)
	if err != nil {
		return nil, err
	}

	cfg.FilteredPieceBehavior = req.FilteredPieceBehavior
	if err := cfg.SetNames(dedupe(req.FilteredPieceNames)); err != nil {
		return nil, err
	}

	cfg.UpdatedAt = time.Now().UTC()
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = cfg.UpdatedAt
	}

	if err := p.save(ctx, cfg); err != nil {
		return nil, err
	}

	p.published(req.PlatformID)

	return cfg, nil
}

// VisibilityRequest toggles a single piece for a platform.
type VisibilityRequest struct {
	PlatformID string
	PieceName  string
	Visible    bool
}

func (p *platformService) SetPieceVisibility(ctx context.Context, req *VisibilityRequest) (*models.PlatformPieceConfig, error) {
	current, err := p.GetConfig(ctx, req.PlatformID)
	if err != nil {
		return nil, err
	}

	snapshot, err := visibility.NewConfig(current)
	if err != nil {
		return nil, err
	}

	mutated := visibility.SetVisibility(snapshot, req.PieceName, req.Visible)
	if len(mutated.Names) == len(snapshot.Names) {
		// Already in the desired state, nothing to persist.
		return current, nil
	}

	current.FilteredPieceBehavior = mutated.Behavior
	if err := current.SetNames(mutated.Names); err != nil {
		return nil, err
	}
	current.UpdatedAt = time.Now().UTC()
	if current.CreatedAt.IsZero() {
		current.CreatedAt = current.UpdatedAt
	}

	if err := p.save(ctx, current); err != nil {
		return nil, err
	}

	p.published(req.PlatformID)

	return current, nil
}

func (p *platformService) save(ctx context.Context, cfg *models.PlatformPieceConfig) error {
	return p.db.WithContext(ctx).Save(cfg).Error
}

func (p *platformService) published(platformID string) {
	metrics.VisibilityUpdatesTotal.WithLabelValues(platformID).Inc()

	log.Info("platform piece visibility updated", "platform_id", platformID)

	if p.bus != nil {
		p.bus.Publish(event.Event{
			Type:       event.TypeVisibilityUpdated,
			PlatformID: platformID,
		})
	}
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
