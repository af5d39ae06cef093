package piece

import (
	"context"

	platformsvc "github.com/conveyor-cloud/conveyor/api/rest/service/platform"
	"github.com/conveyor-cloud/conveyor/internal/piece"
	"github.com/conveyor-cloud/conveyor/internal/visibility"
)

// Piece lists installed pieces through the platform's visibility
// filter.
type Piece interface {
	ListVisible(ctx context.Context, platformID string) ([]piece.Descriptor, error)
	IsVisible(ctx context.Context, platformID, pieceName string) (bool, error)
}

type pieceService struct {
	registry  *piece.Registry
	platforms platformsvc.Platform
}

// New wires the piece service to the installed-piece registry and
// the platform config service.
func New(registry *piece.Registry, platforms platformsvc.Platform) Piece {
	return &pieceService{registry: registry, platforms: platforms}
}

func (s *pieceService) ListVisible(ctx context.Context, platformID string) ([]piece.Descriptor, error) {
	cfg, err := s.snapshot(ctx, platformID)
	if err != nil {
		return nil, err
	}

	return visibility.Resolve(cfg, s.registry.Descriptors()), nil
}

func (s *pieceService) IsVisible(ctx context.Context, platformID, pieceName string) (bool, error) {
	cfg, err := s.snapshot(ctx, platformID)
	if err != nil {
		return false, err
	}

	return visibility.IsVisible(cfg, pieceName), nil
}

func (s *pieceService) snapshot(ctx context.Context, platformID string) (visibility.Config, error) {
	record, err := s.platforms.GetConfig(ctx, platformID)
	if err != nil {
		return visibility.Config{}, err
	}

	return visibility.NewConfig(record)
}
