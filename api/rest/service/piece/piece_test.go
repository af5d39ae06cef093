package piece

import (
	"context"
	"testing"

	platformsvc "github.com/conveyor-cloud/conveyor/api/rest/service/platform"
	"github.com/conveyor-cloud/conveyor/internal/models"
	"github.com/conveyor-cloud/conveyor/internal/piece"
	"github.com/conveyor-cloud/conveyor/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type PieceTestSuite struct {
	suite.Suite
	db        *gorm.DB
	platforms platformsvc.Platform
	svc       Piece
}

func (s *PieceTestSuite) SetupTest() {
	s.db = testutil.OpenTestDB(s.T())
	s.platforms = platformsvc.New(s.db, nil)

	registry := piece.NewRegistry()
	for _, name := range []string{"slack", "sheets", "gmail"} {
		assert.Nil(s.T(), registry.Register(piece.Static(piece.Descriptor{Name: name}, nil)))
	}

	s.svc = New(registry, s.platforms)
}

func (s *PieceTestSuite) TearDownTest() {
	testutil.CloseDB(s.db)
}

func (s *PieceTestSuite) TestListVisibleUnconfiguredPlatformSeesAll() {
	visible, err := s.svc.ListVisible(context.Background(), "p1")
	assert.Nil(s.T(), err)
	assert.Len(s.T(), visible, 3)
}

func (s *PieceTestSuite) TestListVisibleAppliesBlockList() {
	_, err := s.platforms.ReplaceConfig(context.Background(), &platformsvc.ReplaceRequest{
		PlatformID:            "p1",
		FilteredPieceNames:    []string{"slack", "sheets"},
		FilteredPieceBehavior: models.FilteredPieceBehaviorBlocked,
	})
	assert.Nil(s.T(), err)

	visible, err := s.svc.ListVisible(context.Background(), "p1")
	assert.Nil(s.T(), err)
	assert.Len(s.T(), visible, 1)
	assert.Equal(s.T(), "gmail", visible[0].Name)
}

func (s *PieceTestSuite) TestListVisibleAppliesAllowList() {
	_, err := s.platforms.ReplaceConfig(context.Background(), &platformsvc.ReplaceRequest{
		PlatformID:            "p1",
		FilteredPieceNames:    []string{"slack"},
		FilteredPieceBehavior: models.FilteredPieceBehaviorAllowed,
	})
	assert.Nil(s.T(), err)

	visible, err := s.svc.ListVisible(context.Background(), "p1")
	assert.Nil(s.T(), err)
	assert.Len(s.T(), visible, 1)
	assert.Equal(s.T(), "slack", visible[0].Name)
}

func (s *PieceTestSuite) TestIsVisibleMatchesListing() {
	_, err := s.platforms.ReplaceConfig(context.Background(), &platformsvc.ReplaceRequest{
		PlatformID:            "p1",
		FilteredPieceNames:    []string{"slack"},
		FilteredPieceBehavior: models.FilteredPieceBehaviorBlocked,
	})
	assert.Nil(s.T(), err)

	hidden, err := s.svc.IsVisible(context.Background(), "p1", "slack")
	assert.Nil(s.T(), err)
	assert.False(s.T(), hidden)

	shown, err := s.svc.IsVisible(context.Background(), "p1", "gmail")
	assert.Nil(s.T(), err)
	assert.True(s.T(), shown)
}

func TestPieceTestSuite(t *testing.T) {
	suite.Run(t, new(PieceTestSuite))
}
