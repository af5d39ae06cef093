package platform

import (
	"errors"
	"net/http"

	platformsvc "github.com/conveyor-cloud/conveyor/api/rest/service/platform"
	"github.com/conveyor-cloud/conveyor/internal/models"
	"github.com/labstack/echo/v4"
)

type replaceBody struct {
	FilteredPieceNames    []string `json:"filteredPieceNames"`
	FilteredPieceBehavior string   `json:"filteredPieceBehavior"`
}

// ReplaceConfig fully replaces a platform's piece filter.
func (ctrl *Controller) ReplaceConfig(c echo.Context) error {
	var body replaceBody
	if err := c.Bind(&body); err != nil {
		return echo.ErrBadRequest.SetInternal(err)
	}

	cfg, err := ctrl.svc.ReplaceConfig(c.Request().Context(), &platformsvc.ReplaceRequest{
		PlatformID:            c.Param("platform_id"),
		FilteredPieceNames:    body.FilteredPieceNames,
		FilteredPieceBehavior: models.FilteredPieceBehavior(body.FilteredPieceBehavior),
	})

	switch {
	case errors.Is(err, platformsvc.ErrInvalidBehavior):
		return echo.ErrBadRequest.SetInternal(err)
	case err != nil:
		return echo.ErrInternalServerError.SetInternal(err)
	}

	names, err := cfg.Names()
	if err != nil {
		return echo.ErrInternalServerError.SetInternal(err)
	}

	return c.JSON(http.StatusOK, &ConfigResponse{
		PlatformID:            cfg.PlatformID,
		FilteredPieceNames:    names,
		FilteredPieceBehavior: string(cfg.FilteredPieceBehavior),
	})
}
