package platform

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ConfigResponse is the wire form of a platform's piece filter.
type ConfigResponse struct {
	PlatformID            string   `json:"platform_id"`
	FilteredPieceNames    []string `json:"filteredPieceNames"`
	FilteredPieceBehavior string   `json:"filteredPieceBehavior"`
}

func (ctrl *Controller) GetConfig(c echo.Context) error {
	cfg, err := ctrl.svc.GetConfig(c.Request().Context(), c.Param("platform_id"))
	if err != nil {
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
