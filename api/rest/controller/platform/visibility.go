package platform

import (
	"net/http"

	platformsvc "github.com/conveyor-cloud/conveyor/api/rest/service/platform"
	"github.com/labstack/echo/v4"
)

type visibilityBody struct {
	Visible *bool `json:"visible"`
}

// VisibilityResponse returns the name set after a single-piece
// toggle.
type VisibilityResponse struct {
	PlatformID         string   `json:"platform_id"`
	PieceName          string   `json:"piece_name"`
	Visible            bool     `json:"visible"`
	FilteredPieceNames []string `json:"filteredPieceNames"`
}

// SetVisibility toggles one piece's visibility for a platform.
func (ctrl *Controller) SetVisibility(c echo.Context) error {
	var body visibilityBody
	if err := c.Bind(&body); err != nil {
		return echo.ErrBadRequest.SetInternal(err)
	}
	if body.Visible == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "visible field is required")
	}

	cfg, err := ctrl.svc.SetPieceVisibility(c.Request().Context(), &platformsvc.VisibilityRequest{
		PlatformID: c.Param("platform_id"),
		PieceName:  c.Param("piece_name"),
		Visible:    *body.Visible,
	})
	if err != nil {
		return echo.ErrInternalServerError.SetInternal(err)
	}

	names, err := cfg.Names()
	if err != nil {
		return echo.ErrInternalServerError.SetInternal(err)
	}

	return c.JSON(http.StatusOK, &VisibilityResponse{
		PlatformID:         cfg.PlatformID,
		PieceName:          c.Param("piece_name"),
		Visible:            *body.Visible,
		FilteredPieceNames: names,
	})
}
