package piece

import (
	"net/http"

	piecesvc "github.com/conveyor-cloud/conveyor/api/rest/service/piece"
	"github.com/labstack/echo/v4"
)

// Controller exposes visibility-filtered piece listings.
type Controller struct {
	svc piecesvc.Piece
}

func New(svc piecesvc.Piece) *Controller {
	return &Controller{svc: svc}
}

// List returns the pieces the platform may use.
func (ctrl *Controller) List(c echo.Context) error {
	pieces, err := ctrl.svc.ListVisible(c.Request().Context(), c.Param("platform_id"))
	if err != nil {
		return echo.ErrInternalServerError.SetInternal(err)
	}

	return c.JSON(http.StatusOK, pieces)
}
