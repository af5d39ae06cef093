package trigger

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (ctrl *Controller) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	reg, err := ctrl.svc.Get(c.Request().Context(), id)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, reg)
}
