package trigger

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (ctrl *Controller) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if err := ctrl.svc.Delete(c.Request().Context(), id); err != nil {
		return mapError(err)
	}

	return c.NoContent(http.StatusNoContent)
}
