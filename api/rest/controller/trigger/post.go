package trigger

import (
	"net/http"

	triggersvc "github.com/conveyor-cloud/conveyor/api/rest/service/trigger"
	"github.com/labstack/echo/v4"
)

func (ctrl *Controller) Post(c echo.Context) error {
	var req triggersvc.CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.ErrBadRequest.SetInternal(err)
	}

	reg, err := ctrl.svc.Create(c.Request().Context(), &req)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusCreated, reg)
}
