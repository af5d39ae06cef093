package trigger

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Enable starts scheduling the trigger's polls.
func (ctrl *Controller) Enable(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if err := ctrl.svc.Enable(c.Request().Context(), id); err != nil {
		return mapError(err)
	}

	return c.NoContent(http.StatusAccepted)
}

// Disable halts scheduling. An in-flight poll completes; the
// watermark is preserved.
func (ctrl *Controller) Disable(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if err := ctrl.svc.Disable(c.Request().Context(), id); err != nil {
		return mapError(err)
	}

	return c.NoContent(http.StatusAccepted)
}

// Status surfaces background poll health: state, watermark,
// consecutive failures, degraded flag.
func (ctrl *Controller) Status(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	status, err := ctrl.svc.Status(c.Request().Context(), id)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, status)
}
