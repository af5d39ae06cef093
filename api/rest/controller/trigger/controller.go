package trigger

import (
	"errors"

	triggersvc "github.com/conveyor-cloud/conveyor/api/rest/service/trigger"
	"github.com/conveyor-cloud/conveyor/internal/poll"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Controller exposes trigger registration CRUD and lifecycle over
// REST.
type Controller struct {
	svc triggersvc.Trigger
}

func New(svc triggersvc.Trigger) *Controller {
	return &Controller{svc: svc}
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.ErrBadRequest.SetInternal(err)
	}
	return id, nil
}

func mapError(err error) error {
	switch {
	case errors.Is(err, triggersvc.ErrNotFound), errors.Is(err, poll.ErrTriggerNotFound):
		return echo.ErrNotFound.SetInternal(err)
	case errors.Is(err, triggersvc.ErrInvalidStrategy):
		return echo.ErrBadRequest.SetInternal(err)
	default:
		return echo.ErrInternalServerError.SetInternal(err)
	}
}
