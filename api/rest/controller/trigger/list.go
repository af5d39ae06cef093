package trigger

import (
	"net/http"
	"strconv"

	triggersvc "github.com/conveyor-cloud/conveyor/api/rest/service/trigger"
	"github.com/labstack/echo/v4"
)

func (ctrl *Controller) List(c echo.Context) error {
	req, err := parseListRequest(c)
	if err != nil {
		return echo.ErrBadRequest.SetInternal(err)
	}

	triggers, err := ctrl.svc.List(c.Request().Context(), req)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, triggers)
}

func parseListRequest(c echo.Context) (req *triggersvc.ListRequest, err error) {
	req = &triggersvc.ListRequest{
		FlowID:     c.QueryParam("flow_id"),
		PlatformID: c.QueryParam("platform_id"),
		PieceName:  c.QueryParam("piece_name"),
	}

	if enabled := c.QueryParam("enabled"); enabled != "" {
		v, err := strconv.ParseBool(enabled)
		if err != nil {
			return nil, err
		}
		req.Enabled = &v
	}

	if limit := c.QueryParam("limit"); limit != "" {
		if req.Limit, err = strconv.Atoi(limit); err != nil {
			return nil, err
		}
	}

	if offset := c.QueryParam("offset"); offset != "" {
		if req.Offset, err = strconv.Atoi(offset); err != nil {
			return nil, err
		}
	}

	return req, nil
}
