package rest

import (
	"github.com/conveyor-cloud/conveyor/api/rest/auth"
	eventctrl "github.com/conveyor-cloud/conveyor/api/rest/controller/event"
	piecectrl "github.com/conveyor-cloud/conveyor/api/rest/controller/piece"
	platformctrl "github.com/conveyor-cloud/conveyor/api/rest/controller/platform"
	triggerctrl "github.com/conveyor-cloud/conveyor/api/rest/controller/trigger"
	"github.com/labstack/echo/v4"
)

// Controllers aggregates the handlers bound under /v1.
type Controllers struct {
	Platform *platformctrl.Controller
	Piece    *piecectrl.Controller
	Trigger  *triggerctrl.Controller
	Event    *eventctrl.Controller

	// AdminToken guards visibility mutations.
	AdminToken string
}

// Bind the REST endpoints to the versioned endpoint group.
func Bind(group *echo.Group, ctrl Controllers) {
	admin := auth.Admin(ctrl.AdminToken)

	// The filter config is admin-only in both directions: reading it
	// exposes the platform's policy, not just mutating it.
	group.GET("/platforms/:platform_id/filtered-pieces", ctrl.Platform.GetConfig, admin)
	group.PATCH("/platforms/:platform_id/filtered-pieces", ctrl.Platform.ReplaceConfig, admin)
	group.PATCH("/platforms/:platform_id/pieces/:piece_name/visibility", ctrl.Platform.SetVisibility, admin)
	group.GET("/platforms/:platform_id/pieces", ctrl.Piece.List)

	group.GET("/triggers", ctrl.Trigger.List)
	group.POST("/triggers", ctrl.Trigger.Post)
	group.GET("/triggers/:id", ctrl.Trigger.Get)
	group.DELETE("/triggers/:id", ctrl.Trigger.Delete)
	group.POST("/triggers/:id/enable", ctrl.Trigger.Enable)
	group.POST("/triggers/:id/disable", ctrl.Trigger.Disable)
	group.GET("/triggers/:id/status", ctrl.Trigger.Status)

	group.GET("/events", ctrl.Event.Stream)
}
