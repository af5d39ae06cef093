package api

import (
	"context"
	"fmt"

	"github.com/conveyor-cloud/conveyor/api/gql"
	rest "github.com/conveyor-cloud/conveyor/api/rest/v1"
	piecesvc "github.com/conveyor-cloud/conveyor/api/rest/service/piece"
	triggersvc "github.com/conveyor-cloud/conveyor/api/rest/service/trigger"
	"github.com/conveyor-cloud/conveyor/pkg/env"
	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
)

var server *echo.Echo

// Deps are the wired services the API surfaces.
type Deps struct {
	Controllers rest.Controllers
	Pieces      piecesvc.Piece
	Triggers    triggersvc.Trigger
}

// Start launches Conveyor's API.
func Start(deps Deps) error {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	server = e

	// health
	e.GET("/health", Health)

	// metrics
	prometheus.NewPrometheus("conveyor", nil).Use(e)

	// REST
	rest.Bind(e.Group("/v1"), deps.Controllers)

	// GraphQL
	e.GET("/gql", gql.Handler(deps.Pieces, deps.Triggers))

	return e.Start(fmt.Sprintf(":%v", env.Variables().Port))
}

// Shutdown stops the API server gracefully.
func Shutdown() error {
	if server == nil {
		return nil
	}
	return server.Shutdown(context.Background())
}
