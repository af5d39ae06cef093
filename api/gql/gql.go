package gql

import (
	"github.com/conveyor-cloud/conveyor/api/gql/schema"
	"github.com/conveyor-cloud/conveyor/api/rest/service/piece"
	"github.com/conveyor-cloud/conveyor/api/rest/service/trigger"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/handler"
	"github.com/labstack/echo/v4"
)

// Handler wraps the GraphQL schema and makes it injectable
// into the echo HTTP framework.
func Handler(pieces piece.Piece, triggers trigger.Trigger) echo.HandlerFunc {
	s, err := graphql.NewSchema(schema.New(pieces, triggers))
	if err != nil {
		panic(err)
	}

	return echo.WrapHandler(
		handler.New(
			&handler.Config{
				Schema:   &s,
				Pretty:   true,
				GraphiQL: true,
			},
		),
	)
}
