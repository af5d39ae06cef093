package schema

import (
	"github.com/conveyor-cloud/conveyor/api/rest/service/piece"
	"github.com/conveyor-cloud/conveyor/api/rest/service/trigger"
	"github.com/graphql-go/graphql"
)

// New instantiates a fresh GraphQL schema for Conveyor's read-only
// query surface.
func New(pieces piece.Piece, triggers trigger.Trigger) graphql.SchemaConfig {
	return graphql.SchemaConfig{
		Query: graphql.NewObject(
			graphql.ObjectConfig{
				Name:   "Query",
				Fields: fields(pieces, triggers),
			},
		),
	}
}

var pieceType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Piece",
	Fields: graphql.Fields{
		"name":        &graphql.Field{Type: graphql.String},
		"displayName": &graphql.Field{Type: graphql.String},
		"version":     &graphql.Field{Type: graphql.String},
		"authType":    &graphql.Field{Type: graphql.String},
	},
})

var triggerType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Trigger",
	Fields: graphql.Fields{
		"id":              &graphql.Field{Type: graphql.String},
		"flowId":          &graphql.Field{Type: graphql.String},
		"platformId":      &graphql.Field{Type: graphql.String},
		"pieceName":       &graphql.Field{Type: graphql.String},
		"triggerName":     &graphql.Field{Type: graphql.String},
		"pollingStrategy": &graphql.Field{Type: graphql.String},
		"watermark":       &graphql.Field{Type: graphql.String},
		"enabled":         &graphql.Field{Type: graphql.Boolean},
		"failureCount":    &graphql.Field{Type: graphql.Int},
	},
})

func fields(pieces piece.Piece, triggers trigger.Trigger) graphql.Fields {
	return graphql.Fields{
		"pieces": &graphql.Field{
			Type: graphql.NewList(pieceType),
			Args: graphql.FieldConfigArgument{
				"platformId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				platformID, _ := p.Args["platformId"].(string)

				visible, err := pieces.ListVisible(p.Context, platformID)
				if err != nil {
					return nil, err
				}

				out := make([]map[string]interface{}, 0, len(visible))
				for _, desc := range visible {
					out = append(out, map[string]interface{}{
						"name":        desc.Name,
						"displayName": desc.DisplayName,
						"version":     desc.Version,
						"authType":    desc.AuthType,
					})
				}

				return out, nil
			},
		},
		"triggers": &graphql.Field{
			Type: graphql.NewList(triggerType),
			Args: graphql.FieldConfigArgument{
				"flowId":     &graphql.ArgumentConfig{Type: graphql.String},
				"platformId": &graphql.ArgumentConfig{Type: graphql.String},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				req := &trigger.ListRequest{}
				if v, ok := p.Args["flowId"].(string); ok {
					req.FlowID = v
				}
				if v, ok := p.Args["platformId"].(string); ok {
					req.PlatformID = v
				}

				regs, err := triggers.List(p.Context, req)
				if err != nil {
					return nil, err
				}

				out := make([]map[string]interface{}, 0, len(regs))
				for _, reg := range regs {
					out = append(out, map[string]interface{}{
						"id":              reg.ID,
						"flowId":          reg.FlowID,
						"platformId":      reg.PlatformID,
						"pieceName":       reg.PieceName,
						"triggerName":     reg.TriggerName,
						"pollingStrategy": string(reg.PollingStrategy),
						"watermark":       reg.Watermark,
						"enabled":         reg.Enabled,
						"failureCount":    reg.FailureCount,
					})
				}

				return out, nil
			},
		},
	}
}
