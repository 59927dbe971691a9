package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/greenroute/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to the route service.
// Resolvers return plain maps so coordinate pairs serialise as lists.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	instructionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Instruction",
		Fields: graphql.Fields{
			"text":     &graphql.Field{Type: graphql.String},
			"distance": &graphql.Field{Type: graphql.Float},
			"time":     &graphql.Field{Type: graphql.Float},
		},
	})

	pathType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Path",
		Fields: graphql.Fields{
			"distance":     &graphql.Field{Type: graphql.Float, Description: "Meters"},
			"time":         &graphql.Field{Type: graphql.Float, Description: "Seconds"},
			"coordinates":  &graphql.Field{Type: graphql.NewList(graphql.NewList(graphql.Float)), Description: "[lng, lat] pairs"},
			"instructions": &graphql.Field{Type: graphql.NewList(instructionType)},
		},
	})

	reportType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ObstacleReport",
		Fields: graphql.Fields{
			"image_url": &graphql.Field{Type: graphql.String},
			"obstacles": &graphql.Field{Type: graphql.NewList(graphql.String)},
			"source":    &graphql.Field{Type: graphql.String},
		},
	})

	annotationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Annotation",
		Fields: graphql.Fields{
			"point":     &graphql.Field{Type: graphql.NewList(graphql.Float), Description: "[lng, lat]"},
			"image_url": &graphql.Field{Type: graphql.String},
			"obstacles": &graphql.Field{Type: graphql.NewList(graphql.String)},
			"source":    &graphql.Field{Type: graphql.String},
		},
	})

	annotatedType := graphql.NewObject(graphql.ObjectConfig{
		Name: "AnnotatedRoute",
		Fields: graphql.Fields{
			"path":        &graphql.Field{Type: pathType},
			"annotations": &graphql.Field{Type: graphql.NewList(annotationType)},
		},
	})

	routeArgs := graphql.FieldConfigArgument{
		"origin":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
		"destination": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
		"profile":     &graphql.ArgumentConfig{Type: graphql.String},
		"block_areas": &graphql.ArgumentConfig{Type: graphql.NewList(graphql.String)},
	}

	annotateArgs := graphql.FieldConfigArgument{
		"samples": &graphql.ArgumentConfig{Type: graphql.Int},
	}
	for k, v := range routeArgs {
		annotateArgs[k] = v
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"route": &graphql.Field{
				Type:        pathType,
				Description: "Compute a route avoiding the given zones",
				Args:        routeArgs,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					route, err := deps.Routes.ComputeRoute(p.Context, routeRequestFromArgs(p.Args))
					if err != nil {
						return nil, err
					}
					return pathMap(route), nil
				},
			},
			"analyze": &graphql.Field{
				Type:        reportType,
				Description: "Detect obstacles near a point",
				Args: graphql.FieldConfigArgument{
					"lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lng": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					lat, _ := p.Args["lat"].(float64)
					lng, _ := p.Args["lng"].(float64)
					point := domain.Coordinate{Lat: lat, Lng: lng}
					if !point.Valid() {
						return nil, domain.ErrInput
					}
					return reportMap(deps.Routes.AnalyzePoint(p.Context, point)), nil
				},
			},
			"annotate": &graphql.Field{
				Type:        annotatedType,
				Description: "Compute a route and detect obstacles at sampled points",
				Args:        annotateArgs,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					samples, _ := p.Args["samples"].(int)
					annotated, err := deps.Routes.AnnotateRoute(p.Context, routeRequestFromArgs(p.Args), samples)
					if err != nil {
						return nil, err
					}
					annotations := make([]interface{}, len(annotated.Annotations))
					for i, a := range annotated.Annotations {
						m := reportMap(a.Report)
						m["point"] = []float64{a.Point.Lng, a.Point.Lat}
						annotations[i] = m
					}
					return map[string]interface{}{
						"path":        pathMap(annotated.Route),
						"annotations": annotations,
					}, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

func routeRequestFromArgs(args map[string]interface{}) domain.RouteRequest {
	req := domain.RouteRequest{}
	req.Origin, _ = args["origin"].(string)
	req.Destination, _ = args["destination"].(string)
	if profile, ok := args["profile"].(string); ok {
		req.Profile = domain.TravelProfile(profile)
	}
	if zones, ok := args["block_areas"].([]interface{}); ok {
		for _, z := range zones {
			if s, ok := z.(string); ok {
				req.BlockAreas = append(req.BlockAreas, s)
			}
		}
	}
	return req
}

func pathMap(r *domain.CanonicalRoute) map[string]interface{} {
	coords := make([]interface{}, len(r.Points))
	for i, p := range r.Points {
		coords[i] = []float64{p.Lng, p.Lat}
	}
	steps := make([]interface{}, len(r.Instructions))
	for i, in := range r.Instructions {
		steps[i] = map[string]interface{}{
			"text":     in.Text,
			"distance": in.DistanceMeters,
			"time":     in.DurationSeconds,
		}
	}
	return map[string]interface{}{
		"distance":     r.DistanceMeters,
		"time":         r.DurationSeconds,
		"coordinates":  coords,
		"instructions": steps,
	}
}

func reportMap(r domain.ObstacleReport) map[string]interface{} {
	var imageURL interface{}
	if r.ImageURL != nil {
		imageURL = *r.ImageURL
	}
	return map[string]interface{}{
		"image_url": imageURL,
		"obstacles": r.Labels(),
		"source":    string(r.Source),
	}
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
