package http

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/greenroute/internal/core/domain"
)

const welcomeMessage = "Welcome to GreenRouteAI API"

// routeRequestBody is the JSON body shared by the route, GPX and annotate endpoints.
type routeRequestBody struct {
	Origin      string   `json:"origin" validate:"required,max=512"`
	Destination string   `json:"destination" validate:"required,max=512"`
	Profile     string   `json:"profile" validate:"omitempty,max=64"`
	BlockArea   string   `json:"block_area"`
	BlockAreas  []string `json:"block_areas" validate:"omitempty,max=100"`
}

// toDomain merges the legacy single zone ahead of the list.
func (b routeRequestBody) toDomain() domain.RouteRequest {
	zones := make([]string, 0, len(b.BlockAreas)+1)
	if b.BlockArea != "" {
		zones = append(zones, b.BlockArea)
	}
	zones = append(zones, b.BlockAreas...)
	return domain.RouteRequest{
		Origin:      b.Origin,
		Destination: b.Destination,
		Profile:     domain.TravelProfile(strings.TrimSpace(b.Profile)),
		BlockAreas:  zones,
	}
}

type analyzeQuery struct {
	Lat float64 `query:"lat" validate:"latitude"`
	Lng float64 `query:"lng" validate:"longitude"`
}

// parseRouteBody decodes and validates the body. It writes the 400 response
// itself and reports ok=false when the request must stop.
func parseRouteBody(c *fiber.Ctx) (domain.RouteRequest, bool, error) {
	var body routeRequestBody
	if err := c.BodyParser(&body); err != nil {
		return domain.RouteRequest{}, false, errBadRequest(c, "invalid request body")
	}
	if err := validateStruct(body); err != nil {
		return domain.RouteRequest{}, false, errBadRequest(c, err.Error())
	}
	if body.BlockArea != "" {
		markDeprecated(c, legacyBlockArea)
	}
	return body.toDomain(), true, nil
}

// RootHandler returns the welcome message.
func RootHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": welcomeMessage})
	}
}

// RouteHandler computes a route honouring exclusion zones.
func RouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, ok, err := parseRouteBody(c)
		if !ok {
			return err
		}

		route, err := deps.Routes.ComputeRoute(c.UserContext(), req)
		if err != nil {
			return errFromCore(c, err)
		}

		c.Set("Cache-Control", "no-store")
		return c.JSON(newRouteResponse(route))
	}
}

// RouteGPXHandler returns the route, computed without exclusion zones, as a GPX download.
func RouteGPXHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, ok, err := parseRouteBody(c)
		if !ok {
			return err
		}

		data, err := deps.Routes.ExportGPX(c.UserContext(), req)
		if err != nil {
			return errFromCore(c, err)
		}

		c.Set(fiber.HeaderContentType, "application/gpx+xml")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename=route.gpx`)
		return c.Send(data)
	}
}

// AnalyzeHandler runs obstacle detection for one point.
func AnalyzeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var q analyzeQuery
		var err error
		if q.Lat, err = strconv.ParseFloat(c.Query("lat"), 64); err != nil {
			return errBadRequest(c, "lat is required and must be a valid float")
		}
		if q.Lng, err = strconv.ParseFloat(c.Query("lng"), 64); err != nil {
			return errBadRequest(c, "lng is required and must be a valid float")
		}
		if err := validateStruct(q); err != nil {
			return errBadRequest(c, err.Error())
		}

		report := deps.Routes.AnalyzePoint(c.UserContext(), domain.Coordinate{Lat: q.Lat, Lng: q.Lng})

		c.Set("Cache-Control", "no-store")
		return c.JSON(newObstacleReport(report))
	}
}

// AnnotateHandler computes a route and runs obstacle detection at sampled points.
// The optional samples query parameter caps the number of points analysed.
func AnnotateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		samples := c.QueryInt("samples", 0)
		if samples < 0 || samples == 1 {
			return errBadRequest(c, "samples must be at least 2")
		}

		req, ok, err := parseRouteBody(c)
		if !ok {
			return err
		}

		annotated, err := deps.Routes.AnnotateRoute(c.UserContext(), req, samples)
		if err != nil {
			return errFromCore(c, err)
		}

		c.Set("Cache-Control", "no-store")
		return c.JSON(newAnnotatedRouteResponse(annotated))
	}
}
