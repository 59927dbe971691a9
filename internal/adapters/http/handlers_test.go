package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/greenroute/internal/adapters/http"
	"github.com/samirrijal/greenroute/internal/core/domain"
	"github.com/samirrijal/greenroute/internal/core/ports"
	"github.com/samirrijal/greenroute/internal/core/usecases"
)

// ---- Mock providers ----

type mockGeocoder struct{}

func (m *mockGeocoder) Geocode(ctx context.Context, query string) (domain.Coordinate, error) {
	return domain.Coordinate{}, domain.ErrNotFound
}

type mockRouteProvider struct {
	mu           sync.Mutex
	zones        []domain.ExclusionZone
	directionsFn func(origin, destination domain.Coordinate) (*domain.CanonicalRoute, error)
}

func (m *mockRouteProvider) Directions(ctx context.Context, origin, destination domain.Coordinate, profile domain.TravelProfile, zones []domain.ExclusionZone) (*domain.CanonicalRoute, error) {
	m.mu.Lock()
	m.zones = zones
	m.mu.Unlock()
	if m.directionsFn != nil {
		return m.directionsFn(origin, destination)
	}
	return &domain.CanonicalRoute{
		DistanceMeters:  1234.5,
		DurationSeconds: 888.8,
		Points:          []domain.Coordinate{origin, destination},
		Instructions: []domain.Instruction{
			{Text: "Head south", DistanceMeters: 1234.5, DurationSeconds: 888.8},
		},
	}, nil
}

type mockImagery struct {
	noCoverage bool
}

func (m *mockImagery) Name() domain.ImagerySource { return domain.SourcePlaceholder }
func (m *mockImagery) Configured() bool           { return true }
func (m *mockImagery) FindImage(ctx context.Context, point domain.Coordinate) (*domain.StreetImage, error) {
	if m.noCoverage {
		return nil, nil
	}
	return &domain.StreetImage{URL: "https://placehold.co/600x400", Source: domain.SourcePlaceholder}, nil
}

type mockPinger struct{ err error }

func (m *mockPinger) Ping(ctx context.Context) error { return m.err }

type mockBroker struct{ connected bool }

func (m *mockBroker) Connected() bool { return m.connected }

// ---- Test helpers ----

func newRouteService(routes ports.RouteProvider, imagery ...ports.ImageryProvider) *usecases.RouteService {
	obstacles := usecases.NewObstacleService(imagery, nil, nil, nil, usecases.ObstacleConfig{
		Random: func() float64 { return 0.9 },
	})
	return usecases.NewRouteService(
		usecases.NewLocationResolver(&mockGeocoder{}, nil),
		routes, obstacles,
		usecases.RouteConfig{Workers: 2, MaxPoints: 5},
	)
}

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true, ErrorHandler: handler.ErrorHandler})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(opts ...func(*handler.Dependencies)) *handler.Dependencies {
	d := &handler.Dependencies{
		Routes:      newRouteService(&mockRouteProvider{}, &mockImagery{}),
		Credentials: map[string]bool{"openrouteservice": true},
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func postJSON(t *testing.T, app *fiber.App, url, body string) (*httptestResponse, error) {
	t.Helper()
	req := httptest.NewRequest("POST", url, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return &httptestResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Get,
		Body:       readBody(t, resp.Body),
	}, nil
}

type httptestResponse struct {
	StatusCode int
	Header     func(string) string
	Body       []byte
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

type routeBody struct {
	Paths []struct {
		Distance float64 `json:"distance"`
		Time     float64 `json:"time"`
		Points   struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"points"`
		Instructions []struct {
			Text     string  `json:"text"`
			Distance float64 `json:"distance"`
			Time     float64 `json:"time"`
		} `json:"instructions"`
	} `json:"paths"`
}

type errorBody struct {
	Detail string `json:"detail"`
}

// ---- Root ----

func TestRoot(t *testing.T) {
	app := setupApp(makeDeps())

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["message"] != "Welcome to GreenRouteAI API" {
		t.Errorf("unexpected message %q", body["message"])
	}
}

// ---- Route ----

func TestRoute_Success(t *testing.T) {
	provider := &mockRouteProvider{}
	app := setupApp(makeDeps(func(d *handler.Dependencies) {
		d.Routes = newRouteService(provider)
	}))

	resp, err := postJSON(t, app, "/api/route",
		`{"origin":"37.3891,-5.9845","destination":"37.3826,-5.9963","profile":"wheelchair","block_areas":["37.385,-5.99,50","garbage"]}`)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, resp.Body)
	}

	var body routeBody
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Paths) != 1 {
		t.Fatalf("expected 1 path, got %d", len(body.Paths))
	}
	p := body.Paths[0]
	if p.Distance != 1234.5 || p.Time != 888.8 {
		t.Errorf("unexpected distance/time %v/%v", p.Distance, p.Time)
	}
	if len(p.Points.Coordinates) != 2 {
		t.Fatalf("expected 2 coordinates, got %d", len(p.Points.Coordinates))
	}
	first := p.Points.Coordinates[0]
	if first[0] != -5.9845 || first[1] != 37.3891 {
		t.Errorf("expected [lng,lat] order, got %v", first)
	}
	if len(p.Instructions) != 1 || p.Instructions[0].Text != "Head south" {
		t.Errorf("unexpected instructions %+v", p.Instructions)
	}
	if len(provider.zones) != 1 {
		t.Errorf("expected the malformed zone to be dropped, got %d zones", len(provider.zones))
	}
	if resp.Header("Deprecation") != "" {
		t.Error("did not expect a Deprecation header without block_area")
	}
}

func TestRoute_OversizedZoneIsDroppedNotRejected(t *testing.T) {
	provider := &mockRouteProvider{}
	app := setupApp(makeDeps(func(d *handler.Dependencies) {
		d.Routes = newRouteService(provider)
	}))

	long := "37.385,-5.99," + strings.Repeat("x", 300)
	resp, err := postJSON(t, app, "/api/route",
		`{"origin":"37.3891,-5.9845","destination":"37.3826,-5.9963","block_area":"`+long+`","block_areas":["37.385,-5.99,50","`+long+`"]}`)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, resp.Body)
	}
	if len(provider.zones) != 1 || provider.zones[0].RadiusMeters != 50 {
		t.Errorf("expected only the well-formed zone, got %+v", provider.zones)
	}
}

func TestRoute_LegacyBlockArea(t *testing.T) {
	provider := &mockRouteProvider{}
	app := setupApp(makeDeps(func(d *handler.Dependencies) {
		d.Routes = newRouteService(provider)
	}))

	resp, err := postJSON(t, app, "/api/route",
		`{"origin":"37.3891,-5.9845","destination":"37.3826,-5.9963","block_area":"37.1,-5.1,10","block_areas":["37.2,-5.2,20"]}`)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, resp.Body)
	}
	if resp.Header("Deprecation") != "true" {
		t.Error("expected Deprecation header for legacy field")
	}
	if !strings.Contains(resp.Header("Link"), `rel="deprecation"`) {
		t.Errorf("expected deprecation Link header, got %q", resp.Header("Link"))
	}
	if len(provider.zones) != 2 || provider.zones[0].Center.Lat != 37.1 {
		t.Errorf("expected legacy zone first, got %+v", provider.zones)
	}
}

func TestRoute_TooLong(t *testing.T) {
	provider := &mockRouteProvider{}
	app := setupApp(makeDeps(func(d *handler.Dependencies) {
		d.Routes = newRouteService(provider)
	}))

	resp, err := postJSON(t, app, "/api/route", `{"origin":"0,0","destination":"0,60"}`)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var body errorBody
	json.Unmarshal(resp.Body, &body)
	if !strings.Contains(body.Detail, "(6671km)") || !strings.Contains(body.Detail, "6000km") {
		t.Errorf("unexpected detail %q", body.Detail)
	}
	if provider.zones != nil {
		t.Error("directions must not be requested for a rejected route")
	}
}

func TestRoute_UpstreamFailure(t *testing.T) {
	app := setupApp(makeDeps(func(d *handler.Dependencies) {
		d.Routes = newRouteService(&mockRouteProvider{
			directionsFn: func(origin, destination domain.Coordinate) (*domain.CanonicalRoute, error) {
				return nil, &domain.UpstreamError{Provider: "openrouteservice", Status: 403, Body: "quota exceeded"}
			},
		})
	}))

	resp, err := postJSON(t, app, "/api/route", `{"origin":"40.4,-3.7","destination":"40.5,-3.6"}`)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 500 {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	var body errorBody
	json.Unmarshal(resp.Body, &body)
	if !strings.Contains(body.Detail, "403") || !strings.Contains(body.Detail, "quota exceeded") {
		t.Errorf("expected raw provider status and body, got %q", body.Detail)
	}
}

func TestRoute_UngeocodableText(t *testing.T) {
	app := setupApp(makeDeps())

	resp, err := postJSON(t, app, "/api/route", `{"origin":"Atlantis","destination":"40.5,-3.6"}`)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 500 {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
}

func TestRoute_InvalidBody(t *testing.T) {
	app := setupApp(makeDeps())

	cases := map[string]string{
		"malformed":           `{"origin":`,
		"missing destination": `{"origin":"40.4,-3.7"}`,
		"wrong type":          `{"origin":"40.4,-3.7","destination":"40.5,-3.6","block_areas":"x"}`,
	}
	for name, payload := range cases {
		resp, err := postJSON(t, app, "/api/route", payload)
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != 400 {
			t.Errorf("%s: expected 400, got %d", name, resp.StatusCode)
		}
		var body errorBody
		json.Unmarshal(resp.Body, &body)
		if body.Detail == "" {
			t.Errorf("%s: expected a detail message", name)
		}
		if name == "missing destination" && !strings.Contains(body.Detail, "destination") {
			t.Errorf("expected the field name in %q", body.Detail)
		}
	}
}

// ---- GPX ----

func TestRouteGPX_IgnoresZones(t *testing.T) {
	provider := &mockRouteProvider{}
	app := setupApp(makeDeps(func(d *handler.Dependencies) {
		d.Routes = newRouteService(provider)
	}))

	resp, err := postJSON(t, app, "/api/route/gpx",
		`{"origin":"37.3891,-5.9845","destination":"37.3826,-5.9963","block_areas":["37.385,-5.99,50"]}`)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, resp.Body)
	}
	if ct := resp.Header("Content-Type"); ct != "application/gpx+xml" {
		t.Errorf("unexpected content type %q", ct)
	}
	if cd := resp.Header("Content-Disposition"); cd != "attachment; filename=route.gpx" {
		t.Errorf("unexpected content disposition %q", cd)
	}
	if provider.zones != nil {
		t.Errorf("expected no zones for GPX export, got %+v", provider.zones)
	}
	if strings.Count(string(resp.Body), "<trkpt ") != 2 {
		t.Errorf("expected 2 track points in %s", resp.Body)
	}
}

func TestRouteGPX_TooLong(t *testing.T) {
	app := setupApp(makeDeps())

	resp, err := postJSON(t, app, "/api/route/gpx", `{"origin":"0,0","destination":"0,60"}`)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestRouteGPX_SinglePointRoute(t *testing.T) {
	app := setupApp(makeDeps(func(d *handler.Dependencies) {
		d.Routes = newRouteService(&mockRouteProvider{
			directionsFn: func(origin, destination domain.Coordinate) (*domain.CanonicalRoute, error) {
				return &domain.CanonicalRoute{Points: []domain.Coordinate{origin}}, nil
			},
		})
	}))

	resp, err := postJSON(t, app, "/api/route/gpx", `{"origin":"40.4,-3.7","destination":"40.4,-3.7"}`)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 500 {
		t.Fatalf("expected 500 for an unexportable route, got %d", resp.StatusCode)
	}
}

// ---- Analyze ----

func TestAnalyze_Placeholder(t *testing.T) {
	app := setupApp(makeDeps())

	resp, err := postJSON(t, app, "/api/analyze?lat=37.3891&lng=-5.9845", "")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, resp.Body)
	}
	var body struct {
		ImageURL  *string  `json:"image_url"`
		Obstacles []string `json:"obstacles"`
		Source    string   `json:"source"`
	}
	json.Unmarshal(resp.Body, &body)
	if body.ImageURL == nil || *body.ImageURL != "https://placehold.co/600x400" {
		t.Errorf("unexpected image_url %v", body.ImageURL)
	}
	if body.Source != "placeholder" {
		t.Errorf("unexpected source %q", body.Source)
	}
	if body.Obstacles == nil || len(body.Obstacles) != 0 {
		t.Errorf("expected empty obstacle list, got %#v", body.Obstacles)
	}
}

func TestAnalyze_NoCoverage(t *testing.T) {
	app := setupApp(makeDeps(func(d *handler.Dependencies) {
		d.Routes = newRouteService(&mockRouteProvider{}, &mockImagery{noCoverage: true})
	}))

	resp, err := postJSON(t, app, "/api/analyze?lat=0&lng=0", "")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]interface{}
	json.Unmarshal(resp.Body, &body)
	if v, ok := body["image_url"]; !ok || v != nil {
		t.Errorf("expected explicit null image_url, got %v", body["image_url"])
	}
	obstacles, _ := body["obstacles"].([]interface{})
	if len(obstacles) != 1 || obstacles[0] != domain.NoImageryMessage {
		t.Errorf("expected no-imagery message, got %v", body["obstacles"])
	}
	if body["source"] != "none" {
		t.Errorf("expected source none, got %v", body["source"])
	}
}

func TestAnalyze_InvalidQuery(t *testing.T) {
	app := setupApp(makeDeps())

	for _, q := range []string{"", "?lat=abc&lng=1", "?lat=1", "?lat=95&lng=1", "?lat=1&lng=-181"} {
		resp, err := postJSON(t, app, "/api/analyze"+q, "")
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != 400 {
			t.Errorf("%q: expected 400, got %d", q, resp.StatusCode)
		}
	}
}

// ---- Annotate ----

func TestAnnotate_SamplesPointsInOrder(t *testing.T) {
	points := make([]domain.Coordinate, 9)
	for i := range points {
		points[i] = domain.Coordinate{Lat: 37 + float64(i)*0.001, Lng: -5.9}
	}
	app := setupApp(makeDeps(func(d *handler.Dependencies) {
		d.Routes = newRouteService(&mockRouteProvider{
			directionsFn: func(origin, destination domain.Coordinate) (*domain.CanonicalRoute, error) {
				return &domain.CanonicalRoute{DistanceMeters: 900, DurationSeconds: 600, Points: points}, nil
			},
		}, &mockImagery{})
	}))

	resp, err := postJSON(t, app, "/api/route/annotate?samples=3", `{"origin":"37,-5.9","destination":"37.008,-5.9"}`)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, resp.Body)
	}
	var body struct {
		Paths       []json.RawMessage `json:"paths"`
		Annotations []struct {
			Point     []float64 `json:"point"`
			ImageURL  *string   `json:"image_url"`
			Obstacles []string  `json:"obstacles"`
			Source    string    `json:"source"`
		} `json:"annotations"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Paths) != 1 {
		t.Errorf("expected 1 path, got %d", len(body.Paths))
	}
	if len(body.Annotations) != 3 {
		t.Fatalf("expected 3 annotations, got %d", len(body.Annotations))
	}
	for i, want := range []domain.Coordinate{points[0], points[4], points[8]} {
		got := body.Annotations[i].Point
		if got[0] != want.Lng || got[1] != want.Lat {
			t.Errorf("annotation %d: expected %v, got %v", i, want.LngLat(), got)
		}
		if body.Annotations[i].Source != "placeholder" {
			t.Errorf("annotation %d: unexpected source %q", i, body.Annotations[i].Source)
		}
	}
}

func TestAnnotate_BadSamples(t *testing.T) {
	app := setupApp(makeDeps())

	for _, q := range []string{"?samples=1", "?samples=-4"} {
		resp, err := postJSON(t, app, "/api/route/annotate"+q, `{"origin":"37,-5.9","destination":"37.008,-5.9"}`)
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != 400 {
			t.Errorf("%q: expected 400, got %d", q, resp.StatusCode)
		}
	}
}

// ---- Health ----

func TestHealth(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/health", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestReady(t *testing.T) {
	cases := []struct {
		name string
		deps func(*handler.Dependencies)
		want int
	}{
		{"bare", func(d *handler.Dependencies) {}, 200},
		{"all up", func(d *handler.Dependencies) {
			d.Cache = &mockPinger{}
			d.Broker = &mockBroker{connected: true}
			d.Credentials["mapillary"] = false
		}, 200},
		{"cache down", func(d *handler.Dependencies) { d.Cache = &mockPinger{err: errors.New("refused")} }, 503},
		{"broker down", func(d *handler.Dependencies) { d.Broker = &mockBroker{} }, 503},
		{"no directions key", func(d *handler.Dependencies) { d.Credentials = map[string]bool{} }, 503},
	}

	for _, tc := range cases {
		app := setupApp(makeDeps(tc.deps))
		resp, err := app.Test(httptest.NewRequest("GET", "/ready", nil), -1)
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.name, tc.want, resp.StatusCode)
		}
	}
}

// ---- GraphQL ----

func TestGraphQL_AnalyzeAndRoute(t *testing.T) {
	app := setupApp(makeDeps())

	resp, err := postJSON(t, app, "/graphql",
		`{"query":"{ analyze(lat: 37.38, lng: -5.98) { image_url source obstacles } route(origin: \"37.3891,-5.9845\", destination: \"37.3826,-5.9963\") { distance coordinates } }"}`)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Data struct {
			Analyze struct {
				Source string `json:"source"`
			} `json:"analyze"`
			Route struct {
				Distance    float64     `json:"distance"`
				Coordinates [][]float64 `json:"coordinates"`
			} `json:"route"`
		} `json:"data"`
		Errors []interface{} `json:"errors"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", body.Errors)
	}
	if body.Data.Analyze.Source != "placeholder" {
		t.Errorf("unexpected source %q", body.Data.Analyze.Source)
	}
	if len(body.Data.Route.Coordinates) != 2 || body.Data.Route.Coordinates[0][0] != -5.9845 {
		t.Errorf("unexpected coordinates %v", body.Data.Route.Coordinates)
	}
}

func TestGraphQL_RouteTooLongIsReported(t *testing.T) {
	app := setupApp(makeDeps())

	resp, err := postJSON(t, app, "/graphql", `{"query":"{ route(origin: \"0,0\", destination: \"0,60\") { distance } }"}`)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(resp.Body), "Route is too long") {
		t.Errorf("expected guard message in %s", resp.Body)
	}
}

// ---- WebSocket ----

func TestWebSocket_DisabledWithoutEvents(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/ws", nil), -1)
	if resp.StatusCode != 503 {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}
