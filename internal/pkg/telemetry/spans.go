package telemetry

// Span and attribute names used for instrumentation.
const (
	TracerName = "github.com/samirrijal/greenroute"

	// Orchestrator spans
	SpanComputeRoute   = "route.compute"
	SpanExportGPX      = "route.export_gpx"
	SpanAnnotateRoute  = "route.annotate"
	SpanDetectObstacle = "obstacles.detect"

	// Attributes
	AttrProfile        = "route.profile"
	AttrDistanceMeters = "route.great_circle_m"
	AttrZones          = "route.exclusion_zones"
	AttrImagerySource  = "obstacles.source"
	AttrSamples        = "route.samples"
)
