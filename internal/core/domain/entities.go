package domain

// TravelProfile is the mode of transport a route is computed for.
type TravelProfile string

const (
	ProfileFoot       TravelProfile = "foot"
	ProfileCar        TravelProfile = "car"
	ProfileBike       TravelProfile = "bike"
	ProfileWheelchair TravelProfile = "wheelchair"
)

// RouteRequest is the user-facing description of a route to compute.
type RouteRequest struct {
	Origin      string        `json:"origin"`
	Destination string        `json:"destination"`
	Profile     TravelProfile `json:"profile"`
	// BlockAreas holds raw "lat,lng,radiusMeters" strings; unparsable entries are dropped.
	BlockAreas []string `json:"block_areas,omitempty"`
}

// CanonicalRoute is the provider-independent representation of a computed path.
type CanonicalRoute struct {
	DistanceMeters  float64       `json:"distance_meters"`
	DurationSeconds float64       `json:"duration_seconds"`
	Points          []Coordinate  `json:"points"` // in traversal order
	Instructions    []Instruction `json:"instructions"`
}

// Instruction is a single turn-by-turn step.
type Instruction struct {
	Text            string  `json:"text"`
	DistanceMeters  float64 `json:"distance_meters"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// ObstacleTag labels a physical accessibility barrier.
type ObstacleTag string

const (
	ObstacleStairs           ObstacleTag = "stairs"
	ObstacleSteepSlope       ObstacleTag = "steep_slope"
	ObstacleConstruction     ObstacleTag = "construction"
	ObstacleNarrowSidewalk   ObstacleTag = "narrow_sidewalk"
	ObstaclePoleBlockingPath ObstacleTag = "pole_blocking_path"

	// ObstacleUndetermined signals that classification failed.
	ObstacleUndetermined ObstacleTag = "undetermined"
)

// ObstacleVocabulary lists every tag a classifier may report.
var ObstacleVocabulary = []ObstacleTag{
	ObstacleStairs,
	ObstacleSteepSlope,
	ObstacleConstruction,
	ObstacleNarrowSidewalk,
	ObstaclePoleBlockingPath,
}

// KnownObstacle reports whether tag belongs to the fixed vocabulary.
func KnownObstacle(tag ObstacleTag) bool {
	for _, t := range ObstacleVocabulary {
		if t == tag {
			return true
		}
	}
	return false
}

// ImagerySource names where the image of an ObstacleReport came from.
type ImagerySource string

const (
	SourceMapillary   ImagerySource = "mapillary"
	SourceStreetView  ImagerySource = "streetview"
	SourcePlaceholder ImagerySource = "placeholder"
	// SourceNone marks a provider that was reachable but had no coverage.
	SourceNone ImagerySource = "none"
)

// StreetImage is a street-level image near a point.
type StreetImage struct {
	ID       string        `json:"id,omitempty"`
	URL      string        `json:"url"`
	Location *Coordinate   `json:"location,omitempty"`
	Source   ImagerySource `json:"source"`
}

// ImageData is a downloaded image ready to be sent to a vision model.
type ImageData struct {
	MIMEType string
	Bytes    []byte
}

// VisionModelInfo describes one entry of a vision provider's model catalog.
type VisionModelInfo struct {
	Name                       string   `json:"name"`
	SupportedGenerationMethods []string `json:"supported_generation_methods"`
}

// ObstacleReport is the outcome of the obstacle pipeline for a single point.
type ObstacleReport struct {
	ImageURL  *string       `json:"image_url"`
	Obstacles []ObstacleTag `json:"obstacles"`
	Source    ImagerySource `json:"source"`
}

// HasImage reports whether imagery was found for the point.
func (r ObstacleReport) HasImage() bool {
	return r.ImageURL != nil
}

// NoImageryMessage is shown to users in place of obstacle tags when no image exists.
const NoImageryMessage = "Obstáculo encontrado pero no imagen disponible para el usuario"

// Labels returns the user-facing obstacle list. Reports without an image
// carry the fixed localized message instead of tags.
func (r ObstacleReport) Labels() []string {
	if !r.HasImage() {
		return []string{NoImageryMessage}
	}
	labels := make([]string, len(r.Obstacles))
	for i, t := range r.Obstacles {
		labels[i] = string(t)
	}
	return labels
}

// RealObstacles returns the tags that name an actual barrier, excluding the sentinel.
func (r ObstacleReport) RealObstacles() []ObstacleTag {
	var out []ObstacleTag
	for _, t := range r.Obstacles {
		if KnownObstacle(t) {
			out = append(out, t)
		}
	}
	return out
}

// PointAnnotation pairs a sampled route point with its obstacle report.
type PointAnnotation struct {
	Point  Coordinate     `json:"point"`
	Report ObstacleReport `json:"report"`
}

// AnnotatedRoute is a route plus obstacle reports for sampled points along it.
type AnnotatedRoute struct {
	Route       *CanonicalRoute   `json:"route"`
	Annotations []PointAnnotation `json:"annotations"`
}

// ObstacleEvent is published when a report contains at least one real obstacle.
type ObstacleEvent struct {
	Point     Coordinate    `json:"point"`
	ImageURL  string        `json:"image_url"`
	Obstacles []ObstacleTag `json:"obstacles"`
	Source    ImagerySource `json:"source"`
}
