// Package gpx writes GPS Exchange Format 1.1 tracks.
package gpx

import (
	"errors"
	"fmt"

	gpxgo "github.com/tkrajina/gpxgo/gpx"
)

const (
	Namespace = "http://www.topografix.com/GPX/1/1"
	Version   = "1.1"
)

// ErrTooFewPoints is returned for tracks that cannot describe a path.
var ErrTooFewPoints = errors.New("gpx: track needs at least 2 points")

// Point is a track point in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Encode serialises points as a single track with a single segment, in order.
// No elevation or time is written.
func Encode(creator, name string, points []Point) ([]byte, error) {
	if len(points) < 2 {
		return nil, ErrTooFewPoints
	}

	seg := gpxgo.GPXTrackSegment{Points: make([]gpxgo.GPXPoint, len(points))}
	for i, p := range points {
		seg.Points[i] = gpxgo.GPXPoint{Point: gpxgo.Point{Latitude: p.Lat, Longitude: p.Lon}}
	}

	doc := &gpxgo.GPX{
		XMLNs:   Namespace,
		Version: Version,
		Creator: creator,
		Tracks:  []gpxgo.GPXTrack{{Name: name, Segments: []gpxgo.GPXTrackSegment{seg}}},
	}

	out, err := doc.ToXml(gpxgo.ToXmlParams{Version: Version, Indent: true})
	if err != nil {
		return nil, fmt.Errorf("gpx encode: %w", err)
	}
	return out, nil
}
