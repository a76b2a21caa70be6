package domain

import "math"

// earthRadiusKm is the mean Earth radius used for great-circle distances.
const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two coordinates in
// kilometers.
func HaversineKm(a, b Geo) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// tileSize is the pixel size of one web-mercator tile at zoom 0.
const tileSize = 256.0

// Point is a position in screen space (web-mercator pixels at some zoom).
type Point struct {
	X float64
	Y float64
}

// Project maps a coordinate to web-mercator pixel space at the given zoom
// level. Latitude is clamped to the mercator limit (±85.05°) so poles do not
// produce infinities.
func Project(g Geo, zoom int) Point {
	lat := g.Lat
	if lat > 85.05112878 {
		lat = 85.05112878
	}
	if lat < -85.05112878 {
		lat = -85.05112878
	}

	scale := tileSize * math.Exp2(float64(zoom))
	latRad := lat * math.Pi / 180

	x := (g.Lon + 180) / 360 * scale
	y := (1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2 * scale
	return Point{X: x, Y: y}
}

// Dist returns the Euclidean distance between two screen-space points.
func (p Point) Dist(q Point) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Bounds is a geographic viewport rectangle.
type Bounds struct {
	West  float64
	South float64
	East  float64
	North float64
}

// Contains reports whether the coordinate lies inside the viewport. A zero
// Bounds contains everything, so callers can skip viewport filtering by
// passing the zero value.
func (b Bounds) Contains(g Geo) bool {
	if b == (Bounds{}) {
		return true
	}
	return g.Lat >= b.South && g.Lat <= b.North && g.Lon >= b.West && g.Lon <= b.East
}
