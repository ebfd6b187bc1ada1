package domain

import "math"

// Coordinate is a WGS-84 latitude/longitude pair in degrees. Two coordinates
// are the same cell only if both fields are bit-for-bit equal.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// BoundingBox is a lat/lon rectangle. Min and max may be given in either order.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// Edges returns the normalized top, bottom, left and right edges.
func (b BoundingBox) Edges() (top, bottom, left, right float64) {
	return math.Max(b.MinLat, b.MaxLat), math.Min(b.MinLat, b.MaxLat),
		math.Min(b.MinLon, b.MaxLon), math.Max(b.MinLon, b.MaxLon)
}

// Valid reports whether every edge is finite and within WGS-84 bounds.
func (b BoundingBox) Valid() bool {
	for _, v := range []float64{b.MinLat, b.MaxLat, b.MinLon, b.MaxLon} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	top, bottom, left, right := b.Edges()
	return bottom >= -90 && top <= 90 && left >= -180 && right <= 180
}
