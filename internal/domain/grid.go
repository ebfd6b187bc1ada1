package domain

import "math"

const (
	// MetersPerDegreeLat is the fixed meridional length of one degree.
	MetersPerDegreeLat = 111320.0

	// minLonScale floors meters-per-degree-longitude near the poles.
	minLonScale = 1e-6

	// minSpacingMeters floors non-positive or NaN spacings.
	minSpacingMeters = 1.0
)

// GridDims returns the number of latitude rows and longitude columns that
// BuildGrid produces for the box and spacing. Both are at least 1.
func GridDims(box BoundingBox, spacingMeters float64) (latCount, lonCount int) {
	top, bottom, left, right := box.Edges()
	latStep, lonStep := gridSteps(top, bottom, spacingMeters)
	return cellCount(top-bottom, latStep), cellCount(right-left, lonStep)
}

// BuildGrid covers the box with cell centers spaced roughly spacingMeters
// apart. The result is latitude-major (rows from south to north, columns from
// west to east within a row). A zero-area box yields a single cell.
func BuildGrid(box BoundingBox, spacingMeters float64) []Coordinate {
	top, bottom, left, right := box.Edges()
	latCount, lonCount := GridDims(box, spacingMeters)

	dLat := (top - bottom) / float64(latCount)
	dLon := (right - left) / float64(lonCount)

	coords := make([]Coordinate, 0, latCount*lonCount)
	for i := 0; i < latCount; i++ {
		lat := bottom + (float64(i)+0.5)*dLat
		for j := 0; j < lonCount; j++ {
			coords = append(coords, Coordinate{
				Lat: lat,
				Lon: left + (float64(j)+0.5)*dLon,
			})
		}
	}
	return coords
}

func gridSteps(top, bottom, spacingMeters float64) (latStep, lonStep float64) {
	if !(spacingMeters >= minSpacingMeters) {
		spacingMeters = minSpacingMeters
	}
	midLat := (top + bottom) / 2 * math.Pi / 180
	lonScale := math.Max(MetersPerDegreeLat*math.Cos(midLat), minLonScale)
	return spacingMeters / MetersPerDegreeLat, spacingMeters / lonScale
}

func cellCount(extent, step float64) int {
	n := math.Ceil(extent / step)
	if !(n >= 1) {
		return 1
	}
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}
