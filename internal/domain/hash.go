package domain

import "math"

const (
	golden64 = 0x9E3779B97F4A7C15

	spatialMix       = 0xBF58476D1CE4E5B9
	spatialIncrement = 0x94D049BB133111EB

	// SpatialAmplitude bounds the per-cell baseline perturbation.
	SpatialAmplitude = 0.08
)

// SeedOffset hashes a coordinate's raw float64 bits into a seed perturbation.
// Distinct coordinates may collide; the mix only aims for avalanche.
func SeedOffset(c Coordinate) uint64 {
	latBits := math.Float64bits(c.Lat)
	lonBits := math.Float64bits(c.Lon)
	mixA := latBits * golden64
	mixB := (lonBits << 13) ^ (lonBits >> 7)
	return mixA ^ mixB
}

// SpatialOffset maps a coordinate to a stable value in
// [-SpatialAmplitude, SpatialAmplitude] used to vary the vegetation baseline.
func SpatialOffset(c Coordinate) float64 {
	h := SeedOffset(c)*spatialMix + spatialIncrement
	v := float64((h>>48)&0xFFFF) / 0xFFFF
	return (v*2 - 1) * SpatialAmplitude
}
