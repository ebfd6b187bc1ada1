package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeedOffset(t *testing.T) {
	assert.Equal(t, uint64(0), SeedOffset(Coordinate{Lat: 0, Lon: 0}))
	assert.Equal(t, uint64(0x1ed8040000000000), SeedOffset(Coordinate{Lat: 1.5, Lon: -2.25}))

	c := Coordinate{Lat: 37.5, Lon: -120.25}
	assert.Equal(t, SeedOffset(c), SeedOffset(c))
	assert.NotEqual(t, SeedOffset(c), SeedOffset(Coordinate{Lat: -120.25, Lon: 37.5}))
}

func TestSpatialOffset(t *testing.T) {
	assert.InDelta(t, -0.028351262684061948, SpatialOffset(Coordinate{Lat: 37.5, Lon: -120.25}), 1e-15)

	box := BoundingBox{MinLat: -60, MaxLat: 60, MinLon: -170, MaxLon: 170}
	for _, c := range BuildGrid(box, 500000) {
		v := SpatialOffset(c)
		assert.GreaterOrEqual(t, v, -SpatialAmplitude)
		assert.LessOrEqual(t, v, SpatialAmplitude)
	}
}
