// Package domain models synthetic wildfire-risk samples over a geographic grid.
//
// # Grid
//
// A bounding box is covered with cells sized by a spacing in meters. Latitude
// steps use a fixed 111320 meters per degree; longitude steps are scaled by the
// cosine of the box's mid-latitude. Cell centers are emitted latitude-major:
//
//	for i in [0, latCount):
//	    for j in [0, lonCount):
//	        (bottom + (i+0.5)*dLat, left + (j+0.5)*dLon)
//
// That order is the canonical sequence every downstream stage preserves.
//
// # Determinism
//
// Every cell gets its own random stream. The stream seed is the run seed plus a
// hash of the coordinate's float64 bit patterns (wrapping uint64 addition), so
// a record depends only on (coordinate, options). Generation order, chunk size,
// and goroutine scheduling never change the output.
//
// Within a cell the draw order is fixed:
//
//	1. Gaussian vegetation noise (two uniforms)
//	2. Gaussian temperature noise (two uniforms)
//	3. Uniform burned draw
//
// # Ranges
//
// Vegetation index is clamped to [-1, 1], surface temperature to [-50, 70] °C,
// and burn probability to [0, 1]. NaN produced by extreme options clamps to the
// lower bound.
//
// # Risk
//
// A record's fire probability comes from a pluggable Classifier. When none is
// configured, or it fails, the fallback formula is used:
//
//	ndvi  = clamp((0.5 - vegetationIndex) / 0.5, 0, 1)
//	temp  = clamp((surfaceTempC - 25) / 30, 0, 1)
//	score = clamp(0.5*burnProbability + 0.35*ndvi + 0.15*temp, 0, 1)
package domain
