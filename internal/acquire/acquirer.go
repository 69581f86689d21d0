// Package acquire provides red and near-infrared bands for a region, either
// from Sentinel Hub or from a deterministic synthetic generator.
package acquire

import (
	"context"

	"github.com/aydiaziz/ndvi-webapp/internal/geo"
	"github.com/aydiaziz/ndvi-webapp/internal/raster"
)

// Request describes the region and window bands are wanted for.
type Request struct {
	Bounds    geo.BoundingBox
	Grid      geo.Grid
	TimeRange TimeRange
}

// GeoTransform returns the north-up transform of the requested grid.
func (r Request) GeoTransform() [6]float64 {
	return r.Bounds.GeoTransform(r.Grid)
}

// Bands is a co-registered red/NIR pair.
type Bands struct {
	Red *raster.Band
	NIR *raster.Band

	// Source names where the bands came from, e.g. "sentinel-2-l2a" or
	// "synthetic".
	Source string
}

// Acquirer is one strategy for obtaining bands.
type Acquirer interface {
	// Name identifies the strategy in logs.
	Name() string

	// Acquire returns the bands, or ok == false when the strategy is
	// unavailable for this request. Unavailability is not an error.
	Acquire(ctx context.Context, req Request) (bands *Bands, ok bool)
}
