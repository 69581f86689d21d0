package geo

import (
	"fmt"
	"math"
)

const (
	// MinGridSize keeps every axis large enough for percentile and
	// gradient computations to stay well-defined.
	MinGridSize = 32

	// MaxGridSize is the largest output dimension the Process API accepts.
	MaxGridSize = 2500

	metersPerDegreeLat = 110574.0
	metersPerDegreeLon = 111320.0
)

// Grid is the pixel size of a raster covering a BoundingBox.
type Grid struct {
	Width  int
	Height int
}

// Pixels returns the number of pixels in the grid.
func (g Grid) Pixels() int {
	return g.Width * g.Height
}

// NewGrid sizes a grid so each pixel covers roughly resolution metres on the
// ground. The longitude span is scaled by the cosine of the centre latitude.
func NewGrid(b BoundingBox, resolution float64) (Grid, error) {
	if math.IsNaN(resolution) || math.IsInf(resolution, 0) || resolution <= 0 {
		return Grid{}, fmt.Errorf("resolution must be a positive number, got %v", resolution)
	}

	midLat := (b.South() + b.North()) / 2
	widthMeters := (b.East() - b.West()) * metersPerDegreeLon * math.Cos(midLat*math.Pi/180)
	heightMeters := (b.North() - b.South()) * metersPerDegreeLat

	return Grid{
		Width:  clampPixels(widthMeters / resolution),
		Height: clampPixels(heightMeters / resolution),
	}, nil
}

func clampPixels(v float64) int {
	n := int(math.Round(v))
	if n < MinGridSize {
		return MinGridSize
	}
	if n > MaxGridSize {
		return MaxGridSize
	}
	return n
}
