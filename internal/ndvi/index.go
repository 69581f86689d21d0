// Package ndvi computes the Normalized Difference Vegetation Index and turns
// it into a display image.
package ndvi

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/aydiaziz/ndvi-webapp/internal/raster"
)

// NoDataValue marks invalid pixels in the index raster.
const NoDataValue = -9999.0

// epsilon keeps the denominator away from zero for tiny reflectances.
const epsilon = 1e-6

// Index is an NDVI raster. Valid pixels lie in [-1, 1]; invalid pixels hold
// NoData.
type Index struct {
	Width        int
	Height       int
	Data         []float64
	Valid        []bool
	NoData       float64
	GeoTransform [6]float64
	EPSG         int
}

// ValidValues returns the values of valid pixels in raster order.
func (idx *Index) ValidValues() []float64 {
	values := make([]float64, 0, len(idx.Data))
	for i, v := range idx.Data {
		if idx.Valid[i] {
			values = append(values, v)
		}
	}
	return values
}

// Statistics summarise the valid pixels of an Index. All fields are nil when
// no pixel is valid.
type Statistics struct {
	Min  *float64 `json:"min"`
	Max  *float64 `json:"max"`
	Mean *float64 `json:"mean"`
}

// Empty reports whether the statistics are absent.
func (s Statistics) Empty() bool {
	return s.Min == nil
}

// Compute derives NDVI from co-registered red and NIR bands. A pixel is
// invalid when either input is invalid or nir + red == 0; otherwise it is
// (nir - red) / (nir + red + epsilon) clipped to [-1, 1].
func Compute(red, nir *raster.Band) (*Index, Statistics, error) {
	if !red.SameShape(nir) {
		return nil, Statistics{}, fmt.Errorf("band shapes differ: red %dx%d, nir %dx%d",
			red.Width, red.Height, nir.Width, nir.Height)
	}

	idx := &Index{
		Width:        red.Width,
		Height:       red.Height,
		Data:         make([]float64, len(red.Data)),
		Valid:        make([]bool, len(red.Data)),
		NoData:       NoDataValue,
		GeoTransform: red.GeoTransform,
		EPSG:         red.EPSG,
	}

	for i := range red.Data {
		idx.Data[i] = NoDataValue

		if !red.IsValid(i) || !nir.IsValid(i) {
			continue
		}

		r, n := red.Data[i], nir.Data[i]
		sum := n + r
		if sum == 0 {
			continue
		}

		// sum == -epsilon yields ±Inf, which the clip maps to ±1.
		v := (n - r) / (sum + epsilon)
		if math.IsNaN(v) {
			continue
		}

		idx.Data[i] = min(max(v, -1), 1)
		idx.Valid[i] = true
	}

	return idx, computeStatistics(idx.ValidValues()), nil
}

func computeStatistics(values []float64) Statistics {
	if len(values) == 0 {
		return Statistics{}
	}

	lo := floats.Min(values)
	hi := floats.Max(values)
	mean := stat.Mean(values, nil)

	return Statistics{Min: &lo, Max: &hi, Mean: &mean}
}
