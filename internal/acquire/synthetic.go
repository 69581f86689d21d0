package acquire

import (
	"context"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/aydiaziz/ndvi-webapp/internal/raster"
)

// SyntheticSource is the Bands.Source of generated bands.
const SyntheticSource = "synthetic"

const (
	syntheticSeed     = 42
	syntheticNoise    = 0.02
	syntheticGradient = 0.1

	// Base reflectances give a moderately vegetated NDVI around 0.4.
	syntheticRedBase = 0.2
	syntheticNIRBase = 0.5
)

// Synthetic generates plausible bands from a fixed seed. It never fails and
// identical requests yield identical pixels.
type Synthetic struct{}

// NewSynthetic returns the synthetic strategy.
func NewSynthetic() *Synthetic {
	return &Synthetic{}
}

// Name implements Acquirer.
func (s *Synthetic) Name() string { return SyntheticSource }

// Acquire implements Acquirer.
func (s *Synthetic) Acquire(_ context.Context, req Request) (*Bands, bool) {
	return &Bands{
		Red:    syntheticBand(req, syntheticRedBase),
		NIR:    syntheticBand(req, syntheticNIRBase),
		Source: SyntheticSource,
	}, true
}

// syntheticBand fills base + a west-to-east gradient + Gaussian noise,
// clipped to [0, 1]. Every band draws from a freshly seeded source.
func syntheticBand(req Request, base float64) *raster.Band {
	width, height := req.Grid.Width, req.Grid.Height
	band := raster.NewBand(width, height, req.GeoTransform())

	gradient := make([]float64, width)
	if width > 1 {
		floats.Span(gradient, 0, syntheticGradient)
	}

	noise := distuv.Normal{
		Mu:    0,
		Sigma: syntheticNoise,
		Src:   rand.NewPCG(syntheticSeed, 0),
	}

	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			v := base + gradient[col] + noise.Rand()
			band.Data[row*width+col] = min(max(v, 0), 1)
		}
	}

	return band
}
