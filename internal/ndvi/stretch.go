package ndvi

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/stat"
)

// Default percentiles for the display stretch.
const (
	DefaultLowerPercentile = 2.0
	DefaultUpperPercentile = 98.0
)

// ValidatePercentiles checks that 0 <= lower < upper <= 100.
func ValidatePercentiles(lower, upper float64) error {
	if !(lower >= 0 && upper <= 100 && lower < upper) {
		return fmt.Errorf("percentiles must satisfy 0 <= lower < upper <= 100, got %v and %v", lower, upper)
	}
	return nil
}

// collapsedRange is the percentile spread below which the stretch falls back
// to the identity mapping.
const collapsedRange = 1e-9

// Stretch maps the index onto [-1, 1] using the lower/upper percentiles of
// the valid pixels, so contrast survives scenes with a narrow NDVI spread.
// Invalid pixels become NaN. With no valid pixels, non-finite percentiles or
// a collapsed range the valid values pass through unchanged.
func Stretch(idx *Index, lower, upper float64) []float64 {
	out := make([]float64, len(idx.Data))
	for i := range out {
		out[i] = math.NaN()
	}

	values := idx.ValidValues()
	if len(values) == 0 {
		return out
	}

	sort.Float64s(values)
	lo := stat.Quantile(lower/100, stat.LinInterp, values, nil)
	hi := stat.Quantile(upper/100, stat.LinInterp, values, nil)

	identity := math.IsNaN(lo) || math.IsInf(lo, 0) ||
		math.IsNaN(hi) || math.IsInf(hi, 0) ||
		scalar.EqualWithinAbs(lo, hi, collapsedRange)

	for i, v := range idx.Data {
		if !idx.Valid[i] {
			continue
		}
		if identity {
			out[i] = min(max(v, -1), 1)
			continue
		}
		s := 2*(v-lo)/(hi-lo) - 1
		out[i] = min(max(s, -1), 1)
	}

	return out
}
