package acquire

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aydiaziz/ndvi-webapp/internal/geo"
	"github.com/aydiaziz/ndvi-webapp/internal/raster"
	"github.com/aydiaziz/ndvi-webapp/internal/sentinelhub"
)

// Scene classification classes that do not show a clear view of the ground:
// cloud shadow, unclassified, medium and high probability cloud, thin cirrus
// and snow.
var obscuredSCL = map[int]bool{
	3:  true,
	7:  true,
	8:  true,
	9:  true,
	10: true,
	11: true,
}

// ProcessClient is the subset of sentinelhub.Client used by Live.
type ProcessClient interface {
	Configured() bool
	Collection() string
	Process(ctx context.Context, req sentinelhub.ProcessRequest) ([]*raster.Band, error)
}

// Live acquires bands from the Sentinel Hub Process API.
type Live struct {
	client ProcessClient
	logger *slog.Logger
}

// NewLive wraps a Process API client.
func NewLive(client ProcessClient, logger *slog.Logger) *Live {
	if logger == nil {
		logger = slog.Default()
	}
	return &Live{client: client, logger: logger}
}

// Name implements Acquirer.
func (l *Live) Name() string { return "sentinelhub" }

// Acquire implements Acquirer. Every failure is logged and reported as
// unavailable.
func (l *Live) Acquire(ctx context.Context, req Request) (*Bands, bool) {
	if !l.client.Configured() {
		l.logger.DebugContext(ctx, "sentinel hub credentials not configured, skipping live acquisition")
		return nil, false
	}

	bands, err := l.client.Process(ctx, sentinelhub.ProcessRequest{
		BBox:   req.Bounds.BBox(),
		Width:  req.Grid.Width,
		Height: req.Grid.Height,
		From:   req.TimeRange.From,
		To:     req.TimeRange.To,
	})
	if err != nil {
		l.logger.WarnContext(ctx, "live acquisition unavailable",
			slog.String("error", err.Error()),
		)
		return nil, false
	}

	if len(bands) != sentinelhub.BandCount {
		l.logger.WarnContext(ctx, "live acquisition returned unexpected band count",
			slog.Int("bands", len(bands)),
		)
		return nil, false
	}

	result, err := clearSkyBands(bands, req.Grid, req.GeoTransform())
	if err != nil {
		l.logger.WarnContext(ctx, "live acquisition returned unusable bands",
			slog.String("error", err.Error()),
		)
		return nil, false
	}
	result.Source = l.client.Collection()

	valid := result.Red.ValidCount()
	if valid == 0 {
		l.logger.WarnContext(ctx, "live acquisition has no clear pixels",
			slog.Int("pixels", len(result.Red.Data)),
		)
	}

	l.logger.InfoContext(ctx, "live acquisition succeeded",
		slog.String("source", result.Source),
		slog.Int("valid_pixels", valid),
	)

	return result, true
}

// clearSkyBands masks red and NIR wherever the data mask is unset or the
// scene classification is obscured. The geotransform of the request grid
// replaces whatever the response carried.
func clearSkyBands(bands []*raster.Band, grid geo.Grid, geoTransform [6]float64) (*Bands, error) {
	red := bands[sentinelhub.BandRed]
	nir := bands[sentinelhub.BandNIR]
	dataMask := bands[sentinelhub.BandDataMask]
	scl := bands[sentinelhub.BandSCL]

	if red.Width != grid.Width || red.Height != grid.Height {
		return nil, fmt.Errorf("got %dx%d raster, expected %dx%d", red.Width, red.Height, grid.Width, grid.Height)
	}
	for _, b := range bands[1:] {
		if !red.SameShape(b) {
			return nil, fmt.Errorf("band shapes differ: %dx%d and %dx%d", red.Width, red.Height, b.Width, b.Height)
		}
	}

	mask := make([]bool, len(red.Data))
	for i := range mask {
		mask[i] = dataMask.IsValid(i) && dataMask.Data[i] > 0.5 &&
			scl.IsValid(i) && !obscuredSCL[int(scl.Data[i])]
	}

	for _, b := range []*raster.Band{red, nir} {
		b.GeoTransform = geoTransform
		b.EPSG = raster.EPSGWGS84
		if err := b.ApplyMask(mask); err != nil {
			return nil, err
		}
	}

	return &Bands{Red: red, NIR: nir}, nil
}
