// Package pipeline runs one NDVI request end to end: bounds, acquisition,
// index, stretch, rendering and output.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aydiaziz/ndvi-webapp/internal/acquire"
	"github.com/aydiaziz/ndvi-webapp/internal/geo"
	"github.com/aydiaziz/ndvi-webapp/internal/ndvi"
	"github.com/aydiaziz/ndvi-webapp/internal/output"
	"github.com/aydiaziz/ndvi-webapp/pkg/geojson"
)

// ErrInvalidRequest marks request parameters the caller must fix.
var ErrInvalidRequest = errors.New("invalid request")

// IsInputError reports whether err was caused by the caller's input.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) || errors.Is(err, geo.ErrInvalidGeometry)
}

// BandSource provides red/NIR bands for a request.
type BandSource interface {
	Acquire(ctx context.Context, req acquire.Request) (*acquire.Bands, error)
}

// ProductWriter persists a finished product.
type ProductWriter interface {
	Write(ctx context.Context, p output.Product) (*output.Written, error)
}

// Options are the service-wide defaults of the pipeline.
type Options struct {
	Resolution      float64
	LowerPercentile float64
	UpperPercentile float64
	Colormap        ndvi.Colormap
	TimeStart       string
	TimeEnd         string
	LookbackDays    int
}

// Request is a single NDVI computation. Empty fields fall back to Options.
type Request struct {
	Geometry   *geojson.Geometry
	TimeStart  string
	TimeEnd    string
	Resolution float64
	Colormap   string
}

// Result describes the written product.
type Result struct {
	*output.Written

	Stats  ndvi.Statistics
	Source string
}

// Processor runs requests against a band source and a writer.
type Processor struct {
	source BandSource
	writer ProductWriter
	opts   Options
	now    func() time.Time
	logger *slog.Logger
}

// NewProcessor creates a processor. Zero-valued options take the package
// defaults.
func NewProcessor(source BandSource, writer ProductWriter, opts Options, logger *slog.Logger) *Processor {
	if opts.Resolution <= 0 {
		opts.Resolution = 10
	}
	if opts.LowerPercentile == 0 && opts.UpperPercentile == 0 {
		opts.LowerPercentile = ndvi.DefaultLowerPercentile
		opts.UpperPercentile = ndvi.DefaultUpperPercentile
	}
	if opts.Colormap == "" {
		opts.Colormap = ndvi.ColormapRamp
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		source: source,
		writer: writer,
		opts:   opts,
		now:    time.Now,
		logger: logger,
	}
}

// Process computes and writes the NDVI product for req.
func (p *Processor) Process(ctx context.Context, req Request) (*Result, error) {
	bounds, err := geo.BoundsFromGeometry(req.Geometry)
	if err != nil {
		return nil, err
	}

	resolution := req.Resolution
	if resolution == 0 {
		resolution = p.opts.Resolution
	}
	grid, err := geo.NewGrid(bounds, resolution)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	start, end := req.TimeStart, req.TimeEnd
	if start == "" && end == "" {
		start, end = p.opts.TimeStart, p.opts.TimeEnd
	}
	window, err := acquire.ResolveTimeRange(start, end, p.opts.LookbackDays, p.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	colormap, err := ndvi.ParseColormap(req.Colormap, p.opts.Colormap)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	p.logger.DebugContext(ctx, "processing ndvi request",
		slog.Any("bbox", bounds.BBox()),
		slog.Int("width", grid.Width),
		slog.Int("height", grid.Height),
		slog.Float64("resolution", resolution),
	)

	bands, err := p.source.Acquire(ctx, acquire.Request{
		Bounds:    bounds,
		Grid:      grid,
		TimeRange: window,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to acquire bands: %w", err)
	}

	idx, stats, err := ndvi.Compute(bands.Red, bands.NIR)
	if err != nil {
		return nil, fmt.Errorf("failed to compute index: %w", err)
	}

	stretched := ndvi.Stretch(idx, p.opts.LowerPercentile, p.opts.UpperPercentile)
	img := ndvi.Render(stretched, idx.Width, idx.Height, colormap)

	written, err := p.writer.Write(ctx, output.Product{
		Index:      idx,
		Image:      img,
		Bounds:     bounds,
		Stats:      stats,
		Source:     bands.Source,
		Colormap:   colormap,
		Resolution: resolution,
		Start:      window.From,
		End:        window.To,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to write outputs: %w", err)
	}

	p.logger.InfoContext(ctx, "ndvi computed",
		slog.String("id", written.ID),
		slog.String("source", bands.Source),
		slog.Bool("has_stats", !stats.Empty()),
	)

	return &Result{Written: written, Stats: stats, Source: bands.Source}, nil
}
