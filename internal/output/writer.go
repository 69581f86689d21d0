// Package output persists NDVI products: a GeoTIFF of the index, a PNG
// overlay and a STAC item describing both.
package output

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fogleman/gg"
	"github.com/google/uuid"

	"github.com/aydiaziz/ndvi-webapp/internal/geo"
	"github.com/aydiaziz/ndvi-webapp/internal/ndvi"
	"github.com/aydiaziz/ndvi-webapp/internal/raster"
)

// Product is everything a single NDVI run writes out.
type Product struct {
	Index      *ndvi.Index
	Image      image.Image
	Bounds     geo.BoundingBox
	Stats      ndvi.Statistics
	Source     string
	Colormap   ndvi.Colormap
	Resolution float64
	Start      time.Time
	End        time.Time
}

// Written reports the files of one product.
type Written struct {
	ID         string
	RasterPath string
	ImagePath  string
	ItemPath   string

	// Extent is [south, west, north, east] in degrees.
	Extent [4]float64
}

// RasterName returns the file name of the index raster for id.
func RasterName(id string) string { return "ndvi_" + id + ".tif" }

// ImageName returns the file name of the overlay image for id.
func ImageName(id string) string { return "ndvi_" + id + ".png" }

// ItemName returns the file name of the STAC item for id.
func ItemName(id string) string { return "ndvi_" + id + ".json" }

// Writer writes products into a single directory.
type Writer struct {
	dir    string
	newID  func() string
	now    func() time.Time
	logger *slog.Logger
}

// NewWriter creates a writer rooted at dir. The directory is created on
// first write.
func NewWriter(dir string) *Writer {
	return &Writer{
		dir:    dir,
		newID:  uuid.NewString,
		now:    time.Now,
		logger: slog.Default(),
	}
}

// WithLogger sets a custom logger for the writer
func (w *Writer) WithLogger(logger *slog.Logger) *Writer {
	w.logger = logger
	return w
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

type outputFile struct {
	name  string
	write func(path string) error
}

// Write persists p under a fresh identifier. Every file is written to a
// temporary sibling and renamed into place; on failure all files of the
// call are removed.
func (w *Writer) Write(ctx context.Context, p Product) (_ *Written, err error) {
	if p.Index == nil || p.Image == nil {
		return nil, errors.New("product is missing the index or the image")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	id := w.newID()

	item, err := BuildItem(id, p, w.now())
	if err != nil {
		return nil, err
	}

	files := []outputFile{
		{
			name: RasterName(id),
			write: func(path string) error {
				idx := p.Index
				return raster.WriteGeoTIFF(path, idx.Data, idx.Width, idx.Height, idx.GeoTransform, idx.EPSG, idx.NoData)
			},
		},
		{
			name: ImageName(id),
			write: func(path string) error {
				return gg.SavePNG(path, p.Image)
			},
		},
		{
			name: ItemName(id),
			write: func(path string) error {
				data, err := json.MarshalIndent(item, "", "  ")
				if err != nil {
					return err
				}
				return os.WriteFile(path, data, 0o644)
			},
		},
	}

	var created []string
	defer func() {
		if err == nil {
			return
		}
		for _, path := range created {
			if rerr := os.Remove(path); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
				w.logger.WarnContext(ctx, "failed to remove partial output",
					slog.String("path", path),
					slog.String("error", rerr.Error()),
				)
			}
		}
	}()

	for _, f := range files {
		tmp := filepath.Join(w.dir, f.name+".tmp")
		created = append(created, tmp)
		if err := f.write(tmp); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", f.name, err)
		}
	}

	for _, f := range files {
		final := filepath.Join(w.dir, f.name)
		if err := os.Rename(filepath.Join(w.dir, f.name+".tmp"), final); err != nil {
			return nil, fmt.Errorf("failed to move %s into place: %w", f.name, err)
		}
		created = append(created, final)
	}

	w.logger.DebugContext(ctx, "product written",
		slog.String("id", id),
		slog.String("dir", w.dir),
	)

	return &Written{
		ID:         id,
		RasterPath: filepath.Join(w.dir, RasterName(id)),
		ImagePath:  filepath.Join(w.dir, ImageName(id)),
		ItemPath:   filepath.Join(w.dir, ItemName(id)),
		Extent:     p.Bounds.Extent(),
	}, nil
}
