package output

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aydiaziz/ndvi-webapp/internal/geo"
	"github.com/aydiaziz/ndvi-webapp/internal/ndvi"
	"github.com/aydiaziz/ndvi-webapp/internal/raster"
)

const fixedID = "0b6f3d4e-8a4c-4a39-9d3a-2b3d6c1e5f70"

func testProduct(t *testing.T) Product {
	t.Helper()

	bounds := geo.NewBoundingBox(10.1815, 36.8065, 10.1915, 36.8165)
	grid := geo.Grid{Width: 4, Height: 3}

	red := raster.NewBand(grid.Width, grid.Height, bounds.GeoTransform(grid))
	nir := raster.NewBand(grid.Width, grid.Height, bounds.GeoTransform(grid))
	for i := range red.Data {
		red.Data[i] = 0.1
		nir.Data[i] = 0.1 + float64(i)*0.05
	}

	idx, stats, err := ndvi.Compute(red, nir)
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}

	return Product{
		Index:      idx,
		Image:      ndvi.ColorRamp(ndvi.Stretch(idx, 2, 98), idx.Width, idx.Height),
		Bounds:     bounds,
		Stats:      stats,
		Source:     "synthetic",
		Colormap:   ndvi.ColormapRamp,
		Resolution: 10,
		Start:      time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		End:        time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC),
	}
}

func newTestWriter(dir string) *Writer {
	w := NewWriter(dir)
	w.newID = func() string { return fixedID }
	w.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	return w
}

func TestWriter_Write(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ndvi")
	w := newTestWriter(dir)

	written, err := w.Write(context.Background(), testProduct(t))
	if err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	if written.ID != fixedID {
		t.Errorf("ID = %s, want %s", written.ID, fixedID)
	}
	if written.RasterPath != filepath.Join(dir, "ndvi_"+fixedID+".tif") {
		t.Errorf("RasterPath = %s", written.RasterPath)
	}

	for _, path := range []string{written.RasterPath, written.ImagePath, written.ItemPath} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected %s to exist: %v", path, err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temporary file left behind: %s", e.Name())
		}
	}

	want := [4]float64{36.8065, 10.1815, 36.8165, 10.1915}
	if written.Extent != want {
		t.Errorf("Extent = %v, want %v", written.Extent, want)
	}

	bands, err := raster.ReadBands(written.RasterPath)
	if err != nil {
		t.Fatalf("ReadBands() error: %v", err)
	}
	if bands[0].Width != 4 || bands[0].Height != 3 {
		t.Errorf("raster size = %dx%d, want 4x3", bands[0].Width, bands[0].Height)
	}

	f, err := os.Open(written.ImagePath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("failed to decode overlay: %v", err)
	}
	if format != "png" || cfg.Width != 4 || cfg.Height != 3 {
		t.Errorf("overlay = %s %dx%d, want png 4x3", format, cfg.Width, cfg.Height)
	}
}

func TestWriter_ReadItem(t *testing.T) {
	w := newTestWriter(t.TempDir())
	if _, err := w.Write(context.Background(), testProduct(t)); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	item, err := w.ReadItem(fixedID)
	if err != nil {
		t.Fatalf("ReadItem() error: %v", err)
	}

	if item.Id != fixedID {
		t.Errorf("item id = %s, want %s", item.Id, fixedID)
	}
	if len(item.Bbox) != 4 || item.Bbox[0] != 10.1815 || item.Bbox[3] != 36.8165 {
		t.Errorf("item bbox = %v", item.Bbox)
	}
	if item.Properties["ndvi:source"] != "synthetic" {
		t.Errorf("ndvi:source = %v", item.Properties["ndvi:source"])
	}
	if item.Properties["start_datetime"] != "2024-05-01T00:00:00Z" {
		t.Errorf("start_datetime = %v", item.Properties["start_datetime"])
	}
	if a := item.Assets[AssetIndex]; a == nil || a.Href != "./ndvi_"+fixedID+".tif" {
		t.Errorf("unexpected index asset: %+v", a)
	}
	if a := item.Assets[AssetOverlay]; a == nil || a.Type != MediaTypePNG {
		t.Errorf("unexpected overlay asset: %+v", a)
	}
}

func TestWriter_ReadItem_Errors(t *testing.T) {
	w := newTestWriter(t.TempDir())

	if _, err := w.ReadItem("../../etc/passwd"); !errors.Is(err, ErrInvalidItemID) {
		t.Errorf("expected ErrInvalidItemID, got %v", err)
	}
	if _, err := w.ReadItem(fixedID); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
}

func TestWriter_Write_CleansUpOnFailure(t *testing.T) {
	dir := t.TempDir()
	w := newTestWriter(dir)

	// A directory in the way of the item sidecar makes the last rename fail
	// after the raster and overlay are already in place.
	blocker := filepath.Join(dir, ItemName(fixedID))
	if err := os.MkdirAll(filepath.Join(blocker, "occupied"), 0o755); err != nil {
		t.Fatal(err)
	}

	if _, err := w.Write(context.Background(), testProduct(t)); err == nil {
		t.Fatal("expected Write() to fail")
	}

	for _, name := range []string{RasterName(fixedID), ImageName(fixedID), RasterName(fixedID) + ".tmp",
		ImageName(fixedID) + ".tmp", ItemName(fixedID) + ".tmp"} {
		if _, err := os.Stat(filepath.Join(dir, name)); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected %s to be removed, stat err = %v", name, err)
		}
	}
}

func TestWriter_Write_UniqueIDs(t *testing.T) {
	w := NewWriter(t.TempDir())
	p := testProduct(t)

	first, err := w.Write(context.Background(), p)
	if err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	second, err := w.Write(context.Background(), p)
	if err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	if first.ID == second.ID || first.RasterPath == second.RasterPath {
		t.Errorf("expected distinct outputs, got %s twice", first.ID)
	}
}

func TestWriter_Write_IncompleteProduct(t *testing.T) {
	w := NewWriter(t.TempDir())
	if _, err := w.Write(context.Background(), Product{}); err == nil {
		t.Error("expected error for empty product")
	}
}
