package raster

import (
	"math"
	"path/filepath"
	"testing"
)

func TestBand_ApplyMask(t *testing.T) {
	band := NewBand(2, 2, [6]float64{})
	copy(band.Data, []float64{0.1, 0.2, 0.3, 0.4})

	if err := band.ApplyMask([]bool{true, false, true, false}); err != nil {
		t.Fatalf("ApplyMask() error: %v", err)
	}

	if band.ValidCount() != 2 {
		t.Errorf("ValidCount() = %d, want 2", band.ValidCount())
	}
	if !math.IsNaN(band.Data[1]) || !math.IsNaN(band.Data[3]) {
		t.Errorf("masked pixels should be NaN, got %v", band.Data)
	}
	if band.Data[0] != 0.1 || band.Data[2] != 0.3 {
		t.Errorf("unmasked pixels changed: %v", band.Data)
	}
}

func TestBand_ApplyMask_SizeMismatch(t *testing.T) {
	band := NewBand(2, 2, [6]float64{})
	if err := band.ApplyMask([]bool{true}); err == nil {
		t.Error("ApplyMask() should fail on size mismatch")
	}
}

func TestBand_IsValid_NaNWithoutMask(t *testing.T) {
	band := NewBand(2, 1, [6]float64{})
	band.Data[0] = math.NaN()

	if band.IsValid(0) {
		t.Error("NaN pixel should be invalid even without a mask")
	}
	if !band.IsValid(1) {
		t.Error("finite pixel without mask should be valid")
	}
}

func TestBand_SameShape(t *testing.T) {
	a := NewBand(3, 2, [6]float64{})
	b := NewBand(3, 2, [6]float64{})
	c := NewBand(2, 3, [6]float64{})

	if !a.SameShape(b) {
		t.Error("identical grids should match")
	}
	if a.SameShape(c) {
		t.Error("transposed grids should not match")
	}
}

func TestWriteGeoTIFF_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.tif")
	gt := [6]float64{10, 0.001, 0, 37, 0, -0.001}
	data := []float64{-1, -0.5, 0, 0.5, -9999, 1}

	if err := WriteGeoTIFF(path, data, 3, 2, gt, EPSGWGS84, -9999); err != nil {
		t.Fatalf("WriteGeoTIFF() error: %v", err)
	}

	bands, err := ReadBands(path)
	if err != nil {
		t.Fatalf("ReadBands() error: %v", err)
	}
	if len(bands) != 1 {
		t.Fatalf("expected 1 band, got %d", len(bands))
	}

	band := bands[0]
	if band.Width != 3 || band.Height != 2 {
		t.Errorf("size = %dx%d, want 3x2", band.Width, band.Height)
	}
	for i := range gt {
		if math.Abs(band.GeoTransform[i]-gt[i]) > 1e-12 {
			t.Errorf("GeoTransform[%d] = %v, want %v", i, band.GeoTransform[i], gt[i])
		}
	}
	if band.IsValid(4) {
		t.Error("nodata pixel should be read back as invalid")
	}
	if band.ValidCount() != 5 {
		t.Errorf("ValidCount() = %d, want 5", band.ValidCount())
	}
	if band.Data[3] != 0.5 {
		t.Errorf("pixel 3 = %v, want 0.5", band.Data[3])
	}
}

func TestWriteGeoTIFF_SizeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.tif")
	if err := WriteGeoTIFF(path, []float64{1, 2}, 3, 3, [6]float64{}, EPSGWGS84, -9999); err == nil {
		t.Error("WriteGeoTIFF() should fail when data does not match the grid")
	}
}
