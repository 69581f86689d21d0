package raster

import (
	"errors"
	"fmt"
	"sync"

	"github.com/airbusgeo/godal"
)

var registerOnce sync.Once

// RegisterDrivers registers the GDAL drivers once per process.
func RegisterDrivers() {
	registerOnce.Do(godal.RegisterAll)
}

func dropWarnings(ec godal.ErrorCategory, code int, msg string) error {
	if ec == godal.CE_Warning {
		return nil
	}
	return fmt.Errorf("gdal error %d: %s", code, msg)
}

// ReadBands opens a raster file and reads every band into memory. Pixels
// equal to a band's declared nodata value are marked invalid.
func ReadBands(path string) ([]*Band, error) {
	RegisterDrivers()

	ds, err := godal.Open(path, godal.ErrLogger(dropWarnings))
	if err != nil {
		return nil, fmt.Errorf("failed to open raster: %w", err)
	}
	defer ds.Close()

	structure := ds.Structure()
	width, height := structure.SizeX, structure.SizeY

	geoTransform, err := ds.GeoTransform()
	if err != nil {
		return nil, fmt.Errorf("failed to read geotransform: %w", err)
	}

	bands := make([]*Band, 0, structure.NBands)
	for i, gb := range ds.Bands() {
		band := NewBand(width, height, geoTransform)
		if err := gb.Read(0, 0, band.Data, width, height); err != nil {
			return nil, fmt.Errorf("failed to read band %d: %w", i+1, err)
		}

		if nodata, ok := gb.NoData(); ok {
			mask := make([]bool, len(band.Data))
			for j, v := range band.Data {
				mask[j] = v != nodata
			}
			if err := band.ApplyMask(mask); err != nil {
				return nil, err
			}
		}

		bands = append(bands, band)
	}

	return bands, nil
}

// WriteGeoTIFF writes data as a single-band Float32 GeoTIFF in the given CRS,
// recording nodata in the band metadata. The dataset is closed on every path;
// the caller owns removal of the file on error.
func WriteGeoTIFF(path string, data []float64, width, height int, geoTransform [6]float64, epsg int, nodata float64) (err error) {
	if len(data) != width*height {
		return fmt.Errorf("data has %d pixels, expected %dx%d", len(data), width, height)
	}

	RegisterDrivers()

	ds, err := godal.Create(godal.GTiff, path, 1, godal.Float32, width, height,
		godal.CreationOption("COMPRESS=DEFLATE", "PREDICTOR=3"),
		godal.ErrLogger(dropWarnings),
	)
	if err != nil {
		return fmt.Errorf("failed to create GeoTIFF: %w", err)
	}
	defer func() {
		if cerr := ds.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close GeoTIFF: %w", cerr))
		}
	}()

	if err := ds.SetGeoTransform(geoTransform); err != nil {
		return fmt.Errorf("failed to set geotransform: %w", err)
	}

	sr, err := godal.NewSpatialRefFromEPSG(epsg)
	if err != nil {
		return fmt.Errorf("failed to build spatial reference EPSG:%d: %w", epsg, err)
	}
	defer sr.Close()

	if err := ds.SetSpatialRef(sr); err != nil {
		return fmt.Errorf("failed to set spatial reference: %w", err)
	}

	band := ds.Bands()[0]
	if err := band.SetNoData(nodata); err != nil {
		return fmt.Errorf("failed to set nodata: %w", err)
	}

	buf := make([]float32, len(data))
	for i, v := range data {
		buf[i] = float32(v)
	}
	if err := band.Write(0, 0, buf, width, height); err != nil {
		return fmt.Errorf("failed to write band: %w", err)
	}

	return nil
}
