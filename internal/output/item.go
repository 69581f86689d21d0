package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/planetlabs/go-stac"

	"github.com/aydiaziz/ndvi-webapp/pkg/geojson"
)

// STACVersion is the version written into item sidecars.
const STACVersion = "1.0.0"

// Asset keys of an NDVI item.
const (
	AssetIndex   = "ndvi"
	AssetOverlay = "overlay"
)

// Media types of the written files.
const (
	MediaTypeGeoTIFF = "image/tiff; application=geotiff"
	MediaTypePNG     = "image/png"
	MediaTypeGeoJSON = "application/geo+json"
)

var (
	// ErrItemNotFound is returned when no sidecar exists for an id.
	ErrItemNotFound = errors.New("item not found")

	// ErrInvalidItemID is returned for ids that are not UUIDs.
	ErrInvalidItemID = errors.New("invalid item id")
)

// BuildItem describes a written product as a STAC Item. Asset hrefs are
// relative to the sidecar so the output directory stays relocatable.
func BuildItem(id string, p Product, created time.Time) (*stac.Item, error) {
	bbox := p.Bounds.BBox()

	geom, err := geojson.NewPolygonFromBBox(bbox[:])
	if err != nil {
		return nil, fmt.Errorf("failed to build footprint: %w", err)
	}

	item := &stac.Item{
		Version:    STACVersion,
		Id:         id,
		Geometry:   geom,
		Bbox:       bbox[:],
		Properties: make(map[string]any),
		Assets:     make(map[string]*stac.Asset),
		Links:      make([]*stac.Link, 0),
	}

	// A search window rather than an acquisition instant.
	item.Properties["datetime"] = nil
	item.Properties["start_datetime"] = p.Start.UTC().Format(time.RFC3339)
	item.Properties["end_datetime"] = p.End.UTC().Format(time.RFC3339)
	item.Properties["created"] = created.UTC().Format(time.RFC3339)

	item.Properties["ndvi:source"] = p.Source
	item.Properties["ndvi:colormap"] = string(p.Colormap)
	item.Properties["ndvi:min"] = p.Stats.Min
	item.Properties["ndvi:max"] = p.Stats.Max
	item.Properties["ndvi:mean"] = p.Stats.Mean
	item.Properties["ndvi:nodata"] = p.Index.NoData
	if p.Resolution > 0 {
		item.Properties["gsd"] = p.Resolution
	}
	item.Properties["proj:epsg"] = p.Index.EPSG
	item.Properties["proj:shape"] = []int{p.Index.Height, p.Index.Width}

	item.Assets[AssetIndex] = &stac.Asset{
		Href:  "./" + RasterName(id),
		Title: "NDVI",
		Type:  MediaTypeGeoTIFF,
		Roles: []string{"data"},
	}
	item.Assets[AssetOverlay] = &stac.Asset{
		Href:  "./" + ImageName(id),
		Title: "NDVI overlay",
		Type:  MediaTypePNG,
		Roles: []string{"visual", "overview"},
	}

	return item, nil
}

// ReadItem loads the sidecar of a previously written product.
func (w *Writer) ReadItem(id string) (*stac.Item, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidItemID, id)
	}

	data, err := os.ReadFile(filepath.Join(w.dir, ItemName(id)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrItemNotFound, id)
		}
		return nil, fmt.Errorf("failed to read item: %w", err)
	}

	item := &stac.Item{}
	if err := json.Unmarshal(data, item); err != nil {
		return nil, fmt.Errorf("failed to decode item: %w", err)
	}
	return item, nil
}
