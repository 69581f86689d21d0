package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/planetlabs/go-stac"

	"github.com/aydiaziz/ndvi-webapp/internal/ndvi"
	"github.com/aydiaziz/ndvi-webapp/internal/output"
	"github.com/aydiaziz/ndvi-webapp/internal/pipeline"
	"github.com/aydiaziz/ndvi-webapp/pkg/geojson"
)

// AppName identifies the service in discovery documents.
const AppName = "ndvi-webapp"

// StaticPrefix is the URL path the static directory is served under.
const StaticPrefix = "/static"

// maxRequestBytes bounds the size of a POST /ndvi body.
const maxRequestBytes = 10 << 20

// Processor runs NDVI requests.
type Processor interface {
	Process(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// ItemStore returns STAC items of written products.
type ItemStore interface {
	ReadItem(id string) (*stac.Item, error)
}

// Handlers contains all HTTP handlers for the NDVI API.
type Handlers struct {
	processor     Processor
	items         ItemStore
	outputSubdir  string
	publicBaseURL string
	logger        *slog.Logger
}

// NewHandlers creates a new Handlers instance with the given dependencies.
// outputSubdir is the products directory relative to the static root.
func NewHandlers(
	processor Processor,
	items ItemStore,
	outputSubdir string,
	publicBaseURL string,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		processor:     processor,
		items:         items,
		outputSubdir:  outputSubdir,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
		logger:        logger,
	}
}

// NDVIRequest is the body of POST /ndvi.
type NDVIRequest struct {
	Geometry   json.RawMessage `json:"geometry"`
	TimeStart  string          `json:"time_start,omitempty"`
	TimeEnd    string          `json:"time_end,omitempty"`
	Resolution *float64        `json:"resolution,omitempty"`
	Colormap   string          `json:"colormap,omitempty"`
}

// NDVIResponse is the body of a successful POST /ndvi.
type NDVIResponse struct {
	Status     string          `json:"status"`
	NDVIFile   string          `json:"ndvi_file"`
	OverlayURL string          `json:"ndvi_overlay_url"`
	Bounds     [4]float64      `json:"bounds"`
	Stats      ndvi.Statistics `json:"stats"`
	Source     string          `json:"source"`
	ItemID     string          `json:"item_id"`
	ItemURL    string          `json:"item_url"`
}

// NDVI computes the index over the posted geometry.
// POST /ndvi
func (h *Handlers) NDVI(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	var body NDVIRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			WriteError(w, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "request body too large")
			return
		}
		WriteBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	if len(body.Geometry) == 0 || string(body.Geometry) == "null" {
		WriteBadRequest(w, "geometry is required")
		return
	}

	geom, err := geojson.Parse(body.Geometry)
	if err != nil {
		WriteBadRequest(w, "invalid geometry: "+err.Error())
		return
	}

	req := pipeline.Request{
		Geometry:  geom,
		TimeStart: body.TimeStart,
		TimeEnd:   body.TimeEnd,
		Colormap:  body.Colormap,
	}
	if body.Resolution != nil {
		if *body.Resolution <= 0 {
			WriteBadRequest(w, "resolution must be a positive number of metres")
			return
		}
		req.Resolution = *body.Resolution
	}

	ctx := r.Context()
	result, err := h.processor.Process(ctx, req)
	if err != nil {
		if pipeline.IsInputError(err) {
			WriteBadRequest(w, err.Error())
			return
		}

		reqID := GetRequestID(ctx)
		h.logger.ErrorContext(ctx, "ndvi processing failed",
			slog.String("request_id", reqID),
			slog.String("error", err.Error()),
		)
		WriteInternalErrorWithRequestID(w, "failed to compute NDVI", reqID)
		return
	}

	baseURL := h.baseURL(r)
	WriteJSON(w, http.StatusOK, NDVIResponse{
		Status:     "success",
		NDVIFile:   path.Join(strings.TrimPrefix(StaticPrefix, "/"), h.outputSubdir, output.RasterName(result.ID)),
		OverlayURL: baseURL + h.staticPath(output.ImageName(result.ID)),
		Bounds:     result.Extent,
		Stats:      result.Stats,
		Source:     result.Source,
		ItemID:     result.ID,
		ItemURL:    baseURL + "/ndvi/items/" + result.ID,
	})
}

// Item returns the STAC item of a written product.
// GET /ndvi/items/{itemId}
func (h *Handlers) Item(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemId")

	item, err := h.items.ReadItem(itemID)
	switch {
	case errors.Is(err, output.ErrInvalidItemID):
		WriteBadRequest(w, "item ID must be a UUID")
		return
	case errors.Is(err, output.ErrItemNotFound):
		WriteNotFound(w, "item "+itemID+" not found")
		return
	case err != nil:
		h.logger.ErrorContext(r.Context(), "failed to read item",
			slog.String("item_id", itemID),
			slog.String("error", err.Error()),
		)
		WriteInternalError(w, "failed to read item")
		return
	}

	baseURL := h.baseURL(r)

	// Sidecar hrefs are relative to the product directory.
	for _, asset := range item.Assets {
		if rel, ok := strings.CutPrefix(asset.Href, "./"); ok {
			asset.Href = baseURL + h.staticPath(rel)
		}
	}

	item.Links = append(item.Links,
		&stac.Link{
			Rel:  "self",
			Href: baseURL + "/ndvi/items/" + item.Id,
			Type: output.MediaTypeGeoJSON,
		},
		&stac.Link{
			Rel:  "root",
			Href: baseURL + "/",
			Type: "application/json",
		},
	)

	WriteGeoJSON(w, http.StatusOK, item)
}

// link is a hypermedia link in the landing page.
type link struct {
	Rel    string `json:"rel"`
	Href   string `json:"href"`
	Type   string `json:"type,omitempty"`
	Method string `json:"method,omitempty"`
	Title  string `json:"title,omitempty"`
}

// LandingPage describes the service and links to its endpoints.
// GET /
func (h *Handlers) LandingPage(w http.ResponseWriter, r *http.Request) {
	baseURL := h.baseURL(r)

	WriteJSON(w, http.StatusOK, map[string]any{
		"id":          AppName,
		"title":       "NDVI web service",
		"description": "Computes NDVI rasters and overlays from Sentinel-2 red and near-infrared bands",
		"links": []link{
			{Rel: "self", Href: baseURL + "/", Type: "application/json"},
			{Rel: "ndvi", Href: baseURL + "/ndvi", Type: "application/json", Method: http.MethodPost, Title: "Compute NDVI for a GeoJSON geometry"},
			{Rel: "data", Href: baseURL + h.staticPath(""), Title: "Generated rasters and overlays"},
			{Rel: "health", Href: baseURL + "/health", Type: "application/json"},
		},
	})
}

// DevToolsManifest lets Chromium DevTools map the app as a workspace target.
// GET /.well-known/appspecific/com.chrome.devtools.json
func (h *Handlers) DevToolsManifest(w http.ResponseWriter, r *http.Request) {
	baseURL := h.baseURL(r)

	WriteJSON(w, http.StatusOK, map[string]any{
		"app_name": AppName,
		"targets": []map[string]string{
			{
				"id":    AppName,
				"type":  "web",
				"title": "NDVI web app",
				"url":   baseURL + "/",
			},
		},
	})
}

// Health returns the health status of the service.
// GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{
		"status": "ok",
	}

	WriteJSON(w, http.StatusOK, response)
}

// baseURL returns the configured public URL or derives one from the request.
func (h *Handlers) baseURL(r *http.Request) string {
	if h.publicBaseURL != "" {
		return h.publicBaseURL
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}

// staticPath returns the URL path of a file in the products directory.
func (h *Handlers) staticPath(name string) string {
	p := path.Join(StaticPrefix, h.outputSubdir, name)
	if name == "" {
		p += "/"
	}
	return p
}
