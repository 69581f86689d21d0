// Package integration provides end-to-end tests of the full NDVI stack.
// Run with: go test -v ./internal/integration -tags=integration
// Live Sentinel Hub tests additionally need SENTINELHUB_CLIENT_ID and
// SENTINELHUB_CLIENT_SECRET.
//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"image/png"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/planetlabs/go-stac"

	"github.com/aydiaziz/ndvi-webapp/internal/api"
	"github.com/aydiaziz/ndvi-webapp/internal/output"
	"github.com/aydiaziz/ndvi-webapp/pkg/server"
)

// tunisPolygon is a ~1 km square near Tunis.
const tunisPolygon = `{"type":"Polygon","coordinates":[[[10.1815,36.8065],[10.1915,36.8065],[10.1915,36.8165],[10.1815,36.8165],[10.1815,36.8065]]]}`

// setupTestServer creates a test server with the full NDVI stack rooted
// in a temporary static directory.
func setupTestServer(t *testing.T, opts server.Options) (*httptest.Server, string) {
	t.Helper()

	staticDir := t.TempDir()
	opts.StaticDir = staticDir
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	srv, err := server.New(opts)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, staticDir
}

func postNDVI(t *testing.T, baseURL, body string) (*http.Response, []byte) {
	t.Helper()

	resp, err := http.Post(baseURL+"/ndvi", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	return resp, data
}

func TestNDVI_SyntheticEndToEnd(t *testing.T) {
	ts, staticDir := setupTestServer(t, server.Options{})

	resp, body := postNDVI(t, ts.URL, `{"geometry":`+tunisPolygon+`}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.StatusCode, body)
	}

	var result api.NDVIResponse
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	if result.Status != "success" {
		t.Errorf("expected status success, got %q", result.Status)
	}
	if result.Source != "synthetic" {
		t.Errorf("expected synthetic source without credentials, got %q", result.Source)
	}
	if !strings.HasPrefix(result.NDVIFile, "static/ndvi/") {
		t.Errorf("expected ndvi_file under static/ndvi/, got %q", result.NDVIFile)
	}

	wantBounds := [4]float64{36.8065, 10.1815, 36.8165, 10.1915}
	for i := range wantBounds {
		if math.Abs(result.Bounds[i]-wantBounds[i]) > 1e-9 {
			t.Errorf("bounds[%d]: expected %v, got %v", i, wantBounds[i], result.Bounds[i])
		}
	}

	stats := result.Stats
	if stats.Min == nil || stats.Max == nil || stats.Mean == nil {
		t.Fatalf("expected populated statistics, got %+v", stats)
	}
	if !(*stats.Min <= *stats.Mean && *stats.Mean <= *stats.Max) {
		t.Errorf("expected min <= mean <= max, got %v %v %v", *stats.Min, *stats.Mean, *stats.Max)
	}
	if *stats.Min < -1 || *stats.Max > 1 {
		t.Errorf("statistics outside [-1, 1]: %v..%v", *stats.Min, *stats.Max)
	}

	// Files on disk
	rasterPath := filepath.Join(staticDir, "ndvi", output.RasterName(result.ItemID))
	imagePath := filepath.Join(staticDir, "ndvi", output.ImageName(result.ItemID))
	for _, p := range []string{rasterPath, imagePath} {
		if info, err := os.Stat(p); err != nil || info.Size() == 0 {
			t.Errorf("expected non-empty file %s: %v", p, err)
		}
	}

	// Overlay served over HTTP
	overlay, err := url.Parse(result.OverlayURL)
	if err != nil {
		t.Fatalf("invalid overlay URL %q: %v", result.OverlayURL, err)
	}
	if !strings.HasPrefix(overlay.Path, "/static/ndvi/") {
		t.Errorf("expected overlay under /static/ndvi/, got %q", overlay.Path)
	}

	imgResp, err := http.Get(result.OverlayURL)
	if err != nil {
		t.Fatalf("overlay request failed: %v", err)
	}
	defer imgResp.Body.Close()

	if imgResp.StatusCode != http.StatusOK {
		t.Fatalf("expected overlay status 200, got %d", imgResp.StatusCode)
	}
	img, err := png.Decode(imgResp.Body)
	if err != nil {
		t.Fatalf("overlay is not a PNG: %v", err)
	}
	if img.Bounds().Dx() == 0 || img.Bounds().Dy() == 0 {
		t.Error("overlay image is empty")
	}

	// STAC item
	itemResp, err := http.Get(result.ItemURL)
	if err != nil {
		t.Fatalf("item request failed: %v", err)
	}
	defer itemResp.Body.Close()

	if itemResp.StatusCode != http.StatusOK {
		t.Fatalf("expected item status 200, got %d", itemResp.StatusCode)
	}

	var item stac.Item
	if err := json.NewDecoder(itemResp.Body).Decode(&item); err != nil {
		t.Fatalf("failed to parse item: %v", err)
	}
	if item.Id != result.ItemID {
		t.Errorf("expected item id %q, got %q", result.ItemID, item.Id)
	}
	if got := item.Assets[output.AssetOverlay].Href; got != result.OverlayURL {
		t.Errorf("expected overlay asset %q, got %q", result.OverlayURL, got)
	}
	if item.Properties["ndvi:source"] != "synthetic" {
		t.Errorf("expected ndvi:source synthetic, got %v", item.Properties["ndvi:source"])
	}
}

func TestNDVI_RepeatedRequestsDoNotCollide(t *testing.T) {
	ts, _ := setupTestServer(t, server.Options{})

	seen := make(map[string]bool)
	for range 3 {
		resp, body := postNDVI(t, ts.URL, `{"geometry":`+tunisPolygon+`,"colormap":"gray"}`)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", resp.StatusCode, body)
		}

		var result api.NDVIResponse
		if err := json.Unmarshal(body, &result); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if seen[result.NDVIFile] {
			t.Errorf("duplicate output file %q", result.NDVIFile)
		}
		seen[result.NDVIFile] = true
	}
}

func TestNDVI_InvalidGeometry(t *testing.T) {
	ts, _ := setupTestServer(t, server.Options{})

	tests := []struct {
		name string
		body string
	}{
		{name: "empty coordinates", body: `{"geometry":{"type":"Polygon","coordinates":[]}}`},
		{name: "not json", body: `geometry`},
		{name: "inverted time window", body: `{"geometry":` + tunisPolygon + `,"time_start":"2024-02-01","time_end":"2024-01-01"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := postNDVI(t, ts.URL, tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d: %s", resp.StatusCode, body)
			}
		})
	}
}

func TestDevToolsManifest(t *testing.T) {
	ts, _ := setupTestServer(t, server.Options{})

	resp, err := http.Get(ts.URL + "/.well-known/appspecific/com.chrome.devtools.json")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	var manifest struct {
		AppName string `json:"app_name"`
		Targets []struct {
			Type  string `json:"type"`
			Title string `json:"title"`
		} `json:"targets"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&manifest); err != nil {
		t.Fatalf("failed to parse manifest: %v", err)
	}

	if manifest.AppName != "ndvi-webapp" {
		t.Errorf("expected app_name ndvi-webapp, got %q", manifest.AppName)
	}
	if len(manifest.Targets) == 0 || manifest.Targets[0].Type != "web" || manifest.Targets[0].Title == "" {
		t.Errorf("unexpected targets %+v", manifest.Targets)
	}
}

func TestNDVI_LiveSentinelHub(t *testing.T) {
	clientID := os.Getenv("SENTINELHUB_CLIENT_ID")
	clientSecret := os.Getenv("SENTINELHUB_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		t.Skip("Sentinel Hub credentials not set")
	}

	ts, _ := setupTestServer(t, server.Options{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Timeout:      90 * time.Second,
		LookbackDays: 60,
	})

	resp, body := postNDVI(t, ts.URL, `{"geometry":`+tunisPolygon+`}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.StatusCode, body)
	}

	var result api.NDVIResponse
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	// A failed live fetch falls back to synthetic bands; either is a success.
	t.Logf("source=%s min=%v max=%v mean=%v", result.Source, result.Stats.Min, result.Stats.Max, result.Stats.Mean)
	if result.Source != "sentinel-2-l2a" && result.Source != "synthetic" {
		t.Errorf("unexpected source %q", result.Source)
	}
}
