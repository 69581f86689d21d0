// Package server provides a public API for embedding the NDVI service.
package server

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aydiaziz/ndvi-webapp/internal/acquire"
	"github.com/aydiaziz/ndvi-webapp/internal/api"
	"github.com/aydiaziz/ndvi-webapp/internal/ndvi"
	"github.com/aydiaziz/ndvi-webapp/internal/output"
	"github.com/aydiaziz/ndvi-webapp/internal/pipeline"
	"github.com/aydiaziz/ndvi-webapp/internal/raster"
	"github.com/aydiaziz/ndvi-webapp/internal/sentinelhub"
)

// Options configures the NDVI server.
type Options struct {
	// PublicBaseURL is the public-facing URL for links in responses.
	// Default: "" (derived from each request)
	PublicBaseURL string

	// StaticDir is the directory served under /static/.
	// Default: "static"
	StaticDir string

	// OutputSubdir is the products directory inside StaticDir.
	// Default: "ndvi"
	OutputSubdir string

	// SentinelHubURL is the Sentinel Hub API base URL.
	// Default: "https://sh.dataspace.copernicus.eu"
	SentinelHubURL string

	// TokenURL is the OAuth2 token endpoint for client credentials.
	// Default: the Copernicus Data Space identity endpoint
	TokenURL string

	// ClientID and ClientSecret enable live acquisition. When either is
	// empty only synthetic bands are produced.
	ClientID     string
	ClientSecret string

	// Collection is the Sentinel Hub data collection.
	// Default: "sentinel-2-l2a"
	Collection string

	// Timeout is the upstream request timeout.
	// Default: 30s
	Timeout time.Duration

	// Resolution is the default pixel size in metres.
	// Default: 10
	Resolution float64

	// TimeStart and TimeEnd bound the default acquisition window.
	// Default: "" (the last LookbackDays days)
	TimeStart string
	TimeEnd   string

	// LookbackDays is the window length when TimeStart is unset.
	// Default: 30
	LookbackDays int

	// LowerPercentile and UpperPercentile drive the contrast stretch and
	// must satisfy 0 <= lower < upper <= 100.
	// Default: 2 and 98 when both are zero
	LowerPercentile float64
	UpperPercentile float64

	// Colormap is the default overlay colormap, "ramp" or "gray".
	// Default: "ramp"
	Colormap string

	// Logger is the slog logger to use.
	// Default: slog.Default()
	Logger *slog.Logger
}

// Server is an NDVI server that can be embedded in another application.
type Server struct {
	router chi.Router
	live   bool
}

// New creates a new NDVI server with the given options. The output
// directory is created if it does not exist.
func New(opts Options) (*Server, error) {
	// Apply defaults
	if opts.StaticDir == "" {
		opts.StaticDir = "static"
	}
	if opts.OutputSubdir == "" {
		opts.OutputSubdir = "ndvi"
	}
	if opts.SentinelHubURL == "" {
		opts.SentinelHubURL = "https://sh.dataspace.copernicus.eu"
	}
	if opts.TokenURL == "" {
		opts.TokenURL = "https://identity.dataspace.copernicus.eu/auth/realms/CDSE/protocol/openid-connect/token"
	}
	if opts.Collection == "" {
		opts.Collection = "sentinel-2-l2a"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.LookbackDays == 0 {
		opts.LookbackDays = acquire.DefaultLookbackDays
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if !filepath.IsLocal(opts.OutputSubdir) {
		return nil, fmt.Errorf("output subdirectory %q must be inside the static directory", opts.OutputSubdir)
	}

	if opts.LowerPercentile == 0 && opts.UpperPercentile == 0 {
		opts.LowerPercentile = ndvi.DefaultLowerPercentile
		opts.UpperPercentile = ndvi.DefaultUpperPercentile
	}
	if err := ndvi.ValidatePercentiles(opts.LowerPercentile, opts.UpperPercentile); err != nil {
		return nil, err
	}

	colormap, err := ndvi.ParseColormap(opts.Colormap, ndvi.ColormapRamp)
	if err != nil {
		return nil, err
	}

	outputDir := filepath.Join(opts.StaticDir, opts.OutputSubdir)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	raster.RegisterDrivers()

	// Create acquisition chain: live first, synthetic as the fallback
	client := sentinelhub.NewClient(opts.SentinelHubURL, opts.Collection, sentinelhub.Credentials{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		TokenURL:     opts.TokenURL,
	}, opts.Timeout).WithLogger(opts.Logger)

	policy := acquire.NewPolicy(opts.Logger,
		acquire.NewLive(client, opts.Logger),
		acquire.NewSynthetic(),
	)

	if client.Configured() {
		opts.Logger.Info("live acquisition enabled",
			"base_url", opts.SentinelHubURL,
			"collection", opts.Collection,
		)
	} else {
		opts.Logger.Info("no sentinel hub credentials, serving synthetic bands")
	}

	writer := output.NewWriter(outputDir).WithLogger(opts.Logger)

	processor := pipeline.NewProcessor(policy, writer, pipeline.Options{
		Resolution:      opts.Resolution,
		LowerPercentile: opts.LowerPercentile,
		UpperPercentile: opts.UpperPercentile,
		Colormap:        colormap,
		TimeStart:       opts.TimeStart,
		TimeEnd:         opts.TimeEnd,
		LookbackDays:    opts.LookbackDays,
	}, opts.Logger)

	handlers := api.NewHandlers(processor, writer, opts.OutputSubdir, opts.PublicBaseURL, opts.Logger)

	return &Server{
		router: api.NewRouter(handlers, opts.StaticDir, opts.Logger),
		live:   client.Configured(),
	}, nil
}

// Router returns the chi.Router for mounting in another application.
func (s *Server) Router() chi.Router {
	return s.router
}

// Live reports whether live Sentinel Hub acquisition is configured.
func (s *Server) Live() bool {
	return s.live
}
