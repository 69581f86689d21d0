// Package sentinelhub is a minimal client for the Sentinel Hub Process API
// as served by the Copernicus Data Space Ecosystem.
package sentinelhub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/aydiaziz/ndvi-webapp/internal/raster"
)

// ErrNotConfigured is returned when no client credentials were supplied.
var ErrNotConfigured = errors.New("sentinel hub credentials not configured")

// maxErrorBody bounds how much of an error response is kept for logging.
const maxErrorBody = 4096

// Credentials are the OAuth2 client credentials of a Sentinel Hub account.
type Credentials struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
}

// Client handles communication with the Sentinel Hub Process API
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	configured bool
	logger     *slog.Logger
}

// NewClient creates a new Process API client. Requests and token fetches
// share the given timeout. A client without credentials reports
// ErrNotConfigured from every call.
func NewClient(baseURL, collection string, creds Credentials, timeout time.Duration) *Client {
	base := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	c := &Client{
		baseURL:    baseURL,
		collection: collection,
		httpClient: base,
		logger:     slog.Default(),
	}

	if creds.ClientID == "" || creds.ClientSecret == "" || creds.TokenURL == "" {
		return c
	}

	oauth := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     creds.TokenURL,
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, base)

	c.httpClient = &http.Client{
		Timeout: timeout,
		Transport: &oauth2.Transport{
			Source: oauth.TokenSource(tokenCtx),
			Base:   base.Transport,
		},
	}
	c.configured = true
	return c
}

// WithLogger sets a custom logger for the client
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	c.logger = logger
	return c
}

// Configured reports whether the client holds credentials.
func (c *Client) Configured() bool {
	return c.configured
}

// Collection returns the data collection requested from the Process API.
func (c *Client) Collection() string {
	return c.collection
}

// Process requests red, NIR, data mask and scene classification bands for
// req and returns them in BandRed..BandSCL order. Exactly one HTTP attempt
// is made.
func (c *Client) Process(ctx context.Context, req ProcessRequest) ([]*raster.Band, error) {
	if !c.configured {
		return nil, ErrNotConfigured
	}

	processURL, err := c.buildProcessURL()
	if err != nil {
		return nil, fmt.Errorf("failed to build process URL: %w", err)
	}

	body, err := json.Marshal(newProcessPayload(c.collection, req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal process request: %w", err)
	}

	c.logger.DebugContext(ctx, "executing process request",
		slog.String("url", processURL),
		slog.Int("width", req.Width),
		slog.Int("height", req.Height),
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, processURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "image/tiff")
	httpReq.Header.Set("User-Agent", "ndvi-webapp/1.0")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("process request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("process API returned status %d: %s", resp.StatusCode, string(msg))
	}

	bands, err := decodeTIFF(resp.Body)
	if err != nil {
		return nil, err
	}

	if len(bands) != BandCount {
		return nil, fmt.Errorf("process API returned %d bands, expected %d", len(bands), BandCount)
	}
	for _, b := range bands {
		if b.Width != req.Width || b.Height != req.Height {
			return nil, fmt.Errorf("process API returned %dx%d raster, expected %dx%d",
				b.Width, b.Height, req.Width, req.Height)
		}
	}

	c.logger.DebugContext(ctx, "process request completed",
		slog.Int("bands", len(bands)),
	)

	return bands, nil
}

// decodeTIFF spools the response to a temporary file so GDAL can read it.
func decodeTIFF(r io.Reader) ([]*raster.Band, error) {
	tmp, err := os.CreateTemp("", "sentinelhub-*.tif")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to read process response: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to flush process response: %w", err)
	}

	bands, err := raster.ReadBands(tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to decode process response: %w", err)
	}
	return bands, nil
}

// buildProcessURL constructs the Process API endpoint URL
func (c *Client) buildProcessURL() (string, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	base.Path = "/api/v1/process"
	return base.String(), nil
}
