// Package camera fetches frames from a UniFi Protect camera through the
// Protect integration API.
package camera

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/ironsheep/oil-level-monitor/internal/config"
)

const (
	apiPrefix = "/proxy/protect/integration/v1"

	// maxErrorBody bounds the response body quoted in errors.
	maxErrorBody = 500
)

// ErrEmptySnapshot is returned when the camera answers 200 with no image.
var ErrEmptySnapshot = errors.New("camera returned an empty snapshot")

// StatusError reports a non-200 answer from the Protect API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("camera API returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("camera API returned status %d: %s", e.StatusCode, e.Body)
}

// Camera is one entry of the Protect camera list.
type Camera struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Model string `json:"modelKey"`
	State string `json:"state"`
	MAC   string `json:"mac"`
}

// Client talks to a single Protect console.
type Client struct {
	baseURL  string
	apiKey   string
	cameraID string
	client   *http.Client
	logger   zerolog.Logger
}

// New creates a client for the camera described by cfg. Certificate
// verification is off unless cfg.VerifyTLS is set, since Protect consoles
// ship with self-signed certificates.
func New(cfg config.CameraConfig, logger zerolog.Logger) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: !cfg.VerifyTLS}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:  "https://" + cfg.Host + apiPrefix,
		apiKey:   cfg.APIKey,
		cameraID: cfg.CameraID,
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		logger: logger.With().Str("component", "camera").Logger(),
	}
}

// SnapshotURL returns the endpoint Snapshot fetches.
func (c *Client) SnapshotURL() string {
	return fmt.Sprintf("%s/cameras/%s/snapshot", c.baseURL, url.PathEscape(c.cameraID))
}

// Snapshot fetches the current frame as encoded image bytes.
func (c *Client) Snapshot(ctx context.Context) ([]byte, error) {
	c.logger.Debug().Str("url", c.SnapshotURL()).Msg("Fetching camera snapshot")

	body, err := c.get(ctx, c.SnapshotURL())
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, ErrEmptySnapshot
	}

	c.logger.Info().Int("bytes", len(body)).Msg("Snapshot retrieved")
	return body, nil
}

// ListCameras returns every camera adopted by the console.
func (c *Client) ListCameras(ctx context.Context) ([]Camera, error) {
	body, err := c.get(ctx, c.baseURL+"/cameras")
	if err != nil {
		return nil, err
	}

	var cameras []Camera
	if err := json.Unmarshal(body, &cameras); err != nil {
		return nil, fmt.Errorf("failed to decode camera list: %w", err)
	}
	return cameras, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Accept", "*/*")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", req.URL.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("content_type", resp.Header.Get("Content-Type")).
			Msg("Camera API request rejected")
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}
