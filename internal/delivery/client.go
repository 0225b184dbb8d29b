package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/voxstream/voxstream/internal/config"
	"github.com/voxstream/voxstream/internal/metrics"
)

// ErrVolumeOutOfRange is returned when a volume outside [0, 1] is requested.
var ErrVolumeOutOfRange = fmt.Errorf("volume must be between 0 and 1")

// Client talks to the remote playback device over HTTP. The device has
// bounded storage, so the client tracks uploaded files in an LRU and
// deletes the oldest remote file when the cap is exceeded.
type Client interface {
	// Upload stores a WAV file on the device under filename.
	Upload(ctx context.Context, filename string, wav []byte) error

	// Play starts playback of a previously uploaded file.
	Play(ctx context.Context, filename string) error

	// Delete removes a file from the device.
	Delete(ctx context.Context, filename string) error

	// SetVolume adjusts the device output volume, range [0, 1].
	SetVolume(ctx context.Context, volume float64) error
}

type client struct {
	logger  *zap.Logger
	cfg     config.DeliveryConfig
	http    *http.Client
	metrics *metrics.Metrics
	stored  *lru.Cache[string, time.Time]
}

// NewClient creates a playback-device client from configuration.
func NewClient(logger *zap.Logger, cfg *config.Config, m *metrics.Metrics) (Client, error) {
	if cfg.Delivery.BaseURL == "" {
		return nil, fmt.Errorf("delivery base URL is required")
	}
	if _, err := url.Parse(cfg.Delivery.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid delivery base URL %s: %w", cfg.Delivery.BaseURL, err)
	}

	c := &client{
		logger:  logger,
		cfg:     cfg.Delivery,
		http:    &http.Client{Timeout: cfg.Delivery.RequestTimeout()},
		metrics: m,
	}

	maxFiles := cfg.Delivery.MaxStoredFiles
	if maxFiles <= 0 {
		maxFiles = config.DefaultMaxStoredFiles
	}
	stored, err := lru.NewWithEvict[string, time.Time](maxFiles, c.onEvict)
	if err != nil {
		return nil, fmt.Errorf("failed to create stored-file cache: %w", err)
	}
	c.stored = stored
	return c, nil
}

// onEvict removes the evicted file from the device. Eviction happens
// inside the LRU's Add call, so the delete runs on its own goroutine
// with a fresh timeout.
func (c *client) onEvict(filename string, uploadedAt time.Time) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.RequestTimeout())
		defer cancel()
		if err := c.Delete(ctx, filename); err != nil {
			c.logger.Warn("Failed to delete evicted file from device",
				zap.String("filename", filename),
				zap.Time("uploaded_at", uploadedAt),
				zap.Error(err))
		}
	}()
}

func (c *client) Upload(ctx context.Context, filename string, wav []byte) error {
	err := c.do(ctx, http.MethodPost, "/files/"+url.PathEscape(filename), "audio/wav", bytes.NewReader(wav))
	c.observe("upload", err)
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", filename, err)
	}

	c.stored.Add(filename, time.Now())
	c.logger.Debug("Uploaded file to device",
		zap.String("filename", filename),
		zap.Int("wav_bytes", len(wav)),
		zap.Int("stored_files", c.stored.Len()))
	return nil
}

func (c *client) Play(ctx context.Context, filename string) error {
	body, err := json.Marshal(map[string]string{"filename": filename})
	if err != nil {
		return fmt.Errorf("failed to encode play request: %w", err)
	}
	err = c.do(ctx, http.MethodPost, "/play", "application/json", bytes.NewReader(body))
	c.observe("play", err)
	if err != nil {
		return fmt.Errorf("failed to play %s: %w", filename, err)
	}
	return nil
}

func (c *client) Delete(ctx context.Context, filename string) error {
	err := c.do(ctx, http.MethodDelete, "/files/"+url.PathEscape(filename), "", nil)
	c.observe("delete", err)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", filename, err)
	}
	return nil
}

func (c *client) SetVolume(ctx context.Context, volume float64) error {
	if volume < 0 || volume > 1 {
		return ErrVolumeOutOfRange
	}
	body, err := json.Marshal(map[string]float64{"volume": volume})
	if err != nil {
		return fmt.Errorf("failed to encode volume request: %w", err)
	}
	err = c.do(ctx, http.MethodPost, "/volume", "application/json", bytes.NewReader(body))
	c.observe("set_volume", err)
	if err != nil {
		return fmt.Errorf("failed to set volume: %w", err)
	}
	return nil
}

func (c *client) do(ctx context.Context, method, path, contentType string, body io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("device returned %d: %s", resp.StatusCode, msg)
	}
	return nil
}

func (c *client) observe(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	c.metrics.DeliveryRequests.WithLabelValues(operation, outcome).Inc()
}
