package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/genricoloni/backdrop/internal/domain"
	"github.com/genricoloni/backdrop/internal/metrics"
	"go.uber.org/zap"
)

const _defaultMaxMediaSize = 64 * 1024 * 1024 // 64 MB

// ErrTooLarge is returned when a media file exceeds the configured size limit
var ErrTooLarge = errors.New("media exceeds size limit")

// HTTPFetcher downloads video assets over HTTP/HTTPS
type HTTPFetcher struct {
	logger   *zap.Logger
	client   *http.Client
	maxBytes int64
}

// NewHTTPFetcher creates a new HTTP-based fetcher instance
func NewHTTPFetcher(logger *zap.Logger, cfg domain.Config) *HTTPFetcher {
	maxBytes := cfg.MaxMediaBytes()
	if maxBytes <= 0 {
		maxBytes = _defaultMaxMediaSize
	}
	return &HTTPFetcher{
		logger:   logger,
		maxBytes: maxBytes,
		client: &http.Client{
			// Videos are large; a stuck download must still end eventually
			Timeout: 2 * time.Minute,
		},
	}
}

// Fetch downloads media data from the given URL
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", "backdrop/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		metrics.MediaFetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.MediaFetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "video/") && contentType != "application/octet-stream" {
		metrics.MediaFetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("url is not a video: %s", contentType)
	}

	if resp.ContentLength > f.maxBytes {
		metrics.MediaFetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %d bytes announced, limit %d", ErrTooLarge, resp.ContentLength, f.maxBytes)
	}

	// One byte past the limit tells a truncated body from one that fits exactly
	limitReader := io.LimitReader(resp.Body, f.maxBytes+1)

	data, err := io.ReadAll(limitReader)
	if err != nil {
		metrics.MediaFetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		metrics.MediaFetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: limit %d", ErrTooLarge, f.maxBytes)
	}

	metrics.MediaFetches.WithLabelValues("ok").Inc()
	metrics.MediaFetchDuration.Observe(time.Since(start).Seconds())

	f.logger.Debug("Media fetched successfully", zap.Int("bytes", len(data)), zap.String("url", url))
	return data, nil
}
