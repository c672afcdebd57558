// Package client uploads serialized pings to the telemetry endpoint over
// HTTP. Payloads are gzip-compressed and submitted with a POST per ping.
package client

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzip"

	"codeberg.org/mutker/telemetry/config"
	"codeberg.org/mutker/telemetry/errors"
	"codeberg.org/mutker/telemetry/internal/logger"
)

type HTTPClient struct {
	client *http.Client
}

func New(cfg *config.Configuration) *HTTPClient {
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}

	return &HTTPClient{
		client: &http.Client{
			Transport: &http.Transport{
				DialContext:           dialer.DialContext,
				TLSHandshakeTimeout:   cfg.ConnectTimeout,
				ResponseHeaderTimeout: cfg.ReadTimeout,
			},
			Timeout: cfg.ConnectTimeout + cfg.ReadTimeout,
		},
	}
}

// Upload POSTs body to cfg.ServerEndpoint + path and reports whether the
// ping is finished. 2xx and 4xx responses finish it (a 4xx ping will never
// be accepted, so keeping it would wedge the queue); 5xx responses and
// transport errors leave it stored for a later pass.
func (c *HTTPClient) Upload(ctx context.Context, cfg *config.Configuration, path string, body []byte) (bool, error) {
	errFactory := errors.New()

	if cfg.ServerEndpoint == "" {
		return false, errFactory.New(ErrInvalidEndpoint)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(body); err != nil {
		return false, errFactory.Wrap(ErrCompressFailed, err)
	}
	if err := gz.Close(); err != nil {
		return false, errFactory.Wrap(ErrCompressFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.ServerEndpoint+path, &buf)
	if err != nil {
		return false, errFactory.Wrap(ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Content-Encoding", "gzip")
	req.Header.Set("User-Agent", cfg.UserAgent)
	req.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))

	resp, err := c.client.Do(req)
	if err != nil {
		return false, errFactory.Wrap(ErrUploadFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices:
		logger.Debug().
			Int("status", resp.StatusCode).
			Str("path", path).
			Msg("Ping uploaded")

		return true, nil
	case resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError:
		logger.Warn().
			Int("status", resp.StatusCode).
			Str("path", path).
			Msg("Ping rejected by server, discarding")

		return true, nil
	default:
		logger.Warn().
			Int("status", resp.StatusCode).
			Str("path", path).
			Msg("Upload failed, ping kept for retry")

		return false, nil
	}
}
