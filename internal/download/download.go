// Package download fetches server jars and loader metadata over HTTP.
package download

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/xoxserver/xox-server/internal/errors"
	"github.com/xoxserver/xox-server/internal/logging"
)

// Defaults used when Config leaves a field zero.
const (
	DefaultTimeout   = 5 * time.Minute
	DefaultRetries   = 3
	DefaultUserAgent = "xox-server"
)

// Config configures a Client.
type Config struct {
	Timeout      time.Duration
	Retries      int
	RetryWait    time.Duration
	RetryMaxWait time.Duration
	UserAgent    string
}

// Client is a resty client with retries on connection errors, 429 and 5xx.
type Client struct {
	resty  *resty.Client
	logger *logging.Logger
}

// New creates a Client.
func New(cfg Config, logger *logging.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	} else if cfg.Retries == 0 {
		cfg.Retries = DefaultRetries
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = time.Second
	}
	if cfg.RetryMaxWait <= 0 {
		cfg.RetryMaxWait = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if logger == nil {
		logger = logging.NopLogger()
	}

	r := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(cfg.RetryMaxWait).
		SetHeader("User-Agent", cfg.UserAgent).
		AddRetryCondition(shouldRetry)

	return &Client{resty: r, logger: logger.With("component", "download")}
}

// shouldRetry applies retryablehttp's policy: connection errors, 429 and 5xx
// other than 501 are retried; TLS and redirect errors are not.
func shouldRetry(resp *resty.Response, err error) bool {
	ctx := context.Background()
	var raw *http.Response
	if resp != nil {
		raw = resp.RawResponse
		if resp.Request != nil {
			ctx = resp.Request.Context()
		}
	}
	retry, _ := retryablehttp.DefaultRetryPolicy(ctx, raw, err)
	return retry
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Failed to download file from %s: HTTP %d", e.URL, e.Status)
}

func ok(status int) bool {
	return status >= 200 && status < 300
}

// File downloads url to dest. The body is written to dest+".part" and renamed
// into place once complete, so an interrupted download never leaves a
// truncated jar behind.
func (c *Client) File(ctx context.Context, url, dest string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, errors.Wrap(err, "failed to create download directory")
	}
	part := dest + ".part"

	resp, err := c.resty.R().SetContext(ctx).SetOutput(part).Get(url)
	if err != nil {
		_ = os.Remove(part)
		return 0, errors.Wrapf(err, "Failed to download file from %s", url)
	}
	if !ok(resp.StatusCode()) {
		_ = os.Remove(part)
		return 0, &StatusError{URL: url, Status: resp.StatusCode()}
	}

	info, err := os.Stat(part)
	if err != nil {
		return 0, errors.Wrap(err, "failed to stat downloaded file")
	}
	if err := os.Rename(part, dest); err != nil {
		_ = os.Remove(part)
		return 0, errors.Wrap(err, "failed to move downloaded file into place")
	}

	c.logger.Info("downloaded file", "url", url, "path", dest, "size", info.Size(), "duration", resp.Time())
	return info.Size(), nil
}

// Exists reports whether url answers a HEAD request with a 2xx status.
// A 4xx answer is a definite no; anything else is an error.
func (c *Client) Exists(ctx context.Context, url string) (bool, error) {
	resp, err := c.resty.R().SetContext(ctx).Head(url)
	if err != nil {
		return false, errors.Wrapf(err, "HEAD %s", url)
	}
	switch status := resp.StatusCode(); {
	case ok(status):
		return true, nil
	case status >= 400 && status < 500:
		return false, nil
	default:
		return false, &StatusError{URL: url, Status: status}
	}
}

// GetJSON decodes the JSON body of url into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	resp, err := c.resty.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetResult(out).
		Get(url)
	if err != nil {
		return errors.Wrapf(err, "GET %s", url)
	}
	if !ok(resp.StatusCode()) {
		return &StatusError{URL: url, Status: resp.StatusCode()}
	}
	return nil
}

// GetString returns the body of url.
func (c *Client) GetString(ctx context.Context, url string) (string, error) {
	resp, err := c.resty.R().SetContext(ctx).Get(url)
	if err != nil {
		return "", errors.Wrapf(err, "GET %s", url)
	}
	if !ok(resp.StatusCode()) {
		return "", &StatusError{URL: url, Status: resp.StatusCode()}
	}
	return resp.String(), nil
}
