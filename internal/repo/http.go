// SPDX-License-Identifier: MPL-2.0

package repo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const (
	defaultMaxAttempts = 4
	defaultBaseBackoff = 250 * time.Millisecond

	dialTimeout           = 30 * time.Second
	tlsHandshakeTimeout   = 15 * time.Second
	responseHeaderTimeout = time.Minute
)

type (
	// HTTPTransport fetches repository files over HTTP(S), retrying transient
	// failures (5xx responses and network errors) with exponential backoff.
	HTTPTransport struct {
		Client      *http.Client
		UserAgent   string
		MaxAttempts int
		BaseBackoff time.Duration
	}

	// StatusError reports an unexpected HTTP response status.
	StatusError struct {
		URI        string
		StatusCode int
	}
)

// NewHTTPTransport returns an HTTPTransport with default retry settings.
// Connecting and waiting for response headers are bounded; reading the body
// is bounded only by the request context.
func NewHTTPTransport() *HTTPTransport {
	return &HTTPTransport{
		Client:      &http.Client{Transport: newRoundTripper()},
		UserAgent:   "hwprov",
		MaxAttempts: defaultMaxAttempts,
		BaseBackoff: defaultBaseBackoff,
	}
}

func newRoundTripper() *http.Transport {
	rt := http.DefaultTransport.(*http.Transport).Clone()
	rt.DialContext = (&net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second}).DialContext
	rt.TLSHandshakeTimeout = tlsHandshakeTimeout
	rt.ResponseHeaderTimeout = responseHeaderTimeout
	return rt
}

// Open implements Transport.
func (t *HTTPTransport) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	var body io.ReadCloser
	schedule := Backoff{Attempts: t.MaxAttempts, Base: t.BaseBackoff}
	err := schedule.Retry(ctx, func(int) (bool, error) {
		rc, err := t.get(ctx, uri)
		if err != nil {
			return isTransient(err), err
		}
		body = rc
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (t *HTTPTransport) get(ctx context.Context, uri string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, http.NoBody)
	if err != nil {
		return nil, err
	}
	if t.UserAgent != "" {
		req.Header.Set("User-Agent", t.UserAgent)
	}

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return resp.Body, nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		_ = resp.Body.Close() // Response discarded; close error non-critical
		return nil, fmt.Errorf("%w: %s", ErrNotFound, uri)
	default:
		_ = resp.Body.Close() // Response discarded; close error non-critical
		return nil, &StatusError{URI: uri, StatusCode: resp.StatusCode}
	}
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.URI, e.StatusCode, http.StatusText(e.StatusCode))
}

// isTransient reports whether a failed request is worth retrying.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500 || statusErr.StatusCode == http.StatusTooManyRequests
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
