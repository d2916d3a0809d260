// SPDX-License-Identifier: MPL-2.0

package repo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrNotFound is returned when the requested repository file does not exist.
var ErrNotFound = errors.New("repository file not found")

type (
	// Transport opens a repository file identified by an absolute URI.
	Transport interface {
		Open(ctx context.Context, uri string) (io.ReadCloser, error)
	}

	// FileTransport serves file: URIs from the local filesystem.
	FileTransport struct{}

	// Mux dispatches to a Transport by URI scheme.
	Mux struct {
		schemes map[string]Transport
	}

	// UnsupportedSchemeError is returned by Mux for schemes with no Transport.
	UnsupportedSchemeError struct {
		URI string
	}
)

// NewMux returns a Mux that serves file:, http: and https: URIs.
func NewMux(httpTransport *HTTPTransport) *Mux {
	if httpTransport == nil {
		httpTransport = NewHTTPTransport()
	}
	return &Mux{
		schemes: map[string]Transport{
			"file":  FileTransport{},
			"http":  httpTransport,
			"https": httpTransport,
		},
	}
}

// Open implements Transport.
func (m *Mux) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	scheme, _, ok := strings.Cut(uri, ":")
	if !ok {
		return nil, &UnsupportedSchemeError{URI: uri}
	}
	t, ok := m.schemes[strings.ToLower(scheme)]
	if !ok {
		return nil, &UnsupportedSchemeError{URI: uri}
	}
	return t.Open(ctx, uri)
}

// Open implements Transport.
func (FileTransport) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := FilePath(uri)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, uri)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// FilePath extracts the local path from a file: URI. Both the single-slash
// form (file:/srv/repo) and the canonical form (file:///srv/repo) are
// accepted, as is an explicit localhost authority.
func FilePath(uri string) (string, error) {
	rest, ok := strings.CutPrefix(uri, "file:")
	if !ok {
		return "", fmt.Errorf("not a file URI: %s", uri)
	}
	if authority, ok := strings.CutPrefix(rest, "//"); ok {
		host, path, _ := strings.Cut(authority, "/")
		if host != "" && host != "localhost" {
			return "", fmt.Errorf("file URI with remote host %q is not supported: %s", host, uri)
		}
		return "/" + path, nil
	}
	return rest, nil
}

// Join appends slash-separated elements to a base URI without collapsing
// the scheme's double slash.
func Join(base string, elems ...string) string {
	out := strings.TrimRight(base, "/")
	for _, e := range elems {
		e = strings.Trim(e, "/")
		if e == "" || e == "." {
			continue
		}
		out += "/" + e
	}
	return out
}

// Error implements the error interface.
func (e *UnsupportedSchemeError) Error() string {
	return fmt.Sprintf("unsupported repository URI scheme: %s", e.URI)
}
