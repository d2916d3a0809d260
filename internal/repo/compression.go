// SPDX-License-Identifier: MPL-2.0

package repo

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Compression identifies how a repository index file is compressed.
type Compression string

const (
	CompressionNone Compression = ""
	CompressionGZIP Compression = "gz"
	CompressionXZ   Compression = "xz"
	CompressionZstd Compression = "zst"
)

// IndexCompressions is the order in which index variants are tried, smallest first.
var IndexCompressions = []Compression{CompressionXZ, CompressionZstd, CompressionGZIP, CompressionNone}

func (c Compression) String() string {
	return string(c)
}

// Extension returns the file suffix for c, including the dot.
func (c Compression) Extension() string {
	if c == CompressionNone {
		return ""
	}
	return "." + string(c)
}

// NewReader wraps r with a decoder for c. Closing the result does not close r.
func (c Compression) NewReader(r io.Reader) (io.ReadCloser, error) {
	switch c {
	case CompressionGZIP:
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		return gr, nil

	case CompressionXZ:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(xr), nil

	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil

	case CompressionNone:
		return io.NopCloser(r), nil

	default:
		return nil, fmt.Errorf("unknown compression %q", c)
	}
}
