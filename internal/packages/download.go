// SPDX-License-Identifier: MPL-2.0

package packages

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hwprov/hwprov/internal/repo"
)

// TransportDownloader downloads archives through a repo.Transport, staging
// them in the partial directory and verifying the published size and SHA256
// before moving them into the cache.
type TransportDownloader struct {
	Transport repo.Transport
}

// Download implements Downloader.
func (t *TransportDownloader) Download(ctx context.Context, d Descriptor, dir string) (*Archive, error) {
	uri := repo.Join(d.SourceURI, d.Filename)
	rc, err := t.Transport.Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }() // Read side; close error non-critical

	name := d.ArchiveName()
	partial := filepath.Join(dir, "partial", name)
	final := filepath.Join(dir, name)

	h := sha256.New()
	counter := &countingWriter{}
	if err := writeFile(partial, io.TeeReader(rc, io.MultiWriter(h, counter))); err != nil {
		return nil, err
	}

	if d.Size > 0 && counter.n != d.Size {
		_ = os.Remove(partial) // Discard the bad download; error non-critical
		return nil, &IntegrityError{
			Archive: name,
			Field:   "size",
			Want:    strconv.FormatInt(d.Size, 10),
			Got:     strconv.FormatInt(counter.n, 10),
		}
	}
	if got := hex.EncodeToString(h.Sum(nil)); d.SHA256 != "" && !strings.EqualFold(got, d.SHA256) {
		_ = os.Remove(partial) // Discard the bad download; error non-critical
		return nil, &IntegrityError{Archive: name, Field: "SHA256", Want: d.SHA256, Got: got}
	}

	if err := os.Rename(partial, final); err != nil {
		return nil, fmt.Errorf("failed to move %s into the archive cache: %w", name, err)
	}
	return &Archive{Descriptor: d, Path: final}, nil
}

type countingWriter struct {
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}
