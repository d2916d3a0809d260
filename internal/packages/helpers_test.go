// SPDX-License-Identifier: MPL-2.0

package packages

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/hwprov/hwprov/internal/repo"
)

// testRepo builds a flat repository on disk.
type testRepo struct {
	t        *testing.T
	dir      string
	stanzas  []string
	contents map[string][]byte
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()
	return &testRepo{t: t, dir: t.TempDir(), contents: make(map[string][]byte)}
}

// source returns the sources.list entry for the repository.
func (r *testRepo) source() string {
	return "file:" + r.dir + " ./"
}

// add publishes a package whose archive body is derived from its identity.
func (r *testRepo) add(name, ver, arch string) []byte {
	r.t.Helper()
	body := []byte(fmt.Sprintf("%s %s %s from %s\n", name, ver, arch, r.dir))
	r.addWithBody(name, ver, arch, body, "")
	return body
}

// addWithBody publishes a package; a non-empty digest overrides the real one.
func (r *testRepo) addWithBody(name, ver, arch string, body []byte, digest string) {
	r.t.Helper()
	file := fmt.Sprintf("pool/%s_%s_%s.deb", name, strings.ReplaceAll(ver, ":", "%3a"), arch)
	path := filepath.Join(r.dir, filepath.FromSlash(file))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		r.t.Fatal(err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		r.t.Fatal(err)
	}
	if digest == "" {
		sum := sha256.Sum256(body)
		digest = hex.EncodeToString(sum[:])
	}
	r.stanzas = append(r.stanzas, fmt.Sprintf(
		"Package: %s\nVersion: %s\nArchitecture: %s\nFilename: %s\nSize: %d\nSHA256: %s\n",
		name, ver, arch, file, len(body), digest))
}

// publish writes the Packages index with compression c.
func (r *testRepo) publish(c repo.Compression) {
	r.t.Helper()
	r.publishAt(".", c)
}

func (r *testRepo) publishAt(rel string, c repo.Compression) {
	r.t.Helper()
	data := compressIndex(r.t, c, []byte(strings.Join(r.stanzas, "\n")))
	dir := filepath.Join(r.dir, rel)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		r.t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Packages"+c.Extension()), data, 0o644); err != nil {
		r.t.Fatal(err)
	}
}

func newPreparedFetcher(t *testing.T, sources ...string) *Fetcher {
	t.Helper()
	f, err := NewFetcher(sources, WithArchitecture("amd64"), WithSandboxDir(t.TempDir()))
	if err != nil {
		t.Fatalf("NewFetcher() error = %v", err)
	}
	t.Cleanup(func() { _ = f.Cleanup() })
	if err := f.Prepare(t.Context()); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	return f
}

// compressIndex encodes data with c the way a repository publishes its index.
func compressIndex(t *testing.T, c repo.Compression, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	var w io.WriteCloser
	switch c {
	case repo.CompressionNone:
		return data
	case repo.CompressionGZIP:
		w = gzip.NewWriter(&buf)
	case repo.CompressionXZ:
		xw, err := xz.NewWriter(&buf)
		if err != nil {
			t.Fatal(err)
		}
		w = xw
	case repo.CompressionZstd:
		zw, err := zstd.NewWriter(&buf)
		if err != nil {
			t.Fatal(err)
		}
		w = zw
	default:
		t.Fatalf("unknown compression %q", c)
	}

	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}
