// SPDX-License-Identifier: MPL-2.0

package packages

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hwprov/hwprov/internal/repo"
)

type (
	// Downloader retrieves the archive for a resolved descriptor into dir.
	// It is the package-manager collaborator that owns the transfer; the
	// Fetcher only decides what to download.
	Downloader interface {
		Download(ctx context.Context, d Descriptor, dir string) (*Archive, error)
	}

	// Archive is a fetched package file in the sandbox archive cache. It is
	// valid until the owning Fetcher is cleaned up.
	Archive struct {
		Descriptor
		Path string
	}

	// Fetcher resolves package names against every configured source and
	// downloads the winning versions.
	Fetcher struct {
		*Sandbox

		sources    []Source
		arch       string
		transport  repo.Transport
		downloader Downloader
		indexes    []*Index
		logger     *slog.Logger
		sandboxDir string
	}

	// FetcherOption configures a Fetcher.
	FetcherOption func(*Fetcher)
)

// NewFetcher parses sources and returns an unprepared Fetcher. By default it
// targets the host architecture and reads repositories through repo.NewMux.
func NewFetcher(sources []string, opts ...FetcherOption) (*Fetcher, error) {
	parsed := make([]Source, 0, len(sources))
	for _, entry := range sources {
		src, err := ParseSource(entry)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, src)
	}

	f := &Fetcher{
		sources: parsed,
		arch:    HostArchitecture(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.transport == nil {
		f.transport = repo.NewMux(nil)
	}
	if f.downloader == nil {
		f.downloader = &TransportDownloader{Transport: f.transport}
	}
	f.Sandbox = NewSandbox(sources, WithTempDir(f.sandboxDir), WithSandboxLogger(f.logger))
	return f, nil
}

// WithTransport sets the repository transport.
func WithTransport(t repo.Transport) FetcherOption {
	return func(f *Fetcher) {
		f.transport = t
	}
}

// WithDownloader replaces the archive downloader.
func WithDownloader(d Downloader) FetcherOption {
	return func(f *Fetcher) {
		f.downloader = d
	}
}

// WithArchitecture sets the dpkg architecture whose packages are considered.
// Architecture-independent packages are always considered.
func WithArchitecture(arch string) FetcherOption {
	return func(f *Fetcher) {
		if arch != "" {
			f.arch = arch
		}
	}
}

// WithLogger sets the fetcher and sandbox logger.
func WithLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithSandboxDir sets the parent directory for the sandbox tree.
func WithSandboxDir(dir string) FetcherOption {
	return func(f *Fetcher) {
		f.sandboxDir = dir
	}
}

// Architecture returns the target dpkg architecture.
func (f *Fetcher) Architecture() string {
	return f.arch
}

// Prepare creates the sandbox and downloads every source's package index
// into its lists directory. Fetch is only usable once every index loaded.
func (f *Fetcher) Prepare(ctx context.Context) error {
	f.indexes = nil
	if err := f.Sandbox.Prepare(); err != nil {
		return err
	}

	indexes := make([]*Index, 0, len(f.sources))
	for i, src := range f.sources {
		idx := NewIndex(src, i)
		for _, uri := range src.IndexURIs(f.arch) {
			path, err := f.updateIndex(ctx, uri)
			if err != nil {
				return fmt.Errorf("failed to update %s: %w", src.Raw, err)
			}
			if err := loadIndexFile(idx, path, f.arch); err != nil {
				return err
			}
		}
		f.logger.Debug("index loaded", "source", src.Raw, "packages", idx.Len())
		indexes = append(indexes, idx)
	}
	f.indexes = indexes
	return nil
}

// Fetch resolves every name to its newest version across all sources and
// downloads the result, keyed by archive file name. If any name cannot be
// resolved nothing is downloaded and a *PackageNotFoundError is returned.
func (f *Fetcher) Fetch(ctx context.Context, names []string) (map[string]*Archive, error) {
	if f.State() != StatePrepared {
		return nil, ErrSandboxNotPrepared
	}
	if f.indexes == nil {
		return nil, fmt.Errorf("%w: package indexes were not fully loaded", ErrSandboxNotPrepared)
	}

	archives := make(map[string]*Archive, len(names))
	if len(names) == 0 {
		return archives, nil
	}

	resolved := make([]Descriptor, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		d, ok := Resolve(f.indexes, name)
		if !ok {
			return nil, &PackageNotFoundError{Name: name}
		}
		f.logger.Debug("resolved", "package", name, "version", d.Version.String(), "source", d.SourceURI)
		resolved = append(resolved, d)
	}

	dir := f.Path(ArchivesDir)
	for _, d := range resolved {
		a, err := f.downloader.Download(ctx, d, dir)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", d, err)
		}
		archives[d.ArchiveName()] = a
	}
	return archives, nil
}

// updateIndex downloads the first available compressed variant of uri,
// decompresses it through the lists/partial directory and returns the final
// path under lists.
func (f *Fetcher) updateIndex(ctx context.Context, uri string) (string, error) {
	for _, c := range repo.IndexCompressions {
		rc, err := f.transport.Open(ctx, uri+c.Extension())
		if errors.Is(err, repo.ErrNotFound) {
			continue
		}
		if err != nil {
			return "", err
		}
		path, err := f.storeIndex(rc, c, ListFileName(uri))
		_ = rc.Close() // Read side; close error non-critical
		return path, err
	}
	return "", fmt.Errorf("%w: no package index at %s", repo.ErrNotFound, uri)
}

func (f *Fetcher) storeIndex(r io.Reader, c repo.Compression, name string) (string, error) {
	dec, err := c.NewReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s index: %w", c, err)
	}
	defer func() { _ = dec.Close() }() // Decoder holds no resources beyond r

	partial := filepath.Join(f.Path(ListsDir), "partial", name)
	final := filepath.Join(f.Path(ListsDir), name)
	if err := writeFile(partial, dec); err != nil {
		return "", err
	}
	if err := os.Rename(partial, final); err != nil {
		return "", fmt.Errorf("failed to move index into place: %w", err)
	}
	return final, nil
}

func loadIndexFile(idx *Index, path, arch string) error {
	fh, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = fh.Close() }() // Read-only file; close error non-critical
	return idx.Load(fh, arch)
}

// Open streams the archive bytes from the sandbox cache.
func (a *Archive) Open() (io.ReadCloser, error) {
	return os.Open(a.Path)
}

// Bytes reads the whole archive.
func (a *Archive) Bytes() ([]byte, error) {
	return os.ReadFile(a.Path)
}

func writeFile(path string, r io.Reader) (err error) {
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, closeErr)
		}
	}()
	if _, err := io.Copy(out, r); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
