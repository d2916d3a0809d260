// SPDX-License-Identifier: MPL-2.0

package packages

import (
	"runtime"
	"strings"

	"github.com/hwprov/hwprov/internal/repo"
)

// Source is one repository entry as it appears after "deb " in sources.list:
// a URI, a suite, and zero or more components. A suite ending in "/" names a
// flat repository, which has no components.
type Source struct {
	// Raw is the entry exactly as configured.
	Raw        string
	URI        string
	Suite      string
	Components []string
}

// ParseSource splits a sources.list entry. The URI is normalized with
// NormalizeFileURI; a missing suite means a flat repository rooted at the URI.
func ParseSource(entry string) (Source, error) {
	fields := strings.Fields(entry)
	if len(fields) > 0 && strings.HasPrefix(fields[0], "[") {
		fields = skipOptions(fields)
	}
	if len(fields) == 0 {
		return Source{}, &InvalidSourceError{Source: entry, Reason: "empty entry"}
	}
	if !strings.Contains(fields[0], ":") {
		return Source{}, &InvalidSourceError{Source: entry, Reason: "URI has no scheme"}
	}

	src := Source{
		Raw:   entry,
		URI:   NormalizeFileURI(fields[0]),
		Suite: "./",
	}
	if len(fields) > 1 {
		src.Suite = fields[1]
	}
	if len(fields) > 2 {
		src.Components = fields[2:]
	}

	if src.Flat() && len(src.Components) > 0 {
		return Source{}, &InvalidSourceError{Source: entry, Reason: "flat repository suite cannot have components"}
	}
	if !src.Flat() && len(src.Components) == 0 {
		return Source{}, &InvalidSourceError{Source: entry, Reason: "suite " + src.Suite + " needs at least one component"}
	}
	return src, nil
}

// skipOptions drops a leading "[key=value ...]" option block.
func skipOptions(fields []string) []string {
	for i, f := range fields {
		if strings.HasSuffix(f, "]") {
			return fields[i+1:]
		}
	}
	return nil
}

// Flat reports whether the source is a flat repository.
func (s Source) Flat() bool {
	return strings.HasSuffix(s.Suite, "/")
}

// IndexURIs returns the URIs of the uncompressed Packages indexes for arch,
// one per component (or exactly one for a flat repository). Compressed
// variants are found by appending a compression extension.
func (s Source) IndexURIs(arch string) []string {
	if s.Flat() {
		return []string{repo.Join(s.URI, s.Suite, "Packages")}
	}
	uris := make([]string, 0, len(s.Components))
	for _, comp := range s.Components {
		uris = append(uris, repo.Join(s.URI, "dists", s.Suite, comp, "binary-"+arch, "Packages"))
	}
	return uris
}

// ListFileName converts an index URI into the flat file name apt uses under
// var/lib/apt/lists: the scheme is dropped and slashes become underscores.
func ListFileName(uri string) string {
	if _, rest, ok := strings.Cut(uri, "://"); ok {
		uri = rest
	} else if _, rest, ok := strings.Cut(uri, ":"); ok {
		uri = rest
	}
	return strings.ReplaceAll(uri, "/", "_")
}

// HostArchitecture returns the dpkg architecture name of the running binary.
func HostArchitecture() string {
	return DpkgArchitecture(runtime.GOARCH)
}

// DpkgArchitecture maps a GOARCH value to the matching dpkg architecture.
// Unknown values are returned unchanged.
func DpkgArchitecture(goarch string) string {
	switch goarch {
	case "arm":
		return "armhf"
	case "386":
		return "i386"
	case "ppc64le":
		return "ppc64el"
	case "mips64le":
		return "mips64el"
	default:
		return goarch
	}
}
