// SPDX-License-Identifier: MPL-2.0

package packages

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"pault.ag/go/debian/control"
)

// Index holds the package versions published by one source.
type Index struct {
	source   Source
	ordinal  int
	packages map[string][]Descriptor
}

// NewIndex creates an empty index for the source at position ordinal.
func NewIndex(src Source, ordinal int) *Index {
	return &Index{
		source:   src,
		ordinal:  ordinal,
		packages: make(map[string][]Descriptor),
	}
}

// Source returns the source this index was built from.
func (i *Index) Source() Source {
	return i.source
}

// Add records a descriptor, stamping it with this index's source.
func (i *Index) Add(d Descriptor) {
	d.Source = i.ordinal
	d.SourceURI = i.source.URI
	i.packages[d.Name] = append(i.packages[d.Name], d)
}

// Load parses a Packages file and adds every stanza built for arch or "all".
func (i *Index) Load(r io.Reader, arch string) error {
	entries, err := control.ParseBinaryIndex(bufio.NewReader(r))
	if err != nil {
		return fmt.Errorf("failed to parse package index for %s: %w", i.source.Raw, err)
	}

	for _, e := range entries {
		pkgArch := e.Values["Architecture"]
		if pkgArch != arch && pkgArch != ArchitectureAll {
			continue
		}
		d := Descriptor{
			Name:         e.Package,
			Version:      e.Version,
			Architecture: pkgArch,
			Filename:     e.Filename,
			SHA256:       e.Values["SHA256"],
		}
		if raw := e.Values["Size"]; raw != "" {
			size, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return fmt.Errorf("package %s: invalid Size %q: %w", e.Package, raw, err)
			}
			d.Size = size
		}
		i.Add(d)
	}
	return nil
}

// Len returns the number of distinct package names.
func (i *Index) Len() int {
	return len(i.packages)
}

// Newest returns the highest version of name in this index. Among equal
// versions the one added last wins.
func (i *Index) Newest(name string) (Descriptor, bool) {
	var best Descriptor
	found := false
	for _, d := range i.packages[name] {
		if !found || d.Compare(best) >= 0 {
			best = d
			found = true
		}
	}
	return best, found
}

// Resolve picks the newest version of name across indexes, which must be in
// source declaration order; on a tie the later source wins.
func Resolve(indexes []*Index, name string) (Descriptor, bool) {
	var best Descriptor
	found := false
	for _, idx := range indexes {
		d, ok := idx.Newest(name)
		if !ok {
			continue
		}
		if !found || d.Compare(best) >= 0 {
			best = d
			found = true
		}
	}
	return best, found
}
