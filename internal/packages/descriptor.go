// SPDX-License-Identifier: MPL-2.0

package packages

import (
	"fmt"
	"strings"

	"pault.ag/go/debian/version"
)

// ArchitectureAll marks architecture-independent packages.
const ArchitectureAll = "all"

// Descriptor is one package version as published by one source.
type Descriptor struct {
	Name         string
	Version      version.Version
	Architecture string
	// Filename is the pool path relative to the source URI.
	Filename string
	// Size and SHA256 are zero when the index does not publish them.
	Size   int64
	SHA256 string
	// Source is the position of the publishing source in the configured list.
	Source    int
	SourceURI string
}

// ArchiveName is the file name apt gives the downloaded archive:
// <name>_<version>_<arch>.deb with the epoch colon escaped.
func (d Descriptor) ArchiveName() string {
	v := strings.ReplaceAll(d.Version.String(), ":", "%3a")
	return fmt.Sprintf("%s_%s_%s.deb", d.Name, v, d.Architecture)
}

// Compare orders two descriptors by Debian version.
func (d Descriptor) Compare(other Descriptor) int {
	return version.Compare(d.Version, other.Version)
}

func (d Descriptor) String() string {
	return d.Name + "=" + d.Version.String()
}
