// SPDX-License-Identifier: MPL-2.0

package packages

import (
	"fmt"
	"io"
	"slices"

	"gopkg.in/yaml.v3"
)

type (
	// Manifest records what a fetch produced, so a later install can be
	// audited against it.
	Manifest struct {
		Architecture string          `yaml:"architecture"`
		Sources      []string        `yaml:"sources"`
		Packages     []ManifestEntry `yaml:"packages"`
	}

	// ManifestEntry describes one fetched archive.
	ManifestEntry struct {
		Name     string `yaml:"name"`
		Version  string `yaml:"version"`
		Arch     string `yaml:"architecture"`
		File     string `yaml:"file"`
		Size     int64  `yaml:"size,omitempty"`
		SHA256   string `yaml:"sha256,omitempty"`
		Source   string `yaml:"source"`
		Location string `yaml:"location,omitempty"`
	}
)

// NewManifest builds a manifest for archives, ordered by archive file name.
func NewManifest(arch string, sources []string, archives map[string]*Archive) *Manifest {
	m := &Manifest{
		Architecture: arch,
		Sources:      append([]string(nil), sources...),
		Packages:     make([]ManifestEntry, 0, len(archives)),
	}

	names := make([]string, 0, len(archives))
	for name := range archives {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		a := archives[name]
		m.Packages = append(m.Packages, ManifestEntry{
			Name:     a.Name,
			Version:  a.Version.String(),
			Arch:     a.Architecture,
			File:     name,
			Size:     a.Size,
			SHA256:   a.SHA256,
			Source:   a.SourceURI,
			Location: a.Path,
		})
	}
	return m
}

// Write encodes the manifest as YAML.
func (m *Manifest) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return enc.Close()
}
