// SPDX-License-Identifier: MPL-2.0

package packages

import (
	"errors"
	"slices"
	"testing"
)

func TestParseSource(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		entry      string
		uri        string
		suite      string
		components []string
		flat       bool
	}{
		{"flat repository", "file:/srv/repo ./", "file:///srv/repo", "./", nil, true},
		{"missing suite is flat", "http://repo.example.org/hwpacks", "http://repo.example.org/hwpacks", "./", nil, true},
		{"flat subdirectory", "http://repo.example.org/x sub/", "http://repo.example.org/x", "sub/", nil, true},
		{"distribution", "http://deb.example.org/debian stable main contrib", "http://deb.example.org/debian", "stable", []string{"main", "contrib"}, false},
		{"options block skipped", "[arch=armhf trusted=yes] http://deb.example.org/debian sid main", "http://deb.example.org/debian", "sid", []string{"main"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			src, err := ParseSource(tt.entry)
			if err != nil {
				t.Fatalf("ParseSource(%q) error = %v", tt.entry, err)
			}
			if src.Raw != tt.entry {
				t.Errorf("Raw = %q, want %q", src.Raw, tt.entry)
			}
			if src.URI != tt.uri {
				t.Errorf("URI = %q, want %q", src.URI, tt.uri)
			}
			if src.Suite != tt.suite {
				t.Errorf("Suite = %q, want %q", src.Suite, tt.suite)
			}
			if !slices.Equal(src.Components, tt.components) {
				t.Errorf("Components = %v, want %v", src.Components, tt.components)
			}
			if src.Flat() != tt.flat {
				t.Errorf("Flat() = %v, want %v", src.Flat(), tt.flat)
			}
		})
	}
}

func TestParseSource_Invalid(t *testing.T) {
	t.Parallel()

	for _, entry := range []string{
		"",
		"   ",
		"/srv/repo ./",
		"http://deb.example.org/debian stable",
		"file:/srv/repo ./ main",
		"[arch=armhf]",
	} {
		_, err := ParseSource(entry)
		if !errors.Is(err, ErrInvalidSource) {
			t.Errorf("ParseSource(%q) error = %v, want ErrInvalidSource", entry, err)
		}
	}
}

func TestSource_IndexURIs(t *testing.T) {
	t.Parallel()

	flat, err := ParseSource("file:/srv/repo ./")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := flat.IndexURIs("armhf"), []string{"file:///srv/repo/Packages"}; !slices.Equal(got, want) {
		t.Errorf("flat IndexURIs = %v, want %v", got, want)
	}

	dist, err := ParseSource("http://deb.example.org/debian/ bookworm main non-free")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"http://deb.example.org/debian/dists/bookworm/main/binary-armhf/Packages",
		"http://deb.example.org/debian/dists/bookworm/non-free/binary-armhf/Packages",
	}
	if got := dist.IndexURIs("armhf"); !slices.Equal(got, want) {
		t.Errorf("dist IndexURIs = %v, want %v", got, want)
	}
}

func TestListFileName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"http://deb.example.org/debian/dists/sid/main/binary-armhf/Packages": "deb.example.org_debian_dists_sid_main_binary-armhf_Packages",
		"file:///srv/repo/Packages": "_srv_repo_Packages",
		"file:/srv/repo/Packages":   "_srv_repo_Packages",
	}
	for uri, want := range tests {
		if got := ListFileName(uri); got != want {
			t.Errorf("ListFileName(%q) = %q, want %q", uri, got, want)
		}
	}
}

func TestDpkgArchitecture(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"amd64":    "amd64",
		"arm64":    "arm64",
		"arm":      "armhf",
		"386":      "i386",
		"ppc64le":  "ppc64el",
		"mips64le": "mips64el",
		"riscv64":  "riscv64",
	}
	for goarch, want := range tests {
		if got := DpkgArchitecture(goarch); got != want {
			t.Errorf("DpkgArchitecture(%q) = %q, want %q", goarch, got, want)
		}
	}
}
