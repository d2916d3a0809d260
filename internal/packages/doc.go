// SPDX-License-Identifier: MPL-2.0

// Package packages resolves and downloads Debian packages from one or more
// repositories without touching the host's package-manager state.
//
// A Sandbox is a throwaway directory tree laid out like the parts of a real
// system that apt reads and writes (dpkg status database, archive cache,
// index lists, sources.list). A Fetcher builds on a Sandbox: Prepare creates
// the tree and downloads each source's package index into it, and Fetch picks
// the newest version of every requested package across all sources and
// downloads it into the sandbox's archive cache.
//
//	f, err := packages.NewFetcher([]string{"file:/srv/hwpacks ./"})
//	if err != nil { ... }
//	defer f.Cleanup()
//	if err := f.Prepare(ctx); err != nil { ... }
//	archives, err := f.Fetch(ctx, []string{"linux-image-omap"})
//
// When two sources publish the same version of a package, the source listed
// later wins.
package packages
