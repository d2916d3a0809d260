// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hwprov/hwprov/internal/issue"
	"github.com/hwprov/hwprov/internal/packages"
)

type fetchOptions struct {
	sources  []string
	arch     string
	dest     string
	manifest string
	names    []string
}

func newFetchCommand(app *App) *cobra.Command {
	var opts fetchOptions

	cmd := &cobra.Command{
		Use:   "fetch [flags] PACKAGE...",
		Short: "Download the newest version of packages from apt sources",
		Long: `Download the newest version of each named package.

The package indexes of every source are read into a private sandbox, so
the host's apt state is never consulted or changed. When several sources
offer the same version, the source listed last wins. If any package cannot
be found nothing is downloaded.

Sources are written like sources.list lines without the leading "deb":
  http://deb.debian.org/debian bookworm main contrib
  file:/srv/hwpacks ./`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.names = args
			if err := runFetch(cmd.Context(), app, opts); err != nil {
				return fail(cmd, app, err)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&opts.sources, "source", nil, "apt source entry, repeatable (default is the configured sources)")
	cmd.Flags().StringVar(&opts.arch, "arch", "", "dpkg architecture to fetch for (default is the configured or host architecture)")
	cmd.Flags().StringVar(&opts.dest, "dest", ".", "directory the archives are copied to")
	cmd.Flags().StringVar(&opts.manifest, "manifest", "", "write a YAML manifest of the fetched archives to this file")

	return cmd
}

func runFetch(ctx context.Context, app *App, opts fetchOptions) (err error) {
	cfg, logger, err := app.loadConfig(ctx)
	if err != nil {
		return err
	}

	sources := opts.sources
	if len(sources) == 0 {
		sources = cfg.Sources
	}
	if len(sources) == 0 {
		return issue.NewErrorContext().
			WithOperation("fetch packages").
			WithSuggestion("Pass --source 'URI SUITE COMPONENT...'").
			WithSuggestion("Or list sources in the configuration file").
			WithIssue(issue.SourceUnavailableId).
			Wrap(fmt.Errorf("%w: no package sources configured", errUsage)).
			BuildError()
	}
	arch := opts.arch
	if arch == "" {
		arch = cfg.Architecture
	}

	fetcherOpts := []packages.FetcherOption{
		packages.WithTransport(app.Transport),
		packages.WithLogger(logger),
	}
	if arch != "" {
		fetcherOpts = append(fetcherOpts, packages.WithArchitecture(arch))
	}
	fetcher, err := packages.NewFetcher(sources, fetcherOpts...)
	if err != nil {
		return actionable(err, "parse package sources", "")
	}
	defer func() {
		if cleanupErr := fetcher.Cleanup(); cleanupErr != nil {
			err = errors.Join(err, actionable(cleanupErr, "remove package sandbox", fetcher.Root()))
		}
	}()

	if err := fetcher.Prepare(ctx); err != nil {
		return actionable(err, "update package indexes", "")
	}

	archives, err := fetcher.Fetch(ctx, opts.names)
	if err != nil {
		return actionable(err, "fetch packages", "")
	}

	if err := os.MkdirAll(opts.dest, 0o755); err != nil {
		return actionable(err, "create destination directory", opts.dest)
	}
	for name, a := range archives {
		target := filepath.Join(opts.dest, name)
		if err := copyFile(a.Path, target); err != nil {
			return actionable(err, "copy archive", target)
		}
		a.Path = target
	}

	manifest := packages.NewManifest(fetcher.Architecture(), sources, archives)
	for _, entry := range manifest.Packages {
		fmt.Fprintf(app.stdout, "%s %s %s %s\n",
			SuccessStyle.Render("✓"), entry.Name, SubtitleStyle.Render(entry.Version), CmdStyle.Render(entry.Location))
	}

	if opts.manifest != "" {
		if err := writeManifest(opts.manifest, manifest); err != nil {
			return actionable(err, "write manifest", opts.manifest)
		}
	}
	return nil
}

func writeManifest(path string, m *packages.Manifest) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return m.Write(f)
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	_, err = io.Copy(out, in)
	return err
}
