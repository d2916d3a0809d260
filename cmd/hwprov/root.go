// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for hwprov.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	errUsage = errors.New("invalid usage")
)

// NewRootCommand builds the hwprov command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hwprov",
		Short: "Fetch Debian packages and install hardware packs into chroots",
		Long: TitleStyle.Render("hwprov") + SubtitleStyle.Render(" - Debian package fetcher and hwpack chroot provisioner") + `

hwprov resolves packages against apt sources inside a private sandbox,
without touching the host's package state, and installs hardware packs
into a root filesystem through its own installer helper. Every change
made to the chroot is undone when the install finishes or fails.

` + SubtitleStyle.Render("Examples:") + `
  hwprov fetch --source "http://deb.debian.org/debian bookworm main" u-boot-tools
  hwprov install --chroot ./rootfs --hwpack hwpack_panda.tar.gz
  hwprov install --chroot ./rootfs --hwpack hwpack_panda.tar.gz --dry-run
  hwprov config show`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&app.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/hwprov/config.cue)")

	rootCmd.AddCommand(newFetchCommand(app))
	rootCmd.AddCommand(newInstallCommand(app))
	rootCmd.AddCommand(newConfigCommand(app))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// notifySignals cancel the command context. Commands unwind whatever they
// staged before the process exits.
var notifySignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// Execute builds the App and runs the command tree. It is called by main.main().
func Execute() {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+err.Error())
		os.Exit(exitFailure)
	}

	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(notifySignals...),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(exitFailure)
	}
}

// fail reports err on the command's stderr and silences Cobra's own
// rendering of it.
func fail(cmd *cobra.Command, app *App, err error) error {
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	return reportError(app.stderr, err, app.verbose)
}
