// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hwprov/hwprov/internal/chroot"
	"github.com/hwprov/hwprov/internal/issue"
)

type installOptions struct {
	chrootDir  string
	hwpacks    []string
	signatures []string
	forceYes   bool
	targetArch string
	hostArch   string
	dryRun     bool
}

func newInstallCommand(app *App) *cobra.Command {
	var opts installOptions

	cmd := &cobra.Command{
		Use:   "install --chroot DIR --hwpack FILE...",
		Short: "Install hardware packs into a chroot",
		Long: `Install hardware packs into a root filesystem.

The chroot is staged first: the host's resolv.conf and hosts replace the
chroot's, a static emulator is copied in when the target architecture
differs from the host's, the installer helper is copied in and /proc is
mounted. Hardware packs are then installed in order. The first failure
stops the run. Whatever happens, every staging step is undone before the
command returns.

Privileged steps run through the configured escalation command unless
hwprov already runs as root.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runInstall(cmd.Context(), app, opts); err != nil {
				return fail(cmd, app, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.chrootDir, "chroot", "", "root filesystem to install into (required)")
	cmd.Flags().StringArrayVar(&opts.hwpacks, "hwpack", nil, "hardware pack archive, repeatable, installed in order (required)")
	cmd.Flags().StringArrayVar(&opts.signatures, "hwpack-sig", nil, "detached signature for the hwpack at the same position")
	cmd.Flags().BoolVar(&opts.forceYes, "hwpack-force-yes", false, "pass --force-yes to the installer helper")
	cmd.Flags().StringVar(&opts.targetArch, "target-arch", "", "architecture of the chroot (default is chroot.target_arch)")
	cmd.Flags().StringVar(&opts.hostArch, "host-arch", "", "architecture of this machine (default is detected)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "print the commands instead of running them")
	_ = cmd.MarkFlagRequired("chroot")
	_ = cmd.MarkFlagRequired("hwpack")

	return cmd
}

func runInstall(ctx context.Context, app *App, opts installOptions) error {
	cfg, logger, err := app.loadConfig(ctx)
	if err != nil {
		return err
	}

	if info, err := os.Stat(opts.chrootDir); err != nil || !info.IsDir() {
		return actionable(fmt.Errorf("%w: %s", errChrootNotFound, opts.chrootDir), "install hwpacks", opts.chrootDir)
	}
	for _, hwpack := range opts.hwpacks {
		if _, err := os.Stat(hwpack); err != nil {
			return actionable(err, "read hwpack", hwpack)
		}
	}
	signatures, err := pairSignatures(opts.hwpacks, opts.signatures)
	if err != nil {
		return err
	}

	chrootCfg := chroot.Config{
		HostArch:      opts.hostArch,
		TargetArch:    cfg.Chroot.TargetArch,
		HostEtcDir:    cfg.Chroot.HostEtcDir,
		IdentityFiles: cfg.Chroot.IdentityFiles,
		Installer: chroot.InstallerConfig{
			Name:       cfg.Chroot.Installer.Name,
			DevPath:    cfg.Chroot.Installer.DevPath,
			SystemPath: cfg.Chroot.Installer.SystemPath,
		},
	}
	if opts.targetArch != "" {
		chrootCfg.TargetArch = opts.targetArch
	}

	runner := app.Runners(RunnerRequest{
		Config: cfg,
		DryRun: opts.dryRun,
		Stdout: app.stdout,
		Stderr: app.stderr,
		Logger: logger,
	})
	provisioner, err := chroot.NewProvisioner(runner, chrootCfg,
		chroot.WithLookPath(app.LookPath),
		chroot.WithLogger(logger),
	)
	if err != nil {
		return actionable(err, "detect host architecture", "")
	}
	installer := chroot.NewInstaller(provisioner, chroot.WithSignatures(signatures))

	if opts.dryRun {
		fmt.Fprintln(app.stdout, WarningStyle.Render("Dry run: commands are printed, not executed"))
	}

	forceYes := opts.forceYes || cfg.Chroot.ForceYes
	if err := installer.InstallAll(ctx, opts.chrootDir, forceYes, opts.hwpacks); err != nil {
		return actionable(err, "install hwpacks", opts.chrootDir)
	}

	if !opts.dryRun {
		fmt.Fprintf(app.stdout, "%s installed %d hwpack(s) into %s\n",
			SuccessStyle.Render("✓"), len(opts.hwpacks), CmdStyle.Render(opts.chrootDir))
	}
	return nil
}

// pairSignatures matches --hwpack-sig values to hwpacks by position.
func pairSignatures(hwpacks, signatures []string) (map[string]string, error) {
	if len(signatures) == 0 {
		return nil, nil
	}
	if len(signatures) != len(hwpacks) {
		return nil, issue.NewErrorContext().
			WithOperation("verify hwpacks").
			WithSuggestion("Give one --hwpack-sig per --hwpack, in the same order").
			Wrap(fmt.Errorf("%w: %d signatures for %d hwpacks", errUsage, len(signatures), len(hwpacks))).
			BuildError()
	}
	pairs := make(map[string]string, len(hwpacks))
	for i, hwpack := range hwpacks {
		pairs[hwpack] = signatures[i]
	}
	return pairs, nil
}
