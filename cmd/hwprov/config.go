// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hwprov/hwprov/internal/config"
)

// newConfigCommand creates the `hwprov config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage hwprov configuration",
		Long: `Manage hwprov configuration.

Configuration is read from config.cue, or config.toml when no CUE file
exists, in:
  - Linux: $XDG_CONFIG_HOME/hwprov (default ~/.config/hwprov)
  - macOS: ~/Library/Application Support/hwprov

Any key can be overridden from the environment with the HWPROV_ prefix,
e.g. HWPROV_CHROOT_TARGET_ARCH=arm64.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := showConfig(cmd.Context(), app); err != nil {
				return fail(cmd, app, err)
			}
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := showConfigPath(app); err != nil {
				return fail(cmd, app, err)
			}
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.CreateDefaultConfig("")
			if err != nil {
				return fail(cmd, app, err)
			}
			fmt.Fprintf(app.stdout, "%s Configuration file: %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	})

	var format string
	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE or TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := dumpConfig(cmd.Context(), app, format); err != nil {
				return fail(cmd, app, err)
			}
			return nil
		},
	}
	dumpCmd.Flags().StringVar(&format, "format", config.ConfigFileExt, "output format: cue or toml")
	cfgCmd.AddCommand(dumpCmd)

	return cfgCmd
}

func showConfig(ctx context.Context, app *App) error {
	cfg, _, err := app.loadConfig(ctx)
	if err != nil {
		return err
	}

	keyStyle := CmdStyle
	valueStyle := SuccessStyle
	out := app.stdout

	fmt.Fprintln(out, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(out)

	path, err := config.Locate(config.LoadOptions{ConfigFilePath: app.configPath})
	if err != nil || path == "" {
		fmt.Fprintf(out, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	} else {
		fmt.Fprintf(out, "%s: %s\n", keyStyle.Render("Config file"), path)
	}
	fmt.Fprintln(out)

	field := func(key, value string) {
		if value == "" {
			value = SubtitleStyle.Render("(unset)")
		} else {
			value = valueStyle.Render(value)
		}
		fmt.Fprintf(out, "%s: %s\n", keyStyle.Render(key), value)
	}

	if len(cfg.Sources) == 0 {
		field("sources", "")
	} else {
		fmt.Fprintf(out, "%s:\n", keyStyle.Render("sources"))
		for _, src := range cfg.Sources {
			fmt.Fprintf(out, "  - %s\n", valueStyle.Render(src))
		}
	}
	field("architecture", cfg.Architecture)
	field("log_level", cfg.LogLevel.String())
	field("privilege.escalate_command", cfg.Privilege.EscalateCommand)
	field("chroot.target_arch", cfg.Chroot.TargetArch)
	field("chroot.host_etc_dir", cfg.Chroot.HostEtcDir)
	field("chroot.identity_files", strings.Join(cfg.Chroot.IdentityFiles, ", "))
	field("chroot.installer.name", cfg.Chroot.Installer.Name)
	field("chroot.installer.dev_path", cfg.Chroot.Installer.DevPath)
	field("chroot.installer.system_path", cfg.Chroot.Installer.SystemPath)
	field("chroot.force_yes", fmt.Sprint(cfg.Chroot.ForceYes))

	return nil
}

func showConfigPath(app *App) error {
	path, err := config.Locate(config.LoadOptions{ConfigFilePath: app.configPath})
	if err != nil {
		return err
	}
	if path != "" {
		fmt.Fprintln(app.stdout, path)
		return nil
	}

	path, err = config.DefaultConfigPath()
	if err != nil {
		return err
	}
	fmt.Fprintln(app.stdout, path)
	fmt.Fprintln(app.stderr, SubtitleStyle.Render("(file does not exist; defaults are in use)"))
	return nil
}

func dumpConfig(ctx context.Context, app *App, format string) error {
	cfg, _, err := app.loadConfig(ctx)
	if err != nil {
		return err
	}

	switch strings.ToLower(format) {
	case config.ConfigFileExt:
		fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
	case config.TOMLFileExt:
		data, err := config.GenerateTOML(cfg)
		if err != nil {
			return err
		}
		fmt.Fprint(app.stdout, string(data))
	default:
		return fmt.Errorf("%w: unknown format %q, want cue or toml", errUsage, format)
	}
	return nil
}
