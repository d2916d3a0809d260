// SPDX-License-Identifier: MPL-2.0

package chroot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/hwprov/hwprov/internal/cmdrunner"
	"github.com/hwprov/hwprov/internal/rollback"
)

const (
	// DefaultInstallerName is the in-chroot installer helper.
	DefaultInstallerName = "linaro-hwpack-install"
	// DefaultInstallerSystemPath is where the distribution installs the helper.
	DefaultInstallerSystemPath = "/usr/bin/" + DefaultInstallerName

	imageTool = "qemu-img"
)

type (
	// Config describes how a chroot is staged.
	Config struct {
		// HostArch and TargetArch decide whether an emulator is injected.
		// Both are normalized with NormalizeArch.
		HostArch   string
		TargetArch string
		// HostEtcDir is where the host's identity files are copied from.
		HostEtcDir string
		// IdentityFiles are swapped into <chroot>/etc for the duration of the
		// install.
		IdentityFiles []string
		Installer     InstallerConfig
	}

	// InstallerConfig locates the installer helper. DevPath is preferred
	// when it exists.
	InstallerConfig struct {
		Name       string
		DevPath    string
		SystemPath string
	}

	// LookPathFunc resolves a program name against PATH.
	LookPathFunc func(file string) (string, error)

	// Provisioner stages chroots.
	Provisioner struct {
		runner     cmdrunner.Runner
		cfg        Config
		lookPath   LookPathFunc
		scratchDir string
		logger     *slog.Logger
	}

	// ProvisionerOption configures a Provisioner.
	ProvisionerOption func(*Provisioner)
)

// DefaultConfig returns a configuration that swaps resolv.conf and hosts
// from /etc and targets armhf.
func DefaultConfig() Config {
	return Config{
		TargetArch:    "armhf",
		HostEtcDir:    "/etc",
		IdentityFiles: []string{"resolv.conf", "hosts"},
		Installer: InstallerConfig{
			Name:       DefaultInstallerName,
			SystemPath: DefaultInstallerSystemPath,
		},
	}
}

// NewProvisioner creates a Provisioner that runs commands through runner.
// An empty cfg.HostArch is filled in from the running kernel.
func NewProvisioner(runner cmdrunner.Runner, cfg Config, opts ...ProvisionerOption) (*Provisioner, error) {
	if cfg.HostArch == "" {
		host, err := HostArch()
		if err != nil {
			return nil, err
		}
		cfg.HostArch = host
	}
	if cfg.Installer.Name == "" {
		cfg.Installer.Name = DefaultInstallerName
	}

	p := &Provisioner{
		runner:   runner,
		cfg:      cfg,
		lookPath: exec.LookPath,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// WithLookPath replaces the PATH lookup used for emulator tools.
func WithLookPath(fn LookPathFunc) ProvisionerOption {
	return func(p *Provisioner) {
		p.lookPath = fn
	}
}

// WithScratchDir sets the parent of the per-stage scratch directory.
func WithScratchDir(dir string) ProvisionerOption {
	return func(p *Provisioner) {
		p.scratchDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ProvisionerOption {
	return func(p *Provisioner) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Config returns the effective configuration.
func (p *Provisioner) Config() Config {
	return p.cfg
}

// Stage prepares chrootDir for running the installer helper: identity files
// are swapped in from the host, the emulator and installer helper are
// injected, and proc is mounted. If a step fails, everything done so far is
// reverted before the error is returned.
func (p *Provisioner) Stage(ctx context.Context, chrootDir string) (staged *Context, err error) {
	c := &Context{
		Dir:    chrootDir,
		ledger: rollback.New(p.logger),
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, c.Teardown(context.WithoutCancel(ctx)))
			staged = nil
		}
	}()

	scratch, err := os.MkdirTemp(p.scratchDir, "hwprov-chroot-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	c.Scratch = scratch
	c.ledger.Register("remove "+scratch, func(context.Context) error {
		return removeScratch(scratch)
	})

	for _, name := range p.cfg.IdentityFiles {
		if err := p.swapIdentityFile(ctx, c, name); err != nil {
			return nil, err
		}
	}

	if NeedsEmulation(p.cfg.HostArch, p.cfg.TargetArch) {
		if err := p.injectEmulator(ctx, c); err != nil {
			return nil, err
		}
	}

	installer, err := p.installerPath()
	if err != nil {
		return nil, err
	}
	if err := p.copyIn(ctx, c, installer, filepath.Join(chrootDir, "usr", "bin", p.cfg.Installer.Name)); err != nil {
		return nil, err
	}

	if err := p.mountProc(ctx, c); err != nil {
		return nil, err
	}

	c.state = StateStaged
	p.logger.Debug("chroot staged", "dir", chrootDir, "undo_actions", c.Pending())
	return c, nil
}

// swapIdentityFile parks the chroot's copy of name in the scratch directory
// and replaces it with the host's. A chroot without the file simply gets the
// host's copy, removed again on teardown.
func (p *Provisioner) swapIdentityFile(ctx context.Context, c *Context, name string) error {
	target := filepath.Join(c.Dir, "etc", name)
	host := filepath.Join(p.cfg.HostEtcDir, name)

	_, err := os.Lstat(target)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return p.copyIn(ctx, c, host, target)
	case err != nil:
		return fmt.Errorf("failed to inspect %s: %w", target, err)
	}

	orig := filepath.Join(c.Scratch, name+".orig")
	if err := cmdrunner.Check(ctx, p.runner, []string{"mv", "-f", target, orig}, true); err != nil {
		return err
	}
	c.ledger.Register("restore "+target, func(ctx context.Context) error {
		return cmdrunner.Check(ctx, p.runner, []string{"mv", "-f", orig, target}, true)
	})
	c.Overwrites = append(c.Overwrites, target)

	return cmdrunner.Check(ctx, p.runner, []string{"cp", host, target}, true)
}

// injectEmulator copies the static emulator for the target architecture into
// the chroot. Both the emulator and qemu-img must be present before anything
// is copied.
func (p *Provisioner) injectEmulator(ctx context.Context, c *Context) error {
	emulator := EmulatorBinary(p.cfg.TargetArch)
	path, err := p.lookPath(emulator)
	if err != nil {
		return &ToolMissingError{Tool: emulator, Package: "qemu-user-static"}
	}
	if _, err := p.lookPath(imageTool); err != nil {
		return &ToolMissingError{Tool: imageTool, Package: "qemu-utils"}
	}

	p.logger.Debug("cross-architecture chroot", "host", p.cfg.HostArch, "target", p.cfg.TargetArch, "emulator", path)
	return p.copyIn(ctx, c, path, filepath.Join(c.Dir, "usr", "bin", emulator))
}

// installerPath returns the development-tree helper when it exists and the
// system-installed one otherwise.
func (p *Provisioner) installerPath() (string, error) {
	for _, candidate := range []string{p.cfg.Installer.DevPath, p.cfg.Installer.SystemPath} {
		if candidate == "" {
			continue
		}
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", &ToolMissingError{Tool: p.cfg.Installer.Name, Package: "linaro-image-tools"}
}

func (p *Provisioner) mountProc(ctx context.Context, c *Context) error {
	proc := filepath.Join(c.Dir, "proc")
	if err := cmdrunner.Check(ctx, p.runner, []string{"mount", "proc", proc, "-t", "proc"}, true); err != nil {
		return err
	}
	c.ledger.Register("unmount "+proc, func(ctx context.Context) error {
		return cmdrunner.Check(ctx, p.runner, []string{"umount", "-v", proc}, true)
	})
	c.Mounts = append(c.Mounts, proc)
	return nil
}

// removeScratch removes the scratch directory only once it is empty. A file
// left behind is an original whose restore failed and is the only copy.
func removeScratch(dir string) error {
	err := os.Remove(dir)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	entries, readErr := os.ReadDir(dir)
	if readErr != nil || len(entries) == 0 {
		return fmt.Errorf("failed to remove scratch directory %s: %w", dir, err)
	}
	parked := make([]string, len(entries))
	for i, e := range entries {
		parked[i] = filepath.Join(dir, e.Name())
	}
	return fmt.Errorf("%w: %s", ErrScratchNotEmpty, strings.Join(parked, ", "))
}

// copyIn copies src to dest inside the chroot and registers its removal.
func (p *Provisioner) copyIn(ctx context.Context, c *Context, src, dest string) error {
	if err := cmdrunner.Check(ctx, p.runner, []string{"cp", src, dest}, true); err != nil {
		return err
	}
	c.ledger.Register("remove "+dest, func(ctx context.Context) error {
		return cmdrunner.Check(ctx, p.runner, []string{"rm", "-f", dest}, true)
	})
	c.Injected = append(c.Injected, dest)
	return nil
}
