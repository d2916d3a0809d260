// SPDX-License-Identifier: MPL-2.0

package chroot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/hwprov/hwprov/internal/cmdrunner"
)

type (
	// Installer installs hardware packs into a chroot with the in-chroot
	// installer helper.
	Installer struct {
		provisioner *Provisioner
		runner      cmdrunner.Runner
		verifier    Verifier
		signatures  map[string]string
		logger      *slog.Logger
	}

	// InstallerOption configures an Installer.
	InstallerOption func(*Installer)
)

// NewInstaller creates an Installer that stages chroots with p and runs
// commands through p's runner.
func NewInstaller(p *Provisioner, opts ...InstallerOption) *Installer {
	i := &Installer{
		provisioner: p,
		runner:      p.runner,
		logger:      p.logger,
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.verifier == nil {
		i.verifier = &GPGVerifier{Runner: i.runner}
	}
	return i
}

// WithSignatures maps hwpack paths to detached signature files. Hwpacks in
// the map are verified before the chroot is touched.
func WithSignatures(sigs map[string]string) InstallerOption {
	return func(i *Installer) {
		i.signatures = sigs
	}
}

// WithVerifier replaces the signature verifier.
func WithVerifier(v Verifier) InstallerOption {
	return func(i *Installer) {
		i.verifier = v
	}
}

// InstallAll stages chrootDir and installs each hwpack in order. The first
// hwpack whose install fails aborts the run; the chroot is reverted before
// InstallAll returns, whatever the outcome.
func (i *Installer) InstallAll(ctx context.Context, chrootDir string, forceYes bool, hwpacks []string) (err error) {
	for _, hwpack := range hwpacks {
		sig, ok := i.signatures[hwpack]
		if !ok {
			continue
		}
		if err := i.verifier.Verify(ctx, hwpack, sig); err != nil {
			return err
		}
	}

	staged, err := i.provisioner.Stage(ctx, chrootDir)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, staged.Teardown(context.WithoutCancel(ctx)))
	}()

	for n, hwpack := range hwpacks {
		i.logger.Info("installing hwpack", "hwpack", hwpack, "chroot", chrootDir, "position", n+1, "total", len(hwpacks))
		if err := i.install(ctx, staged, forceYes, hwpack); err != nil {
			return fmt.Errorf("hwpack %s: %w", filepath.Base(hwpack), err)
		}
	}
	return nil
}

func (i *Installer) install(ctx context.Context, staged *Context, forceYes bool, hwpack string) error {
	base := filepath.Base(hwpack)
	if err := i.provisioner.copyIn(ctx, staged, hwpack, filepath.Join(staged.Dir, base)); err != nil {
		return err
	}

	return cmdrunner.Check(ctx, i.runner, InstallCommand(staged.Dir, i.provisioner.cfg.Installer.Name, forceYes, base), true)
}

// InstallCommand is the argv that installs the hwpack copied to
// /<base> inside chrootDir.
func InstallCommand(chrootDir, helper string, forceYes bool, base string) []string {
	argv := []string{"chroot", chrootDir, helper}
	if forceYes {
		argv = append(argv, "--force-yes")
	}
	return append(argv, "/"+base)
}
