// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/hwprov/hwprov/internal/chroot"
	"github.com/hwprov/hwprov/internal/cmdrunner"
	"github.com/hwprov/hwprov/internal/config"
	"github.com/hwprov/hwprov/internal/issue"
	"github.com/hwprov/hwprov/internal/testutil"
)

type installFixture struct {
	chrootDir string
	hwpack    string
	cfg       *config.Config
}

func newInstallFixture(t *testing.T) installFixture {
	t.Helper()

	root := t.TempDir()
	f := installFixture{
		chrootDir: filepath.Join(root, "rootfs"),
		hwpack:    filepath.Join(root, "hwpack_panda.tar.gz"),
		cfg:       config.DefaultConfig(),
	}
	testutil.MustWriteFile(t, filepath.Join(f.chrootDir, "etc", "resolv.conf"), "nameserver 10.0.0.1\n")
	testutil.MustWriteFile(t, filepath.Join(root, "hostetc", "resolv.conf"), "nameserver 192.168.1.1\n")
	testutil.MustWriteFile(t, filepath.Join(root, "hostetc", "hosts"), "127.0.0.1 localhost\n")
	testutil.MustWriteFile(t, filepath.Join(root, "linaro-hwpack-install"), "#!/bin/sh\n")
	testutil.MustWriteFile(t, f.hwpack, "hwpack")

	f.cfg.Chroot.HostEtcDir = filepath.Join(root, "hostetc")
	f.cfg.Chroot.Installer.DevPath = filepath.Join(root, "linaro-hwpack-install")
	return f
}

func (f installFixture) options() installOptions {
	return installOptions{
		chrootDir:  f.chrootDir,
		hwpacks:    []string{f.hwpack},
		hostArch:   "armhf",
		targetArch: "armhf",
	}
}

func TestRunInstall(t *testing.T) {
	t.Parallel()

	f := newInstallFixture(t)
	runner := &recordingRunner{}
	app, stdout, _ := newTestApp(t, f.cfg, runner)

	if err := runInstall(context.Background(), app, f.options()); err != nil {
		t.Fatalf("runInstall() error = %v", err)
	}

	want := []string{
		"mv", "cp", // resolv.conf swapped
		"cp",           // hosts copied in
		"cp",           // installer helper
		"mount",        // proc
		"cp", "chroot", // hwpack
		"rm", "umount", "rm", "rm", "mv", // teardown
	}
	if got := runner.programs(); !slices.Equal(got, want) {
		t.Errorf("commands = %v, want %v", got, want)
	}

	install := chroot.InstallCommand(f.chrootDir, chroot.DefaultInstallerName, false, "hwpack_panda.tar.gz")
	if !slices.ContainsFunc(runner.calls, func(c []string) bool { return slices.Equal(c, install) }) {
		t.Errorf("install command %v not run; calls = %v", install, runner.calls)
	}
	if stdout.Len() == 0 {
		t.Error("no success message")
	}
}

func TestRunInstallForceYes(t *testing.T) {
	t.Parallel()

	f := newInstallFixture(t)
	f.cfg.Chroot.ForceYes = true
	runner := &recordingRunner{}
	app, _, _ := newTestApp(t, f.cfg, runner)

	if err := runInstall(context.Background(), app, f.options()); err != nil {
		t.Fatalf("runInstall() error = %v", err)
	}
	install := chroot.InstallCommand(f.chrootDir, chroot.DefaultInstallerName, true, "hwpack_panda.tar.gz")
	if !slices.ContainsFunc(runner.calls, func(c []string) bool { return slices.Equal(c, install) }) {
		t.Errorf("install command %v not run; calls = %v", install, runner.calls)
	}
}

func TestRunInstallFailureRollsBack(t *testing.T) {
	t.Parallel()

	f := newInstallFixture(t)
	runner := &recordingRunner{failOn: "chroot"}
	app, _, _ := newTestApp(t, f.cfg, runner)

	err := runInstall(context.Background(), app, f.options())
	if !errors.Is(err, cmdrunner.ErrCommandFailed) {
		t.Fatalf("runInstall() error = %v, want ErrCommandFailed", err)
	}
	if got := issue.IssueOf(err); got == nil || got.Id() != issue.CommandFailedId {
		t.Errorf("IssueOf() = %v, want command-failed guidance", got)
	}
	if exitCodeFor(err) != exitCommandFailed {
		t.Errorf("exitCodeFor() = %d, want %d", exitCodeFor(err), exitCommandFailed)
	}

	programs := runner.programs()
	if got := programs[len(programs)-1]; got != "mv" {
		t.Errorf("last command = %q, want the resolv.conf restore; calls = %v", got, runner.calls)
	}
}

func TestRunInstallCancelledUnwinds(t *testing.T) {
	t.Parallel()

	f := newInstallFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner := &recordingRunner{cancelOn: "chroot", cancel: cancel}
	app, _, _ := newTestApp(t, f.cfg, runner)

	err := runInstall(ctx, app, f.options())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("runInstall() error = %v, want context.Canceled", err)
	}

	want := []string{
		"mv", "cp", "cp", "cp", "mount", "cp", "chroot",
		"rm", "umount", "rm", "rm", "mv",
	}
	if got := runner.programs(); !slices.Equal(got, want) {
		t.Errorf("commands = %v, want full teardown after cancellation %v", got, want)
	}
}

func TestRunInstallCrossArchNeedsEmulator(t *testing.T) {
	t.Parallel()

	f := newInstallFixture(t)
	runner := &recordingRunner{}
	app, _, _ := newTestApp(t, f.cfg, runner)

	opts := f.options()
	opts.hostArch = "amd64"
	err := runInstall(context.Background(), app, opts)

	var toolErr *chroot.ToolMissingError
	if !errors.As(err, &toolErr) {
		t.Fatalf("runInstall() error = %v, want *chroot.ToolMissingError", err)
	}
	if toolErr.Tool != "qemu-arm-static" {
		t.Errorf("Tool = %q, want qemu-arm-static", toolErr.Tool)
	}
	if exitCodeFor(err) != exitToolMissing {
		t.Errorf("exitCodeFor() = %d, want %d", exitCodeFor(err), exitToolMissing)
	}

	// The identity files were swapped before the emulator lookup and must
	// have been restored.
	programs := runner.programs()
	if slices.Contains(programs, "mount") || programs[len(programs)-1] != "mv" {
		t.Errorf("commands = %v, want swap then restore only", programs)
	}
}

func TestRunInstallChrootNotFound(t *testing.T) {
	t.Parallel()

	f := newInstallFixture(t)
	runner := &recordingRunner{}
	app, _, _ := newTestApp(t, f.cfg, runner)

	opts := f.options()
	opts.chrootDir = filepath.Join(t.TempDir(), "missing")
	err := runInstall(context.Background(), app, opts)
	if !errors.Is(err, errChrootNotFound) {
		t.Fatalf("runInstall() error = %v, want errChrootNotFound", err)
	}
	if len(runner.calls) != 0 {
		t.Errorf("commands ran for a missing chroot: %v", runner.calls)
	}
}

func TestRunInstallVerifiesSignatures(t *testing.T) {
	t.Parallel()

	f := newInstallFixture(t)
	runner := &recordingRunner{failOn: "gpg"}
	app, _, _ := newTestApp(t, f.cfg, runner)

	opts := f.options()
	opts.signatures = []string{f.hwpack + ".asc"}
	err := runInstall(context.Background(), app, opts)
	if !errors.Is(err, chroot.ErrSignature) {
		t.Fatalf("runInstall() error = %v, want ErrSignature", err)
	}
	if got := runner.programs(); !slices.Equal(got, []string{"gpg"}) {
		t.Errorf("commands = %v, want only the signature check", got)
	}
}

func TestPairSignatures(t *testing.T) {
	t.Parallel()

	got, err := pairSignatures([]string{"a.tgz", "b.tgz"}, []string{"a.asc", "b.asc"})
	if err != nil {
		t.Fatalf("pairSignatures() error = %v", err)
	}
	if got["a.tgz"] != "a.asc" || got["b.tgz"] != "b.asc" {
		t.Errorf("pairSignatures() = %v", got)
	}

	if got, err := pairSignatures([]string{"a.tgz"}, nil); err != nil || got != nil {
		t.Errorf("pairSignatures(no signatures) = %v, %v", got, err)
	}

	if _, err := pairSignatures([]string{"a.tgz", "b.tgz"}, []string{"a.asc"}); !errors.Is(err, errUsage) {
		t.Errorf("pairSignatures(mismatch) error = %v, want errUsage", err)
	}
}
