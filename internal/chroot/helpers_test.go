// SPDX-License-Identifier: MPL-2.0

package chroot

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/hwprov/hwprov/internal/testutil"
)

// fsRunner performs cp, mv and rm for real without elevation and pretends
// every other command succeeded. Every call is recorded.
type fsRunner struct {
	calls    []string
	elevated []bool
	fail     func(argv []string) bool
}

func (r *fsRunner) Run(ctx context.Context, argv []string, elevated bool) (int, error) {
	r.calls = append(r.calls, strings.Join(argv, " "))
	r.elevated = append(r.elevated, elevated)
	if r.fail != nil && r.fail(argv) {
		return 1, nil
	}

	switch argv[0] {
	case "cp", "mv", "rm":
		err := exec.CommandContext(ctx, argv[0], argv[1:]...).Run()
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		if err != nil {
			return -1, err
		}
	}
	return 0, nil
}

func (r *fsRunner) ran(prefix string) bool {
	for _, c := range r.calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

// fixture is a chroot plus the host-side files staging reads.
type fixture struct {
	chroot    string
	hostEtc   string
	installer string
	emulator  string
	scratch   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires cp, mv and rm")
	}

	f := &fixture{
		chroot:  t.TempDir(),
		hostEtc: t.TempDir(),
		scratch: t.TempDir(),
	}
	tools := t.TempDir()

	for _, dir := range []string{"etc", "proc", filepath.Join("usr", "bin")} {
		testutil.MustMkdirAll(t, filepath.Join(f.chroot, dir))
	}
	testutil.MustWriteFile(t, filepath.Join(f.chroot, "etc", "resolv.conf"), "nameserver 10.0.0.1\n")
	testutil.MustWriteFile(t, filepath.Join(f.chroot, "etc", "hosts"), "127.0.0.1 target\n")
	testutil.MustWriteFile(t, filepath.Join(f.hostEtc, "resolv.conf"), "nameserver 192.168.1.1\n")
	testutil.MustWriteFile(t, filepath.Join(f.hostEtc, "hosts"), "127.0.0.1 buildhost\n")

	f.installer = filepath.Join(tools, DefaultInstallerName)
	testutil.MustWriteFile(t, f.installer, "#!/bin/sh\n")
	f.emulator = filepath.Join(tools, "qemu-arm-static")
	testutil.MustWriteFile(t, f.emulator, "emulator")
	return f
}

func (f *fixture) config(host, target string) Config {
	cfg := DefaultConfig()
	cfg.HostArch = host
	cfg.TargetArch = target
	cfg.HostEtcDir = f.hostEtc
	cfg.Installer.SystemPath = f.installer
	return cfg
}

func (f *fixture) lookPath(file string) (string, error) {
	switch file {
	case "qemu-arm-static":
		return f.emulator, nil
	case "qemu-img":
		return "/usr/bin/qemu-img", nil
	default:
		return "", exec.ErrNotFound
	}
}

func (f *fixture) provisioner(t *testing.T, r *fsRunner, cfg Config, opts ...ProvisionerOption) *Provisioner {
	t.Helper()
	opts = append([]ProvisionerOption{WithLookPath(f.lookPath), WithScratchDir(f.scratch)}, opts...)
	p, err := NewProvisioner(r, cfg, opts...)
	if err != nil {
		t.Fatalf("NewProvisioner() error = %v", err)
	}
	return p
}

// assertPristine checks that every trace of staging is gone.
func (f *fixture) assertPristine(t *testing.T) {
	t.Helper()
	testutil.AssertFileContent(t, filepath.Join(f.chroot, "etc", "resolv.conf"), "nameserver 10.0.0.1\n")
	testutil.AssertFileContent(t, filepath.Join(f.chroot, "etc", "hosts"), "127.0.0.1 target\n")
	testutil.AssertEmptyDir(t, filepath.Join(f.chroot, "usr", "bin"))
	testutil.AssertEmptyDir(t, f.scratch)

	entries, err := os.ReadDir(f.chroot)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			t.Errorf("chroot root still holds %s", e.Name())
		}
	}
}
