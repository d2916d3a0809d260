// SPDX-License-Identifier: MPL-2.0

package chroot

import (
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

// NormalizeArch maps kernel machine names and GOARCH values onto dpkg
// architecture names. Unknown names are lowercased and returned as-is.
func NormalizeArch(arch string) string {
	arch = strings.ToLower(strings.TrimSpace(arch))
	switch {
	case arch == "x86_64", arch == "amd64":
		return "amd64"
	case arch == "aarch64", arch == "arm64":
		return "arm64"
	case arch == "armhf", arch == "arm", strings.HasPrefix(arch, "armv7"), strings.HasPrefix(arch, "armv8l"):
		return "armhf"
	case arch == "armel", strings.HasPrefix(arch, "armv5"), strings.HasPrefix(arch, "armv6"):
		return "armel"
	case arch == "i386", arch == "386", arch == "i486", arch == "i586", arch == "i686":
		return "i386"
	case arch == "ppc64le", arch == "ppc64el":
		return "ppc64el"
	case arch == "mips64le", arch == "mips64el":
		return "mips64el"
	default:
		return arch
	}
}

// HostArch returns the dpkg architecture of the running kernel.
func HostArch() (string, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "", fmt.Errorf("uname: %w", err)
	}
	return NormalizeArch(unix.ByteSliceToString(uts.Machine[:])), nil
}

// EmulatorCPU returns the qemu CPU name that runs binaries built for arch.
func EmulatorCPU(arch string) string {
	switch arch = NormalizeArch(arch); arch {
	case "armhf", "armel":
		return "arm"
	case "arm64":
		return "aarch64"
	case "amd64":
		return "x86_64"
	case "ppc64el":
		return "ppc64le"
	default:
		return arch
	}
}

// EmulatorBinary is the static user-mode emulator for arch.
func EmulatorBinary(arch string) string {
	return "qemu-" + EmulatorCPU(arch) + "-static"
}

// NeedsEmulation reports whether binaries for target cannot run natively on
// host.
func NeedsEmulation(host, target string) bool {
	return EmulatorCPU(host) != EmulatorCPU(target)
}
