// SPDX-License-Identifier: MPL-2.0

// Package chroot stages a target root filesystem for hardware-pack
// installation and installs hardware packs into it.
//
// Every mutation of the chroot goes through a cmdrunner.Runner with
// elevation, and every mutation registers its undo on the staged Context's
// rollback ledger. Staging that fails part way drains the ledger before the
// error is returned; a successfully staged Context is drained by Teardown.
package chroot
