// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates CUE documents against an embedded schema and
// reports problems with JSON-path style locations such as
// "chroot.identity_files[1]".
package cueutil
