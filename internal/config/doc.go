// SPDX-License-Identifier: MPL-2.0

// Package config loads hwprov settings with Viper.
//
// Settings come from built-in defaults, then a config file, then HWPROV_*
// environment variables (HWPROV_CHROOT_TARGET_ARCH overrides
// chroot.target_arch). The file is ~/.config/hwprov/config.cue (or the
// platform equivalent), validated against the embedded config_schema.cue; a
// config.toml in the same directory is accepted when no CUE file exists.
package config
