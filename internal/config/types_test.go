// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"testing"

	"github.com/hwprov/hwprov/internal/packages"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	t.Parallel()

	if valid, errs := DefaultConfig().IsValid(); !valid {
		t.Errorf("DefaultConfig() is invalid: %v", errs)
	}
}

func TestLogLevel_IsValid(t *testing.T) {
	t.Parallel()

	for _, l := range []LogLevel{LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError} {
		if valid, _ := l.IsValid(); !valid {
			t.Errorf("%q rejected", l)
		}
	}
	valid, errs := LogLevel("trace").IsValid()
	if valid || !errors.Is(errs[0], ErrInvalidLogLevel) {
		t.Errorf("trace accepted or wrong error: %v", errs)
	}
}

func TestConfig_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		is     error
	}{
		{"bad source", func(c *Config) { c.Sources = []string{"/no/scheme ./"} }, packages.ErrInvalidSource},
		{"blank escalation", func(c *Config) { c.Privilege.EscalateCommand = "  " }, ErrInvalidConfig},
		{"duplicate identity file", func(c *Config) { c.Chroot.IdentityFiles = []string{"hosts", "hosts"} }, ErrInvalidChrootConfig},
		{"path as identity file", func(c *Config) { c.Chroot.IdentityFiles = []string{"a/b"} }, ErrInvalidChrootConfig},
		{"no installer location", func(c *Config) { c.Chroot.Installer = InstallerConfig{Name: "x"} }, ErrInvalidChrootConfig},
		{"empty target arch", func(c *Config) { c.Chroot.TargetArch = "" }, ErrInvalidChrootConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Validate() error = %v, want ErrInvalidConfig", err)
			}
			if !errors.Is(err, tt.is) {
				t.Errorf("Validate() error = %v, want %v in chain", err, tt.is)
			}
		})
	}
}
