// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hwprov/hwprov/internal/packages"
)

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var (
	// ErrInvalidLogLevel is the sentinel error wrapped by InvalidLogLevelError.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidChrootConfig is the sentinel error wrapped by InvalidChrootConfigError.
	ErrInvalidChrootConfig = errors.New("invalid chroot config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LogLevel is the minimum level of log records written to stderr.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// InvalidChrootConfigError collects field errors of a ChrootConfig.
	InvalidChrootConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError collects field errors of a Config.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config is the complete hwprov configuration.
	Config struct {
		Sources      []string        `json:"sources" mapstructure:"sources" toml:"sources"`
		Architecture string          `json:"architecture" mapstructure:"architecture" toml:"architecture"`
		LogLevel     LogLevel        `json:"log_level" mapstructure:"log_level" toml:"log_level"`
		Privilege    PrivilegeConfig `json:"privilege" mapstructure:"privilege" toml:"privilege"`
		Chroot       ChrootConfig    `json:"chroot" mapstructure:"chroot" toml:"chroot"`
	}

	// PrivilegeConfig configures command elevation.
	PrivilegeConfig struct {
		EscalateCommand string `json:"escalate_command" mapstructure:"escalate_command" toml:"escalate_command"`
	}

	// ChrootConfig configures chroot staging and hwpack installation.
	ChrootConfig struct {
		TargetArch    string          `json:"target_arch" mapstructure:"target_arch" toml:"target_arch"`
		HostEtcDir    string          `json:"host_etc_dir" mapstructure:"host_etc_dir" toml:"host_etc_dir"`
		IdentityFiles []string        `json:"identity_files" mapstructure:"identity_files" toml:"identity_files"`
		Installer     InstallerConfig `json:"installer" mapstructure:"installer" toml:"installer"`
		ForceYes      bool            `json:"force_yes" mapstructure:"force_yes" toml:"force_yes"`
	}

	// InstallerConfig locates the in-chroot installer helper.
	InstallerConfig struct {
		Name       string `json:"name" mapstructure:"name" toml:"name"`
		DevPath    string `json:"dev_path,omitempty" mapstructure:"dev_path" toml:"dev_path,omitempty"`
		SystemPath string `json:"system_path" mapstructure:"system_path" toml:"system_path"`
	}
)

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Sources:  []string{},
		LogLevel: LogLevelInfo,
		Privilege: PrivilegeConfig{
			EscalateCommand: "sudo",
		},
		Chroot: ChrootConfig{
			TargetArch:    "armhf",
			HostEtcDir:    "/etc",
			IdentityFiles: []string{"resolv.conf", "hosts"},
			Installer: InstallerConfig{
				Name:       "linaro-hwpack-install",
				SystemPath: "/usr/bin/linaro-hwpack-install",
			},
		},
	}
}

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is one of the defined levels.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// Error implements the error interface for InvalidLogLevelError.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns ErrInvalidLogLevel for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// IsValid checks the settings CUE cannot express on its own, and repeats
// the ones it can for values that arrived through the environment.
func (c ChrootConfig) IsValid() (bool, []error) {
	var errs []error
	if strings.TrimSpace(c.TargetArch) == "" {
		errs = append(errs, errors.New("chroot.target_arch must not be empty"))
	}
	seen := make(map[string]bool, len(c.IdentityFiles))
	for _, name := range c.IdentityFiles {
		if name == "" || strings.Contains(name, "/") {
			errs = append(errs, fmt.Errorf("chroot.identity_files: %q is not a file name", name))
			continue
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("chroot.identity_files: %q listed twice", name))
		}
		seen[name] = true
	}
	if c.Installer.Name == "" || strings.Contains(c.Installer.Name, "/") {
		errs = append(errs, fmt.Errorf("chroot.installer.name: %q is not a program name", c.Installer.Name))
	}
	if c.Installer.DevPath == "" && c.Installer.SystemPath == "" {
		errs = append(errs, errors.New("chroot.installer: set dev_path or system_path"))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidChrootConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidChrootConfigError.
func (e *InvalidChrootConfigError) Error() string {
	return fmt.Sprintf("invalid chroot config: %v", errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidChrootConfig for errors.Is() compatibility.
func (e *InvalidChrootConfigError) Unwrap() error { return ErrInvalidChrootConfig }

// IsValid returns whether every field of the Config is valid. Sources are
// checked with packages.ParseSource.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	for _, src := range c.Sources {
		if _, err := packages.ParseSource(src); err != nil {
			errs = append(errs, err)
		}
	}
	if valid, fieldErrs := c.LogLevel.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if strings.TrimSpace(c.Privilege.EscalateCommand) == "" {
		errs = append(errs, errors.New("privilege.escalate_command must not be empty"))
	}
	if valid, fieldErrs := c.Chroot.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Validate is IsValid reduced to a single error.
func (c Config) Validate() error {
	if valid, errs := c.IsValid(); !valid {
		return errs[0]
	}
	return nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, err := range e.FieldErrors {
		msgs = append(msgs, err.Error())
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

// Unwrap returns ErrInvalidConfig and every field error.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}
