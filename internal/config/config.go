// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/hwprov/hwprov/internal/cueutil"
	"github.com/hwprov/hwprov/internal/issue"
)

const (
	// AppName is the application name.
	AppName = "hwprov"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the preferred config file extension.
	ConfigFileExt = "cue"
	// TOMLFileExt is the alternative config file extension.
	TOMLFileExt = "toml"
	// EnvPrefix prefixes environment overrides.
	EnvPrefix = "HWPROV"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the hwprov configuration directory: %APPDATA% on
// Windows, ~/Library/Application Support on macOS and $XDG_CONFIG_HOME
// (defaulting to ~/.config) elsewhere.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// Load reads the configuration and reports which file it came from ("" when
// only defaults and the environment apply).
func Load(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := newViper()

	path, err := resolveConfigFile(opts)
	if err != nil {
		return nil, "", err
	}
	if path != "" {
		if err := loadFileIntoViper(v, path); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Check the file for syntax errors").
				WithSuggestion("Verify the values match the schema shown by 'hwprov config show'").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(path).
			WithSuggestion("Check environment variables starting with " + EnvPrefix + "_").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}

	return &cfg, path, nil
}

// newViper returns a Viper instance with defaults and environment overrides.
func newViper() *viper.Viper {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("sources", defaults.Sources)
	v.SetDefault("architecture", defaults.Architecture)
	v.SetDefault("log_level", string(defaults.LogLevel))
	v.SetDefault("privilege.escalate_command", defaults.Privilege.EscalateCommand)
	v.SetDefault("chroot.target_arch", defaults.Chroot.TargetArch)
	v.SetDefault("chroot.host_etc_dir", defaults.Chroot.HostEtcDir)
	v.SetDefault("chroot.identity_files", defaults.Chroot.IdentityFiles)
	v.SetDefault("chroot.installer.name", defaults.Chroot.Installer.Name)
	v.SetDefault("chroot.installer.dev_path", defaults.Chroot.Installer.DevPath)
	v.SetDefault("chroot.installer.system_path", defaults.Chroot.Installer.SystemPath)
	v.SetDefault("chroot.force_yes", defaults.Chroot.ForceYes)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Locate returns the file Load would read for opts, or "" when none exists.
func Locate(opts LoadOptions) (string, error) {
	return resolveConfigFile(opts)
}

// DefaultConfigPath returns where 'hwprov config init' writes the config file.
func DefaultConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName+"."+ConfigFileExt), nil
}

// resolveConfigFile picks the file to load: an explicit path must exist;
// otherwise config.cue, then config.toml, in the config directory.
func resolveConfigFile(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'hwprov config init' to create a default configuration").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}

	cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
	if err != nil {
		return "", err
	}
	for _, ext := range []string{ConfigFileExt, TOMLFileExt} {
		candidate := filepath.Join(cfgDir, ConfigFileName+"."+ext)
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	return "", nil
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}
	return ConfigDir()
}

// loadFileIntoViper validates a CUE or TOML file against the #Config schema
// and merges it over the defaults.
func loadFileIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var configMap map[string]any
	if strings.EqualFold(filepath.Ext(path), "."+TOMLFileExt) {
		if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
			return err
		}
		if err := toml.Unmarshal(data, &configMap); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := cueutil.ValidateMap(configSchema, configMap, "#Config", cueutil.WithFilename(path)); err != nil {
			return err
		}
	} else {
		configMap, err = cueutil.DecodeMap(configSchema, data, "#Config", cueutil.WithFilename(path))
		if err != nil {
			return err
		}
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes the defaults to config.cue in dir (the config
// directory when dir is empty) unless a file is already there. It returns
// the file path.
func CreateDefaultConfig(dir string) (string, error) {
	cfgDir, err := configDirWithOverride(dir)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
	if _, err := os.Stat(cfgPath); err == nil {
		return cfgPath, nil
	}

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return cfgPath, nil
}

// GenerateCUE renders cfg as a CUE config file.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// hwprov configuration file\n\n")

	sb.WriteString("sources: [")
	if len(cfg.Sources) > 0 {
		sb.WriteString("\n")
		for _, src := range cfg.Sources {
			fmt.Fprintf(&sb, "\t%q,\n", src)
		}
	}
	sb.WriteString("]\n")

	if cfg.Architecture != "" {
		fmt.Fprintf(&sb, "architecture: %q\n", cfg.Architecture)
	}
	fmt.Fprintf(&sb, "log_level: %q\n", cfg.LogLevel)

	sb.WriteString("\nprivilege: {\n")
	fmt.Fprintf(&sb, "\tescalate_command: %q\n", cfg.Privilege.EscalateCommand)
	sb.WriteString("}\n")

	sb.WriteString("\nchroot: {\n")
	fmt.Fprintf(&sb, "\ttarget_arch: %q\n", cfg.Chroot.TargetArch)
	fmt.Fprintf(&sb, "\thost_etc_dir: %q\n", cfg.Chroot.HostEtcDir)
	sb.WriteString("\tidentity_files: [")
	for i, name := range cfg.Chroot.IdentityFiles {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%q", name)
	}
	sb.WriteString("]\n")
	sb.WriteString("\tinstaller: {\n")
	fmt.Fprintf(&sb, "\t\tname: %q\n", cfg.Chroot.Installer.Name)
	if cfg.Chroot.Installer.DevPath != "" {
		fmt.Fprintf(&sb, "\t\tdev_path: %q\n", cfg.Chroot.Installer.DevPath)
	}
	fmt.Fprintf(&sb, "\t\tsystem_path: %q\n", cfg.Chroot.Installer.SystemPath)
	sb.WriteString("\t}\n")
	fmt.Fprintf(&sb, "\tforce_yes: %v\n", cfg.Chroot.ForceYes)
	sb.WriteString("}\n")

	return sb.String()
}

// GenerateTOML renders cfg as a TOML config file.
func GenerateTOML(cfg *Config) ([]byte, error) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config as TOML: %w", err)
	}
	return data, nil
}
