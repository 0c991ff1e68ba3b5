package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SourceConfig describes where the contact store reads its vCards from.
type SourceConfig struct {
	// Mode is SourceModeLocal or SourceModeWeb.
	Mode string `yaml:"mode"`
	// Path is the .vcf file used in local mode.
	Path string `yaml:"path,omitempty"`
	// URL is the CardDAV/WebDAV export used in web mode.
	URL string `yaml:"url,omitempty"`
	// User is the HTTP Basic Auth user. The password lives in the OS keyring.
	User string `yaml:"user,omitempty"`
}

// File is the runtime configuration persisted as YAML.
type File struct {
	Source SourceConfig `yaml:"source"`

	// Language selects the locale for event titles (ISO 639-1).
	Language string `yaml:"language"`

	// Listen is the address of the HTTP feed in serve mode.
	Listen string `yaml:"listen"`

	// WindowDays is the length of the default query range.
	WindowDays int `yaml:"window_days"`

	// DigestCron is a cron schedule for the "today" digest in serve mode.
	// An empty string disables the digest.
	DigestCron string `yaml:"digest_cron"`
}

// DefaultFile returns an in-memory default configuration.
func DefaultFile() *File {
	return &File{
		Source:     SourceConfig{Mode: SourceModeLocal},
		Language:   DefaultLanguage,
		Listen:     DefaultListenAddr,
		WindowDays: DefaultWindowDays,
		DigestCron: DefaultDigestCron,
	}
}

// Normalize fills in missing/zero values so partially-filled files still work.
func (f *File) Normalize() {
	switch f.Source.Mode {
	case SourceModeLocal, SourceModeWeb:
	default:
		f.Source.Mode = SourceModeLocal
	}
	if f.Language == "" {
		f.Language = DefaultLanguage
	}
	if f.Listen == "" {
		f.Listen = DefaultListenAddr
	}
	if f.WindowDays <= 0 {
		f.WindowDays = DefaultWindowDays
	}
}

// DefaultPath returns the configuration path inside the user config dir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppID, ConfigFileName), nil
}

// Load reads the YAML configuration at path.
// On first run the default configuration is written there and returned.
func Load(path string) (*File, error) {
	if path == "" {
		return nil, errors.New(ErrConfigPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultFile()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			slog.Info(MsgConfigCreated,
				LogKeyComponent, CompConfig,
				LogKeyFile, path)
			return cfg, nil
		}
		return nil, fmt.Errorf("%s: %w", ErrConfigRead, err)
	}

	var cfg File
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrConfigParse, err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms.
func Save(path string, cfg *File) error {
	if path == "" {
		return errors.New(ErrConfigPath)
	}
	if cfg == nil {
		return errors.New(ErrConfigNil)
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DirPermUserRWX); err != nil {
		return fmt.Errorf("%s: %w", ErrConfigWrite, err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrConfigWrite, err)
	}

	tmp, err := os.CreateTemp(dir, ".contact-events-config-*.tmp")
	if err != nil {
		return fmt.Errorf("%s: %w", ErrConfigWrite, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%s: %w", ErrConfigWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%s: %w", ErrConfigWrite, err)
	}
	if err := os.Chmod(tmpName, FilePermUserRW); err != nil {
		return fmt.Errorf("%s: %w", ErrConfigWrite, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%s: %w", ErrConfigWrite, err)
	}
	return nil
}
