// Package config loads photo-backup settings from built-in defaults, an
// optional TOML file, and the environment, in that order of precedence.
// Command-line flags are applied by the binaries on top of the result.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// ProjectFile is picked up from the working directory when no path is given.
const ProjectFile = "photo-backup.toml"

// VK holds photo source settings.
type VK struct {
	AccessToken string `toml:"access_token"`
	TokenParam  string `toml:"token_param"`
	APIVersion  string `toml:"api_version"`
	BaseURL     string `toml:"base_url"`
}

// Disk holds Yandex.Disk settings. The OAuth token is per request and never
// configured here.
type Disk struct {
	BaseURL       string `toml:"base_url"`
	UploadURL     string `toml:"upload_url"`
	WebPrefix     string `toml:"web_prefix"`
	DefaultFolder string `toml:"default_folder"`
}

// Paths holds local file locations.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	Manifest   string `toml:"manifest"`
	LogFile    string `toml:"log_file"`
	// HistoryDB is a local SQLite file for run history, used when
	// aws.runs_table is not set. Empty disables local history.
	HistoryDB string `toml:"history_db"`
}

// Backup holds pipeline behaviour switches.
type Backup struct {
	UniqueNames bool `toml:"unique_names"`
}

// AWS names the optional AWS resources. Empty disables the feature.
type AWS struct {
	ArchiveBucket string `toml:"archive_bucket"`
	RunsTable     string `toml:"runs_table"`
}

// Logging holds log settings.
type Logging struct {
	Level string `toml:"level"`
}

// Web holds the local web server settings.
type Web struct {
	Addr string `toml:"addr"`
}

// Config is the full photo-backup configuration.
type Config struct {
	VK      VK      `toml:"vk"`
	Disk    Disk    `toml:"yandex_disk"`
	Paths   Paths   `toml:"paths"`
	Backup  Backup  `toml:"backup"`
	AWS     AWS     `toml:"aws"`
	Logging Logging `toml:"logging"`
	Web     Web     `toml:"web"`
}

// Load builds a Config from defaults, the TOML file at path (or ProjectFile
// in the working directory when path is empty), and the environment. An
// explicit path that does not exist is an error; a missing ProjectFile is
// not. It returns the file actually read, or "" when none was.
func Load(path string) (*Config, string, error) {
	cfg := Default()

	resolved, err := resolvePath(path)
	if err != nil {
		return nil, "", err
	}
	if resolved != "" {
		file, err := os.Open(resolved)
		if err != nil {
			return nil, "", fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, "", fmt.Errorf("parse config %s: %w", resolved, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, "", err
	}
	cfg.normalize()
	return &cfg, resolved, nil
}

func resolvePath(path string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("stat config: %w", err)
		}
		return path, nil
	}
	info, err := os.Stat(ProjectFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", nil
	}
	return ProjectFile, nil
}

// applyEnv overlays every set environment variable onto c.
func (c *Config) applyEnv() error {
	strVars := map[string]*string{
		"VK_ACCESS_TOKEN":             &c.VK.AccessToken,
		"VK_API_VERSION":              &c.VK.APIVersion,
		"SSM_VK_TOKEN_PARAM":          &c.VK.TokenParam,
		"YANDEX_DISK_UPLOAD_URL":      &c.Disk.UploadURL,
		"PHOTO_BACKUP_STAGING_DIR":    &c.Paths.StagingDir,
		"PHOTO_BACKUP_MANIFEST":       &c.Paths.Manifest,
		"PHOTO_BACKUP_LOG_FILE":       &c.Paths.LogFile,
		"PHOTO_BACKUP_HISTORY_DB":     &c.Paths.HistoryDB,
		"PHOTO_BACKUP_LOG_LEVEL":      &c.Logging.Level,
		"PHOTO_BACKUP_ARCHIVE_BUCKET": &c.AWS.ArchiveBucket,
		"PHOTO_BACKUP_RUNS_TABLE":     &c.AWS.RunsTable,
		"PHOTO_BACKUP_ADDR":           &c.Web.Addr,
	}
	for name, dst := range strVars {
		if value, ok := os.LookupEnv(name); ok {
			*dst = value
		}
	}

	if value, ok := os.LookupEnv("PHOTO_BACKUP_UNIQUE_NAMES"); ok {
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("PHOTO_BACKUP_UNIQUE_NAMES: %w", err)
		}
		c.Backup.UniqueNames = enabled
	}
	return nil
}

func (c *Config) normalize() {
	c.VK.AccessToken = strings.TrimSpace(c.VK.AccessToken)
	c.VK.TokenParam = strings.TrimSpace(c.VK.TokenParam)
	c.VK.APIVersion = strings.TrimSpace(c.VK.APIVersion)
	c.Disk.DefaultFolder = strings.Trim(strings.TrimSpace(c.Disk.DefaultFolder), "/")
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Paths.StagingDir != "" {
		c.Paths.StagingDir = filepath.Clean(c.Paths.StagingDir)
	}
	if c.VK.APIVersion == "" {
		c.VK.APIVersion = defaultVKAPIVersion
	}
}

// Validate reports settings that make a run impossible. The VK token may be
// resolved from SSM after Load, so call Validate once that has happened.
func (c *Config) Validate() error {
	var problems []string
	if c.VK.AccessToken == "" {
		problems = append(problems, "vk.access_token is required (set VK_ACCESS_TOKEN or vk.token_param)")
	}
	if c.Paths.StagingDir == "" {
		problems = append(problems, "paths.staging_dir must not be empty")
	}
	if c.Paths.Manifest == "" {
		problems = append(problems, "paths.manifest must not be empty")
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		problems = append(problems, fmt.Sprintf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}

// CreateSample writes the commented sample configuration to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
