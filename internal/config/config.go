package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for xdt.
type Config struct {
	BaseDir   string          `toml:"base_dir"`
	LogDir    string          `toml:"log_dir"`
	LogLevel  string          `toml:"log_level"` // "debug", "info" (default), "warn" or "error"
	Index     IndexConfig     `toml:"index"`
	Diff      DiffConfig      `toml:"diff"`
	Artifacts ArtifactsConfig `toml:"artifacts"`
	Database  DatabaseConfig  `toml:"database"`
	Backup    BackupConfig    `toml:"backup"`
	Identity  IdentityConfig  `toml:"identity"`
}

// IndexConfig controls which files are tracked.
type IndexConfig struct {
	Roots      []string `toml:"roots"`
	Extensions []string `toml:"extensions"`
	Ignore     []string `toml:"ignore"`
}

// DiffConfig holds the defaults for diff generation.
type DiffConfig struct {
	ContextLines int  `toml:"context_lines"`
	Filter       bool `toml:"filter"`
}

// ArtifactsConfig selects where diff reports are stored.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type ArtifactsConfig struct {
	Type string `toml:"type"` // "filesystem", "memory" or "s3"

	// FileSystem-specific fields (only used when Type == "filesystem")
	Dir string `toml:"dir,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`
}

// DatabaseConfig represents configuration for the catalog database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// BackupConfig holds the age key pair and target directory for catalog backups.
type BackupConfig struct {
	Type           string `toml:"type"` // "age" (default) or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
	Dir            string `toml:"dir"`
}

// IdentityConfig is the default actor for CLI commands.
type IdentityConfig struct {
	UserID  int64 `toml:"user_id"`
	IsAdmin bool  `toml:"is_admin"`
}

// NewConfig creates a new Config rooted at baseDir with default paths.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir:  baseDir,
		LogDir:   filepath.Join(baseDir, "log"),
		LogLevel: "info",
		Index: IndexConfig{
			Extensions: []string{".xml"},
		},
		Diff: DiffConfig{ContextLines: 3},
		Artifacts: ArtifactsConfig{
			Type: "filesystem",
			Dir:  filepath.Join(baseDir, "reports"),
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Backup: BackupConfig{
			Type:           "age",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "xdt.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "xdt.key"),
			Dir:            filepath.Join(baseDir, "backups"),
		},
		Identity: IdentityConfig{UserID: 1},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// The file may hold S3 credentials.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
