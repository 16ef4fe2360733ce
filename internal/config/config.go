package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// AppConfig is the portal configuration, loaded from config.toml beside the
// executable with PORTAL_* environment overrides.
type AppConfig struct {
	Server ServerConfig `toml:"server"`
	Data   DataConfig   `toml:"data"`
	Auth   AuthConfig   `toml:"auth"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port    int  `toml:"port"`
	DevMode bool `toml:"dev_mode"`
}

// DataConfig holds storage locations.
type DataConfig struct {
	DataDir string `toml:"data_dir"`
}

// AuthConfig holds session settings.
type AuthConfig struct {
	SessionTTLMinutes int `toml:"session_ttl_minutes"`
}

// DefaultConfig returns the configuration used when no config.toml exists.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:    8049,
			DevMode: false,
		},
		Data: DataConfig{
			DataDir: "data",
		},
		Auth: AuthConfig{
			SessionTTLMinutes: 12 * 60,
		},
	}
}

// GetExeDir returns the directory holding the running executable. Config and
// data paths are resolved relative to it so the portal can run from any
// working directory.
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// LoadConfig loads config.toml from the executable's directory, falling back
// to defaults when the file is absent, then applies environment overrides.
func LoadConfig() (*AppConfig, error) {
	cfg := DefaultConfig()

	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}
	configPath := filepath.Join(exeDir, "config.toml")

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	case os.IsNotExist(err):
		// No config file, defaults apply.
	default:
		return nil, err
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("PORTAL_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("PORTAL_DATA_DIR"); v != "" {
		cfg.Data.DataDir = v
	}
	if v := os.Getenv("PORTAL_DEV_MODE"); v != "" {
		cfg.Server.DevMode = v == "1" || v == "true"
	}
}

// SaveConfig writes the configuration back to config.toml.
func SaveConfig(cfg *AppConfig) error {
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(exeDir, "config.toml"), data, 0644)
}

// EnsureDataDir creates the data directory and its fixed layout.
func EnsureDataDir(cfg *AppConfig) (string, error) {
	dataDir := cfg.Data.DataDir
	if !filepath.IsAbs(dataDir) {
		exeDir, err := GetExeDir()
		if err != nil {
			exeDir = "."
		}
		dataDir = filepath.Join(exeDir, dataDir)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}
	for _, subdir := range []string{"programs", "lesson_plans", "manuals", "exports"} {
		if err := os.MkdirAll(filepath.Join(dataDir, subdir), 0755); err != nil {
			return "", err
		}
	}
	return dataDir, nil
}
