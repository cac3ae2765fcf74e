package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	envConfigPath  = "COPILOT_CONFIG"
	configDirName  = "testcopilot"
	configFileName = "config.json"
)

// GlobalConfig is the per-user CLI configuration.
type GlobalConfig struct {
	APIURL         string `json:"api_url,omitempty"`
	DefaultProject string `json:"default_project,omitempty"`
}

// ErrNoProject is returned when a command needs a project and none was given.
var ErrNoProject = errors.New("no project given (use --project or 'copilot project use <id>')")

// configPath is swapped out by tests.
var configPath = defaultConfigPath

// defaultConfigPath honours COPILOT_CONFIG, then the OS user config dir.
func defaultConfigPath() (string, error) {
	if p := os.Getenv(envConfigPath); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate user config dir: %w", err)
	}
	return filepath.Join(dir, configDirName, configFileName), nil
}

// LoadGlobalConfig reads the config file. A missing file yields a nil config and no error.
func LoadGlobalConfig() (*GlobalConfig, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	cfg := &GlobalConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// SaveGlobalConfig replaces the config file atomically, readable by the owner only.
func SaveGlobalConfig(cfg *GlobalConfig) error {
	if cfg == nil {
		return errors.New("config cannot be nil")
	}
	path, err := configPath()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+configFileName+"-*")
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// UpdateGlobalConfig loads the config (empty when missing), applies fn and saves it.
func UpdateGlobalConfig(fn func(*GlobalConfig)) error {
	cfg, err := LoadGlobalConfig()
	if err != nil {
		return err
	}
	if cfg == nil {
		cfg = &GlobalConfig{}
	}
	fn(cfg)
	return SaveGlobalConfig(cfg)
}

// resolveProject returns the --project flag, falling back to the saved default.
func resolveProject(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	cfg, err := LoadGlobalConfig()
	if err != nil {
		return "", err
	}
	if cfg == nil || cfg.DefaultProject == "" {
		return "", ErrNoProject
	}
	return cfg.DefaultProject, nil
}
