package config

import (
	"os"
	"path/filepath"
	"time"

	kdl "github.com/sblinch/kdl-go"
)

// GlobalConfigFile is the config file name under the droidctl config dir.
const GlobalConfigFile = "config.kdl"

// KDLConfig represents the KDL configuration structure.
// Uses kdl struct tags for unmarshaling.
type KDLConfig struct {
	ADBPath          string `kdl:"adb-path"`
	DefaultDevice    string `kdl:"default-device"`
	CommandTimeout   int    `kdl:"command-timeout"`
	InstallTimeout   int    `kdl:"install-timeout"`
	MaxProcs         int    `kdl:"max-procs"`
	MaxArtifactBytes int64  `kdl:"max-artifact-bytes"`
	SocketPath       string `kdl:"socket-path"`
}

// LoadGlobalConfig loads the configuration from the default location,
// falling back to defaults when no file exists.
func LoadGlobalConfig() (*Config, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return DefaultConfig(), nil
		}
		configDir = filepath.Join(home, ".config")
	}

	configPath := filepath.Join(configDir, "droidctl", GlobalConfigFile)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	return LoadConfigFile(configPath)
}

// LoadConfigFile loads configuration from a specific file path.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseKDLConfig(string(data))
}

// ParseKDLConfig parses KDL configuration data. Unset fields keep their
// defaults; timeouts are given in seconds.
func ParseKDLConfig(data string) (*Config, error) {
	var kdlCfg KDLConfig
	if err := kdl.Unmarshal([]byte(data), &kdlCfg); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if kdlCfg.ADBPath != "" {
		cfg.ADBPath = kdlCfg.ADBPath
	}
	if kdlCfg.DefaultDevice != "" {
		cfg.DefaultDevice = kdlCfg.DefaultDevice
	}
	if kdlCfg.CommandTimeout > 0 {
		cfg.CommandTimeout = time.Duration(kdlCfg.CommandTimeout) * time.Second
	}
	if kdlCfg.InstallTimeout > 0 {
		cfg.InstallTimeout = time.Duration(kdlCfg.InstallTimeout) * time.Second
	}
	if kdlCfg.MaxProcs > 0 {
		cfg.MaxProcs = kdlCfg.MaxProcs
	}
	if kdlCfg.MaxArtifactBytes > 0 {
		cfg.MaxArtifactBytes = kdlCfg.MaxArtifactBytes
	}
	if kdlCfg.SocketPath != "" {
		cfg.SocketPath = kdlCfg.SocketPath
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WriteDefaultConfig writes a commented starter config to the default
// location, creating the directory as needed. Existing files are left
// alone.
func WriteDefaultConfig() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config")
	}

	dir := filepath.Join(configDir, "droidctl")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, GlobalConfigFile)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	if err := os.WriteFile(path, []byte(defaultConfigKDL), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

const defaultConfigKDL = `// droidctl configuration
// adb-path "/usr/local/bin/adb"
// default-device "emulator-5554"
// command-timeout 30    // seconds
// install-timeout 120   // seconds
// max-procs 4
// max-artifact-bytes 8388608
// socket-path "/tmp/droidctl.sock"
`
