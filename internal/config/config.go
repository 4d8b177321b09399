// Package config holds the recognized server configuration options of
// spec.md §6, following the teacher's load/default/save idiom: a
// JSON-serializable struct, XDG-aware default paths for an optional
// on-disk config file, and environment variable overrides layered on
// top of file values. cmd/queryserverd does not load a config file or
// read those variables: it starts from DefaultConfig and applies its
// CLI flags.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// Config is the recognized option set of spec.md §6.
type Config struct {
	Port                    int    `json:"port"`
	UnixDomainSocket        string `json:"unix_domain_socket"`
	Password                string `json:"password"`
	QueryTimeout            int    `json:"query_timeout"`
	PendingConnections      int    `json:"pending_connections"`
	RunServerOnThread       bool   `json:"run_server_on_thread"`
	ServerThread            string `json:"server_thread"`
	WriteConnectionValues   bool   `json:"write_connection_values"`
	WriteOutputToFile       string `json:"write_output_to_file"`
	IgnoreSigInt            bool   `json:"ignore_sig_int"`
	HaltOnConnectionFailure bool   `json:"halt_on_connection_failure"`

	LogLevel string `json:"log_level"`
	LogPath  string `json:"-"`

	// DebugListenAddr, when non-empty, starts the optional loopback-only
	// /healthz and /metrics HTTP listener described in SPEC_FULL.md.
	// It has no equivalent option in spec.md's table; ambient
	// observability only.
	DebugListenAddr string `json:"debug_listen_addr,omitempty"`
}

func defaultConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		if appData := strings.TrimSpace(os.Getenv("APPDATA")); appData != "" {
			return filepath.Join(appData, "queryserverd")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Roaming", "queryserverd")
	default:
		if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
			return filepath.Join(xdg, "queryserverd")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".config", "queryserverd")
	}
}

func defaultStateDir() string {
	switch runtime.GOOS {
	case "windows":
		if localAppData := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); localAppData != "" {
			return filepath.Join(localAppData, "queryserverd")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Local", "queryserverd")
	default:
		if stateHome := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); stateHome != "" {
			return filepath.Join(stateHome, "queryserverd")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".local", "state", "queryserverd")
	}
}

// DefaultConfig returns the recommended defaults, matching
// original_source/swiplserver/prologserver.py's PrologServer.__init__
// defaults: kernel-assigned TCP port, unbounded query timeout, backlog
// of 5, halt-on-connection-failure enabled.
func DefaultConfig() *Config {
	return &Config{
		Port:                    0,
		QueryTimeout:            -1,
		PendingConnections:      5,
		RunServerOnThread:       true,
		HaltOnConnectionFailure: true,
		WriteConnectionValues:   false,
		LogLevel:                "info",
		LogPath:                 filepath.Join(defaultStateDir(), "queryserverd.log"),
	}
}

// GetConfigPath returns the default config file path.
func GetConfigPath() string {
	return filepath.Join(defaultConfigDir(), "config.json")
}

// Load reads path, falling back to DefaultConfig if the file does not
// exist, then applies environment variable overrides (QUERYSERVERD_*).
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// Save writes cfg to path as indented JSON, creating parent directories
// as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func applyEnvOverrides(cfg *Config) {
	if v, ok := lookupEnv("QUERYSERVERD_PORT"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Port = n
		}
	}
	if v, ok := lookupEnv("QUERYSERVERD_UNIX_DOMAIN_SOCKET"); ok {
		cfg.UnixDomainSocket = v
	}
	if v, ok := lookupEnv("QUERYSERVERD_PASSWORD"); ok {
		cfg.Password = v
	}
	if v, ok := lookupEnv("QUERYSERVERD_QUERY_TIMEOUT"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.QueryTimeout = n
		}
	}
	if v, ok := lookupEnv("QUERYSERVERD_LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}
