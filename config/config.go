package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Config represents the NanoCore host tooling configuration: settings for
// the CLI/debugger/API front-ends layered over the Core (spec §1, "the
// Core exposes a stable API; everything else is a collaborator"). None of
// these fields affect Core semantics — they configure the surrounding
// tooling.
type Config struct {
	// Execution settings
	Execution struct {
		DefaultMemorySize uint64 `toml:"default_memory_size"`
		MaxInstructions   uint64 `toml:"max_instructions"`
		DefaultEntry      string `toml:"default_entry"`
		EnableInstrLog    bool   `toml:"enable_instruction_log"`
	} `toml:"execution"`

	// Debugger settings
	Debugger struct {
		HistorySize     int  `toml:"history_size"`
		PersistBreaks   bool `toml:"persist_breakpoints"`
		ShowRegisters   bool `toml:"show_registers"`
		ShowPerfCounter bool `toml:"show_perf_counters"`
	} `toml:"debugger"`

	// Display settings
	Display struct {
		ColorOutput  bool   `toml:"color_output"`
		BytesPerLine int    `toml:"bytes_per_line"`
		NumberFormat string `toml:"number_format"` // hex, dec, both
	} `toml:"display"`

	// API server settings (spec §6.6, supplemented HTTP+WebSocket front-end)
	API struct {
		ListenAddress  string `toml:"listen_address"`
		MaxSessions    int    `toml:"max_sessions"`
		EnableCORS     bool   `toml:"enable_cors"`
		BroadcastEvery string `toml:"broadcast_every"` // duration string, e.g. "100ms"
	} `toml:"api"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Execution defaults
	cfg.Execution.DefaultMemorySize = 64 * 1024 * 1024 // 64MB, matching the reference CLI
	cfg.Execution.MaxInstructions = 0                  // unbounded
	cfg.Execution.DefaultEntry = "0x10000"
	cfg.Execution.EnableInstrLog = false

	// Debugger defaults
	cfg.Debugger.HistorySize = 1000
	cfg.Debugger.PersistBreaks = true
	cfg.Debugger.ShowRegisters = true
	cfg.Debugger.ShowPerfCounter = false

	// Display defaults
	cfg.Display.ColorOutput = true
	cfg.Display.BytesPerLine = 16
	cfg.Display.NumberFormat = "hex"

	// API defaults
	cfg.API.ListenAddress = "127.0.0.1:7777"
	cfg.API.MaxSessions = 256 // matches registry.MaxInstances
	cfg.API.EnableCORS = true
	cfg.API.BroadcastEvery = "100ms"

	return cfg
}

// GetConfigPath returns the platform-specific config file path
func GetConfigPath() string {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		// Windows: %APPDATA%\nanocore\config.toml
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		configDir = filepath.Join(configDir, "nanocore")

	case "darwin", "linux":
		// macOS/Linux: ~/.config/nanocore/config.toml
		homeDir, err := os.UserHomeDir()
		if err != nil {
			// Fallback to current directory
			return "config.toml"
		}
		configDir = filepath.Join(homeDir, ".config", "nanocore")

	default:
		// Unknown platform: use current directory
		return "config.toml"
	}

	// Ensure directory exists
	if err := os.MkdirAll(configDir, 0750); err != nil {
		// If we can't create the directory, fall back to current directory
		return "config.toml"
	}

	return filepath.Join(configDir, "config.toml")
}

// GetLogPath returns the platform-specific log directory path
func GetLogPath() string {
	var logDir string

	switch runtime.GOOS {
	case "windows":
		// Windows: %APPDATA%\nanocore\logs
		logDir = os.Getenv("APPDATA")
		if logDir == "" {
			logDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		logDir = filepath.Join(logDir, "nanocore", "logs")

	case "darwin", "linux":
		// macOS/Linux: ~/.local/share/nanocore/logs
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "logs"
		}
		logDir = filepath.Join(homeDir, ".local", "share", "nanocore", "logs")

	default:
		return "logs"
	}

	// Ensure directory exists
	if err := os.MkdirAll(logDir, 0750); err != nil {
		return "logs"
	}

	return logDir
}

// Load loads configuration from the default config file
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom loads configuration from the specified file
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	// If file doesn't exist, return default config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read and parse config file
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo saves configuration to the specified file
func (c *Config) SaveTo(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Create file
	f, err := os.Create(path) // #nosec G304 -- user config file path
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close config file: %w", closeErr)
		}
	}()

	// Encode to TOML
	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}
