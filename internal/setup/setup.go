// Package setup registers the stdio MCP server with desktop assistant clients.
package setup

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/medication-net-benefit/internal/config"
)

// ServerName is the key the server is registered under.
const ServerName = "medication-net-benefit"

// BinaryName is the executable that serves the tools.
const BinaryName = "netbenefit"

// ServerEntry is one MCP server in a client configuration file.
type ServerEntry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// ClientConfig is a desktop client configuration. Keys other than
// mcpServers are carried through unchanged.
type ClientConfig struct {
	MCPServers map[string]ServerEntry
	other      map[string]json.RawMessage
}

// Options controls Register.
type Options struct {
	ConfigPath string // client config file; empty selects the platform default
	BinaryPath string // empty searches PATH and common install locations
	DataDir    string // empty leaves the server default
}

// Status describes the current registration.
type Status struct {
	ConfigPath    string   `json:"config_path"`
	Registered    bool     `json:"registered"`
	Command       string   `json:"command,omitempty"`
	BinaryFound   bool     `json:"binary_found"`
	DataDir       string   `json:"data_dir"`
	DataDirExists bool     `json:"data_dir_exists"`
	FeedbackDB    bool     `json:"feedback_db"`
	Issues        []string `json:"issues"`
}

// DefaultConfigPath returns the platform location of the desktop client config.
func DefaultConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support", "Claude")
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			configDir = filepath.Join(xdg, "Claude")
			break
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config", "Claude")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		configDir = filepath.Join(appData, "Claude")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	return filepath.Join(configDir, "claude_desktop_config.json"), nil
}

// Load reads a client configuration. A missing file yields an empty one.
func Load(path string) (*ClientConfig, error) {
	cfg := &ClientConfig{
		MCPServers: make(map[string]ServerEntry),
		other:      make(map[string]json.RawMessage),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &cfg.other); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if raw, ok := cfg.other["mcpServers"]; ok {
		if err := json.Unmarshal(raw, &cfg.MCPServers); err != nil {
			return nil, fmt.Errorf("failed to parse mcpServers: %w", err)
		}
		delete(cfg.other, "mcpServers")
	}
	if cfg.MCPServers == nil {
		cfg.MCPServers = make(map[string]ServerEntry)
	}

	return cfg, nil
}

// Save writes the configuration, creating its directory if needed.
func Save(path string, cfg *ClientConfig) error {
	out := make(map[string]any, len(cfg.other)+1)
	for k, v := range cfg.other {
		out[k] = v
	}
	out["mcpServers"] = cfg.MCPServers

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Register adds or replaces the server entry and returns the file written.
func Register(opts Options) (string, error) {
	path, err := resolveConfigPath(opts.ConfigPath)
	if err != nil {
		return "", err
	}

	cfg, err := Load(path)
	if err != nil {
		return "", err
	}

	binary := opts.BinaryPath
	if binary == "" {
		if binary, err = findBinary(); err != nil {
			return "", fmt.Errorf("could not find server binary: %w", err)
		}
	}

	entry := ServerEntry{Command: binary, Args: []string{"mcp"}}
	if opts.DataDir != "" {
		entry.Env = map[string]string{"NETBENEFIT_DATA_DIR": opts.DataDir}
	}
	cfg.MCPServers[ServerName] = entry

	if err := Save(path, cfg); err != nil {
		return "", err
	}
	return path, nil
}

// GetStatus inspects the registration in configPath (empty for the default).
func GetStatus(configPath string) (*Status, error) {
	path, err := resolveConfigPath(configPath)
	if err != nil {
		return nil, err
	}
	status := &Status{ConfigPath: path, Issues: []string{}}

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	dataDir := config.DefaultEnvConfig().DataDir
	if entry, ok := cfg.MCPServers[ServerName]; ok {
		status.Registered = true
		status.Command = entry.Command
		if _, err := os.Stat(entry.Command); err == nil {
			status.BinaryFound = true
		} else {
			status.Issues = append(status.Issues, fmt.Sprintf("server binary not found: %s", entry.Command))
		}
		if dir := entry.Env["NETBENEFIT_DATA_DIR"]; dir != "" {
			dataDir = dir
		}
	} else {
		status.Issues = append(status.Issues, fmt.Sprintf("%s is not registered in %s", ServerName, path))
	}

	status.DataDir = dataDir
	if _, err := os.Stat(dataDir); err == nil {
		status.DataDirExists = true
	}
	env := &config.EnvConfig{DataDir: dataDir}
	if _, err := os.Stat(env.FeedbackDBPath()); err == nil {
		status.FeedbackDB = true
	}

	return status, nil
}

func resolveConfigPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return DefaultConfigPath()
}

// findBinary looks for the server on PATH, next to the running executable,
// then in common install locations.
func findBinary() (string, error) {
	if path, err := exec.LookPath(BinaryName); err == nil {
		return filepath.Abs(path)
	}

	var locations []string
	if self, err := os.Executable(); err == nil {
		locations = append(locations, filepath.Join(filepath.Dir(self), BinaryName))
	}
	home, _ := os.UserHomeDir()
	locations = append(locations,
		filepath.Join("build", BinaryName),
		filepath.Join(home, ".local", "bin", BinaryName),
		filepath.Join("/usr/local/bin", BinaryName),
	)

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return filepath.Abs(loc)
		}
	}
	return "", fmt.Errorf("binary %q not found in PATH or common locations", BinaryName)
}
