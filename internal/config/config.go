package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pterm/pterm"
	"gopkg.in/yaml.v3"

	"github.com/melih-ucgun/certsync/internal/core"
	"github.com/melih-ucgun/certsync/internal/crypto"
	"github.com/melih-ucgun/certsync/internal/utils"
)

const (
	// DefaultPort is the SFTP port the devices listen on.
	DefaultPort = 22022

	ConnectionSSH   = "ssh"
	ConnectionLocal = "local"

	masterKeyEnv = "CERTSYNC_MASTER_KEY"
)

// Config represents the root structure of certsync.yaml.
type Config struct {
	Certificate string            `yaml:"certificate"`           // Local trust anchor to push
	Backup      string            `yaml:"backup,omitempty"`      // Directory for backups of the remote certificate
	RemotePath  string            `yaml:"remote_path,omitempty"` // Overrides the device certificate path
	KnownHosts  string            `yaml:"known_hosts,omitempty"` // Enables host key verification
	Timeout     time.Duration     `yaml:"timeout,omitempty"`     // Dial and handshake timeout
	Inventory   string            `yaml:"inventory,omitempty"`   // Extra hosts file, relative to this file
	HistoryDir  string            `yaml:"history_dir,omitempty"`
	Vars        map[string]string `yaml:"vars,omitempty"`
	Hosts       []Host            `yaml:"hosts"`
}

// Host holds connection information for a device.
type Host struct {
	Name       string            `yaml:"name"`
	Address    string            `yaml:"address,omitempty"`
	Port       int               `yaml:"port,omitempty"`
	User       string            `yaml:"user,omitempty"`
	Password   string            `yaml:"password,omitempty"`
	Connection string            `yaml:"connection,omitempty"` // ssh (default) or local
	Root       string            `yaml:"root,omitempty"`       // Device filesystem root for local connections
	Vars       map[string]string `yaml:"vars,omitempty"`
}

// Credentials returns the session credentials. The address falls back to
// the host name.
func (h Host) Credentials() core.Credentials {
	addr := h.Address
	if addr == "" {
		addr = h.Name
	}
	return core.Credentials{Host: addr, Port: h.Port, Username: h.User, Password: h.Password}
}

// ApplyDefaults fills the port and connection type.
func (h *Host) ApplyDefaults() {
	if h.Port == 0 {
		h.Port = DefaultPort
	}
	if h.Connection == "" {
		h.Connection = ConnectionSSH
	}
}

// Validate reports configuration errors that must stop a run before any
// network activity.
func (h Host) Validate() error {
	if h.Name == "" {
		return errors.New("host name is required")
	}
	if !utils.IsValidHostName(h.Name) {
		return fmt.Errorf("invalid host name %q", h.Name)
	}
	if !utils.IsOneOf(h.Connection, ConnectionSSH, ConnectionLocal) {
		return fmt.Errorf("host %s: unsupported connection %q", h.Name, h.Connection)
	}
	if h.Connection == ConnectionLocal {
		if h.Root == "" {
			return fmt.Errorf("host %s: root is required for local connections", h.Name)
		}
		return nil
	}
	if !utils.IsValidPort(h.Port) {
		return fmt.Errorf("host %s: invalid port %d", h.Name, h.Port)
	}
	if h.User == "" {
		return fmt.Errorf("host %s: username is required", h.Name)
	}
	if h.Password == "" {
		return fmt.Errorf("host %s: password is required", h.Name)
	}
	if crypto.IsEncrypted(h.Password) {
		return fmt.Errorf("host %s: password is still encrypted, set %s", h.Name, masterKeyEnv)
	}
	return nil
}

// Validate checks every host and rejects duplicate names.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Hosts))
	var errs []error
	for _, h := range c.Hosts {
		if err := h.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if seen[h.Name] {
			errs = append(errs, fmt.Errorf("host %s is defined more than once", h.Name))
		}
		seen[h.Name] = true
	}
	return errors.Join(errs...)
}

// FindHost looks a host up by name.
func (c *Config) FindHost(name string) (Host, bool) {
	for _, h := range c.Hosts {
		if h.Name == name {
			return h, true
		}
	}
	return Host{}, false
}

// LoadConfig reads the YAML file at path, loads a .env file next to it,
// expands environment variables and decrypts encrypted passwords.
func LoadConfig(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	envPath := filepath.Join(filepath.Dir(absPath), ".env")
	if _, err := os.Stat(envPath); err == nil {
		if loadErr := godotenv.Load(envPath); loadErr != nil {
			pterm.Warning.Printf("Failed to load .env file: %v\n", loadErr)
		}
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("file read error (%s): %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("yaml parse error (%s): %w", path, err)
	}

	expandConfig(&cfg)
	if cfg.Inventory != "" && !filepath.IsAbs(cfg.Inventory) {
		cfg.Inventory = filepath.Join(filepath.Dir(absPath), cfg.Inventory)
	}
	for i := range cfg.Hosts {
		cfg.Hosts[i].ApplyDefaults()
	}
	if err := DecryptHosts(cfg.Hosts); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// expandConfig performs environment variable substitution on string values.
// Vars are exported first so later values can refer to them.
func expandConfig(cfg *Config) {
	for k, v := range cfg.Vars {
		expanded := os.ExpandEnv(v)
		cfg.Vars[k] = expanded
		os.Setenv(k, expanded)
	}

	cfg.Certificate = os.ExpandEnv(cfg.Certificate)
	cfg.Backup = os.ExpandEnv(cfg.Backup)
	cfg.RemotePath = os.ExpandEnv(cfg.RemotePath)
	cfg.KnownHosts = os.ExpandEnv(cfg.KnownHosts)
	cfg.Inventory = os.ExpandEnv(cfg.Inventory)
	cfg.HistoryDir = os.ExpandEnv(cfg.HistoryDir)

	for i := range cfg.Hosts {
		ExpandHost(&cfg.Hosts[i])
	}
}

// ExpandHost substitutes environment variables in the host's string fields.
func ExpandHost(h *Host) {
	h.Address = os.ExpandEnv(h.Address)
	h.User = os.ExpandEnv(h.User)
	h.Root = os.ExpandEnv(h.Root)
	// Armored ciphertext contains no '$'.
	h.Password = os.ExpandEnv(h.Password)
	for k, v := range h.Vars {
		h.Vars[k] = os.ExpandEnv(v)
	}
}

// DecryptHosts replaces encrypted passwords with their plaintext. Without a
// master key encrypted values are left alone and Validate reports them.
func DecryptHosts(hosts []Host) error {
	if !hasEncryptedContent(hosts) {
		return nil
	}

	key := getMasterKey()
	if key == "" {
		return nil
	}

	for i := range hosts {
		if !crypto.IsEncrypted(hosts[i].Password) {
			continue
		}
		plain, err := crypto.Decrypt(hosts[i].Password, key)
		if err != nil {
			return fmt.Errorf("host %s: %w", hosts[i].Name, err)
		}
		hosts[i].Password = plain
	}
	return nil
}

func hasEncryptedContent(hosts []Host) bool {
	for _, h := range hosts {
		if crypto.IsEncrypted(h.Password) {
			return true
		}
	}
	return false
}

// MasterKey returns the key used for encrypted values, or "" if none is
// configured and no terminal is attached.
func MasterKey() string {
	return getMasterKey()
}

func getMasterKey() string {
	if key := os.Getenv(masterKeyEnv); key != "" {
		return key
	}

	home, err := os.UserHomeDir()
	if err == nil {
		keyPath := filepath.Join(home, ".certsync", "master.key")
		if content, err := os.ReadFile(keyPath); err == nil {
			return strings.TrimSpace(string(content))
		}
	}

	if isInteractive() {
		pterm.Println()
		pterm.Warning.Printf("Encrypted content detected but %s not found.\n", masterKeyEnv)
		key, err := pterm.DefaultInteractiveTextInput.
			WithMask("*").
			WithDefaultText("Enter master key for decryption").
			Show()
		if err == nil && key != "" {
			return key
		}
	}
	return ""
}

func isInteractive() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
