package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

const (
	DefaultChainID      = 5
	DefaultReadTimeout  = 15 * time.Second
	DefaultWriteTimeout = 10 * time.Minute
)

type Profile struct {
	RPCURL          string `json:"rpc_url"`
	ChainID         uint64 `json:"chain_id"`
	ContractAddress string `json:"contract_address"`
	PrivateKey      string `json:"private_key,omitempty"`
	KeystorePath    string `json:"keystore_path,omitempty"`
	GasFeeCap       int64  `json:"gas_fee_cap,omitempty"`
	GasTipCap       int64  `json:"gas_tip_cap,omitempty"`
}

type Config struct {
	Profiles            map[string]Profile `json:"profiles"`
	ActiveProfile       string             `json:"active_profile"`
	ReadTimeoutSeconds  int                `json:"read_timeout_seconds,omitempty"`
	WriteTimeoutSeconds int                `json:"write_timeout_seconds,omitempty"`
	AutoConnect         *bool              `json:"auto_connect,omitempty"`
	currentProfile      *Profile
}

func LoadConfig() (*Config, error) {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	configPath, err := getConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}

	// Ensure config directory exists
	if err := ensureConfigDir(configPath); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	// Load existing config or create default
	config, err := loadConfigFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Validate and set current profile
	if err := config.setCurrentProfile(); err != nil {
		return nil, fmt.Errorf("failed to set current profile: %w", err)
	}
	if err := config.applyEnv(); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	return config, nil
}

// New builds an in-memory Config around a single profile. Nothing is read
// from or written to disk.
func New(name string, p Profile) *Config {
	c := &Config{
		Profiles:      map[string]Profile{name: p},
		ActiveProfile: name,
	}
	c.currentProfile = &p
	return c
}

// Validate reports what is missing before the client can connect.
func (c *Config) Validate() error {
	if c.currentProfile == nil {
		return fmt.Errorf("no active profile")
	}
	p := c.currentProfile
	if p.RPCURL == "" {
		return fmt.Errorf("rpc_url is not set")
	}
	if p.PrivateKey == "" && p.KeystorePath == "" {
		return fmt.Errorf("private_key or keystore_path is not set")
	}
	if !common.IsHexAddress(p.ContractAddress) {
		return fmt.Errorf("contract_address %q is not a valid address", p.ContractAddress)
	}
	return nil
}

func (c *Config) IsValid() bool {
	return c.Validate() == nil
}

func (c *Config) Current() Profile {
	if c.currentProfile == nil {
		return Profile{}
	}
	return *c.currentProfile
}

func (c *Config) GetRPCURL() string {
	if c.currentProfile == nil {
		return ""
	}
	return c.currentProfile.RPCURL
}

func (c *Config) GetChainID() uint64 {
	if c.currentProfile == nil || c.currentProfile.ChainID == 0 {
		return DefaultChainID
	}
	return c.currentProfile.ChainID
}

func (c *Config) GetContractAddress() common.Address {
	if c.currentProfile == nil {
		return common.Address{}
	}
	return common.HexToAddress(c.currentProfile.ContractAddress)
}

func (c *Config) ReadTimeout() time.Duration {
	if c.ReadTimeoutSeconds <= 0 {
		return DefaultReadTimeout
	}
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

func (c *Config) WriteTimeout() time.Duration {
	if c.WriteTimeoutSeconds <= 0 {
		return DefaultWriteTimeout
	}
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

func (c *Config) ShouldAutoConnect() bool {
	return c.AutoConnect == nil || *c.AutoConnect
}

// Dir is the directory holding config.json and the debug log.
func Dir() (string, error) {
	path, err := getConfigPath()
	if err != nil {
		return "", err
	}
	return filepath.Dir(path), nil
}

func getConfigPath() (string, error) {
	var configDir string

	// Use WHITELIST_HOME if set, otherwise use user's home directory
	if home := os.Getenv("WHITELIST_HOME"); home != "" {
		configDir = home
	} else {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = homeDir
	}

	return filepath.Join(configDir, ".whitelist", "config.json"), nil
}

func ensureConfigDir(configPath string) error {
	configDir := filepath.Dir(configPath)
	return os.MkdirAll(configDir, 0755)
}

func loadConfigFile(configPath string) (*Config, error) {
	// If config file doesn't exist, create default
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return createDefaultConfig(configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	return &config, nil
}

func DefaultProfile() Profile {
	return Profile{
		RPCURL:  "",
		ChainID: DefaultChainID,
	}
}

func createDefaultConfig(configPath string) (*Config, error) {
	config := &Config{
		Profiles: map[string]Profile{
			"default": DefaultProfile(),
		},
		ActiveProfile: "default",
	}

	if err := saveConfig(config, configPath); err != nil {
		return nil, err
	}

	return config, nil
}

func saveConfig(config *Config, configPath string) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0600)
}

func (c *Config) Save() error {
	configPath, err := getConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	return saveConfig(c, configPath)
}

func (c *Config) setCurrentProfile() error {
	if c.Profiles == nil {
		return fmt.Errorf("no profiles defined")
	}

	profile, exists := c.Profiles[c.ActiveProfile]
	if !exists {
		// If active profile doesn't exist, try to use the first available profile
		for name, p := range c.Profiles {
			c.ActiveProfile = name
			profile = p
			exists = true
			break
		}
	}

	if !exists {
		return fmt.Errorf("no valid profiles found")
	}

	c.currentProfile = &profile
	return nil
}

// applyEnv overlays WHITELIST_* variables on the in-memory profile only;
// they are never written back by Save.
func (c *Config) applyEnv() error {
	p := c.currentProfile
	if v := envOr("WHITELIST_RPC_URL", ""); v != "" {
		p.RPCURL = v
	}
	if v := envOr("WHITELIST_PRIVATE_KEY", ""); v != "" {
		p.PrivateKey = v
	}
	if v := envOr("WHITELIST_CONTRACT_ADDRESS", ""); v != "" {
		p.ContractAddress = v
	}
	v, err := envUint64("WHITELIST_CHAIN_ID", 0)
	if err != nil {
		return err
	}
	if v != 0 {
		p.ChainID = v
	}
	return nil
}

func envOr(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envInt64(key string, fallback int64) (int64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func envUint64(key string, fallback uint64) (uint64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", key, v)
	}
	return n, nil
}
