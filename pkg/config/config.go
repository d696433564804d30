package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"safehdr/pkg/utils"
)

const (
	ConfigFileName = ".safehdr.json"
	EnvPrefix      = "SAFEHDR"
)

// TokenConfig holds configuration for an ERC-20 token counted in the fiat total.
type TokenConfig struct {
	Symbol      string `json:"symbol" mapstructure:"symbol"`
	Address     string `json:"address" mapstructure:"address"`
	Decimals    int    `json:"decimals" mapstructure:"decimals"`
	CoinGeckoID string `json:"coingecko_id" mapstructure:"coingecko_id"`
}

// ChainConfig holds configuration for a specific EVM chain.
type ChainConfig struct {
	Name                     string        `json:"name" mapstructure:"name"`
	ShortName                string        `json:"short_name" mapstructure:"short_name"`
	ChainID                  int64         `json:"chain_id,omitempty" mapstructure:"chain_id"`
	RPCURLs                  []string      `json:"rpc_urls" mapstructure:"rpc_urls"`
	Symbol                   string        `json:"symbol" mapstructure:"symbol"`
	CoinGeckoID              string        `json:"coingecko_id" mapstructure:"coingecko_id"`
	BlockExplorerURITemplate string        `json:"block_explorer_uri_template,omitempty" mapstructure:"block_explorer_uri_template"`
	Tokens                   []TokenConfig `json:"tokens" mapstructure:"tokens"`
}

// SafeConfig is a Safe shown by the header, bound to the chain it lives on.
type SafeConfig struct {
	Address string `json:"address" mapstructure:"address"`
	Name    string `json:"name,omitempty" mapstructure:"name"`
	Chain   string `json:"chain" mapstructure:"chain"`
}

type ShortNameSettings struct {
	Copy bool `json:"copy" mapstructure:"copy"`
}

type Settings struct {
	ShortName ShortNameSettings `json:"short_name" mapstructure:"short_name"`
}

type Config struct {
	Safes               []SafeConfig  `json:"safes" mapstructure:"safes"`
	Chains              []ChainConfig `json:"chains" mapstructure:"chains"`
	SelectedSafe        string        `json:"selected_safe" mapstructure:"selected_safe"`
	Currency            string        `json:"currency" mapstructure:"currency"`
	Locale              string        `json:"locale" mapstructure:"locale"`
	Settings            Settings      `json:"settings" mapstructure:"settings"`
	PollIntervalSeconds int           `json:"poll_interval_seconds" mapstructure:"poll_interval_seconds"`
	NewTransactionURL   string        `json:"new_transaction_url,omitempty" mapstructure:"new_transaction_url"`
	LogFile             string        `json:"log_file,omitempty" mapstructure:"log_file"`
	LogLevel            string        `json:"log_level,omitempty" mapstructure:"log_level"`
}

// SelectedIndex returns the index of the selected Safe, or 0.
func (c Config) SelectedIndex() int {
	for i, s := range c.Safes {
		if strings.EqualFold(s.Address, c.SelectedSafe) {
			return i
		}
	}
	return 0
}

// Chain finds a chain by name, case-insensitively.
func (c Config) Chain(name string) (ChainConfig, bool) {
	for _, ch := range c.Chains {
		if strings.EqualFold(ch.Name, name) {
			return ch, true
		}
	}
	return ChainConfig{}, false
}

func GetConfigPath(customPath string) (string, error) {
	if customPath != "" {
		return customPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigFileName), nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("currency", "USD")
	v.SetDefault("locale", "en")
	v.SetDefault("settings.short_name.copy", true)
	v.SetDefault("poll_interval_seconds", 30)
	v.SetDefault("selected_safe", "")
	v.SetDefault("new_transaction_url", "")
	v.SetDefault("log_file", "")
	v.SetDefault("log_level", "info")
	return v
}

// LoadConfigFromFile reads path, returning defaults when it does not exist.
func LoadConfigFromFile(path string) (Config, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return decode(newViper())
	}
	if err != nil {
		return Config{}, err
	}
	defer func() { _ = f.Close() }()
	return LoadConfig(f)
}

func LoadConfig(r io.Reader) (Config, error) {
	v := newViper()
	if err := v.ReadConfig(r); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	// Migration for older single-chain configs: "addresses" (strings or objects)
	// and root "rpc_urls".
	if len(cfg.Chains) == 0 {
		if rpcs := v.GetStringSlice("rpc_urls"); len(rpcs) > 0 {
			cfg.Chains = []ChainConfig{{
				Name:                     "Ethereum",
				ShortName:                "eth",
				ChainID:                  1,
				RPCURLs:                  rpcs,
				Symbol:                   "ETH",
				CoinGeckoID:              "ethereum",
				BlockExplorerURITemplate: "https://etherscan.io/address/{{address}}",
			}}
		}
	}
	if len(cfg.Safes) == 0 && len(cfg.Chains) > 0 {
		cfg.Safes = legacyAddresses(v.Get("addresses"), cfg.Chains[0].Name)
	}

	for i := range cfg.Safes {
		cfg.Safes[i].Address = utils.ChecksumAddress(cfg.Safes[i].Address)
		if cfg.Safes[i].Chain == "" && len(cfg.Chains) > 0 {
			cfg.Safes[i].Chain = cfg.Chains[0].Name
		}
	}
	if cfg.PollIntervalSeconds <= 0 {
		cfg.PollIntervalSeconds = 30
	}
	return cfg, nil
}

func legacyAddresses(raw interface{}, chain string) []SafeConfig {
	items, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	var safes []SafeConfig
	for _, item := range items {
		switch a := item.(type) {
		case string:
			safes = append(safes, SafeConfig{Address: a, Chain: chain})
		case map[string]interface{}:
			addr, _ := a["address"].(string)
			name, _ := a["name"].(string)
			if addr != "" {
				safes = append(safes, SafeConfig{Address: addr, Name: name, Chain: chain})
			}
		}
	}
	return safes
}

// Validate checks the parts of cfg that SaveConfig refuses to write.
func Validate(cfg Config) error {
	if len(cfg.Chains) == 0 {
		return fmt.Errorf("validation failed: configuration must have at least one chain")
	}
	for i, c := range cfg.Chains {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("validation failed: chain at index %d has no name", i)
		}
		if len(c.RPCURLs) == 0 {
			return fmt.Errorf("validation failed: chain %s has no RPC URLs", c.Name)
		}
	}
	for _, s := range cfg.Safes {
		if _, ok := cfg.Chain(s.Chain); !ok {
			return fmt.Errorf("validation failed: safe %s references unknown chain %q", s.Address, s.Chain)
		}
	}
	return nil
}

func SaveConfig(cfg Config, path string) error {
	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	if len(data) == 0 {
		return fmt.Errorf("validation failed: encoded configuration is empty")
	}

	// Create a backup of the existing file
	if _, err := os.Stat(path); err == nil {
		backupPath := fmt.Sprintf("%s.%s.bak", path, time.Now().Format("20060102-150405"))
		input, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read existing config for backup: %w", err)
		}
		if err := os.WriteFile(backupPath, input, 0644); err != nil {
			return fmt.Errorf("failed to write backup config: %w", err)
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// RestoreLastBackup copies the newest backup over configPath and returns its name.
func RestoreLastBackup(configPath string) (string, error) {
	matches, err := filepath.Glob(configPath + ".*.bak")
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no backup files found")
	}
	sort.Strings(matches)
	lastBackup := matches[len(matches)-1]

	data, err := os.ReadFile(lastBackup)
	if err != nil {
		return "", err
	}
	return lastBackup, os.WriteFile(configPath, data, 0644)
}
