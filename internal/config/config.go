package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config application configuration structure
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	NATS        NATSConfig        `yaml:"nats"`
	Aggregator  AggregatorConfig  `yaml:"aggregator"`
	Attestation AttestationConfig `yaml:"attestation"`
	Blockchain  BlockchainConfig  `yaml:"blockchain"`
	Wallet      WalletConfig      `yaml:"wallet"`
	Vaults      VaultsConfig      `yaml:"vaults"`
	CORS        CORSConfig        `yaml:"cors"`
	Admin       AdminConfig       `yaml:"admin"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig database configuration
type DatabaseConfig struct {
	DSN    string `yaml:"dsn"`
	Driver string `yaml:"driver"`
}

// NATSConfig NATS message server configuration
type NATSConfig struct {
	URL           string `yaml:"url"`
	Timeout       int    `yaml:"timeout"`
	ReconnectWait int    `yaml:"reconnect_wait"`
	MaxReconnects int    `yaml:"max_reconnects"`
	StreamName    string `yaml:"stream_name"`
}

// AggregatorConfig swap aggregator API configuration
type AggregatorConfig struct {
	BaseURL            string `yaml:"base_url"`
	ClientID           string `yaml:"client_id"`
	DefaultSlippageBps int    `yaml:"default_slippage_bps"`
	TimeoutSeconds     int    `yaml:"timeout_seconds"`
}

// AttestationConfig attestation service configuration
type AttestationConfig struct {
	BaseURL           string `yaml:"base_url"`
	MaxRetries        int    `yaml:"max_retries"`
	RetryDelaySeconds int    `yaml:"retry_delay_seconds"`
	TimeoutSeconds    int    `yaml:"timeout_seconds"`
}

// CORSConfig CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowCredentials bool     `yaml:"allow_credentials"`
	MaxAge           int      `yaml:"max_age"`
}

// AdminConfig admin API access control configuration
type AdminConfig struct {
	JWTSecret  string   `yaml:"jwt_secret"`
	AllowedIPs []string `yaml:"allowed_ips"`
}

// WalletConfig wallet RPC bridge configuration. The wallet endpoint signs
// and submits; this service never holds key material.
type WalletConfig struct {
	RPCURL string `yaml:"rpc_url"`
}

// VaultsConfig vault registry configuration
type VaultsConfig struct {
	RegistryPath string `yaml:"registry_path"`
}

// BlockchainConfig blockchain configuration. Mode selects the mainnet or
// testnet network set once at startup; it is never toggled at runtime.
type BlockchainConfig struct {
	Mode        string                   `yaml:"mode"`
	HomeNetwork string                   `yaml:"home_network"`
	Networks    map[string]NetworkConfig `yaml:"networks"`
	Testnets    map[string]NetworkConfig `yaml:"testnets"`
}

// NetworkConfig per-network registry: chain id, bridge domain, and the
// contract addresses the builders need. Loaded once, never mutated.
type NetworkConfig struct {
	Name               string `yaml:"name"`
	ChainID            uint64 `yaml:"chain_id"`
	Domain             uint32 `yaml:"domain"`
	RpcURL             string `yaml:"rpc_url"`
	Explorer           string `yaml:"explorer"`
	USDC               string `yaml:"usdc"`
	TokenMessenger     string `yaml:"token_messenger"`
	MessageTransmitter string `yaml:"message_transmitter"`
	VaultRouter        string `yaml:"vault_router"`
	AggregatorChainTag string `yaml:"aggregator_chain_tag"`
}

// AppConfig global application configuration
var AppConfig *Config

// LoadConfig loads configuration from a YAML file, with environment
// variables taking priority over file values.
func LoadConfig(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
		if _, err := os.Stat("config.local.yaml"); err == nil {
			configPath = "config.local.yaml"
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	overrideFromEnv(&config)

	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	AppConfig = &config
	return nil
}

// overrideFromEnv overrides configuration from environment variables
func overrideFromEnv(config *Config) {
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		config.Database.DSN = dsn
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		config.NATS.URL = natsURL
	}
	if base := os.Getenv("AGGREGATOR_BASE_URL"); base != "" {
		config.Aggregator.BaseURL = base
	}
	if clientID := os.Getenv("AGGREGATOR_CLIENT_ID"); clientID != "" {
		config.Aggregator.ClientID = clientID
	}
	if base := os.Getenv("ATTESTATION_BASE_URL"); base != "" {
		config.Attestation.BaseURL = base
	}
	if secret := os.Getenv("ADMIN_JWT_SECRET"); secret != "" {
		config.Admin.JWTSecret = secret
	}
	if mode := os.Getenv("NETWORK_MODE"); mode != "" {
		config.Blockchain.Mode = mode
	}
	if walletURL := os.Getenv("WALLET_RPC_URL"); walletURL != "" {
		config.Wallet.RPCURL = walletURL
	}
}

// Validate checks the fields the orchestration engine cannot run without.
func (c *Config) Validate() error {
	if c.Blockchain.Mode == "" {
		c.Blockchain.Mode = "mainnet"
	}
	if c.Blockchain.Mode != "mainnet" && c.Blockchain.Mode != "testnet" {
		return fmt.Errorf("blockchain.mode must be mainnet or testnet, got %q", c.Blockchain.Mode)
	}
	networks := c.ActiveNetworks()
	if len(networks) == 0 {
		return fmt.Errorf("no networks configured for mode %s", c.Blockchain.Mode)
	}
	if c.Blockchain.HomeNetwork == "" {
		return fmt.Errorf("blockchain.home_network is required")
	}
	if _, ok := networks[c.Blockchain.HomeNetwork]; !ok {
		return fmt.Errorf("home network %q is not in the %s network set", c.Blockchain.HomeNetwork, c.Blockchain.Mode)
	}
	for name, net := range networks {
		if net.ChainID == 0 {
			return fmt.Errorf("network %s: chain_id is required", name)
		}
		if net.RpcURL == "" {
			return fmt.Errorf("network %s: rpc_url is required", name)
		}
	}
	if c.Wallet.RPCURL == "" {
		return fmt.Errorf("wallet.rpc_url is required")
	}
	if c.Aggregator.DefaultSlippageBps == 0 {
		c.Aggregator.DefaultSlippageBps = 50
	}
	if c.Attestation.MaxRetries == 0 {
		c.Attestation.MaxRetries = 60
	}
	if c.Attestation.RetryDelaySeconds == 0 {
		c.Attestation.RetryDelaySeconds = 5
	}
	return nil
}

// ActiveNetworks returns the network set selected by the configured mode.
func (c *Config) ActiveNetworks() map[string]NetworkConfig {
	if c.Blockchain.Mode == "testnet" {
		return c.Blockchain.Testnets
	}
	return c.Blockchain.Networks
}

// Network looks up a network by registry name.
func (c *Config) Network(name string) (*NetworkConfig, error) {
	if net, ok := c.ActiveNetworks()[name]; ok {
		return &net, nil
	}
	return nil, fmt.Errorf("unknown network: %s", name)
}

// NetworkByChainID looks up a network by EVM chain id.
func (c *Config) NetworkByChainID(chainID uint64) (*NetworkConfig, error) {
	for _, net := range c.ActiveNetworks() {
		if net.ChainID == chainID {
			return &net, nil
		}
	}
	return nil, fmt.Errorf("no network configured for chain id %d", chainID)
}

// NetworkByDomain looks up a network by bridge message domain.
func (c *Config) NetworkByDomain(domain uint32) (*NetworkConfig, error) {
	for _, net := range c.ActiveNetworks() {
		if net.Domain == domain {
			return &net, nil
		}
	}
	return nil, fmt.Errorf("no network configured for bridge domain %d", domain)
}

// HomeNetwork returns the application's home network entry.
func (c *Config) HomeNetworkConfig() (*NetworkConfig, error) {
	return c.Network(c.Blockchain.HomeNetwork)
}
