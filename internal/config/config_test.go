package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestConfig() *Config {
	return &Config{
		Wallet: WalletConfig{RPCURL: "http://localhost:8545"},
		Blockchain: BlockchainConfig{
			Mode:        "mainnet",
			HomeNetwork: "base",
			Networks: map[string]NetworkConfig{
				"base":     {Name: "base", ChainID: 8453, Domain: 6, RpcURL: "https://mainnet.base.org"},
				"arbitrum": {Name: "arbitrum", ChainID: 42161, Domain: 3, RpcURL: "https://arb1.arbitrum.io/rpc"},
			},
			Testnets: map[string]NetworkConfig{
				"base-sepolia": {Name: "base-sepolia", ChainID: 84532, Domain: 6, RpcURL: "https://sepolia.base.org"},
			},
		},
	}
}

func TestValidateAppliesDefaults(t *testing.T) {
	cfg := validTestConfig()
	cfg.Blockchain.Mode = ""
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "mainnet", cfg.Blockchain.Mode)
	assert.Equal(t, 50, cfg.Aggregator.DefaultSlippageBps)
	assert.Equal(t, 60, cfg.Attestation.MaxRetries)
	assert.Equal(t, 5, cfg.Attestation.RetryDelaySeconds)
}

func TestValidateRejectsBrokenConfigs(t *testing.T) {
	cfg := validTestConfig()
	cfg.Blockchain.Mode = "staging"
	assert.Error(t, cfg.Validate())

	cfg = validTestConfig()
	cfg.Blockchain.HomeNetwork = "solana"
	assert.Error(t, cfg.Validate())

	cfg = validTestConfig()
	cfg.Wallet.RPCURL = ""
	assert.Error(t, cfg.Validate())

	cfg = validTestConfig()
	net := cfg.Blockchain.Networks["base"]
	net.ChainID = 0
	cfg.Blockchain.Networks["base"] = net
	assert.Error(t, cfg.Validate())
}

func TestActiveNetworksFollowsMode(t *testing.T) {
	cfg := validTestConfig()
	assert.Contains(t, cfg.ActiveNetworks(), "arbitrum")

	cfg.Blockchain.Mode = "testnet"
	active := cfg.ActiveNetworks()
	assert.Contains(t, active, "base-sepolia")
	assert.NotContains(t, active, "base")
}

func TestNetworkLookups(t *testing.T) {
	cfg := validTestConfig()

	net, err := cfg.Network("arbitrum")
	require.NoError(t, err)
	assert.Equal(t, uint64(42161), net.ChainID)

	_, err = cfg.Network("solana")
	assert.Error(t, err)

	byChain, err := cfg.NetworkByChainID(8453)
	require.NoError(t, err)
	assert.Equal(t, "base", byChain.Name)

	byDomain, err := cfg.NetworkByDomain(3)
	require.NoError(t, err)
	assert.Equal(t, "arbitrum", byDomain.Name)

	home, err := cfg.HomeNetworkConfig()
	require.NoError(t, err)
	assert.Equal(t, "base", home.Name)
}

func TestParseVaultEntryVariants(t *testing.T) {
	common := VaultCommon{ID: "v", Network: "base", Vault: "0x01", Router: "0x02", ChainTag: "base"}

	vault, err := ParseVaultEntry(vaultEntry{VaultCommon: common, Kind: VaultKindSingleAsset, Underlying: "0x03"})
	require.NoError(t, err)
	assert.Equal(t, VaultKindSingleAsset, vault.Kind())

	vault, err = ParseVaultEntry(vaultEntry{VaultCommon: common, Kind: VaultKindLPUsdc, PairToken: "0x04", Stable: true})
	require.NoError(t, err)
	lp, ok := vault.(LPUsdcVault)
	require.True(t, ok)
	assert.True(t, lp.Stable)

	vault, err = ParseVaultEntry(vaultEntry{VaultCommon: common, Kind: VaultKindLPNonUsdc, Token0: "0x05", Token1: "0x06"})
	require.NoError(t, err)
	assert.Equal(t, VaultKindLPNonUsdc, vault.Kind())

	_, err = ParseVaultEntry(vaultEntry{VaultCommon: common, Kind: VaultKindSingleAsset})
	assert.Error(t, err, "single-asset without underlying")

	_, err = ParseVaultEntry(vaultEntry{VaultCommon: common, Kind: "exotic"})
	assert.Error(t, err, "unknown kind")
}

func TestLoadVaultRegistryRejectsDuplicateIDs(t *testing.T) {
	registryYAML := `vaults:
  - id: v1
    kind: single-asset
    network: base
    vault: "0x01"
    router: "0x02"
    chain_tag: base
    underlying: "0x03"
  - id: v1
    kind: single-asset
    network: base
    vault: "0x04"
    router: "0x05"
    chain_tag: base
    underlying: "0x06"
`
	path := filepath.Join(t.TempDir(), "vaults.yaml")
	require.NoError(t, os.WriteFile(path, []byte(registryYAML), 0o600))

	_, err := LoadVaultRegistry(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate vault id")
}

func TestLoadVaultRegistryPreservesFileOrder(t *testing.T) {
	registryYAML := `vaults:
  - id: second-listed-first
    kind: single-asset
    network: base
    vault: "0x01"
    router: "0x02"
    chain_tag: base
    underlying: "0x03"
  - id: another
    kind: lp-usdc
    network: base
    vault: "0x04"
    router: "0x05"
    chain_tag: base
    pair_token: "0x06"
`
	path := filepath.Join(t.TempDir(), "vaults.yaml")
	require.NoError(t, os.WriteFile(path, []byte(registryYAML), 0o600))

	registry, err := LoadVaultRegistry(path)
	require.NoError(t, err)

	list := registry.List()
	require.Len(t, list, 2)
	assert.Equal(t, "second-listed-first", list[0].Common().ID)
	assert.Equal(t, "another", list[1].Common().ID)

	_, ok := registry.Get("another")
	assert.True(t, ok)
	_, ok = registry.Get("missing")
	assert.False(t, ok)
}
