package config

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// VaultKind discriminates the three vault shapes. The variants differ in
// which underlying tokens participate in the zap's swap step, so they stay
// a sum type with exhaustive matching instead of one struct with optional
// fields.
type VaultKind string

const (
	VaultKindSingleAsset VaultKind = "single-asset"
	VaultKindLPUsdc      VaultKind = "lp-usdc"
	VaultKindLPNonUsdc   VaultKind = "lp-non-usdc"
)

// VaultCommon carries the fields every vault variant shares. Immutable,
// loaded once at startup; the orchestrators never mutate it.
type VaultCommon struct {
	ID       string `yaml:"id"`
	Network  string `yaml:"network"`
	Vault    string `yaml:"vault"`
	Router   string `yaml:"router"`
	ChainTag string `yaml:"chain_tag"`
}

// VaultDescriptor is the closed set of vault variants.
type VaultDescriptor interface {
	Common() VaultCommon
	Kind() VaultKind
}

// SingleAssetVault accepts exactly one underlying token.
type SingleAssetVault struct {
	VaultCommon
	Underlying string
}

func (v SingleAssetVault) Common() VaultCommon { return v.VaultCommon }
func (v SingleAssetVault) Kind() VaultKind     { return VaultKindSingleAsset }

// LPUsdcVault accepts a USDC/pair-token LP position; USDC is one side of
// the pair so only the pair token needs swapping in.
type LPUsdcVault struct {
	VaultCommon
	PairToken string
	Stable    bool
}

func (v LPUsdcVault) Common() VaultCommon { return v.VaultCommon }
func (v LPUsdcVault) Kind() VaultKind     { return VaultKindLPUsdc }

// LPNonUsdcVault accepts an LP position where neither side is USDC.
type LPNonUsdcVault struct {
	VaultCommon
	Token0 string
	Token1 string
	Stable bool
}

func (v LPNonUsdcVault) Common() VaultCommon { return v.VaultCommon }
func (v LPNonUsdcVault) Kind() VaultKind     { return VaultKindLPNonUsdc }

// vaultEntry is the flat YAML shape; ParseVaultEntry lifts it into the
// variant the kind field names.
type vaultEntry struct {
	VaultCommon `yaml:",inline"`
	Kind        VaultKind `yaml:"kind"`
	Underlying  string    `yaml:"underlying"`
	PairToken   string    `yaml:"pair_token"`
	Token0      string    `yaml:"token0"`
	Token1      string    `yaml:"token1"`
	Stable      bool      `yaml:"stable"`
}

// ParseVaultEntry validates one registry entry and returns its variant.
func ParseVaultEntry(entry vaultEntry) (VaultDescriptor, error) {
	if entry.ID == "" {
		return nil, fmt.Errorf("vault entry missing id")
	}
	if entry.Network == "" || entry.Vault == "" || entry.Router == "" {
		return nil, fmt.Errorf("vault %s: network, vault, and router are required", entry.ID)
	}
	switch entry.Kind {
	case VaultKindSingleAsset:
		if entry.Underlying == "" {
			return nil, fmt.Errorf("vault %s: single-asset vault requires underlying", entry.ID)
		}
		return SingleAssetVault{VaultCommon: entry.VaultCommon, Underlying: entry.Underlying}, nil
	case VaultKindLPUsdc:
		if entry.PairToken == "" {
			return nil, fmt.Errorf("vault %s: lp-usdc vault requires pair_token", entry.ID)
		}
		return LPUsdcVault{VaultCommon: entry.VaultCommon, PairToken: entry.PairToken, Stable: entry.Stable}, nil
	case VaultKindLPNonUsdc:
		if entry.Token0 == "" || entry.Token1 == "" {
			return nil, fmt.Errorf("vault %s: lp-non-usdc vault requires token0 and token1", entry.ID)
		}
		return LPNonUsdcVault{VaultCommon: entry.VaultCommon, Token0: entry.Token0, Token1: entry.Token1, Stable: entry.Stable}, nil
	default:
		return nil, fmt.Errorf("vault %s: unknown kind %q", entry.ID, entry.Kind)
	}
}

// VaultRegistry is the loaded vault set, keyed by vault id.
type VaultRegistry struct {
	mu     sync.RWMutex
	vaults map[string]VaultDescriptor
	order  []string
}

// LoadVaultRegistry reads the registry YAML file.
func LoadVaultRegistry(path string) (*VaultRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vault registry: %w", err)
	}

	var file struct {
		Vaults []vaultEntry `yaml:"vaults"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse vault registry: %w", err)
	}

	registry := &VaultRegistry{vaults: make(map[string]VaultDescriptor, len(file.Vaults))}
	for _, entry := range file.Vaults {
		vault, err := ParseVaultEntry(entry)
		if err != nil {
			return nil, err
		}
		id := vault.Common().ID
		if _, exists := registry.vaults[id]; exists {
			return nil, fmt.Errorf("duplicate vault id %s", id)
		}
		registry.vaults[id] = vault
		registry.order = append(registry.order, id)
	}
	return registry, nil
}

// Get looks up a vault by id.
func (r *VaultRegistry) Get(id string) (VaultDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	vault, ok := r.vaults[id]
	return vault, ok
}

// List returns all vaults in file order.
func (r *VaultRegistry) List() []VaultDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]VaultDescriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.vaults[id])
	}
	return out
}
