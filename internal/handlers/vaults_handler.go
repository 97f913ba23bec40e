package handlers

import (
	"net/http"

	"zap-backend/internal/config"

	"github.com/gin-gonic/gin"
)

// vaultView is the wire shape of one registry entry. The kind-specific
// token fields are populated per variant and omitted otherwise.
type vaultView struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Network    string `json:"network"`
	Vault      string `json:"vault"`
	Router     string `json:"router"`
	Underlying string `json:"underlying,omitempty"`
	PairToken  string `json:"pair_token,omitempty"`
	Token0     string `json:"token0,omitempty"`
	Token1     string `json:"token1,omitempty"`
	Stable     *bool  `json:"stable,omitempty"`
}

// VaultsHandler lists the configured vaults.
type VaultsHandler struct {
	registry *config.VaultRegistry
}

// NewVaultsHandler creates the vault listing handler.
func NewVaultsHandler(registry *config.VaultRegistry) *VaultsHandler {
	return &VaultsHandler{registry: registry}
}

// ListVaultsHandler returns every vault in registry order.
// GET /api/vaults
func (h *VaultsHandler) ListVaultsHandler(c *gin.Context) {
	vaults := h.registry.List()
	views := make([]vaultView, 0, len(vaults))
	for _, vault := range vaults {
		vc := vault.Common()
		view := vaultView{
			ID:      vc.ID,
			Kind:    string(vault.Kind()),
			Network: vc.Network,
			Vault:   vc.Vault,
			Router:  vc.Router,
		}
		switch v := vault.(type) {
		case config.SingleAssetVault:
			view.Underlying = v.Underlying
		case config.LPUsdcVault:
			view.PairToken = v.PairToken
			view.Stable = &v.Stable
		case config.LPNonUsdcVault:
			view.Token0 = v.Token0
			view.Token1 = v.Token1
			view.Stable = &v.Stable
		}
		views = append(views, view)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"vaults":  views,
	})
}
