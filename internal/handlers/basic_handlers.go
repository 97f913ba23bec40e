package handlers

import (
	"net/http"

	"zap-backend/internal/config"

	"github.com/gin-gonic/gin"
)

// HealthCheckHandler reports service liveness.
// GET /api/health
func HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "zap-backend",
	})
}

// NetworksHandler lists the networks of the configured mode: chain ids,
// explorers, and the USDC address per network. Read-only registry data for
// frontends building network pickers.
// GET /api/networks
func NetworksHandler(c *gin.Context) {
	type networkEntry struct {
		Name     string `json:"name"`
		ChainID  uint64 `json:"chain_id"`
		Domain   uint32 `json:"domain"`
		Explorer string `json:"explorer,omitempty"`
		USDC     string `json:"usdc"`
	}

	networks := make([]networkEntry, 0)
	for name, net := range config.AppConfig.ActiveNetworks() {
		networks = append(networks, networkEntry{
			Name:     name,
			ChainID:  net.ChainID,
			Domain:   net.Domain,
			Explorer: net.Explorer,
			USDC:     net.USDC,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"mode":         config.AppConfig.Blockchain.Mode,
		"home_network": config.AppConfig.Blockchain.HomeNetwork,
		"networks":     networks,
	})
}
