package router

import (
	"net/http"
	"os"
	"strconv"
	"strings"

	"zap-backend/internal/config"
	"zap-backend/internal/handlers"
	"zap-backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// corsMiddleware CORS middleware.
// Priority: Environment Variable > YAML Config > Default (*)
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowedOrigins := []string{"*"}
		allowCredentials := true
		maxAge := 3600

		if envOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); envOrigins != "" {
			origins := strings.Split(envOrigins, ",")
			allowedOrigins = make([]string, 0, len(origins))
			for _, o := range origins {
				if trimmed := strings.TrimSpace(o); trimmed != "" {
					allowedOrigins = append(allowedOrigins, trimmed)
				}
			}
		} else if config.AppConfig != nil && len(config.AppConfig.CORS.AllowedOrigins) > 0 {
			allowedOrigins = config.AppConfig.CORS.AllowedOrigins
			allowCredentials = config.AppConfig.CORS.AllowCredentials
			if config.AppConfig.CORS.MaxAge > 0 {
				maxAge = config.AppConfig.CORS.MaxAge
			}
		}

		if len(allowedOrigins) == 1 && allowedOrigins[0] == "*" {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			for _, allowed := range allowedOrigins {
				if strings.TrimSpace(allowed) == origin {
					c.Header("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, Cache-Control, Accept")
		if allowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}
		c.Header("Access-Control-Max-Age", strconv.Itoa(maxAge))

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// SetupRouter builds the HTTP surface: health, metrics, the zap API, and
// the IP-restricted admin endpoints.
func SetupRouter(
	zapHandler *handlers.ZapHandler,
	vaultsHandler *handlers.VaultsHandler,
	adminAuthHandler *handlers.AdminAuthHandler,
	adminZapHandler *handlers.AdminZapHandler,
	logger *logrus.Logger,
) *gin.Engine {
	r := gin.Default()

	r.Use(corsMiddleware())

	var allowedIPs []string
	if config.AppConfig != nil {
		allowedIPs = config.AppConfig.Admin.AllowedIPs
	}
	localhostOnly := middleware.NewLocalhostOnly(logger, allowedIPs)
	adminAuth := middleware.NewAdminAuthMiddleware(logger)

	// ============ Check ============
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// ============ Health Check ============
	r.GET("/health", handlers.HealthCheckHandler)
	r.GET("/api/health", handlers.HealthCheckHandler)

	// ============ Prometheus Metrics ============
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ============ API Routes ============
	api := r.Group("/api")
	{
		api.GET("/networks", handlers.NetworksHandler)
		api.GET("/vaults", vaultsHandler.ListVaultsHandler)

		zapGroup := api.Group("/zap")
		{
			zapGroup.POST("/deposit", zapHandler.DepositHandler)
			zapGroup.POST("/withdraw", zapHandler.WithdrawHandler)
			zapGroup.GET("/operations/:id", zapHandler.GetOperationHandler)
		}

		admin := api.Group("/admin", localhostOnly.Restrict())
		{
			admin.POST("/login", adminAuthHandler.AdminLoginHandler)
			admin.POST("/attestation/requery", adminAuth.RequireAdminAuth(), adminZapHandler.AttestationRequeryHandler)
		}
	}

	// ============ NoRoute handler for 404 ============
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"message":    "Endpoint not found",
			"path":       c.Request.URL.Path,
			"suggestion": "Check /api endpoints for available APIs",
		})
	})

	return r
}
