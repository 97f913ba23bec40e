package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"zap-backend/internal/chainio"
	"zap-backend/internal/clients"
	"zap-backend/internal/config"
	"zap-backend/internal/db"
	"zap-backend/internal/events"
	"zap-backend/internal/orchestrator"
	"zap-backend/internal/services"
	"zap-backend/internal/wallet"
	"zap-backend/internal/zap"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ServiceContainer wires the engine's dependencies in startup order.
type ServiceContainer struct {
	DB     *gorm.DB
	Logger *logrus.Logger

	// Clients
	NATSClient        *clients.NATSClient
	SwapClient        *clients.SwapClient
	AttestationClient *clients.AttestationClient
	WalletClient      *wallet.Client

	// Chain readers, one per configured network
	Readers      map[string]orchestrator.ChainReader
	chainReaders map[string]*chainio.Reader

	// Registries
	VaultRegistry *config.VaultRegistry

	// Orchestration
	EventPublisher *events.Publisher
	Engine         *orchestrator.Engine

	// Background services
	MonitoringService *services.MonitoringService

	natsOnce sync.Once
}

// Global service container instance
var Container *ServiceContainer
var containerOnce sync.Once

// InitializeContainer builds the container once. Config must be loaded
// first.
func InitializeContainer(ctx context.Context, logger *logrus.Logger) (*ServiceContainer, error) {
	var initErr error

	containerOnce.Do(func() {
		cfg := config.AppConfig
		if cfg == nil {
			initErr = fmt.Errorf("configuration not loaded")
			return
		}

		container := &ServiceContainer{Logger: logger}

		if err := db.InitDB(); err != nil {
			initErr = fmt.Errorf("failed to initialize database: %w", err)
			return
		}
		container.DB = db.DB

		// NATS is observability only; a failed connection degrades to
		// silent event publishing.
		if err := container.initNATSClient(cfg); err != nil {
			logger.WithError(err).Warn("NATS unavailable, operation events disabled")
		}
		container.EventPublisher = events.NewPublisher(container.NATSClient, logger)

		container.SwapClient = clients.NewSwapClient(
			cfg.Aggregator.BaseURL,
			cfg.Aggregator.ClientID,
			time.Duration(cfg.Aggregator.TimeoutSeconds)*time.Second,
			logger,
		)
		container.AttestationClient = clients.NewAttestationClient(
			cfg.Attestation.BaseURL,
			cfg.Attestation.MaxRetries,
			time.Duration(cfg.Attestation.RetryDelaySeconds)*time.Second,
			logger,
		)

		walletClient, err := wallet.Dial(ctx, cfg.Wallet.RPCURL, logger)
		if err != nil {
			initErr = fmt.Errorf("failed to connect wallet RPC: %w", err)
			return
		}
		container.WalletClient = walletClient

		if err := container.initChainReaders(ctx, cfg); err != nil {
			initErr = err
			return
		}

		registry, err := config.LoadVaultRegistry(cfg.Vaults.RegistryPath)
		if err != nil {
			initErr = fmt.Errorf("failed to load vault registry: %w", err)
			return
		}
		container.VaultRegistry = registry
		for _, vault := range registry.List() {
			if _, err := cfg.Network(vault.Common().Network); err != nil {
				initErr = fmt.Errorf("vault %s references unknown network %s",
					vault.Common().ID, vault.Common().Network)
				return
			}
		}

		builder := zap.NewOrderBuilder(container.SwapClient, cfg.Aggregator.DefaultSlippageBps)
		container.Engine = orchestrator.NewEngine(
			cfg,
			registry,
			container.WalletClient,
			container.Readers,
			builder,
			container.AttestationClient,
			orchestrator.NewStore(container.DB),
			container.EventPublisher,
			logger,
		)

		container.MonitoringService = services.NewMonitoringService(container.DB, container.chainReaders, logger)
		container.MonitoringService.Start()

		Container = container
		logger.WithFields(logrus.Fields{
			"mode":     cfg.Blockchain.Mode,
			"networks": len(cfg.ActiveNetworks()),
			"vaults":   len(registry.List()),
		}).Info("Service container initialized")
	})

	return Container, initErr
}

func (c *ServiceContainer) initNATSClient(cfg *config.Config) error {
	if cfg.NATS.URL == "" {
		return fmt.Errorf("NATS not configured")
	}

	var initErr error
	c.natsOnce.Do(func() {
		natsClient, err := clients.NewNATSClient(
			cfg.NATS.URL,
			time.Duration(cfg.NATS.Timeout)*time.Second,
			time.Duration(cfg.NATS.ReconnectWait)*time.Second,
			cfg.NATS.MaxReconnects,
			c.Logger,
		)
		if err != nil {
			initErr = fmt.Errorf("failed to create NATS client: %w", err)
			return
		}
		c.NATSClient = natsClient
	})
	return initErr
}

// initChainReaders dials one read-only RPC client per configured network.
// Every network is required: an operation can touch any of them.
func (c *ServiceContainer) initChainReaders(ctx context.Context, cfg *config.Config) error {
	c.Readers = make(map[string]orchestrator.ChainReader)
	c.chainReaders = make(map[string]*chainio.Reader)
	for name, net := range cfg.ActiveNetworks() {
		reader, err := chainio.Dial(ctx, net.RpcURL, c.Logger)
		if err != nil {
			return fmt.Errorf("failed to dial %s RPC: %w", name, err)
		}
		c.Readers[name] = reader
		c.chainReaders[name] = reader
		c.Logger.WithFields(logrus.Fields{
			"network":  name,
			"chain_id": net.ChainID,
		}).Info("Chain reader connected")
	}
	return nil
}

// Cleanup releases the container's long-lived connections.
func (c *ServiceContainer) Cleanup() {
	if c.MonitoringService != nil {
		c.MonitoringService.Stop()
	}
	if c.NATSClient != nil {
		c.NATSClient.Close()
	}
}
