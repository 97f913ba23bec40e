package services

import (
	"context"
	"sync"
	"time"

	"zap-backend/internal/chainio"
	"zap-backend/internal/config"
	"zap-backend/internal/metrics"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MonitoringService keeps the infrastructure gauges current: database
// connectivity and per-network RPC reachability.
type MonitoringService struct {
	db      *gorm.DB
	readers map[string]*chainio.Reader
	logger  *logrus.Logger
	stopCh  chan struct{}
	wg      sync.WaitGroup

	dbCheckInterval  time.Duration
	rpcCheckInterval time.Duration
}

// NewMonitoringService creates the metrics monitor.
func NewMonitoringService(db *gorm.DB, readers map[string]*chainio.Reader, logger *logrus.Logger) *MonitoringService {
	return &MonitoringService{
		db:               db,
		readers:          readers,
		logger:           logger,
		stopCh:           make(chan struct{}),
		dbCheckInterval:  10 * time.Second,
		rpcCheckInterval: 60 * time.Second,
	}
}

// Start launches the monitoring loops.
func (m *MonitoringService) Start() {
	m.wg.Add(1)
	go m.monitorDatabaseConnection()

	m.wg.Add(1)
	go m.monitorChainRPCs()

	m.logger.Info("Monitoring service started")
}

// Stop shuts the monitoring loops down and waits for them.
func (m *MonitoringService) Stop() {
	close(m.stopCh)
	m.wg.Wait()
	m.logger.Info("Monitoring service stopped")
}

func (m *MonitoringService) monitorDatabaseConnection() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.dbCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.updateDatabaseMetrics()
		}
	}
}

func (m *MonitoringService) updateDatabaseMetrics() {
	sqlDB, err := m.db.DB()
	if err != nil {
		metrics.DBConnectionStatus.Set(0)
		return
	}
	if err := sqlDB.Ping(); err != nil {
		metrics.DBConnectionStatus.Set(0)
		return
	}
	metrics.DBConnectionStatus.Set(1)
}

func (m *MonitoringService) monitorChainRPCs() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.rpcCheckInterval)
	defer ticker.Stop()

	m.updateChainRPCMetrics()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.updateChainRPCMetrics()
		}
	}
}

func (m *MonitoringService) updateChainRPCMetrics() {
	for name, reader := range m.readers {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		chainID, err := reader.ChainID(ctx)
		cancel()

		if err != nil {
			metrics.ChainRPCStatus.WithLabelValues(name).Set(0)
			m.logger.WithField("network", name).WithError(err).Warn("Chain RPC unreachable")
			continue
		}
		metrics.ChainRPCStatus.WithLabelValues(name).Set(1)

		// A wrong chain id behind a configured URL is worse than an outage.
		if net, err := config.AppConfig.Network(name); err == nil && chainID.Uint64() != net.ChainID {
			m.logger.WithFields(logrus.Fields{
				"network":  name,
				"expected": net.ChainID,
				"actual":   chainID.Uint64(),
			}).Error("Chain RPC reports unexpected chain id")
		}
	}
}
