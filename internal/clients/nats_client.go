package clients

import (
	"encoding/json"
	"fmt"
	"time"

	"zap-backend/internal/metrics"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// NATSClient publishes operation lifecycle events. Subscribers (dashboards,
// alerting) are external; this side only publishes.
type NATSClient struct {
	conn   *nats.Conn
	logger *logrus.Logger
}

// NewNATSClient creates a new NATS client
func NewNATSClient(url string, timeout time.Duration, reconnectWait time.Duration, maxReconnects int, logger *logrus.Logger) (*NATSClient, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if reconnectWait <= 0 {
		reconnectWait = 5 * time.Second
	}

	conn, err := nats.Connect(url,
		nats.Timeout(timeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.WithError(err).Warn("NATS connection lost")
			metrics.NATSConnectionStatus.Set(0)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected")
			metrics.NATSConnectionStatus.Set(1)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	metrics.NATSConnectionStatus.Set(1)

	return &NATSClient{conn: conn, logger: logger}, nil
}

// Publish marshals payload as JSON and publishes it on subject.
func (c *NATSClient) Publish(subject string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}
	if err := c.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// Close drains and closes the connection.
func (c *NATSClient) Close() {
	if c.conn != nil {
		if err := c.conn.Drain(); err != nil {
			c.logger.WithError(err).Warn("NATS drain failed")
		}
	}
}
