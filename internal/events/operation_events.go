package events

import (
	"fmt"
	"time"

	"zap-backend/internal/clients"
	"zap-backend/internal/metrics"

	"github.com/sirupsen/logrus"
)

// OperationEvent is the payload published on every lifecycle phase change,
// subject zap.<network>.operation.<phase>.
type OperationEvent struct {
	OperationID string    `json:"operation_id"`
	Kind        string    `json:"kind"`
	Network     string    `json:"network"`
	Phase       string    `json:"phase"`
	VaultID     string    `json:"vault_id,omitempty"`
	TxHash      string    `json:"tx_hash,omitempty"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Publisher publishes operation lifecycle events to NATS. A nil Publisher
// (NATS not configured) silently drops events so the orchestrators never
// branch on messaging availability.
type Publisher struct {
	nats   *clients.NATSClient
	logger *logrus.Logger
}

// NewPublisher creates a lifecycle event publisher.
func NewPublisher(nats *clients.NATSClient, logger *logrus.Logger) *Publisher {
	return &Publisher{nats: nats, logger: logger}
}

// PublishPhase publishes one phase transition. Publish failures are logged
// and swallowed: messaging is observability here, never control flow.
func (p *Publisher) PublishPhase(event OperationEvent) {
	if p == nil || p.nats == nil {
		return
	}
	event.Timestamp = time.Now().UTC()
	subject := fmt.Sprintf("zap.%s.operation.%s", event.Network, event.Phase)
	if err := p.nats.Publish(subject, event); err != nil {
		p.logger.WithFields(logrus.Fields{
			"subject":      subject,
			"operation_id": event.OperationID,
		}).WithError(err).Warn("Failed to publish operation event")
		return
	}
	metrics.NATSEventsPublished.WithLabelValues(event.Phase).Inc()
}
