package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"zap-backend/internal/metrics"
	"zap-backend/internal/utils"

	"github.com/sirupsen/logrus"
)

// Attestation message status values reported by the service.
const (
	attestationStatusComplete = "complete"
	attestationStatusPending  = "pending_confirmations"
)

// Attestation is the signed proof of a burn event, consumed by the
// destination chain's mint call. Both fields are 0x-prefixed hex. Fetched
// once per bridge leg and never cached beyond that leg's lifetime.
type Attestation struct {
	Message     string `json:"message"`
	Attestation string `json:"attestation"`
}

// AttestationClient polls the external attestation service for a bridge
// message's signed proof. The polling loop is blocking: the caller is
// suspended for up to maxRetries x retryDelay (five minutes by default).
type AttestationClient struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
	logger     *logrus.Logger
}

// NewAttestationClient creates a new attestation service client
func NewAttestationClient(baseURL string, maxRetries int, retryDelay time.Duration, logger *logrus.Logger) *AttestationClient {
	if maxRetries <= 0 {
		maxRetries = 60
	}
	if retryDelay <= 0 {
		retryDelay = 5 * time.Second
	}
	return &AttestationClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

// messagesResponse mirrors GET /v2/messages/{domain}
type messagesResponse struct {
	Messages []struct {
		Status      string `json:"status"`
		Message     string `json:"message"`
		Attestation string `json:"attestation"`
	} `json:"messages"`
}

// RetrieveAttestation polls for the attestation of the burn recorded in
// txHash on sourceDomain. Response classification per attempt:
//   - 404: message not yet indexed, keep polling
//   - other non-2xx, network error, malformed body: transient, keep polling
//   - status complete with message and attestation present: done
//   - status pending: keep polling
//   - any other status: abort immediately
//
// Exhausting the budget returns a timeout error naming the attempt count.
func (c *AttestationClient) RetrieveAttestation(ctx context.Context, sourceDomain uint32, txHash string) (*Attestation, error) {
	reqURL := fmt.Sprintf("%s/v2/messages/%d?transactionHash=%s", c.baseURL, sourceDomain, txHash)
	start := time.Now()

	var result *Attestation
	var lastState string

	attempts, err := utils.Poll(ctx, c.maxRetries, c.retryDelay, func(attempt int) (bool, error) {
		metrics.AttestationPolls.Inc()

		attestation, state, err := c.fetchOnce(ctx, reqURL)
		lastState = state
		if err != nil {
			// Transient: network failure, non-2xx, malformed body. Burn
			// the attempt and keep polling.
			c.logger.WithFields(logrus.Fields{
				"attempt": attempt,
				"domain":  sourceDomain,
				"tx_hash": txHash,
			}).WithError(err).Warn("Attestation poll attempt failed")
			return false, nil
		}

		switch state {
		case attestationStatusComplete:
			result = attestation
			return true, nil
		case attestationStatusPending, "pending", "not_found":
			c.logger.WithFields(logrus.Fields{
				"attempt": attempt,
				"domain":  sourceDomain,
				"state":   state,
			}).Debug("Attestation not ready yet")
			return false, nil
		default:
			return false, fmt.Errorf("unexpected attestation status %q for tx %s", state, txHash)
		}
	})

	if err != nil {
		if errors.Is(err, utils.ErrPollBudgetExhausted) {
			metrics.AttestationFailures.WithLabelValues("timeout").Inc()
			return nil, fmt.Errorf("attestation for tx %s not available after %d attempts (last state: %s)", txHash, attempts, lastState)
		}
		metrics.AttestationFailures.WithLabelValues("terminal").Inc()
		return nil, err
	}

	metrics.AttestationRetrievalDuration.Observe(time.Since(start).Seconds())
	c.logger.WithFields(logrus.Fields{
		"domain":   sourceDomain,
		"tx_hash":  txHash,
		"attempts": attempts,
	}).Info("Retrieved bridge attestation")

	return result, nil
}

// fetchOnce performs one GET and classifies the response. The returned
// state is "not_found" for 404, otherwise the service-reported status.
func (c *AttestationClient) fetchOnce(ctx context.Context, reqURL string) (*Attestation, string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create attestation request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("attestation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, "not_found", nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read attestation response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("attestation service returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed messagesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, "", fmt.Errorf("failed to parse attestation response: %w", err)
	}
	if len(parsed.Messages) == 0 {
		return nil, "", fmt.Errorf("attestation response has no messages")
	}

	msg := parsed.Messages[0]
	if msg.Status == attestationStatusComplete {
		if msg.Message == "" || msg.Attestation == "" {
			return nil, "", fmt.Errorf("complete attestation is missing message or attestation payload")
		}
		return &Attestation{
			Message:     utils.EnsureHexPrefix(msg.Message),
			Attestation: utils.EnsureHexPrefix(msg.Attestation),
		}, attestationStatusComplete, nil
	}
	return nil, msg.Status, nil
}
