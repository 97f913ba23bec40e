package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"zap-backend/internal/metrics"
	"zap-backend/internal/utils"
	"zap-backend/internal/wallet"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// Call-status polling budget: 60 attempts, 2 seconds apart.
const (
	callsStatusMaxAttempts = 60
	callsStatusInterval    = 2 * time.Second
)

// BatchResult is a submitted batch resolved to a transaction hash.
type BatchResult struct {
	BatchID  string
	TxHash   common.Hash
	Attempts int
}

// Driver submits atomic call batches and resolves the wallet's batch id to
// a transaction hash. Two wallet behaviors are handled: wallets that return
// the transaction hash directly as the batch id, and wallets that hand out
// an opaque id to poll through wallet_getCallsStatus.
type Driver struct {
	wallet WalletRPC
	logger *logrus.Logger
}

// NewDriver creates a batch submission driver.
func NewDriver(walletRPC WalletRPC, logger *logrus.Logger) *Driver {
	return &Driver{wallet: walletRPC, logger: logger}
}

// SubmitAndResolve submits the batch and blocks until a transaction hash is
// known. Receipts are authoritative over the reported status string: a
// receipt carrying a transaction hash resolves the batch even while the
// status still says pending.
func (d *Driver) SubmitAndResolve(ctx context.Context, network, kind string, params wallet.SendCallsParams) (*BatchResult, error) {
	batchID, err := d.wallet.SendCalls(ctx, params)
	if err != nil {
		return nil, err
	}
	metrics.BatchSubmissions.WithLabelValues(network, kind).Inc()
	start := time.Now()

	log := d.logger.WithFields(logrus.Fields{
		"network":  network,
		"kind":     kind,
		"batch_id": batchID,
	})

	if utils.IsTransactionHash(batchID) {
		log.Info("Wallet returned transaction hash directly")
		return &BatchResult{BatchID: batchID, TxHash: common.HexToHash(batchID)}, nil
	}

	var txHash common.Hash
	lastStatus := "unknown"
	attempts, err := utils.Poll(ctx, callsStatusMaxAttempts, callsStatusInterval, func(attempt int) (bool, error) {
		metrics.BatchStatusPolls.Inc()
		status, pollErr := d.wallet.GetCallsStatus(ctx, batchID)
		if pollErr != nil {
			log.WithField("attempt", attempt).WithError(pollErr).Warn("Calls-status poll failed")
			return false, nil
		}
		lastStatus = status.Status
		for _, receipt := range status.Receipts {
			if receipt.TransactionHash != "" {
				txHash = common.HexToHash(receipt.TransactionHash)
				return true, nil
			}
		}
		if status.Status == wallet.CallsStatusFailed {
			return false, fmt.Errorf("batch %s reported failed with no receipt", batchID)
		}
		return false, nil
	})
	if err != nil {
		if errors.Is(err, utils.ErrPollBudgetExhausted) {
			return nil, &TimeoutError{
				Operation: fmt.Sprintf("batch %s resolution", batchID),
				Attempts:  attempts,
				LastState: lastStatus,
			}
		}
		return nil, err
	}

	metrics.BatchResolutionDuration.Observe(time.Since(start).Seconds())
	log.WithFields(logrus.Fields{
		"tx_hash":  txHash.Hex(),
		"attempts": attempts,
	}).Info("Batch resolved to transaction")
	return &BatchResult{BatchID: batchID, TxHash: txHash, Attempts: attempts}, nil
}
