package orchestrator

import (
	"context"
	"testing"

	"zap-backend/internal/wallet"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitAndResolveDirectTransactionHash(t *testing.T) {
	w := &fakeWallet{sendResults: []string{burnTxHash}}
	driver := NewDriver(w, quietLogger())

	result, err := driver.SubmitAndResolve(context.Background(), "base", "bridge", wallet.SendCallsParams{})
	require.NoError(t, err)

	assert.Equal(t, burnTxHash, result.BatchID)
	assert.Equal(t, common.HexToHash(burnTxHash), result.TxHash)
	assert.Zero(t, w.statusCalls, "a direct hash needs no status polling")
}

func TestSubmitAndResolvePollsUntilReceipt(t *testing.T) {
	w := &fakeWallet{
		sendResults: []string{"batch-opaque-1"},
		statuses: []*wallet.CallsStatus{
			{Status: wallet.CallsStatusPending},
			// Receipts are authoritative even while the status string lags.
			{Status: wallet.CallsStatusPending, Receipts: []wallet.CallReceipt{{TransactionHash: zapTxHash}}},
		},
	}
	driver := NewDriver(w, quietLogger())

	result, err := driver.SubmitAndResolve(context.Background(), "base", "zap_deposit", wallet.SendCallsParams{})
	require.NoError(t, err)

	assert.Equal(t, "batch-opaque-1", result.BatchID)
	assert.Equal(t, common.HexToHash(zapTxHash), result.TxHash)
	assert.Equal(t, 2, result.Attempts)
}

func TestSubmitAndResolveFailedWithNoReceiptAborts(t *testing.T) {
	w := &fakeWallet{
		sendResults: []string{"batch-opaque-2"},
		statuses: []*wallet.CallsStatus{
			{Status: wallet.CallsStatusFailed},
		},
	}
	driver := NewDriver(w, quietLogger())

	_, err := driver.SubmitAndResolve(context.Background(), "base", "zap_deposit", wallet.SendCallsParams{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reported failed with no receipt")
	assert.Equal(t, 1, w.statusCalls, "a terminal failure burns no further polls")
}

func TestSubmitAndResolvePollErrorsAreRetried(t *testing.T) {
	w := &fakeWallet{
		sendResults: []string{"batch-opaque-3"},
		statuses: []*wallet.CallsStatus{
			nil, // transport error on the first poll
			{Status: wallet.CallsStatusSuccess, Receipts: []wallet.CallReceipt{{TransactionHash: mintTxHash}}},
		},
	}
	driver := NewDriver(w, quietLogger())

	result, err := driver.SubmitAndResolve(context.Background(), "base", "bridge_mint", wallet.SendCallsParams{})
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash(mintTxHash), result.TxHash)
	assert.Equal(t, 2, result.Attempts)
}
