package orchestrator

import (
	"context"
	"testing"

	"zap-backend/internal/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActiveOperationsSerializesPerUser(t *testing.T) {
	active := NewActiveOperations()
	otherUser := common.HexToAddress("0x00000000000000000000000000000000000000bb")

	first, err := active.Begin(testUser, "op-1", models.OperationKindDeposit)
	require.NoError(t, err)
	assert.Equal(t, "op-1", first.ID)

	_, err = active.Begin(testUser, "op-2", models.OperationKindWithdrawal)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "op-1")

	// A different user is not blocked.
	_, err = active.Begin(otherUser, "op-3", models.OperationKindDeposit)
	require.NoError(t, err)

	active.End(testUser)
	_, err = active.Begin(testUser, "op-4", models.OperationKindDeposit)
	require.NoError(t, err)
}

func TestActiveOperationsGet(t *testing.T) {
	active := NewActiveOperations()
	assert.Nil(t, active.Get(testUser))

	opCtx, err := active.Begin(testUser, "op-1", models.OperationKindDeposit)
	require.NoError(t, err)
	assert.Same(t, opCtx, active.Get(testUser))

	active.End(testUser)
	assert.Nil(t, active.Get(testUser))
}

func TestExpectsNetworkChangeIsScopedToHandoff(t *testing.T) {
	active := NewActiveOperations()
	opCtx, err := active.Begin(testUser, "op-1", models.OperationKindDeposit)
	require.NoError(t, err)

	assert.False(t, active.ExpectsNetworkChange(), "an in-flight operation alone expects nothing")

	opCtx.BeginHandoff()
	assert.True(t, opCtx.HandoffPending())
	assert.True(t, active.ExpectsNetworkChange())

	opCtx.EndHandoff()
	assert.False(t, active.ExpectsNetworkChange())
}

func TestRequeryAttestationValidatesInput(t *testing.T) {
	engine := testEngine(t, &fakeWallet{}, nil, &fakeAttestation{})

	_, err := engine.RequeryAttestation(context.Background(), "solana", burnTxHash)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = engine.RequeryAttestation(context.Background(), "base", "0x1234")
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "invalid transaction hash")
}

func TestRequeryAttestationNormalizesHash(t *testing.T) {
	att := &fakeAttestation{att: nil}
	engine := testEngine(t, &fakeWallet{}, nil, att)

	// A bare hash without the 0x prefix is accepted and normalized.
	_, err := engine.RequeryAttestation(context.Background(), "base", burnTxHash[2:])
	require.NoError(t, err)
	assert.Equal(t, 1, att.calls)
}
