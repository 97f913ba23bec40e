package orchestrator

import (
	"context"
	"math/big"
	"time"

	"zap-backend/internal/config"
	"zap-backend/internal/metrics"
	"zap-backend/internal/models"
	"zap-backend/internal/wallet"
	"zap-backend/internal/zap"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
)

// WithdrawalRequest describes one withdrawal: exact vault shares redeemed
// on the vault's network, swapped back to USDC, and optionally bridged to
// another network.
type WithdrawalRequest struct {
	VaultID string
	Shares  *big.Int
	User    common.Address

	// Recipient receives the withdrawn funds; defaults to User.
	Recipient common.Address

	// DestinationNetwork, when set and different from the vault's network,
	// bridges the USDC there instead of leaving it on the vault network.
	DestinationNetwork string

	MaxFee      *big.Int
	MinFinality uint32
}

// ExecuteWithdrawal runs the full withdrawal state machine and blocks until
// the operation settles or fails.
func (e *Engine) ExecuteWithdrawal(ctx context.Context, req WithdrawalRequest) (*models.Operation, error) {
	op, run, err := e.prepareWithdrawal(req)
	if err != nil {
		return nil, err
	}
	return op, run(ctx)
}

// StartWithdrawal validates and registers the withdrawal, then drives the
// state machine in the background.
func (e *Engine) StartWithdrawal(req WithdrawalRequest) (*models.Operation, error) {
	op, run, err := e.prepareWithdrawal(req)
	if err != nil {
		return nil, err
	}
	go func() {
		_ = run(context.Background())
	}()
	return op, nil
}

func (e *Engine) prepareWithdrawal(req WithdrawalRequest) (*models.Operation, func(context.Context) error, error) {
	vault, ok := e.vaults.Get(req.VaultID)
	if !ok {
		return nil, nil, validationErrorf("unknown vault: %s", req.VaultID)
	}
	if req.Shares == nil || req.Shares.Sign() <= 0 {
		return nil, nil, validationErrorf("withdrawal shares must be positive")
	}
	vaultNet, err := e.cfg.Network(vault.Common().Network)
	if err != nil {
		return nil, nil, err
	}
	var destNet *config.NetworkConfig
	if req.DestinationNetwork != "" && req.DestinationNetwork != vault.Common().Network {
		if destNet, err = e.cfg.Network(req.DestinationNetwork); err != nil {
			return nil, nil, &ValidationError{Reason: err.Error()}
		}
	}
	recipient := req.Recipient
	if recipient == (common.Address{}) {
		recipient = req.User
	}

	op := &models.Operation{
		ID:          uuid.NewString(),
		Kind:        models.OperationKindWithdrawal,
		VaultID:     req.VaultID,
		UserAddress: req.User.Hex(),
		Recipient:   recipient.Hex(),
		Amount:      req.Shares.String(),
		Status:      models.OperationStatusPending,
	}

	opCtx, err := e.active.Begin(req.User, op.ID, op.Kind)
	if err != nil {
		return nil, nil, err
	}
	e.store.CreateOperation(op)
	metrics.OperationsStarted.WithLabelValues(op.Kind).Inc()

	finalNet := vaultNet
	if destNet != nil {
		finalNet = destNet
	}
	run := func(ctx context.Context) error {
		defer e.active.End(req.User)
		started := time.Now()
		err := e.runWithdrawal(ctx, opCtx, op, req, vault, vaultNet, destNet, recipient)
		e.finish(op, finalNet.Name, started, err)
		return err
	}
	return op, run, nil
}

func (e *Engine) runWithdrawal(
	ctx context.Context,
	opCtx *OperationContext,
	op *models.Operation,
	req WithdrawalRequest,
	vault config.VaultDescriptor,
	vaultNet, destNet *config.NetworkConfig,
	recipient common.Address,
) error {
	vaultReader, err := e.reader(vaultNet.Name)
	if err != nil {
		return err
	}
	vaultAddr := common.HexToAddress(vault.Common().Vault)
	router := common.HexToAddress(vault.Common().Router)
	bridged := destNet != nil

	e.transition(op, vaultNet.Name, models.OperationStatusNetworkCheck)
	if err := e.requireNetwork(ctx, vaultNet); err != nil {
		return err
	}

	e.transition(op, vaultNet.Name, models.OperationStatusBalanceCheck)
	shareBalance, err := vaultReader.TokenBalance(ctx, vaultAddr, req.User)
	if err != nil {
		return err
	}
	if shareBalance.Cmp(req.Shares) < 0 {
		return validationErrorf("insufficient vault shares: have %s, need %s", shareBalance, req.Shares)
	}

	e.transition(op, vaultNet.Name, models.OperationStatusRouteBuild)
	redeemEstimate, err := vaultReader.PreviewRedeem(ctx, vaultAddr, req.Shares)
	if err != nil {
		return err
	}
	if redeemEstimate.Sign() <= 0 {
		return validationErrorf("vault preview returned zero assets for %s shares", req.Shares)
	}

	// The withdrawal recipient of a bridged leg is the mint recipient on the
	// destination network; on a local withdrawal the router pays out there
	// directly.
	params := zap.WithdrawalOrderParams{
		Vault:          vault,
		Network:        vaultNet,
		Shares:         req.Shares,
		User:           req.User,
		Recipient:      recipient,
		RedeemEstimate: redeemEstimate,
	}
	if bridged {
		burnEstimate, err := e.builder.EstimateWithdrawalUsdc(ctx, vault, vaultNet, redeemEstimate)
		if err != nil {
			return err
		}
		params.Bridge = &zap.WithdrawalBridge{
			TokenMessenger:       common.HexToAddress(vaultNet.TokenMessenger),
			DestinationDomain:    destNet.Domain,
			Recipient:            recipient,
			MaxFee:               req.MaxFee,
			MinFinalityThreshold: req.MinFinality,
			BurnEstimate:         burnEstimate,
		}
	}
	order, route, err := e.builder.BuildWithdrawalOrder(ctx, params)
	if err != nil {
		return err
	}
	execCall, err := zap.EncodeExecuteOrder(router, order, route)
	if err != nil {
		return err
	}

	e.transition(op, vaultNet.Name, models.OperationStatusApprovalCheck)
	manager, err := vaultReader.TokenManager(ctx, router)
	if err != nil {
		return err
	}
	shareAllowance, err := vaultReader.Allowance(ctx, vaultAddr, req.User, manager)
	if err != nil {
		return err
	}
	var calls []zap.Call
	if shareAllowance.Cmp(req.Shares) < 0 {
		approveCall, err := zap.BuildApproveCall(vaultAddr, manager, req.Shares)
		if err != nil {
			return err
		}
		calls = append(calls, approveCall)
	}
	calls = append(calls, execCall)

	e.transition(op, vaultNet.Name, models.OperationStatusCapabilityCheck)
	if err := e.requireAtomic(ctx, req.User, vaultNet); err != nil {
		return err
	}

	e.transition(op, vaultNet.Name, models.OperationStatusSubmitted)
	result, err := e.driver.SubmitAndResolve(ctx, vaultNet.Name, "zap_withdrawal", wallet.SendCallsParams{
		ChainID:        hexutil.EncodeUint64(vaultNet.ChainID),
		From:           req.User.Hex(),
		AtomicRequired: true,
		Calls:          toWalletCalls(calls),
	})
	if err != nil {
		return err
	}

	e.transition(op, vaultNet.Name, models.OperationStatusConfirming)
	receipt, err := vaultReader.WaitForReceipt(ctx, result.TxHash)
	if err != nil {
		return err
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return &RevertError{TxHash: result.TxHash.Hex()}
	}
	e.store.CreateLeg(&models.OperationLeg{
		OperationID: op.ID,
		Network:     vaultNet.Name,
		ChainID:     vaultNet.ChainID,
		BatchID:     result.BatchID,
		TxHash:      result.TxHash.Hex(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		Phase:       "zap_withdrawal",
		Attempts:    result.Attempts,
	})
	if !bridged {
		return nil
	}

	// Shares are burned and the USDC is burned toward the destination; every
	// failure past this point leaves funds mid-journey.
	e.transition(op, vaultNet.Name, models.OperationStatusAttesting)
	att, err := e.attestation.RetrieveAttestation(ctx, vaultNet.Domain, result.TxHash.Hex())
	if err != nil {
		return &HandoffError{Stage: "attestation retrieval", Err: err}
	}
	message, err := hexutil.Decode(att.Message)
	if err != nil {
		return &HandoffError{Stage: "attestation decoding", Err: err}
	}
	attBytes, err := hexutil.Decode(att.Attestation)
	if err != nil {
		return &HandoffError{Stage: "attestation decoding", Err: err}
	}

	e.transition(op, destNet.Name, models.OperationStatusHandoff)
	opCtx.BeginHandoff()
	err = e.switchNetwork(ctx, destNet)
	opCtx.EndHandoff()
	if err != nil {
		return &HandoffError{Stage: "network switch", Err: err}
	}
	defer e.restoreHomeNetwork(ctx)

	destReader, err := e.reader(destNet.Name)
	if err != nil {
		return &HandoffError{Stage: "destination setup", Err: err}
	}
	receiveCall, err := zap.BuildReceiveMessageCall(
		common.HexToAddress(destNet.MessageTransmitter), message, attBytes)
	if err != nil {
		return &HandoffError{Stage: "mint encoding", Err: err}
	}

	e.transition(op, destNet.Name, models.OperationStatusCapabilityCheck)
	if err := e.requireAtomic(ctx, req.User, destNet); err != nil {
		return &HandoffError{Stage: "capability check", Err: err}
	}

	e.transition(op, destNet.Name, models.OperationStatusSubmitted)
	mintResult, err := e.driver.SubmitAndResolve(ctx, destNet.Name, "bridge_mint", wallet.SendCallsParams{
		ChainID:        hexutil.EncodeUint64(destNet.ChainID),
		From:           req.User.Hex(),
		AtomicRequired: true,
		Calls:          toWalletCalls([]zap.Call{receiveCall}),
	})
	if err != nil {
		return &HandoffError{Stage: "mint submission", Err: err}
	}

	e.transition(op, destNet.Name, models.OperationStatusConfirming)
	mintReceipt, err := destReader.WaitForReceipt(ctx, mintResult.TxHash)
	if err != nil {
		return &HandoffError{Stage: "mint confirmation", Err: err}
	}
	if mintReceipt.Status == types.ReceiptStatusFailed {
		return &HandoffError{Stage: "mint execution", Err: &RevertError{TxHash: mintResult.TxHash.Hex()}}
	}
	e.store.CreateLeg(&models.OperationLeg{
		OperationID: op.ID,
		Network:     destNet.Name,
		ChainID:     destNet.ChainID,
		BatchID:     mintResult.BatchID,
		TxHash:      mintResult.TxHash.Hex(),
		BlockNumber: mintReceipt.BlockNumber.Uint64(),
		Phase:       "bridge_mint",
		Attempts:    mintResult.Attempts,
	})
	return nil
}
