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

// DepositRequest describes one deposit: USDC on the source network bridged
// to the vault's network and zapped into the vault.
type DepositRequest struct {
	VaultID       string
	SourceNetwork string
	Amount        *big.Int
	User          common.Address

	// Recipient receives the vault shares; defaults to User.
	Recipient common.Address

	// MaxFee and MinFinality tune the bridge leg; zero values take the
	// builder defaults.
	MaxFee      *big.Int
	MinFinality uint32
}

// ExecuteDeposit runs the full deposit state machine and blocks until the
// operation settles or fails. When source and vault network coincide the
// bridge leg is skipped and the zap runs directly.
func (e *Engine) ExecuteDeposit(ctx context.Context, req DepositRequest) (*models.Operation, error) {
	op, run, err := e.prepareDeposit(req)
	if err != nil {
		return nil, err
	}
	return op, run(ctx)
}

// StartDeposit validates and registers the deposit, then drives the state
// machine in the background. The returned operation is in its pending
// state; progress is tracked through the operation record and events.
func (e *Engine) StartDeposit(req DepositRequest) (*models.Operation, error) {
	op, run, err := e.prepareDeposit(req)
	if err != nil {
		return nil, err
	}
	go func() {
		_ = run(context.Background())
	}()
	return op, nil
}

func (e *Engine) prepareDeposit(req DepositRequest) (*models.Operation, func(context.Context) error, error) {
	vault, ok := e.vaults.Get(req.VaultID)
	if !ok {
		return nil, nil, validationErrorf("unknown vault: %s", req.VaultID)
	}
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return nil, nil, validationErrorf("deposit amount must be positive")
	}
	srcNet, err := e.cfg.Network(req.SourceNetwork)
	if err != nil {
		return nil, nil, &ValidationError{Reason: err.Error()}
	}
	destNet, err := e.cfg.Network(vault.Common().Network)
	if err != nil {
		return nil, nil, err
	}
	recipient := req.Recipient
	if recipient == (common.Address{}) {
		recipient = req.User
	}

	op := &models.Operation{
		ID:          uuid.NewString(),
		Kind:        models.OperationKindDeposit,
		VaultID:     req.VaultID,
		UserAddress: req.User.Hex(),
		Recipient:   recipient.Hex(),
		Amount:      req.Amount.String(),
		Status:      models.OperationStatusPending,
	}

	opCtx, err := e.active.Begin(req.User, op.ID, op.Kind)
	if err != nil {
		return nil, nil, err
	}
	e.store.CreateOperation(op)
	metrics.OperationsStarted.WithLabelValues(op.Kind).Inc()

	run := func(ctx context.Context) error {
		defer e.active.End(req.User)
		started := time.Now()
		err := e.runDeposit(ctx, opCtx, op, req, vault, srcNet, destNet, recipient)
		e.finish(op, destNet.Name, started, err)
		return err
	}
	return op, run, nil
}

func (e *Engine) runDeposit(
	ctx context.Context,
	opCtx *OperationContext,
	op *models.Operation,
	req DepositRequest,
	vault config.VaultDescriptor,
	srcNet, destNet *config.NetworkConfig,
	recipient common.Address,
) error {
	bridged := srcNet.ChainID != destNet.ChainID

	var attestation struct {
		message     []byte
		attestation []byte
	}

	if bridged {
		srcReader, err := e.reader(srcNet.Name)
		if err != nil {
			return err
		}
		usdc := common.HexToAddress(srcNet.USDC)

		e.transition(op, srcNet.Name, models.OperationStatusNetworkCheck)
		if err := e.requireNetwork(ctx, srcNet); err != nil {
			return err
		}

		e.transition(op, srcNet.Name, models.OperationStatusBalanceCheck)
		balance, err := srcReader.TokenBalance(ctx, usdc, req.User)
		if err != nil {
			return err
		}
		if balance.Cmp(req.Amount) < 0 {
			return validationErrorf("insufficient USDC balance on %s: have %s, need %s",
				srcNet.Name, balance, req.Amount)
		}

		e.transition(op, srcNet.Name, models.OperationStatusRouteBuild)
		approve, burn, err := zap.BuildBridgeCalls(zap.BridgeParams{
			BurnToken:            usdc,
			TokenMessenger:       common.HexToAddress(srcNet.TokenMessenger),
			DestinationDomain:    destNet.Domain,
			Amount:               req.Amount,
			Recipient:            req.User,
			MaxFee:               req.MaxFee,
			MinFinalityThreshold: req.MinFinality,
		})
		if err != nil {
			return err
		}

		e.transition(op, srcNet.Name, models.OperationStatusCapabilityCheck)
		if err := e.requireAtomic(ctx, req.User, srcNet); err != nil {
			return err
		}

		e.transition(op, srcNet.Name, models.OperationStatusSubmitted)
		result, err := e.driver.SubmitAndResolve(ctx, srcNet.Name, "bridge", wallet.SendCallsParams{
			ChainID:        hexutil.EncodeUint64(srcNet.ChainID),
			From:           req.User.Hex(),
			AtomicRequired: true,
			Calls:          toWalletCalls([]zap.Call{approve, burn}),
		})
		if err != nil {
			return err
		}

		e.transition(op, srcNet.Name, models.OperationStatusConfirming)
		receipt, err := srcReader.WaitForReceipt(ctx, result.TxHash)
		if err != nil {
			return err
		}
		if receipt.Status == types.ReceiptStatusFailed {
			return &RevertError{TxHash: result.TxHash.Hex()}
		}
		e.store.CreateLeg(&models.OperationLeg{
			OperationID: op.ID,
			Network:     srcNet.Name,
			ChainID:     srcNet.ChainID,
			BatchID:     result.BatchID,
			TxHash:      result.TxHash.Hex(),
			BlockNumber: receipt.BlockNumber.Uint64(),
			Phase:       "bridge_burn",
			Attempts:    result.Attempts,
		})

		// Funds are burned; from here on a failure strands them short of the
		// vault and every error is wrapped as a handoff failure.
		e.transition(op, srcNet.Name, models.OperationStatusAttesting)
		att, err := e.attestation.RetrieveAttestation(ctx, srcNet.Domain, result.TxHash.Hex())
		if err != nil {
			return &HandoffError{Stage: "attestation retrieval", Err: err}
		}
		if attestation.message, err = hexutil.Decode(att.Message); err != nil {
			return &HandoffError{Stage: "attestation decoding", Err: err}
		}
		if attestation.attestation, err = hexutil.Decode(att.Attestation); err != nil {
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
	} else {
		e.transition(op, destNet.Name, models.OperationStatusNetworkCheck)
		if err := e.requireNetwork(ctx, destNet); err != nil {
			return err
		}
	}

	destReader, err := e.reader(destNet.Name)
	if err != nil {
		return err
	}
	usdc := common.HexToAddress(destNet.USDC)
	router := common.HexToAddress(vault.Common().Router)

	if !bridged {
		e.transition(op, destNet.Name, models.OperationStatusBalanceCheck)
		balance, err := destReader.TokenBalance(ctx, usdc, req.User)
		if err != nil {
			return err
		}
		if balance.Cmp(req.Amount) < 0 {
			return validationErrorf("insufficient USDC balance on %s: have %s, need %s",
				destNet.Name, balance, req.Amount)
		}
	}

	e.transition(op, destNet.Name, models.OperationStatusRouteBuild)
	order, route, err := e.builder.BuildDepositOrder(ctx, zap.DepositOrderParams{
		Vault:     vault,
		Network:   destNet,
		Amount:    req.Amount,
		User:      req.User,
		Recipient: recipient,
	})
	if err != nil {
		return e.handoffWrap(bridged, "route build", err)
	}
	execCall, err := zap.EncodeExecuteOrder(router, order, route)
	if err != nil {
		return e.handoffWrap(bridged, "order encoding", err)
	}

	var calls []zap.Call
	if bridged {
		receiveCall, err := zap.BuildReceiveMessageCall(
			common.HexToAddress(destNet.MessageTransmitter),
			attestation.message, attestation.attestation)
		if err != nil {
			return &HandoffError{Stage: "mint encoding", Err: err}
		}
		calls = append(calls, receiveCall)
	}

	e.transition(op, destNet.Name, models.OperationStatusApprovalCheck)
	manager, err := destReader.TokenManager(ctx, router)
	if err != nil {
		return e.handoffWrap(bridged, "token manager lookup", err)
	}
	allowance, err := destReader.Allowance(ctx, usdc, req.User, manager)
	if err != nil {
		return e.handoffWrap(bridged, "allowance check", err)
	}
	if allowance.Cmp(req.Amount) < 0 {
		approveCall, err := zap.BuildApproveCall(usdc, manager, req.Amount)
		if err != nil {
			return e.handoffWrap(bridged, "approval encoding", err)
		}
		calls = append(calls, approveCall)
	}
	calls = append(calls, execCall)

	e.transition(op, destNet.Name, models.OperationStatusCapabilityCheck)
	if err := e.requireAtomic(ctx, req.User, destNet); err != nil {
		return e.handoffWrap(bridged, "capability check", err)
	}

	e.transition(op, destNet.Name, models.OperationStatusSubmitted)
	result, err := e.driver.SubmitAndResolve(ctx, destNet.Name, "zap_deposit", wallet.SendCallsParams{
		ChainID:        hexutil.EncodeUint64(destNet.ChainID),
		From:           req.User.Hex(),
		AtomicRequired: true,
		Calls:          toWalletCalls(calls),
	})
	if err != nil {
		return e.handoffWrap(bridged, "zap submission", err)
	}

	e.transition(op, destNet.Name, models.OperationStatusConfirming)
	receipt, err := destReader.WaitForReceipt(ctx, result.TxHash)
	if err != nil {
		return e.handoffWrap(bridged, "zap confirmation", err)
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return e.handoffWrap(bridged, "zap execution", &RevertError{TxHash: result.TxHash.Hex()})
	}
	e.store.CreateLeg(&models.OperationLeg{
		OperationID: op.ID,
		Network:     destNet.Name,
		ChainID:     destNet.ChainID,
		BatchID:     result.BatchID,
		TxHash:      result.TxHash.Hex(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		Phase:       "zap_deposit",
		Attempts:    result.Attempts,
	})
	return nil
}

// handoffWrap wraps err as a handoff failure when an earlier bridge leg has
// already settled, so the caller sees that funds are mid-journey.
func (e *Engine) handoffWrap(bridged bool, stage string, err error) error {
	if !bridged {
		return err
	}
	return &HandoffError{Stage: stage, Err: err}
}
