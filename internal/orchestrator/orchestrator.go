package orchestrator

import (
	"context"
	"math/big"
	"time"

	"zap-backend/internal/clients"
	"zap-backend/internal/config"
	"zap-backend/internal/events"
	"zap-backend/internal/metrics"
	"zap-backend/internal/models"
	"zap-backend/internal/utils"
	"zap-backend/internal/wallet"
	"zap-backend/internal/zap"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
)

// WalletRPC is the wallet surface the orchestrators drive.
type WalletRPC interface {
	ChainID(ctx context.Context) (uint64, error)
	SwitchChain(ctx context.Context, chainID uint64, addParams map[string]interface{}) error
	GetCapabilities(ctx context.Context, account common.Address, chainIDs []uint64) (map[uint64]wallet.ChainCapabilities, error)
	SendCalls(ctx context.Context, params wallet.SendCallsParams) (string, error)
	GetCallsStatus(ctx context.Context, batchID string) (*wallet.CallsStatus, error)
}

// ChainReader is the read-only chain surface, one per network.
type ChainReader interface {
	TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error)
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	PreviewRedeem(ctx context.Context, vault common.Address, shares *big.Int) (*big.Int, error)
	TokenManager(ctx context.Context, router common.Address) (common.Address, error)
	WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// AttestationFetcher retrieves bridge attestations for a burn transaction.
type AttestationFetcher interface {
	RetrieveAttestation(ctx context.Context, sourceDomain uint32, txHash string) (*clients.Attestation, error)
}

// Engine wires the builders, clients, and persistence into the deposit and
// withdrawal state machines. One engine serves all networks of the
// configured mode.
type Engine struct {
	cfg         *config.Config
	vaults      *config.VaultRegistry
	wallet      WalletRPC
	readers     map[string]ChainReader
	builder     *zap.OrderBuilder
	attestation AttestationFetcher
	driver      *Driver
	store       *Store
	events      *events.Publisher
	active      *ActiveOperations
	logger      *logrus.Logger
}

// NewEngine assembles an orchestration engine. The readers map is keyed by
// network registry name and must cover every network an operation can
// touch.
func NewEngine(
	cfg *config.Config,
	vaults *config.VaultRegistry,
	walletRPC WalletRPC,
	readers map[string]ChainReader,
	builder *zap.OrderBuilder,
	attestation AttestationFetcher,
	store *Store,
	publisher *events.Publisher,
	logger *logrus.Logger,
) *Engine {
	return &Engine{
		cfg:         cfg,
		vaults:      vaults,
		wallet:      walletRPC,
		readers:     readers,
		builder:     builder,
		attestation: attestation,
		driver:      NewDriver(walletRPC, logger),
		store:       store,
		events:      publisher,
		active:      NewActiveOperations(),
		logger:      logger,
	}
}

// Active exposes the in-flight operation registry, consumed by the wallet
// chain-change monitor and the request handlers.
func (e *Engine) Active() *ActiveOperations {
	return e.active
}

// Operation loads one recorded operation with its legs.
func (e *Engine) Operation(id string) (*models.Operation, error) {
	return e.store.Operation(id)
}

// RequeryAttestation runs one fresh attestation retrieval for a burn
// transaction, an operator tool for diagnosing stuck handoffs.
func (e *Engine) RequeryAttestation(ctx context.Context, network, txHash string) (*clients.Attestation, error) {
	net, err := e.cfg.Network(network)
	if err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}
	txHash = utils.EnsureHexPrefix(txHash)
	if !utils.IsTransactionHash(txHash) {
		return nil, validationErrorf("invalid transaction hash: %s", txHash)
	}
	return e.attestation.RetrieveAttestation(ctx, net.Domain, txHash)
}

func (e *Engine) reader(network string) (ChainReader, error) {
	if r, ok := e.readers[network]; ok {
		return r, nil
	}
	return nil, validationErrorf("no chain reader configured for network %s", network)
}

// transition advances an operation's lifecycle status: persists it,
// publishes the phase event, and logs the step.
func (e *Engine) transition(op *models.Operation, network, status string) {
	op.Status = status
	e.store.SetStatus(op.ID, status)
	e.events.PublishPhase(events.OperationEvent{
		OperationID: op.ID,
		Kind:        op.Kind,
		Network:     network,
		Phase:       status,
		VaultID:     op.VaultID,
	})
	e.logger.WithFields(logrus.Fields{
		"operation_id": op.ID,
		"kind":         op.Kind,
		"network":      network,
		"status":       status,
	}).Info("Operation phase")
}

func (e *Engine) finish(op *models.Operation, network string, started time.Time, err error) {
	elapsed := time.Since(started).Seconds()
	metrics.OperationDuration.WithLabelValues(op.Kind).Observe(elapsed)

	if err != nil {
		metrics.OperationsCompleted.WithLabelValues(op.Kind, "failure").Inc()
		op.Status = models.OperationStatusFailed
		op.ErrorMessage = err.Error()
		e.store.Fail(op.ID, err.Error())
		e.events.PublishPhase(events.OperationEvent{
			OperationID: op.ID,
			Kind:        op.Kind,
			Network:     network,
			Phase:       models.OperationStatusFailed,
			VaultID:     op.VaultID,
			Error:       err.Error(),
		})
		e.logger.WithFields(logrus.Fields{
			"operation_id": op.ID,
			"kind":         op.Kind,
		}).WithError(err).Error("Operation failed")
		return
	}

	metrics.OperationsCompleted.WithLabelValues(op.Kind, "success").Inc()
	e.transition(op, network, models.OperationStatusCompleted)
}

// requireNetwork verifies the wallet sits on the expected chain. The
// orchestrator never silently switches for the first leg; a mismatch means
// the user connected to the wrong network.
func (e *Engine) requireNetwork(ctx context.Context, net *config.NetworkConfig) error {
	chainID, err := e.wallet.ChainID(ctx)
	if err != nil {
		return err
	}
	if chainID != net.ChainID {
		return validationErrorf("wallet is on chain %d, expected %s (chain %d)", chainID, net.Name, net.ChainID)
	}
	return nil
}

// requireAtomic gates submission on wallet_getCapabilities reporting atomic
// batch support for the chain. Without it the batch's all-or-nothing
// guarantee does not hold and nothing may be submitted.
func (e *Engine) requireAtomic(ctx context.Context, account common.Address, net *config.NetworkConfig) error {
	capabilities, err := e.wallet.GetCapabilities(ctx, account, []uint64{net.ChainID})
	if err != nil {
		return err
	}
	entry, ok := capabilities[net.ChainID]
	if !ok || !entry.Atomic {
		return validationErrorf("wallet does not support atomic call batches on %s", net.Name)
	}
	return nil
}

// switchNetwork moves the wallet to net, registering the chain first if the
// wallet does not know it.
func (e *Engine) switchNetwork(ctx context.Context, net *config.NetworkConfig) error {
	return e.wallet.SwitchChain(ctx, net.ChainID, chainAddParams(net))
}

// restoreHomeNetwork switches the wallet back to the configured home
// network. Best effort: the operation's funds are already settled, a stuck
// wallet network is an inconvenience, not a failure.
func (e *Engine) restoreHomeNetwork(ctx context.Context) {
	home, err := e.cfg.HomeNetworkConfig()
	if err != nil {
		return
	}
	if err := e.switchNetwork(ctx, home); err != nil {
		e.logger.WithField("network", home.Name).WithError(err).Warn("Failed to restore home network")
	}
}

// chainAddParams builds the wallet_addEthereumChain payload for a network.
func chainAddParams(net *config.NetworkConfig) map[string]interface{} {
	params := map[string]interface{}{
		"chainId":   hexutil.EncodeUint64(net.ChainID),
		"chainName": net.Name,
		"rpcUrls":   []string{net.RpcURL},
	}
	if net.Explorer != "" {
		params["blockExplorerUrls"] = []string{net.Explorer}
	}
	return params
}

// toWalletCalls hex-encodes builder calls into the wallet wire format.
func toWalletCalls(calls []zap.Call) []wallet.Call {
	out := make([]wallet.Call, 0, len(calls))
	for _, c := range calls {
		entry := wallet.Call{To: c.To.Hex()}
		if len(c.Data) > 0 {
			entry.Data = hexutil.Encode(c.Data)
		}
		if c.Value != nil && c.Value.Sign() > 0 {
			entry.Value = hexutil.EncodeBig(c.Value)
		}
		out = append(out, entry)
	}
	return out
}
