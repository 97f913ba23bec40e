package orchestrator

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"zap-backend/internal/clients"
	"zap-backend/internal/config"
	"zap-backend/internal/events"
	"zap-backend/internal/wallet"
	"zap-backend/internal/zap"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

var (
	testUser     = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	baseUSDC     = common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	arbUSDC      = common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831")
	wethAddr     = common.HexToAddress("0x4200000000000000000000000000000000000006")
	vaultAddr    = common.HexToAddress("0x1111111111111111111111111111111111111111")
	routerAddr   = common.HexToAddress("0x2222222222222222222222222222222222222222")
	managerAddr  = common.HexToAddress("0x3333333333333333333333333333333333333333")
	burnTxHash   = "0x" + strings.Repeat("11", 32)
	zapTxHash    = "0x" + strings.Repeat("22", 32)
	mintTxHash   = "0x" + strings.Repeat("33", 32)
	swapRouter   = common.HexToAddress("0x6131B5fae19EA4f9D964eAc0408E4408b66337b5")
	testVaultID  = "base-weth"
	baseChainID  = uint64(8453)
	arbChainID   = uint64(42161)
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakeWallet scripts wallet RPC behavior and records every submission and
// network switch.
type fakeWallet struct {
	mu           sync.Mutex
	chainID      uint64
	switches     []uint64
	switchErr    error
	capabilities map[uint64]wallet.ChainCapabilities
	sendResults  []string
	sent         []wallet.SendCallsParams
	statuses     []*wallet.CallsStatus
	statusCalls  int
}

func (f *fakeWallet) ChainID(context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chainID, nil
}

func (f *fakeWallet) SwitchChain(_ context.Context, chainID uint64, _ map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.switches = append(f.switches, chainID)
	if f.switchErr != nil {
		return f.switchErr
	}
	f.chainID = chainID
	return nil
}

func (f *fakeWallet) GetCapabilities(_ context.Context, _ common.Address, _ []uint64) (map[uint64]wallet.ChainCapabilities, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.capabilities, nil
}

func (f *fakeWallet) SendCalls(_ context.Context, params wallet.SendCallsParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) >= len(f.sendResults) {
		return "", fmt.Errorf("unexpected SendCalls submission %d", len(f.sent)+1)
	}
	f.sent = append(f.sent, params)
	return f.sendResults[len(f.sent)-1], nil
}

// GetCallsStatus replays the scripted statuses in order. A nil entry plays
// back as a transport error.
func (f *fakeWallet) GetCallsStatus(context.Context, string) (*wallet.CallsStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusCalls >= len(f.statuses) {
		return nil, fmt.Errorf("unexpected status poll %d", f.statusCalls+1)
	}
	status := f.statuses[f.statusCalls]
	f.statusCalls++
	if status == nil {
		return nil, fmt.Errorf("wallet rpc unavailable")
	}
	return status, nil
}

// fakeReader answers chain reads from fixed maps, keyed by token only.
type fakeReader struct {
	balances   map[common.Address]*big.Int
	allowances map[common.Address]*big.Int
	redeem     *big.Int
	manager    common.Address
	receipts   uint64
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		balances:   map[common.Address]*big.Int{},
		allowances: map[common.Address]*big.Int{},
		manager:    managerAddr,
		receipts:   types.ReceiptStatusSuccessful,
	}
}

func (f *fakeReader) TokenBalance(_ context.Context, token, _ common.Address) (*big.Int, error) {
	if b, ok := f.balances[token]; ok {
		return new(big.Int).Set(b), nil
	}
	return big.NewInt(0), nil
}

func (f *fakeReader) Allowance(_ context.Context, token, _, _ common.Address) (*big.Int, error) {
	if a, ok := f.allowances[token]; ok {
		return new(big.Int).Set(a), nil
	}
	return big.NewInt(0), nil
}

func (f *fakeReader) PreviewRedeem(_ context.Context, _ common.Address, _ *big.Int) (*big.Int, error) {
	if f.redeem == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(f.redeem), nil
}

func (f *fakeReader) TokenManager(context.Context, common.Address) (common.Address, error) {
	return f.manager, nil
}

func (f *fakeReader) WaitForReceipt(_ context.Context, txHash common.Hash) (*types.Receipt, error) {
	return &types.Receipt{
		Status:      f.receipts,
		TxHash:      txHash,
		BlockNumber: big.NewInt(100),
	}, nil
}

// fakeAttestation hands out one fixed attestation.
type fakeAttestation struct {
	att   *clients.Attestation
	err   error
	calls int
}

func (f *fakeAttestation) RetrieveAttestation(context.Context, uint32, string) (*clients.Attestation, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.att, nil
}

// fakeSwapper answers aggregator calls with canned calldata.
type fakeSwapper struct {
	estimate *big.Int
}

func (f *fakeSwapper) BuildSwap(context.Context, clients.SwapParams) (*clients.SwapCall, error) {
	return &clients.SwapCall{
		Router: swapRouter,
		Data:   append([]byte{0xde, 0xad, 0xbe, 0xef}, make([]byte, 64)...),
		Value:  big.NewInt(0),
	}, nil
}

func (f *fakeSwapper) EstimateSwapOutput(_ context.Context, _ string, _, _ common.Address, amountIn *big.Int) (*big.Int, error) {
	if f.estimate != nil {
		return new(big.Int).Set(f.estimate), nil
	}
	return new(big.Int).Set(amountIn), nil
}

func testConfig() *config.Config {
	return &config.Config{
		Blockchain: config.BlockchainConfig{
			Mode:        "mainnet",
			HomeNetwork: "base",
			Networks: map[string]config.NetworkConfig{
				"base": {
					Name:               "base",
					ChainID:            baseChainID,
					Domain:             6,
					RpcURL:             "https://mainnet.base.org",
					USDC:               baseUSDC.Hex(),
					TokenMessenger:     "0x28b5a0e9C621a5BadaA536219b3a228C8168cf5d",
					MessageTransmitter: "0x81D40F21F12A8F0E3252Bccb954D722d4c464B64",
					AggregatorChainTag: "base",
				},
				"arbitrum": {
					Name:               "arbitrum",
					ChainID:            arbChainID,
					Domain:             3,
					RpcURL:             "https://arb1.arbitrum.io/rpc",
					USDC:               arbUSDC.Hex(),
					TokenMessenger:     "0x28b5a0e9C621a5BadaA536219b3a228C8168cf5d",
					MessageTransmitter: "0x81D40F21F12A8F0E3252Bccb954D722d4c464B64",
					AggregatorChainTag: "arbitrum",
				},
			},
		},
	}
}

func testRegistry(t *testing.T) *config.VaultRegistry {
	t.Helper()
	registryYAML := fmt.Sprintf(`vaults:
  - id: %s
    kind: single-asset
    network: base
    vault: %q
    router: %q
    chain_tag: base
    underlying: %q
`, testVaultID, vaultAddr.Hex(), routerAddr.Hex(), wethAddr.Hex())

	path := filepath.Join(t.TempDir(), "vaults.yaml")
	require.NoError(t, os.WriteFile(path, []byte(registryYAML), 0o600))
	registry, err := config.LoadVaultRegistry(path)
	require.NoError(t, err)
	return registry
}

// testEngine wires an engine against all fakes; persistence and messaging
// stay disabled.
func testEngine(t *testing.T, w *fakeWallet, readers map[string]ChainReader, att AttestationFetcher) *Engine {
	t.Helper()
	logger := quietLogger()
	return NewEngine(
		testConfig(),
		testRegistry(t),
		w,
		readers,
		zap.NewOrderBuilder(&fakeSwapper{}, 50),
		att,
		NewStore(nil),
		events.NewPublisher(nil, logger),
		logger,
	)
}
