package chainio

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"zap-backend/internal/zap"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
)

// receiptPollInterval between receipt lookups while waiting for a mined
// transaction. No independent timeout is layered here; the caller bounds
// the wait through its context.
const receiptPollInterval = 2 * time.Second

// Reader performs the read-only chain queries the orchestrators need:
// balances, allowances, the router's token manager, and redeem previews.
type Reader struct {
	client *ethclient.Client
	logger *logrus.Logger
}

// Dial connects a reader to an RPC endpoint.
func Dial(ctx context.Context, rpcURL string, logger *logrus.Logger) (*Reader, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial chain RPC: %w", err)
	}
	return &Reader{client: client, logger: logger}, nil
}

// NewReader wraps an existing ethclient.
func NewReader(client *ethclient.Client, logger *logrus.Logger) *Reader {
	return &Reader{client: client, logger: logger}
}

// ChainID returns the connected chain's id.
func (r *Reader) ChainID(ctx context.Context) (*big.Int, error) {
	return r.client.ChainID(ctx)
}

// TokenBalance reads balanceOf(owner) on token.
func (r *Reader) TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	return r.callForBigInt(ctx, token, zap.ERC20ABI(), "balanceOf", owner)
}

// Allowance reads allowance(owner, spender) on token.
func (r *Reader) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	return r.callForBigInt(ctx, token, zap.ERC20ABI(), "allowance", owner, spender)
}

// PreviewRedeem reads previewRedeem(shares) on an ERC-4626 vault.
func (r *Reader) PreviewRedeem(ctx context.Context, vault common.Address, shares *big.Int) (*big.Int, error) {
	return r.callForBigInt(ctx, vault, zap.VaultABI(), "previewRedeem", shares)
}

// TokenManager reads the vault router's internal token manager address,
// the spender user approvals must target.
func (r *Reader) TokenManager(ctx context.Context, router common.Address) (common.Address, error) {
	routerABI := zap.VaultRouterABI()
	data, err := routerABI.Pack("tokenManager")
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to encode tokenManager: %w", err)
	}
	output, err := r.client.CallContract(ctx, ethereum.CallMsg{To: &router, Data: data}, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("tokenManager call failed: %w", err)
	}
	results, err := routerABI.Unpack("tokenManager", output)
	if err != nil || len(results) == 0 {
		return common.Address{}, fmt.Errorf("failed to decode tokenManager result: %w", err)
	}
	manager, ok := results[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("tokenManager returned unexpected type %T", results[0])
	}
	return manager, nil
}

// WaitForReceipt blocks until txHash is mined and returns its receipt.
func (r *Reader) WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	for {
		receipt, err := r.client.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("failed to query receipt for %s: %w", txHash.Hex(), err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(receiptPollInterval):
		}
	}
}

func (r *Reader) callForBigInt(ctx context.Context, target common.Address, contractABI abi.ABI, method string, args ...interface{}) (*big.Int, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", method, err)
	}
	output, err := r.client.CallContract(ctx, ethereum.CallMsg{To: &target, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}
	results, err := contractABI.Unpack(method, output)
	if err != nil || len(results) == 0 {
		return nil, fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	value, ok := results[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s returned unexpected type %T", method, results[0])
	}
	return value, nil
}
