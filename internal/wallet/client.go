package wallet

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"
)

// Client talks to the user's wallet over its RPC endpoint: account access,
// chain switching, capability discovery, and atomic call batches. Signing
// stays on the wallet side; this client never sees key material.
type Client struct {
	rpc    *rpc.Client
	logger *logrus.Logger
}

// Dial connects to a wallet RPC endpoint.
func Dial(ctx context.Context, url string, logger *logrus.Logger) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial wallet RPC: %w", err)
	}
	return &Client{rpc: rpcClient, logger: logger}, nil
}

// NewClient wraps an existing RPC client (used by tests).
func NewClient(rpcClient *rpc.Client, logger *logrus.Logger) *Client {
	return &Client{rpc: rpcClient, logger: logger}
}

// RequestAccounts asks the wallet for its connected accounts.
func (c *Client) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	var raw []string
	if err := c.rpc.CallContext(ctx, &raw, "eth_requestAccounts"); err != nil {
		return nil, fmt.Errorf("eth_requestAccounts failed: %w", err)
	}
	accounts := make([]common.Address, 0, len(raw))
	for _, a := range raw {
		accounts = append(accounts, common.HexToAddress(a))
	}
	return accounts, nil
}

// ChainID returns the wallet's currently connected chain id.
func (c *Client) ChainID(ctx context.Context) (uint64, error) {
	var raw hexutil.Uint64
	if err := c.rpc.CallContext(ctx, &raw, "eth_chainId"); err != nil {
		return 0, fmt.Errorf("eth_chainId failed: %w", err)
	}
	return uint64(raw), nil
}

// SwitchChain asks the wallet to switch to chainID, falling back to
// wallet_addEthereumChain when the wallet does not know the chain yet.
func (c *Client) SwitchChain(ctx context.Context, chainID uint64, addParams map[string]interface{}) error {
	param := map[string]string{"chainId": hexutil.EncodeUint64(chainID)}
	err := c.rpc.CallContext(ctx, nil, "wallet_switchEthereumChain", param)
	if err == nil {
		return nil
	}
	if addParams == nil {
		return fmt.Errorf("wallet_switchEthereumChain failed: %w", err)
	}

	c.logger.WithField("chain_id", chainID).WithError(err).Info("Switch failed, adding chain to wallet")
	if addErr := c.rpc.CallContext(ctx, nil, "wallet_addEthereumChain", addParams); addErr != nil {
		return fmt.Errorf("wallet_addEthereumChain failed: %w", addErr)
	}
	if err := c.rpc.CallContext(ctx, nil, "wallet_switchEthereumChain", param); err != nil {
		return fmt.Errorf("wallet_switchEthereumChain failed after add: %w", err)
	}
	return nil
}

// GetCapabilities queries wallet_getCapabilities for account and returns
// the per-chain capability map.
func (c *Client) GetCapabilities(ctx context.Context, account common.Address, chainIDs []uint64) (map[uint64]ChainCapabilities, error) {
	hexIDs := make([]string, 0, len(chainIDs))
	for _, id := range chainIDs {
		hexIDs = append(hexIDs, hexutil.EncodeUint64(id))
	}

	var raw map[string]ChainCapabilities
	if err := c.rpc.CallContext(ctx, &raw, "wallet_getCapabilities", account.Hex(), hexIDs); err != nil {
		return nil, fmt.Errorf("wallet_getCapabilities failed: %w", err)
	}

	capabilities := make(map[uint64]ChainCapabilities, len(raw))
	for key, entry := range raw {
		id, err := hexutil.DecodeUint64(key)
		if err != nil {
			continue
		}
		capabilities[id] = entry
	}
	return capabilities, nil
}

// SendCalls submits an atomic call batch and returns the wallet's batch
// identifier. Some wallets return the transaction hash itself as the id.
func (c *Client) SendCalls(ctx context.Context, params SendCallsParams) (string, error) {
	if params.Version == "" {
		params.Version = "2.0.0"
	}
	var result sendCallsResult
	if err := c.rpc.CallContext(ctx, &result, "wallet_sendCalls", params); err != nil {
		return "", fmt.Errorf("wallet_sendCalls failed: %w", err)
	}
	if result.ID == "" {
		return "", fmt.Errorf("wallet_sendCalls returned empty batch id")
	}
	return result.ID, nil
}

// GetCallsStatus queries the status of a previously submitted batch.
func (c *Client) GetCallsStatus(ctx context.Context, batchID string) (*CallsStatus, error) {
	var status CallsStatus
	if err := c.rpc.CallContext(ctx, &status, "wallet_getCallsStatus", batchID); err != nil {
		return nil, fmt.Errorf("wallet_getCallsStatus failed: %w", err)
	}
	return &status, nil
}
