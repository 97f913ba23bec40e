package zap

import (
	"context"
	"fmt"
	"math/big"

	"zap-backend/internal/clients"
	"zap-backend/internal/config"

	"github.com/ethereum/go-ethereum/common"
)

// SwapQuoter is the aggregator surface the builder consumes.
type SwapQuoter interface {
	BuildSwap(ctx context.Context, p clients.SwapParams) (*clients.SwapCall, error)
	EstimateSwapOutput(ctx context.Context, chainTag string, tokenIn, tokenOut common.Address, amountIn *big.Int) (*big.Int, error)
}

// OrderBuilder assembles ZapOrder + route pairs for the deposit and
// withdrawal flows. It is a pure assembler: every error it returns
// originates in the swap aggregator or in invalid inputs.
type OrderBuilder struct {
	swap        SwapQuoter
	slippageBps int
}

// NewOrderBuilder creates an order builder using the given aggregator.
func NewOrderBuilder(swap SwapQuoter, slippageBps int) *OrderBuilder {
	if slippageBps <= 0 {
		slippageBps = 50
	}
	return &OrderBuilder{swap: swap, slippageBps: slippageBps}
}

// DepositOrderParams describes the destination-chain half of a deposit:
// bridged funds landing as the network's USDC, zapped into a vault.
type DepositOrderParams struct {
	Vault     config.VaultDescriptor
	Network   *config.NetworkConfig
	Amount    *big.Int
	User      common.Address
	Recipient common.Address
}

// BuildDepositOrder builds the swap-then-deposit route. The deposit call's
// assets argument is encoded as zero and patched at execution time with the
// router's live balance of the deposit token: the swap's exact output is
// unknown until it runs, so one atomic transaction chains "swap then
// deposit whatever came out".
func (b *OrderBuilder) BuildDepositOrder(ctx context.Context, p DepositOrderParams) (ZapOrder, []RouteStep, error) {
	if p.Amount == nil || p.Amount.Sign() <= 0 {
		return ZapOrder{}, nil, fmt.Errorf("deposit amount must be positive, got %v", p.Amount)
	}

	usdc := common.HexToAddress(p.Network.USDC)
	vc := p.Vault.Common()
	router := common.HexToAddress(vc.Router)
	vaultAddr := common.HexToAddress(vc.Vault)

	swaps, depositToken, err := depositSwapPlan(p.Vault, usdc, p.Amount)
	if err != nil {
		return ZapOrder{}, nil, err
	}

	var route []RouteStep
	sweepTokens := []common.Address{usdc}

	for _, plan := range swaps {
		swapCall, err := b.swap.BuildSwap(ctx, clients.SwapParams{
			ChainTag:    vc.ChainTag,
			TokenIn:     usdc,
			TokenOut:    plan.tokenOut,
			AmountIn:    plan.amountIn,
			Executor:    router,
			SlippageBps: b.slippageBps,
		})
		if err != nil {
			return ZapOrder{}, nil, fmt.Errorf("failed to build deposit swap: %w", err)
		}
		step, err := NewRouteStep(swapCall.Router, swapCall.Value, swapCall.Data,
			TokenPatch{Token: usdc, Offset: ApprovalPatchOffset})
		if err != nil {
			return ZapOrder{}, nil, err
		}
		route = append(route, step)
		sweepTokens = appendToken(sweepTokens, plan.tokenOut)
	}

	depositCall, err := BuildVaultDepositCall(vaultAddr, big.NewInt(0), p.Recipient)
	if err != nil {
		return ZapOrder{}, nil, err
	}
	depositStep, err := NewRouteStep(depositCall.To, depositCall.Value, depositCall.Data,
		TokenPatch{Token: depositToken, Offset: DepositAssetsArgOffset})
	if err != nil {
		return ZapOrder{}, nil, err
	}
	route = append(route, depositStep)
	sweepTokens = appendToken(sweepTokens, depositToken)

	order := ZapOrder{
		User:      p.User,
		Recipient: p.Recipient,
		Inputs:    []TokenAmount{{Token: usdc, Amount: p.Amount}},
		Outputs:   sweepOutputs(sweepTokens),
		Relay:     ZeroRelay(),
	}
	return order, route, nil
}

// WithdrawalOrderParams describes a withdrawal: redeem exact shares, swap
// the vault's output back to USDC, and optionally burn the USDC toward a
// recipient on another chain.
type WithdrawalOrderParams struct {
	Vault     config.VaultDescriptor
	Network   *config.NetworkConfig
	Shares    *big.Int
	User      common.Address
	Recipient common.Address

	// RedeemEstimate is previewRedeem(shares): the expected amount of the
	// vault's output token, pre-margin. The swap input applies the safety
	// margin to it.
	RedeemEstimate *big.Int

	// Bridge, when non-nil, appends the approval + burn pair for a
	// recipient on another chain.
	Bridge *WithdrawalBridge
}

// WithdrawalBridge carries the bridge leg of a cross-chain withdrawal.
// BurnEstimate is the estimated USDC output of the withdrawal swap,
// pre-margin. The burn amount is that estimate minus the safety margin:
// a static value, not live-patched from the post-swap balance. If the
// aggregator returns materially less than estimated the burn can revert
// on insufficient balance.
// TODO: live-patch the burn amount once the router can patch
// depositForBurn's first argument slot alongside the fee arguments.
type WithdrawalBridge struct {
	TokenMessenger       common.Address
	DestinationDomain    uint32
	Recipient            common.Address
	MaxFee               *big.Int
	MinFinalityThreshold uint32
	BurnEstimate         *big.Int
}

// BuildWithdrawalOrder builds the redeem-swap(-burn) route. The shares
// amount is known exactly so the redeem step carries no patch.
func (b *OrderBuilder) BuildWithdrawalOrder(ctx context.Context, p WithdrawalOrderParams) (ZapOrder, []RouteStep, error) {
	if p.Shares == nil || p.Shares.Sign() <= 0 {
		return ZapOrder{}, nil, fmt.Errorf("withdrawal shares must be positive, got %v", p.Shares)
	}
	if p.RedeemEstimate == nil || p.RedeemEstimate.Sign() <= 0 {
		return ZapOrder{}, nil, fmt.Errorf("withdrawal requires a positive redeem estimate")
	}

	usdc := common.HexToAddress(p.Network.USDC)
	vc := p.Vault.Common()
	router := common.HexToAddress(vc.Router)
	vaultAddr := common.HexToAddress(vc.Vault)
	outputToken := withdrawalOutputToken(p.Vault, usdc)

	redeemCall, err := BuildVaultRedeemCall(vaultAddr, p.Shares, router, router)
	if err != nil {
		return ZapOrder{}, nil, err
	}
	redeemStep, err := NewRouteStep(redeemCall.To, redeemCall.Value, redeemCall.Data)
	if err != nil {
		return ZapOrder{}, nil, err
	}
	route := []RouteStep{redeemStep}
	sweepTokens := []common.Address{outputToken, usdc}

	if outputToken != usdc {
		swapIn := ApplySwapSafetyMargin(p.RedeemEstimate)
		swapCall, err := b.swap.BuildSwap(ctx, clients.SwapParams{
			ChainTag:    vc.ChainTag,
			TokenIn:     outputToken,
			TokenOut:    usdc,
			AmountIn:    swapIn,
			Executor:    router,
			SlippageBps: b.slippageBps,
		})
		if err != nil {
			return ZapOrder{}, nil, fmt.Errorf("failed to build withdrawal swap: %w", err)
		}
		swapStep, err := NewRouteStep(swapCall.Router, swapCall.Value, swapCall.Data,
			TokenPatch{Token: outputToken, Offset: ApprovalPatchOffset})
		if err != nil {
			return ZapOrder{}, nil, err
		}
		route = append(route, swapStep)
	}

	if p.Bridge != nil {
		if p.Bridge.BurnEstimate == nil || p.Bridge.BurnEstimate.Sign() <= 0 {
			return ZapOrder{}, nil, fmt.Errorf("bridged withdrawal requires a positive burn estimate")
		}
		burnAmount := ApplySwapSafetyMargin(p.Bridge.BurnEstimate)

		approve, burn, err := BuildBridgeCalls(BridgeParams{
			BurnToken:            usdc,
			TokenMessenger:       p.Bridge.TokenMessenger,
			DestinationDomain:    p.Bridge.DestinationDomain,
			Amount:               burnAmount,
			Recipient:            p.Bridge.Recipient,
			MaxFee:               p.Bridge.MaxFee,
			MinFinalityThreshold: p.Bridge.MinFinalityThreshold,
		})
		if err != nil {
			return ZapOrder{}, nil, err
		}
		approveStep, err := NewRouteStep(approve.To, approve.Value, approve.Data,
			TokenPatch{Token: usdc, Offset: ApprovalPatchOffset})
		if err != nil {
			return ZapOrder{}, nil, err
		}
		burnStep, err := NewRouteStep(burn.To, burn.Value, burn.Data)
		if err != nil {
			return ZapOrder{}, nil, err
		}
		route = append(route, approveStep, burnStep)
	}

	order := ZapOrder{
		User:      p.User,
		Recipient: p.Recipient,
		Inputs:    []TokenAmount{{Token: vaultAddr, Amount: p.Shares}},
		Outputs:   sweepOutputs(sweepTokens),
		Relay:     ZeroRelay(),
	}
	return order, route, nil
}

// EstimateWithdrawalUsdc estimates the USDC the withdrawal swap produces
// for a given redeem estimate, identity when the vault's output token is
// already USDC. The estimate feeds the bridge leg's burn amount.
func (b *OrderBuilder) EstimateWithdrawalUsdc(ctx context.Context, vault config.VaultDescriptor, network *config.NetworkConfig, redeemEstimate *big.Int) (*big.Int, error) {
	if redeemEstimate == nil || redeemEstimate.Sign() <= 0 {
		return nil, fmt.Errorf("redeem estimate must be positive, got %v", redeemEstimate)
	}
	usdc := common.HexToAddress(network.USDC)
	outputToken := withdrawalOutputToken(vault, usdc)
	if outputToken == usdc {
		return new(big.Int).Set(redeemEstimate), nil
	}
	return b.swap.EstimateSwapOutput(ctx, vault.Common().ChainTag, outputToken, usdc,
		ApplySwapSafetyMargin(redeemEstimate))
}

// swapPlan is one aggregator swap of the deposit route.
type swapPlan struct {
	tokenOut common.Address
	amountIn *big.Int
}

// depositSwapPlan decides, per vault variant, which tokens participate in
// the swap step and which token's live balance feeds the deposit call.
func depositSwapPlan(vault config.VaultDescriptor, usdc common.Address, amount *big.Int) ([]swapPlan, common.Address, error) {
	switch v := vault.(type) {
	case config.SingleAssetVault:
		underlying := common.HexToAddress(v.Underlying)
		if underlying == usdc {
			// Nothing to swap, deposit the bridged USDC directly.
			return nil, usdc, nil
		}
		return []swapPlan{{tokenOut: underlying, amountIn: amount}}, underlying, nil
	case config.LPUsdcVault:
		// USDC is one side of the pair: swap half into the pair token and
		// let the router pair it with the remaining USDC balance.
		half := new(big.Int).Div(amount, big.NewInt(2))
		return []swapPlan{{tokenOut: common.HexToAddress(v.PairToken), amountIn: half}}, usdc, nil
	case config.LPNonUsdcVault:
		half := new(big.Int).Div(amount, big.NewInt(2))
		rest := new(big.Int).Sub(amount, half)
		token0 := common.HexToAddress(v.Token0)
		return []swapPlan{
			{tokenOut: token0, amountIn: half},
			{tokenOut: common.HexToAddress(v.Token1), amountIn: rest},
		}, token0, nil
	default:
		return nil, common.Address{}, fmt.Errorf("unsupported vault kind %q", vault.Kind())
	}
}

// withdrawalOutputToken is the token redeem leaves in the router, per
// vault variant.
func withdrawalOutputToken(vault config.VaultDescriptor, usdc common.Address) common.Address {
	switch v := vault.(type) {
	case config.SingleAssetVault:
		return common.HexToAddress(v.Underlying)
	case config.LPUsdcVault:
		return usdc
	case config.LPNonUsdcVault:
		return common.HexToAddress(v.Token0)
	default:
		return usdc
	}
}

// sweepOutputs builds zero-minimum outputs for every token the route can
// leave dust in, so residue goes to the recipient instead of sitting in
// the router.
func sweepOutputs(tokens []common.Address) []MinOutput {
	outputs := make([]MinOutput, 0, len(tokens))
	for _, token := range tokens {
		outputs = append(outputs, MinOutput{Token: token, MinOutputAmount: big.NewInt(0)})
	}
	return outputs
}

func appendToken(tokens []common.Address, token common.Address) []common.Address {
	for _, t := range tokens {
		if t == token {
			return tokens
		}
	}
	return append(tokens, token)
}
