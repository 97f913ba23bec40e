package zap

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ApprovalPatchOffset marks a patch that only grants a spending approval of
// the token for the order's declared static input amount. The step calldata
// is left untouched.
const ApprovalPatchOffset = -1

// SelectorLength is the 4-byte function selector preceding encoded
// arguments; the first patchable argument slot starts right after it.
const SelectorLength = 4

// WordLength is the width of one encoded argument slot.
const WordLength = 32

// TokenPatch instructs the vault router either to approve a token before a
// step runs (Offset == ApprovalPatchOffset) or to overwrite the 32-byte word
// at Offset of the step's calldata with the router's live balance of Token.
type TokenPatch struct {
	Token  common.Address
	Offset int
}

// RouteStep is one ordered entry of a multi-call order. Steps execute
// strictly in order; a step consumes a prior step's output only through a
// TokenPatch, never through a statically estimated amount.
type RouteStep struct {
	Target  common.Address
	Value   *big.Int
	Data    []byte
	Patches []TokenPatch
}

// NewRouteStep validates every patch offset against the actual encoded
// calldata before the step is accepted. Hand-computed offsets that miss an
// argument slot are rejected here instead of reverting on chain.
func NewRouteStep(target common.Address, value *big.Int, data []byte, patches ...TokenPatch) (RouteStep, error) {
	if value == nil {
		value = big.NewInt(0)
	}
	for _, p := range patches {
		if err := validatePatchOffset(p, len(data)); err != nil {
			return RouteStep{}, err
		}
	}
	return RouteStep{Target: target, Value: value, Data: data, Patches: patches}, nil
}

func validatePatchOffset(p TokenPatch, dataLen int) error {
	if p.Offset == ApprovalPatchOffset {
		return nil
	}
	if p.Offset < SelectorLength {
		return fmt.Errorf("patch offset %d for token %s precedes the selector", p.Offset, p.Token.Hex())
	}
	if (p.Offset-SelectorLength)%WordLength != 0 {
		return fmt.Errorf("patch offset %d for token %s is not aligned to an argument slot", p.Offset, p.Token.Hex())
	}
	if p.Offset+WordLength > dataLen {
		return fmt.Errorf("patch offset %d for token %s exceeds calldata length %d", p.Offset, p.Token.Hex(), dataLen)
	}
	return nil
}

// PatchWord mirrors the router's runtime rewrite: it replaces the 32-byte
// word at offset with value, leaving every other byte untouched. The
// orchestrator never patches locally; this exists so route previews and
// tests can show exactly what the router will execute.
func PatchWord(data []byte, offset int, value *big.Int) ([]byte, error) {
	if offset < SelectorLength || offset+WordLength > len(data) {
		return nil, fmt.Errorf("patch offset %d out of range for calldata length %d", offset, len(data))
	}
	patched := make([]byte, len(data))
	copy(patched, data)
	value.FillBytes(patched[offset : offset+WordLength])
	return patched, nil
}

// TokenAmount is a declared order input pulled from the user before route
// execution.
type TokenAmount struct {
	Token  common.Address
	Amount *big.Int
}

// MinOutput bounds the minimum residual balance of a token swept to the
// recipient after all route steps.
type MinOutput struct {
	Token           common.Address
	MinOutputAmount *big.Int
}

// RelayCall is the order's terminal hook. A zero-value RelayCall is the
// no-op relay.
type RelayCall struct {
	Target common.Address
	Value  *big.Int
	Data   []byte
}

// ZeroRelay returns the no-op terminal hook.
func ZeroRelay() RelayCall {
	return RelayCall{Value: big.NewInt(0), Data: []byte{}}
}

// IsZero reports whether the relay is the no-op hook.
func (r RelayCall) IsZero() bool {
	return r.Target == (common.Address{}) && (r.Value == nil || r.Value.Sign() == 0) && len(r.Data) == 0
}

// ZapOrder chains an arbitrary sequence of external calls through the vault
// router in one atomic transaction.
type ZapOrder struct {
	User      common.Address
	Recipient common.Address
	Inputs    []TokenAmount
	Outputs   []MinOutput
	Relay     RelayCall
}

// ABI-shaped mirrors of the order/route types. Offsets widen to int256 and
// nil amounts normalize to zero so go-ethereum tuple packing accepts them.
type abiTokenAmount struct {
	Token  common.Address
	Amount *big.Int
}

type abiMinOutput struct {
	Token           common.Address
	MinOutputAmount *big.Int
}

type abiRelay struct {
	Target common.Address
	Value  *big.Int
	Data   []byte
}

type abiOrder struct {
	User      common.Address
	Recipient common.Address
	Inputs    []abiTokenAmount
	Outputs   []abiMinOutput
	Relay     abiRelay
}

type abiPatch struct {
	Token  common.Address
	Offset *big.Int
}

type abiRouteStep struct {
	Target  common.Address
	Value   *big.Int
	Data    []byte
	Patches []abiPatch
}

// EncodeExecuteOrder packs executeOrder(order, route) against the vault
// router. The call's native value is the sum of the step values.
func EncodeExecuteOrder(router common.Address, order ZapOrder, route []RouteStep) (Call, error) {
	encOrder := abiOrder{
		User:      order.User,
		Recipient: order.Recipient,
		Inputs:    make([]abiTokenAmount, 0, len(order.Inputs)),
		Outputs:   make([]abiMinOutput, 0, len(order.Outputs)),
		Relay:     abiRelay{Target: order.Relay.Target, Value: orZero(order.Relay.Value), Data: orEmpty(order.Relay.Data)},
	}
	for _, in := range order.Inputs {
		encOrder.Inputs = append(encOrder.Inputs, abiTokenAmount{Token: in.Token, Amount: orZero(in.Amount)})
	}
	for _, out := range order.Outputs {
		encOrder.Outputs = append(encOrder.Outputs, abiMinOutput{Token: out.Token, MinOutputAmount: orZero(out.MinOutputAmount)})
	}

	totalValue := big.NewInt(0)
	encRoute := make([]abiRouteStep, 0, len(route))
	for _, step := range route {
		enc := abiRouteStep{
			Target:  step.Target,
			Value:   orZero(step.Value),
			Data:    orEmpty(step.Data),
			Patches: make([]abiPatch, 0, len(step.Patches)),
		}
		for _, p := range step.Patches {
			enc.Patches = append(enc.Patches, abiPatch{Token: p.Token, Offset: big.NewInt(int64(p.Offset))})
		}
		totalValue = totalValue.Add(totalValue, enc.Value)
		encRoute = append(encRoute, enc)
	}

	data, err := vaultRouterABI.Pack("executeOrder", encOrder, encRoute)
	if err != nil {
		return Call{}, fmt.Errorf("failed to encode executeOrder: %w", err)
	}
	return Call{To: router, Data: data, Value: totalValue}, nil
}

// BuildVaultDepositCall encodes deposit(assets, receiver) against an
// ERC-4626 vault.
func BuildVaultDepositCall(vault common.Address, assets *big.Int, receiver common.Address) (Call, error) {
	data, err := vaultABI.Pack("deposit", orZero(assets), receiver)
	if err != nil {
		return Call{}, fmt.Errorf("failed to encode deposit: %w", err)
	}
	return NewCall(vault, data), nil
}

// BuildVaultRedeemCall encodes redeem(shares, receiver, owner).
func BuildVaultRedeemCall(vault common.Address, shares *big.Int, receiver, owner common.Address) (Call, error) {
	if shares == nil || shares.Sign() <= 0 {
		return Call{}, fmt.Errorf("redeem shares must be positive, got %v", shares)
	}
	data, err := vaultABI.Pack("redeem", shares, receiver, owner)
	if err != nil {
		return Call{}, fmt.Errorf("failed to encode redeem: %w", err)
	}
	return NewCall(vault, data), nil
}

// DepositAssetsArgOffset is the byte offset of deposit's first argument,
// the slot the live-balance patch rewrites.
const DepositAssetsArgOffset = SelectorLength

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}

func orEmpty(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
