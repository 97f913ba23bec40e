package zap

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Finality thresholds understood by the message-passing bridge.
const (
	FinalityThresholdFast      uint32 = 1000
	FinalityThresholdFinalized uint32 = 2000
)

// DefaultBridgeMaxFee is the fee ceiling (smallest token unit) applied when
// the caller does not supply one.
var DefaultBridgeMaxFee = big.NewInt(500)

// BridgeParams describes one burn-and-mint leg on the source network.
// Address validity is the caller's concern; this is a pure builder.
type BridgeParams struct {
	BurnToken         common.Address
	TokenMessenger    common.Address
	DestinationDomain uint32
	Amount            *big.Int
	Recipient         common.Address

	// MaxFee defaults to DefaultBridgeMaxFee when nil.
	MaxFee *big.Int
	// MinFinalityThreshold defaults to FinalityThresholdFast when zero.
	MinFinalityThreshold uint32
}

// BuildBridgeCalls returns the approve + depositForBurn pair for one bridge
// leg. The approval grants the token messenger exactly the burn amount. The
// burn call uses a zero destinationCaller so any address may complete the
// mint on the destination network.
func BuildBridgeCalls(p BridgeParams) (approve Call, burn Call, err error) {
	if p.Amount == nil || p.Amount.Sign() <= 0 {
		return Call{}, Call{}, fmt.Errorf("bridge amount must be positive, got %v", p.Amount)
	}

	maxFee := p.MaxFee
	if maxFee == nil {
		maxFee = DefaultBridgeMaxFee
	}
	finality := p.MinFinalityThreshold
	if finality == 0 {
		finality = FinalityThresholdFast
	}

	approve, err = BuildApproveCall(p.BurnToken, p.TokenMessenger, p.Amount)
	if err != nil {
		return Call{}, Call{}, err
	}

	var destinationCaller [32]byte
	data, err := tokenMessengerABI.Pack("depositForBurn",
		p.Amount,
		p.DestinationDomain,
		AddressToBytes32(p.Recipient),
		p.BurnToken,
		destinationCaller,
		maxFee,
		finality,
	)
	if err != nil {
		return Call{}, Call{}, fmt.Errorf("failed to encode depositForBurn: %w", err)
	}

	return approve, NewCall(p.TokenMessenger, data), nil
}

// BuildReceiveMessageCall encodes the destination-side mint call consuming a
// (message, attestation) pair retrieved from the attestation service.
func BuildReceiveMessageCall(transmitter common.Address, message, attestation []byte) (Call, error) {
	if len(message) == 0 || len(attestation) == 0 {
		return Call{}, fmt.Errorf("message and attestation must both be non-empty")
	}
	data, err := messageTransmitterABI.Pack("receiveMessage", message, attestation)
	if err != nil {
		return Call{}, fmt.Errorf("failed to encode receiveMessage: %w", err)
	}
	return NewCall(transmitter, data), nil
}
