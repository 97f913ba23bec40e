package zap

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testUSDC      = common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	testMessenger = common.HexToAddress("0x28b5a0e9C621a5BadaA536219b3a228C8168cf5d")
	testRecipient = common.HexToAddress("0x00000000000000000000000000000000000000aa")
)

func TestAddressToBytes32RoundTrip(t *testing.T) {
	addr := common.HexToAddress("0x00000000000000000000000000000000000000Ff")
	padded := AddressToBytes32(addr)

	for i := 0; i < 12; i++ {
		assert.Zero(t, padded[i], "byte %d must be zero padding", i)
	}
	assert.Equal(t, addr, Bytes32ToAddress(padded))
}

func TestBuildBridgeCallsApproval(t *testing.T) {
	amount := big.NewInt(1_000_000)
	approve, _, err := BuildBridgeCalls(BridgeParams{
		BurnToken:         testUSDC,
		TokenMessenger:    testMessenger,
		DestinationDomain: 3,
		Amount:            amount,
		Recipient:         testRecipient,
	})
	require.NoError(t, err)

	assert.Equal(t, testUSDC, approve.To)
	assert.Zero(t, approve.Value.Sign())

	args, err := ERC20ABI().Methods["approve"].Inputs.Unpack(approve.Data[4:])
	require.NoError(t, err)
	assert.Equal(t, testMessenger, args[0].(common.Address))
	assert.Zero(t, amount.Cmp(args[1].(*big.Int)))
}

func TestBuildBridgeCallsBurnEncoding(t *testing.T) {
	amount := big.NewInt(1_000_000)
	_, burn, err := BuildBridgeCalls(BridgeParams{
		BurnToken:         testUSDC,
		TokenMessenger:    testMessenger,
		DestinationDomain: 3,
		Amount:            amount,
		Recipient:         testRecipient,
	})
	require.NoError(t, err)

	assert.Equal(t, testMessenger, burn.To)

	args, err := tokenMessengerABI.Methods["depositForBurn"].Inputs.Unpack(burn.Data[4:])
	require.NoError(t, err)
	assert.Zero(t, amount.Cmp(args[0].(*big.Int)))
	assert.Equal(t, uint32(3), args[1].(uint32))
	assert.Equal(t, AddressToBytes32(testRecipient), args[2].([32]byte))
	assert.Equal(t, testUSDC, args[3].(common.Address))
	assert.Equal(t, [32]byte{}, args[4].([32]byte), "destination caller must stay open")
	assert.Zero(t, DefaultBridgeMaxFee.Cmp(args[5].(*big.Int)))
	assert.Equal(t, FinalityThresholdFast, args[6].(uint32))
}

func TestBuildBridgeCallsOverrides(t *testing.T) {
	_, burn, err := BuildBridgeCalls(BridgeParams{
		BurnToken:            testUSDC,
		TokenMessenger:       testMessenger,
		DestinationDomain:    6,
		Amount:               big.NewInt(5),
		Recipient:            testRecipient,
		MaxFee:               big.NewInt(42),
		MinFinalityThreshold: FinalityThresholdFinalized,
	})
	require.NoError(t, err)

	args, err := tokenMessengerABI.Methods["depositForBurn"].Inputs.Unpack(burn.Data[4:])
	require.NoError(t, err)
	assert.Equal(t, int64(42), args[5].(*big.Int).Int64())
	assert.Equal(t, FinalityThresholdFinalized, args[6].(uint32))
}

func TestBuildBridgeCallsRejectsNonPositiveAmount(t *testing.T) {
	for _, amount := range []*big.Int{nil, big.NewInt(0), big.NewInt(-1)} {
		_, _, err := BuildBridgeCalls(BridgeParams{
			BurnToken:         testUSDC,
			TokenMessenger:    testMessenger,
			DestinationDomain: 3,
			Amount:            amount,
			Recipient:         testRecipient,
		})
		assert.Error(t, err)
	}
}

func TestBuildReceiveMessageCallRejectsEmptyInputs(t *testing.T) {
	transmitter := common.HexToAddress("0x81D40F21F12A8F0E3252Bccb954D722d4c464B64")

	_, err := BuildReceiveMessageCall(transmitter, nil, []byte{1})
	assert.Error(t, err)
	_, err = BuildReceiveMessageCall(transmitter, []byte{1}, nil)
	assert.Error(t, err)

	call, err := BuildReceiveMessageCall(transmitter, []byte{1, 2}, []byte{3, 4})
	require.NoError(t, err)
	assert.Equal(t, transmitter, call.To)
}
