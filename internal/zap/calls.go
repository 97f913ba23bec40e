package zap

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Call is one entry of an atomic batch: a target contract, calldata, and an
// optional native value. Calls are submitted to the wallet in order and
// either all execute or none do.
type Call struct {
	To    common.Address
	Data  []byte
	Value *big.Int
}

// NewCall returns a zero-value call against target.
func NewCall(target common.Address, data []byte) Call {
	return Call{To: target, Data: data, Value: big.NewInt(0)}
}

// BuildApproveCall encodes approve(spender, amount) against token.
func BuildApproveCall(token, spender common.Address, amount *big.Int) (Call, error) {
	data, err := erc20ABI.Pack("approve", spender, amount)
	if err != nil {
		return Call{}, fmt.Errorf("failed to encode approve: %w", err)
	}
	return NewCall(token, data), nil
}

// AddressToBytes32 left-pads a 20-byte address with zero bytes to 32 bytes.
func AddressToBytes32(addr common.Address) [32]byte {
	var out [32]byte
	copy(out[12:], addr.Bytes())
	return out
}

// Bytes32ToAddress strips the 12 leading pad bytes, recovering the address.
func Bytes32ToAddress(b [32]byte) common.Address {
	return common.BytesToAddress(b[12:])
}
