package zap

import "math/big"

// SwapSafetyMarginBps is shaved off every estimated swap input before it is
// used as a burn or swap amount, so that aggregator slippage between quote
// time and execution time does not leave the route short of funds.
const SwapSafetyMarginBps = 200

// BasisPointsDenominator for bps math (1 bps = 0.01%).
const BasisPointsDenominator = 10000

// BasisPointsOf returns floor(amount * bps / 10000).
func BasisPointsOf(amount *big.Int, bps int64) *big.Int {
	result := new(big.Int).Mul(amount, big.NewInt(bps))
	return result.Div(result, big.NewInt(BasisPointsDenominator))
}

// ApplySwapSafetyMargin reduces an estimated amount by SwapSafetyMarginBps.
// When the margin rounds down to zero the amount is still reduced by one
// unit, so the caller never spends the full estimate. Amounts of one unit
// or less are returned unchanged (there is nothing left to shave).
func ApplySwapSafetyMargin(amount *big.Int) *big.Int {
	if amount == nil {
		return nil
	}
	if amount.Cmp(big.NewInt(1)) <= 0 {
		return new(big.Int).Set(amount)
	}
	margin := BasisPointsOf(amount, SwapSafetyMarginBps)
	if margin.Sign() == 0 {
		margin = big.NewInt(1)
	}
	return new(big.Int).Sub(amount, margin)
}
