package zap

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBasisPointsOf(t *testing.T) {
	assert.Equal(t, int64(200), BasisPointsOf(big.NewInt(10_000), 200).Int64())
	assert.Equal(t, int64(0), BasisPointsOf(big.NewInt(40), 200).Int64())
	assert.Equal(t, int64(0), BasisPointsOf(big.NewInt(0), 200).Int64())
}

func TestApplySwapSafetyMargin(t *testing.T) {
	assert.Equal(t, int64(9_800), ApplySwapSafetyMargin(big.NewInt(10_000)).Int64())
	assert.Equal(t, int64(49), ApplySwapSafetyMargin(big.NewInt(50)).Int64())
}

func TestApplySwapSafetyMarginReducesByAtLeastOneUnit(t *testing.T) {
	// 40 * 200 / 10000 rounds down to zero; the margin must still bite.
	assert.Equal(t, int64(39), ApplySwapSafetyMargin(big.NewInt(40)).Int64())
}

func TestApplySwapSafetyMarginLeavesTinyAmounts(t *testing.T) {
	assert.Equal(t, int64(1), ApplySwapSafetyMargin(big.NewInt(1)).Int64())
	assert.Equal(t, int64(0), ApplySwapSafetyMargin(big.NewInt(0)).Int64())
}

func TestApplySwapSafetyMarginDoesNotMutateInput(t *testing.T) {
	in := big.NewInt(10_000)
	ApplySwapSafetyMargin(in)
	assert.Equal(t, int64(10_000), in.Int64())
}
