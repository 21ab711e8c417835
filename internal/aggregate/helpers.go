package aggregate

import (
	"math/big"
	"time"
)

const ratioScale = 18

func formatTokenAmount(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	if decimals == 0 {
		return value.String()
	}
	sign := value.Sign()
	abs := new(big.Int).Abs(value)
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	rat := new(big.Rat).SetFrac(abs, denom)
	text := rat.FloatString(int(decimals))
	if sign < 0 {
		return "-" + text
	}
	return text
}

func computeFeeRates(feeX *big.Int, feeY *big.Int, tvlX *big.Int, tvlY *big.Int) (*string, *string) {
	var feeRateX *string
	var feeRateY *string

	if rate := computeRateFromInt(feeX, tvlX); rate != "" {
		feeRateX = &rate
	}
	if rate := computeRateFromInt(feeY, tvlY); rate != "" {
		feeRateY = &rate
	}
	return feeRateX, feeRateY
}

func computeRateFromInt(fee *big.Int, tvl *big.Int) string {
	if fee == nil || fee.Sign() == 0 || tvl == nil || tvl.Sign() == 0 {
		return ""
	}
	rat := new(big.Rat).SetFrac(fee, tvl)
	return rat.FloatString(ratioScale)
}

// computePoolFeeRate values both fee legs and both reserves in units of
// asset X at the pool's own price, so the rate is
// (feeX*R_y + feeY*R_x) / (2*R_x*R_y).
func computePoolFeeRate(feeX *big.Int, feeY *big.Int, tvlX *big.Int, tvlY *big.Int) *string {
	if feeX == nil || feeY == nil || tvlX == nil || tvlY == nil || tvlX.Sign() == 0 || tvlY.Sign() == 0 {
		return nil
	}
	if feeX.Sign() == 0 && feeY.Sign() == 0 {
		return nil
	}
	num := new(big.Int).Mul(feeX, tvlY)
	num.Add(num, new(big.Int).Mul(feeY, tvlX))
	den := new(big.Int).Mul(tvlX, tvlY)
	den.Lsh(den, 1)
	val := new(big.Rat).SetFrac(num, den).FloatString(ratioScale)
	return &val
}

func computeAPR(feeRate *string, windowSeconds uint64) *string {
	if windowSeconds == 0 || feeRate == nil {
		return nil
	}
	rat, ok := new(big.Rat).SetString(*feeRate)
	if !ok {
		return nil
	}
	yearSeconds := big.NewRat(int64(365*24*time.Hour/time.Second), 1)
	window := big.NewRat(int64(windowSeconds), 1)
	apr := new(big.Rat).Mul(rat, yearSeconds)
	apr.Quo(apr, window)
	val := apr.FloatString(ratioScale)
	return &val
}
