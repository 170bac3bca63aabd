package tokens

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// displayFracDigits caps how many fractional digits balance formatting keeps.
const displayFracDigits = 4

// ParseUnits converts a human-readable decimal amount into the token's
// integer base units: amount * 10^decimals, truncated toward zero.
// "1.23456" with 6 decimals becomes 1234560.
func ParseUnits(amount string, decimals int) (*big.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("unparseable amount %q: %w", amount, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("negative amount %q", amount)
	}

	return d.Shift(int32(decimals)).Truncate(0).BigInt(), nil
}

// FormatUnits converts an integer base-unit balance into a display string,
// truncating (not rounding) the fraction to displayFracDigits and stripping
// trailing zeros. A zero fraction yields an integer-only string.
func FormatUnits(raw *big.Int, decimals int) string {
	if raw == nil || raw.Sign() == 0 {
		return "0"
	}

	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	intPart, fracUnits := new(big.Int).QuoRem(raw, divisor, new(big.Int))

	frac := fmt.Sprintf("%0*s", decimals, fracUnits.String())
	if len(frac) > displayFracDigits {
		frac = frac[:displayFracDigits]
	}
	frac = strings.TrimRight(frac, "0")

	if frac == "" {
		return intPart.String()
	}
	return intPart.String() + "." + frac
}

// FormatHexBalance formats a 0x-prefixed hex balance as reported by the
// node provider. Unparseable input is treated as zero: the read path is
// best-effort and display must never fail on a malformed provider value.
func FormatHexBalance(rawHex string, decimals int) string {
	if rawHex == "" || rawHex == "0x0" || rawHex == "0x" {
		return "0"
	}

	raw, ok := new(big.Int).SetString(strings.TrimPrefix(rawHex, "0x"), 16)
	if !ok {
		return "0"
	}
	return FormatUnits(raw, decimals)
}
