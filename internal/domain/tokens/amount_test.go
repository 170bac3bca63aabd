package tokens

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnits(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		decimals int
		expected string
	}{
		{"whole amount", "5", 6, "5000000"},
		{"fractional amount", "1.5", 6, "1500000"},
		{"truncates excess precision", "1.23456789", 6, "1234567"},
		{"eighteen decimals", "0.1", 18, "100000000000000000"},
		{"zero", "0", 6, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseUnits(tt.amount, tt.decimals)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got.String())
		})
	}
}

func TestParseUnitsRejectsBadInput(t *testing.T) {
	_, err := ParseUnits("abc", 6)
	assert.Error(t, err)

	_, err = ParseUnits("-1", 6)
	assert.Error(t, err)

	_, err = ParseUnits("", 6)
	assert.Error(t, err)
}

func TestFormatUnits(t *testing.T) {
	tests := []struct {
		name     string
		raw      *big.Int
		decimals int
		expected string
	}{
		{"strips trailing zeros", big.NewInt(1500000), 6, "1.5"},
		{"truncates to four digits", big.NewInt(1234567), 6, "1.2345"},
		{"whole number", big.NewInt(5000000), 6, "5"},
		{"small fraction", big.NewInt(100), 6, "0.0001"},
		{"fraction below display precision", big.NewInt(1), 6, "0"},
		{"zero", big.NewInt(0), 6, "0"},
		{"nil", nil, 6, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatUnits(tt.raw, tt.decimals))
		})
	}
}

func TestFormatUnitsTruncatesNotRounds(t *testing.T) {
	// 1.99999 with 5 decimals must display as 1.9999, never 2.
	raw := big.NewInt(199999)
	assert.Equal(t, "1.9999", FormatUnits(raw, 5))
}

func TestFormatHexBalance(t *testing.T) {
	tests := []struct {
		name     string
		rawHex   string
		decimals int
		expected string
	}{
		{"zero hex", "0x0", 18, "0"},
		{"empty string", "", 18, "0"},
		{"bare prefix", "0x", 18, "0"},
		{"garbage treated as zero", "0xzz", 18, "0"},
		{"one ether", "0xde0b6b3a7640000", 18, "1"},
		{"usdc style", "0x16e360", 6, "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatHexBalance(tt.rawHex, tt.decimals))
		})
	}
}
