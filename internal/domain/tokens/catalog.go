// Package tokens holds the supported-token catalog and the fixed-point
// amount handling shared by the balance and transfer paths.
package tokens

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/africoin-labs/wallet_service/internal/infrastructure/config"
)

// Descriptor describes one supported token. Immutable after catalog load.
type Descriptor struct {
	Symbol   string
	Name     string
	Address  string
	Decimals int
}

// Catalog resolves token symbols and contract addresses against the
// configured allow-list. The allow-list is configuration, not code: tokens
// the deployment does not list are treated as unsupported everywhere.
type Catalog struct {
	nativeSymbol   string
	nativeName     string
	nativeDecimals int
	explorerBase   string
	bySymbol       map[string]*Descriptor
	byAddress      map[string]*Descriptor
}

// NewCatalog builds a catalog from chain configuration.
func NewCatalog(cfg config.ChainConfig) *Catalog {
	c := &Catalog{
		nativeSymbol:   cfg.NativeCurrency.Symbol,
		nativeName:     cfg.NativeCurrency.Name,
		nativeDecimals: cfg.NativeCurrency.Decimals,
		explorerBase:   strings.TrimRight(cfg.Explorer, "/"),
		bySymbol:       make(map[string]*Descriptor, len(cfg.Tokens)),
		byAddress:      make(map[string]*Descriptor, len(cfg.Tokens)),
	}

	for symbol, tc := range cfg.Tokens {
		d := &Descriptor{
			Symbol:   strings.ToUpper(symbol),
			Name:     tc.Name,
			Address:  tc.Address,
			Decimals: tc.Decimals,
		}
		c.bySymbol[d.Symbol] = d
		c.byAddress[strings.ToLower(tc.Address)] = d
	}

	return c
}

// Resolve returns the descriptor for a symbol, or nil when unsupported.
func (c *Catalog) Resolve(symbol string) *Descriptor {
	return c.bySymbol[strings.ToUpper(symbol)]
}

// ResolveByAddress returns the descriptor for a contract address, or nil
// when the address is not on the allow-list. Matching is case-insensitive.
func (c *Catalog) ResolveByAddress(address string) *Descriptor {
	return c.byAddress[strings.ToLower(address)]
}

// IsNative returns true only for the chain's native asset symbol.
func (c *Catalog) IsNative(symbol string) bool {
	return strings.EqualFold(symbol, c.nativeSymbol)
}

// NativeSymbol returns the configured native asset symbol.
func (c *Catalog) NativeSymbol() string {
	return c.nativeSymbol
}

// NativeName returns the configured native asset display name.
func (c *Catalog) NativeName() string {
	return c.nativeName
}

// NativeDecimals returns the native asset's decimal count.
func (c *Catalog) NativeDecimals() int {
	return c.nativeDecimals
}

// Symbols returns the allow-listed symbols, native excluded.
func (c *Catalog) Symbols() []string {
	out := make([]string, 0, len(c.bySymbol))
	for s := range c.bySymbol {
		out = append(out, s)
	}
	return out
}

// TxURL formats a block explorer link for a transaction hash.
func (c *Catalog) TxURL(txHash string) string {
	if txHash == "" || c.explorerBase == "" {
		return ""
	}
	return fmt.Sprintf("%s/tx/%s", c.explorerBase, txHash)
}

// AddressURL formats a block explorer link for an address.
func (c *Catalog) AddressURL(address string) string {
	if address == "" || c.explorerBase == "" {
		return ""
	}
	return fmt.Sprintf("%s/address/%s", c.explorerBase, address)
}

// transferSelector is the 4-byte function selector of transfer(address,uint256).
var transferSelector = []byte{0xa9, 0x05, 0x9c, 0xbb}

// EncodeTransfer encodes an ERC-20 transfer(to, amount) invocation.
// Amount is a human-readable decimal string scaled by 10^decimals,
// truncated toward zero. Callers validate amount positivity beforehand;
// this only rejects what cannot be encoded at all.
func EncodeTransfer(to string, amount string, decimals int) ([]byte, error) {
	addr, err := decodeAddress(to)
	if err != nil {
		return nil, err
	}

	units, err := ParseUnits(amount, decimals)
	if err != nil {
		return nil, err
	}

	data := make([]byte, 0, 4+32+32)
	data = append(data, transferSelector...)
	data = append(data, leftPad32(addr)...)
	data = append(data, leftPad32(units.Bytes())...)
	return data, nil
}

func decodeAddress(s string) ([]byte, error) {
	hexPart := strings.TrimPrefix(s, "0x")
	if len(hexPart) != 40 {
		return nil, fmt.Errorf("invalid address length: %s", s)
	}
	addr, err := hex.DecodeString(hexPart)
	if err != nil {
		return nil, fmt.Errorf("invalid address %s: %w", s, err)
	}
	return addr, nil
}

func leftPad32(b []byte) []byte {
	if len(b) >= 32 {
		return b[len(b)-32:]
	}
	padded := make([]byte, 32)
	copy(padded[32-len(b):], b)
	return padded
}
