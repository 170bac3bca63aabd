// Package balance aggregates native and token balances for a wallet view.
package balance

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/africoin-labs/wallet_service/internal/domain/entities"
	"github.com/africoin-labs/wallet_service/internal/domain/tokens"
	"github.com/africoin-labs/wallet_service/pkg/logger"
	"github.com/africoin-labs/wallet_service/pkg/metrics"
)

const cacheTTL = 15 * time.Second

// ChainReader defines the chain reads the aggregator depends on
type ChainReader interface {
	GetNativeBalance(ctx context.Context, address string) string
	GetTokenBalances(ctx context.Context, address string) []entities.RawTokenBalance
	GetTokenMetadata(ctx context.Context, contractAddress string) *entities.TokenMetadata
}

// Cache defines the caching operations used for balance snapshots
type Cache interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Del(ctx context.Context, key string) error
}

// Service aggregates wallet balances from chain reads
type Service struct {
	chain   ChainReader
	catalog *tokens.Catalog
	cache   Cache
	logger  *logger.Logger
}

// NewService creates a new balance service
func NewService(chain ChainReader, catalog *tokens.Catalog, cache Cache, log *logger.Logger) *Service {
	return &Service{
		chain:   chain,
		catalog: catalog,
		cache:   cache,
		logger:  log,
	}
}

// Refresh returns the wallet's balance snapshot: the native asset first,
// then each allow-listed token holding. Chain failures degrade to zero or
// omitted rows, never errors.
func (s *Service) Refresh(ctx context.Context, address string) []entities.TokenBalance {
	if s.cache != nil {
		var cached []entities.TokenBalance
		if err := s.cache.Get(ctx, cacheKey(address), &cached); err == nil && len(cached) > 0 {
			metrics.BalanceRefreshes.WithLabelValues("cache").Inc()
			return cached
		}
	}

	balances := []entities.TokenBalance{
		{
			Symbol:   s.catalog.NativeSymbol(),
			Name:     s.catalog.NativeName(),
			Balance:  s.chain.GetNativeBalance(ctx, address),
			USDValue: "0.00",
		},
	}

	balances = append(balances, s.tokenHoldings(ctx, address)...)

	metrics.BalanceRefreshes.WithLabelValues("chain").Inc()

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey(address), balances, cacheTTL); err != nil {
			s.logger.Warn("Failed to cache balance snapshot", "address", address, "error", err)
		}
	}

	return balances
}

// InvalidateCache drops the cached snapshot so the next refresh reads the
// chain. Called after a transfer confirms.
func (s *Service) InvalidateCache(ctx context.Context, address string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, cacheKey(address)); err != nil {
		s.logger.Warn("Failed to invalidate balance cache", "address", address, "error", err)
	}
}

// tokenHoldings resolves raw balances against the allow-list. Unknown
// contracts, zero balances and tokens without metadata are skipped.
func (s *Service) tokenHoldings(ctx context.Context, address string) []entities.TokenBalance {
	raw := s.chain.GetTokenBalances(ctx, address)
	holdings := make([]entities.TokenBalance, 0, len(raw))

	for _, rb := range raw {
		desc := s.catalog.ResolveByAddress(rb.ContractAddress)
		if desc == nil {
			continue
		}
		if isZeroHex(rb.TokenBalance) {
			continue
		}

		meta := s.chain.GetTokenMetadata(ctx, rb.ContractAddress)
		if meta == nil {
			// A token the provider cannot describe is dropped from the
			// view rather than shown with guessed units.
			continue
		}
		name := desc.Name
		if meta.Name != "" {
			name = meta.Name
		}
		decimals := desc.Decimals
		if meta.Decimals > 0 {
			decimals = meta.Decimals
		}

		holdings = append(holdings, entities.TokenBalance{
			Symbol:   desc.Symbol,
			Name:     name,
			Balance:  tokens.FormatHexBalance(rb.TokenBalance, decimals),
			USDValue: "0.00",
		})
	}

	return holdings
}

func isZeroHex(hexBalance string) bool {
	trimmed := strings.TrimPrefix(hexBalance, "0x")
	if trimmed == "" {
		return true
	}
	v, ok := new(big.Int).SetString(trimmed, 16)
	return !ok || v.Sign() == 0
}

func cacheKey(address string) string {
	return "balances:" + strings.ToLower(address)
}
