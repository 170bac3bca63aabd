package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/africoin-labs/wallet_service/internal/domain/entities"
	"github.com/africoin-labs/wallet_service/pkg/logger"
)

// BalanceService defines the balance operations exposed over HTTP
type BalanceService interface {
	Refresh(ctx context.Context, address string) []entities.TokenBalance
}

// WalletHandlers handles wallet balance endpoints
type WalletHandlers struct {
	balances BalanceService
	logger   *logger.Logger
}

// NewWalletHandlers creates new wallet handlers
func NewWalletHandlers(balances BalanceService, log *logger.Logger) *WalletHandlers {
	return &WalletHandlers{
		balances: balances,
		logger:   log,
	}
}

// GetBalances returns the aggregated balance view for a wallet address.
// The read path never fails: unreadable balances come back as zero.
func (h *WalletHandlers) GetBalances(c *gin.Context) {
	address := c.Query("address")
	if !entities.IsHexAddress(address) {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidAddress, "address must be a 0x-prefixed hex address", nil)
		return
	}

	tokens := h.balances.Refresh(c.Request.Context(), address)

	respondSuccess(c, entities.BalancesResponse{
		Address: address,
		Tokens:  tokens,
	})
}
