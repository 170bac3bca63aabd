package handlers

import (
	"context"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/africoin-labs/wallet_service/internal/domain/entities"
	ledgersvc "github.com/africoin-labs/wallet_service/internal/domain/services/ledger"
	"github.com/africoin-labs/wallet_service/pkg/logger"
)

// TransferService defines the send operations exposed over HTTP
type TransferService interface {
	Send(ctx context.Context, userID uuid.UUID, req *entities.SendTransferRequest) (*entities.Transfer, error)
	EstimateFee(ctx context.Context) string
	ExplorerURL(t *entities.Transfer) string
}

// LedgerService defines the ledger reads exposed over HTTP
type LedgerService interface {
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entities.Transfer, error)
	Subscribe(ctx context.Context, userID uuid.UUID) (*ledgersvc.Subscription, error)
}

// TransferHandlers handles transfer endpoints
type TransferHandlers struct {
	transfers TransferService
	ledger    LedgerService
	validator *validator.Validate
	logger    *logger.Logger
}

// NewTransferHandlers creates new transfer handlers
func NewTransferHandlers(transfers TransferService, ledger LedgerService, log *logger.Logger) *TransferHandlers {
	return &TransferHandlers{
		transfers: transfers,
		ledger:    ledger,
		validator: validator.New(),
		logger:    log,
	}
}

// Send submits a new transfer. Validation failures return 400 and leave no
// ledger entry behind.
func (h *TransferHandlers) Send(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondUnauthorized(c, "invalid user context")
		return
	}

	var req entities.SendTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		respondBadRequest(c, "missing required fields",
			map[string]interface{}{"cause": err.Error()})
		return
	}

	transfer, err := h.transfers.Send(c.Request.Context(), userID, &req)
	if err != nil {
		h.logger.Warn("Transfer send rejected",
			"user_id", userID,
			"request_id", getRequestID(c),
			"error", err)
		respondDomainError(c, err)
		return
	}

	respondCreated(c, entities.TransferResponse{
		Transfer:    transfer,
		ExplorerURL: h.transfers.ExplorerURL(transfer),
	})
}

// List returns the user's transfer history, newest first
func (h *TransferHandlers) List(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondUnauthorized(c, "invalid user context")
		return
	}

	limit := parseIntParam(c, "limit", 50)
	offset := parseIntParam(c, "offset", 0)

	transfers, err := h.ledger.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		h.logger.Error("Failed to list transfers", "user_id", userID, "error", err)
		respondInternalError(c, "failed to list transfers")
		return
	}

	responses := make([]entities.TransferResponse, 0, len(transfers))
	for _, t := range transfers {
		responses = append(responses, entities.TransferResponse{
			Transfer:    t,
			ExplorerURL: h.transfers.ExplorerURL(t),
		})
	}

	respondSuccess(c, gin.H{"transfers": responses})
}

// EstimateFee returns the advisory network fee for a simple transfer
func (h *TransferHandlers) EstimateFee(c *gin.Context) {
	respondSuccess(c, gin.H{"fee": h.transfers.EstimateFee(c.Request.Context())})
}

// Stream pushes ledger snapshots to the client as server-sent events.
// Each event carries the user's full transfer list, newest first.
func (h *TransferHandlers) Stream(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondUnauthorized(c, "invalid user context")
		return
	}

	sub, err := h.ledger.Subscribe(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to open ledger stream", "user_id", userID, "error", err)
		respondInternalError(c, "failed to open transfer stream")
		return
	}
	defer sub.Cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case snapshot, ok := <-sub.Updates:
			if !ok {
				return false
			}
			c.SSEvent("transfers", snapshot)
			return true
		}
	})
}
