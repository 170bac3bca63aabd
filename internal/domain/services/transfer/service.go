// Package transfer orchestrates outbound wallet transfers: validation,
// ledger recording, submission to the account provider and resolution.
package transfer

import (
	"context"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/africoin-labs/wallet_service/internal/domain/entities"
	domainErrors "github.com/africoin-labs/wallet_service/internal/domain/errors"
	"github.com/africoin-labs/wallet_service/internal/domain/tokens"
	"github.com/africoin-labs/wallet_service/pkg/logger"
	"github.com/africoin-labs/wallet_service/pkg/metrics"
)

// Ledger defines the ledger operations the orchestrator uses
type Ledger interface {
	Append(ctx context.Context, userID uuid.UUID, draft *entities.TransferDraft) (*entities.Transfer, error)
	Update(ctx context.Context, userID, transferID uuid.UUID, patch *entities.TransferPatch) (*entities.Transfer, error)
	ListPendingWithSubmission(ctx context.Context, limit int) ([]*entities.Transfer, error)
}

// Submitter defines the account-abstraction provider operations
type Submitter interface {
	IsConfigured() bool
	SendCalls(ctx context.Context, walletAddress string, calls []entities.Call) (string, error)
	GetCallsStatus(ctx context.Context, submissionID string) (*entities.CallsStatus, error)
}

// GasReader supplies the advisory fee estimate
type GasReader interface {
	GetGasPrice(ctx context.Context) *big.Int
}

// BalanceInvalidator drops cached balances after a confirmed transfer
type BalanceInvalidator interface {
	InvalidateCache(ctx context.Context, address string)
}

// Service coordinates sends end to end
type Service struct {
	ledger    Ledger
	submitter Submitter
	gas       GasReader
	balances  BalanceInvalidator
	catalog   *tokens.Catalog
	logger    *logger.Logger
}

// NewService creates a new transfer service
func NewService(ledger Ledger, submitter Submitter, gas GasReader, balances BalanceInvalidator, catalog *tokens.Catalog, log *logger.Logger) *Service {
	return &Service{
		ledger:    ledger,
		submitter: submitter,
		gas:       gas,
		balances:  balances,
		catalog:   catalog,
		logger:    log,
	}
}

// Send validates and submits a transfer. Validation failures happen before
// any ledger write; once an entry exists it always reaches a terminal state,
// either via the watcher or an immediate failure recorded here.
func (s *Service) Send(ctx context.Context, userID uuid.UUID, req *entities.SendTransferRequest) (*entities.Transfer, error) {
	if !entities.IsHexAddress(req.Recipient) {
		return nil, domainErrors.InvalidRecipientError(req.Recipient)
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		return nil, domainErrors.InvalidAmountError(req.Amount)
	}

	if !s.submitter.IsConfigured() {
		return nil, domainErrors.WalletNotConnectedError()
	}
	if !entities.IsHexAddress(req.FromAddress) {
		return nil, domainErrors.WalletNotConnectedError()
	}

	entry, err := s.ledger.Append(ctx, userID, &entities.TransferDraft{
		Type:        entities.TransferTypeSend,
		Amount:      amount,
		Token:       req.Token,
		ToAddress:   &req.Recipient,
		FromAddress: &req.FromAddress,
	})
	if err != nil {
		return nil, err
	}

	call, err := s.buildCall(req.Token, req.Recipient, req.Amount)
	if err != nil {
		return s.failEntry(ctx, userID, entry.ID, err)
	}

	submissionID, err := s.submitter.SendCalls(ctx, req.FromAddress, []entities.Call{*call})
	if err != nil {
		return s.failEntry(ctx, userID, entry.ID,
			domainErrors.SubmissionFailureError("transfer submission failed", err))
	}

	updated, err := s.ledger.Update(ctx, userID, entry.ID, &entities.TransferPatch{
		SubmissionID: &submissionID,
	})
	if err != nil {
		// The submission is in flight; keep the entry pending and let the
		// watcher reconcile rather than surfacing a spurious failure.
		s.logger.Error("Failed to record submission id",
			"transfer_id", entry.ID, "submission_id", submissionID, "error", err)
		return entry, nil
	}

	metrics.TransfersSubmitted.WithLabelValues(updated.Token).Inc()

	s.logger.Info("Transfer submitted",
		"transfer_id", updated.ID,
		"user_id", userID,
		"token", updated.Token,
		"submission_id", submissionID)

	return updated, nil
}

// CheckSubmission polls the provider once for a pending transfer and
// resolves the entry when the submission has reached a terminal state.
// It returns the (possibly updated) transfer.
func (s *Service) CheckSubmission(ctx context.Context, t *entities.Transfer) (*entities.Transfer, error) {
	if t.SubmissionID == nil || *t.SubmissionID == "" {
		return t, nil
	}

	status, err := s.submitter.GetCallsStatus(ctx, *t.SubmissionID)
	if err != nil {
		return t, domainErrors.NetworkFailureError("submission status poll", err)
	}

	switch status.Status {
	case entities.CallsStatusSuccess:
		txHash := ""
		if len(status.Receipts) > 0 {
			txHash = status.Receipts[0].TransactionHash
		}
		if txHash == "" {
			// Success without a receipt hash leaves nothing to link in the
			// explorer; wait for the provider to attach it.
			return t, nil
		}
		completed := entities.TransferStatusCompleted
		updated, err := s.ledger.Update(ctx, t.UserID, t.ID, &entities.TransferPatch{
			Status: &completed,
			TxHash: &txHash,
		})
		if err != nil {
			return t, err
		}
		if s.balances != nil && t.FromAddress != nil {
			s.balances.InvalidateCache(ctx, *t.FromAddress)
		}
		s.logger.Info("Transfer confirmed",
			"transfer_id", t.ID, "tx_hash", txHash)
		return updated, nil

	case entities.CallsStatusFailure:
		failed := entities.TransferStatusFailed
		detail := status.Error
		if detail == "" {
			detail = "submission failed on chain"
		}
		updated, err := s.ledger.Update(ctx, t.UserID, t.ID, &entities.TransferPatch{
			Status:      &failed,
			ErrorDetail: &detail,
		})
		if err != nil {
			return t, err
		}
		s.logger.Warn("Transfer failed on chain",
			"transfer_id", t.ID, "detail", detail)
		return updated, nil

	default:
		return t, nil
	}
}

// ListInFlight exposes pending submitted transfers for the watcher
func (s *Service) ListInFlight(ctx context.Context, limit int) ([]*entities.Transfer, error) {
	return s.ledger.ListPendingWithSubmission(ctx, limit)
}

// EstimateFee returns an advisory fee for a simple transfer, formatted in
// the native asset. Returns "0" when the gas price is unavailable.
func (s *Service) EstimateFee(ctx context.Context) string {
	if s.gas == nil {
		return "0"
	}
	price := s.gas.GetGasPrice(ctx)
	if price == nil {
		return "0"
	}

	// 21000 gas covers a native send; token transfers cost more but the
	// paymaster sponsors them, so this is a display hint only.
	fee := new(big.Int).Mul(price, big.NewInt(21000))
	return tokens.FormatUnits(fee, s.catalog.NativeDecimals())
}

// ExplorerURL returns the transaction explorer link for a completed entry,
// or "" when no hash is recorded yet.
func (s *Service) ExplorerURL(t *entities.Transfer) string {
	if t == nil || t.TxHash == "" {
		return ""
	}
	return s.catalog.TxURL(t.TxHash)
}

// buildCall assembles the single call of the batch: a plain value transfer
// for the native asset, an encoded transfer(to, amount) for tokens.
func (s *Service) buildCall(symbol, recipient, amount string) (*entities.Call, error) {
	if s.catalog.IsNative(symbol) {
		units, err := tokens.ParseUnits(amount, s.catalog.NativeDecimals())
		if err != nil {
			return nil, domainErrors.InvalidAmountError(amount)
		}
		return &entities.Call{
			To:    recipient,
			Value: "0x" + units.Text(16),
			Data:  "0x",
		}, nil
	}

	desc := s.catalog.Resolve(symbol)
	if desc == nil {
		return nil, domainErrors.UnsupportedTokenError(symbol)
	}

	data, err := tokens.EncodeTransfer(recipient, amount, desc.Decimals)
	if err != nil {
		return nil, domainErrors.Wrap(err, "failed to encode token transfer")
	}

	return &entities.Call{
		To:    desc.Address,
		Value: "0x0",
		Data:  fmt.Sprintf("0x%x", data),
	}, nil
}

// failEntry marks a just-created entry failed and returns the original
// error to the caller.
func (s *Service) failEntry(ctx context.Context, userID, transferID uuid.UUID, cause error) (*entities.Transfer, error) {
	failed := entities.TransferStatusFailed
	detail := cause.Error()
	if _, err := s.ledger.Update(ctx, userID, transferID, &entities.TransferPatch{
		Status:      &failed,
		ErrorDetail: &detail,
	}); err != nil {
		s.logger.Error("Failed to mark transfer failed",
			"transfer_id", transferID, "error", err)
	}
	return nil, cause
}
