package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/africoin-labs/wallet_service/internal/domain/entities"
	domainErrors "github.com/africoin-labs/wallet_service/internal/domain/errors"
)

// TransferRepository handles persistence of wallet transfers
type TransferRepository struct {
	db *sqlx.DB
}

// NewTransferRepository creates a new transfer repository
func NewTransferRepository(db *sqlx.DB) *TransferRepository {
	return &TransferRepository{db: db}
}

// Append inserts a new transfer. New entries always start pending.
func (r *TransferRepository) Append(ctx context.Context, transfer *entities.Transfer) error {
	query := `
		INSERT INTO wallet_transfers (
			id, user_id, transfer_type, amount, token, to_address, from_address,
			status, tx_hash, submission_id, error_detail
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		transfer.ID,
		transfer.UserID,
		transfer.Type,
		transfer.Amount,
		transfer.Token,
		transfer.ToAddress,
		transfer.FromAddress,
		transfer.Status,
		transfer.TxHash,
		transfer.SubmissionID,
		transfer.ErrorDetail,
	).Scan(&transfer.CreatedAt, &transfer.UpdatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return domainErrors.ConflictError("transfer", "already exists")
		}
		return fmt.Errorf("failed to insert transfer: %w", err)
	}

	return nil
}

// GetByID retrieves a transfer by its identifier
func (r *TransferRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Transfer, error) {
	var transfer entities.Transfer
	query := `SELECT * FROM wallet_transfers WHERE id = $1`

	err := r.db.GetContext(ctx, &transfer, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domainErrors.NotFoundError("transfer")
		}
		return nil, fmt.Errorf("failed to get transfer: %w", err)
	}

	return &transfer, nil
}

// Update applies a patch to a transfer. Status changes away from a terminal
// state are rejected at the SQL level: the WHERE clause only matches rows
// still pending when the patch carries a status.
func (r *TransferRepository) Update(ctx context.Context, id uuid.UUID, patch *entities.TransferPatch) (*entities.Transfer, error) {
	if patch.IsEmpty() {
		return r.GetByID(ctx, id)
	}

	setClauses := []string{"updated_at = NOW()"}
	args := []interface{}{}
	argIdx := 1

	guard := ""
	if patch.Status != nil {
		setClauses = append(setClauses, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *patch.Status)
		argIdx++
		guard = " AND status = 'pending'"
	}
	if patch.TxHash != nil {
		setClauses = append(setClauses, fmt.Sprintf("tx_hash = $%d", argIdx))
		args = append(args, *patch.TxHash)
		argIdx++
	}
	if patch.SubmissionID != nil {
		setClauses = append(setClauses, fmt.Sprintf("submission_id = $%d", argIdx))
		args = append(args, *patch.SubmissionID)
		argIdx++
	}
	if patch.ErrorDetail != nil {
		setClauses = append(setClauses, fmt.Sprintf("error_detail = $%d", argIdx))
		args = append(args, *patch.ErrorDetail)
		argIdx++
	}

	query := fmt.Sprintf(
		"UPDATE wallet_transfers SET %s WHERE id = $%d%s RETURNING *",
		strings.Join(setClauses, ", "), argIdx, guard)
	args = append(args, id)

	var transfer entities.Transfer
	err := r.db.GetContext(ctx, &transfer, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			// Either the row does not exist or it already reached a
			// terminal state. Distinguish for the caller.
			existing, getErr := r.GetByID(ctx, id)
			if getErr != nil {
				return nil, getErr
			}
			return nil, domainErrors.ConflictError("transfer",
				fmt.Sprintf("already %s", existing.Status))
		}
		return nil, fmt.Errorf("failed to update transfer: %w", err)
	}

	return &transfer, nil
}

// ListByUser returns a user's transfers, newest first
func (r *TransferRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entities.Transfer, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	transfers := []*entities.Transfer{}
	query := `
		SELECT * FROM wallet_transfers
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	err := r.db.SelectContext(ctx, &transfers, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}

	return transfers, nil
}

// ListPendingWithSubmission returns pending transfers that have been handed
// to the provider and are awaiting a receipt.
func (r *TransferRepository) ListPendingWithSubmission(ctx context.Context, limit int) ([]*entities.Transfer, error) {
	if limit <= 0 {
		limit = 100
	}

	transfers := []*entities.Transfer{}
	query := `
		SELECT * FROM wallet_transfers
		WHERE status = 'pending' AND submission_id IS NOT NULL
		ORDER BY created_at ASC
		LIMIT $1`

	err := r.db.SelectContext(ctx, &transfers, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending transfers: %w", err)
	}

	return transfers, nil
}

// FailStalePending marks pending transfers older than the cutoff as failed
// and returns them so the caller can notify subscribers.
func (r *TransferRepository) FailStalePending(ctx context.Context, olderThan time.Duration) ([]*entities.Transfer, error) {
	transfers := []*entities.Transfer{}
	query := `
		UPDATE wallet_transfers
		SET status = 'failed',
		    error_detail = 'transfer timed out awaiting confirmation',
		    updated_at = NOW()
		WHERE status = 'pending' AND created_at < NOW() - $1::interval
		RETURNING *`

	interval := fmt.Sprintf("%d seconds", int(olderThan.Seconds()))
	err := r.db.SelectContext(ctx, &transfers, query, interval)
	if err != nil {
		return nil, fmt.Errorf("failed to expire stale transfers: %w", err)
	}

	return transfers, nil
}
