package entities

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferType represents the direction of a wallet transfer
type TransferType string

const (
	TransferTypeSend    TransferType = "send"
	TransferTypeReceive TransferType = "receive"
)

// Validate checks if the transfer type is valid
func (t TransferType) Validate() error {
	switch t {
	case TransferTypeSend, TransferTypeReceive:
		return nil
	default:
		return fmt.Errorf("invalid transfer type: %s", t)
	}
}

// TransferStatus represents the lifecycle state of a transfer
type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "pending"
	TransferStatusCompleted TransferStatus = "completed"
	TransferStatusFailed    TransferStatus = "failed"
)

// Validate checks if the transfer status is valid
func (s TransferStatus) Validate() error {
	switch s {
	case TransferStatusPending, TransferStatusCompleted, TransferStatusFailed:
		return nil
	default:
		return fmt.Errorf("invalid transfer status: %s", s)
	}
}

// IsTerminal returns true for completed and failed. Terminal entries are
// never mutated again.
func (s TransferStatus) IsTerminal() bool {
	return s == TransferStatusCompleted || s == TransferStatusFailed
}

// CanTransitionTo reports whether a transition to next is allowed.
// The only legal moves are pending -> completed and pending -> failed.
func (s TransferStatus) CanTransitionTo(next TransferStatus) bool {
	if s.IsTerminal() {
		return false
	}
	return next == TransferStatusCompleted || next == TransferStatusFailed
}

// Transfer is one persisted ledger entry: a single transfer attempt and its
// outcome. Entries are created pending before the external submission call
// returns and are only ever terminal-state-updated, never deleted.
type Transfer struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	UserID       uuid.UUID       `json:"user_id" db:"user_id"`
	Type         TransferType    `json:"type" db:"transfer_type"`
	Amount       decimal.Decimal `json:"amount" db:"amount"`
	Token        string          `json:"token" db:"token"`
	ToAddress    *string         `json:"to,omitempty" db:"to_address"`
	FromAddress  *string         `json:"from,omitempty" db:"from_address"`
	Status       TransferStatus  `json:"status" db:"status"`
	TxHash       string          `json:"tx_hash" db:"tx_hash"`
	SubmissionID *string         `json:"-" db:"submission_id"`
	ErrorDetail  *string         `json:"error,omitempty" db:"error_detail"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// Validate validates the transfer entry
func (t *Transfer) Validate() error {
	if t.ID == uuid.Nil {
		return fmt.Errorf("transfer ID is required")
	}

	if t.UserID == uuid.Nil {
		return fmt.Errorf("user ID is required")
	}

	if err := t.Type.Validate(); err != nil {
		return err
	}

	if err := t.Status.Validate(); err != nil {
		return err
	}

	if t.Token == "" {
		return fmt.Errorf("token symbol is required")
	}

	if !t.Amount.IsPositive() {
		return fmt.Errorf("transfer amount must be positive")
	}

	switch t.Type {
	case TransferTypeSend:
		if t.ToAddress == nil || *t.ToAddress == "" {
			return fmt.Errorf("send transfer requires a recipient address")
		}
	case TransferTypeReceive:
		if t.FromAddress == nil || *t.FromAddress == "" {
			return fmt.Errorf("receive transfer requires a sender address")
		}
	}

	return nil
}

// TransferDraft carries the caller-supplied fields of a new ledger entry.
// ID, status, hash and timestamps are assigned by the ledger itself.
type TransferDraft struct {
	Type        TransferType
	Amount      decimal.Decimal
	Token       string
	ToAddress   *string
	FromAddress *string
}

// TransferPatch is a partial update of a ledger entry. Only domain fields
// are patchable; id and created_at are never overwritten.
type TransferPatch struct {
	Status       *TransferStatus
	TxHash       *string
	SubmissionID *string
	ErrorDetail  *string
}

// IsEmpty returns true when the patch changes nothing
func (p TransferPatch) IsEmpty() bool {
	return p.Status == nil && p.TxHash == nil && p.SubmissionID == nil && p.ErrorDetail == nil
}

var hexAddressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// IsHexAddress reports whether s is a syntactically valid 20-byte hex address.
func IsHexAddress(s string) bool {
	return hexAddressPattern.MatchString(s)
}
