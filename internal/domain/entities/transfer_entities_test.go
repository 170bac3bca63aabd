package entities

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTransferStatusTransitions(t *testing.T) {
	assert.True(t, TransferStatusPending.CanTransitionTo(TransferStatusCompleted))
	assert.True(t, TransferStatusPending.CanTransitionTo(TransferStatusFailed))

	// Terminal states never move again.
	assert.False(t, TransferStatusCompleted.CanTransitionTo(TransferStatusPending))
	assert.False(t, TransferStatusCompleted.CanTransitionTo(TransferStatusFailed))
	assert.False(t, TransferStatusFailed.CanTransitionTo(TransferStatusCompleted))
	assert.False(t, TransferStatusFailed.CanTransitionTo(TransferStatusPending))

	// Pending cannot re-enter pending.
	assert.False(t, TransferStatusPending.CanTransitionTo(TransferStatusPending))
}

func TestTransferStatusIsTerminal(t *testing.T) {
	assert.False(t, TransferStatusPending.IsTerminal())
	assert.True(t, TransferStatusCompleted.IsTerminal())
	assert.True(t, TransferStatusFailed.IsTerminal())
}

func TestTransferValidate(t *testing.T) {
	recipient := "0x1234567890123456789012345678901234567890"

	valid := &Transfer{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Type:      TransferTypeSend,
		Amount:    decimal.NewFromFloat(1.5),
		Token:     "USDC",
		ToAddress: &recipient,
		Status:    TransferStatusPending,
	}
	assert.NoError(t, valid.Validate())

	missingRecipient := *valid
	missingRecipient.ToAddress = nil
	assert.Error(t, missingRecipient.Validate())

	zeroAmount := *valid
	zeroAmount.Amount = decimal.Zero
	assert.Error(t, zeroAmount.Validate())

	noToken := *valid
	noToken.Token = ""
	assert.Error(t, noToken.Validate())

	badStatus := *valid
	badStatus.Status = TransferStatus("cancelled")
	assert.Error(t, badStatus.Validate())
}

func TestIsHexAddress(t *testing.T) {
	assert.True(t, IsHexAddress("0x1234567890123456789012345678901234567890"))
	assert.True(t, IsHexAddress("0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238"))

	assert.False(t, IsHexAddress(""))
	assert.False(t, IsHexAddress("0x1234"))
	assert.False(t, IsHexAddress("1234567890123456789012345678901234567890"))
	assert.False(t, IsHexAddress("0xZZ34567890123456789012345678901234567890"))
}

func TestTransferPatchIsEmpty(t *testing.T) {
	assert.True(t, TransferPatch{}.IsEmpty())

	hash := "0xabc"
	assert.False(t, TransferPatch{TxHash: &hash}.IsEmpty())
}
