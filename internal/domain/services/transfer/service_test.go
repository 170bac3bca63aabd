package transfer

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/africoin-labs/wallet_service/internal/domain/entities"
	domainErrors "github.com/africoin-labs/wallet_service/internal/domain/errors"
	"github.com/africoin-labs/wallet_service/internal/domain/tokens"
	"github.com/africoin-labs/wallet_service/internal/infrastructure/config"
	"github.com/africoin-labs/wallet_service/pkg/logger"
)

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Append(ctx context.Context, userID uuid.UUID, draft *entities.TransferDraft) (*entities.Transfer, error) {
	args := m.Called(ctx, userID, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transfer), args.Error(1)
}

func (m *MockLedger) Update(ctx context.Context, userID, transferID uuid.UUID, patch *entities.TransferPatch) (*entities.Transfer, error) {
	args := m.Called(ctx, userID, transferID, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transfer), args.Error(1)
}

func (m *MockLedger) ListPendingWithSubmission(ctx context.Context, limit int) ([]*entities.Transfer, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Transfer), args.Error(1)
}

type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) IsConfigured() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockSubmitter) SendCalls(ctx context.Context, walletAddress string, calls []entities.Call) (string, error) {
	args := m.Called(ctx, walletAddress, calls)
	return args.String(0), args.Error(1)
}

func (m *MockSubmitter) GetCallsStatus(ctx context.Context, submissionID string) (*entities.CallsStatus, error) {
	args := m.Called(ctx, submissionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CallsStatus), args.Error(1)
}

type MockGasReader struct {
	mock.Mock
}

func (m *MockGasReader) GetGasPrice(ctx context.Context) *big.Int {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*big.Int)
}

type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) InvalidateCache(ctx context.Context, address string) {
	m.Called(ctx, address)
}

const (
	fromAddr     = "0xAbCd567890123456789012345678901234567890"
	toAddr       = "0x1111111111111111111111111111111111111111"
	usdcContract = "0x1c7d4b196cb0c7b01d743fbc6116a902379c7238"
)

func newTestCatalog() *tokens.Catalog {
	return tokens.NewCatalog(config.ChainConfig{
		Explorer: "https://sepolia.etherscan.io",
		NativeCurrency: config.CurrencyConfig{
			Symbol:   "ETH",
			Name:     "Ethereum",
			Decimals: 18,
		},
		Tokens: map[string]config.TokenConfig{
			"USDC": {Address: usdcContract, Symbol: "USDC", Name: "USD Coin", Decimals: 6},
		},
	})
}

func pendingEntry(userID uuid.UUID, token string) *entities.Transfer {
	to := toAddr
	from := fromAddr
	return &entities.Transfer{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        entities.TransferTypeSend,
		Amount:      decimal.NewFromFloat(1.5),
		Token:       token,
		ToAddress:   &to,
		FromAddress: &from,
		Status:      entities.TransferStatusPending,
	}
}

func TestSendRejectsInvalidRecipientBeforeAnyWrite(t *testing.T) {
	ledger := new(MockLedger)
	submitter := new(MockSubmitter)

	svc := NewService(ledger, submitter, nil, nil, newTestCatalog(), logger.NewNop())

	_, err := svc.Send(context.Background(), uuid.New(), &entities.SendTransferRequest{
		FromAddress: fromAddr,
		Recipient:   "not-an-address",
		Amount:      "1.5",
		Token:       "USDC",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domainErrors.ErrInvalidRecipient)
	ledger.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
	submitter.AssertNotCalled(t, "SendCalls", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendRejectsNonPositiveAmounts(t *testing.T) {
	svc := NewService(new(MockLedger), new(MockSubmitter), nil, nil, newTestCatalog(), logger.NewNop())

	for _, amount := range []string{"0", "-1", "abc", ""} {
		_, err := svc.Send(context.Background(), uuid.New(), &entities.SendTransferRequest{
			FromAddress: fromAddr,
			Recipient:   toAddr,
			Amount:      amount,
			Token:       "USDC",
		})
		assert.ErrorIs(t, err, domainErrors.ErrInvalidAmount, "amount %q", amount)
	}
}

func TestSendRejectsWhenProviderNotConfigured(t *testing.T) {
	ledger := new(MockLedger)
	submitter := new(MockSubmitter)
	submitter.On("IsConfigured").Return(false)

	svc := NewService(ledger, submitter, nil, nil, newTestCatalog(), logger.NewNop())

	_, err := svc.Send(context.Background(), uuid.New(), &entities.SendTransferRequest{
		FromAddress: fromAddr,
		Recipient:   toAddr,
		Amount:      "1.5",
		Token:       "USDC",
	})

	assert.ErrorIs(t, err, domainErrors.ErrWalletNotConnected)
	ledger.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendUnsupportedTokenFailsTheEntry(t *testing.T) {
	userID := uuid.New()
	entry := pendingEntry(userID, "DOGE")

	ledger := new(MockLedger)
	ledger.On("Append", mock.Anything, userID, mock.Anything).Return(entry, nil)
	ledger.On("Update", mock.Anything, userID, entry.ID, mock.MatchedBy(func(p *entities.TransferPatch) bool {
		return p.Status != nil && *p.Status == entities.TransferStatusFailed
	})).Return(entry, nil)

	submitter := new(MockSubmitter)
	submitter.On("IsConfigured").Return(true)

	svc := NewService(ledger, submitter, nil, nil, newTestCatalog(), logger.NewNop())

	_, err := svc.Send(context.Background(), userID, &entities.SendTransferRequest{
		FromAddress: fromAddr,
		Recipient:   toAddr,
		Amount:      "1.5",
		Token:       "DOGE",
	})

	assert.ErrorIs(t, err, domainErrors.ErrUnsupportedToken)
	ledger.AssertExpectations(t)
	submitter.AssertNotCalled(t, "SendCalls", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendTokenTransferSubmitsEncodedCall(t *testing.T) {
	userID := uuid.New()
	entry := pendingEntry(userID, "USDC")

	ledger := new(MockLedger)
	ledger.On("Append", mock.Anything, userID, mock.Anything).Return(entry, nil)
	ledger.On("Update", mock.Anything, userID, entry.ID, mock.MatchedBy(func(p *entities.TransferPatch) bool {
		return p.SubmissionID != nil && *p.SubmissionID == "sub-123"
	})).Return(entry, nil)

	submitter := new(MockSubmitter)
	submitter.On("IsConfigured").Return(true)
	submitter.On("SendCalls", mock.Anything, fromAddr, mock.MatchedBy(func(calls []entities.Call) bool {
		if len(calls) != 1 {
			return false
		}
		// Token transfers target the contract with zero value and
		// selector-prefixed calldata.
		return calls[0].To == usdcContract &&
			calls[0].Value == "0x0" &&
			len(calls[0].Data) == 2+68*2 &&
			calls[0].Data[:10] == "0xa9059cbb"
	})).Return("sub-123", nil)

	svc := NewService(ledger, submitter, nil, nil, newTestCatalog(), logger.NewNop())

	got, err := svc.Send(context.Background(), userID, &entities.SendTransferRequest{
		FromAddress: fromAddr,
		Recipient:   toAddr,
		Amount:      "1.5",
		Token:       "USDC",
	})

	require.NoError(t, err)
	assert.Equal(t, entry.ID, got.ID)
	submitter.AssertExpectations(t)
	ledger.AssertExpectations(t)
}

func TestSendNativeTransferUsesPlainValueCall(t *testing.T) {
	userID := uuid.New()
	entry := pendingEntry(userID, "ETH")

	ledger := new(MockLedger)
	ledger.On("Append", mock.Anything, userID, mock.Anything).Return(entry, nil)
	ledger.On("Update", mock.Anything, userID, entry.ID, mock.Anything).Return(entry, nil)

	submitter := new(MockSubmitter)
	submitter.On("IsConfigured").Return(true)
	submitter.On("SendCalls", mock.Anything, fromAddr, mock.MatchedBy(func(calls []entities.Call) bool {
		// 1.5 ETH = 1.5e18 wei
		return len(calls) == 1 &&
			calls[0].To == toAddr &&
			calls[0].Value == "0x14d1120d7b160000" &&
			calls[0].Data == "0x"
	})).Return("sub-eth", nil)

	svc := NewService(ledger, submitter, nil, nil, newTestCatalog(), logger.NewNop())

	_, err := svc.Send(context.Background(), userID, &entities.SendTransferRequest{
		FromAddress: fromAddr,
		Recipient:   toAddr,
		Amount:      "1.5",
		Token:       "ETH",
	})

	require.NoError(t, err)
	submitter.AssertExpectations(t)
}

func TestSendSubmissionFailureMarksEntryFailed(t *testing.T) {
	userID := uuid.New()
	entry := pendingEntry(userID, "USDC")

	ledger := new(MockLedger)
	ledger.On("Append", mock.Anything, userID, mock.Anything).Return(entry, nil)
	ledger.On("Update", mock.Anything, userID, entry.ID, mock.MatchedBy(func(p *entities.TransferPatch) bool {
		return p.Status != nil && *p.Status == entities.TransferStatusFailed && p.ErrorDetail != nil
	})).Return(entry, nil)

	submitter := new(MockSubmitter)
	submitter.On("IsConfigured").Return(true)
	submitter.On("SendCalls", mock.Anything, fromAddr, mock.Anything).
		Return("", errors.New("provider down"))

	svc := NewService(ledger, submitter, nil, nil, newTestCatalog(), logger.NewNop())

	_, err := svc.Send(context.Background(), userID, &entities.SendTransferRequest{
		FromAddress: fromAddr,
		Recipient:   toAddr,
		Amount:      "1.5",
		Token:       "USDC",
	})

	assert.ErrorIs(t, err, domainErrors.ErrSubmissionFailure)
	ledger.AssertExpectations(t)
}

func TestCheckSubmissionCompletesWithReceiptHash(t *testing.T) {
	userID := uuid.New()
	entry := pendingEntry(userID, "USDC")
	subID := "sub-123"
	entry.SubmissionID = &subID

	completed := *entry
	completed.Status = entities.TransferStatusCompleted
	completed.TxHash = "0xdeadbeef"

	ledger := new(MockLedger)
	ledger.On("Update", mock.Anything, userID, entry.ID, mock.MatchedBy(func(p *entities.TransferPatch) bool {
		return p.Status != nil && *p.Status == entities.TransferStatusCompleted &&
			p.TxHash != nil && *p.TxHash == "0xdeadbeef"
	})).Return(&completed, nil)

	submitter := new(MockSubmitter)
	submitter.On("GetCallsStatus", mock.Anything, subID).Return(&entities.CallsStatus{
		Status:   entities.CallsStatusSuccess,
		Receipts: []entities.CallReceipt{{TransactionHash: "0xdeadbeef"}},
	}, nil)

	invalidator := new(MockInvalidator)
	invalidator.On("InvalidateCache", mock.Anything, fromAddr).Return()

	svc := NewService(ledger, submitter, nil, invalidator, newTestCatalog(), logger.NewNop())

	got, err := svc.CheckSubmission(context.Background(), entry)
	require.NoError(t, err)
	assert.Equal(t, entities.TransferStatusCompleted, got.Status)
	assert.NotEmpty(t, got.TxHash)
	invalidator.AssertExpectations(t)
}

func TestCheckSubmissionFailureRecordsDetail(t *testing.T) {
	userID := uuid.New()
	entry := pendingEntry(userID, "USDC")
	subID := "sub-456"
	entry.SubmissionID = &subID

	failed := *entry
	failed.Status = entities.TransferStatusFailed

	ledger := new(MockLedger)
	ledger.On("Update", mock.Anything, userID, entry.ID, mock.MatchedBy(func(p *entities.TransferPatch) bool {
		return p.Status != nil && *p.Status == entities.TransferStatusFailed &&
			p.ErrorDetail != nil && *p.ErrorDetail == "out of gas"
	})).Return(&failed, nil)

	submitter := new(MockSubmitter)
	submitter.On("GetCallsStatus", mock.Anything, subID).Return(&entities.CallsStatus{
		Status: entities.CallsStatusFailure,
		Error:  "out of gas",
	}, nil)

	svc := NewService(ledger, submitter, nil, nil, newTestCatalog(), logger.NewNop())

	got, err := svc.CheckSubmission(context.Background(), entry)
	require.NoError(t, err)
	assert.Equal(t, entities.TransferStatusFailed, got.Status)
}

func TestCheckSubmissionStillPendingLeavesEntryAlone(t *testing.T) {
	entry := pendingEntry(uuid.New(), "USDC")
	subID := "sub-789"
	entry.SubmissionID = &subID

	ledger := new(MockLedger)
	submitter := new(MockSubmitter)
	submitter.On("GetCallsStatus", mock.Anything, subID).Return(&entities.CallsStatus{
		Status: entities.CallsStatusPending,
	}, nil)

	svc := NewService(ledger, submitter, nil, nil, newTestCatalog(), logger.NewNop())

	got, err := svc.CheckSubmission(context.Background(), entry)
	require.NoError(t, err)
	assert.Equal(t, entities.TransferStatusPending, got.Status)
	ledger.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEstimateFee(t *testing.T) {
	gas := new(MockGasReader)
	// 100 gwei
	gas.On("GetGasPrice", mock.Anything).Return(big.NewInt(100_000_000_000))

	svc := NewService(new(MockLedger), new(MockSubmitter), gas, nil, newTestCatalog(), logger.NewNop())

	// 21000 * 100 gwei = 0.0021 ETH
	assert.Equal(t, "0.0021", svc.EstimateFee(context.Background()))
}

func TestEstimateFeeDegradesToZero(t *testing.T) {
	gas := new(MockGasReader)
	gas.On("GetGasPrice", mock.Anything).Return(nil)

	svc := NewService(new(MockLedger), new(MockSubmitter), gas, nil, newTestCatalog(), logger.NewNop())
	assert.Equal(t, "0", svc.EstimateFee(context.Background()))
}

func TestExplorerURL(t *testing.T) {
	svc := NewService(new(MockLedger), new(MockSubmitter), nil, nil, newTestCatalog(), logger.NewNop())

	entry := pendingEntry(uuid.New(), "USDC")
	assert.Equal(t, "", svc.ExplorerURL(entry))

	entry.TxHash = "0xabc"
	assert.Equal(t, "https://sepolia.etherscan.io/tx/0xabc", svc.ExplorerURL(entry))
}
