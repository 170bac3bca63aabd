package ledger

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/africoin-labs/wallet_service/internal/domain/entities"
	domainErrors "github.com/africoin-labs/wallet_service/internal/domain/errors"
	"github.com/africoin-labs/wallet_service/pkg/logger"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Append(ctx context.Context, transfer *entities.Transfer) error {
	args := m.Called(ctx, transfer)
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Transfer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transfer), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, id uuid.UUID, patch *entities.TransferPatch) (*entities.Transfer, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transfer), args.Error(1)
}

func (m *MockRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entities.Transfer, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Transfer), args.Error(1)
}

func (m *MockRepository) ListPendingWithSubmission(ctx context.Context, limit int) ([]*entities.Transfer, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Transfer), args.Error(1)
}

func (m *MockRepository) FailStalePending(ctx context.Context, olderThan time.Duration) ([]*entities.Transfer, error) {
	args := m.Called(ctx, olderThan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Transfer), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, channel string, payload string) error {
	args := m.Called(ctx, channel, payload)
	return args.Error(0)
}

func (m *MockPublisher) Subscribe(ctx context.Context, channel string) (<-chan string, func() error) {
	args := m.Called(ctx, channel)
	return args.Get(0).(chan string), args.Get(1).(func() error)
}

func sendDraft() *entities.TransferDraft {
	to := "0x1111111111111111111111111111111111111111"
	from := "0x2222222222222222222222222222222222222222"
	return &entities.TransferDraft{
		Type:        entities.TransferTypeSend,
		Amount:      decimal.NewFromFloat(1.5),
		Token:       "USDC",
		ToAddress:   &to,
		FromAddress: &from,
	}
}

func TestAppendAlwaysStartsPending(t *testing.T) {
	userID := uuid.New()

	repo := new(MockRepository)
	repo.On("Append", mock.Anything, mock.MatchedBy(func(tr *entities.Transfer) bool {
		return tr.Status == entities.TransferStatusPending &&
			tr.UserID == userID &&
			tr.ID != uuid.Nil
	})).Return(nil)
	repo.On("ListByUser", mock.Anything, userID, mock.Anything, mock.Anything).
		Return([]*entities.Transfer{}, nil)

	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, "ledger:updates:"+userID.String(), mock.Anything).Return(nil)

	svc := NewService(repo, pub, logger.NewNop())

	got, err := svc.Append(context.Background(), userID, sendDraft())
	require.NoError(t, err)
	assert.Equal(t, entities.TransferStatusPending, got.Status)
	repo.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestAppendRejectsInvalidDrafts(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, new(MockPublisher), logger.NewNop())

	draft := sendDraft()
	draft.Amount = decimal.Zero

	_, err := svc.Append(context.Background(), uuid.New(), draft)
	require.Error(t, err)
	repo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestUpdateGuardsTerminalEntries(t *testing.T) {
	userID := uuid.New()
	entry := &entities.Transfer{
		ID:     uuid.New(),
		UserID: userID,
		Status: entities.TransferStatusCompleted,
	}

	repo := new(MockRepository)
	repo.On("GetByID", mock.Anything, entry.ID).Return(entry, nil)

	svc := NewService(repo, new(MockPublisher), logger.NewNop())

	failed := entities.TransferStatusFailed
	_, err := svc.Update(context.Background(), userID, entry.ID, &entities.TransferPatch{
		Status: &failed,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domainErrors.ErrConflict)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateHidesOtherUsersEntries(t *testing.T) {
	owner := uuid.New()
	entry := &entities.Transfer{
		ID:     uuid.New(),
		UserID: owner,
		Status: entities.TransferStatusPending,
	}

	repo := new(MockRepository)
	repo.On("GetByID", mock.Anything, entry.ID).Return(entry, nil)

	svc := NewService(repo, new(MockPublisher), logger.NewNop())

	completed := entities.TransferStatusCompleted
	_, err := svc.Update(context.Background(), uuid.New(), entry.ID, &entities.TransferPatch{
		Status: &completed,
	})

	assert.ErrorIs(t, err, domainErrors.ErrNotFound)
}

func TestUpdatePublishesSnapshot(t *testing.T) {
	userID := uuid.New()
	entry := &entities.Transfer{
		ID:     uuid.New(),
		UserID: userID,
		Status: entities.TransferStatusPending,
	}
	completed := *entry
	completed.Status = entities.TransferStatusCompleted

	repo := new(MockRepository)
	repo.On("GetByID", mock.Anything, entry.ID).Return(entry, nil)
	repo.On("Update", mock.Anything, entry.ID, mock.Anything).Return(&completed, nil)
	repo.On("ListByUser", mock.Anything, userID, mock.Anything, mock.Anything).
		Return([]*entities.Transfer{&completed}, nil)

	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, "ledger:updates:"+userID.String(), mock.Anything).Return(nil)

	svc := NewService(repo, pub, logger.NewNop())

	status := entities.TransferStatusCompleted
	got, err := svc.Update(context.Background(), userID, entry.ID, &entities.TransferPatch{
		Status: &status,
	})

	require.NoError(t, err)
	assert.Equal(t, entities.TransferStatusCompleted, got.Status)
	pub.AssertExpectations(t)
}

func TestFailStaleNotifiesEachUserOnce(t *testing.T) {
	userA := uuid.New()
	userB := uuid.New()
	expired := []*entities.Transfer{
		{ID: uuid.New(), UserID: userA, Status: entities.TransferStatusFailed},
		{ID: uuid.New(), UserID: userA, Status: entities.TransferStatusFailed},
		{ID: uuid.New(), UserID: userB, Status: entities.TransferStatusFailed},
	}

	repo := new(MockRepository)
	repo.On("FailStalePending", mock.Anything, 30*time.Minute).Return(expired, nil)
	repo.On("ListByUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]*entities.Transfer{}, nil)

	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, "ledger:updates:"+userA.String(), mock.Anything).Return(nil).Once()
	pub.On("Publish", mock.Anything, "ledger:updates:"+userB.String(), mock.Anything).Return(nil).Once()

	svc := NewService(repo, pub, logger.NewNop())

	count, err := svc.FailStale(context.Background(), 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	pub.AssertExpectations(t)
}

func subscriptionFeed() (chan string, func() error, chan struct{}) {
	msgs := make(chan string, 4)
	done := make(chan struct{})
	var once sync.Once
	closer := func() error {
		once.Do(func() { close(done) })
		return nil
	}
	return msgs, closer, done
}

func receiveSnapshot(t *testing.T, sub *Subscription) []*entities.Transfer {
	t.Helper()
	select {
	case snapshot, ok := <-sub.Updates:
		require.True(t, ok, "updates channel closed early")
		return snapshot
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func TestSubscribeDeliversInitialThenMutations(t *testing.T) {
	userID := uuid.New()
	entryID := uuid.New()
	initial := []*entities.Transfer{
		{ID: entryID, UserID: userID, Token: "USDC", Status: entities.TransferStatusPending},
	}

	msgs, closeSub, _ := subscriptionFeed()

	repo := new(MockRepository)
	repo.On("ListByUser", mock.Anything, userID, 50, 0).Return(initial, nil)

	pub := new(MockPublisher)
	pub.On("Subscribe", mock.Anything, "ledger:updates:"+userID.String()).Return(msgs, closeSub)

	svc := NewService(repo, pub, logger.NewNop())

	sub, err := svc.Subscribe(context.Background(), userID)
	require.NoError(t, err)
	defer sub.Cancel()

	first := receiveSnapshot(t, sub)
	require.Len(t, first, 1)
	assert.Equal(t, entryID, first[0].ID)
	assert.Equal(t, entities.TransferStatusPending, first[0].Status)

	resolved := []*entities.Transfer{
		{ID: entryID, UserID: userID, Token: "USDC", Status: entities.TransferStatusCompleted, TxHash: "0xabc"},
	}
	payload, err := json.Marshal(resolved)
	require.NoError(t, err)
	msgs <- string(payload)

	second := receiveSnapshot(t, sub)
	require.Len(t, second, 1)
	assert.Equal(t, entities.TransferStatusCompleted, second[0].Status)
	assert.Equal(t, "0xabc", second[0].TxHash)
}

func TestSubscribeOpensChannelBeforeInitialRead(t *testing.T) {
	userID := uuid.New()
	msgs, closeSub, _ := subscriptionFeed()

	var order []string

	repo := new(MockRepository)
	repo.On("ListByUser", mock.Anything, userID, 50, 0).
		Run(func(mock.Arguments) { order = append(order, "list") }).
		Return([]*entities.Transfer{}, nil)

	pub := new(MockPublisher)
	pub.On("Subscribe", mock.Anything, "ledger:updates:"+userID.String()).
		Run(func(mock.Arguments) { order = append(order, "subscribe") }).
		Return(msgs, closeSub)

	svc := NewService(repo, pub, logger.NewNop())

	sub, err := svc.Subscribe(context.Background(), userID)
	require.NoError(t, err)
	defer sub.Cancel()

	// A publish landing between the two calls must reach an already-open
	// channel, so the subscription has to come first.
	assert.Equal(t, []string{"subscribe", "list"}, order)
}

func TestSubscribeSkipsMalformedUpdates(t *testing.T) {
	userID := uuid.New()
	msgs, closeSub, _ := subscriptionFeed()

	repo := new(MockRepository)
	repo.On("ListByUser", mock.Anything, userID, 50, 0).Return([]*entities.Transfer{}, nil)

	pub := new(MockPublisher)
	pub.On("Subscribe", mock.Anything, mock.Anything).Return(msgs, closeSub)

	svc := NewService(repo, pub, logger.NewNop())

	sub, err := svc.Subscribe(context.Background(), userID)
	require.NoError(t, err)
	defer sub.Cancel()

	assert.Empty(t, receiveSnapshot(t, sub))

	msgs <- "not json"
	good := []*entities.Transfer{{ID: uuid.New(), UserID: userID, Status: entities.TransferStatusFailed}}
	payload, err := json.Marshal(good)
	require.NoError(t, err)
	msgs <- string(payload)

	next := receiveSnapshot(t, sub)
	require.Len(t, next, 1)
	assert.Equal(t, entities.TransferStatusFailed, next[0].Status)
}

func TestSubscribeCancelReleasesResources(t *testing.T) {
	userID := uuid.New()
	msgs, closeSub, done := subscriptionFeed()

	repo := new(MockRepository)
	repo.On("ListByUser", mock.Anything, userID, 50, 0).Return([]*entities.Transfer{}, nil)

	pub := new(MockPublisher)
	pub.On("Subscribe", mock.Anything, mock.Anything).Return(msgs, closeSub)

	svc := NewService(repo, pub, logger.NewNop())

	sub, err := svc.Subscribe(context.Background(), userID)
	require.NoError(t, err)

	sub.Cancel()

	deadline := time.After(time.Second)
	for closed := false; !closed; {
		select {
		case _, ok := <-sub.Updates:
			closed = !ok
		case <-deadline:
			t.Fatal("updates channel not closed after cancel")
		}
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("channel subscription not closed after cancel")
	}
}

func TestSubscribeClosesChannelOnInitialReadFailure(t *testing.T) {
	userID := uuid.New()
	msgs, closeSub, done := subscriptionFeed()

	repo := new(MockRepository)
	repo.On("ListByUser", mock.Anything, userID, 50, 0).
		Return(nil, domainErrors.InternalError("boom", nil))

	pub := new(MockPublisher)
	pub.On("Subscribe", mock.Anything, mock.Anything).Return(msgs, closeSub)

	svc := NewService(repo, pub, logger.NewNop())

	sub, err := svc.Subscribe(context.Background(), userID)
	require.Error(t, err)
	assert.Nil(t, sub)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("channel subscription leaked after failed open")
	}
}
