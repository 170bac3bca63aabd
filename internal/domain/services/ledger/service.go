// Package ledger maintains the per-user transfer history and fans out
// snapshot updates to live subscribers.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/africoin-labs/wallet_service/internal/domain/entities"
	domainErrors "github.com/africoin-labs/wallet_service/internal/domain/errors"
	"github.com/africoin-labs/wallet_service/pkg/logger"
	"github.com/africoin-labs/wallet_service/pkg/metrics"
)

// Repository defines the persistence operations the ledger needs
type Repository interface {
	Append(ctx context.Context, transfer *entities.Transfer) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Transfer, error)
	Update(ctx context.Context, id uuid.UUID, patch *entities.TransferPatch) (*entities.Transfer, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entities.Transfer, error)
	ListPendingWithSubmission(ctx context.Context, limit int) ([]*entities.Transfer, error)
	FailStalePending(ctx context.Context, olderThan time.Duration) ([]*entities.Transfer, error)
}

// Publisher defines the pub/sub operations used for live updates. Subscribe
// returns a feed of message payloads and a closer that ends the feed.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload string) error
	Subscribe(ctx context.Context, channel string) (<-chan string, func() error)
}

// Subscription is a live view over a user's ledger. Updates carries a full
// re-sorted snapshot after every change until Cancel is called.
type Subscription struct {
	Updates <-chan []*entities.Transfer
	cancel  context.CancelFunc
}

// Cancel stops the subscription and releases its resources
func (s *Subscription) Cancel() {
	s.cancel()
}

// Service manages the transfer ledger
type Service struct {
	repo   Repository
	pubsub Publisher
	logger *logger.Logger
}

// NewService creates a new ledger service
func NewService(repo Repository, pubsub Publisher, log *logger.Logger) *Service {
	return &Service{
		repo:   repo,
		pubsub: pubsub,
		logger: log,
	}
}

// Append records a new transfer. Entries always enter pending regardless of
// the status set by the caller.
func (s *Service) Append(ctx context.Context, userID uuid.UUID, draft *entities.TransferDraft) (*entities.Transfer, error) {
	transfer := &entities.Transfer{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        draft.Type,
		Amount:      draft.Amount,
		Token:       draft.Token,
		ToAddress:   draft.ToAddress,
		FromAddress: draft.FromAddress,
		Status:      entities.TransferStatusPending,
	}

	if err := transfer.Validate(); err != nil {
		return nil, domainErrors.Wrap(err, "invalid transfer")
	}

	if err := s.repo.Append(ctx, transfer); err != nil {
		return nil, err
	}

	s.logger.Info("Transfer recorded",
		"transfer_id", transfer.ID,
		"user_id", userID,
		"token", transfer.Token,
		"type", transfer.Type)

	s.publishSnapshot(ctx, userID)
	return transfer, nil
}

// Update patches a transfer. Terminal entries cannot change status again.
func (s *Service) Update(ctx context.Context, userID, transferID uuid.UUID, patch *entities.TransferPatch) (*entities.Transfer, error) {
	existing, err := s.repo.GetByID(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if existing.UserID != userID {
		return nil, domainErrors.NotFoundError("transfer")
	}

	if patch.Status != nil {
		if err := patch.Status.Validate(); err != nil {
			return nil, domainErrors.Wrap(err, "invalid transfer status")
		}
		if !existing.Status.CanTransitionTo(*patch.Status) {
			return nil, domainErrors.ConflictError("transfer",
				fmt.Sprintf("cannot move from %s to %s", existing.Status, *patch.Status))
		}
	}

	updated, err := s.repo.Update(ctx, transferID, patch)
	if err != nil {
		return nil, err
	}

	if patch.Status != nil {
		metrics.TransfersResolved.WithLabelValues(string(*patch.Status)).Inc()
	}

	s.publishSnapshot(ctx, userID)
	return updated, nil
}

// List returns the user's transfers, newest first
func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entities.Transfer, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// ListPendingWithSubmission exposes in-flight transfers for the watcher
func (s *Service) ListPendingWithSubmission(ctx context.Context, limit int) ([]*entities.Transfer, error) {
	return s.repo.ListPendingWithSubmission(ctx, limit)
}

// FailStale fails pending transfers older than the cutoff and notifies the
// affected users' subscribers.
func (s *Service) FailStale(ctx context.Context, olderThan time.Duration) (int, error) {
	expired, err := s.repo.FailStalePending(ctx, olderThan)
	if err != nil {
		return 0, err
	}

	notified := map[uuid.UUID]bool{}
	for _, t := range expired {
		metrics.TransfersResolved.WithLabelValues(string(entities.TransferStatusFailed)).Inc()
		if !notified[t.UserID] {
			s.publishSnapshot(ctx, t.UserID)
			notified[t.UserID] = true
		}
	}

	return len(expired), nil
}

// Subscribe opens a live view over the user's ledger. The first snapshot is
// delivered immediately; subsequent ones follow each mutation.
func (s *Service) Subscribe(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)

	// The channel must be live before the first read. A mutation landing
	// between the two would otherwise never reach this subscriber.
	msgs, closeSub := s.pubsub.Subscribe(subCtx, channelFor(userID))

	initial, err := s.repo.ListByUser(ctx, userID, 50, 0)
	if err != nil {
		closeSub()
		cancel()
		return nil, err
	}

	updates := make(chan []*entities.Transfer, 4)
	metrics.LedgerSubscriptions.Inc()

	go func() {
		defer metrics.LedgerSubscriptions.Dec()
		defer close(updates)
		defer closeSub()

		// Deliver the current state before any update arrives.
		select {
		case updates <- initial:
		case <-subCtx.Done():
			return
		}

		for {
			select {
			case <-subCtx.Done():
				return
			case payload, ok := <-msgs:
				if !ok {
					return
				}
				var snapshot []*entities.Transfer
				if err := json.Unmarshal([]byte(payload), &snapshot); err != nil {
					s.logger.Warn("Failed to decode ledger update", "error", err)
					continue
				}
				select {
				case updates <- snapshot:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{Updates: updates, cancel: cancel}, nil
}

// publishSnapshot pushes the user's current ledger to all subscribers.
// Failures are logged and swallowed: persistence already succeeded.
func (s *Service) publishSnapshot(ctx context.Context, userID uuid.UUID) {
	snapshot, err := s.repo.ListByUser(ctx, userID, 50, 0)
	if err != nil {
		s.logger.Warn("Failed to load ledger snapshot for publish",
			"user_id", userID, "error", err)
		return
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		s.logger.Warn("Failed to encode ledger snapshot", "user_id", userID, "error", err)
		return
	}

	if err := s.pubsub.Publish(ctx, channelFor(userID), string(payload)); err != nil {
		s.logger.Warn("Failed to publish ledger update", "user_id", userID, "error", err)
	}
}

func channelFor(userID uuid.UUID) string {
	return "ledger:updates:" + userID.String()
}
