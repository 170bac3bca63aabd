// Package transferwatcher drives pending transfers to a terminal state: a
// poll loop resolves submissions against the provider, and a cron pass fails
// entries that stayed pending past the configured cutoff.
package transferwatcher

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/africoin-labs/wallet_service/internal/domain/entities"
	"github.com/africoin-labs/wallet_service/internal/infrastructure/config"
	"github.com/africoin-labs/wallet_service/pkg/logger"
)

// Resolver checks and resolves in-flight transfers
type Resolver interface {
	ListInFlight(ctx context.Context, limit int) ([]*entities.Transfer, error)
	CheckSubmission(ctx context.Context, t *entities.Transfer) (*entities.Transfer, error)
}

// Expirer fails transfers stuck pending past the cutoff
type Expirer interface {
	FailStale(ctx context.Context, olderThan time.Duration) (int, error)
}

// Worker polls submission statuses and reconciles stale entries
type Worker struct {
	resolver Resolver
	expirer  Expirer
	config   config.WorkerConfig
	logger   *logger.Logger
	cron     *cron.Cron

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewWorker creates a new transfer watcher
func NewWorker(resolver Resolver, expirer Expirer, cfg config.WorkerConfig, log *logger.Logger) *Worker {
	return &Worker{
		resolver: resolver,
		expirer:  expirer,
		config:   cfg,
		logger:   log,
		cron:     cron.New(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the poll loop and schedules the reconciliation pass
func (w *Worker) Start() error {
	schedule := w.config.ReconcileSchedule
	if schedule == "" {
		schedule = "*/5 * * * *"
	}

	if _, err := w.cron.AddFunc(schedule, w.reconcile); err != nil {
		return err
	}
	w.cron.Start()

	go w.pollLoop()

	w.logger.Info("Transfer watcher started",
		"poll_interval", w.config.StatusPollInterval,
		"reconcile_schedule", schedule)
	return nil
}

// Stop halts the worker and waits for the in-flight pass to finish
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
		ctx := w.cron.Stop()
		<-ctx.Done()
		<-w.done
		w.logger.Info("Transfer watcher stopped")
	})
}

func (w *Worker) pollLoop() {
	defer close(w.done)

	interval := time.Duration(w.config.StatusPollInterval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.pollOnce()
		}
	}
}

// pollOnce resolves each in-flight transfer once. Per-transfer failures are
// logged and skipped so one bad submission never blocks the rest.
func (w *Worker) pollOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pending, err := w.resolver.ListInFlight(ctx, 100)
	if err != nil {
		w.logger.Error("Failed to list in-flight transfers", "error", err)
		return
	}

	for _, t := range pending {
		select {
		case <-w.stop:
			return
		default:
		}

		if _, err := w.resolver.CheckSubmission(ctx, t); err != nil {
			w.logger.Warn("Failed to check submission",
				"transfer_id", t.ID, "error", err)
		}
	}
}

// reconcile fails entries that stayed pending past the cutoff. Covers
// submissions the provider lost and entries that never got a submission id.
func (w *Worker) reconcile() {
	cutoffMinutes := w.config.StalePendingMinutes
	if cutoffMinutes <= 0 {
		cutoffMinutes = 30
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	expired, err := w.expirer.FailStale(ctx, time.Duration(cutoffMinutes)*time.Minute)
	if err != nil {
		w.logger.Error("Stale transfer reconciliation failed", "error", err)
		return
	}
	if expired > 0 {
		w.logger.Warn("Expired stale pending transfers", "count", expired)
	}
}
