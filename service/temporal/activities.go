package temporal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/simchain/walletsim/service/ledger"
	"github.com/simchain/walletsim/service/metrics"
)

// ConfirmPendingInput contains the input parameters for a confirmation sweep.
type ConfirmPendingInput struct {
	BatchSize int `json:"batch_size"`
}

// ConfirmPendingResult contains the result of a confirmation sweep.
type ConfirmPendingResult struct {
	Confirmed int       `json:"confirmed"`
	Remaining int       `json:"remaining"`
	SweepTime time.Time `json:"sweep_time"`
	Error     *string   `json:"error,omitempty"`
}

// ListTopPendingInput contains parameters for the ListTopPending activity.
type ListTopPendingInput struct {
	Limit int `json:"limit"`
}

// ListTopPendingResult contains the result of the ListTopPending activity.
type ListTopPendingResult struct {
	TransactionIDs []string `json:"transaction_ids"`
	TotalPending   int      `json:"total_pending"`
}

// ConfirmBatchInput contains parameters for the ConfirmBatch activity.
type ConfirmBatchInput struct {
	TransactionIDs []string `json:"transaction_ids"`
}

// ConfirmBatchResult contains the result of the ConfirmBatch activity.
type ConfirmBatchResult struct {
	Confirmed int      `json:"confirmed"`
	Skipped   []string `json:"skipped,omitempty"` // Already confirmed or failed
}

// StoreInterface defines the database operations needed by activities.
// This allows for easy mocking in tests.
type StoreInterface interface {
	ListPendingTransactions(ctx context.Context) ([]*ledger.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*ledger.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, id string, status ledger.Status) error
}

// PublisherInterface defines the NATS publishing operations needed by activities.
// This allows for easy mocking in tests.
type PublisherInterface interface {
	PublishSettlement(ctx context.Context, event *ledger.SettlementEvent) error
}

// Activities holds the dependencies needed by Temporal activities.
type Activities struct {
	store     StoreInterface
	publisher PublisherInterface
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewActivities creates a new Activities instance with explicit dependencies.
// If metrics is nil, no metrics will be recorded. If publisher is nil, no
// events are emitted for confirmations.
func NewActivities(store StoreInterface, publisher PublisherInterface, m *metrics.Metrics, logger *slog.Logger) *Activities {
	if logger == nil {
		logger = slog.Default()
	}
	return &Activities{
		store:     store,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// ListTopPending returns the ids of the highest-fee pending transactions,
// up to the given limit. The store returns them fee-descending, so the
// front of the list is what a miner would take next.
func (a *Activities) ListTopPending(ctx context.Context, input ListTopPendingInput) (*ListTopPendingResult, error) {
	pending, err := a.store.ListPendingTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending transactions: %w", err)
	}

	limit := input.Limit
	if limit <= 0 || limit > len(pending) {
		limit = len(pending)
	}

	ids := make([]string, 0, limit)
	for _, tx := range pending[:limit] {
		ids = append(ids, tx.ID)
	}

	a.logger.Debug("listed top pending transactions",
		"total_pending", len(pending),
		"selected", len(ids),
	)

	return &ListTopPendingResult{
		TransactionIDs: ids,
		TotalPending:   len(pending),
	}, nil
}

// ConfirmBatch advances the given transactions from PENDING to CONFIRMED
// and publishes a settlement event for each. Transactions that were
// already advanced by a concurrent sweep are skipped, not failed.
func (a *Activities) ConfirmBatch(ctx context.Context, input ConfirmBatchInput) (*ConfirmBatchResult, error) {
	start := time.Now()
	result := &ConfirmBatchResult{}

	for _, id := range input.TransactionIDs {
		err := a.store.UpdateTransactionStatus(ctx, id, ledger.StatusConfirmed)
		if err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				// Lost the race to another sweep, or the row moved on.
				result.Skipped = append(result.Skipped, id)
				continue
			}
			return result, fmt.Errorf("failed to confirm transaction %s: %w", id, err)
		}
		result.Confirmed++

		if a.publisher != nil {
			tx, err := a.store.GetTransaction(ctx, id)
			if err != nil {
				a.logger.Warn("confirmed transaction could not be reloaded for event",
					"transaction_id", id,
					"error", err,
				)
				continue
			}
			if err := a.publisher.PublishSettlement(ctx, ledger.NewSettlementEvent(tx)); err != nil {
				a.logger.Warn("failed to publish confirmation event",
					"transaction_id", id,
					"error", err,
				)
			}
		}
	}

	if a.metrics != nil {
		a.metrics.RecordConfirmations("confirmed", result.Confirmed)
		a.metrics.RecordConfirmSweep("success", result.Confirmed, time.Since(start).Seconds())
	}

	a.logger.Info("confirmed transaction batch",
		"confirmed", result.Confirmed,
		"skipped", len(result.Skipped),
	)

	return result, nil
}
