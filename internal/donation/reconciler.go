package donation

import (
	"context"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	errors "github.com/apehbe/charity-backend/internal"
	"github.com/apehbe/charity-backend/internal/core/datamodel/transaction"
	"github.com/apehbe/charity-backend/internal/core/events"
	"github.com/apehbe/charity-backend/internal/gateway"
)

// Source identifies which of the uncoordinated notification paths
// produced a reconciliation event.
type Source string

const (
	SourceVerify  Source = "verify"
	SourceWebhook Source = "webhook"
)

// Event is one status-bearing signal for a transaction: a client
// verify response or an authenticated webhook payload.
type Event struct {
	Reference      string
	Outcome        gateway.Outcome
	ExternalStatus string
	RawPayload     map[string]any
	Source         Source
}

// TransactionStore persists transactions keyed by merchant reference.
// MarkCompleted and MarkFailed must be atomic conditional updates, not
// read-modify-write pairs: webhook delivery and redirect verification
// race for the same reference.
type TransactionStore interface {
	Create(ctx context.Context, txn *transaction.Transaction) error
	GetByReference(ctx context.Context, reference string) (*transaction.Transaction, error)

	// MarkCompleted sets status=completed regardless of the current
	// status (success overrides an earlier failure), sets verifiedAt
	// only if unset, and stores the raw payload. Returns whether the
	// write changed the document.
	MarkCompleted(ctx context.Context, reference string, rawPayload map[string]any) (bool, error)

	// MarkFailed sets status=failed and failedAt, unless the current
	// status is already completed. Returns whether the write changed
	// the document.
	MarkFailed(ctx context.Context, reference string, rawPayload map[string]any) (bool, error)

	// ListByEmail returns the donor's transactions, newest first.
	ListByEmail(ctx context.Context, email string, limit int64) ([]transaction.Transaction, error)
}

// Reconciler applies status-change attempts coming from the verify
// and webhook paths. It is the sole writer of terminal status.
type Reconciler struct {
	store  TransactionStore
	bus    *events.EventBus
	logger *slog.Logger
}

func NewReconciler(store TransactionStore, bus *events.EventBus, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		bus:    bus,
		logger: logger,
	}
}

// Apply runs one reconciliation cycle for the event. Events for
// unknown references are dropped with a warning: they cannot be
// correlated, and the gateway will retry webhooks anyway. A store
// write failure is retried; exhaustion surfaces as a
// ReconciliationPersistenceError that callers must not translate into
// a donor-facing payment failure.
func (r *Reconciler) Apply(ctx context.Context, ev Event) error {
	txn, err := r.store.GetByReference(ctx, ev.Reference)
	if err != nil {
		if appErr, ok := errors.IsAppError(err); ok && appErr.Type == errors.ErrorTypeNotFound {
			r.logger.Warn("dropping reconciliation event for unknown reference",
				"reference", ev.Reference,
				"external_status", ev.ExternalStatus,
				"source", ev.Source)
			return nil
		}
		return errors.NewReconciliationPersistenceError(err)
	}

	switch ev.Outcome {
	case gateway.OutcomeSuccess:
		applied, err := r.writeWithRetry(ctx, r.store.MarkCompleted, ev)
		if err != nil {
			return errors.NewReconciliationPersistenceError(err)
		}
		if applied {
			r.logger.Info("transaction completed",
				"reference", ev.Reference,
				"gateway", txn.Gateway,
				"source", ev.Source)
			r.publishCompleted(ctx, txn)
		} else {
			r.logger.Info("completed event was a no-op",
				"reference", ev.Reference,
				"source", ev.Source)
		}

	case gateway.OutcomeFailure:
		applied, err := r.writeWithRetry(ctx, r.store.MarkFailed, ev)
		if err != nil {
			return errors.NewReconciliationPersistenceError(err)
		}
		if applied {
			r.logger.Info("transaction failed",
				"reference", ev.Reference,
				"gateway", txn.Gateway,
				"external_status", ev.ExternalStatus,
				"source", ev.Source)
			if r.bus != nil {
				r.bus.Publish(ctx, events.NewDonationFailedEvent(ev.Reference, string(txn.Gateway), ev.ExternalStatus))
			}
		} else {
			r.logger.Info("failed event ignored, transaction already completed",
				"reference", ev.Reference,
				"source", ev.Source)
		}

	default:
		// Not a terminal state yet; a future verify or webhook will
		// settle it.
		r.logger.Info("gateway status not terminal, transaction left untouched",
			"reference", ev.Reference,
			"external_status", ev.ExternalStatus,
			"source", ev.Source)
	}

	return nil
}

type markFunc func(ctx context.Context, reference string, rawPayload map[string]any) (bool, error)

func (r *Reconciler) writeWithRetry(ctx context.Context, mark markFunc, ev Event) (bool, error) {
	var applied bool
	backoff := retry.WithMaxRetries(2, retry.NewExponential(100*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var markErr error
		applied, markErr = mark(ctx, ev.Reference, ev.RawPayload)
		if markErr != nil {
			r.logger.Warn("reconciliation write failed, retrying",
				"reference", ev.Reference,
				"source", ev.Source,
				"error", markErr)
			return retry.RetryableError(markErr)
		}
		return nil
	})
	return applied, err
}

func (r *Reconciler) publishCompleted(ctx context.Context, txn *transaction.Transaction) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(ctx, events.NewDonationCompletedEvent(
		txn.Reference,
		string(txn.Gateway),
		txn.Amount,
		txn.Currency,
		txn.Project,
		txn.Donor.Email,
		txn.Donor.Name,
	))
}
