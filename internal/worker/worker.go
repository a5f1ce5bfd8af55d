// Package worker reacts to transaction.recorded events: it mirrors each row
// into the spreadsheet and reports budgets the row pushed past a threshold.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"fxledger/internal/amqp"
	"fxledger/internal/budget"
	"fxledger/internal/core"
	"fxledger/internal/log"
	"fxledger/internal/metrics"
)

type Mirror interface {
	Append(ctx context.Context, tx core.Transaction) (string, error)
}

type BudgetChecker interface {
	Alerts(ctx context.Context, owner string, asOf core.Date) ([]budget.Status, error)
}

// Worker is safe for concurrent use when its collaborators are. Either
// collaborator may be nil.
type Worker struct {
	mirror  Mirror
	budgets BudgetChecker
}

func New(mirror Mirror, budgets BudgetChecker) *Worker {
	return &Worker{mirror: mirror, budgets: budgets}
}

// HandleTransactionRecorded is an amqp.Handler. Only a mirror failure is
// returned, so the broker redelivers rows the sheet has not seen yet.
func (w *Worker) HandleTransactionRecorded(ctx context.Context, msg *amqp.TransactionRecordedMessage) error {
	tx := msg.Transaction
	slog.InfoContext(ctx, "Processing transaction event",
		log.FieldComponent, log.ComponentWorker,
		log.FieldOperation, log.OpConsume,
		log.FieldTxID, tx.ID,
		log.FieldOwner, tx.OwnerKey)

	if w.mirror != nil {
		ref, err := w.mirror.Append(ctx, tx)
		if err != nil {
			metrics.WorkerMessages.WithLabelValues(metrics.OutcomeError).Inc()
			return fmt.Errorf("mirror transaction %s: %w", tx.ID, err)
		}
		slog.InfoContext(ctx, "Mirrored transaction to sheet",
			log.FieldComponent, log.ComponentWorker,
			log.FieldTxID, tx.ID,
			"range", ref)
	}

	w.reportBudgets(ctx, tx)
	metrics.WorkerMessages.WithLabelValues(metrics.OutcomeOK).Inc()
	return nil
}

func (w *Worker) reportBudgets(ctx context.Context, tx core.Transaction) {
	if w.budgets == nil || tx.Kind != core.KindExpense {
		return
	}
	alerts, err := w.budgets.Alerts(ctx, tx.OwnerKey, tx.OccurredOn)
	if err != nil {
		slog.WarnContext(ctx, "Budget check failed",
			log.FieldComponent, log.ComponentBudget,
			log.FieldOwner, tx.OwnerKey,
			log.FieldError, err)
		return
	}
	for _, st := range alerts {
		if st.Budget.Category != tx.Category {
			continue
		}
		slog.WarnContext(ctx, "Budget threshold reached",
			log.FieldComponent, log.ComponentBudget,
			log.FieldOwner, tx.OwnerKey,
			log.FieldCategory, st.Budget.Category,
			"period", string(st.Budget.Period),
			"state", string(st.State),
			"spent", st.Spent.String(),
			"limit", st.Budget.Limit.String(),
			"percent", st.Percent.String())
	}
}
