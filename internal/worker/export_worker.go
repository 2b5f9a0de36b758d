package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"billbook/internal/amqp"
	"billbook/internal/core"
	"billbook/internal/log"
	"billbook/internal/sheets"
)

// BillReader loads the current state of a bill.
type BillReader interface {
	GetBill(ctx context.Context, id string) (core.Bill, error)
}

// ExportWorker turns bill events into ledger rows.
type ExportWorker struct {
	bills  BillReader
	ledger sheets.LedgerWriter
	logger *log.Logger
}

func NewExportWorker(bills BillReader, ledger sheets.LedgerWriter, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExportWorker{
		bills:  bills,
		ledger: ledger,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleBillEvent appends one row for msg. Created and updated events for
// bills that no longer exist are skipped; the delete event that follows
// records the removal.
func (w *ExportWorker) HandleBillEvent(ctx context.Context, msg *amqp.BillEventMessage) error {
	at := msg.Timestamp
	if at.IsZero() {
		at = time.Now().UTC()
	}

	var row sheets.Row
	switch msg.Action {
	case amqp.ActionDeleted:
		row = sheets.TombstoneRow(string(msg.Action), msg.BillID, at)
	case amqp.ActionCreated, amqp.ActionUpdated:
		b, err := w.bills.GetBill(ctx, msg.BillID)
		if errors.Is(err, core.ErrNotFound) {
			w.logger.InfoContext(ctx, "Skipping event for removed bill",
				log.FieldAction, string(msg.Action),
				log.FieldBillID, msg.BillID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("load bill %s: %w", msg.BillID, err)
		}
		row = sheets.BillRow(string(msg.Action), b, at)
	default:
		return fmt.Errorf("unknown action %q", msg.Action)
	}

	ref, err := w.ledger.AppendRow(ctx, row)
	if err != nil {
		return fmt.Errorf("append ledger row: %w", err)
	}

	w.logger.InfoContext(ctx, "Exported bill event",
		log.FieldOperation, log.OpExport,
		log.FieldAction, string(msg.Action),
		log.FieldBillID, msg.BillID,
		log.FieldUserID, msg.UserID,
		"row_ref", ref)
	return nil
}
