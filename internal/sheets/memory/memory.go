package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"billbook/internal/log"
	"billbook/internal/sheets"
)

// Exporter keeps ledger rows in memory and logs each one. It stands in
// for a spreadsheet in development and tests.
type Exporter struct {
	mu     sync.Mutex
	rows   []sheets.Row
	logger *log.Logger
}

var _ sheets.LedgerWriter = (*Exporter)(nil)

func New(logger *log.Logger) *Exporter {
	if logger == nil {
		logger = log.Discard()
	}
	return &Exporter{logger: logger.WithComponent(log.ComponentSheets)}
}

// AppendRow stores the row and returns a synthetic row reference.
func (e *Exporter) AppendRow(ctx context.Context, r sheets.Row) (string, error) {
	if r.BillID == "" {
		return "", errors.New("row without bill id")
	}
	e.mu.Lock()
	e.rows = append(e.rows, r)
	n := len(e.rows)
	e.mu.Unlock()

	e.logger.InfoContext(ctx, "Ledger row",
		log.FieldAction, r.Action,
		log.FieldBillID, r.BillID,
		"values", r.Values())
	return fmt.Sprintf("mem:%d", n), nil
}

// Rows returns a copy of every row appended so far.
func (e *Exporter) Rows() []sheets.Row {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]sheets.Row(nil), e.rows...)
}
