package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billbook/internal/amqp"
	"billbook/internal/core"
	"billbook/internal/sheets"
	sheetsmem "billbook/internal/sheets/memory"
)

type stubBills struct {
	bills map[string]core.Bill
	err   error
}

func (s *stubBills) GetBill(_ context.Context, id string) (core.Bill, error) {
	if s.err != nil {
		return core.Bill{}, s.err
	}
	b, ok := s.bills[id]
	if !ok {
		return core.Bill{}, core.Errorf(core.ErrNotFound, "bill not found")
	}
	return b, nil
}

type failingLedger struct{}

func (failingLedger) AppendRow(context.Context, sheets.Row) (string, error) {
	return "", errors.New("quota exceeded")
}

var eventTime = time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)

func event(action amqp.Action, billID string) *amqp.BillEventMessage {
	return &amqp.BillEventMessage{Action: action, BillID: billID, UserID: "u1", Timestamp: eventTime}
}

func newStubBills() *stubBills {
	return &stubBills{bills: map[string]core.Bill{
		"b1": {
			ID:         "b1",
			UserID:     "u1",
			Amount:     core.Money{Cents: 4200},
			Type:       core.Expense,
			CategoryID: "c1",
			Category:   &core.Category{ID: "c1", Name: "Rent", Type: core.Expense},
			Date:       time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
			Note:       "april",
		},
	}}
}

func TestHandleBillEventExportsCurrentState(t *testing.T) {
	ledger := sheetsmem.New(nil)
	w := NewExportWorker(newStubBills(), ledger, nil)

	require.NoError(t, w.HandleBillEvent(context.Background(), event(amqp.ActionCreated, "b1")))
	require.NoError(t, w.HandleBillEvent(context.Background(), event(amqp.ActionUpdated, "b1")))

	rows := ledger.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "created", rows[0].Action)
	assert.Equal(t, "updated", rows[1].Action)
	assert.Equal(t, "Rent", rows[0].Category)
	assert.Equal(t, core.Money{Cents: 4200}, rows[0].Amount)
	assert.Equal(t, eventTime, rows[0].Timestamp)
}

func TestHandleBillEventDeleteWritesTombstone(t *testing.T) {
	ledger := sheetsmem.New(nil)
	w := NewExportWorker(newStubBills(), ledger, nil)

	require.NoError(t, w.HandleBillEvent(context.Background(), event(amqp.ActionDeleted, "gone")))

	rows := ledger.Rows()
	require.Len(t, rows, 1)
	assert.True(t, rows[0].IsTombstone())
	assert.Equal(t, "gone", rows[0].BillID)
}

func TestHandleBillEventSkipsRemovedBill(t *testing.T) {
	ledger := sheetsmem.New(nil)
	w := NewExportWorker(newStubBills(), ledger, nil)

	require.NoError(t, w.HandleBillEvent(context.Background(), event(amqp.ActionCreated, "missing")))
	assert.Empty(t, ledger.Rows())
}

func TestHandleBillEventReturnsRetryableErrors(t *testing.T) {
	bills := newStubBills()
	bills.err = errors.New("database is locked")
	w := NewExportWorker(bills, sheetsmem.New(nil), nil)
	assert.ErrorContains(t, w.HandleBillEvent(context.Background(), event(amqp.ActionUpdated, "b1")), "database is locked")

	w = NewExportWorker(newStubBills(), failingLedger{}, nil)
	assert.ErrorContains(t, w.HandleBillEvent(context.Background(), event(amqp.ActionCreated, "b1")), "quota exceeded")

	w = NewExportWorker(newStubBills(), sheetsmem.New(nil), nil)
	assert.Error(t, w.HandleBillEvent(context.Background(), event("archived", "b1")))
}
