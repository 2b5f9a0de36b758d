package sheets

import (
	"context"
	"time"

	"billbook/internal/core"
)

// Header is the first row of a ledger sheet.
var Header = []string{"timestamp", "action", "bill_id", "date", "type", "category", "amount", "note"}

// Row is one ledger line. A tombstone row carries only Timestamp, Action
// and BillID.
type Row struct {
	Timestamp time.Time
	Action    string
	BillID    string
	Date      time.Time
	Type      core.BillType
	Category  string
	Amount    core.Money
	Note      string
}

// BillRow builds the ledger line for the current state of b.
func BillRow(action string, b core.Bill, at time.Time) Row {
	category := b.CategoryID
	if b.Category != nil && b.Category.Name != "" {
		category = b.Category.Name
	}
	return Row{
		Timestamp: at.UTC(),
		Action:    action,
		BillID:    b.ID,
		Date:      b.Date.UTC(),
		Type:      b.Type,
		Category:  category,
		Amount:    b.Amount,
		Note:      b.Note,
	}
}

// TombstoneRow marks billID as removed.
func TombstoneRow(action, billID string, at time.Time) Row {
	return Row{Timestamp: at.UTC(), Action: action, BillID: billID}
}

// IsTombstone reports whether r carries no bill data.
func (r Row) IsTombstone() bool {
	return r.Date.IsZero() && r.Type == ""
}

// Values returns the cells of r in Header order. Amounts are written as
// plain decimal strings so the sheet parses them as numbers.
func (r Row) Values() []any {
	if r.IsTombstone() {
		return []any{r.Timestamp.Format(time.RFC3339), r.Action, r.BillID, "", "", "", "", ""}
	}
	return []any{
		r.Timestamp.Format(time.RFC3339),
		r.Action,
		r.BillID,
		r.Date.Format("2006-01-02"),
		string(r.Type),
		r.Category,
		r.Amount.String(),
		r.Note,
	}
}

// LedgerWriter appends rows to an external ledger.
type LedgerWriter interface {
	AppendRow(ctx context.Context, r Row) (rowRef string, err error)
}
