package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"billbook/internal/amqp"
	"billbook/internal/core"
	"billbook/internal/log"
	"billbook/internal/storage"
)

const (
	DefaultRecentLimit = 5
)

var (
	errBillNotFound      = core.Errorf(core.ErrNotFound, "bill not found")
	errBillForbidden     = core.Errorf(core.ErrForbidden, "not authorized to access this bill")
	errUnknownCategory   = core.Errorf(core.ErrValidation, "category not found")
	errBillFieldsMissing = core.Errorf(core.ErrValidation, "please provide amount, type, categoryId and date")
)

// BillInput holds the fields of a new bill.
type BillInput struct {
	Amount     core.Money
	Type       core.BillType
	CategoryID string
	Date       time.Time
	Note       string
}

// BillUpdate carries optional bill changes; nil fields stay untouched.
type BillUpdate struct {
	Amount     *core.Money
	Type       *core.BillType
	CategoryID *string
	Date       *time.Time
	Note       *string
}

// BillService manages bills and announces every change through the
// configured publisher.
type BillService struct {
	bills      storage.BillRepository
	categories storage.CategoryRepository
	publisher  EventPublisher
	logger     *log.Logger
	clock      Clock
}

func NewBillService(bills storage.BillRepository, categories storage.CategoryRepository, publisher EventPublisher, logger *log.Logger) *BillService {
	if logger == nil {
		logger = log.Discard()
	}
	return &BillService{
		bills:      bills,
		categories: categories,
		publisher:  publisher,
		logger:     logger.WithComponent(log.ComponentBill),
	}
}

// List returns one page of the user's bills matching f together with the
// total count and income/expense sums of the whole filtered set.
func (s *BillService) List(ctx context.Context, userID string, f core.BillFilter, p core.PageRequest) (core.BillPage, error) {
	if f.Type != "" && !f.Type.Valid() {
		return core.BillPage{}, core.ErrInvalidType
	}
	f.UserID = userID
	p = p.Normalize()

	page := core.BillPage{Page: p}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		bills, err := s.bills.ListBills(gctx, f, p)
		page.Bills = bills
		return err
	})
	g.Go(func() error {
		n, err := s.bills.CountBills(gctx, f)
		page.Total = n
		return err
	})
	g.Go(func() error {
		t, err := s.bills.SumBills(gctx, f)
		page.Totals = t
		return err
	})
	if err := g.Wait(); err != nil {
		return core.BillPage{}, fmt.Errorf("list bills: %w", err)
	}
	if page.Bills == nil {
		page.Bills = []core.Bill{}
	}
	return page, nil
}

// Get returns the bill when it belongs to userID.
func (s *BillService) Get(ctx context.Context, userID, id string) (core.Bill, error) {
	b, err := s.bills.GetBill(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return core.Bill{}, errBillNotFound
	}
	if err != nil {
		return core.Bill{}, fmt.Errorf("get bill: %w", err)
	}
	if b.UserID != userID {
		return core.Bill{}, errBillForbidden
	}
	return b, nil
}

func (s *BillService) requireCategory(ctx context.Context, id string) error {
	_, err := s.categories.GetCategory(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return errUnknownCategory
	}
	if err != nil {
		return fmt.Errorf("get category: %w", err)
	}
	return nil
}

func (s *BillService) Create(ctx context.Context, userID string, in BillInput) (core.Bill, error) {
	if in.Amount.Cents == 0 || in.Type == "" || strings.TrimSpace(in.CategoryID) == "" || in.Date.IsZero() {
		return core.Bill{}, errBillFieldsMissing
	}
	now := nowUTC(s.clock)
	b := core.Bill{
		ID:         core.NewID(),
		UserID:     userID,
		Amount:     in.Amount,
		Type:       in.Type,
		CategoryID: strings.TrimSpace(in.CategoryID),
		Date:       in.Date.UTC(),
		Note:       strings.TrimSpace(in.Note),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := b.Validate(); err != nil {
		return core.Bill{}, err
	}
	if err := s.requireCategory(ctx, b.CategoryID); err != nil {
		return core.Bill{}, err
	}
	if err := s.bills.CreateBill(ctx, b); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Bill{}, errUnknownCategory
		}
		return core.Bill{}, fmt.Errorf("create bill: %w", err)
	}

	s.logger.InfoContext(ctx, "Bill created", s.fields(b).WithOperation(log.OpCreate).ToSlice()...)
	s.publish(ctx, amqp.ActionCreated, b)
	return s.reload(ctx, b), nil
}

func (s *BillService) Update(ctx context.Context, userID, id string, upd BillUpdate) (core.Bill, error) {
	b, err := s.Get(ctx, userID, id)
	if err != nil {
		return core.Bill{}, err
	}
	if upd.Amount != nil {
		b.Amount = *upd.Amount
	}
	if upd.Type != nil {
		b.Type = *upd.Type
	}
	if upd.CategoryID != nil {
		b.CategoryID = strings.TrimSpace(*upd.CategoryID)
	}
	if upd.Date != nil {
		b.Date = upd.Date.UTC()
	}
	if upd.Note != nil {
		b.Note = strings.TrimSpace(*upd.Note)
	}
	if err := b.Validate(); err != nil {
		return core.Bill{}, err
	}
	if upd.CategoryID != nil {
		if err := s.requireCategory(ctx, b.CategoryID); err != nil {
			return core.Bill{}, err
		}
	}
	b.UpdatedAt = nowUTC(s.clock)

	if err := s.bills.UpdateBill(ctx, b); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Bill{}, errBillNotFound
		}
		return core.Bill{}, fmt.Errorf("update bill: %w", err)
	}

	s.logger.InfoContext(ctx, "Bill updated", s.fields(b).WithOperation(log.OpUpdate).ToSlice()...)
	s.publish(ctx, amqp.ActionUpdated, b)
	return s.reload(ctx, b), nil
}

func (s *BillService) Delete(ctx context.Context, userID, id string) error {
	b, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.bills.DeleteBill(ctx, id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return errBillNotFound
		}
		return fmt.Errorf("delete bill: %w", err)
	}
	s.logger.InfoContext(ctx, "Bill deleted", s.fields(b).WithOperation(log.OpDelete).ToSlice()...)
	s.publish(ctx, amqp.ActionDeleted, b)
	return nil
}

// Summary totals every bill of the user.
func (s *BillService) Summary(ctx context.Context, userID string) (core.Summary, error) {
	t, err := s.bills.SumBills(ctx, core.BillFilter{UserID: userID})
	if err != nil {
		return core.Summary{}, fmt.Errorf("sum bills: %w", err)
	}
	return core.SummaryOf(t), nil
}

// Recent returns the user's latest bills. limit <= 0 means DefaultRecentLimit.
func (s *BillService) Recent(ctx context.Context, userID string, limit int) ([]core.Bill, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	p := core.PageRequest{Page: 1, Limit: limit}.Normalize()
	bills, err := s.bills.ListBills(ctx, core.BillFilter{UserID: userID}, p)
	if err != nil {
		return nil, fmt.Errorf("recent bills: %w", err)
	}
	if bills == nil {
		bills = []core.Bill{}
	}
	return bills, nil
}

// reload fetches b again so the returned bill carries its category. The
// written bill is returned unchanged if the read fails.
func (s *BillService) reload(ctx context.Context, b core.Bill) core.Bill {
	got, err := s.bills.GetBill(ctx, b.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to reload bill", log.FieldBillID, b.ID, log.FieldError, err)
		return b
	}
	return got
}

func (s *BillService) fields(b core.Bill) log.LogFields {
	return log.NewFields().WithBill(b.ID, string(b.Type), b.CategoryID, b.Amount.Cents).WithUser(b.UserID)
}

// publish announces a change. Failures are logged and never reach the
// caller since the write already succeeded.
func (s *BillService) publish(ctx context.Context, action amqp.Action, b core.Bill) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No event publisher configured, skipping bill event", log.FieldBillID, b.ID)
		return
	}
	msg := amqp.NewBillEventMessage(action, b.ID, b.UserID)
	if err := s.publisher.PublishBillEvent(ctx, *msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish bill event",
			log.FieldAction, string(action),
			log.FieldBillID, b.ID,
			log.FieldError, err)
	}
}
