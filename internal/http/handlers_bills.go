package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"billbook/internal/services"
)

// billUpdateFrom reads the optional bill fields of a request body.
func billUpdateFrom(p *RequestBodyParser) (services.BillUpdate, error) {
	var (
		upd services.BillUpdate
		err error
	)
	if upd.Amount, err = p.OptMoney("amount"); err != nil {
		return upd, err
	}
	if upd.Type, err = p.OptBillType("type"); err != nil {
		return upd, err
	}
	if upd.Date, err = p.OptDate("date", false); err != nil {
		return upd, err
	}
	upd.CategoryID = p.OptString("categoryId", "category")
	upd.Note = p.OptString("note")
	return upd, nil
}

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	f, page, err := parseBillQuery(r.URL.Query(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.svc.Bills.List(r.Context(), userID, f, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	Success(http.StatusOK, "ok", newBillListView(res)).Write(w)
}

func (s *Server) handleGetBill(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.Bills.Get(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	Success(http.StatusOK, "ok", newBillView(b)).Write(w)
}

func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	upd, err := billUpdateFrom(p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in services.BillInput
	if upd.Amount != nil {
		in.Amount = *upd.Amount
	}
	if upd.Type != nil {
		in.Type = *upd.Type
	}
	if upd.CategoryID != nil {
		in.CategoryID = *upd.CategoryID
	}
	if upd.Date != nil {
		in.Date = *upd.Date
	}
	if upd.Note != nil {
		in.Note = *upd.Note
	}

	b, err := s.svc.Bills.Create(r.Context(), userIDFromContext(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	Success(http.StatusCreated, "bill created", newBillView(b)).Write(w)
}

func (s *Server) handleUpdateBill(w http.ResponseWriter, r *http.Request) {
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	upd, err := billUpdateFrom(p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.svc.Bills.Update(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "id"), upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	Success(http.StatusOK, "bill updated", newBillView(b)).Write(w)
}

func (s *Server) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Bills.Delete(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	Success(http.StatusOK, "bill deleted", nil).Write(w)
}

func (s *Server) handleBillSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.svc.Bills.Summary(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	Success(http.StatusOK, "ok", summaryView{Income: sum.Income, Expense: sum.Expense, Balance: sum.Balance}).Write(w)
}

func (s *Server) handleRecentBills(w http.ResponseWriter, r *http.Request) {
	limit, err := parseIntParam(r.URL.Query(), "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	bills, err := s.svc.Bills.Recent(r.Context(), userIDFromContext(r.Context()), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	Success(http.StatusOK, "ok", newBillViews(bills)).Write(w)
}
