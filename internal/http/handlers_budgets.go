package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"billbook/internal/services"
)

func budgetUpdateFrom(p *RequestBodyParser) (services.BudgetUpdate, error) {
	var (
		upd services.BudgetUpdate
		err error
	)
	if upd.Amount, err = p.OptMoney("amount"); err != nil {
		return upd, err
	}
	if upd.Period, err = p.OptPeriod("period"); err != nil {
		return upd, err
	}
	if upd.StartDate, err = p.OptDate("startDate", false); err != nil {
		return upd, err
	}
	if upd.EndDate, err = p.OptDate("endDate", false); err != nil {
		return upd, err
	}
	upd.CategoryID = p.OptString("categoryId", "category")
	upd.Description = p.OptString("description")
	return upd, nil
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.svc.Budgets.List(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]budgetView, len(budgets))
	for i, b := range budgets {
		out[i] = newBudgetView(b)
	}
	Success(http.StatusOK, "ok", out).Write(w)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.Budgets.Get(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	Success(http.StatusOK, "ok", newBudgetView(b)).Write(w)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	upd, err := budgetUpdateFrom(p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in services.BudgetInput
	if upd.CategoryID != nil {
		in.CategoryID = *upd.CategoryID
	}
	if upd.Amount != nil {
		in.Amount = *upd.Amount
	}
	if upd.Period != nil {
		in.Period = *upd.Period
	}
	if upd.StartDate != nil {
		in.StartDate = *upd.StartDate
	}
	if upd.EndDate != nil {
		in.EndDate = *upd.EndDate
	}
	if upd.Description != nil {
		in.Description = *upd.Description
	}

	b, err := s.svc.Budgets.Create(r.Context(), userIDFromContext(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	Success(http.StatusCreated, "budget created", newBudgetView(b)).Write(w)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	upd, err := budgetUpdateFrom(p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.svc.Budgets.Update(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "id"), upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	Success(http.StatusOK, "budget updated", newBudgetView(b)).Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Budgets.Delete(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	Success(http.StatusOK, "budget deleted", nil).Write(w)
}

func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Budgets.Status(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "id"), s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	Success(http.StatusOK, "ok", newBudgetStatusView(st)).Write(w)
}
