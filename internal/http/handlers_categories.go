package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"billbook/internal/core"
	"billbook/internal/services"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	t := core.BillType(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("type"))))
	cats, err := s.svc.Categories.List(r.Context(), t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]categoryView, len(cats))
	for i, c := range cats {
		out[i] = newCategoryView(c)
	}
	Success(http.StatusOK, "ok", out).Write(w)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.Categories.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	Success(http.StatusOK, "ok", newCategoryView(c)).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	t, err := p.OptBillType("type")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var billType core.BillType
	if t != nil {
		billType = *t
	}
	c, err := s.svc.Categories.Create(r.Context(), p.Get("name"), billType, p.Get("icon"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	Success(http.StatusCreated, "category created", newCategoryView(c)).Write(w)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	t, err := p.OptBillType("type")
	if err != nil {
		writeError(w, r, err)
		return
	}
	upd := services.CategoryUpdate{
		Name: p.OptString("name"),
		Type: t,
		Icon: p.OptString("icon"),
	}
	c, err := s.svc.Categories.Update(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	Success(http.StatusOK, "category updated", newCategoryView(c)).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Categories.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	Success(http.StatusOK, "category deleted", nil).Write(w)
}
