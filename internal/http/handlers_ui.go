package http

import (
	"net/http"

	"billbook/internal/log"
)

type indexData struct {
	Title string
}

// handleIndex serves the single-page UI. All data flows through the API.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		http.Error(w, "templates unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if err := s.templates.ExecuteTemplate(w, "index.html", indexData{Title: "Billbook"}); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template render failed", log.FieldError, err)
	}
}
