package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AEY-IP/aey-estimate-app-sub001/internal/pricing"
)

func (s *server) handleCoefficientsList(w http.ResponseWriter, r *http.Request) {
	catalog, err := s.store.ListCoefficients(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, catalog)
}

func (s *server) handleCoefficientCreate(w http.ResponseWriter, r *http.Request) {
	var c pricing.Coefficient
	if err := decodeJSON(r, &c); err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.store.CreateCoefficient(r.Context(), c)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.log.Info("coefficient created", "id", created.ID, "kind", string(created.Kind), "value", created.Value)
	writeJSON(w, http.StatusCreated, created)
}

// handleCoefficientUpdate edits the live catalog. Already exported snapshots keep their numbers.
func (s *server) handleCoefficientUpdate(w http.ResponseWriter, r *http.Request) {
	var c pricing.Coefficient
	if err := decodeJSON(r, &c); err != nil {
		s.writeError(w, r, err)
		return
	}
	c.ID = chi.URLParam(r, "id")

	if err := s.store.UpdateCoefficient(r.Context(), c); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.log.Info("coefficient updated", "id", c.ID, "kind", string(c.Kind), "value", c.Value)
	writeJSON(w, http.StatusOK, c)
}

func (s *server) handleCoefficientDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteCoefficient(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.log.Info("coefficient deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}
