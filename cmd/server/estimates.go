package main

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/AEY-IP/aey-estimate-app-sub001/internal/export"
	"github.com/AEY-IP/aey-estimate-app-sub001/internal/pricing"
	"github.com/AEY-IP/aey-estimate-app-sub001/internal/snapshot"
	"github.com/AEY-IP/aey-estimate-app-sub001/internal/store"
)

type estimateListItem struct {
	ID         string             `json:"id"`
	Title      string             `json:"title"`
	ClientName string             `json:"clientName"`
	Type       store.EstimateType `json:"type"`
	CreatedAt  time.Time          `json:"createdAt"`
	Total      *float64           `json:"exportedTotal,omitempty"`
}

type estimateRequest struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	ClientName   string          `json:"clientName"`
	Type         string          `json:"type"`
	Category     string          `json:"category"`
	Notes        string          `json:"notes"`
	Coefficients []string        `json:"coefficients"`
	ManualPrices []string        `json:"manualPrices"`
	Rooms        []pricing.Room  `json:"rooms"`
	Blocks       []pricing.Block `json:"blocks"`
}

type estimateResponse struct {
	ID       string             `json:"id"`
	Title    string             `json:"title"`
	Client   string             `json:"clientName"`
	Type     store.EstimateType `json:"type"`
	Category string             `json:"category"`
	Source   export.Source      `json:"source"`
	Snapshot snapshot.Snapshot  `json:"totals"`
}

func newEstimateResponse(res export.Result) estimateResponse {
	return estimateResponse{
		ID:       res.Estimate.ID,
		Title:    res.Estimate.Title,
		Client:   res.Estimate.ClientName,
		Type:     res.Estimate.Type,
		Category: res.Estimate.Category,
		Source:   res.Source,
		Snapshot: res.Snapshot,
	}
}

func (s *server) handleEstimatesList(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	list, err := s.store.ListEstimates(r.Context(), query)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	items := make([]estimateListItem, 0, len(list))
	for _, e := range list {
		item := estimateListItem{
			ID:         e.ID,
			Title:      e.Title,
			ClientName: e.ClientName,
			Type:       e.Type,
			CreatedAt:  e.CreatedAt,
		}
		if e.HasSnapshot {
			total := e.Total
			item.Total = &total
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *server) handleEstimateCreate(w http.ResponseWriter, r *http.Request) {
	var req estimateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.store.CreateEstimate(r.Context(), store.Estimate{
		ID:           req.ID,
		Title:        req.Title,
		ClientName:   req.ClientName,
		Type:         store.EstimateType(req.Type),
		Category:     req.Category,
		Notes:        req.Notes,
		Coefficients: req.Coefficients,
		ManualPrices: req.ManualPrices,
		Rooms:        req.Rooms,
		Blocks:       req.Blocks,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.exports.Live(r.Context(), created.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newEstimateResponse(res))
}

// handleEstimateLive prices the estimate from current data. Nothing is frozen.
func (s *server) handleEstimateLive(w http.ResponseWriter, r *http.Request) {
	res, err := s.exports.Live(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newEstimateResponse(res))
}

func (s *server) handleSelectCoefficients(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Coefficients []string `json:"coefficients"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.store.SelectCoefficients(r.Context(), id, req.Coefficients); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.handleEstimateLive(w, r)
}

func (s *server) handleManualPrice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UnitPrice *float64 `json:"unitPrice"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.UnitPrice == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unitPrice is required"})
		return
	}

	err := s.store.SetManualPrice(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "lineID"), *req.UnitPrice)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.handleEstimateLive(w, r)
}

func (s *server) handleBlockCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoomID string `json:"roomId"`
		pricing.Block
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	block, err := s.store.CreateBlock(r.Context(), chi.URLParam(r, "id"), req.RoomID, req.Block)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, block)
}

func (s *server) handleBlockMove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ParentID string `json:"parentId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.store.MoveBlock(r.Context(), chi.URLParam(r, "id"), req.ParentID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleBlockDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteBlock(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
